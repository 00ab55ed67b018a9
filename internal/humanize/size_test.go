package humanize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512.00 bytes", FormatSize(512))
	assert.Equal(t, "1.00 KB", FormatSize(1024))
	assert.Equal(t, "1.00 MB", FormatSize(1024*1024))
	assert.Equal(t, "2.00 GB", FormatSize(2*1024*1024*1024))
}

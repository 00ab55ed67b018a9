// Package humanize formats byte counts for human-readable output, used
// by TABLEINFO and CLI summaries. Grounded on the prototype's
// utils/extra.py format_size.
package humanize

import "fmt"

var units = [...]string{"bytes", "KB", "MB", "GB"}

// FormatSize renders a byte count in the smallest unit under which the
// value is < 1024, two decimal places, matching format_size's
// falls-off-the-end behavior of reporting in GB once it no longer fits
// in any smaller unit.
func FormatSize(sizeInBytes int64) string {
	size := float64(sizeInBytes)
	for _, unit := range units[:len(units)-1] {
		if size < 1024 {
			return fmt.Sprintf("%.2f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.2f %s", size, units[len(units)-1])
}

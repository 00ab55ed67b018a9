package dsutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRowQueue_EnqueueDequeue(t *testing.T) {
	q := NewRowQueue()
	q.Enqueue(1)
	q.Enqueue(2)
	q.Enqueue(3)

	v, ok := q.Dequeue()
	assert.True(t, ok)
	assert.EqualValues(t, 1, v)
	assert.Equal(t, 2, q.Len())
}

func TestRowQueue_DequeueEmpty(t *testing.T) {
	q := NewRowQueue()
	_, ok := q.Dequeue()
	assert.False(t, ok)
}

func TestRowQueue_Peek(t *testing.T) {
	q := NewRowQueue()
	q.Enqueue(5)
	q.Enqueue(6)

	v, ok := q.Peek()
	assert.True(t, ok)
	assert.EqualValues(t, 5, v)
	assert.Equal(t, 2, q.Len(), "peek must not remove the front item")
}

func TestRowQueue_PeekEmpty(t *testing.T) {
	q := NewRowQueue()
	_, ok := q.Peek()
	assert.False(t, ok)
}

func TestRowQueue_FromSortedInt64s(t *testing.T) {
	q := FromSortedInt64s([]int64{5, 1, 3})
	var drained []int64
	for {
		v, ok := q.Dequeue()
		if !ok {
			break
		}
		drained = append(drained, v)
	}
	assert.Equal(t, []int64{1, 3, 5}, drained)
}

func TestRowQueue_FromSortedInt64s_DoesNotMutateInput(t *testing.T) {
	original := []int64{5, 1, 3}
	FromSortedInt64s(original)
	assert.Equal(t, []int64{5, 1, 3}, original)
}

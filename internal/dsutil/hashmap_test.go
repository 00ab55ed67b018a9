package dsutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderedMap_SetGet(t *testing.T) {
	m := NewOrderedMap[int]()
	m.Set("a", 1)
	m.Set("b", 2)

	v, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = m.Get("ghost")
	assert.False(t, ok)
}

func TestOrderedMap_PreservesInsertionOrder(t *testing.T) {
	m := NewOrderedMap[int]()
	m.Set("z", 1)
	m.Set("a", 2)
	m.Set("m", 3)
	assert.Equal(t, []string{"z", "a", "m"}, m.Keys())
	assert.Equal(t, []int{1, 2, 3}, m.Values())
}

func TestOrderedMap_UpdateKeepsPosition(t *testing.T) {
	m := NewOrderedMap[int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("a", 99)

	assert.Equal(t, []string{"a", "b"}, m.Keys())
	v, _ := m.Get("a")
	assert.Equal(t, 99, v)
}

func TestOrderedMap_Delete(t *testing.T) {
	m := NewOrderedMap[int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)
	m.Delete("b")

	assert.Equal(t, []string{"a", "c"}, m.Keys())
	assert.Equal(t, 2, m.Len())
	_, ok := m.Get("b")
	assert.False(t, ok)
}

func TestOrderedMap_DeleteMissingKeyIsNoop(t *testing.T) {
	m := NewOrderedMap[int]()
	m.Set("a", 1)
	m.Delete("ghost")
	assert.Equal(t, 1, m.Len())
}

func TestOrderedMap_Len(t *testing.T) {
	m := NewOrderedMap[string]()
	assert.Equal(t, 0, m.Len())
	m.Set("x", "y")
	assert.Equal(t, 1, m.Len())
}

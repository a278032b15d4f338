package feed

import (
	"testing"

	"github.com/go-playground/assert/v2"
)


func TestCallbackList(t *testing.T) {
	callbacks := NewCallbackList[func() int]()
	a := callbacks.Add(func() int { return 1 })
	b := callbacks.Add(func() int { return 2 })
	callbacks.Add(func() int { return 3 })

	values := func() []int {
		out := []int{}
		for _, callback := range callbacks.Get() {
			out = append(out, callback())
		}
		return out
	}
	assert.Equal(t, values(), []int{1, 2, 3})

	// a list taken before a removal is not affected by it
	before := callbacks.Get()
	callbacks.Remove(b)
	assert.Equal(t, len(before), 3)
	assert.Equal(t, values(), []int{1, 3})

	callbacks.Remove(b)
	callbacks.Remove(a)
	assert.Equal(t, values(), []int{3})
}

func TestLocalId(t *testing.T) {
	a := NewLocalId()
	b := NewLocalId()
	assert.Equal(t, IsLocalId(a), true)
	assert.Equal(t, IsLocalId("s1"), false)
	assert.Equal(t, a == b, false)
	// ulids are ordered by create time
	assert.Equal(t, a < b, true)
}

func TestIdOrder(t *testing.T) {
	a := NewId()
	for i := 0; i < 1024; i++ {
		b := NewId()
		assert.Equal(t, a.String() < b.String(), true)
		a = b
	}
}

package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreDirtyFlag(t *testing.T) {
	s := NewStore(map[string]any{})
	_, ok := s.Get(false)
	assert.True(t, ok, "a new store starts dirty")

	s.Update("k", 1)
	data, ok := s.Get(false)
	assert.True(t, ok)
	assert.Equal(t, map[string]any{"k": 1}, data)

	data, ok = s.Get(false)
	assert.False(t, ok, "second read without update must report no change")
	assert.Nil(t, data)
}

func TestStoreUpdateSameValueCountsAsChange(t *testing.T) {
	s := NewStore(map[string]any{"k": 1})
	s.Get(false)

	s.Update("k", 1)
	_, ok := s.Get(false)
	assert.True(t, ok)
}

func TestStoreForcedRead(t *testing.T) {
	s := NewStore(map[string]any{"k": "v"})
	s.Get(false)

	data, ok := s.Get(true)
	assert.True(t, ok)
	assert.Equal(t, "v", data["k"])
	assert.False(t, s.Dirty())
}

func TestStoreEmptiness(t *testing.T) {
	tests := []struct {
		name    string
		initial map[string]any
		empty   bool
	}{
		{"never fetched", nil, true},
		{"fetched but empty", map[string]any{}, false},
		{"with data", map[string]any{"a": 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.empty, NewStore(tt.initial).IsEmpty())
		})
	}
}

func TestStoreResetAndUpdate(t *testing.T) {
	s := NewStore(nil)
	s.Update("a", 1)
	assert.False(t, s.IsEmpty())
	s.Get(false)

	s.Reset()
	assert.True(t, s.IsEmpty())
	assert.True(t, s.Dirty())

	s.Replace(map[string]any{"b": 2})
	data, ok := s.Get(false)
	assert.True(t, ok)
	assert.Equal(t, map[string]any{"b": 2}, data)
}

package ui

// Store holds the data a panel renders and remembers whether it changed since
// the last read.
//
// Every Update counts as a change, even when the value is the same. Panels rely
// on this to re-render after an update that only mutated a value in place.
type Store struct {
	data  map[string]any
	dirty bool
}

// NewStore returns a dirty store holding initial. A nil initial means the data
// was never fetched.
func NewStore(initial map[string]any) *Store {
	return &Store{data: initial, dirty: true}
}

// Update sets key to val and marks the store dirty.
func (s *Store) Update(key string, val any) {
	if s.data == nil {
		s.data = make(map[string]any)
	}
	s.data[key] = val
	s.dirty = true
}

// Replace swaps the whole data set and marks the store dirty.
func (s *Store) Replace(data map[string]any) {
	if data == nil {
		data = make(map[string]any)
	}
	s.data = data
	s.dirty = true
}

// Get returns the data when the store is dirty or force is set, and clears the
// dirty flag. Otherwise ok is false and nothing needs rendering.
func (s *Store) Get(force bool) (data map[string]any, ok bool) {
	if !s.dirty && !force {
		return nil, false
	}
	s.dirty = false
	return s.data, true
}

// Peek returns the data without consuming the change.
func (s *Store) Peek() map[string]any { return s.data }

// Dirty reports whether the data changed since the last Get.
func (s *Store) Dirty() bool { return s.dirty }

// IsEmpty reports whether the store was never filled or was reset.
func (s *Store) IsEmpty() bool { return s.data == nil }

// Reset drops the data and marks the store dirty, so the next forced render
// clears the stale content.
func (s *Store) Reset() {
	s.data = nil
	s.dirty = true
}

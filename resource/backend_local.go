package resource

import (
	"sync"
)

// slots is the in-memory handle store behind Table. Freed handles are
// reused LIFO; handle N lives at entries[N-1].
type slots struct {
	entries  []entry
	freeList []Handle
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value       any
	typeID      TypeID
	borrowCount uint32
	valid       bool
}

func newSlots() *slots {
	return &slots{
		entries:  make([]entry, 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

func (s *slots) create(typeID TypeID, value any) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	e := entry{typeID: typeID, value: value, valid: true}

	if n := len(s.freeList); n > 0 {
		handle := s.freeList[n-1]
		s.freeList = s.freeList[:n-1]
		s.entries[handle-1] = e
		return handle, nil
	}

	s.entries = append(s.entries, e)
	return Handle(len(s.entries)), nil
}

// lookup must be called with mu held.
func (s *slots) lookup(handle Handle) *entry {
	if handle == 0 || int(handle) > len(s.entries) {
		return nil
	}
	e := &s.entries[handle-1]
	if !e.valid {
		return nil
	}
	return e
}

func (s *slots) get(handle Handle) (any, TypeID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e := s.lookup(handle)
	if e == nil {
		return nil, 0, false
	}
	return e.value, e.typeID, true
}

func (s *slots) drop(handle Handle) (any, TypeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(handle)
	if e == nil {
		return nil, 0, ErrInvalidHandle
	}
	if e.borrowCount > 0 {
		return nil, 0, ErrOutstandingBorrow
	}

	value, typeID := e.value, e.typeID
	*e = entry{}
	s.freeList = append(s.freeList, handle)
	return value, typeID, nil
}

func (s *slots) borrow(handle Handle) (any, TypeID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(handle)
	if e == nil {
		return nil, 0, false
	}
	e.borrowCount++
	return e.value, e.typeID, true
}

func (s *slots) returnBorrow(handle Handle) (TypeID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(handle)
	if e == nil || e.borrowCount == 0 {
		return 0, false
	}
	e.borrowCount--
	return e.typeID, true
}

func (s *slots) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries) - len(s.freeList)
}

func (s *slots) handles() []Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Handle, 0, len(s.entries)-len(s.freeList))
	for i := range s.entries {
		if s.entries[i].valid {
			out = append(out, Handle(i+1))
		}
	}
	return out
}

// close invalidates every entry and returns the values that were live.
func (s *slots) close() []any {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var live []any
	for i := range s.entries {
		if s.entries[i].valid {
			live = append(live, s.entries[i].value)
		}
	}
	s.entries = nil
	s.freeList = nil
	return live
}

package handle

import (
	"errors"
	"sync"
)

var (
	ErrClosed            = errors.New("handle table closed")
	ErrInvalidHandle     = errors.New("invalid handle")
	ErrOutstandingBorrow = errors.New("cannot drop handle with outstanding borrows")
)

// store is the slot storage behind a Table. Slots are reused through a free list.
type store struct {
	entries  []entry
	freeList []Handle
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value       any
	typeID      uint32
	borrowCount uint32
	valid       bool
}

func newStore() *store {
	return &store{
		entries:  make([]entry, 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

func (s *store) create(typeID uint32, value any) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	e := entry{
		typeID: typeID,
		value:  value,
		valid:  true,
	}

	if len(s.freeList) > 0 {
		h := s.freeList[len(s.freeList)-1]
		s.freeList = s.freeList[:len(s.freeList)-1]
		s.entries[h-1] = e
		return h, nil
	}

	s.entries = append(s.entries, e)
	return Handle(len(s.entries)), nil
}

// lookup returns the live entry for h. Caller holds s.mu.
func (s *store) lookup(h Handle) (*entry, bool) {
	if h == 0 || int(h) > len(s.entries) {
		return nil, false
	}
	e := &s.entries[h-1]
	if !e.valid {
		return nil, false
	}
	return e, true
}

func (s *store) get(h Handle) (any, uint32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.lookup(h)
	if !ok {
		return nil, 0, false
	}
	return e.value, e.typeID, true
}

func (s *store) drop(h Handle) (any, uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(h)
	if !ok {
		return nil, 0, ErrInvalidHandle
	}
	if e.borrowCount > 0 {
		return nil, 0, ErrOutstandingBorrow
	}

	value, typeID := e.value, e.typeID
	*e = entry{}
	s.freeList = append(s.freeList, h)
	return value, typeID, nil
}

func (s *store) borrow(h Handle) (any, uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(h)
	if !ok {
		return nil, 0, false
	}
	e.borrowCount++
	return e.value, e.typeID, true
}

func (s *store) returnBorrow(h Handle) (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(h)
	if !ok || e.borrowCount == 0 {
		return 0, false
	}
	e.borrowCount--
	return e.typeID, true
}

func (s *store) borrows(h Handle) uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.lookup(h)
	if !ok {
		return 0
	}
	return e.borrowCount
}

func (s *store) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	for i := range s.entries {
		if s.entries[i].valid {
			if d, ok := s.entries[i].value.(Dropper); ok {
				d.Drop()
			}
		}
	}

	s.entries = nil
	s.freeList = nil
}

func (s *store) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.entries {
		if e.valid {
			count++
		}
	}
	return count
}

func (s *store) each(fn func(Handle, uint32, any) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i, e := range s.entries {
		if e.valid {
			if !fn(Handle(i+1), e.typeID, e.value) {
				break
			}
		}
	}
}

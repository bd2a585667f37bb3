package handle

import (
	"sync"
)

// Table maps handles to host-owned values and tracks open borrows.
// All methods are safe for concurrent use.
type Table struct {
	store     *store
	observers map[uint64]Observer
	nextObs   uint64
	obsMu     sync.RWMutex
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		store:     newStore(),
		observers: make(map[uint64]Observer),
	}
}

// Insert adds a value and returns its handle.
func (t *Table) Insert(typeID uint32, value any) (Handle, error) {
	h, err := t.store.create(typeID, value)
	if err != nil {
		return 0, err
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: h,
		TypeID: typeID,
		Value:  value,
	})

	return h, nil
}

// Get retrieves a value by handle.
func (t *Table) Get(h Handle) (any, bool) {
	v, _, ok := t.store.get(h)
	return v, ok
}

// GetTyped retrieves a value only if it matches the expected type.
func (t *Table) GetTyped(h Handle, typeID uint32) (any, bool) {
	v, actual, ok := t.store.get(h)
	if !ok || actual != typeID {
		return nil, false
	}
	return v, true
}

// Borrow opens a borrow on h and returns its value. Every successful Borrow
// must be paired with ReturnBorrow; Remove is refused while borrows are open.
func (t *Table) Borrow(h Handle) (any, bool) {
	v, typeID, ok := t.store.borrow(h)
	if !ok {
		return nil, false
	}

	t.notify(Event{
		Type:   EventBorrowed,
		Handle: h,
		TypeID: typeID,
		Value:  v,
	})

	return v, true
}

// ReturnBorrow closes one borrow on h.
func (t *Table) ReturnBorrow(h Handle) bool {
	typeID, ok := t.store.returnBorrow(h)
	if !ok {
		return false
	}

	t.notify(Event{
		Type:   EventBorrowReturned,
		Handle: h,
		TypeID: typeID,
	})

	return true
}

// Borrows returns the number of open borrows on h.
func (t *Table) Borrows(h Handle) uint32 {
	return t.store.borrows(h)
}

// Remove drops h and returns its value. It fails with ErrInvalidHandle for
// dead handles and ErrOutstandingBorrow while borrows are open.
func (t *Table) Remove(h Handle) (any, error) {
	value, typeID, err := t.store.drop(h)
	if err != nil {
		return nil, err
	}

	if d, ok := value.(Dropper); ok {
		d.Drop()
	}

	t.notify(Event{
		Type:   EventDropped,
		Handle: h,
		TypeID: typeID,
		Value:  value,
	})

	return value, nil
}

// Subscribe adds an observer for lifecycle events and returns a function
// that removes it.
func (t *Table) Subscribe(o Observer) (cancel func()) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()

	id := t.nextObs
	t.nextObs++
	t.observers[id] = o

	return func() {
		t.obsMu.Lock()
		defer t.obsMu.Unlock()
		delete(t.observers, id)
	}
}

// Len returns the number of live handles.
func (t *Table) Len() int {
	return t.store.len()
}

// Each iterates over live handles until fn returns false.
func (t *Table) Each(fn func(Handle, uint32, any) bool) {
	t.store.each(fn)
}

// Clear drops every handle without open borrows.
func (t *Table) Clear() {
	// Collect handles first to avoid holding the store lock during Remove
	var handles []Handle
	t.store.each(func(h Handle, _ uint32, _ any) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		_, _ = t.Remove(h)
	}
}

// Close releases all values and stops accepting inserts.
func (t *Table) Close() error {
	t.store.close()
	return nil
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnHandleEvent(e)
	}
}

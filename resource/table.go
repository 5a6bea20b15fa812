package resource

import (
	"sync"
)

// Table maps handles to host values with type tags, borrow tracking and
// lifecycle observers. Safe for concurrent use.
type Table struct {
	store     *slots
	observers []observerEntry
	nextObsID uint64
	obsMu     sync.RWMutex
}

type observerEntry struct {
	o  Observer
	id uint64
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{store: newSlots()}
}

// Insert adds a value and returns its handle, or 0 once the table is closed.
func (t *Table) Insert(typeID TypeID, value any) Handle {
	handle, err := t.store.create(typeID, value)
	if err != nil {
		return 0
	}
	t.notify(Event{Type: EventCreated, Handle: handle, TypeID: typeID, Value: value})
	return handle
}

// Get retrieves a value by handle.
func (t *Table) Get(handle Handle) (any, bool) {
	v, _, ok := t.store.get(handle)
	return v, ok
}

// GetTyped retrieves a value only if it was inserted with typeID.
func (t *Table) GetTyped(handle Handle, typeID TypeID) (any, bool) {
	v, actual, ok := t.store.get(handle)
	if !ok || actual != typeID {
		return nil, false
	}
	return v, true
}

// Remove drops a resource, calling its Drop method if it has one.
func (t *Table) Remove(handle Handle) (any, error) {
	value, typeID, err := t.store.drop(handle)
	if err != nil {
		return nil, err
	}
	if d, ok := value.(Dropper); ok {
		d.Drop()
	}
	t.notify(Event{Type: EventDropped, Handle: handle, TypeID: typeID, Value: value})
	return value, nil
}

// Borrow pins a handle so Remove fails until ReturnBorrow is called.
func (t *Table) Borrow(handle Handle) (any, bool) {
	value, typeID, ok := t.store.borrow(handle)
	if ok {
		t.notify(Event{Type: EventBorrowed, Handle: handle, TypeID: typeID, Value: value})
	}
	return value, ok
}

// ReturnBorrow releases one borrow taken with Borrow.
func (t *Table) ReturnBorrow(handle Handle) bool {
	typeID, ok := t.store.returnBorrow(handle)
	if ok {
		t.notify(Event{Type: EventBorrowReturned, Handle: handle, TypeID: typeID})
	}
	return ok
}

// Subscribe adds an observer for lifecycle events and returns a function
// that removes it.
func (t *Table) Subscribe(o Observer) (unsubscribe func()) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.nextObsID++
	id := t.nextObsID
	t.observers = append(t.observers, observerEntry{o: o, id: id})
	return func() { t.unsubscribe(id) }
}

func (t *Table) unsubscribe(id uint64) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs.id == id {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of active resources.
func (t *Table) Len() int {
	return t.store.len()
}

// Handles returns the live handles in ascending order.
func (t *Table) Handles() []Handle {
	return t.store.handles()
}

// Clear drops all resources that are not borrowed.
func (t *Table) Clear() {
	for _, h := range t.store.handles() {
		_, _ = t.Remove(h)
	}
}

// Close drops every resource, borrowed or not, and rejects further inserts.
func (t *Table) Close() error {
	for _, v := range t.store.close() {
		if d, ok := v.(Dropper); ok {
			d.Drop()
		}
	}
	return nil
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, obs := range t.observers {
		obs.o.OnResourceEvent(e)
	}
}

// GetAs retrieves a handle's value asserted to T.
func GetAs[T any](t *Table, handle Handle) (T, bool) {
	var zero T
	v, ok := t.Get(handle)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

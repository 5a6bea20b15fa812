// Package resource provides the handle table behind boundary resources.
//
// Streams, sockets and pollables never cross the boundary as values; callers
// hold integer handles and the host resolves them through a Table.
//
// # Handle Table
//
//	table := resource.NewTable()
//
//	handle := table.Insert(typeID, stream)
//	value, ok := table.Get(handle)
//	value, err := table.Remove(handle) // calls Drop if implemented
//
// Handle 0 is never issued. Freed handles are reused, so holders must not
// keep a handle after dropping it.
//
// # Borrows
//
// A borrowed handle cannot be removed until every borrow is returned:
//
//	v, ok := table.Borrow(h)
//	defer table.ReturnBorrow(h)
//
// # Observers
//
//	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//		log.Printf("%s %d", e.Type, e.Handle)
//	}))
package resource

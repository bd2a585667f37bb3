// Package handle provides the handle table behind a managed host.
//
// Host-owned values (strings, receiver objects) are stored in a Table and
// referenced by small integer handles. Native code never sees the values
// directly; it borrows them for the duration of a call.
//
// # Lifecycle
//
//	insert  - the host creates a value and owns the handle
//	borrow  - native code opens a read-only view (handle stays valid)
//	return  - the view is released
//	remove  - the host deletes the value; refused while views are open
//
// # Handle Table
//
//	table := handle.NewTable()
//
//	h, err := table.Insert(typeID, value)
//
//	v, ok := table.Borrow(h)
//	defer table.ReturnBorrow(h)
//
//	_, err = table.Remove(h)
//
// Handle 0 is never issued and always refers to nothing, which lets callers
// use it as a null reference.
//
// # Observers
//
// Subscribe to lifecycle events, e.g. to log handle traffic:
//
//	cancel := table.Subscribe(handle.ObserverFunc(func(e handle.Event) {
//	    log.Printf("handle %d %s", e.Handle, e.Type)
//	}))
//	defer cancel()
package handle

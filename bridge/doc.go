// Package bridge adapts the string transform to foreign hosts.
//
// A host exposes its strings through the Env interface, whose methods follow
// the JNI string functions:
//
//	GetStringUTFChars      borrow a read-only view of host bytes
//	ReleaseStringUTFChars  return the view
//	NewStringUTF           allocate a new host-owned string
//
// A Function performs one call: it borrows the input view, releases it on
// every exit path, decodes it with the host Codec, runs the transform, and
// hands a newly allocated string back to the host. The input reference is
// never retained and the result never aliases it.
//
//	out := bridge.ProcessObdData(env, this, in)
//
// # Strictness
//
// The default Function adds no checks of its own: a null reference goes
// straight to the host binding, and malformed host bytes decode to U+FFFD.
// WithStrict(true) rejects null input with ErrNullHandle and fails on
// malformed bytes instead.
//
// # Encodings
//
// JNI hosts use ModifiedUTF8 (the default); WebAssembly canonical ABI hosts
// use UTF8.
package bridge

// Package errors provides structured error types for the bridge.
//
// Errors are categorized by Phase (where in a bridge call the error occurred)
// and Kind (error category). The Error type carries the failing host operation,
// the string encoding involved, and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseHost, errors.KindStaleHandle).
//		Op("GetStringUTFChars").
//		Value(ref).
//		Detail("handle was deleted").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NullHandle(errors.PhaseHost, "GetStringUTFChars")
//	err := errors.InvalidEncoding(errors.PhaseDecode, "modified-utf-8", 3, data)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors

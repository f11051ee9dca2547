// Package ffi is the validated Go side of the bridge's C contract.
//
// Surface mirrors the twelve exported functions one to one, using nil-able
// Go types in place of C pointers: *string for const char*, *wire.Transform
// for the transform pointer, []*string for a string array (a nil slice is a
// NULL array, a nil element a NULL entry) and []float32 for a float array.
// cmd/livebridge-native converts C arguments to these types and calls the
// surface; everything else, including validation, lives here so it can be
// tested without cgo.
//
// No call panics or returns a Go error across the boundary. Invalid
// arguments are logged and rejected with ReturnError; registry errors are
// mapped to return codes; panics are recovered and logged.
package ffi

// Command livebridge-native builds the bridge as a C shared library:
//
//	go build -buildmode=c-shared -o liblivebridge.so ./cmd/livebridge-native
//
// Every entry point returns LB_OK (0), LB_ERROR (-1), LB_NOT_CONNECTED (-2) or
// LB_NOT_INITIALIZED (-3), except LB_GetVersion and LB_Shutdown. The register,
// update and remove calls are declared void in the host header; the int they
// return here is an extension, and a caller declaring them void stays
// compatible since the result travels in the return register and is ignored.
// Strings and arrays are read during the call and never retained.
package main

/*
#include <stddef.h>

typedef struct LB_Transform {
	double position[3];
	double rotation[4];
	double scale[3];
} LB_Transform;

_Static_assert(sizeof(LB_Transform) == 80, "LB_Transform must be 80 bytes");
_Static_assert(offsetof(LB_Transform, position) == 0, "position at offset 0");
_Static_assert(offsetof(LB_Transform, rotation) == 24, "rotation at offset 24");
_Static_assert(offsetof(LB_Transform, scale) == 56, "scale at offset 56");

enum {
	LB_OK = 0,
	LB_ERROR = -1,
	LB_NOT_CONNECTED = -2,
	LB_NOT_INITIALIZED = -3,
};
*/
import "C"

import (
	"unsafe"

	"github.com/c360/livebridge/ffi"
	"github.com/c360/livebridge/wire"
)

func goString(p *C.char) *string {
	if p == nil {
		return nil
	}
	s := C.GoString(p)
	return &s
}

// goStrings copies a C string array. Negative counts are left for the surface
// to reject.
func goStrings(arr **C.char, count C.int) []*string {
	var entries []*C.char
	if arr != nil && count > 0 {
		entries = unsafe.Slice(arr, int(count))
	}
	return copyNames(arr != nil, len(entries), func(i int) *string { return goString(entries[i]) })
}

func goFloats(arr *C.float, count C.int) []float32 {
	if arr == nil || count <= 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(arr)), int(count))
}

// goTransform copies the caller's struct. The layout asserts above match
// wire.Transform.
func goTransform(t *C.LB_Transform) *wire.Transform {
	if t == nil {
		return nil
	}
	w := *(*wire.Transform)(unsafe.Pointer(t))
	return &w
}

func code(c ffi.ReturnCode) C.int { return C.int(c) }

// call runs fn against the surface, or reports LB_ERROR when the runtime
// could not be built.
func call(fn func(*ffi.Surface) ffi.ReturnCode) C.int {
	s := surface()
	if s == nil {
		return C.int(C.LB_ERROR)
	}
	return code(fn(s))
}

//export LB_Initialize
func LB_Initialize(providerName *C.char) C.int {
	name := goString(providerName)
	return call(func(s *ffi.Surface) ffi.ReturnCode { return s.Initialize(name) })
}

//export LB_Shutdown
func LB_Shutdown() {
	if s := surface(); s != nil {
		s.Shutdown()
	}
}

//export LB_GetVersion
func LB_GetVersion() C.int {
	return C.int(ffi.APIVersion)
}

//export LB_IsConnected
func LB_IsConnected() C.int {
	s := surface()
	if s == nil {
		return C.int(C.LB_NOT_INITIALIZED)
	}
	return code(s.IsConnected())
}

//export LB_RegisterObject
func LB_RegisterObject(name *C.char) C.int {
	n := goString(name)
	return call(func(s *ffi.Surface) ffi.ReturnCode { return s.RegisterObject(n) })
}

//export LB_RegisterObjectWithProperties
func LB_RegisterObjectWithProperties(name *C.char, propertyNames **C.char, count C.int) C.int {
	n, props := goString(name), goStrings(propertyNames, count)
	return call(func(s *ffi.Surface) ffi.ReturnCode {
		return s.RegisterObjectWithProperties(n, props, int32(count))
	})
}

//export LB_UpdateObject
func LB_UpdateObject(name *C.char, transform *C.LB_Transform) C.int {
	n, t := goString(name), goTransform(transform)
	return call(func(s *ffi.Surface) ffi.ReturnCode { return s.UpdateObject(n, t) })
}

//export LB_UpdateObjectWithProperties
func LB_UpdateObjectWithProperties(name *C.char, transform *C.LB_Transform, propertyValues *C.float, count C.int) C.int {
	n, t, vals := goString(name), goTransform(transform), goFloats(propertyValues, count)
	return call(func(s *ffi.Surface) ffi.ReturnCode {
		return s.UpdateObjectWithProperties(n, t, vals, int32(count))
	})
}

//export LB_RemoveObject
func LB_RemoveObject(name *C.char) C.int {
	n := goString(name)
	return call(func(s *ffi.Surface) ffi.ReturnCode { return s.RemoveObject(n) })
}

//export LB_RegisterDataSubject
func LB_RegisterDataSubject(name *C.char, propertyNames **C.char, count C.int) C.int {
	n, props := goString(name), goStrings(propertyNames, count)
	return call(func(s *ffi.Surface) ffi.ReturnCode {
		return s.RegisterDataSubject(n, props, int32(count))
	})
}

//export LB_UpdateDataSubject
func LB_UpdateDataSubject(name *C.char, propertyNames **C.char, propertyValues *C.float, count C.int) C.int {
	n, props, vals := goString(name), goStrings(propertyNames, count), goFloats(propertyValues, count)
	return call(func(s *ffi.Surface) ffi.ReturnCode {
		return s.UpdateDataSubject(n, props, vals, int32(count))
	})
}

//export LB_RemoveDataSubject
func LB_RemoveDataSubject(name *C.char) C.int {
	n := goString(name)
	return call(func(s *ffi.Surface) ffi.ReturnCode { return s.RemoveDataSubject(n) })
}

func main() {}

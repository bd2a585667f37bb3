//go:build jni

// Package jni binds the bridge to a Java VM through the JNI C interface.
//
// Building it needs cgo and jni.h on the include path; see the root package
// documentation. The package is excluded from default builds by the "jni"
// build tag.
package jni

/*
#include <jni.h>
#include <stdlib.h>

static const char* obd_get_utf_chars(JNIEnv* env, jstring s) {
	return (*env)->GetStringUTFChars(env, s, NULL);
}

static jsize obd_get_utf_length(JNIEnv* env, jstring s) {
	return (*env)->GetStringUTFLength(env, s);
}

static void obd_release_utf_chars(JNIEnv* env, jstring s, const char* chars) {
	(*env)->ReleaseStringUTFChars(env, s, chars);
}

static jstring obd_new_string_utf(JNIEnv* env, const char* chars) {
	return (*env)->NewStringUTF(env, chars);
}

static jboolean obd_exception_check(JNIEnv* env) {
	return (*env)->ExceptionCheck(env);
}
*/
import "C"

import (
	"unsafe"

	"github.com/wippyai/obd-bridge/bridge"
	"github.com/wippyai/obd-bridge/errors"
)

// Env adapts a JNIEnv pointer to bridge.Env. A JNIEnv is bound to the thread
// the VM called in on; an Env must not outlive the native call it was built for.
type Env struct {
	env *C.JNIEnv
}

var _ bridge.Env = Env{}

// Wrap builds an Env from the JNIEnv* received by a native method.
func Wrap(env unsafe.Pointer) Env {
	return Env{env: (*C.JNIEnv)(env)}
}

// Ref converts a jobject/jstring received from the VM into a bridge.Ref.
func Ref(obj unsafe.Pointer) bridge.Ref {
	return bridge.Ref(uintptr(obj))
}

// Object converts a bridge.Ref back into a local reference for the VM.
func Object(ref bridge.Ref) unsafe.Pointer {
	return unsafe.Pointer(uintptr(ref)) //nolint:govet // JNI local references are VM-owned, not Go pointers
}

func jstring(ref bridge.Ref) C.jstring {
	return C.jstring(Object(ref))
}

// GetStringUTFChars returns a zero-copy view over the VM's modified UTF-8
// bytes. The view is only valid until ReleaseStringUTFChars.
func (e Env) GetStringUTFChars(s bridge.Ref) ([]byte, error) {
	js := jstring(s)
	chars := C.obd_get_utf_chars(e.env, js)
	if chars == nil {
		return nil, errors.New(errors.PhaseHost, errors.KindAllocation).
			Op("GetStringUTFChars").
			Value(uint64(s)).
			Detail("VM returned NULL").
			Build()
	}
	n := int(C.obd_get_utf_length(e.env, js))
	// Include the NUL terminator in the capacity so an empty view still
	// carries the pointer ReleaseStringUTFChars needs.
	return unsafe.Slice((*byte)(unsafe.Pointer(chars)), n+1)[:n], nil
}

// ReleaseStringUTFChars hands the view back to the VM.
func (e Env) ReleaseStringUTFChars(s bridge.Ref, chars []byte) {
	if cap(chars) == 0 {
		return
	}
	C.obd_release_utf_chars(e.env, jstring(s), (*C.char)(unsafe.Pointer(unsafe.SliceData(chars))))
}

// NewStringUTF creates a java.lang.String from modified UTF-8 bytes. The
// returned local reference belongs to the VM.
func (e Env) NewStringUTF(chars []byte) (bridge.Ref, error) {
	// NewStringUTF reads a NUL-terminated C string.
	buf := (*C.char)(C.malloc(C.size_t(len(chars) + 1)))
	defer C.free(unsafe.Pointer(buf))

	dst := unsafe.Slice((*byte)(unsafe.Pointer(buf)), len(chars)+1)
	copy(dst, chars)
	dst[len(chars)] = 0

	js := C.obd_new_string_utf(e.env, buf)
	if js == nil || C.obd_exception_check(e.env) == C.JNI_TRUE {
		return 0, errors.New(errors.PhaseEncode, errors.KindAllocation).
			Op("NewStringUTF").
			Detail("VM returned NULL or raised an exception").
			Build()
	}
	return Ref(unsafe.Pointer(js)), nil
}

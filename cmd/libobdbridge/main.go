//go:build jni

// Command libobdbridge builds the JNI shared library loaded by the Android app:
//
//	go build -tags jni -buildmode=c-shared -o libobdbridge.so ./cmd/libobdbridge
//
// On load it reads OBDBRIDGE_* environment configuration once.
package main

/*
#include <jni.h>
*/
import "C"

import (
	"unsafe"

	"github.com/wippyai/obd-bridge/bridge"
	"github.com/wippyai/obd-bridge/internal/config"
	"github.com/wippyai/obd-bridge/jni"
)

func init() {
	cfg, err := config.Load()
	if err != nil {
		return
	}
	log, err := cfg.Logger()
	if err != nil {
		return
	}
	bridge.SetDefault(bridge.New(
		bridge.WithStrict(cfg.Strict),
		bridge.WithLogger(log),
	))
}

//export Java_com_example_car_1app_obd_ObdProcessor_processObdData
func Java_com_example_car_1app_obd_ObdProcessor_processObdData(env *C.JNIEnv, this C.jobject, data C.jstring) C.jstring {
	out := bridge.ProcessObdData(
		jni.Wrap(unsafe.Pointer(env)),
		jni.Ref(unsafe.Pointer(this)),
		jni.Ref(unsafe.Pointer(data)),
	)
	return C.jstring(jni.Object(out))
}

func main() {}

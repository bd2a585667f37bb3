// Package obdbridge exposes a single string transformation to foreign hosts.
//
// A managed host (a JVM through JNI, or a WebAssembly guest through wazero)
// hands the bridge an opaque string handle. The bridge borrows a read-only view
// of the host's bytes, decodes them with the host's string encoding, prepends a
// fixed prefix and returns a newly allocated host string. The input handle stays
// owned by the host; the result is handed over to it.
//
// # Architecture Overview
//
//	obdbridge/           Root package with the Memory and Allocator interfaces
//	├── processor/       Pure, host-agnostic transform ("Processed: " + s)
//	├── bridge/          Host adapter: Env binding, codecs, the bridge Function
//	├── mutf8/           Modified UTF-8 codec used by JNI strings
//	├── handle/          Handle table with borrow tracking
//	├── hostenv/         In-process managed host implementing bridge.Env
//	├── jni/             cgo JNIEnv adapter (build tag "jni")
//	├── wasmhost/        wazero host module for WebAssembly guests
//	├── errors/          Structured error types
//	└── cmd/             obdbridge CLI and the libobdbridge shared library
//
// # Quick Start
//
// Run the bridge against the in-process host:
//
//	host := hostenv.New()
//	defer host.Close()
//
//	in, _ := host.NewString("RPM=3000")
//	out := bridge.ProcessObdData(host, 0, in)
//
//	s, _ := host.String(out)
//	fmt.Println(s) // "Processed: RPM=3000"
//
// Or call it from a WebAssembly guest:
//
//	rt, err := wasmhost.New(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	out, err := rt.Process(ctx, "café")
//
// # Thread Safety
//
// The bridge Function is stateless and safe for concurrent use. A wasmhost
// Instance is NOT thread-safe; Runtime.Process uses a fresh instance per call.
//
// # Building the JNI library
//
// The JNI entry point needs cgo and jni.h:
//
//	CGO_CFLAGS="-I$JAVA_HOME/include -I$JAVA_HOME/include/linux" \
//	    go build -tags jni -buildmode=c-shared -o libobdbridge.so ./cmd/libobdbridge
//
// The Android NDK sysroot ships jni.h, so no extra include path is needed there.
package obdbridge

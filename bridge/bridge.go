package bridge

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/obd-bridge/errors"
	"github.com/wippyai/obd-bridge/processor"
)

// Ref is an opaque reference to a host-owned object. 0 is the null reference.
type Ref uint64

// Env is the host binding a bridge call runs against. Its methods mirror the
// JNI string functions; other hosts map their own primitives onto them.
type Env interface {
	// GetStringUTFChars returns a read-only view of the host string's bytes in
	// the host encoding. The view is valid until ReleaseStringUTFChars.
	GetStringUTFChars(s Ref) ([]byte, error)

	// ReleaseStringUTFChars releases a view obtained from GetStringUTFChars.
	ReleaseStringUTFChars(s Ref, chars []byte)

	// NewStringUTF creates a new host string from bytes in the host encoding.
	// Ownership of the returned reference passes to the host.
	NewStringUTF(chars []byte) (Ref, error)
}

// ErrNullHandle is returned in strict mode when the input reference is null.
var ErrNullHandle = errors.NullHandle(errors.PhaseHost, "ProcessObdData")

// Function marshals a host string through a Transformer and back.
// It holds no per-call state and is safe for concurrent use.
type Function struct {
	transform processor.Transformer
	codec     Codec
	log       *zap.Logger
	observer  Observer
	strict    bool
}

// Option configures a Function.
type Option func(*Function)

// WithTransform replaces processor.Process.
func WithTransform(t processor.Transformer) Option {
	return func(f *Function) {
		if t != nil {
			f.transform = t
		}
	}
}

// WithCodec sets the host string encoding. Defaults to ModifiedUTF8.
func WithCodec(c Codec) Option {
	return func(f *Function) {
		if c != nil {
			f.codec = c
		}
	}
}

// WithStrict rejects null input references before touching the host and
// fails on malformed host bytes instead of replacing them.
func WithStrict(strict bool) Option {
	return func(f *Function) {
		f.strict = strict
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(f *Function) {
		if log != nil {
			f.log = log
		}
	}
}

// WithObserver registers a per-call observer.
func WithObserver(o Observer) Option {
	return func(f *Function) {
		if o != nil {
			f.observer = o
		}
	}
}

// New creates a Function. Without options it reproduces the reference
// behavior: modified UTF-8, no null guard, processor.Process.
func New(opts ...Option) *Function {
	f := &Function{
		transform: processor.Process,
		codec:     ModifiedUTF8,
		log:       zap.NewNop(),
		observer:  nopObserver{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Strict reports whether the null guard and strict decoding are enabled.
func (f *Function) Strict() bool {
	return f.strict
}

// Codec returns the host string encoding.
func (f *Function) Codec() Codec {
	return f.codec
}

// Call runs one bridge invocation and returns the new host string, or the
// null reference if the host binding failed. The receiver is not used.
func (f *Function) Call(env Env, this Ref, data Ref) Ref {
	ref, err := f.CallErr(env, this, data)
	if err != nil {
		f.log.Warn("bridge call failed", zap.Uint64("data", uint64(data)), zap.Error(err))
	}
	return ref
}

// CallErr is Call with the failure reported to the caller.
func (f *Function) CallErr(env Env, _ Ref, data Ref) (Ref, error) {
	start := time.Now()

	if f.strict && data == 0 {
		f.observer.ObserveCall(OutcomeNullInput, 0, time.Since(start))
		return 0, ErrNullHandle
	}

	chars, err := env.GetStringUTFChars(data)
	if err != nil {
		f.observer.ObserveCall(OutcomeHostError, 0, time.Since(start))
		return 0, errors.New(errors.PhaseHost, errors.KindInvalidData).
			Op("GetStringUTFChars").
			Cause(err).
			Build()
	}
	defer env.ReleaseStringUTFChars(data, chars)

	input, err := f.decode(chars)
	if err != nil {
		f.observer.ObserveCall(OutcomeDecodeError, len(chars), time.Since(start))
		return 0, err
	}

	out := f.transform(input)

	ref, err := env.NewStringUTF(f.codec.Encode(out))
	if err != nil {
		f.observer.ObserveCall(OutcomeEncodeError, len(chars), time.Since(start))
		return 0, errors.New(errors.PhaseEncode, errors.KindAllocation).
			Op("NewStringUTF").
			Encoding(f.codec.Name()).
			Cause(err).
			Build()
	}

	f.log.Debug("bridge call",
		zap.Uint64("data", uint64(data)),
		zap.Uint64("result", uint64(ref)),
		zap.Int("input_bytes", len(chars)))
	f.observer.ObserveCall(OutcomeOK, len(chars), time.Since(start))

	return ref, nil
}

func (f *Function) decode(chars []byte) (string, error) {
	if f.strict {
		return f.codec.Decode(chars)
	}
	return f.codec.DecodeLossy(chars), nil
}

var defaultFunction atomic.Pointer[Function]

func init() {
	defaultFunction.Store(New())
}

// Default returns the Function used by ProcessObdData.
func Default() *Function {
	return defaultFunction.Load()
}

// SetDefault replaces the Function used by ProcessObdData.
func SetDefault(f *Function) {
	if f != nil {
		defaultFunction.Store(f)
	}
}

// ProcessObdData is the bridge entry point: it returns a new host string
// holding processor.Prefix followed by the content of data.
func ProcessObdData(env Env, this Ref, data Ref) Ref {
	return Default().Call(env, this, data)
}

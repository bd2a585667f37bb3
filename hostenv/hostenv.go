// Package hostenv is an in-process managed host for the bridge.
//
// Host strings live in a handle table as modified UTF-8, the same
// representation a JVM hands to JNI code. Views returned by GetStringUTFChars
// are copies that count as borrows until released, so tests and tools can
// check that native code returned every view it acquired.
package hostenv

import (
	"go.uber.org/zap"

	"github.com/wippyai/obd-bridge/bridge"
	"github.com/wippyai/obd-bridge/errors"
	"github.com/wippyai/obd-bridge/handle"
	"github.com/wippyai/obd-bridge/mutf8"
)

// Type IDs of values stored in the host table.
const (
	TypeString uint32 = 1
	TypeObject uint32 = 2
)

type hostString struct {
	chars []byte
}

// Host is a managed host whose strings are referenced by bridge.Ref.
// It implements bridge.Env and is safe for concurrent use.
type Host struct {
	table  *handle.Table
	log    *zap.Logger
	cancel func()
}

var _ bridge.Env = (*Host)(nil)

// Option configures a Host.
type Option func(*Host)

// WithLogger logs handle lifecycle events at debug level.
func WithLogger(log *zap.Logger) Option {
	return func(h *Host) {
		if log != nil {
			h.log = log
		}
	}
}

// New creates an empty host.
func New(opts ...Option) *Host {
	h := &Host{
		table: handle.NewTable(),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.cancel = h.table.Subscribe(handle.ObserverFunc(func(e handle.Event) {
		h.log.Debug("host handle event",
			zap.Uint32("handle", uint32(e.Handle)),
			zap.Uint32("type", e.TypeID),
			zap.Stringer("event", e.Type))
	}))
	return h
}

// NewString creates a host-owned string, as managed code would.
func (h *Host) NewString(s string) (bridge.Ref, error) {
	return h.insert(TypeString, &hostString{chars: mutf8.Encode(s)})
}

// NewObject creates an opaque host object, usable as a call receiver.
func (h *Host) NewObject() (bridge.Ref, error) {
	return h.insert(TypeObject, struct{}{})
}

func (h *Host) insert(typeID uint32, v any) (bridge.Ref, error) {
	hd, err := h.table.Insert(typeID, v)
	if err != nil {
		return 0, errors.Closed(errors.PhaseHost, "host")
	}
	return bridge.Ref(hd), nil
}

// String returns the content of a host string.
func (h *Host) String(ref bridge.Ref) (string, error) {
	hs, err := h.lookup("String", ref)
	if err != nil {
		return "", err
	}
	return mutf8.Decode(hs.chars)
}

// Chars returns a copy of the stored modified UTF-8 bytes of a host string.
func (h *Host) Chars(ref bridge.Ref) ([]byte, error) {
	hs, err := h.lookup("Chars", ref)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), hs.chars...), nil
}

func (h *Host) lookup(op string, ref bridge.Ref) (*hostString, error) {
	hd, err := toHandle(op, ref)
	if err != nil {
		return nil, err
	}
	v, ok := h.table.GetTyped(hd, TypeString)
	if !ok {
		return nil, errors.StaleHandle(errors.PhaseHost, op, uint64(ref))
	}
	return v.(*hostString), nil
}

// DeleteRef releases a host reference. It fails while views are open.
func (h *Host) DeleteRef(ref bridge.Ref) error {
	hd, err := toHandle("DeleteRef", ref)
	if err != nil {
		return err
	}
	if n := h.table.Borrows(hd); n > 0 {
		return errors.Borrowed(errors.PhaseHost, "DeleteRef", uint64(ref), n)
	}
	if _, err := h.table.Remove(hd); err != nil {
		return errors.New(errors.PhaseHost, errors.KindStaleHandle).
			Op("DeleteRef").
			Value(uint64(ref)).
			Cause(err).
			Build()
	}
	return nil
}

// Outstanding returns the number of views not yet released.
func (h *Host) Outstanding() int {
	var handles []handle.Handle
	h.table.Each(func(hd handle.Handle, _ uint32, _ any) bool {
		handles = append(handles, hd)
		return true
	})
	total := 0
	for _, hd := range handles {
		total += int(h.table.Borrows(hd))
	}
	return total
}

// Len returns the number of live host references.
func (h *Host) Len() int {
	return h.table.Len()
}

// Close releases every reference.
func (h *Host) Close() error {
	h.cancel()
	return h.table.Close()
}

// GetStringUTFChars implements bridge.Env.
func (h *Host) GetStringUTFChars(s bridge.Ref) ([]byte, error) {
	hd, err := toHandle("GetStringUTFChars", s)
	if err != nil {
		return nil, err
	}
	v, ok := h.table.Borrow(hd)
	if !ok {
		return nil, errors.StaleHandle(errors.PhaseHost, "GetStringUTFChars", uint64(s))
	}
	hs, ok := v.(*hostString)
	if !ok {
		h.table.ReturnBorrow(hd)
		return nil, errors.New(errors.PhaseHost, errors.KindInvalidInput).
			Op("GetStringUTFChars").
			Value(uint64(s)).
			Detail("reference is not a string").
			Build()
	}
	return append([]byte(nil), hs.chars...), nil
}

// ReleaseStringUTFChars implements bridge.Env.
func (h *Host) ReleaseStringUTFChars(s bridge.Ref, _ []byte) {
	if !h.table.ReturnBorrow(handle.Handle(s)) {
		h.log.Warn("release of unknown view", zap.Uint64("ref", uint64(s)))
	}
}

// NewStringUTF implements bridge.Env.
func (h *Host) NewStringUTF(chars []byte) (bridge.Ref, error) {
	if !mutf8.Valid(chars) {
		_, err := mutf8.Decode(chars)
		return 0, err
	}
	return h.insert(TypeString, &hostString{chars: append([]byte(nil), chars...)})
}

func toHandle(op string, ref bridge.Ref) (handle.Handle, error) {
	if ref == 0 {
		return 0, errors.NullHandle(errors.PhaseHost, op)
	}
	if ref > bridge.Ref(^uint32(0)) {
		return 0, errors.StaleHandle(errors.PhaseHost, op, uint64(ref))
	}
	return handle.Handle(ref), nil
}

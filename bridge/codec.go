package bridge

import (
	"strings"
	"unicode/utf8"

	"github.com/wippyai/obd-bridge/errors"
	"github.com/wippyai/obd-bridge/mutf8"
)

// Codec converts between a host's native string bytes and Go strings.
type Codec interface {
	// Name identifies the encoding in errors and logs.
	Name() string

	// Decode converts host bytes, failing on malformed input.
	Decode(b []byte) (string, error)

	// DecodeLossy converts host bytes, replacing malformed input with U+FFFD.
	DecodeLossy(b []byte) string

	// Encode converts a Go string to newly allocated host bytes.
	Encode(s string) []byte
}

// ModifiedUTF8 is the JNI string encoding.
var ModifiedUTF8 Codec = modifiedUTF8{}

// UTF8 is standard UTF-8, the canonical ABI string encoding.
var UTF8 Codec = utf8Codec{}

type modifiedUTF8 struct{}

func (modifiedUTF8) Name() string                    { return mutf8.Name }
func (modifiedUTF8) Decode(b []byte) (string, error) { return mutf8.Decode(b) }
func (modifiedUTF8) DecodeLossy(b []byte) string     { return mutf8.DecodeLossy(b) }
func (modifiedUTF8) Encode(s string) []byte          { return mutf8.Encode(s) }

type utf8Codec struct{}

func (utf8Codec) Name() string { return "utf-8" }

func (utf8Codec) Decode(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", errors.InvalidEncoding(errors.PhaseDecode, "utf-8", invalidOffset(b), b)
	}
	return string(b), nil
}

func (utf8Codec) DecodeLossy(b []byte) string {
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}

func (utf8Codec) Encode(s string) []byte {
	return []byte(s)
}

func invalidOffset(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(b)
}

// Package mutf8 implements the modified UTF-8 encoding used by JNI strings.
//
// Modified UTF-8 differs from standard UTF-8 in two ways:
//
//   - U+0000 is written as the two-byte sequence C0 80, so encoded text never
//     contains a zero byte and can travel as a NUL-terminated C string.
//   - Code points above U+FFFF are written as a UTF-16 surrogate pair, each
//     surrogate encoded as its own three-byte sequence.
//
// Decode is strict and reports the offset of the first malformed sequence.
// DecodeLossy replaces malformed sequences with U+FFFD.
package mutf8

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/wippyai/obd-bridge/errors"
)

// Name identifies the encoding in errors and logs.
const Name = "modified-utf-8"

const (
	surrSelf = 0x10000
	surrHigh = 0xD800
	surrLow  = 0xDC00
	surrEnd  = 0xE000
)

// EncodedLen returns the number of bytes Encode produces for s.
func EncodedLen(s string) int {
	n := 0
	for _, r := range s {
		n += runeLen(r)
	}
	return n
}

func runeLen(r rune) int {
	switch {
	case r == 0:
		return 2
	case r < 0x80:
		return 1
	case r < 0x800:
		return 2
	case r < surrSelf:
		return 3
	default:
		return 6
	}
}

// Encode returns the modified UTF-8 form of s.
// Invalid UTF-8 in s is encoded as U+FFFD.
func Encode(s string) []byte {
	return AppendEncode(make([]byte, 0, EncodedLen(s)), s)
}

// AppendEncode appends the modified UTF-8 form of s to dst.
func AppendEncode(dst []byte, s string) []byte {
	for _, r := range s {
		switch {
		case r == 0:
			dst = append(dst, 0xC0, 0x80)
		case r < 0x80:
			dst = append(dst, byte(r))
		case r < 0x800:
			dst = append(dst, 0xC0|byte(r>>6), 0x80|byte(r)&0x3F)
		case r < surrSelf:
			dst = append3(dst, r)
		default:
			hi, lo := utf16.EncodeRune(r)
			dst = append3(dst, hi)
			dst = append3(dst, lo)
		}
	}
	return dst
}

func append3(dst []byte, r rune) []byte {
	return append(dst, 0xE0|byte(r>>12), 0x80|byte(r>>6)&0x3F, 0x80|byte(r)&0x3F)
}

// Decode converts modified UTF-8 to a Go string.
func Decode(b []byte) (string, error) {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); {
		r, size := next(b, i)
		if r < 0 {
			return "", errors.InvalidEncoding(errors.PhaseDecode, Name, i, b[i:])
		}
		out = utf8.AppendRune(out, r)
		i += size
	}
	return string(out), nil
}

// DecodeLossy converts modified UTF-8 to a Go string, replacing each malformed
// sequence with U+FFFD. A raw zero byte is accepted as U+0000.
func DecodeLossy(b []byte) string {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); {
		if b[i] == 0 {
			out = append(out, 0)
			i++
			continue
		}
		r, size := next(b, i)
		if r < 0 {
			r = utf8.RuneError
		}
		out = utf8.AppendRune(out, r)
		i += size
	}
	return string(out)
}

// Valid reports whether b is well-formed modified UTF-8.
func Valid(b []byte) bool {
	for i := 0; i < len(b); {
		r, size := next(b, i)
		if r < 0 {
			return false
		}
		i += size
	}
	return true
}

// next decodes the sequence starting at b[i]. It returns r < 0 with the
// number of bytes to skip when the sequence is malformed.
func next(b []byte, i int) (rune, int) {
	c := b[i]
	switch {
	case c == 0:
		return -1, 1
	case c < 0x80:
		return rune(c), 1
	case c&0xE0 == 0xC0:
		if i+1 >= len(b) || !cont(b[i+1]) {
			return -1, 1
		}
		r := rune(c&0x1F)<<6 | rune(b[i+1]&0x3F)
		if r != 0 && r < 0x80 {
			return -1, 2
		}
		return r, 2
	case c&0xF0 == 0xE0:
		r, ok := three(b, i)
		if !ok {
			return -1, 1
		}
		switch {
		case r < 0x800:
			return -1, 3
		case r >= surrHigh && r < surrLow:
			if lo, ok := three(b, i+3); ok && lo >= surrLow && lo < surrEnd {
				return utf16.DecodeRune(r, lo), 6
			}
			return -1, 3
		case r >= surrLow && r < surrEnd:
			return -1, 3
		}
		return r, 3
	default:
		// four-byte UTF-8 forms and stray continuation bytes
		return -1, 1
	}
}

func three(b []byte, i int) (rune, bool) {
	if i+2 >= len(b) || b[i]&0xF0 != 0xE0 || !cont(b[i+1]) || !cont(b[i+2]) {
		return 0, false
	}
	return rune(b[i]&0x0F)<<12 | rune(b[i+1]&0x3F)<<6 | rune(b[i+2]&0x3F), true
}

func cont(c byte) bool {
	return c&0xC0 == 0x80
}

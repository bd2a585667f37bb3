package mutf8

import (
	"bytes"
	"errors"
	"testing"

	bridgeerrors "github.com/wippyai/obd-bridge/errors"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []byte
	}{
		{"empty", "", []byte{}},
		{"ascii", "RPM=3000", []byte("RPM=3000")},
		{"two byte", "café", []byte{'c', 'a', 'f', 0xC3, 0xA9}},
		{"three byte", "€", []byte{0xE2, 0x82, 0xAC}},
		{"nul", "a\x00b", []byte{'a', 0xC0, 0x80, 'b'}},
		{"supplementary", "😀", []byte{0xED, 0xA0, 0xBD, 0xED, 0xB8, 0x80}},
		{"invalid utf8 input", "\xff", []byte{0xEF, 0xBF, 0xBD}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Encode(tt.in)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Encode(%q) = % x, want % x", tt.in, got, tt.want)
			}
			if n := EncodedLen(tt.in); n != len(tt.want) {
				t.Errorf("EncodedLen(%q) = %d, want %d", tt.in, n, len(tt.want))
			}
			if bytes.IndexByte(got, 0) >= 0 {
				t.Errorf("Encode(%q) contains a zero byte", tt.in)
			}
		})
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"RPM=3000",
		"café",
		"Processed: SPEED=120km/h",
		"nul\x00inside",
		"emoji 😀 and 🚗",
		"日本語",
	}

	for _, in := range inputs {
		enc := Encode(in)
		if !Valid(enc) {
			t.Errorf("Valid(Encode(%q)) = false", in)
		}
		got, err := Decode(enc)
		if err != nil {
			t.Errorf("Decode(Encode(%q)) error: %v", in, err)
			continue
		}
		if got != in {
			t.Errorf("round trip %q -> %q", in, got)
		}
		if lossy := DecodeLossy(enc); lossy != in {
			t.Errorf("lossy round trip %q -> %q", in, lossy)
		}
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		in     []byte
		offset int
		lossy  string
	}{
		{"raw nul", []byte{'a', 0x00}, 1, "a\x00"},
		{"truncated two byte", []byte{'a', 0xC3}, 1, "a�"},
		{"truncated three byte", []byte{0xE2, 0x82}, 0, "��"},
		{"overlong ascii", []byte{0xC1, 0x81}, 0, "�"},
		{"four byte form", []byte{0xF0, 0x9F, 0x98, 0x80}, 0, "����"},
		{"lone high surrogate", []byte{0xED, 0xA0, 0xBD, 'x'}, 0, "�x"},
		{"lone low surrogate", []byte{0xED, 0xB8, 0x80}, 0, "�"},
		{"stray continuation", []byte{'o', 'k', 0x80}, 2, "ok�"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Valid(tt.in) {
				t.Errorf("Valid(% x) = true", tt.in)
			}

			_, err := Decode(tt.in)
			if err == nil {
				t.Fatalf("Decode(% x) succeeded", tt.in)
			}
			var be *bridgeerrors.Error
			if !errors.As(err, &be) {
				t.Fatalf("error %T is not *errors.Error", err)
			}
			if be.Kind != bridgeerrors.KindInvalidEncoding || be.Encoding != Name {
				t.Errorf("got kind=%s encoding=%s", be.Kind, be.Encoding)
			}
			if be.Value != tt.offset {
				t.Errorf("offset = %v, want %d", be.Value, tt.offset)
			}

			if got := DecodeLossy(tt.in); got != tt.lossy {
				t.Errorf("DecodeLossy(% x) = %q, want %q", tt.in, got, tt.lossy)
			}
		})
	}
}

func TestAppendEncode(t *testing.T) {
	dst := []byte("Processed: ")
	got := AppendEncode(dst, "x\x00")
	want := []byte{'P', 'r', 'o', 'c', 'e', 's', 's', 'e', 'd', ':', ' ', 'x', 0xC0, 0x80}
	if !bytes.Equal(got, want) {
		t.Errorf("AppendEncode = % x, want % x", got, want)
	}
}

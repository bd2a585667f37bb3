// Package processor holds the host-agnostic string transform behind the bridge.
//
// Nothing here knows about handles, encodings or foreign hosts; adapters in
// package bridge marshal host strings into Go strings and call Process.
package processor

// Prefix is prepended to every input.
const Prefix = "Processed: "

// Transformer maps a decoded host string to the string handed back to the host.
type Transformer func(string) string

// Process returns Prefix followed by s, unchanged.
func Process(s string) string {
	return Prefix + s
}

// WithPrefix returns a Transformer using a different prefix.
func WithPrefix(prefix string) Transformer {
	return func(s string) string {
		return prefix + s
	}
}

package common

import "strings"

// WipeByteArray overwrites b with zeros. It is used for passwords read from
// the terminal. A nil slice is ignored.
func WipeByteArray(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}

// IsBlank reports whether s contains nothing but whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

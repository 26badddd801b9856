// Package encoding provides text handling for save names and archive entries.
package encoding

import (
	"bytes"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName normalizes a save or archive entry name for case-insensitive
// lookup. Names are NFC-composed and case-folded, backslashes become forward
// slashes and surrounding whitespace and slashes are trimmed, so that
// "Caves\Deep " and "caves/deep" address the same entry.
func NormalizeName(name string) string {
	name = norm.NFC.String(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimSpace(name)
	name = strings.Trim(name, "/")
	// Casers keep state, so each call gets its own.
	return cases.Fold().String(name)
}

// ValidName reports whether a name is usable as a save key after
// normalization: non-empty, no NUL bytes and no ".." path elements.
func ValidName(name string) bool {
	n := NormalizeName(name)
	if n == "" || strings.ContainsRune(n, 0) {
		return false
	}
	for _, part := range strings.Split(n, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}

// TrimNullBytes removes trailing null bytes from a byte slice.
func TrimNullBytes(data []byte) []byte {
	return bytes.TrimRight(data, "\x00")
}

// CString reads a null-terminated string from the start of data and returns
// it with the number of bytes consumed including the terminator.
// ok is false when no terminator is present.
func CString(data []byte) (s string, n int, ok bool) {
	end := bytes.IndexByte(data, 0)
	if end < 0 {
		return "", 0, false
	}
	return string(data[:end]), end + 1, true
}

// FixedString converts s to a fixed-size null-padded byte array,
// truncating if needed.
func FixedString(s string, size int) []byte {
	result := make([]byte, size)
	copy(result, s)
	return result
}

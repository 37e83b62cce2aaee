package domain

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const MaxPrincipalLen = 128

// Principal identifies a caller. It is opaque: the registry only compares
// principals for equality.
type Principal string

func (p Principal) String() string {
	return string(p)
}

// Validate rejects empty, oversized, or whitespace-containing principals.
func (p Principal) Validate() error {
	if p == "" {
		return fmt.Errorf("%w: principal is required", ErrInvalidInput)
	}
	if len(p) > MaxPrincipalLen {
		return fmt.Errorf("%w: principal exceeds %d bytes", ErrInvalidInput, MaxPrincipalLen)
	}
	if !storableText(string(p)) {
		return fmt.Errorf("%w: principal must be valid UTF-8 without NUL bytes", ErrInvalidInput)
	}
	if strings.IndexFunc(string(p), unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: principal must not contain whitespace", ErrInvalidInput)
	}
	return nil
}

// storableText reports whether s can be stored in every backend. PostgreSQL
// text columns reject NUL bytes and invalid UTF-8.
func storableText(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}

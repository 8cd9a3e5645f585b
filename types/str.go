package types

import "fmt"

// StrValue is a MOO string: Unicode text, compared case-insensitively by
// the language but displayed and stored with its original case.
type StrValue struct {
	text string
}

// NewStr wraps a Go string as a MOO string value.
func NewStr(s string) StrValue {
	return StrValue{text: s}
}

// String renders the MOO literal form (double-quoted).
func (s StrValue) String() string {
	return fmt.Sprintf("%q", s.text)
}

// Type reports TYPE_STR.
func (s StrValue) Type() TypeCode {
	return TYPE_STR
}

// Truthy reports whether the string is non-empty.
func (s StrValue) Truthy() bool {
	return s.text != ""
}

// Equal performs exact (case-sensitive) comparison; callers wanting MOO's
// case-insensitive `==` go through the evaluator's comparison helper instead.
func (s StrValue) Equal(other Value) bool {
	o, ok := other.(StrValue)
	return ok && s.text == o.text
}

// Value returns the underlying Go string.
func (s StrValue) Value() string {
	return s.text
}

package types

import "strings"

// ListValue is a MOO list: an ordered, immutable-from-the-caller's-view
// sequence of Values. Every mutator (Set/Append/InsertAt/DeleteAt/Slice)
// returns a new ListValue rather than mutating in place, so a verb can hand
// a list to another verb without aliasing surprises. Indices throughout
// this type are 1-based, matching MOO source syntax.
type ListValue struct {
	elems []Value
}

// NewList wraps a Go slice as a MOO list. The caller's backing array is
// adopted directly (not copied); pass a fresh slice if that matters.
func NewList(elements []Value) ListValue {
	return ListValue{elems: elements}
}

// NewEmptyList returns the empty list {}.
func NewEmptyList() ListValue {
	return ListValue{elems: []Value{}}
}

// clampRange narrows a 1-based [start, end] pair to the valid span over n
// elements, per the "end < start denotes an empty splice" rule shared by
// list and string range operations.
func clampRange(start, end, n int) (int, int) {
	if start < 1 {
		start = 1
	}
	if end > n {
		end = n
	}
	return start, end
}

// String renders the MOO literal form: {a, b, c}.
func (l ListValue) String() string {
	if len(l.elems) == 0 {
		return "{}"
	}
	parts := make([]string, len(l.elems))
	for i, elem := range l.elems {
		parts[i] = elem.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Type reports TYPE_LIST.
func (l ListValue) Type() TypeCode {
	return TYPE_LIST
}

// Truthy reports whether the list is non-empty.
func (l ListValue) Truthy() bool {
	return len(l.elems) > 0
}

// Equal performs an element-wise deep comparison against another list.
func (l ListValue) Equal(other Value) bool {
	o, ok := other.(ListValue)
	if !ok || len(l.elems) != len(o.elems) {
		return false
	}
	for i, e := range l.elems {
		if !e.Equal(o.elems[i]) {
			return false
		}
	}
	return true
}

// Len reports the number of elements.
func (l ListValue) Len() int {
	return len(l.elems)
}

// Get returns the 1-based index-th element, or nil if index is out of range.
func (l ListValue) Get(index int) Value {
	if index < 1 || index > len(l.elems) {
		return nil
	}
	return l.elems[index-1]
}

// Set returns a copy of the list with the 1-based index-th element replaced.
// An out-of-range index returns the receiver unchanged.
func (l ListValue) Set(index int, value Value) ListValue {
	if index < 1 || index > len(l.elems) {
		return l
	}
	next := append([]Value(nil), l.elems...)
	next[index-1] = value
	return ListValue{elems: next}
}

// Append returns a copy of the list with value added at the end.
func (l ListValue) Append(value Value) ListValue {
	next := make([]Value, len(l.elems)+1)
	copy(next, l.elems)
	next[len(l.elems)] = value
	return ListValue{elems: next}
}

// Elements exposes the backing slice for read-only iteration. Callers must
// not mutate the result.
func (l ListValue) Elements() []Value {
	return l.elems
}

// InsertAt returns a copy of the list with value inserted before the
// 1-based index position (index may be len+1 to append).
func (l ListValue) InsertAt(index int, value Value) ListValue {
	if index < 1 {
		index = 1
	}
	if index > len(l.elems)+1 {
		index = len(l.elems) + 1
	}
	pos := index - 1
	next := make([]Value, len(l.elems)+1)
	copy(next[:pos], l.elems[:pos])
	next[pos] = value
	copy(next[pos+1:], l.elems[pos:])
	return ListValue{elems: next}
}

// DeleteAt returns a copy of the list with the 1-based index-th element
// removed. An out-of-range index returns the receiver unchanged.
func (l ListValue) DeleteAt(index int) ListValue {
	if index < 1 || index > len(l.elems) {
		return l
	}
	pos := index - 1
	next := make([]Value, len(l.elems)-1)
	copy(next[:pos], l.elems[:pos])
	copy(next[pos:], l.elems[pos+1:])
	return ListValue{elems: next}
}

// Slice returns the 1-based inclusive [start, end] subrange as a new list.
// A range with end < start yields an empty list.
func (l ListValue) Slice(start, end int) ListValue {
	start, end = clampRange(start, end, len(l.elems))
	if start > end {
		return ListValue{elems: []Value{}}
	}
	next := make([]Value, end-start+1)
	copy(next, l.elems[start-1:end])
	return ListValue{elems: next}
}

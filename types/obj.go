package types

import "fmt"

// Sentinel object numbers recognized throughout the evaluator and store.
const (
	NOTHING      = ObjID(-1) // no object
	AMBIGUOUS    = ObjID(-2) // ambiguous match among several candidates
	FAILED_MATCH = ObjID(-3) // no candidate matched
)

// objKind distinguishes a plain object reference from an anonymous one;
// kept as its own type rather than a bare bool so the zero value (ordinary
// object) reads clearly at call sites that build an ObjValue by hand.
type objKind bool

const (
	kindOrdinary  objKind = false
	kindAnonymous objKind = true
)

// ObjValue is a MOO object reference: an object number plus whether it
// names an anonymous object (ToastStunt's lightweight, GC'd object kind,
// type code TYPE_ANON) rather than an ordinary, permanently-numbered one.
type ObjValue struct {
	id   ObjID
	kind objKind
}

// NewObj wraps an ordinary object number.
func NewObj(id ObjID) ObjValue {
	return ObjValue{id: id, kind: kindOrdinary}
}

// NewAnon wraps an anonymous-object number.
func NewAnon(id ObjID) ObjValue {
	return ObjValue{id: id, kind: kindAnonymous}
}

// String renders the MOO literal form, e.g. "#17".
func (o ObjValue) String() string {
	return fmt.Sprintf("#%d", o.id)
}

// Type reports TYPE_ANON for an anonymous object, TYPE_OBJ otherwise.
func (o ObjValue) Type() TypeCode {
	if o.kind == kindAnonymous {
		return TYPE_ANON
	}
	return TYPE_OBJ
}

// IsAnonymous reports whether this reference is to an anonymous object.
func (o ObjValue) IsAnonymous() bool {
	return o.kind == kindAnonymous
}

// Truthy is always false: object references carry no truth value in MOO.
func (o ObjValue) Truthy() bool {
	return false
}

// Equal compares object numbers; anonymity is not part of identity here,
// matching MOO's `==` which only ever compares the numeric reference.
func (o ObjValue) Equal(other Value) bool {
	o2, ok := other.(ObjValue)
	return ok && o.id == o2.id
}

// ID returns the wrapped object number.
func (o ObjValue) ID() ObjID {
	return o.id
}

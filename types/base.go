package types

// ObjID is a signed object number. Most values are indices into the object
// table; a handful of negative values are reserved sentinels rather than
// real objects.
type ObjID int64

const (
	ObjNothing     ObjID = -1 // no object
	ObjAmbiguous   ObjID = -2 // multiple objects matched a name
	ObjFailedMatch ObjID = -3 // no object matched a name
)

// ErrorCode is one of the fixed set of MOO error values (E_TYPE, E_DIV, ...).
type ErrorCode int

const (
	E_NONE ErrorCode = iota
	E_TYPE
	E_DIV
	E_PERM
	E_PROPNF
	E_VERBNF
	E_VARNF
	E_INVIND
	E_RECMOVE
	E_MAXREC
	E_RANGE
	E_ARGS
	E_NACC
	E_INVARG
	E_QUOTA
	E_FLOAT
	E_FILE
	E_EXEC
)

// errorInfo bundles an error code's two textual forms so String() and
// Message() can share one table instead of maintaining parallel switches.
type errorInfo struct {
	name    string // the "E_WHATEVER" literal, as it appears in MOO source
	message string // the human-readable description
}

var errorTable = map[ErrorCode]errorInfo{
	E_NONE:    {"E_NONE", "No error"},
	E_TYPE:    {"E_TYPE", "Type mismatch"},
	E_DIV:     {"E_DIV", "Division by zero"},
	E_PERM:    {"E_PERM", "Permission denied"},
	E_PROPNF:  {"E_PROPNF", "Property not found"},
	E_VERBNF:  {"E_VERBNF", "Verb not found"},
	E_VARNF:   {"E_VARNF", "Variable not found"},
	E_INVIND:  {"E_INVIND", "Invalid indirection"},
	E_RECMOVE: {"E_RECMOVE", "Recursive move"},
	E_MAXREC:  {"E_MAXREC", "Too many verb calls"},
	E_RANGE:   {"E_RANGE", "Range error"},
	E_ARGS:    {"E_ARGS", "Incorrect number of arguments"},
	E_NACC:    {"E_NACC", "Move refused by destination"},
	E_INVARG:  {"E_INVARG", "Invalid argument"},
	E_QUOTA:   {"E_QUOTA", "Resource limit exceeded"},
	E_FLOAT:   {"E_FLOAT", "Floating-point arithmetic error"},
	E_FILE:    {"E_FILE", "File system error"},
	E_EXEC:    {"E_EXEC", "Exec error"},
}

// nameToError is built once from errorTable rather than hand-duplicated.
var nameToError = func() map[string]ErrorCode {
	m := make(map[string]ErrorCode, len(errorTable))
	for code, info := range errorTable {
		m[info.name] = code
	}
	return m
}()

// String renders the error's MOO literal name, e.g. "E_PERM".
func (e ErrorCode) String() string {
	if info, ok := errorTable[e]; ok {
		return info.name
	}
	return "E_UNKNOWN"
}

// Message returns the human-readable LambdaMOO/ToastStunt-compatible
// description for an error code.
func (e ErrorCode) Message() string {
	if info, ok := errorTable[e]; ok {
		return info.message
	}
	return "Unknown error"
}

// ErrorFromString parses a literal like "E_PERM" back into its ErrorCode.
func ErrorFromString(s string) (ErrorCode, bool) {
	code, ok := nameToError[s]
	return code, ok
}

// Value is the interface every MOO value variant implements.
type Value interface {
	Type() TypeCode
	String() string   // MOO literal representation
	Equal(Value) bool // per-variant equality (StrValue compares case-sensitively)
	Truthy() bool     // MOO truthiness rule for this variant
}

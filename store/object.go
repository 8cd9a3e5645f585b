package store

import (
	"loom/parser"
	"loom/types"
)

// Object is a single database object. Every cross-object reference is an
// ObjID rather than a Go pointer, matching LambdaMOO's on-disk object
// graph and keeping the whole tree serializable without pointer-fixup.
type Object struct {
	ID       types.ObjID
	Name     string
	Owner    types.ObjID
	Parents  []types.ObjID
	Children []types.ObjID
	Location types.ObjID
	Contents []types.ObjID
	Flags    ObjectFlags

	Properties    map[string]*Property
	PropDefsCount int      // properties defined directly on this object (not inherited)
	PropOrder     []string // read order, used for deterministic name resolution
	Verbs         map[string]*Verb
	VerbList      []*Verb // ordered for verb-code indexing (verb_code(), set_verb_code())

	Recycled  bool
	Anonymous bool

	// ChparentChildren marks children attached via chparent() rather than
	// create(); only those need property-conflict checks on redefinition.
	ChparentChildren map[types.ObjID]bool

	// AnonymousChildren tracks anonymous objects spawned from this parent,
	// invalidated together when the parent hierarchy is edited.
	AnonymousChildren []types.ObjID
}

// Property is a single property slot on an object.
type Property struct {
	Name    string
	Value   types.Value
	Owner   types.ObjID
	Perms   PropertyPerms
	Clear   bool // true: value is inherited from the parent chain
	Defined bool // true: added here via add_property, not merely inherited
}

// Verb is a single verb slot on an object.
type Verb struct {
	Name    string
	Names   []string // aliases; index 0 is the primary name
	Owner   types.ObjID
	Perms   VerbPerms
	ArgSpec VerbArgs
	Code    []string     // source lines, as set_verb_code() left them
	Program *VerbProgram // parsed AST, filled in lazily on first call

	// BytecodeCache holds a *vm.Program once the bytecode VM has compiled
	// this verb. Declared as any to avoid a store<->vm import cycle; it is
	// a runtime cache only and is never persisted.
	BytecodeCache any
}

// VerbProgram holds a verb's parsed statement list.
type VerbProgram struct {
	Statements []parser.Stmt
}

// ObjectFlags are the per-object permission and lifecycle bits.
type ObjectFlags uint32

const (
	FlagUser       ObjectFlags = 1 << 0  // player object
	FlagProgrammer ObjectFlags = 1 << 1  // may write/edit verb code
	FlagWizard     ObjectFlags = 1 << 2  // bypasses permission checks
	FlagRead       ObjectFlags = 1 << 4  // object is world-readable
	FlagWrite      ObjectFlags = 1 << 5  // object is world-writable
	FlagFertile    ObjectFlags = 1 << 7  // usable as a parent via create()/chparent()
	FlagAnonymous  ObjectFlags = 1 << 8  // eligible for garbage collection
	FlagInvalid    ObjectFlags = 1 << 9  // slot invalidated, pending reuse
	FlagRecycled   ObjectFlags = 1 << 10 // slot recycled, ID not yet reassigned
)

// bitset is satisfied by every flag/permission type in this file, letting
// Has/Set/Clear be written once instead of three times over.
type bitset interface {
	~uint8 | ~uint32
}

func hasBit[T bitset](value, bit T) bool { return value&bit != 0 }
func setBit[T bitset](value, bit T) T    { return value | bit }
func clearBit[T bitset](value, bit T) T  { return value &^ bit }

func (f ObjectFlags) Has(flag ObjectFlags) bool          { return hasBit(f, flag) }
func (f ObjectFlags) Set(flag ObjectFlags) ObjectFlags   { return setBit(f, flag) }
func (f ObjectFlags) Clear(flag ObjectFlags) ObjectFlags { return clearBit(f, flag) }

// PropertyPerms are the r/w/c permission bits on a single property.
type PropertyPerms uint8

const (
	PropRead  PropertyPerms = 1 << 0
	PropWrite PropertyPerms = 1 << 1
	PropChown PropertyPerms = 1 << 2
)

func (p PropertyPerms) Has(perm PropertyPerms) bool { return hasBit(p, perm) }

// String renders permissions in LambdaMOO's canonical letter order, e.g. "rwc".
func (p PropertyPerms) String() string {
	return renderFlagLetters(p, propPermLetters)
}

var propPermLetters = []flagLetter[PropertyPerms]{
	{PropRead, 'r'},
	{PropWrite, 'w'},
	{PropChown, 'c'},
}

// VerbPerms are the r/w/x/d permission bits on a single verb.
type VerbPerms uint8

const (
	VerbRead    VerbPerms = 1 << 0
	VerbWrite   VerbPerms = 1 << 1
	VerbExecute VerbPerms = 1 << 2
	VerbDebug   VerbPerms = 1 << 3
)

func (p VerbPerms) Has(perm VerbPerms) bool { return hasBit(p, perm) }

// String renders permissions in LambdaMOO's canonical letter order, e.g. "rxd".
func (p VerbPerms) String() string {
	return renderFlagLetters(p, verbPermLetters)
}

var verbPermLetters = []flagLetter[VerbPerms]{
	{VerbRead, 'r'},
	{VerbWrite, 'w'},
	{VerbExecute, 'x'},
	{VerbDebug, 'd'},
}

// flagLetter pairs a single permission bit with the letter it prints as.
type flagLetter[T bitset] struct {
	bit    T
	letter byte
}

// renderFlagLetters builds a permission string by testing each bit in
// order and appending its letter when set, shared by PropertyPerms and
// VerbPerms so the two don't duplicate the same if-chain.
func renderFlagLetters[T bitset](value T, letters []flagLetter[T]) string {
	buf := make([]byte, 0, len(letters))
	for _, fl := range letters {
		if hasBit(value, fl.bit) {
			buf = append(buf, fl.letter)
		}
	}
	return string(buf)
}

// VerbArgs is a verb's dobj/prep/iobj argument specifier triple.
type VerbArgs struct {
	This string // "this", "none", "any"
	Prep string // preposition spec, or "none"/"any"
	That string // "this", "none", "any"
}

// NewObject builds an empty object owned by owner, located nowhere, with
// no parents, properties, or verbs.
func NewObject(id types.ObjID, owner types.ObjID) *Object {
	return &Object{
		ID:               id,
		Owner:            owner,
		Parents:          []types.ObjID{},
		Children:         []types.ObjID{},
		Contents:         []types.ObjID{},
		Location:         types.ObjNothing,
		Properties:       make(map[string]*Property),
		Verbs:            make(map[string]*Verb),
		Flags:            0, // neither readable nor writable until granted
		ChparentChildren: make(map[types.ObjID]bool),
	}
}

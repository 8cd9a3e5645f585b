package store

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"loom/parser"
	"loom/types"
	"os"
)

// Snapshot is a serializable image of the entire world: every object,
// the player set, and the allocation bookkeeping needed to resume
// exactly where the previous run left off. It replaces the legacy
// LambdaMOO text database format (explicitly out of core scope) while
// keeping the same contract: round-trip every value exactly.
//
// Property values are carried as their MOO literal text
// (the same representation toliteral() produces) rather than as raw
// Go structs, since most Value implementations keep their fields
// unexported. That literal form is already required to round-trip
// exactly per the language's own invariants, so reusing it here avoids
// a second, parallel encoding of every value kind.
type Snapshot struct {
	Objects     []ObjectSnapshot
	MaxObjID    types.ObjID
	HighWaterID types.ObjID
	RecycledIDs []types.ObjID
}

// ObjectSnapshot is the serializable form of an Object.
type ObjectSnapshot struct {
	ID                types.ObjID
	Name              string
	Owner             types.ObjID
	Parents           []types.ObjID
	Children          []types.ObjID
	Location          types.ObjID
	Contents          []types.ObjID
	Flags             ObjectFlags
	Properties        []PropertySnapshot
	PropDefsCount     int
	PropOrder         []string
	Verbs             []VerbSnapshot
	Recycled          bool
	Anonymous         bool
	ChparentChildren  []types.ObjID
	AnonymousChildren []types.ObjID
}

// PropertySnapshot is the serializable form of a Property.
// ValueLiteral is empty (and Defined/Clear carry the meaning) when the
// slot has no concrete value of its own and delegates to an ancestor.
type PropertySnapshot struct {
	Name         string
	ValueLiteral string
	HasValue     bool
	Owner        types.ObjID
	Perms        PropertyPerms
	Clear        bool
	Defined      bool
}

// VerbSnapshot is the serializable form of a Verb. Compiled
// representations (Program, BytecodeCache) are not persisted — they are
// runtime caches recomputed lazily from Code on first call, exactly as
// the in-memory cache already behaves.
type VerbSnapshot struct {
	Name    string
	Names   []string
	Owner   types.ObjID
	Perms   VerbPerms
	ArgSpec VerbArgs
	Code    []string
}

// Snapshot captures the entire store as a serializable image.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{
		MaxObjID:    s.maxObj,
		HighWaterID: s.highWater,
		RecycledIDs: append([]types.ObjID{}, s.freedIDs...),
	}

	for _, obj := range s.byID {
		snap.Objects = append(snap.Objects, snapshotObject(obj))
	}
	return snap
}

func snapshotObject(obj *Object) ObjectSnapshot {
	snap := ObjectSnapshot{
		ID:                obj.ID,
		Name:              obj.Name,
		Owner:             obj.Owner,
		Parents:           append([]types.ObjID{}, obj.Parents...),
		Children:          append([]types.ObjID{}, obj.Children...),
		Location:          obj.Location,
		Contents:          append([]types.ObjID{}, obj.Contents...),
		Flags:             obj.Flags,
		PropDefsCount:     obj.PropDefsCount,
		PropOrder:         append([]string{}, obj.PropOrder...),
		Recycled:          obj.Recycled,
		Anonymous:         obj.Anonymous,
		AnonymousChildren: append([]types.ObjID{}, obj.AnonymousChildren...),
	}
	for cid, ok := range obj.ChparentChildren {
		if ok {
			snap.ChparentChildren = append(snap.ChparentChildren, cid)
		}
	}
	for _, name := range obj.PropOrder {
		p, exists := obj.Properties[name]
		if !exists {
			continue
		}
		ps := PropertySnapshot{
			Name:    p.Name,
			Owner:   p.Owner,
			Perms:   p.Perms,
			Clear:   p.Clear,
			Defined: p.Defined,
		}
		if p.Value != nil {
			ps.HasValue = true
			ps.ValueLiteral = p.Value.String()
		}
		snap.Properties = append(snap.Properties, ps)
	}
	for _, v := range obj.VerbList {
		snap.Verbs = append(snap.Verbs, VerbSnapshot{
			Name:    v.Name,
			Names:   append([]string{}, v.Names...),
			Owner:   v.Owner,
			Perms:   v.Perms,
			ArgSpec: v.ArgSpec,
			Code:    append([]string{}, v.Code...),
		})
	}
	return snap
}

// Restore rebuilds a Store from a previously captured Snapshot.
func Restore(snap *Snapshot) (*Store, error) {
	s := NewStore()
	s.maxObj = snap.MaxObjID
	s.highWater = snap.HighWaterID
	s.freedIDs = append([]types.ObjID{}, snap.RecycledIDs...)

	for _, os := range snap.Objects {
		obj, err := restoreObject(os)
		if err != nil {
			return nil, fmt.Errorf("restoring object #%d: %w", os.ID, err)
		}
		s.byID[obj.ID] = obj
	}
	return s, nil
}

func restoreObject(os ObjectSnapshot) (*Object, error) {
	obj := &Object{
		ID:                os.ID,
		Name:              os.Name,
		Owner:             os.Owner,
		Parents:           append([]types.ObjID{}, os.Parents...),
		Children:          append([]types.ObjID{}, os.Children...),
		Location:          os.Location,
		Contents:          append([]types.ObjID{}, os.Contents...),
		Flags:             os.Flags,
		Properties:        make(map[string]*Property),
		PropDefsCount:     os.PropDefsCount,
		PropOrder:         append([]string{}, os.PropOrder...),
		Verbs:             make(map[string]*Verb),
		Recycled:          os.Recycled,
		Anonymous:         os.Anonymous,
		ChparentChildren:  make(map[types.ObjID]bool),
		AnonymousChildren: append([]types.ObjID{}, os.AnonymousChildren...),
	}
	for _, cid := range os.ChparentChildren {
		obj.ChparentChildren[cid] = true
	}
	for _, ps := range os.Properties {
		p := &Property{
			Name:    ps.Name,
			Owner:   ps.Owner,
			Perms:   ps.Perms,
			Clear:   ps.Clear,
			Defined: ps.Defined,
		}
		if ps.HasValue {
			v, err := parseLiteral(ps.ValueLiteral)
			if err != nil {
				return nil, fmt.Errorf("property %s: %w", ps.Name, err)
			}
			p.Value = v
		}
		obj.Properties[ps.Name] = p
	}
	for _, vs := range os.Verbs {
		v := &Verb{
			Name:    vs.Name,
			Names:   append([]string{}, vs.Names...),
			Owner:   vs.Owner,
			Perms:   vs.Perms,
			ArgSpec: vs.ArgSpec,
			Code:    append([]string{}, vs.Code...),
		}
		obj.VerbList = append(obj.VerbList, v)
		obj.Verbs[v.Name] = v
		for _, alias := range v.Names {
			obj.Verbs[alias] = v
		}
	}
	return obj, nil
}

func parseLiteral(text string) (types.Value, error) {
	p := parser.NewParser(text)
	return p.ParseLiteral()
}

// SaveFile writes a gob-encoded Snapshot to path, atomically via a
// temp-file-then-rename so a crash mid-write never corrupts the
// previous generation.
func SaveFile(path string, snap *Snapshot) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadFile reads a gob-encoded Snapshot back from path.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap Snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}

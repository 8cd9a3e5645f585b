package types

import (
	"fmt"
	"sort"
	"strings"
)

// MooMap abstracts map storage - allows swapping implementation later
type MooMap interface {
	Len() int
	Get(key Value) (Value, bool)
	Set(key, val Value) MooMap // Returns new map (COW)
	Delete(key Value) MooMap
	Keys() []Value
	Pairs() [][2]Value // For iteration
}

// mapSlot stores a single key-value pair inside an orderedMap bucket.
type mapSlot struct {
	key Value
	val Value
}

// orderedMap is the concrete MooMap implementation backed by a Go map.
// Keys are stringified (Go maps need comparable keys); insertion order is
// tracked separately via the 'sequence' slice since Go map iteration order
// is unspecified.
type orderedMap struct {
	sequence []string           // digest strings, in insertion order
	slots    map[string]mapSlot // digest -> slot
}

// digestKey reduces a Value to a string suitable for Go map lookup, such
// that MOO-equal keys always collide to the same digest (string keys fold
// case since MOO string equality is case-insensitive).
func digestKey(v Value) string {
	if str, ok := v.(StrValue); ok {
		return fmt.Sprintf("%T:%s", v, strings.ToLower(str.Value()))
	}
	return fmt.Sprintf("%T:%s", v, v.String())
}

func (m *orderedMap) Len() int {
	return len(m.slots)
}

func (m *orderedMap) Get(k Value) (Value, bool) {
	if e, ok := m.slots[digestKey(k)]; ok {
		return e.val, true
	}
	return nil, false
}

func (m *orderedMap) Set(k, v Value) MooMap {
	digest := digestKey(k)
	newSlots := make(map[string]mapSlot, len(m.slots)+1)
	for h, e := range m.slots {
		newSlots[h] = e
	}
	newSlots[digest] = mapSlot{key: k, val: v}

	_, existed := m.slots[digest]
	newSequence := make([]string, len(m.sequence), len(m.sequence)+1)
	copy(newSequence, m.sequence)
	if !existed {
		newSequence = append(newSequence, digest)
	}

	return &orderedMap{sequence: newSequence, slots: newSlots}
}

func (m *orderedMap) Delete(k Value) MooMap {
	digest := digestKey(k)
	if _, existed := m.slots[digest]; !existed {
		return m
	}

	newSlots := make(map[string]mapSlot, len(m.slots)-1)
	for h, e := range m.slots {
		if h != digest {
			newSlots[h] = e
		}
	}

	newSequence := make([]string, 0, len(m.sequence)-1)
	for _, h := range m.sequence {
		if h != digest {
			newSequence = append(newSequence, h)
		}
	}

	return &orderedMap{sequence: newSequence, slots: newSlots}
}

func (m *orderedMap) Keys() []Value {
	keys := make([]Value, 0, len(m.sequence))
	for _, h := range m.sequence {
		keys = append(keys, m.slots[h].key)
	}
	return keys
}

func (m *orderedMap) Pairs() [][2]Value {
	pairs := make([][2]Value, 0, len(m.sequence))
	for _, h := range m.sequence {
		e := m.slots[h]
		pairs = append(pairs, [2]Value{e.key, e.val})
	}
	return pairs
}

// MapValue represents a MOO map
type MapValue struct {
	data MooMap
}

// NewMap creates a new map value
func NewMap(pairs [][2]Value) MapValue {
	m := &orderedMap{
		sequence: make([]string, 0, len(pairs)),
		slots:    make(map[string]mapSlot),
	}
	for _, p := range pairs {
		digest := digestKey(p[0])
		if _, existed := m.slots[digest]; !existed {
			m.sequence = append(m.sequence, digest)
		}
		m.slots[digest] = mapSlot{key: p[0], val: p[1]}
	}
	return MapValue{data: m}
}

// NewEmptyMap creates an empty map
func NewEmptyMap() MapValue {
	return MapValue{data: &orderedMap{sequence: nil, slots: make(map[string]mapSlot)}}
}

// String returns the MOO string representation
// Keys are sorted in MOO canonical order: INT < OBJ < FLOAT < ERR < STR
func (m MapValue) String() string {
	pairs := m.data.Pairs()
	if len(pairs) == 0 {
		return "[]"
	}

	// Sort pairs by key in MOO order
	sortMapPairsForOutput(pairs)

	var parts []string
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s -> %s", p[0].String(), p[1].String()))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// sortMapPairsForOutput sorts pairs by key in MOO order
func sortMapPairsForOutput(pairs [][2]Value) {
	sort.Slice(pairs, func(i, j int) bool {
		return CompareMapKeys(pairs[i][0], pairs[j][0]) < 0
	})
}

// CompareMapKeys compares two map keys in canonical MOO order.
// Order: INT (0) < OBJ (1) < FLOAT (2) < ERR (3) < STR (4).
func CompareMapKeys(a, b Value) int {
	typeOrder := func(v Value) int {
		switch v.(type) {
		case IntValue:
			return 0
		case ObjValue:
			return 1
		case FloatValue:
			return 2
		case ErrValue:
			return 3
		case StrValue:
			return 4
		default:
			return 5
		}
	}

	aOrder := typeOrder(a)
	bOrder := typeOrder(b)
	if aOrder != bOrder {
		return aOrder - bOrder
	}

	// Same type, compare values
	switch av := a.(type) {
	case IntValue:
		bv := b.(IntValue)
		if av.Val < bv.Val {
			return -1
		} else if av.Val > bv.Val {
			return 1
		}
		return 0
	case ObjValue:
		bv := b.(ObjValue)
		if av.id < bv.id {
			return -1
		} else if av.id > bv.id {
			return 1
		}
		return 0
	case FloatValue:
		bv := b.(FloatValue)
		if av.Val < bv.Val {
			return -1
		} else if av.Val > bv.Val {
			return 1
		}
		return 0
	case ErrValue:
		bv := b.(ErrValue)
		if av.code < bv.code {
			return -1
		} else if av.code > bv.code {
			return 1
		}
		return 0
	case StrValue:
		bv := b.(StrValue)
		// Case-insensitive comparison for strings
		return strings.Compare(strings.ToLower(av.text), strings.ToLower(bv.text))
	}
	return 0
}

// Type returns the MOO type
func (m MapValue) Type() TypeCode {
	return TYPE_MAP
}

// Truthy returns whether the value is truthy
// In MOO, non-empty maps are truthy
func (m MapValue) Truthy() bool {
	return m.data.Len() > 0
}

// Equal compares two values for equality (deep comparison)
func (m MapValue) Equal(other Value) bool {
	if otherMap, ok := other.(MapValue); ok {
		if m.data.Len() != otherMap.data.Len() {
			return false
		}

		// Check that all keys and values match
		pairs1 := m.data.Pairs()
		for _, p := range pairs1 {
			val, exists := otherMap.data.Get(p[0])
			if !exists {
				return false
			}
			if !p[1].Equal(val) {
				return false
			}
		}
		return true
	}
	return false
}

// Len returns the number of entries in the map
func (m MapValue) Len() int {
	return m.data.Len()
}

// Get returns the value for a key
func (m MapValue) Get(key Value) (Value, bool) {
	return m.data.Get(key)
}

// GetWithCase returns a map value with configurable string-key case handling.
// Non-string keys always use exact typed lookup semantics.
func (m MapValue) GetWithCase(key Value, caseSensitive bool) (Value, bool) {
	keyStr, isStringKey := key.(StrValue)
	if !isStringKey || !caseSensitive {
		return m.Get(key)
	}

	// Case-sensitive lookup uses stored key spellings.
	for _, existing := range m.Keys() {
		existingStr, ok := existing.(StrValue)
		if !ok {
			continue
		}
		if existingStr.Value() == keyStr.Value() {
			return m.Get(existing)
		}
	}

	return nil, false
}

// Set returns a new map with the key-value pair set (COW)
func (m MapValue) Set(key, val Value) MapValue {
	return MapValue{data: m.data.Set(key, val)}
}

// Delete returns a new map with the key removed (COW)
func (m MapValue) Delete(key Value) MapValue {
	return MapValue{data: m.data.Delete(key)}
}

// Keys returns all keys in the map
func (m MapValue) Keys() []Value {
	return m.data.Keys()
}

// Pairs returns all key-value pairs in the map
func (m MapValue) Pairs() [][2]Value {
	return m.data.Pairs()
}

// KeyPosition returns the 1-based position of a key in the map
// Returns 0 if the key is not found
func (m MapValue) KeyPosition(key Value) int64 {
	pairs := m.data.Pairs()
	for i, p := range pairs {
		if p[0].Equal(key) {
			return int64(i + 1) // 1-based index
		}
	}
	return 0 // Not found
}

// IsValidMapKey checks if a value type is valid as a map key
func IsValidMapKey(v Value) bool {
	t := v.Type()
	return t == TYPE_INT || t == TYPE_FLOAT || t == TYPE_STR || t == TYPE_OBJ || t == TYPE_ANON || t == TYPE_ERR
}

// IsValidBuiltinMapKey checks if a value is valid as a key argument to map builtins.
// Anonymous object keys are rejected by key-accepting map builtins (E_TYPE).
func IsValidBuiltinMapKey(v Value) bool {
	return IsValidMapKey(v) && v.Type() != TYPE_ANON
}

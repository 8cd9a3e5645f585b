package store

import (
	"fmt"
	"loom/types"
	"strings"
	"sync"
)

// Store is the in-memory object database backing a running world: every
// object plus the bookkeeping needed to allocate, recycle, and renumber
// IDs and to answer verb lookups along the inheritance chain.
type Store struct {
	mu          sync.RWMutex
	byID        map[types.ObjID]*Object
	maxObj      types.ObjID // highest non-anonymous ID, what max_object() reports
	highWater   types.ObjID // highest ID ever handed out, anonymous included
	freedIDs    []types.ObjID
	waifs       map[types.ObjID]map[*types.WaifValue]struct{} // live waifs, keyed by class
	cacheClears int64
	cacheMisses int64
}

// NewStore returns an empty Store with no objects allocated.
func NewStore() *Store {
	return &Store{
		byID:      make(map[types.ObjID]*Object),
		maxObj:    -1,
		highWater: -1,
	}
}

// Get returns an object by ID, or nil if it doesn't exist, was recycled,
// or has been flagged invalid.
func (s *Store) Get(id types.ObjID) *Object {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.byID[id]
	if !ok || obj.Recycled || obj.Flags.Has(FlagInvalid) {
		return nil
	}
	return obj
}

// GetUnsafe returns an object by ID without filtering recycled or invalid
// ones out, for the handful of callers (renumber, recreate) that need to
// see an object slot in any state.
func (s *Store) GetUnsafe(id types.ObjID) *Object {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.byID[id]
}

// Add inserts a freshly-created object, failing if its ID is already
// occupied. Updates the high-water and max_object() marks.
func (s *Store) Add(obj *Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[obj.ID]; exists {
		return fmt.Errorf("object #%d already exists", obj.ID)
	}
	s.byID[obj.ID] = obj

	if obj.ID > s.highWater {
		s.highWater = obj.ID
	}
	if !obj.Anonymous && obj.ID > s.maxObj {
		s.maxObj = obj.ID
	}
	return nil
}

// NextID returns the ID that the next Add should use. It never reuses a
// recycled slot on its own - LowestFreeID is for that.
func (s *Store) NextID() types.ObjID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.highWater + 1
}

// MaxObject returns the highest allocated non-anonymous ID.
func (s *Store) MaxObject() types.ObjID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxObj
}

// Valid reports whether id names a live, non-recycled object.
func (s *Store) Valid(id types.ObjID) bool {
	if id < 0 {
		return false // sentinel values (nothing, ambiguous, failed-match) are never valid
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if id > s.highWater {
		return false
	}
	obj, ok := s.byID[id]
	if !ok {
		return false
	}
	return !obj.Recycled && !obj.Flags.Has(FlagInvalid)
}

// IsRecycled reports whether id names a slot that was allocated and then
// recycled, as opposed to one that was never allocated at all.
func (s *Store) IsRecycled(id types.ObjID) bool {
	if id < 0 {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.byID[id]
	return ok && obj.Recycled
}

// anonymousWalk runs visit over rootID and every object reachable through
// Children, stopping at recycled slots and never revisiting an ID.
func (s *Store) anonymousWalk(rootID types.ObjID, visit func(obj *Object)) {
	pending := []types.ObjID{rootID}
	seen := make(map[types.ObjID]bool)

	for len(pending) > 0 {
		id := pending[0]
		pending = pending[1:]
		if seen[id] {
			continue
		}
		seen[id] = true

		obj := s.byID[id]
		if obj == nil || obj.Recycled {
			continue
		}
		visit(obj)
		pending = append(pending, obj.Children...)
	}
}

// invalidateAnonymousChildrenLocked flags every anonymous object reachable
// from rootID (its own anonymous children, then its descendants' anonymous
// children) as invalid. Caller must hold s.mu.
func (s *Store) invalidateAnonymousChildrenLocked(rootID types.ObjID) {
	s.anonymousWalk(rootID, func(obj *Object) {
		for _, childID := range obj.AnonymousChildren {
			if child := s.byID[childID]; child != nil && child.Anonymous {
				child.Flags = child.Flags.Set(FlagInvalid)
			}
		}
		obj.AnonymousChildren = nil
	})
}

// Recycle marks an object as recycled, invalidating any anonymous objects
// hanging off its descendant hierarchy in the process.
func (s *Store) Recycle(id types.ObjID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("object #%d does not exist", id)
	}
	if obj.Recycled {
		return fmt.Errorf("object #%d already recycled", id)
	}

	s.invalidateAnonymousChildrenLocked(id)

	obj.Recycled = true
	obj.Flags = obj.Flags.Set(FlagRecycled | FlagInvalid)
	s.freedIDs = append(s.freedIDs, id)
	return nil
}

// Recreate resets a recycled slot to a fresh object under a new parent and
// owner (wizard-only operation at the verb level).
func (s *Store) Recreate(id types.ObjID, parent types.ObjID, owner types.ObjID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("object #%d does not exist", id)
	}
	if !obj.Recycled {
		return fmt.Errorf("object #%d is not recycled", id)
	}

	fresh := NewObject(id, owner)
	fresh.Parents = []types.ObjID{parent}
	s.byID[id] = fresh
	return nil
}

// All returns every non-recycled object, in no particular order.
func (s *Store) All() []*Object {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Object, 0, len(s.byID))
	for _, obj := range s.byID {
		if !obj.Recycled {
			out = append(out, obj)
		}
	}
	return out
}

// Players returns the IDs of every live object with the player flag set.
func (s *Store) Players() []types.ObjID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []types.ObjID{}
	for _, obj := range s.byID {
		if !obj.Recycled && obj.Flags.Has(FlagUser) {
			out = append(out, obj.ID)
		}
	}
	return out
}

// GetAnonymousObjects returns every live anonymous object.
func (s *Store) GetAnonymousObjects() []*Object {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Object, 0)
	for _, obj := range s.byID {
		if !obj.Recycled && obj.Anonymous {
			out = append(out, obj)
		}
	}
	return out
}

// LowestFreeID returns the smallest ID that a new Add could safely reuse:
// a recycled slot first, otherwise the lowest gap in the sequence up to
// maxObj, otherwise the next sequential ID past it.
func (s *Store) LowestFreeID() types.ObjID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lowestFreed := types.ObjID(-1)
	for _, id := range s.freedIDs {
		if lowestFreed == -1 || id < lowestFreed {
			lowestFreed = id
		}
	}
	if lowestFreed != -1 {
		return lowestFreed
	}

	for id := types.ObjID(0); id <= s.maxObj; id++ {
		obj, exists := s.byID[id]
		if !exists || obj.Recycled {
			return id
		}
	}
	return s.maxObj + 1
}

// Renumber moves an object from oldID to newID and rewrites every other
// object's references to it accordingly.
func (s *Store) Renumber(oldID, newID types.ObjID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.byID[oldID]
	if !ok || obj.Recycled {
		return fmt.Errorf("object #%d does not exist", oldID)
	}
	if oldID == newID {
		return nil
	}
	if existing, exists := s.byID[newID]; exists && !existing.Recycled {
		return fmt.Errorf("object #%d already exists", newID)
	}

	s.invalidateAnonymousChildrenLocked(oldID)

	obj.ID = newID
	delete(s.byID, oldID)
	s.byID[newID] = obj

	freed := make([]types.ObjID, 0, len(s.freedIDs)+1)
	for _, id := range s.freedIDs {
		if id != newID {
			freed = append(freed, id)
		}
	}
	s.freedIDs = append(freed, oldID)

	s.rewriteReferences(oldID, newID)
	return nil
}

// rewriteReferences walks every live object after a renumber and retargets
// any field pointing at oldID to point at newID instead.
func (s *Store) rewriteReferences(oldID, newID types.ObjID) {
	for _, other := range s.byID {
		if other.Recycled {
			continue
		}
		for i, pid := range other.Parents {
			if pid == oldID {
				other.Parents[i] = newID
			}
		}
		for i, cid := range other.Children {
			if cid == oldID {
				other.Children[i] = newID
			}
		}
		if other.ChparentChildren != nil && other.ChparentChildren[oldID] {
			delete(other.ChparentChildren, oldID)
			other.ChparentChildren[newID] = true
		}
		if other.Location == oldID {
			other.Location = newID
		}
		for i, cid := range other.Contents {
			if cid == oldID {
				other.Contents[i] = newID
			}
		}
		if other.Owner == oldID {
			other.Owner = newID
		}
	}
}

// verbNameMatches reports whether searchName resolves against a MOO verb
// name pattern such as "co*nnect", where '*' marks the point past which
// typing may stop: any prefix from "co" (the required minimum) through the
// full unabbreviated spelling is accepted. A bare "*" matches everything,
// and a leading ':' (method-call spelling) is stripped before comparing.
func verbNameMatches(pattern, searchName string) bool {
	pattern = strings.ToLower(pattern)
	search := strings.ToLower(searchName)
	pattern = strings.TrimPrefix(pattern, ":")

	starAt := strings.Index(pattern, "*")
	if starAt == -1 {
		return pattern == search
	}
	if pattern == "*" {
		return true
	}

	required := pattern[:starAt]
	full := pattern[:starAt] + pattern[starAt+1:]
	return strings.HasPrefix(search, required) && strings.HasPrefix(full, search)
}

// FindVerb locates verbName on objID or the nearest ancestor that defines
// it, searching breadth-first so a closer parent always wins over a more
// distant one. Exact names, the method-call ":name" spelling, and wildcard
// aliases are all tried at each object before moving up to its parents.
func (s *Store) FindVerb(objID types.ObjID, verbName string) (*Verb, types.ObjID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[types.ObjID]bool)
	frontier := []types.ObjID{objID}

	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		if seen[id] {
			continue
		}
		seen[id] = true

		obj := s.byID[id]
		if obj == nil || obj.Recycled {
			continue
		}
		if v := s.verbOnObject(obj, verbName); v != nil {
			return v, id, nil
		}
		frontier = append(frontier, obj.Parents...)
	}
	return nil, types.ObjNothing, fmt.Errorf("verb not found: %s", verbName)
}

// verbOnObject checks a single object for verbName, trying an exact match,
// the method-call spelling, and wildcard aliases in that order.
func (s *Store) verbOnObject(obj *Object, verbName string) *Verb {
	if v, ok := obj.Verbs[verbName]; ok {
		return v
	}
	if v, ok := obj.Verbs[":"+verbName]; ok {
		return v
	}
	for _, v := range obj.Verbs {
		for _, alias := range v.Names {
			if verbNameMatches(alias, verbName) {
				return v
			}
		}
	}
	return nil
}

// RegisterWaif records a live waif under its defining class for later
// invalidation bookkeeping.
func (s *Store) RegisterWaif(classID types.ObjID, waif *types.WaifValue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.waifs == nil {
		s.waifs = make(map[types.ObjID]map[*types.WaifValue]struct{})
	}
	if s.waifs[classID] == nil {
		s.waifs[classID] = make(map[*types.WaifValue]struct{})
	}
	s.waifs[classID][waif] = struct{}{}
}

// WaifCount returns the number of live waifs across every class.
func (s *Store) WaifCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, byClass := range s.waifs {
		total += len(byClass)
	}
	return total
}

// WaifCountByClass returns the live waif count for each class that has any.
func (s *Store) WaifCountByClass() map[types.ObjID]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[types.ObjID]int)
	for classID, byClass := range s.waifs {
		out[classID] = len(byClass)
	}
	return out
}

// InvalidateAnonymousChildren flags every anonymous descendant of parentID
// as invalid; called whenever the parent hierarchy shifts underneath them
// (recycle, chparent, property add/delete, renumber).
func (s *Store) InvalidateAnonymousChildren(parentID types.ObjID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateAnonymousChildrenLocked(parentID)
}

// NoteVerbCacheClear records a verb-cache invalidation for verb_cache_stats().
func (s *Store) NoteVerbCacheClear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheClears++
	s.cacheMisses = 0 // a clear starts a fresh interval for miss accounting
}

// NoteVerbCacheMiss records a verb-cache miss for verb_cache_stats().
func (s *Store) NoteVerbCacheMiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheMisses++
}

// ConsumeVerbCacheStats returns the 17-element stats vector verb_cache_stats()
// reports and resets the interval counters. Slot 0 is a 0/1 flag for whether
// any clear happened this interval, slot 1 is the miss count; the rest are
// reserved for parity with the vector's fixed length.
func (s *Store) ConsumeVerbCacheStats() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make([]int64, 17)
	if s.cacheClears > 0 {
		stats[0] = 1
	}
	stats[1] = s.cacheMisses

	s.cacheClears = 0
	s.cacheMisses = 0
	return stats
}

// ResetMaxObject recomputes the max_object() and allocation high-water
// marks from the live object set, for use after a bulk load that didn't
// go through Add.
func (s *Store) ResetMaxObject() {
	s.mu.Lock()
	defer s.mu.Unlock()

	maxAny := types.ObjID(-1)
	maxNonAnon := types.ObjID(-1)
	for id, obj := range s.byID {
		if obj == nil || obj.Recycled {
			continue
		}
		if id > maxAny {
			maxAny = id
		}
		if !obj.Anonymous && id > maxNonAnon {
			maxNonAnon = id
		}
	}
	s.highWater = maxAny
	s.maxObj = maxNonAnon
}

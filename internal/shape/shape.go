// Package shape implements the hidden-class system described in spec.md
// §3.2 and §4.2: objects with an identical sequence of learned attributes
// converge on the same Shape, so attribute reads can be served through an
// inline cache rather than a map lookup.
package shape

import "haxby/internal/symbol"

// ID identifies a Shape within one Registry. The empty shape always has id 0.
type ID uint32

// SlotID is the index of an attribute within an object's slot vector.
type SlotID uint32

// Shape is an immutable record of an attribute layout. Once constructed a
// Shape is never mutated; new attributes produce a new (or cached) Shape
// reached through Transitions.
type Shape struct {
	ID          ID
	slots       map[symbol.Symbol]SlotID
	reverse     []symbol.Symbol // reverse[slots[s]] == s
	transitions map[symbol.Symbol]ID
}

// SlotCount returns the number of attributes this shape has learned.
func (s *Shape) SlotCount() int { return len(s.reverse) }

// Slot returns the slot assigned to sym on this shape, if any.
func (s *Shape) Slot(sym symbol.Symbol) (SlotID, bool) {
	id, ok := s.slots[sym]
	return id, ok
}

// AttributeAt returns the symbol occupying slot i, the inverse of Slot.
func (s *Shape) AttributeAt(i SlotID) (symbol.Symbol, bool) {
	if int(i) < 0 || int(i) >= len(s.reverse) {
		return 0, false
	}
	return s.reverse[i], true
}

// Registry owns every Shape allocated within one VM. It is process-wide
// (VM-wide) and shared by every object, per spec.md §2 item 2.
type Registry struct {
	shapes []*Shape
}

// NewRegistry creates a Registry seeded with the empty shape (id 0).
func NewRegistry() *Registry {
	r := &Registry{}
	r.shapes = append(r.shapes, &Shape{
		ID:          0,
		slots:       map[symbol.Symbol]SlotID{},
		reverse:     nil,
		transitions: map[symbol.Symbol]ID{},
	})
	return r
}

// Empty returns the shape with no attributes (id 0).
func (r *Registry) Empty() *Shape { return r.shapes[0] }

// ByID returns the shape with the given id. Panics on an id never issued by
// this Registry — that indicates a VM-internal bug, not a program error.
func (r *Registry) ByID(id ID) *Shape {
	return r.shapes[id]
}

// Transition implements spec.md §4.2: if sym already exists on from, returns
// (from, its slot); otherwise returns a cached or freshly minted derivative
// shape with sym appended at the next slot index.
func (r *Registry) Transition(from *Shape, sym symbol.Symbol) (*Shape, SlotID) {
	if slot, ok := from.slots[sym]; ok {
		return from, slot
	}
	if nextID, ok := from.transitions[sym]; ok {
		next := r.shapes[nextID]
		return next, next.slots[sym]
	}

	newSlot := SlotID(len(from.reverse))
	next := &Shape{
		ID:          ID(len(r.shapes)),
		slots:       make(map[symbol.Symbol]SlotID, len(from.slots)+1),
		reverse:     make([]symbol.Symbol, len(from.reverse), len(from.reverse)+1),
		transitions: map[symbol.Symbol]ID{},
	}
	for k, v := range from.slots {
		next.slots[k] = v
	}
	copy(next.reverse, from.reverse)
	next.slots[sym] = newSlot
	next.reverse = append(next.reverse, sym)

	from.transitions[sym] = next.ID
	r.shapes = append(r.shapes, next)
	return next, newSlot
}

// ResolveSlot looks up sym on shape without transitioning, per spec.md §4.2.
func (r *Registry) ResolveSlot(s *Shape, sym symbol.Symbol) (SlotID, bool) {
	slot, ok := s.slots[sym]
	return slot, ok
}

package vm

import "fmt"

// Heap holds the realm's global value slots. Every slot is a root: objects
// reachable from a slot stay alive.
type Heap struct {
	values      []Value
	nameToIndex map[string]int
}

// NewHeap creates a new heap with the specified initial capacity
func NewHeap(initialCapacity int) *Heap {
	return &Heap{
		values:      make([]Value, 0, initialCapacity),
		nameToIndex: make(map[string]int),
	}
}

// Define binds name to a slot holding v and returns the slot index.
// Rebinding an existing name overwrites its slot.
func (h *Heap) Define(name string, v Value) int {
	if idx, ok := h.nameToIndex[name]; ok {
		h.values[idx] = v
		return idx
	}
	h.values = append(h.values, v)
	idx := len(h.values) - 1
	h.nameToIndex[name] = idx
	return idx
}

// Get retrieves a value from the heap at the specified index
func (h *Heap) Get(index int) (Value, bool) {
	if index < 0 || index >= len(h.values) {
		return Undefined, false
	}
	return h.values[index], true
}

// Set stores a value in an existing slot.
func (h *Heap) Set(index int, v Value) error {
	if index < 0 || index >= len(h.values) {
		return fmt.Errorf("heap index out of range: %d", index)
	}
	h.values[index] = v
	return nil
}

// Lookup returns the value bound to name.
func (h *Heap) Lookup(name string) (Value, bool) {
	idx, ok := h.nameToIndex[name]
	if !ok {
		return Undefined, false
	}
	return h.values[idx], true
}

// IndexOf returns the slot bound to name.
func (h *Heap) IndexOf(name string) (int, bool) {
	idx, ok := h.nameToIndex[name]
	return idx, ok
}

// Size returns the number of slots.
func (h *Heap) Size() int {
	return len(h.values)
}

// Values returns a copy of all slots (for debugging)
func (h *Heap) Values() []Value {
	result := make([]Value, len(h.values))
	copy(result, h.values)
	return result
}

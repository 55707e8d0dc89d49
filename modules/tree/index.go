package tree

import (
	"errors"
	"fmt"
)

var ErrSlotOutOfRange = errors.New("slot out of range")

// Count returns the number of slots claimed by n and its descendants.
// Composites and tuples are transparent, sequences and variants claim a
// slot for themselves, empty variants claim nothing.
func Count(n *Node) int {
	switch c := n.Content.(type) {
	case *Composite:
		return countAll(c.Fields)
	case *Tuple:
		return countAll(c.Elements)
	case *Sequence:
		return 1 + countAll(c.Elements)
	case *Variant:
		return 1 + countAll(c.Fields)
	case *EmptyVariant:
		return 0
	default:
		return 1
	}
}

func countAll(nodes []*Node) int {
	total := 0
	for _, n := range nodes {
		total += Count(n)
	}
	return total
}

func (tx *Transaction) Count() int {
	return countAll(tx.Roots())
}

// Slot is a node claiming a position together with its nesting depth.
type Slot struct {
	Node  *Node
	Depth int
}

// visitFunc returns false to stop the walk.
type visitFunc func(Slot) bool

func walk(n *Node, depth int, visit visitFunc) bool {
	switch c := n.Content.(type) {
	case *Composite:
		return walkAll(c.Fields, depth, visit)
	case *Tuple:
		return walkAll(c.Elements, depth, visit)
	case *Sequence:
		if !visit(Slot{n, depth}) {
			return false
		}
		return walkAll(c.Elements, depth+1, visit)
	case *Variant:
		if !visit(Slot{n, depth}) {
			return false
		}
		return walkAll(c.Fields, depth+1, visit)
	case *EmptyVariant:
		return true
	default:
		return visit(Slot{n, depth})
	}
}

func walkAll(nodes []*Node, depth int, visit visitFunc) bool {
	for _, n := range nodes {
		if !walk(n, depth, visit) {
			return false
		}
	}
	return true
}

// Walk visits every slot of the transaction in order.
func (tx *Transaction) Walk(visit func(index int, s Slot) bool) {
	i := 0
	walkAll(tx.Roots(), 0, func(s Slot) bool {
		cont := visit(i, s)
		i++
		return cont
	})
}

func (tx *Transaction) locate(index int) (Slot, error) {
	var found Slot
	ok := false
	if index >= 0 {
		tx.Walk(func(i int, s Slot) bool {
			if i == index {
				found, ok = s, true
				return false
			}
			return true
		})
	}
	if !ok {
		return Slot{}, fmt.Errorf("%w: %d of %d", ErrSlotOutOfRange, index, tx.Count())
	}
	return found, nil
}

// Peek resolves a slot for display. The node must not be modified.
func (tx *Transaction) Peek(index int) (Slot, error) {
	return tx.locate(index)
}

// Dive resolves a slot for in place modification.
func (tx *Transaction) Dive(index int) (*Node, error) {
	s, err := tx.locate(index)
	if err != nil {
		return nil, err
	}
	return s.Node, nil
}

// Slots visits the slots of the single tree n in order, with depths
// relative to n.
func Slots(n *Node, visit func(Slot) bool) {
	walk(n, 0, visit)
}

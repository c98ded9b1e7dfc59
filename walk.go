package exprtree

import (
	"github.com/emirpasic/gods/stacks/arraystack"
)

// Walk visits e and its descendants in pre-order, following expr_refs into
// the trees they borrow. If fn returns false for a node, Walk skips that
// node's operands.
func Walk(e *Expr, fn func(*Expr) bool) {
	if e == nil {
		return
	}
	stack := arraystack.New()
	stack.Push(e)
	for !stack.Empty() {
		top, _ := stack.Pop()
		n := top.(*Expr)
		if !fn(n) {
			continue
		}
		switch n.kind {
		case KindTerminal, KindPlaceholder:
		case KindExprRef:
			stack.Push(n.Deref())
		default:
			// Push in reverse so the leftmost operand is visited first.
			for i := len(n.elems) - 1; i >= 0; i-- {
				stack.Push(n.elems[i].(*Expr))
			}
		}
	}
}

// MaxPlaceholder returns the largest placeholder index in e, or -1 if e has
// no placeholders. An expression needs MaxPlaceholder(e)+1 arguments to
// evaluate.
func MaxPlaceholder(e *Expr) int {
	m := -1
	Walk(e, func(n *Expr) bool {
		if n.kind == KindPlaceholder {
			if i := n.elems[0].(int); i > m {
				m = i
			}
		}
		return true
	})
	return m
}

// Depth returns the number of nodes on the longest path from e to a leaf.
func Depth(e *Expr) int {
	type item struct {
		n *Expr
		d int
	}
	best := 0
	if e == nil {
		return best
	}
	stack := arraystack.New()
	stack.Push(item{e, 1})
	for !stack.Empty() {
		top, _ := stack.Pop()
		it := top.(item)
		if it.d > best {
			best = it.d
		}
		switch it.n.kind {
		case KindTerminal, KindPlaceholder:
		case KindExprRef:
			stack.Push(item{it.n.Deref(), it.d})
		default:
			for _, c := range it.n.elems {
				stack.Push(item{c.(*Expr), it.d + 1})
			}
		}
	}
	return best
}

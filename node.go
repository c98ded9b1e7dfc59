package exprtree

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Expr is a node in an expression tree. Its kind is fixed when it is built.
// Nodes of operator kinds hold their operands as child nodes; terminals hold
// a user value, placeholders an argument index, and expr_refs a borrowed
// node.
//
// An Expr is not safe for concurrent use when it contains assignments, since
// evaluating them changes the tree's terminals.
type Expr struct {
	kind Kind
	// elems is the list of operands for operator kinds, each an *Expr. For
	// placeholders it holds the index and for expr_refs the referent.
	elems []any
	// cell points to the storage of a terminal's payload.
	cell reflect.Value
}

var anyType = reflect.TypeOf((*any)(nil)).Elem()

// Kind returns the kind of e.
func (e *Expr) Kind() Kind {
	return e.kind
}

// Len returns the number of elements of e. Terminals, placeholders, and
// expr_refs have one element, their payload.
func (e *Expr) Len() int {
	if e.kind == KindTerminal {
		return 1
	}
	return len(e.elems)
}

// Elements returns a copy of the list of elements of e.
func (e *Expr) Elements() []any {
	if e.kind == KindTerminal {
		return []any{e.payload()}
	}
	return append([]any(nil), e.elems...)
}

func (e *Expr) payload() any {
	return e.cell.Elem().Interface()
}

// resolve follows expr_refs to the node they borrow.
func (e *Expr) resolve() *Expr {
	for e.kind == KindExprRef {
		e = e.elems[0].(*Expr)
	}
	return e
}

// Value returns the value of a single-element expression. For an expr_ref
// it is the value of the referent; for a terminal, its payload; for a
// placeholder, its index; for other single-element nodes, the element.
// Any other node is its own value.
func (e *Expr) Value() any {
	switch e.kind {
	case KindExprRef:
		return e.Deref().Value()
	case KindTerminal:
		return e.payload()
	}
	if len(e.elems) == 1 {
		return e.elems[0]
	}
	return e
}

// Get returns the element of e at index i. For an expr_ref, it returns the
// referent's element. Get panics with an *IndexError if i is out of range.
func (e *Expr) Get(i int) any {
	e = e.resolve()
	if i < 0 || i >= e.Len() {
		panic(&IndexError{Index: i, Len: e.Len(), Kind: e.kind})
	}
	if e.kind == KindTerminal {
		return e.payload()
	}
	return e.elems[i]
}

// child returns the i'th operand of e after checking its kind.
func (e *Expr) child(op string, i int, want ...Kind) *Expr {
	r := e.resolve()
	for _, k := range want {
		if r.kind == k {
			return r.elems[i].(*Expr)
		}
	}
	panic(&KindError{Got: r.kind, Want: want, Op: op})
}

func (e *Expr) binary(op string, i int) *Expr {
	r := e.resolve()
	if r.kind.Valid() && kinds[r.kind].arity == ArityTwo {
		return r.elems[i].(*Expr)
	}
	panic(&KindError{Got: r.kind, Op: op + " of non-binary node"})
}

// Left returns the left operand of a binary expression.
func (e *Expr) Left() *Expr {
	return e.binary("Left", 0)
}

// Right returns the right operand of a binary expression.
func (e *Expr) Right() *Expr {
	return e.binary("Right", 1)
}

// Cond returns the condition of an if_else expression.
func (e *Expr) Cond() *Expr {
	return e.child("Cond", 0, KindIfElse)
}

// Then returns the expression an if_else evaluates when its condition holds.
func (e *Expr) Then() *Expr {
	return e.child("Then", 1, KindIfElse)
}

// Else returns the expression an if_else evaluates when its condition fails.
func (e *Expr) Else() *Expr {
	return e.child("Else", 2, KindIfElse)
}

// Argument returns element i of a call. Element 0 is the callee.
func (e *Expr) Argument(i int) *Expr {
	r := e.resolve()
	if r.kind != KindCall {
		panic(&KindError{Got: r.kind, Want: []Kind{KindCall}, Op: "Argument"})
	}
	if i < 0 || i >= len(r.elems) {
		panic(&IndexError{Index: i, Len: len(r.elems), Kind: KindCall})
	}
	return r.elems[i].(*Expr)
}

// Callee returns the function of a call.
func (e *Expr) Callee() *Expr {
	return e.Argument(0)
}

// Args returns the arguments of a call, not including the callee.
func (e *Expr) Args() []*Expr {
	r := e.resolve()
	if r.kind != KindCall {
		panic(&KindError{Got: r.kind, Want: []Kind{KindCall}, Op: "Args"})
	}
	v := make([]*Expr, 0, len(r.elems)-1)
	for _, a := range r.elems[1:] {
		v = append(v, a.(*Expr))
	}
	return v
}

// Operand returns the operand of a unary expression.
func (e *Expr) Operand() *Expr {
	r := e.resolve()
	if r.kind.Valid() && kinds[r.kind].arity == ArityOne {
		return r.elems[0].(*Expr)
	}
	panic(&KindError{Got: r.kind, Op: "Operand of non-unary node"})
}

// Deref returns the node an expr_ref borrows.
func (e *Expr) Deref() *Expr {
	if e.kind != KindExprRef {
		panic(&KindError{Got: e.kind, Want: []Kind{KindExprRef}, Op: "Deref"})
	}
	return e.elems[0].(*Expr)
}

// Index returns the argument index of a placeholder.
func (e *Expr) Index() int {
	r := e.resolve()
	if r.kind != KindPlaceholder {
		panic(&KindError{Got: r.kind, Want: []Kind{KindPlaceholder}, Op: "Index"})
	}
	return r.elems[0].(int)
}

// children returns the operand nodes of e. Leaves have none.
func (e *Expr) children() []*Expr {
	if ArityOf(e.kind) == ArityZero {
		return nil
	}
	v := make([]*Expr, len(e.elems))
	for i, x := range e.elems {
		v[i] = x.(*Expr)
	}
	return v
}

// String formats the expression with alternating round and square brackets
// grouping each term.
func (e *Expr) String() string {
	var b strings.Builder
	e.format(&b, false)
	return b.String()
}

func (e *Expr) format(b *strings.Builder, square bool) {
	var l, r byte = '(', ')'
	if square {
		l, r = '[', ']'
	}
	b.WriteByte(l)
	defer b.WriteByte(r)
	switch k := e.kind; {
	case k == KindTerminal:
		fmt.Fprint(b, e.payload())
	case k == KindPlaceholder:
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(e.elems[0].(int)))
	case k == KindExprRef:
		b.WriteString("ref")
		e.Deref().format(b, !square)
	case k == KindPostInc, k == KindPostDec:
		e.elems[0].(*Expr).format(b, !square)
		b.WriteString(kinds[k].op[:2])
	case k == KindSubscript:
		e.elems[0].(*Expr).format(b, !square)
		e.elems[1].(*Expr).format(b, !square)
	case k == KindIfElse:
		e.elems[0].(*Expr).format(b, !square)
		b.WriteString(" ? ")
		e.elems[1].(*Expr).format(b, !square)
		b.WriteString(" : ")
		e.elems[2].(*Expr).format(b, !square)
	case k == KindCall:
		e.elems[0].(*Expr).format(b, !square)
		b.WriteByte(l)
		for i, a := range e.elems[1:] {
			if i > 0 {
				b.WriteString(", ")
			}
			a.(*Expr).format(b, !square)
		}
		b.WriteByte(r)
	case k == KindComma:
		e.elems[0].(*Expr).format(b, !square)
		b.WriteString(", ")
		e.elems[1].(*Expr).format(b, !square)
	case k.Valid() && kinds[k].arity == ArityOne:
		b.WriteString(kinds[k].op)
		e.elems[0].(*Expr).format(b, !square)
	case k.Valid() && kinds[k].arity == ArityTwo:
		e.elems[0].(*Expr).format(b, !square)
		b.WriteByte(' ')
		b.WriteString(kinds[k].op)
		b.WriteByte(' ')
		e.elems[1].(*Expr).format(b, !square)
	default:
		panic("exprtree: invalid node kind " + k.String() + " after writing " + b.String())
	}
}

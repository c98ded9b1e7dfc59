package exprtree

import (
	"reflect"
	"strconv"
)

// Term creates a terminal holding v. The terminal owns storage for v, so
// assignments evaluated against the terminal change what it holds. Term
// panics if v is already an expression; use AsExpr to accept both.
func Term(v any) *Expr {
	if e, ok := v.(*Expr); ok {
		panic(&KindError{Got: e.kind, Want: []Kind{KindTerminal}, Op: "Term"})
	}
	t := reflect.TypeOf(v)
	if t == nil {
		t = anyType
	}
	c := reflect.New(t)
	if v != nil {
		c.Elem().Set(reflect.ValueOf(v))
	}
	return &Expr{kind: KindTerminal, cell: c}
}

// AsExpr returns v unchanged if it is an expression and wraps it in a
// terminal otherwise. AsExpr(AsExpr(v)) is the same node as AsExpr(v).
func AsExpr(v any) *Expr {
	if e, ok := v.(*Expr); ok {
		return e
	}
	return Term(v)
}

// P creates a placeholder for the i'th evaluation argument, counting from 0.
func P(i int) *Expr {
	if i < 0 {
		panic("exprtree: negative placeholder index " + strconv.Itoa(i))
	}
	return &Expr{kind: KindPlaceholder, elems: []any{i}}
}

// Ref creates an expr_ref borrowing e. The new node does not own e: e stays
// shared with whatever else holds it, and assignments evaluated through the
// reference change e's terminals.
func Ref(e *Expr) *Expr {
	if e == nil {
		panic("exprtree: Ref of nil expression")
	}
	return &Expr{kind: KindExprRef, elems: []any{e}}
}

// NewExpr builds a node of kind k from operands. Operands which are not
// expressions are wrapped in terminals; expressions become children of the
// new node as they are, so a tree built from the same *Expr twice shares it.
// For the leaf kinds, NewExpr accepts exactly one payload: the value of a
// terminal, the int index of a placeholder, or the *Expr of an expr_ref.
//
// NewExpr returns an *ArityError if the operand count does not suit k.
func NewExpr(k Kind, operands ...any) (*Expr, error) {
	if !k.Valid() {
		return nil, &KindError{Got: k, Op: "NewExpr"}
	}
	n := len(operands)
	switch kinds[k].arity {
	case ArityZero:
		if n != 1 {
			return nil, &ArityError{Kind: k, Got: n}
		}
		return leaf(k, operands[0])
	case ArityOne:
		if n != 1 {
			return nil, &ArityError{Kind: k, Got: n}
		}
	case ArityTwo:
		if n != 2 {
			return nil, &ArityError{Kind: k, Got: n}
		}
	case ArityThree:
		if n != 3 {
			return nil, &ArityError{Kind: k, Got: n}
		}
	case ArityN:
		if n < 1 {
			return nil, &ArityError{Kind: k, Got: n}
		}
	}
	e := &Expr{kind: k, elems: make([]any, n)}
	for i, x := range operands {
		e.elems[i] = AsExpr(x)
	}
	tracer().Debugf("built %v with %d operands", k, n)
	return e, nil
}

func leaf(k Kind, v any) (*Expr, error) {
	switch k {
	case KindTerminal:
		if e, ok := v.(*Expr); ok {
			return nil, &KindError{Got: e.kind, Want: []Kind{KindTerminal}, Op: "terminal payload"}
		}
		return Term(v), nil
	case KindPlaceholder:
		i, ok := v.(int)
		if !ok || i < 0 {
			return nil, &OperandError{Kind: k, Operands: []any{v}, Reason: "placeholder index must be a non-negative int"}
		}
		return P(i), nil
	default:
		e, ok := v.(*Expr)
		if !ok || e == nil {
			return nil, &OperandError{Kind: k, Operands: []any{v}, Reason: "expr_ref needs an *Expr"}
		}
		return Ref(e), nil
	}
}

// MustExpr is like NewExpr but panics on error.
func MustExpr(k Kind, operands ...any) *Expr {
	e, err := NewExpr(k, operands...)
	if err != nil {
		panic(err)
	}
	return e
}

// Func is an expression turned into a function. Calling it evaluates the
// expression with the call's arguments filling the placeholders.
type Func func(args ...any) (any, error)

// Function returns a function evaluating e with the default evaluator.
func Function(e *Expr) Func {
	return defaultEvaluator().Function(e)
}

// Function returns a function evaluating e with ev.
func (ev *Evaluator) Function(e *Expr) Func {
	return func(args ...any) (any, error) {
		return ev.Evaluate(e, args...)
	}
}

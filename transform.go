package exprtree

// Visitor matches nodes during Transform. Visit reports whether it handles
// e; when it does, its result replaces e and Transform does not descend into
// e's operands.
type Visitor interface {
	Visit(e *Expr) (result any, handled bool, err error)
}

// VisitorFunc adapts a function to a Visitor.
type VisitorFunc func(e *Expr) (any, bool, error)

func (f VisitorFunc) Visit(e *Expr) (any, bool, error) {
	return f(e)
}

// VisitFunc handles a node of a particular kind.
type VisitFunc func(e *Expr) (any, error)

// TagFunc handles a node of a particular kind given the node's elements
// instead of the node: operands for operator kinds, or the payload for
// leaves. Expr_ref elements are resolved to their referents first.
type TagFunc func(elems ...any) (any, error)

// Table is a Visitor dispatching on node kinds. For a node of kind k, Table
// tries Kinds[k], then Tags[k], then Default. If none is set, the node is
// not handled.
type Table struct {
	Kinds   map[Kind]VisitFunc
	Tags    map[Kind]TagFunc
	Default VisitFunc
}

func (t *Table) Visit(e *Expr) (any, bool, error) {
	if f := t.Kinds[e.kind]; f != nil {
		r, err := f(e)
		return r, true, err
	}
	if f := t.Tags[e.kind]; f != nil {
		elems := e.Elements()
		for i, x := range elems {
			if c, ok := x.(*Expr); ok && c.kind == KindExprRef {
				elems[i] = c.resolve()
			}
		}
		r, err := f(elems...)
		return r, true, err
	}
	if t.Default != nil {
		r, err := t.Default(e)
		return r, true, err
	}
	return nil, false, nil
}

// Transform rewrites x with v. If x is not an *Expr, it is returned
// unchanged. Otherwise, if v handles the node, v's result is the result.
// If not, terminals and placeholders are returned unchanged, an expr_ref
// gives the transform of the tree it borrows, and any other node gives a new
// node of the same kind whose operands are the transforms of the original
// operands. Operand results which are not expressions are wrapped in
// terminals.
//
// Transform never modifies x.
func Transform(x any, v Visitor) (any, error) {
	e, ok := x.(*Expr)
	if !ok || e == nil {
		return x, nil
	}
	return transform(e, v)
}

func transform(e *Expr, v Visitor) (any, error) {
	r, ok, err := v.Visit(e)
	if err != nil {
		return nil, err
	}
	if ok {
		return r, nil
	}
	switch e.kind {
	case KindTerminal, KindPlaceholder:
		return e, nil
	case KindExprRef:
		return transform(e.Deref(), v)
	}
	n := &Expr{kind: e.kind, elems: make([]any, len(e.elems))}
	for i, c := range e.elems {
		r, err := transform(c.(*Expr), v)
		if err != nil {
			return nil, err
		}
		n.elems[i] = AsExpr(r)
	}
	return n, nil
}

// TransformExpr is like Transform but requires the result to be an
// expression, wrapping it in a terminal if it is not.
func TransformExpr(e *Expr, v Visitor) (*Expr, error) {
	r, err := Transform(e, v)
	if err != nil {
		return nil, err
	}
	return AsExpr(r), nil
}

package exprlang

import (
	"github.com/zephyrtronium/exprtree"
)

// Fold returns a program in which every operation that does not depend on
// the environment is replaced by its result. Calls are never folded, nor is
// anything with side effects. Operations which fail to evaluate are left for
// Eval to report. The new program shares let variables with p.
func (p *Program) Fold() (*Program, error) {
	folds := 0
	v := exprtree.VisitorFunc(func(e *exprtree.Expr) (any, bool, error) {
		if e.Kind() == exprtree.KindTerminal || !constant(e) {
			return nil, false, nil
		}
		r, err := p.ev.Evaluate(e)
		if err != nil {
			tracer().Debugf("not folding %v: %v", e, err)
			return nil, false, nil
		}
		folds++
		return exprtree.Term(r), true, nil
	})
	root, err := exprtree.TransformExpr(p.root, v)
	if err != nil {
		return nil, err
	}
	tracer().Debugf("folded %d subtrees of %q", folds, p.src)
	q := *p
	q.root = root
	return &q, nil
}

// constant reports whether e evaluates the same way every time.
func constant(e *exprtree.Expr) bool {
	ok := true
	exprtree.Walk(e, func(n *exprtree.Expr) bool {
		switch k := n.Kind(); {
		case k == exprtree.KindPlaceholder, k == exprtree.KindCall, k == exprtree.KindExprRef,
			k == exprtree.KindAddressOf,
			k >= exprtree.KindPreInc && k <= exprtree.KindPostDec,
			k >= exprtree.KindAssign && k <= exprtree.KindBitwiseXorAssign:
			ok = false
		}
		return ok
	})
	return ok
}

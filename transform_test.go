package exprtree

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

// show renders a transform result for comparison.
func show(x any) string {
	if e, ok := x.(*Expr); ok {
		return e.String()
	}
	return fmt.Sprint(x)
}

func TestTransformIdentity(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "exprtree")
	defer teardown()
	e := Plus(Multiplies(P(0), 2), Negate(P(1)))
	r, err := Transform(e, &Table{})
	if err != nil {
		t.Fatal(err)
	}
	n, ok := r.(*Expr)
	if !ok {
		t.Fatalf("transform gave %T", r)
	}
	if n == e {
		t.Error("transform returned the original root")
	}
	if n.String() != e.String() {
		t.Errorf("want %v, got %v", e, n)
	}
	// Leaves are shared.
	if n.Left().Left() != e.Left().Left() {
		t.Error("placeholder was copied")
	}
}

func TestTransformTable(t *testing.T) {
	// Fold additions of constants and count placeholders.
	holes := 0
	table := &Table{
		Kinds: map[Kind]VisitFunc{
			KindPlaceholder: func(e *Expr) (any, error) {
				holes++
				return e, nil
			},
		},
		Tags: map[Kind]TagFunc{
			KindPlus: func(elems ...any) (any, error) {
				l, r := elems[0].(*Expr), elems[1].(*Expr)
				if l.Kind() == KindTerminal && r.Kind() == KindTerminal {
					return Evaluate(Plus(l.Value(), r.Value()))
				}
				return Plus(l, r), nil
			},
		},
	}
	cases := []struct {
		e    *Expr
		want string
		n    int
	}{
		{Plus(1, 2), "3", 0},
		{Plus(P(0), 2), "([$0] + [2])", 0},
		{Multiplies(Plus(1, 2), P(0)), "([3] * [$0])", 1},
		{Negate(Ref(Plus(3, 4))), "(-[7])", 0},
	}
	for _, c := range cases {
		holes = 0
		r, err := Transform(c.e, table)
		if err != nil {
			t.Errorf("%v: %v", c.e, err)
			continue
		}
		if got := show(r); got != c.want {
			t.Errorf("%v: want %s, got %s", c.e, c.want, got)
		}
		if holes != c.n {
			t.Errorf("%v: visited %d placeholders, want %d", c.e, holes, c.n)
		}
	}
}

func TestTransformTagsResolveRefs(t *testing.T) {
	inner := Term(5)
	var got []any
	table := &Table{Tags: map[Kind]TagFunc{
		KindNegate: func(elems ...any) (any, error) {
			got = elems
			return 0, nil
		},
	}}
	if _, err := Transform(Negate(Ref(inner)), table); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != any(inner) {
		t.Errorf("tag function got %v, want the referent", got)
	}
}

func TestTransformDefault(t *testing.T) {
	// The default turns every node into its string form.
	table := &Table{
		Default: func(e *Expr) (any, error) {
			return fmt.Sprint(e.Value()), nil
		},
		Kinds: map[Kind]VisitFunc{
			KindPlus: func(e *Expr) (any, error) {
				return "plus", nil
			},
		},
	}
	r, err := Transform(Term(3), table)
	if err != nil || r != "3" {
		t.Errorf("default gave %v, %v", r, err)
	}
	r, err = Transform(Plus(1, 2), table)
	if err != nil || r != "plus" {
		t.Errorf("Kinds did not take priority over Default: %v, %v", r, err)
	}
}

func TestTransformError(t *testing.T) {
	bad := errors.New("bad")
	visited := 0
	v := VisitorFunc(func(e *Expr) (any, bool, error) {
		visited++
		if e.Kind() == KindPlaceholder {
			return nil, true, bad
		}
		return nil, false, nil
	})
	_, err := Transform(Plus(Negate(P(0)), P(1)), v)
	if !errors.Is(err, bad) {
		t.Errorf("want bad, got %v", err)
	}
	// plus, negate, and the first placeholder
	if visited != 3 {
		t.Errorf("visited %d nodes before stopping", visited)
	}
}

func TestTransformNonExpr(t *testing.T) {
	r, err := Transform(42, &Table{Default: func(e *Expr) (any, error) {
		t.Error("visited a non-expression")
		return nil, nil
	}})
	if err != nil || r != 42 {
		t.Errorf("want 42 unchanged, got %v, %v", r, err)
	}
}

func TestTransformExpr(t *testing.T) {
	upper := &Table{Tags: map[Kind]TagFunc{
		KindTerminal: func(elems ...any) (any, error) {
			if s, ok := elems[0].(string); ok {
				return strings.ToUpper(s), nil
			}
			return elems[0], nil
		},
	}}
	e, err := TransformExpr(Plus("a", P(0)), upper)
	if err != nil {
		t.Fatal(err)
	}
	r, err := Evaluate(e, "b")
	if err != nil || r != "Ab" {
		t.Errorf("want Ab, got %v, %v", r, err)
	}
	// A result which is not an expression is wrapped.
	e, err = TransformExpr(Term("x"), upper)
	if err != nil {
		t.Fatal(err)
	}
	if e.Kind() != KindTerminal || e.Value() != "X" {
		t.Errorf("want terminal X, got %v", e)
	}
}

func TestWalk(t *testing.T) {
	shared := P(1)
	e := IfElse(Less(P(0), shared), Call("f", Ref(Plus(shared, 1))), 3)
	var seen []Kind
	Walk(e, func(n *Expr) bool {
		seen = append(seen, n.Kind())
		return true
	})
	want := []Kind{
		KindIfElse,
		KindLess, KindPlaceholder, KindPlaceholder,
		KindCall, KindTerminal, KindExprRef, KindPlus, KindPlaceholder, KindTerminal,
		KindTerminal,
	}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("wrong walk order (-want +got):\n%s", diff)
	}
	seen = seen[:0]
	Walk(e, func(n *Expr) bool {
		seen = append(seen, n.Kind())
		return n.Kind() != KindCall
	})
	want = []Kind{KindIfElse, KindLess, KindPlaceholder, KindPlaceholder, KindCall, KindTerminal}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("wrong pruned walk order (-want +got):\n%s", diff)
	}
	Walk(nil, func(*Expr) bool {
		t.Error("walked nil")
		return true
	})
}

func TestMaxPlaceholder(t *testing.T) {
	cases := []struct {
		e    *Expr
		want int
	}{
		{Term(1), -1},
		{P(0), 0},
		{Plus(P(3), P(1)), 3},
		{Negate(Ref(Plus(1, P(5)))), 5},
	}
	for _, c := range cases {
		if got := MaxPlaceholder(c.e); got != c.want {
			t.Errorf("%v: want %d, got %d", c.e, c.want, got)
		}
	}
}

func TestDepth(t *testing.T) {
	cases := []struct {
		e    *Expr
		want int
	}{
		{nil, 0},
		{Term(1), 1},
		{Negate(1), 2},
		{Plus(Negate(Negate(1)), 2), 4},
		{Negate(Ref(Negate(1))), 3},
		{IfElse(1, 2, Call("f", Negate(1))), 4},
	}
	for _, c := range cases {
		if got := Depth(c.e); got != c.want {
			t.Errorf("%v: want %d, got %d", c.e, c.want, got)
		}
	}
}

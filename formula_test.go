package exprtree_test

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zephyrtronium/exprtree"
)

func TestEval(t *testing.T) {
	type vv struct {
		n string
		v float64
	}
	type vc struct {
		vars []vv
		r    float64
	}
	cases := []struct {
		name string
		src  string
		r    []vc
	}{
		{"num", "1", []vc{{nil, 1}}},
		{"ident", "x", []vc{
			{[]vv{{"x", 4}}, 4},
			{[]vv{{"x", 5}}, 5},
			{[]vv{{"x", 6}}, 6},
		}},
		{"plus", "+x", []vc{
			{[]vv{{"x", 4}}, 4},
			{[]vv{{"x", 5}}, 5},
			{[]vv{{"x", 6}}, 6},
		}},
		{"neg", "-x", []vc{
			{[]vv{{"x", 4}}, -4},
			{[]vv{{"x", 5}}, -5},
			{[]vv{{"x", 6}}, -6},
		}},
		{"add", "4+5+6", []vc{{nil, 4 + 5 + 6}}},
		{"sub", "4-5-6", []vc{{nil, 4 - 5 - 6}}},
		{"mul", "4*5*6", []vc{{nil, 4 * 5 * 6}}},
		{"div", "4/5/6", []vc{{nil, 4.0 / 5.0 / 6.0}}},
		{"pow", "4^3^2", []vc{{nil, 262144}}},
		{"pow-zero", "0^0", []vc{{nil, 1}}},
		{"pow-zero-base", "0^2", []vc{{nil, 0}}},
		{"pow-zero-neg", "0^-1", []vc{{nil, math.Inf(1)}}},
		{"pow-neg-odd", "(-2)^3", []vc{{nil, -8}}},
		{"pow-neg-even", "(-2)^2", []vc{{nil, 4}}},
		{"pow-neg-int", "(-1)^1", []vc{{nil, -1}}},
		{"pi", "pi", []vc{{nil, math.Pi}}},
		{"e", "e", []vc{{nil, math.E}}},
		{"exp", "exp 1", []vc{{nil, math.E}}},
		{"inf1", "inf", []vc{{nil, math.Inf(0)}}},
		{"inf2", "Inf", []vc{{nil, math.Inf(0)}}},
		{"inf3", "∞", []vc{{nil, math.Inf(0)}}},
		{"log", "log 1000", []vc{{nil, 3}}},
		{"log-base", "log(8, 2)", []vc{{nil, 3}}},
		{"sqrt", "sqrt 16", []vc{{nil, 4}}},
		{"less", "1<2", []vc{{nil, 1}}},
		{"less-false", "2<1", []vc{{nil, 0}}},
		{"cmp-prec", "1+1 == 2", []vc{{nil, 1}}},
		{"ne", "1 != 1", []vc{{nil, 0}}},
		{"ge", "x >= 2", []vc{
			{[]vv{{"x", 1}}, 0},
			{[]vv{{"x", 2}}, 1},
			{[]vv{{"x", 3}}, 1},
		}},
		{"abs", "x < 0 ? -x : x", []vc{
			{[]vv{{"x", -3}}, 3},
			{[]vv{{"x", 0}}, 0},
			{[]vv{{"x", 3}}, 3},
		}},
		{"cond-short", "x < 0 ? -x : sqrt x", []vc{
			{[]vv{{"x", -4}}, 4},
			{[]vv{{"x", 4}}, 2},
		}},
		{"sign", "x < 0 ? -1 : x > 0 ? 1 : 0", []vc{
			{[]vv{{"x", -5}}, -1},
			{[]vv{{"x", 0}}, 0},
			{[]vv{{"x", 5}}, 1},
		}},
		{"assign", "x = 2 y", []vc{
			{[]vv{{"y", 3}}, 6},
			{[]vv{{"x", 100}, {"y", 4}}, 8},
		}},
	}
	ctx := exprtree.NewContext(exprtree.Prec(64))
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a, err := exprtree.Parse(strings.NewReader(c.src))
			if err != nil {
				t.Fatal(c.src, "failed to parse:", err)
			}
			for _, v := range c.r {
				ctx := ctx.Clone()
				for _, x := range v.vars {
					ctx.Set(x.n, new(big.Float).SetFloat64(x.v))
				}
				r := a.Eval(ctx)
				if ctx.Err() != nil {
					t.Error("evaluation error:", ctx.Err())
				}
				if r == nil {
					t.Fatal("nil result")
				}
				if q := ctx.Result(); r.Cmp(q) != 0 {
					t.Errorf("different results: Eval returned %g, Result returned %g", r, q)
				}
				if f, _ := r.Float64(); f != v.r {
					t.Errorf("wrong result: want %g, got %g", v.r, r)
				}
			}
		})
	}
}

func TestEvalAssign(t *testing.T) {
	ctx := exprtree.NewContext(exprtree.SetVar("x", big.NewFloat(1)))
	inc, err := exprtree.Parse(strings.NewReader("x = x + 1"))
	if err != nil {
		t.Fatal(err)
	}
	for want := 2.0; want <= 4; want++ {
		r := inc.Eval(ctx)
		if r == nil {
			t.Fatalf("evaluation error: %v", ctx.Err())
		}
		if f, _ := r.Float64(); f != want {
			t.Errorf("wrong result: want %g, got %g", want, r)
		}
		if f, _ := ctx.Lookup("x").Float64(); f != want {
			t.Errorf("x not updated: want %g, got %g", want, ctx.Lookup("x"))
		}
	}

	// Assigned variables start at zero.
	fresh := exprtree.NewContext()
	if r := inc.Eval(fresh); r == nil || r.Sign() <= 0 {
		t.Errorf("increment of unset x gave %v, error %v", r, fresh.Err())
	}

	// A failed evaluation leaves variables as they were.
	bad, err := exprtree.Parse(strings.NewReader("x = 0/0"))
	if err != nil {
		t.Fatal(err)
	}
	if r := bad.Eval(ctx); r != nil {
		t.Errorf("0/0 gave %g", r)
	}
	if f, _ := ctx.Lookup("x").Float64(); f != 4 {
		t.Errorf("failed assignment changed x to %g", ctx.Lookup("x"))
	}

	// Clones do not share variables.
	c := ctx.Clone()
	inc.Eval(c)
	if f, _ := ctx.Lookup("x").Float64(); f != 4 {
		t.Errorf("assignment in clone changed x to %g", ctx.Lookup("x"))
	}
	if f, _ := c.Lookup("x").Float64(); f != 5 {
		t.Errorf("clone has x = %g, want 5", c.Lookup("x"))
	}
}

func TestEvalUndefNames(t *testing.T) {
	cases := []struct {
		name string
		src  string
		r    []string
	}{
		{"x", "x", []string{"x"}},
		{"plus", "+x", []string{"x"}},
		{"neg", "-x", []string{"x"}},
		{"add-lhs", "x+1", []string{"x"}},
		{"add-rhs", "1+x", []string{"x"}},
		{"sub-lhs", "x-1", []string{"x"}},
		{"sub-rhs", "1-x", []string{"x"}},
		{"mul-lhs", "x*1", []string{"x"}},
		{"mul-rhs", "1*x", []string{"x"}},
		{"div-lhs", "x/1", []string{"x"}},
		{"div-rhs", "1/x", []string{"x"}},
		{"pow-lhs", "x^1", []string{"x"}},
		{"pow-rhs", "1^x", []string{"x"}},
		{"call", "exp(x)", []string{"x"}},
		{"cmp", "x<1", []string{"x"}},
		{"cond", "1 ? 2 : x", []string{"x"}},
		{"assign-rhs", "y = x", []string{"x", "y"}},
	}
	ure := regexp.MustCompile(`(?i)\bundef`)
	vre := regexp.MustCompile(`(?i)\bvar`)
	ctx := exprtree.NewContext(exprtree.Prec(64))
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a, err := exprtree.Parse(strings.NewReader(c.src))
			if err != nil {
				t.Fatalf("%q failed to parse: %v", c.src, err)
			}
			if diff := cmp.Diff(c.r, a.Vars()); diff != "" {
				t.Errorf("%q gave wrong variables (-want +got):\n%s", c.src, diff)
			}
			if r := a.Eval(ctx); r != nil {
				t.Errorf("evaluating %q gave non-nil result %g", c.src, r)
			}
			err = ctx.Err()
			if ctx.Err() == nil {
				t.Fatalf("evaluating %q gave no error", c.src)
			}
			var u *exprtree.NameError
			if !errors.As(err, &u) {
				t.Fatalf("error was %#v, not NameError", err)
			}
			msg := err.Error()
			if !ure.MatchString(msg) {
				t.Errorf(`%q doesn't mention "undef"`, msg)
			}
			if !vre.MatchString(msg) {
				t.Errorf(`%q doesn't mention "var"`, msg)
			}
			if u.Name != "x" {
				t.Errorf("NameError on %q, want x", u.Name)
			}
			if !regexp.MustCompile(`\bx\b`).MatchString(msg) {
				t.Errorf(`%q doesn't mention x`, msg)
			}
		})
	}
}

func TestEvalFuncError(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"sqrt", "sqrt(-1)"},
		{"ln", "ln(-1)"},
		{"log", "log(-1)"},
		{"log-zero", "log 0"},
		{"log-base", "log(1, -1)"},
		{"log-base-one", "log(8, 1)"},
	}
	ctx := exprtree.NewContext(exprtree.Prec(64))
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ctx := ctx.Clone()
			a, err := exprtree.Parse(strings.NewReader(c.src))
			if err != nil {
				t.Fatalf("%q failed to parse: %v", c.src, err)
			}
			if r := a.Eval(ctx); r != nil {
				t.Errorf("evaluating %q gave non-nil result %g", c.src, r)
			}
			err = ctx.Err()
			if err == nil {
				t.Fatalf("evaluating %q gave no error", c.src)
			}
			if !errors.As(err, new(*exprtree.DomainError)) {
				t.Errorf("%#v is not *exprtree.DomainError", err)
			}
			if !errors.As(err, new(big.ErrNaN)) {
				t.Errorf("%#v does not unwrap to big.ErrNaN", err)
			}
		})
	}
}

func TestEvalOpError(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"div-zero", "0/0"},
		{"div-inf", "inf/inf"},
		{"div-alt-zero", "0÷0"},
		{"div-alt-inf", "inf÷inf"},
		{"sub-inf", "inf-inf"},
		{"pow-neg", "(-1)^0.5"},
		{"pow-neg-frac", "(-8)^(1/3)"},
	}
	ctx := exprtree.NewContext()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ctx := ctx.Clone()
			a, err := exprtree.Parse(strings.NewReader(c.src))
			if err != nil {
				t.Fatalf("%q failed to parse: %v", c.src, err)
			}
			if r := a.Eval(ctx); r != nil {
				t.Errorf("evaluating %q gave non-nil result %g", c.src, r)
			}
			err = ctx.Err()
			if err == nil {
				t.Fatalf("evaluating %q gave no error", c.src)
			}
			if _, ok := err.(*exprtree.DomainError); !ok {
				t.Errorf("%#v is not *exprtree.DomainError", err)
			}
		})
	}
}

func TestContextVars(t *testing.T) {
	zero := new(big.Float)
	one := new(big.Float).SetFloat64(1)
	ctx := exprtree.NewContext(exprtree.Prec(64), exprtree.SetVar("x", zero))
	if x := ctx.Lookup("x"); x == nil || x.Cmp(zero) != 0 {
		t.Errorf("x should be %[1]v at %[1]p but is %[2]v at %[2]p", zero, x)
	}
	if y := ctx.Lookup("y"); y != nil {
		t.Errorf("context has y: %[1]v at %[1]p", y)
	}
	ctx.Set("y", one)
	if x := ctx.Lookup("x"); x == nil || x.Cmp(zero) != 0 {
		t.Errorf("x should be %[1]v at %[1]p but is %[2]v at %[2]p", zero, x)
	}
	if y := ctx.Lookup("y"); y == nil || y.Cmp(one) != 0 {
		t.Errorf("y should be %[1]v at %[1]p but is %[2]v at %[2]p", one, y)
	}
	ctx.Set("x", one)
	if x := ctx.Lookup("x"); x == nil || x.Cmp(one) != 0 {
		t.Errorf("x should be %[1]v at %[1]p but is %[2]v at %[2]p", one, x)
	}
	if y := ctx.Lookup("y"); y == nil || y.Cmp(one) != 0 {
		t.Errorf("y should be %[1]v at %[1]p but is %[2]v at %[2]p", zero, y)
	}
	if diff := cmp.Diff([]string{"x", "y"}, ctx.Vars()); diff != "" {
		t.Errorf("wrong vars (-want +got):\n%s", diff)
	}
	// Lookup returns copies.
	ctx.Lookup("x").SetInt64(7)
	if x := ctx.Lookup("x"); x.Cmp(one) != 0 {
		t.Errorf("changing a looked up value changed x to %v", x)
	}
}

func TestContextPrec(t *testing.T) {
	ctx := exprtree.NewContext(exprtree.Prec(32))
	if p := ctx.Prec(); p != 32 {
		t.Errorf("prec is %d, want 32", p)
	}
	c := ctx.Clone(exprtree.Prec(128), exprtree.Prec(256))
	if p := c.Prec(); p != 256 {
		t.Errorf("clone prec is %d, want the last given 256", p)
	}
	r, err := exprtree.EvalString("1/3", exprtree.Prec(200))
	if err != nil {
		t.Fatal(err)
	}
	if r.Prec() != 200 {
		t.Errorf("result has prec %d, want 200", r.Prec())
	}
}

func TestResultBeforeEval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Result before Eval did not panic")
		}
	}()
	exprtree.NewContext().Result()
}

func TestEvalString(t *testing.T) {
	r, err := exprtree.EvalString("x^2 + 1", exprtree.SetVar("x", big.NewFloat(3)))
	if err != nil {
		t.Fatal(err)
	}
	if f, _ := r.Float64(); f != 10 {
		t.Errorf("want 10, got %g", r)
	}
	if _, err := exprtree.EvalString("(1"); err == nil {
		t.Error("no error from bad formula")
	}
	if _, err := exprtree.EvalString("y"); !errors.As(err, new(*exprtree.NameError)) {
		t.Errorf("want NameError, got %v", err)
	}
}

func TestFormulaExpr(t *testing.T) {
	f, err := exprtree.Parse(strings.NewReader("2 x^2"))
	if err != nil {
		t.Fatal(err)
	}
	e := f.Expr()
	if e.Kind() != exprtree.KindMultiplies {
		t.Fatalf("root is %v, want multiplies", e.Kind())
	}
	if n, ok := e.Left().Value().(exprtree.Number); !ok || n != "2" {
		t.Errorf("left operand is %#v, want Number 2", e.Left().Value())
	}
	pow := e.Right()
	if pow.Kind() != exprtree.KindBitwiseXor {
		t.Errorf("^ parsed as %v", pow.Kind())
	}
	if pow.Left().Kind() != exprtree.KindPlaceholder || pow.Left().Index() != 0 {
		t.Errorf("x is %v", pow.Left())
	}
	// The tree evaluates natively once numbers are numbers.
	num := &exprtree.Table{Tags: map[exprtree.Kind]exprtree.TagFunc{
		exprtree.KindTerminal: func(elems ...any) (any, error) {
			if n, ok := elems[0].(exprtree.Number); ok {
				x, _, err := big.ParseFloat(string(n), 10, 64, big.ToNearestEven)
				return x, err
			}
			return elems[0], nil
		},
	}}
	g, err := exprtree.TransformExpr(e, num)
	if err != nil {
		t.Fatal(err)
	}
	// Without the formula context, ^ is xor, which floats do not have.
	if _, err := exprtree.Evaluate(g, big.NewFloat(3)); !errors.As(err, new(*exprtree.OperandError)) {
		t.Errorf("want OperandError for float xor, got %v", err)
	}
}

func TestVars(t *testing.T) {
	cases := []struct {
		name string
		src  string
		vars []string
	}{
		{"none", "1+2+3", nil},
		{"one", "1+2+x", []string{"x"}},
		{"sort", "z+y+x+w+v+u+t+s+r+q+p+o+n+m+l+k+j+i+h+g+f+e+d+c+b+a", strings.Fields("a b c d e f g h i j k l m n o p q r s t u v w x y z")},
		{"reuse", "a+b+c+b+a", []string{"a", "b", "c"}},
		{"assign", "c = b ? a : c", []string{"a", "b", "c"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a, err := exprtree.Parse(strings.NewReader(c.src), exprtree.DisableDefaultFuncs())
			if err != nil {
				t.Fatalf("%q didn't parse: %v", c.src, err)
			}
			if diff := cmp.Diff(c.vars, a.Vars()); diff != "" {
				t.Errorf("%q gave wrong variable names (-want +got):\n%s", c.src, diff)
			}
		})
	}
}

func BenchmarkEval(b *testing.B) {
	vars := map[string]*big.Float{
		"x": big.NewFloat(2),
		"y": big.NewFloat(3),
		"z": big.NewFloat(4),
	}
	b.Run("nums", func(b *testing.B) {
		b.ReportAllocs()
		ctx := exprtree.NewContext(exprtree.Prec(64))
		a, err := exprtree.Parse(strings.NewReader("2+3+4"))
		if err != nil {
			b.Fatal(err)
		}
		for i := 0; i < b.N; i++ {
			a.Eval(ctx.Clone())
		}
	})
	b.Run("vars", func(b *testing.B) {
		b.ReportAllocs()
		ctx := exprtree.NewContext(exprtree.SetVars(vars), exprtree.Prec(64))
		a, err := exprtree.Parse(strings.NewReader("x+y+z"))
		if err != nil {
			b.Fatal(err)
		}
		for i := 0; i < b.N; i++ {
			a.Eval(ctx.Clone())
		}
	})
	b.Run("cond", func(b *testing.B) {
		b.ReportAllocs()
		ctx := exprtree.NewContext(exprtree.SetVars(vars), exprtree.Prec(64))
		a, err := exprtree.Parse(strings.NewReader("x < y ? z = x : (z = y)"))
		if err != nil {
			b.Fatal(err)
		}
		for i := 0; i < b.N; i++ {
			a.Eval(ctx.Clone())
		}
	})
}

func Example() {
	var (
		fx   = strings.NewReader("x^3/2 - x")
		dfx  = strings.NewReader("3 x^2/2 - 1")
		ddfx = strings.NewReader("3 x")
	)
	ctx := exprtree.NewContext(exprtree.Prec(64))
	a, _ := exprtree.Parse(fx)
	b, _ := exprtree.Parse(dfx)
	c, _ := exprtree.Parse(ddfx)

	for i := 0; i < 4; i++ {
		x := big.NewFloat(float64(i))
		ctx := ctx.Set("x", x)
		y := a.Eval(ctx.Clone())
		yp := b.Eval(ctx.Clone())
		ypp := c.Eval(ctx.Clone())
		fmt.Printf("x = %g   y = %-4g  y' = %-4g  y'' = %g\n", x, y, yp, ypp)
	}

	// Output:
	// x = 0   y = 0     y' = -1    y'' = 0
	// x = 1   y = -0.5  y' = 0.5   y'' = 3
	// x = 2   y = 2     y' = 5     y'' = 6
	// x = 3   y = 10.5  y' = 12.5  y'' = 9
}

package exprlang

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/expr-lang/expr/file"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zephyrtronium/exprtree"
)

type account struct {
	Owner   string
	Balance float64
	Tags    []string
}

func (a account) Label() string {
	return a.Owner + ":" + strconv.Itoa(len(a.Tags))
}

func TestEval(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "exprtree.lang")
	defer teardown()
	acct := account{Owner: "ann", Balance: 12.5, Tags: []string{"a", "b"}}
	env := map[string]any{
		"x":    3,
		"y":    4,
		"f":    2.5,
		"s":    "hello",
		"acct": acct,
		"m":    map[string]any{"k": 7},
		"xs":   []int{10, 20, 30},
		"none": nil,
		"small": int8(127),
	}
	cases := []struct {
		name string
		src  string
		want any
	}{
		{"int", "x + y * 2", 11},
		{"widen", "small + 1", int64(128)},
		{"float", "x * f", 7.5},
		{"divide-int", "7 / 2", 3.5},
		{"divide-float", "f / 2", 1.25},
		{"modulus", "y % x", 1},
		{"paren", "(x + y) * 2", 14},
		{"negate", "-x", -3},
		{"plus", "+x", 3},
		{"pow", "2 ** 10", 1024.0},
		{"caret", "x ^ 2", 9.0},
		{"compare", "x < y", true},
		{"equal", "x == 3 && y != 3", true},
		{"or", "x > y or s == 'hello'", true},
		{"not", "not (x < y)", false},
		{"bang", "!false", true},
		{"ternary", "x > y ? 'big' : 'small'", "small"},
		{"concat", "s + ' world'", "hello world"},
		{"field", "acct.Owner", "ann"},
		{"method", "acct.Label()", "ann:2"},
		{"map-member", "m.k", 7},
		{"map-index", "m['k']", 7},
		{"index", "xs[1]", 20},
		{"in-slice", "20 in xs", true},
		{"not-in", "5 not in xs", true},
		{"in-map", "'k' in m", true},
		{"contains", "s contains 'ell'", true},
		{"starts", "s startsWith 'he'", true},
		{"ends", "s endsWith 'lo'", true},
		{"matches", "s matches '^h.*o$'", true},
		{"coalesce-nil", "none ?? 5", 5},
		{"coalesce-set", "x ?? 5", 3},
		{"let", "let z = x * 2; z + z", 12},
		{"let-shadow", "let z = 1; let z = z + 1; z", 2},
		{"len", "len(xs) + len(s)", 8},
		{"abs", "abs(-x)", 3},
		{"abs-float", "abs(-f)", 2.5},
		{"ceil", "ceil(f)", 3.0},
		{"floor", "floor(f)", 2.0},
		{"round", "round(f)", 3.0},
		{"int", "int('12') + int(f)", 14},
		{"float", "float('0.5') + float(x)", 3.5},
		{"string", "string(x) + string(y)", "34"},
		{"upper", "upper(s)", "HELLO"},
		{"pipe", "s | upper()", "HELLO"},
		{"lower", "lower('ABC')", "abc"},
		{"trim", "trim('  a  ')", "a"},
		{"trim-cut", "trim('xxaxx', 'x')", "a"},
		{"max", "max(x, y, 2)", 4},
		{"min", "min(f, x, y)", 2.5},
		{"bitand", "bitand(6, 3)", 2},
		{"bitor", "bitor(6, 3)", 7},
		{"bitxor", "bitxor(6, 3)", 5},
		{"bitnand", "bitnand(6, 3)", 4},
		{"bitshl", "bitshl(1, 4)", 16},
		{"bitshr", "bitshr(16, 2)", 4},
		{"bitnot", "bitnot(0)", -1},
		{"bitushr", "bitushr(-16, 60)", 15},
		{"len-runes", "len('héllo')", 5},
		{"in-map-missing", "'z' in m", false},
		{"in-struct", "'Owner' in acct", true},
		{"split", "split('a,b', ',')", []string{"a", "b"}},
		{"repeat", "repeat('ab', 2)", "abab"},
		{"type", "type(s)", "string"},
		{"range-floats", "len(1..f)", 2},
		{"nil", "nil", nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p, err := Compile(c.src)
			require.NoError(t, err)
			r, err := p.Eval(env)
			require.NoError(t, err)
			assert.Equal(t, c.want, r)
		})
	}
}

func TestEvalCollections(t *testing.T) {
	p := MustCompile("[x, x + 1, 'z']")
	r, err := p.Eval(map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, "z"}, r)

	p = MustCompile("{a: x, 'b': 2}")
	r, err = p.Eval(map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, r)

	p = MustCompile("2..5")
	r, err = p.Eval(nil)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4, 5}, r)

	p = MustCompile("len(3..1)")
	r, err = p.Eval(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, r)
}

func TestNames(t *testing.T) {
	p := MustCompile("b + a * b - c.d")
	assert.Equal(t, []string{"a", "b", "c"}, p.Names())
	// Placeholders are numbered by first use.
	assert.Equal(t, []string{"b", "a", "c"}, p.Placeholders())
	assert.Equal(t, 2, exprtree.MaxPlaceholder(p.Expr()))
	assert.Equal(t, "b + a * b - c.d", p.Source())

	p = MustCompile("let v = 1; v + 2")
	assert.Empty(t, p.Names())
}

func TestMissingName(t *testing.T) {
	p := MustCompile("a + b")
	_, err := p.Eval(map[string]any{"a": 1})
	var ne *exprtree.NameError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "b", ne.Name)
}

func TestFunc(t *testing.T) {
	calls := 0
	double := func(x int) int {
		calls++
		return 2 * x
	}
	fail := func() (int, error) { return 0, errors.New("nope") }
	p, err := Compile("double(x) + 1", Func("double", double))
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, p.Names())
	r, err := p.Eval(map[string]any{"x": 20})
	require.NoError(t, err)
	assert.Equal(t, 41, r)
	assert.Equal(t, 1, calls)

	// Registered functions replace builtins.
	p = MustCompile("len('abc')", Func("len", func(s string) string { return s + "!" }))
	r, err = p.Eval(nil)
	require.NoError(t, err)
	assert.Equal(t, "abc!", r)

	p = MustCompile("fail()", Func("fail", fail))
	_, err = p.Eval(nil)
	var ie *exprtree.InvokeError
	require.ErrorAs(t, err, &ie)
	assert.EqualError(t, ie.Err, "nope")

	// Unregistered functions come from the environment.
	p = MustCompile("g(2)")
	assert.Equal(t, []string{"g"}, p.Names())
	r, err = p.Eval(map[string]any{"g": strconv.Itoa})
	require.NoError(t, err)
	assert.Equal(t, "2", r)
}

func TestEvalOptions(t *testing.T) {
	concat := func(operands ...any) (any, error) {
		var b strings.Builder
		for _, x := range operands {
			b.WriteString(strconv.Quote(fmt.Sprint(x)))
		}
		return b.String(), nil
	}
	p := MustCompile("x + y", EvalOptions(exprtree.WithOp(exprtree.KindPlus, concat)))
	r, err := p.Eval(map[string]any{"x": 1, "y": "a"})
	require.NoError(t, err)
	assert.Equal(t, `"1""a"`, r)

	// Options override the integer division of the language.
	p = MustCompile("7 / 2", EvalOptions(exprtree.WithOp(exprtree.KindDivides, nil)))
	r, err = p.Eval(nil)
	require.NoError(t, err)
	assert.Equal(t, 3, r)

	p = MustCompile("-(-(-x))", EvalOptions(exprtree.MaxDepth(2)))
	_, err = p.Eval(map[string]any{"x": 1})
	var de *exprtree.DepthError
	assert.ErrorAs(t, err, &de)
}

func TestEvalErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		err  any
	}{
		{"int-modulus", "1 % 0", new(*exprtree.DomainError)},
		{"in-number", "1 in 2", new(*exprtree.InvokeError)},
		{"pow-string", "'a' ** 2", new(*exprtree.InvokeError)},
		{"bad-operands", "'a' - 1", new(*exprtree.OperandError)},
		{"index-range", "[1][3]", new(*exprtree.OperandError)},
		{"bad-regexp", "'a' matches '('", new(*exprtree.InvokeError)},
		{"bad-len", "len(1)", new(*exprtree.InvokeError)},
		{"bad-int", "int('x')", new(*exprtree.InvokeError)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p, err := Compile(c.src)
			require.NoError(t, err)
			_, err = p.Eval(nil)
			assert.ErrorAs(t, err, c.err)
		})
	}
}

func TestInMap(t *testing.T) {
	p := MustCompile("k in m")
	// Keys are not converted to the map's key type.
	_, err := p.Eval(map[string]any{"k": 1, "m": map[string]bool{"\x01": true}})
	assert.ErrorAs(t, err, new(*exprtree.InvokeError))
	r, err := p.Eval(map[string]any{"k": "\x01", "m": map[string]bool{"\x01": true}})
	require.NoError(t, err)
	assert.Equal(t, true, r)
	r, err = p.Eval(map[string]any{"k": 1, "m": map[int]string{2: "x"}})
	require.NoError(t, err)
	assert.Equal(t, false, r)
}

func TestCompileErrors(t *testing.T) {
	_, err := Compile("1 +")
	var fe *file.Error
	assert.ErrorAs(t, err, &fe)

	cases := []string{
		"all([1, 2], # > 0)",
		"x?.y",
		"x[1:2]",
		"map([1, 2], # * 2)",
	}
	for _, src := range cases {
		_, err := Compile(src)
		var ue *UnsupportedError
		if assert.ErrorAs(t, err, &ue, "%q", src) {
			assert.NotEmpty(t, ue.Error())
		}
	}
	_, err = Compile("bitand(1)")
	var ae *exprtree.ArityError
	assert.ErrorAs(t, err, &ae)
	assert.Panics(t, func() { MustCompile("(") })
}

func TestProgramFunc(t *testing.T) {
	p := MustCompile("b - a")
	f := p.Func()
	r, err := f(10, 3)
	require.NoError(t, err)
	assert.Equal(t, -7, r)
	_, err = f(1)
	assert.Error(t, err)
}

func TestRepeatedEval(t *testing.T) {
	p := MustCompile("let n = x; n * n")
	for i := 1; i <= 3; i++ {
		r, err := p.Eval(map[string]any{"x": i})
		require.NoError(t, err)
		assert.Equal(t, i*i, r)
	}
}

func TestFold(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "exprtree.lang")
	defer teardown()
	p := MustCompile("x * (2 + 3) + len('abc') - (1 < 2 ? 4 : 5)")
	q, err := p.Fold()
	require.NoError(t, err)
	assert.NotEqual(t, p.String(), q.String())
	assert.Less(t, exprtree.Depth(q.Expr()), exprtree.Depth(p.Expr()))
	// (2 + 3) and the conditional are gone; the call remains.
	var terms, calls, ifs int
	exprtree.Walk(q.Expr(), func(e *exprtree.Expr) bool {
		switch e.Kind() {
		case exprtree.KindTerminal:
			terms++
		case exprtree.KindCall:
			calls++
		case exprtree.KindIfElse:
			ifs++
		}
		return true
	})
	assert.Equal(t, 1, calls)
	assert.Zero(t, ifs)
	assert.Equal(t, 4, terms) // 5, len, 'abc', 4
	for _, x := range []int{0, 1, 7} {
		env := map[string]any{"x": x}
		want, err := p.Eval(env)
		require.NoError(t, err)
		got, err := q.Eval(env)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, p.Names(), q.Names())
}

func TestFoldKeepsErrors(t *testing.T) {
	p := MustCompile("x + 1 % 0")
	q, err := p.Fold()
	require.NoError(t, err)
	assert.Equal(t, p.String(), q.String())
	_, err = q.Eval(map[string]any{"x": 1})
	assert.ErrorAs(t, err, new(*exprtree.DomainError))
}

func TestFoldDivision(t *testing.T) {
	q, err := MustCompile("1 / 4").Fold()
	require.NoError(t, err)
	assert.Equal(t, exprtree.KindTerminal, q.Expr().Kind())
	assert.Equal(t, 0.25, q.Expr().Value())
}

package exprlang

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/builtin"
	"github.com/expr-lang/expr/vm/runtime"

	"github.com/zephyrtronium/exprtree"
)

// binaryFuncs are the binary operators implemented as calls.
var binaryFuncs = map[string]any{
	"**":         binary("**", func(a, b any) any { return runtime.Exponent(a, b) }),
	"^":          binary("^", func(a, b any) any { return runtime.Exponent(a, b) }),
	"??":         binary("??", coalesce),
	"in":         binary("in", func(a, b any) any { return runtime.In(a, b) }),
	"..":         binary("..", span),
	"contains":   strings.Contains,
	"startsWith": strings.HasPrefix,
	"endsWith":   strings.HasSuffix,
	"matches":    matches,
}

// builtinKinds are builtins which are operators.
var builtinKinds = map[string]exprtree.Kind{
	"bitand": exprtree.KindBitwiseAnd,
	"bitor":  exprtree.KindBitwiseOr,
	"bitxor": exprtree.KindBitwiseXor,
	"bitshl": exprtree.KindShiftLeft,
	"bitshr": exprtree.KindShiftRight,
	"bitnot": exprtree.KindComplement,
}

func (c *compiler) builtin(n *ast.BuiltinNode) (*exprtree.Expr, error) {
	args, err := c.nodes(n.Arguments)
	if err != nil {
		return nil, err
	}
	if fn, ok := c.funcs[n.Name]; ok {
		return exprtree.Call(fn, args...), nil
	}
	if k, ok := builtinKinds[n.Name]; ok {
		return exprtree.NewExpr(k, args...)
	}
	if n.Name == "bitnand" {
		if len(args) != 2 {
			return nil, &exprtree.ArityError{Kind: exprtree.KindBitwiseAnd, Got: len(args)}
		}
		return exprtree.BitwiseAnd(args[0], exprtree.Complement(args[1])), nil
	}
	if fn := library(n.Name); fn != nil {
		return exprtree.Call(fn, args...), nil
	}
	return nil, unsupported(n, "builtin "+n.Name)
}

// libFunc is a callee backed by the expr-lang runtime. Its String is the
// name it is called by in source.
type libFunc struct {
	name string
	fn   func(args ...any) (any, error)
}

func (f *libFunc) String() string {
	return f.name
}

// Call calls the function. The runtime reports bad operands by panicking;
// Call returns those panics as errors.
func (f *libFunc) Call(args ...any) (r any, err error) {
	defer func() {
		if x := recover(); x != nil {
			r, err = nil, fmt.Errorf("%s: %v", f.name, x)
		}
	}()
	return f.fn(args...)
}

func binary(name string, fn func(a, b any) any) *libFunc {
	return &libFunc{name: name, fn: func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("%s takes 2 operands, got %d", name, len(args))
		}
		return fn(args[0], args[1]), nil
	}}
}

// library finds an expr-lang builtin by name. The result is nil for
// predicates, which take closures over the collection's elements, and for
// names which are not builtins.
func library(name string) *libFunc {
	i, ok := builtin.Index[name]
	if !ok {
		return nil
	}
	b := builtin.Builtins[i]
	if b.Predicate || b.Fast == nil && b.Func == nil && b.Safe == nil {
		return nil
	}
	return &libFunc{name: name, fn: func(args ...any) (any, error) {
		switch {
		case b.Fast != nil && len(args) == 1:
			return b.Fast(args[0]), nil
		case b.Func != nil:
			return b.Func(args...)
		case b.Safe != nil:
			r, _, err := b.Safe(args...)
			return r, err
		}
		return nil, fmt.Errorf("invalid number of arguments (expected 1, got %d)", len(args))
	}}
}

// divide divides Go numbers as expr-lang does, always giving a float, and
// anything else natively.
func divide(operands ...any) (any, error) {
	a, b := operands[0], operands[1]
	if number(a) && number(b) {
		return runtime.Divide(a, b), nil
	}
	return exprtree.Evaluate(exprtree.Divides(a, b))
}

func number(x any) bool {
	switch x.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

func coalesce(a, b any) any {
	if runtime.IsNil(a) {
		return b
	}
	return a
}

// span gives the integers from a to b inclusive.
func span(a, b any) any {
	return runtime.MakeRange(runtime.ToInt(a), runtime.ToInt(b))
}

func matches(s, pattern string) (bool, error) {
	return regexp.MatchString(pattern, s)
}

func list(xs ...any) []any {
	return xs
}

// record builds a map from alternating keys and values.
func record(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return m
}

// Package exprlang compiles source text in the expr language into expression
// trees. Names the source reads from its environment become placeholders, so
// a Program evaluates against a map of named values:
//
//	p, err := exprlang.Compile(`price * (1 + rate)`)
//	r, err := p.Eval(map[string]any{"price": 100, "rate": 0.25}) // 125.0
//
// Operators follow the expr language where it differs from native Go
// semantics: division of integers yields a float, and ** raises to a power.
// Builtins other than the bit operators call the expr runtime, so len counts
// runes and in looks up map keys without converting them. Predicate builtins
// such as all and filter are not supported.
// Programs which declare variables with let hold the variables in their
// trees, so such a Program must not be evaluated concurrently.
package exprlang

import (
	"fmt"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/emirpasic/gods/sets/treeset"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/npillmayer/schuko/tracing"

	"github.com/zephyrtronium/exprtree"
)

// tracer traces with key 'exprtree.lang'.
func tracer() tracing.Trace {
	return tracing.Select("exprtree.lang")
}

// Program is a compiled expression.
type Program struct {
	src  string
	root *exprtree.Expr
	// names holds the environment names in placeholder order.
	names []string
	ev    *exprtree.Evaluator
}

// Option configures compilation.
type Option func(*compiler)

// Func makes fn callable by name. fn may be any Go function, an
// exprtree.Callable, or an exprtree.Func. Functions take precedence over the
// builtins of the same name.
func Func(name string, fn any) Option {
	return func(c *compiler) {
		c.funcs[name] = fn
	}
}

// EvalOptions adds options for the evaluator the program uses. They apply
// after the program's own operator semantics, so WithOp options override
// them.
func EvalOptions(opts ...exprtree.EvalOption) Option {
	return func(c *compiler) {
		c.evopts = append(c.evopts, opts...)
	}
}

type compiler struct {
	funcs map[string]any
	// vars maps environment names to their placeholders in order of first
	// use.
	vars *linkedhashmap.Map
	// scope maps names declared with let to their storage.
	scope  map[string]*slot
	evopts []exprtree.EvalOption
}

// Compile parses src and builds its expression tree.
func Compile(src string, opts ...Option) (*Program, error) {
	tree, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	c := compiler{
		funcs: make(map[string]any),
		vars:  linkedhashmap.New(),
		scope: make(map[string]*slot),
	}
	for _, opt := range opts {
		opt(&c)
	}
	root, err := c.node(tree.Node)
	if err != nil {
		return nil, err
	}
	p := Program{src: src, root: root, names: make([]string, 0, c.vars.Size())}
	for _, k := range c.vars.Keys() {
		p.names = append(p.names, k.(string))
	}
	evopts := append([]exprtree.EvalOption{exprtree.WithOp(exprtree.KindDivides, divide)}, c.evopts...)
	p.ev = exprtree.NewEvaluator(evopts...)
	tracer().Debugf("compiled %q with %d names", src, len(p.names))
	return &p, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(src string, opts ...Option) *Program {
	p, err := Compile(src, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// Expr returns the program's expression tree.
func (p *Program) Expr() *exprtree.Expr {
	return p.root
}

// Source returns the text the program was compiled from.
func (p *Program) Source() string {
	return p.src
}

// Names returns the sorted environment names the program reads.
func (p *Program) Names() []string {
	set := treeset.NewWithStringComparator()
	for _, name := range p.names {
		set.Add(name)
	}
	r := make([]string, 0, set.Size())
	for _, v := range set.Values() {
		r = append(r, v.(string))
	}
	return r
}

// Placeholders returns the environment names the program reads in
// placeholder order, so that the placeholder with index i stands for the i'th
// name.
func (p *Program) Placeholders() []string {
	return append([]string(nil), p.names...)
}

func (p *Program) String() string {
	return p.root.String()
}

// Eval evaluates the program. Every name the program reads must be in env;
// a missing one gives a *exprtree.NameError.
func (p *Program) Eval(env map[string]any) (any, error) {
	args := make([]any, len(p.names))
	for i, name := range p.names {
		v, ok := env[name]
		if !ok {
			return nil, &exprtree.NameError{Name: name}
		}
		args[i] = v
	}
	return p.ev.Evaluate(p.root, args...)
}

// Func returns a function evaluating the program with positional arguments
// in the order of Names.
func (p *Program) Func() exprtree.Func {
	sorted := p.Names()
	return func(args ...any) (any, error) {
		if len(args) != len(sorted) {
			return nil, fmt.Errorf("exprlang: %d arguments for %d names", len(args), len(sorted))
		}
		env := make(map[string]any, len(args))
		for i, name := range sorted {
			env[name] = args[i]
		}
		return p.Eval(env)
	}
}

// UnsupportedError reports syntax of the expr language which has no
// expression tree form.
type UnsupportedError struct {
	// Construct describes the syntax.
	Construct string
	// From and To are the rune offsets of the syntax in the source.
	From, To int
}

func (err *UnsupportedError) Error() string {
	return fmt.Sprintf("exprlang: %s not supported (at %d)", err.Construct, err.From)
}

func unsupported(n ast.Node, what string) error {
	loc := n.Location()
	return &UnsupportedError{Construct: what, From: loc.From, To: loc.To}
}

// variable returns the tree for a name the source reads.
func (c *compiler) variable(name string) *exprtree.Expr {
	if s, ok := c.scope[name]; ok {
		return exprtree.Call(s)
	}
	if fn, ok := c.funcs[name]; ok {
		return exprtree.Term(fn)
	}
	if v, ok := c.vars.Get(name); ok {
		return v.(*exprtree.Expr)
	}
	v := exprtree.P(c.vars.Size())
	c.vars.Put(name, v)
	return v
}

func (c *compiler) node(n ast.Node) (*exprtree.Expr, error) {
	switch n := n.(type) {
	case *ast.NilNode:
		return exprtree.Term(nil), nil
	case *ast.IntegerNode:
		return exprtree.Term(n.Value), nil
	case *ast.FloatNode:
		return exprtree.Term(n.Value), nil
	case *ast.BoolNode:
		return exprtree.Term(n.Value), nil
	case *ast.StringNode:
		return exprtree.Term(n.Value), nil
	case *ast.ConstantNode:
		return exprtree.Term(n.Value), nil
	case *ast.IdentifierNode:
		return c.variable(n.Value), nil
	case *ast.ChainNode:
		return c.node(n.Node)
	case *ast.UnaryNode:
		x, err := c.node(n.Node)
		if err != nil {
			return nil, err
		}
		switch n.Operator {
		case "-":
			return exprtree.Negate(x), nil
		case "+":
			return exprtree.UnaryPlus(x), nil
		case "!", "not":
			return exprtree.LogicalNot(x), nil
		}
		return nil, unsupported(n, "unary "+n.Operator)
	case *ast.BinaryNode:
		return c.binary(n)
	case *ast.ConditionalNode:
		cond, err := c.node(n.Cond)
		if err != nil {
			return nil, err
		}
		then, err := c.node(n.Exp1)
		if err != nil {
			return nil, err
		}
		els, err := c.node(n.Exp2)
		if err != nil {
			return nil, err
		}
		return exprtree.IfElse(cond, then, els), nil
	case *ast.MemberNode:
		if n.Optional {
			return nil, unsupported(n, "optional member")
		}
		x, err := c.node(n.Node)
		if err != nil {
			return nil, err
		}
		if s, ok := n.Property.(*ast.StringNode); ok {
			return exprtree.MemPtr(x, s.Value), nil
		}
		i, err := c.node(n.Property)
		if err != nil {
			return nil, err
		}
		return exprtree.Subscript(x, i), nil
	case *ast.CallNode:
		fn, err := c.node(n.Callee)
		if err != nil {
			return nil, err
		}
		args, err := c.nodes(n.Arguments)
		if err != nil {
			return nil, err
		}
		return exprtree.Call(fn, args...), nil
	case *ast.BuiltinNode:
		return c.builtin(n)
	case *ast.ArrayNode:
		elems, err := c.nodes(n.Nodes)
		if err != nil {
			return nil, err
		}
		return exprtree.Call(list, elems...), nil
	case *ast.MapNode:
		kv := make([]any, 0, 2*len(n.Pairs))
		for _, pair := range n.Pairs {
			pair := pair.(*ast.PairNode)
			k, err := c.node(pair.Key)
			if err != nil {
				return nil, err
			}
			v, err := c.node(pair.Value)
			if err != nil {
				return nil, err
			}
			kv = append(kv, k, v)
		}
		return exprtree.Call(record, kv...), nil
	case *ast.SequenceNode:
		var r *exprtree.Expr
		for _, s := range n.Nodes {
			x, err := c.node(s)
			if err != nil {
				return nil, err
			}
			if r == nil {
				r = x
			} else {
				r = exprtree.Comma(r, x)
			}
		}
		if r == nil {
			return nil, unsupported(n, "empty sequence")
		}
		return r, nil
	case *ast.VariableDeclaratorNode:
		return c.let(n)
	}
	return nil, unsupported(n, fmt.Sprintf("%T", n))
}

func (c *compiler) nodes(ns []ast.Node) ([]any, error) {
	r := make([]any, len(ns))
	for i, n := range ns {
		x, err := c.node(n)
		if err != nil {
			return nil, err
		}
		r[i] = x
	}
	return r, nil
}

// let compiles a variable declaration. The declaration binds the value to
// a slot before evaluating the body, which reads the slot.
func (c *compiler) let(n *ast.VariableDeclaratorNode) (*exprtree.Expr, error) {
	val, err := c.node(n.Value)
	if err != nil {
		return nil, err
	}
	s := &slot{name: n.Name}
	prev, shadowed := c.scope[n.Name]
	c.scope[n.Name] = s
	body, err := c.node(n.Expr)
	if shadowed {
		c.scope[n.Name] = prev
	} else {
		delete(c.scope, n.Name)
	}
	if err != nil {
		return nil, err
	}
	return exprtree.Comma(exprtree.Call(s, val), body), nil
}

// slot holds a variable declared with let. Called with one argument, it
// binds the argument; with none, it gives the bound value.
type slot struct {
	name string
	v    any
}

func (s *slot) Call(args ...any) (any, error) {
	switch len(args) {
	case 0:
		return s.v, nil
	case 1:
		s.v = args[0]
		return s.v, nil
	}
	return nil, fmt.Errorf("%d arguments to variable %s", len(args), s.name)
}

func (s *slot) String() string {
	return s.name
}

var binaryKinds = map[string]exprtree.Kind{
	"+":   exprtree.KindPlus,
	"-":   exprtree.KindMinus,
	"*":   exprtree.KindMultiplies,
	"/":   exprtree.KindDivides,
	"%":   exprtree.KindModulus,
	"==":  exprtree.KindEqualTo,
	"!=":  exprtree.KindNotEqualTo,
	"<":   exprtree.KindLess,
	">":   exprtree.KindGreater,
	"<=":  exprtree.KindLessEqual,
	">=":  exprtree.KindGreaterEqual,
	"and": exprtree.KindLogicalAnd,
	"&&":  exprtree.KindLogicalAnd,
	"or":  exprtree.KindLogicalOr,
	"||":  exprtree.KindLogicalOr,
}

func (c *compiler) binary(n *ast.BinaryNode) (*exprtree.Expr, error) {
	l, err := c.node(n.Left)
	if err != nil {
		return nil, err
	}
	r, err := c.node(n.Right)
	if err != nil {
		return nil, err
	}
	if k, ok := binaryKinds[n.Operator]; ok {
		return exprtree.MustExpr(k, l, r), nil
	}
	if fn, ok := binaryFuncs[n.Operator]; ok {
		return exprtree.Call(fn, l, r), nil
	}
	return nil, unsupported(n, "operator "+n.Operator)
}

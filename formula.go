package exprtree

import (
	"fmt"
	"io"
	"math/big"
	"strings"
)

// Formula is a parsed calculator expression. Its tree uses ordinary node
// kinds: numbers are terminals holding Number, variables are placeholders
// numbered in the order of Vars, function calls are KindCall nodes whose
// callee holds a *FuncRef, and ^ is KindBitwiseXor. A Context gives ^ the
// meaning of exponentiation and makes comparisons yield 1 or 0.
type Formula struct {
	root *Expr
	// names is the sorted list of variable names. The placeholder for
	// names[i] has index i.
	names []string
	// assigned is the set of names which the formula assigns.
	assigned map[string]bool
}

// Number is the text of a numeric literal in a formula. A Context converts it
// to a *big.Float at its precision when it evaluates the formula.
type Number string

// Expr returns the formula's expression tree. The tree is shared with the
// formula.
func (f *Formula) Expr() *Expr {
	return f.root
}

// Vars returns the variable names used when evaluating the formula.
func (f *Formula) Vars() []string {
	return append(([]string)(nil), f.names...)
}

// Assigns reports whether the formula assigns to the named variable.
func (f *Formula) Assigns(name string) bool {
	return f.assigned[name]
}

// Eval evaluates the formula in ctx. It is the same as ctx.Eval(f).
func (f *Formula) Eval(ctx *Context) *big.Float {
	return ctx.Eval(f)
}

// String creates a string representation of the formula, with alternating
// round and square brackets grouping each term.
func (f *Formula) String() string {
	pr := printer{name: func(e *Expr) string { return f.names[e.Index()] }}
	pr.format(f.root, false)
	return pr.b.String()
}

// printer formats formula trees in formula syntax.
type printer struct {
	b    strings.Builder
	name func(*Expr) string
}

func (pr *printer) format(e *Expr, square bool) {
	b := &pr.b
	var l, r byte = '(', ')'
	if square {
		l, r = '[', ']'
	}
	b.WriteByte(l)
	defer b.WriteByte(r)
	switch k := e.kind; {
	case k == KindTerminal:
		switch v := e.payload().(type) {
		case Number:
			b.WriteString(string(v))
		default:
			fmt.Fprint(b, v)
		}
	case k == KindPlaceholder:
		b.WriteString(pr.name(e))
	case k == KindExprRef:
		pr.format(e.Deref(), !square)
	case k == KindCall:
		fmt.Fprint(b, e.Callee().Value())
		var semis []int
		if fn, ok := e.Callee().Value().(*FuncRef); ok {
			semis = fn.Semis
		}
		pr.args(e.Args(), semis, !square)
	case k == KindIfElse:
		pr.format(e.elems[0].(*Expr), !square)
		b.WriteString(" ? ")
		pr.format(e.elems[1].(*Expr), !square)
		b.WriteString(" : ")
		pr.format(e.elems[2].(*Expr), !square)
	case k.Valid() && kinds[k].arity == ArityOne:
		b.WriteString(kinds[k].op)
		pr.format(e.elems[0].(*Expr), !square)
	case k.Valid() && kinds[k].arity == ArityTwo:
		pr.format(e.elems[0].(*Expr), !square)
		b.WriteByte(' ')
		b.WriteString(kinds[k].op)
		b.WriteByte(' ')
		pr.format(e.elems[1].(*Expr), !square)
	default:
		panic("exprtree: invalid node kind " + k.String() + " after writing " + b.String())
	}
}

func (pr *printer) args(args []*Expr, semis []int, square bool) {
	b := &pr.b
	var l, r byte = '(', ')'
	if square {
		l, r = '[', ']'
	}
	b.WriteByte(l)
	defer b.WriteByte(r)
	for i, a := range args {
		if i > 0 {
			sep := ", "
			for _, s := range semis {
				if s == i {
					sep = "; "
				}
			}
			b.WriteString(sep)
		}
		pr.format(a, !square)
	}
}

// Context is a context for evaluating formulas. It is not safe to use a
// Context concurrently.
type Context struct {
	nums  map[string]*big.Float
	names map[string]*big.Float
	prec  uint

	result *big.Float
	err    error
	done   bool
	busy   bool
}

// ContextOption is an option used when creating a context.
type ContextOption interface {
	ctxOption()
}

type (
	varopt struct {
		name string
		val  *big.Float
	}
	varsopt map[string]*big.Float
	precopt uint
)

func (varopt) ctxOption()  {}
func (varsopt) ctxOption() {}
func (precopt) ctxOption() {}

// SetVar sets the value of a variable in the context.
func SetVar(name string, val *big.Float) ContextOption {
	return varopt{name, val}
}

// SetVars sets the values of any number of variables in the context.
func SetVars(vars map[string]*big.Float) ContextOption {
	return varsopt(vars)
}

// Prec sets the precision of calculations.
func Prec(prec uint) ContextOption {
	return precopt(prec)
}

// NewContext creates a new evaluation context. If no precision is given, the
// default is 64.
func NewContext(opts ...ContextOption) *Context {
	ctx := Context{nums: make(map[string]*big.Float), prec: 64}
	return ctx.Clone(opts...)
}

// Eval evaluates a formula and returns the result. If an error occurs, e.g. a
// missing variable definition or an argument to a function is outside the
// function's domain, then the result is nil and ctx.Err returns the error.
//
// Variables the formula assigns take their new values in ctx only if the
// whole evaluation succeeds. An assigned variable which ctx does not define
// starts at zero.
func (ctx *Context) Eval(f *Formula) *big.Float {
	if ctx.busy {
		panic("exprtree: Eval during Eval")
	}
	ctx.busy = true
	defer func() { ctx.busy = false }()
	ctx.done = true
	ctx.result, ctx.err = ctx.eval(f)
	if ctx.err != nil {
		tracer().Debugf("formula %v: %v", f, ctx.err)
		return nil
	}
	return ctx.result
}

func (ctx *Context) eval(f *Formula) (*big.Float, error) {
	root, err := TransformExpr(f.root, ctx.numbers())
	if err != nil {
		return nil, err
	}
	// Variables are passed as pointers so that assignments go through to
	// them. Assigned variables work on copies until evaluation succeeds.
	args := make([]any, len(f.names))
	for i, name := range f.names {
		v := ctx.names[name]
		switch {
		case f.assigned[name]:
			x := new(big.Float).SetPrec(ctx.prec)
			if v != nil {
				x.Set(v)
			}
			v = x
		case v == nil:
			return nil, &NameError{Name: name}
		}
		args[i] = v
	}
	r, err := ctx.evaluator().Evaluate(root, args...)
	if err != nil {
		return nil, err
	}
	for i, name := range f.names {
		if f.assigned[name] {
			ctx.names[name] = args[i].(*big.Float)
		}
	}
	x, ok := r.(*big.Float)
	if !ok {
		return nil, &ConversionError{Value: r, To: "*big.Float"}
	}
	return new(big.Float).SetPrec(ctx.prec).Set(x), nil
}

// numbers converts Number terminals to floats at the context's precision.
func (ctx *Context) numbers() Visitor {
	return &Table{Tags: map[Kind]TagFunc{
		KindTerminal: func(elems ...any) (any, error) {
			s, ok := elems[0].(Number)
			if !ok {
				return elems[0], nil
			}
			x, err := ctx.num(string(s))
			if err != nil {
				return nil, err
			}
			return new(big.Float).Copy(x), nil
		},
	}}
}

// evaluator creates the evaluator for formulas in ctx.
func (ctx *Context) evaluator() *Evaluator {
	opts := []EvalOption{
		WithOp(KindCall, ctx.callOp),
		WithOp(KindBitwiseXor, ctx.powOp),
	}
	for _, k := range []Kind{KindLess, KindGreater, KindLessEqual, KindGreaterEqual, KindEqualTo, KindNotEqualTo} {
		opts = append(opts, WithOp(k, ctx.cmpOp(k)))
	}
	return NewEvaluator(opts...)
}

func (ctx *Context) callOp(operands ...any) (any, error) {
	fn, ok := operands[0].(*FuncRef)
	if !ok {
		return call(operands[0], operands[1:])
	}
	return ctx.call(fn, operands[1:])
}

var powref = &FuncRef{Name: "^", Fn: powfn{}}

func (ctx *Context) powOp(operands ...any) (any, error) {
	return ctx.call(powref, operands)
}

// cmpOp makes a comparison yield 1 or 0.
func (ctx *Context) cmpOp(k Kind) OpFunc {
	return func(operands ...any) (any, error) {
		r, err := binaryOp(k, operands[0], operands[1])
		if err != nil {
			return nil, err
		}
		z := new(big.Float).SetPrec(ctx.prec)
		if b, _ := r.(bool); b {
			z.SetInt64(1)
		}
		return z, nil
	}
}

// Result returns the result obtained after evaluating a formula. Panics if
// ctx has not been used to evaluate a formula. Returns nil if an error
// occurred during evaluation.
func (ctx *Context) Result() *big.Float {
	if !ctx.done {
		panic("exprtree: Context.Result called before evaluating any formula")
	}
	if ctx.err != nil {
		return nil
	}
	return ctx.result
}

// Err returns the error that occurred while evaluating the last formula with
// ctx, if any.
func (ctx *Context) Err() error {
	return ctx.err
}

// Set sets the value of a variable. Returns ctx for chaining. Calling Set
// while the context is being used to evaluate a formula panics.
func (ctx *Context) Set(name string, value *big.Float) *Context {
	if ctx.busy {
		panic("exprtree: Set on in-use context")
	}
	if ctx.names == nil {
		ctx.names = make(map[string]*big.Float)
	}
	ctx.names[name] = new(big.Float).SetPrec(ctx.prec).Set(value)
	return ctx
}

// Lookup returns a copy of the value of a variable. If there is no such
// variable in the context, then the result is nil.
func (ctx *Context) Lookup(name string) *big.Float {
	v := ctx.names[name]
	if v == nil {
		return nil
	}
	return new(big.Float).Copy(v)
}

// Vars returns the sorted names of the variables defined in the context.
func (ctx *Context) Vars() []string {
	return sortnames(ctx.names)
}

// Prec returns the precision to which values are computed in the context.
func (ctx *Context) Prec() uint {
	return ctx.prec
}

// Clone creates a copy of a context and applies options to it. The returned
// context has no Result and is safe to use to evaluate a formula.
func (ctx *Context) Clone(opts ...ContextOption) *Context {
	n := Context{
		nums:  make(map[string]*big.Float, len(ctx.nums)),
		names: make(map[string]*big.Float, len(ctx.names)),
		prec:  ctx.prec,
	}
	// First, check for a precision setting. Loop backward so we apply the last
	// precision.
	for i := len(opts) - 1; i >= 0; i-- {
		if p, ok := opts[i].(precopt); ok {
			n.prec = uint(p)
			break
		}
	}
	// Copy numbers only if the new precision is no higher than the old, so
	// that we always use the precision we need.
	if n.prec <= ctx.prec {
		for k, v := range ctx.nums {
			n.nums[k] = new(big.Float).SetPrec(n.prec).Set(v)
		}
	}
	// Copy variables. Formulas assign through the pointers, so clones never
	// share them.
	for name, val := range ctx.names {
		n.names[name] = new(big.Float).SetPrec(n.prec).Set(val)
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		switch opt := opt.(type) {
		case varopt:
			n.names[opt.name] = new(big.Float).SetPrec(n.prec).Set(opt.val)
		case varsopt:
			for k, v := range opt {
				n.names[k] = new(big.Float).SetPrec(n.prec).Set(v)
			}
		case precopt:
			// Already done. Do nothing.
		default:
			panic("exprtree: unknown option type")
		}
	}
	return &n
}

// num gets a possibly cached number from its text.
func (ctx *Context) num(s string) (*big.Float, error) {
	if r := ctx.nums[s]; r != nil {
		return r, nil
	}
	t := s
	if t == "∞" {
		t = "inf"
	}
	r, _, err := new(big.Float).SetPrec(ctx.prec).Parse(t, 0)
	switch {
	case err == nil: // do nothing
	case err.Error() == "exponent overflow",
		strings.HasSuffix(err.Error(), ": value out of range"):
		// There isn't realistically any better way to detect this error.
		// N.B. t is non-empty, otherwise we couldn't overflow.
		r = new(big.Float).SetPrec(ctx.prec).SetInf(t[0] == '-')
	default:
		return nil, &ConversionError{Value: Number(s), To: "*big.Float"}
	}
	ctx.nums[s] = r
	return r, nil
}

// Eval is a shortcut to parse a formula and return its result using the
// default functions.
func Eval(src io.RuneScanner, opts ...ContextOption) (*big.Float, error) {
	ctx := NewContext(opts...)
	f, err := Parse(src)
	if err != nil {
		return nil, err
	}
	ctx.Eval(f)
	return ctx.Result(), ctx.Err()
}

// EvalString is a shortcut to parse and evaluate a string formula.
func EvalString(src string, opts ...ContextOption) (*big.Float, error) {
	return Eval(strings.NewReader(src), opts...)
}

package exprtree

import (
	"errors"
	"math/big"
	"strconv"

	"github.com/zephyrtronium/bigfloat"
)

// RealFunc is a function from reals to reals for use in formulas. Functions
// may but generally should not look up variables.
type RealFunc interface {
	// Call evaluates the function. The function arguments are passed in invoc.
	// semis is the indices of arguments which are preceded by semicolons.
	// The function may but generally should not look up variables. The
	// function must set r to its result and should not use the value of r
	// otherwise. invoc has a length for which CanCall returned true. Call may
	// modify the elements of invoc.
	Call(ctx *Context, invoc []*big.Float, semis []int, r *big.Float) error

	// CanCall returns whether the function can be called with n arguments.
	// This controls how the formula parser handles instances of this
	// function:
	//
	// 	1.	If a bracketed list of n > 0 expressions follows a function, the
	//		parser treats it as an argument list if CanCall(n). (If n is 1 and
	//		!CanCall(1) and CanCall(0), then the list is a multiplication;
	//		otherwise, it is rejected.)
	//
	// 	2.	If a bare term follows a function and CanCall(1), then the parser
	//		treats the term as an argument to the function. E.g., "exp x" is
	//		parsed as "exp(x)". (If !CanCall(1), then it is a multiplication.)
	CanCall(n int) bool
}

var globalfuncs = map[string]RealFunc{
	"exp":  Monadic(bigfloat.Exp),
	"ln":   Monadic(ln),
	"log":  logfn{},
	"sqrt": Monadic((*big.Float).Sqrt),

	// trig, not yet implemented in dependencies
	"cos":   nil,
	"sin":   nil,
	"tan":   nil,
	"acos":  nil,
	"asin":  nil,
	"atan":  nil,
	"cosh":  nil,
	"sinh":  nil,
	"tanh":  nil,
	"acosh": nil,
	"asinh": nil,
	"atanh": nil,

	// constants
	"pi": Niladic(bigfloat.Pi),
	"e": Niladic(func(out *big.Float) *big.Float {
		var one big.Float
		one.SetFloat64(1)
		return bigfloat.Exp(out, &one)
	}),
}

// ln is the natural logarithm with a domain check.
func ln(out, in *big.Float) *big.Float {
	if in.Signbit() && in.Sign() != 0 {
		panic(big.ErrNaN{})
	}
	return bigfloat.Log(out, in)
}

// nanerr turns a big.ErrNaN panic from f into a *DomainError about x.
func nanerr(x *big.Float, arg int, name string, err *error) {
	r := recover()
	if r == nil {
		return
	}
	e, ok := r.(error)
	if !ok {
		panic(r)
	}
	var d *DomainError
	if errors.As(e, &d) {
		*err = d
		return
	}
	if errors.As(e, new(big.ErrNaN)) {
		*err = &DomainError{X: x, Arg: arg, Func: name}
		return
	}
	panic(r)
}

type monadic struct {
	f func(out, in *big.Float) *big.Float
}

func (m monadic) Call(ctx *Context, invoc []*big.Float, semis []int, r *big.Float) (err error) {
	in := invoc[0]
	defer nanerr(in, 1, "", &err)
	r.SetPrec(ctx.Prec())
	m.f(r, in)
	return nil
}

func (m monadic) CanCall(n int) bool {
	return n == 1
}

// Monadic wraps a function of one variable into a RealFunc. f must set out to
// its result, to the precision of in; its return value is always ignored. If f
// is called on an argument outside f's domain, it should panic with an error
// of type big.ErrNaN, or that unwraps to it.
func Monadic(f func(out, in *big.Float) *big.Float) RealFunc {
	return monadic{f}
}

type niladic struct {
	f func(out *big.Float) *big.Float
}

func (n niladic) Call(ctx *Context, invoc []*big.Float, semis []int, r *big.Float) error {
	r.SetPrec(ctx.Prec())
	n.f(r)
	return nil
}

func (n niladic) CanCall(k int) bool {
	return k == 0
}

// Niladic wraps a function of zero variables, generally a function which
// computes a constant, into a RealFunc. f must set out to its result; its
// return value is always ignored. Unlike Monadic, the wrapped function is expected
// never to panic.
func Niladic(f func(out *big.Float) *big.Float) RealFunc {
	return niladic{f}
}

// logfn is the common logarithm, or the logarithm to a base given as a second
// argument.
type logfn struct{}

func (logfn) Call(ctx *Context, invoc []*big.Float, semis []int, r *big.Float) (err error) {
	x := invoc[0]
	base := new(big.Float).SetPrec(ctx.Prec()).SetInt64(10)
	if len(invoc) == 2 {
		base = invoc[1]
		if base.Sign() <= 0 || base.Cmp(big.NewFloat(1)) == 0 {
			return &DomainError{X: base, Arg: 2, Func: "log"}
		}
	}
	if x.Sign() <= 0 {
		return &DomainError{X: x, Arg: 1, Func: "log"}
	}
	defer nanerr(x, 1, "log", &err)
	r.SetPrec(ctx.Prec())
	bigfloat.Log(r, x)
	lb := new(big.Float).SetPrec(ctx.Prec())
	bigfloat.Log(lb, base)
	r.Quo(r, lb)
	return nil
}

func (logfn) CanCall(n int) bool {
	return n == 1 || n == 2
}

// powfn raises its first argument to the power of its second. Formulas use it
// for the ^ operator.
type powfn struct{}

func (powfn) Call(ctx *Context, invoc []*big.Float, semis []int, r *big.Float) (err error) {
	x, y := invoc[0], invoc[1]
	r.SetPrec(ctx.Prec())
	switch {
	case y.Sign() == 0:
		r.SetInt64(1)
		return nil
	case x.Sign() == 0 && y.Sign() > 0:
		r.SetInt64(0)
		return nil
	case x.Sign() == 0:
		r.SetInf(false)
		return nil
	}
	if !x.Signbit() {
		defer nanerr(x, 1, "^", &err)
		bigfloat.Pow(r, x, y)
		return nil
	}
	// A negative base has a real power only for integer exponents.
	if !y.IsInt() {
		return &DomainError{X: x, Arg: 1, Func: "^"}
	}
	defer nanerr(x, 1, "^", &err)
	ax := new(big.Float).Abs(x)
	bigfloat.Pow(r, ax, y)
	odd := new(big.Float).Quo(y, big.NewFloat(2))
	if !odd.IsInt() {
		r.Neg(r)
	}
	return nil
}

func (powfn) CanCall(n int) bool {
	return n == 2
}

// FuncRef is the callee of a function call in a formula.
type FuncRef struct {
	// Name is the name the function was parsed with.
	Name string
	Fn   RealFunc
	// Semis is the indices of arguments which are preceded by semicolons.
	Semis []int
}

func (f *FuncRef) String() string {
	return f.Name
}

// Call calls the function with a default context. Arguments must be numbers.
func (f *FuncRef) Call(args ...any) (any, error) {
	return NewContext().call(f, args)
}

// call converts args to floats at the context's precision and calls fn.
func (ctx *Context) call(fn *FuncRef, args []any) (any, error) {
	if !fn.Fn.CanCall(len(args)) {
		return nil, &OperandError{Kind: KindCall, Operands: append([]any{fn}, args...), Reason: "cannot call " + fn.Name + " with " + strconv.Itoa(len(args)) + " arguments"}
	}
	invoc := make([]*big.Float, len(args))
	for i, a := range args {
		x, ok := convertValue(a, bigFloatType)
		if !ok || x.IsNil() {
			return nil, &OperandError{Kind: KindCall, Operands: append([]any{fn}, args...), Reason: "argument " + strconv.Itoa(i+1) + " is not a number"}
		}
		invoc[i] = new(big.Float).SetPrec(ctx.prec).Set(x.Interface().(*big.Float))
	}
	r := new(big.Float).SetPrec(ctx.prec)
	if err := fn.Fn.Call(ctx, invoc, fn.Semis, r); err != nil {
		return nil, err
	}
	return r, nil
}

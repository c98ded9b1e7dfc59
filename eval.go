package exprtree

import (
	"reflect"
)

// Evaluator evaluates expressions. The zero Evaluator is not usable; create
// one with NewEvaluator. An Evaluator may be shared between goroutines, but
// evaluating the same tree concurrently is only safe if the tree contains no
// assignments.
type Evaluator struct {
	ops      map[Kind]OpFunc
	as       AsFunc
	convert  bool
	maxDepth int
}

// OpFunc implements an operator in place of its native semantics. It
// receives the evaluated operands in order, as they are: pointers are not
// loaded. For KindLogicalAnd, KindLogicalOr, and KindIfElse, each operand is
// instead a Lazy which evaluates the operand when called, so the function
// decides which operands are evaluated at all.
type OpFunc func(operands ...any) (any, error)

// Lazy evaluates an operand on demand.
type Lazy func() (any, error)

// AsFunc evaluates e with args to a result of type t. If it does not handle
// the request, EvaluateWith evaluates e normally and converts the result.
type AsFunc func(e *Expr, t reflect.Type, args []any) (result any, handled bool, err error)

// EvalOption is an option used when creating an evaluator.
type EvalOption interface {
	evalOption()
}

type (
	opopt struct {
		kind Kind
		fn   OpFunc
	}
	asopt    AsFunc
	convopt  bool
	depthopt int
)

func (opopt) evalOption()    {}
func (asopt) evalOption()    {}
func (convopt) evalOption()  {}
func (depthopt) evalOption() {}

// WithOp replaces the semantics of operator kind k with fn. A nil fn
// restores the native semantics.
func WithOp(k Kind, fn OpFunc) EvalOption {
	if !k.Valid() || kinds[k].arity == ArityZero {
		panic("exprtree: WithOp on non-operator kind " + k.String())
	}
	return opopt{k, fn}
}

// WithAs sets the function EvaluateWith consults before evaluating.
func WithAs(fn AsFunc) EvalOption {
	return asopt(fn)
}

// EnableConversion allows Convert.
func EnableConversion() EvalOption {
	return convopt(true)
}

// MaxDepth limits how deeply nested an expression the evaluator accepts.
func MaxDepth(n int) EvalOption {
	if n <= 0 {
		panic("exprtree: MaxDepth must be positive")
	}
	return depthopt(n)
}

// NewEvaluator creates an evaluator with the given options applied in order.
// Unless options say otherwise, conversion follows the ConversionEnv
// environment variable and the depth limit follows MaxDepthEnv.
func NewEvaluator(opts ...EvalOption) *Evaluator {
	ev := Evaluator{convert: env.Conversion, maxDepth: env.MaxDepth}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		switch opt := opt.(type) {
		case opopt:
			if ev.ops == nil {
				ev.ops = make(map[Kind]OpFunc)
			}
			if opt.fn == nil {
				delete(ev.ops, opt.kind)
			} else {
				ev.ops[opt.kind] = opt.fn
			}
		case asopt:
			ev.as = AsFunc(opt)
		case convopt:
			ev.convert = bool(opt)
		case depthopt:
			ev.maxDepth = int(opt)
		default:
			panic("exprtree: unknown option type")
		}
	}
	return &ev
}

func defaultEvaluator() *Evaluator {
	return &Evaluator{convert: env.Conversion, maxDepth: env.MaxDepth}
}

// Evaluate evaluates e with the default evaluator. Placeholder i takes the
// value args[i].
func Evaluate(e *Expr, args ...any) (any, error) {
	return defaultEvaluator().Evaluate(e, args...)
}

// Evaluate evaluates e with the default evaluator.
func (e *Expr) Evaluate(args ...any) (any, error) {
	return defaultEvaluator().Evaluate(e, args...)
}

// Func returns a function evaluating e with the default evaluator.
func (e *Expr) Func() Func {
	return Function(e)
}

// Evaluate evaluates e. Placeholder i takes the value args[i]; pointer
// arguments are used as they are, so a placeholder evaluates to the very
// pointer passed for it.
//
// If e has a placeholder with no matching argument, Evaluate returns a
// *PlaceholderError without evaluating anything.
func (ev *Evaluator) Evaluate(e *Expr, args ...any) (any, error) {
	if m := MaxPlaceholder(e); m >= len(args) {
		return nil, &PlaceholderError{Index: m, Args: len(args)}
	}
	tracer().Debugf("evaluate %v with %d arguments", e.kind, len(args))
	s := evaluation{ev: ev, args: args}
	o, err := s.eval(e)
	if err != nil {
		tracer().Debugf("evaluate %v: %v", e.kind, err)
		return nil, err
	}
	return o.v, nil
}

// EvaluateAs evaluates e with the default evaluator and converts the result
// to R.
func EvaluateAs[R any](e *Expr, args ...any) (R, error) {
	return EvaluateWith[R](defaultEvaluator(), e, args...)
}

// EvaluateWith evaluates e with ev and converts the result to R. A result
// which is a pointer to R is loaded, and numbers convert between types.
// If ev has an AsFunc, it is consulted first.
func EvaluateWith[R any](ev *Evaluator, e *Expr, args ...any) (R, error) {
	var zero R
	t := reflect.TypeOf((*R)(nil)).Elem()
	var (
		r       any
		handled bool
		err     error
	)
	if ev.as != nil {
		r, handled, err = ev.as(e, t, args)
		if err != nil {
			return zero, err
		}
	}
	if !handled {
		r, err = ev.Evaluate(e, args...)
		if err != nil {
			return zero, err
		}
	}
	v, ok := convertValue(r, t)
	if !ok {
		return zero, &ConversionError{Value: r, To: t.String()}
	}
	if x, ok := v.Interface().(R); ok {
		return x, nil
	}
	return zero, nil
}

// Convert evaluates e and stores the result in the value dst points to,
// converting it to that type. Convert returns ErrConversionDisabled unless
// ev was created with EnableConversion or the ConversionEnv environment
// variable is set.
func (ev *Evaluator) Convert(e *Expr, dst any, args ...any) error {
	if !ev.convert {
		return ErrConversionDisabled
	}
	d := reflect.ValueOf(dst)
	if d.Kind() != reflect.Pointer || d.IsNil() {
		panic("exprtree: Convert destination must be a non-nil pointer")
	}
	r, err := ev.Evaluate(e, args...)
	if err != nil {
		return err
	}
	v, ok := convertValue(r, d.Type().Elem())
	if !ok {
		return &ConversionError{Value: r, To: d.Type().Elem().String()}
	}
	d.Elem().Set(v)
	return nil
}

// Convert evaluates e with the default evaluator and stores the result in
// the value dst points to.
func (e *Expr) Convert(dst any) error {
	return defaultEvaluator().Convert(e, dst)
}

// evaluation is the state of one call to Evaluate.
type evaluation struct {
	ev    *Evaluator
	args  []any
	depth int
}

// operand is an evaluated subexpression. When it denotes storage, ref is
// that storage, or m and k locate the map entry holding it.
type operand struct {
	v    any
	ref  reflect.Value
	m, k reflect.Value
}

func (s *evaluation) eval(e *Expr) (operand, error) {
	s.depth++
	defer func() { s.depth-- }()
	if s.depth > s.ev.maxDepth {
		return operand{}, &DepthError{Max: s.ev.maxDepth}
	}
	switch e.kind {
	case KindTerminal:
		c := e.cell.Elem()
		return operand{v: c.Interface(), ref: c}, nil
	case KindPlaceholder:
		return operand{v: s.args[e.elems[0].(int)]}, nil
	case KindExprRef:
		return s.eval(e.Deref())
	}
	if fn := s.ev.ops[e.kind]; fn != nil {
		return s.custom(e, fn)
	}
	switch e.kind {
	case KindLogicalAnd, KindLogicalOr:
		return s.logical(e)
	case KindIfElse:
		c, err := s.value(e.elems[0])
		if err != nil {
			return operand{}, err
		}
		b, err := truth(KindIfElse, c)
		if err != nil {
			return operand{}, err
		}
		if b {
			return s.eval(e.elems[1].(*Expr))
		}
		return s.eval(e.elems[2].(*Expr))
	case KindComma:
		if _, err := s.eval(e.elems[0].(*Expr)); err != nil {
			return operand{}, err
		}
		return s.eval(e.elems[1].(*Expr))
	case KindCall:
		vals, err := s.values(e.elems)
		if err != nil {
			return operand{}, err
		}
		r, err := call(vals[0], vals[1:])
		return operand{v: r}, err
	case KindAssign:
		l, r, err := s.pair(e)
		if err != nil {
			return operand{}, err
		}
		p, err := store(KindAssign, l, r.v)
		return operand{v: p}, err
	case KindPreInc, KindPreDec, KindPostInc, KindPostDec:
		return s.step(e)
	case KindAddressOf:
		o, err := s.eval(e.elems[0].(*Expr))
		if err != nil {
			return operand{}, err
		}
		if o.ref.IsValid() && o.ref.CanAddr() {
			return operand{v: o.ref.Addr().Interface()}, nil
		}
		return operand{}, &OperandError{Kind: e.kind, Operands: []any{o.v}, Reason: "operand is not addressable"}
	case KindDereference:
		o, err := s.eval(e.elems[0].(*Expr))
		if err != nil {
			return operand{}, err
		}
		return deref(o.v)
	case KindSubscript:
		l, r, err := s.pair(e)
		if err != nil {
			return operand{}, err
		}
		return index(l, r.v)
	case KindMemPtr:
		l, r, err := s.pair(e)
		if err != nil {
			return operand{}, err
		}
		return member(l, r.v)
	}
	if base, ok := compound[e.kind]; ok {
		l, r, err := s.pair(e)
		if err != nil {
			return operand{}, err
		}
		x, err := binaryOp(base, l.v, r.v)
		if err != nil {
			return operand{}, err
		}
		p, err := store(e.kind, l, x)
		return operand{v: p}, err
	}
	switch kinds[e.kind].arity {
	case ArityOne:
		x, err := s.value(e.elems[0])
		if err != nil {
			return operand{}, err
		}
		r, err := unaryOp(e.kind, x)
		return operand{v: r}, err
	case ArityTwo:
		l, r, err := s.pair(e)
		if err != nil {
			return operand{}, err
		}
		x, err := binaryOp(e.kind, l.v, r.v)
		return operand{v: x}, err
	}
	panic("exprtree: invalid node kind " + e.kind.String())
}

// value evaluates an element and discards its storage.
func (s *evaluation) value(x any) (any, error) {
	o, err := s.eval(x.(*Expr))
	return o.v, err
}

func (s *evaluation) values(elems []any) ([]any, error) {
	v := make([]any, len(elems))
	for i, x := range elems {
		r, err := s.value(x)
		if err != nil {
			return nil, err
		}
		v[i] = r
	}
	return v, nil
}

// pair evaluates the operands of a binary node left to right.
func (s *evaluation) pair(e *Expr) (l, r operand, err error) {
	l, err = s.eval(e.elems[0].(*Expr))
	if err != nil {
		return l, r, err
	}
	r, err = s.eval(e.elems[1].(*Expr))
	return l, r, err
}

func (s *evaluation) logical(e *Expr) (operand, error) {
	l, err := s.value(e.elems[0])
	if err != nil {
		return operand{}, err
	}
	b, err := truth(e.kind, l)
	if err != nil {
		return operand{}, err
	}
	if b == (e.kind == KindLogicalOr) {
		return operand{v: b}, nil
	}
	r, err := s.value(e.elems[1])
	if err != nil {
		return operand{}, err
	}
	b, err = truth(e.kind, r)
	return operand{v: b}, err
}

// step evaluates increments and decrements.
func (s *evaluation) step(e *Expr) (operand, error) {
	o, err := s.eval(e.elems[0].(*Expr))
	if err != nil {
		return operand{}, err
	}
	cur := load(o.v)
	op := KindPlus
	if e.kind == KindPreDec || e.kind == KindPostDec {
		op = KindMinus
	}
	x, err := binaryOp(op, cur, 1)
	if err != nil {
		return operand{}, err
	}
	p, err := store(e.kind, o, x)
	if err != nil {
		return operand{}, err
	}
	if e.kind == KindPostInc || e.kind == KindPostDec {
		return operand{v: cur}, nil
	}
	return operand{v: p}, nil
}

func (s *evaluation) custom(e *Expr, fn OpFunc) (operand, error) {
	var vals []any
	switch e.kind {
	case KindLogicalAnd, KindLogicalOr, KindIfElse:
		vals = make([]any, len(e.elems))
		for i, x := range e.elems {
			x := x.(*Expr)
			vals[i] = Lazy(func() (any, error) {
				o, err := s.eval(x)
				return o.v, err
			})
		}
	default:
		var err error
		vals, err = s.values(e.elems)
		if err != nil {
			return operand{}, err
		}
	}
	r, err := fn(vals...)
	return operand{v: r}, err
}

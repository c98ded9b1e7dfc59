package exprtree

import (
	"fmt"
	"math"
	"reflect"

	"golang.org/x/exp/constraints"
)

// Operand is implemented by values that define their own operator
// semantics. The evaluator calls Op on the first operand of an operator with
// the remaining operands, so unary operators pass none. When only the right
// operand of a binary operator is an Operand, its Op receives both operands
// in order, so the receiver is the second of them.
type Operand interface {
	Op(k Kind, operands ...any) (any, error)
}

// Callable is implemented by values that can be the callee of a call
// expression.
type Callable interface {
	Call(args ...any) (any, error)
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

type family int8

const (
	famNone family = iota
	famBool
	famString
	famInt
	famUint
	famFloat
	famComplex
)

func familyOf(v reflect.Value) family {
	if !v.IsValid() {
		return famNone
	}
	switch v.Kind() {
	case reflect.Bool:
		return famBool
	case reflect.String:
		return famString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return famInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return famUint
	case reflect.Float32, reflect.Float64:
		return famFloat
	case reflect.Complex64, reflect.Complex128:
		return famComplex
	default:
		return famNone
	}
}

func (f family) numeric() bool {
	return f >= famInt
}

func (f family) integer() bool {
	return f == famInt || f == famUint
}

// load dereferences pointers to basic values so that value operators see
// what they point to.
func load(x any) any {
	v := reflect.ValueOf(x)
	if v.Kind() == reflect.Pointer && !v.IsNil() && familyOf(v.Elem()) != famNone {
		return v.Elem().Interface()
	}
	return x
}

// truth converts a condition to bool. Numbers are true when nonzero,
// strings when nonempty, and pointers, maps, slices, functions, channels,
// and interfaces when non-nil.
func truth(k Kind, x any) (bool, error) {
	if x == nil {
		return false, nil
	}
	if b, ok := bigTruth(x); ok {
		return b, nil
	}
	x = load(x)
	v := reflect.ValueOf(x)
	switch familyOf(v) {
	case famBool:
		return v.Bool(), nil
	case famString:
		return v.Len() != 0, nil
	case famInt:
		return v.Int() != 0, nil
	case famUint:
		return v.Uint() != 0, nil
	case famFloat:
		return v.Float() != 0, nil
	case famComplex:
		return v.Complex() != 0, nil
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return !v.IsNil(), nil
	}
	return false, &OperandError{Kind: k, Operands: []any{x}, Reason: "not usable as a condition"}
}

func unaryOp(k Kind, x any) (any, error) {
	if o, ok := x.(Operand); ok {
		return o.Op(k)
	}
	x = load(x)
	if r, ok, err := bigUnary(k, x); ok {
		return r, err
	}
	v := reflect.ValueOf(x)
	f := familyOf(v)
	switch k {
	case KindLogicalNot:
		b, err := truth(k, x)
		return !b, err
	case KindUnaryPlus:
		if f.numeric() {
			return x, nil
		}
	case KindNegate:
		switch f {
		case famInt:
			return back(-v.Int(), v.Type()), nil
		case famUint:
			return back(-v.Uint(), v.Type()), nil
		case famFloat:
			return back(-v.Float(), v.Type()), nil
		case famComplex:
			return back(-v.Complex(), v.Type()), nil
		}
	case KindComplement:
		switch f {
		case famInt:
			return back(^v.Int(), v.Type()), nil
		case famUint:
			return back(^v.Uint(), v.Type()), nil
		}
	}
	return nil, &OperandError{Kind: k, Operands: []any{x}}
}

// back converts a result computed in a canonical type to t.
func back[T any](x T, t reflect.Type) any {
	return reflect.ValueOf(x).Convert(t).Interface()
}

func binaryOp(k Kind, l, r any) (any, error) {
	if o, ok := l.(Operand); ok {
		return o.Op(k, r)
	}
	if o, ok := r.(Operand); ok {
		return o.Op(k, l, r)
	}
	l, r = load(l), load(r)
	if x, ok, err := bigBinary(k, l, r); ok {
		return x, err
	}
	lv, rv := reflect.ValueOf(l), reflect.ValueOf(r)
	lf, rf := familyOf(lv), familyOf(rv)
	switch {
	case k == KindShiftLeft || k == KindShiftRight:
		if lf.integer() && rf.integer() {
			return shift(k, lv, rv)
		}
	case lf == famBool && rf == famBool:
		if x, ok := boolOp(k, lv.Bool(), rv.Bool()); ok {
			return x, nil
		}
	case lf == famString && rf == famString:
		if x, ok := stringOp(k, lv, rv); ok {
			return x, nil
		}
	case lf.numeric() && rf.numeric():
		return numOp(k, lv, rv)
	case k == KindEqualTo || k == KindNotEqualTo:
		if eq, ok := equal(lv, rv); ok {
			return eq == (k == KindEqualTo), nil
		}
	}
	return nil, &OperandError{Kind: k, Operands: []any{l, r}}
}

// equal compares values which are not numbers, strings, or booleans.
func equal(lv, rv reflect.Value) (bool, bool) {
	switch {
	case !lv.IsValid() && !rv.IsValid():
		return true, true
	case !lv.IsValid():
		return nilable(rv) && rv.IsNil(), nilable(rv)
	case !rv.IsValid():
		return nilable(lv) && lv.IsNil(), nilable(lv)
	case lv.Type() == rv.Type() && lv.Type().Comparable():
		return lv.Interface() == rv.Interface(), true
	}
	return false, false
}

func nilable(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return true
	}
	return false
}

func boolOp(k Kind, a, b bool) (any, bool) {
	switch k {
	case KindEqualTo:
		return a == b, true
	case KindNotEqualTo, KindBitwiseXor:
		return a != b, true
	case KindBitwiseAnd:
		return a && b, true
	case KindBitwiseOr:
		return a || b, true
	}
	return nil, false
}

func stringOp(k Kind, lv, rv reflect.Value) (any, bool) {
	a, b := lv.String(), rv.String()
	if k == KindPlus {
		t := lv.Type()
		if t != rv.Type() && t.Kind() == reflect.String && t.Name() == "string" {
			t = rv.Type()
		}
		return back(a+b, t), true
	}
	if c, ok := compare(k, a, b); ok {
		return c, true
	}
	return nil, false
}

// numOp applies an operator to two numbers. Operands of the same type keep
// that type. Otherwise both are promoted to int64, uint64, float64, or
// complex128, whichever the wider operand needs, and the result has the
// promoted type.
func numOp(k Kind, lv, rv reflect.Value) (any, error) {
	operands := []any{lv.Interface(), rv.Interface()}
	lf, rf := familyOf(lv), familyOf(rv)
	f := lf
	if rank(rf) > rank(lf) {
		f = rf
	}
	if f.integer() && lf != rf {
		if c, ok := signCompare(k, lv, rv); ok {
			return c, nil
		}
		f = signs(lv, rv)
	}
	ct := promoted[f]
	t := ct
	if lv.Type() == rv.Type() {
		t = lv.Type()
	}
	a, b := convertNum(lv, ct), convertNum(rv, ct)
	switch f {
	case famInt:
		return intOp(k, a.Int(), b.Int(), t, operands)
	case famUint:
		return intOp(k, a.Uint(), b.Uint(), t, operands)
	case famFloat:
		x, y := a.Float(), b.Float()
		if c, ok := compare(k, x, y); ok {
			return c, nil
		}
		if r, ok := arith(k, x, y); ok {
			return back(r, t), nil
		}
	case famComplex:
		x, y := a.Complex(), b.Complex()
		switch k {
		case KindEqualTo:
			return x == y, nil
		case KindNotEqualTo:
			return x != y, nil
		}
		if r, ok := arith(k, x, y); ok {
			return back(r, t), nil
		}
	}
	return nil, &OperandError{Kind: k, Operands: operands}
}

var promoted = [...]reflect.Type{
	famInt:     reflect.TypeOf(int64(0)),
	famUint:    reflect.TypeOf(uint64(0)),
	famFloat:   reflect.TypeOf(float64(0)),
	famComplex: reflect.TypeOf(complex128(0)),
}

// signs picks the family in which to mix a signed and an unsigned integer.
// It is int64 unless the unsigned value is too large for it and the signed
// value is not negative.
func signs(lv, rv reflect.Value) family {
	s, u := lv, rv
	if familyOf(lv) == famUint {
		s, u = rv, lv
	}
	if u.Uint() > math.MaxInt64 && s.Int() >= 0 {
		return famUint
	}
	return famInt
}

// signCompare compares a negative signed integer with an unsigned one too
// large for int64, which no common type holds.
func signCompare(k Kind, lv, rv reflect.Value) (bool, bool) {
	if familyOf(lv) == famInt {
		if lv.Int() < 0 && rv.Uint() > math.MaxInt64 {
			return compare(k, -1, 0)
		}
		return false, false
	}
	if rv.Int() < 0 && lv.Uint() > math.MaxInt64 {
		return compare(k, 0, -1)
	}
	return false, false
}

// convertNum converts a number to the numeric type t. Real numbers become
// complex with a zero imaginary part.
func convertNum(v reflect.Value, t reflect.Type) reflect.Value {
	if t.Kind() != reflect.Complex64 && t.Kind() != reflect.Complex128 {
		return v.Convert(t)
	}
	var x float64
	switch familyOf(v) {
	case famInt:
		x = float64(v.Int())
	case famUint:
		x = float64(v.Uint())
	case famFloat:
		x = v.Float()
	default:
		return v.Convert(t)
	}
	return reflect.ValueOf(complex(x, 0)).Convert(t)
}

// rank orders numeric families by width. Signed and unsigned integers share
// a rank.
func rank(f family) int {
	switch f {
	case famInt, famUint:
		return 1
	case famFloat:
		return 2
	case famComplex:
		return 3
	}
	return 0
}

func intOp[T constraints.Integer](k Kind, a, b T, t reflect.Type, operands []any) (any, error) {
	if c, ok := compare(k, a, b); ok {
		return c, nil
	}
	if (k == KindDivides || k == KindModulus) && b == 0 {
		return nil, &DomainError{X: operands[1], Arg: 2, Func: OpString(k)}
	}
	if r, ok := arith(k, a, b); ok {
		return back(r, t), nil
	}
	if r, ok := bits(k, a, b); ok {
		return back(r, t), nil
	}
	return nil, &OperandError{Kind: k, Operands: operands}
}

func shift(k Kind, lv, rv reflect.Value) (any, error) {
	var n uint64
	if familyOf(rv) == famInt {
		if rv.Int() < 0 {
			return nil, &DomainError{X: rv.Interface(), Arg: 2, Func: OpString(k)}
		}
		n = uint64(rv.Int())
	} else {
		n = rv.Uint()
	}
	if familyOf(lv) == famInt {
		a := lv.Int()
		if k == KindShiftLeft {
			return back(a<<n, lv.Type()), nil
		}
		return back(a>>n, lv.Type()), nil
	}
	a := lv.Uint()
	if k == KindShiftLeft {
		return back(a<<n, lv.Type()), nil
	}
	return back(a>>n, lv.Type()), nil
}

func arith[T constraints.Integer | constraints.Float | constraints.Complex](k Kind, a, b T) (T, bool) {
	switch k {
	case KindPlus:
		return a + b, true
	case KindMinus:
		return a - b, true
	case KindMultiplies:
		return a * b, true
	case KindDivides:
		return a / b, true
	}
	return 0, false
}

func bits[T constraints.Integer](k Kind, a, b T) (T, bool) {
	switch k {
	case KindModulus:
		return a % b, true
	case KindBitwiseAnd:
		return a & b, true
	case KindBitwiseOr:
		return a | b, true
	case KindBitwiseXor:
		return a ^ b, true
	}
	return 0, false
}

func compare[T constraints.Ordered](k Kind, a, b T) (bool, bool) {
	switch k {
	case KindLess:
		return a < b, true
	case KindGreater:
		return a > b, true
	case KindLessEqual:
		return a <= b, true
	case KindGreaterEqual:
		return a >= b, true
	case KindEqualTo:
		return a == b, true
	case KindNotEqualTo:
		return a != b, true
	}
	return false, false
}

func deref(x any) (operand, error) {
	if o, ok := x.(Operand); ok {
		r, err := o.Op(KindDereference)
		return operand{v: r}, err
	}
	v := reflect.ValueOf(x)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return operand{}, &OperandError{Kind: KindDereference, Operands: []any{x}, Reason: "not a non-nil pointer"}
	}
	e := v.Elem()
	return operand{v: e.Interface(), ref: e}, nil
}

// index evaluates a subscript. Slice elements, elements of arrays in storage,
// and map entries remain assignable.
func index(o operand, i any) (operand, error) {
	if op, ok := o.v.(Operand); ok {
		r, err := op.Op(KindSubscript, i)
		return operand{v: r}, err
	}
	v, ref := o.v, o.ref
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		switch rv.Elem().Kind() {
		case reflect.Array, reflect.Slice, reflect.Map, reflect.String:
			rv = rv.Elem()
			ref = rv
		}
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.String:
		n, ok := toInt(load(i))
		if !ok {
			return operand{}, &OperandError{Kind: KindSubscript, Operands: []any{v, i}, Reason: "index is not an integer"}
		}
		if n < 0 || n >= rv.Len() {
			return operand{}, &OperandError{Kind: KindSubscript, Operands: []any{v, i}, Reason: fmt.Sprintf("index %d out of range [0:%d]", n, rv.Len())}
		}
		switch {
		case rv.Kind() == reflect.Slice:
			e := rv.Index(n)
			return operand{v: e.Interface(), ref: e}, nil
		case rv.Kind() == reflect.Array && ref.IsValid() && ref.Kind() == reflect.Array && ref.CanSet():
			e := ref.Index(n)
			return operand{v: e.Interface(), ref: e}, nil
		}
		return operand{v: rv.Index(n).Interface()}, nil
	case reflect.Map:
		return entry(KindSubscript, rv, v, i)
	}
	return operand{}, &OperandError{Kind: KindSubscript, Operands: []any{v, i}}
}

func entry(k Kind, m reflect.Value, v, i any) (operand, error) {
	key, ok := convertValue(i, m.Type().Key())
	if !ok {
		return operand{}, &OperandError{Kind: k, Operands: []any{v, i}, Reason: "invalid map key"}
	}
	e := m.MapIndex(key)
	if !e.IsValid() {
		e = reflect.Zero(m.Type().Elem())
	}
	return operand{v: e.Interface(), m: m, k: key}, nil
}

func toInt(x any) (int, bool) {
	v := reflect.ValueOf(x)
	switch familyOf(v) {
	case famInt:
		return int(v.Int()), true
	case famUint:
		return int(v.Uint()), true
	}
	return 0, false
}

// member selects a method, struct field, or string-keyed map entry by name.
func member(o operand, name any) (operand, error) {
	s, ok := load(name).(string)
	if !ok {
		return operand{}, &OperandError{Kind: KindMemPtr, Operands: []any{o.v, name}, Reason: "member name is not a string"}
	}
	v := reflect.ValueOf(o.v)
	if !v.IsValid() {
		return operand{}, &OperandError{Kind: KindMemPtr, Operands: []any{o.v, name}, Reason: "nil operand"}
	}
	if m := v.MethodByName(s); m.IsValid() {
		return operand{v: m.Interface()}, nil
	}
	if o.ref.IsValid() && o.ref.CanAddr() {
		if m := o.ref.Addr().MethodByName(s); m.IsValid() {
			return operand{v: m.Interface()}, nil
		}
	}
	ref := o.ref
	if v.Kind() == reflect.Pointer && !v.IsNil() && v.Elem().Kind() == reflect.Struct {
		v = v.Elem()
		ref = v
	}
	switch v.Kind() {
	case reflect.Struct:
		if ref.IsValid() && ref.Kind() == reflect.Struct {
			v = ref
		}
		sf, ok := v.Type().FieldByName(s)
		if !ok || !sf.IsExported() {
			return operand{}, &OperandError{Kind: KindMemPtr, Operands: []any{o.v, name}, Reason: "no exported member " + s}
		}
		f := v.FieldByIndex(sf.Index)
		if f.CanSet() {
			return operand{v: f.Interface(), ref: f}, nil
		}
		return operand{v: f.Interface()}, nil
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String {
			return entry(KindMemPtr, v, o.v, s)
		}
	}
	return operand{}, &OperandError{Kind: KindMemPtr, Operands: []any{o.v, name}}
}

// call invokes fn, which is a Callable, a Func, or any Go function. A Go
// function whose last result is an error reports it; the other results are
// the value of the call, as a []any if there are several.
func call(fn any, args []any) (any, error) {
	switch f := fn.(type) {
	case Callable:
		r, err := f.Call(args...)
		if err != nil {
			return nil, &InvokeError{Callee: fn, Err: err}
		}
		return r, nil
	case Func:
		return f(args...)
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, &OperandError{Kind: KindCall, Operands: append([]any{fn}, args...), Reason: "not a function"}
	}
	t := v.Type()
	n := t.NumIn()
	if t.IsVariadic() && len(args) < n-1 || !t.IsVariadic() && len(args) != n {
		return nil, &OperandError{Kind: KindCall, Operands: append([]any{fn}, args...), Reason: fmt.Sprintf("wrong argument count %d for %v", len(args), t)}
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		var pt reflect.Type
		if t.IsVariadic() && i >= n-1 {
			pt = t.In(n - 1).Elem()
		} else {
			pt = t.In(i)
		}
		x, ok := convertValue(a, pt)
		if !ok {
			return nil, &OperandError{Kind: KindCall, Operands: append([]any{fn}, args...), Reason: fmt.Sprintf("cannot use %T as %v in argument %d", a, pt, i+1)}
		}
		in[i] = x
	}
	out := v.Call(in)
	if m := t.NumOut(); m > 0 && t.Out(m-1) == errorType {
		if err := out[m-1]; !err.IsNil() {
			return nil, &InvokeError{Callee: fn, Err: err.Interface().(error)}
		}
		out = out[:m-1]
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	}
	r := make([]any, len(out))
	for i, x := range out {
		r[i] = x.Interface()
	}
	return r, nil
}

// store assigns x to the storage o denotes and returns a reference to it.
// A non-nil pointer is a reference, so storing to it stores to its pointee.
func store(k Kind, o operand, x any) (any, error) {
	if v := reflect.ValueOf(o.v); v.Kind() == reflect.Pointer && !v.IsNil() {
		if setBig(o.v, x) {
			return o.v, nil
		}
		y, ok := convertValue(x, v.Type().Elem())
		if !ok {
			return nil, &AssignError{Kind: k, Target: o.v, Value: x}
		}
		v.Elem().Set(y)
		return o.v, nil
	}
	switch {
	case o.ref.IsValid() && o.ref.CanSet():
		y, ok := convertValue(x, o.ref.Type())
		if !ok {
			return nil, &AssignError{Kind: k, Target: o.v, Value: x}
		}
		o.ref.Set(y)
		if o.ref.CanAddr() {
			return o.ref.Addr().Interface(), nil
		}
		return o.ref.Interface(), nil
	case o.m.IsValid():
		y, ok := convertValue(x, o.m.Type().Elem())
		if !ok {
			return nil, &AssignError{Kind: k, Target: o.v, Value: x}
		}
		o.m.SetMapIndex(o.k, y)
		return y.Interface(), nil
	}
	return nil, &AssignError{Kind: k, Target: o.v, Value: x}
}

// convertValue converts x to type t for storage, arguments, and results.
// Values assignable to t are used as they are. Pointers are loaded when
// their pointees fit, and numbers convert between numeric types.
func convertValue(x any, t reflect.Type) (reflect.Value, bool) {
	if x == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), true
		}
		return reflect.Value{}, false
	}
	v := reflect.ValueOf(x)
	if v.Type().AssignableTo(t) {
		r := reflect.New(t).Elem()
		r.Set(v)
		return r, true
	}
	if v.Kind() == reflect.Pointer && !v.IsNil() && v.Type().Elem().AssignableTo(t) {
		return v.Elem(), true
	}
	if r, ok := bigConvert(x, t); ok {
		return r, true
	}
	v = reflect.ValueOf(load(x))
	vf, tf := familyOf(v), familyOf(reflect.Zero(t))
	switch {
	case vf == famComplex && tf == famComplex,
		vf.numeric() && vf != famComplex && tf.numeric() && tf != famComplex,
		vf == famString && tf == famString,
		vf == famBool && tf == famBool:
		return v.Convert(t), true
	}
	return reflect.Value{}, false
}

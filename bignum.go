package exprtree

import (
	"errors"
	"math"
	"math/big"
	"reflect"

	"github.com/shopspring/decimal"
)

var (
	bigIntType   = reflect.TypeOf((*big.Int)(nil))
	bigFloatType = reflect.TypeOf((*big.Float)(nil))
	bigRatType   = reflect.TypeOf((*big.Rat)(nil))
	decimalType  = reflect.TypeOf(decimal.Decimal{})
)

// Ranks of arbitrary-precision operands. Operators on mixed operands convert
// both to the higher rank. Native numbers have rank bigNative.
const (
	bigNone = iota
	bigNative
	bigInteger
	bigRational
	bigFloating
	bigDecimal
)

func bigRank(x any) int {
	switch x := x.(type) {
	case *big.Int:
		if x != nil {
			return bigInteger
		}
	case *big.Rat:
		if x != nil {
			return bigRational
		}
	case *big.Float:
		if x != nil {
			return bigFloating
		}
	case decimal.Decimal:
		return bigDecimal
	case *decimal.Decimal:
		if x != nil {
			return bigDecimal
		}
	default:
		if f := familyOf(reflect.ValueOf(x)); f.numeric() && f != famComplex {
			return bigNative
		}
	}
	return bigNone
}

// decimalValue loads a decimal passed by reference.
func decimalValue(x any) any {
	if d, ok := x.(*decimal.Decimal); ok && d != nil {
		return *d
	}
	return x
}

func bigTruth(x any) (bool, bool) {
	switch x := decimalValue(x).(type) {
	case *big.Int:
		return x != nil && x.Sign() != 0, true
	case *big.Rat:
		return x != nil && x.Sign() != 0, true
	case *big.Float:
		return x != nil && x.Sign() != 0, true
	case decimal.Decimal:
		return !x.IsZero(), true
	case *decimal.Decimal:
		return false, true
	}
	return false, false
}

func bigUnary(k Kind, x any) (any, bool, error) {
	switch x := decimalValue(x).(type) {
	case *big.Int:
		if x == nil {
			break
		}
		switch k {
		case KindUnaryPlus:
			return x, true, nil
		case KindNegate:
			return new(big.Int).Neg(x), true, nil
		case KindComplement:
			return new(big.Int).Not(x), true, nil
		case KindLogicalNot:
			return x.Sign() == 0, true, nil
		}
	case *big.Rat:
		if x == nil {
			break
		}
		switch k {
		case KindUnaryPlus:
			return x, true, nil
		case KindNegate:
			return new(big.Rat).Neg(x), true, nil
		case KindLogicalNot:
			return x.Sign() == 0, true, nil
		}
	case *big.Float:
		if x == nil {
			break
		}
		switch k {
		case KindUnaryPlus:
			return x, true, nil
		case KindNegate:
			return new(big.Float).Neg(x), true, nil
		case KindLogicalNot:
			return x.Sign() == 0, true, nil
		}
	case decimal.Decimal:
		switch k {
		case KindUnaryPlus:
			return x, true, nil
		case KindNegate:
			return x.Neg(), true, nil
		case KindLogicalNot:
			return x.IsZero(), true, nil
		}
	}
	return nil, false, nil
}

// bigBinary applies an operator when either operand is an arbitrary-precision
// number. The second result is false if neither is.
func bigBinary(k Kind, l, r any) (any, bool, error) {
	lr, rr := bigRank(l), bigRank(r)
	if lr <= bigNative && rr <= bigNative || lr == bigNone || rr == bigNone {
		return nil, false, nil
	}
	if k == KindShiftLeft || k == KindShiftRight {
		x, ok := l.(*big.Int)
		n, nok := toInt(r)
		if !ok || !nok || x == nil {
			return nil, true, &OperandError{Kind: k, Operands: []any{l, r}}
		}
		if n < 0 {
			return nil, true, &DomainError{X: r, Arg: 2, Func: OpString(k)}
		}
		if k == KindShiftLeft {
			return new(big.Int).Lsh(x, uint(n)), true, nil
		}
		return new(big.Int).Rsh(x, uint(n)), true, nil
	}
	rank := max(lr, rr)
	if rank == bigInteger && (!fits(l, rank) || !fits(r, rank)) {
		rank = bigFloating
	}
	switch {
	case !fits(l, rank):
		return nil, true, &DomainError{X: l, Arg: 1, Func: OpString(k)}
	case !fits(r, rank):
		return nil, true, &DomainError{X: r, Arg: 2, Func: OpString(k)}
	}
	var (
		x   any
		err error
	)
	switch rank {
	case bigInteger:
		x, err = intBig(k, toBigInt(l), toBigInt(r))
	case bigRational:
		x, err = ratBig(k, toBigRat(l), toBigRat(r))
	case bigFloating:
		prec := max(floatPrec(l), floatPrec(r))
		x, err = floatBig(k, toBigFloat(l, prec), toBigFloat(r, prec))
	case bigDecimal:
		a, aok := toDecimal(l)
		b, bok := toDecimal(r)
		if !aok || !bok {
			return nil, true, &OperandError{Kind: k, Operands: []any{l, r}, Reason: "not representable as decimal"}
		}
		x, err = decimalBig(k, a, b)
	}
	if errors.Is(err, errUnsupported) {
		err = &OperandError{Kind: k, Operands: []any{l, r}}
	}
	return x, true, err
}

var errUnsupported = errors.New("unsupported operator")

// fits reports whether x has a value at rank r. Go floats are not integers,
// and only finite ones are rationals or decimals. NaN is nothing.
func fits(x any, r int) bool {
	v := reflect.ValueOf(x)
	if familyOf(v) != famFloat {
		return true
	}
	f := v.Float()
	switch r {
	case bigInteger:
		return false
	case bigRational, bigDecimal:
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return !math.IsNaN(f)
}

func cmpResult(k Kind, c int) (bool, bool) {
	return compare(k, c, 0)
}

func intBig(k Kind, a, b *big.Int) (any, error) {
	if c, ok := cmpResult(k, a.Cmp(b)); ok {
		return c, nil
	}
	z := new(big.Int)
	switch k {
	case KindPlus:
		return z.Add(a, b), nil
	case KindMinus:
		return z.Sub(a, b), nil
	case KindMultiplies:
		return z.Mul(a, b), nil
	case KindDivides, KindModulus:
		if b.Sign() == 0 {
			return nil, &DomainError{X: b, Arg: 2, Func: OpString(k)}
		}
		if k == KindDivides {
			return z.Quo(a, b), nil
		}
		return z.Rem(a, b), nil
	case KindBitwiseAnd:
		return z.And(a, b), nil
	case KindBitwiseOr:
		return z.Or(a, b), nil
	case KindBitwiseXor:
		return z.Xor(a, b), nil
	}
	return nil, errUnsupported
}

func ratBig(k Kind, a, b *big.Rat) (any, error) {
	if c, ok := cmpResult(k, a.Cmp(b)); ok {
		return c, nil
	}
	z := new(big.Rat)
	switch k {
	case KindPlus:
		return z.Add(a, b), nil
	case KindMinus:
		return z.Sub(a, b), nil
	case KindMultiplies:
		return z.Mul(a, b), nil
	case KindDivides:
		if b.Sign() == 0 {
			return nil, &DomainError{X: b, Arg: 2, Func: "/"}
		}
		return z.Quo(a, b), nil
	}
	return nil, errUnsupported
}

func floatBig(k Kind, a, b *big.Float) (x any, err error) {
	if c, ok := cmpResult(k, a.Cmp(b)); ok {
		return c, nil
	}
	// Operations on infinities and zeros which have no value panic.
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if _, ok := r.(big.ErrNaN); !ok {
			panic(r)
		}
		x, err = nil, &DomainError{X: b, Arg: 2, Func: OpString(k)}
	}()
	z := new(big.Float).SetPrec(max(a.Prec(), b.Prec()))
	switch k {
	case KindPlus:
		return z.Add(a, b), nil
	case KindMinus:
		return z.Sub(a, b), nil
	case KindMultiplies:
		return z.Mul(a, b), nil
	case KindDivides:
		if a.Sign() == 0 && b.Sign() == 0 || a.IsInf() && b.IsInf() {
			return nil, &DomainError{X: b, Arg: 2, Func: "/"}
		}
		return z.Quo(a, b), nil
	}
	return nil, errUnsupported
}

func decimalBig(k Kind, a, b decimal.Decimal) (any, error) {
	if c, ok := cmpResult(k, a.Cmp(b)); ok {
		return c, nil
	}
	switch k {
	case KindPlus:
		return a.Add(b), nil
	case KindMinus:
		return a.Sub(b), nil
	case KindMultiplies:
		return a.Mul(b), nil
	case KindDivides, KindModulus:
		if b.IsZero() {
			return nil, &DomainError{X: b, Arg: 2, Func: OpString(k)}
		}
		if k == KindDivides {
			return a.Div(b), nil
		}
		return a.Mod(b), nil
	}
	return nil, errUnsupported
}

func toBigInt(x any) *big.Int {
	if x, ok := x.(*big.Int); ok {
		return x
	}
	v := reflect.ValueOf(x)
	if familyOf(v) == famUint {
		return new(big.Int).SetUint64(v.Uint())
	}
	return big.NewInt(v.Int())
}

func toBigRat(x any) *big.Rat {
	switch x := x.(type) {
	case *big.Rat:
		return x
	case *big.Int:
		return new(big.Rat).SetInt(x)
	}
	v := reflect.ValueOf(x)
	switch familyOf(v) {
	case famInt:
		return new(big.Rat).SetInt64(v.Int())
	case famUint:
		return new(big.Rat).SetInt(new(big.Int).SetUint64(v.Uint()))
	}
	r, ok := new(big.Rat).SetString(big.NewFloat(v.Float()).Text('g', -1))
	if !ok {
		r = new(big.Rat)
	}
	return r
}

// floatPrec is the precision an operand asks for. Exact operands ask for
// none.
func floatPrec(x any) uint {
	switch x := x.(type) {
	case *big.Float:
		return x.Prec()
	case float32:
		return 24
	case float64:
		return 53
	}
	return 0
}

func toBigFloat(x any, prec uint) *big.Float {
	if prec == 0 {
		prec = 64
	}
	z := new(big.Float).SetPrec(prec)
	switch x := x.(type) {
	case *big.Float:
		return x
	case *big.Int:
		return z.SetInt(x)
	case *big.Rat:
		return z.SetRat(x)
	}
	v := reflect.ValueOf(x)
	switch familyOf(v) {
	case famInt:
		return z.SetInt64(v.Int())
	case famUint:
		return z.SetUint64(v.Uint())
	}
	return z.SetFloat64(v.Float())
}

func toDecimal(x any) (decimal.Decimal, bool) {
	switch x := x.(type) {
	case decimal.Decimal:
		return x, true
	case *decimal.Decimal:
		return *x, true
	case *big.Int:
		return decimal.NewFromBigInt(x, 0), true
	case *big.Rat:
		d, err := decimal.NewFromString(x.FloatString(int(decimal.DivisionPrecision)))
		return d, err == nil
	case *big.Float:
		if x.IsInf() {
			return decimal.Decimal{}, false
		}
		d, err := decimal.NewFromString(x.Text('f', -1))
		return d, err == nil
	}
	v := reflect.ValueOf(x)
	switch familyOf(v) {
	case famInt:
		return decimal.NewFromInt(v.Int()), true
	case famUint:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(v.Uint()), 0), true
	case famFloat:
		if !fits(x, bigDecimal) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(v.Float()), true
	}
	return decimal.Decimal{}, false
}

// setBig stores x into the arbitrary-precision number p points to.
func setBig(p, x any) bool {
	if bigRank(x) == bigNone {
		return false
	}
	switch p := p.(type) {
	case *big.Int:
		if bigRank(x) > bigInteger || !fits(x, bigInteger) {
			return false
		}
		p.Set(toBigInt(x))
	case *big.Rat:
		if bigRank(x) > bigRational || !fits(x, bigRational) {
			return false
		}
		p.Set(toBigRat(x))
	case *big.Float:
		if bigRank(x) > bigFloating || !fits(x, bigFloating) {
			return false
		}
		p.Set(toBigFloat(x, p.Prec()))
	case *decimal.Decimal:
		d, ok := toDecimal(x)
		if !ok {
			return false
		}
		*p = d
	default:
		return false
	}
	return true
}

// bigConvert converts between arbitrary-precision and native numbers.
func bigConvert(x any, t reflect.Type) (reflect.Value, bool) {
	xr := bigRank(x)
	if xr == bigNone {
		return reflect.Value{}, false
	}
	switch t {
	case bigIntType:
		if xr <= bigInteger && fits(x, bigInteger) {
			return reflect.ValueOf(toBigInt(x)), true
		}
	case bigRatType:
		if xr <= bigRational && fits(x, bigRational) {
			return reflect.ValueOf(toBigRat(x)), true
		}
	case bigFloatType:
		if xr <= bigFloating && fits(x, bigFloating) {
			return reflect.ValueOf(toBigFloat(x, floatPrec(x))), true
		}
	case decimalType:
		if d, ok := toDecimal(x); ok {
			return reflect.ValueOf(d), true
		}
	}
	if xr == bigNative {
		return reflect.Value{}, false
	}
	tf := familyOf(reflect.Zero(t))
	if !tf.numeric() || tf == famComplex {
		return reflect.Value{}, false
	}
	var n any
	switch x := x.(type) {
	case *big.Int:
		switch {
		case tf == famInt && x.IsInt64():
			n = x.Int64()
		case tf == famUint && x.IsUint64():
			n = x.Uint64()
		default:
			n, _ = new(big.Float).SetInt(x).Float64()
		}
	case *big.Rat:
		n, _ = x.Float64()
	case *big.Float:
		switch tf {
		case famInt:
			n, _ = x.Int64()
		case famUint:
			n, _ = x.Uint64()
		default:
			n, _ = x.Float64()
		}
	case decimal.Decimal:
		if tf == famFloat {
			n = x.InexactFloat64()
		} else {
			n = x.IntPart()
		}
	case *decimal.Decimal:
		n = x.InexactFloat64()
	}
	if n == nil {
		return reflect.Value{}, false
	}
	return reflect.ValueOf(n).Convert(t), true
}

package exprtree

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestBigOps(t *testing.T) {
	inf := new(big.Float).SetInf(false)
	cases := []struct {
		name string
		e    *Expr
		want string
		err  any
	}{
		{"int-plus", Plus(big.NewInt(2), 3), "5", nil},
		{"int-quo", Divides(big.NewInt(7), 2), "3", nil},
		{"int-rem", Modulus(big.NewInt(-7), 2), "-1", nil},
		{"int-shift", ShiftLeft(big.NewInt(1), 70), "1180591620717411303424", nil},
		{"int-xor", BitwiseXor(big.NewInt(6), 3), "5", nil},
		{"int-neg", Negate(big.NewInt(5)), "-5", nil},
		{"int-not", Complement(big.NewInt(0)), "-1", nil},
		{"int-float", Less(big.NewInt(1), 2.5), "true", nil},
		{"int-float-eq", EqualTo(big.NewInt(3), 3.0), "true", nil},
		{"rat-plus", Plus(big.NewRat(1, 3), big.NewRat(1, 6)), "1/2", nil},
		{"rat-int", Plus(big.NewRat(1, 2), 1), "3/2", nil},
		{"rat-bigint", Multiplies(big.NewInt(3), big.NewRat(1, 6)), "1/2", nil},
		{"float-mul", Multiplies(big.NewFloat(1.5), 2), "3", nil},
		{"float-zero", LogicalNot(big.NewFloat(0)), "true", nil},
		{"float-inf", Plus(inf, 1), "+Inf", nil},
		{"dec-plus", Plus(decimal.RequireFromString("0.1"), 0.2), "0.3", nil},
		{"dec-quo", Divides(decimal.NewFromInt(1), 3), "0.3333333333333333", nil},
		{"dec-rat", Plus(decimal.NewFromInt(1), big.NewRat(1, 4)), "1.25", nil},
		{"dec-cmp", GreaterEqual(decimal.NewFromInt(2), big.NewInt(2)), "true", nil},

		{"int-zero", Divides(big.NewInt(1), 0), "", new(*DomainError)},
		{"int-neg-shift", ShiftLeft(big.NewInt(1), -1), "", new(*DomainError)},
		{"float-zero-zero", Divides(big.NewFloat(0), 0), "", new(*DomainError)},
		{"float-inf-inf", Minus(inf, inf), "", new(*DomainError)},
		{"float-nan", Plus(big.NewFloat(1), math.NaN()), "", new(*DomainError)},
		{"rat-inf", Plus(big.NewRat(1, 2), math.Inf(1)), "", new(*DomainError)},
		{"rat-zero", Divides(big.NewRat(1, 2), 0), "", new(*DomainError)},
		{"dec-zero", Divides(decimal.NewFromInt(1), 0), "", new(*DomainError)},
		{"float-xor", BitwiseXor(big.NewFloat(1), 1), "", new(*OperandError)},
		{"rat-mod", Modulus(big.NewRat(1, 2), 1), "", new(*OperandError)},
		{"int-string", Plus(big.NewInt(1), "x"), "", new(*OperandError)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, err := Evaluate(c.e)
			if c.err != nil {
				if !errors.As(err, c.err) {
					t.Errorf("want %T, got %v (%T)", c.err, err, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got := fmt.Sprint(r); got != c.want {
				t.Errorf("want %s, got %s (%T)", c.want, got, r)
			}
		})
	}
}

func TestBigDomainIsNaN(t *testing.T) {
	_, err := Evaluate(Divides(big.NewFloat(0), 0))
	if !errors.As(err, new(big.ErrNaN)) {
		t.Errorf("%v does not unwrap to big.ErrNaN", err)
	}
}

func TestBigAssign(t *testing.T) {
	x := new(big.Float)
	r, err := Evaluate(Assign(P(0), 2), x)
	if err != nil {
		t.Fatal(err)
	}
	if r != any(x) || x.String() != "2" {
		t.Errorf("want x = 2 returned by reference, got %v with x = %v", r, x)
	}
	if _, err := Evaluate(PlusAssign(P(0), big.NewRat(1, 2)), x); err != nil {
		t.Fatal(err)
	}
	if x.String() != "2.5" {
		t.Errorf("x is %v after adding 1/2", x)
	}
	n := new(big.Int)
	_, err = Evaluate(Assign(P(0), 2.5), n)
	if !errors.As(err, new(*AssignError)) {
		t.Errorf("want AssignError storing a float in an integer, got %v", err)
	}
	var d decimal.Decimal
	if _, err := Evaluate(Assign(P(0), big.NewRat(1, 4)), &d); err != nil {
		t.Fatal(err)
	}
	if d.String() != "0.25" {
		t.Errorf("decimal is %v", d)
	}
}

func TestDecimalReference(t *testing.T) {
	zero, half := decimal.Zero, decimal.RequireFromString("0.5")
	cases := []struct {
		name string
		e    *Expr
		arg  *decimal.Decimal
		want string
	}{
		{"zero condition", IfElse(P(0), "yes", "no"), &zero, "no"},
		{"half condition", IfElse(P(0), "yes", "no"), &half, "yes"},
		{"nil condition", IfElse(P(0), "yes", "no"), nil, "no"},
		{"not zero", LogicalNot(P(0)), &zero, "true"},
		{"negate", Negate(P(0)), &half, "-0.5"},
		{"unary plus", UnaryPlus(P(0)), &half, "0.5"},
		{"plus", Plus(P(0), 1), &zero, "1"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, err := Evaluate(c.e, c.arg)
			if err != nil {
				t.Fatal(err)
			}
			if got := fmt.Sprint(r); got != c.want {
				t.Errorf("want %s, got %s (%T)", c.want, got, r)
			}
		})
	}
}

func TestBigConvert(t *testing.T) {
	f, err := EvaluateAs[float64](Plus(big.NewRat(1, 4), 0))
	if err != nil || f != 0.25 {
		t.Errorf("rational to float64 gave %v, %v", f, err)
	}
	n, err := EvaluateAs[int](Term(big.NewFloat(7.9)))
	if err != nil || n != 7 {
		t.Errorf("float to int gave %v, %v", n, err)
	}
	b, err := EvaluateAs[*big.Int](Plus(2, 3))
	if err != nil || b.String() != "5" {
		t.Errorf("int to *big.Int gave %v, %v", b, err)
	}
	if _, err := EvaluateAs[*big.Int](Term(2.5)); !errors.As(err, new(*ConversionError)) {
		t.Errorf("want ConversionError for float to *big.Int, got %v", err)
	}
	r, err := Evaluate(IfElse(big.NewInt(0), 1, 2))
	if err != nil || r != 2 {
		t.Errorf("zero big.Int condition gave %v, %v", r, err)
	}
}

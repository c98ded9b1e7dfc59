package exprtree

import "strconv"

// Kind identifies the operator or leaf role of an expression node.
type Kind int8

const (
	// KindTerminal is a leaf holding a user value.
	KindTerminal Kind = iota
	// KindExprRef is a leaf borrowing another tree without owning it.
	KindExprRef
	// KindPlaceholder is a leaf standing for the i'th evaluation argument.
	KindPlaceholder

	KindUnaryPlus
	KindNegate
	KindDereference
	KindComplement
	KindAddressOf
	KindLogicalNot
	KindPreInc
	KindPreDec
	KindPostInc
	KindPostDec

	KindShiftLeft
	KindShiftRight
	KindMultiplies
	KindDivides
	KindModulus
	KindPlus
	KindMinus
	KindLess
	KindGreater
	KindLessEqual
	KindGreaterEqual
	KindEqualTo
	KindNotEqualTo
	KindLogicalOr
	KindLogicalAnd
	KindBitwiseAnd
	KindBitwiseOr
	KindBitwiseXor
	KindComma
	KindMemPtr
	KindAssign
	KindShiftLeftAssign
	KindShiftRightAssign
	KindMultipliesAssign
	KindDividesAssign
	KindModulusAssign
	KindPlusAssign
	KindMinusAssign
	KindBitwiseAndAssign
	KindBitwiseOrAssign
	KindBitwiseXorAssign
	KindSubscript

	KindIfElse

	KindCall

	kindCount
)

// Arity is the operand count class of a kind.
type Arity int8

const (
	ArityZero Arity = iota
	ArityOne
	ArityTwo
	ArityThree
	// ArityN is the arity of calls, which take a callee and any number of
	// arguments.
	ArityN
)

func (a Arity) String() string {
	switch a {
	case ArityZero:
		return "zero"
	case ArityOne:
		return "one"
	case ArityTwo:
		return "two"
	case ArityThree:
		return "three"
	case ArityN:
		return "n"
	default:
		return "Arity(" + strconv.Itoa(int(a)) + ")"
	}
}

// UnknownOperator is the result of OpString for kinds that are not operators.
const UnknownOperator = "** ERROR: UNKNOWN OPERATOR! **"

var kinds = [kindCount]struct {
	name  string
	op    string
	arity Arity
}{
	KindTerminal:    {"terminal", "", ArityZero},
	KindExprRef:     {"expr_ref", "", ArityZero},
	KindPlaceholder: {"placeholder", "", ArityZero},

	KindUnaryPlus:   {"unary_plus", "+", ArityOne},
	KindNegate:      {"negate", "-", ArityOne},
	KindDereference: {"dereference", "*", ArityOne},
	KindComplement:  {"complement", "~", ArityOne},
	KindAddressOf:   {"address_of", "&", ArityOne},
	KindLogicalNot:  {"logical_not", "!", ArityOne},
	KindPreInc:      {"pre_inc", "++", ArityOne},
	KindPreDec:      {"pre_dec", "--", ArityOne},
	KindPostInc:     {"post_inc", "++(int)", ArityOne},
	KindPostDec:     {"post_dec", "--(int)", ArityOne},

	KindShiftLeft:        {"shift_left", "<<", ArityTwo},
	KindShiftRight:       {"shift_right", ">>", ArityTwo},
	KindMultiplies:       {"multiplies", "*", ArityTwo},
	KindDivides:          {"divides", "/", ArityTwo},
	KindModulus:          {"modulus", "%", ArityTwo},
	KindPlus:             {"plus", "+", ArityTwo},
	KindMinus:            {"minus", "-", ArityTwo},
	KindLess:             {"less", "<", ArityTwo},
	KindGreater:          {"greater", ">", ArityTwo},
	KindLessEqual:        {"less_equal", "<=", ArityTwo},
	KindGreaterEqual:     {"greater_equal", ">=", ArityTwo},
	KindEqualTo:          {"equal_to", "==", ArityTwo},
	KindNotEqualTo:       {"not_equal_to", "!=", ArityTwo},
	KindLogicalOr:        {"logical_or", "||", ArityTwo},
	KindLogicalAnd:       {"logical_and", "&&", ArityTwo},
	KindBitwiseAnd:       {"bitwise_and", "&", ArityTwo},
	KindBitwiseOr:        {"bitwise_or", "|", ArityTwo},
	KindBitwiseXor:       {"bitwise_xor", "^", ArityTwo},
	KindComma:            {"comma", ",", ArityTwo},
	KindMemPtr:           {"mem_ptr", "->*", ArityTwo},
	KindAssign:           {"assign", "=", ArityTwo},
	KindShiftLeftAssign:  {"shift_left_assign", "<<=", ArityTwo},
	KindShiftRightAssign: {"shift_right_assign", ">>=", ArityTwo},
	KindMultipliesAssign: {"multiplies_assign", "*=", ArityTwo},
	KindDividesAssign:    {"divides_assign", "/=", ArityTwo},
	KindModulusAssign:    {"modulus_assign", "%=", ArityTwo},
	KindPlusAssign:       {"plus_assign", "+=", ArityTwo},
	KindMinusAssign:      {"minus_assign", "-=", ArityTwo},
	KindBitwiseAndAssign: {"bitwise_and_assign", "&=", ArityTwo},
	KindBitwiseOrAssign:  {"bitwise_or_assign", "|=", ArityTwo},
	KindBitwiseXorAssign: {"bitwise_xor_assign", "^=", ArityTwo},
	KindSubscript:        {"subscript", "[]", ArityTwo},

	KindIfElse: {"if_else", "?:", ArityThree},

	KindCall: {"call", "()", ArityN},
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return 0 <= k && k < kindCount
}

func (k Kind) String() string {
	if !k.Valid() {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kinds[k].name
}

// ArityOf returns the arity class of k. It panics with a *KindError if k is
// not a declared kind.
func ArityOf(k Kind) Arity {
	if !k.Valid() {
		panic(&KindError{Got: k, Op: "ArityOf"})
	}
	return kinds[k].arity
}

// OpString returns the operator spelling of k, e.g. "+" for KindPlus or "?:"
// for KindIfElse. Kinds which are not operators, including terminals,
// placeholders, and invalid values, give UnknownOperator.
func OpString(k Kind) string {
	if !k.Valid() || kinds[k].op == "" {
		return UnknownOperator
	}
	return kinds[k].op
}

// compound maps each compound assignment to its underlying binary operator.
var compound = map[Kind]Kind{
	KindShiftLeftAssign:  KindShiftLeft,
	KindShiftRightAssign: KindShiftRight,
	KindMultipliesAssign: KindMultiplies,
	KindDividesAssign:    KindDivides,
	KindModulusAssign:    KindModulus,
	KindPlusAssign:       KindPlus,
	KindMinusAssign:      KindMinus,
	KindBitwiseAndAssign: KindBitwiseAnd,
	KindBitwiseOrAssign:  KindBitwiseOr,
	KindBitwiseXorAssign: KindBitwiseXor,
}

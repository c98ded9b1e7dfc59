package exprtree

// Builders for each operator. Operands which are not expressions are wrapped
// in terminals as by AsExpr.

func unary(k Kind, a any) *Expr {
	return &Expr{kind: k, elems: []any{AsExpr(a)}}
}

func binary(k Kind, a, b any) *Expr {
	return &Expr{kind: k, elems: []any{AsExpr(a), AsExpr(b)}}
}

func UnaryPlus(a any) *Expr   { return unary(KindUnaryPlus, a) }
func Negate(a any) *Expr      { return unary(KindNegate, a) }
func Dereference(a any) *Expr { return unary(KindDereference, a) }
func Complement(a any) *Expr  { return unary(KindComplement, a) }
func AddressOf(a any) *Expr   { return unary(KindAddressOf, a) }
func LogicalNot(a any) *Expr  { return unary(KindLogicalNot, a) }
func PreInc(a any) *Expr      { return unary(KindPreInc, a) }
func PreDec(a any) *Expr      { return unary(KindPreDec, a) }
func PostInc(a any) *Expr     { return unary(KindPostInc, a) }
func PostDec(a any) *Expr     { return unary(KindPostDec, a) }

func ShiftLeft(a, b any) *Expr    { return binary(KindShiftLeft, a, b) }
func ShiftRight(a, b any) *Expr   { return binary(KindShiftRight, a, b) }
func Multiplies(a, b any) *Expr   { return binary(KindMultiplies, a, b) }
func Divides(a, b any) *Expr      { return binary(KindDivides, a, b) }
func Modulus(a, b any) *Expr      { return binary(KindModulus, a, b) }
func Plus(a, b any) *Expr         { return binary(KindPlus, a, b) }
func Minus(a, b any) *Expr        { return binary(KindMinus, a, b) }
func Less(a, b any) *Expr         { return binary(KindLess, a, b) }
func Greater(a, b any) *Expr      { return binary(KindGreater, a, b) }
func LessEqual(a, b any) *Expr    { return binary(KindLessEqual, a, b) }
func GreaterEqual(a, b any) *Expr { return binary(KindGreaterEqual, a, b) }
func EqualTo(a, b any) *Expr      { return binary(KindEqualTo, a, b) }
func NotEqualTo(a, b any) *Expr   { return binary(KindNotEqualTo, a, b) }
func LogicalOr(a, b any) *Expr    { return binary(KindLogicalOr, a, b) }
func LogicalAnd(a, b any) *Expr   { return binary(KindLogicalAnd, a, b) }
func BitwiseAnd(a, b any) *Expr   { return binary(KindBitwiseAnd, a, b) }
func BitwiseOr(a, b any) *Expr    { return binary(KindBitwiseOr, a, b) }
func BitwiseXor(a, b any) *Expr   { return binary(KindBitwiseXor, a, b) }

// Comma evaluates a, then b, and yields b.
func Comma(a, b any) *Expr { return binary(KindComma, a, b) }

// MemPtr selects the field or method of a named by b, which is usually a
// string terminal.
func MemPtr(a, b any) *Expr { return binary(KindMemPtr, a, b) }

// Assign stores b into the storage a denotes and yields a pointer to it.
func Assign(a, b any) *Expr { return binary(KindAssign, a, b) }

func ShiftLeftAssign(a, b any) *Expr  { return binary(KindShiftLeftAssign, a, b) }
func ShiftRightAssign(a, b any) *Expr { return binary(KindShiftRightAssign, a, b) }
func MultipliesAssign(a, b any) *Expr { return binary(KindMultipliesAssign, a, b) }
func DividesAssign(a, b any) *Expr    { return binary(KindDividesAssign, a, b) }
func ModulusAssign(a, b any) *Expr    { return binary(KindModulusAssign, a, b) }
func PlusAssign(a, b any) *Expr       { return binary(KindPlusAssign, a, b) }
func MinusAssign(a, b any) *Expr      { return binary(KindMinusAssign, a, b) }
func BitwiseAndAssign(a, b any) *Expr { return binary(KindBitwiseAndAssign, a, b) }
func BitwiseOrAssign(a, b any) *Expr  { return binary(KindBitwiseOrAssign, a, b) }
func BitwiseXorAssign(a, b any) *Expr { return binary(KindBitwiseXorAssign, a, b) }

// Subscript indexes a by b.
func Subscript(a, b any) *Expr { return binary(KindSubscript, a, b) }

// IfElse evaluates cond and then exactly one of then and els.
func IfElse(cond, then, els any) *Expr {
	return &Expr{kind: KindIfElse, elems: []any{AsExpr(cond), AsExpr(then), AsExpr(els)}}
}

// Call calls fn with args.
func Call(fn any, args ...any) *Expr {
	e := &Expr{kind: KindCall, elems: make([]any, 1+len(args))}
	e.elems[0] = AsExpr(fn)
	for i, a := range args {
		e.elems[i+1] = AsExpr(a)
	}
	return e
}

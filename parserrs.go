package exprtree

import "strconv"

// The parse errors below each describe a tree node the parser could not
// build from its input. All of them implement InputError, and their
// messages lead with the formula column of the offending token.

// OperatorError reports a token in operator position which names no node
// kind of the arity the parser needed there.
type OperatorError struct {
	// Col is the position of the operator.
	Col int
	// Operator is the token that was not understood.
	Operator string
	// Unary is whether the parser was looking for the operator of a unary
	// node, i.e. the token began an operand.
	Unary bool
}

func (err *OperatorError) Error() string {
	node := "binary"
	if err.Unary {
		node = "unary"
	}
	return column(err.Col) + strconv.Quote(err.Operator) + " is not the operator of any " + node + " node"
}

func (err *OperatorError) Pos() int {
	return err.Col
}

// BracketError reports a group or call argument list whose brackets do not
// pair up.
type BracketError struct {
	// Col is the position of the bracket that could not be paired.
	Col int
	// Left is the opening bracket, or empty if there was none.
	Left string
	// Right is the closing bracket, or empty if the formula ended first.
	Right string
}

func (err *BracketError) Error() string {
	switch {
	case err.Left == "":
		return column(err.Col) + "closing bracket " + err.Right + " ends no group"
	case err.Right == "":
		return column(err.Col) + "group opened by bracket " + err.Left + " is never closed"
	}
	return column(err.Col) + "group opened by bracket " + err.Left + " is closed by " + err.Right
}

func (err *BracketError) Pos() int {
	return err.Col
}

// SeparatorError reports a comma or semicolon outside the argument list of
// a call, or one which leaves an argument empty.
type SeparatorError struct {
	// Col is the position of the separator.
	Col int
	// Sep is the separator.
	Sep string
}

func (err *SeparatorError) Error() string {
	return column(err.Col) + "separator " + strconv.Quote(err.Sep) + " does not divide call arguments here"
}

func (err *SeparatorError) Pos() int {
	return err.Col
}

// CallError reports a call node whose argument count does not match the
// arity of its function.
type CallError struct {
	// Col is the position of the end of the call expression.
	Col int
	// Func is the function name that was called.
	Func string
	// Len is the number of arguments the call supplied.
	Len int
}

func (err *CallError) Error() string {
	return column(err.Col) + "call node for " + err.Func + " cannot take " + strconv.Itoa(err.Len) + " arguments"
}

func (err *CallError) Pos() int {
	return err.Col
}

// EmptyExpressionError reports a place where the parser needed an operand
// subtree and found none.
type EmptyExpressionError struct {
	// Col is the position of the token that ended the subexpression.
	Col int
	// End is the token that ended the subexpression, or empty at the end of
	// the formula.
	End string
}

func (err *EmptyExpressionError) Error() string {
	switch {
	case err.End != "":
		return column(err.Col) + "no expression before " + strconv.Quote(err.End)
	case err.Col <= 1:
		return column(err.Col) + "formula is empty, so there is no expression to build"
	}
	return column(err.Col) + "no expression before the end of the formula"
}

func (err *EmptyExpressionError) Pos() int {
	return err.Col
}

// TargetError reports an assignment node whose left operand is not a
// variable, or any assignment when the parse options forbid them.
type TargetError struct {
	// Col is the position of the assignment operator.
	Col int
	// Target is the formatted left operand, or empty when assignment is
	// disabled.
	Target string
}

func (err *TargetError) Error() string {
	if err.Target == "" {
		return column(err.Col) + "assignment nodes are disabled"
	}
	return column(err.Col) + "cannot assign to " + err.Target + ", which is not a variable"
}

func (err *TargetError) Pos() int {
	return err.Col
}

// ConditionalError reports a ? whose conditional node never finds its :.
type ConditionalError struct {
	// Col is the position of the token found instead of the colon.
	Col int
	// End is that token, or empty at the end of the formula.
	End string
}

func (err *ConditionalError) Error() string {
	if err.End == "" {
		return column(err.Col) + "conditional node has no \":\" before the end of the formula"
	}
	return column(err.Col) + "conditional node has no \":\" before " + strconv.Quote(err.End)
}

func (err *ConditionalError) Pos() int {
	return err.Col
}

func column(col int) string {
	return "column " + strconv.Itoa(col) + ": "
}

// InputError is an error with position information. Every error resulting from
// invalid input implements InputError.
type InputError interface {
	error
	// Pos returns the position of the error as the number of runes up to and
	// including the start of the token that caused the error.
	Pos() int
}

var (
	_ InputError = (*OperatorError)(nil)
	_ InputError = (*BracketError)(nil)
	_ InputError = (*SeparatorError)(nil)
	_ InputError = (*CallError)(nil)
	_ InputError = (*EmptyExpressionError)(nil)
	_ InputError = (*TargetError)(nil)
	_ InputError = (*ConditionalError)(nil)
	_ InputError = (*LexError)(nil)
)

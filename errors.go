package exprtree

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// ErrConversionDisabled is returned by Convert when implicit conversion of
// expressions has not been enabled.
var ErrConversionDisabled = errors.New("exprtree: implicit conversion is disabled")

// KindError reports an operation applied to a node of the wrong kind.
// Accessors panic with a *KindError.
type KindError struct {
	// Got is the kind of the node the operation was applied to.
	Got Kind
	// Want lists the kinds the operation accepts, if any do.
	Want []Kind
	// Op names the operation.
	Op string
}

func (err *KindError) Error() string {
	if len(err.Want) == 0 {
		return "exprtree: " + err.Op + " on invalid kind " + err.Got.String()
	}
	w := make([]string, len(err.Want))
	for i, k := range err.Want {
		w[i] = k.String()
	}
	return "exprtree: " + err.Op + " on " + err.Got.String() + " node, want " + strings.Join(w, " or ")
}

// IndexError reports an out-of-range element index. Get panics with an
// *IndexError.
type IndexError struct {
	Index int
	Len   int
	Kind  Kind
}

func (err *IndexError) Error() string {
	return "exprtree: index " + strconv.Itoa(err.Index) + " out of range for " + err.Kind.String() + " node with " + strconv.Itoa(err.Len) + " elements"
}

// ArityError reports an operand count that does not fit a kind's arity.
type ArityError struct {
	Kind Kind
	Got  int
}

func (err *ArityError) Error() string {
	want := ""
	switch ArityOf(err.Kind) {
	case ArityZero:
		want = "1 payload"
	case ArityOne:
		want = "1 operand"
	case ArityTwo:
		want = "2 operands"
	case ArityThree:
		want = "3 operands"
	case ArityN:
		want = "a callee"
	}
	return "exprtree: " + err.Kind.String() + " needs " + want + ", got " + strconv.Itoa(err.Got)
}

// PlaceholderError reports a placeholder whose index has no matching
// evaluation argument.
type PlaceholderError struct {
	// Index is the largest placeholder index in the expression.
	Index int
	// Args is the number of arguments supplied.
	Args int
}

func (err *PlaceholderError) Error() string {
	return "exprtree: placeholder " + strconv.Itoa(err.Index) + " needs at least " + strconv.Itoa(err.Index+1) + " arguments, got " + strconv.Itoa(err.Args)
}

// OperandError reports operands for which an operator has no meaning.
type OperandError struct {
	Kind     Kind
	Operands []any
	// Reason optionally explains the failure.
	Reason string
}

func (err *OperandError) Error() string {
	var b strings.Builder
	b.WriteString("exprtree: invalid operands for ")
	b.WriteString(err.Kind.String())
	b.WriteString(" (")
	for i, x := range err.Operands {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%T", x)
	}
	b.WriteByte(')')
	if err.Reason != "" {
		b.WriteString(": ")
		b.WriteString(err.Reason)
	}
	return b.String()
}

// AssignError reports an assignment to something that is not storage or a
// value that cannot be stored there.
type AssignError struct {
	Kind   Kind
	Target any
	Value  any
}

func (err *AssignError) Error() string {
	return fmt.Sprintf("exprtree: %v cannot assign %T to %T", err.Kind, err.Value, err.Target)
}

// ConversionError reports an evaluation result that cannot become the
// requested type.
type ConversionError struct {
	Value any
	To    string
}

func (err *ConversionError) Error() string {
	return fmt.Sprintf("exprtree: cannot convert %T to %s", err.Value, err.To)
}

// DepthError reports evaluation nesting beyond the evaluator's limit.
type DepthError struct {
	Max int
}

func (err *DepthError) Error() string {
	return "exprtree: expression nested deeper than " + strconv.Itoa(err.Max)
}

// InvokeError wraps an error returned by a called function.
type InvokeError struct {
	Callee any
	Err    error
}

func (err *InvokeError) Error() string {
	return fmt.Sprintf("exprtree: calling %T: %v", err.Callee, err.Err)
}

func (err *InvokeError) Unwrap() error {
	return err.Err
}

// DomainError is an error returned when an operator or function is applied
// to arguments outside its domain, like 0/0 or sqrt(-1).
type DomainError struct {
	// X is the out-of-domain argument.
	X any
	// Arg is the 1-based index of the argument.
	Arg int
	// Func is a name identifying the function or operator.
	Func string
}

func (err *DomainError) Error() string {
	r := fmt.Sprint(err.X) + " outside domain"
	if err.Func != "" {
		r += " of " + err.Func
	}
	if err.Arg > 0 {
		r += " (argument " + strconv.Itoa(err.Arg) + ")"
	}
	return r
}

// Unwrap returns a big.ErrNaN describing the domain error.
func (err *DomainError) Unwrap() error {
	return big.ErrNaN{}
}

// NameError is an error from a lookup for a variable that has no value.
type NameError struct {
	// Name is the name that was missing.
	Name string
}

func (err *NameError) Error() string {
	return "undefined variable: " + strconv.Quote(err.Name)
}

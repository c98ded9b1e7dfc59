// Package exprtree builds, transforms, and evaluates expression trees.
//
// An expression tree records an operator expression without evaluating it.
// "x + 2" becomes a node of kind KindPlus whose operands are a placeholder
// for x and a terminal holding 2:
//
//	e := exprtree.Plus(exprtree.P(0), 2)
//	r, err := exprtree.Evaluate(e, 40) // 42
//
// Trees are built once and may be evaluated many times against different
// arguments, rewritten with Transform, or walked with Walk. Evaluation routes
// every operator to the native semantics of its operands' types: Go numbers,
// strings, and booleans, math/big numbers, decimals, slices and maps,
// functions, and values implementing Operand or Callable. An Evaluator
// replaces the semantics of individual operators with WithOp.
//
// Pointers play the part of references. A pointer held by a terminal or
// passed as an argument is returned as is, and assignment through it changes
// the pointee. Assignment to a terminal holding a plain value changes the
// terminal itself and yields a pointer to its storage.
//
// The package also includes a small calculator language. Parse reads
// expressions like "2 x^2 - sqrt y" into a Formula of arbitrary-precision
// floats, which a Context evaluates with named variables.
package exprtree

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'exprtree'.
func tracer() tracing.Trace {
	return tracing.Select("exprtree")
}

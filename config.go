package exprtree

import (
	"os"
	"strconv"
)

// Environment variables read when the package is initialized.
const (
	// ConversionEnv enables Convert on evaluators that do not set
	// EnableConversion themselves.
	ConversionEnv = "EXPRTREE_CONVERSION"
	// MaxDepthEnv sets the default nesting limit of evaluators.
	MaxDepthEnv = "EXPRTREE_MAX_DEPTH"
)

// DefaultMaxDepth is the nesting limit of evaluators when neither MaxDepth
// nor MaxDepthEnv says otherwise.
const DefaultMaxDepth = 10000

type config struct {
	Conversion bool
	MaxDepth   int
}

var env config

func init() {
	env.Conversion = boolEnv(ConversionEnv)
	env.MaxDepth = intEnv(MaxDepthEnv, DefaultMaxDepth)
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

func intEnv(v string, def int) int {
	x := os.Getenv(v)
	if x == "" {
		return def
	}
	n, err := strconv.Atoi(x)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

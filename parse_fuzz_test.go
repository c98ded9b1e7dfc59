package exprtree_test

import (
	"strings"
	"testing"

	"github.com/zephyrtronium/exprtree"
)

func FuzzParse(f *testing.F) {
	f.Add("x")
	f.Add("y")
	f.Add("1×2")
	f.Add("log(x; 2)")
	f.Fuzz(func(t *testing.T, s string) {
		e, err := exprtree.Parse(strings.NewReader(s))
		if err != nil {
			return
		}
		// Formatting must not panic on any parsed tree.
		_ = e.String()
	})
}

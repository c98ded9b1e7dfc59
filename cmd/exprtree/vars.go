package main

import (
	"fmt"
	"math"
	"math/big"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// readVars loads variable values from a YAML mapping. An empty name gives no
// variables.
func readVars(name string) (map[string]any, error) {
	vars := make(map[string]any)
	if name == "" {
		return vars, nil
	}
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read variables: %w", err)
	}
	if err := yaml.Unmarshal(b, &vars); err != nil {
		return nil, fmt.Errorf("failed to parse variables in %s: %w", name, err)
	}
	for k, v := range vars {
		vars[k] = normalize(v)
	}
	tracer().Debugf("read %d variables from %s", len(vars), name)
	return vars, nil
}

// splitDef splits a name=value variable definition.
func splitDef(s string) (name, value string, err error) {
	name, value, ok := strings.Cut(s, "=")
	name, value = strings.TrimSpace(name), strings.TrimSpace(value)
	if !ok || name == "" {
		return "", "", fmt.Errorf(`variable definitions must be "name=value", not %q`, s)
	}
	return name, value, nil
}

// parseValue interprets the text of a variable definition as a YAML value,
// so that numbers, booleans, and lists have their natural types.
func parseValue(s string) (any, error) {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return normalize(v), nil
}

// normalize converts integers decoded from YAML to int where they fit, and
// does the same inside lists and mappings.
func normalize(v any) any {
	switch v := v.(type) {
	case uint64:
		if v <= math.MaxInt {
			return int(v)
		}
	case int64:
		if v >= math.MinInt && v <= math.MaxInt {
			return int(v)
		}
	case []any:
		for i, x := range v {
			v[i] = normalize(x)
		}
	case map[string]any:
		for k, x := range v {
			v[k] = normalize(x)
		}
	}
	return v
}

// toBig converts a variable value to a calculator number.
func toBig(v any, prec uint) (*big.Float, error) {
	r, _, err := new(big.Float).SetPrec(prec).Parse(fmt.Sprint(v), 0)
	if err != nil {
		return nil, fmt.Errorf("%v is not a number", v)
	}
	return r, nil
}

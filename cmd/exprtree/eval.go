package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"

	"github.com/zephyrtronium/exprtree"
	"github.com/zephyrtronium/exprtree/exprlang"
)

// EvalCmd evaluates programs in the expr language.
type EvalCmd struct {
	Set      []string `help:"name=value variable definition; values are YAML (any number of times)" short:"s"`
	Output   string   `help:"Output format [text|yaml]" short:"o" default:"text" enum:"text,yaml"`
	Fold     bool     `help:"Fold constants before evaluating"`
	Programs []string `arg:"" help:"Programs to evaluate"`
}

// Run executes the eval command.
func (cmd *EvalCmd) Run(ctx *Context) error {
	env, err := cmd.env(ctx)
	if err != nil {
		return err
	}
	for _, src := range cmd.Programs {
		p, err := compile(ctx, src)
		if err != nil {
			return err
		}
		if cmd.Fold {
			if p, err = p.Fold(); err != nil {
				return err
			}
		}
		if err := missing(p, env); err != nil {
			return err
		}
		r, err := p.Eval(env)
		if err != nil {
			return fmt.Errorf("evaluating %q: %w", src, err)
		}
		if err := cmd.print(ctx.Out, r); err != nil {
			return err
		}
	}
	return nil
}

func (cmd *EvalCmd) env(ctx *Context) (map[string]any, error) {
	env, err := readVars(ctx.Vars)
	if err != nil {
		return nil, err
	}
	for _, d := range cmd.Set {
		name, src, err := splitDef(d)
		if err != nil {
			return nil, err
		}
		v, err := parseValue(src)
		if err != nil {
			return nil, fmt.Errorf("setting %s: %w", name, err)
		}
		env[name] = v
	}
	return env, nil
}

func (cmd *EvalCmd) print(w io.Writer, r any) error {
	if cmd.Output == "yaml" {
		b, err := yaml.Marshal(r)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	}
	fmt.Fprintln(w, color.New(color.FgGreen).Sprint(r))
	return nil
}

// compile compiles a program with the evaluation settings of ctx.
func compile(ctx *Context, src string) (*exprlang.Program, error) {
	var opts []exprlang.Option
	if ctx.MaxDepth > 0 {
		opts = append(opts, exprlang.EvalOptions(exprtree.MaxDepth(ctx.MaxDepth)))
	}
	p, err := exprlang.Compile(src, opts...)
	if err != nil {
		return nil, fmt.Errorf("compiling %q: %w", src, err)
	}
	return p, nil
}

// missing reports all names p reads which env lacks.
func missing(p *exprlang.Program, env map[string]any) error {
	var names []string
	for _, name := range p.Names() {
		if _, ok := env[name]; !ok {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	return fmt.Errorf("no values for %v", names)
}

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/zephyrtronium/exprtree"
)

// CalcCmd evaluates calculator formulas from files or arguments.
type CalcCmd struct {
	In    string   `help:"Input file (default stdin if no args given)"`
	Fmt   string   `help:"Result formatting string" default:"%g"`
	Given []string `help:"name=value variable definition (any number of times)" short:"g"`
	Prec  uint     `help:"Precision of calculations in bits" short:"p" default:"64"`
	Lines bool     `help:"Parse separate input lines as separate expressions" short:"n"`
	Echo  bool     `help:"Print parse trees"`
	Exprs []string `arg:"" optional:"" help:"Formulas to evaluate"`
}

// Run executes the calc command.
func (cmd *CalcCmd) Run(ctx *Context) error {
	if cmd.Prec == 0 {
		return fmt.Errorf("precision must be positive")
	}
	var ins []io.RuneScanner
	f, done, err := infile(cmd.In, len(cmd.Exprs) == 0)
	if err != nil {
		return err
	}
	defer done()
	if f != nil {
		ins = append(ins, f)
	}
	for _, arg := range cmd.Exprs {
		ins = append(ins, strings.NewReader(arg))
	}
	calc, err := cmd.context(ctx)
	if err != nil {
		return err
	}
	formulas, err := cmd.parse(ins)
	if err != nil {
		return err
	}
	cmd.run(ctx.Out, calc, formulas)
	return nil
}

// context creates the calculator context with the variables from the
// variables file and --given.
func (cmd *CalcCmd) context(ctx *Context) (*exprtree.Context, error) {
	calc := exprtree.NewContext(exprtree.Prec(cmd.Prec))
	vars, err := readVars(ctx.Vars)
	if err != nil {
		return nil, err
	}
	for name, v := range vars {
		r, err := toBig(v, cmd.Prec)
		if err != nil {
			return nil, fmt.Errorf("setting %s: %w", name, err)
		}
		calc.Set(name, r)
	}
	for _, d := range cmd.Given {
		name, src, err := splitDef(d)
		if err != nil {
			return nil, err
		}
		r, err := exprtree.EvalString(src, exprtree.Prec(cmd.Prec))
		if err != nil {
			return nil, fmt.Errorf("setting %s: %w", name, err)
		}
		calc.Set(name, r)
	}
	return calc, nil
}

func (cmd *CalcCmd) parse(ins []io.RuneScanner) ([]*exprtree.Formula, error) {
	var opts []exprtree.ParseOption
	if cmd.Lines {
		opts = append(opts, exprtree.StopOn('\n'))
	}
	var p []*exprtree.Formula
	for _, in := range ins {
		for {
			// First check whether we're done with the input.
			if _, _, err := in.ReadRune(); err != nil {
				if err == io.EOF {
					break
				}
				return nil, err
			}
			in.UnreadRune()
			a, err := exprtree.Parse(in, opts...)
			if err != nil {
				return nil, err
			}
			p = append(p, a)
		}
	}
	return p, nil
}

func (cmd *CalcCmd) run(w io.Writer, calc *exprtree.Context, formulas []*exprtree.Formula) {
	verb := cmd.Fmt + "\n"
	fail := color.New(color.FgRed).SprintFunc()
	for _, a := range formulas {
		if cmd.Echo {
			fmt.Fprintf(w, "%v : ", a)
		}
		r := calc.Eval(a)
		if r == nil {
			fmt.Fprintln(w, fail(calc.Err()))
			continue
		}
		fmt.Fprintf(w, verb, r)
	}
}

// infile opens the input named by --in, or stdin when it is "-" or when std
// is set and no file is named. The returned function closes an opened file.
func infile(inname string, std bool) (io.RuneScanner, func() error, error) {
	nop := func() error { return nil }
	switch {
	case inname != "" && inname != "-":
		f, err := os.Open(inname)
		if err != nil {
			return nil, nop, err
		}
		return bufio.NewReader(f), f.Close, nil
	case inname == "-", std:
		return bufio.NewReader(os.Stdin), nop, nil
	}
	return nil, nop, nil
}

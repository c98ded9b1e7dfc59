package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pterm/pterm"

	"github.com/zephyrtronium/exprtree"
)

// ReplCmd evaluates calculator formulas interactively. Variables assigned by
// one formula keep their values for the next.
type ReplCmd struct {
	Prec uint   `help:"Precision of calculations in bits" short:"p" default:"64"`
	Fmt  string `help:"Result formatting string" default:"%g"`
}

// Run executes the repl command.
func (cmd *ReplCmd) Run(ctx *Context) error {
	calc := &CalcCmd{Prec: cmd.Prec}
	c, err := calc.context(ctx)
	if err != nil {
		return err
	}
	rl, err := readline.New("exprtree> ")
	if err != nil {
		return err
	}
	defer rl.Close()
	pterm.Info.Println("Quit with <ctrl>D")
	s := session{calc: c, fmt: cmd.Fmt}
	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF
			break
		}
		if err := s.eval(ctx.Out, line); err != nil {
			pterm.Error.Println(err.Error())
		}
	}
	return nil
}

// session is the state of an interactive calculator.
type session struct {
	calc *exprtree.Context
	fmt  string
}

// eval evaluates one line of input. Lines starting with ':' are commands:
// :vars lists the variables and :tree shows the tree of a formula.
func (s *session) eval(w io.Writer, line string) error {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return nil
	case line == ":vars":
		for _, name := range s.calc.Vars() {
			fmt.Fprintf(w, "%s = "+s.fmt+"\n", name, s.calc.Lookup(name))
		}
		return nil
	case strings.HasPrefix(line, ":tree "):
		f, err := exprtree.Parse(strings.NewReader(strings.TrimPrefix(line, ":tree ")))
		if err != nil {
			return err
		}
		fmt.Fprintln(w, f)
		return nil
	}
	f, err := exprtree.Parse(strings.NewReader(line))
	if err != nil {
		return err
	}
	r := s.calc.Eval(f)
	if r == nil {
		return s.calc.Err()
	}
	fmt.Fprintf(w, s.fmt+"\n", r)
	return nil
}

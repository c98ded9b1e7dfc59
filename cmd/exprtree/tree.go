package main

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/zephyrtronium/exprtree"
)

// TreeCmd shows the expression tree of a program or formula.
type TreeCmd struct {
	Calc   bool   `help:"Parse the source as a calculator formula"`
	Source string `arg:"" help:"Program or formula"`
}

// Run executes the tree command.
func (cmd *TreeCmd) Run(ctx *Context) error {
	var (
		root  *exprtree.Expr
		names []string
	)
	if cmd.Calc {
		f, err := exprtree.Parse(strings.NewReader(cmd.Source))
		if err != nil {
			return err
		}
		root, names = f.Expr(), f.Vars()
	} else {
		p, err := compile(ctx, cmd.Source)
		if err != nil {
			return err
		}
		root, names = p.Expr(), p.Placeholders()
	}
	ll := leveled(root, names, pterm.LeveledList{}, 0)
	pterm.DefaultTree.WithRoot(pterm.NewTreeFromLeveledList(ll)).Render()
	return nil
}

// leveled appends e and its descendants to ll in pre-order.
func leveled(e *exprtree.Expr, names []string, ll pterm.LeveledList, level int) pterm.LeveledList {
	ll = append(ll, pterm.LeveledListItem{Level: level, Text: label(e, names)})
	switch e.Kind() {
	case exprtree.KindTerminal, exprtree.KindPlaceholder:
		return ll
	case exprtree.KindExprRef:
		return leveled(e.Deref(), names, ll, level+1)
	}
	for _, c := range e.Elements() {
		ll = leveled(c.(*exprtree.Expr), names, ll, level+1)
	}
	return ll
}

// label describes a single node.
func label(e *exprtree.Expr, names []string) string {
	switch k := e.Kind(); k {
	case exprtree.KindTerminal:
		return fmt.Sprintf("%v", e.Value())
	case exprtree.KindPlaceholder:
		i := e.Index()
		if i < len(names) {
			return fmt.Sprintf("$%d %s", i, names[i])
		}
		return fmt.Sprintf("$%d", i)
	case exprtree.KindExprRef, exprtree.KindCall, exprtree.KindIfElse:
		return k.String()
	default:
		return k.String() + " " + exprtree.OpString(k)
	}
}

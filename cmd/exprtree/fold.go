package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// FoldCmd shows how constant folding changes a program.
type FoldCmd struct {
	Source string `arg:"" help:"Program to fold"`
}

// Run executes the fold command.
func (cmd *FoldCmd) Run(ctx *Context) error {
	p, err := compile(ctx, cmd.Source)
	if err != nil {
		return err
	}
	q, err := p.Fold()
	if err != nil {
		return err
	}
	before, after := p.String(), q.String()
	fmt.Fprintln(ctx.Out, after)
	if before != after {
		fmt.Fprintln(ctx.Out, showDiff(before, after))
	}
	return nil
}

// showDiff renders the difference between two strings inline, marking
// deletions as [-text-] and insertions as {+text+}.
func showDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(before, after, false))
	del := color.New(color.FgRed).SprintFunc()
	ins := color.New(color.FgGreen).SprintFunc()
	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			b.WriteString(del("[-" + d.Text + "-]"))
		case diffmatchpatch.DiffInsert:
			b.WriteString(ins("{+" + d.Text + "+}"))
		case diffmatchpatch.DiffEqual:
			b.WriteString(d.Text)
		}
	}
	return b.String()
}

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
)

// Context carries global settings to commands.
type Context struct {
	Out      io.Writer
	MaxDepth int
	Vars     string
}

// CLI describes the command line.
var CLI struct {
	EnvFile  string `help:"Load environment variables from this file if it exists" default:".env" name:"env-file"`
	Trace    string `help:"Trace level [Debug|Info|Error]" default:"Error" env:"EXPRTREE_TRACE"`
	Color    string `help:"Colored output [auto|always|never]" default:"auto" enum:"auto,always,never"`
	MaxDepth int    `help:"Nesting limit of evaluated expressions" default:"10000" env:"EXPRTREE_MAX_DEPTH" name:"max-depth"`
	Vars     string `help:"YAML file of variable values" type:"path"`

	Calc CalcCmd `cmd:"" default:"withargs" help:"Evaluate calculator formulas"`
	Eval EvalCmd `cmd:"" help:"Evaluate expr language programs"`
	Tree TreeCmd `cmd:"" help:"Show expression trees"`
	Fold FoldCmd `cmd:"" help:"Fold the constant parts of a program"`
	Repl ReplCmd `cmd:"" help:"Evaluate formulas interactively"`
}

func main() {
	// Flags may come from the environment file, so it is loaded before
	// parsing them.
	loadEnvFile(envFileArg(os.Args[1:]))
	ctx := kong.Parse(&CLI,
		kong.Name("exprtree"),
		kong.Description("Build and evaluate expression trees."),
		kong.UsageOnError(),
	)
	setupTracing(CLI.Trace)
	setupColor(CLI.Color, os.Stdout)
	appCtx := &Context{
		Out:      os.Stdout,
		MaxDepth: CLI.MaxDepth,
		Vars:     CLI.Vars,
	}
	if err := ctx.Run(appCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// envFileArg finds the value of --env-file in args.
func envFileArg(args []string) string {
	for i, arg := range args {
		switch {
		case arg == "--env-file" && i+1 < len(args):
			return args[i+1]
		case strings.HasPrefix(arg, "--env-file="):
			return strings.TrimPrefix(arg, "--env-file=")
		}
	}
	return ".env"
}

// loadEnvFile loads name into the environment if it exists. Variables already
// set are left alone.
func loadEnvFile(name string) {
	if _, err := os.Stat(name); err != nil {
		return
	}
	if err := godotenv.Load(name); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load %s: %v\n", name, err)
	}
}

// setupTracing sends traces of every package to the standard logger.
func setupTracing(level string) {
	tracing.SetTraceSelector(tracing.SelectorForAdapter(gologadapter.GetAdapter()))
	tracer().SetTraceLevel(tracing.TraceLevelFromString(level))
	tracer().Debugf("trace level is %s", level)
}

func tracer() tracing.Trace {
	return tracing.Select("exprtree.cmd")
}

func setupColor(mode string, out *os.File) {
	switch mode {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default:
		color.NoColor = !isatty.IsTerminal(out.Fd()) && !isatty.IsCygwinTerminal(out.Fd())
	}
}

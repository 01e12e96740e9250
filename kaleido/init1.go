package main

import (
	"os"

	"github.com/mattn/go-isatty"
	. "github.com/spf13/pflag"
)

var pNoCodesDefault = !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd())
var pHelp, pNoCodes, pQuiet, pStrict bool
var pVerbosity = "info"
var yell, purp, und, zero = "\033[33m", "\033[35m", "\033[4m", "\033[0m"

func init() {
	pNoCodes = pNoCodesDefault
	for _, arg := range os.Args[1:] {
		switch arg {
		case "--no-codes=false":
			pNoCodes = false
		case "--quiet", "--quiet=true":
			pNoCodes, pQuiet = true, true
		case "--no-codes", "--no-codes=true":
			pNoCodes = true
		}
	}
	if pNoCodes {
		yell, purp, und, zero = "", "", "", ""
	}
}

// commonFlags registers the flags every subcommand accepts. --no-codes and --quiet are read
// straight from os.Args before any flag set is parsed; they are registered only so they parse and
// show up in help.
func commonFlags(fs *FlagSet) {
	fs.BoolVarP(&pHelp, "help", "h", false,
		purp+"print this help menu"+zero)

	fs.Bool("no-codes", pNoCodesDefault,
		purp+"print to console w/o formatting codes or simplified"+zero+
			n+purp+"filepaths"+zero)

	fs.Bool("quiet", false,
		purp+"suppress summaries and non-breaking errors"+zero+
			n+"(enables --no-codes)")

	fs.BoolVar(&pStrict, "strict", false,
		purp+"cause kaleido to panic on any error"+zero)

	fs.StringVar(&pVerbosity, "verbosity", "info",
		purp+"log level: trace, debug, info, warn, error, crit"+zero)
}

func newFlagSet(name string) *FlagSet {
	fs := NewFlagSet(name, ContinueOnError)
	commonFlags(fs)
	/* Order flags as registered: common ones first, help hoisted to the very top. */
	fs.SortFlags = false
	return fs
}

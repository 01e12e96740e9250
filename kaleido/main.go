package main

import (
	"context"
	"errors"
	. "fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledgerwatch/log/v3"
	"github.com/p7r0x7/vainpath"
	. "github.com/spf13/pflag"

	"github.com/p7r0x7/kaleidohash"
)

// Copyright © 2022 Matthew R Bonnette. Licensed under the Apache-2.0 license.

const n = "\n"
const success, failure, invalid = 0, 1, 2

var warnings = 0
var logger = log.New()

type command struct {
	flags *FlagSet
	usage string /* argument synopsis following the flags */
	run   func(ctx context.Context, args []string) int
}

var commands map[string]command

/* Flag sets are built after init1.go has settled the formatting codes their help text uses. */
func init() {
	commands = map[string]command{
		"build":  {buildFlags(), "-o PATH", build},
		"crack":  {crackFlags(), "TABLE [-s] [DIGEST|STRING...]", crack},
		"info":   {newFlagSet("info"), "TABLE...", info},
		"passwd": {passwdFlags(), "STORE [USER=PASSWORD...]", store},
	}
}

func main() { os.Exit(program()) }

func binaryName(width int) string {
	origin, err := os.Executable()
	if err != nil {
		origin = "kaleido" /* Default binary name */
	} else {
		origin = filepath.Base(origin)
	}
	return vainpath.Trim(origin, "…", width)
}

// help prints a usage menu for cmd, or for the whole program if cmd is empty. To render in most
// terminal windows, its content should be no wider than 80 columns.
func help(cmd string) {
	name := binaryName(12)
	if c, ok := commands[cmd]; ok {
		Fprint(os.Stderr, "Usage:"+n+
			"  ", name, " ", cmd, " [flags] ", c.usage, n+n+
			"Options:"+n)
		c.flags.PrintDefaults()
		return
	}
	spaces := strings.Repeat(" ", utf8.RuneCountInString(name)+3)
	Fprint(os.Stderr, yell, "Rainbow tables for small plaintext spaces.", zero, n+n+
		"Usage:"+n+
		"  ", name, " build [-a ALPHABET] [-p <int>] [-n <int>] [-l <int>] -o PATH"+n,
		spaces, "crack [-s] [--random <int>] [--store STORE] TABLE [TARGET...]"+n,
		spaces, "info TABLE..."+n,
		spaces, "passwd [-f FUNCTION] STORE [USER=PASSWORD...]"+n+n+
			"Run `", name, " COMMAND -h` for the options of each command. Known functions: "+n,
		"  ", strings.Join(kaleidohash.Functions(), ", "), n)
}

// This program is a command-line interface for kaleidohash: it builds tables to disk, inspects
// them, and cracks digests and password stores with them.
func program() int {
	if len(os.Args) < 2 {
		help("")
		return success
	}
	c, ok := commands[os.Args[1]]
	if !ok {
		help("")
		if os.Args[1] == "-h" || os.Args[1] == "--help" {
			return success
		}
		return invalid
	}
	if err := c.flags.Parse(os.Args[2:]); err != nil {
		Fprint(os.Stderr, err, n)
		return invalid
	}
	if pHelp {
		help(os.Args[1])
		return success
	}

	lvl, err := log.LvlFromString(pVerbosity)
	if err != nil {
		Fprint(os.Stderr, err, n)
		return invalid
	}
	if pQuiet {
		lvl = min(lvl, log.LvlError)
	}
	logger.SetHandler(log.LvlFilterHandler(lvl, log.StreamHandler(os.Stderr, log.LogfmtFormat())))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	code := c.run(ctx, c.flags.Args())

	if !pQuiet {
		if warnings == 1 {
			Fprint(os.Stderr, "1 ", purp, "argument could not be processed.", zero, n)
		} else if warnings > 1 {
			Fprint(os.Stderr, warnings, " ", purp, "arguments could not be processed.", zero, n)
		}
	}
	if code == success && warnings > 0 {
		return failure
	}
	return code
}

// usage reports a malformed invocation of cmd.
func usage(cmd string, err error) int {
	Fprint(os.Stderr, purp, err, zero, n+n)
	help(cmd)
	return invalid
}

// exitCode maps a library error to the exit code it deserves.
func exitCode(err error) int {
	for _, target := range []error{kaleidohash.ErrParams, kaleidohash.ErrAlphabet,
		kaleidohash.ErrSpaceExhausted, kaleidohash.ErrFunction, kaleidohash.ErrReducer} {
		if errors.Is(err, target) {
			return invalid
		}
	}
	return failure
}

func warn(err error, args ...interface{}) {
	if pStrict {
		panic(err)
	}
	logger.Warn(err.Error(), args...)
	warnings++
}

// path renders a filepath for the console the way the rest of the output is rendered.
func path(p string) string {
	if pNoCodes {
		return filepath.Clean(p)
	}
	return und + vainpath.Simplify(p) + zero
}

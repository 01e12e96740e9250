package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	. "fmt"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/c2h5oh/datasize"
	. "github.com/spf13/pflag"

	"github.com/p7r0x7/kaleidohash"
)

// Copyright © 2022 Matthew R Bonnette. Licensed under the Apache-2.0 license.

var bAlphabet, bFunction, bReducer, bKey, bOut string
var bLength, bCount, bPlen, bWorkers int
var bProgress, bSanity bool

func buildFlags() *FlagSet {
	fs := newFlagSet("build")

	fs.StringVarP(&bAlphabet, "alphabet", "a", "classic",
		purp+"plaintext symbols, or one of lower, upper, digits,"+zero+
			n+purp+"alnum, hex, classic"+zero)

	fs.IntVarP(&bCount, "chains", "n", 1500,
		purp+"number of chains"+zero)

	fs.StringVarP(&bFunction, "function", "f", kaleidohash.SHA1.Name,
		purp+"one-way function the table inverts"+zero)

	fs.StringVarP(&bKey, "key", "k", "",
		purp+"64 hex digits keying seed sampling, for reproducible"+zero+
			n+purp+"tables"+zero+" (default random)")

	fs.IntVarP(&bLength, "length", "l", 400,
		purp+"hash/reduce rounds per chain"+zero)

	fs.StringVarP(&bOut, "out", "o", "",
		purp+"write the table to this path"+zero)

	fs.IntVarP(&bPlen, "plaintext-length", "p", 3,
		purp+"symbols per plaintext"+zero)

	fs.BoolVar(&bProgress, "progress", false,
		purp+"report construction progress on stderr"+zero)

	fs.StringVarP(&bReducer, "reducer", "r", "pcg",
		purp+"reduction function: pcg or chacha, optionally"+zero+
			n+purp+"suffixed /stepless"+zero)

	fs.BoolVar(&bSanity, "sanity", false,
		purp+"look up the first chain's seed digest once built"+zero)

	fs.IntVarP(&bWorkers, "workers", "w", runtime.NumCPU(),
		purp+"goroutines computing chains"+zero)
	return fs
}

func build(ctx context.Context, args []string) int {
	if len(args) > 0 {
		return usage("build", Errorf("unexpected arguments %q", args))
	}
	if bOut == "" {
		return usage("build", errors.New("no output path given"))
	}
	space, err := kaleidohash.NewSpace(kaleidohash.Alphabet(bAlphabet), bPlen)
	if err != nil {
		return usage("build", err)
	}
	fn, err := kaleidohash.LookupFunction(bFunction)
	if err != nil {
		return usage("build", err)
	}
	reducer, err := kaleidohash.NewReducer(bReducer, space)
	if err != nil {
		return usage("build", err)
	}
	var key []byte
	if bKey != "" {
		if key, err = hex.DecodeString(bKey); err != nil {
			return usage("build", err)
		}
	}

	opts := kaleidohash.Options{Function: fn, Reducer: reducer, Workers: bWorkers, Key: key, Logger: logger}
	if bProgress && !pQuiet {
		opts.Progress = progress()
	}
	params := kaleidohash.Params{ChainLength: bLength, ChainCount: bCount, PlaintextLength: bPlen}
	if !pQuiet {
		Fprint(os.Stderr, "Generating rainbow table...", n)
	}
	start := time.Now()
	t, err := kaleidohash.Build(ctx, space, params, opts)
	if bProgress && !pQuiet {
		Fprint(os.Stderr, n)
	}
	if err != nil {
		logger.Error("Build failed", "err", err)
		return exitCode(err)
	}
	elapsed := time.Since(start)
	if err = t.Save(bOut); err != nil {
		logger.Error("Could not save table", "path", bOut, "err", err)
		return failure
	}

	if !pQuiet {
		s := t.Summary()
		Print(yell, summary(s), zero, " in ", elapsed.Round(time.Millisecond), n)
		Print(s.Duplicates, " duplicates out of ", s.ChainCount, " rows.", n)
		Print("Saved to ", path(bOut), n)
	}
	if bSanity {
		return sanity(t)
	}
	return success
}

// sanity looks up the digest of the first chain's seed, which the table must always recover.
func sanity(t *kaleidohash.Table) int {
	target := t.Function().Sum(nil, t.Chain(0).Seed)
	p, ok := t.Lookup(target)
	if !ok || !bytes.Equal(t.Function().Sum(nil, p), target) {
		logger.Error("Sanity check failed", "seed", Sprintf("%q", t.Chain(0).Seed))
		return failure
	}
	if !pQuiet {
		Printf("Sanity check: cracked first column's final hash to get %q"+n, p)
	}
	return success
}

// summary renders the one-line description of a table.
func summary(s kaleidohash.Summary) string {
	return Sprintf("%s %dx%d rainbow table with %d hashes", datasize.ByteSize(s.Size).HumanReadable(),
		s.ChainCount, s.ChainLength, s.Hashes)
}

// progress returns an observer printing whole percentages to stderr, each at most once.
func progress() kaleidohash.ProgressFunc {
	var shown atomic.Int64
	shown.Store(-1)
	return func(done, total int) {
		pct := int64(done) * 100 / int64(total)
		if old := shown.Load(); pct > old && shown.CompareAndSwap(old, pct) {
			Fprintf(os.Stderr, "\r%s%3d%%%s", purp, pct, zero)
		}
	}
}

package main

import (
	"context"
	"encoding/hex"
	"errors"
	. "fmt"
	"runtime"
	"time"

	. "github.com/spf13/pflag"

	"github.com/p7r0x7/kaleidohash"
	"github.com/p7r0x7/kaleidohash/passwd"
)

// Copyright © 2022 Matthew R Bonnette. Licensed under the Apache-2.0 license.

var cRandom, cWorkers int
var cStore string
var cString, cTime bool

func crackFlags() *FlagSet {
	fs := newFlagSet("crack")

	fs.IntVar(&cRandom, "random", 0,
		purp+"also try the digests of this many random plaintexts"+zero)

	fs.StringVar(&cStore, "store", "",
		purp+"also try every digest in this password store"+zero)

	fs.BoolVarP(&cString, "string", "s", false,
		purp+"hash arguments as UTF-8 strings instead of decoding"+zero+
			n+purp+"them as hex digests"+zero)

	fs.BoolVarP(&cTime, "time", "t", false,
		purp+"print time taken by each lookup"+zero+" (disables batching)")

	fs.IntVarP(&cWorkers, "workers", "w", runtime.NumCPU(),
		purp+"concurrent lookups"+zero)
	return fs
}

type target struct {
	label  string
	digest []byte
}

func crack(ctx context.Context, args []string) int {
	if len(args) == 0 {
		return usage("crack", errors.New("no table given"))
	}
	t, err := kaleidohash.Load(args[0])
	if err != nil {
		logger.Error("Could not load table", "path", args[0], "err", err)
		return failure
	}
	t = t.WithLogger(logger)
	fn := t.Function()

	var targets []target
	for _, arg := range args[1:] {
		if cString {
			targets = append(targets, target{Sprintf("%q", arg), fn.Sum(nil, []byte(arg))})
			continue
		}
		d, err := hex.DecodeString(arg)
		if err == nil && len(d) != fn.Size {
			err = Errorf("%w: %d bytes, %s digests are %d", kaleidohash.ErrDigestSize, len(d), fn.Name, fn.Size)
		}
		if err != nil {
			warn(err, "target", arg)
			continue
		}
		targets = append(targets, target{arg, d})
	}
	if cStore != "" {
		s, err := passwd.Load(cStore)
		if err != nil {
			logger.Error("Could not load password store", "path", cStore, "err", err)
			return failure
		}
		if s.Function().Name != fn.Name {
			logger.Error("Password store does not match table", "store", s.Function().Name, "table", fn.Name)
			return invalid
		}
		for _, u := range s.Users() {
			h, _ := s.Get(u)
			targets = append(targets, target{"user " + u, h})
		}
	}
	if cRandom > 0 {
		sampler, err := kaleidohash.NewSampler(t.Space(), nil)
		if err != nil {
			logger.Error("Could not sample plaintexts", "err", err)
			return failure
		}
		p := make([]byte, t.PlaintextLength)
		for i := 0; i < cRandom; i++ {
			sampler.Sample(p)
			targets = append(targets, target{Sprintf("%q", p), fn.Sum(nil, p)})
		}
	}

	start, cracked := time.Now(), 0
	if cTime {
		for _, tg := range targets {
			begin := time.Now()
			r, err := t.Search(ctx, tg.digest)
			if err != nil {
				logger.Error("Lookup aborted", "err", err)
				return failure
			}
			cracked += report(tg, r, time.Since(begin))
		}
	} else {
		digests := make([][]byte, len(targets))
		for i := range targets {
			digests[i] = targets[i].digest
		}
		results, err := t.LookupAll(ctx, digests, cWorkers)
		if err != nil {
			logger.Error("Lookup aborted", "err", err)
			return failure
		}
		for i, r := range results {
			cracked += report(targets[i], r, 0)
		}
	}
	if !pQuiet {
		Print(purp, "Cracked ", cracked, " of ", len(targets), " targets in ",
			time.Since(start).Round(time.Millisecond), zero, n)
	}
	return success
}

// report prints one lookup's outcome and returns 1 if it was a crack.
func report(tg target, r kaleidohash.Result, d time.Duration) int {
	delta := ""
	if cTime {
		if d.Microseconds() > 99 {
			d = d.Truncate(10 * time.Microsecond)
		}
		delta = " (" + d.String() + ")"
	}
	logger.Debug("Lookup", "target", tg.label, "found", r.Found, "column", r.Position, "falseAlarms", r.FalseAlarms)
	if !r.Found {
		if !pQuiet {
			Print("-", "  ", tg.label, delta, n)
		}
		return 0
	}
	if pQuiet {
		Printf("%s"+n, r.Plaintext)
	} else {
		Printf("%s%q%s  %s%s"+n, yell, r.Plaintext, zero, tg.label, delta)
	}
	return 1
}

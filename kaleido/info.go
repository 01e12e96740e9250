package main

import (
	"context"
	"errors"
	. "fmt"

	"github.com/p7r0x7/kaleidohash"
)

// Copyright © 2022 Matthew R Bonnette. Licensed under the Apache-2.0 license.

func info(_ context.Context, args []string) int {
	if len(args) == 0 {
		return usage("info", errors.New("no table given"))
	}
	for _, arg := range args {
		t, err := kaleidohash.Load(arg)
		if err != nil {
			warn(err, "path", arg)
			continue
		}
		s := t.Summary()
		if pQuiet {
			Print(summary(s), n)
			continue
		}
		Print(path(arg), n,
			"  ", yell, summary(s), zero, n,
			"  function   ", s.Function, n,
			"  reducer    ", s.Reducer, n,
			"  alphabet   ", Sprintf("%q", s.Alphabet), n,
			"  plaintext  ", s.PlaintextLength, " symbols", n,
			"  ", s.Duplicates, " duplicates out of ", s.ChainCount, " rows.", n)
	}
	return success
}

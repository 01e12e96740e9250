package main

import (
	"context"
	"encoding/hex"
	"errors"
	. "fmt"
	"os"
	"strings"

	. "github.com/spf13/pflag"

	"github.com/p7r0x7/kaleidohash"
	"github.com/p7r0x7/kaleidohash/passwd"
)

// Copyright © 2022 Matthew R Bonnette. Licensed under the Apache-2.0 license.

var sFunction string

func passwdFlags() *FlagSet {
	fs := newFlagSet("passwd")

	fs.StringVarP(&sFunction, "function", "f", kaleidohash.SHA1.Name,
		purp+"one-way function of a newly created store"+zero)
	return fs
}

// store adds USER=PASSWORD pairs to a password store, creating it if needed, or lists it when no
// pairs are given.
func store(_ context.Context, args []string) int {
	if len(args) == 0 {
		return usage("passwd", errors.New("no store given"))
	}
	s, err := passwd.Load(args[0])
	if errors.Is(err, os.ErrNotExist) && len(args) > 1 {
		fn, err := kaleidohash.LookupFunction(sFunction)
		if err != nil {
			return usage("passwd", err)
		}
		s = passwd.New(fn)
	} else if err != nil {
		logger.Error("Could not load password store", "path", args[0], "err", err)
		return failure
	}

	if len(args) == 1 {
		for _, u := range s.Users() {
			h, _ := s.Get(u)
			if pQuiet {
				Print(hex.EncodeToString(h), n)
			} else {
				Print(yell, hex.EncodeToString(h), zero, "  ", u, n)
			}
		}
		return success
	}
	for _, arg := range args[1:] {
		user, password, ok := strings.Cut(arg, "=")
		if !ok {
			warn(Errorf("expected USER=PASSWORD, got %q", arg))
			continue
		}
		if err := s.Set(user, password); err != nil {
			warn(err, "user", user)
		}
	}
	if err := s.Save(args[0]); err != nil {
		logger.Error("Could not save password store", "path", args[0], "err", err)
		return failure
	}
	if !pQuiet {
		Print(s.Len(), " users in ", path(args[0]), " (", s.Function().Name, ")", n)
	}
	return success
}

package main

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	. "fmt"
	"strings"

	"golang.org/x/sys/cpu"

	"github.com/p7r0x7/kaleidohash"
)

// Copyright © 2022 Matthew R Bonnette. Licensed under the Apache-2.0 license.

const digests = 5e4

// features lists the instruction set extensions the registered functions can take advantage of.
func features() string {
	var have []string
	for _, f := range []struct {
		name string
		ok   bool
	}{
		{"ssse3", cpu.X86.HasSSSE3},
		{"sse4.1", cpu.X86.HasSSE41},
		{"avx2", cpu.X86.HasAVX2},
		{"avx512f", cpu.X86.HasAVX512F},
		{"bmi2", cpu.X86.HasBMI2},
		{"asimd", cpu.ARM64.HasASIMD},
		{"sha1", cpu.ARM64.HasSHA1},
		{"sha2", cpu.ARM64.HasSHA2},
	} {
		if f.ok {
			have = append(have, f.name)
		}
	}
	if len(have) == 0 {
		return "(no SIMD extensions detected)"
	}
	return "(" + strings.Join(have, " ") + ")"
}

// meanBias reduces every digest and returns the mean absolute deviation of each symbol's count
// from a perfectly even spread, as a percentage of that spread.
func meanBias(r kaleidohash.Reducer, space *kaleidohash.Space, sums [][]byte) float64 {
	tally, p := make([]int, space.Base()), make([]byte, space.Len())
	for i, sum := range sums {
		r.Reduce(p, sum, i%1000)
		for _, b := range p {
			tally[space.Index(b)]++
		}
	}
	expected := float64(len(sums)*space.Len()) / float64(space.Base())
	var total float64
	for _, c := range tally {
		if d := float64(c) - expected; d < 0 {
			total -= d
		} else {
			total += d
		}
	}
	return total / float64(len(tally)) / expected * 100
}

func reducerTests() {
	space, err := kaleidohash.NewSpace(kaleidohash.Classic, 8)
	if err != nil {
		panic(err)
	}
	integers, random := make([][]byte, digests), make([][]byte, digests)
	msg := make([]byte, 1024)
	for i := range integers {
		binary.BigEndian.PutUint32(msg[:4], uint32(i))
		integers[i] = kaleidohash.SHA1.Sum(nil, msg[:4])
		_, _ = rand.Read(msg)
		random[i] = kaleidohash.SHA1.Sum(nil, msg)
	}
	for _, r := range []kaleidohash.Reducer{kaleidohash.PCG(space), kaleidohash.ChaCha(space)} {
		Printf("%-8s integer input symbol bias:  %5.3f%%\n", r.Name(), meanBias(r, space, integers))
		Printf("%-8s random input symbol bias:   %5.3f%%\n", r.Name(), meanBias(r, space, random))
	}

	/* Merges: a column-independent reduction lets chains that collide anywhere collapse. */
	lower, _ := kaleidohash.NewSpace(kaleidohash.Alphabet("lower"), 4)
	p := kaleidohash.Params{ChainLength: 200, ChainCount: 4096, PlaintextLength: 4}
	for _, r := range []kaleidohash.Reducer{kaleidohash.PCG(lower), kaleidohash.Stepless(kaleidohash.PCG(lower))} {
		t, err := kaleidohash.Build(context.Background(), lower, p, kaleidohash.Options{Reducer: r})
		if err != nil {
			panic(err)
		}
		Printf("%-13s %d duplicates out of %d rows.\n", r.Name(), t.Duplicates(), t.ChainCount)
	}
}

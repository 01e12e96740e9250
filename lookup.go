package kaleidohash

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/zeebo/xxh3"
)

// Copyright © 2022 Matthew R Bonnette. Licensed under the Apache-2.0 license.
// Inversion: a column check against the stored terminals, then a row check that hypothesises the
// target in every earlier column. A terminal match is only ever a reason to replay a chain; no
// plaintext is returned until its digest has been compared against the target.

// Result describes the outcome of a Search.
type Result struct {
	Found       bool
	Plaintext   []byte /* nil unless Found */
	Position    int    /* column of the chain the target was found in; ChainLength for a terminal */
	Chain       int    /* index of that chain in terminal order */
	FalseAlarms int    /* terminal matches whose chains never reached the target */
}

// Lookup returns a plaintext whose digest is target, if the table covers one.
func (t *Table) Lookup(target []byte) ([]byte, bool) {
	r, err := t.Search(context.Background(), target)
	if err != nil || !r.Found {
		return nil, false
	}
	return r.Plaintext, true
}

// Search runs the column check and then the row check for target, checking ctx between row-check
// iterations. A miss is reported as a Result with Found unset, not as an error.
func (t *Table) Search(ctx context.Context, target []byte) (Result, error) {
	var r Result
	if len(target) != t.fn.Size {
		return r, fmt.Errorf("%w: %d bytes, %s digests are %d", ErrDigestSize, len(target), t.fn.Name, t.fn.Size)
	}

	if t.verify(target, target, t.ChainLength, &r) {
		return r, nil
	}

	h, p := make([]byte, 0, t.fn.Size), make([]byte, t.space.length)
	for k := 1; k <= t.ChainLength; k++ {
		if err := ctx.Err(); err != nil {
			return r, err
		}
		/* Had target sat in a later column of any chain, an earlier k would have found it. */
		h = t.gen.carry(h, p, target, t.ChainLength-k)
		if t.verify(h, target, t.ChainLength-k, &r) {
			return r, nil
		}
	}
	return r, nil
}

// verify replays, up to column upto, every chain whose terminal equals terminal, looking for
// target. It fills r and returns true on the first chain that actually passes through target.
// Chains sharing a terminal are walked in lockstep; once two of them hold the same digest in the
// same column they have merged and only one is carried further.
func (t *Table) verify(terminal, target []byte, upto int, r *Result) bool {
	lo, ok := slices.BinarySearchFunc(t.chains, terminal, func(c Chain, x []byte) int {
		return bytes.Compare(c.Terminal, x)
	})
	if !ok {
		return false
	}
	hi := lo + 1
	for hi < len(t.chains) && bytes.Equal(t.chains[hi].Terminal, terminal) {
		hi++
	}

	alive := make([]lineage, 0, hi-lo)
	for c := lo; c < hi; c++ {
		p := append([]byte(nil), t.chains[c].Seed...)
		alive = append(alive, lineage{c, p, t.fn.Sum(make([]byte, 0, t.fn.Size), p)})
	}
	var merged map[uint64][]byte
	for i := 0; ; i++ {
		for _, l := range alive {
			if bytes.Equal(l.h, target) {
				r.Found, r.Position, r.Chain = true, i, l.chain
				r.Plaintext = l.p
				return true
			}
		}
		if i == upto {
			break
		}
		if len(alive) > 1 {
			if merged == nil {
				merged = make(map[uint64][]byte, len(alive))
			}
			clear(merged)
			n := 0
			for _, l := range alive {
				k := xxh3.Hash(l.h)
				if h, ok := merged[k]; ok && bytes.Equal(h, l.h) {
					continue
				}
				merged[k] = l.h
				alive[n] = l
				n++
			}
			alive = alive[:n]
		}
		for j := range alive {
			t.reducer.Reduce(alive[j].p, alive[j].h, i)
			alive[j].h = t.fn.Sum(alive[j].h[:0], alive[j].p)
		}
	}

	r.FalseAlarms += hi - lo
	t.log.Trace("False alarm", "chains", hi-lo, "column", upto, "terminal", fmt.Sprintf("%x", terminal))
	return false
}

type lineage struct {
	chain int
	p, h  []byte
}

// LookupAll searches every target on up to workers goroutines (runtime.NumCPU() if workers < 1)
// and returns the results in the order of targets. It stops early, returning ctx's error, if ctx
// is cancelled.
func (t *Table) LookupAll(ctx context.Context, targets [][]byte, workers int) ([]Result, error) {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	results, errs := make([]Result, len(targets)), make([]error, len(targets))
	to := make(chan int, workers)
	var summing sync.WaitGroup
	summing.Add(workers)
	for i := workers; i > 0; i-- {
		go func() {
			defer summing.Done()
			for j := range to {
				results[j], errs[j] = t.Search(ctx, targets[j])
			}
		}()
	}
feed:
	for j := range targets {
		select {
		case to <- j:
		case <-ctx.Done():
			break feed
		}
	}
	close(to)
	summing.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

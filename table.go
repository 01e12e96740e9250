// Package kaleidohash builds and queries rainbow tables: precomputed chains of alternating hash
// and reduction steps that trade table size for lookup time when inverting a one-way function
// over a small plaintext space.
package kaleidohash

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ledgerwatch/log/v3"
)

// Copyright © 2022 Matthew R Bonnette. Licensed under the Apache-2.0 license.
// Table construction: seed sampling, the chain worker pool, and the final sort.

// Params are the dimensions of a table.
type Params struct {
	ChainLength     int /* hash/reduce rounds per chain after the seed's own hash */
	ChainCount      int
	PlaintextLength int
}

// ProgressFunc observes construction; done counts finished chains out of total. It is called
// from every worker goroutine and must be safe for concurrent use.
type ProgressFunc func(done, total int)

// Options tune how a table is built. The zero value of every field selects its default.
type Options struct {
	Function Function     /* default SHA1 */
	Reducer  Reducer      /* default PCG over the table's space */
	Workers  int          /* default runtime.NumCPU() */
	Key      []byte       /* 32-byte seed-sampling key; default random */
	Progress ProgressFunc /* optional */
	Logger   log.Logger   /* default discards everything */
}

// DefaultOptions returns Options selecting SHA1, the PCG reducer and one worker per CPU.
func DefaultOptions() Options {
	return Options{Function: SHA1, Workers: runtime.NumCPU()}
}

func (o Options) withDefaults(space *Space) Options {
	if o.Function.sum == nil {
		o.Function = SHA1
	}
	if o.Reducer == nil {
		o.Reducer = PCG(space)
	}
	if o.Workers < 1 {
		o.Workers = runtime.NumCPU()
	}
	if o.Logger == nil {
		o.Logger = discard()
	}
	return o
}

func discard() log.Logger {
	l := log.New()
	l.SetHandler(log.DiscardHandler())
	return l
}

// Table is an immutable set of chains sorted by terminal digest. It is safe for concurrent use.
type Table struct {
	Params
	space   *Space
	fn      Function
	reducer Reducer
	gen     *Generator
	chains  []Chain
	log     log.Logger
}

func (p Params) validate(space *Space) error {
	switch {
	case p.ChainCount < 1:
		return fmt.Errorf("%w: chain count %d, must be at least 1", ErrParams, p.ChainCount)
	case p.ChainLength < 0:
		return fmt.Errorf("%w: chain length %d, must not be negative", ErrParams, p.ChainLength)
	case p.PlaintextLength != space.length:
		return fmt.Errorf("%w: plaintext length %d, space holds %d", ErrParams, p.PlaintextLength, space.length)
	}
	if size, ok := space.Size(); ok && uint64(p.ChainCount) > size {
		return fmt.Errorf("%w: %d chains over %d plaintexts", ErrSpaceExhausted, p.ChainCount, size)
	}
	return nil
}

// Build samples p.ChainCount distinct seeds from space, computes their chains in parallel and
// returns them sorted. It fails before doing any work if the space cannot hold that many seeds.
func Build(ctx context.Context, space *Space, p Params, opts Options) (*Table, error) {
	if err := p.validate(space); err != nil {
		return nil, err
	}
	opts = opts.withDefaults(space)
	sampler, err := NewSampler(space, opts.Key)
	if err != nil {
		return nil, err
	}

	t := time.Now()
	seeds, rejected, err := sampleSeeds(ctx, sampler, space, p.ChainCount)
	if err != nil {
		return nil, err
	}
	opts.Logger.Debug("Sampled seeds", "seeds", p.ChainCount, "rejected", rejected, "elapsed", time.Since(t))
	return build(ctx, space, p.ChainLength, seeds, opts)
}

// BuildFromSeeds builds a table from caller-chosen seeds, which must be distinct members of
// space.
func BuildFromSeeds(ctx context.Context, space *Space, chainLength int, seeds [][]byte, opts Options) (*Table, error) {
	p := Params{ChainLength: chainLength, ChainCount: len(seeds), PlaintextLength: space.length}
	if err := p.validate(space); err != nil {
		return nil, err
	}
	arena, seen := make([]byte, 0, len(seeds)*space.length), make(map[string]struct{}, len(seeds))
	for _, s := range seeds {
		if !space.Contains(s) {
			return nil, fmt.Errorf("%w: seed %q", ErrPlaintext, s)
		}
		if _, ok := seen[string(s)]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSeed, s)
		}
		seen[string(s)] = struct{}{}
		arena = append(arena, s...)
	}
	return build(ctx, space, chainLength, arena, opts.withDefaults(space))
}

// sampleSeeds draws count distinct plaintexts into one flat arena, rejecting repeats.
func sampleSeeds(ctx context.Context, s *Sampler, space *Space, count int) ([]byte, int, error) {
	arena, seen := make([]byte, count*space.length), make(map[string]struct{}, count)
	rejected := 0
	for i := 0; i < count; {
		if (i+rejected)&4095 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
		}
		seed := arena[i*space.length : (i+1)*space.length]
		s.Sample(seed)
		if _, ok := seen[string(seed)]; ok {
			rejected++
			continue
		}
		seen[string(seed)] = struct{}{}
		i++
	}
	return arena, rejected, nil
}

const chainsPerSpan = 256

type span struct{ lo, hi int }

func build(ctx context.Context, space *Space, chainLength int, seeds []byte, opts Options) (*Table, error) {
	count, plen, size := len(seeds)/space.length, space.length, opts.Function.Size
	gen := NewGenerator(space, opts.Function, opts.Reducer, chainLength)

	chains, terminals := make([]Chain, count), make([]byte, count*size)
	for i := range chains {
		chains[i] = Chain{
			Seed:     seeds[i*plen : (i+1)*plen : (i+1)*plen],
			Terminal: terminals[i*size : (i+1)*size : (i+1)*size],
		}
	}

	t := time.Now()
	var (
		to      = make(chan span, opts.Workers)
		summing sync.WaitGroup
		done    atomic.Int64
	)
	summing.Add(opts.Workers)
	for i := opts.Workers; i > 0; i-- {
		go func() {
			defer summing.Done()
			for s := range to {
				for c := s.lo; c < s.hi; c++ {
					gen.Forward(chains[c].Terminal[:0], chains[c].Seed)
					if n := done.Add(1); opts.Progress != nil {
						opts.Progress(int(n), count)
					}
				}
			}
		}()
	}
feed:
	for lo := 0; lo < count; lo += chainsPerSpan {
		select {
		case to <- span{lo, min(lo+chainsPerSpan, count)}:
		case <-ctx.Done():
			break feed
		}
	}
	close(to)
	summing.Wait() /* No chain is read until every worker has returned. */
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(chains, func(a, b Chain) int { return bytes.Compare(a.Terminal, b.Terminal) })
	tbl := newTable(space, opts.Function, opts.Reducer, chainLength, chains, opts.Logger)
	opts.Logger.Info("Built table", "chains", count, "length", chainLength, "function", opts.Function.Name,
		"reducer", opts.Reducer.Name(), "duplicates", tbl.Duplicates(), "elapsed", time.Since(t))
	return tbl, nil
}

func newTable(space *Space, fn Function, reducer Reducer, chainLength int, chains []Chain, logger log.Logger) *Table {
	if logger == nil {
		logger = discard()
	}
	return &Table{
		Params:  Params{ChainLength: chainLength, ChainCount: len(chains), PlaintextLength: space.length},
		space:   space,
		fn:      fn,
		reducer: reducer,
		gen:     NewGenerator(space, fn, reducer, chainLength),
		chains:  chains,
		log:     logger,
	}
}

func (t *Table) Space() *Space { return t.space }

func (t *Table) Function() Function { return t.fn }

func (t *Table) Reducer() Reducer { return t.reducer }

// Generator returns the generator the table's chains were computed with.
func (t *Table) Generator() *Generator { return t.gen }

// Chain returns the i-th chain in terminal order. The returned slices must not be modified.
func (t *Table) Chain(i int) Chain { return t.chains[i] }

// WithLogger returns a view of t whose lookups report through l; nil discards. The chains are
// shared, not copied.
func (t *Table) WithLogger(l log.Logger) *Table {
	if l == nil {
		l = discard()
	}
	v := *t
	v.log = l
	return &v
}

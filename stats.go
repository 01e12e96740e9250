package kaleidohash

import "bytes"

// Copyright © 2022 Matthew R Bonnette. Licensed under the Apache-2.0 license.

// Duplicates counts the chains whose terminal repeats that of the chain before them, i.e. how
// many rows were lost to merges.
func (t *Table) Duplicates() int {
	n := 0
	for i := 1; i < len(t.chains); i++ {
		if bytes.Equal(t.chains[i].Terminal, t.chains[i-1].Terminal) {
			n++
		}
	}
	return n
}

// EstimatedSize is the number of bytes the chains occupy: one seed and one terminal per row.
func (t *Table) EstimatedSize() int64 {
	return int64(t.ChainCount) * int64(t.PlaintextLength+t.fn.Size)
}

// Hashes is the number of chain links, hash and reduction pairs, the table stands in for.
func (t *Table) Hashes() int64 {
	return int64(t.ChainCount) * int64(t.ChainLength)
}

// Summary collects everything worth printing about a table.
type Summary struct {
	Params
	Function   string
	Reducer    string
	Alphabet   string
	Duplicates int
	Size       int64
	Hashes     int64
}

func (t *Table) Summary() Summary {
	return Summary{
		Params:     t.Params,
		Function:   t.fn.Name,
		Reducer:    t.reducer.Name(),
		Alphabet:   t.space.Alphabet(),
		Duplicates: t.Duplicates(),
		Size:       t.EstimatedSize(),
		Hashes:     t.Hashes(),
	}
}

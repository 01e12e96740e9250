package kaleidohash

// Copyright © 2022 Matthew R Bonnette. Licensed under the Apache-2.0 license.

// Chain is one row of a table: the plaintext it starts from and the digest it ends on. Everything
// in between is recomputed from Seed on demand.
type Chain struct {
	Seed     []byte
	Terminal []byte
}

// Generator computes chains of a fixed length. It holds no mutable state and may be shared by any
// number of goroutines.
type Generator struct {
	space   *Space
	fn      Function
	reducer Reducer
	length  int
}

func NewGenerator(space *Space, fn Function, reducer Reducer, chainLength int) *Generator {
	if chainLength < 0 {
		panic("kaleidohash: NewGenerator: negative chain length")
	}
	return &Generator{space: space, fn: fn, reducer: reducer, length: chainLength}
}

// Length is the number of hash/reduce rounds after the seed's own hash.
func (g *Generator) Length() int { return g.length }

// Forward appends the terminal digest of the chain starting at seed to dst.
func (g *Generator) Forward(dst, seed []byte) []byte {
	h := g.fn.Sum(make([]byte, 0, g.fn.Size), seed)
	p := make([]byte, g.space.length)
	for i := 0; i < g.length; i++ {
		g.reducer.Reduce(p, h, i)
		h = g.fn.Sum(h[:0], p)
	}
	return append(dst, h...)
}

// Walk replays the chain starting at seed, calling visit with each column i in 0..Length, its
// plaintext p and its digest h = H(p); p for column 0 is the seed. Walk stops as soon as visit
// returns false. The slices passed to visit are reused between calls.
func (g *Generator) Walk(seed []byte, visit func(i int, p, h []byte) bool) {
	p := make([]byte, len(seed))
	copy(p, seed)
	h := g.fn.Sum(make([]byte, 0, g.fn.Size), p)
	if !visit(0, p, h) {
		return
	}
	for i := 0; i < g.length; i++ {
		g.reducer.Reduce(p, h, i)
		h = g.fn.Sum(h[:0], p)
		if !visit(i+1, p, h) {
			return
		}
	}
}

// carry continues a digest assumed to sit in column from to the end of the chain, returning the
// terminal it would produce. Scratch buffers are supplied by the caller.
func (g *Generator) carry(h, p, target []byte, from int) []byte {
	h = append(h[:0], target...)
	for i := from; i < g.length; i++ {
		g.reducer.Reduce(p, h, i)
		h = g.fn.Sum(h[:0], p)
	}
	return h
}

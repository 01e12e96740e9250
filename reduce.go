package kaleidohash

import (
	"encoding/binary"
	"fmt"
	. "math/bits"
	"strings"

	"github.com/aead/chacha20/chacha"
)

// Copyright © 2022 Matthew R Bonnette. Licensed under the Apache-2.0 license.
// Reduction functions map a digest, and the column of the chain it sits in, back into the
// plaintext space. They are the single largest influence on how many chains merge.

const (
	pcgHi, pcgLo = 2549297995355413924, 4865540595714422341
	fracPhi      = 0x9e3779b97f4a7c15
	/* The column is folded into the state as a Weyl sequence over the fractional digits of the
	golden ratio, so two equal digests in different columns reduce to unrelated plaintexts. */
)

// Reducer deterministically maps (digest, step) to a plaintext. Implementations must be pure and
// safe for concurrent use.
type Reducer interface {
	// Name identifies the reducer in persisted tables.
	Name() string
	// Reduce fills dst, whose length must equal the space's plaintext length, with symbols drawn
	// pseudo-uniformly from the alphabet.
	Reduce(dst, sum []byte, step int)
}

// NewReducer returns the reducer called name over space: "pcg", "chacha", or either of those
// suffixed with "/stepless".
func NewReducer(name string, space *Space) (Reducer, error) {
	base, stepless := strings.CutSuffix(name, steplessSuffix)
	var r Reducer
	switch base {
	case "pcg":
		r = PCG(space)
	case "chacha":
		r = ChaCha(space)
	default:
		return nil, fmt.Errorf("%w: %q", ErrReducer, name)
	}
	if stepless {
		r = Stepless(r)
	}
	return r, nil
}

// PCG is the default reducer: a 128-bit multiplicative PCG seeded from every byte of the digest.
func PCG(space *Space) Reducer { return pcgReducer{space} }

type pcgReducer struct{ space *Space }

func (pcgReducer) Name() string { return "pcg" }

func (r pcgReducer) Reduce(dst, sum []byte, step int) {
	checkDst(r.space, dst)
	var pHi, pLo uint64
	advance := func() {
		/* pcgmcg128 requires 128-bit multiplication; here it is emulated using 64-bit values. */
		hi, lo := Mul64(pLo, pcgLo)
		hi += pcgHi*pLo + pcgLo*pHi
		pHi, pLo = hi, lo
	}

	for ; len(sum) >= 8; sum = sum[8:] {
		pLo += binary.LittleEndian.Uint64(sum)
		advance()
	}
	if len(sum) > 0 {
		var tail [8]byte
		copy(tail[:], sum)
		pLo += binary.LittleEndian.Uint64(tail[:])
		advance()
	}
	pLo += uint64(step+1) * fracPhi
	pLo |= 1 /* An even state would decay towards zero. */
	advance()
	advance()

	n := uint64(len(r.space.alphabet))
	for i := range dst {
		advance()
		val := RotateLeft64(pHi^pLo, int(pHi>>58))
		j, _ := Mul64(val, n)
		dst[i] = r.space.alphabet[j]
	}
}

// ChaCha reduces by keying ChaCha8 with the digest and using the step as its nonce.
func ChaCha(space *Space) Reducer { return chachaReducer{space} }

type chachaReducer struct{ space *Space }

func (chachaReducer) Name() string { return "chacha" }

func (r chachaReducer) Reduce(dst, sum []byte, step int) {
	checkDst(r.space, dst)
	var key [32]byte
	for i, b := range sum {
		key[i&31] ^= b
	}
	var nonce [8]byte
	binary.LittleEndian.PutUint64(nonce[:], uint64(step))
	stream, err := chacha.NewCipher(nonce[:], key[:], 8)
	if err != nil {
		panic(err)
	}

	n := len(r.space.alphabet)
	limit := 256 - 256%n
	var block [64]byte
	pos := len(block)
	for i := 0; i < len(dst); {
		if pos == len(block) {
			block = [64]byte{}
			stream.XORKeyStream(block[:], block[:])
			pos = 0
		}
		b := int(block[pos])
		pos++
		if b < limit {
			dst[i] = r.space.alphabet[b%n]
			i++
		}
	}
}

const steplessSuffix = "/stepless"

// Stepless wraps r so that every column reduces as column 0 would. Chains built this way merge
// whenever they meet, regardless of position; it exists to measure exactly that.
func Stepless(r Reducer) Reducer { return stepless{r} }

type stepless struct{ r Reducer }

func (s stepless) Name() string { return s.r.Name() + steplessSuffix }

func (s stepless) Reduce(dst, sum []byte, _ int) { s.r.Reduce(dst, sum, 0) }

func checkDst(space *Space, dst []byte) {
	if len(dst) != space.length {
		panic(fmt.Errorf("kaleidohash: Reduce: dst of %d bytes invalid, must be %d", len(dst), space.length))
	}
}

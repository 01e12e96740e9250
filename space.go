package kaleidohash

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/bits"

	"github.com/aead/chacha20/chacha"
)

// Copyright © 2022 Matthew R Bonnette. Licensed under the Apache-2.0 license.
// The plaintext space every chain is drawn from, and the keyed sampler that seeds new tables.

// Classic is the 75-symbol charset, '0' through 'z', that tables have historically been built over.
const Classic = "0123456789:;<=>?@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_`abcdefghijklmnopqrstuvwxyz"

var alphabets = map[string]string{
	"lower":   "abcdefghijklmnopqrstuvwxyz",
	"upper":   "ABCDEFGHIJKLMNOPQRSTUVWXYZ",
	"digits":  "0123456789",
	"alnum":   "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz",
	"hex":     "0123456789abcdef",
	"classic": Classic,
}

// Alphabet resolves a preset name (lower, upper, digits, alnum, hex, classic) to its symbols.
// Any other string is returned as-is and taken to be a literal alphabet.
func Alphabet(name string) string {
	if a, ok := alphabets[name]; ok {
		return a
	}
	return name
}

// Space is the set of all plaintexts of a fixed length over a fixed alphabet.
type Space struct {
	alphabet []byte
	length   int
	index    [256]int16 /* -1 for bytes outside the alphabet */
}

func NewSpace(alphabet string, length int) (*Space, error) {
	if length < 1 {
		return nil, fmt.Errorf("%w: plaintext length %d, must be at least 1", ErrParams, length)
	}
	if len(alphabet) == 0 || len(alphabet) > 256 {
		return nil, fmt.Errorf("%w: %d symbols", ErrAlphabet, len(alphabet))
	}
	s := &Space{alphabet: []byte(alphabet), length: length}
	for i := range s.index {
		s.index[i] = -1
	}
	for i, b := range s.alphabet {
		if s.index[b] >= 0 {
			return nil, fmt.Errorf("%w: symbol %q repeats", ErrAlphabet, b)
		}
		s.index[b] = int16(i)
	}
	return s, nil
}

func (s *Space) Alphabet() string { return string(s.alphabet) }

// Len is the length of every plaintext in s.
func (s *Space) Len() int { return s.length }

// Base is the number of symbols in the alphabet.
func (s *Space) Base() int { return len(s.alphabet) }

func (s *Space) Symbol(i int) byte { return s.alphabet[i] }

// Index returns the position of b in the alphabet, or -1.
func (s *Space) Index(b byte) int { return int(s.index[b]) }

// Size returns the number of distinct plaintexts in s; ok is false if that number overflows a
// uint64, in which case the space is, for every practical chain count, unbounded.
func (s *Space) Size() (size uint64, ok bool) {
	size = 1
	for i := 0; i < s.length; i++ {
		hi, lo := bits.Mul64(size, uint64(len(s.alphabet)))
		if hi != 0 {
			return math.MaxUint64, false
		}
		size = lo
	}
	return size, true
}

// Contains reports whether p is a member of s.
func (s *Space) Contains(p []byte) bool {
	if len(p) != s.length {
		return false
	}
	for _, b := range p {
		if s.index[b] < 0 {
			return false
		}
	}
	return true
}

// Sampler draws uniformly random plaintexts from a Space using a ChaCha keystream. A Sampler is
// not safe for concurrent use.
type Sampler struct {
	space  *Space
	stream *chacha.Cipher
	limit  int
	buf    []byte
	pos    int
}

const samplerBufSize = 512

// NewSampler keys a sampler with key, which must be nil or 32 bytes long. A nil key is replaced
// by one read from crypto/rand; a fixed key makes the sequence of samples reproducible.
func NewSampler(space *Space, key []byte) (*Sampler, error) {
	var k [32]byte
	switch len(key) {
	case 0:
		if _, err := rand.Read(k[:]); err != nil {
			return nil, err
		}
	case 32:
		copy(k[:], key)
	default:
		return nil, fmt.Errorf("%w: sampler key of %d bytes, must be 32", ErrParams, len(key))
	}
	var nonce [8]byte
	stream, err := chacha.NewCipher(nonce[:], k[:], 20)
	if err != nil {
		return nil, err
	}
	n := len(space.alphabet)
	return &Sampler{
		space:  space,
		stream: stream,
		limit:  256 - 256%n, /* Bytes at or past limit would bias the low symbols. */
		buf:    make([]byte, samplerBufSize),
		pos:    samplerBufSize,
	}, nil
}

// Sample fills dst, which must be Len() bytes long, with a random plaintext.
func (s *Sampler) Sample(dst []byte) {
	n := len(s.space.alphabet)
	for i := 0; i < len(dst); {
		if s.pos == len(s.buf) {
			for j := range s.buf {
				s.buf[j] = 0
			}
			s.stream.XORKeyStream(s.buf, s.buf)
			s.pos = 0
		}
		b := int(s.buf[s.pos])
		s.pos++
		if b >= s.limit {
			continue
		}
		dst[i] = s.space.alphabet[b%n]
		i++
	}
}

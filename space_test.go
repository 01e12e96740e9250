package kaleidohash_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p7r0x7/kaleidohash"
)

func TestNewSpace_Errors(t *testing.T) {
	cases := []struct {
		name     string
		alphabet string
		length   int
		err      error
	}{
		{"EmptyAlphabet", "", 3, kaleidohash.ErrAlphabet},
		{"RepeatedSymbol", "abca", 3, kaleidohash.ErrAlphabet},
		{"ZeroLength", "abc", 0, kaleidohash.ErrParams},
		{"NegativeLength", "abc", -1, kaleidohash.ErrParams},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := kaleidohash.NewSpace(tc.alphabet, tc.length)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestSpace_Size(t *testing.T) {
	s, err := kaleidohash.NewSpace(kaleidohash.Alphabet("lower"), 3)
	require.NoError(t, err)
	size, ok := s.Size()
	assert.True(t, ok)
	assert.Equal(t, uint64(17576), size)

	s, err = kaleidohash.NewSpace(kaleidohash.Classic, 3)
	require.NoError(t, err)
	size, _ = s.Size()
	assert.Equal(t, uint64(421875), size)

	/* 75^11 overflows a uint64. */
	s, err = kaleidohash.NewSpace(kaleidohash.Classic, 11)
	require.NoError(t, err)
	size, ok = s.Size()
	assert.False(t, ok)
	assert.Equal(t, uint64(math.MaxUint64), size)
}

func TestSpace_Contains(t *testing.T) {
	s, err := kaleidohash.NewSpace("abc", 2)
	require.NoError(t, err)
	assert.True(t, s.Contains([]byte("ab")))
	assert.True(t, s.Contains([]byte("cc")))
	assert.False(t, s.Contains([]byte("ad")))
	assert.False(t, s.Contains([]byte("abc")))
	assert.False(t, s.Contains(nil))
	assert.Equal(t, 2, s.Index('c'))
	assert.Equal(t, -1, s.Index('z'))
	assert.Equal(t, byte('b'), s.Symbol(1))
}

func TestAlphabet_Presets(t *testing.T) {
	assert.Len(t, kaleidohash.Alphabet("lower"), 26)
	assert.Len(t, kaleidohash.Alphabet("alnum"), 62)
	assert.Len(t, kaleidohash.Alphabet("classic"), 75)
	assert.Equal(t, "xyz", kaleidohash.Alphabet("xyz"))
}

func TestSampler_Reproducible(t *testing.T) {
	s, err := kaleidohash.NewSpace(kaleidohash.Alphabet("lower"), 8)
	require.NoError(t, err)
	key := make([]byte, 32)
	key[0] = 7

	a, err := kaleidohash.NewSampler(s, key)
	require.NoError(t, err)
	b, err := kaleidohash.NewSampler(s, key)
	require.NoError(t, err)
	pa, pb := make([]byte, 8), make([]byte, 8)
	for i := 0; i < 1000; i++ {
		a.Sample(pa)
		b.Sample(pb)
		require.Equal(t, pa, pb)
		require.True(t, s.Contains(pa), "sample %q outside of space", pa)
	}
}

func TestSampler_BadKey(t *testing.T) {
	s, err := kaleidohash.NewSpace("ab", 1)
	require.NoError(t, err)
	_, err = kaleidohash.NewSampler(s, []byte("short"))
	require.ErrorIs(t, err, kaleidohash.ErrParams)
}

// With a hundred symbols, 256 is far from a multiple of the alphabet size: a sampler that
// skipped rejection would draw the first 56 symbols half again as often as the rest.
func TestSampler_Uniform(t *testing.T) {
	alphabet := make([]byte, 100)
	for i := range alphabet {
		alphabet[i] = byte(i)
	}
	s, err := kaleidohash.NewSpace(string(alphabet), 1)
	require.NoError(t, err)
	sampler, err := kaleidohash.NewSampler(s, make([]byte, 32))
	require.NoError(t, err)

	const n = 1000000
	counts, p := make([]int, 100), make([]byte, 1)
	for i := 0; i < n; i++ {
		sampler.Sample(p)
		counts[p[0]]++
	}
	for b, c := range counts {
		assert.InDelta(t, n/100, c, n/1000, "symbol %d", b)
	}
}

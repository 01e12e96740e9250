package kaleidohash_test

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p7r0x7/kaleidohash"
)

func reducers(t *testing.T, space *kaleidohash.Space) []kaleidohash.Reducer {
	t.Helper()
	var rs []kaleidohash.Reducer
	for _, name := range []string{"pcg", "chacha", "pcg/stepless", "chacha/stepless"} {
		r, err := kaleidohash.NewReducer(name, space)
		require.NoError(t, err)
		require.Equal(t, name, r.Name())
		rs = append(rs, r)
	}
	return rs
}

func digestOf(i int) []byte {
	var msg [8]byte
	binary.LittleEndian.PutUint64(msg[:], uint64(i))
	return kaleidohash.SHA1.Sum(nil, msg[:])
}

func TestReducer_DeterministicAndInRange(t *testing.T) {
	space, err := kaleidohash.NewSpace(kaleidohash.Alphabet("lower"), 6)
	require.NoError(t, err)
	for _, r := range reducers(t, space) {
		t.Run(r.Name(), func(t *testing.T) {
			a, b := make([]byte, 6), make([]byte, 6)
			for i := 0; i < 500; i++ {
				h := digestOf(i)
				r.Reduce(a, h, i)
				r.Reduce(b, h, i)
				require.Equal(t, a, b)
				require.True(t, space.Contains(a), "%q outside of space", a)
			}
		})
	}
}

func TestReducer_StepSensitivity(t *testing.T) {
	space, err := kaleidohash.NewSpace(kaleidohash.Alphabet("lower"), 8)
	require.NoError(t, err)
	for _, name := range []string{"pcg", "chacha"} {
		t.Run(name, func(t *testing.T) {
			r, err := kaleidohash.NewReducer(name, space)
			require.NoError(t, err)
			a, b := make([]byte, 8), make([]byte, 8)
			same := 0
			for i := 0; i < 1000; i++ {
				h := digestOf(i)
				r.Reduce(a, h, 5)
				r.Reduce(b, h, 6)
				if bytes.Equal(a, b) {
					same++
				}
			}
			assert.Zero(t, same, "adjacent columns should reduce the same digest differently")
		})
	}
}

func TestStepless_IgnoresStep(t *testing.T) {
	space, err := kaleidohash.NewSpace(kaleidohash.Alphabet("lower"), 8)
	require.NoError(t, err)
	r := kaleidohash.Stepless(kaleidohash.PCG(space))
	inner := kaleidohash.PCG(space)
	a, b := make([]byte, 8), make([]byte, 8)
	for i := 0; i < 100; i++ {
		h := digestOf(i)
		r.Reduce(a, h, i)
		inner.Reduce(b, h, 0)
		require.Equal(t, b, a)
	}
}

func TestReducer_DistinctDigestsSpread(t *testing.T) {
	space, err := kaleidohash.NewSpace(kaleidohash.Alphabet("lower"), 8)
	require.NoError(t, err)
	r := kaleidohash.PCG(space)
	seen, p := map[string]struct{}{}, make([]byte, 8)
	for i := 0; i < 10000; i++ {
		r.Reduce(p, digestOf(i), 0)
		seen[string(p)] = struct{}{}
	}
	/* 10^4 draws from 26^8 plaintexts should essentially never repeat. */
	assert.GreaterOrEqual(t, len(seen), 9990)
}

func TestReducer_SymbolFrequency(t *testing.T) {
	space, err := kaleidohash.NewSpace(kaleidohash.Alphabet("lower"), 10)
	require.NoError(t, err)
	for _, name := range []string{"pcg", "chacha"} {
		t.Run(name, func(t *testing.T) {
			r, err := kaleidohash.NewReducer(name, space)
			require.NoError(t, err)
			const hashes = 100000
			counts, p := map[byte]int{}, make([]byte, 10)
			for i := 0; i < hashes; i++ {
				r.Reduce(p, digestOf(i), i%100)
				for _, b := range p {
					counts[b]++
				}
			}
			require.Len(t, counts, 26)
			for b, c := range counts {
				assert.InDelta(t, hashes*10/26, c, hashes*10/26/25, "symbol %q", b)
			}
		})
	}
}

// Reductions over a full byte alphabet should leave nothing for DEFLATE to find.
func TestReducer_Incompressible(t *testing.T) {
	alphabet := make([]byte, 256)
	for i := range alphabet {
		alphabet[i] = byte(i)
	}
	space, err := kaleidohash.NewSpace(string(alphabet), 16)
	require.NoError(t, err)
	for _, name := range []string{"pcg", "chacha"} {
		t.Run(name, func(t *testing.T) {
			r, err := kaleidohash.NewReducer(name, space)
			require.NoError(t, err)
			raw, p := make([]byte, 0, 1<<16), make([]byte, 16)
			for i := 0; len(raw) < cap(raw); i++ {
				r.Reduce(p, digestOf(i), i)
				raw = append(raw, p...)
			}
			var b bytes.Buffer
			w, err := flate.NewWriter(&b, flate.BestCompression)
			require.NoError(t, err)
			_, err = w.Write(raw)
			require.NoError(t, err)
			require.NoError(t, w.Close())
			ratio := float64(len(raw)) / float64(b.Len())
			assert.Less(t, ratio, 1.01, fmt.Sprintf("compressed %d bytes to %d", len(raw), b.Len()))
		})
	}
}

func TestReducer_ConcurrentUse(t *testing.T) {
	space, err := kaleidohash.NewSpace(kaleidohash.Alphabet("alnum"), 5)
	require.NoError(t, err)
	r := kaleidohash.PCG(space)
	want := make([][]byte, 256)
	for i := range want {
		want[i] = make([]byte, 5)
		r.Reduce(want[i], digestOf(i), i)
	}

	var wg sync.WaitGroup
	errs := make(chan string, 8)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := make([]byte, 5)
			for i := range want {
				r.Reduce(p, digestOf(i), i)
				if !bytes.Equal(p, want[i]) {
					errs <- fmt.Sprintf("reduction %d differs under concurrency", i)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Error(msg)
	}
}

func TestNewReducer_Unknown(t *testing.T) {
	space, err := kaleidohash.NewSpace("ab", 1)
	require.NoError(t, err)
	_, err = kaleidohash.NewReducer("additive", space)
	require.ErrorIs(t, err, kaleidohash.ErrReducer)
	_, err = kaleidohash.NewReducer("/stepless", space)
	require.ErrorIs(t, err, kaleidohash.ErrReducer)
}

func TestReducer_PanicsOnWrongLength(t *testing.T) {
	space, err := kaleidohash.NewSpace("ab", 4)
	require.NoError(t, err)
	r := kaleidohash.PCG(space)
	assert.Panics(t, func() { r.Reduce(make([]byte, 3), digestOf(0), 0) })
}

package kaleidohash_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/ledgerwatch/log/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p7r0x7/kaleidohash"
)

func sha1Of(s string) []byte { return kaleidohash.SHA1.Sum(nil, []byte(s)) }

// Every plaintext a chain passes through must be recoverable from its digest.
func TestLookup_EveryColumn(t *testing.T) {
	space, err := kaleidohash.NewSpace(kaleidohash.Alphabet("lower"), 5)
	require.NoError(t, err)
	tbl, err := kaleidohash.Build(context.Background(), space,
		kaleidohash.Params{ChainLength: 50, ChainCount: 500, PlaintextLength: 5}, kaleidohash.Options{Key: testKey})
	require.NoError(t, err)

	for i := 0; i < tbl.ChainCount; i += 10 {
		tbl.Generator().Walk(tbl.Chain(i).Seed, func(col int, p, h []byte) bool {
			r, err := tbl.Search(context.Background(), h)
			require.NoError(t, err)
			require.True(t, r.Found, "chain %d column %d (%q) not found", i, col, p)
			require.Equal(t, h, kaleidohash.SHA1.Sum(nil, r.Plaintext))
			return true
		})
	}
}

// With every plaintext a seed, any digest from the space is guaranteed to be found.
func TestLookup_FullSeedCoverage(t *testing.T) {
	space, err := kaleidohash.NewSpace(kaleidohash.Alphabet("lower"), 3)
	require.NoError(t, err)
	tbl, err := kaleidohash.Build(context.Background(), space,
		kaleidohash.Params{ChainLength: 100, ChainCount: 17576, PlaintextLength: 3}, kaleidohash.Options{Key: testKey})
	require.NoError(t, err)

	for _, want := range []string{"abc", "zzz", "aaa", "kqx"} {
		p, ok := tbl.Lookup(sha1Of(want))
		require.True(t, ok, want)
		assert.Equal(t, want, string(p))
	}
}

func TestLookup_Classic(t *testing.T) {
	if testing.Short() {
		t.Skip("builds 160M links")
	}
	space, err := kaleidohash.NewSpace(kaleidohash.Classic, 3)
	require.NoError(t, err)
	tbl, err := kaleidohash.Build(context.Background(), space,
		kaleidohash.Params{ChainLength: 2000, ChainCount: 80000, PlaintextLength: 3}, kaleidohash.Options{Key: testKey})
	require.NoError(t, err)

	p, ok := tbl.Lookup(sha1Of("abc"))
	require.True(t, ok)
	assert.Equal(t, "abc", string(p))
}

func mergedTable(t *testing.T) *kaleidohash.Table {
	t.Helper()
	space, err := kaleidohash.NewSpace(kaleidohash.Alphabet("lower"), 2)
	require.NoError(t, err)
	tbl, err := kaleidohash.BuildFromSeeds(context.Background(), space, 4, seedsOf("ab", "cd", "ef"),
		kaleidohash.Options{Reducer: constReducer{[]byte("zz")}})
	require.NoError(t, err)
	return tbl
}

func TestSearch_FalseAlarms(t *testing.T) {
	tbl := mergedTable(t)

	/* Every row-check hypothesis lands on the shared terminal, and none of the three chains
	   ever holds the target. */
	r, err := tbl.Search(context.Background(), sha1Of("qq"))
	require.NoError(t, err)
	assert.False(t, r.Found)
	assert.Nil(t, r.Plaintext)
	assert.Equal(t, 12, r.FalseAlarms)
}

func TestSearch_SeedColumn(t *testing.T) {
	tbl := mergedTable(t)
	r, err := tbl.Search(context.Background(), sha1Of("cd"))
	require.NoError(t, err)
	require.True(t, r.Found)
	assert.Equal(t, "cd", string(r.Plaintext))
	assert.Equal(t, 0, r.Position)
	assert.Equal(t, []byte("cd"), tbl.Chain(r.Chain).Seed)
	assert.Zero(t, r.FalseAlarms)
}

func TestSearch_ColumnCheck(t *testing.T) {
	tbl := mergedTable(t)
	r, err := tbl.Search(context.Background(), sha1Of("zz"))
	require.NoError(t, err)
	require.True(t, r.Found)
	assert.Equal(t, "zz", string(r.Plaintext))
	assert.Equal(t, 1, r.Position)
}

func TestSearch_DigestSize(t *testing.T) {
	tbl := mergedTable(t)
	_, err := tbl.Search(context.Background(), []byte("short"))
	require.ErrorIs(t, err, kaleidohash.ErrDigestSize)
	_, ok := tbl.Lookup([]byte("short"))
	assert.False(t, ok)
}

func TestSearch_Cancelled(t *testing.T) {
	tbl := mergedTable(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tbl.Search(ctx, sha1Of("qq"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestLookupAll(t *testing.T) {
	tbl := mergedTable(t)
	targets := [][]byte{sha1Of("ef"), sha1Of("qq"), sha1Of("zz"), sha1Of("ab")}
	results, err := tbl.LookupAll(context.Background(), targets, 3)
	require.NoError(t, err)
	require.Len(t, results, len(targets))

	assert.Equal(t, "ef", string(results[0].Plaintext))
	assert.False(t, results[1].Found)
	assert.Equal(t, "zz", string(results[2].Plaintext))
	assert.Equal(t, "ab", string(results[3].Plaintext))

	_, err = tbl.LookupAll(context.Background(), [][]byte{sha1Of("ab"), {1, 2}}, 0)
	require.ErrorIs(t, err, kaleidohash.ErrDigestSize)
}

func TestLookupAll_Cancelled(t *testing.T) {
	tbl := mergedTable(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tbl.LookupAll(ctx, [][]byte{sha1Of("qq"), sha1Of("rr")}, 2)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWithLogger(t *testing.T) {
	tbl := mergedTable(t)
	var buf bytes.Buffer
	l := log.New()
	l.SetHandler(log.StreamHandler(&buf, log.LogfmtFormat()))
	view := tbl.WithLogger(l)

	r, err := view.Search(context.Background(), sha1Of("qq"))
	require.NoError(t, err)
	assert.Equal(t, 12, r.FalseAlarms)
	assert.Contains(t, buf.String(), "False alarm")

	/* tbl itself keeps discarding. */
	buf.Reset()
	_, err = tbl.Search(context.Background(), sha1Of("qq"))
	require.NoError(t, err)
	assert.Zero(t, buf.Len())
}

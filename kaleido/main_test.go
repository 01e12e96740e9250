package main

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/p7r0x7/kaleidohash"
)

func TestSummary(t *testing.T) {
	s := kaleidohash.Summary{
		Params: kaleidohash.Params{ChainLength: 400, ChainCount: 1500, PlaintextLength: 3},
		Size:   1500 * 23,
		Hashes: 1500 * 400,
	}
	assert.Contains(t, summary(s), " 1500x400 rainbow table with 600000 hashes")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, invalid, exitCode(fmt.Errorf("wrapped: %w", kaleidohash.ErrSpaceExhausted)))
	assert.Equal(t, invalid, exitCode(kaleidohash.ErrReducer))
	assert.Equal(t, failure, exitCode(kaleidohash.ErrCorrupt))
}

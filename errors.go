package kaleidohash

import "errors"

// Copyright © 2022 Matthew R Bonnette. Licensed under the Apache-2.0 license.

var (
	// ErrParams reports construction parameters outside their domain.
	ErrParams = errors.New("kaleidohash: invalid table parameters")
	// ErrAlphabet reports an empty alphabet or one with repeated symbols.
	ErrAlphabet = errors.New("kaleidohash: invalid alphabet")
	// ErrPlaintext reports a plaintext of the wrong length or with symbols outside the alphabet.
	ErrPlaintext = errors.New("kaleidohash: plaintext outside of space")
	// ErrSpaceExhausted reports a chain count the plaintext space cannot seed uniquely.
	ErrSpaceExhausted = errors.New("kaleidohash: chain count exceeds plaintext space")
	// ErrDuplicateSeed reports two chains sharing a seed.
	ErrDuplicateSeed = errors.New("kaleidohash: duplicate seed")
	// ErrFunction reports an unregistered one-way function.
	ErrFunction = errors.New("kaleidohash: unknown function")
	// ErrReducer reports an unknown reduction function.
	ErrReducer = errors.New("kaleidohash: unknown reducer")
	// ErrDigestSize reports a target whose width differs from the table's function.
	ErrDigestSize = errors.New("kaleidohash: digest size mismatch")
	// ErrCorrupt reports a persisted table that is truncated or structurally invalid.
	ErrCorrupt = errors.New("kaleidohash: corrupt table")
)

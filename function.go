package kaleidohash

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"hash"
	"sort"

	"github.com/minio/sha256-simd"
	"github.com/zeebo/blake3"
	"github.com/zeebo/xxh3"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/md4"
	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"
)

// Copyright © 2022 Matthew R Bonnette. Licensed under the Apache-2.0 license.
// The one-way functions a table can be built over. Every one of them has a fixed output width;
// nothing else about the table machinery depends on which one is chosen.

// Function is a named one-way function with a fixed digest size in bytes.
type Function struct {
	Name string
	Size int
	sum  func(dst, msg []byte) []byte
}

// Sum appends the digest of msg to dst and returns the extended slice. It does not allocate for
// functions with array-returning implementations when dst has room for Size more bytes.
func (f Function) Sum(dst, msg []byte) []byte { return f.sum(dst, msg) }

// SHA1 is the reference function; its 20-byte digest is the size most tables are built with.
var SHA1 = Function{"sha1", sha1.Size, func(dst, msg []byte) []byte {
	s := sha1.Sum(msg)
	return append(dst, s[:]...)
}}

var functions = map[string]Function{
	SHA1.Name: SHA1,
	"md5": {"md5", md5.Size, func(dst, msg []byte) []byte {
		s := md5.Sum(msg)
		return append(dst, s[:]...)
	}},
	"md4":       {"md4", md4.Size, streaming(md4.New)},
	"ripemd160": {"ripemd160", ripemd160.Size, streaming(ripemd160.New)},
	"sha256": {"sha256", sha256.Size, func(dst, msg []byte) []byte {
		s := sha256.Sum256(msg)
		return append(dst, s[:]...)
	}},
	"sha3-256": {"sha3-256", 32, func(dst, msg []byte) []byte {
		s := sha3.Sum256(msg)
		return append(dst, s[:]...)
	}},
	"blake2b-256": {"blake2b-256", blake2b.Size256, func(dst, msg []byte) []byte {
		s := blake2b.Sum256(msg)
		return append(dst, s[:]...)
	}},
	"blake3": {"blake3", 32, func(dst, msg []byte) []byte {
		s := blake3.Sum256(msg)
		return append(dst, s[:]...)
	}},
	/* Not a one-way function, but a fast fixed-width one that makes for quick experiments. */
	"xxh3-128": {"xxh3-128", 16, func(dst, msg []byte) []byte {
		u := xxh3.Hash128(msg)
		var s [16]byte
		binary.BigEndian.PutUint64(s[:8], u.Hi)
		binary.BigEndian.PutUint64(s[8:], u.Lo)
		return append(dst, s[:]...)
	}},
}

func streaming(newHash func() hash.Hash) func(dst, msg []byte) []byte {
	return func(dst, msg []byte) []byte {
		h := newHash()
		h.Write(msg)
		return h.Sum(dst)
	}
}

// LookupFunction returns the registered function called name.
func LookupFunction(name string) (Function, error) {
	f, ok := functions[name]
	if !ok {
		return Function{}, fmt.Errorf("%w: %q", ErrFunction, name)
	}
	return f, nil
}

// Functions lists the names of every registered function in lexical order.
func Functions() []string {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

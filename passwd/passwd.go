// Package passwd is a toy credential store: a flat map from user name to the digest of their
// password, persisted in CBOR. It exists to be cracked with a kaleidohash table.
package passwd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/p7r0x7/kaleidohash"
)

// Copyright © 2022 Matthew R Bonnette. Licensed under the Apache-2.0 license.

var (
	ErrUser     = errors.New("passwd: empty user name")
	ErrCorrupt  = errors.New("passwd: corrupt store")
	ErrMismatch = errors.New("passwd: table and store use different functions")
)

// Store maps user names to password digests under a single function. It is safe for concurrent
// use.
type Store struct {
	fn    kaleidohash.Function
	mu    sync.RWMutex
	users map[string][]byte
}

func New(fn kaleidohash.Function) *Store {
	return &Store{fn: fn, users: make(map[string][]byte)}
}

func (s *Store) Function() kaleidohash.Function { return s.fn }

// Insert records hash as user's digest, replacing any previous one.
func (s *Store) Insert(user string, hash []byte) error {
	if user == "" {
		return ErrUser
	}
	if len(hash) != s.fn.Size {
		return fmt.Errorf("%w: %d bytes, %s digests are %d", kaleidohash.ErrDigestSize, len(hash), s.fn.Name, s.fn.Size)
	}
	s.mu.Lock()
	s.users[user] = bytes.Clone(hash)
	s.mu.Unlock()
	return nil
}

// Set hashes password and records it for user.
func (s *Store) Set(user, password string) error {
	return s.Insert(user, s.fn.Sum(nil, []byte(password)))
}

// Get returns a copy of user's digest.
func (s *Store) Get(user string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.users[user]
	return bytes.Clone(h), ok
}

// Check reports whether password matches user's recorded digest.
func (s *Store) Check(user, password string) bool {
	h, ok := s.Get(user)
	return ok && bytes.Equal(h, s.fn.Sum(nil, []byte(password)))
}

func (s *Store) Delete(user string) {
	s.mu.Lock()
	delete(s.users, user)
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// Users lists every user name in ascending order.
func (s *Store) Users() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.users))
	for u := range s.users {
		names = append(names, u)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Crack looks up every stored digest in t and returns the passwords it recovered by user.
func Crack(ctx context.Context, t *kaleidohash.Table, s *Store, workers int) (map[string][]byte, error) {
	if t.Function().Name != s.fn.Name {
		return nil, fmt.Errorf("%w: %s and %s", ErrMismatch, t.Function().Name, s.fn.Name)
	}
	users := s.Users()
	targets := make([][]byte, 0, len(users))
	for _, u := range users {
		h, _ := s.Get(u)
		targets = append(targets, h)
	}
	results, err := t.LookupAll(ctx, targets, workers)
	if err != nil {
		return nil, err
	}
	cracked := make(map[string][]byte)
	for i, r := range results {
		if r.Found {
			cracked[users[i]] = r.Plaintext
		}
	}
	return cracked, nil
}

type record struct {
	Version  int               `cbor:"1,keyasint"`
	Function string            `cbor:"2,keyasint"`
	Users    map[string][]byte `cbor:"3,keyasint"`
}

const formatVersion = 1

var encMode, _ = cbor.CoreDetEncOptions().EncMode()
var decMode, _ = cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}.DecMode()

func (s *Store) WriteTo(w io.Writer) (int64, error) {
	s.mu.RLock()
	enc, err := encMode.Marshal(record{formatVersion, s.fn.Name, s.users})
	s.mu.RUnlock()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(enc)
	return int64(n), err
}

func ReadStore(r io.Reader) (*Store, error) {
	var rec record
	if err := decMode.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if rec.Version != formatVersion {
		return nil, fmt.Errorf("%w: format version %d", ErrCorrupt, rec.Version)
	}
	fn, err := kaleidohash.LookupFunction(rec.Function)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	s := New(fn)
	for u, h := range rec.Users {
		if err := s.Insert(u, h); err != nil {
			return nil, fmt.Errorf("%w: user %q: %w", ErrCorrupt, u, err)
		}
	}
	return s, nil
}

func (s *Store) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err = s.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadStore(f)
}

package kaleidohash

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// Copyright © 2022 Matthew R Bonnette. Licensed under the Apache-2.0 license.
// Tables persist as a single CBOR map with integer keys. Seeds and terminals are stored as two
// flat byte strings in terminal order; everything needed to replay the chains travels with them.

const formatVersion = 1

type record struct {
	Version         int    `cbor:"1,keyasint"`
	Function        string `cbor:"2,keyasint"`
	Reducer         string `cbor:"3,keyasint"`
	Alphabet        []byte `cbor:"4,keyasint"`
	ChainLength     int    `cbor:"5,keyasint"`
	ChainCount      int    `cbor:"6,keyasint"`
	PlaintextLength int    `cbor:"7,keyasint"`
	Seeds           []byte `cbor:"8,keyasint"`
	Terminals       []byte `cbor:"9,keyasint"`
}

var encMode cbor.EncMode
var decMode cbor.DecMode

func init() {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	encMode = em
	dm, err := cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}.DecMode()
	if err != nil {
		panic(err)
	}
	decMode = dm
}

// WriteTo encodes t to w.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	rec := record{
		Version:         formatVersion,
		Function:        t.fn.Name,
		Reducer:         t.reducer.Name(),
		Alphabet:        t.space.alphabet,
		ChainLength:     t.ChainLength,
		ChainCount:      t.ChainCount,
		PlaintextLength: t.PlaintextLength,
		Seeds:           make([]byte, 0, t.ChainCount*t.PlaintextLength),
		Terminals:       make([]byte, 0, t.ChainCount*t.fn.Size),
	}
	for _, c := range t.chains {
		rec.Seeds = append(rec.Seeds, c.Seed...)
		rec.Terminals = append(rec.Terminals, c.Terminal...)
	}
	enc, err := encMode.Marshal(rec)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(enc)
	return int64(n), err
}

// ReadTable decodes a table written by WriteTo. Anything short of a complete, consistent table
// is reported as ErrCorrupt.
func ReadTable(r io.Reader) (*Table, error) {
	enc, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(enc) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrCorrupt)
	}
	var rec record
	if err := decMode.Unmarshal(enc, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	t, err := rec.table()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return t, nil
}

func (rec *record) table() (*Table, error) {
	if rec.Version != formatVersion {
		return nil, fmt.Errorf("format version %d, want %d", rec.Version, formatVersion)
	}
	fn, err := LookupFunction(rec.Function)
	if err != nil {
		return nil, err
	}
	space, err := NewSpace(string(rec.Alphabet), rec.PlaintextLength)
	if err != nil {
		return nil, err
	}
	reducer, err := NewReducer(rec.Reducer, space)
	if err != nil {
		return nil, err
	}
	p := Params{ChainLength: rec.ChainLength, ChainCount: rec.ChainCount, PlaintextLength: rec.PlaintextLength}
	if err := p.validate(space); err != nil {
		return nil, err
	}

	plen, size := rec.PlaintextLength, fn.Size
	if len(rec.Seeds)%plen != 0 || len(rec.Seeds)/plen != rec.ChainCount {
		return nil, fmt.Errorf("%d bytes of seeds for %d chains of %d", len(rec.Seeds), rec.ChainCount, plen)
	}
	if len(rec.Terminals)%size != 0 || len(rec.Terminals)/size != rec.ChainCount {
		return nil, fmt.Errorf("%d bytes of terminals for %d chains of %d", len(rec.Terminals), rec.ChainCount, size)
	}

	chains, seen := make([]Chain, rec.ChainCount), make(map[string]struct{}, rec.ChainCount)
	for i := range chains {
		c := Chain{
			Seed:     rec.Seeds[i*plen : (i+1)*plen : (i+1)*plen],
			Terminal: rec.Terminals[i*size : (i+1)*size : (i+1)*size],
		}
		if !space.Contains(c.Seed) {
			return nil, fmt.Errorf("%w: chain %d seed %q", ErrPlaintext, i, c.Seed)
		}
		if _, ok := seen[string(c.Seed)]; ok {
			return nil, fmt.Errorf("%w: chain %d seed %q", ErrDuplicateSeed, i, c.Seed)
		}
		seen[string(c.Seed)] = struct{}{}
		if i > 0 && bytes.Compare(chains[i-1].Terminal, c.Terminal) > 0 {
			return nil, fmt.Errorf("chain %d out of terminal order", i)
		}
		chains[i] = c
	}
	return newTable(space, fn, reducer, rec.ChainLength, chains, nil), nil
}

// Save writes t to the file at path, replacing it if it exists.
func (t *Table) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err = t.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads the table saved at path.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTable(f)
}

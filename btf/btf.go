// Copyright 2026 Leon Hwang.
// SPDX-License-Identifier: Apache-2.0

// Package btf decodes the Linux kernel's BPF Type Format into an
// indexed, cross-linked type database. One or more blobs may be merged
// into a single TypeMap sharing one id space and one logical string
// table.
package btf

import (
	"iter"

	"github.com/bpfsnoop/btfparse/internal/reader"
)

// TypeMap is the decoded type database. Ids are consecutive, starting
// at 1, assigned in the order records are encountered across all input
// blobs. Id 0 denotes void and is not stored.
type TypeMap struct {
	types []Type
}

// Get returns the type with the given id. Id 0 and unknown ids report
// false.
func (tm *TypeMap) Get(id TypeID) (Type, bool) {
	if id == 0 || uint32(id) > uint32(len(tm.types)) {
		return nil, false
	}
	return tm.types[id-1], true
}

// Kind returns the kind tag of the type with the given id.
func (tm *TypeMap) Kind(id TypeID) (Kind, bool) {
	typ, ok := tm.Get(id)
	if !ok {
		return KindVoid, false
	}
	return typ.Kind(), true
}

// Count returns the number of decoded types.
func (tm *TypeMap) Count() uint32 {
	return uint32(len(tm.types))
}

// All yields (id, type) pairs in ascending id order with no gaps. Ids
// are valid independent of the yielded type values, so consumers can
// build id-indexed placeholder tables before resolving bodies.
func (tm *TypeMap) All() iter.Seq2[TypeID, Type] {
	return func(yield func(TypeID, Type) bool) {
		for i, typ := range tm.types {
			if !yield(TypeID(i+1), typ) {
				return
			}
		}
	}
}

// Open decodes a single BTF blob from path.
func Open(path string) (*TypeMap, error) {
	return OpenMany([]string{path})
}

// OpenMany decodes the given blobs in order into one unified TypeMap.
// Any failure aborts the whole decode; no partial map is returned.
func OpenMany(paths []string) (*TypeMap, error) {
	blobs := make([]*blob, 0, len(paths))
	defer func() {
		for _, b := range blobs {
			_ = b.r.Close()
		}
	}()

	for _, path := range paths {
		r, err := reader.Open(path)
		if err != nil {
			return nil, convertReaderError(err)
		}
		blobs = append(blobs, &blob{r: r})
	}

	return parseBlobs(blobs)
}

// ParseBuffers decodes one or more in-memory BTF blobs.
func ParseBuffers(bufs ...[]byte) (*TypeMap, error) {
	blobs := make([]*blob, 0, len(bufs))
	for _, buf := range bufs {
		blobs = append(blobs, &blob{r: reader.OpenMemory(buf)})
	}

	return parseBlobs(blobs)
}

func parseBlobs(blobs []*blob) (*TypeMap, error) {
	for _, b := range blobs {
		if err := b.detectEndianness(); err != nil {
			return nil, err
		}
		if err := b.readHeader(); err != nil {
			return nil, err
		}
	}

	p := &parser{blobs: blobs}
	if err := p.parseTypeSections(); err != nil {
		return nil, err
	}

	return &TypeMap{types: p.types}, nil
}

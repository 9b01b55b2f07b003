// Copyright 2026 Leon Hwang.
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"os"

	"golang.org/x/sys/unix"
)

// memoryReader reads from an in-memory buffer, either caller-provided
// or a read-only mmap of a regular file.
type memoryReader struct {
	prims

	data   []byte
	off    uint64
	mapped bool
}

// OpenMemory wraps buf in a Reader. The buffer is not copied.
func OpenMemory(buf []byte) Reader {
	m := &memoryReader{data: buf}
	m.prims = prims{little: true, readFn: m.Read}
	return m
}

// openMapped memory-maps f read-only. The mapping is released by Close.
func openMapped(f *os.File, size int64) (Reader, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, &Error{Code: CodeIOError}
	}

	m := &memoryReader{data: data, mapped: true}
	m.prims = prims{little: true, readFn: m.Read}
	return m, nil
}

func (m *memoryReader) Seek(offset uint64) error {
	if offset > uint64(len(m.data)) {
		return ioError(offset, 0)
	}
	m.off = offset
	return nil
}

func (m *memoryReader) Offset() uint64 {
	return m.off
}

func (m *memoryReader) Read(buf []byte) error {
	size := uint64(len(buf))
	if m.off+size > uint64(len(m.data)) {
		return ioError(m.off, size)
	}

	copy(buf, m.data[m.off:m.off+size])
	m.off += size
	return nil
}

func (m *memoryReader) Close() error {
	if !m.mapped {
		return nil
	}

	data := m.data
	m.data = nil
	m.mapped = false
	return unix.Munmap(data)
}

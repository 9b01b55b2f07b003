// Copyright 2026 Leon Hwang.
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"io"
	"os"
)

// fileReader streams from an open file. It is the fallback for files
// that cannot be memory-mapped, e.g. sysfs entries reporting size 0.
type fileReader struct {
	prims

	f   *os.File
	off uint64
}

func newFileReader(f *os.File) Reader {
	r := &fileReader{f: f}
	r.prims = prims{little: true, readFn: r.Read}
	return r
}

func (r *fileReader) Seek(offset uint64) error {
	if _, err := r.f.Seek(int64(offset), io.SeekStart); err != nil {
		return ioError(offset, 0)
	}
	r.off = offset
	return nil
}

func (r *fileReader) Offset() uint64 {
	return r.off
}

func (r *fileReader) Read(buf []byte) error {
	if _, err := io.ReadFull(r.f, buf); err != nil {
		return ioError(r.off, uint64(len(buf)))
	}
	r.off += uint64(len(buf))
	return nil
}

func (r *fileReader) Close() error {
	return r.f.Close()
}

// Copyright 2026 Leon Hwang.
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	xzMagic   = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Open opens path for reading. Compressed blobs (gzip, xz, zstd) are
// inflated into memory; plain non-empty regular files are memory-mapped;
// anything else falls back to the streaming adapter.
func Open(path string) (Reader, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &Error{Code: CodeFileNotFound}
		}
		return nil, &Error{Code: CodeIOError}
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &Error{Code: CodeFileNotFound}
		}
		return nil, &Error{Code: CodeIOError}
	}

	inflate, err := sniffCompression(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	if inflate != nil {
		defer f.Close()

		data, err := inflate(f)
		if err != nil {
			return nil, &Error{Code: CodeIOError}
		}
		return OpenMemory(data), nil
	}

	if fi.Mode().IsRegular() && fi.Size() > 0 {
		defer f.Close()

		r, err := openMapped(f, fi.Size())
		if err != nil {
			return nil, err
		}
		return r, nil
	}

	return newFileReader(f), nil
}

// sniffCompression peeks at the file magic and returns an inflater for
// recognized compression formats, or nil for plain data. The file
// cursor is rewound to the start either way.
func sniffCompression(f *os.File) (func(io.Reader) ([]byte, error), error) {
	var magic [6]byte
	n, err := f.Read(magic[:])
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, &Error{Code: CodeIOError}
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, &Error{Code: CodeIOError}
	}

	head := magic[:n]
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return inflateGzip, nil
	case bytes.HasPrefix(head, xzMagic):
		return inflateXz, nil
	case bytes.HasPrefix(head, zstdMagic):
		return inflateZstd, nil
	default:
		return nil, nil
	}
}

func inflateGzip(r io.Reader) ([]byte, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	return io.ReadAll(zr)
}

func inflateXz(r io.Reader) ([]byte, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, err
	}

	return io.ReadAll(xr)
}

func inflateZstd(r io.Reader) ([]byte, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	return io.ReadAll(zr)
}

// Copyright 2026 Leon Hwang.
// SPDX-License-Identifier: Apache-2.0

// Package btfbuild assembles raw BTF blobs for tests: a 24-byte
// header, a type section and a string section, in a chosen byte order.
package btfbuild

import (
	"bytes"
	"encoding/binary"
)

// Int encoding bits of the trailing info word.
const (
	IntSigned = 1
	IntChar   = 2
	IntBool   = 4
)

type Blob struct {
	order binary.ByteOrder
	types bytes.Buffer
	strs  bytes.Buffer
}

func New(order binary.ByteOrder) *Blob {
	b := &Blob{order: order}
	b.strs.WriteByte(0)
	return b
}

// AddString appends s to the string section and returns its offset
// relative to this blob's table.
func (b *Blob) AddString(s string) uint32 {
	off := uint32(b.strs.Len())
	b.strs.WriteString(s)
	b.strs.WriteByte(0)
	return off
}

// StrLen reports the current size of the string section, for computing
// cross-blob offsets.
func (b *Blob) StrLen() uint32 {
	return uint32(b.strs.Len())
}

func (b *Blob) u32(v uint32) {
	var buf [4]byte
	b.order.PutUint32(buf[:], v)
	b.types.Write(buf[:])
}

// Record appends one type record: the common header assembled from the
// pieces, followed by any kind-specific trailing words.
func (b *Blob) Record(nameOff uint32, kind uint8, vlen uint16, kindFlag bool, sizeOrType uint32, extra ...uint32) {
	info := uint32(vlen) | uint32(kind)<<24
	if kindFlag {
		info |= 1 << 31
	}

	b.u32(nameOff)
	b.u32(info)
	b.u32(sizeOrType)
	for _, v := range extra {
		b.u32(v)
	}
}

// IntInfo packs the trailing word of an Int record.
func IntInfo(encoding uint32, offset, bits uint8) uint32 {
	return encoding<<24 | uint32(offset)<<16 | uint32(bits)
}

// Build lays out header, type section and string section.
func (b *Blob) Build() []byte {
	var out bytes.Buffer

	var u16buf [2]byte
	b.order.PutUint16(u16buf[:], 0xEB9F)
	out.Write(u16buf[:])

	out.WriteByte(1) // version
	out.WriteByte(0) // flags

	var u32buf [4]byte
	for _, v := range []uint32{
		24, // hdr_len
		0,  // type_off
		uint32(b.types.Len()),
		uint32(b.types.Len()), // str_off
		uint32(b.strs.Len()),
	} {
		b.order.PutUint32(u32buf[:], v)
		out.Write(u32buf[:])
	}

	out.Write(b.types.Bytes())
	out.Write(b.strs.Bytes())
	return out.Bytes()
}

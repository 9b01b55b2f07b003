// Copyright 2026 Leon Hwang.
// SPDX-License-Identifier: Apache-2.0

package btfgen

import (
	"fmt"

	"github.com/bpfsnoop/btfparse/btf"
)

// Pointers are sized for the kernel target.
const ptrSizeBits = 64

// materializePadding rewrites every struct's member list so that every
// gap between members, and between the last member and the struct
// size, is covered by explicit unsigned char bitfields. The generated
// header is wrapped in #pragma pack(1), so implicit padding would
// otherwise be lost.
func (g *generator) materializePadding() error {
	g.paddingByteID = g.genID()
	g.types[g.paddingByteID] = btf.Int{
		Name: "unsigned char",
		Size: 1,
		Bits: 8,
	}

	for _, id := range g.sortedIDs() {
		s, ok := g.types[id].(btf.Struct)
		if !ok {
			continue
		}

		if err := g.materializeStructPadding(id, s); err != nil {
			return err
		}
	}

	return nil
}

func (g *generator) materializeStructPadding(id btf.TypeID, s btf.Struct) error {
	members := s.Members
	out := make([]btf.Member, 0, len(members))

	current := uint32(0)

	appendPadding := func(bits uint32) {
		for i := uint32(0); i < bits/8; i++ {
			out = append(out, btf.Member{
				Type:         g.paddingByteID,
				Offset:       current,
				BitfieldSize: 8,
			})
			current += 8
		}

		if rem := bits % 8; rem != 0 {
			out = append(out, btf.Member{
				Type:         g.paddingByteID,
				Offset:       current,
				BitfieldSize: uint8(rem),
			})
			current += rem
		}
	}

	for _, member := range members {
		if current > member.Offset {
			return fmt.Errorf("struct #%d: member %q at bit offset %d overlaps previous member ending at %d",
				id, member.Name, member.Offset, current)
		}

		if member.Offset != current {
			appendPadding(member.Offset - current)
		}

		out = append(out, member)

		if member.BitfieldSize != 0 {
			current += uint32(member.BitfieldSize)
		} else {
			size, ok := g.typeSizeBits(member.Type)
			if !ok {
				return fmt.Errorf("struct #%d: member %q has unsized type #%d",
					id, member.Name, member.Type)
			}
			current += size
		}
	}

	if tail := s.Size*8 - current; tail != 0 && current <= s.Size*8 {
		appendPadding(tail)
	}

	if current != s.Size*8 {
		return fmt.Errorf("struct #%d: members cover %d bits, size is %d bits",
			id, current, s.Size*8)
	}

	s.Members = out
	g.types[id] = s
	return nil
}

// typeSizeBits reports the size of a type in bits, recursing through
// typedefs and cv-qualifiers. Kinds with no C object size report
// false.
func (g *generator) typeSizeBits(id btf.TypeID) (uint32, bool) {
	typ, ok := g.types[id]
	if !ok {
		return 0, false
	}

	switch t := typ.(type) {
	case btf.Int:
		return t.Size * 8, true
	case btf.Ptr:
		return ptrSizeBits, true
	case btf.Array:
		elem, ok := g.typeSizeBits(t.Type)
		if !ok {
			return 0, false
		}
		return elem * t.NElems, true
	case btf.Struct:
		return t.Size * 8, true
	case btf.Union:
		return t.Size * 8, true
	case btf.Enum:
		return t.Size * 8, true
	case btf.Typedef:
		return g.typeSizeBits(t.Type)
	case btf.Volatile:
		return g.typeSizeBits(t.Type)
	case btf.Const:
		return g.typeSizeBits(t.Type)
	case btf.Float:
		return t.Size * 8, true
	default:
		return 0, false
	}
}

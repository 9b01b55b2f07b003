// Copyright 2026 Leon Hwang.
// SPDX-License-Identifier: Apache-2.0

package btf

import (
	"github.com/bpfsnoop/btfparse/internal/reader"
)

const (
	littleEndianMagic = uint16(0xEB9F)
	bigEndianMagic    = uint16(0x9FEB)

	btfHeaderSize  = 24
	typeHeaderSize = 12

	intDataSize   = 4
	arrayDataSize = 12
	enumValueSize = 8
	varDataSize   = 4
	secEntrySize  = 12
)

// btfHeader is the fixed 24-byte blob header. The magic determines the
// endianness of every subsequent multi-byte read.
type btfHeader struct {
	magic   uint16
	version uint8
	flags   uint8
	hdrLen  uint32
	typeOff uint32
	typeLen uint32
	strOff  uint32
	strLen  uint32
}

// typeHeader is the common 12-byte record header preceding every type.
type typeHeader struct {
	nameOff    uint32
	vlen       uint32
	kind       uint32
	kindFlag   bool
	sizeOrType uint32
}

type blob struct {
	r   reader.Reader
	hdr btfHeader
}

func (b *blob) detectEndianness() error {
	if err := b.r.Seek(0); err != nil {
		return convertReaderError(err)
	}
	b.r.SetEndianness(true)

	magic, err := b.r.U16()
	if err != nil {
		return convertReaderError(err)
	}

	switch magic {
	case littleEndianMagic:
		b.r.SetEndianness(true)
	case bigEndianMagic:
		b.r.SetEndianness(false)
	default:
		return &Error{Code: CodeInvalidMagicValue}
	}

	return nil
}

func (b *blob) readHeader() error {
	if err := b.r.Seek(0); err != nil {
		return convertReaderError(err)
	}

	var hdr btfHeader
	var err error

	if hdr.magic, err = b.r.U16(); err != nil {
		return convertReaderError(err)
	}
	if hdr.version, err = b.r.U8(); err != nil {
		return convertReaderError(err)
	}
	if hdr.flags, err = b.r.U8(); err != nil {
		return convertReaderError(err)
	}
	for _, field := range []*uint32{&hdr.hdrLen, &hdr.typeOff, &hdr.typeLen, &hdr.strOff, &hdr.strLen} {
		if *field, err = b.r.U32(); err != nil {
			return convertReaderError(err)
		}
	}

	b.hdr = hdr
	return nil
}

type parseFunc func(*parser, *blob, typeHeader) (Type, error)

// typeParsers maps wire kinds to their record parsers. A kind inside
// the accepted range but absent here is reported as unsupported, which
// keeps the gate accurate while the format evolves.
var typeParsers = map[Kind]parseFunc{
	KindInt:       (*parser).parseInt,
	KindPtr:       (*parser).parsePtr,
	KindArray:     (*parser).parseArray,
	KindStruct:    (*parser).parseStruct,
	KindUnion:     (*parser).parseUnion,
	KindEnum:      (*parser).parseEnum,
	KindFwd:       (*parser).parseFwd,
	KindTypedef:   (*parser).parseTypedef,
	KindVolatile:  (*parser).parseVolatile,
	KindConst:     (*parser).parseConst,
	KindRestrict:  (*parser).parseRestrict,
	KindFunc:      (*parser).parseFunc,
	KindFuncProto: (*parser).parseFuncProto,
	KindVar:       (*parser).parseVar,
	KindDataSec:   (*parser).parseDataSec,
	KindFloat:     (*parser).parseFloat,
}

type parser struct {
	blobs []*blob
	types []Type
}

func (p *parser) parseTypeSections() error {
	for _, b := range p.blobs {
		start := uint64(b.hdr.hdrLen) + uint64(b.hdr.typeOff)
		end := start + uint64(b.hdr.typeLen)

		if err := b.r.Seek(start); err != nil {
			return convertReaderError(err)
		}

		for b.r.Offset() < end {
			recordOff := b.r.Offset()

			hdr, err := p.parseTypeHeader(b)
			if err != nil {
				return err
			}

			headerRange := FileRange{Offset: recordOff, Size: typeHeaderSize}

			if hdr.kind > uint32(maxKind) {
				return &Error{Code: CodeInvalidBTFKind, Range: &headerRange}
			}

			parse, ok := typeParsers[Kind(hdr.kind)]
			if !ok {
				return &Error{Code: CodeUnsupportedBTFKind, Range: &headerRange}
			}

			typ, err := parse(p, b, hdr)
			if err != nil {
				return err
			}

			p.types = append(p.types, typ)
		}
	}

	return nil
}

func (p *parser) parseTypeHeader(b *blob) (typeHeader, error) {
	var hdr typeHeader
	var err error

	if hdr.nameOff, err = b.r.U32(); err != nil {
		return hdr, convertReaderError(err)
	}

	info, err := b.r.U32()
	if err != nil {
		return hdr, convertReaderError(err)
	}
	hdr.vlen = info & 0xFFFF
	hdr.kind = (info >> 24) & 0x1F
	hdr.kindFlag = info&0x8000_0000 != 0

	if hdr.sizeOrType, err = b.r.U32(); err != nil {
		return hdr, convertReaderError(err)
	}

	return hdr, nil
}

// recordRange locates the record currently being parsed: the reader
// sits right after the 12-byte header, and extra is the size of the
// kind-specific payload.
func recordRange(b *blob, extra uint64) FileRange {
	return FileRange{
		Offset: b.r.Offset() - typeHeaderSize,
		Size:   typeHeaderSize + extra,
	}
}

// parseString resolves a string offset against the concatenation of
// every blob's string section, in input order.
func (p *parser) parseString(offset uint32) (string, error) {
	start := uint64(0)

	for _, b := range p.blobs {
		strLen := uint64(b.hdr.strLen)
		if uint64(offset) >= start && uint64(offset)-start < strLen {
			rel := uint64(offset) - start
			abs := uint64(b.hdr.hdrLen) + uint64(b.hdr.strOff) + rel
			return readString(b.r, abs)
		}

		start += strLen
	}

	return "", &Error{
		Code:  CodeInvalidStringOffset,
		Range: &FileRange{Offset: uint64(offset), Size: 0},
	}
}

// readString reads a NUL-terminated string at abs, restoring the
// reader's position afterwards.
func readString(r reader.Reader, abs uint64) (string, error) {
	original := r.Offset()

	if err := r.Seek(abs); err != nil {
		return "", convertReaderError(err)
	}

	var buf []byte
	for {
		ch, err := r.U8()
		if err != nil {
			return "", convertReaderError(err)
		}
		if ch == 0 {
			break
		}
		buf = append(buf, ch)
	}

	if err := r.Seek(original); err != nil {
		return "", convertReaderError(err)
	}

	return string(buf), nil
}

func (p *parser) parseInt(b *blob, hdr typeHeader) (Type, error) {
	rng := recordRange(b, intDataSize)

	if hdr.kindFlag || hdr.vlen != 0 {
		return nil, invalidEncoding(CodeInvalidIntEncoding, rng)
	}

	switch hdr.sizeOrType {
	case 1, 2, 4, 8, 16:
	default:
		return nil, invalidEncoding(CodeInvalidIntEncoding, rng)
	}

	name, err := p.parseString(hdr.nameOff)
	if err != nil {
		return nil, err
	}

	info, err := b.r.U32()
	if err != nil {
		return nil, convertReaderError(err)
	}

	encoding := (info >> 24) & 0x0F
	isSigned := encoding&1 != 0
	isChar := encoding&2 != 0
	isBool := encoding&4 != 0

	set := 0
	for _, flag := range []bool{isSigned, isChar, isBool} {
		if flag {
			set++
		}
	}
	if set > 1 {
		return nil, invalidEncoding(CodeInvalidIntEncoding, rng)
	}

	out := Int{
		Name: name,
		Size: hdr.sizeOrType,
	}

	switch {
	case isSigned:
		out.Encoding = IntSigned
	case isChar:
		out.Encoding = IntChar
	case isBool:
		out.Encoding = IntBool
	}

	bits := info & 0xFF
	if bits > 128 || bits > hdr.sizeOrType*8 {
		return nil, invalidEncoding(CodeInvalidIntEncoding, rng)
	}
	out.Bits = uint8(bits)

	offset := (info >> 16) & 0xFF
	if offset+bits > hdr.sizeOrType*8 {
		return nil, invalidEncoding(CodeInvalidIntEncoding, rng)
	}
	out.Offset = uint8(offset)

	return out, nil
}

func (p *parser) parsePtr(b *blob, hdr typeHeader) (Type, error) {
	if hdr.nameOff != 0 || hdr.kindFlag || hdr.vlen != 0 {
		return nil, invalidEncoding(CodeInvalidPtrEncoding, recordRange(b, 0))
	}

	return Ptr{Type: TypeID(hdr.sizeOrType)}, nil
}

func (p *parser) parseArray(b *blob, hdr typeHeader) (Type, error) {
	rng := recordRange(b, arrayDataSize)

	if hdr.nameOff != 0 || hdr.kindFlag || hdr.vlen != 0 || hdr.sizeOrType != 0 {
		return nil, invalidEncoding(CodeInvalidArrayEncoding, rng)
	}

	var out Array
	var err error
	var v uint32

	if v, err = b.r.U32(); err != nil {
		return nil, convertReaderError(err)
	}
	out.Type = TypeID(v)

	if v, err = b.r.U32(); err != nil {
		return nil, convertReaderError(err)
	}
	out.IndexType = TypeID(v)

	if out.NElems, err = b.r.U32(); err != nil {
		return nil, convertReaderError(err)
	}

	return out, nil
}

// parseMembers reads the vlen member triples shared by Struct and
// Union records. With kind_flag set, the third word packs the bit
// offset in its low 24 bits and the bitfield width in its high 8 bits.
func (p *parser) parseMembers(b *blob, hdr typeHeader) ([]Member, error) {
	members := make([]Member, 0, hdr.vlen)

	for i := uint32(0); i < hdr.vlen; i++ {
		var member Member

		nameOff, err := b.r.U32()
		if err != nil {
			return nil, convertReaderError(err)
		}
		if nameOff != 0 {
			if member.Name, err = p.parseString(nameOff); err != nil {
				return nil, err
			}
		}

		typ, err := b.r.U32()
		if err != nil {
			return nil, convertReaderError(err)
		}
		member.Type = TypeID(typ)

		offset, err := b.r.U32()
		if err != nil {
			return nil, convertReaderError(err)
		}
		if hdr.kindFlag {
			member.Offset = offset & 0xFFFFFF
			member.BitfieldSize = uint8(offset >> 24)
		} else {
			member.Offset = offset
		}

		members = append(members, member)
	}

	return members, nil
}

func (p *parser) parseStruct(b *blob, hdr typeHeader) (Type, error) {
	out := Struct{Size: hdr.sizeOrType}

	if hdr.nameOff != 0 {
		name, err := p.parseString(hdr.nameOff)
		if err != nil {
			return nil, err
		}
		out.Name = name
	}

	members, err := p.parseMembers(b, hdr)
	if err != nil {
		return nil, err
	}
	out.Members = members

	return out, nil
}

func (p *parser) parseUnion(b *blob, hdr typeHeader) (Type, error) {
	out := Union{Size: hdr.sizeOrType}

	if hdr.nameOff != 0 {
		name, err := p.parseString(hdr.nameOff)
		if err != nil {
			return nil, err
		}
		out.Name = name
	}

	members, err := p.parseMembers(b, hdr)
	if err != nil {
		return nil, err
	}
	out.Members = members

	return out, nil
}

func (p *parser) parseEnum(b *blob, hdr typeHeader) (Type, error) {
	rng := recordRange(b, uint64(hdr.vlen)*enumValueSize)

	if hdr.kindFlag {
		return nil, invalidEncoding(CodeInvalidEnumEncoding, rng)
	}

	switch hdr.sizeOrType {
	case 1, 2, 4, 8:
	default:
		return nil, invalidEncoding(CodeInvalidEnumEncoding, rng)
	}

	out := Enum{Size: hdr.sizeOrType}

	if hdr.nameOff != 0 {
		name, err := p.parseString(hdr.nameOff)
		if err != nil {
			return nil, err
		}
		out.Name = name
	}

	for i := uint32(0); i < hdr.vlen; i++ {
		nameOff, err := b.r.U32()
		if err != nil {
			return nil, convertReaderError(err)
		}
		if nameOff == 0 {
			return nil, invalidEncoding(CodeInvalidEnumEncoding, rng)
		}

		name, err := p.parseString(nameOff)
		if err != nil {
			return nil, err
		}

		val, err := b.r.U32()
		if err != nil {
			return nil, convertReaderError(err)
		}

		out.Values = append(out.Values, EnumValue{Name: name, Val: int32(val)})
	}

	return out, nil
}

func (p *parser) parseFwd(b *blob, hdr typeHeader) (Type, error) {
	if hdr.nameOff == 0 || hdr.vlen != 0 || hdr.sizeOrType != 0 {
		return nil, invalidEncoding(CodeInvalidFwdEncoding, recordRange(b, 0))
	}

	name, err := p.parseString(hdr.nameOff)
	if err != nil {
		return nil, err
	}

	return Fwd{Name: name, IsUnion: hdr.kindFlag}, nil
}

func (p *parser) parseTypedef(b *blob, hdr typeHeader) (Type, error) {
	if hdr.nameOff == 0 || hdr.kindFlag || hdr.vlen != 0 {
		return nil, invalidEncoding(CodeInvalidTypedefEncoding, recordRange(b, 0))
	}

	name, err := p.parseString(hdr.nameOff)
	if err != nil {
		return nil, err
	}

	return Typedef{Name: name, Type: TypeID(hdr.sizeOrType)}, nil
}

func (p *parser) parseVolatile(b *blob, hdr typeHeader) (Type, error) {
	if hdr.nameOff != 0 || hdr.kindFlag || hdr.vlen != 0 {
		return nil, invalidEncoding(CodeInvalidVolatileEncoding, recordRange(b, 0))
	}

	return Volatile{Type: TypeID(hdr.sizeOrType)}, nil
}

func (p *parser) parseConst(b *blob, hdr typeHeader) (Type, error) {
	if hdr.nameOff != 0 || hdr.kindFlag || hdr.vlen != 0 {
		return nil, invalidEncoding(CodeInvalidConstEncoding, recordRange(b, 0))
	}

	return Const{Type: TypeID(hdr.sizeOrType)}, nil
}

func (p *parser) parseRestrict(b *blob, hdr typeHeader) (Type, error) {
	if hdr.nameOff != 0 || hdr.kindFlag || hdr.vlen != 0 {
		return nil, invalidEncoding(CodeInvalidRestrictEncoding, recordRange(b, 0))
	}

	return Restrict{Type: TypeID(hdr.sizeOrType)}, nil
}

func (p *parser) parseFunc(b *blob, hdr typeHeader) (Type, error) {
	if hdr.nameOff == 0 || hdr.kindFlag || hdr.vlen >= 3 {
		return nil, invalidEncoding(CodeInvalidFuncEncoding, recordRange(b, 0))
	}

	name, err := p.parseString(hdr.nameOff)
	if err != nil {
		return nil, err
	}

	return Func{
		Name:    name,
		Type:    TypeID(hdr.sizeOrType),
		Linkage: FuncLinkage(hdr.vlen),
	}, nil
}

func (p *parser) parseFuncProto(b *blob, hdr typeHeader) (Type, error) {
	if hdr.nameOff != 0 || hdr.kindFlag {
		return nil, invalidEncoding(CodeInvalidFuncProtoEncoding, recordRange(b, 0))
	}

	out := FuncProto{Return: TypeID(hdr.sizeOrType)}

	for i := uint32(0); i < hdr.vlen; i++ {
		var param Param

		nameOff, err := b.r.U32()
		if err != nil {
			return nil, convertReaderError(err)
		}
		if nameOff != 0 {
			if param.Name, err = p.parseString(nameOff); err != nil {
				return nil, err
			}
		}

		typ, err := b.r.U32()
		if err != nil {
			return nil, convertReaderError(err)
		}
		param.Type = TypeID(typ)

		out.Params = append(out.Params, param)
	}

	if n := len(out.Params); n > 0 {
		last := out.Params[n-1]
		if last.Name == "" && last.Type == 0 {
			out.Params = out.Params[:n-1]
			out.IsVariadic = true
		}
	}

	return out, nil
}

func (p *parser) parseVar(b *blob, hdr typeHeader) (Type, error) {
	if hdr.nameOff == 0 || hdr.kindFlag || hdr.vlen != 0 {
		return nil, invalidEncoding(CodeInvalidVarEncoding, recordRange(b, varDataSize))
	}

	name, err := p.parseString(hdr.nameOff)
	if err != nil {
		return nil, err
	}

	linkage, err := b.r.U32()
	if err != nil {
		return nil, convertReaderError(err)
	}

	return Var{
		Name:    name,
		Type:    TypeID(hdr.sizeOrType),
		Linkage: linkage,
	}, nil
}

func (p *parser) parseDataSec(b *blob, hdr typeHeader) (Type, error) {
	if hdr.nameOff == 0 || hdr.kindFlag {
		return nil, invalidEncoding(CodeInvalidDataSecEncoding,
			recordRange(b, uint64(hdr.vlen)*secEntrySize))
	}

	name, err := p.parseString(hdr.nameOff)
	if err != nil {
		return nil, err
	}

	out := DataSec{Name: name, Size: hdr.sizeOrType}

	for i := uint32(0); i < hdr.vlen; i++ {
		var entry SecEntry
		var v uint32

		if v, err = b.r.U32(); err != nil {
			return nil, convertReaderError(err)
		}
		entry.Type = TypeID(v)

		if entry.Offset, err = b.r.U32(); err != nil {
			return nil, convertReaderError(err)
		}
		if entry.Size, err = b.r.U32(); err != nil {
			return nil, convertReaderError(err)
		}

		out.Entries = append(out.Entries, entry)
	}

	return out, nil
}

func (p *parser) parseFloat(b *blob, hdr typeHeader) (Type, error) {
	rng := recordRange(b, 0)

	if hdr.nameOff == 0 || hdr.kindFlag || hdr.vlen != 0 {
		return nil, invalidEncoding(CodeInvalidFloatEncoding, rng)
	}

	switch hdr.sizeOrType {
	case 2, 4, 8, 12, 16:
	default:
		return nil, invalidEncoding(CodeInvalidFloatEncoding, rng)
	}

	name, err := p.parseString(hdr.nameOff)
	if err != nil {
		return nil, err
	}

	return Float{Name: name, Size: hdr.sizeOrType}, nil
}

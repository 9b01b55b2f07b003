// Copyright 2026 Leon Hwang.
// SPDX-License-Identifier: Apache-2.0

package btf

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/bpfsnoop/btfparse/internal/btfbuild"
	"github.com/bpfsnoop/btfparse/internal/test"
)

func TestParseTwoInts(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		b := btfbuild.New(order)
		uintOff := b.AddString("unsigned int")
		charOff := b.AddString("char")

		b.Record(uintOff, uint8(KindInt), 0, false, 4, btfbuild.IntInfo(0, 0, 32))
		b.Record(charOff, uint8(KindInt), 0, false, 1, btfbuild.IntInfo(btfbuild.IntChar, 0, 8))

		tm, err := ParseBuffers(b.Build())
		test.AssertNoErr(t, err)
		test.AssertEqual(t, tm.Count(), 2)

		kind, ok := tm.Kind(1)
		test.AssertTrue(t, ok)
		test.AssertEqual(t, kind, KindInt)

		typ, ok := tm.Get(1)
		test.AssertTrue(t, ok)
		test.AssertDeepEqual(t, typ, Int{Name: "unsigned int", Size: 4, Bits: 32})

		typ, ok = tm.Get(2)
		test.AssertTrue(t, ok)
		test.AssertDeepEqual(t, typ, Int{Name: "char", Size: 1, Encoding: IntChar, Bits: 8})

		_, ok = tm.Get(0)
		test.AssertFalse(t, ok)
		_, ok = tm.Get(3)
		test.AssertFalse(t, ok)
	}
}

func TestParseInvalidMagic(t *testing.T) {
	_, err := ParseBuffers([]byte{0xde, 0xad, 0xbe, 0xef})
	assertErrCode(t, err, CodeInvalidMagicValue)
}

func TestParseEmptyTypeSection(t *testing.T) {
	tm, err := ParseBuffers(btfbuild.New(binary.LittleEndian).Build())
	test.AssertNoErr(t, err)
	test.AssertEqual(t, tm.Count(), 0)
}

func TestParseKindGate(t *testing.T) {
	t.Run("kind 17 is invalid", func(t *testing.T) {
		b := btfbuild.New(binary.LittleEndian)
		b.Record(0, 17, 0, false, 0)

		_, err := ParseBuffers(b.Build())
		assertErrCode(t, err, CodeInvalidBTFKind)
	})

	t.Run("kind 0 has no parser", func(t *testing.T) {
		b := btfbuild.New(binary.LittleEndian)
		b.Record(0, uint8(KindVoid), 0, false, 0)

		_, err := ParseBuffers(b.Build())
		assertErrCode(t, err, CodeUnsupportedBTFKind)
	})
}

func TestParseIntValidation(t *testing.T) {
	build := func(vlen uint16, kindFlag bool, size, info uint32) []byte {
		b := btfbuild.New(binary.LittleEndian)
		off := b.AddString("int")
		b.Record(off, uint8(KindInt), vlen, kindFlag, size, info)
		return b.Build()
	}

	tests := []struct {
		name string
		blob []byte
	}{
		{"nonzero vlen", build(1, false, 4, btfbuild.IntInfo(0, 0, 32))},
		{"kind flag set", build(0, true, 4, btfbuild.IntInfo(0, 0, 32))},
		{"bad size", build(0, false, 3, btfbuild.IntInfo(0, 0, 24))},
		{"two encodings", build(0, false, 4, btfbuild.IntInfo(btfbuild.IntSigned|btfbuild.IntChar, 0, 32))},
		{"bits over size", build(0, false, 1, btfbuild.IntInfo(0, 0, 16))},
		{"offset plus bits over size", build(0, false, 4, btfbuild.IntInfo(0, 8, 32))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBuffers(tt.blob)
			assertErrCode(t, err, CodeInvalidIntEncoding)
		})
	}

	t.Run("bool encoding", func(t *testing.T) {
		tm, err := ParseBuffers(build(0, false, 1, btfbuild.IntInfo(btfbuild.IntBool, 0, 8)))
		test.AssertNoErr(t, err)

		typ, _ := tm.Get(1)
		test.AssertEqual(t, typ.(Int).Encoding, IntBool)
	})
}

func TestParseModifierValidation(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		code ErrorCode
	}{
		{"ptr", KindPtr, CodeInvalidPtrEncoding},
		{"volatile", KindVolatile, CodeInvalidVolatileEncoding},
		{"const", KindConst, CodeInvalidConstEncoding},
		{"restrict", KindRestrict, CodeInvalidRestrictEncoding},
	}

	for _, tt := range tests {
		t.Run(tt.name+" with name", func(t *testing.T) {
			b := btfbuild.New(binary.LittleEndian)
			off := b.AddString("nope")
			b.Record(off, uint8(tt.kind), 0, false, 1)

			_, err := ParseBuffers(b.Build())
			assertErrCode(t, err, tt.code)
		})

		t.Run(tt.name+" ok", func(t *testing.T) {
			b := btfbuild.New(binary.LittleEndian)
			off := b.AddString("int")
			b.Record(off, uint8(KindInt), 0, false, 4, btfbuild.IntInfo(btfbuild.IntSigned, 0, 32))
			b.Record(0, uint8(tt.kind), 0, false, 1)

			tm, err := ParseBuffers(b.Build())
			test.AssertNoErr(t, err)
			test.AssertEqual(t, tm.Count(), 2)
		})
	}
}

func TestParseArray(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		b := btfbuild.New(binary.LittleEndian)
		off := b.AddString("int")
		b.Record(off, uint8(KindInt), 0, false, 4, btfbuild.IntInfo(btfbuild.IntSigned, 0, 32))
		b.Record(0, uint8(KindArray), 0, false, 0, 1, 1, 16)

		tm, err := ParseBuffers(b.Build())
		test.AssertNoErr(t, err)

		typ, ok := tm.Get(2)
		test.AssertTrue(t, ok)
		test.AssertDeepEqual(t, typ, Array{Type: 1, IndexType: 1, NElems: 16})
	})

	t.Run("nonzero size_or_type", func(t *testing.T) {
		b := btfbuild.New(binary.LittleEndian)
		b.Record(0, uint8(KindArray), 0, false, 4, 1, 1, 16)

		_, err := ParseBuffers(b.Build())
		assertErrCode(t, err, CodeInvalidArrayEncoding)
	})
}

func TestParseStructBitfields(t *testing.T) {
	b := btfbuild.New(binary.LittleEndian)
	intOff := b.AddString("unsigned int")
	flagsOff := b.AddString("flags")
	aOff := b.AddString("a")
	bOff := b.AddString("b")

	b.Record(intOff, uint8(KindInt), 0, false, 4, btfbuild.IntInfo(0, 0, 32))
	b.Record(flagsOff, uint8(KindStruct), 2, true, 4,
		aOff, 1, 1<<24|0,
		bOff, 1, 3<<24|1,
	)

	tm, err := ParseBuffers(b.Build())
	test.AssertNoErr(t, err)

	typ, ok := tm.Get(2)
	test.AssertTrue(t, ok)

	s := typ.(Struct)
	test.AssertEqual(t, s.Name, "flags")
	test.AssertEqualSlice(t, s.Members, []Member{
		{Name: "a", Type: 1, Offset: 0, BitfieldSize: 1},
		{Name: "b", Type: 1, Offset: 1, BitfieldSize: 3},
	})
}

func TestParseEnum(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		b := btfbuild.New(binary.LittleEndian)
		nameOff := b.AddString("state")
		aOff := b.AddString("RUNNING")
		bOff := b.AddString("DEAD")

		b.Record(nameOff, uint8(KindEnum), 2, false, 4,
			aOff, 0,
			bOff, 0xFFFFFFFF, // -1
		)

		tm, err := ParseBuffers(b.Build())
		test.AssertNoErr(t, err)

		typ, _ := tm.Get(1)
		test.AssertDeepEqual(t, typ, Enum{
			Name: "state",
			Size: 4,
			Values: []EnumValue{
				{Name: "RUNNING", Val: 0},
				{Name: "DEAD", Val: -1},
			},
		})
	})

	t.Run("unnamed value", func(t *testing.T) {
		b := btfbuild.New(binary.LittleEndian)
		nameOff := b.AddString("state")
		b.Record(nameOff, uint8(KindEnum), 1, false, 4, 0, 0)

		_, err := ParseBuffers(b.Build())
		assertErrCode(t, err, CodeInvalidEnumEncoding)
	})

	t.Run("bad size", func(t *testing.T) {
		b := btfbuild.New(binary.LittleEndian)
		nameOff := b.AddString("state")
		b.Record(nameOff, uint8(KindEnum), 0, false, 3)

		_, err := ParseBuffers(b.Build())
		assertErrCode(t, err, CodeInvalidEnumEncoding)
	})
}

func TestParseFuncProtoVariadic(t *testing.T) {
	b := btfbuild.New(binary.LittleEndian)
	intOff := b.AddString("int")
	charOff := b.AddString("char")
	fmtOff := b.AddString("fmt")

	b.Record(intOff, uint8(KindInt), 0, false, 4, btfbuild.IntInfo(btfbuild.IntSigned, 0, 32))
	b.Record(charOff, uint8(KindInt), 0, false, 1, btfbuild.IntInfo(btfbuild.IntChar, 0, 8))
	b.Record(0, uint8(KindPtr), 0, false, 2)
	b.Record(0, uint8(KindFuncProto), 3, false, 1,
		0, 1,
		fmtOff, 3,
		0, 0, // trailing unnamed void parameter
	)

	tm, err := ParseBuffers(b.Build())
	test.AssertNoErr(t, err)

	fp := mustGet(t, tm, 4).(FuncProto)
	test.AssertTrue(t, fp.IsVariadic)
	test.AssertEqual(t, fp.Return, 1)
	test.AssertEqualSlice(t, fp.Params, []Param{
		{Name: "", Type: 1},
		{Name: "fmt", Type: 3},
	})

	t.Run("named trailing void param is kept", func(t *testing.T) {
		b := btfbuild.New(binary.LittleEndian)
		argOff := b.AddString("arg")
		b.Record(0, uint8(KindFuncProto), 1, false, 0, argOff, 0)

		tm, err := ParseBuffers(b.Build())
		test.AssertNoErr(t, err)

		fp := mustGet(t, tm, 1).(FuncProto)
		test.AssertFalse(t, fp.IsVariadic)
		test.AssertEqual(t, len(fp.Params), 1)
	})
}

func TestParseFunc(t *testing.T) {
	t.Run("linkage", func(t *testing.T) {
		b := btfbuild.New(binary.LittleEndian)
		nameOff := b.AddString("do_exit")
		b.Record(0, uint8(KindFuncProto), 0, false, 0)
		b.Record(nameOff, uint8(KindFunc), 2, false, 1)

		tm, err := ParseBuffers(b.Build())
		test.AssertNoErr(t, err)

		fn := mustGet(t, tm, 2).(Func)
		test.AssertEqual(t, fn.Linkage, ExternFunc)
	})

	t.Run("linkage 3 rejected", func(t *testing.T) {
		b := btfbuild.New(binary.LittleEndian)
		nameOff := b.AddString("do_exit")
		b.Record(0, uint8(KindFuncProto), 0, false, 0)
		b.Record(nameOff, uint8(KindFunc), 3, false, 1)

		_, err := ParseBuffers(b.Build())
		assertErrCode(t, err, CodeInvalidFuncEncoding)
	})
}

func TestParseFwdTypedefFloat(t *testing.T) {
	b := btfbuild.New(binary.LittleEndian)
	skOff := b.AddString("sock")
	tdOff := b.AddString("sock_t")
	fltOff := b.AddString("long double")

	b.Record(skOff, uint8(KindFwd), 0, true, 0) // kind_flag selects union
	b.Record(tdOff, uint8(KindTypedef), 0, false, 1)
	b.Record(fltOff, uint8(KindFloat), 0, false, 16)

	tm, err := ParseBuffers(b.Build())
	test.AssertNoErr(t, err)

	test.AssertDeepEqual(t, mustGet(t, tm, 1), Fwd{Name: "sock", IsUnion: true})
	test.AssertDeepEqual(t, mustGet(t, tm, 2), Typedef{Name: "sock_t", Type: 1})
	test.AssertDeepEqual(t, mustGet(t, tm, 3), Float{Name: "long double", Size: 16})

	t.Run("fwd with size", func(t *testing.T) {
		b := btfbuild.New(binary.LittleEndian)
		off := b.AddString("sock")
		b.Record(off, uint8(KindFwd), 0, false, 8)

		_, err := ParseBuffers(b.Build())
		assertErrCode(t, err, CodeInvalidFwdEncoding)
	})

	t.Run("typedef without name", func(t *testing.T) {
		b := btfbuild.New(binary.LittleEndian)
		b.Record(0, uint8(KindTypedef), 0, false, 1)

		_, err := ParseBuffers(b.Build())
		assertErrCode(t, err, CodeInvalidTypedefEncoding)
	})

	t.Run("float bad size", func(t *testing.T) {
		b := btfbuild.New(binary.LittleEndian)
		off := b.AddString("half")
		b.Record(off, uint8(KindFloat), 0, false, 10)

		_, err := ParseBuffers(b.Build())
		assertErrCode(t, err, CodeInvalidFloatEncoding)
	})
}

func TestParseVarDataSec(t *testing.T) {
	b := btfbuild.New(binary.LittleEndian)
	intOff := b.AddString("int")
	varOff := b.AddString("jiffies")
	secOff := b.AddString(".data")

	b.Record(intOff, uint8(KindInt), 0, false, 4, btfbuild.IntInfo(btfbuild.IntSigned, 0, 32))
	b.Record(varOff, uint8(KindVar), 0, false, 1, 1)
	b.Record(secOff, uint8(KindDataSec), 1, false, 16, 2, 0, 4)

	tm, err := ParseBuffers(b.Build())
	test.AssertNoErr(t, err)

	test.AssertDeepEqual(t, mustGet(t, tm, 2), Var{Name: "jiffies", Type: 1, Linkage: 1})
	test.AssertDeepEqual(t, mustGet(t, tm, 3), DataSec{
		Name:    ".data",
		Size:    16,
		Entries: []SecEntry{{Type: 2, Offset: 0, Size: 4}},
	})
}

func TestParseMultiBlob(t *testing.T) {
	// Blob 2's string offsets are relative to the concatenation of
	// both blobs' string tables.
	b1 := btfbuild.New(binary.LittleEndian)
	intOff := b1.AddString("int")
	b1.Record(intOff, uint8(KindInt), 0, false, 4, btfbuild.IntInfo(btfbuild.IntSigned, 0, 32))
	strLen1 := b1.StrLen()

	b2 := btfbuild.New(binary.LittleEndian)
	longOff := b2.AddString("long int")
	b2.Record(strLen1+longOff, uint8(KindInt), 0, false, 8, btfbuild.IntInfo(btfbuild.IntSigned, 0, 64))

	tm, err := ParseBuffers(b1.Build(), b2.Build())
	test.AssertNoErr(t, err)
	test.AssertEqual(t, tm.Count(), 2)

	test.AssertDeepEqual(t, mustGet(t, tm, 1), Int{Name: "int", Size: 4, Encoding: IntSigned, Bits: 32})
	test.AssertDeepEqual(t, mustGet(t, tm, 2), Int{Name: "long int", Size: 8, Encoding: IntSigned, Bits: 64})

	t.Run("offset beyond every table", func(t *testing.T) {
		b := btfbuild.New(binary.LittleEndian)
		b.AddString("int")
		b.Record(4096, uint8(KindInt), 0, false, 4, btfbuild.IntInfo(0, 0, 32))

		_, err := ParseBuffers(b.Build())
		assertErrCode(t, err, CodeInvalidStringOffset)
	})
}

func TestParseTruncatedRecord(t *testing.T) {
	b := btfbuild.New(binary.LittleEndian)
	off := b.AddString("int")
	b.Record(off, uint8(KindInt), 0, false, 4, btfbuild.IntInfo(0, 0, 32))

	blob := b.Build()
	// Grow type_len past the actual section so the decoder runs off
	// the end of the last record.
	binary.LittleEndian.PutUint32(blob[12:], binary.LittleEndian.Uint32(blob[12:])+12)

	_, err := ParseBuffers(blob)
	test.AssertHaveErr(t, err)
}

func TestAllAscendingNoGaps(t *testing.T) {
	b := btfbuild.New(binary.LittleEndian)
	intOff := b.AddString("int")
	b.Record(intOff, uint8(KindInt), 0, false, 4, btfbuild.IntInfo(btfbuild.IntSigned, 0, 32))
	b.Record(0, uint8(KindPtr), 0, false, 1)
	b.Record(0, uint8(KindPtr), 0, false, 2)

	tm, err := ParseBuffers(b.Build())
	test.AssertNoErr(t, err)

	var prev TypeID
	for id, typ := range tm.All() {
		test.AssertEqual(t, id, prev+1)
		test.AssertTrue(t, typ != nil)
		prev = id
	}
	test.AssertEqual(t, uint32(prev), tm.Count())
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open("/nonexistent/btf/blob")
	assertErrCode(t, err, CodeFileNotFound)
}

func mustGet(t *testing.T, tm *TypeMap, id TypeID) Type {
	t.Helper()
	typ, ok := tm.Get(id)
	if !ok {
		t.Fatalf("type #%d not found", id)
	}
	return typ
}

func assertErrCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	if err == nil {
		t.Errorf("expected error, but got nil")
		return
	}

	var be *Error
	if !errors.As(err, &be) {
		t.Errorf("got %v, want a decode error with code %v", err, code)
		return
	}
	if be.Code != code {
		t.Errorf("got code %v, want %v", be.Code, code)
	}
}

// Copyright 2026 Leon Hwang.
// SPDX-License-Identifier: Apache-2.0

package dump

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/bpfsnoop/btfparse/btf"
	"github.com/bpfsnoop/btfparse/internal/test"
)

// The plain format must stay byte-identical to `bpftool btf dump file`.
func TestFormatType(t *testing.T) {
	tests := []struct {
		name string
		typ  btf.Type
		want string
	}{
		{
			"int",
			btf.Int{Name: "unsigned int", Size: 4, Bits: 32},
			"'unsigned int' size=4 bits_offset=0 nr_bits=32 encoding=(none)",
		},
		{
			"int char",
			btf.Int{Name: "char", Size: 1, Encoding: btf.IntChar, Bits: 8},
			"'char' size=1 bits_offset=0 nr_bits=8 encoding=CHAR",
		},
		{
			"ptr",
			btf.Ptr{Type: 7},
			"'(anon)' type_id=7",
		},
		{
			"array",
			btf.Array{Type: 3, IndexType: 1, NElems: 16},
			"'(anon)' type_id=3 index_type_id=1 nr_elems=16",
		},
		{
			"struct",
			btf.Struct{Name: "point", Size: 8, Members: []btf.Member{
				{Name: "x", Type: 1, Offset: 0},
				{Name: "y", Type: 1, Offset: 32},
			}},
			"'point' size=8 vlen=2\n\t'x' type_id=1 bits_offset=0\n\t'y' type_id=1 bits_offset=32",
		},
		{
			"struct bitfield",
			btf.Struct{Name: "flags", Size: 4, Members: []btf.Member{
				{Name: "a", Type: 1, Offset: 0, BitfieldSize: 1},
			}},
			"'flags' size=4 vlen=1\n\t'a' type_id=1 bits_offset=0 bitfield_size=1",
		},
		{
			"union anon member",
			btf.Union{Name: "", Size: 4, Members: []btf.Member{
				{Name: "", Type: 2, Offset: 0},
			}},
			"'(anon)' size=4 vlen=1\n\t'(anon)' type_id=2 bits_offset=0",
		},
		{
			// bpftool casts the signed value to unsigned.
			"enum negative value",
			btf.Enum{Name: "err", Size: 4, Values: []btf.EnumValue{
				{Name: "E_FAIL", Val: -1},
			}},
			"'err' size=4 vlen=1\n\t'E_FAIL' val=4294967295",
		},
		{
			"fwd union",
			btf.Fwd{Name: "sock", IsUnion: true},
			"'sock' fwd_kind=union",
		},
		{
			"typedef",
			btf.Typedef{Name: "u32", Type: 9},
			"'u32' type_id=9",
		},
		{
			"volatile",
			btf.Volatile{Type: 4},
			"'(anon)' type_id=4",
		},
		{
			"func",
			btf.Func{Name: "do_exit", Type: 11, Linkage: btf.ExternFunc},
			"'do_exit' type_id=11 linkage=extern",
		},
		{
			// The variadic marker is printed back as the raw trailing
			// record bpftool shows.
			"func proto variadic",
			btf.FuncProto{Return: 1, IsVariadic: true, Params: []btf.Param{
				{Name: "", Type: 1},
				{Name: "fmt", Type: 3},
			}},
			"'(anon)' ret_type_id=1 vlen=3\n\t'(anon)' type_id=1\n\t'fmt' type_id=3\n\t'(anon)' type_id=0",
		},
		{
			"func proto empty",
			btf.FuncProto{Return: 0},
			"'(anon)' ret_type_id=0 vlen=0",
		},
		{
			// A variadic prototype with no other params keeps the tail
			// on the same line, as bpftool does.
			"func proto variadic only",
			btf.FuncProto{Return: 1, IsVariadic: true},
			"'(anon)' ret_type_id=1 vlen=1\t'(anon)' type_id=0",
		},
		{
			"var",
			btf.Var{Name: "jiffies", Type: 2, Linkage: 1},
			"'jiffies' type_id=2, linkage=global-alloc",
		},
		{
			"var unknown linkage",
			btf.Var{Name: "x", Type: 2, Linkage: 7},
			"'x' type_id=2, linkage=7",
		},
		{
			"datasec",
			btf.DataSec{Name: ".data", Size: 16, Entries: []btf.SecEntry{
				{Type: 2, Offset: 0, Size: 4},
				{Type: 3, Offset: 8, Size: 8},
			}},
			"'.data' size=16 vlen=2\n\ttype_id=2 offset=0 size=4\n\ttype_id=3 offset=8 size=8",
		},
		{
			"float",
			btf.Float{Name: "double", Size: 8},
			"'double' size=8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			test.AssertEqual(t, FormatType(tt.typ), tt.want)
		})
	}
}

func TestPrintType(t *testing.T) {
	var sb strings.Builder

	err := PrintType(&sb, 3, btf.Typedef{Name: "u32", Type: 9})
	test.AssertNoErr(t, err)
	test.AssertEqual(t, sb.String(), "[3] TYPEDEF 'u32' type_id=9\n")
}

func TestPrintTypeJSON(t *testing.T) {
	var sb strings.Builder

	err := PrintTypeJSON(&sb, 2, btf.Struct{Name: "point", Size: 8, Members: []btf.Member{
		{Name: "x", Type: 1, Offset: 0},
	}})
	test.AssertNoErr(t, err)

	var obj map[string]any
	test.AssertNoErr(t, json.Unmarshal([]byte(sb.String()), &obj))

	test.AssertEqual(t, obj["kind"].(string), "STRUCT")
	test.AssertEqual(t, obj["name"].(string), "point")

	members := obj["members"].([]any)
	test.AssertEqual(t, len(members), 1)

	member := members[0].(map[string]any)
	test.AssertEqual(t, member["name"].(string), "x")
}

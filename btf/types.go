// Copyright 2026 Leon Hwang.
// SPDX-License-Identifier: Apache-2.0

package btf

// TypeID identifies a type inside a TypeMap. ID 0 is reserved for void.
type TypeID uint32

// Kind is the tag of a Type variant. The ordinals match the on-wire BTF
// kind encoding, with Void occupying the reserved kind 0.
type Kind uint8

const (
	KindVoid Kind = iota
	KindInt
	KindPtr
	KindArray
	KindStruct
	KindUnion
	KindEnum
	KindFwd
	KindTypedef
	KindVolatile
	KindConst
	KindRestrict
	KindFunc
	KindFuncProto
	KindVar
	KindDataSec
	KindFloat
)

// maxKind is the highest kind ordinal the decoder accepts on the wire.
const maxKind = KindFloat

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "VOID"
	case KindInt:
		return "INT"
	case KindPtr:
		return "PTR"
	case KindArray:
		return "ARRAY"
	case KindStruct:
		return "STRUCT"
	case KindUnion:
		return "UNION"
	case KindEnum:
		return "ENUM"
	case KindFwd:
		return "FWD"
	case KindTypedef:
		return "TYPEDEF"
	case KindVolatile:
		return "VOLATILE"
	case KindConst:
		return "CONST"
	case KindRestrict:
		return "RESTRICT"
	case KindFunc:
		return "FUNC"
	case KindFuncProto:
		return "FUNC_PROTO"
	case KindVar:
		return "VAR"
	case KindDataSec:
		return "DATASEC"
	case KindFloat:
		return "FLOAT"
	default:
		return "UNKNOWN"
	}
}

// Type is the closed set of BTF type variants. Dispatch on the concrete
// type or on Kind(); an empty TypeName means the type is anonymous.
type Type interface {
	Kind() Kind
	TypeName() string
}

// IntEncoding describes the signedness flavour of an Int type. At most
// one of Signed, Char and Bool is set on the wire.
type IntEncoding uint8

const (
	IntNone IntEncoding = iota
	IntSigned
	IntChar
	IntBool
)

func (e IntEncoding) String() string {
	switch e {
	case IntNone:
		return "(none)"
	case IntSigned:
		return "SIGNED"
	case IntChar:
		return "CHAR"
	case IntBool:
		return "BOOL"
	default:
		return "UNKNOWN"
	}
}

// Void is the implicit type behind TypeID 0. It is never stored in a
// TypeMap; the decoder and the generator handle id 0 directly.
type Void struct{}

func (Void) Kind() Kind       { return KindVoid }
func (Void) TypeName() string { return "void" }

type Int struct {
	Name     string
	Size     uint32 // bytes
	Encoding IntEncoding
	Offset   uint8 // bit offset
	Bits     uint8 // bit width
}

func (Int) Kind() Kind         { return KindInt }
func (t Int) TypeName() string { return t.Name }

type Ptr struct {
	Type TypeID
}

func (Ptr) Kind() Kind       { return KindPtr }
func (Ptr) TypeName() string { return "" }

type Array struct {
	Type      TypeID // element type
	IndexType TypeID
	NElems    uint32
}

func (Array) Kind() Kind       { return KindArray }
func (Array) TypeName() string { return "" }

// Member is one field of a Struct or Union. Offset is in bits from the
// start of the aggregate. BitfieldSize 0 means the member is not a
// bitfield.
type Member struct {
	Name         string
	Type         TypeID
	Offset       uint32
	BitfieldSize uint8
}

type Struct struct {
	Name    string
	Size    uint32 // bytes
	Members []Member
}

func (Struct) Kind() Kind         { return KindStruct }
func (t Struct) TypeName() string { return t.Name }

type Union struct {
	Name    string
	Size    uint32 // bytes
	Members []Member
}

func (Union) Kind() Kind         { return KindUnion }
func (t Union) TypeName() string { return t.Name }

type EnumValue struct {
	Name string
	Val  int32
}

type Enum struct {
	Name   string
	Size   uint32 // bytes
	Values []EnumValue
}

func (Enum) Kind() Kind         { return KindEnum }
func (t Enum) TypeName() string { return t.Name }

// Fwd is a forward declaration of a struct or union.
type Fwd struct {
	Name    string
	IsUnion bool
}

func (Fwd) Kind() Kind         { return KindFwd }
func (t Fwd) TypeName() string { return t.Name }

type Typedef struct {
	Name string
	Type TypeID
}

func (Typedef) Kind() Kind         { return KindTypedef }
func (t Typedef) TypeName() string { return t.Name }

type Volatile struct {
	Type TypeID
}

func (Volatile) Kind() Kind       { return KindVolatile }
func (Volatile) TypeName() string { return "" }

type Const struct {
	Type TypeID
}

func (Const) Kind() Kind       { return KindConst }
func (Const) TypeName() string { return "" }

type Restrict struct {
	Type TypeID
}

func (Restrict) Kind() Kind       { return KindRestrict }
func (Restrict) TypeName() string { return "" }

// FuncLinkage is encoded in the vlen field of a Func record.
type FuncLinkage uint8

const (
	StaticFunc FuncLinkage = iota
	GlobalFunc
	ExternFunc
)

func (l FuncLinkage) String() string {
	switch l {
	case StaticFunc:
		return "static"
	case GlobalFunc:
		return "global"
	case ExternFunc:
		return "extern"
	default:
		return "UNKNOWN"
	}
}

type Func struct {
	Name    string
	Type    TypeID // must reference a FuncProto
	Linkage FuncLinkage
}

func (Func) Kind() Kind         { return KindFunc }
func (t Func) TypeName() string { return t.Name }

type Param struct {
	Name string
	Type TypeID
}

// FuncProto is a function signature. A trailing unnamed parameter of
// type 0 on the wire is absorbed into IsVariadic during decoding.
type FuncProto struct {
	Return     TypeID
	Params     []Param
	IsVariadic bool
}

func (FuncProto) Kind() Kind       { return KindFuncProto }
func (FuncProto) TypeName() string { return "" }

type Var struct {
	Name    string
	Type    TypeID
	Linkage uint32
}

func (Var) Kind() Kind         { return KindVar }
func (t Var) TypeName() string { return t.Name }

type SecEntry struct {
	Type   TypeID
	Offset uint32
	Size   uint32
}

type DataSec struct {
	Name    string
	Size    uint32
	Entries []SecEntry
}

func (DataSec) Kind() Kind         { return KindDataSec }
func (t DataSec) TypeName() string { return t.Name }

type Float struct {
	Name string
	Size uint32 // bytes
}

func (Float) Kind() Kind         { return KindFloat }
func (t Float) TypeName() string { return t.Name }

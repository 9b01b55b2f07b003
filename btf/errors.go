// Copyright 2026 Leon Hwang.
// SPDX-License-Identifier: Apache-2.0

package btf

import (
	"fmt"

	"github.com/bpfsnoop/btfparse/internal/reader"
)

// ErrorCode is the machine-readable classification of a decode failure.
// Test suites match on codes, not on rendered strings.
type ErrorCode int

const (
	CodeUnknown ErrorCode = iota
	CodeMemoryAllocationFailure
	CodeFileNotFound
	CodeIOError
	CodeInvalidMagicValue
	CodeInvalidBTFKind
	CodeUnsupportedBTFKind
	CodeInvalidIntEncoding
	CodeInvalidPtrEncoding
	CodeInvalidArrayEncoding
	CodeInvalidStructEncoding
	CodeInvalidUnionEncoding
	CodeInvalidEnumEncoding
	CodeInvalidFwdEncoding
	CodeInvalidTypedefEncoding
	CodeInvalidVolatileEncoding
	CodeInvalidConstEncoding
	CodeInvalidRestrictEncoding
	CodeInvalidFuncEncoding
	CodeInvalidFuncProtoEncoding
	CodeInvalidVarEncoding
	CodeInvalidDataSecEncoding
	CodeInvalidFloatEncoding
	CodeInvalidStringOffset
)

func (c ErrorCode) String() string {
	switch c {
	case CodeMemoryAllocationFailure:
		return "memory allocation failure"
	case CodeFileNotFound:
		return "file not found"
	case CodeIOError:
		return "IO error"
	case CodeInvalidMagicValue:
		return "invalid magic value"
	case CodeInvalidBTFKind:
		return "invalid BTF kind"
	case CodeUnsupportedBTFKind:
		return "unsupported BTF kind"
	case CodeInvalidIntEncoding:
		return "invalid Int encoding"
	case CodeInvalidPtrEncoding:
		return "invalid Ptr encoding"
	case CodeInvalidArrayEncoding:
		return "invalid Array encoding"
	case CodeInvalidStructEncoding:
		return "invalid Struct encoding"
	case CodeInvalidUnionEncoding:
		return "invalid Union encoding"
	case CodeInvalidEnumEncoding:
		return "invalid Enum encoding"
	case CodeInvalidFwdEncoding:
		return "invalid Fwd encoding"
	case CodeInvalidTypedefEncoding:
		return "invalid Typedef encoding"
	case CodeInvalidVolatileEncoding:
		return "invalid Volatile encoding"
	case CodeInvalidConstEncoding:
		return "invalid Const encoding"
	case CodeInvalidRestrictEncoding:
		return "invalid Restrict encoding"
	case CodeInvalidFuncEncoding:
		return "invalid Func encoding"
	case CodeInvalidFuncProtoEncoding:
		return "invalid FuncProto encoding"
	case CodeInvalidVarEncoding:
		return "invalid Var encoding"
	case CodeInvalidDataSecEncoding:
		return "invalid DataSec encoding"
	case CodeInvalidStringOffset:
		return "invalid string offset"
	default:
		return "unknown error"
	}
}

// FileRange locates the bytes of the offending record inside its blob.
// For a failed read it holds the attempted offset and size; for
// CodeInvalidStringOffset, Offset is the string offset that did not
// resolve and Size is 0.
type FileRange struct {
	Offset uint64
	Size   uint64
}

// Error is the typed failure returned by every fallible decode
// operation. Range is nil when the failure has no meaningful location.
type Error struct {
	Code  ErrorCode
	Range *FileRange
}

func (e *Error) Error() string {
	if e.Range != nil {
		return fmt.Sprintf("%s (offset=%#x, size=%d)", e.Code, e.Range.Offset, e.Range.Size)
	}
	return e.Code.String()
}

// Is matches any *Error carrying the same code, so that
// errors.Is(err, btf.ErrInvalidEnumEncoding) works regardless of range.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrMemoryAllocationFailure  = &Error{Code: CodeMemoryAllocationFailure}
	ErrFileNotFound             = &Error{Code: CodeFileNotFound}
	ErrIO                       = &Error{Code: CodeIOError}
	ErrInvalidMagicValue        = &Error{Code: CodeInvalidMagicValue}
	ErrInvalidBTFKind           = &Error{Code: CodeInvalidBTFKind}
	ErrUnsupportedBTFKind       = &Error{Code: CodeUnsupportedBTFKind}
	ErrInvalidIntEncoding       = &Error{Code: CodeInvalidIntEncoding}
	ErrInvalidPtrEncoding       = &Error{Code: CodeInvalidPtrEncoding}
	ErrInvalidArrayEncoding     = &Error{Code: CodeInvalidArrayEncoding}
	ErrInvalidStructEncoding    = &Error{Code: CodeInvalidStructEncoding}
	ErrInvalidUnionEncoding     = &Error{Code: CodeInvalidUnionEncoding}
	ErrInvalidEnumEncoding      = &Error{Code: CodeInvalidEnumEncoding}
	ErrInvalidFwdEncoding       = &Error{Code: CodeInvalidFwdEncoding}
	ErrInvalidTypedefEncoding   = &Error{Code: CodeInvalidTypedefEncoding}
	ErrInvalidVolatileEncoding  = &Error{Code: CodeInvalidVolatileEncoding}
	ErrInvalidConstEncoding     = &Error{Code: CodeInvalidConstEncoding}
	ErrInvalidRestrictEncoding  = &Error{Code: CodeInvalidRestrictEncoding}
	ErrInvalidFuncEncoding      = &Error{Code: CodeInvalidFuncEncoding}
	ErrInvalidFuncProtoEncoding = &Error{Code: CodeInvalidFuncProtoEncoding}
	ErrInvalidVarEncoding       = &Error{Code: CodeInvalidVarEncoding}
	ErrInvalidDataSecEncoding   = &Error{Code: CodeInvalidDataSecEncoding}
	ErrInvalidStringOffset      = &Error{Code: CodeInvalidStringOffset}
)

func invalidEncoding(code ErrorCode, rng FileRange) *Error {
	return &Error{Code: code, Range: &rng}
}

// convertReaderError maps a stream reader failure onto the decoder's
// error taxonomy, preserving the attempted file range.
func convertReaderError(err error) *Error {
	re, ok := reader.AsError(err)
	if !ok {
		return &Error{Code: CodeUnknown}
	}

	var code ErrorCode
	switch re.Code {
	case reader.CodeMemoryAllocationFailure:
		code = CodeMemoryAllocationFailure
	case reader.CodeFileNotFound:
		code = CodeFileNotFound
	case reader.CodeIOError:
		code = CodeIOError
	default:
		code = CodeUnknown
	}

	e := &Error{Code: code}
	if re.Op != nil {
		e.Range = &FileRange{Offset: re.Op.Offset, Size: re.Op.Size}
	}
	return e
}

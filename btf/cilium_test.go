// Copyright 2026 Leon Hwang.
// SPDX-License-Identifier: Apache-2.0

package btf

import (
	"encoding/binary"
	"os"
	"testing"

	cbtf "github.com/cilium/ebpf/btf"

	"github.com/bpfsnoop/btfparse/internal/test"
)

// TestParseCiliumBlob cross-checks the decoder against a blob built by
// an independent BTF implementation.
func TestParseCiliumBlob(t *testing.T) {
	builder, err := cbtf.NewBuilder([]cbtf.Type{
		&cbtf.Int{Name: "unsigned int", Size: 4},
		&cbtf.Int{Name: "char", Size: 1, Encoding: cbtf.Char},
	})
	test.AssertNoErr(t, err)

	blob, err := builder.Marshal(nil, &cbtf.MarshalOptions{Order: binary.LittleEndian})
	test.AssertNoErr(t, err)

	tm, err := ParseBuffers(blob)
	test.AssertNoErr(t, err)
	test.AssertEqual(t, tm.Count(), 2)

	typ := mustGet(t, tm, 1).(Int)
	test.AssertEqual(t, typ.Name, "unsigned int")
	test.AssertEqual(t, typ.Size, 4)
	test.AssertEqual(t, typ.Encoding, IntNone)

	typ = mustGet(t, tm, 2).(Int)
	test.AssertEqual(t, typ.Name, "char")
	test.AssertEqual(t, typ.Encoding, IntChar)
}

// TestParseKernelBTF smoke-tests the decoder against the running
// kernel's BTF, when available.
func TestParseKernelBTF(t *testing.T) {
	const vmlinux = "/sys/kernel/btf/vmlinux"

	if _, err := os.Stat(vmlinux); err != nil {
		t.Skipf("%s not available: %v", vmlinux, err)
	}

	tm, err := Open(vmlinux)
	if err != nil {
		// Recent kernels emit kinds newer than this format subset
		// (decl tags, enum64); nothing to check against then.
		assertErrCode(t, err, CodeInvalidBTFKind)
		t.Skipf("kernel BTF uses kinds beyond the supported range")
	}
	test.AssertTrue(t, tm.Count() > 0)

	for id := range tm.All() {
		kind, ok := tm.Kind(id)
		test.AssertTrue(t, ok)
		test.AssertTrue(t, kind <= KindFloat)
	}
}

// Copyright 2026 Leon Hwang.
// SPDX-License-Identifier: Apache-2.0

// Package dump renders decoded BTF types in the exact line format of
// `bpftool btf dump file`, one type per line, plus an alternative JSON
// rendering.
package dump

import (
	"fmt"
	"io"
	"strings"

	"github.com/bpfsnoop/btfparse/btf"
)

// PrintType writes the bpftool-format line for one type, including the
// trailing newline.
func PrintType(w io.Writer, id btf.TypeID, typ btf.Type) error {
	_, err := fmt.Fprintf(w, "[%d] %s %s\n", id, typ.Kind(), FormatType(typ))
	return err
}

// FormatType renders the per-kind body following "[id] KIND ".
func FormatType(typ btf.Type) string {
	var sb strings.Builder

	switch t := typ.(type) {
	case btf.Int:
		fmt.Fprintf(&sb, "'%s' size=%d bits_offset=%d nr_bits=%d encoding=%s",
			t.Name, t.Size, t.Offset, t.Bits, t.Encoding)

	case btf.Ptr:
		fmt.Fprintf(&sb, "'(anon)' type_id=%d", t.Type)

	case btf.Array:
		fmt.Fprintf(&sb, "'(anon)' type_id=%d index_type_id=%d nr_elems=%d",
			t.Type, t.IndexType, t.NElems)

	case btf.Struct:
		formatMembers(&sb, t.Name, t.Size, t.Members)

	case btf.Union:
		formatMembers(&sb, t.Name, t.Size, t.Members)

	case btf.Enum:
		fmt.Fprintf(&sb, "'%s' size=%d vlen=%d", nameOrAnon(t.Name), t.Size, len(t.Values))
		for _, value := range t.Values {
			// bpftool prints the value as unsigned even though the
			// format documents it as signed.
			fmt.Fprintf(&sb, "\n\t'%s' val=%d", value.Name, uint32(value.Val))
		}

	case btf.Fwd:
		kind := "struct"
		if t.IsUnion {
			kind = "union"
		}
		fmt.Fprintf(&sb, "'%s' fwd_kind=%s", t.Name, kind)

	case btf.Typedef:
		fmt.Fprintf(&sb, "'%s' type_id=%d", t.Name, t.Type)

	case btf.Volatile:
		fmt.Fprintf(&sb, "'(anon)' type_id=%d", t.Type)

	case btf.Const:
		fmt.Fprintf(&sb, "'(anon)' type_id=%d", t.Type)

	case btf.Restrict:
		fmt.Fprintf(&sb, "'(anon)' type_id=%d", t.Type)

	case btf.Func:
		fmt.Fprintf(&sb, "'%s' type_id=%d linkage=%s", t.Name, t.Type, t.Linkage)

	case btf.FuncProto:
		// The decoder absorbs the trailing unnamed void parameter into
		// IsVariadic; bpftool prints the raw record, so put it back.
		vlen := len(t.Params)
		if t.IsVariadic {
			vlen++
		}

		fmt.Fprintf(&sb, "'(anon)' ret_type_id=%d vlen=%d", t.Return, vlen)
		for _, param := range t.Params {
			fmt.Fprintf(&sb, "\n\t'%s' type_id=%d", nameOrAnon(param.Name), param.Type)
		}
		if t.IsVariadic {
			if len(t.Params) > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString("\t'(anon)' type_id=0")
		}

	case btf.Var:
		fmt.Fprintf(&sb, "'%s' type_id=%d, linkage=%s", t.Name, t.Type, varLinkage(t.Linkage))

	case btf.DataSec:
		fmt.Fprintf(&sb, "'%s' size=%d vlen=%d", t.Name, t.Size, len(t.Entries))
		for _, entry := range t.Entries {
			fmt.Fprintf(&sb, "\n\ttype_id=%d offset=%d size=%d",
				entry.Type, entry.Offset, entry.Size)
		}

	case btf.Float:
		fmt.Fprintf(&sb, "'%s' size=%d", t.Name, t.Size)
	}

	return sb.String()
}

func formatMembers(sb *strings.Builder, name string, size uint32, members []btf.Member) {
	fmt.Fprintf(sb, "'%s' size=%d vlen=%d", nameOrAnon(name), size, len(members))

	for _, member := range members {
		fmt.Fprintf(sb, "\n\t'%s' type_id=%d bits_offset=%d",
			nameOrAnon(member.Name), member.Type, member.Offset)

		if member.BitfieldSize != 0 {
			fmt.Fprintf(sb, " bitfield_size=%d", member.BitfieldSize)
		}
	}
}

func nameOrAnon(name string) string {
	if name == "" {
		return "(anon)"
	}
	return name
}

func varLinkage(linkage uint32) string {
	switch linkage {
	case 0:
		return "static"
	case 1:
		return "global-alloc"
	default:
		return fmt.Sprintf("%d", linkage)
	}
}

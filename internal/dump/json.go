// Copyright 2026 Leon Hwang.
// SPDX-License-Identifier: Apache-2.0

package dump

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/bpfsnoop/btfparse/btf"
)

// PrintTypeJSON writes one JSON object per type, newline-terminated.
// The field set mirrors the plain format; ids stay numeric so that
// consumers can rebuild the reference graph.
func PrintTypeJSON(w io.Writer, id btf.TypeID, typ btf.Type) error {
	obj := map[string]any{
		"id":   id,
		"kind": typ.Kind().String(),
	}

	switch t := typ.(type) {
	case btf.Int:
		obj["name"] = t.Name
		obj["size"] = t.Size
		obj["bits_offset"] = t.Offset
		obj["nr_bits"] = t.Bits
		obj["encoding"] = t.Encoding.String()

	case btf.Ptr:
		obj["type_id"] = t.Type

	case btf.Array:
		obj["type_id"] = t.Type
		obj["index_type_id"] = t.IndexType
		obj["nr_elems"] = t.NElems

	case btf.Struct:
		obj["name"] = t.Name
		obj["size"] = t.Size
		obj["members"] = jsonMembers(t.Members)

	case btf.Union:
		obj["name"] = t.Name
		obj["size"] = t.Size
		obj["members"] = jsonMembers(t.Members)

	case btf.Enum:
		values := make([]map[string]any, 0, len(t.Values))
		for _, value := range t.Values {
			values = append(values, map[string]any{
				"name": value.Name,
				"val":  value.Val,
			})
		}
		obj["name"] = t.Name
		obj["size"] = t.Size
		obj["values"] = values

	case btf.Fwd:
		obj["name"] = t.Name
		obj["union"] = t.IsUnion

	case btf.Typedef:
		obj["name"] = t.Name
		obj["type_id"] = t.Type

	case btf.Volatile:
		obj["type_id"] = t.Type

	case btf.Const:
		obj["type_id"] = t.Type

	case btf.Restrict:
		obj["type_id"] = t.Type

	case btf.Func:
		obj["name"] = t.Name
		obj["type_id"] = t.Type
		obj["linkage"] = t.Linkage.String()

	case btf.FuncProto:
		params := make([]map[string]any, 0, len(t.Params))
		for _, param := range t.Params {
			params = append(params, map[string]any{
				"name":    param.Name,
				"type_id": param.Type,
			})
		}
		obj["ret_type_id"] = t.Return
		obj["params"] = params
		obj["variadic"] = t.IsVariadic

	case btf.Var:
		obj["name"] = t.Name
		obj["type_id"] = t.Type
		obj["linkage"] = varLinkage(t.Linkage)

	case btf.DataSec:
		entries := make([]map[string]any, 0, len(t.Entries))
		for _, entry := range t.Entries {
			entries = append(entries, map[string]any{
				"type_id": entry.Type,
				"offset":  entry.Offset,
				"size":    entry.Size,
			})
		}
		obj["name"] = t.Name
		obj["size"] = t.Size
		obj["entries"] = entries

	case btf.Float:
		obj["name"] = t.Name
		obj["size"] = t.Size
	}

	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to marshal type #%d: %w", id, err)
	}

	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func jsonMembers(members []btf.Member) []map[string]any {
	out := make([]map[string]any, 0, len(members))
	for _, member := range members {
		m := map[string]any{
			"name":        member.Name,
			"type_id":     member.Type,
			"bits_offset": member.Offset,
		}
		if member.BitfieldSize != 0 {
			m["bitfield_size"] = member.BitfieldSize
		}
		out = append(out, m)
	}
	return out
}

// Copyright 2026 Leon Hwang.
// SPDX-License-Identifier: Apache-2.0

package btfgen

import (
	"fmt"
	"strconv"

	"github.com/bpfsnoop/btfparse/btf"
)

// adjustTypeNames walks the map in id order and makes every file-scope
// name unique. Struct/union/enum tags live in their own namespace and
// never collide with typedefs of the same spelling, hence the
// tag-qualified key. Anonymous enums are promoted to named ones so
// their values can be declared at file scope, and enum values that
// shadow an already-seen name are prefixed with their enum's name.
func (g *generator) adjustTypeNames() error {
	seen := make(map[string]struct{})

	for _, id := range g.sortedIDs() {
		var canName, canRename, tagged, isEnum bool

		switch g.types[id].Kind() {
		case btf.KindStruct, btf.KindUnion:
			tagged = true
			canName = true
			canRename = true
		case btf.KindEnum:
			isEnum = true
			tagged = true
			canName = true
			canRename = true
		case btf.KindTypedef:
			canName = true
			canRename = true
		case btf.KindInt:
			canName = true
		}

		if canName {
			name, ok := g.typeName(id)
			if !ok {
				if !isEnum {
					continue
				}

				// Anonymous enums are sometimes shared between
				// structs; give them a stable name so the values
				// can be emitted at file scope.
				name = "AnonymousEnum" + strconv.FormatUint(uint64(id), 10)
				if !g.setTypeName(id, name) {
					return fmt.Errorf("cannot name anonymous enum #%d", id)
				}
			}

			key := name
			if tagged {
				key = "tag-" + key
			}

			if _, dup := seen[key]; dup {
				if !canRename {
					return fmt.Errorf("duplicate type name %q on non-renameable type #%d", name, id)
				}

				name += "_" + strconv.FormatUint(uint64(id), 10)
				if !g.setTypeName(id, name) {
					return fmt.Errorf("cannot rename type #%d", id)
				}

				key = name
				if tagged {
					key = "tag-" + key
				}
			}

			seen[key] = struct{}{}
		}

		if isEnum {
			e := g.types[id].(btf.Enum)

			rename := false
			for _, value := range e.Values {
				if _, dup := seen[value.Name]; dup {
					rename = true
					break
				}
			}

			if rename {
				for i := range e.Values {
					e.Values[i].Name = e.Name + "_" + e.Values[i].Name
				}
				g.types[id] = e
			}

			for _, value := range e.Values {
				seen[value.Name] = struct{}{}
			}
		}
	}

	return nil
}

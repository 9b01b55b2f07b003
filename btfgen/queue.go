// Copyright 2026 Leon Hwang.
// SPDX-License-Identifier: Apache-2.0

package btfgen

import (
	"fmt"

	"github.com/bpfsnoop/btfparse/btf"
	"github.com/bpfsnoop/btfparse/internal/slicex"
)

// createTypeQueue linearizes the type tree by post-order DFS: every
// strong dependency of a type is queued before the type itself, and
// every weak dependency is satisfied by queueing a forward declaration
// of the pointee instead of recursing into its full definition.
func (g *generator) createTypeQueue() error {
	g.queue = g.queue[:0]
	g.visited = map[btf.TypeID]struct{}{0: {}}

	for _, id := range g.sortedTopLevel() {
		if err := g.enqueueType(id); err != nil {
			return err
		}
	}

	return nil
}

func (g *generator) enqueueType(id btf.TypeID) error {
	if id == 0 {
		return nil
	}

	if _, seen := g.visited[id]; seen {
		return nil
	}
	g.visited[id] = struct{}{}

	links := g.typeTree[id]
	for _, child := range slicex.SortedKeys(links) {
		linked := child

		if weak := links[child]; weak {
			typ := g.types[child]

			var isUnion bool
			switch typ.Kind() {
			case btf.KindUnion:
				isUnion = true
			case btf.KindStruct:
			default:
				return fmt.Errorf("weak edge to non-aggregate type #%d", child)
			}

			name, ok := g.typeName(child)
			if !ok {
				return fmt.Errorf("weak edge to unnamed type #%d", child)
			}

			fwdID := g.getOrCreateFwd(isUnion, name)
			if err := g.enqueueType(fwdID); err != nil {
				return err
			}

			linked = fwdID
		}

		if err := g.enqueueType(linked); err != nil {
			return err
		}
	}

	g.queue = append(g.queue, id)
	return nil
}

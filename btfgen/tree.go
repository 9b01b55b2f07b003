// Copyright 2026 Leon Hwang.
// SPDX-License-Identifier: Apache-2.0

package btfgen

import (
	"fmt"

	"github.com/bpfsnoop/btfparse/btf"
	"github.com/bpfsnoop/btfparse/internal/slicex"
)

// typeDependencies lists the ids a type refers to directly, in
// declaration order. Typedefs of anonymous aggregates also pull in the
// aggregate's own dependencies, since the body is emitted inline.
func (g *generator) typeDependencies(id btf.TypeID) ([]btf.TypeID, error) {
	typ, ok := g.types[id]
	if !ok {
		return nil, fmt.Errorf("dangling type id #%d", id)
	}

	var deps []btf.TypeID

	switch t := typ.(type) {
	case btf.Ptr:
		deps = append(deps, t.Type)

	case btf.Array:
		deps = append(deps, t.Type)

	case btf.Struct:
		for _, member := range t.Members {
			deps = append(deps, member.Type)
		}

	case btf.Union:
		for _, member := range t.Members {
			deps = append(deps, member.Type)
		}

	case btf.Typedef:
		deps = append(deps, t.Type)

		if t.Type == 0 {
			break
		}

		child, ok := g.types[t.Type]
		if !ok {
			return nil, fmt.Errorf("dangling type id #%d", t.Type)
		}

		recurse := false
		switch c := child.(type) {
		case btf.Struct:
			recurse = c.Name == ""
		case btf.Union:
			recurse = c.Name == ""
		}

		if recurse {
			childDeps, err := g.typeDependencies(t.Type)
			if err != nil {
				return nil, err
			}
			deps = append(deps, childDeps...)
		}

	case btf.Volatile:
		deps = append(deps, t.Type)

	case btf.Const:
		deps = append(deps, t.Type)

	case btf.Restrict:
		deps = append(deps, t.Type)

	case btf.FuncProto:
		deps = append(deps, t.Return)
		for _, param := range t.Params {
			deps = append(deps, param.Type)
		}
	}

	return deps, nil
}

// createTypeTree links every top-level type to the top-level types it
// depends on, classifying each edge strong or weak. An edge is weak
// only when the path to the child went through a pointer and the child
// is forward-declarable (struct or union); a strong sighting of the
// same pair upgrades the edge.
func (g *generator) createTypeTree() error {
	g.typeTree = make(map[btf.TypeID]map[btf.TypeID]bool)
	g.visited = map[btf.TypeID]struct{}{0: {}}

	for _, id := range g.sortedTopLevel() {
		deps, err := g.typeDependencies(id)
		if err != nil {
			return err
		}

		for _, dep := range deps {
			if err := g.linkTypeTree(false, id, dep); err != nil {
				return err
			}
		}
	}

	return nil
}

func (g *generator) linkTypeTree(insidePointer bool, parent, id btf.TypeID) error {
	if id == 0 {
		return nil
	}

	typ, ok := g.types[id]
	if !ok {
		return fmt.Errorf("dangling type id #%d", id)
	}

	switch t := typ.(type) {
	case btf.Ptr:
		return g.linkTypeTree(true, parent, t.Type)

	case btf.Array:
		return g.linkTypeTree(insidePointer, parent, t.Type)

	case btf.Volatile:
		return g.linkTypeTree(insidePointer, parent, t.Type)

	case btf.Const:
		return g.linkTypeTree(insidePointer, parent, t.Type)

	case btf.Restrict:
		return g.linkTypeTree(insidePointer, parent, t.Type)

	case btf.FuncProto:
		if err := g.linkTypeTree(insidePointer, parent, t.Return); err != nil {
			return err
		}
		for _, param := range t.Params {
			if err := g.linkTypeTree(insidePointer, parent, param.Type); err != nil {
				return err
			}
		}
		return nil
	}

	kind := typ.Kind()

	if !g.isTopLevel(id) {
		if kind == btf.KindStruct || kind == btf.KindUnion {
			// An anonymous aggregate: its body is emitted inline, so
			// its dependencies belong to the enclosing parent. Being
			// nested clears the inside-pointer flag.
			deps, err := g.typeDependencies(id)
			if err != nil {
				return err
			}

			for _, dep := range deps {
				if err := g.linkTypeTree(false, parent, dep); err != nil {
					return err
				}
			}

			return nil
		}

		switch kind {
		case btf.KindInt, btf.KindFloat, btf.KindEnum:
			return nil
		default:
			return fmt.Errorf("type #%d of kind %s cannot appear in a declarator", id, kind)
		}
	}

	links, ok := g.typeTree[parent]
	if !ok {
		links = make(map[btf.TypeID]bool)
		g.typeTree[parent] = links
	}

	weak := insidePointer && (kind == btf.KindStruct || kind == btf.KindUnion)

	if existing, ok := links[id]; !ok {
		links[id] = weak
	} else if existing {
		// Upgrade weak to strong, never the other way around.
		links[id] = weak
	}

	if _, seen := g.visited[id]; seen {
		return nil
	}
	g.visited[id] = struct{}{}

	deps, err := g.typeDependencies(id)
	if err != nil {
		return err
	}

	for _, dep := range deps {
		if err := g.linkTypeTree(false, id, dep); err != nil {
			return err
		}
	}

	return nil
}

func (g *generator) createInverseTree() {
	g.inverseTree = make(map[btf.TypeID]map[btf.TypeID]struct{})

	for parent, links := range g.typeTree {
		for child := range links {
			parents, ok := g.inverseTree[child]
			if !ok {
				parents = make(map[btf.TypeID]struct{})
				g.inverseTree[child] = parents
			}
			parents[parent] = struct{}{}
		}
	}
}

// collectChildNodes gathers every id reachable from start through the
// type tree, start included.
func (g *generator) collectChildNodes(start btf.TypeID) map[btf.TypeID]struct{} {
	visited := make(map[btf.TypeID]struct{})
	queue := []btf.TypeID{start}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		if _, seen := visited[id]; seen {
			continue
		}
		visited[id] = struct{}{}

		for child := range g.typeTree[id] {
			queue = append(queue, child)
		}
	}

	return visited
}

// adjustTypedefDependencyLoops breaks struct→typedef→struct cycles.
// The typedef's edge back to the struct is redirected to a synthetic
// forward declaration of the struct, and users of the typedef outside
// the struct's own subtree are rewired to depend on the struct
// directly: once the typedef is emitted against the forward
// declaration, those users still need the full definition first.
func (g *generator) adjustTypedefDependencyLoops() error {
	typedefOwners := make(map[btf.TypeID]btf.TypeID)

	for again := true; again; {
		again = false

		for _, structID := range g.sortedTopLevel() {
			typ := g.types[structID]

			kind := typ.Kind()
			if kind != btf.KindStruct && kind != btf.KindUnion {
				continue
			}
			isUnion := kind == btf.KindUnion

			links := g.typeTree[structID]
			if len(links) == 0 {
				continue
			}

			structName, ok := g.typeName(structID)
			if !ok {
				return fmt.Errorf("top-level type #%d has no name", structID)
			}

			for _, typedefID := range slicex.SortedKeys(links) {
				if g.types[typedefID].Kind() != btf.KindTypedef {
					continue
				}

				typedefLinks, ok := g.typeTree[typedefID]
				if !ok {
					continue
				}
				if _, cyclic := typedefLinks[structID]; !cyclic {
					continue
				}

				delete(typedefLinks, structID)

				fwdID := g.getOrCreateFwd(isUnion, structName)
				typedefLinks[fwdID] = false

				typedefOwners[typedefID] = structID
				again = true
			}
		}
	}

	g.createInverseTree()

	childNodes := make(map[btf.TypeID]map[btf.TypeID]struct{})

	for _, typedefID := range slicex.SortedKeys(typedefOwners) {
		structID := typedefOwners[typedefID]

		users, ok := g.inverseTree[typedefID]
		if !ok {
			continue
		}

		nodes, ok := childNodes[structID]
		if !ok {
			nodes = g.collectChildNodes(structID)
			childNodes[structID] = nodes
		}

		for _, user := range slicex.SortedKeys(users) {
			if user == structID {
				continue
			}
			if _, descendant := nodes[user]; descendant {
				continue
			}

			links, ok := g.typeTree[user]
			if !ok {
				continue
			}

			links[structID] = false
		}
	}

	return nil
}

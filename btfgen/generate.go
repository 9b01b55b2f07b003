// Copyright 2026 Leon Hwang.
// SPDX-License-Identifier: Apache-2.0

// Package btfgen reconstructs a self-consistent C header from a decoded
// BTF type map. It fixes up the type graph first: names are made
// unique, struct padding is made explicit, dependencies are classified
// strong or weak, typedef/struct loops are broken with synthetic
// forward declarations, and the result is emitted in topological order.
package btfgen

import (
	"errors"
	"slices"
	"strings"

	"github.com/bpfsnoop/btfparse/btf"
	"github.com/bpfsnoop/btfparse/internal/slicex"
)

// Generate produces a C header covering every named top-level type of
// tm. The input map is never mutated; fixups happen on a private copy.
func Generate(tm *btf.TypeMap) (string, error) {
	g := newGenerator(tm)
	if len(g.types) == 0 {
		return "", errors.New("no types to generate a header from")
	}

	if err := g.adjustTypeNames(); err != nil {
		return "", err
	}

	g.scanTypes()

	if err := g.materializePadding(); err != nil {
		return "", err
	}
	if err := g.createTypeTree(); err != nil {
		return "", err
	}
	if err := g.adjustTypedefDependencyLoops(); err != nil {
		return "", err
	}
	if err := g.createTypeQueue(); err != nil {
		return "", err
	}

	var buf strings.Builder
	if err := g.emitHeader(&buf); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// optName mirrors the "maybe an identifier" slots of the emitter: a
// member name or typedef name waiting for its declarator position.
type optName struct {
	name string
	ok   bool
}

type generator struct {
	types         map[btf.TypeID]btf.Type
	nextID        btf.TypeID
	paddingByteID btf.TypeID

	topLevel map[btf.TypeID]struct{}
	fwdTypes map[string]btf.TypeID

	// typeTree links a parent to its top-level children; the value is
	// true for weak (forward-declarable) edges.
	typeTree    map[btf.TypeID]map[btf.TypeID]bool
	inverseTree map[btf.TypeID]map[btf.TypeID]struct{}

	visited map[btf.TypeID]struct{}
	queue   []btf.TypeID

	// Emitter state; reset before each top-level declaration.
	indent int

	modifiers     []btf.TypeID
	modifierStack [][]btf.TypeID

	varName      optName
	varNameStack []optName

	typedefName      optName
	typedefNameStack []optName
}

func newGenerator(tm *btf.TypeMap) *generator {
	g := &generator{
		types:       make(map[btf.TypeID]btf.Type, tm.Count()),
		topLevel:    make(map[btf.TypeID]struct{}),
		fwdTypes:    make(map[string]btf.TypeID),
		typeTree:    make(map[btf.TypeID]map[btf.TypeID]bool),
		inverseTree: make(map[btf.TypeID]map[btf.TypeID]struct{}),
	}

	for id, typ := range tm.All() {
		g.types[id] = cloneType(typ)
	}

	return g
}

// cloneType deep-copies the slice-carrying variants so that fixups
// never alias the caller's TypeMap.
func cloneType(typ btf.Type) btf.Type {
	switch t := typ.(type) {
	case btf.Struct:
		t.Members = slices.Clone(t.Members)
		return t
	case btf.Union:
		t.Members = slices.Clone(t.Members)
		return t
	case btf.Enum:
		t.Values = slices.Clone(t.Values)
		return t
	case btf.FuncProto:
		t.Params = slices.Clone(t.Params)
		return t
	case btf.DataSec:
		t.Entries = slices.Clone(t.Entries)
		return t
	default:
		return typ
	}
}

func (g *generator) genID() btf.TypeID {
	id := g.nextID
	g.nextID++
	return id
}

func (g *generator) sortedIDs() []btf.TypeID {
	return slicex.SortedKeys(g.types)
}

func (g *generator) sortedTopLevel() []btf.TypeID {
	return slicex.SortedKeys(g.topLevel)
}

// scanTypes collects the named top-level declarations, indexes existing
// forward declarations by name and seeds the synthetic id generator
// past the highest id in use.
func (g *generator) scanTypes() {
	var highest btf.TypeID

	for _, id := range g.sortedIDs() {
		highest = max(highest, id)

		typ := g.types[id]
		switch typ.Kind() {
		case btf.KindStruct, btf.KindUnion, btf.KindEnum, btf.KindTypedef, btf.KindFwd:
		default:
			continue
		}

		name, ok := g.typeName(id)
		if !ok {
			continue
		}

		if typ.Kind() == btf.KindFwd {
			g.fwdTypes[name] = id
		}

		g.topLevel[id] = struct{}{}
	}

	g.nextID = highest + 1
}

func (g *generator) isTopLevel(id btf.TypeID) bool {
	_, ok := g.topLevel[id]
	return ok
}

// typeName reports the declaration name of id, if it has one. Only
// kinds that can appear named at file scope (plus Int, whose name is
// its C spelling) report true.
func (g *generator) typeName(id btf.TypeID) (string, bool) {
	typ, ok := g.types[id]
	if !ok {
		return "", false
	}

	switch t := typ.(type) {
	case btf.Struct:
		return t.Name, t.Name != ""
	case btf.Union:
		return t.Name, t.Name != ""
	case btf.Enum:
		return t.Name, t.Name != ""
	case btf.Typedef:
		return t.Name, true
	case btf.Fwd:
		return t.Name, true
	case btf.Int:
		return t.Name, true
	default:
		return "", false
	}
}

func (g *generator) setTypeName(id btf.TypeID, name string) bool {
	typ, ok := g.types[id]
	if !ok {
		return false
	}

	switch t := typ.(type) {
	case btf.Struct:
		t.Name = name
		g.types[id] = t
	case btf.Union:
		t.Name = name
		g.types[id] = t
	case btf.Enum:
		t.Name = name
		g.types[id] = t
	case btf.Typedef:
		t.Name = name
		g.types[id] = t
	case btf.Fwd:
		t.Name = name
		g.types[id] = t
	default:
		return false
	}

	return true
}

func (g *generator) getOrCreateFwd(isUnion bool, name string) btf.TypeID {
	if id, ok := g.fwdTypes[name]; ok {
		return id
	}

	id := g.genID()
	g.types[id] = btf.Fwd{Name: name, IsUnion: isUnion}
	g.fwdTypes[name] = id
	return id
}

// Copyright 2026 Leon Hwang.
// SPDX-License-Identifier: Apache-2.0

package btfgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bpfsnoop/btfparse/btf"
)

// The emitter walks from a top-level id through the modifier types
// decorating it, accumulating them on a stack, and drains the stack in
// three passes around the base type name: qualifiers on the left,
// const/pointer in the middle, arrays on the right. The identifier
// slot between middle and right is filled by a pending member name or
// typedef name. Push/pop pairs around every recursive descent keep
// outer slots from being consumed by inner types.

func (g *generator) resetState() {
	g.modifiers = nil
	g.modifierStack = nil
	g.varName = optName{}
	g.varNameStack = nil
	g.typedefName = optName{}
	g.typedefNameStack = nil
}

func (g *generator) pushState() {
	g.varNameStack = append(g.varNameStack, g.varName)
	g.varName = optName{}

	g.modifierStack = append(g.modifierStack, g.modifiers)
	g.modifiers = nil

	g.typedefNameStack = append(g.typedefNameStack, g.typedefName)
	g.typedefName = optName{}
}

func (g *generator) popState() {
	if n := len(g.varNameStack); n == 0 {
		g.varName = optName{}
	} else {
		g.varName = g.varNameStack[n-1]
		g.varNameStack = g.varNameStack[:n-1]
	}

	if n := len(g.modifierStack); n == 0 {
		g.modifiers = nil
	} else {
		g.modifiers = g.modifierStack[n-1]
		g.modifierStack = g.modifierStack[:n-1]
	}

	if n := len(g.typedefNameStack); n == 0 {
		g.typedefName = optName{}
	} else {
		g.typedefName = g.typedefNameStack[n-1]
		g.typedefNameStack = g.typedefNameStack[:n-1]
	}
}

func (g *generator) setVarName(name string) {
	g.varName = optName{name: name, ok: true}
}

func (g *generator) takeVarName() (string, bool) {
	name := g.varName
	g.varName = optName{}
	return name.name, name.ok
}

func (g *generator) setTypedefName(name string) {
	g.typedefName = optName{name: name, ok: true}
}

func (g *generator) takeTypedefName() (string, bool) {
	name := g.typedefName
	g.typedefName = optName{}
	return name.name, name.ok
}

func (g *generator) pushModifier(id btf.TypeID) {
	g.modifiers = append(g.modifiers, id)
}

func (g *generator) writeIndent(buf *strings.Builder) {
	for i := 0; i < g.indent; i++ {
		buf.WriteString("  ")
	}
}

func (g *generator) emitTypeHeader(buf *strings.Builder, id btf.TypeID) {
	g.writeIndent(buf)
	fmt.Fprintf(buf, "/* BTF Type #%d */\n", id)
}

// emitIdentifier fills the declarator's identifier slot with a pending
// member name, or failing that a pending typedef name.
func (g *generator) emitIdentifier(buf *strings.Builder) {
	name, ok := g.takeVarName()
	if !ok {
		name, ok = g.takeTypedefName()
	}
	if ok {
		buf.WriteString(" ")
		buf.WriteString(name)
	}
}

func (g *generator) emitLeftModifiers(buf *strings.Builder) {
	var words []string

loop:
	for i := len(g.modifiers) - 1; i >= 0; i-- {
		switch g.types[g.modifiers[i]].Kind() {
		case btf.KindVolatile:
			words = append(words, "volatile")
		case btf.KindConst:
			words = append(words, "const")
		case btf.KindRestrict:
			words = append(words, "restrict")
		default:
			break loop
		}
	}

	g.modifiers = g.modifiers[:len(g.modifiers)-len(words)]

	if len(words) != 0 {
		buf.WriteString(" ")
	}
	for _, word := range words {
		buf.WriteString(word)
		buf.WriteString(" ")
	}
}

func (g *generator) emitMiddleModifiers(buf *strings.Builder) {
	var words []string

loop:
	for i := len(g.modifiers) - 1; i >= 0; i-- {
		switch g.types[g.modifiers[i]].Kind() {
		case btf.KindConst:
			words = append(words, "const")
		case btf.KindPtr:
			words = append(words, "*")
		default:
			break loop
		}
	}

	g.modifiers = g.modifiers[:len(g.modifiers)-len(words)]

	if len(words) != 0 {
		buf.WriteString(" ")
		buf.WriteString(strings.Join(words, " "))
	}
}

func (g *generator) emitRightModifiers(buf *strings.Builder) {
	consumed := 0
	isArray := false

	for i := len(g.modifiers) - 1; i >= 0; i-- {
		typ := g.types[g.modifiers[i]]

		if arr, ok := typ.(btf.Array); ok {
			isArray = true
			fmt.Fprintf(buf, "[%d]", arr.NElems)
			consumed++
			continue
		}

		// gcc bugs 8354 and 102195: cv-qualifiers adjacent to an
		// array declarator are dropped rather than emitted in a spot
		// compilers reject.
		if kind := typ.Kind(); isArray && (kind == btf.KindConst || kind == btf.KindVolatile) {
			consumed++
			continue
		}

		break
	}

	g.modifiers = g.modifiers[:len(g.modifiers)-consumed]

	if len(g.modifiers) != 0 {
		buf.WriteString(" /* Unused modifiers: ")
		for i, id := range g.modifiers {
			if i != 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(strconv.FormatUint(uint64(id), 10))
		}
		buf.WriteString(" */ ")

		g.modifiers = nil
	}
}

// filterFuncProtoModifiers drops volatile qualifiers picked up on the
// way to a function declarator; they are spurious there.
func (g *generator) filterFuncProtoModifiers() {
	out := g.modifiers[:0]
	for _, id := range g.modifiers {
		if g.types[id].Kind() != btf.KindVolatile {
			out = append(out, id)
		}
	}
	g.modifiers = out
}

func (g *generator) emitHeader(buf *strings.Builder) error {
	buf.WriteString("#pragma pack(push, 1)\n")

	for _, id := range g.queue {
		g.resetState()

		if name, ok := g.typeName(id); ok && strings.HasPrefix(name, "__builtin_") {
			continue
		}

		if err := g.emitType(buf, id, true); err != nil {
			return err
		}

		buf.WriteString(";\n\n")
	}

	buf.WriteString("#pragma pack(pop)\n")
	return nil
}

// emitType renders id either as a full type definition (top level
// only) or as a type reference inside another declarator.
func (g *generator) emitType(buf *strings.Builder, id btf.TypeID, asDefinition bool) error {
	if id == 0 {
		g.emitNamedBase(buf, 0, "void")
		return nil
	}

	typ, ok := g.types[id]
	if !ok {
		return fmt.Errorf("dangling type id #%d", id)
	}

	switch t := typ.(type) {
	case btf.Struct:
		return g.emitStructUnion(buf, id, t.Name, t.Members, false, asDefinition)

	case btf.Union:
		return g.emitStructUnion(buf, id, t.Name, t.Members, true, asDefinition)

	case btf.Enum:
		g.emitEnum(buf, id, t, asDefinition)
		return nil

	case btf.Typedef:
		return g.emitTypedef(buf, id, t, asDefinition)

	case btf.Int:
		g.emitNamedBase(buf, id, t.Name)
		return nil

	case btf.Float:
		g.emitNamedBase(buf, id, t.Name)
		return nil

	case btf.FuncProto:
		return g.emitFuncProto(buf, id, t)

	case btf.Fwd:
		g.emitFwd(buf, id, t)
		return nil

	case btf.Ptr:
		g.pushModifier(id)
		return g.emitType(buf, t.Type, asDefinition)

	case btf.Array:
		g.pushModifier(id)
		return g.emitType(buf, t.Type, asDefinition)

	case btf.Volatile:
		g.pushModifier(id)
		return g.emitType(buf, t.Type, asDefinition)

	case btf.Const:
		g.pushModifier(id)
		return g.emitType(buf, t.Type, asDefinition)

	case btf.Restrict:
		g.pushModifier(id)
		return g.emitType(buf, t.Type, asDefinition)

	default:
		// Func, Var and DataSec never appear in a C declaration.
		return nil
	}
}

// emitNamedBase renders base types that are just a name: Int, Float
// and void.
func (g *generator) emitNamedBase(buf *strings.Builder, id btf.TypeID, name string) {
	g.emitTypeHeader(buf, id)
	g.writeIndent(buf)

	g.emitLeftModifiers(buf)
	buf.WriteString(name)
	g.emitMiddleModifiers(buf)
	g.emitIdentifier(buf)
	g.emitRightModifiers(buf)
}

func (g *generator) emitStructUnion(buf *strings.Builder, id btf.TypeID, name string,
	members []btf.Member, isUnion bool, asDefinition bool) error {

	g.emitTypeHeader(buf, id)
	g.writeIndent(buf)

	g.emitLeftModifiers(buf)

	if isUnion {
		buf.WriteString("union")
	} else {
		buf.WriteString("struct")
	}

	if name != "" {
		buf.WriteString(" ")
		buf.WriteString(name)
	}

	if asDefinition || name == "" {
		g.pushState()

		buf.WriteString(" {\n")
		g.indent++

		for _, member := range members {
			if member.Name != "" {
				g.setVarName(member.Name)
			}

			if err := g.emitType(buf, member.Type, false); err != nil {
				return err
			}

			if member.BitfieldSize != 0 {
				fmt.Fprintf(buf, " : %d", member.BitfieldSize)
			}

			buf.WriteString(";\n")
		}

		g.indent--
		g.writeIndent(buf)
		buf.WriteString("}")

		g.popState()
	}

	g.emitMiddleModifiers(buf)
	g.emitIdentifier(buf)
	g.emitRightModifiers(buf)

	return nil
}

func (g *generator) emitEnum(buf *strings.Builder, id btf.TypeID, e btf.Enum, asDefinition bool) {
	g.emitTypeHeader(buf, id)
	g.writeIndent(buf)

	g.emitLeftModifiers(buf)

	buf.WriteString("enum")
	if e.Name != "" {
		buf.WriteString(" ")
		buf.WriteString(e.Name)
	}

	emitBody := (asDefinition && len(e.Values) != 0) || (!asDefinition && e.Name == "")
	if emitBody {
		buf.WriteString(" {\n")
		g.indent++

		for i, value := range e.Values {
			g.writeIndent(buf)

			fmt.Fprintf(buf, "%s = %d", value.Name, value.Val)
			if i != len(e.Values)-1 {
				buf.WriteString(",")
			}
			buf.WriteString("\n")
		}

		g.indent--
		g.writeIndent(buf)
		buf.WriteString("}")
	}

	g.emitMiddleModifiers(buf)
	g.emitIdentifier(buf)
	g.emitRightModifiers(buf)
}

func (g *generator) emitTypedef(buf *strings.Builder, id btf.TypeID, t btf.Typedef, asDefinition bool) error {
	if asDefinition {
		g.emitTypeHeader(buf, id)

		buf.WriteString("typedef\n")
		g.indent++

		g.setTypedefName(t.Name)
		if err := g.emitType(buf, t.Type, false); err != nil {
			return err
		}

		if name, ok := g.takeTypedefName(); ok {
			buf.WriteString(" ")
			buf.WriteString(name)
		}

		g.indent--
		return nil
	}

	g.emitTypeHeader(buf, id)
	g.writeIndent(buf)

	g.emitLeftModifiers(buf)
	buf.WriteString(t.Name)
	g.emitMiddleModifiers(buf)
	g.emitIdentifier(buf)
	g.emitRightModifiers(buf)

	return nil
}

func (g *generator) emitFwd(buf *strings.Builder, id btf.TypeID, t btf.Fwd) {
	g.emitTypeHeader(buf, id)
	g.writeIndent(buf)

	g.emitLeftModifiers(buf)

	if t.IsUnion {
		buf.WriteString("union")
	} else {
		buf.WriteString("struct")
	}
	buf.WriteString(" ")
	buf.WriteString(t.Name)

	g.emitMiddleModifiers(buf)
	g.emitIdentifier(buf)
	g.emitRightModifiers(buf)
}

func (g *generator) emitFuncProto(buf *strings.Builder, id btf.TypeID, t btf.FuncProto) error {
	g.filterFuncProtoModifiers()
	g.emitTypeHeader(buf, id)
	g.indent++

	g.pushState()
	if err := g.emitType(buf, t.Return, false); err != nil {
		return err
	}
	g.popState()

	g.indent++
	g.writeIndent(buf)
	buf.WriteString("\n")
	g.writeIndent(buf)
	buf.WriteString("(")

	g.emitLeftModifiers(buf)
	g.emitMiddleModifiers(buf)
	g.emitIdentifier(buf)
	g.emitRightModifiers(buf)

	buf.WriteString(")(\n")
	g.indent++

	g.pushState()
	for i, param := range t.Params {
		if err := g.emitType(buf, param.Type, false); err != nil {
			return err
		}

		last := i == len(t.Params)-1
		if !last || t.IsVariadic {
			buf.WriteString(",")
		}
		buf.WriteString("\n")
	}
	g.popState()

	if t.IsVariadic {
		g.writeIndent(buf)
		buf.WriteString("...\n")
	}

	g.indent--
	g.writeIndent(buf)
	buf.WriteString(")")

	g.indent--
	g.indent--

	return nil
}

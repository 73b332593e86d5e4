// Copyright 2024 The Wasmer-JS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package wasm reads the parts of the WebAssembly binary format that
// wasmer-js needs before handing a module to the runtime: the section
// layout, the type section and the import section.
//
// https://webassembly.github.io/spec/core/binary/modules.html
package wasm

import (
	"encoding/binary"
	"fmt"
)

const (
	magic         = "\x00asm"
	binaryVersion = 1
)

// SectionID is a section code from the binary format.
type SectionID byte

const (
	SectionCustom SectionID = iota
	SectionType
	SectionImport
	SectionFunction
	SectionTable
	SectionMemory
	SectionGlobal
	SectionExport
	SectionStart
	SectionElement
	SectionCode
	SectionData
)

var sectionNames = [...]string{
	"custom", "type", "import", "function", "table", "memory",
	"global", "export", "start", "element", "code", "data",
}

func (s SectionID) String() string {
	if int(s) < len(sectionNames) {
		return sectionNames[s]
	}
	return fmt.Sprintf("section(%d)", byte(s))
}

// ValType is a value type byte.
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
	F32 ValType = 0x7d
	F64 ValType = 0x7c
)

func (t ValType) String() string {
	switch t {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	}
	return fmt.Sprintf("valtype(%#x)", byte(t))
}

// FuncType is a decoded function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// HasI64 reports whether i64 appears anywhere in the signature.
func (t FuncType) HasI64() bool {
	for _, p := range t.Params {
		if p == I64 {
			return true
		}
	}
	for _, r := range t.Results {
		if r == I64 {
			return true
		}
	}
	return false
}

// Import is an imported function entry.
type Import struct {
	Module string
	Field  string
	// Type indexes into Module.Types.
	Type uint32
	// Pos is the byte offset of the entry in the binary.
	Pos int
}

// Section records where a section's payload sits in the binary.
type Section struct {
	ID    SectionID
	Start int
	Size  int
}

// Module is the decoded skeleton of a wasm binary.
type Module struct {
	Sections []Section
	Types    []FuncType
	// Imports holds imported functions only. Imported tables, memories
	// and globals are skipped over, not retained.
	Imports []Import
}

// ImportedI64Funcs returns the imported functions whose signature
// mentions i64. These are the imports a JavaScript host cannot call
// directly; the wasi-js-transformer used to rewrite them.
func (m *Module) ImportedI64Funcs() []Import {
	var out []Import
	for _, imp := range m.Imports {
		if int(imp.Type) < len(m.Types) && m.Types[imp.Type].HasI64() {
			out = append(out, imp)
		}
	}
	return out
}

// ParseModule decodes the section layout of b plus its type and import
// sections. It never panics on malformed input.
func ParseModule(b []byte) (*Module, error) {
	if len(b) < 8 {
		return nil, fmt.Errorf("binary is %d bytes, shorter than the 8 byte preamble", len(b))
	}
	if string(b[:4]) != magic {
		return nil, fmt.Errorf("bad magic %q, not a wasm binary", b[:4])
	}
	if v := binary.LittleEndian.Uint32(b[4:8]); v != binaryVersion {
		return nil, fmt.Errorf("unsupported binary version %d", v)
	}
	m := &Module{}
	off := 8
	for off < len(b) {
		id := SectionID(b[off])
		if id > SectionData {
			return nil, fmt.Errorf("unknown section id %d at offset %d", b[off], off)
		}
		off++
		size, n, err := readVaruint(b[off:])
		if err != nil {
			return nil, fmt.Errorf("%s section header at offset %d: %w", id, off, err)
		}
		off += n
		if int(size) > len(b)-off {
			return nil, fmt.Errorf("%s section at offset %d: size %d exceeds binary", id, off, size)
		}
		m.Sections = append(m.Sections, Section{ID: id, Start: off, Size: int(size)})
		payload := b[off : off+int(size)]
		switch id {
		case SectionType:
			if m.Types, err = parseTypeSection(payload); err != nil {
				return nil, err
			}
		case SectionImport:
			if m.Imports, err = parseImportSection(payload, off); err != nil {
				return nil, err
			}
		}
		off += int(size)
	}
	return m, nil
}

func parseTypeSection(b []byte) ([]FuncType, error) {
	count, p, err := readVaruint(b)
	if err != nil {
		return nil, fmt.Errorf("type section: %w", err)
	}
	types := make([]FuncType, 0, count)
	for i := uint32(0); i < count; i++ {
		if p >= len(b) {
			return nil, fmt.Errorf("type section: truncated at entry %d", i)
		}
		if b[p] != 0x60 {
			return nil, fmt.Errorf("type section: entry %d has form %#x, want func", i, b[p])
		}
		p++
		var t FuncType
		if t.Params, p, err = readValTypes(b, p); err != nil {
			return nil, fmt.Errorf("type section: entry %d params: %w", i, err)
		}
		if t.Results, p, err = readValTypes(b, p); err != nil {
			return nil, fmt.Errorf("type section: entry %d results: %w", i, err)
		}
		types = append(types, t)
	}
	return types, nil
}

func readValTypes(b []byte, p int) ([]ValType, int, error) {
	count, n, err := readVaruint(b[p:])
	if err != nil {
		return nil, 0, err
	}
	p += n
	if int(count) > len(b)-p {
		return nil, 0, fmt.Errorf("vector of %d value types is truncated", count)
	}
	out := make([]ValType, count)
	for i := range out {
		out[i] = ValType(b[p+i])
	}
	return out, p + int(count), nil
}

// parseImportSection decodes the import entries. base is the offset of
// the section payload in the whole binary so each entry's position can
// be recorded, the way the transformer needed it.
func parseImportSection(b []byte, base int) ([]Import, error) {
	count, p, err := readVaruint(b)
	if err != nil {
		return nil, fmt.Errorf("import section: %w", err)
	}
	var out []Import
	for i := uint32(0); i < count; i++ {
		pos := base + p
		mod, n, err := readName(b[p:])
		if err != nil {
			return nil, fmt.Errorf("import section: entry %d module: %w", i, err)
		}
		p += n
		field, n, err := readName(b[p:])
		if err != nil {
			return nil, fmt.Errorf("import section: entry %d field: %w", i, err)
		}
		p += n
		if p >= len(b) {
			return nil, fmt.Errorf("import section: entry %d is missing its kind", i)
		}
		kind := b[p]
		p++
		switch kind {
		case 0x00: // function
			idx, n, err := readVaruint(b[p:])
			if err != nil {
				return nil, fmt.Errorf("import section: entry %d type index: %w", i, err)
			}
			p += n
			out = append(out, Import{Module: mod, Field: field, Type: idx, Pos: pos})
		case 0x01: // table: element type then limits
			p++
			if p, err = skipLimits(b, p); err != nil {
				return nil, fmt.Errorf("import section: entry %d table: %w", i, err)
			}
		case 0x02: // memory: limits
			if p, err = skipLimits(b, p); err != nil {
				return nil, fmt.Errorf("import section: entry %d memory: %w", i, err)
			}
		case 0x03: // global: value type and mutability
			p += 2
		default:
			return nil, fmt.Errorf("import section: entry %d has unknown kind %#x", i, kind)
		}
		if p > len(b) {
			return nil, fmt.Errorf("import section: entry %d is truncated", i)
		}
	}
	return out, nil
}

func readName(b []byte) (string, int, error) {
	l, n, err := readVaruint(b)
	if err != nil {
		return "", 0, err
	}
	if int(l) > len(b)-n {
		return "", 0, fmt.Errorf("name of %d bytes is truncated", l)
	}
	return string(b[n : n+int(l)]), n + int(l), nil
}

func skipLimits(b []byte, p int) (int, error) {
	if p >= len(b) {
		return 0, errVaruintTruncated
	}
	flags := b[p]
	p++
	_, n, err := readVaruint(b[p:])
	if err != nil {
		return 0, err
	}
	p += n
	if flags&1 != 0 {
		if _, n, err = readVaruint(b[p:]); err != nil {
			return 0, err
		}
		p += n
	}
	return p, nil
}

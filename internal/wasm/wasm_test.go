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

package wasm

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestReadVaruint(t *testing.T) {
	data := []struct {
		b []byte
		v uint32
		n int
	}{
		{[]byte{0x00}, 0, 1},
		{[]byte{0x7f}, 127, 1},
		{[]byte{0x80, 0x01}, 128, 2},
		{[]byte{0xe5, 0x8e, 0x26}, 624485, 3},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x0f}, 1<<32 - 1, 5},
		// Trailing bytes are not consumed.
		{[]byte{0x08, 0xff}, 8, 1},
	}
	for i, line := range data {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			v, n, err := readVaruint(line.b)
			if err != nil {
				t.Fatal(err)
			}
			if v != line.v || n != line.n {
				t.Fatalf("Got (%d, %d), want (%d, %d)", v, n, line.v, line.n)
			}
		})
	}
}

func TestReadVaruintErr(t *testing.T) {
	data := []struct {
		b    []byte
		want error
	}{
		{nil, errVaruintTruncated},
		{[]byte{0x80}, errVaruintTruncated},
		{[]byte{0x80, 0x80, 0x80}, errVaruintTruncated},
		// Bits above the 32nd must not wrap silently.
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x7f}, errVaruintOverflow},
		{[]byte{0x80, 0x80, 0x80, 0x80, 0x10}, errVaruintOverflow},
		// A fifth continuation bit can't fit either.
		{[]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01}, errVaruintOverflow},
	}
	for i, line := range data {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			if _, _, err := readVaruint(line.b); !errors.Is(err, line.want) {
				t.Fatalf("Got %v, want %v", err, line.want)
			}
		})
	}
}

func TestVaruintRoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 16384, 624485, 1<<32 - 1} {
		b := appendVaruint(nil, v)
		got, n, err := readVaruint(b)
		if err != nil {
			t.Fatal(err)
		}
		if got != v || n != len(b) {
			t.Fatalf("%d: got (%d, %d) from % x", v, got, n, b)
		}
	}
}

// Binary assembly helpers for the tests below.

func preamble() []byte {
	return []byte("\x00asm\x01\x00\x00\x00")
}

func section(b []byte, id SectionID, payload []byte) []byte {
	b = append(b, byte(id))
	b = appendVaruint(b, uint32(len(payload)))
	return append(b, payload...)
}

func funcType(params, results []ValType) []byte {
	b := []byte{0x60}
	b = appendVaruint(b, uint32(len(params)))
	for _, p := range params {
		b = append(b, byte(p))
	}
	b = appendVaruint(b, uint32(len(results)))
	for _, r := range results {
		b = append(b, byte(r))
	}
	return b
}

func name(s string) []byte {
	return append(appendVaruint(nil, uint32(len(s))), s...)
}

func funcImport(module, field string, typeIdx uint32) []byte {
	b := append(name(module), name(field)...)
	b = append(b, 0x00)
	return appendVaruint(b, typeIdx)
}

func memImport(module, field string, min, max uint32) []byte {
	b := append(name(module), name(field)...)
	b = append(b, 0x02, 0x01)
	b = appendVaruint(b, min)
	return appendVaruint(b, max)
}

func TestParseModule(t *testing.T) {
	types := appendVaruint(nil, 2)
	types = append(types, funcType([]ValType{I32, I32}, []ValType{I32})...)
	types = append(types, funcType([]ValType{I64}, nil)...)
	imports := appendVaruint(nil, 3)
	imports = append(imports, funcImport("env", "log", 0)...)
	imports = append(imports, memImport("env", "memory", 1, 16)...)
	imports = append(imports, funcImport("wasi_unstable", "clock_time_get", 1)...)
	b := section(preamble(), SectionType, types)
	b = section(b, SectionImport, imports)
	b = section(b, SectionCustom, name("producers"))

	m, err := ParseModule(b)
	if err != nil {
		t.Fatal(err)
	}
	wantTypes := []FuncType{
		{Params: []ValType{I32, I32}, Results: []ValType{I32}},
		{Params: []ValType{I64}, Results: nil},
	}
	if diff := cmp.Diff(wantTypes, m.Types, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("types mismatch (-want +got):\n%s", diff)
	}
	// The memory import is skipped over, not retained.
	wantImports := []Import{
		{Module: "env", Field: "log", Type: 0},
		{Module: "wasi_unstable", Field: "clock_time_get", Type: 1},
	}
	ignorePos := cmpopts.IgnoreFields(Import{}, "Pos")
	if diff := cmp.Diff(wantImports, m.Imports, ignorePos); diff != "" {
		t.Fatalf("imports mismatch (-want +got):\n%s", diff)
	}
	imp := m.Sections[1]
	for _, i := range m.Imports {
		if i.Pos < imp.Start || i.Pos >= imp.Start+imp.Size {
			t.Fatalf("import %s.%s position %d outside import section [%d, %d)",
				i.Module, i.Field, i.Pos, imp.Start, imp.Start+imp.Size)
		}
	}
	wantI64 := []Import{
		{Module: "wasi_unstable", Field: "clock_time_get", Type: 1},
	}
	if diff := cmp.Diff(wantI64, m.ImportedI64Funcs(), ignorePos); diff != "" {
		t.Fatalf("i64 imports mismatch (-want +got):\n%s", diff)
	}
	wantSections := []SectionID{SectionType, SectionImport, SectionCustom}
	for i, s := range m.Sections {
		if s.ID != wantSections[i] {
			t.Fatalf("section %d is %s, want %s", i, s.ID, wantSections[i])
		}
	}
}

func TestParseModuleNoImports(t *testing.T) {
	m, err := ParseModule(preamble())
	if err != nil {
		t.Fatal(err)
	}
	if got := m.ImportedI64Funcs(); got != nil {
		t.Fatalf("Got %v", got)
	}
}

func TestParseModuleErr(t *testing.T) {
	data := []struct {
		name string
		b    []byte
		want string
	}{
		{"short", []byte("\x00asm"), "shorter than the 8 byte preamble"},
		{"magic", []byte("\x7fELF\x01\x00\x00\x00"), "not a wasm binary"},
		{"version", []byte("\x00asm\x02\x00\x00\x00"), "unsupported binary version 2"},
		{"section id", append(preamble(), 0x3f, 0x00), "unknown section id 63"},
		{"section size", append(preamble(), byte(SectionCode), 0x20, 0x00), "size 32 exceeds binary"},
		{"type form", section(preamble(), SectionType, []byte{0x01, 0x61}), "want func"},
		{"type truncated", section(preamble(), SectionType, []byte{0x02}), "truncated at entry"},
		{"valtype vector", section(preamble(), SectionType, []byte{0x01, 0x60, 0x05, 0x7f}), "is truncated"},
		{"import kind", section(preamble(), SectionImport, append(append(appendVaruint(nil, 1), name("a")...), append(name("b"), 0x7c)...)), "unknown kind"},
		{"import name", section(preamble(), SectionImport, []byte{0x01, 0x10, 0x61}), "is truncated"},
	}
	for _, line := range data {
		t.Run(line.name, func(t *testing.T) {
			_, err := ParseModule(line.b)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), line.want) {
				t.Fatalf("Got %q, want substring %q", err, line.want)
			}
		})
	}
}

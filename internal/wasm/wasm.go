// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package wasm parses WebAssembly binary modules into the typed function
// model consumed by the decompiler pipeline. It decodes the MVP instruction
// set plus sign-extension operators, resolves block signatures through the
// type section, and reads function names from exports and the custom name
// section. It does not validate modules beyond what decompilation needs.
package wasm

// ValType is a wasm value type, encoded as in the binary format.
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
	return "?"
}

// Valid reports whether the byte is a known MVP value type.
func (t ValType) Valid() bool {
	switch t {
	case I32, I64, F32, F64:
		return true
	}
	return false
}

// FuncType is a function (or block) signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

func (ft *FuncType) String() string {
	s := "("
	for i, p := range ft.Params {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	s += ") -> ("
	for i, r := range ft.Results {
		if i > 0 {
			s += ", "
		}
		s += r.String()
	}
	return s + ")"
}

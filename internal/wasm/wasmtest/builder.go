// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package wasmtest builds synthetic wasm binaries for tests. Bodies are
// composed from instruction-encoding helpers so tests never hand-write
// LEB128 bytes.
package wasmtest

import (
	"github.com/dotandev/wasmdec/internal/wasm"
)

// Void is the empty block type byte.
const Void byte = 0x40

// Builder constructs a wasm binary section by section.
type Builder struct {
	types     []wasm.FuncType
	imports   [][]byte
	funcIdxs  []uint32
	bodies    [][]byte
	globals   [][]byte
	exports   [][]byte
	start     *uint32
	names     map[uint32]string
	nameOrder []uint32
	table     bool
	memory    bool
}

// NewModule returns an empty builder.
func NewModule() *Builder {
	return &Builder{names: map[uint32]string{}}
}

// Type adds a function type and returns its index.
func (b *Builder) Type(params, results []wasm.ValType) uint32 {
	b.types = append(b.types, wasm.FuncType{Params: params, Results: results})
	return uint32(len(b.types) - 1)
}

// ImportFunc adds a function import. Imports must be added before Func calls
// for the index space to come out right.
func (b *Builder) ImportFunc(module, name string, typeIdx uint32) *Builder {
	var entry []byte
	entry = append(entry, uleb(uint32(len(module)))...)
	entry = append(entry, module...)
	entry = append(entry, uleb(uint32(len(name)))...)
	entry = append(entry, name...)
	entry = append(entry, wasm.KindFunc)
	entry = append(entry, uleb(typeIdx)...)
	b.imports = append(b.imports, entry)
	return b
}

// ImportGlobal adds a global import.
func (b *Builder) ImportGlobal(t wasm.ValType, mutable bool) *Builder {
	var entry []byte
	entry = append(entry, uleb(3)...)
	entry = append(entry, "env"...)
	entry = append(entry, uleb(1)...)
	entry = append(entry, "g"...)
	entry = append(entry, wasm.KindGlobal, byte(t), mutByte(mutable))
	b.imports = append(b.imports, entry)
	return b
}

// Global adds a defined global with a zero-constant initializer.
func (b *Builder) Global(t wasm.ValType, mutable bool) *Builder {
	entry := []byte{byte(t), mutByte(mutable)}
	switch t {
	case wasm.I32:
		entry = append(entry, I32Const(0)...)
	case wasm.I64:
		entry = append(entry, I64Const(0)...)
	case wasm.F32:
		entry = append(entry, F32Const(0)...)
	case wasm.F64:
		entry = append(entry, F64Const(0)...)
	}
	entry = append(entry, byte(wasm.OpEnd))
	b.globals = append(b.globals, entry)
	return b
}

// Func adds a defined function and returns its module-wide index
// (imports included). The body must not include the trailing end byte.
func (b *Builder) Func(typeIdx uint32, locals []wasm.ValType, body []byte) uint32 {
	b.funcIdxs = append(b.funcIdxs, typeIdx)

	var enc []byte
	runs := localRuns(locals)
	enc = append(enc, uleb(uint32(len(runs)))...)
	for _, run := range runs {
		enc = append(enc, uleb(run.count)...)
		enc = append(enc, byte(run.t))
	}
	enc = append(enc, body...)
	enc = append(enc, byte(wasm.OpEnd))
	b.bodies = append(b.bodies, enc)

	return uint32(len(b.imports)) + uint32(len(b.funcIdxs)) - 1
}

// Export adds a function export.
func (b *Builder) Export(name string, funcIdx uint32) *Builder {
	var entry []byte
	entry = append(entry, uleb(uint32(len(name)))...)
	entry = append(entry, name...)
	entry = append(entry, wasm.KindFunc)
	entry = append(entry, uleb(funcIdx)...)
	b.exports = append(b.exports, entry)
	return b
}

// Name adds a function-name entry to the custom name section.
func (b *Builder) Name(funcIdx uint32, name string) *Builder {
	if _, ok := b.names[funcIdx]; !ok {
		b.nameOrder = append(b.nameOrder, funcIdx)
	}
	b.names[funcIdx] = name
	return b
}

// Start sets the start function.
func (b *Builder) Start(funcIdx uint32) *Builder {
	b.start = &funcIdx
	return b
}

// WithTable emits a one-entry funcref table section.
func (b *Builder) WithTable() *Builder {
	b.table = true
	return b
}

// WithMemory emits a one-page memory section.
func (b *Builder) WithMemory() *Builder {
	b.memory = true
	return b
}

// Build assembles the final binary.
func (b *Builder) Build() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	emit := func(id byte, payload []byte) {
		out = append(out, id)
		out = append(out, uleb(uint32(len(payload)))...)
		out = append(out, payload...)
	}

	if len(b.types) > 0 {
		var payload []byte
		payload = append(payload, uleb(uint32(len(b.types)))...)
		for _, t := range b.types {
			payload = append(payload, 0x60)
			payload = append(payload, uleb(uint32(len(t.Params)))...)
			for _, p := range t.Params {
				payload = append(payload, byte(p))
			}
			payload = append(payload, uleb(uint32(len(t.Results)))...)
			for _, r := range t.Results {
				payload = append(payload, byte(r))
			}
		}
		emit(1, payload)
	}

	if len(b.imports) > 0 {
		var payload []byte
		payload = append(payload, uleb(uint32(len(b.imports)))...)
		for _, imp := range b.imports {
			payload = append(payload, imp...)
		}
		emit(2, payload)
	}

	if len(b.funcIdxs) > 0 {
		var payload []byte
		payload = append(payload, uleb(uint32(len(b.funcIdxs)))...)
		for _, idx := range b.funcIdxs {
			payload = append(payload, uleb(idx)...)
		}
		emit(3, payload)
	}

	if b.table {
		emit(4, []byte{0x01, 0x70, 0x00, 0x00})
	}

	if b.memory {
		emit(5, []byte{0x01, 0x00, 0x01})
	}

	if len(b.globals) > 0 {
		var payload []byte
		payload = append(payload, uleb(uint32(len(b.globals)))...)
		for _, g := range b.globals {
			payload = append(payload, g...)
		}
		emit(6, payload)
	}

	if len(b.exports) > 0 {
		var payload []byte
		payload = append(payload, uleb(uint32(len(b.exports)))...)
		for _, exp := range b.exports {
			payload = append(payload, exp...)
		}
		emit(7, payload)
	}

	if b.start != nil {
		emit(8, uleb(*b.start))
	}

	if len(b.bodies) > 0 {
		var payload []byte
		payload = append(payload, uleb(uint32(len(b.bodies)))...)
		for _, body := range b.bodies {
			payload = append(payload, uleb(uint32(len(body)))...)
			payload = append(payload, body...)
		}
		emit(10, payload)
	}

	if len(b.names) > 0 {
		var sub []byte
		sub = append(sub, uleb(uint32(len(b.names)))...)
		for _, idx := range b.nameOrder {
			name := b.names[idx]
			sub = append(sub, uleb(idx)...)
			sub = append(sub, uleb(uint32(len(name)))...)
			sub = append(sub, name...)
		}

		var payload []byte
		payload = append(payload, uleb(4)...)
		payload = append(payload, "name"...)
		payload = append(payload, 0x01) // function names subsection
		payload = append(payload, uleb(uint32(len(sub)))...)
		payload = append(payload, sub...)
		emit(0, payload)
	}

	return out
}

type localRun struct {
	count uint32
	t     wasm.ValType
}

func localRuns(locals []wasm.ValType) []localRun {
	var runs []localRun
	for _, t := range locals {
		if n := len(runs); n > 0 && runs[n-1].t == t {
			runs[n-1].count++
			continue
		}
		runs = append(runs, localRun{count: 1, t: t})
	}
	return runs
}

func mutByte(mutable bool) byte {
	if mutable {
		return 1
	}
	return 0
}

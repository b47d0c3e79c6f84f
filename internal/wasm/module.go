// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package wasm

import (
	"encoding/binary"
	"fmt"

	"github.com/dotandev/wasmdec/internal/errors"
)

// =============================================================================
// WASM constants
// =============================================================================

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

const wasmVersion = 1

const (
	sectionCustom   byte = 0
	sectionType     byte = 1
	sectionImport   byte = 2
	sectionFunction byte = 3
	sectionTable    byte = 4
	sectionMemory   byte = 5
	sectionGlobal   byte = 6
	sectionExport   byte = 7
	sectionStart    byte = 8
	sectionElement  byte = 9
	sectionCode     byte = 10
	sectionData     byte = 11
)

// Import and export kind constants.
const (
	KindFunc   byte = 0
	KindTable  byte = 1
	KindMemory byte = 2
	KindGlobal byte = 3
)

const funcTypeMarker byte = 0x60

// =============================================================================
// Module model
// =============================================================================

// ImportedFunc is a function import; it occupies the low end of the
// function index space.
type ImportedFunc struct {
	Module    string
	Name      string
	TypeIndex uint32
}

// Global describes one entry of the global index space, imported
// globals first.
type Global struct {
	Type     ValType
	Mutable  bool
	Imported bool
}

// Export is one export-section entry.
type Export struct {
	Name  string
	Kind  byte
	Index uint32
}

// Function is a defined function: its signature, declared locals
// (parameters excluded), and decoded body.
type Function struct {
	// Index is the module-wide function index, imports included.
	Index     uint32
	TypeIndex uint32
	Type      *FuncType
	Locals    []ValType
	Body      []Instr
	// Name comes from the name section or an export, may be empty.
	Name string
}

// NumLocals returns the size of the combined parameter+local index space.
func (f *Function) NumLocals() int {
	return len(f.Type.Params) + len(f.Locals)
}

// LocalType resolves a local index across the parameter/local split.
func (f *Function) LocalType(idx uint32) (ValType, bool) {
	np := uint32(len(f.Type.Params))
	if idx < np {
		return f.Type.Params[idx], true
	}
	if int(idx-np) < len(f.Locals) {
		return f.Locals[idx-np], true
	}
	return 0, false
}

// Module is the decoded module: everything the decompiler needs, nothing
// it does not.
type Module struct {
	Types         []FuncType
	ImportedFuncs []ImportedFunc
	Funcs         []*Function
	Globals       []Global
	Exports       []Export
	Start         *uint32

	names map[uint32]string
}

// NumImportedFuncs returns the number of imported functions.
func (m *Module) NumImportedFuncs() uint32 {
	return uint32(len(m.ImportedFuncs))
}

// NumFuncs returns the size of the function index space.
func (m *Module) NumFuncs() uint32 {
	return uint32(len(m.ImportedFuncs) + len(m.Funcs))
}

// TypeOf resolves the signature of any function index, imported or defined.
func (m *Module) TypeOf(funcIdx uint32) (*FuncType, error) {
	ni := m.NumImportedFuncs()
	var typeIdx uint32
	switch {
	case funcIdx < ni:
		typeIdx = m.ImportedFuncs[funcIdx].TypeIndex
	case funcIdx < m.NumFuncs():
		typeIdx = m.Funcs[funcIdx-ni].TypeIndex
	default:
		return nil, errors.WrapFunctionNotFound(funcIdx)
	}
	if typeIdx >= uint32(len(m.Types)) {
		return nil, fmt.Errorf("%w: type index %d out of range for function %d",
			errors.ErrMalformed, typeIdx, funcIdx)
	}
	return &m.Types[typeIdx], nil
}

// FuncName returns the function's name from the name section or exports,
// or the empty string.
func (m *Module) FuncName(funcIdx uint32) string {
	return m.names[funcIdx]
}

// FuncByIndex returns the defined function with the given module-wide
// index, or nil for imports and out-of-range indices.
func (m *Module) FuncByIndex(funcIdx uint32) *Function {
	ni := m.NumImportedFuncs()
	if funcIdx < ni || funcIdx >= m.NumFuncs() {
		return nil
	}
	return m.Funcs[funcIdx-ni]
}

// =============================================================================
// Module parsing
// =============================================================================

// ParseModule decodes a binary module. It accepts the MVP sections, resolves
// function bodies against the type section, and merges names from the
// custom name section and exports.
func ParseModule(data []byte) (*Module, error) {
	if len(data) < 8 {
		return nil, errors.WrapMalformed(0, "file too short for header")
	}
	for i := 0; i < 4; i++ {
		if data[i] != wasmMagic[i] {
			return nil, errors.WrapMalformed(i, "bad magic bytes")
		}
	}
	if version := binary.LittleEndian.Uint32(data[4:8]); version != wasmVersion {
		return nil, errors.WrapMalformed(4, "unsupported version %d", version)
	}

	mod := &Module{names: map[uint32]string{}}
	var funcTypeIdxs []uint32
	var bodies [][]byte
	var bodyOffsets []int

	r := &reader{data: data, pos: 8}
	for r.remaining() > 0 {
		secOff := r.offset()
		id, err := r.u8()
		if err != nil {
			return nil, err
		}
		size, err := r.u32()
		if err != nil {
			return nil, err
		}
		payloadOff := r.offset()
		payload, err := r.take(int(size))
		if err != nil {
			return nil, errors.WrapMalformed(secOff, "section %d extends past end of file", id)
		}
		sub := &reader{data: payload, base: payloadOff}

		switch id {
		case sectionType:
			if mod.Types, err = parseTypeSection(sub); err != nil {
				return nil, err
			}
		case sectionImport:
			if err = parseImportSection(sub, mod); err != nil {
				return nil, err
			}
		case sectionFunction:
			if funcTypeIdxs, err = parseFunctionSection(sub); err != nil {
				return nil, err
			}
		case sectionGlobal:
			if err = parseGlobalSection(sub, mod); err != nil {
				return nil, err
			}
		case sectionExport:
			if err = parseExportSection(sub, mod); err != nil {
				return nil, err
			}
		case sectionStart:
			idx, err := sub.u32()
			if err != nil {
				return nil, err
			}
			mod.Start = &idx
		case sectionCode:
			if bodies, bodyOffsets, err = parseCodeSection(sub); err != nil {
				return nil, err
			}
		case sectionCustom:
			name, err := sub.name()
			if err != nil {
				return nil, err
			}
			if name == "name" {
				parseNameSection(sub, mod.names)
			}
			// other custom sections are skipped
		case sectionTable, sectionMemory, sectionElement, sectionData:
			// parsed for nothing: decompilation does not use them
		default:
			return nil, errors.WrapMalformed(secOff, "unknown section id %d", id)
		}
	}

	if len(bodies) != len(funcTypeIdxs) {
		return nil, errors.WrapMalformed(0, "function section declares %d functions, code section has %d",
			len(funcTypeIdxs), len(bodies))
	}

	ni := uint32(len(mod.ImportedFuncs))
	mod.Funcs = make([]*Function, len(bodies))
	for i := range bodies {
		typeIdx := funcTypeIdxs[i]
		if typeIdx >= uint32(len(mod.Types)) {
			return nil, errors.WrapMalformed(bodyOffsets[i], "function type index %d out of range", typeIdx)
		}
		ft := &mod.Types[typeIdx]
		locals, body, err := decodeBody(bodies[i], bodyOffsets[i], mod.Types)
		if err != nil {
			return nil, err
		}
		mod.Funcs[i] = &Function{
			Index:     ni + uint32(i),
			TypeIndex: typeIdx,
			Type:      ft,
			Locals:    locals,
			Body:      body,
		}
	}

	// Export names fill the gaps the name section left.
	for _, exp := range mod.Exports {
		if exp.Kind != KindFunc {
			continue
		}
		if _, ok := mod.names[exp.Index]; !ok {
			mod.names[exp.Index] = exp.Name
		}
	}
	for _, fn := range mod.Funcs {
		fn.Name = mod.names[fn.Index]
	}

	return mod, nil
}

func parseTypeSection(r *reader) ([]FuncType, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	types := make([]FuncType, 0, count)
	for i := uint32(0); i < count; i++ {
		off := r.offset()
		marker, err := r.u8()
		if err != nil {
			return nil, err
		}
		if marker != funcTypeMarker {
			return nil, errors.WrapMalformed(off, "expected func type marker 0x60, got 0x%02x", marker)
		}
		params, err := parseValTypeVec(r)
		if err != nil {
			return nil, err
		}
		results, err := parseValTypeVec(r)
		if err != nil {
			return nil, err
		}
		types = append(types, FuncType{Params: params, Results: results})
	}
	return types, nil
}

func parseValTypeVec(r *reader) ([]ValType, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	if int(count) > r.remaining() {
		return nil, errors.WrapMalformed(r.offset(), "value type vector length %d exceeds remaining input", count)
	}
	if count == 0 {
		return nil, nil
	}
	out := make([]ValType, count)
	for i := range out {
		if out[i], err = r.valType(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func parseImportSection(r *reader, mod *Module) error {
	count, err := r.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		modName, err := r.name()
		if err != nil {
			return err
		}
		name, err := r.name()
		if err != nil {
			return err
		}
		kindOff := r.offset()
		kind, err := r.u8()
		if err != nil {
			return err
		}

		switch kind {
		case KindFunc:
			typeIdx, err := r.u32()
			if err != nil {
				return err
			}
			mod.ImportedFuncs = append(mod.ImportedFuncs, ImportedFunc{
				Module:    modName,
				Name:      name,
				TypeIndex: typeIdx,
			})
		case KindTable:
			if _, err := r.u8(); err != nil { // elem type
				return err
			}
			if err := skipLimits(r); err != nil {
				return err
			}
		case KindMemory:
			if err := skipLimits(r); err != nil {
				return err
			}
		case KindGlobal:
			t, err := r.valType()
			if err != nil {
				return err
			}
			mut, err := r.u8()
			if err != nil {
				return err
			}
			mod.Globals = append(mod.Globals, Global{Type: t, Mutable: mut == 1, Imported: true})
		default:
			return errors.WrapMalformed(kindOff, "unknown import kind %d", kind)
		}
	}
	return nil
}

func skipLimits(r *reader) error {
	flag, err := r.u8()
	if err != nil {
		return err
	}
	if _, err := r.u32(); err != nil { // min
		return err
	}
	if flag == 1 {
		if _, err := r.u32(); err != nil { // max
			return err
		}
	}
	return nil
}

func parseFunctionSection(r *reader) ([]uint32, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	if int(count) > r.remaining() {
		return nil, errors.WrapMalformed(r.offset(), "function count %d exceeds remaining input", count)
	}
	idxs := make([]uint32, count)
	for i := range idxs {
		if idxs[i], err = r.u32(); err != nil {
			return nil, err
		}
	}
	return idxs, nil
}

func parseGlobalSection(r *reader, mod *Module) error {
	count, err := r.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		t, err := r.valType()
		if err != nil {
			return err
		}
		mutOff := r.offset()
		mut, err := r.u8()
		if err != nil {
			return err
		}
		if mut > 1 {
			return errors.WrapMalformed(mutOff, "invalid global mutability %d", mut)
		}
		// The init expression is a constant instruction sequence; decode
		// and discard it to find the closing end.
		if _, err := decodeInstrs(r, mod.Types); err != nil {
			return err
		}
		mod.Globals = append(mod.Globals, Global{Type: t, Mutable: mut == 1})
	}
	return nil
}

func parseExportSection(r *reader, mod *Module) error {
	count, err := r.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		name, err := r.name()
		if err != nil {
			return err
		}
		kind, err := r.u8()
		if err != nil {
			return err
		}
		idx, err := r.u32()
		if err != nil {
			return err
		}
		mod.Exports = append(mod.Exports, Export{Name: name, Kind: kind, Index: idx})
	}
	return nil
}

func parseCodeSection(r *reader) ([][]byte, []int, error) {
	count, err := r.u32()
	if err != nil {
		return nil, nil, err
	}
	bodies := make([][]byte, 0, count)
	offsets := make([]int, 0, count)
	for i := uint32(0); i < count; i++ {
		sizeOff := r.offset()
		size, err := r.u32()
		if err != nil {
			return nil, nil, err
		}
		bodyOff := r.offset()
		body, err := r.take(int(size))
		if err != nil {
			return nil, nil, errors.WrapMalformed(sizeOff, "code body extends past section")
		}
		bodies = append(bodies, body)
		offsets = append(offsets, bodyOff)
	}
	return bodies, offsets, nil
}

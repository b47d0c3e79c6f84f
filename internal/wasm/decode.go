// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package wasm

import (
	"encoding/binary"
	"math"

	"github.com/dotandev/wasmdec/internal/errors"
)

// Instr is a decoded instruction with its immediates.
type Instr struct {
	// Offset is the absolute byte offset of the opcode within the module.
	Offset int
	Op     Opcode
	// Idx holds the single index immediate: branch depth, call target,
	// local/global index, or call_indirect type index.
	Idx uint32
	// I64 holds i32.const (sign-extended) and i64.const payloads.
	I64    int64
	F32    float32
	F64    float64
	Align  uint32
	MemOff uint32
	// Block is the resolved signature of a block/loop/if construct.
	Block *FuncType
	// Labels and Default are the br_table case depths and default depth.
	Labels  []uint32
	Default uint32
}

// expanded local declarations are bounded before allocation
const maxLocals = 1 << 20

// =============================================================================
// Byte reader
// =============================================================================

// reader walks a byte slice while tracking the absolute module offset,
// so malformed-input errors can name the exact byte.
type reader struct {
	data []byte
	pos  int
	base int
}

func (r *reader) offset() int { return r.base + r.pos }

func (r *reader) remaining() int { return len(r.data) - r.pos }

func (r *reader) u8() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, errors.WrapMalformed(r.offset(), "unexpected end of input")
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, errors.WrapMalformed(r.offset(), "unexpected end of input")
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// u32 decodes an unsigned LEB128 integer of at most 5 bytes.
func (r *reader) u32() (uint32, error) {
	start := r.offset()
	var result uint32
	var shift uint
	for i := 0; i < 5; i++ {
		b, err := r.u8()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			return result, nil
		}
	}
	return 0, errors.WrapMalformed(start, "unsigned LEB128 exceeds 5 bytes")
}

// s32 decodes a signed LEB128 integer of at most 5 bytes.
func (r *reader) s32() (int32, error) {
	v, err := r.sleb(5)
	return int32(v), err
}

// s33 decodes the signed LEB128 block-type discriminator.
func (r *reader) s33() (int64, error) {
	return r.sleb(5)
}

// s64 decodes a signed LEB128 integer of at most 10 bytes.
func (r *reader) s64() (int64, error) {
	return r.sleb(10)
}

func (r *reader) sleb(maxBytes int) (int64, error) {
	start := r.offset()
	var result int64
	var shift uint
	for i := 0; i < maxBytes; i++ {
		b, err := r.u8()
		if err != nil {
			return 0, err
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				result |= -(1 << shift)
			}
			return result, nil
		}
	}
	return 0, errors.WrapMalformed(start, "signed LEB128 exceeds %d bytes", maxBytes)
}

func (r *reader) f32() (float32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

func (r *reader) f64() (float64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

func (r *reader) name() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) valType() (ValType, error) {
	off := r.offset()
	b, err := r.u8()
	if err != nil {
		return 0, err
	}
	t := ValType(b)
	if !t.Valid() {
		return 0, errors.WrapMalformed(off, "invalid value type 0x%02x", b)
	}
	return t, nil
}

// =============================================================================
// Instruction decoding
// =============================================================================

// Block type discriminators as signed LEB128 values.
const (
	blockTypeEmpty int64 = -64 // 0x40
	blockTypeI32   int64 = -1  // 0x7f
	blockTypeI64   int64 = -2  // 0x7e
	blockTypeF32   int64 = -3  // 0x7d
	blockTypeF64   int64 = -4  // 0x7c
)

var (
	blockEmpty     = &FuncType{}
	blockResultI32 = &FuncType{Results: []ValType{I32}}
	blockResultI64 = &FuncType{Results: []ValType{I64}}
	blockResultF32 = &FuncType{Results: []ValType{F32}}
	blockResultF64 = &FuncType{Results: []ValType{F64}}
)

func decodeBlockType(r *reader, types []FuncType) (*FuncType, error) {
	off := r.offset()
	v, err := r.s33()
	if err != nil {
		return nil, err
	}
	switch v {
	case blockTypeEmpty:
		return blockEmpty, nil
	case blockTypeI32:
		return blockResultI32, nil
	case blockTypeI64:
		return blockResultI64, nil
	case blockTypeF32:
		return blockResultF32, nil
	case blockTypeF64:
		return blockResultF64, nil
	}
	if v < 0 || v >= int64(len(types)) {
		return nil, errors.WrapMalformed(off, "block type index %d out of range", v)
	}
	return &types[v], nil
}

func unsupportedName(op Opcode) string {
	switch op {
	case opPrefixSIMD:
		return "SIMD instruction (0xfd prefix)"
	case opPrefixMisc:
		return "post-MVP instruction (0xfc prefix)"
	case opSelectT:
		return "typed select"
	case opTableGet, opTableSet, opRefNull, opRefIsNull, opRefFunc:
		return "reference-types instruction"
	}
	return "instruction"
}

// decodeInstrs decodes instructions until the End that closes the sequence
// at depth zero. The closing End is included in the returned stream.
func decodeInstrs(r *reader, types []FuncType) ([]Instr, error) {
	var out []Instr
	depth := 0

	for {
		if r.remaining() == 0 {
			return nil, errors.WrapMalformed(r.offset(), "truncated instruction sequence")
		}

		off := r.offset()
		b, err := r.u8()
		if err != nil {
			return nil, err
		}
		op := Opcode(b)

		if op.PostMVP() {
			return nil, errors.WrapUnsupported(off, unsupportedName(op))
		}

		in := Instr{Offset: off, Op: op}

		switch op {
		case OpBlock, OpLoop, OpIf:
			bt, err := decodeBlockType(r, types)
			if err != nil {
				return nil, err
			}
			in.Block = bt
			depth++

		case OpElse:
			// no immediates

		case OpEnd:
			if depth == 0 {
				out = append(out, in)
				return out, nil
			}
			depth--

		case OpBr, OpBrIf, OpCall, OpLocalGet, OpLocalSet, OpLocalTee,
			OpGlobalGet, OpGlobalSet:
			idx, err := r.u32()
			if err != nil {
				return nil, err
			}
			in.Idx = idx

		case OpBrTable:
			count, err := r.u32()
			if err != nil {
				return nil, err
			}
			if int(count) > r.remaining() {
				return nil, errors.WrapMalformed(off, "br_table target count %d exceeds remaining input", count)
			}
			labels := make([]uint32, count)
			for i := range labels {
				if labels[i], err = r.u32(); err != nil {
					return nil, err
				}
			}
			def, err := r.u32()
			if err != nil {
				return nil, err
			}
			in.Labels = labels
			in.Default = def

		case OpCallIndirect:
			typeIdx, err := r.u32()
			if err != nil {
				return nil, err
			}
			// reserved table index, single table in MVP
			if _, err := r.u32(); err != nil {
				return nil, err
			}
			if typeIdx >= uint32(len(types)) {
				return nil, errors.WrapMalformed(off, "call_indirect type index %d out of range", typeIdx)
			}
			in.Idx = typeIdx

		case OpMemorySize, OpMemoryGrow:
			// reserved memory index
			if _, err := r.u32(); err != nil {
				return nil, err
			}

		case OpI32Load, OpI64Load, OpF32Load, OpF64Load,
			OpI32Load8S, OpI32Load8U, OpI32Load16S, OpI32Load16U,
			OpI64Load8S, OpI64Load8U, OpI64Load16S, OpI64Load16U,
			OpI64Load32S, OpI64Load32U,
			OpI32Store, OpI64Store, OpF32Store, OpF64Store,
			OpI32Store8, OpI32Store16, OpI64Store8, OpI64Store16, OpI64Store32:
			align, err := r.u32()
			if err != nil {
				return nil, err
			}
			memOff, err := r.u32()
			if err != nil {
				return nil, err
			}
			in.Align = align
			in.MemOff = memOff

		case OpI32Const:
			v, err := r.s32()
			if err != nil {
				return nil, err
			}
			in.I64 = int64(v)

		case OpI64Const:
			v, err := r.s64()
			if err != nil {
				return nil, err
			}
			in.I64 = v

		case OpF32Const:
			v, err := r.f32()
			if err != nil {
				return nil, err
			}
			in.F32 = v

		case OpF64Const:
			v, err := r.f64()
			if err != nil {
				return nil, err
			}
			in.F64 = v

		default:
			if !op.Known() {
				return nil, errors.WrapMalformed(off, "unknown opcode 0x%02x", b)
			}
			// remaining known opcodes carry no immediates
		}

		out = append(out, in)
	}
}

// decodeBody decodes one code-section entry: local declarations followed by
// the instruction sequence. base is the absolute module offset of the body.
func decodeBody(data []byte, base int, types []FuncType) ([]ValType, []Instr, error) {
	r := &reader{data: data, base: base}

	declCount, err := r.u32()
	if err != nil {
		return nil, nil, err
	}

	var locals []ValType
	for i := uint32(0); i < declCount; i++ {
		off := r.offset()
		count, err := r.u32()
		if err != nil {
			return nil, nil, err
		}
		t, err := r.valType()
		if err != nil {
			return nil, nil, err
		}
		if len(locals)+int(count) > maxLocals {
			return nil, nil, errors.WrapMalformed(off, "local declaration expands past %d locals", maxLocals)
		}
		for j := uint32(0); j < count; j++ {
			locals = append(locals, t)
		}
	}

	body, err := decodeInstrs(r, types)
	if err != nil {
		return nil, nil, err
	}

	if r.remaining() != 0 {
		return nil, nil, errors.WrapMalformed(r.offset(), "trailing bytes after function end")
	}

	return locals, body, nil
}

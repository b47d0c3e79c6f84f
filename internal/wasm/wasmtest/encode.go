// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package wasmtest

import (
	"encoding/binary"
	"math"

	"github.com/dotandev/wasmdec/internal/wasm"
)

// =============================================================================
// LEB128 encoding
// =============================================================================

func uleb(v uint32) []byte {
	if v == 0 {
		return []byte{0x00}
	}
	var buf []byte
	for v > 0 {
		b := byte(v & 0x7f)
		v >>= 7
		if v > 0 {
			b |= 0x80
		}
		buf = append(buf, b)
	}
	return buf
}

func sleb32(v int32) []byte {
	return sleb64(int64(v))
}

func sleb64(v int64) []byte {
	var buf []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			buf = append(buf, b)
			break
		}
		buf = append(buf, b|0x80)
	}
	return buf
}

// =============================================================================
// Instruction encoding helpers
// =============================================================================

// Body concatenates instruction encodings into one function body.
func Body(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Op encodes an opcode with no immediates.
func Op(op wasm.Opcode) []byte {
	return []byte{byte(op)}
}

func I32Const(v int32) []byte {
	return append([]byte{byte(wasm.OpI32Const)}, sleb32(v)...)
}

func I64Const(v int64) []byte {
	return append([]byte{byte(wasm.OpI64Const)}, sleb64(v)...)
}

func F32Const(v float32) []byte {
	out := []byte{byte(wasm.OpF32Const), 0, 0, 0, 0}
	binary.LittleEndian.PutUint32(out[1:], math.Float32bits(v))
	return out
}

func F64Const(v float64) []byte {
	out := []byte{byte(wasm.OpF64Const), 0, 0, 0, 0, 0, 0, 0, 0}
	binary.LittleEndian.PutUint64(out[1:], math.Float64bits(v))
	return out
}

func LocalGet(idx uint32) []byte {
	return append([]byte{byte(wasm.OpLocalGet)}, uleb(idx)...)
}

func LocalSet(idx uint32) []byte {
	return append([]byte{byte(wasm.OpLocalSet)}, uleb(idx)...)
}

func LocalTee(idx uint32) []byte {
	return append([]byte{byte(wasm.OpLocalTee)}, uleb(idx)...)
}

func GlobalGet(idx uint32) []byte {
	return append([]byte{byte(wasm.OpGlobalGet)}, uleb(idx)...)
}

func GlobalSet(idx uint32) []byte {
	return append([]byte{byte(wasm.OpGlobalSet)}, uleb(idx)...)
}

func Call(funcIdx uint32) []byte {
	return append([]byte{byte(wasm.OpCall)}, uleb(funcIdx)...)
}

func CallIndirect(typeIdx uint32) []byte {
	out := append([]byte{byte(wasm.OpCallIndirect)}, uleb(typeIdx)...)
	return append(out, 0x00) // table index
}

func Br(depth uint32) []byte {
	return append([]byte{byte(wasm.OpBr)}, uleb(depth)...)
}

func BrIf(depth uint32) []byte {
	return append([]byte{byte(wasm.OpBrIf)}, uleb(depth)...)
}

func BrTable(depths []uint32, def uint32) []byte {
	out := append([]byte{byte(wasm.OpBrTable)}, uleb(uint32(len(depths)))...)
	for _, d := range depths {
		out = append(out, uleb(d)...)
	}
	return append(out, uleb(def)...)
}

// Mem encodes a load or store with its memarg.
func Mem(op wasm.Opcode, align, offset uint32) []byte {
	out := append([]byte{byte(op)}, uleb(align)...)
	return append(out, uleb(offset)...)
}

// MemorySize and MemoryGrow carry a reserved memory index.
func MemorySize() []byte {
	return []byte{byte(wasm.OpMemorySize), 0x00}
}

func MemoryGrow() []byte {
	return []byte{byte(wasm.OpMemoryGrow), 0x00}
}

// Block encodes block <vt> ... end with a single-byte block type.
func Block(blockType byte, inner ...[]byte) []byte {
	return construct(wasm.OpBlock, []byte{blockType}, inner)
}

// Loop encodes loop <vt> ... end.
func Loop(blockType byte, inner ...[]byte) []byte {
	return construct(wasm.OpLoop, []byte{blockType}, inner)
}

// If encodes if <vt> ... end with no else arm.
func If(blockType byte, inner ...[]byte) []byte {
	return construct(wasm.OpIf, []byte{blockType}, inner)
}

// IfElse encodes if <vt> ... else ... end.
func IfElse(blockType byte, then, els []byte) []byte {
	out := []byte{byte(wasm.OpIf), blockType}
	out = append(out, then...)
	out = append(out, byte(wasm.OpElse))
	out = append(out, els...)
	return append(out, byte(wasm.OpEnd))
}

// BlockSig, LoopSig, IfSig encode constructs whose block type is a type
// index (multi-value signatures).
func BlockSig(typeIdx uint32, inner ...[]byte) []byte {
	return construct(wasm.OpBlock, sleb64(int64(typeIdx)), inner)
}

func LoopSig(typeIdx uint32, inner ...[]byte) []byte {
	return construct(wasm.OpLoop, sleb64(int64(typeIdx)), inner)
}

func IfSig(typeIdx uint32, inner ...[]byte) []byte {
	return construct(wasm.OpIf, sleb64(int64(typeIdx)), inner)
}

// IfElseSig encodes if (type idx) ... else ... end.
func IfElseSig(typeIdx uint32, then, els []byte) []byte {
	out := append([]byte{byte(wasm.OpIf)}, sleb64(int64(typeIdx))...)
	out = append(out, then...)
	out = append(out, byte(wasm.OpElse))
	out = append(out, els...)
	return append(out, byte(wasm.OpEnd))
}

func construct(op wasm.Opcode, blockType []byte, inner [][]byte) []byte {
	out := append([]byte{byte(op)}, blockType...)
	for _, part := range inner {
		out = append(out, part...)
	}
	return append(out, byte(wasm.OpEnd))
}

// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package ir

import "github.com/dotandev/wasmdec/internal/wasm"

// The expression builder pops operands and picks the node shape for every
// value-producing opcode from this one table. Control flow, parametric ops,
// locals, globals, calls, and constants carry extra context and are handled
// directly by the builder.

type sigKind int

const (
	sigUnary sigKind = iota
	sigBinary
	sigLoad
	sigStore
	sigMemorySize
	sigMemoryGrow
)

type opSig struct {
	kind sigKind
	pops []wasm.ValType // operand types in push order
	push wasm.ValType   // zero when the op produces nothing
}

func unary(x, r wasm.ValType) opSig {
	return opSig{kind: sigUnary, pops: []wasm.ValType{x}, push: r}
}

func binary(x, r wasm.ValType) opSig {
	return opSig{kind: sigBinary, pops: []wasm.ValType{x, x}, push: r}
}

func load(r wasm.ValType) opSig {
	return opSig{kind: sigLoad, pops: []wasm.ValType{wasm.I32}, push: r}
}

func store(v wasm.ValType) opSig {
	return opSig{kind: sigStore, pops: []wasm.ValType{wasm.I32, v}}
}

var opSigs = map[wasm.Opcode]opSig{
	// Memory.
	wasm.OpI32Load:    load(wasm.I32),
	wasm.OpI64Load:    load(wasm.I64),
	wasm.OpF32Load:    load(wasm.F32),
	wasm.OpF64Load:    load(wasm.F64),
	wasm.OpI32Load8S:  load(wasm.I32),
	wasm.OpI32Load8U:  load(wasm.I32),
	wasm.OpI32Load16S: load(wasm.I32),
	wasm.OpI32Load16U: load(wasm.I32),
	wasm.OpI64Load8S:  load(wasm.I64),
	wasm.OpI64Load8U:  load(wasm.I64),
	wasm.OpI64Load16S: load(wasm.I64),
	wasm.OpI64Load16U: load(wasm.I64),
	wasm.OpI64Load32S: load(wasm.I64),
	wasm.OpI64Load32U: load(wasm.I64),
	wasm.OpI32Store:   store(wasm.I32),
	wasm.OpI64Store:   store(wasm.I64),
	wasm.OpF32Store:   store(wasm.F32),
	wasm.OpF64Store:   store(wasm.F64),
	wasm.OpI32Store8:  store(wasm.I32),
	wasm.OpI32Store16: store(wasm.I32),
	wasm.OpI64Store8:  store(wasm.I64),
	wasm.OpI64Store16: store(wasm.I64),
	wasm.OpI64Store32: store(wasm.I64),
	wasm.OpMemorySize: {kind: sigMemorySize, push: wasm.I32},
	wasm.OpMemoryGrow: {kind: sigMemoryGrow, pops: []wasm.ValType{wasm.I32}, push: wasm.I32},

	// i32 comparisons.
	wasm.OpI32Eqz: unary(wasm.I32, wasm.I32),
	wasm.OpI32Eq:  binary(wasm.I32, wasm.I32),
	wasm.OpI32Ne:  binary(wasm.I32, wasm.I32),
	wasm.OpI32LtS: binary(wasm.I32, wasm.I32),
	wasm.OpI32LtU: binary(wasm.I32, wasm.I32),
	wasm.OpI32GtS: binary(wasm.I32, wasm.I32),
	wasm.OpI32GtU: binary(wasm.I32, wasm.I32),
	wasm.OpI32LeS: binary(wasm.I32, wasm.I32),
	wasm.OpI32LeU: binary(wasm.I32, wasm.I32),
	wasm.OpI32GeS: binary(wasm.I32, wasm.I32),
	wasm.OpI32GeU: binary(wasm.I32, wasm.I32),

	// i64 comparisons.
	wasm.OpI64Eqz: unary(wasm.I64, wasm.I32),
	wasm.OpI64Eq:  binary(wasm.I64, wasm.I32),
	wasm.OpI64Ne:  binary(wasm.I64, wasm.I32),
	wasm.OpI64LtS: binary(wasm.I64, wasm.I32),
	wasm.OpI64LtU: binary(wasm.I64, wasm.I32),
	wasm.OpI64GtS: binary(wasm.I64, wasm.I32),
	wasm.OpI64GtU: binary(wasm.I64, wasm.I32),
	wasm.OpI64LeS: binary(wasm.I64, wasm.I32),
	wasm.OpI64LeU: binary(wasm.I64, wasm.I32),
	wasm.OpI64GeS: binary(wasm.I64, wasm.I32),
	wasm.OpI64GeU: binary(wasm.I64, wasm.I32),

	// Float comparisons.
	wasm.OpF32Eq: binary(wasm.F32, wasm.I32),
	wasm.OpF32Ne: binary(wasm.F32, wasm.I32),
	wasm.OpF32Lt: binary(wasm.F32, wasm.I32),
	wasm.OpF32Gt: binary(wasm.F32, wasm.I32),
	wasm.OpF32Le: binary(wasm.F32, wasm.I32),
	wasm.OpF32Ge: binary(wasm.F32, wasm.I32),
	wasm.OpF64Eq: binary(wasm.F64, wasm.I32),
	wasm.OpF64Ne: binary(wasm.F64, wasm.I32),
	wasm.OpF64Lt: binary(wasm.F64, wasm.I32),
	wasm.OpF64Gt: binary(wasm.F64, wasm.I32),
	wasm.OpF64Le: binary(wasm.F64, wasm.I32),
	wasm.OpF64Ge: binary(wasm.F64, wasm.I32),

	// i32 arithmetic.
	wasm.OpI32Clz:    unary(wasm.I32, wasm.I32),
	wasm.OpI32Ctz:    unary(wasm.I32, wasm.I32),
	wasm.OpI32Popcnt: unary(wasm.I32, wasm.I32),
	wasm.OpI32Add:    binary(wasm.I32, wasm.I32),
	wasm.OpI32Sub:    binary(wasm.I32, wasm.I32),
	wasm.OpI32Mul:    binary(wasm.I32, wasm.I32),
	wasm.OpI32DivS:   binary(wasm.I32, wasm.I32),
	wasm.OpI32DivU:   binary(wasm.I32, wasm.I32),
	wasm.OpI32RemS:   binary(wasm.I32, wasm.I32),
	wasm.OpI32RemU:   binary(wasm.I32, wasm.I32),
	wasm.OpI32And:    binary(wasm.I32, wasm.I32),
	wasm.OpI32Or:     binary(wasm.I32, wasm.I32),
	wasm.OpI32Xor:    binary(wasm.I32, wasm.I32),
	wasm.OpI32Shl:    binary(wasm.I32, wasm.I32),
	wasm.OpI32ShrS:   binary(wasm.I32, wasm.I32),
	wasm.OpI32ShrU:   binary(wasm.I32, wasm.I32),
	wasm.OpI32Rotl:   binary(wasm.I32, wasm.I32),
	wasm.OpI32Rotr:   binary(wasm.I32, wasm.I32),

	// i64 arithmetic.
	wasm.OpI64Clz:    unary(wasm.I64, wasm.I64),
	wasm.OpI64Ctz:    unary(wasm.I64, wasm.I64),
	wasm.OpI64Popcnt: unary(wasm.I64, wasm.I64),
	wasm.OpI64Add:    binary(wasm.I64, wasm.I64),
	wasm.OpI64Sub:    binary(wasm.I64, wasm.I64),
	wasm.OpI64Mul:    binary(wasm.I64, wasm.I64),
	wasm.OpI64DivS:   binary(wasm.I64, wasm.I64),
	wasm.OpI64DivU:   binary(wasm.I64, wasm.I64),
	wasm.OpI64RemS:   binary(wasm.I64, wasm.I64),
	wasm.OpI64RemU:   binary(wasm.I64, wasm.I64),
	wasm.OpI64And:    binary(wasm.I64, wasm.I64),
	wasm.OpI64Or:     binary(wasm.I64, wasm.I64),
	wasm.OpI64Xor:    binary(wasm.I64, wasm.I64),
	wasm.OpI64Shl:    binary(wasm.I64, wasm.I64),
	wasm.OpI64ShrS:   binary(wasm.I64, wasm.I64),
	wasm.OpI64ShrU:   binary(wasm.I64, wasm.I64),
	wasm.OpI64Rotl:   binary(wasm.I64, wasm.I64),
	wasm.OpI64Rotr:   binary(wasm.I64, wasm.I64),

	// f32 arithmetic.
	wasm.OpF32Abs:      unary(wasm.F32, wasm.F32),
	wasm.OpF32Neg:      unary(wasm.F32, wasm.F32),
	wasm.OpF32Ceil:     unary(wasm.F32, wasm.F32),
	wasm.OpF32Floor:    unary(wasm.F32, wasm.F32),
	wasm.OpF32Trunc:    unary(wasm.F32, wasm.F32),
	wasm.OpF32Nearest:  unary(wasm.F32, wasm.F32),
	wasm.OpF32Sqrt:     unary(wasm.F32, wasm.F32),
	wasm.OpF32Add:      binary(wasm.F32, wasm.F32),
	wasm.OpF32Sub:      binary(wasm.F32, wasm.F32),
	wasm.OpF32Mul:      binary(wasm.F32, wasm.F32),
	wasm.OpF32Div:      binary(wasm.F32, wasm.F32),
	wasm.OpF32Min:      binary(wasm.F32, wasm.F32),
	wasm.OpF32Max:      binary(wasm.F32, wasm.F32),
	wasm.OpF32Copysign: binary(wasm.F32, wasm.F32),

	// f64 arithmetic.
	wasm.OpF64Abs:      unary(wasm.F64, wasm.F64),
	wasm.OpF64Neg:      unary(wasm.F64, wasm.F64),
	wasm.OpF64Ceil:     unary(wasm.F64, wasm.F64),
	wasm.OpF64Floor:    unary(wasm.F64, wasm.F64),
	wasm.OpF64Trunc:    unary(wasm.F64, wasm.F64),
	wasm.OpF64Nearest:  unary(wasm.F64, wasm.F64),
	wasm.OpF64Sqrt:     unary(wasm.F64, wasm.F64),
	wasm.OpF64Add:      binary(wasm.F64, wasm.F64),
	wasm.OpF64Sub:      binary(wasm.F64, wasm.F64),
	wasm.OpF64Mul:      binary(wasm.F64, wasm.F64),
	wasm.OpF64Div:      binary(wasm.F64, wasm.F64),
	wasm.OpF64Min:      binary(wasm.F64, wasm.F64),
	wasm.OpF64Max:      binary(wasm.F64, wasm.F64),
	wasm.OpF64Copysign: binary(wasm.F64, wasm.F64),

	// Conversions.
	wasm.OpI32WrapI64:        unary(wasm.I64, wasm.I32),
	wasm.OpI32TruncF32S:      unary(wasm.F32, wasm.I32),
	wasm.OpI32TruncF32U:      unary(wasm.F32, wasm.I32),
	wasm.OpI32TruncF64S:      unary(wasm.F64, wasm.I32),
	wasm.OpI32TruncF64U:      unary(wasm.F64, wasm.I32),
	wasm.OpI64ExtendI32S:     unary(wasm.I32, wasm.I64),
	wasm.OpI64ExtendI32U:     unary(wasm.I32, wasm.I64),
	wasm.OpI64TruncF32S:      unary(wasm.F32, wasm.I64),
	wasm.OpI64TruncF32U:      unary(wasm.F32, wasm.I64),
	wasm.OpI64TruncF64S:      unary(wasm.F64, wasm.I64),
	wasm.OpI64TruncF64U:      unary(wasm.F64, wasm.I64),
	wasm.OpF32ConvertI32S:    unary(wasm.I32, wasm.F32),
	wasm.OpF32ConvertI32U:    unary(wasm.I32, wasm.F32),
	wasm.OpF32ConvertI64S:    unary(wasm.I64, wasm.F32),
	wasm.OpF32ConvertI64U:    unary(wasm.I64, wasm.F32),
	wasm.OpF32DemoteF64:      unary(wasm.F64, wasm.F32),
	wasm.OpF64ConvertI32S:    unary(wasm.I32, wasm.F64),
	wasm.OpF64ConvertI32U:    unary(wasm.I32, wasm.F64),
	wasm.OpF64ConvertI64S:    unary(wasm.I64, wasm.F64),
	wasm.OpF64ConvertI64U:    unary(wasm.I64, wasm.F64),
	wasm.OpF64PromoteF32:     unary(wasm.F32, wasm.F64),
	wasm.OpI32ReinterpretF32: unary(wasm.F32, wasm.I32),
	wasm.OpI64ReinterpretF64: unary(wasm.F64, wasm.I64),
	wasm.OpF32ReinterpretI32: unary(wasm.I32, wasm.F32),
	wasm.OpF64ReinterpretI64: unary(wasm.I64, wasm.F64),

	// Sign extension.
	wasm.OpI32Extend8S:  unary(wasm.I32, wasm.I32),
	wasm.OpI32Extend16S: unary(wasm.I32, wasm.I32),
	wasm.OpI64Extend8S:  unary(wasm.I64, wasm.I64),
	wasm.OpI64Extend16S: unary(wasm.I64, wasm.I64),
	wasm.OpI64Extend32S: unary(wasm.I64, wasm.I64),
}

// Display names for the output dialect. Unary names drop the result-type
// prefix, so both integer widths share one spelling; the self-describing
// operand makes the width obvious in context.

var unaryNames = map[wasm.Opcode]string{
	wasm.OpI32Eqz:    "eqz",
	wasm.OpI64Eqz:    "eqz",
	wasm.OpI32Clz:    "clz",
	wasm.OpI32Ctz:    "ctz",
	wasm.OpI32Popcnt: "popcnt",
	wasm.OpI64Clz:    "clz",
	wasm.OpI64Ctz:    "ctz",
	wasm.OpI64Popcnt: "popcnt",

	wasm.OpF32Abs:     "abs",
	wasm.OpF32Neg:     "neg",
	wasm.OpF32Ceil:    "ceil",
	wasm.OpF32Floor:   "floor",
	wasm.OpF32Trunc:   "trunc",
	wasm.OpF32Nearest: "nearest",
	wasm.OpF32Sqrt:    "sqrt",
	wasm.OpF64Abs:     "abs",
	wasm.OpF64Neg:     "neg",
	wasm.OpF64Ceil:    "ceil",
	wasm.OpF64Floor:   "floor",
	wasm.OpF64Trunc:   "trunc",
	wasm.OpF64Nearest: "nearest",
	wasm.OpF64Sqrt:    "sqrt",

	wasm.OpI32WrapI64:        "wrap_i64",
	wasm.OpI32TruncF32S:      "trunc_f32s",
	wasm.OpI32TruncF32U:      "trunc_f32u",
	wasm.OpI32TruncF64S:      "trunc_f64s",
	wasm.OpI32TruncF64U:      "trunc_f64u",
	wasm.OpI64ExtendI32S:     "extend_i32s",
	wasm.OpI64ExtendI32U:     "extend_i32u",
	wasm.OpI64TruncF32S:      "trunc_f32s",
	wasm.OpI64TruncF32U:      "trunc_f32u",
	wasm.OpI64TruncF64S:      "trunc_f64s",
	wasm.OpI64TruncF64U:      "trunc_f64u",
	wasm.OpF32ConvertI32S:    "convert_i32s",
	wasm.OpF32ConvertI32U:    "convert_i32u",
	wasm.OpF32ConvertI64S:    "convert_i64s",
	wasm.OpF32ConvertI64U:    "convert_i64u",
	wasm.OpF32DemoteF64:      "demote_f64",
	wasm.OpF64ConvertI32S:    "convert_i32s",
	wasm.OpF64ConvertI32U:    "convert_i32u",
	wasm.OpF64ConvertI64S:    "convert_i64s",
	wasm.OpF64ConvertI64U:    "convert_i64u",
	wasm.OpF64PromoteF32:     "promote_f32",
	wasm.OpI32ReinterpretF32: "reinterpret_f32",
	wasm.OpI64ReinterpretF64: "reinterpret_f64",
	wasm.OpF32ReinterpretI32: "reinterpret_i32",
	wasm.OpF64ReinterpretI64: "reinterpret_i64",

	wasm.OpI32Extend8S:  "extend8s",
	wasm.OpI32Extend16S: "extend16s",
	wasm.OpI64Extend8S:  "extend8s",
	wasm.OpI64Extend16S: "extend16s",
	wasm.OpI64Extend32S: "extend32s",
}

// UnaryName is the dialect spelling of a unary operator.
func UnaryName(op wasm.Opcode) string {
	if s, ok := unaryNames[op]; ok {
		return s
	}
	return op.String()
}

type binName struct {
	name  string
	infix bool
}

func infixOp(s string) binName  { return binName{name: s, infix: true} }
func prefixOp(s string) binName { return binName{name: s, infix: false} }

var binaryNames = map[wasm.Opcode]binName{
	wasm.OpI32Eq:  infixOp("=="),
	wasm.OpI32Ne:  infixOp("!="),
	wasm.OpI32LtS: infixOp("<_s"),
	wasm.OpI32LtU: infixOp("<_u"),
	wasm.OpI32GtS: infixOp(">_s"),
	wasm.OpI32GtU: infixOp(">_u"),
	wasm.OpI32LeS: infixOp("<=_s"),
	wasm.OpI32LeU: infixOp("<=_u"),
	wasm.OpI32GeS: infixOp(">=_s"),
	wasm.OpI32GeU: infixOp(">=_u"),
	wasm.OpI64Eq:  infixOp("=="),
	wasm.OpI64Ne:  infixOp("!="),
	wasm.OpI64LtS: infixOp("<_s"),
	wasm.OpI64LtU: infixOp("<_u"),
	wasm.OpI64GtS: infixOp(">_s"),
	wasm.OpI64GtU: infixOp(">_u"),
	wasm.OpI64LeS: infixOp("<=_s"),
	wasm.OpI64LeU: infixOp("<=_u"),
	wasm.OpI64GeS: infixOp(">=_s"),
	wasm.OpI64GeU: infixOp(">=_u"),

	wasm.OpF32Eq: infixOp("=="),
	wasm.OpF32Ne: infixOp("!="),
	wasm.OpF32Lt: infixOp("<"),
	wasm.OpF32Gt: infixOp(">"),
	wasm.OpF32Le: infixOp("<="),
	wasm.OpF32Ge: infixOp(">="),
	wasm.OpF64Eq: infixOp("=="),
	wasm.OpF64Ne: infixOp("!="),
	wasm.OpF64Lt: infixOp("<"),
	wasm.OpF64Gt: infixOp(">"),
	wasm.OpF64Le: infixOp("<="),
	wasm.OpF64Ge: infixOp(">="),

	wasm.OpI32Add:  infixOp("+"),
	wasm.OpI32Sub:  infixOp("-"),
	wasm.OpI32Mul:  infixOp("*"),
	wasm.OpI32DivS: infixOp("/_s"),
	wasm.OpI32DivU: infixOp("/_u"),
	wasm.OpI32RemS: infixOp("%_s"),
	wasm.OpI32RemU: infixOp("%_u"),
	wasm.OpI32And:  infixOp("&"),
	wasm.OpI32Or:   infixOp("|"),
	wasm.OpI32Xor:  infixOp("#xor"),
	wasm.OpI32Shl:  infixOp("<<"),
	wasm.OpI32ShrS: infixOp(">>_s"),
	wasm.OpI32ShrU: infixOp(">>_u"),
	wasm.OpI32Rotl: infixOp("#rotl"),
	wasm.OpI32Rotr: infixOp("#rotr"),
	wasm.OpI64Add:  infixOp("+"),
	wasm.OpI64Sub:  infixOp("-"),
	wasm.OpI64Mul:  infixOp("*"),
	wasm.OpI64DivS: infixOp("/_s"),
	wasm.OpI64DivU: infixOp("/_u"),
	wasm.OpI64RemS: infixOp("%_s"),
	wasm.OpI64RemU: infixOp("%_u"),
	wasm.OpI64And:  infixOp("&"),
	wasm.OpI64Or:   infixOp("|"),
	wasm.OpI64Xor:  infixOp("#xor"),
	wasm.OpI64Shl:  infixOp("<<"),
	wasm.OpI64ShrS: infixOp(">>_s"),
	wasm.OpI64ShrU: infixOp(">>_u"),
	wasm.OpI64Rotl: infixOp("#rotl"),
	wasm.OpI64Rotr: infixOp("#rotr"),

	wasm.OpF32Add:      infixOp("+"),
	wasm.OpF32Sub:      infixOp("-"),
	wasm.OpF32Mul:      infixOp("*"),
	wasm.OpF32Div:      infixOp("/"),
	wasm.OpF32Min:      prefixOp("min"),
	wasm.OpF32Max:      prefixOp("max"),
	wasm.OpF32Copysign: prefixOp("copysign"),
	wasm.OpF64Add:      infixOp("+"),
	wasm.OpF64Sub:      infixOp("-"),
	wasm.OpF64Mul:      infixOp("*"),
	wasm.OpF64Div:      infixOp("/"),
	wasm.OpF64Min:      prefixOp("min"),
	wasm.OpF64Max:      prefixOp("max"),
	wasm.OpF64Copysign: prefixOp("copysign"),
}

// BinaryName is the dialect spelling of a binary operator and whether it
// prints infix.
func BinaryName(op wasm.Opcode) (string, bool) {
	if b, ok := binaryNames[op]; ok {
		return b.name, b.infix
	}
	return op.String(), false
}

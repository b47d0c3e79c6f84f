// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package ir_test

import (
	"testing"

	"github.com/dotandev/wasmdec/internal/ir"
	"github.com/dotandev/wasmdec/internal/wasm"
	"github.com/stretchr/testify/assert"
)

func TestMapExpr_RewritesNestedParams(t *testing.T) {
	tree := &ir.Binary{
		Op: wasm.OpI32Add,
		X:  &ir.Param{Index: 0, T: wasm.I32},
		Y: &ir.Select{
			Cond:  &ir.Param{Index: 1, T: wasm.I32},
			True:  ir.ConstI32(1),
			False: &ir.Param{Index: 0, T: wasm.I32},
		},
		T: wasm.I32,
	}

	got := ir.MapExpr(tree, func(e ir.Expr) ir.Expr {
		if p, ok := e.(*ir.Param); ok {
			return &ir.GetLocal{Index: 10 + p.Index, T: p.T}
		}
		return e
	})

	bin := got.(*ir.Binary)
	assert.Equal(t, &ir.GetLocal{Index: 10, T: wasm.I32}, bin.X)
	sel := bin.Y.(*ir.Select)
	assert.Equal(t, &ir.GetLocal{Index: 11, T: wasm.I32}, sel.Cond)
	assert.Equal(t, int64(1), sel.True.(*ir.Const).I)
	assert.Equal(t, &ir.GetLocal{Index: 10, T: wasm.I32}, sel.False)
}

func TestMapExpr_ReplacesRoot(t *testing.T) {
	got := ir.MapExpr(&ir.Param{Index: 2, T: wasm.F64}, func(e ir.Expr) ir.Expr {
		if _, ok := e.(*ir.Param); ok {
			return ir.ConstF64(0)
		}
		return e
	})
	assert.IsType(t, &ir.Const{}, got)
}

func TestMapStmt_CoversBothStoreOperands(t *testing.T) {
	st := &ir.Store{
		Op:   wasm.OpI32Store,
		Addr: &ir.Param{Index: 0, T: wasm.I32},
		X:    &ir.Unary{Op: wasm.OpI32Eqz, X: &ir.Param{Index: 1, T: wasm.I32}, T: wasm.I32},
	}

	ir.MapStmt(st, func(e ir.Expr) ir.Expr {
		if p, ok := e.(*ir.Param); ok {
			return &ir.GetLocal{Index: p.Index, T: p.T}
		}
		return e
	})

	assert.Equal(t, &ir.GetLocal{Index: 0, T: wasm.I32}, st.Addr)
	un := st.X.(*ir.Unary)
	assert.Equal(t, &ir.GetLocal{Index: 1, T: wasm.I32}, un.X)
}

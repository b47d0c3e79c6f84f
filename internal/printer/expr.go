// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package printer

import (
	"strconv"
	"strings"

	"github.com/dotandev/wasmdec/internal/ir"
	"github.com/dotandev/wasmdec/internal/wasm"
)

func stmtString(c *ir.CFG, s ir.Stmt) string {
	switch x := s.(type) {
	case *ir.Nop:
		return "nop"
	case *ir.Drop:
		return "drop(" + exprString(c, x.X) + ")"
	case *ir.SetLocal:
		return c.Locals[x.Index].Name + " = " + exprString(c, x.X)
	case *ir.TupleSet:
		names := make([]string, len(x.Indices))
		for i, li := range x.Indices {
			names[i] = c.Locals[li].Name
		}
		return strings.Join(names, ", ") + " = " + exprString(c, x.X)
	case *ir.SetGlobal:
		return "global[" + strconv.FormatUint(uint64(x.Index), 10) + "] = " + exprString(c, x.X)
	case *ir.Store:
		return "*(" + addrString(c, x.Addr, x.Offset) + ") = " + exprString(c, x.X)
	case *ir.CallStmt:
		return exprString(c, x.X)
	default:
		return "?"
	}
}

func exprString(c *ir.CFG, e ir.Expr) string {
	switch x := e.(type) {
	case *ir.Const:
		return constString(x)
	case *ir.Param:
		return "b" + strconv.Itoa(x.Index)
	case *ir.GetLocal:
		return c.Locals[x.Index].Name
	case *ir.GetGlobal:
		return "globals[" + strconv.FormatUint(uint64(x.Index), 10) + "]"
	case *ir.Unary:
		return ir.UnaryName(x.Op) + "(" + exprString(c, x.X) + ")"
	case *ir.Binary:
		name, infix := ir.BinaryName(x.Op)
		if infix {
			return exprString(c, x.X) + " " + name + " " + exprString(c, x.Y)
		}
		return name + " " + exprString(c, x.X) + " " + exprString(c, x.Y)
	case *ir.Select:
		return "select(" + exprString(c, x.Cond) + " ? " + exprString(c, x.True) + " : " + exprString(c, x.False) + ")"
	case *ir.Call:
		return "func" + strconv.FormatUint(uint64(x.Func), 10) + argList(c, x.Args)
	case *ir.CallIndirect:
		return exprString(c, x.Callee) + argList(c, x.Args)
	case *ir.Load:
		return "memory[" + addrString(c, x.Addr, x.Offset) + "]"
	case *ir.MemorySize:
		return "memory.size"
	case *ir.MemoryGrow:
		return "memory_grow(" + exprString(c, x.Delta) + ")"
	case *ir.Bottom:
		return "bottom"
	default:
		return "?"
	}
}

func argList(c *ir.CFG, args []ir.Expr) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = exprString(c, a)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// addrString folds a nonzero static offset into the printed address.
func addrString(c *ir.CFG, addr ir.Expr, offset uint32) string {
	s := exprString(c, addr)
	if offset != 0 {
		s += " + " + strconv.FormatUint(uint64(offset), 10)
	}
	return s
}

func constString(x *ir.Const) string {
	switch x.T {
	case wasm.F32:
		return strconv.FormatFloat(x.F, 'f', -1, 32)
	case wasm.F64:
		return strconv.FormatFloat(x.F, 'f', -1, 64)
	default:
		return strconv.FormatInt(x.I, 10)
	}
}

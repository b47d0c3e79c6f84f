// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package ir

import (
	"github.com/dotandev/wasmdec/internal/errors"
	"github.com/dotandev/wasmdec/internal/wasm"
)

// =============================================================================
// Annotated stream
// =============================================================================

// ItemKind discriminates stream items.
type ItemKind int

const (
	ItemStmt ItemKind = iota
	ItemBlock
	ItemLoop
	ItemIf
	ItemElse
	ItemEnd
	ItemBr
	ItemBrIf
	ItemBrTable
	ItemReturn
	ItemUnreachable
)

// Item is one element of the annotated instruction stream: a statement, a
// control construct boundary, or a branch, with every operand already
// resolved to an expression tree.
type Item struct {
	Kind   ItemKind
	Offset int

	Stmt    Stmt           // ItemStmt
	Sig     *wasm.FuncType // ItemBlock, ItemLoop, ItemIf
	Cond    Expr           // ItemIf, ItemBrIf condition; ItemBrTable index
	Depth   uint32         // ItemBr, ItemBrIf relative target
	Depths  []uint32       // ItemBrTable case targets
	Default uint32         // ItemBrTable default target
	Args    []Expr         // branch or construct-entry arguments
	Reached bool           // ItemElse, ItemEnd: the preceding code falls through
}

// Stream is a function body after expression building: all operand-stack
// discipline is resolved, dead code is gone, and control structure remains
// as nesting items. Depths are relative to the item's construct nesting,
// exactly as in the bytecode.
type Stream struct {
	FuncIndex uint32
	Name      string
	Type      *wasm.FuncType
	Locals    []Local
	NumParams int
	// UserLocals is the size of the bytecode's local index space: parameters
	// plus declared locals. Slots past it are synthesized temporaries.
	UserLocals int
	Items      []Item
}

// =============================================================================
// Expression builder
// =============================================================================

type frameKind int

const (
	frameFunc frameKind = iota
	frameBlock
	frameLoop
	frameIf
	frameElse
)

type buildFrame struct {
	kind   frameKind
	sig    *wasm.FuncType
	height int // operand stack floor; entries below belong to enclosing frames
}

type streamBuilder struct {
	mod    *wasm.Module
	fn     *wasm.Function
	stream *Stream
	stack  []Expr
	frames []buildFrame

	// Local slots at or past this index are synthesized temporaries,
	// which are assigned exactly once and safe to keep pending across a
	// region transition.
	numUserLocals int

	// After an unconditional terminator the rest of the frame is
	// unreachable: instructions are swallowed without building anything,
	// with deadDepth tracking constructs opened inside the dead code.
	dead      bool
	deadDepth int
}

// BuildStream runs the expression builder over a decoded function body.
func BuildStream(fn *wasm.Function, mod *wasm.Module) (*Stream, error) {
	b := &streamBuilder{
		mod: mod,
		fn:  fn,
		stream: &Stream{
			FuncIndex: fn.Index,
			Name:      fn.Name,
			Type:      fn.Type,
			Locals:    NewLocals(fn),
			NumParams: len(fn.Type.Params),
		},
		frames: []buildFrame{{kind: frameFunc, sig: fn.Type}},
	}
	b.numUserLocals = len(b.stream.Locals)
	b.stream.UserLocals = b.numUserLocals

	for i := range fn.Body {
		in := &fn.Body[i]
		var err error
		if b.dead {
			err = b.deadOp(in)
		} else {
			err = b.op(in)
		}
		if err != nil {
			return nil, err
		}
	}
	if len(b.frames) != 0 {
		off := 0
		if n := len(fn.Body); n > 0 {
			off = fn.Body[n-1].Offset
		}
		return nil, errors.WrapMalformed(off, "function body ends inside a construct")
	}
	return b.stream, nil
}

// deadOp swallows an instruction inside unreachable code. Only the else or
// end that closes the dead frame re-enters reachable building.
func (b *streamBuilder) deadOp(in *wasm.Instr) error {
	switch in.Op {
	case wasm.OpBlock, wasm.OpLoop, wasm.OpIf:
		b.deadDepth++
	case wasm.OpElse:
		if b.deadDepth > 0 {
			return nil
		}
		f := b.top()
		if f.kind != frameIf {
			return errors.WrapMalformed(in.Offset, "else outside an if construct")
		}
		f.kind = frameElse
		b.emit(Item{Kind: ItemElse, Offset: in.Offset})
		b.stack = b.stack[:f.height]
		b.pushParams(f.sig.Params)
		b.dead = false
	case wasm.OpEnd:
		if b.deadDepth > 0 {
			b.deadDepth--
			return nil
		}
		f := b.popFrame()
		b.stack = b.stack[:f.height]
		b.emit(Item{Kind: ItemEnd, Offset: in.Offset})
		if f.kind != frameFunc {
			b.pushParams(f.sig.Results)
		}
		b.dead = false
	}
	return nil
}

// op builds one reachable instruction.
func (b *streamBuilder) op(in *wasm.Instr) error {
	off := in.Offset
	if len(b.frames) == 0 {
		return errors.WrapMalformed(off, "instruction after the function's final end")
	}
	switch in.Op {
	case wasm.OpNop:
		b.stmt(off, &Nop{})

	case wasm.OpUnreachable:
		b.flushDrops(off)
		b.emit(Item{Kind: ItemUnreachable, Offset: off})
		b.dead = true

	case wasm.OpBlock, wasm.OpLoop:
		sig := in.Block
		b.spill(off, len(sig.Params))
		args, err := b.popN(off, sig.Params)
		if err != nil {
			return err
		}
		kind, fkind := ItemBlock, frameBlock
		if in.Op == wasm.OpLoop {
			kind, fkind = ItemLoop, frameLoop
		}
		b.emit(Item{Kind: kind, Offset: off, Sig: sig, Args: args})
		b.frames = append(b.frames, buildFrame{kind: fkind, sig: sig, height: len(b.stack)})
		b.pushParams(sig.Params)

	case wasm.OpIf:
		sig := in.Block
		cond, err := b.popTyped(off, wasm.I32)
		if err != nil {
			return err
		}
		b.spill(off, len(sig.Params))
		args, err := b.popN(off, sig.Params)
		if err != nil {
			return err
		}
		b.emit(Item{Kind: ItemIf, Offset: off, Sig: sig, Cond: cond, Args: args})
		b.frames = append(b.frames, buildFrame{kind: frameIf, sig: sig, height: len(b.stack)})
		b.pushParams(sig.Params)

	case wasm.OpElse:
		f := b.top()
		if f.kind != frameIf {
			return errors.WrapMalformed(off, "else outside an if construct")
		}
		args, err := b.popN(off, f.sig.Results)
		if err != nil {
			return err
		}
		if len(b.stack) != f.height {
			return errors.WrapMalformed(off, "%d values left on the stack at else", len(b.stack)-f.height)
		}
		f.kind = frameElse
		b.emit(Item{Kind: ItemElse, Offset: off, Args: args, Reached: true})
		b.pushParams(f.sig.Params)

	case wasm.OpEnd:
		f := b.top()
		if f.kind == frameIf && !typesEqual(f.sig.Params, f.sig.Results) {
			return errors.WrapMalformed(off, "if without else must have matching parameter and result types")
		}
		args, err := b.popN(off, f.sig.Results)
		if err != nil {
			return err
		}
		if len(b.stack) != f.height {
			return errors.WrapMalformed(off, "%d values left on the stack at end of construct", len(b.stack)-f.height)
		}
		b.popFrame()
		b.emit(Item{Kind: ItemEnd, Offset: off, Args: args, Reached: true})
		if f.kind != frameFunc {
			b.pushParams(f.sig.Results)
		}

	case wasm.OpBr:
		f, err := b.frameAt(off, in.Idx)
		if err != nil {
			return err
		}
		args, err := b.popN(off, branchTypes(f))
		if err != nil {
			return err
		}
		b.flushDrops(off)
		if f.kind == frameFunc {
			b.emit(Item{Kind: ItemReturn, Offset: off, Args: args})
		} else {
			b.emit(Item{Kind: ItemBr, Offset: off, Depth: in.Idx, Args: args})
		}
		b.dead = true

	case wasm.OpBrIf:
		cond, err := b.popTyped(off, wasm.I32)
		if err != nil {
			return err
		}
		f, err := b.frameAt(off, in.Idx)
		if err != nil {
			return err
		}
		types := branchTypes(f)
		b.spill(off, len(types))
		args, err := b.popN(off, types)
		if err != nil {
			return err
		}
		b.emit(Item{Kind: ItemBrIf, Offset: off, Depth: in.Idx, Cond: cond, Args: args})
		// Not taken: the branch values stay live, re-seeded as parameters
		// of the fallthrough region.
		b.pushParams(types)

	case wasm.OpBrTable:
		idx, err := b.popTyped(off, wasm.I32)
		if err != nil {
			return err
		}
		def, err := b.frameAt(off, in.Default)
		if err != nil {
			return err
		}
		types := branchTypes(def)
		for _, d := range in.Labels {
			f, err := b.frameAt(off, d)
			if err != nil {
				return err
			}
			if !typesEqual(branchTypes(f), types) {
				return errors.WrapMalformed(off, "br_table targets disagree on branch types")
			}
		}
		args, err := b.popN(off, types)
		if err != nil {
			return err
		}
		b.flushDrops(off)
		b.emit(Item{Kind: ItemBrTable, Offset: off, Depths: in.Labels, Default: in.Default, Cond: idx, Args: args})
		b.dead = true

	case wasm.OpReturn:
		args, err := b.popN(off, b.fn.Type.Results)
		if err != nil {
			return err
		}
		b.flushDrops(off)
		b.emit(Item{Kind: ItemReturn, Offset: off, Args: args})
		b.dead = true

	case wasm.OpDrop:
		e, err := b.popAny(off)
		if err != nil {
			return err
		}
		b.stmt(off, &Drop{X: e})

	case wasm.OpSelect:
		cond, err := b.popTyped(off, wasm.I32)
		if err != nil {
			return err
		}
		onFalse, err := b.popAny(off)
		if err != nil {
			return err
		}
		onTrue, err := b.popAny(off)
		if err != nil {
			return err
		}
		if onTrue.Type() != onFalse.Type() {
			return errors.WrapMalformed(off, "select operands disagree: %s vs %s", onTrue.Type(), onFalse.Type())
		}
		b.push(&Select{Cond: cond, True: onTrue, False: onFalse})

	case wasm.OpLocalGet:
		t, err := b.localType(off, in.Idx)
		if err != nil {
			return err
		}
		b.push(&GetLocal{Index: int(in.Idx), T: t})

	case wasm.OpLocalSet:
		t, err := b.localType(off, in.Idx)
		if err != nil {
			return err
		}
		v, err := b.popTyped(off, t)
		if err != nil {
			return err
		}
		b.stmt(off, &SetLocal{Index: int(in.Idx), X: v})

	case wasm.OpLocalTee:
		t, err := b.localType(off, in.Idx)
		if err != nil {
			return err
		}
		v, err := b.popTyped(off, t)
		if err != nil {
			return err
		}
		b.stmt(off, &SetLocal{Index: int(in.Idx), X: v})
		b.push(&GetLocal{Index: int(in.Idx), T: t})

	case wasm.OpGlobalGet:
		t, err := b.globalType(off, in.Idx)
		if err != nil {
			return err
		}
		b.push(&GetGlobal{Index: in.Idx, T: t})

	case wasm.OpGlobalSet:
		t, err := b.globalType(off, in.Idx)
		if err != nil {
			return err
		}
		v, err := b.popTyped(off, t)
		if err != nil {
			return err
		}
		b.stmt(off, &SetGlobal{Index: in.Idx, X: v})

	case wasm.OpCall:
		ft, err := b.mod.TypeOf(in.Idx)
		if err != nil {
			return errors.WrapMalformed(off, "call target %d out of range", in.Idx)
		}
		args, err := b.popN(off, ft.Params)
		if err != nil {
			return err
		}
		switch len(ft.Results) {
		case 0:
			b.stmt(off, &CallStmt{X: &Call{Func: in.Idx, Args: args}})
		case 1:
			b.push(&Call{Func: in.Idx, Args: args, T: ft.Results[0]})
		default:
			b.tupleAssign(off, &Call{Func: in.Idx, Args: args, T: ft.Results[0]}, ft.Results)
		}

	case wasm.OpCallIndirect:
		ft := &b.mod.Types[in.Idx]
		callee, err := b.popTyped(off, wasm.I32)
		if err != nil {
			return err
		}
		args, err := b.popN(off, ft.Params)
		if err != nil {
			return err
		}
		switch len(ft.Results) {
		case 0:
			b.stmt(off, &CallStmt{X: &CallIndirect{TypeIndex: in.Idx, Callee: callee, Args: args}})
		case 1:
			b.push(&CallIndirect{TypeIndex: in.Idx, Callee: callee, Args: args, T: ft.Results[0]})
		default:
			ci := &CallIndirect{TypeIndex: in.Idx, Callee: callee, Args: args, T: ft.Results[0]}
			b.tupleAssign(off, ci, ft.Results)
		}

	case wasm.OpI32Const:
		b.push(&Const{T: wasm.I32, I: in.I64})
	case wasm.OpI64Const:
		b.push(&Const{T: wasm.I64, I: in.I64})
	case wasm.OpF32Const:
		b.push(&Const{T: wasm.F32, F: float64(in.F32)})
	case wasm.OpF64Const:
		b.push(&Const{T: wasm.F64, F: in.F64})

	default:
		sig, ok := opSigs[in.Op]
		if !ok {
			return errors.WrapInvariant("build", "no signature for opcode %s", in.Op)
		}
		switch sig.kind {
		case sigUnary:
			x, err := b.popTyped(off, sig.pops[0])
			if err != nil {
				return err
			}
			b.push(&Unary{Op: in.Op, X: x, T: sig.push})
		case sigBinary:
			y, err := b.popTyped(off, sig.pops[1])
			if err != nil {
				return err
			}
			x, err := b.popTyped(off, sig.pops[0])
			if err != nil {
				return err
			}
			b.push(&Binary{Op: in.Op, X: x, Y: y, T: sig.push})
		case sigLoad:
			addr, err := b.popTyped(off, wasm.I32)
			if err != nil {
				return err
			}
			b.push(&Load{Op: in.Op, Addr: addr, Offset: in.MemOff, T: sig.push})
		case sigStore:
			v, err := b.popTyped(off, sig.pops[1])
			if err != nil {
				return err
			}
			addr, err := b.popTyped(off, wasm.I32)
			if err != nil {
				return err
			}
			b.stmt(off, &Store{Op: in.Op, Addr: addr, Offset: in.MemOff, X: v})
		case sigMemorySize:
			b.push(&MemorySize{})
		case sigMemoryGrow:
			d, err := b.popTyped(off, wasm.I32)
			if err != nil {
				return err
			}
			b.push(&MemoryGrow{Delta: d})
		}
	}
	return nil
}

// =============================================================================
// Builder stack and frame helpers
// =============================================================================

func (b *streamBuilder) emit(it Item) {
	b.stream.Items = append(b.stream.Items, it)
}

func (b *streamBuilder) stmt(off int, s Stmt) {
	b.emit(Item{Kind: ItemStmt, Offset: off, Stmt: s})
}

func (b *streamBuilder) push(e Expr) {
	b.stack = append(b.stack, e)
}

func (b *streamBuilder) pushParams(types []wasm.ValType) {
	for i, t := range types {
		b.push(&Param{Index: i, T: t})
	}
}

func (b *streamBuilder) top() *buildFrame {
	return &b.frames[len(b.frames)-1]
}

func (b *streamBuilder) popFrame() buildFrame {
	f := b.frames[len(b.frames)-1]
	b.frames = b.frames[:len(b.frames)-1]
	return f
}

func (b *streamBuilder) frameAt(off int, depth uint32) (*buildFrame, error) {
	if int(depth) >= len(b.frames) {
		return nil, errors.WrapMalformed(off, "branch depth %d exceeds block nesting %d", depth, len(b.frames)-1)
	}
	return &b.frames[len(b.frames)-1-int(depth)], nil
}

// branchTypes is the argument list a branch to the frame carries: loop
// headers take the construct parameters, everything else the results.
func branchTypes(f *buildFrame) []wasm.ValType {
	if f.kind == frameLoop {
		return f.sig.Params
	}
	return f.sig.Results
}

func (b *streamBuilder) localType(off int, idx uint32) (wasm.ValType, error) {
	if int(idx) >= b.numUserLocals {
		return 0, errors.WrapMalformed(off, "local index %d out of range", idx)
	}
	return b.stream.Locals[idx].Type, nil
}

func (b *streamBuilder) globalType(off int, idx uint32) (wasm.ValType, error) {
	if int(idx) >= len(b.mod.Globals) {
		return 0, errors.WrapMalformed(off, "global index %d out of range", idx)
	}
	return b.mod.Globals[idx].Type, nil
}

func (b *streamBuilder) popAny(off int) (Expr, error) {
	if len(b.stack) <= b.top().height {
		return nil, errors.WrapMalformed(off, "operand stack underflow")
	}
	e := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	return e, nil
}

func (b *streamBuilder) popTyped(off int, want wasm.ValType) (Expr, error) {
	e, err := b.popAny(off)
	if err != nil {
		return nil, err
	}
	if t := e.Type(); t != want {
		return nil, errors.WrapMalformed(off, "operand type mismatch: expected %s, got %s", want, t)
	}
	return e, nil
}

// popN pops len(types) values and returns them in stack order, first
// pushed first.
func (b *streamBuilder) popN(off int, types []wasm.ValType) ([]Expr, error) {
	n := len(types)
	if n == 0 {
		return nil, nil
	}
	floor := b.top().height
	if len(b.stack)-floor < n {
		return nil, errors.WrapMalformed(off, "operand stack underflow: need %d values, have %d", n, len(b.stack)-floor)
	}
	args := make([]Expr, n)
	copy(args, b.stack[len(b.stack)-n:])
	for i, a := range args {
		if t := a.Type(); t != types[i] {
			return nil, errors.WrapMalformed(off, "operand type mismatch at slot %d: expected %s, got %s", i, types[i], t)
		}
	}
	b.stack = b.stack[:len(b.stack)-n]
	return args, nil
}

// spill materializes unsafe pending values below the top keep slots into
// fresh temporaries, so no expression tree crosses the region boundary the
// caller is about to create. The assignment pins each effect to its
// original bytecode position.
func (b *streamBuilder) spill(off int, keep int) {
	floor := b.top().height
	hi := len(b.stack) - keep
	for i := floor; i < hi; i++ {
		e := b.stack[i]
		if transitionSafe(e, b.numUserLocals) {
			continue
		}
		idx := b.addTemp(e.Type())
		b.stmt(off, &SetLocal{Index: idx, X: e})
		b.stack[i] = &GetLocal{Index: idx, T: e.Type()}
	}
}

// transitionSafe reports whether a pending value may stay on the stack
// across a region boundary: literals, and reads of single-assignment
// temporaries.
func transitionSafe(e Expr, numUserLocals int) bool {
	switch x := e.(type) {
	case *Const:
		return true
	case *GetLocal:
		return x.Index >= numUserLocals
	}
	return false
}

// flushDrops drains the current frame's leftover stack values as explicit
// Drop statements, top first, ahead of an unconditional terminator.
func (b *streamBuilder) flushDrops(off int) {
	floor := b.top().height
	for len(b.stack) > floor {
		e := b.stack[len(b.stack)-1]
		b.stack = b.stack[:len(b.stack)-1]
		b.stmt(off, &Drop{X: e})
	}
}

func (b *streamBuilder) addTemp(t wasm.ValType) int {
	idx := len(b.stream.Locals)
	b.stream.Locals = append(b.stream.Locals, Local{Type: t, Name: localName(t, idx-b.stream.NumParams)})
	return idx
}

// tupleAssign lowers a multi-result call: one fresh temporary per result,
// assigned through a single TupleSet, with reads pushed in result order.
func (b *streamBuilder) tupleAssign(off int, call Expr, results []wasm.ValType) {
	idxs := make([]int, len(results))
	for i, t := range results {
		idxs[i] = b.addTemp(t)
	}
	b.stmt(off, &TupleSet{Indices: idxs, X: call})
	for i, t := range results {
		b.push(&GetLocal{Index: idxs[i], T: t})
	}
}

func typesEqual(a, b []wasm.ValType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// =============================================================================
// CFG builder
// =============================================================================

type cfgFrame struct {
	kind    frameKind
	sig     *wasm.FuncType
	join    *Region
	header  *Region // loop
	falseR  *Region // if: pending false arm
	hasElse bool
}

// BuildCFG turns an annotated stream into a region graph. Every construct
// entry opens fresh regions; trivial chains are left for the fusion pass.
func BuildCFG(s *Stream) (*CFG, error) {
	c := &CFG{
		FuncIndex:  s.FuncIndex,
		FuncName:   s.Name,
		Type:       s.Type,
		Locals:     s.Locals,
		NumParams:  s.NumParams,
		UserLocals: s.UserLocals,
	}
	c.Entry = c.NewRegion(nil)
	c.Exit = c.NewRegion(nil)

	// Shared return region for conditional and table branches that target
	// the function frame, created on first use.
	var ret *Region
	returnRegion := func() *Region {
		if ret == nil {
			ret = c.NewRegion(s.Type.Results)
			ret.Term = Terminator{Kind: TermReturn, Args: ParamRefs(s.Type.Results)}
			Connect(ret, c.Exit, nil)
		}
		return ret
	}

	cur := c.Entry
	frames := []cfgFrame{{kind: frameFunc, sig: s.Type}}

	frameAt := func(depth uint32) (*cfgFrame, error) {
		if int(depth) >= len(frames) {
			return nil, errors.WrapInvariant("cfg", "branch depth %d exceeds stream nesting %d", depth, len(frames)-1)
		}
		return &frames[len(frames)-1-int(depth)], nil
	}
	branchTarget := func(depth uint32) (*Region, error) {
		f, err := frameAt(depth)
		if err != nil {
			return nil, err
		}
		switch f.kind {
		case frameFunc:
			return returnRegion(), nil
		case frameLoop:
			return f.header, nil
		default:
			return f.join, nil
		}
	}
	terminate := func(t Terminator) error {
		if cur.Term.Kind != TermNone {
			return errors.WrapInvariant("cfg", "region %d terminated twice", cur.ID)
		}
		cur.Term = t
		return nil
	}

	for i := range s.Items {
		it := &s.Items[i]
		switch it.Kind {
		case ItemStmt:
			if cur.Term.Kind != TermNone {
				return nil, errors.WrapInvariant("cfg", "statement after terminator in region %d", cur.ID)
			}
			cur.Stmts = append(cur.Stmts, it.Stmt)

		case ItemBlock:
			join := c.NewRegion(it.Sig.Results)
			inner := c.NewRegion(it.Sig.Params)
			if err := terminate(Terminator{Kind: TermBr}); err != nil {
				return nil, err
			}
			Connect(cur, inner, it.Args)
			frames = append(frames, cfgFrame{kind: frameBlock, sig: it.Sig, join: join})
			cur = inner

		case ItemLoop:
			join := c.NewRegion(it.Sig.Results)
			header := c.NewRegion(it.Sig.Params)
			if err := terminate(Terminator{Kind: TermBr}); err != nil {
				return nil, err
			}
			Connect(cur, header, it.Args)
			frames = append(frames, cfgFrame{kind: frameLoop, sig: it.Sig, join: join, header: header})
			cur = header

		case ItemIf:
			join := c.NewRegion(it.Sig.Results)
			trueR := c.NewRegion(it.Sig.Params)
			falseR := c.NewRegion(it.Sig.Params)
			if err := terminate(Terminator{Kind: TermBrIf, Cond: it.Cond}); err != nil {
				return nil, err
			}
			Connect(cur, trueR, it.Args)
			Connect(cur, falseR, it.Args)
			frames = append(frames, cfgFrame{kind: frameIf, sig: it.Sig, join: join, falseR: falseR})
			cur = trueR

		case ItemElse:
			f := &frames[len(frames)-1]
			if f.kind != frameIf || f.hasElse {
				return nil, errors.WrapInvariant("cfg", "else without an open if construct")
			}
			f.hasElse = true
			if it.Reached {
				if err := terminate(Terminator{Kind: TermBr}); err != nil {
					return nil, err
				}
				Connect(cur, f.join, it.Args)
			}
			cur = f.falseR

		case ItemEnd:
			if len(frames) == 0 {
				return nil, errors.WrapInvariant("cfg", "end without an open construct")
			}
			f := frames[len(frames)-1]
			frames = frames[:len(frames)-1]
			if f.kind == frameFunc {
				if it.Reached {
					if err := terminate(Terminator{Kind: TermReturn, Args: it.Args}); err != nil {
						return nil, err
					}
					Connect(cur, c.Exit, nil)
				}
				continue
			}
			if it.Reached {
				if err := terminate(Terminator{Kind: TermBr}); err != nil {
					return nil, err
				}
				Connect(cur, f.join, it.Args)
			}
			if f.kind == frameIf && !f.hasElse {
				// One-armed if: the false arm forwards its parameters.
				f.falseR.Term = Terminator{Kind: TermBr}
				Connect(f.falseR, f.join, ParamRefs(f.sig.Params))
			}
			cur = f.join

		case ItemBr:
			target, err := branchTarget(it.Depth)
			if err != nil {
				return nil, err
			}
			if err := terminate(Terminator{Kind: TermBr}); err != nil {
				return nil, err
			}
			Connect(cur, target, it.Args)

		case ItemBrIf:
			taken, err := branchTarget(it.Depth)
			if err != nil {
				return nil, err
			}
			fall := c.NewRegion(exprTypes(it.Args))
			if err := terminate(Terminator{Kind: TermBrIf, Cond: it.Cond}); err != nil {
				return nil, err
			}
			Connect(cur, taken, it.Args)
			Connect(cur, fall, it.Args)
			cur = fall

		case ItemBrTable:
			if err := terminate(Terminator{Kind: TermBrTable, Cond: it.Cond}); err != nil {
				return nil, err
			}
			for _, d := range it.Depths {
				target, err := branchTarget(d)
				if err != nil {
					return nil, err
				}
				Connect(cur, target, it.Args)
			}
			target, err := branchTarget(it.Default)
			if err != nil {
				return nil, err
			}
			Connect(cur, target, it.Args)

		case ItemReturn:
			if err := terminate(Terminator{Kind: TermReturn, Args: it.Args}); err != nil {
				return nil, err
			}
			Connect(cur, c.Exit, nil)

		case ItemUnreachable:
			if err := terminate(Terminator{Kind: TermUnreachable}); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// BuildFunc is the two-stage pipeline in one call.
func BuildFunc(fn *wasm.Function, mod *wasm.Module) (*CFG, error) {
	s, err := BuildStream(fn, mod)
	if err != nil {
		return nil, err
	}
	return BuildCFG(s)
}

// ParamRefs builds the identity argument tuple for a region with the given
// parameter types: param_0, param_1, ... in order.
func ParamRefs(types []wasm.ValType) []Expr {
	if len(types) == 0 {
		return nil
	}
	refs := make([]Expr, len(types))
	for i, t := range types {
		refs[i] = &Param{Index: i, T: t}
	}
	return refs
}

func exprTypes(exprs []Expr) []wasm.ValType {
	if len(exprs) == 0 {
		return nil
	}
	types := make([]wasm.ValType, len(exprs))
	for i, e := range exprs {
		types[i] = e.Type()
	}
	return types
}

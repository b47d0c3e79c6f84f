// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"

	"github.com/dotandev/wasmdec/internal/wasm"
	"github.com/dotandev/wasmdec/internal/wasm/wasmtest"
)

// Generate a sample wasm module for exercising the decompiler by hand
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run generate_sample_module.go <output_file>")
		os.Exit(1)
	}

	filename := os.Args[1]

	b := wasmtest.NewModule()

	logT := b.Type([]wasm.ValType{wasm.I32}, nil)
	binary := b.Type([]wasm.ValType{wasm.I32, wasm.I32}, []wasm.ValType{wasm.I32})
	unary := b.Type([]wasm.ValType{wasm.I32}, []wasm.ValType{wasm.I32})

	b.ImportFunc("env", "log", logT)
	b.Global(wasm.I32, true)
	b.WithMemory()

	// Straight-line arithmetic, the simplest possible output.
	add := b.Func(binary, nil, wasmtest.Body(
		wasmtest.LocalGet(0),
		wasmtest.LocalGet(1),
		wasmtest.Op(wasm.OpI32Add),
	))
	b.Export("add", add)
	b.Name(add, "add")

	// A comparison feeding a value-producing if/else.
	min := b.Func(binary, nil, wasmtest.Body(
		wasmtest.LocalGet(0),
		wasmtest.LocalGet(1),
		wasmtest.Op(wasm.OpI32LtS),
		wasmtest.IfElse(byte(wasm.I32),
			wasmtest.LocalGet(0),
			wasmtest.LocalGet(1),
		),
	))
	b.Export("min", min)
	b.Name(min, "min")

	// A self-branching loop that the recovery pass turns into a while.
	countdown := b.Func(unary, nil, wasmtest.Body(
		wasmtest.Loop(wasmtest.Void,
			wasmtest.LocalGet(0),
			wasmtest.I32Const(1),
			wasmtest.Op(wasm.OpI32Sub),
			wasmtest.LocalTee(0),
			wasmtest.BrIf(0),
		),
		wasmtest.LocalGet(0),
	))
	b.Export("countdown", countdown)
	b.Name(countdown, "countdown")

	// A br_table dispatch that becomes a switch.
	dispatch := b.Func(logT, nil, wasmtest.Body(
		wasmtest.Block(wasmtest.Void,
			wasmtest.Block(wasmtest.Void,
				wasmtest.LocalGet(0),
				wasmtest.BrTable([]uint32{0}, 1),
			),
			wasmtest.LocalGet(0),
			wasmtest.Call(0),
		),
	))
	b.Export("dispatch", dispatch)
	b.Name(dispatch, "dispatch")

	data := b.Build()

	if err := os.WriteFile(filename, data, 0644); err != nil {
		fmt.Printf("Failed to write module file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Sample module generated: %s\n", filename)
	fmt.Printf("Size: %d bytes\n", len(data))
	fmt.Printf("Functions: 5 (1 imported)\n")
	fmt.Println("\nTo decompile it:")
	fmt.Printf("  ./wasmdec decompile %s\n", filename)
}

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

	"github.com/dotandev/wasmdec/internal/cache"
	"github.com/dotandev/wasmdec/internal/wasm"
	"github.com/dotandev/wasmdec/internal/wasm/wasmtest"
)

func main() {
	fmt.Println("=== Module Hash Consistency Verification ===")

	tests := []struct {
		name        string
		buildModule func() []byte
	}{
		{
			name: "Empty Module",
			buildModule: func() []byte {
				return wasmtest.NewModule().Build()
			},
		},
		{
			name: "Identity Function",
			buildModule: func() []byte {
				b := wasmtest.NewModule()
				ident := b.Type([]wasm.ValType{wasm.I32}, []wasm.ValType{wasm.I32})
				b.Func(ident, nil, wasmtest.Body(wasmtest.LocalGet(0)))
				b.Export("identity", 0)
				return b.Build()
			},
		},
		{
			name: "Imports And Globals",
			buildModule: func() []byte {
				b := wasmtest.NewModule()
				void := b.Type(nil, nil)
				b.ImportFunc("env", "log", void)
				b.Global(wasm.I32, true)
				b.Func(void, nil, wasmtest.Body(wasmtest.Op(wasm.OpNop)))
				return b.Build()
			},
		},
		{
			name: "Branching Body",
			buildModule: func() []byte {
				b := wasmtest.NewModule()
				unary := b.Type([]wasm.ValType{wasm.I32}, []wasm.ValType{wasm.I32})
				b.Func(unary, nil, wasmtest.Body(
					wasmtest.LocalGet(0),
					wasmtest.If(wasmtest.Void, wasmtest.I32Const(1), wasmtest.Op(wasm.OpReturn)),
					wasmtest.I32Const(0),
				))
				return b.Build()
			},
		},
	}

	allPassed := true
	seen := make(map[string]string)

	for _, tt := range tests {
		data := tt.buildModule()

		// Hash it 1000 times
		hashes := make(map[string]int)
		for i := 0; i < 1000; i++ {
			hashes[cache.HashModule(data)]++
		}

		// Should have exactly 1 unique hash
		if len(hashes) != 1 {
			fmt.Printf("%s: FAIL - Expected 1 unique hash, got %d\n", tt.name, len(hashes))
			for hash, count := range hashes {
				fmt.Printf("     Hash: %s, Count: %d\n", hash, count)
			}
			allPassed = false
			continue
		}

		for hash := range hashes {
			if prev, dup := seen[hash]; dup {
				fmt.Printf("%s: FAIL - Hash collides with %q\n", tt.name, prev)
				allPassed = false
				continue
			}
			seen[hash] = tt.name
			fmt.Printf(" %s: SUCCESS\n", tt.name)
			fmt.Printf("   Hash: %s\n", hash)
		}
	}

	fmt.Println()
	if allPassed {
		fmt.Println(" All tests passed! Hash consistency verified across 4,000 operations.")
	} else {
		fmt.Println("  Some tests failed. Please review the output above.")
	}
}

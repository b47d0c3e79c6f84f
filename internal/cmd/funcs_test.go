// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"strings"
	"testing"

	"github.com/dotandev/wasmdec/internal/wasm"
)

func TestWriteFuncTable(t *testing.T) {
	mod, err := wasm.ParseModule(identityModule(t))
	if err != nil {
		t.Fatalf("ParseModule failed: %v", err)
	}

	var sb strings.Builder
	if err := writeFuncTable(&sb, mod); err != nil {
		t.Fatalf("writeFuncTable failed: %v", err)
	}
	out := sb.String()

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines:\n%s", len(lines), out)
	}

	if !strings.HasPrefix(lines[0], "INDEX") {
		t.Errorf("expected header row, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "env.log") || !strings.Contains(lines[1], "imported") {
		t.Errorf("expected import row, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "identity") || !strings.Contains(lines[2], "(i32) -> (i32)") {
		t.Errorf("expected defined function row, got %q", lines[2])
	}
	if !strings.Contains(lines[2], "instrs") {
		t.Errorf("expected body size in instrs, got %q", lines[2])
	}
}

func TestWriteFuncTable_UnnamedFunction(t *testing.T) {
	mod, err := wasm.ParseModule(unnamedModule(t))
	if err != nil {
		t.Fatalf("ParseModule failed: %v", err)
	}

	var sb strings.Builder
	if err := writeFuncTable(&sb, mod); err != nil {
		t.Fatalf("writeFuncTable failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus 1 row, got %d lines", len(lines))
	}
	if !strings.Contains(lines[1], " - ") {
		t.Errorf("expected placeholder name for unnamed function, got %q", lines[1])
	}
}

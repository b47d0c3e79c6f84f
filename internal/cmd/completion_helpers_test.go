// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestCompleteStageFlag(t *testing.T) {
	completions, directive := completeStageFlag(nil, nil, "")
	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Fatalf("expected ShellCompDirectiveNoFileComp, got %v", directive)
	}
	if len(completions) != 2 {
		t.Fatalf("expected 2 stage completions, got %d", len(completions))
	}
}

func TestCompleteLogLevelFlag(t *testing.T) {
	completions, directive := completeLogLevelFlag(nil, nil, "")
	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Fatalf("expected ShellCompDirectiveNoFileComp, got %v", directive)
	}
	if len(completions) != 4 {
		t.Fatalf("expected 4 log level completions, got %d", len(completions))
	}
}

func TestCompleteNoOp(t *testing.T) {
	completions, directive := completeNoOp(nil, nil, "")
	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Fatalf("expected ShellCompDirectiveNoFileComp, got %v", directive)
	}
	if completions != nil {
		t.Fatalf("expected nil completions, got %v", completions)
	}
}

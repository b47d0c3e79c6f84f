// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"
)

var stageNames = []string{"raw\tControl-flow graph as built from the bytecode", "normalized\tControl-flow graph after normalization"}
var logLevelNames = []string{"debug\tEverything, including per-pass detail", "info\tNormal operation", "warn\tDegraded output and soft failures", "error\tHard failures only"}

func completeStageFlag(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return stageNames, cobra.ShellCompDirectiveNoFileComp
}

func completeLogLevelFlag(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return logLevelNames, cobra.ShellCompDirectiveNoFileComp
}

func completeNoOp(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return nil, cobra.ShellCompDirectiveNoFileComp
}

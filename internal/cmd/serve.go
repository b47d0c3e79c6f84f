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

package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dotandev/wasmdec/internal/daemon"
	"github.com/dotandev/wasmdec/internal/telemetry"
)

var (
	servePort      string
	serveAuthToken string
	serveWorkers   int
	serveTracing   bool
	serveOTLPURL   string
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "utility",
	Short:   "Start a JSON-RPC server for editor integrations",
	Long: `Start a JSON-RPC 2.0 server that exposes decompilation to remote tools and
IDEs. Modules travel as base64 bytes or as paths the server can read.

Methods:
  - Server.Decompile:     decompile a module (or one function) to pseudo-code
  - Server.ListFunctions: list a module's functions with signatures

Example:
  wasmdec serve --port 8080
  wasmdec serve --port 8080 --auth-token secret123`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// RPC responses are machine-read; never color them.
		color.NoColor = true

		tracing := serveTracing
		otlpURL := serveOTLPURL
		if appConfig != nil {
			tracing = tracing || appConfig.Telemetry
			if otlpURL == "" {
				otlpURL = appConfig.TelemetryURL
			}
		}

		if tracing {
			cleanup, err := telemetry.Init(ctx, telemetry.Config{
				Enabled:     true,
				ExporterURL: otlpURL,
				ServiceName: "wasmdec-daemon",
			})
			if err != nil {
				return fmt.Errorf("failed to initialize telemetry: %w", err)
			}
			registerShutdownHook("telemetry-flush", func(context.Context) error {
				cleanup()
				return nil
			})
		}

		server := daemon.NewServer(daemon.Config{
			Port:      servePort,
			AuthToken: serveAuthToken,
			Workers:   resolveWorkers(serveWorkers),
		})

		fmt.Printf("Starting wasmdec daemon on port %s\n", servePort)
		if serveAuthToken != "" {
			fmt.Println("Authentication: enabled")
		}

		// Interrupt handling lives in Execute; the canceled context shuts
		// the server down gracefully.
		return server.Start(ctx, servePort)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "8080", "Port to listen on")
	serveCmd.Flags().StringVar(&serveAuthToken, "auth-token", "", "Authentication token for API access")
	serveCmd.Flags().IntVar(&serveWorkers, "workers", 0, "Bound the per-module worker pool (0 = configured value or all CPUs)")
	serveCmd.Flags().BoolVar(&serveTracing, "tracing", false, "Enable OpenTelemetry tracing")
	serveCmd.Flags().StringVar(&serveOTLPURL, "otlp-url", "", "OTLP exporter endpoint (host:port)")

	rootCmd.AddCommand(serveCmd)
}

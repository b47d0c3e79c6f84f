// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package daemon exposes the decompiler over JSON-RPC for editor
// integrations: one long-lived process, Decompile and ListFunctions
// methods, optional bearer-token auth.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dotandev/wasmdec/internal/decompiler"
	"github.com/dotandev/wasmdec/internal/logger"
	"github.com/dotandev/wasmdec/internal/telemetry"
	"github.com/dotandev/wasmdec/internal/wasm"
)

// Server represents the JSON-RPC daemon server
type Server struct {
	dec       *decompiler.Decompiler
	authToken string
}

// Config holds daemon configuration
type Config struct {
	Port      string
	AuthToken string
	// Workers bounds the per-module decompilation pool.
	Workers int
}

// NewServer creates a new JSON-RPC server
func NewServer(config Config) *Server {
	return &Server{
		dec:       &decompiler.Decompiler{Workers: config.Workers},
		authToken: config.AuthToken,
	}
}

// DecompileRequest carries the module either as raw bytes (base64 in JSON)
// or as a path readable by the daemon. Func selects a single function
// index; nil means the whole module.
type DecompileRequest struct {
	Path   string  `json:"path,omitempty"`
	Module []byte  `json:"module,omitempty"`
	Func   *uint32 `json:"func,omitempty"`
}

// DecompileResponse represents the decompile RPC response
type DecompileResponse struct {
	Text     string `json:"text"`
	Funcs    int    `json:"funcs"`
	Degraded int    `json:"degraded"`
	Failed   int    `json:"failed"`
}

// ListFunctionsRequest represents the list_functions RPC request
type ListFunctionsRequest struct {
	Path   string `json:"path,omitempty"`
	Module []byte `json:"module,omitempty"`
}

// FunctionInfo describes one function in the module. BodySize counts
// decoded instructions; imported functions have none.
type FunctionInfo struct {
	Index     uint32 `json:"index"`
	Name      string `json:"name,omitempty"`
	Signature string `json:"signature"`
	BodySize  int    `json:"body_size"`
	Imported  bool   `json:"imported,omitempty"`
}

// ListFunctionsResponse represents the list_functions RPC response
type ListFunctionsResponse struct {
	Funcs []FunctionInfo `json:"funcs"`
}

// authenticate validates the authorization token
func (s *Server) authenticate(r *http.Request) bool {
	if s.authToken == "" {
		return true // No auth required
	}

	auth := r.Header.Get("Authorization")
	if auth == "" {
		return false
	}

	// Support "Bearer <token>" format
	if strings.HasPrefix(auth, "Bearer ") {
		token := strings.TrimPrefix(auth, "Bearer ")
		return token == s.authToken
	}

	return auth == s.authToken
}

func loadModule(path string, data []byte) (*wasm.Module, error) {
	switch {
	case len(data) > 0:
		return wasm.ParseModule(data)
	case path != "":
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read module: %w", err)
		}
		return wasm.ParseModule(raw)
	default:
		return nil, fmt.Errorf("request carries neither module bytes nor a path")
	}
}

// Decompile handles decompile RPC calls
func (s *Server) Decompile(r *http.Request, req *DecompileRequest, resp *DecompileResponse) error {
	if !s.authenticate(r) {
		return fmt.Errorf("unauthorized")
	}

	ctx, span := telemetry.GetTracer().Start(r.Context(), "rpc_decompile")
	defer span.End()

	mod, err := loadModule(req.Path, req.Module)
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.Int("module.funcs", int(mod.NumFuncs())))

	logger.Logger.Info("decompile rpc", "funcs", mod.NumFuncs(), "single", req.Func != nil)

	if req.Func != nil {
		res, err := s.dec.Function(ctx, mod, *req.Func)
		if err != nil {
			span.RecordError(err)
			return err
		}
		*resp = DecompileResponse{Text: res.Text, Funcs: 1}
		if res.Degraded {
			resp.Degraded = 1
		}
		return nil
	}

	out, err := s.dec.Module(ctx, mod)
	if err != nil {
		span.RecordError(err)
		return err
	}

	*resp = DecompileResponse{
		Text:     out.Text,
		Funcs:    len(out.Funcs),
		Degraded: out.Degraded,
		Failed:   out.Failed,
	}
	return nil
}

// ListFunctions handles list_functions RPC calls
func (s *Server) ListFunctions(r *http.Request, req *ListFunctionsRequest, resp *ListFunctionsResponse) error {
	if !s.authenticate(r) {
		return fmt.Errorf("unauthorized")
	}

	_, span := telemetry.GetTracer().Start(r.Context(), "rpc_list_functions")
	defer span.End()

	mod, err := loadModule(req.Path, req.Module)
	if err != nil {
		span.RecordError(err)
		return err
	}

	resp.Funcs = make([]FunctionInfo, 0, mod.NumFuncs())
	for i, imp := range mod.ImportedFuncs {
		info := FunctionInfo{
			Index:    uint32(i),
			Name:     imp.Module + "." + imp.Name,
			Imported: true,
		}
		if ft, err := mod.TypeOf(uint32(i)); err == nil {
			info.Signature = ft.String()
		}
		resp.Funcs = append(resp.Funcs, info)
	}
	for _, fn := range mod.Funcs {
		info := FunctionInfo{
			Index:    fn.Index,
			Name:     fn.Name,
			BodySize: len(fn.Body),
		}
		if ft, err := mod.TypeOf(fn.Index); err == nil {
			info.Signature = ft.String()
		}
		resp.Funcs = append(resp.Funcs, info)
	}

	span.SetAttributes(attribute.Int("module.funcs", len(resp.Funcs)))
	return nil
}

func (s *Server) handler() (http.Handler, error) {
	server := rpc.NewServer()
	server.RegisterCodec(json2.NewCodec(), "application/json")
	server.RegisterCodec(json2.NewCodec(), "application/json;charset=UTF-8")

	if err := server.RegisterService(s, ""); err != nil {
		return nil, fmt.Errorf("failed to register service: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/rpc", server)

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	return mux, nil
}

// Start starts the JSON-RPC server and serves until ctx is canceled.
func (s *Server) Start(ctx context.Context, port string) error {
	h, err := s.handler()
	if err != nil {
		return err
	}

	logger.Logger.Info("starting json-rpc server", "port", port)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: h,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Error("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Logger.Info("shutting down json-rpc server")
	return srv.Shutdown(context.Background())
}

// Copyright 2025 John Wang. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcptoolbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Builder assembles a [Config] and produces a [Server].
//
// Builder methods prefixed with With return a modified copy, so a base
// builder can be shared:
//
//	b := mcptoolbox.NewBuilder().
//		WithName("calculator").
//		WithVersion("v1.0.0").
//		WithInstructions("Basic arithmetic.")
//	srv := b.Build(toolbox)
type Builder struct {
	config Config
	logger *slog.Logger
}

// NewBuilder returns a Builder holding [DefaultConfig].
func NewBuilder() Builder {
	return Builder{config: DefaultConfig()}
}

// WithName sets the implementation name.
func (b Builder) WithName(name string) Builder {
	b.config.Name = name
	return b
}

// WithTitle sets the human-readable title.
func (b Builder) WithTitle(title string) Builder {
	b.config.Title = title
	return b
}

// WithVersion sets the implementation version.
func (b Builder) WithVersion(version string) Builder {
	b.config.Version = version
	return b
}

// WithInstructions sets the instructions reported to clients.
func (b Builder) WithInstructions(instructions string) Builder {
	b.config.Instructions = instructions
	return b
}

// WithTimeout sets the per-request timeout.
func (b Builder) WithTimeout(timeout time.Duration) Builder {
	b.config.Timeout = timeout
	return b
}

// WithLogger sets the logger. If never set, slog.Default() is used.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// SetName sets the implementation name in place.
func (b *Builder) SetName(name string) { b.config.Name = name }

// SetTitle sets the title in place.
func (b *Builder) SetTitle(title string) { b.config.Title = title }

// SetVersion sets the version in place.
func (b *Builder) SetVersion(version string) { b.config.Version = version }

// SetInstructions sets the instructions in place.
func (b *Builder) SetInstructions(instructions string) { b.config.Instructions = instructions }

// SetTimeout sets the per-request timeout in place.
func (b *Builder) SetTimeout(timeout time.Duration) { b.config.Timeout = timeout }

// Name returns the configured name.
func (b Builder) Name() string { return b.config.Name }

// Title returns the configured title.
func (b Builder) Title() string { return b.config.Title }

// Version returns the configured version.
func (b Builder) Version() string { return b.config.Version }

// Instructions returns the configured instructions.
func (b Builder) Instructions() string { return b.config.Instructions }

// Timeout returns the configured timeout, with the default applied.
func (b Builder) Timeout() time.Duration { return b.config.withDefaults().Timeout }

// Config returns the configuration with defaults applied.
func (b Builder) Config() Config { return b.config.withDefaults() }

// Build creates a Server exposing tb. A nil tb is treated as an empty
// Toolbox, in which case the tools capability is not advertised.
func (b Builder) Build(tb *Toolbox) *Server {
	if tb == nil {
		tb = &Toolbox{routes: map[string]route{}}
	}
	cfg := b.config.withDefaults()

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("server", cfg.Name)

	server := mcp.NewServer(cfg.Implementation(), &mcp.ServerOptions{
		Instructions: cfg.Instructions,
	})

	handler := NewHandler(tb, cfg.Timeout, logger)
	for _, tool := range tb.Catalog() {
		server.AddTool(tool, handler.CallTool)
	}
	server.AddReceivingMiddleware(handler.Middleware())

	return &Server{
		server:  server,
		toolbox: tb,
		handler: handler,
		config:  cfg,
		logger:  logger,
	}
}

// Server is a protocol server bound to a Toolbox, ready to serve one
// transport.
type Server struct {
	server  *mcp.Server
	toolbox *Toolbox
	handler *Handler
	config  Config
	logger  *slog.Logger
}

// MCPServer returns the underlying mcp.Server for advanced use cases.
//
// Tools added directly to the returned server bypass the Toolbox and its
// capability rules.
func (s *Server) MCPServer() *mcp.Server { return s.server }

// Toolbox returns the tools the server exposes.
func (s *Server) Toolbox() *Toolbox { return s.toolbox }

// Handler returns the request handler.
func (s *Server) Handler() *Handler { return s.handler }

// Config returns the effective configuration.
func (s *Server) Config() Config { return s.config }

// Capabilities returns the capabilities derived from the Toolbox.
func (s *Server) Capabilities() Capabilities { return s.handler.Capabilities() }

// InitializeResult returns the handshake payload describing the server.
func (s *Server) InitializeResult() *mcp.InitializeResult {
	return &mcp.InitializeResult{
		ServerInfo:      s.config.Implementation(),
		Instructions:    s.config.Instructions,
		Capabilities:    s.Capabilities().ServerCapabilities(),
		ProtocolVersion: ProtocolVersion,
	}
}

// Start serves the transport selected by l until ctx is done or the
// transport ends. Bind failures are reported as a *BootstrapError.
func (s *Server) Start(ctx context.Context, l Listen) error {
	switch l.Mode {
	case TransportStdio:
		return s.ServeStdio(ctx)
	case TransportHTTP:
		return s.ServeHTTP(ctx, l.Addr())
	default:
		return &BootstrapError{Transport: l.Mode, Err: fmt.Errorf("unsupported transport")}
	}
}

// ServeStdio serves a single client over stdin and stdout. Ending ctx is a
// clean shutdown and returns nil.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.logger.InfoContext(ctx, "serving", "transport", TransportStdio.String(), "tools", s.toolbox.Len())
	return s.run(ctx, TransportStdio, &mcp.StdioTransport{})
}

// run serves one session on t until the session ends or ctx is done.
func (s *Server) run(ctx context.Context, mode TransportMode, t mcp.Transport) error {
	err := s.server.Run(ctx, t)
	if err == nil || (ctx.Err() != nil && errors.Is(err, ctx.Err())) {
		return nil
	}
	return fmt.Errorf("%s transport: %w", mode, err)
}

// InMemorySession connects an in-process client to the server.
//
// It is intended for tests and embedding: the client session speaks the full
// protocol without any I/O. Close the client session when done.
func (s *Server) InMemorySession(ctx context.Context) (*mcp.ServerSession, *mcp.ClientSession, error) {
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	serverSession, err := s.server.Connect(ctx, serverTransport, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting server session: %w", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: s.config.Name + "-client", Version: s.config.Version}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		_ = serverSession.Close()
		return nil, nil, fmt.Errorf("connecting client session: %w", err)
	}
	return serverSession, clientSession, nil
}

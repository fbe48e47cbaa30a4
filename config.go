// Copyright 2025 John Wang. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcptoolbox

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Defaults used when a [Config] field is left empty.
const (
	DefaultName    = "mcptoolbox"
	DefaultVersion = "dev"
	DefaultTimeout = 60 * time.Second
	DefaultHost    = "127.0.0.1"
	DefaultPort    = uint16(8080)
)

// ProtocolVersion is the protocol revision reported in the handshake payload
// built by [Server.InitializeResult].
const ProtocolVersion = "2025-06-18"

// Config describes the server to clients and bounds request handling.
type Config struct {
	// Name is the implementation name reported during initialization.
	Name string

	// Title is an optional human-readable name.
	Title string

	// Version is the implementation version.
	Version string

	// Instructions tell clients how to use the server.
	Instructions string

	// Timeout bounds every request. Zero or negative means DefaultTimeout.
	Timeout time.Duration
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	return Config{
		Name:    DefaultName,
		Version: DefaultVersion,
		Timeout: DefaultTimeout,
	}
}

// withDefaults fills empty fields that have a default.
func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Implementation returns the implementation info reported to clients.
func (c Config) Implementation() *mcp.Implementation {
	return &mcp.Implementation{
		Name:    c.Name,
		Title:   c.Title,
		Version: c.Version,
	}
}

// TransportMode selects how a server is reached.
type TransportMode int

const (
	// TransportStdio serves a single client over stdin/stdout.
	TransportStdio TransportMode = iota
	// TransportHTTP serves clients over streamable HTTP on a bound address.
	TransportHTTP
)

func (m TransportMode) String() string {
	switch m {
	case TransportStdio:
		return "stdio"
	case TransportHTTP:
		return "http"
	default:
		return fmt.Sprintf("TransportMode(%d)", int(m))
	}
}

// Listen is a resolved transport selection.
type Listen struct {
	Mode TransportMode
	Host string
	Port uint16
}

// SelectTransport picks the transport from optional host and port settings.
//
// With neither set the stdio transport is used. With either set the HTTP
// transport is used; an empty or missing host becomes DefaultHost and a
// missing port becomes DefaultPort.
func SelectTransport(host *string, port *uint16) Listen {
	if host == nil && port == nil {
		return Listen{Mode: TransportStdio}
	}
	l := Listen{Mode: TransportHTTP, Host: DefaultHost, Port: DefaultPort}
	if host != nil && *host != "" {
		l.Host = *host
	}
	if port != nil {
		l.Port = *port
	}
	return l
}

// Addr returns host:port for the HTTP transport, or "" for stdio.
func (l Listen) Addr() string {
	if l.Mode != TransportHTTP {
		return ""
	}
	return net.JoinHostPort(l.Host, strconv.Itoa(int(l.Port)))
}

// Copyright 2025 John Wang. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package cli turns a [mcptoolbox.Builder] and a [mcptoolbox.Toolbox] into a
// complete command-line program.
//
// Without --host or --port the server runs on stdio. With either it serves
// streamable HTTP, defaulting to 127.0.0.1:8080. --help lists the server's
// instructions and tools; --version prints the version. Neither starts a
// transport.
//
//	func main() {
//		b := mcptoolbox.NewBuilder().WithName("calculator").WithVersion("v1.0.0")
//		if err := cli.Run(b, toolbox); err != nil {
//			os.Exit(1)
//		}
//	}
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/grokify/mcptoolbox"
	"github.com/spf13/cobra"
)

const (
	flagTimeout  = "timeout"
	flagHost     = "host"
	flagPort     = "port"
	flagLogLevel = "log-level"
)

// StartFunc starts srv on the selected transport.
type StartFunc func(ctx context.Context, srv *mcptoolbox.Server, l mcptoolbox.Listen) error

type options struct {
	stdout io.Writer
	stderr io.Writer
	start  StartFunc
}

// Option configures [Execute].
type Option func(*options)

// WithOutput redirects help/version output and logs. Defaults are os.Stdout
// and os.Stderr.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(o *options) {
		o.stdout = stdout
		o.stderr = stderr
	}
}

// WithStartFunc replaces the function that starts the server. The default is
// [mcptoolbox.Server.Start].
func WithStartFunc(fn StartFunc) Option {
	return func(o *options) {
		o.start = fn
	}
}

// Run parses os.Args and runs the server until it ends or the process is
// interrupted. Errors are printed to stderr and returned.
func Run(b mcptoolbox.Builder, tb *mcptoolbox.Toolbox) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Execute(ctx, b, tb, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

// Execute runs the command line with the given arguments.
func Execute(ctx context.Context, b mcptoolbox.Builder, tb *mcptoolbox.Toolbox, args []string, opts ...Option) error {
	o := options{
		stdout: os.Stdout,
		stderr: os.Stderr,
		start: func(ctx context.Context, srv *mcptoolbox.Server, l mcptoolbox.Listen) error {
			return srv.Start(ctx, l)
		},
	}
	for _, opt := range opts {
		opt(&o)
	}

	cmd := NewCommand(b, tb, o.start)
	cmd.SetArgs(args)
	cmd.SetOut(o.stdout)
	cmd.SetErr(o.stderr)
	return cmd.ExecuteContext(ctx)
}

// NewCommand builds the root command. start is called once flags are parsed.
func NewCommand(b mcptoolbox.Builder, tb *mcptoolbox.Toolbox, start StartFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:           b.Name(),
		Short:         b.Title(),
		Long:          longHelp(b, tb),
		Version:       b.Version(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()

			timeout, err := flags.GetDuration(flagTimeout)
			if err != nil {
				return err
			}
			levelName, err := flags.GetString(flagLogLevel)
			if err != nil {
				return err
			}
			level, err := parseLevel(levelName)
			if err != nil {
				return err
			}

			var host *string
			if flags.Changed(flagHost) {
				h, err := flags.GetString(flagHost)
				if err != nil {
					return err
				}
				host = &h
			}
			var port *uint16
			if flags.Changed(flagPort) {
				p, err := flags.GetUint16(flagPort)
				if err != nil {
					return err
				}
				port = &p
			}

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			sb := b
			sb.SetTimeout(timeout)
			srv := sb.WithLogger(logger).Build(tb)
			return start(cmd.Context(), srv, mcptoolbox.SelectTransport(host, port))
		},
	}

	flags := cmd.Flags()
	flags.Duration(flagTimeout, mcptoolbox.DefaultTimeout, "Timeout for each request (e.g. 30s, 2m)")
	flags.String(flagHost, "", "Host to bind the HTTP server to (default "+mcptoolbox.DefaultHost+")")
	flags.Uint16P(flagPort, "p", mcptoolbox.DefaultPort, "Port to bind the HTTP server to")
	flags.String(flagLogLevel, "info", "Log level (debug, info, warn, error)")

	return cmd
}

// parseLevel converts a level name to an slog.Level.
func parseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", name)
	}
}

func longHelp(b mcptoolbox.Builder, tb *mcptoolbox.Toolbox) string {
	var sb strings.Builder
	if b.Title() != "" {
		fmt.Fprintf(&sb, "%s\n\n", b.Title())
	}
	fmt.Fprintf(&sb, "Start the MCP server in stdio mode by running the command:\n  %s\n\n", b.Name())
	fmt.Fprintf(&sb, "To serve streamable HTTP instead, pass the --host and/or the --port options:\n  %s --port %d\n\n", b.Name(), mcptoolbox.DefaultPort)

	if b.Instructions() != "" {
		fmt.Fprintf(&sb, "Instructions:\n%s\n\n", b.Instructions())
	}

	sb.WriteString("Tools:\n")
	lines := toolLines(tb)
	if len(lines) == 0 {
		sb.WriteString("  (none)\n")
	}
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// toolLines renders one entry per tool, sorted by display name.
func toolLines(tb *mcptoolbox.Toolbox) []string {
	if tb == nil {
		return nil
	}
	catalog := tb.Catalog()

	type entry struct {
		display     string
		description string
	}
	entries := make([]entry, 0, len(catalog))
	for _, t := range catalog {
		display := t.Title
		if display == "" {
			display = t.Name
		}
		entries = append(entries, entry{display: display, description: t.Description})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].display < entries[j].display
	})

	lines := make([]string, 0, len(entries))
	for i, e := range entries {
		if e.description == "" {
			lines = append(lines, fmt.Sprintf("%d. %s: no description available", i+1, e.display))
			continue
		}
		lines = append(lines, fmt.Sprintf("%d. %s\n    %s", i+1, e.display, e.description))
	}
	return lines
}

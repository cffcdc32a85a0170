package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sta-hq/verdict/pkg/cli"
	"sta-hq/verdict/pkg/config"
	"sta-hq/verdict/pkg/registry"
	"sta-hq/verdict/pkg/registry/gitsource"
	"sta-hq/verdict/pkg/telemetry"
)

// session is the configuration and telemetry shared by one command run.
type session struct {
	cfg    *config.Config
	tel    *telemetry.Telemetry
	logger *slog.Logger
}

// newSession loads the configuration named by --config, applies the global
// logging flags and initialises telemetry. Logs always go to stderr so
// stdout stays reserved for command output.
func newSession(cmd *cobra.Command, name string) (*session, error) {
	if err := config.Use(cfgFile); err != nil {
		return nil, cli.NewConfigError("config", err.Error())
	}
	cfg := config.MustCurrent()

	if logLevel != "" {
		cfg.Telemetry.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Telemetry.Logging.Format = logFormat
	}

	tel, err := telemetry.New(commandContext(cmd), &cfg.Telemetry, Version, telemetry.Options{LogWriter: cmd.ErrOrStderr()})
	if err != nil {
		return nil, cli.NewConfigError("telemetry", err.Error())
	}
	slog.SetDefault(tel.Logger())

	return &session{
		cfg:    cfg,
		tel:    tel,
		logger: tel.Logger().With("command", name),
	}, nil
}

// close flushes pending spans.
func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.tel.Shutdown(ctx); err != nil {
		s.logger.Warn("telemetry shutdown failed", "error", err)
	}
}

// loader builds a rule pack loader honouring registry.max_file_size.
func (s *session) loader() *registry.Loader {
	lc := registry.DefaultLoaderConfig()
	if s.cfg.Registry.MaxFileSize > 0 {
		lc.MaxFileSize = s.cfg.Registry.MaxFileSize
	}
	return registry.NewLoader(lc, s.logger)
}

// source returns the rule pack source. A non-empty path always names a
// local file or directory; otherwise registry.mode decides.
func (s *session) source(path string) (registry.Source, error) {
	if path != "" {
		return registry.FileSource(path), nil
	}
	if s.cfg.Registry.Mode == "git" {
		src, err := gitsource.New(&s.cfg.Registry.Git, s.logger)
		if err != nil {
			return nil, cli.NewConfigError("registry.git", err.Error())
		}
		return src, nil
	}
	return registry.FileSource(s.cfg.Registry.Path), nil
}

// loadSnapshot fetches and loads a rule pack once.
func (s *session) loadSnapshot(ctx context.Context, path string) (*registry.Snapshot, error) {
	src, err := s.source(path)
	if err != nil {
		return nil, err
	}
	dir, err := src.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return s.loader().Load(ctx, dir)
}

// commandContext returns the command's context, or a background context
// when the command is invoked directly.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openInput opens path for reading; "" and "-" read the command's stdin.
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, string, error) {
	if path == "" || path == "-" {
		return io.NopCloser(cmd.InOrStdin()), "stdin", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, path, err
	}
	return f, path, nil
}

// openOutput opens path for writing; "" and "-" write the command's stdout.
func openOutput(cmd *cobra.Command, path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{cmd.OutOrStdout()}, nil
	}
	return os.Create(path)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

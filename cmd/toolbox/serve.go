package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/txn2/mcp-toolbox/pkg/platform"
)

const defaultToolsFile = "tools.yaml"

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load a tools file and serve its tools",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := setupLogging(cmd); err != nil {
				return err
			}
			path, _ := cmd.Flags().GetString("tools-file")
			cfg, err := platform.LoadConfig(path)
			if err != nil {
				return err
			}
			override := func(c *platform.Config) error {
				return applyFlagOverrides(c, cmd.Flags())
			}
			if err := override(cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, path, override)
		},
	}

	f := cmd.Flags()
	f.String("tools-file", defaultToolsFile, "Path to the tools file (.yaml or .toml)")
	f.String("address", "", "Address to listen on (default from tools file, then 127.0.0.1)")
	f.Int("port", 0, "Port to listen on (default from tools file, then 5000)")
	f.String("transport", "", "Transport: http or stdio (default from tools file, then http)")
	f.String("toolset", "", "Limit MCP tools to one toolset")
	return cmd
}

// applyFlagOverrides lets explicitly set flags win over the tools file.
func applyFlagOverrides(cfg *platform.Config, flags *pflag.FlagSet) error {
	if flags.Changed("address") {
		cfg.Server.Address, _ = flags.GetString("address")
	}
	if flags.Changed("port") {
		cfg.Server.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("transport") {
		cfg.Server.Transport, _ = flags.GetString("transport")
	}
	if flags.Changed("toolset") {
		cfg.Server.Toolset, _ = flags.GetString("toolset")
	}
	return cfg.Validate()
}

func serve(ctx context.Context, cfg *platform.Config, path string, override func(*platform.Config) error) error {
	p, err := platform.New(
		platform.WithConfig(cfg),
		platform.WithConfigPath(path),
		platform.WithConfigOverride(override),
		platform.WithVersion(version),
	)
	if err != nil {
		return fmt.Errorf("creating platform: %w", err)
	}
	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("starting platform: %w", err)
	}

	serveCtx, cancelServe := context.WithCancel(ctx)
	defer cancelServe()
	reloadDone := watchReload(serveCtx, p)

	var serveErr error
	switch cfg.Server.Transport {
	case platform.TransportStdio:
		slog.Info("serving MCP over stdio", "version", version)
		serveErr = p.MCPServer().RunStdio(serveCtx)
	default:
		serveErr = serveHTTP(serveCtx, p.HTTPServer(), cfg)
	}

	cancelServe()
	<-reloadDone
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := p.Stop(shutdownCtx); err != nil {
		slog.Error("shutdown incomplete", "error", err)
		serveErr = errors.Join(serveErr, err)
	}
	slog.Info("toolbox stopped")
	return serveErr
}

func serveHTTP(ctx context.Context, srv *http.Server, cfg *platform.Config) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("serving HTTP", "address", srv.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http: %w", err)
	}
	return nil
}

// watchReload reloads the tools file on SIGHUP until ctx ends. The returned
// channel closes once the watcher has exited.
func watchReload(ctx context.Context, p *platform.Platform) <-chan struct{} {
	done := make(chan struct{})
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	go func() {
		defer close(done)
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				slog.Info("reloading tools file")
				if err := p.Reload(ctx); err != nil {
					slog.Error("reload failed; keeping current tools", "error", err)
				}
			}
		}
	}()
	return done
}

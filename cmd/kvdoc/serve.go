package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kvdoc/internal/logging"
	"kvdoc/internal/mcp"
)

var logger = logging.For("main")

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the record tools over MCP",
		Long: `Serve the record tools as an MCP server. The stdio transport reads one
JSON-RPC message per line on stdin and answers on stdout; logs go to stderr.
The http transport accepts POST /rpc and also serves /metrics and /healthz.`,
		Args: cobra.NoArgs,
		RunE: a.serve,
	}
	cmd.Flags().String("transport", "", "transport to serve on (stdio, http)")
	cmd.Flags().String("listen", "", "listen address for the http transport")
	return cmd
}

func (a *app) serve(cmd *cobra.Command, _ []string) error {
	reg, closeFn, err := a.registry()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFn(); err != nil {
			logger.Warn("closing stores", "err", err)
		}
	}()
	h := mcp.NewHandler(reg, "kvdoc", Version)

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting", "version", Version, "transport", a.cfg.Server.Transport,
		"engine", a.cfg.Store.Engine, "pool", a.cfg.Store.Pool, "tools", len(reg.Names()))

	if a.cfg.Server.Transport == "http" {
		s := mcp.NewServer(a.cfg.Server.Listen, h)
		if err := s.Start(); err != nil {
			return err
		}
		<-ctx.Done()
		logger.Info("shutting down")
		return s.Stop()
	}

	// Scan blocks on stdin, so the signal is watched separately.
	errCh := make(chan error, 1)
	go func() { errCh <- mcp.ServeStdio(ctx, h, cmd.InOrStdin(), cmd.OutOrStdout()) }()
	select {
	case err := <-errCh:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	}
}

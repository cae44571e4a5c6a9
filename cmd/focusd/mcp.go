package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/focusfuel/internal/config"
	"github.com/fyrsmithlabs/focusfuel/internal/mcp"
)

var noHTTP bool

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve MCP tools over stdio",
	Long: `Serve the focusfuel MCP tools over stdio. Logs go to stderr.

Unless --no-http is set the HTTP API is served in-process as well, so the
browser extension and MCP clients share the same tab sessions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runMCP(ctx, cfg, !noHTTP)
	},
}

func init() {
	mcpCmd.Flags().BoolVar(&noHTTP, "no-http", false, "do not serve the HTTP API alongside MCP")
	rootCmd.AddCommand(mcpCmd)
}

// runMCP serves MCP on stdio until the client disconnects or ctx is
// cancelled.
func runMCP(ctx context.Context, cfg *config.Config, withHTTP bool) (err error) {
	a, err := newApp(ctx, cfg, appOptions{tracking: true, stderrLogs: true})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		err = errors.Join(err, a.close(shutdownCtx))
	}()

	server, err := mcp.NewServer(&mcp.Config{
		Name:    "focusfuel",
		Version: version,
		Logger:  a.logger.Underlying().Named("mcp"),
	}, mcp.Deps{
		Tracker:  a.registry,
		Lists:    a.lists,
		Events:   a.events,
		Notifier: a.dispatcher,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	a.logger.Info(ctx, "starting focusd mcp",
		zap.String("version", version),
		zap.Int("tools", server.Tools().Count()),
		zap.Bool("http", withHTTP))

	a.start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	// Stdio closing ends the session; stop the HTTP side with it.
	g.Go(func() error {
		if err := server.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return errStdioClosed
	})
	if withHTTP {
		g.Go(func() error {
			return serveHTTP(gctx, a)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, errStdioClosed) {
		return err
	}
	return nil
}

var errStdioClosed = errors.New("mcp session ended")

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/redpersona/internal/api"
	"github.com/kalambet/redpersona/internal/tui"
)

// listingCap is how many personas the service returns at most.
const listingCap = 100

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show service and local storage status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Start the interactive terminal UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		return tui.Run(cmd.Context(), s.ctrl, tui.Options{Now: now, DateLayout: s.cfg.UI.DateLayout})
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the persona workflow as an MCP server on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Controller: s.ctrl,
			Ledger:     s.store,
			Now:        now,
			DateLayout: s.cfg.UI.DateLayout,
		})
		stdioSrv := server.NewStdioServer(mcpSrv)
		s.logger.Info("MCP server listening on stdio")
		if err := stdioSrv.Listen(cmd.Context(), os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP server: %w", err)
		}
		return nil
	},
}

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Run a local stand-in for the analysis service (canned personas)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := effectiveConfig()
		if err != nil {
			return err
		}
		logger := setupLogger(cfg.Log.Level)

		port := cfg.Stub.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}
		return runStub(cmd.Context(), stubAddr(port), api.StubDeps{
			Token:  cfg.API.Token,
			Logger: logger,
		})
	},
}

func init() {
	stubCmd.Flags().Int("port", 0, "listen port (overrides stub.port)")
}

func stubAddr(port int) string {
	return fmt.Sprintf("127.0.0.1:%d", port)
}

func runStub(ctx context.Context, addr string, deps api.StubDeps) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: api.NewStubHandler(deps),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		printSuccess("Stub service listening on http://%s/api", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		printStep("Shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func showStatus(ctx context.Context) error {
	s, err := openSession(ctx)
	if err != nil {
		// Still show partial status even if config or storage fails.
		printError("%v", err)
		return nil
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var (
		g         errgroup.Group
		banner    string
		healthErr error
		count     int
		listErr   error
	)
	g.Go(func() error {
		banner, healthErr = s.client.Health(ctx)
		return nil
	})
	g.Go(func() error {
		list, err := s.client.ListPersonas(ctx)
		count, listErr = len(list), err
		return nil
	})
	g.Wait()

	if healthErr != nil {
		printStatus("Service", "unreachable at %s", s.client.BaseURL())
		s.logger.Debug("health probe failed", "error", healthErr)
	} else {
		printStatus("Service", "%s at %s", banner, s.client.BaseURL())
	}
	if listErr != nil {
		printWarning("Could not list personas: %v", listErr)
	} else {
		printStatus("Personas", "%s", countLabel(count, listingCap))
	}

	if exports, err := s.store.RecentExports(listingCap); err == nil {
		printStatus("Exports", "%s", countLabel(len(exports), listingCap))
	}
	printStatus("Export dir", "%s", s.saver.Dir())
	printStatus("Data dir", "%s", s.cfg.Storage.DataDir)
	return nil
}

func countLabel(count, limit int) string {
	if count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return fmt.Sprintf("%d", count)
}

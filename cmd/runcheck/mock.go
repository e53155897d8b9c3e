package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/validai/runcheck/internal/config"
	"github.com/validai/runcheck/internal/mockapi"
	"github.com/validai/runcheck/internal/store"
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Serve a local stand-in for the platform API",
	Long: `Serve the four platform endpoints locally so the smoke test can
run without a hosted project. Runs are advanced by a background worker
so status checks see real progress.

Point the harness at it with:
  runcheck config set platform.base_url http://127.0.0.1:54321
and use the same SUPABASE_SERVICE_ROLE_KEY on both sides.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		memory, _ := cmd.Flags().GetBool("memory")
		return runMock(memory)
	},
}

func init() {
	mockCmd.Flags().Bool("memory", false, "keep mock state in memory instead of on disk")
}

func runMock(memory bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	setupLogging(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dataDir := cfg.Mock.DataDir
	if memory {
		dataDir = ":memory:"
	}
	st, err := store.Open(dataDir)
	if err != nil {
		return fmt.Errorf("opening mock store: %w", err)
	}
	defer st.Close()

	handler := mockapi.NewHandler(mockapi.Deps{
		Store: st,
		Token: cfg.Platform.ServiceRoleKey,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Mock.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("mock platform listening", "addr", addr, "data_dir", dataDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("mock server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		mockapi.NewRunner(st, 0, 0).Run(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

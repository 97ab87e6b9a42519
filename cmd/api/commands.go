package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Med_Community/internal/config"
	"Med_Community/internal/pkg"
	"Med_Community/internal/repository/mysql"
	"Med_Community/internal/service"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with the outbox relayer and counter reconciler",
		RunE:  runServe,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE:  runMigrate,
	}

	reconcileCmd = &cobra.Command{
		Use:   "reconcile",
		Short: "Repair member counts and vote totals once and exit",
		RunE:  runReconcile,
	}

	skipMigrate bool
)

func init() {
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not auto-migrate tables on startup")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	log := pkg.NewLogger(cfg.Env)
	if !cfg.EnvFileLoaded {
		log.Info(".env not found; using environment variables and defaults")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	if !skipMigrate {
		if err := mysql.AutoMigrate(app.DB); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      app.Router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return app.Relayer.Run(gctx) })
	g.Go(func() error { return app.Reconciler.Run(gctx) })

	err = g.Wait()
	log.Info("server stopped")
	return err
}

func runMigrate(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	log := pkg.NewLogger(cfg.Env)
	db, err := mysql.InitDB(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	if err := mysql.AutoMigrate(db); err != nil {
		return err
	}
	log.Info("migration complete", "driver", cfg.DBDriver)
	return nil
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	log := pkg.NewLogger(cfg.Env)
	db, err := mysql.InitDB(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	// 单次对账不依赖 Redis，缓存随 TTL 自然过期
	r := service.NewCounterReconciler(mysql.NewCounterReconcilerRepo(mysql.NewLedger(db, cfg.LedgerMaxAttempts)), nil, cfg.ReconcileInterval, log)
	res, err := r.ReconcileOnce(cmd.Context())
	if err != nil {
		return err
	}
	log.Info("reconcile complete", "communities", res.Communities, "posts", res.Posts)
	return nil
}

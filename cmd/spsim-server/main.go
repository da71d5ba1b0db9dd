package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/spsim/spsim/internal/config"
	"github.com/spsim/spsim/internal/domain/request"
	"github.com/spsim/spsim/internal/domain/script"
	"github.com/spsim/spsim/internal/platform/attachment"
	"github.com/spsim/spsim/internal/platform/db"
	"github.com/spsim/spsim/internal/platform/metrics"
	"github.com/spsim/spsim/internal/platform/middleware"
	"github.com/spsim/spsim/internal/platform/printable"
	"github.com/spsim/spsim/internal/platform/session"
)

// attachmentStoreAdapter adapts attachment.Store to the narrower interface
// the script save flow depends on, avoiding a circular import between the
// script and attachment packages.
type attachmentStoreAdapter struct {
	store attachment.Store
}

func (a *attachmentStoreAdapter) Upload(ctx context.Context, up script.AttachmentUpload) (*script.AttachmentRef, error) {
	meta, err := a.store.Upload(ctx, attachment.Metadata{
		Name:        up.Name,
		ContentType: up.ContentType,
	}, bytes.NewReader(up.Data))
	if err != nil {
		return nil, err
	}
	return &script.AttachmentRef{ID: meta.ID, Name: meta.Name, URL: meta.URL}, nil
}

func (a *attachmentStoreAdapter) Delete(ctx context.Context, id string) error {
	return a.store.Delete(ctx, id)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "spsim-server",
		Short: "Standardized-patient script authoring and review server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the script API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	// Store selection: Postgres by default, in-memory when running local-only.
	var scriptRepo script.Repository
	var requestRepo request.Repository
	var pool *pgxpool.Pool
	if cfg.LocalMode {
		logger.Warn().Msg("LOCAL_MODE enabled, using in-memory stores (data is lost on restart)")
		scriptRepo = script.NewRepoMem()
		requestRepo = request.NewRepoMem()
	} else {
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		logger.Info().Msg("connected to database")
		scriptRepo = script.NewRepoPG(pool)
		requestRepo = request.NewRepoPG(pool)
	}

	// Services
	attachmentStore := attachment.NewMemoryStore()
	scriptSvc := script.NewService(scriptRepo, &attachmentStoreAdapter{store: attachmentStore})
	requestSvc := request.NewService(requestRepo, scriptSvc)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(30 * time.Second))
	// Attachment uploads are capped at 25 MB by the store; leave headroom
	// for multipart framing.
	e.Use(middleware.BodyLimit("1M", "30M"))
	e.Use(metrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Session middleware
	if cfg.IsDev() && cfg.SessionSigningKey == "" {
		e.Use(session.DevMiddleware())
	} else {
		e.Use(session.Middleware([]byte(cfg.SessionSigningKey)))
	}

	// API group
	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Handlers
	script.NewHandler(scriptSvc).RegisterRoutes(apiV1)
	request.NewHandler(requestSvc).RegisterRoutes(apiV1)
	printable.NewHandler(scriptSvc).RegisterRoutes(apiV1)
	attachment.NewHandler(attachmentStore).RegisterRoutes(apiV1)

	// Operational endpoints
	e.GET("/metrics", metrics.Handler())
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})
	if pool != nil {
		e.GET("/health/db", db.HealthHandler(pool))
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/abaworks/aba/internal/config"
	"github.com/abaworks/aba/internal/domain/aireview"
	"github.com/abaworks/aba/internal/domain/notification"
	"github.com/abaworks/aba/internal/domain/org"
	"github.com/abaworks/aba/internal/domain/patient"
	"github.com/abaworks/aba/internal/domain/plan"
	"github.com/abaworks/aba/internal/domain/sessionnote"
	"github.com/abaworks/aba/internal/domain/template"
	"github.com/abaworks/aba/internal/domain/training"
	"github.com/abaworks/aba/internal/platform/audit"
	"github.com/abaworks/aba/internal/platform/auth"
	"github.com/abaworks/aba/internal/platform/db"
	"github.com/abaworks/aba/internal/platform/hipaa"
	"github.com/abaworks/aba/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "aba-server",
		Short: "ABA therapy practice API server",
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
		Short: "Start the API server",
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

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			fmt.Println("Restore from a database backup instead.")
			return nil
		},
	})

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

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// PHI field-level encryption
	phi, err := hipaa.NewService(cfg.PHIEncryptionKey, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize PHI encryption")
	}

	// Audit trail. The logger records entries, the detector watches them for
	// breach patterns and notifies org admins through the notification
	// service.
	auditRepo := audit.NewRepoPG(pool)
	auditLogger := audit.NewLogger(auditRepo, logger)

	notificationRepo := notification.NewRepoPG(pool)
	notificationSvc := notification.NewService(notificationRepo)

	orgRepo := org.NewRepoPG(pool)
	orgSvc := org.NewService(orgRepo, auditLogger)

	thresholds := audit.DefaultThresholds()
	if cfg.BreachFailedLoginThreshold > 0 {
		thresholds.FailedLogins = cfg.BreachFailedLoginThreshold
	}
	if cfg.BreachRecordAccessThreshold > 0 {
		thresholds.RecordAccess = cfg.BreachRecordAccessThreshold
	}
	detector := audit.NewDetector(auditRepo, orgSvc, notificationSvc, thresholds, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.SanitizeWithLogger(logger))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Health checks
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/healthz/db", db.HealthHandler(pool))

	// Login endpoint, outside the authenticated group. Only the built-in
	// hmac mode issues tokens; jwks deployments log in at the identity
	// provider instead.
	authMode := cfg.ResolvedAuthMode()
	if authMode == "hmac" {
		loginHandler := auth.NewLoginHandler(orgSvc, auditLogger, detector,
			[]byte(cfg.JWTSigningKey), cfg.AuthIssuer, cfg.AuthAudience, logger)
		loginHandler.RegisterRoutes(e.Group(""))
	}

	// Authenticated API
	apiV1 := e.Group("/api/v1")

	switch authMode {
	case "development":
		logger.Warn().Msg("development auth mode: callers are taken from X-Dev-* headers")
		apiV1.Use(auth.DevAuthMiddleware())
	default:
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.JWTSigningKey),
		}))
	}

	apiV1.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))

	// -- Register domain handlers --

	patientRepo := patient.NewRepoPG(pool, phi)
	patientSvc := patient.NewService(patientRepo, auditLogger, detector)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)

	planRepo := plan.NewRepoPG(pool)
	planSvc := plan.NewService(planRepo, patientSvc, auditLogger)
	plan.NewHandler(planSvc).RegisterRoutes(apiV1)

	sessionNoteRepo := sessionnote.NewRepoPG(pool)
	sessionNoteSvc := sessionnote.NewService(sessionNoteRepo, patientSvc, auditLogger)
	sessionnote.NewHandler(sessionNoteSvc).RegisterRoutes(apiV1)

	templateRepo := template.NewRepoPG(pool)
	templateSvc := template.NewService(templateRepo, auditLogger)
	template.NewHandler(templateSvc).RegisterRoutes(apiV1)

	trainingRepo := training.NewRepoPG(pool)
	trainingSvc := training.NewService(trainingRepo)
	training.NewHandler(trainingSvc).RegisterRoutes(apiV1)

	aiReviewRepo := aireview.NewRepoPG(pool)
	aiReviewSvc := aireview.NewService(aiReviewRepo, planSvc, auditLogger)
	aireview.NewHandler(aiReviewSvc).RegisterRoutes(apiV1)

	org.NewHandler(orgSvc).RegisterRoutes(apiV1)
	notification.NewHandler(notificationSvc).RegisterRoutes(apiV1)
	audit.NewHandler(auditRepo).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("auth_mode", authMode).Msg("starting server")
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

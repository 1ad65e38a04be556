package main

import (
	"context"
	crypto_rand "crypto/rand"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medici/medici/internal/config"
	"github.com/medici/medici/internal/domain/appointment"
	"github.com/medici/medici/internal/domain/catalog"
	"github.com/medici/medici/internal/domain/contact"
	"github.com/medici/medici/internal/domain/doctor"
	"github.com/medici/medici/internal/domain/location"
	"github.com/medici/medici/internal/domain/patient"
	"github.com/medici/medici/internal/platform/apperr"
	"github.com/medici/medici/internal/platform/auth"
	"github.com/medici/medici/internal/platform/db"
	"github.com/medici/medici/internal/platform/gcal"
	"github.com/medici/medici/internal/platform/kv"
	"github.com/medici/medici/internal/platform/middleware"
	"github.com/medici/medici/migrations"
)

// failureTTL bounds how long a run of consecutive failures is remembered.
const failureTTL = 30 * time.Minute

func main() {
	rootCmd := &cobra.Command{
		Use:   "medici-server",
		Short: "Medici practice management API server",
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

// migrationSource returns the directory given with --dir, or the migrations
// compiled into the binary.
func migrationSource(dir string) fs.FS {
	if dir == "" {
		return migrations.FS
	}
	return os.DirFS(dir)
}

func openMigrator(ctx context.Context, cmd *cobra.Command) (*db.Migrator, string, func(), error) {
	dir, _ := cmd.Flags().GetString("dir")

	cfg, err := config.Load()
	if err != nil {
		return nil, "", nil, err
	}
	schema, _ := cmd.Flags().GetString("schema")
	if schema == "" {
		schema = cfg.DBSchema
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, schema, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, "", nil, err
	}
	return db.NewMigrator(pool, migrationSource(dir)), schema, pool.Close, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			migrator, schema, closePool, err := openMigrator(ctx, cmd)
			if err != nil {
				return err
			}
			defer closePool()

			fmt.Printf("Running migrations on schema: %s\n", schema)
			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", "", "Target schema (defaults to DB_SCHEMA)")
	upCmd.Flags().String("dir", "", "Path to a migrations directory (defaults to the embedded set)")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			migrator, schema, closePool, err := openMigrator(ctx, cmd)
			if err != nil {
				return err
			}
			defer closePool()

			statuses, err := migrator.Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
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
	statusCmd.Flags().String("schema", "", "Target schema (defaults to DB_SCHEMA)")
	statusCmd.Flags().String("dir", "", "Path to a migrations directory (defaults to the embedded set)")
	cmd.AddCommand(statusCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is not supported by the built-in runner.")
			fmt.Println("Write a new forward migration that reverts the change instead.")
			return nil
		},
	})

	return cmd
}

func newLogger(dev bool) zerolog.Logger {
	if dev {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// resolveSessionKeys returns the cookie signing key and the refresh token
// sealing key. Development falls back to random keys, which invalidates
// sessions on restart. The bool reports whether any key was generated.
func resolveSessionKeys(cfg *config.Config) ([]byte, []byte, bool, error) {
	generated := false

	signing := []byte(cfg.SessionSecret)
	if len(signing) < 32 {
		if !cfg.IsDev() {
			return nil, nil, false, fmt.Errorf("SESSION_SECRET must be at least 32 characters")
		}
		signing = make([]byte, 32)
		if _, err := crypto_rand.Read(signing); err != nil {
			return nil, nil, false, fmt.Errorf("generate session secret: %w", err)
		}
		generated = true
	}

	var sealing []byte
	if cfg.SessionEncryptionKey != "" {
		key, err := auth.ParseKey(cfg.SessionEncryptionKey)
		if err != nil {
			return nil, nil, false, err
		}
		sealing = key
	} else {
		if !cfg.IsDev() {
			return nil, nil, false, fmt.Errorf("SESSION_ENCRYPTION_KEY is required")
		}
		sealing = make([]byte, 32)
		if _, err := crypto_rand.Read(sealing); err != nil {
			return nil, nil, false, fmt.Errorf("generate session encryption key: %w", err)
		}
		generated = true
	}

	return signing, sealing, generated, nil
}

// newStore connects to Redis when configured and keeps state in memory
// otherwise.
func newStore(ctx context.Context, cfg *config.Config) (kv.Store, func(), error) {
	if cfg.RedisURL == "" {
		return kv.NewMemoryStore(), func() {}, nil
	}
	store, err := kv.NewRedisStore(ctx, cfg.RedisURL, "medici:")
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func contactRateLimit(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.DefaultRateLimitConfig()
	if cfg.ContactRateLimitRPS > 0 {
		rl.RequestsPerSecond = cfg.ContactRateLimitRPS
	}
	if cfg.ContactRateLimitBurst > 0 {
		rl.BurstSize = cfg.ContactRateLimitBurst
	}
	return rl
}

func runServer() error {
	logger := newLogger(os.Getenv("ENV") == "development")

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	zone, err := time.LoadLocation(cfg.PracticeTimezone)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load practice timezone")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBSchema, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Str("schema", cfg.DBSchema).Msg("connected to database")

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer closeStore()

	// Sessions
	signingKey, sealingKey, generated, err := resolveSessionKeys(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve session keys")
	}
	if generated {
		logger.Warn().Msg("using generated session keys; sessions will not survive a restart")
	}
	sealer, err := auth.NewSealer(sealingKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create sealer")
	}
	sessions, err := auth.NewManager(auth.SessionConfig{
		SigningKey: signingKey,
		Sealer:     sealer,
		TTL:        cfg.SessionTTL,
		Secure:     cfg.CookieSecure,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create session manager")
	}

	calendars := gcal.NewClient(gcal.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Endpoint:     cfg.CalendarEndpoint,
	})

	// Domain services
	tx := db.NewTransactor(pool)
	doctorSvc := doctor.NewService(doctor.NewRepoPG(pool), calendars, cfg.AllowedDoctorEmails, logger)
	locationSvc := location.NewService(location.NewRepoPG(pool), logger)
	serviceCatalog := catalog.NewCatalog(catalog.NewRepoPG(pool), locationSvc, tx, logger)
	patientSvc := patient.NewService(patient.NewRepoPG(pool), logger)
	appointmentSvc := appointment.NewService(appointment.Deps{
		Repo:      appointment.NewRepoPG(pool),
		Tx:        tx,
		Calendar:  calendars,
		Patients:  patientSvc,
		Services:  serviceCatalog,
		Locations: locationSvc,
		Primary:   doctorSvc,
		Zone:      zone,
		Logger:    logger,
	})
	contactSvc := contact.NewService(contact.NewRepoPG(pool), logger)

	if cfg.IsDev() && cfg.DevDoctorEmail != "" {
		if _, err := doctorSvc.Register(ctx, cfg.DevDoctorEmail, "Development"); err != nil {
			logger.Fatal().Err(err).Msg("failed to register development doctor")
		}
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	esc := apperr.NewEscalation(store, auth.SessionSubject, failureTTL, logger)
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(logger, esc)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.CookieSecure))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost},
		AllowHeaders:     []string{"Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(middleware.Audit(logger))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool, logger))

	// Google sign-in
	if cfg.GoogleEnabled() {
		login := auth.NewGoogleLogin(auth.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       append(append([]string{}, auth.IdentityScopes...), gcal.Scopes...),
			AfterLogin:   cfg.LoginRedirectURL,
		}, store, sessions, doctorSvc.OnLogin, logger)
		login.RegisterRoutes(e.Group("/auth"))
	} else {
		logger.Warn().Msg("google sign-in is not configured; /auth routes are disabled")
	}

	// Public contact form
	contactHandler := contact.NewHandler(contactSvc)
	contactHandler.RegisterPublicRoutes(e, middleware.RateLimit(contactRateLimit(cfg)))

	// Doctor API
	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() && cfg.DevDoctorEmail != "" {
		apiV1.Use(auth.DevSession(sessions, cfg.DevDoctorEmail))
	} else {
		apiV1.Use(auth.RequireSession(sessions))
	}
	apiV1.Use(doctor.RequireDoctor(doctorSvc))
	apiV1.Use(esc.ResetOnSuccess())

	doctor.NewHandler(doctorSvc).RegisterRoutes(apiV1)
	location.NewHandler(locationSvc).RegisterRoutes(apiV1)
	catalog.NewHandler(serviceCatalog).RegisterRoutes(apiV1)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	appointment.NewHandler(appointmentSvc).RegisterRoutes(apiV1)
	contactHandler.RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("timezone", zone.String()).Msg("starting server")
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

package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/appq/appq/internal/config"
	"github.com/appq/appq/internal/domain/appointment"
	"github.com/appq/appq/internal/domain/organization"
	"github.com/appq/appq/internal/platform/auth"
	"github.com/appq/appq/internal/platform/cache"
	"github.com/appq/appq/internal/platform/db"
	"github.com/appq/appq/internal/platform/middleware"
	"github.com/appq/appq/internal/platform/scheduling"
	"github.com/appq/appq/migrations"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "appq-server",
		Short: "Appointment queue and scheduling API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tenantCmd())
	rootCmd.AddCommand(slotsCmd())
	return rootCmd
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

func newLogger(env string, out io.Writer) zerolog.Logger {
	if env == "development" {
		out = zerolog.ConsoleWriter{Out: out}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	return db.NewPool(ctx, db.PoolOptions{
		URL:             cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Hour,
		ApplicationName: "appq-server",
	})
}

// migrationFiles reads migrations from dir, or from the set compiled into
// the binary when dir is empty.
func migrationFiles(dir string) fs.FS {
	if dir == "" {
		return migrations.Files
	}
	return os.DirFS(dir)
}

// withMigrator loads the config, connects and hands a migrator to fn. The
// --dir flag wins over MIGRATIONS_DIR.
func withMigrator(cmd *cobra.Command, fn func(ctx context.Context, m *db.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = cfg.MigrationsDir
	}

	ctx := context.Background()
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, db.NewMigrator(pool, migrationFiles(dir)))
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
			schema, _ := cmd.Flags().GetString("schema")
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator) error {
				fmt.Printf("Running migrations on schema: %s\n", schema)
				count, err := m.Up(ctx, schema)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s).\n", count)
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx, schema)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				fmt.Printf("Migration status for schema: %s\n", schema)
				fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				for _, s := range statuses {
					fmt.Println(formatStatus(s))
				}
				return nil
			})
		},
	}

	for _, c := range []*cobra.Command{upCmd, statusCmd} {
		c.Flags().String("schema", db.SchemaName("default"), "Target schema")
		c.Flags().String("dir", "", "Migrations directory (defaults to MIGRATIONS_DIR, then the embedded set)")
		cmd.AddCommand(c)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "migrate down is not supported: migrations are forward-only. Write a new migration that reverts the change.")
			return nil
		},
	})
	return cmd
}

func formatStatus(s db.MigrationStatus) string {
	status, appliedAt := "pending", ""
	if s.Applied {
		status = "applied"
		if s.AppliedAt != nil {
			appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
		}
	}
	return strings.TrimRight(fmt.Sprintf("%-10d %-40s %-10s %s", s.Version, s.Name, status, appliedAt), " ")
}

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a tenant schema and apply all migrations to it",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			if !db.ValidTenantID(name) {
				return fmt.Errorf("invalid tenant identifier: %s", name)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := context.Background()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			fmt.Printf("Creating tenant schema: %s\n", db.SchemaName(name))
			migrator := db.NewMigrator(pool, migrationFiles(cfg.MigrationsDir))
			if err := db.CreateTenantSchema(ctx, pool, name, migrator); err != nil {
				return err
			}
			fmt.Println("Tenant created.")
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Tenant identifier (alphanumeric)")

	cmd.AddCommand(createCmd)
	return cmd
}

// parseRange reads "HH:MM-HH:MM".
func parseRange(s string) (scheduling.Range, error) {
	start, end, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return nil, fmt.Errorf("range %q: expected HH:MM-HH:MM", s)
	}
	r := scheduling.Range{strings.TrimSpace(start), strings.TrimSpace(end)}
	if _, _, err := r.Bounds(); err != nil {
		return nil, fmt.Errorf("range %q: %w", s, err)
	}
	return r, nil
}

func slotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Print the slots an opening range yields",
		Example: "  appq-server slots --open 09:00-17:00 --break 12:00-13:00 --interval 30",
		RunE: func(cmd *cobra.Command, args []string) error {
			openFlag, _ := cmd.Flags().GetString("open")
			breakFlags, _ := cmd.Flags().GetStringSlice("break")
			interval, _ := cmd.Flags().GetInt("interval")

			opening, err := parseRange(openFlag)
			if err != nil {
				return err
			}
			var breaks []scheduling.Range
			for _, b := range breakFlags {
				r, err := parseRange(b)
				if err != nil {
					return err
				}
				breaks = append(breaks, r)
			}

			slots, err := scheduling.GenerateTimeSlots(opening, breaks, interval)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range slots {
				fmt.Fprintf(out, "%s-%s\n", s[0], s[1])
			}
			fmt.Fprintf(out, "%d slot(s)\n", len(slots))
			return nil
		},
	}
	cmd.Flags().String("open", "09:00-17:00", "Opening range")
	cmd.Flags().StringSlice("break", nil, "Break range, repeatable")
	cmd.Flags().Int("interval", organization.DefaultIntervalMinutes, "Slot length in minutes")
	return cmd
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Env, os.Stdout)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := openPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	health := map[string]db.Pinger{"database": pool}

	// Category cache, optional.
	var provider cache.Provider = cache.Noop{}
	if cfg.CacheEnabled() {
		client, err := cache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer client.Close()
		redisCache := cache.NewRedis(client)
		provider = redisCache
		health["redis"] = redisCache
		logger.Info().Dur("ttl", cfg.CategoryCacheTTL).Msg("category cache enabled")
	}

	// Domain wiring
	orgRepo := organization.NewOrganizationRepoPG(pool)
	catRepo := organization.NewCachedCategoryRepo(organization.NewCategoryRepoPG(pool), provider, cfg.CategoryCacheTTL, logger)
	orgSvc := organization.NewService(orgRepo, catRepo, logger.With().Str("component", "organization").Logger())

	apptRepo := appointment.NewRepoPG(pool)
	orgSvc.SetBookingLookup(apptRepo)
	apptSvc := appointment.NewService(apptRepo, orgSvc, db.NewTxRunner(pool),
		logger.With().Str("component", "appointment").Logger())

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Tenant-ID"},
	}))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		JWKSURL:    cfg.AuthJWKSURL,
		SigningKey: []byte(cfg.AuthSigningKey),
		Skipper:    auth.AuthSkipper,
	}
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(cfg.DefaultTenant, jwtCfg))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}
	e.Use(middleware.Audit(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	e.GET("/health/db", db.HealthHandler(health, func() *db.PoolStats { return db.GetPoolStats(pool) }))

	apiV1 := e.Group("/api/v1")
	rateLimitCfg := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
		rateLimitCfg.BurstSize = cfg.RateLimitBurst
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	apiV1.Use(db.TenantMiddleware(pool, cfg.DefaultTenant))

	organization.NewHandler(orgSvc).RegisterRoutes(apiV1)
	appointment.NewHandler(apptSvc).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
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
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

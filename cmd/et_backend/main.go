package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	portssvc "github.com/Mahmadabid/expense-tracker-sub000/internal/core/ports/services"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/core/services"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/crypto"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/handlers"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/middleware"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/platform/config"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/repositories/database/pgsql"
	"github.com/Mahmadabid/expense-tracker-sub000/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	limitergin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// @title Loan Tracker Backend API
// @version 1.0
// @description Shared loan tracking backend with collaborative approval and encrypted storage.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbPool, err := database.NewPgxPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.ClosePgxPool(dbPool)
	logger.Info("Database connection pool established.")

	if err := runMigrations(cfg, logger); err != nil {
		logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	codec, err := crypto.NewCodecFromHex(cfg.EncryptionKeyHex)
	if err != nil {
		logger.Error("Failed to initialize encryption codec", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Wire repositories and services.
	loanRepo := pgsql.NewPgxLoanRepository(dbPool, codec)
	auditRepo := pgsql.NewPgxAuditRepository(dbPool)
	userRepo := pgsql.NewPgxUserRepository(dbPool)

	userService := services.NewUserService(userRepo)
	auditService := services.NewAuditService(auditRepo)
	loanService := services.NewLoanService(loanRepo, userService, auditService, services.NewLogNotifier())

	container := &portssvc.ServiceContainer{
		User:  userService,
		Loan:  loanService,
		Audit: auditService,
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	r.Use(cors.Default())

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Global API rate limit; the auth routes add their own tighter limit.
	if rate, err := limiter.NewRateFromFormatted(cfg.RateLimit); err == nil {
		r.Use(limitergin.NewMiddleware(limiter.New(memory.NewStore(), rate)))
	} else {
		logger.Warn("Invalid RATE_LIMIT value, rate limiting disabled", slog.String("value", cfg.RateLimit))
	}

	handlers.RegisterRoutes(r, cfg, container)

	logger.Info("Server starting", slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// runMigrations applies all pending "up" migrations using a temporary
// database/sql connection over the pgx stdlib driver.
func runMigrations(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("Running database migrations...")

	migrationDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()
	if err := migrationDB.Ping(); err != nil {
		return err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationsPath, "postgres", driver)
	if err != nil {
		return err
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return err
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return sourceErr
	}
	if dbErr != nil {
		return dbErr
	}

	if err == migrate.ErrNoChange {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/anonto42/nano-midea/comments/internal/middleware"
	"github.com/anonto42/nano-midea/comments/internal/repositories"
	"github.com/anonto42/nano-midea/comments/internal/router"
	"github.com/anonto42/nano-midea/comments/pkg/config"
	"github.com/anonto42/nano-midea/comments/pkg/firebase"
	"github.com/anonto42/nano-midea/comments/pkg/telemetry"
	"github.com/labstack/echo/v4"
	glog "github.com/labstack/gommon/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB() // Ensure database connections are closed when main exits

	if err := config.Migrate(db.SQL); err != nil {
		log.Fatalf("Failed to migrate comment table: %v", err)
	}

	var audit repositories.AuditRepository
	if db.Mongo != nil {
		mongoAudit := repositories.NewMongoAuditRepository(db.Mongo.Database(cfg.MongoDatabase))
		if err := mongoAudit.EnsureIndexes(ctx); err != nil {
			log.Fatalf("Failed to create audit indexes: %v", err)
		}
		audit = mongoAudit
	}

	auth, err := authMiddleware(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize authentication: %v", err)
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(logLevel(cfg.LogLevel))
	e.Logger.SetHeader(`{"time":"${time_rfc3339}","level":"${level}","prefix":"${prefix}"}`)

	// Setup global middleware
	router.SetupMiddleware(e)

	// Setup routes and dependencies
	router.SetupRoutes(e, router.Dependencies{
		Comments: repositories.NewPostgresCommentRepository(db.SQL),
		Audit:    audit,
		Auth:     auth,
	})

	// Start server
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Error(err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		e.Logger.Error(err)
	}
}

func authMiddleware(ctx context.Context, cfg *config.Config) (echo.MiddlewareFunc, error) {
	if cfg.AuthMode == config.AuthModeFirebase {
		authenticator, err := firebase.InitAuthenticator(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			return nil, err
		}
		return middleware.RequireUser(authenticator), nil
	}
	return middleware.JWTAuthMiddleware(cfg.JWTSecret), nil
}

func logLevel(level string) glog.Lvl {
	switch strings.ToLower(level) {
	case "debug":
		return glog.DEBUG
	case "warn":
		return glog.WARN
	case "error":
		return glog.ERROR
	case "off":
		return glog.OFF
	default:
		return glog.INFO
	}
}

package router

import (
	"log"

	"github.com/anonto42/nano-midea/comments/internal/handlers"
	"github.com/anonto42/nano-midea/comments/internal/middleware"
	"github.com/anonto42/nano-midea/comments/internal/repositories"
	"github.com/anonto42/nano-midea/comments/internal/services"
	"github.com/anonto42/nano-midea/comments/internal/validators"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
)

// Dependencies are the collaborators SetupRoutes wires into handlers.
type Dependencies struct {
	Comments repositories.CommentRepository
	// Audit may be nil, which disables the audit trail.
	Audit repositories.AuditRepository
	// Auth resolves the caller on mutating routes.
	Auth echo.MiddlewareFunc
}

// SetupMiddleware configures global Echo middleware, the validator and the
// error handler.
func SetupMiddleware(e *echo.Echo) {
	e.HTTPErrorHandler = handlers.HTTPErrorHandler
	e.Validator = validators.NewValidator()

	e.Use(middleware.RequestID())
	e.Use(middleware.AccessLog(e.Logger))
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORSWithConfig(eMiddleware.CORSConfig{
		ExposeHeaders: []string{echo.HeaderXRequestID},
	}))
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler(deps.Comments)
	e.GET("/health", healthHandler.HealthCheck)

	commentService := services.NewCommentService(deps.Comments, deps.Audit, e.Logger)
	commentHandler := handlers.NewCommentHandler(commentService)
	commentHandler.RegisterCommentRoutes(e.Group("/comment"), deps.Auth)
	log.Println("Comment routes configured.")
}

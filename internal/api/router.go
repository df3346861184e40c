package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/justyntemme/librarian/internal/auth"
	"github.com/justyntemme/librarian/internal/config"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Books  BookService
	Users  UserStore
	Health Pinger
	Tokens *auth.Manager
	Server config.ServerConfig
	Logger *slog.Logger
}

// NewRouter builds the HTTP routes.
func NewRouter(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	handler := NewHandler(d.Books, d.Health, logger)
	authHandler := NewAuthHandler(d.Users, d.Tokens, logger)

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(logger), cors(d.Server.CORSOrigins))
	if d.Server.RateLimitRPS > 0 {
		r.Use(newRateLimiter(d.Server.RateLimitRPS, d.Server.RateLimitBurst).middleware())
	}
	r.Use(bodyLimit(d.Server.MaxUploadBytes))

	r.GET("/health", handler.HealthCheck)

	apiGroup := r.Group("/api")
	{
		authGroup := apiGroup.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.RefreshToken)
		}

		protected := apiGroup.Group("")
		protected.Use(d.Tokens.Middleware())
		{
			protected.GET("/auth/me", authHandler.GetCurrentUser)

			protected.GET("/books", handler.ListBooks)
			protected.POST("/books", handler.CreateBook)
			protected.POST("/books/isbn", handler.CreateFromIdentifier)
			protected.GET("/books/:id", handler.GetBook)
			protected.PUT("/books/:id", handler.UpdateBook)
			protected.DELETE("/books/:id", handler.DeleteBook)
			protected.GET("/books/:id/photo", handler.GetPhoto)

			protected.GET("/metadata/:isbn", handler.Lookup)
			protected.GET("/stats", handler.Stats)
		}
	}

	return r
}

package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	appLogger "github.com/FACorreiaa/go-book-catalog/app/logger"
	_ "github.com/FACorreiaa/go-book-catalog/docs"
	"github.com/FACorreiaa/go-book-catalog/internal/api/auth"
	"github.com/FACorreiaa/go-book-catalog/internal/api/book"
)

// Config contains dependencies needed for the router setup
type Config struct {
	AuthHandler    *auth.AuthHandler
	BookHandler    *book.BookHandler
	TokenVerifier  auth.TokenVerifier
	AllowedOrigins []string
	Timeout        time.Duration
	Logger         *slog.Logger
}

// SetupRouter initializes and configures the main application router.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appLogger.StructuredLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	if cfg.Timeout > 0 {
		r.Use(middleware.Timeout(cfg.Timeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Route("/api/v1", func(r chi.Router) {
		// Public
		r.Group(func(r chi.Router) {
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)
		})

		// Every request below re-verifies its bearer token.
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate(cfg.Logger, cfg.TokenVerifier))

			r.Get("/auth/me", cfg.AuthHandler.Me)

			r.Route("/books", func(r chi.Router) {
				r.Get("/", cfg.BookHandler.ListBooks)
				r.Post("/", cfg.BookHandler.CreateBook)
				r.Get("/categories", cfg.BookHandler.Categories)
				r.Get("/{bookID}", cfg.BookHandler.GetBook)
				r.Put("/{bookID}", cfg.BookHandler.UpdateBook)
				r.Delete("/{bookID}", cfg.BookHandler.DeleteBook)
			})
		})
	})

	return r
}

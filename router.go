package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/user/messagely-go/apperror"
	"github.com/user/messagely-go/auth"
	"github.com/user/messagely-go/background"
	"github.com/user/messagely-go/config"
	"github.com/user/messagely-go/inbox"
	"github.com/user/messagely-go/messages"
	"github.com/user/messagely-go/users"
)

// requestTimeout bounds every route except the live inbox stream.
const requestTimeout = 60 * time.Second

// application is everything the HTTP server needs, wired together.
type application struct {
	handler http.Handler
	inbox   *inbox.Broadcaster
}

// newApplication builds the services on top of the given storage and mounts them on a router.
func newApplication(store *storage, pool *background.WorkerPool, authCfg config.AuthConfig, logger *zap.Logger) (*application, error) {
	hasher := auth.NewPasswordHasher(pool, authCfg.BcryptWorkFactor)
	identity, err := auth.NewIdentityService(store.credentials, hasher, authCfg, logger)
	if err != nil {
		return nil, err
	}

	broadcaster := inbox.NewBroadcaster(logger)
	messageService := messages.NewService(store.messages, broadcaster, logger)
	userService := users.NewUserService(store.directory, store.messages)

	authHandlers := auth.NewHandlers(identity)
	messageHandlers := messages.NewHandlers(messageService, broadcaster, logger)
	userHandlers := users.NewUserHandlers(userService)
	guard := auth.Guard(identity, logger)

	r := chi.NewRouter()

	// Chi requires all middleware to be registered before any routes.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		auth.WriteError(w, r, apperror.NewNotFoundError("Not Found", nil))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		auth.WriteJSON(w, http.StatusMethodNotAllowed, apperror.ErrorResponse{
			Error: apperror.ErrorBody{Message: "Method Not Allowed", Status: http.StatusMethodNotAllowed},
		})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		authHandlers.RegisterRoutes(r)
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(guard)
		userHandlers.RegisterRoutes(r)
	})

	r.Route("/messages", func(r chi.Router) {
		r.Use(guard)
		r.Get("/stream", messageHandlers.HandleStream())
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			messageHandlers.RegisterRoutes(r)
		})
	})

	return &application{handler: r, inbox: broadcaster}, nil
}

// requestLogger logs one line per request through zap.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// recoverer turns a handler panic into a 500 with the usual error envelope.
func recoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic while serving request",
						zap.String("request_id", middleware.GetReqID(r.Context())),
						zap.Any("panic", rvr),
						zap.Stack("stack"))
					auth.WriteError(w, r, apperror.NewInternalError("internal server error", nil))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

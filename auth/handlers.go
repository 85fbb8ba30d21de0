// Package auth, as part of the authentication module.
// This file, `handlers.go`, is responsible for handling HTTP requests related to authentication.
// It also carries WriteJSON/WriteError, which every other feature package uses
// so that all responses and error envelopes look the same.
package auth

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	// `apperror` provides standardized error types and responses.
	"github.com/user/messagely-go/apperror"
)

// Handlers wraps the IdentityService to provide HTTP handlers
type Handlers struct {
	service *IdentityService
}

// NewHandlers creates a new Handlers instance
func NewHandlers(service *IdentityService) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes mounts the unauthenticated auth endpoints.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.HandleRegister())
	r.Post("/login", h.HandleLogin())
}

// HandleRegister godoc
// @Summary User Registration
// @Description Registers a new user and returns a token for it.
// @Tags Auth
// @Accept json
// @Produce json
// @Param registerBody body auth.RegisterRequest true "User registration details"
// @Success 201 {object} auth.TokenResponse
// @Failure 400 {object} apperror.ErrorResponse "Missing fields"
// @Failure 409 {object} apperror.ErrorResponse "Username taken"
// @Router /auth/register [post]
func (h *Handlers) HandleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := DecodeAndValidate(r, &req); err != nil {
			WriteError(w, r, err)
			return
		}

		resp, err := h.service.SignUp(r.Context(), req)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusCreated, resp)
	}
}

// HandleLogin godoc
// @Summary User Login
// @Description Verifies credentials, records the login time, and returns a token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param loginBody body auth.LoginRequest true "User login credentials"
// @Success 200 {object} auth.TokenResponse
// @Failure 400 {object} apperror.ErrorResponse "Missing fields or invalid username/password"
// @Router /auth/login [post]
func (h *Handlers) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := DecodeAndValidate(r, &req); err != nil {
			WriteError(w, r, err)
			return
		}

		resp, err := h.service.Login(r.Context(), req)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// WriteJSON serializes `data` to JSON and writes it with the given `status`.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil { // Avoid writing nil, which would produce a "null" body
		if err := json.NewEncoder(w).Encode(data); err != nil {
			zap.L().Error("failed to encode response", zap.Error(err))
		}
	}
}

// WriteError converts any error into the standard `{error: {message, status}}` envelope.
// Errors that are not *apperror.AppError become a generic 500 without leaking their text.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperror.FromError(err)
	if !ok {
		appErr = apperror.NewInternalError("an unexpected error occurred", err)
	}

	status := appErr.StatusCode()
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Stringer("type", appErr.Type),
			zap.Error(appErr))
	}

	WriteJSON(w, status, appErr.ToResponse())
}

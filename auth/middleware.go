// Package auth, as part of the authentication module.
// This file, `middleware.go`, defines the guard that runs before every
// protected handler: it finds the bearer token, verifies it, and attaches the
// username to the request context.
package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	// `strings` for string manipulation (e.g., splitting the Authorization header).
	"strings"

	"go.uber.org/zap"

	"github.com/user/messagely-go/apperror"
)

// tokenField is the query parameter / JSON body field that may carry the token
// when no Authorization header is sent.
const tokenField = "_token"

// maxTokenBodyBytes caps how much of a request body the guard will buffer while looking for `_token`.
const maxTokenBodyBytes = 1 << 20

// TokenVerifier is the part of the identity service the guard needs.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// Guard creates the authentication middleware.
// The identity comes from the token alone; the credential store is not consulted.
// The returned middleware conforms to the standard Go `func(next http.Handler) http.Handler` pattern.
func Guard(verifier TokenVerifier, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := extractToken(r)
			if err != nil {
				WriteError(w, r, err)
				return
			}

			username, err := verifier.VerifyToken(tokenString)
			if err != nil {
				logger.Debug("rejected request token",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Error(err))
				// Collapse every verification failure into the same public message.
				WriteError(w, r, apperror.NewUnauthenticatedError("Unauthorized", err))
				return
			}

			ctx := NewContextWithUsername(r.Context(), username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken looks for the token in the Authorization header, then the
// `_token` query parameter, then a top-level `_token` field of a JSON body.
// An empty string with a nil error means no token was supplied anywhere.
func extractToken(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		// The Authorization header should be in the format "Bearer {token}".
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", apperror.NewUnauthenticatedError("Authorization header format must be Bearer {token}", nil)
		}
		return strings.TrimSpace(parts[1]), nil
	}

	if token := r.URL.Query().Get(tokenField); token != "" {
		return token, nil
	}

	return tokenFromBody(r)
}

// tokenFromBody peeks at a JSON body for `_token` and puts the body back for the handler.
func tokenFromBody(r *http.Request) (string, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return "", nil
	}
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		return "", nil
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxTokenBodyBytes))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return "", apperror.NewBadRequestError("failed to read request body", err)
	}

	var envelope struct {
		Token string `json:"_token"`
	}
	// A body that isn't a JSON object simply has no token; the handler reports the decode error.
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", nil
	}
	return envelope.Token, nil
}

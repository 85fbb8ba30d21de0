// Package auth is responsible for identity: user registration, credential
// verification, and the signed bearer tokens that carry a username claim from
// one request to the next. It also hosts the request guard (middleware.go) and
// the shared HTTP response helpers used by the other feature packages.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	// Third-party library for JWT handling. `jwt/v5` indicates version 5.
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/user/messagely-go/apperror"
	"github.com/user/messagely-go/background"
	"github.com/user/messagely-go/config"
	"github.com/user/messagely-go/db"
)

const tokenIssuer = "messagely"

// ErrNoToken is returned by VerifyToken when no token was supplied at all,
// as opposed to a token that failed verification.
var ErrNoToken = apperror.NewUnauthenticatedError("authentication token is missing", nil)

// Claims is the payload of every token. There is deliberately no expiry:
// a token stays valid until the signing secret changes.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// IdentityService provides authentication-related services.
type IdentityService struct {
	store  CredentialStore
	hasher *PasswordHasher
	secret []byte
	logger *zap.Logger

	// dummyHash is compared against when a username is unknown so that a miss
	// costs the same bcrypt work as a wrong password.
	dummyHash string
	now       func() time.Time
}

// NewIdentityService creates a new IdentityService.
// The auth configuration is copied in; nothing mutates it afterwards.
func NewIdentityService(store CredentialStore, hasher *PasswordHasher, authConfig config.AuthConfig, logger *zap.Logger) (*IdentityService, error) {
	if authConfig.JWTSecret == "" {
		return nil, apperror.NewConfigError("JWT secret must not be empty", nil)
	}
	dummy, err := hasher.Hash(context.Background(), "messagely-timing-equaliser")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}
	return &IdentityService{
		store:     store,
		hasher:    hasher,
		secret:    []byte(authConfig.JWTSecret),
		logger:    logger,
		dummyHash: dummy,
		now:       time.Now,
	}, nil
}

// WithClock replaces the time source. Used by tests.
func (s *IdentityService) WithClock(now func() time.Time) *IdentityService {
	s.now = now
	return s
}

// Register creates a new user with a bcrypt-hashed password.
// Only the username is returned; the hash never leaves this package.
func (s *IdentityService) Register(ctx context.Context, req RegisterRequest) (*Identity, error) {
	if req.Username == "" || req.Password == "" {
		return nil, apperror.NewValidationError("username and password required", nil)
	}

	hashedPassword, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, apperror.NewValidationError("password must be at most 72 bytes", nil)
		}
		return nil, apperror.NewInternalError("failed to hash password", err)
	}

	now := s.now().UTC()
	user := &User{
		Username:       req.Username,
		HashedPassword: hashedPassword,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Phone:          req.Phone,
		JoinAt:         now,
		LastLoginAt:    &now,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperror.NewConflictError("username taken, please pick another", err)
		}
		if _, ok := apperror.FromError(err); ok {
			return nil, err
		}
		return nil, apperror.NewStorageError("failed to create user", err)
	}

	s.logger.Info("user registered", zap.String("username", user.Username))
	return &Identity{Username: user.Username}, nil
}

// Authenticate reports whether username/password is a valid pair.
// An unknown username and a wrong password both yield (false, nil); the error
// return is reserved for infrastructure failures.
func (s *IdentityService) Authenticate(ctx context.Context, username, password string) (bool, error) {
	user, err := s.store.GetCredentials(ctx, username)
	if err != nil {
		if apperror.IsNotFound(err) {
			// Spend the same bcrypt work as a real comparison.
			if _, cmpErr := s.hasher.Compare(ctx, s.dummyHash, password); cmpErr != nil {
				return false, cmpErr
			}
			return false, nil
		}
		return false, err
	}

	ok, err := s.hasher.Compare(ctx, user.HashedPassword, password)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, background.ErrPoolStopped) {
			return false, err
		}
		// A corrupt stored hash is not the caller's fault, but it is still not a match.
		s.logger.Warn("password comparison failed", zap.String("username", username), zap.Error(err))
		return false, nil
	}
	return ok, nil
}

// UpdateLoginTimestamp sets last_login_at to now for an existing user.
func (s *IdentityService) UpdateLoginTimestamp(ctx context.Context, username string) error {
	return s.store.TouchLastLogin(ctx, username, s.now().UTC())
}

// Login authenticates the credentials, records the login, and issues a token.
func (s *IdentityService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, apperror.NewValidationError("username and password required", nil)
	}

	ok, err := s.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Avoid revealing whether the username or password was wrong.
		return nil, apperror.NewBadRequestError("invalid username/password", nil)
	}

	if err := s.UpdateLoginTimestamp(ctx, req.Username); err != nil {
		return nil, err
	}

	token, err := s.IssueToken(req.Username)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("user logged in", zap.String("username", req.Username))
	return &TokenResponse{Token: token}, nil
}

// SignUp registers the user and hands back a token for the new identity.
func (s *IdentityService) SignUp(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	identity, err := s.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	token, err := s.IssueToken(identity.Username)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{Token: token}, nil
}

// IssueToken signs a token carrying the username claim.
func (s *IdentityService) IssueToken(username string) (string, error) {
	if username == "" {
		return "", apperror.NewValidationError("username required", nil)
	}
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   tokenIssuer,
			Subject:  username,
			IssuedAt: jwt.NewNumericDate(s.now()),
		},
	}

	// Create a new token object with the HS256 signing method and sign it with the process secret.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", apperror.NewInternalError("failed to sign token", err)
	}
	return tokenString, nil
}

// VerifyToken checks the signature and returns the username claim.
// An empty token yields ErrNoToken; anything else that fails is an UnauthenticatedError.
func (s *IdentityService) VerifyToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrNoToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", apperror.NewUnauthenticatedError("invalid token", err)
	}
	if !token.Valid {
		return "", apperror.NewUnauthenticatedError("invalid token", nil)
	}
	if claims.Username == "" {
		return "", apperror.NewUnauthenticatedError("invalid token: username claim is missing", nil)
	}
	return claims.Username, nil
}

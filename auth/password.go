package auth

import (
	"context"
	"errors"

	// Library for password hashing using bcrypt.
	"golang.org/x/crypto/bcrypt"

	"github.com/user/messagely-go/background"
)

// PasswordHasher runs bcrypt on the background worker pool so that expensive
// hashing never runs on the goroutine accepting requests.
type PasswordHasher struct {
	pool *background.WorkerPool
	cost int
}

// NewPasswordHasher creates a hasher with the given bcrypt work factor.
func NewPasswordHasher(pool *background.WorkerPool, cost int) *PasswordHasher {
	return &PasswordHasher{pool: pool, cost: cost}
}

// Hash returns the salted bcrypt hash of password.
func (h *PasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	var (
		hashed []byte
		err    error
	)
	if submitErr := h.pool.Submit(ctx, func() {
		hashed, err = bcrypt.GenerateFromPassword([]byte(password), h.cost)
	}); submitErr != nil {
		return "", submitErr
	}
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare reports whether password matches hash. A mismatch is (false, nil);
// an error means the comparison itself could not be performed.
func (h *PasswordHasher) Compare(ctx context.Context, hash, password string) (bool, error) {
	var err error
	if submitErr := h.pool.Submit(ctx, func() {
		err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	}); submitErr != nil {
		return false, submitErr
	}
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}

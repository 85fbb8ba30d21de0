// Package auth, as previously noted, handles authentication.
// This file, `models.go`, defines the data structures of the identity domain:
// the stored User record and the Identity handed back to callers.
package auth

import "time"

// User is a registered user as held by the credential store.
// The `json:"-"` tag on HashedPassword keeps the hash out of every JSON encoding.
type User struct {
	Username       string     `json:"username"`
	HashedPassword string     `json:"-"` // Never leaves the auth package in a response
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Phone          string     `json:"phone"`
	JoinAt         time.Time  `json:"join_at"`
	LastLoginAt    *time.Time `json:"last_login_at"`
}

// Identity is what registration returns: the username, and nothing secret.
type Identity struct {
	Username string `json:"username"`
}

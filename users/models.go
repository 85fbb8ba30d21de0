// Package users serves the user directory: the public list of users, each
// user's own extended profile, and each user's inbox and sent folder.
// Everything except the list is visible to its owner only.
package users

import (
	"time"

	"github.com/user/messagely-go/messages"
)

// Summary is the public part of a user, visible to any authenticated caller.
type Summary struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// Profile is a user's extended profile, shown to that user only.
type Profile struct {
	Username    string     `json:"username"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Phone       string     `json:"phone"`
	JoinAt      time.Time  `json:"join_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

// ListResponse is the body of GET /users.
type ListResponse struct {
	Users []Summary `json:"users"`
}

// ProfileResponse is the body of GET /users/{username}.
type ProfileResponse struct {
	User *Profile `json:"user"`
}

// InboxResponse is the body of GET /users/{username}/to.
type InboxResponse struct {
	Messages []messages.Inbound `json:"messages"`
}

// SentResponse is the body of GET /users/{username}/from.
type SentResponse struct {
	Messages []messages.Outbound `json:"messages"`
}

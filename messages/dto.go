package messages

import "time"

// CreateMessageRequest is the body of POST /messages.
// The sender is never taken from the body; it is the authenticated user.
type CreateMessageRequest struct {
	ToUsername string `json:"to_username" validate:"required"`
	Body       string `json:"body" validate:"required"`
}

// Created is the `message` object returned by POST /messages.
type Created struct {
	ID           int64  `json:"id"`
	FromUsername string `json:"from_username"`
	ToUsername   string `json:"to_username"`
	Body         string `json:"body"`
	SentAt       time.Time `json:"sent_at"`
}

// MessageEnvelope wraps a single message-shaped payload as `{"message": ...}`.
type MessageEnvelope struct {
	Message any `json:"message"`
}

// Package messages owns the message resource: sending a message, reading one,
// and marking one as read. Every operation takes the requesting username and
// enforces the sender/recipient rules itself, so handlers stay thin.
package messages

import "time"

// Message is a row of the `messages` table.
type Message struct {
	ID           int64      `json:"id"`
	FromUsername string     `json:"from_username"`
	ToUsername   string     `json:"to_username"`
	Body         string     `json:"body"`
	SentAt       time.Time  `json:"sent_at"`
	ReadAt       *time.Time `json:"read_at"`
}

// Party is the public part of a user shown next to a message.
type Party struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// View is a message with both participants expanded.
type View struct {
	ID       int64      `json:"id"`
	Body     string     `json:"body"`
	SentAt   time.Time  `json:"sent_at"`
	ReadAt   *time.Time `json:"read_at"`
	FromUser Party      `json:"from_user"`
	ToUser   Party      `json:"to_user"`
}

// ReadReceipt is returned after marking a message read.
type ReadReceipt struct {
	ID     int64     `json:"id"`
	ReadAt time.Time `json:"read_at"`
}

// Inbound is an entry in a user's inbox: the other party is the sender.
type Inbound struct {
	ID       int64      `json:"id"`
	Body     string     `json:"body"`
	SentAt   time.Time  `json:"sent_at"`
	ReadAt   *time.Time `json:"read_at"`
	FromUser Party      `json:"from_user"`
}

// Outbound is an entry in a user's sent folder: the other party is the recipient.
type Outbound struct {
	ID     int64      `json:"id"`
	Body   string     `json:"body"`
	SentAt time.Time  `json:"sent_at"`
	ReadAt *time.Time `json:"read_at"`
	ToUser Party      `json:"to_user"`
}

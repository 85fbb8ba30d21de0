package messages

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/user/messagely-go/apperror"
	"github.com/user/messagely-go/db"
	"github.com/user/messagely-go/inbox"
)

// Notifier receives an event for the recipient of every new message.
type Notifier interface {
	Publish(username string, event inbox.Event) int
}

// Service implements message access control.
type Service struct {
	store    Store
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a Service. notifier may be nil when no live inbox is wired.
func NewService(store Store, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{store: store, notifier: notifier, logger: logger, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GetMessage returns the message if requester sent or received it.
func (s *Service) GetMessage(ctx context.Context, id int64, requester string) (*View, error) {
	if requester == "" {
		return nil, apperror.NewUnauthenticatedError("Unauthorized", nil)
	}
	view, err := s.store.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if view.FromUser.Username != requester && view.ToUser.Username != requester {
		return nil, apperror.NewUnauthorizedError("Cannot read this message", nil)
	}
	return view, nil
}

// CreateMessage sends a message from requester. The sender in the request
// body, if any, is ignored.
func (s *Service) CreateMessage(ctx context.Context, requester string, req CreateMessageRequest) (*Created, error) {
	if requester == "" {
		return nil, apperror.NewUnauthenticatedError("Unauthorized", nil)
	}
	if req.ToUsername == "" || req.Body == "" {
		return nil, apperror.NewValidationError("to_username and body required", nil)
	}

	msg := &Message{
		FromUsername: requester,
		ToUsername:   req.ToUsername,
		Body:         req.Body,
		SentAt:       s.now().UTC(),
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		if db.IsForeignKeyViolation(err) {
			return nil, apperror.NewValidationError("invalid to_username", err)
		}
		if _, ok := apperror.FromError(err); ok {
			return nil, err
		}
		return nil, apperror.NewStorageError("failed to create message", err)
	}

	created := &Created{
		ID:           msg.ID,
		FromUsername: msg.FromUsername,
		ToUsername:   msg.ToUsername,
		Body:         msg.Body,
		SentAt:       msg.SentAt,
	}
	s.notify(created)
	return created, nil
}

// MarkRead stamps read_at on a message addressed to requester. Repeating it
// moves read_at forward.
func (s *Service) MarkRead(ctx context.Context, id int64, requester string) (*ReadReceipt, error) {
	if requester == "" {
		return nil, apperror.NewUnauthenticatedError("Unauthorized", nil)
	}
	view, err := s.store.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if view.ToUser.Username != requester {
		return nil, apperror.NewUnauthorizedError("Cannot set this message to read", nil)
	}
	return s.store.MarkMessageRead(ctx, id, s.now().UTC())
}

func (s *Service) notify(created *Created) {
	if s.notifier == nil {
		return
	}
	event, err := inbox.NewJSONEvent(inbox.EventMessage, MessageEnvelope{Message: created})
	if err != nil {
		s.logger.Warn("failed to build inbox event", zap.Int64("message_id", created.ID), zap.Error(err))
		return
	}
	n := s.notifier.Publish(created.ToUsername, event)
	s.logger.Debug("message sent",
		zap.Int64("message_id", created.ID),
		zap.String("to", created.ToUsername),
		zap.Int("live_streams", n))
}

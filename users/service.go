package users

import (
	"context"

	"github.com/user/messagely-go/apperror"
	"github.com/user/messagely-go/messages"
)

// UserService applies the visibility rules of the directory.
type UserService struct {
	directory Directory
	mailbox   Mailbox
}

// NewUserService creates a new UserService.
func NewUserService(directory Directory, mailbox Mailbox) *UserService {
	return &UserService{directory: directory, mailbox: mailbox}
}

// List returns every user's public fields. Any authenticated caller may list.
func (s *UserService) List(ctx context.Context) ([]Summary, error) {
	list, err := s.directory.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []Summary{}
	}
	return list, nil
}

// GetProfile returns the extended profile of username to that same user.
func (s *UserService) GetProfile(ctx context.Context, username, requester string) (*Profile, error) {
	if err := requireSelf(username, requester); err != nil {
		return nil, err
	}
	return s.directory.GetUser(ctx, username)
}

// MessagesTo lists the messages received by username.
func (s *UserService) MessagesTo(ctx context.Context, username, requester string) ([]messages.Inbound, error) {
	if err := requireSelf(username, requester); err != nil {
		return nil, err
	}
	list, err := s.mailbox.MessagesTo(ctx, username)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []messages.Inbound{}
	}
	return list, nil
}

// MessagesFrom lists the messages sent by username.
func (s *UserService) MessagesFrom(ctx context.Context, username, requester string) ([]messages.Outbound, error) {
	if err := requireSelf(username, requester); err != nil {
		return nil, err
	}
	list, err := s.mailbox.MessagesFrom(ctx, username)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []messages.Outbound{}
	}
	return list, nil
}

// requireSelf runs before any lookup so that a refusal never reveals whether
// the other username exists.
func requireSelf(username, requester string) error {
	if requester == "" {
		return apperror.NewUnauthenticatedError("Unauthorized", nil)
	}
	if username != requester {
		return apperror.NewUnauthorizedError("Unauthorized", nil)
	}
	return nil
}

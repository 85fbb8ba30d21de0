package users

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/messagely-go/auth"
)

// UserHandlers provides HTTP handlers for the user directory.
type UserHandlers struct {
	service *UserService
}

// NewUserHandlers creates new UserHandlers.
func NewUserHandlers(service *UserService) *UserHandlers {
	return &UserHandlers{service: service}
}

// RegisterRoutes mounts the directory endpoints. auth.Guard must run first.
func (h *UserHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleList())
	r.Get("/{username}", h.HandleGetProfile())
	r.Get("/{username}/to", h.HandleMessagesTo())
	r.Get("/{username}/from", h.HandleMessagesFrom())
}

// HandleList godoc
// @Summary List users
// @Description Returns the public fields of every user.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} users.ListResponse
// @Failure 401 {object} apperror.ErrorResponse "Unauthorized - Invalid or missing token"
// @Router /users [get]
func (h *UserHandlers) HandleList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := auth.RequireUser(r.Context()); err != nil {
			auth.WriteError(w, r, err)
			return
		}
		list, err := h.service.List(r.Context())
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, ListResponse{Users: list})
	}
}

// HandleGetProfile godoc
// @Summary Get own profile
// @Description Returns the extended profile. Only the user themself may fetch it.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 200 {object} users.ProfileResponse
// @Failure 401 {object} apperror.ErrorResponse "Unauthorized - not this user"
// @Failure 404 {object} apperror.ErrorResponse "Not Found - User not found"
// @Router /users/{username} [get]
func (h *UserHandlers) HandleGetProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requester, err := auth.RequireUser(r.Context())
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		profile, err := h.service.GetProfile(r.Context(), chi.URLParam(r, "username"), requester)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, ProfileResponse{User: profile})
	}
}

// HandleMessagesTo godoc
// @Summary Inbox
// @Description Messages received by the user, each with its sender.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 200 {object} users.InboxResponse
// @Failure 401 {object} apperror.ErrorResponse "Unauthorized - not this user"
// @Router /users/{username}/to [get]
func (h *UserHandlers) HandleMessagesTo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requester, err := auth.RequireUser(r.Context())
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		list, err := h.service.MessagesTo(r.Context(), chi.URLParam(r, "username"), requester)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, InboxResponse{Messages: list})
	}
}

// HandleMessagesFrom godoc
// @Summary Sent messages
// @Description Messages sent by the user, each with its recipient.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 200 {object} users.SentResponse
// @Failure 401 {object} apperror.ErrorResponse "Unauthorized - not this user"
// @Router /users/{username}/from [get]
func (h *UserHandlers) HandleMessagesFrom() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requester, err := auth.RequireUser(r.Context())
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		list, err := h.service.MessagesFrom(r.Context(), chi.URLParam(r, "username"), requester)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, SentResponse{Messages: list})
	}
}

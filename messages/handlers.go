package messages

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/user/messagely-go/apperror"
	"github.com/user/messagely-go/auth"
	"github.com/user/messagely-go/inbox"
)

// heartbeatInterval keeps idle streams from being closed by proxies.
const heartbeatInterval = 25 * time.Second

// Subscriber is the part of the inbox broadcaster the stream handler needs.
type Subscriber interface {
	Subscribe(username string) (string, <-chan inbox.Event)
	Unsubscribe(id string)
}

// Handlers exposes the Service over HTTP. Every route expects auth.Guard in front of it.
type Handlers struct {
	service *Service
	inbox   Subscriber
	logger  *zap.Logger
}

// NewHandlers creates the message handlers.
func NewHandlers(service *Service, inbox Subscriber, logger *zap.Logger) *Handlers {
	return &Handlers{service: service, inbox: inbox, logger: logger}
}

// RegisterRoutes mounts the request/response message endpoints.
// The long-lived stream is mounted separately with HandleStream so it can
// live outside the request timeout.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Post("/", h.HandleCreate())
	r.Get("/{id}", h.HandleGet())
	r.Post("/{id}/read", h.HandleMarkRead())
}

// HandleGet godoc
// @Summary Get a message
// @Description Returns the message with both participants. Only its sender and recipient may read it.
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Success 200 {object} messages.MessageEnvelope
// @Failure 401 {object} apperror.ErrorResponse "Not the sender or recipient"
// @Failure 404 {object} apperror.ErrorResponse "No such message"
// @Router /messages/{id} [get]
func (h *Handlers) HandleGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, err := auth.RequireUser(r.Context())
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		id, err := messageID(r)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		view, err := h.service.GetMessage(r.Context(), id, username)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, MessageEnvelope{Message: view})
	}
}

// HandleCreate godoc
// @Summary Send a message
// @Description Sends a message from the authenticated user.
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param message body messages.CreateMessageRequest true "Recipient and body"
// @Success 201 {object} messages.MessageEnvelope
// @Failure 400 {object} apperror.ErrorResponse "Missing fields or unknown recipient"
// @Router /messages [post]
func (h *Handlers) HandleCreate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, err := auth.RequireUser(r.Context())
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		var req CreateMessageRequest
		if err := auth.DecodeAndValidate(r, &req); err != nil {
			auth.WriteError(w, r, err)
			return
		}

		created, err := h.service.CreateMessage(r.Context(), username, req)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusCreated, MessageEnvelope{Message: created})
	}
}

// HandleMarkRead godoc
// @Summary Mark a message read
// @Description Sets read_at to now. Only the recipient may do this.
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Success 200 {object} messages.MessageEnvelope
// @Failure 401 {object} apperror.ErrorResponse "Not the recipient"
// @Failure 404 {object} apperror.ErrorResponse "No such message"
// @Router /messages/{id}/read [post]
func (h *Handlers) HandleMarkRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, err := auth.RequireUser(r.Context())
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		id, err := messageID(r)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		receipt, err := h.service.MarkRead(r.Context(), id, username)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, MessageEnvelope{Message: receipt})
	}
}

// HandleStream godoc
// @Summary Live inbox
// @Description Server-Sent Events stream of messages delivered to the authenticated user while connected.
// @Tags Messages
// @Produce text/event-stream
// @Security BearerAuth
// @Router /messages/stream [get]
func (h *Handlers) HandleStream() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, err := auth.RequireUser(r.Context())
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		rc := http.NewResponseController(w)
		// The server-wide write timeout does not apply to a stream.
		_ = rc.SetWriteDeadline(time.Time{})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		id, events := h.inbox.Subscribe(username)
		defer h.inbox.Unsubscribe(id)

		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, ": connected\n\n")
		if err := rc.Flush(); err != nil {
			h.logger.Warn("streaming unsupported by response writer", zap.Error(err))
			return
		}

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if _, err := ev.WriteTo(w); err != nil {
					return
				}
			case <-heartbeat.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func messageID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NewBadRequestError(fmt.Sprintf("invalid message id %q", raw), err)
	}
	return id, nil
}

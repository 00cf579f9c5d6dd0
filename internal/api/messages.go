package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/erazemk/noleggio/internal/db"
	"github.com/erazemk/noleggio/internal/model"
	"github.com/erazemk/noleggio/internal/realtime"
	"github.com/erazemk/noleggio/internal/store"
)

// MessagesHandler handles contact requests from the public site.
type MessagesHandler struct {
	DB  *db.DB
	Hub realtime.Hub
}

type contactRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	EventType string `json:"event_type"`
	Date      string `json:"date"`
	Message   string `json:"message"`
}

type messagesResponse struct {
	Messages []model.ContactMessage `json:"messages"`
	Unread   int                    `json:"unread"`
}

// Create handles POST /api/contact. It needs no authentication.
func (h *MessagesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Message = strings.TrimSpace(req.Message)
	if req.Name == "" || req.Email == "" || req.Message == "" {
		jsonError(w, http.StatusBadRequest, "name, email, and message required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid email")
		return
	}

	msg, err := store.InsertMessage(r.Context(), h.DB, model.ContactMessage{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		EventType: req.EventType,
		Date:      req.Date,
		Message:   req.Message,
	})
	if err != nil {
		slog.Error("failed to store contact message", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	change, err := realtime.NewChange(store.MessagesTable, realtime.EventInsert, msg)
	if err == nil {
		err = h.Hub.Publish(r.Context(), change)
	}
	if err != nil {
		slog.Warn("failed to publish contact message", "id", msg.ID, "error", err)
	}

	slog.Info("contact message received", "id", msg.ID, "event_type", msg.EventType)
	jsonResponse(w, http.StatusCreated, map[string]string{"id": msg.ID})
}

// List handles GET /api/messages.
func (h *MessagesHandler) List(w http.ResponseWriter, r *http.Request) {
	msgs, err := store.ListMessages(r.Context(), h.DB)
	if err != nil {
		if db.IsMissingTable(err) {
			jsonResponse(w, http.StatusServiceUnavailable, fetchErrorResponse{
				Error: "La tabella contact_messages non esiste ancora. Esegui \"noleggio migrate\".",
				Code:  "missing_table",
			})
			return
		}
		slog.Error("failed to list messages", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}

	resp := messagesResponse{Messages: msgs}
	if resp.Messages == nil {
		resp.Messages = []model.ContactMessage{}
	}
	for _, m := range msgs {
		if !m.IsRead {
			resp.Unread++
		}
	}
	jsonResponse(w, http.StatusOK, resp)
}

// MarkRead handles PUT /api/messages/{id}/read.
func (h *MessagesHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	err := store.MarkMessageRead(r.Context(), h.DB, r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "message not found")
		return
	}
	if err != nil {
		slog.Error("failed to mark message read", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update message")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "marked as read"})
}

// Delete handles DELETE /api/messages/{id}.
func (h *MessagesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := store.DeleteMessage(r.Context(), h.DB, id)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "message not found")
		return
	}
	if err != nil {
		slog.Error("failed to delete message", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete message")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("contact message deleted", "user", claims.Username, "id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "message deleted"})
}

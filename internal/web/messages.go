package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/noleggio/internal/store"
)

// MessageRead handles POST /messages/{id}/read.
func (s *Server) MessageRead(w http.ResponseWriter, r *http.Request) {
	err := store.MarkMessageRead(r.Context(), s.DB, r.PathValue("id"))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Error("failed to mark message read", "error", err)
		s.render(w, r, http.StatusInternalServerError, s.shell(r).View(), "Impossibile aggiornare il messaggio.")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// MessageDelete handles POST /messages/{id}/delete.
func (s *Server) MessageDelete(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id := r.PathValue("id")

	err := store.DeleteMessage(r.Context(), s.DB, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Error("failed to delete message", "error", err)
		s.render(w, r, http.StatusInternalServerError, s.shell(r).View(), "Impossibile eliminare il messaggio: "+err.Error())
		return
	}

	slog.Info("contact message deleted", "user", claims.Username, "id", id)
	http.Redirect(w, r, "/?ok=message", http.StatusSeeOther)
}

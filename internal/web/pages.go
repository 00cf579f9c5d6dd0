package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/noleggio/internal/admin"
	"github.com/erazemk/noleggio/internal/catalog"
	"github.com/erazemk/noleggio/internal/db"
	"github.com/erazemk/noleggio/internal/model"
	"github.com/erazemk/noleggio/internal/store"
)

// flashes are the confirmations shown after a redirect, keyed by ?ok=.
var flashes = map[string]string{
	"account":  "Profilo aggiornato.",
	"password": "Password aggiornata.",
	"company":  "Impostazioni aziendali salvate.",
	"system":   "Impostazioni di sistema salvate.",
	"user":     "Utente creato.",
	"role":     "Ruolo aggiornato.",
	"reset":    "Password reimpostata.",
	"deleted":  "Utente eliminato.",
	"message":  "Messaggio eliminato.",
}

// Index handles GET /: the active tab of the session's shell.
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, s.shell(r).View(), "")
}

// render draws view v. errMsg is shown above the page content.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, v admin.View, errMsg string) {
	ctx := r.Context()
	data := PageData{
		Title:   v.Tab.Label(),
		User:    GetWebClaims(ctx),
		Tab:     v.Tab,
		Tabs:    admin.Tabs,
		Prefs:   v.Prefs,
		Error:   errMsg,
		Success: v.Notice,
	}
	if msg, ok := flashes[r.URL.Query().Get("ok")]; ok {
		data.Success = msg
	}
	if n, err := store.CountUnreadMessages(ctx, s.DB); err == nil {
		data.Unread = n
	}

	switch v.Tab {
	case admin.TabInventory, admin.TabPortfolio:
		s.Templates.Render(w, status, "catalog.html", &catalogPage{PageData: data, View: v})

	case admin.TabCategories:
		p := &categoriesPage{PageData: data, View: v}
		if v.Category == "" && v.Listing.Err == nil {
			sum := catalog.Aggregate(v.Listing.Items)
			p.Summary = &sum
		}
		s.Templates.Render(w, status, "categories.html", p)

	case admin.TabMessages:
		p := &messagesPage{PageData: data}
		msgs, err := store.ListMessages(ctx, s.DB)
		switch {
		case db.IsMissingTable(err):
			p.MissingTable = true
		case err != nil:
			slog.Error("failed to list messages", "error", err)
			p.Error = "Impossibile caricare i messaggi. Riprova."
		}
		p.Messages = msgs
		s.Templates.Render(w, status, "messages.html", p)

	case admin.TabSettings:
		s.Templates.Render(w, status, "settings.html", s.settingsPage(r, data))

	default:
		p := &dashboardPage{PageData: data}
		stats, err := s.Catalog.Stats(ctx)
		if err != nil {
			slog.Error("failed to compute stats", "error", err)
			p.Error = "Impossibile caricare le statistiche."
		}
		p.Stats = stats
		if msgs, err := store.ListMessages(ctx, s.DB); err == nil {
			p.Recent = msgs[:min(len(msgs), 5)]
		}
		s.Templates.Render(w, status, "dashboard.html", p)
	}
}

type catalogPage struct {
	PageData
	View admin.View
}

type categoriesPage struct {
	PageData
	View    admin.View
	Summary *catalog.CategorySummary
}

type messagesPage struct {
	PageData
	Messages     []model.ContactMessage
	MissingTable bool
}

type dashboardPage struct {
	PageData
	Stats  model.DashboardStats
	Recent []model.ContactMessage
}

// SwitchTab handles GET /tab/{tab}. An open form is discarded.
func (s *Server) SwitchTab(w http.ResponseWriter, r *http.Request) {
	tab, ok := admin.ParseTab(r.PathValue("tab"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.shell(r).SwitchTab(r.Context(), tab)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Search handles POST /search. Only the local filter changes.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	s.shell(r).Search(r.FormValue("q"))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// SelectCategory handles POST /category.
func (s *Server) SelectCategory(w http.ResponseWriter, r *http.Request) {
	s.shell(r).SelectCategory(r.Context(), r.FormValue("category"))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Refresh handles POST /refresh, the retry action of a failed listing.
func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	s.shell(r).Refresh(r.Context())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ToggleDarkMode handles POST /prefs/dark.
func (s *Server) ToggleDarkMode(w http.ResponseWriter, r *http.Request) {
	s.shell(r).ToggleDarkMode()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ToggleSidebar handles POST /prefs/sidebar.
func (s *Server) ToggleSidebar(w http.ResponseWriter, r *http.Request) {
	s.shell(r).ToggleSidebar()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// pageError is a message meant for the operator, shown as is.
type pageError string

func (e pageError) Error() string { return string(e) }

// shellError renders the current view with err, choosing the status from
// the kind of failure.
func (s *Server) shellError(w http.ResponseWriter, r *http.Request, sh *admin.Shell, err error) {
	status := http.StatusInternalServerError
	msg := err.Error()
	var pe pageError
	switch {
	case errors.As(err, &pe):
		status = http.StatusBadRequest
	case errors.Is(err, admin.ErrItemNotFound):
		status, msg = http.StatusNotFound, "Elemento non trovato. Aggiorna l'elenco."
	case errors.Is(err, admin.ErrNoForm), errors.Is(err, admin.ErrNotCatalogTab):
		status, msg = http.StatusConflict, "Nessun modulo aperto."
	case catalog.IsUserError(err):
		status = http.StatusUnprocessableEntity
	}
	s.render(w, r, status, sh.View(), msg)
}

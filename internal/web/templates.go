package web

import (
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/noleggio/internal/admin"
	"github.com/erazemk/noleggio/internal/auth"
	"github.com/erazemk/noleggio/internal/catalog"
	"github.com/erazemk/noleggio/internal/db"
	"github.com/erazemk/noleggio/internal/model"
	"github.com/erazemk/noleggio/internal/ratelimit"
	"github.com/erazemk/noleggio/internal/realtime"
	webembed "github.com/erazemk/noleggio/web"
)

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"roleAtLeast": model.RoleAtLeast,
		"roleName": func(role string) string {
			switch role {
			case model.RoleAdmin:
				return "Amministratore"
			case model.RoleManager:
				return "Magazziniere"
			case model.RoleUser:
				return "Utente"
			default:
				return role
			}
		},
		"statusName": func(status string) string {
			switch status {
			case model.StatusAvailable:
				return "Disponibile"
			case model.StatusInUse:
				return "In uso"
			case model.StatusMaintenance:
				return "In manutenzione"
			case model.StatusOutOfStock:
				return "Esaurito"
			default:
				return status
			}
		},
		"categories":  model.CategoriesFor,
		"locations":   func() []string { return model.Locations },
		"statuses":    func() []string { return model.Statuses },
		"roles":       func() []string { return []string{model.RoleUser, model.RoleManager, model.RoleAdmin} },
		"frequencies": func() []string { return model.BackupFrequencies },
		"weekdays":    func() []string { return weekdays },
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Local().Format("02/01/2006 15:04")
		},
		"clock": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Local().Format("15:04:05")
		},
	}
}

// pages lists every page template; each is parsed together with the layout.
var pages = []string{
	"login.html",
	"dashboard.html",
	"catalog.html",
	"categories.html",
	"messages.html",
	"settings.html",
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	tfs := webembed.TemplatesFS()

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap())
		tmpl, err = tmpl.Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		tmpl, err = tmpl.Parse(string(pageBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with the given data and status.
func (ts *Templates) Render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title   string
	User    *auth.Claims
	Tab     admin.Tab
	Tabs    []admin.Tab
	Prefs   admin.Prefs
	Unread  int
	Error   string
	Success string
}

// Deps are the services the pages are built on. Limiter may be nil.
type Deps struct {
	DB       *db.DB
	Catalog  *catalog.Service
	Sessions *admin.Sessions
	Hub      realtime.Hub
	Issuer   *auth.Issuer
	Limiter  *ratelimit.Limiter
	// SecureCookies marks the session cookie Secure (HTTPS deployments).
	SecureCookies bool
}

// Server holds all dependencies for page handlers.
type Server struct {
	Deps
	Templates *Templates
}

package web

import (
	"net/http"

	"github.com/gorilla/schema"

	"github.com/erazemk/noleggio/internal/model"
	"github.com/erazemk/noleggio/internal/realtime"
	"github.com/erazemk/noleggio/internal/store"
	webembed "github.com/erazemk/noleggio/web"
)

// formDecoder decodes page forms into structs by their schema tags.
var formDecoder = newFormDecoder()

func newFormDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// NewRouter creates the web page router with all page routes registered.
func NewRouter(d Deps) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{Deps: d, Templates: templates}

	mux := http.NewServeMux()
	cookieAuth := CookieAuthMiddleware(d.Issuer, d.DB)
	page := func(h http.HandlerFunc) http.Handler { return cookieAuth(h) }
	manager := func(h http.HandlerFunc) http.Handler { return cookieAuth(requireRole(model.RoleManager, h)) }
	adminOnly := func(h http.HandlerFunc) http.Handler { return cookieAuth(requireRole(model.RoleAdmin, h)) }
	throttle := d.Limiter.Middleware(func(w http.ResponseWriter, r *http.Request) {
		s.Templates.Render(w, http.StatusTooManyRequests, "login.html", &PageData{
			Title: "Accesso",
			Error: "Troppi tentativi di accesso. Riprova tra un minuto.",
		})
	})

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	// Public routes.
	mux.HandleFunc("GET /login", s.LoginPage)
	mux.Handle("POST /login", throttle(http.HandlerFunc(s.LoginSubmit)))
	mux.HandleFunc("POST /logout", s.Logout)

	// Shell navigation.
	mux.Handle("GET /{$}", page(s.Index))
	mux.Handle("GET /tab/{tab}", page(s.SwitchTab))
	mux.Handle("POST /search", page(s.Search))
	mux.Handle("POST /category", page(s.SelectCategory))
	mux.Handle("POST /refresh", page(s.Refresh))
	mux.Handle("POST /prefs/dark", page(s.ToggleDarkMode))
	mux.Handle("POST /prefs/sidebar", page(s.ToggleSidebar))

	// Catalog form: reading is open to all roles, writing needs manager+.
	mux.Handle("GET /items/new", manager(s.ItemNew))
	mux.Handle("GET /items/{id}", page(s.ItemOpen))
	mux.Handle("POST /items/edit", manager(s.ItemBeginEdit))
	mux.Handle("POST /items/cancel", page(s.ItemCancel))
	mux.Handle("POST /items/save", manager(s.ItemSave))
	mux.Handle("POST /items/{id}/delete", manager(s.ItemDelete))

	// Contact messages.
	mux.Handle("GET /messages/stream", cookieAuth(realtime.StreamHandler(d.Hub, store.MessagesTable, realtime.EventInsert)))
	mux.Handle("POST /messages/{id}/read", page(s.MessageRead))
	mux.Handle("POST /messages/{id}/delete", manager(s.MessageDelete))

	// Settings.
	mux.Handle("POST /settings/account", page(s.AccountSubmit))
	mux.Handle("POST /settings/password", page(s.PasswordSubmit))
	mux.Handle("POST /settings/company", manager(s.CompanySubmit))
	mux.Handle("POST /settings/system", adminOnly(s.SystemSubmit))
	mux.Handle("POST /settings/users", adminOnly(s.UserCreateSubmit))
	mux.Handle("POST /settings/users/{id}/role", adminOnly(s.UserUpdateRoleSubmit))
	mux.Handle("POST /settings/users/{id}/password", adminOnly(s.UserResetPasswordSubmit))
	mux.Handle("POST /settings/users/{id}/delete", adminOnly(s.UserDeleteSubmit))

	return mux, nil
}

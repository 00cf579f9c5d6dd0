package api

import (
	"net/http"

	"github.com/gorilla/schema"

	"github.com/erazemk/noleggio/internal/auth"
	"github.com/erazemk/noleggio/internal/catalog"
	"github.com/erazemk/noleggio/internal/db"
	"github.com/erazemk/noleggio/internal/model"
	"github.com/erazemk/noleggio/internal/ratelimit"
	"github.com/erazemk/noleggio/internal/realtime"
	"github.com/erazemk/noleggio/internal/store"
)

// Deps are the services the API is built on. The limiters may be nil.
type Deps struct {
	DB      *db.DB
	Catalog *catalog.Service
	Hub     realtime.Hub
	Issuer  *auth.Issuer

	// Limiter throttles logins, ContactLimiter the public contact form.
	Limiter        *ratelimit.Limiter
	ContactLimiter *ratelimit.Limiter
}

// formDecoder decodes multipart catalog forms. It is safe for concurrent use.
var formDecoder = newFormDecoder()

func newFormDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: d.DB, Issuer: d.Issuer}
	usersHandler := &UsersHandler{DB: d.DB}
	catalogHandler := &CatalogHandler{Service: d.Catalog}
	messagesHandler := &MessagesHandler{DB: d.DB, Hub: d.Hub}
	settingsHandler := &SettingsHandler{DB: d.DB}

	authMW := AuthMiddleware(d.Issuer, d.DB)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)
	throttle := d.Limiter.Middleware(func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
	})
	throttleContact := d.ContactLimiter.Middleware(func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, http.StatusTooManyRequests, "too many messages, try again later")
	})

	// Public.
	mux.Handle("POST /api/auth/login", throttle(http.HandlerFunc(authHandler.Login)))
	mux.Handle("POST /api/contact", throttleContact(http.HandlerFunc(messagesHandler.Create)))
	mux.HandleFunc("GET /api/public/products", catalogHandler.PublicProducts)

	// Account.
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("GET /api/account", authMW(http.HandlerFunc(authHandler.Me)))
	mux.Handle("PUT /api/account", authMW(http.HandlerFunc(authHandler.UpdateProfile)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Catalog: read (all roles), write (manager+).
	mux.Handle("GET /api/catalog/{kind}", authMW(http.HandlerFunc(catalogHandler.List)))
	mux.Handle("POST /api/catalog/{kind}", authMW(requireManager(http.HandlerFunc(catalogHandler.Create))))
	mux.Handle("GET /api/catalog/{kind}/{id}", authMW(http.HandlerFunc(catalogHandler.Get)))
	mux.Handle("PUT /api/catalog/{kind}/{id}", authMW(requireManager(http.HandlerFunc(catalogHandler.Update))))
	mux.Handle("DELETE /api/catalog/{kind}/{id}", authMW(requireManager(http.HandlerFunc(catalogHandler.Delete))))
	mux.Handle("GET /api/categories", authMW(http.HandlerFunc(catalogHandler.Categories)))
	mux.Handle("GET /api/stats", authMW(http.HandlerFunc(catalogHandler.Stats)))

	// Contact messages: read (all roles), write (manager+).
	mux.Handle("GET /api/messages", authMW(http.HandlerFunc(messagesHandler.List)))
	mux.Handle("GET /api/messages/stream", authMW(realtime.StreamHandler(d.Hub, store.MessagesTable, realtime.EventInsert)))
	mux.Handle("PUT /api/messages/{id}/read", authMW(http.HandlerFunc(messagesHandler.MarkRead)))
	mux.Handle("DELETE /api/messages/{id}", authMW(requireManager(http.HandlerFunc(messagesHandler.Delete))))

	// Settings: read (all roles), company (manager+), system (admin).
	mux.Handle("GET /api/settings/company", authMW(http.HandlerFunc(settingsHandler.GetCompany)))
	mux.Handle("PUT /api/settings/company", authMW(requireManager(http.HandlerFunc(settingsHandler.PutCompany))))
	mux.Handle("GET /api/settings/system", authMW(http.HandlerFunc(settingsHandler.GetSystem)))
	mux.Handle("PUT /api/settings/system", authMW(requireAdmin(http.HandlerFunc(settingsHandler.PutSystem))))

	return mux
}

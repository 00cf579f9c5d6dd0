package web

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/noleggio/internal/auth"
	"github.com/erazemk/noleggio/internal/store"
)

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, http.StatusOK, "login.html", &PageData{Title: "Accesso"})
}

func (s *Server) loginFailed(w http.ResponseWriter, status int, msg string) {
	s.Templates.Render(w, status, "login.html", &PageData{Title: "Accesso", Error: msg})
}

// LoginSubmit handles POST /login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")

	if username == "" || password == "" {
		s.loginFailed(w, http.StatusBadRequest, "Inserisci nome utente e password.")
		return
	}

	user, err := store.GetUserByUsername(r.Context(), s.DB, username)
	if err != nil || user == nil || user.DeletedAt != nil {
		s.loginFailed(w, http.StatusUnauthorized, "Nome utente o password non validi.")
		return
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		slog.Warn("login failed", "username", username, "remote", r.RemoteAddr)
		s.loginFailed(w, http.StatusUnauthorized, "Nome utente o password non validi.")
		return
	}

	token, claims, err := s.Issuer.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		slog.Error("issuing token", "error", err)
		s.loginFailed(w, http.StatusInternalServerError, "Errore durante l'accesso.")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteStrictMode,
		Expires:  claims.ExpiresAt.Time,
	})

	slog.Info("user logged in", "user", user.Username, "role", user.Role)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout handles POST /logout. The token is revoked and the session's shell
// is dropped.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		if claims, err := s.Issuer.Validate(cookie.Value); err == nil {
			if err := store.RevokeToken(r.Context(), s.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
				slog.Error("failed to revoke token", "error", err)
			}
			s.Sessions.Drop(claims.ID)
			slog.Info("user logged out", "user", claims.Username)
		}
	}
	clearAuthCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

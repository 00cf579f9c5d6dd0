package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/erazemk/noleggio/internal/auth"
	"github.com/erazemk/noleggio/internal/model"
	"github.com/erazemk/noleggio/internal/store"
)

type settingsPage struct {
	PageData
	Account *model.User
	Company *model.CompanySettings
	System  *model.SystemSettings
	Users   []model.User
	// UserQuery filters the user list (admin only).
	UserQuery string
}

// settingsPage loads everything the Impostazioni tab shows. Failures are
// logged and leave the section empty.
func (s *Server) settingsPage(r *http.Request, data PageData) *settingsPage {
	ctx := r.Context()
	p := &settingsPage{PageData: data, UserQuery: r.URL.Query().Get("uq")}

	var err error
	if p.Account, err = store.GetUser(ctx, s.DB, data.User.UserID); err != nil {
		slog.Error("failed to get account", "error", err)
	}
	if p.Company, err = store.GetCompanySettings(ctx, s.DB); err != nil {
		slog.Error("failed to get company settings", "error", err)
	}
	if p.System, err = store.GetSystemSettings(ctx, s.DB); err != nil {
		slog.Error("failed to get system settings", "error", err)
	}
	if model.RoleAtLeast(data.User.Role, model.RoleAdmin) {
		users, err := store.ListUsers(ctx, s.DB)
		if err != nil {
			slog.Error("failed to list users", "error", err)
		}
		p.Users = store.FilterUsers(users, p.UserQuery)
	}
	return p
}

func (s *Server) settingsError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.render(w, r, status, s.shell(r).View(), msg)
}

// AccountSubmit handles POST /settings/account.
func (s *Server) AccountSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	name := strings.TrimSpace(r.FormValue("full_name"))

	if err := store.UpdateUserProfile(r.Context(), s.DB, claims.UserID, name); err != nil {
		slog.Error("failed to update profile", "error", err)
		s.settingsError(w, r, http.StatusInternalServerError, "Impossibile aggiornare il profilo.")
		return
	}
	slog.Info("user updated profile", "user", claims.Username)
	http.Redirect(w, r, "/?ok=account", http.StatusSeeOther)
}

// PasswordSubmit handles POST /settings/password.
func (s *Server) PasswordSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	current := r.FormValue("current_password")
	next := r.FormValue("new_password")

	if next != r.FormValue("confirm_password") {
		s.settingsError(w, r, http.StatusBadRequest, "Le password non coincidono.")
		return
	}
	if err := model.ValidatePassword(next); err != nil {
		s.settingsError(w, r, http.StatusBadRequest, fmt.Sprintf("La password deve avere almeno %d caratteri.", model.MinPasswordLength))
		return
	}

	user, err := store.GetUser(r.Context(), s.DB, claims.UserID)
	if err != nil || user == nil {
		s.settingsError(w, r, http.StatusInternalServerError, "Errore interno.")
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, current); err != nil {
		msg := "Errore interno."
		if errors.Is(err, auth.ErrWrongPassword) {
			msg = "La password attuale non è corretta."
		}
		s.settingsError(w, r, http.StatusBadRequest, msg)
		return
	}

	hash, err := auth.HashPassword(next)
	if err == nil {
		err = store.UpdateUserPassword(r.Context(), s.DB, claims.UserID, hash)
	}
	if err != nil {
		slog.Error("failed to change password", "error", err)
		s.settingsError(w, r, http.StatusInternalServerError, "Impossibile aggiornare la password.")
		return
	}

	slog.Info("user changed own password", "user", claims.Username)
	http.Redirect(w, r, "/?ok=password", http.StatusSeeOther)
}

// CompanySubmit handles POST /settings/company.
func (s *Server) CompanySubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())

	settings, err := store.GetCompanySettings(r.Context(), s.DB)
	if err != nil {
		slog.Error("failed to get company settings", "error", err)
		s.settingsError(w, r, http.StatusInternalServerError, "Impossibile caricare le impostazioni.")
		return
	}
	if err := r.ParseForm(); err != nil {
		s.settingsError(w, r, http.StatusBadRequest, "Modulo non valido.")
		return
	}
	if err := formDecoder.Decode(settings, r.PostForm); err != nil {
		s.settingsError(w, r, http.StatusBadRequest, "Valori non validi nel modulo.")
		return
	}
	for _, day := range weekdays {
		if v, ok := r.PostForm["hours_"+day]; ok {
			settings.WorkingHours[day] = strings.TrimSpace(v[0])
		}
	}

	if err := store.SaveCompanySettings(r.Context(), s.DB, settings); err != nil {
		slog.Error("failed to save company settings", "error", err)
		s.settingsError(w, r, http.StatusInternalServerError, "Impossibile salvare: "+err.Error())
		return
	}
	slog.Info("company settings updated", "user", claims.Username)
	http.Redirect(w, r, "/?ok=company", http.StatusSeeOther)
}

// weekdays are the keys of CompanySettings.WorkingHours.
var weekdays = []string{"lunedi", "martedi", "mercoledi", "giovedi", "venerdi", "sabato", "domenica"}

// SystemSubmit handles POST /settings/system. Unchecked boxes are not
// posted, so every switch starts off.
func (s *Server) SystemSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())

	current, err := store.GetSystemSettings(r.Context(), s.DB)
	if err != nil {
		slog.Error("failed to get system settings", "error", err)
		s.settingsError(w, r, http.StatusInternalServerError, "Impossibile caricare le impostazioni.")
		return
	}
	if err := r.ParseForm(); err != nil {
		s.settingsError(w, r, http.StatusBadRequest, "Modulo non valido.")
		return
	}

	settings := &model.SystemSettings{Integrations: make(map[string]bool, len(current.Integrations))}
	if err := formDecoder.Decode(settings, r.PostForm); err != nil {
		s.settingsError(w, r, http.StatusBadRequest, "Valori non validi nel modulo.")
		return
	}
	if !slices.Contains(model.BackupFrequencies, settings.BackupFrequency) {
		s.settingsError(w, r, http.StatusBadRequest, "Frequenza di backup non valida.")
		return
	}
	for name := range current.Integrations {
		settings.Integrations[name] = r.PostForm.Get("integration_"+name) == "on"
	}

	if err := store.SaveSystemSettings(r.Context(), s.DB, settings); err != nil {
		slog.Error("failed to save system settings", "error", err)
		s.settingsError(w, r, http.StatusInternalServerError, "Impossibile salvare: "+err.Error())
		return
	}
	slog.Info("system settings updated", "user", claims.Username)
	http.Redirect(w, r, "/?ok=system", http.StatusSeeOther)
}

// UserCreateSubmit handles POST /settings/users (admin only).
func (s *Server) UserCreateSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())

	username := strings.TrimSpace(r.FormValue("username"))
	fullName := strings.TrimSpace(r.FormValue("full_name"))
	password := r.FormValue("password")
	role := r.FormValue("role")

	if username == "" || !model.ValidRole(role) {
		s.settingsError(w, r, http.StatusBadRequest, "Nome utente e ruolo sono obbligatori.")
		return
	}
	if err := model.ValidatePassword(password); err != nil {
		s.settingsError(w, r, http.StatusBadRequest, fmt.Sprintf("La password deve avere almeno %d caratteri.", model.MinPasswordLength))
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		s.settingsError(w, r, http.StatusInternalServerError, "Errore interno.")
		return
	}
	user, err := store.CreateUser(r.Context(), s.DB, username, hash, role)
	if err != nil {
		s.settingsError(w, r, http.StatusConflict, "Il nome utente esiste già.")
		return
	}
	if fullName != "" {
		if err := store.UpdateUserProfile(r.Context(), s.DB, user.ID, fullName); err != nil {
			slog.Error("failed to set full name", "error", err)
		}
	}

	slog.Info("user created", "user", claims.Username, "new_user", username, "role", role)
	http.Redirect(w, r, "/?ok=user", http.StatusSeeOther)
}

func userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// UserUpdateRoleSubmit handles POST /settings/users/{id}/role (admin only).
func (s *Server) UserUpdateRoleSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id, ok := userID(w, r)
	if !ok {
		return
	}

	role := r.FormValue("role")
	if !model.ValidRole(role) {
		s.settingsError(w, r, http.StatusBadRequest, "Ruolo non valido.")
		return
	}
	if err := store.UpdateUser(r.Context(), s.DB, id, role); err != nil {
		slog.Error("failed to update user", "error", err)
		s.settingsError(w, r, http.StatusInternalServerError, "Impossibile aggiornare l'utente.")
		return
	}

	slog.Info("user role updated", "user", claims.Username, "target_id", id, "new_role", role)
	http.Redirect(w, r, "/?ok=role", http.StatusSeeOther)
}

// UserResetPasswordSubmit handles POST /settings/users/{id}/password (admin only).
func (s *Server) UserResetPasswordSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id, ok := userID(w, r)
	if !ok {
		return
	}

	password := r.FormValue("password")
	if err := model.ValidatePassword(password); err != nil {
		s.settingsError(w, r, http.StatusBadRequest, fmt.Sprintf("La password deve avere almeno %d caratteri.", model.MinPasswordLength))
		return
	}
	hash, err := auth.HashPassword(password)
	if err == nil {
		err = store.UpdateUserPassword(r.Context(), s.DB, id, hash)
	}
	if err != nil {
		slog.Error("failed to reset password", "error", err)
		s.settingsError(w, r, http.StatusInternalServerError, "Impossibile reimpostare la password.")
		return
	}

	slog.Info("user password reset", "user", claims.Username, "target_id", id)
	http.Redirect(w, r, "/?ok=reset", http.StatusSeeOther)
}

// UserDeleteSubmit handles POST /settings/users/{id}/delete (admin only).
func (s *Server) UserDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id, ok := userID(w, r)
	if !ok {
		return
	}
	if id == claims.UserID {
		s.settingsError(w, r, http.StatusBadRequest, "Non puoi eliminare il tuo account.")
		return
	}

	if err := store.DeleteUser(r.Context(), s.DB, id); err != nil {
		slog.Error("failed to delete user", "error", err)
		s.settingsError(w, r, http.StatusInternalServerError, "Impossibile eliminare l'utente.")
		return
	}

	slog.Info("user deleted", "user", claims.Username, "target_id", id)
	http.Redirect(w, r, "/?ok=deleted", http.StatusSeeOther)
}

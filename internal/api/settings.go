package api

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/erazemk/noleggio/internal/db"
	"github.com/erazemk/noleggio/internal/model"
	"github.com/erazemk/noleggio/internal/store"
)

// SettingsHandler handles the company and system settings documents.
type SettingsHandler struct {
	DB *db.DB
}

// GetCompany handles GET /api/settings/company.
func (h *SettingsHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
	s, err := store.GetCompanySettings(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to get company settings", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get settings")
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

// PutCompany handles PUT /api/settings/company.
func (h *SettingsHandler) PutCompany(w http.ResponseWriter, r *http.Request) {
	var s model.CompanySettings
	if err := decodeJSON(r, &s); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if s.WorkingHours == nil {
		s.WorkingHours = map[string]string{}
	}

	if err := store.SaveCompanySettings(r.Context(), h.DB, &s); err != nil {
		slog.Error("failed to save company settings", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to save settings: "+err.Error())
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("company settings updated", "user", claims.Username)
	jsonResponse(w, http.StatusOK, s)
}

// GetSystem handles GET /api/settings/system.
func (h *SettingsHandler) GetSystem(w http.ResponseWriter, r *http.Request) {
	s, err := store.GetSystemSettings(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to get system settings", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get settings")
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

// PutSystem handles PUT /api/settings/system.
func (h *SettingsHandler) PutSystem(w http.ResponseWriter, r *http.Request) {
	var s model.SystemSettings
	if err := decodeJSON(r, &s); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !slices.Contains(model.BackupFrequencies, s.BackupFrequency) {
		jsonError(w, http.StatusBadRequest, "invalid backup frequency")
		return
	}

	if err := store.SaveSystemSettings(r.Context(), h.DB, &s); err != nil {
		slog.Error("failed to save system settings", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to save settings: "+err.Error())
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("system settings updated", "user", claims.Username)
	jsonResponse(w, http.StatusOK, s)
}

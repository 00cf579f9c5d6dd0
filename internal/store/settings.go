package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/creasty/defaults"

	"github.com/erazemk/noleggio/internal/db"
	"github.com/erazemk/noleggio/internal/model"
)

// Setting keys.
const (
	settingJWTSecret = "jwt_secret"
	settingCompany   = "company"
	settingSystem    = "system"
)

// GetJWTSecret retrieves the JWT secret from the database.
// If no secret exists, it generates one, stores it, and returns it.
// Uses insert-ignore + re-SELECT to avoid TOCTOU race on concurrent startup.
func GetJWTSecret(ctx context.Context, db *db.DB) (string, error) {
	// Try to generate and insert first (safe against races).
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	candidate := hex.EncodeToString(buf)

	_, err := db.ExecContext(ctx,
		db.InsertIgnore("settings", "name, value", "?, ?"),
		settingJWTSecret, candidate,
	)
	if err != nil {
		return "", fmt.Errorf("storing jwt_secret: %w", err)
	}

	// Always read back (either our insert or the existing value).
	secret, err := getSetting(ctx, db, settingJWTSecret)
	if err != nil {
		return "", fmt.Errorf("querying jwt_secret: %w", err)
	}

	return secret, nil
}

func getSetting(ctx context.Context, db *db.DB, name string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE name = ?`, name,
	).Scan(&value)
	return value, err
}

func putSetting(ctx context.Context, db *db.DB, name, value string) error {
	_, err := db.ExecContext(ctx,
		db.Upsert("settings", "name", []string{"name", "value"}),
		name, value,
	)
	return err
}

// getJSONSetting decodes a JSON setting into target. found is false when the
// setting has never been saved.
func getJSONSetting(ctx context.Context, db *db.DB, name string, target any) (bool, error) {
	raw, err := getSetting(ctx, db, name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return false, fmt.Errorf("decoding %s settings: %w", name, err)
	}
	return true, nil
}

// GetCompanySettings returns the company profile (zero value if never saved).
func GetCompanySettings(ctx context.Context, db *db.DB) (*model.CompanySettings, error) {
	s := &model.CompanySettings{}
	if _, err := getJSONSetting(ctx, db, settingCompany, s); err != nil {
		return nil, fmt.Errorf("getting company settings: %w", err)
	}
	if s.WorkingHours == nil {
		s.WorkingHours = map[string]string{}
	}
	return s, nil
}

// SaveCompanySettings upserts the company profile.
func SaveCompanySettings(ctx context.Context, db *db.DB, s *model.CompanySettings) error {
	s.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding company settings: %w", err)
	}
	if err := putSetting(ctx, db, settingCompany, string(data)); err != nil {
		return fmt.Errorf("saving company settings: %w", err)
	}
	return nil
}

// GetSystemSettings returns the system switches, with defaults applied
// when they have never been saved.
func GetSystemSettings(ctx context.Context, db *db.DB) (*model.SystemSettings, error) {
	s := &model.SystemSettings{}
	found, err := getJSONSetting(ctx, db, settingSystem, s)
	if err != nil {
		return nil, fmt.Errorf("getting system settings: %w", err)
	}
	if !found {
		if err := defaults.Set(s); err != nil {
			return nil, fmt.Errorf("applying system settings defaults: %w", err)
		}
	}
	if s.Integrations == nil {
		s.Integrations = map[string]bool{"stripe": false, "whatsapp": false, "google": false}
	}
	return s, nil
}

// SaveSystemSettings upserts the system switches.
func SaveSystemSettings(ctx context.Context, db *db.DB, s *model.SystemSettings) error {
	s.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding system settings: %w", err)
	}
	if err := putSetting(ctx, db, settingSystem, string(data)); err != nil {
		return fmt.Errorf("saving system settings: %w", err)
	}
	return nil
}

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/erazemk/noleggio/internal/model"
)

func TestIssueAndValidateToken(t *testing.T) {
	issuer := NewIssuer("test-secret-key", 0)

	token, claims, err := issuer.Issue(1, "admin", model.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if claims.ID == "" {
		t.Fatal("expected a JTI")
	}

	got, err := issuer.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if got.UserID != 1 {
		t.Errorf("expected user_id 1, got %d", got.UserID)
	}
	if got.Username != "admin" {
		t.Errorf("expected username 'admin', got %q", got.Username)
	}
	if got.Role != model.RoleAdmin {
		t.Errorf("expected role 'admin', got %q", got.Role)
	}
	if got.ID != claims.ID {
		t.Errorf("expected JTI %q, got %q", claims.ID, got.ID)
	}
}

func TestUniqueJTI(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	_, a, _ := issuer.Issue(1, "admin", model.RoleAdmin)
	_, b, _ := issuer.Issue(1, "admin", model.RoleAdmin)
	if a.ID == b.ID {
		t.Error("two tokens share a JTI")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, _, _ := NewIssuer("secret1", time.Hour).Issue(1, "admin", model.RoleAdmin)

	_, err := NewIssuer("secret2", time.Hour).Validate(token)
	if err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestValidateTokenInvalid(t *testing.T) {
	_, err := NewIssuer("secret", time.Hour).Validate("not-a-token")
	if err == nil {
		t.Error("expected error for invalid token")
	}
}

func TestTokenExpiry(t *testing.T) {
	issuer := NewIssuer("test", 12*time.Hour)
	token, _, _ := issuer.Issue(1, "test", "user")
	claims, err := issuer.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	diff := time.Now().Add(12 * time.Hour).Sub(claims.ExpiresAt.Time)
	if diff < -5*time.Second || diff > 5*time.Second {
		t.Errorf("token expiry too far from expected: diff=%v", diff)
	}

	if NewIssuer("test", 0).TTL != DefaultTTL {
		t.Error("expected zero ttl to fall back to DefaultTTL")
	}
}

func TestExpiredToken(t *testing.T) {
	issuer := NewIssuer("test", -time.Minute)
	issuer.TTL = -time.Minute
	token, _, _ := issuer.Issue(1, "test", "user")
	if _, err := issuer.Validate(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := CheckPassword(hash, "correct horse"); err != nil {
		t.Errorf("CheckPassword: %v", err)
	}
	if err := CheckPassword(hash, "battery staple"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("expected ErrWrongPassword, got %v", err)
	}

	pw, err := GeneratePassword(16)
	if err != nil {
		t.Fatalf("GeneratePassword: %v", err)
	}
	if len(pw) != 16 {
		t.Errorf("expected 16 characters, got %d", len(pw))
	}
}

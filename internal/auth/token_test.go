package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret-key-32-bytes-long!!!", time.Hour)

	token, err := m.Generate("session-123")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.SessionID != "session-123" {
		t.Errorf("session id = %q, want session-123", claims.SessionID)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	m := NewTokenManager("test-secret-key-32-bytes-long!!!", time.Hour)

	if _, err := m.Validate("not-a-token"); err == nil {
		t.Error("expected error for garbage token")
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	a := NewTokenManager("secret-a", time.Hour)
	b := NewTokenManager("secret-b", time.Hour)

	token, err := a.Generate("session-123")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := b.Validate(token); err == nil {
		t.Error("expected error validating with a different secret")
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	m := NewTokenManager("test-secret-key-32-bytes-long!!!", -time.Minute)

	token, err := m.Generate("session-123")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := m.Validate(token); err == nil {
		t.Error("expected error for expired token")
	}
}

package token

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer("test-secret", 7*24*time.Hour)

	tok, err := issuer.Issue("admin-1", "admin@mathmentor.test")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	identity, err := issuer.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if identity.AdminID != "admin-1" {
		t.Errorf("AdminID = %q, want %q", identity.AdminID, "admin-1")
	}
	if identity.Email != "admin@mathmentor.test" {
		t.Errorf("Email = %q, want %q", identity.Email, "admin@mathmentor.test")
	}
	if identity.Role != "admin" {
		t.Errorf("Role = %q, want %q", identity.Role, "admin")
	}
}

func TestVerifyForeignSecret(t *testing.T) {
	tok, err := NewIssuer("secret-a", time.Hour).Issue("admin-1", "a@b.test")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := NewIssuer("secret-b", time.Hour).Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify with wrong secret: got %v, want ErrInvalidToken", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	issuer := NewIssuer("test-secret", -time.Minute)

	tok, err := issuer.Issue("admin-1", "a@b.test")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := issuer.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify expired token: got %v, want ErrInvalidToken", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := issuer.Verify(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Verify(%q): got %v, want ErrInvalidToken", tok, err)
		}
	}
}

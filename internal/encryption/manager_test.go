package encryption

import (
	"context"
	"testing"

	"mathmentor-api/internal/config"
)

func newLocalManager(t *testing.T) *EncryptionManager {
	t.Helper()
	cfg := &config.Config{}
	cfg.KMS.Enabled = false
	return NewEncryptionManager(cfg, nil)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	em := newLocalManager(t)
	ctx := context.Background()

	field, err := em.EncryptContact(ctx, "+91-98765-43210")
	if err != nil {
		t.Fatalf("EncryptContact: %v", err)
	}
	if len(field.Ciphertext) == 0 || field.EncryptedDEK == "" || field.KeyID == "" {
		t.Fatalf("incomplete envelope: %+v", field)
	}

	got, err := em.DecryptContact(ctx, field)
	if err != nil {
		t.Fatalf("DecryptContact: %v", err)
	}
	if got != "+91-98765-43210" {
		t.Errorf("DecryptContact = %q, want %q", got, "+91-98765-43210")
	}
}

func TestDecryptAfterCacheClear(t *testing.T) {
	em := newLocalManager(t)
	ctx := context.Background()

	field, err := em.EncryptContact(ctx, "secret")
	if err != nil {
		t.Fatalf("EncryptContact: %v", err)
	}

	// Force the unwrap path instead of the cached plaintext key.
	em.ClearCache()

	got, err := em.DecryptContact(ctx, field)
	if err != nil {
		t.Fatalf("DecryptContact after cache clear: %v", err)
	}
	if got != "secret" {
		t.Errorf("DecryptContact = %q, want %q", got, "secret")
	}
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	em := newLocalManager(t)
	ctx := context.Background()

	field, err := em.EncryptContact(ctx, "secret")
	if err != nil {
		t.Fatalf("EncryptContact: %v", err)
	}

	field.Ciphertext[len(field.Ciphertext)-1] ^= 0xff
	if _, err := em.DecryptContact(ctx, field); err == nil {
		t.Fatal("DecryptContact: tampered ciphertext accepted")
	}
}

func TestDistinctDataKeysPerField(t *testing.T) {
	em := newLocalManager(t)
	ctx := context.Background()

	a, err := em.EncryptContact(ctx, "same value")
	if err != nil {
		t.Fatalf("EncryptContact: %v", err)
	}
	b, err := em.EncryptContact(ctx, "same value")
	if err != nil {
		t.Fatalf("EncryptContact: %v", err)
	}

	if a.EncryptedDEK == b.EncryptedDEK {
		t.Error("two envelopes share a data key")
	}
	if string(a.Ciphertext) == string(b.Ciphertext) {
		t.Error("two envelopes share ciphertext")
	}
}

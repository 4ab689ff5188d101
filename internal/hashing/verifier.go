package hashing

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"mathmentor-api/internal/config"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// SchemeKind identifies which password hash scheme a stored credential
// uses. It is resolved exactly once, when the credential is read, so no
// prefix inspection leaks into call sites.
type SchemeKind int

const (
	// SchemeBcrypt covers the $2a$ / $2b$ / $2y$ hash variants.
	SchemeBcrypt SchemeKind = iota
	// SchemeLegacySHA256 is the pre-migration format:
	// hex(SHA256(salt || password)). Records are verified in place and
	// never upgraded on login.
	SchemeLegacySHA256
)

// HashScheme is the tagged variant carrying everything needed to check
// a candidate password against a stored credential.
type HashScheme struct {
	Kind SchemeKind
	Hash string
	Salt string // legacy only; empty for bcrypt
}

var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// ResolveScheme inspects a stored hash and classifies it. Anything
// without a recognized bcrypt marker is treated as legacy, including
// records with an empty salt; those simply fail verification rather
// than erroring.
func ResolveScheme(storedHash, salt string) HashScheme {
	for _, p := range bcryptPrefixes {
		if strings.HasPrefix(storedHash, p) {
			return HashScheme{Kind: SchemeBcrypt, Hash: storedHash}
		}
	}
	return HashScheme{Kind: SchemeLegacySHA256, Hash: storedHash, Salt: salt}
}

// match checks the candidate password against the scheme. Both paths
// are constant-time: bcrypt by construction, legacy via
// subtle.ConstantTimeCompare over the hex digests.
func (s HashScheme) match(password string) bool {
	switch s.Kind {
	case SchemeBcrypt:
		return bcrypt.CompareHashAndPassword([]byte(s.Hash), []byte(password)) == nil
	default:
		sum := sha256.Sum256([]byte(s.Salt + password))
		computed := hex.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(computed), []byte(s.Hash)) == 1
	}
}

// Verifier checks candidate passwords against stored credentials.
// Bcrypt is deliberately CPU-bound, so concurrent verifications are
// bounded by a weighted semaphore to keep login storms from starving
// the rest of the service.
type Verifier struct {
	sem  *semaphore.Weighted
	cost int
}

// NewVerifier builds a verifier from the auth config.
func NewVerifier(cfg *config.Config) *Verifier {
	workers := cfg.Auth.MaxVerifyWorkers
	if workers <= 0 {
		workers = 1
	}
	cost := cfg.Auth.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Verifier{
		sem:  semaphore.NewWeighted(int64(workers)),
		cost: cost,
	}
}

// Verify reports whether password matches the resolved scheme. The
// adaptive path waits for a verification slot; ctx cancellation while
// queued surfaces as an error, never as a mismatch.
func (v *Verifier) Verify(ctx context.Context, scheme HashScheme, password string) (bool, error) {
	if scheme.Kind == SchemeLegacySHA256 {
		return scheme.match(password), nil
	}

	if err := v.sem.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("verify slot: %w", err)
	}
	defer v.sem.Release(1)

	return scheme.match(password), nil
}

// HashPassword produces a bcrypt hash for new or re-provisioned
// credentials. Legacy hashes are never written, only read.
func (v *Verifier) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), v.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(hash), nil
}

package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the bearer token claim set: subject is the admin id, role
// is always "admin" for tokens minted by this service.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Identity is the verified content of a bearer token.
type Identity struct {
	AdminID string
	Email   string
	Role    string
}

// Issuer mints and verifies HS256 bearer tokens. Verification is
// stateless; it never touches the database.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue creates a signed bearer token for the given admin.
func (i *Issuer) Issue(adminID, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:  "admin",
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminID,
			Issuer:    "mathmentor-api",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(i.secret)
}

// Verify parses and validates a bearer token, returning the identity it
// asserts. Expired, malformed or foreign-signed tokens all report
// ErrInvalidToken.
func (i *Issuer) Verify(tokenStr string) (*Identity, error) {
	claims := &Claims{}

	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}

	return &Identity{
		AdminID: claims.Subject,
		Email:   claims.Email,
		Role:    claims.Role,
	}, nil
}

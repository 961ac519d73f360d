package token

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"tuitionhub/internal/platform/middleware"
	dErrors "tuitionhub/pkg/domain-errors"
)

// Claims are the claims carried by our access tokens. Role is deliberately
// absent: authorization role is a server-side property resolved from the user
// store per request, never trusted from the credential.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier verifies bearer tokens and yields the verified email claim. It is
// the concrete identity oracle behind middleware.TokenVerifier.
type Verifier struct {
	signingKey []byte
	issuer     string
}

func NewVerifier(signingKey, issuer string) *Verifier {
	return &Verifier{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

// Verify parses and validates the token, enforcing HMAC signing, expiry, and
// issuer, and returns the verified identity.
func (v *Verifier) Verify(_ context.Context, tokenString string) (middleware.VerifiedIdentity, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	}, jwt.WithIssuer(v.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return middleware.VerifiedIdentity{}, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return middleware.VerifiedIdentity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return middleware.VerifiedIdentity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Email == "" {
		return middleware.VerifiedIdentity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	return middleware.VerifiedIdentity{Email: claims.Email}, nil
}

// Issue signs a token for the given email. Used by tests and local tooling;
// production credentials come from the external identity provider sharing the
// signing key.
func (v *Verifier) Issue(email string, expiresIn time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    v.issuer,
			ID:        uuid.NewString(),
		},
	})
	return newToken.SignedString(v.signingKey)
}

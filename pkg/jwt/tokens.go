package jwt

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Token kinds. Bearer auth accepts only access tokens; the refresh exchange
// accepts only refresh tokens.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// Claims defines the JWT payload. Admin mirrors the user's stored admin flag
// at issue time; routes re-check it so a stale claim only narrows access.
type Claims struct {
	UserID string `json:"user_id"`
	Admin  bool   `json:"admin,omitempty"`
	Kind   string `json:"kind,omitempty"`
	jwtlib.RegisteredClaims
}

// GenerateToken issues a signed JWT of the given kind with provided secret
// and ttl.
func GenerateToken(userID string, admin bool, kind, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Admin:  admin,
		Kind:   kind,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    "topdog",
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse validates and extracts claims from token.
func Parse(token string, secret string) (*Claims, error) {
	parsed, err := jwtlib.ParseWithClaims(token, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwtlib.ErrTokenInvalidClaims
	}
	return claims, nil
}

package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated indicates a missing, malformed, or invalid bearer token.
var ErrUnauthenticated = errors.New("unauthenticated")

// User is the authenticated identity extracted from the auth provider's token.
type User struct {
	ID    string
	Email string
}

// Verifier validates bearer tokens issued by the managed auth provider.
// Tokens are HMAC-signed JWTs with `sub` (user id) and `email` claims.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// GetUser parses the Authorization header value and returns the user.
// Returns ErrUnauthenticated on any parse/signature/claims failure.
func (v *Verifier) GetUser(authorization string) (*User, error) {
	if !strings.HasPrefix(authorization, "Bearer ") {
		return nil, ErrUnauthenticated
	}
	raw := strings.TrimPrefix(authorization, "Bearer ")
	if raw == "" {
		return nil, ErrUnauthenticated
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrUnauthenticated
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrUnauthenticated
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if sub == "" {
		return nil, ErrUnauthenticated
	}

	return &User{ID: sub, Email: email}, nil
}

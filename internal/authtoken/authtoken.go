// Package authtoken wraps go-chi/jwtauth for both the admin HTTP
// surface and the websocket handshake (spec §6, §7), grounded on the
// teacher's handlers.InitAuth/SetRoutes pattern: jwtauth.New("HS256",
// ...) plus jwtauth.Verifier/Authenticator middleware for HTTP, and the
// same token decoded by hand at the /ws upgrade where chi middleware
// can't run.
package authtoken

import (
	"context"
	"os"

	"github.com/avvvet/marketday/internal/apperr"
	"github.com/avvvet/marketday/internal/models"
	"github.com/go-chi/jwtauth"
)

type Claims struct {
	UserID int64
	Role   models.Role
}

type Issuer struct {
	tokenAuth *jwtauth.JWTAuth
}

func New() *Issuer {
	key := os.Getenv("JWT_SECRET")
	return &Issuer{tokenAuth: jwtauth.New("HS256", []byte(key), nil)}
}

// Auth exposes the *jwtauth.JWTAuth for chi's Verifier/Authenticator
// middleware, exactly as the teacher's routes.go registers them.
func (i *Issuer) Auth() *jwtauth.JWTAuth {
	return i.tokenAuth
}

// Issue mints a token carrying (userId, role) claims (spec §7), used
// by the register and login HTTP handlers.
func (i *Issuer) Issue(userID int64, role models.Role, expiresAtUnix int64) (string, error) {
	_, tokenString, err := i.tokenAuth.Encode(map[string]interface{}{
		"userId": userID,
		"role":   string(role),
		"exp":    expiresAtUnix,
	})
	return tokenString, err
}

// Decode verifies and extracts claims from a raw token string, used at
// the /ws upgrade where chi's middleware chain doesn't run (spec §6).
func (i *Issuer) Decode(tokenString string) (Claims, error) {
	token, err := i.tokenAuth.Decode(tokenString)
	if err != nil || token == nil {
		return Claims{}, apperr.Wrap(apperr.KindAuth, "invalid token", err)
	}
	claims, err := token.AsMap(context.Background())
	if err != nil {
		return Claims{}, apperr.Wrap(apperr.KindAuth, "invalid token claims", err)
	}
	return claimsFromMap(claims)
}

func claimsFromMap(m map[string]interface{}) (Claims, error) {
	var out Claims
	switch v := m["userId"].(type) {
	case float64:
		out.UserID = int64(v)
	default:
		return out, apperr.New(apperr.KindAuth, "missing userId claim")
	}
	role, ok := m["role"].(string)
	if !ok {
		return out, apperr.New(apperr.KindAuth, "missing role claim")
	}
	out.Role = models.Role(role)
	return out, nil
}

// FromContext extracts the claims chi's jwtauth middleware already
// verified and stashed in the request context (HTTP path).
func FromContext(ctx context.Context) (Claims, error) {
	_, m, err := jwtauth.FromContext(ctx)
	if err != nil || m == nil {
		return Claims{}, apperr.New(apperr.KindAuth, "no token in context")
	}
	return claimsFromMap(m)
}

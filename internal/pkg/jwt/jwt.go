package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/tempora-hr/timesheet-backend-go/internal/domain/user"
)

// Access tokens are issued by the external identity provider; this service
// only verifies them and mints the short-lived SSE tokens used where the
// EventSource API cannot send an Authorization header.
type Service interface {
	JWTAuth() *jwtauth.JWTAuth
	GenerateAccessToken(userID string, role user.Role, lifetime time.Duration) (string, error)
	GenerateSSEToken(userID string) (token string, expiresIn int, err error)
	ValidateSSEToken(tokenString string) (userID string, err error)
}

type JWTService struct {
	tokenAuth        *jwtauth.JWTAuth
	sseTokenLifetime time.Duration
}

func NewJWTService(secretKey string, sseTokenLifetime time.Duration) Service {
	return &JWTService{
		tokenAuth:        jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		sseTokenLifetime: sseTokenLifetime,
	}
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

// GenerateAccessToken mints an access token with the identity provider's
// claim shape. Used by tests and local tooling only.
func (j *JWTService) GenerateAccessToken(userID string, role user.Role, lifetime time.Duration) (string, error) {
	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"sub":  userID,
		"role": string(role),
		"type": "access",
		"exp":  time.Now().Add(lifetime).Unix(),
	})
	return tokenString, err
}

func (j *JWTService) GenerateSSEToken(userID string) (token string, expiresIn int, err error) {
	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"sub":  userID,
		"type": "sse",
		"exp":  time.Now().Add(j.sseTokenLifetime).Unix(),
	})
	if err != nil {
		return "", 0, err
	}
	return tokenString, int(j.sseTokenLifetime.Seconds()), nil
}

func (j *JWTService) ValidateSSEToken(tokenString string) (userID string, err error) {
	token, err := jwtauth.VerifyToken(j.tokenAuth, tokenString)
	if err != nil {
		return "", err
	}

	claims, err := token.AsMap(context.Background())
	if err != nil {
		return "", err
	}

	if tokenType, ok := claims["type"].(string); !ok || tokenType != "sse" {
		return "", errors.New("not an sse token")
	}

	id, ok := claims["sub"].(string)
	if !ok || id == "" {
		return "", errors.New("missing sub claim")
	}
	return id, nil
}

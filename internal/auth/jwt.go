package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/prodfloor/scheduler/internal/config"
)

// TokenPayload represents the validated payload data carried by a bearer
// token. There is no role or scope distinction: any valid token grants
// full access to the API, matching the single-operator-terminal model.
type TokenPayload struct {
	Sub string
}

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

type tokenClaims struct {
	jwt.RegisteredClaims
}

// GenerateToken issues a bearer token for sub (typically a terminal or
// service name), valid for cfg.JWTAccessTokenExpirySec seconds.
func GenerateToken(cfg config.Config, sub string) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    "prodfloor-scheduler",
			Audience:  []string{"prodfloor-scheduler-client"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.JWTAccessTokenExpirySec) * time.Second)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// VerifyToken parses and validates the JWT, returning the claims.
func VerifyToken(cfg config.Config, token string) (TokenPayload, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithAudience("prodfloor-scheduler-client"),
		jwt.WithIssuer("prodfloor-scheduler"),
	)

	claims := &tokenClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenPayload{}, ErrTokenExpired
		}
		return TokenPayload{}, ErrTokenInvalid
	}
	if parsed == nil || !parsed.Valid || claims.Subject == "" {
		return TokenPayload{}, ErrTokenInvalid
	}

	return TokenPayload{Sub: claims.Subject}, nil
}

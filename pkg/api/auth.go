package api

import (
	"fmt"
	"time"

	"github.com/cloudspire/ddnsd/pkg/config"
	"github.com/golang-jwt/jwt/v4"
)

// cookieName carries the dashboard session token for browser clients
const cookieName = "ddns_token"

// Claims is the JWT payload for dashboard sessions
type Claims struct {
	jwt.RegisteredClaims
}

// signToken issues a session token for the configured user
func signToken(username string, cfg config.HTTPCfg) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(cfg.TokenTTLSec) * time.Second)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// verifyToken parses and validates a session token, returning its subject
func verifyToken(tokenString string, cfg config.HTTPCfg) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", jwt.ErrSignatureInvalid
	}
	return claims.Subject, nil
}

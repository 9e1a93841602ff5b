package security

import (
	"errors"
	"time"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/platform/config"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

var TokenAuth *jwtauth.JWTAuth

func InitJWT() {
	InitJWTWithKey(config.AppConfig.JWTKey, config.AppConfig.JWTExp)
}

var tokenTTL = 72 * time.Hour

// InitJWTWithKey is used by InitJWT and by handler tests.
func InitJWTWithKey(key []byte, ttl time.Duration) {
	TokenAuth = jwtauth.New("HS256", key, nil)
	if ttl > 0 {
		tokenTTL = ttl
	}
}

// GenerateToken issues the identity used as the user half of every
// (user, test) session key.
func GenerateToken(userID, role string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     now.Add(tokenTTL).Unix(),
		"iat":     now.Unix(),
	}
	_, tokenString, err := TokenAuth.Encode(claims)
	return tokenString, err
}

func GetUserIDFromClaims(claims map[string]interface{}) (string, error) {
	id, ok := claims["user_id"].(string)
	if !ok || id == "" {
		return "", errors.New("user_id claim is missing or not a string")
	}
	return id, nil
}

func GetUserRoleFromClaims(claims map[string]interface{}) (string, error) {
	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return "", errors.New("role claim is missing or not a string")
	}
	return role, nil
}

package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	jwt "github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 72 * time.Hour

// generateJWT signs a token carrying the anonymous ID.
func generateJWT(anonID string, secret []byte) (string, error) {
	claims := jwt.MapClaims{
		"anon_id": anonID,
		"exp":     time.Now().Add(tokenTTL).Unix(),
		"iss":     "vidgogo-service",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// validateAndGetAnonID parses a token and extracts the anonymous ID.
func (h *Handler) validateAndGetAnonID(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return h.JWTSecret, nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	anonID, ok := claims["anon_id"].(string)
	if !ok || anonID == "" {
		return "", errors.New("anon_id missing")
	}
	return anonID, nil
}

// GetAnonID mints a fresh anonymous ID and returns it with a JWT. The
// id lives only as long as the client keeps using it; there is no
// account behind it.
func (h *Handler) GetAnonID(c *gin.Context) {
	anonUUID, _ := uuid.NewRandom()
	anonID := anonUUID.String()

	token, err := generateJWT(anonID, h.JWTSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "anon_id": anonID})
}

package utils

import (
	"strings"
	"time"

	"traintrack/backend/config"
	"traintrack/backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// Actor is the identity decoded from a verified token.
type Actor struct {
	ID        uint
	Name      string
	Role      string
	SessionID uint // non-zero only for session-scoped trainee tokens
}

// GenerateJWTToken issues a staff login token carrying id, name and role.
func GenerateJWTToken(user *models.User, cfg *config.Config) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"name":    user.Name,
		"role":    user.Role,
		"exp":     time.Now().Add(cfg.TokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// GenerateSessionToken issues a short-lived trainee token scoped to a single
// session, used by the phone-based self-service flow.
func GenerateSessionToken(trainee *models.User, sessionID uint, cfg *config.Config) (string, error) {
	claims := jwt.MapClaims{
		"user_id":    trainee.ID,
		"name":       trainee.Name,
		"role":       models.RoleTrainee,
		"session_id": sessionID,
		"exp":        time.Now().Add(cfg.SessionTokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ExtractActorFromToken verifies the bearer token on the request and returns
// the decoded actor.
func ExtractActorFromToken(c *fiber.Ctx, cfg *config.Config) (*Actor, error) {
	tokenString := c.Get("Authorization")
	if tokenString == "" {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Missing authorization token")
	}
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid user ID in token")
	}

	actor := &Actor{ID: uint(userID)}
	if name, ok := claims["name"].(string); ok {
		actor.Name = name
	}
	if role, ok := claims["role"].(string); ok {
		actor.Role = role
	}
	if sessionID, ok := claims["session_id"].(float64); ok {
		actor.SessionID = uint(sessionID)
	}
	return actor, nil
}

package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sessionIDLocal = "session_id"

type sessionClaims struct {
	jwt.RegisteredClaims
}

// SessionMiddleware resolves the caller's session id from the signed cookie,
// minting a new id when the cookie is missing or invalid.
func (handler *Handler) SessionMiddleware(c *fiber.Ctx) error {
	sessionID, err := handler.parseSessionCookie(c.Cookies(sessionCookieName))
	if err != nil {
		sessionID = uuid.NewString()
		if err := handler.setSessionCookie(c, sessionID); err != nil {
			handler.logger.Error("sign session cookie failed", zap.Error(err))
			return apiError(c, fiber.StatusInternalServerError, "failed to start session")
		}
	}
	c.Locals(sessionIDLocal, sessionID)
	return c.Next()
}

func currentSessionID(c *fiber.Ctx) string {
	sessionID, _ := c.Locals(sessionIDLocal).(string)
	return sessionID
}

func (handler *Handler) setSessionCookie(c *fiber.Ctx, sessionID string) error {
	token, err := handler.buildSessionToken(sessionID)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   handler.cookieSecure,
		SameSite: "Lax",
		Expires:  handler.now().Add(handler.sessionTTL),
	})
	return nil
}

func (handler *Handler) buildSessionToken(sessionID string) (string, error) {
	now := handler.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			ExpiresAt: jwt.NewNumericDate(now.Add(handler.sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(handler.secretKey)
}

func (handler *Handler) parseSessionCookie(raw string) (string, error) {
	tokenValue := strings.TrimSpace(raw)
	if tokenValue == "" {
		return "", errors.New("missing session cookie")
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenValue, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return handler.secretKey, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", errors.New("invalid session token")
	}

	parsed, err := uuid.Parse(claims.Subject)
	if err != nil {
		return "", errors.New("invalid session id")
	}
	return parsed.String(), nil
}

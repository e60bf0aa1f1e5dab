package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// SessionHeader carries the session id for API clients.
	SessionHeader = "X-Session-ID"
	// SessionCookie carries the session id for browsers.
	SessionCookie = "sid"

	sessionContextKey = "checkoutSession"
	maxSessionIDLen   = 64
	sessionCookieTTL  = 30 * 24 * time.Hour
)

// SessionMiddleware resolves the caller's session id, minting one when absent.
// The id is echoed in the response header and refreshed in the cookie.
func SessionMiddleware(secureCookie bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(SessionHeader)
		if !validSessionID(id) {
			id = c.Cookies(SessionCookie)
		}
		if !validSessionID(id) {
			id = uuid.NewString()
		}

		c.Locals(sessionContextKey, id)
		c.Set(SessionHeader, id)
		c.Cookie(&fiber.Cookie{
			Name:     SessionCookie,
			Value:    id,
			Path:     "/",
			Expires:  time.Now().Add(sessionCookieTTL),
			HTTPOnly: true,
			Secure:   secureCookie,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
		return c.Next()
	}
}

// GetSessionID returns the session id resolved by SessionMiddleware.
func GetSessionID(c *fiber.Ctx) string {
	id, _ := c.Locals(sessionContextKey).(string)
	return id
}

func validSessionID(id string) bool {
	if id == "" || len(id) > maxSessionIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

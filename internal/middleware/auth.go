package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/example/pharmacy-checkout/internal/checkout"
	"github.com/example/pharmacy-checkout/internal/utils"
)

const authContextKey = "checkoutAuth"

// AuthMiddleware reads an optional bearer token and stores a checkout.AuthContext
// for the request. With a secret configured the token must verify; without one it
// is forwarded as-is and the storefront decides.
func AuthMiddleware(secret string, log *zap.Logger) fiber.Handler {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			c.Locals(authContextKey, checkout.AuthContext{})
			return c.Next()
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return checkout.ErrAuthRequired
		}
		token := strings.TrimSpace(parts[1])

		var (
			userID string
			err    error
		)
		if secret != "" {
			userID, err = utils.ParseToken(secret, token)
			if err != nil {
				log.Debug("rejecting token", zap.Error(err))
				return checkout.ErrAuthRequired
			}
		} else if userID, err = utils.PeekSubject(token); err != nil {
			userID = ""
		}

		c.Locals(authContextKey, checkout.AuthContext{Token: token, UserID: userID})
		return c.Next()
	}
}

// GetAuth returns the request's auth context; the zero value means anonymous.
func GetAuth(c *fiber.Ctx) checkout.AuthContext {
	if auth, ok := c.Locals(authContextKey).(checkout.AuthContext); ok {
		return auth
	}
	return checkout.AuthContext{}
}

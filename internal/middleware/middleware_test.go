package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/pharmacy-checkout/internal/checkout"
	"github.com/example/pharmacy-checkout/internal/utils"
)

func newApp(handlers ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if errors.Is(err, checkout.ErrAuthRequired) {
				return c.SendStatus(fiber.StatusUnauthorized)
			}
			return fiber.DefaultErrorHandler(c, err)
		},
	})
	app.Get("/", handlers...)
	return app
}

func readBody(t *testing.T, app *fiber.App, header map[string]string) (int, string, http.Header) {
	t.Helper()
	req := httptest.NewRequest("GET", "/", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body), resp.Header
}

func echoAuth(c *fiber.Ctx) error {
	auth := GetAuth(c)
	return c.SendString(auth.UserID + "|" + auth.Token)
}

func TestAuthMiddlewareAnonymous(t *testing.T) {
	app := newApp(AuthMiddleware("", nil), echoAuth)

	status, body, _ := readBody(t, app, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "|", body)
}

func TestAuthMiddlewareForwardsUnverifiedToken(t *testing.T) {
	token, err := utils.GenerateToken("storefront-secret", "u1", time.Hour)
	require.NoError(t, err)

	app := newApp(AuthMiddleware("", nil), echoAuth)
	status, body, _ := readBody(t, app, map[string]string{"Authorization": "Bearer " + token})

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "u1|"+token, body)
}

func TestAuthMiddlewareOpaqueToken(t *testing.T) {
	app := newApp(AuthMiddleware("", nil), echoAuth)
	status, body, _ := readBody(t, app, map[string]string{"Authorization": "bearer opaque"})

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "|opaque", body)
}

func TestAuthMiddlewareVerifiesWithSecret(t *testing.T) {
	good, err := utils.GenerateToken("s3cret", "u1", time.Hour)
	require.NoError(t, err)
	bad, err := utils.GenerateToken("other", "u1", time.Hour)
	require.NoError(t, err)

	app := newApp(AuthMiddleware("s3cret", nil), echoAuth)

	status, body, _ := readBody(t, app, map[string]string{"Authorization": "Bearer " + good})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "u1|"+good, body)

	status, _, _ = readBody(t, app, map[string]string{"Authorization": "Bearer " + bad})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestAuthMiddlewareMalformedHeader(t *testing.T) {
	app := newApp(AuthMiddleware("", nil), echoAuth)

	for _, h := range []string{"Token abc", "Bearer", "Bearer   "} {
		status, _, _ := readBody(t, app, map[string]string{"Authorization": h})
		assert.Equal(t, fiber.StatusUnauthorized, status, h)
	}
}

func echoSession(c *fiber.Ctx) error {
	return c.SendString(GetSessionID(c))
}

func TestSessionMiddlewareMintsID(t *testing.T) {
	app := newApp(SessionMiddleware(false), echoSession)

	status, body, header := readBody(t, app, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body, 36)
	assert.Equal(t, body, header.Get(SessionHeader))
	assert.Contains(t, header.Get("Set-Cookie"), SessionCookie+"="+body)
}

func TestSessionMiddlewarePrefersHeaderThenCookie(t *testing.T) {
	app := newApp(SessionMiddleware(false), echoSession)

	_, body, _ := readBody(t, app, map[string]string{SessionHeader: "from-header", "Cookie": SessionCookie + "=from-cookie"})
	assert.Equal(t, "from-header", body)

	_, body, _ = readBody(t, app, map[string]string{"Cookie": SessionCookie + "=from-cookie"})
	assert.Equal(t, "from-cookie", body)
}

func TestSessionMiddlewareRejectsBadIDs(t *testing.T) {
	app := newApp(SessionMiddleware(false), echoSession)

	_, body, _ := readBody(t, app, map[string]string{SessionHeader: "bad id;drop"})
	assert.NotEqual(t, "bad id;drop", body)
	assert.Len(t, body, 36)
}

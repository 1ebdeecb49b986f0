package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"agent-grid-rewards/logging"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayAuthMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(GatewayAuthMiddleware("secret", logging.NewNopLogger(), "/healthz"))
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/tasks", func(c *fiber.Ctx) error { return c.SendString("tasks") })

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"exempt path", "/healthz", "", http.StatusOK},
		{"missing header", "/tasks", "", http.StatusUnauthorized},
		{"wrong token", "/tasks", "Bearer nope", http.StatusUnauthorized},
		{"bearer token", "/tasks", "Bearer secret", http.StatusOK},
		{"raw token", "/tasks", "secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestGatewayAuthMiddleware_EmptyTokenRejectsAll(t *testing.T) {
	app := fiber.New()
	app.Use(GatewayAuthMiddleware("", logging.NewNopLogger()))
	app.Get("/tasks", func(c *fiber.Ctx) error { return c.SendString("tasks") })

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Authorization", "Bearer ")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUserContextMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(UserContextMiddleware(logging.NewNopLogger()))
	app.Get("/me", func(c *fiber.Ctx) error {
		id := UserIdentity(c)
		return c.JSON(fiber.Map{
			"fid":      UserFID(c),
			"roles":    UserRoles(c),
			"username": id.Username,
			"has_pfp":  id.PfpURL != nil,
			"display":  id.DisplayName,
		})
	})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("X-User-FID", "42")
	req.Header.Set("X-User-Roles", "user, Admin")
	req.Header.Set("X-Username", "alice")
	req.Header.Set("X-Display-Name", "Alice")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, float64(42), body["fid"])
	assert.Equal(t, []any{"user", "admin"}, body["roles"])
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, false, body["has_pfp"])
	assert.Equal(t, "Alice", body["display"])

	for _, fid := range []string{"", "abc", "0", "-3"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if fid != "" {
			req.Header.Set("X-User-FID", fid)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "fid %q", fid)
	}

	legacy := httptest.NewRequest(http.MethodGet, "/me", nil)
	legacy.Header.Set("X-User-ID", "7")
	resp, err = app.Test(legacy)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func adminChain() []fiber.Handler {
	return []fiber.Handler{RequireRole("admin"), func(c *fiber.Ctx) error { return c.SendString("ok") }}
}

func TestRequireRole(t *testing.T) {
	app := fiber.New()
	app.Use(UserContextMiddleware(logging.NewNopLogger()))
	app.Get("/admin", adminChain()...)

	for roles, want := range map[string]int{"admin": http.StatusOK, "user": http.StatusForbidden, "": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("X-User-FID", "1")
		req.Header.Set("X-User-Roles", roles)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, "roles %q", roles)
	}
}

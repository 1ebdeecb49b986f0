// middleware/auth.go
package middleware

import (
	"slices"
	"strconv"
	"strings"

	"agent-grid-rewards/logging"
	"agent-grid-rewards/services"

	"github.com/gofiber/fiber/v2"
)

const (
	localUserFID   = "user_fid"
	localUserRoles = "user_roles"
	localIdentity  = "identity"
)

// UserContextMiddleware extracts the user identity and roles set by the Gateway.
// X-User-FID is required; X-User-ID is accepted for older gateway builds.
func UserContextMiddleware(log logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get("X-User-FID")
		if raw == "" {
			raw = c.Get("X-User-ID")
		}
		fid, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || fid <= 0 {
			log.Debug("missing or invalid user context", "path", c.Path(), "x_user_fid", raw)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-FID; request must come through the gateway with auth context",
			})
		}

		var roles []string
		for _, r := range strings.Split(c.Get("X-User-Roles"), ",") {
			r = strings.ToLower(strings.TrimSpace(r))
			if r != "" {
				roles = append(roles, r)
			}
		}

		c.Locals(localUserFID, fid)
		c.Locals(localUserRoles, roles)
		c.Locals(localIdentity, services.Identity{
			FID:           fid,
			Username:      c.Get("X-Username"),
			DisplayName:   optionalHeader(c, "X-Display-Name"),
			PfpURL:        optionalHeader(c, "X-Pfp-Url"),
			WalletAddress: optionalHeader(c, "X-Wallet-Address"),
		})
		return c.Next()
	}
}

// RequireRole rejects callers whose gateway roles do not include role.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !slices.Contains(UserRoles(c), role) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": role + " role required",
			})
		}
		return c.Next()
	}
}

func UserFID(c *fiber.Ctx) int64 {
	fid, _ := c.Locals(localUserFID).(int64)
	return fid
}

func UserRoles(c *fiber.Ctx) []string {
	roles, _ := c.Locals(localUserRoles).([]string)
	return roles
}

// UserIdentity is the profile the gateway forwarded with the request.
func UserIdentity(c *fiber.Ctx) services.Identity {
	id, _ := c.Locals(localIdentity).(services.Identity)
	return id
}

func optionalHeader(c *fiber.Ctx, name string) *string {
	v := strings.TrimSpace(c.Get(name))
	if v == "" {
		return nil
	}
	return &v
}

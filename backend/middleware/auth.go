package middleware

import (
	"traintrack/backend/config"
	"traintrack/backend/utils"

	"github.com/gofiber/fiber/v2"
)

// ActorKey is the locals key under which Authorize stores the decoded actor.
const ActorKey = "actor"

// Authorize verifies the bearer token and, when roles is non-empty, checks
// the token's role against the allowlist. Role matching is a case-sensitive
// exact match against the role enum. An empty allowlist means any
// authenticated identity.
func Authorize(cfg *config.Config, roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := utils.ExtractActorFromToken(c, cfg)
		if err != nil {
			return utils.Unauthorized(c, "Authentication required")
		}

		if len(roles) > 0 {
			allowed := false
			for _, role := range roles {
				if actor.Role == role {
					allowed = true
					break
				}
			}
			if !allowed {
				return utils.Forbidden(c, "Access denied - insufficient permissions")
			}
		}

		c.Locals(ActorKey, actor)
		return c.Next()
	}
}

// ActorFromContext returns the actor stored by Authorize, or nil when the
// request went through an unauthenticated route.
func ActorFromContext(c *fiber.Ctx) *utils.Actor {
	actor, _ := c.Locals(ActorKey).(*utils.Actor)
	return actor
}

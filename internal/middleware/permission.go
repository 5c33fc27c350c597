package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/oversightlab/missiondesk/internal/permissions"
	"github.com/oversightlab/missiondesk/pkg/errors"
	"github.com/oversightlab/missiondesk/pkg/metrics"
	"github.com/oversightlab/missiondesk/pkg/response"
)

// RequireCapability checks that the authenticated user's global role grants
// the given capability.
func RequireCapability(cap permissions.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := Role(c)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		role := permissions.GlobalRole(raw)
		if !permissions.HasCapability(role, cap) {
			metrics.CapabilityChecks.WithLabelValues(string(cap), "denied").Inc()
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		metrics.CapabilityChecks.WithLabelValues(string(cap), "allowed").Inc()
		c.Next()
	}
}

// RouteGate denies requests whose path falls below the role threshold of the
// route table. It complements the per-endpoint capability checks with a
// coarse prefix-based gate.
func RouteGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := Role(c)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		if !permissions.CanAccessRoute(permissions.GlobalRole(raw), c.Request.URL.Path) {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}

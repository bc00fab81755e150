package server

import (
	"crypto/subtle"
	"strings"

	obscontext "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/observability/context"
	"github.com/gin-gonic/gin"
)

const (
	actorAdmin  = "admin"
	actorPortal = "portal"
)

// AdminAuthRequired checks the bearer token against ADMIN_API_TOKEN.
// An empty token leaves the admin API open, which is only meant for local runs.
func (s *Server) AdminAuthRequired() gin.HandlerFunc {
	expected := strings.TrimSpace(s.cfg.AdminAPIToken)
	return func(c *gin.Context) {
		if expected != "" {
			token := bearerToken(c.GetHeader("Authorization"))
			if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
				AbortWithError(c, ErrUnauthorized)
				return
			}
		}

		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), actorAdmin, ""))
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("Bearer "):])
}

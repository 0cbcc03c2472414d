package fakebackend

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	ctxUserID   = "user_id"
	ctxTenantID = "tenant_id"
)

func abortDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

func (b *Backend) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if b.config.GetEnv() != "DEV" {
			return
		}
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("fakebackend")
	}
}

// countCalls records every request before faults or auth can reject it.
func (b *Backend) countCalls() gin.HandlerFunc {
	return func(c *gin.Context) {
		b.mu.Lock()
		b.calls[callKey(c.Request.Method, c.Request.URL.Path)]++
		b.mu.Unlock()
		c.Next()
	}
}

func (b *Backend) injectFaults() gin.HandlerFunc {
	return func(c *gin.Context) {
		b.mu.Lock()
		f, ok := b.faults[callKey(c.Request.Method, c.Request.URL.Path)]
		b.mu.Unlock()
		if ok {
			abortDetail(c, f.status, f.detail)
			return
		}
		c.Next()
	}
}

func (b *Backend) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		// No Origin header = same-origin request, no CORS headers needed
		if origin == "" {
			c.Next()
			return
		}

		allowedOrigins := b.config.GetAllowedOrigins()
		isAllowed := allowedOrigins.IsAllowedOrigin(origin)
		isWildcard := allowedOrigins.IsAllowedOrigin("*")

		h := c.Writer.Header()
		if isAllowed {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
		} else if isWildcard {
			// Don't set Allow-Credentials with wildcard
			h.Set("Access-Control-Allow-Origin", "*")
		}

		if c.Request.Method == http.MethodOptions {
			if isAllowed || isWildcard {
				h.Set("Access-Control-Allow-Methods", b.config.GetAllowedMethods())
				h.Set("Access-Control-Allow-Headers", b.config.GetAllowedHeaders())
				h.Set("Access-Control-Max-Age", "86400")
			}
			// If not allowed, return 200 with no CORS headers and let the browser block
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

// requireAuth validates the bearer token and loads the caller into the context.
func (b *Backend) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortDetail(c, http.StatusUnauthorized, "Not authenticated")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			abortDetail(c, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		claims, err := b.verify(tokenString)
		if err != nil {
			abortDetail(c, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		u, err := b.store.user(claims.userID)
		if err != nil {
			abortDetail(c, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		if !u.IsActive {
			abortDetail(c, http.StatusBadRequest, "Inactive user")
			return
		}

		c.Set(ctxUserID, claims.userID)
		c.Set(ctxTenantID, claims.tenantID)
		c.Next()
	}
}

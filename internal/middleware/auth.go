package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"bloogle/internal/auth"
	"bloogle/internal/service"
)

type SessionResolver interface {
	Resolve(ctx context.Context, handle string, meta service.ClientMeta) (auth.Identity, bool, error)
}

// Session attaches the identity behind the session cookie to the request context.
// Requests without a live session continue anonymously.
func Session(resolver SessionResolver, cookie auth.SessionCookie, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		handle := cookie.Handle(c.Request)
		if handle == "" {
			c.Next()
			return
		}

		identity, ok, err := resolver.Resolve(c.Request.Context(), handle, service.ClientMeta{
			IPAddress: c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
		})
		if err != nil {
			log.Error().Err(err).Str("request_id", c.GetString(requestIDHeader)).Msg("session lookup failed")
			c.Next()
			return
		}
		if !ok {
			cookie.Clear(c.Writer)
			c.Next()
			return
		}

		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), identity))
		c.Next()
	}
}

// RequireAuth sends anonymous visitors to the login page.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.IsAuthenticated(c.Request.Context()) {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RedirectAuthenticated keeps logged-in users away from the login and register pages.
func RedirectAuthenticated(target string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth.IsAuthenticated(c.Request.Context()) {
			c.Redirect(http.StatusSeeOther, target)
			c.Abort()
			return
		}
		c.Next()
	}
}

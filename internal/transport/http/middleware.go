package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/auth"
	"live-quiz-service/internal/errors"
)

const claimsKey = "claims"

// requestLogger attaches a request scoped logger to the context and logs
// one line per request. WebSocket feeds are logged when they close.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		logger := log.With().Str("method", c.Request.Method).Str("path", c.FullPath()).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))

		c.Next()

		l := logger.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			l = logger.Error()
		}
		l.Int("status", c.Writer.Status()).Dur("dur", time.Since(start)).Msg("http")
	}
}

// authenticate verifies the bearer token from the Authorization header or
// the token query parameter. With optional set a missing token is allowed.
func authenticate(issuer *auth.Issuer, optional bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c.Request)
		if token == "" && optional {
			c.Next()
			return
		}

		claims, err := issuer.Verify(token)
		if err != nil {
			abort(c, err)
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func bearer(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}

func claimsFrom(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// abort writes the coded error as JSON. Internal errors are logged and
// reported without details.
func abort(c *gin.Context, err error) {
	e := errors.Convert(err)
	status := e.HTTPStatusCode()

	msg := e.Message
	if status >= http.StatusInternalServerError {
		log.Ctx(c.Request.Context()).Error().Err(err).Msg("http: request failed")
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, errorResponse{Code: e.GRPCStatus().Code().String(), Message: msg})
}

package api

import (
	"net/http"
	"time"

	"distributed-kvstore/internal/wire"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Logger is a gin middleware that logs every request through log, with
// method, path, status code, and latency.
func Logger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("client", c.ClientIP()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request handled")
	}
}

// Recovery converts a panicking handler into a 500 instead of crashing
// the process, logging the panic through log.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("panic", err).Str("path", c.Request.URL.Path).Msg("recovered from panic")
				c.AbortWithStatusJSON(http.StatusInternalServerError, wire.SimpleResponse{Message: "internal server error"})
			}
		}()
		c.Next()
	}
}

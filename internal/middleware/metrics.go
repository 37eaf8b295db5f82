package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/civicledger/IPRx-Core/internal/metrics"
)

// Metrics counts requests by route template, so path parameters do not
// explode label cardinality.
func Metrics(m *metrics.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

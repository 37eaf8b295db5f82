// internal/middleware/body_limit.go
package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/civicledger/IPRx-Core/internal/i18n"
	"github.com/civicledger/IPRx-Core/internal/utils"
)

// BodyLimit caps request bodies at limit bytes. Reads past the cap fail,
// and handlers or middleware that buffer the body answer 413.
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			abortBodyError(c, &http.MaxBytesError{Limit: limit})
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

func abortBodyError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE", i18n.T(lang, i18n.KeyRequestTooLarge), nil)
	} else {
		utils.BadRequestResponse(c, "", err.Error())
	}
	c.Abort()
}

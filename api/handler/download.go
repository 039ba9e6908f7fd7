package handler

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/wxcrawl/api/middleware"
	"github.com/use-agent/wxcrawl/models"
	"github.com/use-agent/wxcrawl/output"
)

// Download returns a handler for GET /api/v1/download/:format.
//
// format is json or csv. The optional filename query names a file in dir;
// without it the newest export of that format is served.
func Download(dir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		fail := func(kind, message string) {
			c.JSON(statusFor(kind), models.ErrorResponse{
				Success:   false,
				RequestID: middleware.RequestID(c),
				Error:     &models.ErrorDetail{Kind: kind, Message: message},
			})
		}

		format := output.Format(c.Param("format"))
		if format != output.FormatJSON && format != output.FormatCSV {
			fail(models.KindInvalidInput, "unsupported format, use json or csv")
			return
		}

		var path string
		if name := c.Query("filename"); name != "" {
			// Base strips any directory part the caller sent.
			name = filepath.Base(name)
			if filepath.Ext(name) != "."+string(format) {
				fail(models.KindInvalidInput, "filename does not match format")
				return
			}
			path = filepath.Join(dir, name)
		} else {
			latest, err := output.Latest(dir, format)
			if err != nil {
				fail(models.KindNotFound, "no export available")
				return
			}
			path = latest
		}

		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				fail(models.KindNotFound, "file not found")
				return
			}
			fail(models.KindInternal, err.Error())
			return
		}
		c.FileAttachment(path, filepath.Base(path))
	}
}

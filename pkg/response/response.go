package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/Manchinn/cslogbook-reconciler/pkg/errors"
)

// Envelope represents the common response contract of the operational API.
type Envelope struct {
	Data  interface{}      `json:"data,omitempty"`
	Error *appErrors.Error `json:"error,omitempty"`
}

// JSON sends a success response.
func JSON(c *gin.Context, status int, data interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, Envelope{Data: data})
}

// Accepted responds with HTTP 202 Accepted.
func Accepted(c *gin.Context, data interface{}) {
	JSON(c, http.StatusAccepted, data)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(appErr.Status, Envelope{Error: appErr})
}

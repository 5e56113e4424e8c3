package response

import "github.com/gin-gonic/gin"

// ErrorBody is the error shape the chat widget expects: a short error string
// plus an optional detail line.
type ErrorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func JSON(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

func Error(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorBody{Error: message})
}

func ErrorDetail(c *gin.Context, status int, message, detail string) {
	c.JSON(status, ErrorBody{Error: message, Detail: detail})
}

// Raw passes an upstream provider body through untouched, preserving its
// status code.
func Raw(c *gin.Context, status int, body []byte) {
	c.Data(status, "application/json", body)
}

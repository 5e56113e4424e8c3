package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/serenity-spa/spachat/internal/pkg/errors"
	"github.com/serenity-spa/spachat/internal/pkg/response"
)

// handleError maps the error taxonomy onto HTTP statuses. Provider errors
// keep their upstream status and body; anything unclassified becomes a
// generic 500 with the error's string form as detail.
func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Warn("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	if pe, ok := appErr.AsProviderError(err); ok {
		response.Raw(c, pe.StatusCode, []byte(pe.Body))
		return
	}
	switch {
	case appErr.IsBadRequest(err):
		response.Error(c, http.StatusBadRequest, "Bad request")
	case appErr.IsMisconfigured(err):
		response.Error(c, http.StatusInternalServerError, "Missing API credentials")
	default:
		response.ErrorDetail(c, http.StatusInternalServerError, "Server error", err.Error())
	}
}

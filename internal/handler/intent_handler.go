package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/serenity-spa/spachat/internal/intent"
	"github.com/serenity-spa/spachat/internal/pkg/response"
	"github.com/serenity-spa/spachat/internal/service"
)

// IntentHandler exposes the widget's short-circuit classifier so the matching
// policy lives in one tested place instead of being duplicated client-side.
type IntentHandler struct {
	matcher *intent.Matcher
	catalog *service.CatalogService
}

func NewIntentHandler(matcher *intent.Matcher, catalog *service.CatalogService) *IntentHandler {
	return &IntentHandler{matcher: matcher, catalog: catalog}
}

type intentRequest struct {
	Text string `json:"text"`
}

func (h *IntentHandler) Classify(c *gin.Context) {
	var req intentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Bad JSON")
		return
	}
	services, err := h.catalog.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	resp := gin.H{
		"intent":  h.matcher.Detect(req.Text),
		"service": nil,
	}
	if svc := intent.FindService(req.Text, services); svc != nil {
		resp["service"] = svc
	}
	response.JSON(c, resp)
}

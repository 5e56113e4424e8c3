package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/serenity-spa/spachat/internal/pkg/response"
	"github.com/serenity-spa/spachat/internal/service"
)

type CatalogHandler struct {
	catalog  *service.CatalogService
	business *service.BusinessService
}

func NewCatalogHandler(catalog *service.CatalogService, business *service.BusinessService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, business: business}
}

func (h *CatalogHandler) Services(c *gin.Context) {
	services, err := h.catalog.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.JSON(c, gin.H{"items": services})
}

func (h *CatalogHandler) Config(c *gin.Context) {
	cfg, err := h.business.Get(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.JSON(c, cfg)
}

// RefreshConfig reloads the cached business config from storage.
func (h *CatalogHandler) RefreshConfig(c *gin.Context) {
	cfg, err := h.business.Refresh(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.JSON(c, cfg)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Chat    *ChatHandler
	Catalog *CatalogHandler
	Intent  *IntentHandler
	Booking *BookingHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/chat", deps.Chat.Chat)
	api.GET("/chat", deps.Chat.Health)
	for _, method := range []string{http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodHead} {
		api.Handle(method, "/chat", deps.Chat.MethodNotAllowed)
	}

	api.GET("/catalog/services", deps.Catalog.Services)
	api.GET("/catalog/config", deps.Catalog.Config)
	api.POST("/catalog/config/refresh", deps.Catalog.RefreshConfig)

	api.POST("/bot/intent", deps.Intent.Classify)
	api.POST("/bookings", deps.Booking.Submit)
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/serenity-spa/spachat/internal/model"
	appErr "github.com/serenity-spa/spachat/internal/pkg/errors"
	"github.com/serenity-spa/spachat/internal/pkg/response"
	"github.com/serenity-spa/spachat/internal/service"
)

type BookingHandler struct {
	bookings *service.BookingService
}

func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

func (h *BookingHandler) Submit(c *gin.Context) {
	var booking model.Booking
	if err := c.ShouldBindJSON(&booking); err != nil {
		response.Error(c, http.StatusBadRequest, "Bad JSON")
		return
	}
	if booking.Name == "" || booking.Date == "" {
		response.Error(c, http.StatusBadRequest, "name and date are required")
		return
	}
	if err := h.bookings.Submit(c.Request.Context(), &booking); err != nil {
		switch {
		case appErr.IsMisconfigured(err):
			response.Error(c, http.StatusInternalServerError, "Booking relay not configured")
		case errors.Is(err, appErr.ErrUpstream):
			response.Error(c, http.StatusBadGateway, "Booking relay failed")
		default:
			handleError(c, err)
		}
		return
	}
	response.JSON(c, gin.H{"ok": true})
}

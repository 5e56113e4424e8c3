package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/serenity-spa/spachat/internal/model"
	appErr "github.com/serenity-spa/spachat/internal/pkg/errors"
)

// BookingService relays bookings to an external form endpoint. Write-only and
// fire-and-forget: success is inferred from a 2xx status or an {ok:true}
// body, there is no retry and no way to read a booking back.
type BookingService struct {
	relayURL string
	source   string
	client   *http.Client
}

func NewBookingService(relayURL, source string, client *http.Client) *BookingService {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &BookingService{relayURL: relayURL, source: source, client: client}
}

type relayAck struct {
	OK bool `json:"ok"`
}

// Submit posts the booking payload. The outcome is logged either way; a
// non-success outcome surfaces as ErrUpstream.
func (s *BookingService) Submit(ctx context.Context, booking *model.Booking) error {
	logger := logutil.GetLogger(ctx)
	if s.relayURL == "" {
		return appErr.ErrMisconfigured
	}
	if booking.Source == "" {
		booking.Source = s.source
	}
	payload, err := json.Marshal(booking)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.relayURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	// text/plain keeps the relay (an Apps Script web app) from rejecting the
	// request on content type.
	req.Header.Set("Content-Type", "text/plain")
	resp, err := s.client.Do(req)
	if err != nil {
		logger.Warn("booking relay unreachable", zap.Error(err))
		return fmt.Errorf("%w: booking relay: %v", appErr.ErrUpstream, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok {
		var ack relayAck
		if json.Unmarshal(body, &ack) == nil && ack.OK {
			ok = true
		}
	}
	if !ok {
		logger.Warn("booking relay rejected submission",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return fmt.Errorf("%w: booking relay returned %d", appErr.ErrUpstream, resp.StatusCode)
	}
	logger.Info("booking relayed",
		zap.String("service_id", booking.ServiceID),
		zap.String("date", booking.Date),
	)
	return nil
}

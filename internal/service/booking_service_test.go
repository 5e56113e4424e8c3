package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/serenity-spa/spachat/internal/model"
	appErr "github.com/serenity-spa/spachat/internal/pkg/errors"
)

func testBooking() *model.Booking {
	return &model.Booking{
		ServiceID:   "swedish",
		ServiceName: "Swedish Massage",
		Date:        "2026-09-12 14:00",
		Name:        "Ana",
		Email:       "ana@example.com",
	}
}

func TestBookingSubmit(t *testing.T) {
	var got model.Booking
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := NewBookingService(srv.URL, "chat-widget", srv.Client())
	if err := svc.Submit(context.Background(), testBooking()); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if contentType != "text/plain" {
		t.Errorf("content type = %q, want text/plain", contentType)
	}
	if got.Name != "Ana" || got.ServiceID != "swedish" {
		t.Errorf("unexpected relayed payload: %+v", got)
	}
	if got.Source != "chat-widget" {
		t.Errorf("source = %q, want default applied", got.Source)
	}
}

func TestBookingSubmitAckBodyOverridesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Apps Script redirect chains can surface odd statuses with a valid ack
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	svc := NewBookingService(srv.URL, "chat-widget", srv.Client())
	if err := svc.Submit(context.Background(), testBooking()); err != nil {
		t.Fatalf("expected ack body to count as success: %v", err)
	}
}

func TestBookingSubmitRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := NewBookingService(srv.URL, "chat-widget", srv.Client())
	err := svc.Submit(context.Background(), testBooking())
	if !errors.Is(err, appErr.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestBookingSubmitUnconfigured(t *testing.T) {
	svc := NewBookingService("", "chat-widget", nil)
	err := svc.Submit(context.Background(), testBooking())
	if !appErr.IsMisconfigured(err) {
		t.Fatalf("expected ErrMisconfigured, got %v", err)
	}
}

func TestBookingSubmitKeepsExplicitSource(t *testing.T) {
	var got model.Booking
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
	}))
	defer srv.Close()

	svc := NewBookingService(srv.URL, "chat-widget", srv.Client())
	booking := testBooking()
	booking.Source = "kiosk"
	if err := svc.Submit(context.Background(), booking); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if got.Source != "kiosk" {
		t.Errorf("source = %q, want kiosk preserved", got.Source)
	}
}

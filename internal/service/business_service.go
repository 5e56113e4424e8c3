package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/serenity-spa/spachat/internal/model"
)

type BusinessConfigSource interface {
	Get(ctx context.Context) (*model.BusinessConfig, error)
}

// BusinessService is an explicit loader for the business_config singleton.
// The record is cached after the first successful load; Refresh replaces the
// cached copy so staleness is an operator decision, not an accident.
type BusinessService struct {
	source BusinessConfigSource

	mu     sync.RWMutex
	cached *model.BusinessConfig
}

func NewBusinessService(source BusinessConfigSource) *BusinessService {
	return &BusinessService{source: source}
}

func (s *BusinessService) Get(ctx context.Context) (*model.BusinessConfig, error) {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}
	return s.Refresh(ctx)
}

func (s *BusinessService) Refresh(ctx context.Context) (*model.BusinessConfig, error) {
	cfg, err := s.source.Get(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cached = cfg
	s.mu.Unlock()
	return cfg, nil
}

// FallbackContext renders the compact business-identity block used when
// retrieval finds nothing, so hours/address questions stay answerable.
// Returns "" when the config itself is unavailable.
func (s *BusinessService) FallbackContext(ctx context.Context) string {
	cfg, err := s.Get(ctx)
	if err != nil {
		logutil.GetLogger(ctx).Warn("business config unavailable for fallback context", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("Business Info:\nAddress: %s\nHours: %s", cfg.Address, HoursSummary(cfg.Hours)))
}

// HoursSummary formats opening hours as "Mon–Fri X, Sat Y, Sun Z". A missing
// Sunday value renders as "Sun Closed"; other missing segments are omitted.
func HoursSummary(h model.BusinessHours) string {
	var parts []string
	if h.MonFri != "" {
		parts = append(parts, "Mon–Fri "+h.MonFri)
	}
	if h.Sat != "" {
		parts = append(parts, "Sat "+h.Sat)
	}
	if h.Sun != "" {
		parts = append(parts, "Sun "+h.Sun)
	} else {
		parts = append(parts, "Sun Closed")
	}
	return strings.Join(parts, ", ")
}

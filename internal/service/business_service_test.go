package service

import (
	"context"
	"errors"
	"testing"

	"github.com/serenity-spa/spachat/internal/model"
)

type fakeConfigSource struct {
	cfg   *model.BusinessConfig
	err   error
	calls int
}

func (f *fakeConfigSource) Get(ctx context.Context) (*model.BusinessConfig, error) {
	f.calls++
	return f.cfg, f.err
}

func spaConfig() *model.BusinessConfig {
	return &model.BusinessConfig{
		Name:    "Serenity Spa",
		Address: "12 Elm Street",
		Hours: model.BusinessHours{
			MonFri: "09:00 — 19:00",
			Sat:    "10:00 — 18:00",
		},
	}
}

func TestHoursSummary(t *testing.T) {
	tests := []struct {
		name  string
		hours model.BusinessHours
		want  string
	}{
		{
			name:  "sunday closed by default",
			hours: model.BusinessHours{MonFri: "9-7", Sat: "10-6"},
			want:  "Mon–Fri 9-7, Sat 10-6, Sun Closed",
		},
		{
			name:  "sunday open",
			hours: model.BusinessHours{MonFri: "9-7", Sat: "10-6", Sun: "11-4"},
			want:  "Mon–Fri 9-7, Sat 10-6, Sun 11-4",
		},
		{
			name:  "missing segments omitted",
			hours: model.BusinessHours{Sat: "10-6"},
			want:  "Sat 10-6, Sun Closed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HoursSummary(tt.hours); got != tt.want {
				t.Errorf("HoursSummary = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFallbackContext(t *testing.T) {
	svc := NewBusinessService(&fakeConfigSource{cfg: spaConfig()})
	got := svc.FallbackContext(context.Background())
	want := "Business Info:\nAddress: 12 Elm Street\nHours: Mon–Fri 09:00 — 19:00, Sat 10:00 — 18:00, Sun Closed"
	if got != want {
		t.Errorf("FallbackContext:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestFallbackContextUnavailable(t *testing.T) {
	svc := NewBusinessService(&fakeConfigSource{err: errors.New("no rows")})
	if got := svc.FallbackContext(context.Background()); got != "" {
		t.Errorf("expected empty fallback when config unavailable, got %q", got)
	}
}

func TestGetCachesAfterFirstLoad(t *testing.T) {
	source := &fakeConfigSource{cfg: spaConfig()}
	svc := NewBusinessService(source)
	for i := 0; i < 3; i++ {
		if _, err := svc.Get(context.Background()); err != nil {
			t.Fatalf("get failed: %v", err)
		}
	}
	if source.calls != 1 {
		t.Errorf("source hit %d times, want 1", source.calls)
	}
}

func TestRefreshReplacesCache(t *testing.T) {
	source := &fakeConfigSource{cfg: spaConfig()}
	svc := NewBusinessService(source)
	if _, err := svc.Get(context.Background()); err != nil {
		t.Fatal(err)
	}
	source.cfg = &model.BusinessConfig{Name: "Serenity Spa", Address: "99 New Road"}
	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	cfg, err := svc.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Address != "99 New Road" {
		t.Errorf("address = %q, want refreshed value", cfg.Address)
	}
	if source.calls != 2 {
		t.Errorf("source hit %d times, want 2", source.calls)
	}
}

package driver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iptvkit/aggregator/internal/application"
)

type failingChannelRepo struct {
	memChannelRepo
	pingErr error
}

func (f *failingChannelRepo) Ping(_ context.Context) error { return f.pingErr }

func TestHealthHTTPHandler_ServeHTTP(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		st := newHandlerTestStore(t)
		newsID := seedStoreChannel(t, st, "World News", "News", "http://cdn/news.m3u8")
		markOnline(t, st, newsID, "http://cdn/news.m3u8")

		svc := application.NewHealthService(&memChannelRepo{}, newMemSubscriptionRepo(), st)
		h := NewHealthHTTPHandler(svc)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		var got healthResponse
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("invalid JSON response: %v", err)
		}
		if got.Status != "ok" || got.DB != "ok" {
			t.Errorf("unexpected response: %+v", got)
		}
		if got.ChannelsTotal != 1 || got.ChannelsOnline != 1 {
			t.Errorf("channel counts = %d/%d, want 1/1", got.ChannelsOnline, got.ChannelsTotal)
		}
	})

	t.Run("degraded when database is unreachable", func(t *testing.T) {
		st := newHandlerTestStore(t)
		repo := &failingChannelRepo{pingErr: errors.New("database closed")}
		svc := application.NewHealthService(repo, newMemSubscriptionRepo(), st)
		h := NewHealthHTTPHandler(svc)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
		}
		var got healthResponse
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("invalid JSON response: %v", err)
		}
		if got.Status != "degraded" || got.DB != "error" {
			t.Errorf("unexpected response: %+v", got)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		st := newHandlerTestStore(t)
		svc := application.NewHealthService(&memChannelRepo{}, newMemSubscriptionRepo(), st)
		h := NewHealthHTTPHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/health", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
		}
	})
}

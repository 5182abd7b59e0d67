package driver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/iptvkit/aggregator/internal/application"
	"github.com/iptvkit/aggregator/internal/subscription"
)

// SubscriptionHTTPHandler handles HTTP requests for subscription management.
// Subscriptions are keyed by their playlist URL, which is passed as the `url`
// query parameter rather than a path segment.
type SubscriptionHTTPHandler struct {
	service *application.SubscriptionService
}

// NewSubscriptionHTTPHandler creates a new HTTP handler for subscriptions.
func NewSubscriptionHTTPHandler(service *application.SubscriptionService) *SubscriptionHTTPHandler {
	return &SubscriptionHTTPHandler{service: service}
}

// subscribeRequest represents the JSON body for registering a playlist.
type subscribeRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// renameRequest represents the JSON body for renaming a subscription.
type renameRequest struct {
	Name string `json:"name"`
}

// subscriptionResponse represents a subscription in JSON format.
type subscriptionResponse struct {
	URL           string `json:"url"`
	Name          string `json:"name"`
	Status        string `json:"status"`
	AddedAt       string `json:"added_at"`
	LastUpdatedAt string `json:"last_updated_at,omitempty"`
	ChannelCount  int    `json:"channel_count"`
	LastError     string `json:"last_error,omitempty"`
}

// ServeHTTP routes the request to the appropriate handler based on method and path.
func (h *SubscriptionHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleSubscribe(w, r)
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodDelete:
		h.handleUnsubscribe(w, r)
	case http.MethodPatch:
		h.handleRename(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// toSubscriptionResponse converts a subscription domain object to an API response.
func toSubscriptionResponse(sub subscription.Subscription) subscriptionResponse {
	resp := subscriptionResponse{
		URL:          sub.URL(),
		Name:         sub.Name(),
		Status:       string(sub.Status()),
		AddedAt:      sub.AddedAt().Format(time.RFC3339),
		ChannelCount: sub.ChannelCount(),
		LastError:    sub.LastError(),
	}
	if !sub.LastUpdatedAt().IsZero() {
		resp.LastUpdatedAt = sub.LastUpdatedAt().Format(time.RFC3339)
	}
	return resp
}

// handleSubscribe handles POST /subscriptions
func (h *SubscriptionHTTPHandler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := h.service.Subscribe(r.Context(), req.URL, req.Name)
	if err != nil {
		if errors.Is(err, subscription.ErrEmptyURL) || errors.Is(err, subscription.ErrInvalidURL) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, subscription.ErrSubscriptionAlreadyExists) {
			writeError(w, http.StatusConflict, subscription.ErrSubscriptionAlreadyExists.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toSubscriptionResponse(sub))
}

// handleList handles GET /subscriptions
func (h *SubscriptionHTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	subscriptions, err := h.service.ListSubscriptions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := make([]subscriptionResponse, len(subscriptions))
	for i, sub := range subscriptions {
		response[i] = toSubscriptionResponse(sub)
	}

	writeJSON(w, http.StatusOK, response)
}

// handleUnsubscribe handles DELETE /subscriptions?url={url}
func (h *SubscriptionHTTPHandler) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "missing url parameter")
		return
	}

	if err := h.service.Unsubscribe(r.Context(), url); err != nil {
		if errors.Is(err, subscription.ErrSubscriptionNotFound) {
			writeError(w, http.StatusNotFound, subscription.ErrSubscriptionNotFound.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleRename handles PATCH /subscriptions?url={url}
func (h *SubscriptionHTTPHandler) handleRename(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "missing url parameter")
		return
	}

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := h.service.Rename(r.Context(), url, req.Name)
	if err != nil {
		if errors.Is(err, subscription.ErrSubscriptionNotFound) {
			writeError(w, http.StatusNotFound, subscription.ErrSubscriptionNotFound.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

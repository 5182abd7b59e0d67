package driver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/iptvkit/aggregator/internal/application"
	"github.com/iptvkit/aggregator/internal/channel"
)

// ChannelHTTPHandler handles HTTP requests for the aggregated channel set.
type ChannelHTTPHandler struct {
	service *application.ChannelService
}

// NewChannelHTTPHandler creates a new HTTP handler for channels.
func NewChannelHTTPHandler(service *application.ChannelService) *ChannelHTTPHandler {
	return &ChannelHTTPHandler{service: service}
}

// errorResponse represents a JSON error response.
type errorResponse struct {
	Error string `json:"error"`
}

// sourceResponse represents one candidate URL of a channel in JSON format.
type sourceResponse struct {
	URL    string `json:"url"`
	Origin string `json:"origin"`
}

// livenessResponse represents a channel's probe state in JSON format.
type livenessResponse struct {
	Status         string `json:"status"`
	WorkingURL     string `json:"working_url,omitempty"`
	ResponseTimeMS int64  `json:"response_time_ms,omitempty"`
	LastCheckedAt  string `json:"last_checked_at,omitempty"`
	LastError      string `json:"last_error,omitempty"`
}

// channelResponse represents a channel in JSON format.
type channelResponse struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	TVGID      string           `json:"tvg_id,omitempty"`
	Logo       string           `json:"logo,omitempty"`
	Group      string           `json:"group"`
	PrimaryURL string           `json:"primary_url"`
	Sources    []sourceResponse `json:"sources"`
	Liveness   livenessResponse `json:"liveness"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// ServeHTTP routes the request to the appropriate handler based on method and path.
func (h *ChannelHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/channels")

	// GET /channels - list channels, optionally filtered
	if r.Method == http.MethodGet && path == "" {
		h.handleList(w, r)
		return
	}

	// GET /channels/groups - list distinct group titles
	if r.Method == http.MethodGet && path == "/groups" {
		h.handleGroups(w, r)
		return
	}

	// GET /channels/{id} - get a specific channel
	if r.Method == http.MethodGet && path != "" {
		id := strings.TrimPrefix(path, "/")
		h.handleGet(w, r, id)
		return
	}

	// DELETE /channels/{id} - remove a channel until the next refresh
	if r.Method == http.MethodDelete && path != "" {
		id := strings.TrimPrefix(path, "/")
		h.handleDelete(w, r, id)
		return
	}

	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// toChannelResponse converts a channel domain object to an API response.
func toChannelResponse(ch *channel.Channel) channelResponse {
	sources := ch.Sources()
	sourceResponses := make([]sourceResponse, len(sources))
	for i, src := range sources {
		sourceResponses[i] = sourceResponse{URL: src.URL, Origin: src.Origin}
	}

	liveness := ch.Liveness()
	resp := channelResponse{
		ID:         ch.ID(),
		Name:       ch.Name(),
		TVGID:      ch.TVGID(),
		Logo:       ch.TVGLogo(),
		Group:      ch.GroupTitle(),
		PrimaryURL: ch.PrimaryURL(),
		Sources:    sourceResponses,
		Liveness: livenessResponse{
			Status:         string(liveness.Status()),
			WorkingURL:     liveness.WorkingURL(),
			ResponseTimeMS: liveness.ResponseTime().Milliseconds(),
			LastError:      liveness.LastError(),
		},
	}
	if !liveness.LastCheckedAt().IsZero() {
		resp.Liveness.LastCheckedAt = liveness.LastCheckedAt().Format(time.RFC3339)
	}

	return resp
}

// handleList handles GET /channels
func (h *ChannelHTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := application.ChannelListFilter{
		Group:      query.Get("group"),
		OnlineOnly: query.Get("online") == "true",
		Search:     query.Get("search"),
	}

	channels := h.service.ListChannels(r.Context(), filter)
	response := make([]channelResponse, len(channels))
	for i, ch := range channels {
		response[i] = toChannelResponse(ch)
	}

	writeJSON(w, http.StatusOK, response)
}

// handleGroups handles GET /channels/groups
func (h *ChannelHTTPHandler) handleGroups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.ListGroups(r.Context()))
}

// handleGet handles GET /channels/{id}
func (h *ChannelHTTPHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	ch, err := h.service.GetChannel(r.Context(), id)
	if err != nil {
		if errors.Is(err, channel.ErrChannelNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toChannelResponse(ch))
}

// handleDelete handles DELETE /channels/{id}
func (h *ChannelHTTPHandler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.service.DeleteChannel(r.Context(), id)
	if err != nil {
		if errors.Is(err, channel.ErrChannelNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

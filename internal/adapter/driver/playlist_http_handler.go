package driver

import (
	"net/http"
	"strings"

	"github.com/iptvkit/aggregator/internal/application"
)

// PlaylistHTTPHandler handles HTTP requests for playlist exports.
type PlaylistHTTPHandler struct {
	service *application.PlaylistService
}

// NewPlaylistHTTPHandler creates a new HTTP handler for playlists.
func NewPlaylistHTTPHandler(service *application.PlaylistService) *PlaylistHTTPHandler {
	return &PlaylistHTTPHandler{service: service}
}

// ServeHTTP handles GET /playlist.m3u and GET /playlist.json.
// Both accept ?group={group} and ?online=true filters.
func (h *PlaylistHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query()
	opts := application.ExportOptions{
		Group:      query.Get("group"),
		OnlineOnly: query.Get("online") == "true",
	}

	// Exports are buffered so a failure can still produce a JSON error
	// instead of a truncated body.
	var buf strings.Builder
	contentType := "audio/mpegurl"
	var err error
	if strings.HasSuffix(r.URL.Path, ".json") {
		contentType = "application/json"
		err = h.service.ExportJSON(r.Context(), &buf, opts)
	} else {
		err = h.service.ExportM3U(r.Context(), &buf, opts)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(buf.String()))
}

package driver

import (
	"errors"
	"net/http"

	"github.com/iptvkit/aggregator/internal/application"
)

// RefreshHTTPHandler handles HTTP requests that trigger a refresh cycle.
type RefreshHTTPHandler struct {
	service *application.RefreshService
}

// NewRefreshHTTPHandler creates a new HTTP handler for refresh cycles.
func NewRefreshHTTPHandler(service *application.RefreshService) *RefreshHTTPHandler {
	return &RefreshHTTPHandler{service: service}
}

// refreshResponse represents a refresh cycle summary in JSON format.
type refreshResponse struct {
	Sources         int `json:"sources"`
	SourcesFailed   int `json:"sources_failed"`
	EntriesDecoded  int `json:"entries_decoded"`
	EntriesSkipped  int `json:"entries_skipped"`
	ChannelsCreated int `json:"channels_created"`
	ChannelsTotal   int `json:"channels_total"`
	ChannelsProbed  int `json:"channels_probed"`
	Online          int `json:"online"`
	Offline         int `json:"offline"`
}

// ServeHTTP handles POST /refresh. The cycle runs synchronously; a cycle
// already in progress yields 409.
func (h *RefreshHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	summary, err := h.service.Refresh(r.Context())
	if err != nil {
		if errors.Is(err, application.ErrRefreshInProgress) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "refresh cycle failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{
		Sources:         summary.Sources,
		SourcesFailed:   summary.SourcesFailed,
		EntriesDecoded:  summary.EntriesDecoded,
		EntriesSkipped:  summary.EntriesSkipped,
		ChannelsCreated: summary.ChannelsCreated,
		ChannelsTotal:   summary.ChannelsTotal,
		ChannelsProbed:  summary.Probe.ChannelsProbed,
		Online:          summary.Probe.Online,
		Offline:         summary.Probe.Offline,
	})
}

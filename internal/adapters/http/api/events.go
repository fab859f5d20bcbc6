package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/okian/dextap/internal/domain/model"
)

const (
	defaultRecentLimit  = 20
	defaultMaxBodyBytes = 1 << 20
)

// RecentProvider returns the latest handled events, newest last.
type RecentProvider interface {
	Recent(n int) []model.Event
}

// FrameDecoder runs the decode pipeline on one frame without emitting it.
type FrameDecoder interface {
	DecodeFrame(data []byte) (model.Event, error)
}

// EventsHandler serves recent events and on-demand decoding.
type EventsHandler struct {
	recent       RecentProvider
	decoder      FrameDecoder
	maxBodyBytes int64
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(recent RecentProvider, decoder FrameDecoder, maxBodyBytes int64) *EventsHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &EventsHandler{recent: recent, decoder: decoder, maxBodyBytes: maxBodyBytes}
}

// HandleRecent handles GET /events?limit=N.
func (h *EventsHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limit := defaultRecentLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request",
				fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest))
			return
		}
		limit = n
	}

	events := h.recent.Recent(limit)
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleDecode handles POST /decode: the body is one raw frame.
func (h *EventsHandler) HandleDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", fmt.Errorf("%w: %w", ErrBadRequest, err))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	event, err := h.decoder.DecodeFrame(body)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed", err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

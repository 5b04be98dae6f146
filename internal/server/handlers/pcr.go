package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pcrwatch/pcrwatch/internal/core"
	apperrors "github.com/pcrwatch/pcrwatch/internal/errors"
)

const (
	defaultHistoryHours = 24
	maxHistoryHours     = 24 * 14
)

// PCRService is what the API needs from the scraping side: cached reads plus
// an on-demand refresh.
type PCRService interface {
	Latest(ctx context.Context, symbol string) (*core.Snapshot, error)
	History(ctx context.Context, symbol string, since time.Time, limit int) ([]*core.Snapshot, error)
	Refresh(ctx context.Context, symbol string) (*core.Snapshot, error)
}

// PCRHandlers serves the put/call-ratio read and refresh endpoints.
type PCRHandlers struct {
	Service PCRService
	// Symbols is the configured watch list. Requests for other symbols are
	// rejected rather than forwarded upstream.
	Symbols []string
}

// NewPCRHandlers creates the handler set for the given service.
func NewPCRHandlers(service PCRService, symbols []string) *PCRHandlers {
	return &PCRHandlers{Service: service, Symbols: symbols}
}

// LatestHandler returns the most recent snapshot for a symbol.
func (h *PCRHandlers) LatestHandler(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbolParam(w, r)
	if !ok {
		return
	}

	snap, err := h.Service.Latest(r.Context(), symbol)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to load latest snapshot"))
		return
	}
	if snap == nil {
		respondWithError(w, r, apperrors.NewNotFoundError("no snapshot recorded for "+symbol+" yet"))
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// HistoryResponse wraps the snapshot list with its query window.
type HistoryResponse struct {
	Symbol    string           `json:"symbol"`
	Hours     int              `json:"hours"`
	Count     int              `json:"count"`
	Snapshots []*core.Snapshot `json:"snapshots"`
}

// HistoryHandler returns recent snapshots for a symbol, newest first. The
// window is controlled by the "hours" query parameter.
func (h *PCRHandlers) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbolParam(w, r)
	if !ok {
		return
	}

	hours := defaultHistoryHours
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxHistoryHours {
			respondWithError(w, r, apperrors.NewInvalidInputError("hours must be an integer between 1 and "+strconv.Itoa(maxHistoryHours)))
			return
		}
		hours = parsed
	}

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	snaps, err := h.Service.History(r.Context(), symbol, since, 0)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to load snapshot history"))
		return
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		Symbol:    symbol,
		Hours:     hours,
		Count:     len(snaps),
		Snapshots: snaps,
	})
}

// RefreshHandler fetches a fresh option chain for the symbol right now,
// bypassing the scheduler. The full retry pipeline still applies, so this can
// take a while and can fail with upstream-flavored errors.
func (h *PCRHandlers) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbolParam(w, r)
	if !ok {
		return
	}

	snap, err := h.Service.Refresh(r.Context(), symbol)
	if err != nil {
		respondWithError(w, r, apperrors.WrapFetchFailure(r.Context(), err, "refresh failed for "+symbol))
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func (h *PCRHandlers) symbolParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	symbol := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "symbol")))
	if symbol == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError("symbol is required"))
		return "", false
	}

	if len(h.Symbols) > 0 {
		known := false
		for _, s := range h.Symbols {
			if strings.EqualFold(s, symbol) {
				known = true
				break
			}
		}
		if !known {
			respondWithError(w, r, apperrors.NewNotFoundError("symbol "+symbol+" is not on the watch list"))
			return "", false
		}
	}

	return symbol, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

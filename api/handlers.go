/*
handlers.go - HTTP API handlers for the schedule engine

PURPOSE:
  Exposes the payment schedule engine via REST API. Handles HTTP
  request/response, JSON serialization (goccy/go-json), and delegates to
  the ingest and engine packages.

ENDPOINTS:
  POST /api/schedule/generate  Run the engine, return rows (no persistence)
  POST /api/runs               Run the engine and persist the output
  GET  /api/runs/{id}          Run summary (counts, issues)
  GET  /api/runs/{id}/rows     Persisted rows, ?policyId= to filter
  GET  /api/health             Liveness

REQUEST FLOW:
  1. Decode JSON request
  2. Normalize raw records (ingest) - contract violations become rejects
  3. Run the engine over the surviving events
  4. Serialize rows/issues/rejects

ERROR HANDLING:
  - 400: Malformed JSON, bad identifiers
  - 404: Unknown run
  - 422: Structural input failures (the run produced nothing)
  - 500: Storage errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/warp/instalment-engine/ingest"
	"github.com/warp/instalment-engine/schedule"
	"github.com/warp/instalment-engine/store/sqlite"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Engine *schedule.Engine
}

// NewHandler creates a new handler backed by the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:  store,
		Engine: schedule.NewEngine(),
	}
}

// =============================================================================
// SCHEDULE HANDLERS
// =============================================================================

// Generate runs the engine over the posted records without persisting.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	result, rejects, ok := h.runEngine(w, r)
	if !ok {
		return
	}

	issues := result.Issues
	if issues == nil {
		issues = []schedule.Issue{}
	}
	writeJSON(w, http.StatusOK, GenerateResponse{
		Rows:    toRowDTOs(result.Rows),
		Issues:  issues,
		Rejects: rejects,
	})
}

// CreateRun runs the engine and persists the output as a new run.
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	result, rejects, ok := h.runEngine(w, r)
	if !ok {
		return
	}

	run := sqlite.Run{
		ID:         uuid.New(),
		CreatedAt:  time.Now().UTC(),
		EventCount: result.EventCount,
		Rows:       result.Rows,
		Issues:     result.Issues,
	}
	if err := h.Store.SaveRun(r.Context(), run); err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to persist run"})
		return
	}

	summary, err := h.Store.GetRun(r.Context(), run.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to load run"})
		return
	}
	writeJSON(w, http.StatusCreated, CreateRunResponse{Run: summary, Rejects: rejects})
}

// GetRun returns a persisted run's summary.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, ok := parseRunID(w, r)
	if !ok {
		return
	}
	summary, err := h.Store.GetRun(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "run not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to load run"})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetRunRows returns a persisted run's rows, optionally filtered by policy.
func (h *Handler) GetRunRows(w http.ResponseWriter, r *http.Request) {
	id, ok := parseRunID(w, r)
	if !ok {
		return
	}
	if _, err := h.Store.GetRun(r.Context(), id); errors.Is(err, sql.ErrNoRows) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "run not found"})
		return
	} else if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to load run"})
		return
	}

	policyID := schedule.PolicyID(r.URL.Query().Get("policyId"))
	rows, err := h.Store.RowsByRun(r.Context(), id, policyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to load rows"})
		return
	}
	writeJSON(w, http.StatusOK, RowsResponse{RunID: id.String(), Rows: toRowDTOs(rows)})
}

// Health is a liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// runEngine decodes the request, normalizes records and runs the engine.
// On failure it writes the error response and returns ok=false.
func (h *Handler) runEngine(w http.ResponseWriter, r *http.Request) (*schedule.Result, []RejectDTO, bool) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return nil, nil, false
	}

	opts, err := parseOptions(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return nil, nil, false
	}

	records := make([]ingest.RawRecord, 0, len(req.Records))
	for _, dto := range req.Records {
		records = append(records, toRawRecord(dto))
	}

	events, rejects := ingest.Normalize(records, opts)
	result, err := h.Engine.Run(events)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
		return nil, nil, false
	}
	return result, toRejectDTOs(rejects), true
}

func parseOptions(req GenerateRequest) (ingest.Options, error) {
	var opts ingest.Options
	var err error
	if req.From != "" {
		if opts.From, err = time.Parse("2006-01-02", req.From); err != nil {
			return opts, errors.New("invalid from date")
		}
	}
	if req.To != "" {
		if opts.To, err = time.Parse("2006-01-02", req.To); err != nil {
			return opts, errors.New("invalid to date")
		}
	}
	return opts, nil
}

func parseRunID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid run id"})
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

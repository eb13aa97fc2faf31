/*
handlers.go - HTTP API handlers for the deduction engine

PURPOSE:
  Exposes roster storage, settings and the calculation engine via REST.
  Handles HTTP request/response and JSON serialization, and delegates to
  the factory (decoding), the store (persistence) and duty.Engine
  (everything else).

ENDPOINTS:
  Rosters:
    POST   /api/crew/{id}/rosters             Store a roster document
    GET    /api/crew/{id}/rosters             List stored documents
    GET    /api/crew/{id}/rosters/{rosterID}  One document with content
    DELETE /api/crew/{id}/rosters/{rosterID}  Remove a document

  Settings:
    GET    /api/crew/{id}/settings            Stored settings or defaults
    PUT    /api/crew/{id}/settings            Replace settings

  Calculation:
    GET    /api/crew/{id}/calculation         Recompute from stored documents
    POST   /api/calculate                     Stateless: documents in, result out

  Reference data:
    GET    /api/rates/{year}/{country}        Meal allowance, tip and distance rates
    GET    /api/airports/{code}               Airport location

REQUEST FLOW (calculation):
  1. Load every stored document of the crew member
  2. Decode each through the factory and combine into one roster
  3. Load settings (defaults if none stored)
  4. Run the engine; log warnings; record metrics
  5. Serialize the result

Nothing derived is cached between requests. A new upload or a settings
change is visible in the very next calculation.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid documents or settings
  - 404: Unknown roster, crew member or airport
  - 409: Document for that month already stored
  - 500: Internal errors

SECURITY NOTE:
  No authentication. The crew id in the path is trusted.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo roster sets
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warp/crewtax/duty"
	"github.com/warp/crewtax/factory"
	"github.com/warp/crewtax/generic"
	"github.com/warp/crewtax/geo"
	"github.com/warp/crewtax/metrics"
	"github.com/warp/crewtax/rates"
)

// maxBodyBytes bounds request bodies. A year of monthly rosters is well
// below this.
const maxBodyBytes = 4 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    generic.RosterStore
	Engine   *duty.Engine
	Rates    *rates.Table
	Geo      *geo.Registry
	Rosters  *factory.RosterFactory
	Settings *factory.SettingsFactory
	Metrics  *metrics.Recorder
	Logger   *slog.Logger
}

// NewHandler creates a handler. defaults seed the settings of crew members
// who stored none. rec may be nil.
func NewHandler(store generic.RosterStore, table *rates.Table, registry *geo.Registry, defaults duty.Settings, rec *metrics.Recorder, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Store:    store,
		Engine:   duty.NewEngine(table, registry),
		Rates:    table,
		Geo:      registry,
		Rosters:  factory.NewRosterFactory(),
		Settings: factory.NewSettingsFactory(defaults),
		Metrics:  rec,
		Logger:   logger,
	}
}

// =============================================================================
// HEALTH
// =============================================================================

// Health reports liveness, and store reachability when the store can tell.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Store.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Store unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// ROSTER HANDLERS
// =============================================================================

// CreateRoster stores one document. With ?replace=true an existing document
// of the same kind and month is replaced instead of rejected.
func (h *Handler) CreateRoster(w http.ResponseWriter, r *http.Request) {
	crewID := generic.CrewID(chi.URLParam(r, "id"))

	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	doc, err := h.Rosters.ParseRoster(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid roster document", err)
		return
	}

	replace, _ := strconv.ParseBool(r.URL.Query().Get("replace"))
	rec, err := h.saveDocument(r.Context(), crewID, doc, replace)
	if err != nil {
		writeError(w, statusFor(err), "Failed to store roster", err)
		return
	}

	h.Logger.InfoContext(r.Context(), "roster stored",
		"crew_id", crewID,
		"roster_id", rec.ID,
		"kind", rec.Kind,
		"year", rec.Year,
		"month", int(rec.Month),
	)
	writeJSON(w, http.StatusCreated, toRosterDTO(rec, doc))
}

// ListRosters returns all documents of a crew member.
func (h *Handler) ListRosters(w http.ResponseWriter, r *http.Request) {
	crewID := generic.CrewID(chi.URLParam(r, "id"))

	recs, err := h.Store.ListRosters(r.Context(), crewID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rosters", err)
		return
	}

	dtos := make([]RosterDTO, 0, len(recs))
	for _, rec := range recs {
		doc, err := h.Rosters.ParseRoster([]byte(rec.Document))
		if err != nil {
			h.Logger.ErrorContext(r.Context(), "stored roster unreadable", "roster_id", rec.ID, "error", err)
			continue
		}
		dtos = append(dtos, toRosterDTO(rec, doc))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRoster returns one document including its content.
func (h *Handler) GetRoster(w http.ResponseWriter, r *http.Request) {
	crewID := generic.CrewID(chi.URLParam(r, "id"))
	id := generic.RosterID(chi.URLParam(r, "rosterID"))

	rec, err := h.Store.GetRoster(r.Context(), crewID, id)
	if err != nil {
		writeError(w, statusFor(err), "Failed to load roster", err)
		return
	}
	doc, err := h.Rosters.ParseRoster([]byte(rec.Document))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Stored roster unreadable", err)
		return
	}
	writeJSON(w, http.StatusOK, RosterDetailDTO{
		RosterDTO: toRosterDTO(rec, doc),
		Document:  h.Rosters.ToJSON(doc),
	})
}

// DeleteRoster removes one document.
func (h *Handler) DeleteRoster(w http.ResponseWriter, r *http.Request) {
	crewID := generic.CrewID(chi.URLParam(r, "id"))
	id := generic.RosterID(chi.URLParam(r, "rosterID"))

	if err := h.Store.DeleteRoster(r.Context(), crewID, id); err != nil {
		writeError(w, statusFor(err), "Failed to delete roster", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// saveDocument stores doc under a fresh id, replacing an existing document
// of the same kind and month when replace is set.
func (h *Handler) saveDocument(ctx context.Context, crewID generic.CrewID, doc *factory.RosterDocument, replace bool) (generic.RosterRecord, error) {
	data, err := json.Marshal(h.Rosters.ToJSON(doc))
	if err != nil {
		return generic.RosterRecord{}, fmt.Errorf("encode roster: %w", err)
	}
	rec := generic.RosterRecord{
		ID:         generic.RosterID(uuid.NewString()),
		CrewID:     crewID,
		Kind:       doc.Kind,
		Year:       doc.Year,
		Month:      doc.Month,
		Source:     doc.Source,
		Document:   string(data),
		UploadedAt: time.Now().UTC().Truncate(time.Second),
	}

	if replace {
		return rec, h.Store.ReplaceRoster(ctx, rec)
	}
	return rec, h.Store.SaveRoster(ctx, rec)
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// GetSettings returns the stored settings, or the defaults.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	crewID := generic.CrewID(chi.URLParam(r, "id"))

	s, err := h.loadSettings(r.Context(), crewID)
	if err != nil {
		writeError(w, statusFor(err), "Failed to load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// PutSettings replaces the settings. Fields missing from the body take the
// defaults, not the previously stored values.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	crewID := generic.CrewID(chi.URLParam(r, "id"))

	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	s, err := h.Settings.ParseSettings(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid settings", err)
		return
	}
	stored, err := h.Settings.ToJSON(s)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode settings", err)
		return
	}
	if err := h.Store.SaveSettings(r.Context(), crewID, stored); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) loadSettings(ctx context.Context, crewID generic.CrewID) (duty.Settings, error) {
	raw, err := h.Store.LoadSettings(ctx, crewID)
	if errors.Is(err, generic.ErrCrewNotFound) {
		return h.Settings.Defaults, nil
	}
	if err != nil {
		return duty.Settings{}, err
	}
	return h.Settings.ParseSettings([]byte(raw))
}

// =============================================================================
// CALCULATION HANDLERS
// =============================================================================

// GetCalculation recomputes everything for a crew member from the stored
// documents. ?year= restricts the result to one tax year.
func (h *Handler) GetCalculation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	crewID := generic.CrewID(chi.URLParam(r, "id"))

	recs, err := h.Store.ListRosters(ctx, crewID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rosters", err)
		return
	}
	docs := make([]*factory.RosterDocument, 0, len(recs))
	for _, rec := range recs {
		doc, err := h.Rosters.ParseRoster([]byte(rec.Document))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Stored roster unreadable", fmt.Errorf("roster %s: %w", rec.ID, err))
			return
		}
		docs = append(docs, doc)
	}

	s, err := h.loadSettings(ctx, crewID)
	if err != nil {
		writeError(w, statusFor(err), "Failed to load settings", err)
		return
	}

	dto := h.calculate(ctx, "crew", crewID, factory.Combine(docs...), s)

	if y := r.URL.Query().Get("year"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		filtered, ok := dto.Result.ForYear(year)
		if !ok {
			writeError(w, http.StatusNotFound, "No data for year", fmt.Errorf("year %d", year))
			return
		}
		dto.Result = filtered
	}
	writeJSON(w, http.StatusOK, dto)
}

// Calculate runs the engine on the documents in the request body without
// touching the store.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	docs := make([]*factory.RosterDocument, 0, len(req.Documents))
	for i, rj := range req.Documents {
		doc, err := h.Rosters.FromJSON(rj)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid roster document", fmt.Errorf("documents[%d]: %w", i, err))
			return
		}
		docs = append(docs, doc)
	}
	s, err := h.Settings.ParseSettings(req.Settings)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid settings", err)
		return
	}

	writeJSON(w, http.StatusOK, h.calculate(r.Context(), "calculate", "", factory.Combine(docs...), s))
}

func (h *Handler) calculate(ctx context.Context, source string, crewID generic.CrewID, roster duty.Roster, s duty.Settings) CalculationDTO {
	runID := uuid.NewString()

	start := time.Now()
	res := h.Engine.Run(roster, s)
	elapsed := time.Since(start)

	h.Metrics.ObserveRun(source, elapsed, res.Warnings)
	for _, warn := range res.Warnings {
		h.Logger.WarnContext(ctx, "calculation warning",
			"run_id", runID,
			"crew_id", crewID,
			"code", warn.Code,
			"date", warn.Date,
			"message", warn.Message,
		)
	}
	h.Logger.InfoContext(ctx, "calculation finished",
		"run_id", runID,
		"crew_id", crewID,
		"flights", len(res.Flights),
		"segments", len(res.Segments),
		"warnings", len(res.Warnings),
		"duration_ms", elapsed.Milliseconds(),
	)

	return CalculationDTO{
		RunID:    runID,
		CrewID:   string(crewID),
		Settings: s,
		Result:   res,
	}
}

// =============================================================================
// REFERENCE DATA HANDLERS
// =============================================================================

// GetRate returns the meal allowance rates of a country, the hotel tip and
// the distance rates for a tax year.
func (h *Handler) GetRate(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	country, err := url.PathUnescape(chi.URLParam(r, "country"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid country", err)
		return
	}

	writeJSON(w, http.StatusOK, RateDTO{
		Rate:        h.Rates.DailyRate(country, year),
		TipPerNight: h.Rates.TipPerNight(year),
		Distance:    rates.DistanceRates(year),
	})
}

// GetAirport returns the location of an IATA code.
func (h *Handler) GetAirport(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))

	loc, ok := h.Geo.Airport(code)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown airport", fmt.Errorf("%s", code))
		return
	}
	writeJSON(w, http.StatusOK, AirportDTO{Location: loc})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusFor maps store and factory errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, generic.ErrDuplicateRoster):
		return http.StatusConflict
	case generic.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
}

func toRosterDTO(rec generic.RosterRecord, doc *factory.RosterDocument) RosterDTO {
	return RosterDTO{
		ID:         string(rec.ID),
		CrewID:     string(rec.CrewID),
		Kind:       string(rec.Kind),
		Year:       rec.Year,
		Month:      int(rec.Month),
		Source:     rec.Source,
		Flights:    len(doc.Roster.Flights),
		Markers:    len(doc.Roster.Markers),
		UploadedAt: rec.UploadedAt.UTC().Format(time.RFC3339),
	}
}

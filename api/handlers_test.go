/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Roster upload, listing, replacement and deletion
- Settings defaults and replacement
- Stored and stateless calculation
- Reference data lookups
- Metrics exposition
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/crewtax/duty"
	"github.com/warp/crewtax/generic"
	"github.com/warp/crewtax/generic/store"
	"github.com/warp/crewtax/geo"
	"github.com/warp/crewtax/metrics"
	"github.com/warp/crewtax/rates"
)

const marchRoster = `{
	"kind": "flight_hours",
	"year": 2025,
	"month": 3,
	"source": "Flugstunden_2025_03.pdf",
	"flights": [
		{"date": "01.03.2025", "flight_number": "LH400", "from": "FRA", "to": "JFK",
		 "departure_time": "08:00", "block_time": "8:30", "duty_code": "A"},
		{"date": "03.03.2025", "flight_number": "LH401", "from": "JFK", "to": "FRA",
		 "departure_time": "10:00", "block_time": "7,5", "duty_code": "E"}
	]
}`

const marchReimbursement = `{"kind": "reimbursement", "year": 2025, "month": 3, "tax_free": "100"}`

type testServer struct {
	router  http.Handler
	store   *store.Memory
	metrics *metrics.Recorder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mem := store.NewMemory()
	rec := metrics.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(mem, rates.MustDefault(), geo.MustDefault(), duty.DefaultSettings(), rec, logger)
	return &testServer{
		router:  NewRouter(h, RouterOptions{AllowedOrigins: []string{"http://localhost:5173"}}),
		store:   mem,
		metrics: rec,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// calculationView is the part of a calculation response the tests inspect.
type calculationView struct {
	RunID  string `json:"run_id"`
	Result struct {
		Orphans  []json.RawMessage `json:"orphans"`
		Warnings []generic.Warning `json:"warnings"`
		Years    []struct {
			Year                 int             `json:"year"`
			MealAllowance        decimal.Decimal `json:"meal_allowance"`
			DeductibleDifference decimal.Decimal `json:"deductible_difference"`
			Total                decimal.Decimal `json:"total"`
		} `json:"years"`
	} `json:"result"`
}

// =============================================================================
// HEALTH
// =============================================================================

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

// =============================================================================
// ROSTERS
// =============================================================================

func TestRosters_UploadListDelete(t *testing.T) {
	s := newTestServer(t)

	// WHEN: A flight-hours document is uploaded
	rec := s.do(t, http.MethodPost, "/api/crew/c1/rosters", marchRoster)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[RosterDTO](t, rec)

	// THEN: It is listed with its counts
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 2, created.Flights)
	list := decode[[]RosterDTO](t, s.do(t, http.MethodGet, "/api/crew/c1/rosters", ""))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, 3, list[0].Month)

	// AND: Its content can be read back
	detail := decode[RosterDetailDTO](t, s.do(t, http.MethodGet, "/api/crew/c1/rosters/"+created.ID, ""))
	assert.Len(t, detail.Document.Flights, 2)

	// AND: Other crew members don't see it
	assert.Empty(t, decode[[]RosterDTO](t, s.do(t, http.MethodGet, "/api/crew/c2/rosters", "")))

	// WHEN: It is deleted twice
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/crew/c1/rosters/"+created.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/crew/c1/rosters/"+created.ID, "").Code)
}

func TestRosters_DuplicateMonth(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/crew/c1/rosters", marchRoster).Code)

	// Same kind and month again: conflict
	rec := s.do(t, http.MethodPost, "/api/crew/c1/rosters", marchRoster)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// A reimbursement for the same month is a different document
	assert.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/crew/c1/rosters", marchReimbursement).Code)

	// replace=true swaps the flight-hours document
	rec = s.do(t, http.MethodPost, "/api/crew/c1/rosters?replace=true", marchRoster)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	replaced := decode[RosterDTO](t, rec)

	list := decode[[]RosterDTO](t, s.do(t, http.MethodGet, "/api/crew/c1/rosters", ""))
	require.Len(t, list, 2)
	ids := []string{list[0].ID, list[1].ID}
	assert.Contains(t, ids, replaced.ID)
}

// replaceFailingStore fails every replace and otherwise behaves like Memory.
type replaceFailingStore struct {
	*store.Memory
}

func (replaceFailingStore) ReplaceRoster(context.Context, generic.RosterRecord) error {
	return errors.New("disk I/O error")
}

func TestRosters_FailedReplaceKeepsStoredDocument(t *testing.T) {
	mem := replaceFailingStore{Memory: store.NewMemory()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(mem, rates.MustDefault(), geo.MustDefault(), duty.DefaultSettings(), metrics.New(), logger)
	s := &testServer{router: NewRouter(h, RouterOptions{}), store: mem.Memory}

	rec := s.do(t, http.MethodPost, "/api/crew/c1/rosters", marchRoster)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	original := decode[RosterDTO](t, rec)

	// WHEN: The replacement cannot be written
	rec = s.do(t, http.MethodPost, "/api/crew/c1/rosters?replace=true", marchRoster)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// THEN: The original document is still there
	list := decode[[]RosterDTO](t, s.do(t, http.MethodGet, "/api/crew/c1/rosters", ""))
	require.Len(t, list, 1)
	assert.Equal(t, original.ID, list[0].ID)
}

func TestRosters_InvalidDocument(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/crew/c1/rosters", `{"year": 2025, "month": 14}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "Invalid roster document", resp.Error)
	assert.Contains(t, resp.Details, "month")
}

// =============================================================================
// SETTINGS
// =============================================================================

func TestSettings_DefaultsThenReplace(t *testing.T) {
	s := newTestServer(t)

	// GIVEN: Nothing stored
	got := decode[duty.Settings](t, s.do(t, http.MethodGet, "/api/crew/c1/settings", ""))
	assert.True(t, got.CountMedicalAsTrip)
	assert.Equal(t, "DE", got.HomeCountryCode)

	// WHEN: Settings are replaced
	rec := s.do(t, http.MethodPut, "/api/crew/c1/settings", `{"distance_km": "30", "drive_time_minutes": 60}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: They are returned on the next read
	got = decode[duty.Settings](t, s.do(t, http.MethodGet, "/api/crew/c1/settings", ""))
	assert.True(t, got.DistanceKm.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, 60, got.DriveTimeMinutes)
}

func TestSettings_Invalid(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/crew/c1/settings", `{"distance_km": "-5"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid settings", decode[ErrorResponse](t, rec).Error)
}

// =============================================================================
// CALCULATION
// =============================================================================

func TestCalculation_FromStoredDocuments(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/crew/c1/rosters", marchRoster).Code)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/crew/c1/rosters", marchReimbursement).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/crew/c1/settings", `{"distance_km": "30", "drive_time_minutes": 60}`).Code)

	rec := s.do(t, http.MethodGet, "/api/crew/c1/calculation", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// 154 meal - 100 reimbursed + 7.20 tips + 3.20 cleaning + 19.60 distance
	calc := decode[calculationView](t, rec)
	assert.NotEmpty(t, calc.RunID)
	require.Len(t, calc.Result.Years, 1)
	y := calc.Result.Years[0]
	assert.Equal(t, 2025, y.Year)
	assert.True(t, y.MealAllowance.Equal(decimal.NewFromInt(154)), y.MealAllowance.String())
	assert.True(t, y.Total.Equal(decimal.RequireFromString("84")), y.Total.String())
}

func TestCalculation_ReflectsChangesImmediately(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/crew/c1/rosters", marchRoster).Code)

	before := decode[calculationView](t, s.do(t, http.MethodGet, "/api/crew/c1/calculation", ""))
	require.Len(t, before.Result.Years, 1)

	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/crew/c1/rosters", marchReimbursement).Code)
	after := decode[calculationView](t, s.do(t, http.MethodGet, "/api/crew/c1/calculation", ""))
	require.Len(t, after.Result.Years, 1)

	assert.True(t, before.Result.Years[0].DeductibleDifference.Equal(decimal.NewFromInt(154)))
	assert.True(t, after.Result.Years[0].DeductibleDifference.Equal(decimal.NewFromInt(54)))
}

func TestCalculation_YearFilter(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/crew/c1/rosters", marchRoster).Code)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/crew/c1/calculation?year=2025", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/crew/c1/calculation?year=2030", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/crew/c1/calculation?year=next", "").Code)
}

func TestCalculate_Stateless(t *testing.T) {
	s := newTestServer(t)

	body := `{"documents": [` + marchRoster + `,` + marchReimbursement + `],
		"settings": {"distance_km": "30", "drive_time_minutes": 60}}`
	rec := s.do(t, http.MethodPost, "/api/calculate", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	calc := decode[calculationView](t, rec)
	require.Len(t, calc.Result.Years, 1)
	assert.True(t, calc.Result.Years[0].Total.Equal(decimal.RequireFromString("84")))

	// Nothing was stored
	recs, err := s.store.ListRosters(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestCalculate_SameInputSameResult(t *testing.T) {
	s := newTestServer(t)
	body := `{"documents": [` + marchRoster + `]}`

	first := decode[map[string]json.RawMessage](t, s.do(t, http.MethodPost, "/api/calculate", body))
	second := decode[map[string]json.RawMessage](t, s.do(t, http.MethodPost, "/api/calculate", body))

	assert.NotEqual(t, string(first["run_id"]), string(second["run_id"]))
	assert.True(t, bytes.Equal(first["result"], second["result"]))
}

func TestCalculate_InvalidDocument(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/calculate", `{"documents": [{"kind": "payslip", "year": 2025, "month": 1}]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Details, "documents[0]")
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

func TestGetRate(t *testing.T) {
	s := newTestServer(t)

	rate := decode[RateDTO](t, s.do(t, http.MethodGet, "/api/rates/2025/Deutschland", ""))
	assert.True(t, rate.Full.Equal(decimal.NewFromInt(28)))
	assert.True(t, rate.Partial.Equal(decimal.NewFromInt(14)))
	assert.True(t, rate.TipPerNight.Equal(decimal.RequireFromString("3.60")))

	// Unknown countries fall back to Luxemburg
	rate = decode[RateDTO](t, s.do(t, http.MethodGet, "/api/rates/2025/Atlantis", ""))
	assert.True(t, rate.Fallback)
	assert.True(t, rate.Full.Equal(decimal.NewFromInt(63)))

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/rates/soon/Deutschland", "").Code)
}

func TestGetAirport(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/airports/jfk", "")
	require.Equal(t, http.StatusOK, rec.Code)
	loc := decode[AirportDTO](t, rec)
	assert.Equal(t, "US", loc.CountryCode)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/airports/ZZZ", "").Code)
}

// =============================================================================
// METRICS
// =============================================================================

func TestMetrics_RecordsRunsAndRoutes(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/calculate", `{"documents": [`+marchRoster+`]}`).Code)

	rec := s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `crewtax_engine_runs_total{source="calculate"} 1`)
	assert.Contains(t, body, `route="/api/calculate"`)
}

package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/crewtax/generic"
)

func TestScenarios_ListMatchesData(t *testing.T) {
	s := newTestServer(t)

	list := decode[[]ScenarioDTO](t, s.do(t, http.MethodGet, "/api/scenarios/", ""))

	data := scenarioData()
	require.Len(t, list, len(data))
	for _, sc := range list {
		_, ok := data[sc.ID]
		assert.True(t, ok, sc.ID)
	}
}

func TestScenarios_AllLoadAndCalculate(t *testing.T) {
	for _, sc := range scenarios {
		t.Run(sc.ID, func(t *testing.T) {
			s := newTestServer(t)

			rec := s.do(t, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "`+sc.ID+`", "crew_id": "demo"}`)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			loaded := decode[LoadScenarioResponse](t, rec)
			assert.NotEmpty(t, loaded.Rosters)

			calc := s.do(t, http.MethodGet, "/api/crew/demo/calculation", "")
			require.Equal(t, http.StatusOK, calc.Code, calc.Body.String())
			assert.NotEmpty(t, decode[calculationView](t, calc).Result.Years)
		})
	}
}

func TestScenarios_LoadReplacesPreviousDocuments(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "month-boundary"}`).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "time-zones"}`).Code)

	list := decode[[]RosterDTO](t, s.do(t, http.MethodGet, "/api/crew/"+DefaultScenarioCrewID+"/rosters", ""))
	require.Len(t, list, 1)
	assert.Equal(t, 6, list[0].Month)
}

func TestScenarios_Continuations(t *testing.T) {
	s := newTestServer(t)

	// Both months uploaded: the February fragment finds its origin
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "month-boundary", "crew_id": "a"}`).Code)
	calc := decode[calculationView](t, s.do(t, http.MethodGet, "/api/crew/a/calculation", ""))
	assert.Empty(t, calc.Result.Orphans)

	// February missing: the March fragment is an orphan
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "missing-month", "crew_id": "b"}`).Code)
	calc = decode[calculationView](t, s.do(t, http.MethodGet, "/api/crew/b/calculation", ""))
	assert.Len(t, calc.Result.Orphans, 1)

	var codes []generic.WarningCode
	for _, w := range calc.Result.Warnings {
		codes = append(codes, w.Code)
	}
	assert.Contains(t, codes, generic.WarnOrphanContinuation)
}

func TestScenarios_Unknown(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "nope"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

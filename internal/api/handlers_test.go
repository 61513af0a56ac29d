package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"epinet/adapters/rng"
	"epinet/app"
	"epinet/domain/core"
	"epinet/domain/params"
	"epinet/domain/sim"
	"epinet/internal"
	apperrors "epinet/internal/errors"
	"epinet/internal/presets"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	byBatch map[core.BatchID][]*sim.Summary
	order   []*sim.Summary
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byBatch: map[core.BatchID][]*sim.Summary{}}
}

func (m *memoryRepo) Save(_ context.Context, batchID core.BatchID, s *sim.Summary) error {
	m.byBatch[batchID] = append(m.byBatch[batchID], s)
	m.order = append(m.order, s)
	return nil
}

func (m *memoryRepo) List(_ context.Context, limit int) ([]*sim.Summary, error) {
	if limit > len(m.order) {
		limit = len(m.order)
	}
	return m.order[:limit], nil
}

func (m *memoryRepo) ListBatch(_ context.Context, batchID core.BatchID) ([]*sim.Summary, error) {
	s, ok := m.byBatch[batchID]
	if !ok {
		return nil, core.NewNotFoundError("batch", batchID.String())
	}
	return s, nil
}

func (m *memoryRepo) Name() string { return "memory" }

func (m *memoryRepo) Record(ctx context.Context, batchID core.BatchID, summaries []*sim.Summary) error {
	for _, s := range summaries {
		if err := m.Save(ctx, batchID, s); err != nil {
			return err
		}
	}
	return nil
}

func setupRouter(t *testing.T, repo *memoryRepo) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := internal.NewLogger(internal.LogLevelError)

	batches := app.NewBatchService(app.NewMonteCarloService(rng.NewSeedSequence(), 2, logger), logger)
	var handler *Handler
	if repo != nil {
		batches.AddSink(repo)
		handler = NewHandler(context.Background(), batches, presets.Default(), repo, nil, Defaults{Trials: 5, MasterSeed: 11}, logger)
	} else {
		handler = NewHandler(context.Background(), batches, presets.Default(), nil, nil, Defaults{Trials: 5, MasterSeed: 11}, logger)
	}

	r := gin.New()
	handler.Register(r)
	return r
}

func do(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func fastExperiment() params.Experiment {
	return params.Experiment{
		Scientists:    3,
		Topology:      params.TopologyComplete,
		SampleSize:    1000,
		Epsilon:       0.05,
		StopThreshold: 0.5,
		MaxRounds:     500,
	}
}

func TestListPresets(t *testing.T) {
	w := do(setupRouter(t, nil), http.MethodGet, "/api/presets", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Presets []presets.Preset `json:"presets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Presets, 4)
}

func TestGetPreset(t *testing.T) {
	r := setupRouter(t, nil)

	w := do(r, http.MethodGet, "/api/presets/policymakers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"scientists":6`)

	w = do(r, http.MethodGet, "/api/presets/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunExperiment(t *testing.T) {
	repo := newMemoryRepo()
	r := setupRouter(t, repo)
	trials := 8

	w := do(r, http.MethodPost, "/api/experiments", ExperimentRequest{
		RunRequest: RunRequest{Trials: &trials},
		Experiment: fastExperiment(),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Result app.BatchResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Result.Summaries, 1)
	assert.Equal(t, 8, body.Result.Summaries[0].Trials)
	assert.Equal(t, uint64(11), body.Result.Summaries[0].MasterSeed)
	assert.Len(t, repo.byBatch[body.Result.BatchID], 1)

	w = do(r, http.MethodGet, "/api/batches/"+body.Result.BatchID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/api/batches/"+body.Result.BatchID.String()+"/replay", nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"reproduced":1`)

	w = do(r, http.MethodGet, "/api/summaries?limit=10", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/batches/bad%20id", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(r, http.MethodGet, "/api/batches/unknown-batch", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunExperimentRejectsInvalidConfig(t *testing.T) {
	exp := fastExperiment()
	exp.Topology = "star"

	w := do(setupRouter(t, nil), http.MethodPost, "/api/experiments", ExperimentRequest{Experiment: exp})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunPresetQueryValidation(t *testing.T) {
	w := do(setupRouter(t, nil), http.MethodPost, "/api/presets/zollman-cycle/run?trials=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartBatchValidation(t *testing.T) {
	r := setupRouter(t, nil)
	zero := 0

	w := do(r, http.MethodPost, "/api/batches", BatchStartRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/batches", BatchStartRequest{Preset: "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPost, "/api/batches", BatchStartRequest{
		RunRequest:  RunRequest{Trials: &zero},
		Experiments: []params.Experiment{fastExperiment()},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartBatchAccepted(t *testing.T) {
	w := do(setupRouter(t, nil), http.MethodPost, "/api/batches", BatchStartRequest{
		Experiments: []params.Experiment{fastExperiment()},
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"batch_id"`)
}

func TestSummariesWithoutStore(t *testing.T) {
	r := setupRouter(t, nil)
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/api/summaries", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/api/batches/x", nil).Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.NewNotFoundError("batch", "x"), http.StatusNotFound},
		{fmt.Errorf("wrap: %w", core.ErrPresetNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: diff", core.ErrNonDeterministic), http.StatusConflict},
		{params.ErrInvalidConfig, http.StatusBadRequest},
		{fmt.Errorf("%w: empty", core.ErrInvalidBatchID), http.StatusBadRequest},
		{apperrors.InvalidInput("bad"), http.StatusBadRequest},
		{apperrors.SimulationFailed(3, errors.New("boom")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

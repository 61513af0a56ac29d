package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"

	"epinet/app"
	"epinet/domain/core"
	"epinet/domain/params"
	"epinet/internal"
	"epinet/internal/errors"
	"epinet/internal/presets"
	"epinet/ports"

	"github.com/gin-gonic/gin"
)

// Defaults fill request fields the client left out
type Defaults struct {
	Trials     int
	MasterSeed uint64
}

// Handler serves the simulation API
type Handler struct {
	batches   *app.BatchService
	presets   *presets.Set
	summaries ports.SummaryRepository
	hub       *SSEHub
	defaults  Defaults
	baseCtx   context.Context
	logger    *internal.Logger
}

// NewHandler creates the API handler. summaries may be nil when no database is configured.
// baseCtx bounds asynchronous batches and is usually cancelled on shutdown.
func NewHandler(
	baseCtx context.Context,
	batches *app.BatchService,
	presetSet *presets.Set,
	summaries ports.SummaryRepository,
	hub *SSEHub,
	defaults Defaults,
	logger *internal.Logger,
) *Handler {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Handler{
		batches:   batches,
		presets:   presetSet,
		summaries: summaries,
		hub:       hub,
		defaults:  defaults,
		baseCtx:   baseCtx,
		logger:    logger.WithComponent("api"),
	}
}

// Register mounts every route under /api
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.GET("/presets", h.ListPresets)
	api.GET("/presets/:name", h.GetPreset)
	api.POST("/presets/:name/run", h.RunPreset)
	api.POST("/experiments", h.RunExperiment)
	api.POST("/batches", h.StartBatch)
	api.GET("/batches/:id", h.GetBatch)
	api.POST("/batches/:id/replay", h.ReplayBatch)
	api.GET("/summaries", h.ListSummaries)
	if h.hub != nil {
		api.GET("/batches/:id/events", h.hub.HandleSSE)
	}
}

// RunRequest carries optional trial count and seed overrides
type RunRequest struct {
	Trials     *int    `json:"trials,omitempty"`
	MasterSeed *uint64 `json:"master_seed,omitempty"`
}

// ExperimentRequest runs a single ad-hoc experiment
type ExperimentRequest struct {
	RunRequest
	Experiment params.Experiment `json:"experiment"`
}

// BatchStartRequest starts an asynchronous batch from explicit experiments or a preset
type BatchStartRequest struct {
	RunRequest
	Preset      string              `json:"preset,omitempty"`
	Experiments []params.Experiment `json:"experiments,omitempty"`
}

func (h *Handler) batchRequest(run RunRequest, experiments []params.Experiment) app.BatchRequest {
	req := app.BatchRequest{
		Experiments: experiments,
		Trials:      h.defaults.Trials,
		MasterSeed:  h.defaults.MasterSeed,
	}
	if run.Trials != nil {
		req.Trials = *run.Trials
	}
	if run.MasterSeed != nil {
		req.MasterSeed = *run.MasterSeed
	}
	return req
}

// ListPresets returns every preset with its expanded experiments
func (h *Handler) ListPresets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"presets": h.presets.All()})
}

// GetPreset returns one preset and its experiments
func (h *Handler) GetPreset(c *gin.Context) {
	p, err := h.presets.Preset(c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	exps, err := p.Experiments()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"preset": p, "experiments": exps})
}

// RunPreset runs a preset synchronously; trials and seed may be given as query parameters
func (h *Handler) RunPreset(c *gin.Context) {
	exps, err := h.presets.Get(c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	run, err := queryOverrides(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	result, err := h.batches.Run(c.Request.Context(), h.batchRequest(run, exps))
	if err != nil && result == nil {
		h.fail(c, err)
		return
	}
	h.respondBatch(c, result, err)
}

// RunExperiment runs one experiment synchronously
func (h *Handler) RunExperiment(c *gin.Context) {
	var req ExperimentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return
	}
	result, err := h.batches.Run(c.Request.Context(), h.batchRequest(req.RunRequest, []params.Experiment{req.Experiment}))
	if err != nil && result == nil {
		h.fail(c, err)
		return
	}
	h.respondBatch(c, result, err)
}

// StartBatch validates the request, starts the batch in the background and returns its id.
// Progress is available at /api/batches/:id/events.
func (h *Handler) StartBatch(c *gin.Context) {
	var req BatchStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return
	}
	exps := req.Experiments
	if req.Preset != "" {
		presetExps, err := h.presets.Get(req.Preset)
		if err != nil {
			h.fail(c, err)
			return
		}
		exps = append(exps, presetExps...)
	}
	for _, e := range exps {
		if err := e.WithDefaults().Validate(); err != nil {
			h.fail(c, errors.WithCode(errors.CodeConfigInvalid, err))
			return
		}
	}

	batchReq := h.batchRequest(req.RunRequest, exps)
	if batchReq.Trials < 1 {
		h.fail(c, errors.WithCode(errors.CodeInvalidInput, app.ErrNoTrials))
		return
	}
	if len(exps) == 0 {
		h.fail(c, errors.InvalidInput("batch has no experiments"))
		return
	}
	batchReq.BatchID = core.NewBatchID()

	go func() {
		if _, err := h.batches.Run(h.baseCtx, batchReq); err != nil {
			h.logger.Error("batch %s failed: %v", batchReq.BatchID, err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"batch_id": batchReq.BatchID,
		"events":   "/api/batches/" + batchReq.BatchID.String() + "/events",
	})
}

// GetBatch returns the stored summaries of a batch
func (h *Handler) GetBatch(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	batchID, err := core.ParseBatchID(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	summaries, err := h.summaries.ListBatch(c.Request.Context(), batchID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batch_id": batchID, "summaries": summaries})
}

// ReplayBatch re-runs every stored summary of a batch and reports whether it reproduced
func (h *Handler) ReplayBatch(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	batchID, err := core.ParseBatchID(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	summaries, err := h.summaries.ListBatch(c.Request.Context(), batchID)
	if err != nil {
		h.fail(c, err)
		return
	}
	for _, s := range summaries {
		if _, err := h.batches.Replay(c.Request.Context(), s); err != nil {
			h.fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"batch_id": batchID, "reproduced": len(summaries)})
}

// ListSummaries returns recent stored summaries
func (h *Handler) ListSummaries(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		h.fail(c, errors.InvalidInput("limit must be a positive integer"))
		return
	}
	summaries, err := h.summaries.List(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summaries": summaries})
}

func (h *Handler) requireStore(c *gin.Context) bool {
	if h.summaries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "summary storage is not configured"})
		return false
	}
	return true
}

func (h *Handler) respondBatch(c *gin.Context, result *app.BatchResult, sinkErr error) {
	if sinkErr != nil {
		// the simulation succeeded; only recording failed
		c.JSON(http.StatusOK, gin.H{"result": result, "warning": sinkErr.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": errors.GetCode(err)})
}

// StatusFor maps domain and application errors to HTTP status codes
func StatusFor(err error) int {
	switch {
	case core.IsNotFoundError(err):
		return http.StatusNotFound
	case stderrors.Is(err, core.ErrNonDeterministic):
		return http.StatusConflict
	case stderrors.Is(err, params.ErrInvalidConfig), stderrors.Is(err, params.ErrUnknownTopology),
		stderrors.Is(err, app.ErrNoTrials), stderrors.Is(err, core.ErrInvalidBatchID):
		return http.StatusBadRequest
	case stderrors.Is(err, context.Canceled):
		return 499
	}
	switch errors.GetCode(err) {
	case errors.CodeConfigInvalid, errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeDatabaseError:
		return http.StatusServiceUnavailable
	case errors.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func queryOverrides(c *gin.Context) (RunRequest, error) {
	var run RunRequest
	if v := c.Query("trials"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return run, errors.InvalidInput("trials must be an integer")
		}
		run.Trials = &n
	}
	if v := c.Query("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return run, errors.InvalidInput("seed must be an unsigned integer")
		}
		run.MasterSeed = &seed
	}
	return run, nil
}

package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"capbudget/internal/repository"
	"capbudget/internal/service"
)

type OptimizationHandler struct {
	Repo         repository.Repository
	Orchestrator *service.Orchestrator
	Logger       *zap.Logger
}

func (h *OptimizationHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/optimizations")
	group.GET("", h.list)
	group.POST("", h.create)
	group.GET("/:id", h.get)
	group.DELETE("/:id", h.remove)
	group.POST("/:id/execute", h.execute)
	group.GET("/:id/status", h.status)
	group.POST("/:id/cancel", h.cancel)
	group.GET("/:id/logs", h.logs)
	group.GET("/:id/input-preview", h.inputPreview)
	group.GET("/:id/results", h.results)
}

type projectEntryRequest struct {
	Project string          `json:"project" binding:"required"`
	Period  int             `json:"period" binding:"required"`
	Amount  decimal.Decimal `json:"amount" binding:"required"`
}

type balanceEntryRequest struct {
	Period     int             `json:"period" binding:"required"`
	MinBalance decimal.Decimal `json:"min_balance" binding:"required"`
}

type groupEntryRequest struct {
	GroupID int    `json:"group_id" binding:"required"`
	Project string `json:"project" binding:"required"`
}

type createOptimizationRequest struct {
	Description       *string               `json:"description"`
	TotalPeriods      int                   `json:"total_periods" binding:"required"`
	DiscountRate      decimal.Decimal       `json:"discount_rate" binding:"required"`
	InitialBalance    decimal.Decimal       `json:"initial_balance" binding:"required"`
	NbMustTakeOne     int                   `json:"nb_must_take_one"`
	ProjectCosts      []projectEntryRequest `json:"project_costs"`
	ProjectRewards    []projectEntryRequest `json:"project_rewards"`
	MinBalances       []balanceEntryRequest `json:"min_balances"`
	MustTakeOneGroups []groupEntryRequest   `json:"must_take_one_groups"`
}

// @Summary List optimizations
// @Tags optimizations
// @Param status query string false "filter by status"
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/optimizations [get]
func (h *OptimizationHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListOptimizationsParams{
		OrderBy: strings.TrimSpace(c.Query("order_by")),
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		params.Status = &status
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		params.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil {
		params.Offset = offset
	}
	if ascRaw := strings.TrimSpace(c.Query("asc")); ascRaw != "" {
		asc := ascRaw == "1" || strings.EqualFold(ascRaw, "true")
		params.Asc = &asc
	}

	items, err := h.Repo.ListOptimizations(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountOptimizations(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"total": total})
}

// @Summary Create an optimization with its input rows
// @Tags optimizations
// @Accept json
// @Param request body createOptimizationRequest true "optimization definition"
// @Success 200 {object} apiResponse
// @Router /api/v1/optimizations [post]
func (h *OptimizationHandler) create(c *gin.Context) {
	if h.Orchestrator == nil {
		Error(c, http.StatusInternalServerError, "orchestrator unavailable", nil)
		return
	}
	var req createOptimizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	in := service.CreateInput{
		Description:    req.Description,
		TotalPeriods:   req.TotalPeriods,
		DiscountRate:   req.DiscountRate,
		InitialBalance: req.InitialBalance,
		NbMustTakeOne:  req.NbMustTakeOne,
	}
	for _, e := range req.ProjectCosts {
		in.ProjectCosts = append(in.ProjectCosts, service.ProjectEntry{Project: e.Project, Period: e.Period, Amount: e.Amount})
	}
	for _, e := range req.ProjectRewards {
		in.ProjectRewards = append(in.ProjectRewards, service.ProjectEntry{Project: e.Project, Period: e.Period, Amount: e.Amount})
	}
	for _, e := range req.MinBalances {
		in.BalanceConstraints = append(in.BalanceConstraints, service.BalanceEntry{Period: e.Period, MinBalance: e.MinBalance})
	}
	for _, e := range req.MustTakeOneGroups {
		in.MustTakeOneGroups = append(in.MustTakeOneGroups, service.GroupEntry{GroupID: e.GroupID, Project: e.Project})
	}

	opt, err := h.Orchestrator.Create(c.Request.Context(), in)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, opt, nil)
}

// @Summary Get one optimization
// @Tags optimizations
// @Param id path int true "optimization id"
// @Success 200 {object} apiResponse
// @Router /api/v1/optimizations/{id} [get]
func (h *OptimizationHandler) get(c *gin.Context) {
	id, ok := h.paramID(c)
	if !ok {
		return
	}
	opt, err := h.Orchestrator.Get(c.Request.Context(), id)
	if err != nil {
		h.orchestratorError(c, err)
		return
	}
	Ok(c, opt, nil)
}

func (h *OptimizationHandler) remove(c *gin.Context) {
	id, ok := h.paramID(c)
	if !ok {
		return
	}
	if _, err := h.Orchestrator.Get(c.Request.Context(), id); err != nil {
		h.orchestratorError(c, err)
		return
	}
	if err := h.Repo.DeleteOptimization(c.Request.Context(), id); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"deleted": id}, nil)
}

// @Summary Upload inputs and start a solver run
// @Tags optimizations
// @Param id path int true "optimization id"
// @Success 200 {object} apiResponse
// @Router /api/v1/optimizations/{id}/execute [post]
func (h *OptimizationHandler) execute(c *gin.Context) {
	id, ok := h.paramID(c)
	if !ok {
		return
	}
	outcome, err := h.Orchestrator.Submit(c.Request.Context(), id)
	if err != nil {
		h.orchestratorError(c, err)
		return
	}
	if len(outcome.ValidationErrors) > 0 {
		Error(c, http.StatusUnprocessableEntity, "input validation failed", map[string]any{
			"validation_errors": outcome.ValidationErrors,
		})
		return
	}
	Ok(c, outcome, nil)
}

// @Summary Poll the solver and apply any resulting transition
// @Tags optimizations
// @Param id path int true "optimization id"
// @Success 200 {object} apiResponse
// @Router /api/v1/optimizations/{id}/status [get]
func (h *OptimizationHandler) status(c *gin.Context) {
	id, ok := h.paramID(c)
	if !ok {
		return
	}
	outcome, err := h.Orchestrator.CheckStatus(c.Request.Context(), id)
	if err != nil {
		h.orchestratorError(c, err)
		return
	}
	Ok(c, outcome, nil)
}

func (h *OptimizationHandler) cancel(c *gin.Context) {
	id, ok := h.paramID(c)
	if !ok {
		return
	}
	if err := h.Orchestrator.Cancel(c.Request.Context(), id); err != nil {
		h.orchestratorError(c, err)
		return
	}
	Ok(c, gin.H{"cancelled": id}, nil)
}

func (h *OptimizationHandler) logs(c *gin.Context) {
	id, ok := h.paramID(c)
	if !ok {
		return
	}
	outcome, err := h.Orchestrator.Logs(c.Request.Context(), id)
	if err != nil {
		h.orchestratorError(c, err)
		return
	}
	Ok(c, outcome, nil)
}

// @Summary Preview the generated input CSVs without uploading them
// @Tags optimizations
// @Param id path int true "optimization id"
// @Success 200 {object} apiResponse
// @Router /api/v1/optimizations/{id}/input-preview [get]
func (h *OptimizationHandler) inputPreview(c *gin.Context) {
	id, ok := h.paramID(c)
	if !ok {
		return
	}
	files, err := h.Orchestrator.Preview(c.Request.Context(), id)
	if err != nil {
		h.orchestratorError(c, err)
		return
	}
	Ok(c, files, nil)
}

// @Summary Get ingested solver results
// @Tags optimizations
// @Param id path int true "optimization id"
// @Success 200 {object} apiResponse
// @Router /api/v1/optimizations/{id}/results [get]
func (h *OptimizationHandler) results(c *gin.Context) {
	id, ok := h.paramID(c)
	if !ok {
		return
	}
	opt, err := h.Orchestrator.Get(c.Request.Context(), id)
	if err != nil {
		h.orchestratorError(c, err)
		return
	}
	result, err := h.Repo.GetOptimizationResult(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if result == nil {
		Error(c, http.StatusNotFound, "no results ingested for this optimization", map[string]any{
			"status": opt.Status,
		})
		return
	}
	selected, err := h.Repo.ListSelectedProjects(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	balances, err := h.Repo.ListPeriodBalances(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	cashFlows, err := h.Repo.ListPeriodCashFlows(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{
		"summary":           result,
		"efficiency_rate":   result.EfficiencyRate(),
		"selected_projects": selected,
		"period_balances":   balances,
		"period_cash_flows": cashFlows,
	}, nil)
}

func (h *OptimizationHandler) paramID(c *gin.Context) (uint64, bool) {
	if h.Orchestrator == nil || h.Repo == nil {
		Error(c, http.StatusInternalServerError, "handler not wired", nil)
		return 0, false
	}
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return 0, false
	}
	return id, true
}

func (h *OptimizationHandler) orchestratorError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOptimizationNotFound):
		Error(c, http.StatusNotFound, "optimization not found", nil)
	case errors.Is(err, service.ErrNotRunning):
		Error(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, service.ErrNoRunHandle):
		Error(c, http.StatusConflict, err.Error(), nil)
	default:
		if h.Logger != nil {
			h.Logger.Warn("optimization request failed", zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
	}
}

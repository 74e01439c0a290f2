package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"advisory/internal/models"
	"advisory/internal/repository"
	"advisory/internal/service"
)

type AdvisorHandler struct {
	Repo      repository.Repository
	Plans     *service.PlanService
	Analytics *service.AnalyticsService
}

func (h *AdvisorHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/advisors")
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.GET("/:id/clients", h.clients)
	g.GET("/:id/notifications", h.notifications)
	g.GET("/:id/transactions", h.transactions)

	g.POST("/:id/plans", h.createPlan)
	g.GET("/:id/plans", h.listPlans)
	g.GET("/:id/plans/top", h.topPlans)
	g.PUT("/:id/plans/:plan_id", h.editPlan)
	g.POST("/:id/plans/:plan_id/toggle", h.togglePlan)

	g.GET("/:id/analytics/totals", h.totals)
	g.GET("/:id/analytics/distribution", h.distribution)
	g.GET("/:id/analytics/monthly-sold", h.monthlySold)
	g.GET("/:id/analytics/top-investors", h.topInvestors)
	g.GET("/:id/analytics/returns", h.returns)
}

type createAdvisorRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *AdvisorHandler) create(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req createAdvisorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		Error(c, http.StatusBadRequest, "name is required", nil)
		return
	}
	item := &models.Advisor{Name: name}
	if err := h.Repo.CreateAdvisor(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

func (h *AdvisorHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetAdvisorByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "advisor not found", nil)
		return
	}
	Ok(c, item, nil)
}

func (h *AdvisorHandler) clients(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	advisor, err := h.Repo.GetAdvisorByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if advisor == nil {
		Error(c, http.StatusNotFound, "advisor not found", nil)
		return
	}
	items, err := h.Repo.ListClientsByIDs(c.Request.Context(), advisor.ClientIDs)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *AdvisorHandler) notifications(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	items, err := h.Repo.ListNotificationsByRecipient(c.Request.Context(), id, limit)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *AdvisorHandler) transactions(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListTransactionsParams{
		Limit:     limit,
		Offset:    offset,
		AdvisorID: &id,
	}
	items, err := h.Repo.ListTransactions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountTransactions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

type createPlanRequest struct {
	PlanName  string               `json:"plan_name" binding:"required"`
	IsPremium bool                 `json:"is_premium"`
	Stocks    []models.HoldingEdit `json:"stocks" binding:"required"`
}

func (h *AdvisorHandler) createPlan(c *gin.Context) {
	if h.Plans == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	plan, err := h.Plans.Create(c.Request.Context(), id, req.PlanName, req.IsPremium, req.Stocks)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, plan, nil)
}

func (h *AdvisorHandler) listPlans(c *gin.Context) {
	if h.Plans == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	orderBy := parseOrder(c.Query("order_by"), map[string]string{
		"created_at": "created_at",
		"plan_name":  "plan_name",
	})
	params := repository.ListPlansParams{
		Limit:     intQuery(c, "limit", 50),
		Offset:    intQuery(c, "offset", 0),
		IsPremium: boolQueryPtr(c, "is_premium"),
		IsActive:  boolQueryPtr(c, "is_active"),
		OrderBy:   orderBy,
	}
	items, err := h.Plans.ListByAdvisor(c.Request.Context(), id, params)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, items, nil)
}

func (h *AdvisorHandler) topPlans(c *gin.Context) {
	if h.Plans == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	items, err := h.Plans.TopPlans(c.Request.Context(), id, intQuery(c, "limit", 6))
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, items, nil)
}

type editPlanRequest struct {
	Stocks []models.HoldingEdit `json:"stocks" binding:"required"`
}

func (h *AdvisorHandler) editPlan(c *gin.Context) {
	if h.Plans == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	planID := uint64Param(c, "plan_id")
	if id == 0 || planID == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req editPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	plan, err := h.Plans.EditBasket(c.Request.Context(), id, planID, req.Stocks)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, plan, nil)
}

func (h *AdvisorHandler) togglePlan(c *gin.Context) {
	if h.Plans == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	planID := uint64Param(c, "plan_id")
	if id == 0 || planID == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	plan, err := h.Plans.Toggle(c.Request.Context(), id, planID)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, plan, nil)
}

func (h *AdvisorHandler) totals(c *gin.Context) {
	if h.Analytics == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	out, err := h.Analytics.Totals(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, out, nil)
}

func (h *AdvisorHandler) distribution(c *gin.Context) {
	if h.Analytics == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	out, err := h.Analytics.Distribution(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, out, nil)
}

func (h *AdvisorHandler) monthlySold(c *gin.Context) {
	if h.Analytics == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	out, err := h.Analytics.MonthlySold(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, out, nil)
}

func (h *AdvisorHandler) topInvestors(c *gin.Context) {
	if h.Analytics == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	out, err := h.Analytics.TopInvestors(c.Request.Context(), id, c.Query("by"), intQuery(c, "limit", 10))
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, out, nil)
}

func (h *AdvisorHandler) returns(c *gin.Context) {
	if h.Analytics == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	out, err := h.Analytics.AdvisorReturns(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, out, nil)
}

package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"advisory/internal/ledger"
	"advisory/internal/models"
	"advisory/internal/repository"
	"advisory/internal/service"
)

type ClientHandler struct {
	Repo      repository.Repository
	Subs      *ledger.SubscriptionLedger
	Invest    *ledger.InvestmentLedger
	Plans     *service.PlanService
	Analytics *service.AnalyticsService
}

func (h *ClientHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/clients")
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.GET("/:id/plans", h.browsePlans)
	g.POST("/:id/subscriptions", h.subscribe)
	g.GET("/:id/subscriptions", h.subscriptions)
	g.POST("/:id/investments", h.invest)
	g.GET("/:id/portfolio", h.portfolio)
	g.GET("/:id/transactions", h.transactions)
	g.GET("/:id/notifications", h.notifications)
}

type createClientRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *ClientHandler) create(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req createClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		Error(c, http.StatusBadRequest, "name is required", nil)
		return
	}
	item := &models.Client{Name: name}
	if err := h.Repo.CreateClient(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

func (h *ClientHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetClientByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "client not found", nil)
		return
	}
	Ok(c, item, nil)
}

func (h *ClientHandler) browsePlans(c *gin.Context) {
	if h.Plans == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	params := repository.ListPlansParams{
		Limit:     intQuery(c, "limit", 50),
		Offset:    intQuery(c, "offset", 0),
		IsPremium: boolQueryPtr(c, "is_premium"),
	}
	items, err := h.Plans.Browse(c.Request.Context(), id, params)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, items, nil)
}

type subscribeRequest struct {
	PlanID       uint64 `json:"plan_id" binding:"required"`
	DurationDays int    `json:"duration_days" binding:"required"`
}

func (h *ClientHandler) subscribe(c *gin.Context) {
	if h.Subs == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	result, err := h.Subs.Subscribe(c.Request.Context(), id, req.PlanID, req.DurationDays)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, result, nil)
}

// subscriptions prunes expired entries and returns the plans the
// client still actively subscribes to.
func (h *ClientHandler) subscriptions(c *gin.Context) {
	if h.Subs == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	plans, err := h.Subs.PruneExpired(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, plans, nil)
}

type investRequest struct {
	PlanID    uint64          `json:"plan_id" binding:"required"`
	AdvisorID uint64          `json:"advisor_id" binding:"required"`
	Price     decimal.Decimal `json:"price" binding:"required"`
	Qty       decimal.Decimal `json:"qty" binding:"required"`
}

func (h *ClientHandler) invest(c *gin.Context) {
	if h.Invest == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req investRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	tx, err := h.Invest.Invest(c.Request.Context(), id, req.PlanID, req.AdvisorID, req.Price, req.Qty)
	if err != nil {
		fail(c, err)
		return
	}
	if h.Analytics != nil {
		h.Analytics.Invalidate(c.Request.Context(), req.AdvisorID, id)
	}
	Ok(c, tx, nil)
}

func (h *ClientHandler) portfolio(c *gin.Context) {
	if h.Analytics == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	out, err := h.Analytics.ClientPortfolio(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, out, nil)
}

func (h *ClientHandler) transactions(c *gin.Context) {
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
		Limit:    limit,
		Offset:   offset,
		ClientID: &id,
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

func (h *ClientHandler) notifications(c *gin.Context) {
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

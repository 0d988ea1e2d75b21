package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"rewards-controlplane/pkg/config"
	"rewards-controlplane/pkg/db/pagination"
	"rewards-controlplane/pkg/errutil"
	"rewards-controlplane/pkg/health"
	"rewards-controlplane/pkg/middleware"
	"rewards-controlplane/pkg/ratelimit"
	"rewards-controlplane/services/event"
	"rewards-controlplane/services/ledger"
	"rewards-controlplane/services/member"
	"rewards-controlplane/services/promotion"
)

var Module = fx.Module("httpapi",
	fx.Provide(ProvideEngine, NewHandler),
	fx.Invoke(RegisterRoutes),
)

func ProvideEngine(cfg *config.Config) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.Error(),
		middleware.Channel(),
	)
	return engine
}

type Handler struct {
	ledger     *ledger.Service
	members    *member.Service
	promotions *promotion.Service
	events     *event.Service
	limiter    ratelimit.Limiter
}

type HandlerParams struct {
	fx.In

	Ledger     *ledger.Service
	Members    *member.Service
	Promotions *promotion.Service
	Events     *event.Service
	Limiter    ratelimit.Limiter
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		ledger:     p.Ledger,
		members:    p.Members,
		promotions: p.Promotions,
		events:     p.Events,
		limiter:    p.Limiter,
	}
}

func RegisterRoutes(engine *gin.Engine, h *Handler, hc health.HealthService) {
	engine.GET("/healthz", hc.Liveness)
	engine.GET("/readyz", hc.Readiness)

	v1 := engine.Group("/v1", middleware.RateLimit(h.limiter))

	v1.POST("/members", h.createMember)
	v1.GET("/members", h.listMembers)
	v1.GET("/members/:id", h.getMember)
	v1.PUT("/members/:id/verified", h.setMemberVerified)
	v1.PUT("/members/:id/suspicious", h.setMemberSuspicious)
	v1.PUT("/members/:id/role", h.setMemberRole)
	v1.GET("/members/:id/balance", h.getBalance)

	v1.POST("/promotions", h.createPromotion)
	v1.GET("/promotions", h.listPromotions)
	v1.GET("/promotions/:id", h.getPromotion)
	v1.POST("/promotions/:id/assign", h.assignPromotion)

	v1.POST("/events", h.createEvent)
	v1.GET("/events", h.listEvents)
	v1.GET("/events/:id", h.getEvent)
	v1.GET("/events/:id/guests", h.listGuests)
	v1.POST("/events/:id/guests", h.addGuest)
	v1.DELETE("/events/:id/guests/:member_id", h.removeGuest)
	v1.POST("/events/:id/rewards", h.awardEventPoints)

	v1.POST("/purchases", h.recordPurchase)
	v1.POST("/adjustments", h.recordAdjustment)
	v1.POST("/transfers", h.transfer)
	v1.POST("/redemptions", h.requestRedemption)
	v1.POST("/redemptions/:id/process", h.processRedemption)
	v1.GET("/transactions", h.listTransactions)
	v1.GET("/transactions/:id", h.getTransaction)
	v1.PUT("/transactions/:id/suspicious", h.setTransactionSuspicious)
}

func (h *Handler) createMember(c *gin.Context) {
	var req member.CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	m, err := h.members.CreateMember(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) listMembers(c *gin.Context) {
	var p pagination.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		_ = c.Error(errutil.BadRequest("invalid pagination", errutil.WithErr(err)))
		return
	}

	list, err := h.members.ListMembers(c.Request.Context(), p)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": list})
}

func (h *Handler) getMember(c *gin.Context) {
	m, err := h.members.GetMember(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, m)
}

type flagRequest struct {
	Value bool `json:"value"`
}

func (h *Handler) setMemberVerified(c *gin.Context) {
	var req flagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	m, err := h.members.SetVerified(c.Request.Context(), c.Param("id"), req.Value)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) setMemberSuspicious(c *gin.Context) {
	var req flagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	m, err := h.members.SetSuspicious(c.Request.Context(), c.Param("id"), req.Value)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) setMemberRole(c *gin.Context) {
	var req struct {
		Role member.Role `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	m, err := h.members.SetRole(c.Request.Context(), c.Param("id"), req.Role)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) getBalance(c *gin.Context) {
	b, err := h.ledger.GetBalance(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) createPromotion(c *gin.Context) {
	var req promotion.CreatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	p, err := h.promotions.CreatePromotion(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) listPromotions(c *gin.Context) {
	var p pagination.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		_ = c.Error(errutil.BadRequest("invalid pagination", errutil.WithErr(err)))
		return
	}

	list, err := h.promotions.ListPromotions(c.Request.Context(), p)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"promotions": list})
}

func (h *Handler) getPromotion(c *gin.Context) {
	p, err := h.promotions.GetPromotion(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) assignPromotion(c *gin.Context) {
	var req struct {
		MemberID string `json:"member_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	u, err := h.promotions.Assign(c.Request.Context(), c.Param("id"), req.MemberID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *Handler) createEvent(c *gin.Context) {
	var req event.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	e, err := h.events.CreateEvent(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *Handler) listEvents(c *gin.Context) {
	var p pagination.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		_ = c.Error(errutil.BadRequest("invalid pagination", errutil.WithErr(err)))
		return
	}

	list, err := h.events.ListEvents(c.Request.Context(), p)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": list})
}

func (h *Handler) getEvent(c *gin.Context) {
	e, err := h.events.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) listGuests(c *gin.Context) {
	guests, err := h.events.ListGuests(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guests": guests})
}

func (h *Handler) addGuest(c *gin.Context) {
	var req struct {
		MemberID string `json:"member_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	g, err := h.events.AddGuest(c.Request.Context(), c.Param("id"), req.MemberID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (h *Handler) removeGuest(c *gin.Context) {
	if err := h.events.RemoveGuest(c.Request.Context(), c.Param("id"), c.Param("member_id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) awardEventPoints(c *gin.Context) {
	var req ledger.AwardEventPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}
	req.EventID = c.Param("id")

	records, err := h.ledger.AwardEventPoints(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transactions": records})
}

func (h *Handler) recordPurchase(c *gin.Context) {
	var req ledger.RecordPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	trx, err := h.ledger.RecordPurchase(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, trx)
}

func (h *Handler) recordAdjustment(c *gin.Context) {
	var req ledger.RecordAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	trx, err := h.ledger.RecordAdjustment(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, trx)
}

func (h *Handler) transfer(c *gin.Context) {
	var req ledger.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	debit, credit, err := h.ledger.Transfer(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"debit": debit, "credit": credit})
}

func (h *Handler) requestRedemption(c *gin.Context) {
	var req ledger.RequestRedemptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	trx, err := h.ledger.RequestRedemption(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, trx)
}

func (h *Handler) processRedemption(c *gin.Context) {
	var req struct {
		CashierID string `json:"cashier_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	trx, err := h.ledger.ProcessRedemption(c.Request.Context(), c.Param("id"), req.CashierID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, trx)
}

func (h *Handler) listTransactions(c *gin.Context) {
	var p pagination.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		_ = c.Error(errutil.BadRequest("invalid pagination", errutil.WithErr(err)))
		return
	}

	list, err := h.ledger.ListTransactions(c.Request.Context(), c.Query("member_id"), p)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": list})
}

func (h *Handler) getTransaction(c *gin.Context) {
	trx, err := h.ledger.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, trx)
}

func (h *Handler) setTransactionSuspicious(c *gin.Context) {
	var req struct {
		Suspicious *bool `json:"suspicious" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	trx, err := h.ledger.SetSuspicious(c.Request.Context(), c.Param("id"), *req.Suspicious)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, trx)
}

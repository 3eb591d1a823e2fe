package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/procuretrust/tender-gateway/internal/auth"
	"github.com/procuretrust/tender-gateway/internal/config"
	"github.com/procuretrust/tender-gateway/internal/http/middleware"
	"github.com/procuretrust/tender-gateway/internal/service"
)

type Handler struct {
	tenders *service.TenderService
	queries *service.QueryService
	seeder  *service.SeedService
	users   *auth.Directory
	issuer  *auth.Issuer
	fabric  config.FabricConfig
	log     zerolog.Logger
}

func NewHandler(
	tenders *service.TenderService,
	queries *service.QueryService,
	seeder *service.SeedService,
	users *auth.Directory,
	issuer *auth.Issuer,
	fabric config.FabricConfig,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		tenders: tenders,
		queries: queries,
		seeder:  seeder,
		users:   users,
		issuer:  issuer,
		fabric:  fabric,
		log:     log,
	}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	router.POST("/auth/login", h.login)

	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.POST("/admin/seed", h.seed)

	protected.POST("/rfq", h.createTender)
	protected.GET("/tenders", h.tendersByStatus)
	protected.GET("/tenders/:id", h.getTender)
	protected.GET("/tenders/:id/history", h.tenderHistory)
	protected.POST("/tenders/:id/publish", h.publishTender)

	protected.POST("/tenders/:id/bids", h.submitBid)
	protected.GET("/tenders/:id/bids", h.listBids)
	protected.POST("/tenders/:id/close", h.closeTender)
	protected.POST("/tenders/:id/evaluate", h.evaluateBids)
	protected.POST("/tenders/:id/award", h.awardBestBid)

	protected.POST("/tenders/:id/milestones", h.submitMilestone)
	protected.GET("/tenders/:id/milestones", h.listMilestones)
	protected.POST("/tenders/:id/milestones/:mid/approve", h.approveMilestone)
	protected.POST("/tenders/:id/milestones/:mid/reject", h.rejectMilestone)
	protected.POST("/tenders/:id/milestones/:mid/partial", h.recordPartialPayment)
	protected.POST("/tenders/:id/retention/release", h.releaseRetention)

	protected.GET("/tenders/:id/stats", h.tenderStatistics)
	protected.GET("/tenders/:id/financial-summary", h.financialSummary)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	principal, err := h.users.Authenticate(req.Username, req.Password)
	if err != nil {
		fail(c, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := h.issuer.Issue(principal)
	if err != nil {
		h.log.Error().Err(err).Msg("token issue failed")
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	ok(c, gin.H{"token": token, "role": principal.Role, "username": principal.Username})
}

func (h *Handler) seed(c *gin.Context) {
	principal, found := middleware.MustPrincipal(c)
	if !found {
		fail(c, http.StatusUnauthorized, "missing principal")
		return
	}
	org, err := h.resolveOrg(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	results, err := h.seeder.Seed(c.Request.Context(), principal, org)
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, gin.H{"created": results})
}

func (h *Handler) createTender(c *gin.Context) {
	principal, found := middleware.MustPrincipal(c)
	if !found {
		fail(c, http.StatusUnauthorized, "missing principal")
		return
	}
	org, err := h.resolveOrg(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	rfq, err := io.ReadAll(c.Request.Body)
	if err != nil || len(rfq) == 0 {
		fail(c, http.StatusBadRequest, "rfq body is required")
		return
	}
	tenderID, err := h.tenders.CreateTender(c.Request.Context(), principal, org, rfq)
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, gin.H{"tenderId": tenderID})
}

func (h *Handler) tendersByStatus(c *gin.Context) {
	principal, found := middleware.MustPrincipal(c)
	if !found {
		fail(c, http.StatusUnauthorized, "missing principal")
		return
	}
	org, err := h.resolveOrg(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	raw, err := h.queries.TendersByStatus(c.Request.Context(), principal, org, c.Query("status"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, raw)
}

func (h *Handler) getTender(c *gin.Context) {
	principal, found := middleware.MustPrincipal(c)
	if !found {
		fail(c, http.StatusUnauthorized, "missing principal")
		return
	}
	org, err := h.resolveOrg(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	raw, err := h.queries.GetTender(c.Request.Context(), principal, org, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, raw)
}

func (h *Handler) tenderHistory(c *gin.Context) {
	principal, found := middleware.MustPrincipal(c)
	if !found {
		fail(c, http.StatusUnauthorized, "missing principal")
		return
	}
	org, err := h.resolveOrg(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	raw, err := h.queries.TenderHistory(c.Request.Context(), principal, org, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, raw)
}

func (h *Handler) publishTender(c *gin.Context) {
	h.lifecycle(c, func(ctx *gin.Context, org string) error {
		principal, _ := middleware.MustPrincipal(ctx)
		return h.tenders.PublishTender(ctx.Request.Context(), principal, org, ctx.Param("id"))
	})
}

type submitBidRequest struct {
	Bid json.RawMessage `json:"bid"`
}

func (h *Handler) submitBid(c *gin.Context) {
	principal, found := middleware.MustPrincipal(c)
	if !found {
		fail(c, http.StatusUnauthorized, "missing principal")
		return
	}
	org, err := h.resolveOrg(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	var req submitBidRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Bid) == 0 {
		fail(c, http.StatusBadRequest, "bid is required")
		return
	}
	bidID, err := h.tenders.SubmitBid(c.Request.Context(), principal, org, c.Param("id"), req.Bid)
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, gin.H{"bidId": bidID})
}

func (h *Handler) listBids(c *gin.Context) {
	principal, found := middleware.MustPrincipal(c)
	if !found {
		fail(c, http.StatusUnauthorized, "missing principal")
		return
	}
	org, err := h.resolveOrg(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	refs, err := h.queries.ListBidsPublic(c.Request.Context(), principal, org, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, refs)
}

func (h *Handler) closeTender(c *gin.Context) {
	h.lifecycle(c, func(ctx *gin.Context, org string) error {
		principal, _ := middleware.MustPrincipal(ctx)
		return h.tenders.CloseTender(ctx.Request.Context(), principal, org, ctx.Param("id"))
	})
}

func (h *Handler) evaluateBids(c *gin.Context) {
	h.lifecycle(c, func(ctx *gin.Context, org string) error {
		principal, _ := middleware.MustPrincipal(ctx)
		return h.tenders.EvaluateBids(ctx.Request.Context(), principal, org, ctx.Param("id"))
	})
}

func (h *Handler) awardBestBid(c *gin.Context) {
	h.lifecycle(c, func(ctx *gin.Context, org string) error {
		principal, _ := middleware.MustPrincipal(ctx)
		return h.tenders.AwardBestBid(ctx.Request.Context(), principal, org, ctx.Param("id"))
	})
}

type submitMilestoneRequest struct {
	Milestone json.RawMessage `json:"milestone"`
}

func (h *Handler) submitMilestone(c *gin.Context) {
	principal, found := middleware.MustPrincipal(c)
	if !found {
		fail(c, http.StatusUnauthorized, "missing principal")
		return
	}
	org, err := h.resolveOrg(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	var req submitMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Milestone) == 0 {
		fail(c, http.StatusBadRequest, "milestone is required")
		return
	}
	milestoneID, err := h.tenders.SubmitMilestone(c.Request.Context(), principal, org, c.Param("id"), req.Milestone)
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, gin.H{"milestoneId": milestoneID})
}

func (h *Handler) listMilestones(c *gin.Context) {
	principal, found := middleware.MustPrincipal(c)
	if !found {
		fail(c, http.StatusUnauthorized, "missing principal")
		return
	}
	org, err := h.resolveOrg(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	refs, err := h.queries.ListMilestonesPublic(c.Request.Context(), principal, org, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, refs)
}

func (h *Handler) approveMilestone(c *gin.Context) {
	h.lifecycle(c, func(ctx *gin.Context, org string) error {
		principal, _ := middleware.MustPrincipal(ctx)
		return h.tenders.ApproveMilestone(ctx.Request.Context(), principal, org, ctx.Param("id"), ctx.Param("mid"))
	})
}

type rejectMilestoneRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) rejectMilestone(c *gin.Context) {
	var req rejectMilestoneRequest
	_ = c.ShouldBindJSON(&req)
	h.lifecycle(c, func(ctx *gin.Context, org string) error {
		principal, _ := middleware.MustPrincipal(ctx)
		return h.tenders.RejectMilestone(ctx.Request.Context(), principal, org, ctx.Param("id"), ctx.Param("mid"), req.Reason)
	})
}

type partialPaymentRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

func (h *Handler) recordPartialPayment(c *gin.Context) {
	principal, found := middleware.MustPrincipal(c)
	if !found {
		fail(c, http.StatusUnauthorized, "missing principal")
		return
	}
	org, err := h.resolveOrg(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	var req partialPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "amount is required")
		return
	}
	err = h.tenders.RecordPartialPayment(c.Request.Context(), principal, org, c.Param("id"), c.Param("mid"), req.Amount)
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, gin.H{})
}

func (h *Handler) releaseRetention(c *gin.Context) {
	h.lifecycle(c, func(ctx *gin.Context, org string) error {
		principal, _ := middleware.MustPrincipal(ctx)
		return h.tenders.ReleaseRetention(ctx.Request.Context(), principal, org, ctx.Param("id"))
	})
}

func (h *Handler) tenderStatistics(c *gin.Context) {
	principal, found := middleware.MustPrincipal(c)
	if !found {
		fail(c, http.StatusUnauthorized, "missing principal")
		return
	}
	org, err := h.resolveOrg(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	raw, err := h.queries.TenderStatistics(c.Request.Context(), principal, org, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, raw)
}

func (h *Handler) financialSummary(c *gin.Context) {
	principal, found := middleware.MustPrincipal(c)
	if !found {
		fail(c, http.StatusUnauthorized, "missing principal")
		return
	}
	org, err := h.resolveOrg(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	summary, err := h.queries.FinancialSummary(c.Request.Context(), principal, org, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, summary)
}

// lifecycle wraps the no-body transition endpoints: resolve principal and
// org, run the operation, answer with the empty envelope.
func (h *Handler) lifecycle(c *gin.Context, op func(c *gin.Context, org string) error) {
	if _, found := middleware.MustPrincipal(c); !found {
		fail(c, http.StatusUnauthorized, "missing principal")
		return
	}
	org, err := h.resolveOrg(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if err := op(c, org); err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, gin.H{})
}

// resolveOrg selects the organization whose identity backs this request.
func (h *Handler) resolveOrg(c *gin.Context) (string, error) {
	org := c.GetHeader("x-org")
	if org == "" {
		return h.fabric.DefaultOrg, nil
	}
	if _, found := h.fabric.Orgs[org]; !found {
		return "", service.ErrInvalidInput
	}
	return org, nil
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAuthentication):
		fail(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrPermissionDenied):
		fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrTimeout):
		fail(c, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrConnection),
		errors.Is(err, service.ErrLedger):
		fail(c, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("request failed")
		fail(c, http.StatusInternalServerError, "internal error")
	}
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

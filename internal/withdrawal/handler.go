package withdrawal

import (
	"net/http"
	"strconv"

	"github.com/TheAakashSingh/adplaymart-sub001/internal/api"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/auth"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/ledger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type StatusRequest struct {
	Note string `json:"note" binding:"max=500"`
}

type RejectRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// Create godoc
// @Summary      Request withdrawal
// @Description  Reserves the gross amount from the withdrawal wallet; TDS is withheld from the payout.
// @Tags         withdrawals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      Request  true  "Amount and bank details"
// @Success      201      {object}  ledger.Withdrawal
// @Failure      400      {object}  api.ErrorResponse
// @Failure      401      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /withdrawals [post]
func (h *Handler) Create(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Unauthorized(c)
		return
	}

	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindFailed(c, err)
		return
	}

	w, err := h.service.Request(c.Request.Context(), userID, req.Amount, req.BankDetails)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, w)
}

// @Summary      My withdrawals
// @Tags         withdrawals
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} ledger.Withdrawal
// @Router       /withdrawals [get]
func (h *Handler) List(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Unauthorized(c)
		return
	}

	ws, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		api.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ws)
}

// ListByStatus godoc
// @Summary      Withdrawal queue
// @Description  Admin view of withdrawal requests in one status, oldest first.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        status  query  string  false  "Status"  default(pending)
// @Param        limit   query  int     false  "Page size"  default(50)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200 {array} ledger.Withdrawal
// @Failure      400 {object} api.ErrorResponse
// @Router       /admin/withdrawals [get]
func (h *Handler) ListByStatus(c *gin.Context) {
	status := ledger.WithdrawalStatus(c.DefaultQuery("status", string(ledger.WithdrawalPending)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	ws, err := h.service.ListByStatus(c.Request.Context(), status, limit, offset)
	if err != nil {
		api.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ws)
}

func withdrawalID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		api.BadRequest(c, "invalid withdrawal id")
		return 0, false
	}
	return id, true
}

// @Summary      Approve withdrawal
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  int            true   "Withdrawal ID"
// @Param        request  body  StatusRequest  false  "Note"
// @Success      200 {object} ledger.Withdrawal
// @Failure      409 {object} api.ErrorResponse
// @Router       /admin/withdrawals/{id}/approve [post]
func (h *Handler) Approve(c *gin.Context) {
	id, ok := withdrawalID(c)
	if !ok {
		return
	}

	var req StatusRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			api.BindFailed(c, err)
			return
		}
	}

	w, err := h.service.Approve(c.Request.Context(), id, req.Note)
	if err != nil {
		api.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// @Summary      Mark withdrawal paid
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  int            true   "Withdrawal ID"
// @Param        request  body  StatusRequest  false  "Payout reference"
// @Success      200 {object} ledger.Withdrawal
// @Failure      409 {object} api.ErrorResponse
// @Router       /admin/withdrawals/{id}/process [post]
func (h *Handler) Process(c *gin.Context) {
	id, ok := withdrawalID(c)
	if !ok {
		return
	}

	var req StatusRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			api.BindFailed(c, err)
			return
		}
	}

	w, err := h.service.MarkProcessed(c.Request.Context(), id, req.Note)
	if err != nil {
		api.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// @Summary      Reject withdrawal
// @Description  Rejects the request and refunds the gross amount to the withdrawal wallet.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  int            true  "Withdrawal ID"
// @Param        request  body  RejectRequest  true  "Reason"
// @Success      200 {object} ledger.Withdrawal
// @Failure      400 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /admin/withdrawals/{id}/reject [post]
func (h *Handler) Reject(c *gin.Context) {
	id, ok := withdrawalID(c)
	if !ok {
		return
	}

	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindFailed(c, err)
		return
	}

	w, err := h.service.Reject(c.Request.Context(), id, req.Reason)
	if err != nil {
		api.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

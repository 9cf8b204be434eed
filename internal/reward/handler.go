package reward

import (
	"net/http"

	"github.com/TheAakashSingh/adplaymart-sub001/internal/api"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	processor *Processor
}

func NewHandler(p *Processor) *Handler {
	return &Handler{processor: p}
}

// Claim godoc
// @Summary      Claim activity reward
// @Description  Credits the reward for one completed activity, subject to package validity and daily caps.
// @Tags         rewards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      ClaimRequest  true  "Activity"
// @Success      200      {object}  ClaimResult
// @Failure      400      {object}  api.ErrorResponse
// @Failure      401      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /rewards/claim [post]
func (h *Handler) Claim(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Unauthorized(c)
		return
	}

	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindFailed(c, err)
		return
	}
	req.UserID = userID

	res, err := h.processor.Claim(c.Request.Context(), req)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// @Summary      Today's quotas
// @Tags         rewards
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} Quota
// @Router       /rewards/quotas [get]
func (h *Handler) Quotas(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Unauthorized(c)
		return
	}

	q, err := h.processor.Quotas(c.Request.Context(), userID)
	if err != nil {
		api.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// @Summary      Activity counters
// @Tags         rewards
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} ledger.ActivityCounter
// @Router       /rewards/counters [get]
func (h *Handler) Counters(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Unauthorized(c)
		return
	}

	counters, err := h.processor.Counters(c.Request.Context(), userID)
	if err != nil {
		api.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, counters)
}

package plan

import (
	"net/http"
	"strconv"

	"github.com/TheAakashSingh/adplaymart-sub001/internal/api"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service  Service
	checkout *Checkout
}

func NewHandler(service Service, checkout *Checkout) *Handler {
	return &Handler{service: service, checkout: checkout}
}

type ActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func packageID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("packageID"), 10, 64)
	if err != nil || id <= 0 {
		api.BadRequest(c, "invalid package id")
		return 0, false
	}
	return id, true
}

// @Summary      Package catalog
// @Tags         packages
// @Produce      json
// @Success      200 {array} Package
// @Router       /packages [get]
func (h *Handler) List(c *gin.Context) {
	pkgs, err := h.service.List(c.Request.Context())
	if err != nil {
		api.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pkgs)
}

// StartCheckout godoc
// @Summary      Start checkout
// @Description  Freezes the package price and level schedule for a short time and returns a checkout token.
// @Tags         packages
// @Produce      json
// @Security     BearerAuth
// @Param        packageID  path  int  true  "Package ID"
// @Success      201 {object} Intent
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /packages/{packageID}/checkout [post]
func (h *Handler) StartCheckout(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Unauthorized(c)
		return
	}
	id, ok := packageID(c)
	if !ok {
		return
	}

	intent, err := h.checkout.Start(c.Request.Context(), userID, id)
	if err != nil {
		api.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, intent)
}

// ConfirmCheckout godoc
// @Summary      Confirm checkout
// @Description  Pays for the package from the upgrade wallet, activates it and pays level income. Gateway payments are refused here; they are settled by an admin.
// @Tags         packages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        token    path  string          true  "Checkout token"
// @Param        request  body  ConfirmRequest  true  "Payment"
// @Success      200 {object} Purchase
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /checkout/{token}/confirm [post]
func (h *Handler) ConfirmCheckout(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Unauthorized(c)
		return
	}

	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindFailed(c, err)
		return
	}

	p, err := h.checkout.Confirm(c.Request.Context(), userID, c.Param("token"), req)
	if err != nil {
		api.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// SettleCheckout godoc
// @Summary      Settle gateway checkout
// @Description  Records a checkout paid through the payment gateway, activates the package and pays level income. Each gateway reference can be settled once.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        token    path  string         true  "Checkout token"
// @Param        request  body  SettleRequest  true  "Gateway reference"
// @Success      200 {object} Purchase
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /admin/checkout/{token}/settle [post]
func (h *Handler) SettleCheckout(c *gin.Context) {
	var req SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindFailed(c, err)
		return
	}

	p, err := h.checkout.Settle(c.Request.Context(), c.Param("token"), req.GatewayReference)
	if err != nil {
		api.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary      Create package
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body  CreatePackageRequest  true  "Package"
// @Success      201 {object} Package
// @Failure      400 {object} api.ErrorResponse
// @Router       /admin/packages [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindFailed(c, err)
		return
	}

	p, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		api.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// @Summary      Enable or withdraw a package from sale
// @Tags         admin
// @Accept       json
// @Security     BearerAuth
// @Param        packageID  path  int            true  "Package ID"
// @Param        request    body  ActiveRequest  true  "Active flag"
// @Success      204
// @Failure      404 {object} api.ErrorResponse
// @Router       /admin/packages/{packageID} [patch]
func (h *Handler) SetActive(c *gin.Context) {
	id, ok := packageID(c)
	if !ok {
		return
	}
	var req ActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindFailed(c, err)
		return
	}

	if err := h.service.SetActive(c.Request.Context(), id, *req.Active); err != nil {
		api.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

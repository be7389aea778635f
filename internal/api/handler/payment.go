package handler

import (
	"net/http"

	"parking_facility/internal/api/middleware"
	"parking_facility/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	paymentService *service.PaymentService
}

func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// GET /payments
func (h *PaymentHandler) GetMyPayments(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	payments, err := h.paymentService.ListForUser(c.Request.Context(), actor.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

// GET /payments/:id
func (h *PaymentHandler) GetPaymentByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	payment, err := h.paymentService.GetByID(c.Request.Context(), middleware.ActorFromContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// POST /payments/:id/pay
func (h *PaymentHandler) Pay(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	payment, err := h.paymentService.Pay(c.Request.Context(), middleware.ActorFromContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// POST /payments/:id/refund
func (h *PaymentHandler) RequestRefund(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	payment, err := h.paymentService.RequestRefund(c.Request.Context(), middleware.ActorFromContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

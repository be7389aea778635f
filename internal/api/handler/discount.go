package handler

import (
	"net/http"

	"parking_facility/internal/domain"
	"parking_facility/internal/service"

	"github.com/gin-gonic/gin"
)

type DiscountHandler struct {
	discountService *service.DiscountService
}

func NewDiscountHandler(discountService *service.DiscountService) *DiscountHandler {
	return &DiscountHandler{discountService: discountService}
}

// POST /discounts
func (h *DiscountHandler) CreateDiscount(c *gin.Context) {
	var dto domain.DiscountDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d, err := h.discountService.Create(c.Request.Context(), dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// GET /discounts
func (h *DiscountHandler) GetAllDiscounts(c *gin.Context) {
	discounts, err := h.discountService.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, discounts)
}

// GET /discounts/:code
func (h *DiscountHandler) GetDiscountByCode(c *gin.Context) {
	d, err := h.discountService.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// PUT /discounts/:code
func (h *DiscountHandler) UpdateDiscount(c *gin.Context) {
	var dto domain.DiscountDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d, err := h.discountService.Update(c.Request.Context(), c.Param("code"), dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// DELETE /discounts/:code
func (h *DiscountHandler) DeleteDiscount(c *gin.Context) {
	if err := h.discountService.Delete(c.Request.Context(), c.Param("code")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

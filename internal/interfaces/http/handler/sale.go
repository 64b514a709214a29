package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pos/backend/internal/application/sales"
	"github.com/pos/backend/internal/infrastructure/logger"
)

// SaleHandler exposes the sale mutation orchestrator over HTTP
type SaleHandler struct {
	BaseHandler
	service *sales.Service
}

// NewSaleHandler creates a SaleHandler
func NewSaleHandler(service *sales.Service) *SaleHandler {
	return &SaleHandler{service: service}
}

// Create handles POST /api/v1/transactions
func (h *SaleHandler) Create(c *gin.Context) {
	var req sales.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	c.Set(logger.GinTransactionIDKey, resp.ID.String())
	h.Created(c, resp)
}

// Repay handles POST /api/v1/repayments
func (h *SaleHandler) Repay(c *gin.Context) {
	var req sales.RepayInstallmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.RepayInstallment(c.Request.Context(), req)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete handles DELETE /api/v1/transactions/:id.
// The privileged flag comes from the authenticating gateway upstream.
func (h *SaleHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transaction ID")
		return
	}
	privileged := c.GetHeader("X-Privileged-Role") != ""
	c.Set(logger.GinTransactionIDKey, id.String())

	ctx := logger.WithTransactionID(c.Request.Context(), id.String())
	if err := h.service.Delete(ctx, id, privileged); err != nil {
		h.DomainError(c, err)
		return
	}
	h.NoContent(c)
}

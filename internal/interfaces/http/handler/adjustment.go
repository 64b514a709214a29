package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/pos/backend/internal/application/adjustment"
	"github.com/pos/backend/internal/infrastructure/logger"
)

// AdjustmentHandler exposes post-sale product actions over HTTP
type AdjustmentHandler struct {
	BaseHandler
	service *adjustment.Service
}

// NewAdjustmentHandler creates an AdjustmentHandler
func NewAdjustmentHandler(service *adjustment.Service) *AdjustmentHandler {
	return &AdjustmentHandler{service: service}
}

// Apply handles POST /api/v1/adjustments
func (h *AdjustmentHandler) Apply(c *gin.Context) {
	var req adjustment.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	if req.TransactionID != nil {
		ctx = logger.WithTransactionID(ctx, req.TransactionID.String())
		c.Set(logger.GinTransactionIDKey, req.TransactionID.String())
	}

	resp, err := h.service.Apply(ctx, req)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Created(c, resp)
}

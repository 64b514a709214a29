package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/pos/backend/internal/application/transfer"
)

// TransferHandler exposes branch-to-branch stock movement over HTTP
type TransferHandler struct {
	BaseHandler
	service *transfer.Service
}

// NewTransferHandler creates a TransferHandler
func NewTransferHandler(service *transfer.Service) *TransferHandler {
	return &TransferHandler{service: service}
}

// Transfer handles POST /api/v1/transfers
func (h *TransferHandler) Transfer(c *gin.Context) {
	var req transfer.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Transfer(c.Request.Context(), req)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Created(c, resp)
}

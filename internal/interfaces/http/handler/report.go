package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pos/backend/internal/application/report"
)

// ReportHandler exposes cashier day reports over HTTP
type ReportHandler struct {
	BaseHandler
	service *report.Service
}

// NewReportHandler creates a ReportHandler
func NewReportHandler(service *report.Service) *ReportHandler {
	return &ReportHandler{service: service}
}

type aggregateRequest struct {
	CashierID uuid.UUID `json:"cashier_id" binding:"required"`
	BranchID  uuid.UUID `json:"branch_id" binding:"required"`
	Date      string    `json:"date" binding:"required"`
}

// Aggregate handles POST /api/v1/reports/cashier. The report is rebuilt
// from scratch on every call, so repeating it is safe.
func (h *ReportHandler) Aggregate(c *gin.Context) {
	var req aggregateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	day, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		h.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return
	}

	resp, err := h.service.Aggregate(c.Request.Context(), req.CashierID, req.BranchID, day)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, resp)
}

// Get handles GET /api/v1/reports/cashier
func (h *ReportHandler) Get(c *gin.Context) {
	cashierID, err := uuid.Parse(c.Query("cashier_id"))
	if err != nil {
		h.BadRequest(c, "Invalid cashier_id")
		return
	}
	branchID, err := uuid.Parse(c.Query("branch_id"))
	if err != nil {
		h.BadRequest(c, "Invalid branch_id")
		return
	}
	day, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		h.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return
	}

	resp, err := h.service.FindByDay(c.Request.Context(), cashierID, branchID, day)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, resp)
}

package sales

import (
	"context"

	"go.uber.org/zap"

	"github.com/pos/backend/internal/domain/ledger"
	"github.com/pos/backend/internal/domain/shared"
)

// ScheduleRecomputeHandler regenerates payment schedules when a post-sale
// adjustment flags a transaction. It runs outside the adjusting write's
// atomic boundary. By default a failure is logged and left for the
// reconciliation pass to heal; with surfaceFailures set it propagates to
// the bus as a handler error instead.
type ScheduleRecomputeHandler struct {
	service         *Service
	surfaceFailures bool
	logger          *zap.Logger
}

// NewScheduleRecomputeHandler creates a ScheduleRecomputeHandler.
// surfaceFailures comes from ledger.fail_on_recompute_error.
func NewScheduleRecomputeHandler(service *Service, surfaceFailures bool, logger *zap.Logger) *ScheduleRecomputeHandler {
	return &ScheduleRecomputeHandler{
		service:         service,
		surfaceFailures: surfaceFailures,
		logger:          logger,
	}
}

// EventTypes implements shared.EventHandler
func (h *ScheduleRecomputeHandler) EventTypes() []string {
	return []string{ledger.EventTypeScheduleRecomputeFlagged}
}

// Handle implements shared.EventHandler
func (h *ScheduleRecomputeHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	flagged, ok := event.(*ledger.ScheduleRecomputeFlaggedEvent)
	if !ok {
		return nil
	}
	if err := h.service.RecomputeSchedule(ctx, flagged.TransactionID); err != nil {
		if h.surfaceFailures {
			return err
		}
		h.logger.Error("schedule recomputation failed",
			zap.String("transaction_id", flagged.TransactionID.String()),
			zap.Error(err))
	}
	return nil
}

var _ shared.EventHandler = (*ScheduleRecomputeHandler)(nil)

package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/ledger"
	"github.com/pos/backend/internal/domain/shared/valueobject"
)

// SaleItemRequest is one requested line of a sale or purchase
type SaleItemRequest struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  int64           `json:"quantity" binding:"required,gt=0"`
	Price     decimal.Decimal `json:"price" binding:"required"`
	// SellingPrice is the amount actually charged when it differs from
	// Price; zero means "same as Price"
	SellingPrice  decimal.Decimal  `json:"selling_price"`
	OriginalPrice decimal.Decimal  `json:"original_price"`
	// Currency tags Price/SellingPrice; empty means "let downstream
	// consumers infer it"
	Currency      valueobject.Currency `json:"currency" binding:"omitempty,oneof=UZS USD"`
	CreditMonth   int                  `json:"credit_month"`
	CreditPercent *decimal.Decimal     `json:"credit_percent"`
}

// PaymentBreakdown itemizes how the upfront/total amount was tendered
type PaymentBreakdown struct {
	Cash     decimal.Decimal `json:"cash"`
	Card     decimal.Decimal `json:"card"`
	Terminal decimal.Decimal `json:"terminal"`
}

// Sum returns the breakdown total
func (p PaymentBreakdown) Sum() decimal.Decimal {
	return p.Cash.Add(p.Card).Add(p.Terminal)
}

// CustomerDetails identifies the customer by phone; the orchestrator
// upserts on it
type CustomerDetails struct {
	Name    string `json:"name"`
	Phone   string `json:"phone" binding:"required"`
	Address string `json:"address"`
}

// BonusProductRequest is a giveaway attached to the sale
type BonusProductRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int64     `json:"quantity" binding:"required,gt=0"`
}

// CreateTransactionRequest is the input to the sale mutation orchestrator
type CreateTransactionRequest struct {
	Type        ledger.TransactionType `json:"type" binding:"required"`
	PaymentType ledger.PaymentType     `json:"payment_type" binding:"required"`
	TermUnit    ledger.TermUnit        `json:"term_unit"`

	Items []SaleItemRequest `json:"items" binding:"required,min=1,dive"`

	UpfrontAmount      decimal.Decimal     `json:"upfront_amount"`
	UpfrontPaymentType *ledger.PaymentType `json:"upfront_payment_type"`
	Payments           *PaymentBreakdown   `json:"payments"`

	Customer      *CustomerDetails      `json:"customer"`
	BonusProducts []BonusProductRequest `json:"bonus_products"`

	BranchID        uuid.UUID  `json:"branch_id" binding:"required"`
	SoldByUserID    *uuid.UUID `json:"sold_by_user_id"`
	CreatedByUserID uuid.UUID  `json:"created_by_user_id" binding:"required"`

	IsDelivery      bool   `json:"is_delivery"`
	DeliveryAddress string `json:"delivery_address"`
	DeliveryMethod  string `json:"delivery_method"`
}

// RepayInstallmentRequest records a collection against a schedule period
type RepayInstallmentRequest struct {
	ScheduleID  uuid.UUID          `json:"schedule_id" binding:"required"`
	Amount      decimal.Decimal    `json:"amount" binding:"required"`
	PaymentType ledger.PaymentType `json:"payment_type" binding:"required"`
	BranchID    uuid.UUID          `json:"branch_id" binding:"required"`
	CashierID   uuid.UUID          `json:"cashier_id" binding:"required"`
}

// ScheduleRowResponse is one schedule period in a response
type ScheduleRowResponse struct {
	ID               uuid.UUID       `json:"id"`
	Month            int             `json:"month"`
	Payment          decimal.Decimal `json:"payment"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	IsPaid           bool            `json:"is_paid"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
	DueDate          *time.Time      `json:"due_date,omitempty"`
}

// TransactionResponse is the orchestrator's view of a persisted transaction
type TransactionResponse struct {
	ID               uuid.UUID              `json:"id"`
	Type             ledger.TransactionType `json:"type"`
	PaymentType      ledger.PaymentType     `json:"payment_type"`
	Status           string                 `json:"status"`
	Total            decimal.Decimal        `json:"total"`
	FinalTotal       decimal.Decimal        `json:"final_total"`
	AmountPaid       decimal.Decimal        `json:"amount_paid"`
	RemainingBalance decimal.Decimal        `json:"remaining_balance"`
	Schedule         []ScheduleRowResponse  `json:"schedule,omitempty"`
}

// ToTransactionResponse maps a transaction and its schedule rows
func ToTransactionResponse(tx *ledger.Transaction, rows []ledger.PaymentSchedule) TransactionResponse {
	resp := TransactionResponse{
		ID:               tx.ID,
		Type:             tx.Type,
		PaymentType:      tx.PaymentType,
		Status:           string(tx.Status),
		Total:            tx.Total,
		FinalTotal:       tx.FinalTotal,
		AmountPaid:       tx.AmountPaid,
		RemainingBalance: tx.RemainingBalance,
	}
	for _, row := range rows {
		resp.Schedule = append(resp.Schedule, ScheduleRowResponse{
			ID:               row.ID,
			Month:            row.Month,
			Payment:          row.Payment,
			RemainingBalance: row.RemainingBalance,
			IsPaid:           row.IsPaid,
			PaidAmount:       row.PaidAmount,
			DueDate:          row.DueDate,
		})
	}
	return resp
}

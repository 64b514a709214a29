package ledger

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BonusReason classifies a bonus row
type BonusReason string

const (
	BonusReasonSales   BonusReason = "SALES_BONUS"
	BonusReasonPenalty BonusReason = "SALES_PENALTY"
)

// BonusProductLine is one giveaway captured in a bonus snapshot
type BonusProductLine struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	CostPrice   decimal.Decimal `json:"cost_price"`
}

// BonusProductSnapshot denormalizes the giveaway list at calculation time.
// Products change price later; the snapshot preserves what the bonus was
// actually computed against.
type BonusProductSnapshot []BonusProductLine

// Value implements driver.Valuer, storing the snapshot as JSON
func (s BonusProductSnapshot) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (s *BonusProductSnapshot) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into BonusProductSnapshot", value)
	}
	return json.Unmarshal(b, s)
}

// Bonus is a seller bonus (positive) or penalty (negative) tied to a sale
type Bonus struct {
	ID            uuid.UUID            `gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID            `gorm:"type:uuid;not null;index"`
	TransactionID uuid.UUID            `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal      `gorm:"type:numeric(18,2);not null"`
	Reason        BonusReason          `gorm:"size:16;not null"`
	Description   string               `gorm:"size:1000"`
	BonusProducts BonusProductSnapshot `gorm:"type:text"`
	CreatedAt     time.Time
}

// TransactionBonusProduct links a product given away free as part of a
// sale. Rows are deleted (not decremented) once a RETURN restocks them, so
// a second RETURN on the same transaction cannot restock twice.
type TransactionBonusProduct struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	TransactionID uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID     uuid.UUID `gorm:"type:uuid;not null"`
	Quantity      int64     `gorm:"not null"`
	CreatedAt     time.Time
}

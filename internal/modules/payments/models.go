package payments

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusValidated Status = "VALIDATED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether s is absorbing. Only PENDING may transition.
func (s Status) Terminal() bool {
	switch s {
	case StatusValidated, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Transaction is the relay's record of one payment attempt, keyed by the
// client-assigned tran_id.
type Transaction struct {
	TransactionID string          `gorm:"column:transaction_id;type:varchar(64);primaryKey"`
	Status        Status          `gorm:"type:varchar(16);not null;index:ix_transactions_status"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency      string          `gorm:"type:varchar(8);not null"`

	CustomerName    string `gorm:"type:varchar(255);not null"`
	CustomerEmail   string `gorm:"type:varchar(255);not null"`
	CustomerPhone   string `gorm:"type:varchar(32);not null"`
	CustomerAddress string `gorm:"type:varchar(255);not null"`

	SessionKey   *string `gorm:"type:varchar(128)"`
	ValidationID *string `gorm:"type:varchar(128);index:ix_transactions_validation_id"`

	// gateway reference, set on VALIDATED
	BankTranID  *string             `gorm:"type:varchar(128)"`
	CardType    *string             `gorm:"type:varchar(64)"`
	StoreAmount decimal.NullDecimal `gorm:"type:decimal(18,2)"`

	FailureReason *string `gorm:"type:varchar(255)"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Transaction) TableName() string { return "transactions" }

// GatewayReference is what the processor reports about a confirmed payment.
type GatewayReference struct {
	BankTranID  string
	CardType    string
	StoreAmount decimal.NullDecimal
}

package payments

import (
	"context"
	"time"
)

// Store is the durable TransactionRecord ledger. Transition is the only
// status write and must be linearizable per transaction id.
type Store interface {
	// Create inserts a new record; an existing id yields ErrDuplicateTransaction.
	Create(ctx context.Context, t *Transaction) error
	// Get returns ErrTransactionNotFound for unknown ids.
	Get(ctx context.Context, tranID string) (Transaction, error)
	// AttachSession records the processor session token of a PENDING record.
	AttachSession(ctx context.Context, tranID, sessionKey string) error
	// Transition moves a PENDING record to a terminal status. It returns the
	// record as stored after the call and whether this call performed the
	// transition. A record that is already terminal is returned unchanged.
	Transition(ctx context.Context, tranID string, in TransitionInput) (Transaction, bool, error)
	// RecordCallback appends an inbound callback to the audit log.
	RecordCallback(ctx context.Context, ev CallbackEvent) error
}

type TransitionInput struct {
	To            Status
	ValidationID  string
	Gateway       *GatewayReference
	FailureReason string
}

func (in TransitionInput) columns(now time.Time) map[string]any {
	upd := map[string]any{
		"status":     in.To,
		"updated_at": now,
	}
	if in.ValidationID != "" {
		upd["validation_id"] = in.ValidationID
	}
	if in.Gateway != nil {
		upd["bank_tran_id"] = optional(in.Gateway.BankTranID)
		upd["card_type"] = optional(in.Gateway.CardType)
		upd["store_amount"] = in.Gateway.StoreAmount
	}
	if in.FailureReason != "" {
		upd["failure_reason"] = truncate(in.FailureReason, 255)
	}
	return upd
}

func (in TransitionInput) applyTo(t *Transaction, now time.Time) {
	t.Status = in.To
	t.UpdatedAt = now
	if in.ValidationID != "" {
		v := in.ValidationID
		t.ValidationID = &v
	}
	if in.Gateway != nil {
		t.BankTranID = optional(in.Gateway.BankTranID)
		t.CardType = optional(in.Gateway.CardType)
		t.StoreAmount = in.Gateway.StoreAmount
	}
	if in.FailureReason != "" {
		r := truncate(in.FailureReason, 255)
		t.FailureReason = &r
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}

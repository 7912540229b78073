package payments

import (
	"context"
	"net/url"
)

// Processor is the outbound side of the relay. Implementations make exactly
// one call per method and never retry; transport, timeout and decoding
// failures are returned wrapping ErrProcessorUnreachable.
type Processor interface {
	// InitiateTransaction opens a hosted payment session. fields are
	// form-encoded; the implementation adds store credentials.
	InitiateTransaction(ctx context.Context, fields url.Values) (InitResponse, error)
	// ValidateTransaction queries the authoritative status of a val_id.
	ValidateTransaction(ctx context.Context, valID string) (ValidationResponse, error)
}

type InitResponse struct {
	Status         string // SUCCESS|FAILED
	GatewayPageURL string
	SessionKey     string
	FailedReason   string
	Raw            map[string]any
}

type ValidationResponse struct {
	Status         string // VALID|VALIDATED|INVALID_TRANSACTION|...
	TranID         string
	ValID          string
	Amount         string
	StoreAmount    string
	CurrencyType   string
	CurrencyAmount string
	BankTranID     string
	CardType       string
	Raw            map[string]any
}

const (
	initStatusSuccess = "SUCCESS"

	validationValid     = "VALID"
	validationValidated = "VALIDATED"
)

// Fixed protocol parameters sent with every initiation.
const (
	paramShippingMethod = "NO"
	paramMultiCardName  = "internetbank"
	paramVersion        = "4.00"
)

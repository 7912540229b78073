package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"sslrelay.com/app/internal/shared/validation"
)

const DefaultProcessorTimeout = 8 * time.Second

// Coordinator owns the transaction lifecycle: it validates initiation
// requests, talks to the processor and is the only writer of record status.
type Coordinator struct {
	store     Store
	processor Processor
	timeout   time.Duration
	logger    *slog.Logger
	validate  *validator.Validate
	now       func() time.Time
}

func NewCoordinator(store Store, p Processor, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultProcessorTimeout
	}
	return &Coordinator{
		store:     store,
		processor: p,
		timeout:   timeout,
		logger:    slog.Default(),
		validate:  newValidator(),
		now:       time.Now,
	}
}

func (c *Coordinator) SetLogger(logger *slog.Logger) {
	c.logger = logger
}

// InitiateRequest is the client's initiation payload. Fields not named
// below are kept in Extra and forwarded to the processor untouched.
type InitiateRequest struct {
	TotalAmount string `form:"total_amount" validate:"required,decimal_gt0"`
	Currency    string `form:"currency" validate:"required"`
	TranID      string `form:"tran_id" validate:"required,max=64"`
	SuccessURL  string `form:"success_url" validate:"required"`
	FailURL     string `form:"fail_url" validate:"required"`
	CancelURL   string `form:"cancel_url" validate:"required"`
	CusName     string `form:"cus_name" validate:"required"`
	CusEmail    string `form:"cus_email" validate:"required"`
	CusPhone    string `form:"cus_phone" validate:"required"`
	CusAdd1     string `form:"cus_add1" validate:"required"`

	Extra url.Values `form:"-" validate:"-"`
}

// credentialFields are never accepted from the client.
var credentialFields = map[string]bool{"store_id": true, "store_passwd": true}

// NewInitiateRequest splits submitted fields into the known ones and the
// passthrough remainder. Values are trimmed.
func NewInitiateRequest(fields url.Values) InitiateRequest {
	get := func(k string) string { return strings.TrimSpace(fields.Get(k)) }

	in := InitiateRequest{
		TotalAmount: get("total_amount"),
		Currency:    get("currency"),
		TranID:      get("tran_id"),
		SuccessURL:  get("success_url"),
		FailURL:     get("fail_url"),
		CancelURL:   get("cancel_url"),
		CusName:     get("cus_name"),
		CusEmail:    get("cus_email"),
		CusPhone:    get("cus_phone"),
		CusAdd1:     get("cus_add1"),
		Extra:       url.Values{},
	}
	for k, vs := range fields {
		if in.known(k) || credentialFields[k] {
			continue
		}
		in.Extra[k] = append([]string(nil), vs...)
	}
	return in
}

func (in InitiateRequest) known(k string) bool {
	_, ok := in.named()[k]
	return ok
}

func (in InitiateRequest) named() map[string]string {
	return map[string]string{
		"total_amount": in.TotalAmount,
		"currency":     in.Currency,
		"tran_id":      in.TranID,
		"success_url":  in.SuccessURL,
		"fail_url":     in.FailURL,
		"cancel_url":   in.CancelURL,
		"cus_name":     in.CusName,
		"cus_email":    in.CusEmail,
		"cus_phone":    in.CusPhone,
		"cus_add1":     in.CusAdd1,
	}
}

// processorFields merges the request with the fixed protocol parameters.
func (in InitiateRequest) processorFields() url.Values {
	out := url.Values{}
	for k, vs := range in.Extra {
		out[k] = append([]string(nil), vs...)
	}
	for k, v := range in.named() {
		out.Set(k, v)
	}
	out.Set("shipping_method", paramShippingMethod)
	out.Set("multi_card_name", paramMultiCardName)
	out.Set("version", paramVersion)
	return out
}

type InitiateResult struct {
	TransactionID  string
	GatewayPageURL string
	// Payload is the processor's response, returned to the caller unchanged.
	Payload map[string]any
}

// Initiate checks the request, records a PENDING transaction and opens a
// hosted session with the processor. A failed precondition has no side
// effects; a processor failure leaves the record PENDING.
func (c *Coordinator) Initiate(ctx context.Context, in InitiateRequest) (InitiateResult, error) {
	amount, err := c.check(in)
	if err != nil {
		return InitiateResult{}, err
	}

	now := c.now()
	t := Transaction{
		TransactionID:   in.TranID,
		Status:          StatusPending,
		Amount:          amount,
		Currency:        strings.ToUpper(in.Currency),
		CustomerName:    in.CusName,
		CustomerEmail:   in.CusEmail,
		CustomerPhone:   in.CusPhone,
		CustomerAddress: in.CusAdd1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := c.store.Create(ctx, &t); err != nil {
		if errors.Is(err, ErrDuplicateTransaction) {
			c.logger.WarnContext(ctx, "duplicate tran_id on initiation", "tran_id", in.TranID)
		}
		return InitiateResult{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.processor.InitiateTransaction(callCtx, in.processorFields())
	if err != nil {
		err = unreachable(err)
		c.logger.ErrorContext(ctx, "payment initiation failed", "tran_id", t.TransactionID, "err", err)
		return InitiateResult{}, err
	}

	if resp.Status != initStatusSuccess {
		msg := resp.FailedReason
		if msg == "" {
			msg = "Payment initialization failed"
		}
		c.logger.WarnContext(ctx, "payment initiation rejected", "tran_id", t.TransactionID, "status", resp.Status, "reason", msg)
		return InitiateResult{}, &ProcessorRejectedError{Message: msg, Payload: resp.Raw}
	}

	if resp.SessionKey != "" {
		if err := c.store.AttachSession(ctx, t.TransactionID, resp.SessionKey); err != nil {
			c.logger.ErrorContext(ctx, "failed to attach session key", "tran_id", t.TransactionID, "err", err)
		}
	}

	c.logger.InfoContext(ctx, "payment initiated", "tran_id", t.TransactionID, "amount", t.Amount.String(), "currency", t.Currency)
	return InitiateResult{
		TransactionID:  t.TransactionID,
		GatewayPageURL: resp.GatewayPageURL,
		Payload:        resp.Raw,
	}, nil
}

// Lookup returns the stored record for tranID.
func (c *Coordinator) Lookup(ctx context.Context, tranID string) (Transaction, error) {
	if strings.TrimSpace(tranID) == "" {
		return Transaction{}, missingField("tran_id")
	}
	return c.store.Get(ctx, tranID)
}

// check is a pure precondition: it never touches the store or processor.
func (c *Coordinator) check(in InitiateRequest) (decimal.Decimal, error) {
	if err := c.validate.Struct(in); err != nil {
		return decimal.Decimal{}, &InvalidRequestError{Fields: validation.FromError(err, in)}
	}
	// decimal_gt0 already accepted it
	amount, _ := decimal.NewFromString(in.TotalAmount)
	return amount, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("decimal_gt0", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.IsPositive()
	})
	return v
}

func unreachable(err error) error {
	if errors.Is(err, ErrProcessorUnreachable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrProcessorUnreachable, err)
}

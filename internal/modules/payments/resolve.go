package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	msgProcessingFailed = "Payment processing failed"
	msgValidationFailed = "Payment validation failed"
	msgCancelled        = "Payment cancelled"
)

// Callback is one inbound call on any channel.
type Callback struct {
	TranID  string
	ValID   string
	Error   string            // fail channel only
	Payload map[string]string // fields as received, for the callback log
}

// Outcome is the state a callback left the record in.
type Outcome struct {
	Transaction Transaction
	// Applied is true when this call performed the terminal transition.
	Applied bool
	// Message is the failure reason for FAILED/CANCELLED records.
	Message string
}

func (o Outcome) Status() Status { return o.Transaction.Status }

// HandleSuccess processes the browser success redirect. The redirect is only
// a hint: VALIDATED is reached solely through processor validation of val_id.
// On any non-confirmation the record fails rather than staying PENDING.
func (c *Coordinator) HandleSuccess(ctx context.Context, cb Callback) (Outcome, error) {
	return c.resolve(ctx, ChannelSuccess, cb)
}

// HandleFailure processes the browser failure redirect. No validation call.
func (c *Coordinator) HandleFailure(ctx context.Context, cb Callback) (Outcome, error) {
	return c.resolve(ctx, ChannelFail, cb)
}

// HandleCancel processes the browser cancellation redirect. No validation call.
func (c *Coordinator) HandleCancel(ctx context.Context, cb Callback) (Outcome, error) {
	return c.resolve(ctx, ChannelCancel, cb)
}

// HandleNotification processes the server-to-server IPN. It validates exactly
// like HandleSuccess but never fails the record on non-confirmation; an
// unreachable processor is returned so the caller can ask for redelivery.
func (c *Coordinator) HandleNotification(ctx context.Context, cb Callback) (Outcome, error) {
	return c.resolve(ctx, ChannelIPN, cb)
}

func (c *Coordinator) resolve(ctx context.Context, ch Channel, cb Callback) (out Outcome, err error) {
	cb.TranID = strings.TrimSpace(cb.TranID)
	cb.ValID = strings.TrimSpace(cb.ValID)

	defer func() {
		c.recordCallback(ctx, ch, cb, out, err)
		result := "ok"
		if err != nil {
			result = "error"
		}
		callbacksTotal.WithLabelValues(string(ch), result).Inc()
	}()

	if cb.TranID == "" {
		return Outcome{}, missingField("tran_id")
	}

	t, err := c.store.Get(ctx, cb.TranID)
	if err != nil {
		return Outcome{}, err
	}

	// terminal states are absorbing: re-emit without side effects
	if t.Status.Terminal() {
		c.logger.InfoContext(ctx, "callback on settled transaction", "channel", ch, "tran_id", t.TransactionID, "status", t.Status)
		return settled(t, false), nil
	}

	switch ch {
	case ChannelFail:
		reason := strings.TrimSpace(cb.Error)
		if reason == "" {
			reason = msgProcessingFailed
		}
		return c.transition(ctx, ch, t.TransactionID, TransitionInput{
			To:            StatusFailed,
			ValidationID:  cb.ValID,
			FailureReason: reason,
		})
	case ChannelCancel:
		return c.transition(ctx, ch, t.TransactionID, TransitionInput{
			To:            StatusCancelled,
			FailureReason: msgCancelled,
		})
	}

	if cb.ValID == "" {
		return settled(t, false), missingField("val_id")
	}

	ref, verr := c.confirm(ctx, t, cb.ValID)
	if verr == nil {
		return c.transition(ctx, ch, t.TransactionID, TransitionInput{
			To:           StatusValidated,
			ValidationID: cb.ValID,
			Gateway:      &ref,
		})
	}

	c.logger.WarnContext(ctx, "payment validation did not confirm", "channel", ch, "tran_id", t.TransactionID, "val_id", cb.ValID, "err", verr)

	if ch == ChannelIPN {
		o := settled(t, false)
		o.Message = msgValidationFailed
		return o, verr
	}

	return c.transition(ctx, ch, t.TransactionID, TransitionInput{
		To:            StatusFailed,
		ValidationID:  cb.ValID,
		FailureReason: msgValidationFailed,
	})
}

// transition is the single status write path.
func (c *Coordinator) transition(ctx context.Context, ch Channel, tranID string, in TransitionInput) (Outcome, error) {
	t, applied, err := c.store.Transition(ctx, tranID, in)
	if err != nil {
		c.logger.ErrorContext(ctx, "transition failed", "channel", ch, "tran_id", tranID, "to", in.To, "err", err)
		return Outcome{}, err
	}

	if applied {
		transitionsTotal.WithLabelValues(string(ch), string(t.Status)).Inc()
		c.logger.InfoContext(ctx, "transaction settled", "channel", ch, "tran_id", tranID, "status", t.Status)
	} else {
		c.logger.InfoContext(ctx, "transaction already settled", "channel", ch, "tran_id", tranID, "status", t.Status, "wanted", in.To)
	}
	return settled(t, applied), nil
}

// confirm runs the validation protocol for valID against the processor.
// Only an affirmative, consistent answer returns a nil error.
func (c *Coordinator) confirm(ctx context.Context, t Transaction, valID string) (GatewayReference, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.processor.ValidateTransaction(callCtx, valID)
	if err != nil {
		return GatewayReference{}, unreachable(err)
	}

	switch strings.ToUpper(resp.Status) {
	case validationValid, validationValidated:
	case "":
		return GatewayReference{}, errAmbiguous(resp, "empty validation status")
	case "INVALID_TRANSACTION", "FAILED", "CANCELLED", "EXPIRED", "UNATTEMPTED":
		return GatewayReference{}, &ProcessorRejectedError{Message: "validation status " + resp.Status, Payload: resp.Raw}
	default:
		return GatewayReference{}, errAmbiguous(resp, "unknown validation status")
	}

	if resp.TranID != "" && resp.TranID != t.TransactionID {
		return GatewayReference{}, &ProcessorRejectedError{Message: "val_id belongs to another transaction", Payload: resp.Raw}
	}
	if resp.CurrencyAmount != "" && strings.EqualFold(resp.CurrencyType, t.Currency) {
		paid, err := decimal.NewFromString(resp.CurrencyAmount)
		if err != nil {
			return GatewayReference{}, errAmbiguous(resp, "unparseable currency_amount")
		}
		if !paid.Equal(t.Amount) {
			return GatewayReference{}, &ProcessorRejectedError{Message: "amount mismatch: paid " + paid.String() + ", expected " + t.Amount.String(), Payload: resp.Raw}
		}
	}

	ref := GatewayReference{BankTranID: resp.BankTranID, CardType: resp.CardType}
	if d, err := decimal.NewFromString(resp.StoreAmount); err == nil {
		ref.StoreAmount = decimal.NullDecimal{Decimal: d, Valid: true}
	}
	return ref, nil
}

func errAmbiguous(resp ValidationResponse, reason string) error {
	return fmt.Errorf("%w: %s (status %q)", ErrValidationAmbiguous, reason, resp.Status)
}

func settled(t Transaction, applied bool) Outcome {
	out := Outcome{Transaction: t, Applied: applied}
	if t.FailureReason != nil && t.Status != StatusValidated {
		out.Message = *t.FailureReason
	}
	return out
}

// IsRetryable reports whether the processor should redeliver a callback that
// failed with err.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrProcessorUnreachable)
}

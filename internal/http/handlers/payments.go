package handlers

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"sslrelay.com/app/internal/http/middleware"
	"sslrelay.com/app/internal/modules/payments"
	"sslrelay.com/app/internal/shared/apperr"
	"sslrelay.com/app/internal/storage"
)

// PaymentHandler maps the relay's HTTP surface onto the coordinator.
type PaymentHandler struct {
	Logger      *slog.Logger
	Coord       *payments.Coordinator
	FrontendURL string
	Archive     storage.Storage
}

func NewPaymentHandler(logger *slog.Logger, coord *payments.Coordinator, frontendURL string, archive storage.Storage) *PaymentHandler {
	if archive == nil {
		archive = storage.Discard{}
	}
	return &PaymentHandler{Logger: logger, Coord: coord, FrontendURL: frontendURL, Archive: archive}
}

// POST /api/initiate-payment
func (h *PaymentHandler) Initiate(c *gin.Context) {
	fields, _, err := readFields(c)
	if err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid request body", nil))
		return
	}

	in := payments.NewInitiateRequest(fields)
	middleware.SetTranID(c, in.TranID)

	res, err := h.Coord.Initiate(c.Request.Context(), in)
	if err != nil {
		middleware.Fail(c, initiateError(err))
		return
	}

	c.JSON(http.StatusOK, res.Payload)
}

func initiateError(err error) *apperr.AppError {
	var invalid *payments.InvalidRequestError
	var rejected *payments.ProcessorRejectedError

	switch {
	case errors.As(err, &invalid):
		return apperr.InvalidErr("Missing or invalid required fields", invalid.Fields)
	case errors.Is(err, payments.ErrDuplicateTransaction):
		return apperr.ConflictErr("Transaction already exists")
	case errors.As(err, &rejected):
		return apperr.RejectedErr(rejected.Message, rejected.Payload, err)
	case errors.Is(err, payments.ErrProcessorUnreachable):
		return apperr.UnavailableErr("Internal server error", err)
	default:
		return apperr.Wrap(err)
	}
}

// POST /payment-success
func (h *PaymentHandler) Success(c *gin.Context) {
	h.browserCallback(c, payments.ChannelSuccess, h.Coord.HandleSuccess)
}

// POST /payment-failed
func (h *PaymentHandler) Failed(c *gin.Context) {
	h.browserCallback(c, payments.ChannelFail, h.Coord.HandleFailure)
}

// POST /payment-cancel
func (h *PaymentHandler) Cancel(c *gin.Context) {
	h.browserCallback(c, payments.ChannelCancel, h.Coord.HandleCancel)
}

type resolveFunc func(ctx context.Context, cb payments.Callback) (payments.Outcome, error)

// browserCallback always ends in a redirect: the user's browser is mid-flow
// from the processor's hosted page.
func (h *PaymentHandler) browserCallback(c *gin.Context, ch payments.Channel, resolve resolveFunc) {
	fields, _, err := readFields(c)
	if err != nil {
		h.Logger.WarnContext(c.Request.Context(), "unreadable callback body", "channel", ch, "err", err)
		c.Redirect(http.StatusFound, h.failedURL("Invalid callback", ""))
		return
	}

	cb := callbackFrom(fields)
	middleware.SetTranID(c, cb.TranID)

	out, err := resolve(c.Request.Context(), cb)
	if err != nil {
		h.Logger.WarnContext(c.Request.Context(), "callback not resolved", "channel", ch, "tran_id", cb.TranID, "err", err)
		c.Redirect(http.StatusFound, h.failedURL(browserMessage(err), cb.TranID))
		return
	}

	c.Redirect(http.StatusFound, h.destination(out))
}

func (h *PaymentHandler) destination(out payments.Outcome) string {
	tranID := out.Transaction.TransactionID

	switch out.Status() {
	case payments.StatusValidated:
		q := url.Values{}
		q.Set("tran_id", tranID)
		return h.FrontendURL + "/payment-success?" + q.Encode()
	case payments.StatusCancelled:
		return h.FrontendURL + "/cart"
	default:
		msg := out.Message
		if msg == "" {
			msg = "Payment processing failed"
		}
		return h.failedURL(msg, tranID)
	}
}

func (h *PaymentHandler) failedURL(msg, tranID string) string {
	q := url.Values{}
	q.Set("error_message", msg)
	if tranID != "" {
		q.Set("tran_id", tranID)
	}
	return h.FrontendURL + "/payment-failed?" + q.Encode()
}

func browserMessage(err error) string {
	switch {
	case errors.Is(err, payments.ErrInvalidRequest):
		return "Invalid callback"
	case errors.Is(err, payments.ErrTransactionNotFound):
		return "Unknown transaction"
	default:
		return "Internal server error"
	}
}

// POST /api/payment-notification
//
// The processor's backend is the caller, so the answer is a machine-readable
// acknowledgment. 5xx asks the processor to redeliver.
func (h *PaymentHandler) Notification(c *gin.Context) {
	ctx := c.Request.Context()

	fields, raw, err := readFields(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "FAILED", "message": "Invalid request body"})
		return
	}

	cb := callbackFrom(fields)
	middleware.SetTranID(c, cb.TranID)
	h.archive(ctx, c.ContentType(), cb.TranID, raw)

	out, err := h.Coord.HandleNotification(ctx, cb)
	switch {
	case err == nil && out.Status() == payments.StatusValidated:
		c.JSON(http.StatusOK, gin.H{"status": "SUCCESS"})
	case err != nil && payments.IsRetryable(err):
		h.Logger.ErrorContext(ctx, "IPN validation unavailable", "tran_id", cb.TranID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "FAILED", "message": "Internal server error"})
	case err != nil:
		h.Logger.WarnContext(ctx, "IPN rejected", "tran_id", cb.TranID, "err", err)
		c.JSON(http.StatusBadRequest, gin.H{"status": "FAILED", "message": ipnMessage(err)})
	default:
		msg := out.Message
		if msg == "" {
			msg = "Transaction is " + string(out.Status())
		}
		c.JSON(http.StatusBadRequest, gin.H{"status": "FAILED", "message": msg})
	}
}

func ipnMessage(err error) string {
	switch {
	case errors.Is(err, payments.ErrInvalidRequest):
		return "Missing tran_id or val_id"
	case errors.Is(err, payments.ErrTransactionNotFound):
		return "Unknown transaction"
	default:
		return "Payment validation failed"
	}
}

func (h *PaymentHandler) archive(ctx context.Context, contentType, tranID string, raw []byte) {
	ext := ".txt"
	if contentType == gin.MIMEJSON {
		ext = ".json"
	}
	prefix := "ipn/unknown"
	if tranID != "" {
		prefix = "ipn/" + tranID
	}

	res, err := h.Archive.Put(ctx, bytes.NewReader(raw), storage.PutInput{Prefix: prefix, Ext: ext, ContentType: contentType})
	if err != nil {
		h.Logger.ErrorContext(ctx, "failed to archive IPN payload", "tran_id", tranID, "err", err)
		return
	}
	if res.Key != "" {
		h.Logger.DebugContext(ctx, "IPN payload archived", "tran_id", tranID, "key", res.Key)
	}
}

// GET /api/transactions/:tran_id
func (h *PaymentHandler) Status(c *gin.Context) {
	tranID := c.Param("tran_id")
	middleware.SetTranID(c, tranID)

	t, err := h.Coord.Lookup(c.Request.Context(), tranID)
	if err != nil {
		if errors.Is(err, payments.ErrTransactionNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Transaction not found"))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	body := gin.H{
		"tran_id":    t.TransactionID,
		"status":     t.Status,
		"amount":     t.Amount.StringFixed(2),
		"currency":   t.Currency,
		"updated_at": t.UpdatedAt,
	}
	if t.FailureReason != nil && t.Status != payments.StatusValidated {
		body["failure_reason"] = *t.FailureReason
	}
	c.JSON(http.StatusOK, body)
}

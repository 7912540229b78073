package payments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccessValidatesAndSettles(t *testing.T) {
	store := NewMemoryStore()
	proc := newFakeProcessor()
	c := newTestCoordinator(store, proc)
	ctx := context.Background()

	require.NoError(t, seedPending(c, "T1"))
	proc.validate("V1", validResponse("T1", "V1"))

	out, err := c.HandleSuccess(ctx, Callback{TranID: "T1", ValID: "V1"})
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.Equal(t, StatusValidated, out.Status())
	assert.Empty(t, out.Message)

	rec, err := store.Get(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, StatusValidated, rec.Status)
	require.NotNil(t, rec.ValidationID)
	assert.Equal(t, "V1", *rec.ValidationID)
	require.NotNil(t, rec.BankTranID)
	assert.Equal(t, "BANK-1", *rec.BankTranID)
	assert.True(t, rec.StoreAmount.Valid)
	assert.Equal(t, "97.5", rec.StoreAmount.Decimal.String())
}

func TestSuccessIsIdempotent(t *testing.T) {
	proc := newFakeProcessor()
	c := newTestCoordinator(NewMemoryStore(), proc)
	ctx := context.Background()

	require.NoError(t, seedPending(c, "T1"))
	proc.validate("V1", validResponse("T1", "V1"))

	_, err := c.HandleSuccess(ctx, Callback{TranID: "T1", ValID: "V1"})
	require.NoError(t, err)

	out, err := c.HandleSuccess(ctx, Callback{TranID: "T1", ValID: "V1"})
	require.NoError(t, err)
	assert.False(t, out.Applied)
	assert.Equal(t, StatusValidated, out.Status())

	_, validateCalls := proc.counts()
	assert.Equal(t, 1, validateCalls)
}

func TestSuccessNotConfirmedFails(t *testing.T) {
	cases := []struct {
		name string
		resp *ValidationResponse
		err  error
	}{
		{name: "invalid transaction", resp: &ValidationResponse{Status: "INVALID_TRANSACTION"}},
		{name: "empty status", resp: &ValidationResponse{}},
		{name: "unknown status", resp: &ValidationResponse{Status: "PENDING_REVIEW"}},
		{name: "other transaction", resp: func() *ValidationResponse { r := validResponse("T2", "V1"); return &r }()},
		{name: "amount mismatch", resp: func() *ValidationResponse {
			r := validResponse("T1", "V1")
			r.CurrencyAmount = "10.00"
			return &r
		}()},
		{name: "unreachable", err: errors.New("connection reset")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := NewMemoryStore()
			proc := newFakeProcessor()
			c := newTestCoordinator(store, proc)
			ctx := context.Background()

			require.NoError(t, seedPending(c, "T1"))
			if tc.resp != nil {
				proc.validate("V1", *tc.resp)
			}
			proc.validateErr = tc.err

			out, err := c.HandleSuccess(ctx, Callback{TranID: "T1", ValID: "V1"})
			require.NoError(t, err)
			assert.True(t, out.Applied)
			assert.Equal(t, StatusFailed, out.Status())
			assert.Equal(t, "Payment validation failed", out.Message)
		})
	}
}

func TestSuccessAmountInOtherCurrencyIsNotCompared(t *testing.T) {
	proc := newFakeProcessor()
	c := newTestCoordinator(NewMemoryStore(), proc)

	require.NoError(t, seedPending(c, "T1"))
	resp := validResponse("T1", "V1")
	resp.CurrencyType = "USD"
	resp.CurrencyAmount = "1.20"
	proc.validate("V1", resp)

	out, err := c.HandleSuccess(context.Background(), Callback{TranID: "T1", ValID: "V1"})
	require.NoError(t, err)
	assert.Equal(t, StatusValidated, out.Status())
}

func TestSuccessWithoutValIDStaysPending(t *testing.T) {
	store := NewMemoryStore()
	proc := newFakeProcessor()
	c := newTestCoordinator(store, proc)
	ctx := context.Background()

	require.NoError(t, seedPending(c, "T1"))

	out, err := c.HandleSuccess(ctx, Callback{TranID: "T1"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, StatusPending, out.Status())

	_, validateCalls := proc.counts()
	assert.Zero(t, validateCalls)
}

func TestCallbackWithoutTranID(t *testing.T) {
	c := newTestCoordinator(NewMemoryStore(), newFakeProcessor())

	_, err := c.HandleFailure(context.Background(), Callback{})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestCallbackUnknownTranID(t *testing.T) {
	c := newTestCoordinator(NewMemoryStore(), newFakeProcessor())

	_, err := c.HandleCancel(context.Background(), Callback{TranID: "ghost"})
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestFailureRecordsReason(t *testing.T) {
	store := NewMemoryStore()
	c := newTestCoordinator(store, newFakeProcessor())
	ctx := context.Background()

	require.NoError(t, seedPending(c, "T1"))

	out, err := c.HandleFailure(ctx, Callback{TranID: "T1", Error: "Insufficient funds"})
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.Equal(t, StatusFailed, out.Status())
	assert.Equal(t, "Insufficient funds", out.Message)
}

func TestFailureDefaultReason(t *testing.T) {
	c := newTestCoordinator(NewMemoryStore(), newFakeProcessor())
	require.NoError(t, seedPending(c, "T1"))

	out, err := c.HandleFailure(context.Background(), Callback{TranID: "T1"})
	require.NoError(t, err)
	assert.Equal(t, "Payment processing failed", out.Message)
}

func TestCancel(t *testing.T) {
	proc := newFakeProcessor()
	c := newTestCoordinator(NewMemoryStore(), proc)
	require.NoError(t, seedPending(c, "T1"))

	out, err := c.HandleCancel(context.Background(), Callback{TranID: "T1"})
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.Equal(t, StatusCancelled, out.Status())
	assert.Equal(t, "Payment cancelled", out.Message)

	_, validateCalls := proc.counts()
	assert.Zero(t, validateCalls)
}

func TestTerminalStatesAreAbsorbing(t *testing.T) {
	proc := newFakeProcessor()
	c := newTestCoordinator(NewMemoryStore(), proc)
	ctx := context.Background()

	require.NoError(t, seedPending(c, "T1"))
	proc.validate("V1", validResponse("T1", "V1"))

	_, err := c.HandleFailure(ctx, Callback{TranID: "T1", Error: "declined"})
	require.NoError(t, err)

	out, err := c.HandleSuccess(ctx, Callback{TranID: "T1", ValID: "V1"})
	require.NoError(t, err)
	assert.False(t, out.Applied)
	assert.Equal(t, StatusFailed, out.Status())

	out, err = c.HandleCancel(ctx, Callback{TranID: "T1"})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, out.Status())

	out, err = c.HandleNotification(ctx, Callback{TranID: "T1", ValID: "V1"})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, out.Status())
	assert.Equal(t, "declined", out.Message)

	_, validateCalls := proc.counts()
	assert.Zero(t, validateCalls)
}

func TestNotificationValidates(t *testing.T) {
	proc := newFakeProcessor()
	c := newTestCoordinator(NewMemoryStore(), proc)
	ctx := context.Background()

	require.NoError(t, seedPending(c, "T1"))
	proc.validate("V1", validResponse("T1", "V1"))

	out, err := c.HandleNotification(ctx, Callback{TranID: "T1", ValID: "V1"})
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.Equal(t, StatusValidated, out.Status())

	// redelivered IPN after the browser leg already settled it
	out, err = c.HandleNotification(ctx, Callback{TranID: "T1", ValID: "V1"})
	require.NoError(t, err)
	assert.False(t, out.Applied)

	_, validateCalls := proc.counts()
	assert.Equal(t, 1, validateCalls)
}

func TestNotificationNotConfirmedLeavesPending(t *testing.T) {
	store := NewMemoryStore()
	proc := newFakeProcessor()
	c := newTestCoordinator(store, proc)
	ctx := context.Background()

	require.NoError(t, seedPending(c, "T1"))
	proc.validate("V1", ValidationResponse{Status: ""})

	out, err := c.HandleNotification(ctx, Callback{TranID: "T1", ValID: "V1"})
	assert.ErrorIs(t, err, ErrValidationAmbiguous)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, StatusPending, out.Status())
	assert.Equal(t, "Payment validation failed", out.Message)

	rec, err := store.Get(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, rec.Status)
}

func TestNotificationUnreachableIsRetryable(t *testing.T) {
	proc := newFakeProcessor()
	proc.validateErr = errors.New("i/o timeout")
	c := newTestCoordinator(NewMemoryStore(), proc)

	require.NoError(t, seedPending(c, "T1"))

	out, err := c.HandleNotification(context.Background(), Callback{TranID: "T1", ValID: "V1"})
	assert.ErrorIs(t, err, ErrProcessorUnreachable)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, StatusPending, out.Status())
}

func TestConcurrentCallbacksTransitionOnce(t *testing.T) {
	store := NewMemoryStore()
	proc := newFakeProcessor()
	proc.delay = 5 * time.Millisecond
	c := newTestCoordinator(store, proc)
	ctx := context.Background()

	require.NoError(t, seedPending(c, "T1"))
	proc.validate("V1", validResponse("T1", "V1"))

	const n = 24
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
		seen    = map[Status]int{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			var out Outcome
			var err error
			switch i % 4 {
			case 0:
				out, err = c.HandleSuccess(ctx, Callback{TranID: "T1", ValID: "V1"})
			case 1:
				out, err = c.HandleNotification(ctx, Callback{TranID: "T1", ValID: "V1"})
			case 2:
				out, err = c.HandleFailure(ctx, Callback{TranID: "T1", Error: "declined"})
			default:
				out, err = c.HandleCancel(ctx, Callback{TranID: "T1"})
			}
			if err != nil {
				return
			}

			mu.Lock()
			defer mu.Unlock()
			if out.Applied {
				applied++
			}
			seen[out.Status()]++
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, applied)

	rec, err := store.Get(ctx, "T1")
	require.NoError(t, err)
	assert.True(t, rec.Status.Terminal())
	for st := range seen {
		assert.Equal(t, rec.Status, st, "every caller observes the single terminal status")
	}
}

func TestCallbacksAreLogged(t *testing.T) {
	store := NewMemoryStore()
	proc := newFakeProcessor()
	c := newTestCoordinator(store, proc)
	ctx := context.Background()

	require.NoError(t, seedPending(c, "T1"))
	proc.validate("V1", validResponse("T1", "V1"))

	_, _ = c.HandleNotification(ctx, Callback{TranID: "T1", ValID: "V1", Payload: map[string]string{"tran_id": "T1", "val_id": "V1"}})
	_, _ = c.HandleSuccess(ctx, Callback{TranID: "T1"})
	_, _ = c.HandleCancel(ctx, Callback{TranID: "ghost"})

	logged := store.Callbacks()
	require.Len(t, logged, 3)

	assert.Equal(t, ChannelIPN, logged[0].Channel)
	require.NotNil(t, logged[0].ResultStatus)
	assert.Equal(t, StatusValidated, *logged[0].ResultStatus)
	assert.JSONEq(t, `{"tran_id":"T1","val_id":"V1"}`, string(logged[0].Payload))
	assert.Nil(t, logged[0].ProcessError)

	assert.Equal(t, ChannelSuccess, logged[1].Channel)
	require.NotNil(t, logged[1].ResultStatus)
	assert.Equal(t, StatusValidated, *logged[1].ResultStatus)

	assert.Equal(t, ChannelCancel, logged[2].Channel)
	assert.Nil(t, logged[2].ResultStatus)
	require.NotNil(t, logged[2].ProcessError)
	assert.Contains(t, *logged[2].ProcessError, "transaction not found")
}

package payments

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"time"
)

type fakeProcessor struct {
	mu sync.Mutex

	initResp InitResponse
	initErr  error
	block    bool

	validations map[string]ValidationResponse
	validateErr error
	delay       time.Duration

	initCalls     int
	validateCalls int
	lastFields    url.Values
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{
		initResp: InitResponse{
			Status:         "SUCCESS",
			GatewayPageURL: "https://sandbox.example/gw/abc",
			SessionKey:     "sess-abc",
			Raw: map[string]any{
				"status":         "SUCCESS",
				"GatewayPageURL": "https://sandbox.example/gw/abc",
				"sessionkey":     "sess-abc",
			},
		},
		validations: map[string]ValidationResponse{},
	}
}

func (f *fakeProcessor) InitiateTransaction(ctx context.Context, fields url.Values) (InitResponse, error) {
	f.mu.Lock()
	f.initCalls++
	f.lastFields = fields
	resp, err, block := f.initResp, f.initErr, f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return InitResponse{}, ctx.Err()
	}
	return resp, err
}

func (f *fakeProcessor) ValidateTransaction(ctx context.Context, valID string) (ValidationResponse, error) {
	f.mu.Lock()
	f.validateCalls++
	resp, ok := f.validations[valID]
	err, delay := f.validateErr, f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return ValidationResponse{}, err
	}
	if !ok {
		return ValidationResponse{Status: "INVALID_TRANSACTION", ValID: valID}, nil
	}
	return resp, nil
}

func (f *fakeProcessor) validate(valID string, resp ValidationResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validations[valID] = resp
}

func (f *fakeProcessor) counts() (initCalls, validateCalls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initCalls, f.validateCalls
}

func newTestCoordinator(store Store, p Processor) *Coordinator {
	c := NewCoordinator(store, p, time.Second)
	c.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return c
}

func validFields(tranID string) url.Values {
	v := url.Values{}
	v.Set("total_amount", "100.00")
	v.Set("currency", "BDT")
	v.Set("tran_id", tranID)
	v.Set("success_url", "http://relay.local/payment-success")
	v.Set("fail_url", "http://relay.local/payment-failed")
	v.Set("cancel_url", "http://relay.local/payment-cancel")
	v.Set("cus_name", "Jane Doe")
	v.Set("cus_email", "jane@example.com")
	v.Set("cus_phone", "01700000000")
	v.Set("cus_add1", "Dhaka")
	return v
}

// seedPending initiates tranID through c so the record is PENDING.
func seedPending(c *Coordinator, tranID string) error {
	_, err := c.Initiate(context.Background(), NewInitiateRequest(validFields(tranID)))
	return err
}

func validResponse(tranID, valID string) ValidationResponse {
	return ValidationResponse{
		Status:         "VALID",
		TranID:         tranID,
		ValID:          valID,
		Amount:         "100.00",
		StoreAmount:    "97.50",
		CurrencyType:   "BDT",
		CurrencyAmount: "100.00",
		BankTranID:     "BANK-1",
		CardType:       "VISA-Dutch Bangla",
		Raw:            map[string]any{"status": "VALID", "tran_id": tranID, "val_id": valID},
	}
}

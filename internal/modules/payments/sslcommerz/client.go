// Package sslcommerz is the processor client for the SSLCommerz hosted
// payment gateway (session API v4 and the validation server API).
package sslcommerz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sslrelay.com/app/internal/modules/payments"
)

const (
	SandboxBaseURL = "https://sandbox.sslcommerz.com"
	LiveBaseURL    = "https://securepay.sslcommerz.com"

	initiatePath = "/gwprocess/v4/api.php"
	validatePath = "/validator/api/validationserverAPI.php"

	maxResponseBytes = 1 << 20
)

type Config struct {
	StoreID       string
	StorePassword string
	Live          bool
	// BaseURL overrides the live/sandbox host (tests, proxies).
	BaseURL string
	Timeout time.Duration
}

// Client is stateless apart from its configuration; the target host is
// fixed at construction.
type Client struct {
	storeID       string
	storePassword string
	initiateURL   string
	validateURL   string
	http          *http.Client
}

var _ payments.Processor = (*Client)(nil)

func New(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = SandboxBaseURL
		if cfg.Live {
			base = LiveBaseURL
		}
	}
	base = strings.TrimRight(base, "/")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = payments.DefaultProcessorTimeout
	}

	return &Client{
		storeID:       cfg.StoreID,
		storePassword: cfg.StorePassword,
		initiateURL:   base + initiatePath,
		validateURL:   base + validatePath,
		http:          &http.Client{Timeout: timeout},
	}
}

func (c *Client) InitiateTransaction(ctx context.Context, fields url.Values) (payments.InitResponse, error) {
	form := url.Values{}
	for k, vs := range fields {
		form[k] = append([]string(nil), vs...)
	}
	form.Set("store_id", c.storeID)
	form.Set("store_passwd", c.storePassword)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.initiateURL, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return payments.InitResponse{}, fmt.Errorf("%w: build request: %v", payments.ErrProcessorUnreachable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	raw, err := c.do(req)
	if err != nil {
		return payments.InitResponse{}, err
	}

	return payments.InitResponse{
		Status:         str(raw, "status"),
		GatewayPageURL: str(raw, "GatewayPageURL"),
		SessionKey:     str(raw, "sessionkey"),
		FailedReason:   firstNonEmpty(str(raw, "failedreason"), str(raw, "message")),
		Raw:            raw,
	}, nil
}

func (c *Client) ValidateTransaction(ctx context.Context, valID string) (payments.ValidationResponse, error) {
	q := url.Values{}
	q.Set("val_id", valID)
	q.Set("store_id", c.storeID)
	q.Set("store_passwd", c.storePassword)
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.validateURL+"?"+q.Encode(), nil)
	if err != nil {
		return payments.ValidationResponse{}, fmt.Errorf("%w: build request: %v", payments.ErrProcessorUnreachable, err)
	}
	req.Header.Set("Accept", "application/json")

	raw, err := c.do(req)
	if err != nil {
		return payments.ValidationResponse{}, err
	}

	return payments.ValidationResponse{
		Status:         str(raw, "status"),
		TranID:         str(raw, "tran_id"),
		ValID:          str(raw, "val_id"),
		Amount:         str(raw, "amount"),
		StoreAmount:    str(raw, "store_amount"),
		CurrencyType:   str(raw, "currency_type"),
		CurrencyAmount: str(raw, "currency_amount"),
		BankTranID:     str(raw, "bank_tran_id"),
		CardType:       str(raw, "card_type"),
		Raw:            raw,
	}, nil
}

// do sends req and decodes a JSON object body. Every failure is reported as
// ErrProcessorUnreachable: the caller cannot tell a broken response from a
// missing one.
func (c *Client) do(req *http.Request) (map[string]any, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payments.ErrProcessorUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", payments.ErrProcessorUnreachable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: http %d", payments.ErrProcessorUnreachable, resp.StatusCode)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return nil, fmt.Errorf("%w: malformed response: %.120s", payments.ErrProcessorUnreachable, string(body))
	}
	return raw, nil
}

func str(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Package payment wraps the Crypto Bot invoice API
// (https://help.crypt.bot/crypto-pay-api).
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/evseev/channelgate/internal/domain"
)

const tokenHeader = "Crypto-Pay-API-Token"

type Client struct {
	baseURL    string
	token      string
	asset      string
	httpClient *http.Client
}

// NewClient builds a client that issues invoices in the given asset
// (e.g. USDT).
func NewClient(baseURL, token, asset string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		asset:      asset,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Enabled reports whether the client has credentials. Without a token
// payment tasks short-circuit as no-ops.
func (c *Client) Enabled() bool {
	return c.token != ""
}

// CreateInvoice creates a new invoice and returns it with its pay URL.
// The payload travels through the payment provider untouched and comes
// back with the invoice, which lets the purchase flow tie an invoice to
// its local payment row.
func (c *Client) CreateInvoice(ctx context.Context, amount decimal.Decimal, description, payload string) (*Invoice, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}

	req := map[string]any{
		"asset":       c.asset,
		"amount":      amount.String(),
		"description": description,
		"payload":     payload,
	}

	var invoice Invoice
	if err := c.call(ctx, "createInvoice", req, &invoice); err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	return &invoice, nil
}

// GetInvoiceStatus fetches the current status of one invoice.
func (c *Client) GetInvoiceStatus(ctx context.Context, invoiceID string) (string, error) {
	id, err := strconv.ParseInt(invoiceID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("parse invoice id %q: %w", invoiceID, err)
	}

	req := map[string]any{"invoice_ids": invoiceID}

	var result struct {
		Items []Invoice `json:"items"`
	}
	if err := c.call(ctx, "getInvoices", req, &result); err != nil {
		return "", fmt.Errorf("get invoices: %w", err)
	}

	for _, inv := range result.Items {
		if inv.InvoiceID == id {
			return inv.Status, nil
		}
	}
	return "", domain.ErrInvoiceNotFound
}

func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	payloadJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(payloadJSON))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(tokenHeader, c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var envelope struct {
		OK     bool            `json:"ok"`
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code int    `json:"code"`
			Name string `json:"name"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if !envelope.OK {
		if envelope.Error != nil {
			return fmt.Errorf("api error %d: %s", envelope.Error.Code, envelope.Error.Name)
		}
		return fmt.Errorf("api error: status %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return nil
}

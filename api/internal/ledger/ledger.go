// Package ledger talks to the ingestion service that durably records
// confirmed bets and wallet movements.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"slip-bot/api/internal/slip"
)

const (
	KindBetsCreate     = "bets_create"
	KindWalletDeposit  = "wallet_deposit"
	KindWalletWithdraw = "wallet_withdraw"
)

// Result is the ledger's verdict on one submitted item.
type Result struct {
	OK    bool   `json:"ok"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

// Error is a non-2xx answer from the ingestion service.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("ledger %d: %s", e.Status, e.Message)
}

type WalletEvent struct {
	Kind   string          `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
}

type Client struct {
	BaseURL string
	Token   string
	httpc   *http.Client
}

func New(baseURL, token string) *Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConnsPerHost:   16,
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		httpc:   &http.Client{Timeout: 60 * time.Second, Transport: tr},
	}
}

// WithHTTPClient overrides the internal HTTP client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	if h != nil {
		c.httpc = h
	}
	return c
}

type betsRequest struct {
	Kind    string            `json:"kind"`
	OwnerID string            `json:"owner_id"`
	Items   []slip.LedgerItem `json:"items"`
}

// CommitBets submits the items in one call. The ledger answers per item, so a
// nil error can still carry failed results.
func (c *Client) CommitBets(ctx context.Context, ownerID string, items []slip.LedgerItem) ([]Result, error) {
	raw, err := c.post(ctx, betsRequest{Kind: KindBetsCreate, OwnerID: ownerID, Items: items})
	if err != nil {
		return nil, err
	}
	return decodeResults(raw)
}

// Wallet records a deposit or withdrawal.
func (c *Client) Wallet(ctx context.Context, ownerID string, ev WalletEvent) error {
	body := struct {
		WalletEvent
		OwnerID string `json:"owner_id"`
	}{ev, ownerID}
	_, err := c.post(ctx, body)
	return err
}

func (c *Client) post(ctx context.Context, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("ledger: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/ingest", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ledger: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	return raw, nil
}

// decodeResults accepts either a bare array or {"results": [...]}.
func decodeResults(raw []byte) ([]Result, error) {
	raw = bytes.TrimSpace(raw)
	var out []Result
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("ledger: bad results: %w", err)
		}
		return out, nil
	}
	var env struct {
		Results []Result `json:"results"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("ledger: bad results: %w", err)
	}
	return env.Results, nil
}

func errorMessage(raw []byte) string {
	var env struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &env) == nil {
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 300 {
		s = s[:300] + "…"
	}
	return s
}

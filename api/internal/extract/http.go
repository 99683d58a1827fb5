package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"slip-bot/api/internal/slip"
	"slip-bot/api/internal/util"
)

// HTTPClient calls a remote extraction service.
type HTTPClient struct {
	BaseURL string
	Token   string
	httpc   *http.Client
}

func NewHTTP(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		httpc:   &http.Client{Timeout: 90 * time.Second},
	}
}

// WithHTTPClient overrides the internal HTTP client.
func (c *HTTPClient) WithHTTPClient(h *http.Client) *HTTPClient {
	if h != nil {
		c.httpc = h
	}
	return c
}

type extractRequest struct {
	ImageB64 string `json:"image_b64"`
	MIME     string `json:"mime"`
	BookHint string `json:"book_hint,omitempty"`
	Caption  string `json:"caption,omitempty"`
	OwnerID  string `json:"owner_id,omitempty"`
}

func (c *HTTPClient) Extract(ctx context.Context, img Image) (slip.Record, error) {
	payload, _ := json.Marshal(extractRequest{
		ImageB64: base64.StdEncoding.EncodeToString(img.Data),
		MIME:     util.PickMIME(img.MIME, img.Data),
		BookHint: img.BookHint,
		Caption:  img.Caption,
		OwnerID:  img.OwnerID,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/extract", bytes.NewReader(payload))
	if err != nil {
		return slip.Record{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return slip.Record{}, fmt.Errorf("extract: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return slip.Record{}, fmt.Errorf("extract: read body: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return slip.Record{}, ErrNotAuthorized
	case resp.StatusCode != http.StatusOK:
		msg := strings.TrimSpace(string(raw))
		if len(msg) > 300 {
			msg = msg[:300] + "…"
		}
		return slip.Record{}, fmt.Errorf("extract %d: %s", resp.StatusCode, msg)
	}
	return decodeRecord(raw)
}

// decodeRecord accepts {"record": {...}, "confidence": x} or a bare record.
func decodeRecord(raw []byte) (slip.Record, error) {
	var env struct {
		Record     *wireRecord `json:"record"`
		Confidence *float64    `json:"confidence"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return slip.Record{}, fmt.Errorf("extract: bad JSON: %w", err)
	}
	if env.Record != nil {
		r := env.Record.record()
		if r.Confidence == nil {
			r.Confidence = env.Confidence
		}
		return r, nil
	}
	var w wireRecord
	if err := json.Unmarshal(raw, &w); err != nil {
		return slip.Record{}, fmt.Errorf("extract: bad JSON: %w", err)
	}
	return w.record(), nil
}

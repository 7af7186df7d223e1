package paygate

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

	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

var _ interfaces.PaymentProcessorClient = (*Client)(nil)

type customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type initializeRequest struct {
	MerchantRef string   `json:"merchant_ref"`
	Currency    string   `json:"currency"`
	Amount      string   `json:"amount"`
	Customer    customer `json:"customer"`
	ReturnURL   string   `json:"return_url,omitempty"`
	CancelURL   string   `json:"cancel_url,omitempty"`
	NotifyURL   string   `json:"notify_url,omitempty"`
	Channels    []string `json:"channels"`
}

type initializeResponse struct {
	Reference   string `json:"reference"`
	RedirectURL string `json:"redirect_url"`
}

type statusResponse struct {
	Payment struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Channel   string `json:"channel"`
	} `json:"payment"`
}

func (c *Client) InitializeTransaction(ctx context.Context, req interfaces.InitializeTransactionRequest) (*interfaces.InitializeTransactionResult, error) {
	body := initializeRequest{
		MerchantRef: req.MerchantRef,
		Currency:    req.Currency,
		Amount:      req.Amount.StringFixed(2),
		Customer:    customer{Name: req.Customer.Name, Email: req.Customer.Email},
		ReturnURL:   req.ReturnURL,
		CancelURL:   req.CancelURL,
		NotifyURL:   req.NotifyURL,
		Channels:    req.Channels,
	}

	var out initializeResponse
	if err := c.do(ctx, http.MethodPost, "/transactions/initialize", body, &out); err != nil {
		return nil, err
	}
	if out.Reference == "" || out.RedirectURL == "" {
		return nil, domain.Wrap(domain.ErrGatewayRejected, fmt.Errorf("incomplete initialize response"))
	}

	return &interfaces.InitializeTransactionResult{Reference: out.Reference, RedirectURL: out.RedirectURL}, nil
}

func (c *Client) CheckStatus(ctx context.Context, reference string) (*interfaces.TransactionStatus, error) {
	var out statusResponse
	if err := c.do(ctx, http.MethodGet, "/transactions/"+url.PathEscape(reference), nil, &out); err != nil {
		return nil, err
	}

	ref := out.Payment.Reference
	if ref == "" {
		ref = reference
	}
	return &interfaces.TransactionStatus{Reference: ref, Status: out.Payment.Status, Channel: out.Payment.Channel}, nil
}

// do sends one JSON request. Transport failures and timeouts map to ErrGatewayUnavailable,
// non-2xx answers and undecodable bodies to ErrGatewayRejected.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal gateway request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Wrap(domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Wrap(domain.ErrGatewayRejected,
			fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg))))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.Wrap(domain.ErrGatewayRejected, fmt.Errorf("failed to decode gateway response: %w", err))
	}
	return nil
}

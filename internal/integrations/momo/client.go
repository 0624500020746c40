package momo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Nzyazin/momopay/internal/core/logger"
	"github.com/Nzyazin/momopay/pkg/config"
)

const (
	headerSubscriptionKey   = "Ocp-Apim-Subscription-Key"
	headerTargetEnvironment = "X-Target-Environment"
	headerReferenceID       = "X-Reference-Id"

	maxResponseBody = 1 << 20
)

var (
	// ErrAuthentication is returned when no access token could be obtained.
	ErrAuthentication = errors.New("momo authentication failed")
	ErrNotFound       = errors.New("momo request not found")
)

// APIError is a non-success HTTP answer from the provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("momo api returned %d: %s", e.StatusCode, e.Body)
}

type Party struct {
	PartyIDType string `json:"partyIdType"`
	PartyID     string `json:"partyId"`
}

type RequestToPay struct {
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	ExternalID   string `json:"externalId"`
	Payer        Party  `json:"payer"`
	PayerMessage string `json:"payerMessage"`
	PayeeNote    string `json:"payeeNote"`
}

type RequestToPayStatus struct {
	Amount                 string          `json:"amount"`
	Currency               string          `json:"currency"`
	FinancialTransactionID string          `json:"financialTransactionId"`
	ExternalID             string          `json:"externalId"`
	Payer                  Party           `json:"payer"`
	PayerMessage           string          `json:"payerMessage"`
	PayeeNote              string          `json:"payeeNote"`
	Status                 string          `json:"status"`
	Reason                 json.RawMessage `json:"reason,omitempty"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Client talks to the collection product of the Mobile Money API.
type Client struct {
	cfg    config.MomoConfig
	client *http.Client
	log    logger.Logger
}

func NewClient(cfg config.MomoConfig, log logger.Logger) *Client {
	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		log: log,
	}
}

// AccessToken exchanges the API user credentials for a bearer token.
// Tokens are not cached; every call hits the token endpoint.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/collection/token/", nil)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrAuthentication, err)
	}
	req.Header.Set("Authorization", "Basic "+basicCredentials(c.cfg.APIUserID, c.cfg.APIKey))
	req.Header.Set(headerSubscriptionKey, c.cfg.SubscriptionKey)

	status, body, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	if status < 200 || status > 299 {
		return "", fmt.Errorf("%w: %v", ErrAuthentication, &APIError{StatusCode: status, Body: body})
	}

	var tr tokenResponse
	if err := json.Unmarshal([]byte(body), &tr); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", ErrAuthentication, err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrAuthentication)
	}

	return tr.AccessToken, nil
}

// RequestToPay submits a collection request. The provider accepts it
// asynchronously with 202; anything else comes back as *APIError.
func (c *Client) RequestToPay(ctx context.Context, token, referenceID string, payload RequestToPay) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request to pay: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/collection/v1_0/requesttopay", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build request to pay: %w", err)
	}
	c.setAPIHeaders(req, token)
	req.Header.Set(headerReferenceID, referenceID)
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug("Submitting request to pay",
		logger.StringField("reference_id", referenceID),
		logger.StringField("external_id", payload.ExternalID))

	status, body, err := c.do(req)
	if err != nil {
		return err
	}
	if status != http.StatusAccepted {
		return &APIError{StatusCode: status, Body: body}
	}

	return nil
}

// RequestToPayStatus fetches the provider's view of a previously submitted request.
func (c *Client) RequestToPayStatus(ctx context.Context, token, referenceID string) (*RequestToPayStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/collection/v1_0/requesttopay/"+referenceID, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}
	c.setAPIHeaders(req, token)

	status, body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, referenceID)
	case status != http.StatusOK:
		return nil, &APIError{StatusCode: status, Body: body}
	}

	var result RequestToPayStatus
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}

	return &result, nil
}

func (c *Client) setAPIHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(headerSubscriptionKey, c.cfg.SubscriptionKey)
	if c.cfg.TargetEnvironment != "" {
		req.Header.Set(headerTargetEnvironment, c.cfg.TargetEnvironment)
	}
}

func (c *Client) do(req *http.Request) (int, string, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return 0, "", fmt.Errorf("read response: %w", err)
	}

	return resp.StatusCode, strings.TrimSpace(string(body)), nil
}

func basicCredentials(userID, apiKey string) string {
	return base64.StdEncoding.EncodeToString([]byte(userID + ":" + apiKey))
}

package witness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/cuongbtq/geophoto-worker/internal/worker/domain"
)

const maxResponseBytes = 10 << 20

// Config holds HTTP client settings
type Config struct {
	PhotoAPI      string
	BlockchainAPI string
	Signer        Signer
	Timeout       time.Duration
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

// HTTPClient talks to the photo service over JSON/HTTPS. The session cookie
// set by login is kept in a cookie jar.
type HTTPClient struct {
	baseURL       string
	blockchainAPI string
	signer        Signer
	http          *http.Client
	logger        *slog.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a new photo service client
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	if cfg.PhotoAPI == "" {
		return nil, errors.New("photo api url is required")
	}
	if cfg.Signer == nil {
		return nil, errors.New("signer is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPClient{
		baseURL:       strings.TrimRight(cfg.PhotoAPI, "/"),
		blockchainAPI: cfg.BlockchainAPI,
		signer:        cfg.Signer,
		http:          httpClient,
		logger:        logger,
	}, nil
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Login performs the pre-login challenge and signs it
func (c *HTTPClient) Login(ctx context.Context) (bool, error) {
	publicKey := c.signer.PublicKey()

	preLogin := map[string]any{
		"role":            "app",
		"keyType":         "ethereum",
		"publicKey":       publicKey,
		"clientPublicKey": "0",
		"walletPublicKey": map[string]string{"ethereum": publicKey},
	}

	var challenge struct {
		Message string `json:"message"`
	}
	if err := c.post(ctx, "pre-login", preLogin, &challenge); err != nil {
		return false, err
	}
	if challenge.Message == "" {
		return false, &APIError{Operation: "pre-login", Message: "empty challenge"}
	}

	signature, err := c.signer.Sign([]byte(challenge.Message))
	if err != nil {
		return false, fmt.Errorf("failed to sign login challenge: %w", err)
	}

	var result struct {
		Success bool `json:"success"`
	}
	if err := c.post(ctx, "login", map[string]string{"signature": signature}, &result); err != nil {
		return false, err
	}

	c.logger.Debug("Login completed",
		slog.String("public_key", publicKey),
		slog.String("blockchain_api", c.blockchainAPI),
		slog.Bool("success", result.Success),
	)
	return result.Success, nil
}

func (c *HTTPClient) GetCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	var campaigns []domain.Campaign
	if err := c.post(ctx, "campaigns", map[string]any{}, &campaigns); err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (c *HTTPClient) CreateCampaign(ctx context.Context, req domain.CampaignRequest) (*domain.CreateCampaignResult, error) {
	var raw json.RawMessage
	if err := c.post(ctx, "create-campaign", req, &raw); err != nil {
		return nil, err
	}

	success, message, err := decodeVerdict(raw)
	if err != nil {
		return nil, fmt.Errorf("create-campaign: %w", err)
	}
	return &domain.CreateCampaignResult{Success: success, Message: message}, nil
}

func (c *HTTPClient) GetCampaignPhotos(ctx context.Context, campaign string, since domain.Cursor) ([]domain.Photo, error) {
	body := map[string]any{
		"campaign": campaign,
		"since":    nil,
	}
	if !since.IsZero() {
		body["since"] = since.String()
	}

	var photos []domain.Photo
	if err := c.post(ctx, "photo-feed-from-campaign", body, &photos); err != nil {
		return nil, err
	}
	return photos, nil
}

func (c *HTTPClient) Classify(ctx context.Context, photoID string) (*domain.Classification, error) {
	return c.photoVerdict(ctx, "classify-photo", photoID)
}

func (c *HTTPClient) Accept(ctx context.Context, photoID string) (*domain.Classification, error) {
	return c.photoVerdict(ctx, "accept-photo", photoID)
}

func (c *HTTPClient) photoVerdict(ctx context.Context, operation, photoID string) (*domain.Classification, error) {
	var raw json.RawMessage
	if err := c.post(ctx, operation, map[string]string{"photo": photoID}, &raw); err != nil {
		return nil, err
	}

	ok, message, err := decodeVerdict(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return &domain.Classification{Verified: ok, Success: ok, Message: message}, nil
}

// decodeVerdict accepts either a bare boolean or an object carrying
// "verified" and/or "success"
func decodeVerdict(raw json.RawMessage) (bool, string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return false, "", nil
	}

	var flag bool
	if err := json.Unmarshal(raw, &flag); err == nil {
		return flag, "", nil
	}

	var obj struct {
		Verified *bool  `json:"verified"`
		Success  *bool  `json:"success"`
		Message  string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false, "", fmt.Errorf("failed to decode verdict: %w", err)
	}

	switch {
	case obj.Verified != nil:
		return *obj.Verified, obj.Message, nil
	case obj.Success != nil:
		return *obj.Success, obj.Message, nil
	}
	return false, obj.Message, nil
}

func (c *HTTPClient) post(ctx context.Context, operation string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: failed to encode request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+operation, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: failed to read response: %w", operation, err)
	}

	c.logger.Debug("Photo service call",
		slog.String("operation", operation),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(data), 512),
		}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", operation, err)
	}
	if env.Error != nil {
		return &APIError{Operation: operation, Message: env.Error.Message}
	}

	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("%s: failed to decode result: %w", operation, err)
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

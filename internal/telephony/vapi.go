package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultVapiBaseURL = "https://api.vapi.ai"

	// maxErrorBody bounds how much of a failed response is kept for logs.
	maxErrorBody = 4 << 10
)

// VapiProvider originates calls through the Vapi REST API.
type VapiProvider struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

func NewVapiProvider(apiKey, baseURL string) *VapiProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultVapiBaseURL
	}
	return &VapiProvider{
		APIKey:  apiKey,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *VapiProvider) Name() string { return "vapi" }

// Configured reports whether an API key is present.
func (p *VapiProvider) Configured() bool {
	return p != nil && strings.TrimSpace(p.APIKey) != ""
}

func (p *VapiProvider) CreateOutboundCall(ctx context.Context, req OutboundCallRequest) (OutboundCallResult, error) {
	if !p.Configured() {
		return OutboundCallResult{}, ErrNotConfigured
	}
	if err := req.validate(); err != nil {
		return OutboundCallResult{}, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return OutboundCallResult{}, fmt.Errorf("telephony: encode vapi request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/call", bytes.NewReader(body))
	if err != nil {
		return OutboundCallResult{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return OutboundCallResult{}, fmt.Errorf("telephony: vapi request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return OutboundCallResult{}, &ProviderError{Provider: p.Name(), Status: resp.StatusCode, Body: string(b)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return OutboundCallResult{}, fmt.Errorf("telephony: read vapi response: %w", err)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return OutboundCallResult{}, fmt.Errorf("telephony: decode vapi response: %w", err)
	}
	if out.ID == "" {
		return OutboundCallResult{}, ErrMissingCallID
	}
	return OutboundCallResult{ProviderCallID: out.ID, Raw: raw}, nil
}

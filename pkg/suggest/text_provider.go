package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// textProvider speaks a single-flattened-prompt generate API with the
// key passed as a query parameter.
type textProvider struct {
	name       string
	apiKey     string
	apiBase    string
	model      string
	httpClient *http.Client
}

func NewTextProvider(name, apiKey, apiBase, model string) Provider {
	return &textProvider{
		name:       name,
		apiKey:     strings.TrimSpace(apiKey),
		apiBase:    strings.TrimRight(strings.TrimSpace(apiBase), "/"),
		model:      model,
		httpClient: &http.Client{},
	}
}

func (p *textProvider) Name() string { return p.name }

func (p *textProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if p.apiBase == "" {
		return "", providerError(p.name, fmt.Errorf("API base not configured"))
	}
	if p.apiKey == "" {
		return "", providerError(p.name, fmt.Errorf("API key not configured"))
	}

	requestBody := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": prompt.Flatten()}}},
		},
		"generationConfig": map[string]any{
			"maxOutputTokens": 120,
			"temperature":     0.7,
		},
	}
	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", providerError(p.name, fmt.Errorf("marshal request: %w", err))
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		p.apiBase, url.PathEscape(p.model), url.QueryEscape(p.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", providerError(p.name, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", providerError(p.name, fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", providerError(p.name, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return "", providerError(p.name, fmt.Errorf("status %d: %s", resp.StatusCode, truncateBody(body)))
	}

	var apiResponse struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return "", providerError(p.name, fmt.Errorf("unmarshal response: %w", err))
	}
	if len(apiResponse.Candidates) == 0 || len(apiResponse.Candidates[0].Content.Parts) == 0 {
		return "", providerError(p.name, fmt.Errorf("empty response"))
	}
	text := apiResponse.Candidates[0].Content.Parts[0].Text
	if strings.TrimSpace(text) == "" {
		return "", providerError(p.name, fmt.Errorf("empty response"))
	}

	return postProcess(text), nil
}

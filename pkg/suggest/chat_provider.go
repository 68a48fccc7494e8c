package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// chatProvider speaks the chat-completions shape: structured turn
// history, bearer-token auth.
type chatProvider struct {
	name       string
	apiKey     string
	apiBase    string
	model      string
	httpClient *http.Client
}

func NewChatProvider(name, apiKey, apiBase, model string) Provider {
	return &chatProvider{
		name:       name,
		apiKey:     strings.TrimSpace(apiKey),
		apiBase:    strings.TrimRight(strings.TrimSpace(apiBase), "/"),
		model:      model,
		httpClient: &http.Client{},
	}
}

func (p *chatProvider) Name() string { return p.name }

func (p *chatProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if p.apiBase == "" {
		return "", providerError(p.name, fmt.Errorf("API base not configured"))
	}
	if p.apiKey == "" {
		return "", providerError(p.name, fmt.Errorf("API key not configured"))
	}

	type message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	messages := []message{{
		Role: "system",
		Content: "You suggest one short chat reply. Style: " + prompt.styleDirective() +
			". Respond with the reply text only.",
	}}
	for _, t := range prompt.Turns {
		role := "user"
		if t.Role == "me" {
			role = "assistant"
		}
		messages = append(messages, message{Role: role, Content: t.Text})
	}
	messages = append(messages, message{Role: "user", Content: prompt.LastMessage})

	requestBody := map[string]any{
		"model":       p.model,
		"messages":    messages,
		"max_tokens":  120,
		"temperature": 0.7,
	}
	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", providerError(p.name, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", providerError(p.name, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

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
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return "", providerError(p.name, fmt.Errorf("unmarshal response: %w", err))
	}
	if len(apiResponse.Choices) == 0 || strings.TrimSpace(apiResponse.Choices[0].Message.Content) == "" {
		return "", providerError(p.name, fmt.Errorf("empty response"))
	}

	return postProcess(apiResponse.Choices[0].Message.Content), nil
}

func truncateBody(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}

package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wonny/delphi/v2/backend/pkg/logger"
)

// LLMConfig configures one chat-completion provider
type LLMConfig struct {
	Provider    string // "openai" or "anthropic"
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// LLMClient calls one chat-completion provider
// ⭐ SSOT: LLM API 호출은 이 클라이언트에서만
type LLMClient struct {
	config LLMConfig
	client *http.Client
	logger *logger.Logger
}

// NewLLMClient creates a provider client with its own HTTP client;
// LLM responses are slow enough that the shared retrying client's
// defaults don't fit.
func NewLLMClient(config LLMConfig, log *logger.Logger) *LLMClient {
	if config.MaxTokens == 0 {
		config.MaxTokens = 1024
	}
	if config.Timeout == 0 {
		config.Timeout = 20 * time.Second
	}

	return &LLMClient{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: log,
	}
}

// Complete sends one system+user exchange and returns the text reply
func (c *LLMClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	switch c.config.Provider {
	case "openai":
		return c.callOpenAI(ctx, system, prompt)
	case "anthropic":
		return c.callAnthropic(ctx, system, prompt)
	default:
		return "", fmt.Errorf("unknown provider: %s", c.config.Provider)
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *LLMClient) callOpenAI(ctx context.Context, system, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model": c.config.Model,
		"messages": []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		"max_tokens":  c.config.MaxTokens,
		"temperature": c.config.Temperature,
	}

	body, _ := json.Marshal(reqBody)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("OpenAI API error %d: %s", resp.StatusCode, string(errBody))
	}

	var openaiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&openaiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(openaiResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return openaiResp.Choices[0].Message.Content, nil
}

func (c *LLMClient) callAnthropic(ctx context.Context, system, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model":      c.config.Model,
		"max_tokens": c.config.MaxTokens,
		"system":     system,
		"messages": []chatMessage{
			{Role: "user", Content: prompt},
		},
	}

	body, _ := json.Marshal(reqBody)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.config.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Anthropic API error %d: %s", resp.StatusCode, string(errBody))
	}

	var anthropicResp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&anthropicResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	content := ""
	for _, block := range anthropicResp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}
	if content == "" {
		return "", fmt.Errorf("empty response content")
	}

	return content, nil
}

package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ppiankov/deskbridge/internal/redact"
)

// HTTPConfig holds parameters for an OpenAI-compatible chat endpoint
// (Ollama, Groq, vLLM and friends speak the same dialect).
type HTTPConfig struct {
	Name      string        `yaml:"name"`
	APIURL    string        `yaml:"api_url"`
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// HTTP is a chat-completions provider. Describe attaches the redacted
// frame as an inline PNG; Plan and Execute are text-only.
type HTTP struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTP creates an HTTP provider with defaults applied.
func NewHTTP(cfg HTTPConfig) *HTTP {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 600
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &HTTP{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *HTTP) Name() string { return p.cfg.Name }

func (p *HTTP) Describe(ctx context.Context, frame *redact.Frame, prompt string) (string, error) {
	data, err := frame.PNG()
	if err != nil {
		return "", err
	}
	imageURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)

	messages := []map[string]any{
		{
			"role": "user",
			"content": []map[string]any{
				{"type": "text", "text": prompt},
				{"type": "image_url", "image_url": map[string]string{"url": imageURL}},
			},
		},
	}
	return p.chat(ctx, messages)
}

func (p *HTTP) Plan(ctx context.Context, prompt string) (string, error) {
	return p.chat(ctx, []map[string]any{{"role": "user", "content": prompt}})
}

func (p *HTTP) Execute(ctx context.Context, prompt string) (string, error) {
	return p.chat(ctx, []map[string]any{{"role": "user", "content": prompt}})
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *HTTP) chat(ctx context.Context, messages []map[string]any) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model":       p.cfg.Model,
		"messages":    messages,
		"max_tokens":  p.cfg.MaxTokens,
		"temperature": 0,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call %s: %w", p.cfg.Name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s returned HTTP %d: %s", p.cfg.Name, resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", p.cfg.Name)
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPProcessor talks to the AI backend over plain HTTP. The backend contract
// is a POST per modality returning {"result": "..."}.
type HTTPProcessor struct {
	baseURL string
	client  *http.Client
}

func NewHTTPProcessor(baseURL string, timeout time.Duration) *HTTPProcessor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPProcessor{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type processResult struct {
	Result string `json:"result"`
}

func (p *HTTPProcessor) ProcessText(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/text", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	return p.do(req)
}

func (p *HTTPProcessor) ProcessImage(ctx context.Context, image []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/image", bytes.NewReader(image))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)

	return p.do(req)
}

func (p *HTTPProcessor) do(req *http.Request) (string, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai backend request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ai backend returned status %d", resp.StatusCode)
	}

	var out processResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ai backend response: %w", err)
	}
	return out.Result, nil
}

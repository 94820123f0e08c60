package llm

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

// DefaultOllamaHost is the address `ollama serve` listens on
const DefaultOllamaHost = "http://localhost:11434"

// maxResponseBytes caps how much of a response body is read
const maxResponseBytes = 1 << 20

// OllamaClient talks to the Ollama HTTP API
type OllamaClient struct {
	host       string
	model      string
	httpClient *http.Client
}

// NewOllamaClient creates a client for model served at host
func NewOllamaClient(host, model string, timeout time.Duration) *OllamaClient {
	if host == "" {
		host = DefaultOllamaHost
	}
	return &OllamaClient{
		host:       strings.TrimSuffix(host, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name implements Analyzer
func (c *OllamaClient) Name() string {
	return "ollama"
}

type tagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// modelMatches treats "tinyllama" and "tinyllama:latest" as the same model
func modelMatches(installed, wanted string) bool {
	if strings.EqualFold(installed, wanted) {
		return true
	}
	base, _, _ := strings.Cut(installed, ":")
	return !strings.Contains(wanted, ":") && strings.EqualFold(base, wanted)
}

// Available checks that the server is up and the model is installed
func (c *OllamaClient) Available(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama not reachable at %s: %w", c.host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned %d", resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&tags); err != nil {
		return fmt.Errorf("failed to decode model list: %w", err)
	}
	for _, m := range tags.Models {
		if modelMatches(m.Name, c.model) || modelMatches(m.Model, c.model) {
			return nil
		}
	}
	return fmt.Errorf("model %s not installed, run: ollama pull %s", c.model, c.model)
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Analyze implements Analyzer using a non-streaming /api/generate call
func (c *OllamaClient) Analyze(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var out generateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || out.Error != "" {
		return "", fmt.Errorf("ollama returned %d: %s", resp.StatusCode, out.Error)
	}
	return out.Response, nil
}

// Package azureai is a minimal Azure OpenAI REST client covering the two
// provider operations the retrieval core consumes: batch embeddings and chat
// completions. Requests and responses are modeled as explicit structs so a
// renamed or missing field fails at compile time, not at runtime.
package azureai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/gurukul-labs/gurukul/internal/log"
)

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config holds the connection settings for one Azure OpenAI resource.
type Config struct {
	// Endpoint is the resource base URL, e.g. https://myresource.openai.azure.com
	Endpoint string
	// APIKey is sent in the api-key header on every request.
	APIKey string
	// APIVersion is the api-version query parameter.
	APIVersion string
	// EmbedDeployment is the embedding model deployment name.
	EmbedDeployment string
	// ChatDeployment is the chat completion model deployment name.
	ChatDeployment string
}

// Client calls Azure OpenAI over HTTPS. It is safe for concurrent use.
// Construct one per process and pass it by reference to every component
// that needs it.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     log.Logger
}

// New creates a Client. A nil logger falls back to a no-op logger.
func New(cfg Config, logger log.Logger) *Client {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

type embeddingRequest struct {
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type chatRequest struct {
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Message Message `json:"message"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Embed maps a batch of texts to one vector per text, preserving input
// order. The provider tags each result vector with its input position; the
// response is re-sorted by that tag rather than trusting wire order. An
// empty batch returns an empty result without a provider call.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp embeddingResponse
	if err := c.post(ctx, c.cfg.EmbedDeployment, "embeddings", embeddingRequest{Input: texts}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("embedding request failed: %s (%s)", resp.Error.Message, resp.Error.Code)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })

	vectors := make([][]float32, len(texts))
	for i, d := range resp.Data {
		if d.Index != i {
			return nil, fmt.Errorf("embedding response index %d out of range for %d inputs", d.Index, len(texts))
		}
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// Complete sends role-tagged messages to the chat deployment and returns
// the first choice's content verbatim.
func (c *Client) Complete(ctx context.Context, messages []Message, temperature float32) (string, error) {
	var resp chatResponse
	req := chatRequest{Messages: messages, Temperature: temperature}
	if err := c.post(ctx, c.cfg.ChatDeployment, "chat/completions", req, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("chat request failed: %s (%s)", resp.Error.Message, resp.Error.Code)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat response contains no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// post issues one JSON request against a deployment operation and decodes
// the response body into out. Non-2xx statuses become errors carrying the
// (truncated) response body.
func (c *Client) post(ctx context.Context, deployment, operation string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", operation, err)
	}

	u := fmt.Sprintf("%s/openai/deployments/%s/%s?api-version=%s",
		c.cfg.Endpoint, url.PathEscape(deployment), operation, url.QueryEscape(c.cfg.APIVersion))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.cfg.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", operation, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", operation, err)
	}

	c.logger.Debug("azure openai call",
		"operation", operation,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d: %s", operation, resp.StatusCode, truncate(respBody, 200))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", operation, err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

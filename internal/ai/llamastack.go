package ai

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

// requestTimeout is deliberately generous: model inference against a loaded
// backend can take well over a minute. A timeout surfaces as a request
// failure; the client never retries.
const requestTimeout = 120 * time.Second

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Auth carries the process-wide credentials attached to every request.
type Auth struct {
	APIKey       string
	ProviderData map[string]string
}

// APIError is a non-success response from Llama Stack. The status and body
// are preserved so callers can propagate them.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llama stack responded %d: %s", e.StatusCode, e.Body)
}

// Client talks to one Llama Stack instance. Each session holds its own client
// bound to the session's base URL.
type Client struct {
	baseURL    string
	auth       Auth
	httpClient *http.Client
}

func NewClient(baseURL string, auth Auth) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		auth:       auth,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListModels probes the model-listing endpoint; it is used purely as a
// connectivity check during initialization.
func (c *Client) ListModels(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/v1/models", nil, nil)
}

type Provider struct {
	API        string `json:"api"`
	ProviderID string `json:"provider_id"`
}

func (c *Client) ListProviders(ctx context.Context) ([]Provider, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/v1/providers", nil, &raw); err != nil {
		return nil, err
	}
	return normalizeProviders(raw), nil
}

type VectorDBRegistration struct {
	VectorDBID         string `json:"vector_db_id"`
	ProviderID         string `json:"provider_id"`
	EmbeddingModel     string `json:"embedding_model"`
	EmbeddingDimension int    `json:"embedding_dimension"`
}

func (c *Client) RegisterVectorDB(ctx context.Context, registration VectorDBRegistration) error {
	return c.do(ctx, http.MethodPost, "/v1/vector-dbs", registration, nil)
}

// Document is an in-memory reference document submitted for ingestion. These
// are built once during initialization and never re-sent.
type Document struct {
	DocumentID string            `json:"document_id"`
	Content    string            `json:"content"`
	MimeType   string            `json:"mime_type"`
	Metadata   map[string]string `json:"metadata"`
}

type insertRequest struct {
	VectorDBID        string     `json:"vector_db_id"`
	Documents         []Document `json:"documents"`
	ChunkSizeInTokens int        `json:"chunk_size_in_tokens"`
}

func (c *Client) Insert(ctx context.Context, vectorDBID string, documents []Document, chunkSizeInTokens int) error {
	return c.do(ctx, http.MethodPost, "/v1/tool-runtime/rag-tool/insert", insertRequest{
		VectorDBID:        vectorDBID,
		Documents:         documents,
		ChunkSizeInTokens: chunkSizeInTokens,
	}, nil)
}

type ragQueryRequest struct {
	Content     string   `json:"content"`
	VectorDBIDs []string `json:"vector_db_ids"`
}

// RAGQueryResponse keeps the result chunks raw; their shape varies by backend
// and is flattened by ExtractRAGContext.
type RAGQueryResponse struct {
	Content json.RawMessage `json:"content"`
	Results json.RawMessage `json:"results"`
}

func (c *Client) QueryRAG(ctx context.Context, vectorDBID, content string) (*RAGQueryResponse, error) {
	var resp RAGQueryResponse
	err := c.do(ctx, http.MethodPost, "/v1/tool-runtime/rag-tool/query", ragQueryRequest{
		Content:     content,
		VectorDBIDs: []string{vectorDBID},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

type chatCompletionRequest struct {
	ModelID  string        `json:"model_id"`
	Messages []ChatMessage `json:"messages"`
}

// ChatCompletion returns the raw response body; ExtractAnswer copes with the
// shape conventions different backends use.
func (c *Client) ChatCompletion(ctx context.Context, modelID string, messages []ChatMessage) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.do(ctx, http.MethodPost, "/v1/inference/chat-completion", chatCompletionRequest{
		ModelID:  modelID,
		Messages: messages,
	}, &raw)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request failed: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request failed: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.auth.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.auth.APIKey)
	}
	if len(c.auth.ProviderData) > 0 {
		providerData, err := json.Marshal(c.auth.ProviderData)
		if err != nil {
			return fmt.Errorf("marshal provider data failed: %w", err)
		}
		req.Header.Set("X-LlamaStack-Provider-Data", string(providerData))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("llama stack request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read llama stack response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse llama stack response failed: %w", err)
	}
	return nil
}

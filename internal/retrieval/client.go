// Package retrieval wraps the external document-retrieval service behind a
// typed client. The service owns documents and their processing lifecycle;
// this client only translates calls into authenticated HTTP requests and
// reports failures truthfully. Retry and degradation policy belong to the
// caller.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/flowhq/ragchat/internal/domain"
)

// Retriever is the part of the client the chat orchestration depends on.
type Retriever interface {
	Retrieve(ctx context.Context, query string, opts RetrieveOptions) ([]domain.RetrievedChunk, error)
}

// RetrieveOptions controls a retrieval query.
type RetrieveOptions struct {
	Rerank bool
	TopK   int
	// DocumentID restricts retrieval to a single document when set.
	DocumentID string
}

// Client talks to the retrieval service with a bearer credential.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpc = c }
}

// NewClient creates a retrieval client for the given base URL and API key.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type listDocumentsResponse struct {
	Documents []documentPayload `json:"documents"`
}

type documentPayload struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Status     string         `json:"status"`
	ChunkCount int            `json:"chunk_count"`
	Metadata   map[string]any `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (p documentPayload) toDomain() domain.Document {
	return domain.Document{
		ID:         p.ID,
		Name:       p.Name,
		Status:     p.Status,
		ChunkCount: p.ChunkCount,
		Metadata:   p.Metadata,
		CreatedAt:  p.CreatedAt,
	}
}

type retrievalsRequest struct {
	Query  string           `json:"query"`
	Rerank bool             `json:"rerank"`
	TopK   int              `json:"top_k,omitempty"`
	Filter *retrievalFilter `json:"filter,omitempty"`
}

type retrievalFilter struct {
	DocumentID string `json:"document_id,omitempty"`
}

type retrievalsResponse struct {
	ScoredChunks []scoredChunkPayload `json:"scored_chunks"`
}

type scoredChunkPayload struct {
	Text         string  `json:"text"`
	Score        float64 `json:"score"`
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
}

// ListDocuments returns all documents known to the retrieval service. No
// server-side filtering is offered; callers filter by metadata themselves.
func (c *Client) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	var resp listDocumentsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/documents", nil, &resp); err != nil {
		return nil, err
	}
	docs := make([]domain.Document, len(resp.Documents))
	for i, p := range resp.Documents {
		docs[i] = p.toDomain()
	}
	return docs, nil
}

// GetDocument fetches a single document by id.
func (c *Client) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	var p documentPayload
	if err := c.doJSON(ctx, http.MethodGet, "/documents/"+id, nil, &p); err != nil {
		return nil, err
	}
	doc := p.toDomain()
	return &doc, nil
}

// GetDocumentContent fetches the full extracted text of a document.
func (c *Client) GetDocumentContent(ctx context.Context, id string) (string, error) {
	var resp struct {
		Content string `json:"content"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/documents/"+id+"/content", nil, &resp); err != nil {
		return "", err
	}
	return resp.Content, nil
}

// UpdateDocument patches a document's name and metadata.
func (c *Client) UpdateDocument(ctx context.Context, id, name string, metadata map[string]any) (*domain.Document, error) {
	body := map[string]any{"name": name, "metadata": metadata}
	var p documentPayload
	if err := c.doJSON(ctx, http.MethodPatch, "/documents/"+id, body, &p); err != nil {
		return nil, err
	}
	doc := p.toDomain()
	return &doc, nil
}

// DeleteDocument deletes a document. Deleting an id the service no longer
// knows surfaces as an upstream error; the service does not treat delete as
// idempotent and neither does this client.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/documents/"+id, nil, nil)
}

// UploadDocument sends a multipart upload. Metadata is JSON-stringified
// into a single form field, matching what the service expects.
func (c *Client) UploadDocument(ctx context.Context, filename string, file io.Reader, metadata map[string]any) (*domain.Document, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := io.Copy(fw, file); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := mw.WriteField("metadata", string(metaJSON)); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := mw.WriteField("mode", "fast"); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/documents", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var p documentPayload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	doc := p.toDomain()
	return &doc, nil
}

// Retrieve runs a relevance query and returns scored chunks in the order
// the service ranked them. Every call is a fresh network round-trip; there
// is no local cache and no retry.
func (c *Client) Retrieve(ctx context.Context, query string, opts RetrieveOptions) ([]domain.RetrievedChunk, error) {
	body := retrievalsRequest{
		Query:  query,
		Rerank: opts.Rerank,
		TopK:   opts.TopK,
	}
	if opts.DocumentID != "" {
		body.Filter = &retrievalFilter{DocumentID: opts.DocumentID}
	}

	var resp retrievalsResponse
	if err := c.doJSON(ctx, http.MethodPost, "/retrievals", body, &resp); err != nil {
		return nil, err
	}

	chunks := make([]domain.RetrievedChunk, len(resp.ScoredChunks))
	for i, sc := range resp.ScoredChunks {
		chunks[i] = domain.RetrievedChunk{
			Text:         sc.Text,
			Score:        sc.Score,
			DocumentID:   sc.DocumentID,
			DocumentName: sc.DocumentName,
		}
	}
	return chunks, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("retrieval request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// checkStatus maps non-2xx responses to domain errors. 404 becomes
// ErrNotFound; everything else carries the service's {detail} text.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return domain.ErrNotFound
	}

	detail := resp.Status
	var errBody struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errBody); err == nil && errBody.Detail != "" {
		detail = errBody.Detail
	}
	return &domain.UpstreamError{Status: resp.StatusCode, Detail: detail}
}

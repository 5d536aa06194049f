// Package gateway talks to the persona analysis service over HTTP.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kalambet/redpersona/internal/persona"
)

// maxReportSize bounds a downloaded report; reports are a few kilobytes of text.
const maxReportSize = 32 << 20

// maxErrorBodySize bounds how much of an error body is read to find the detail field.
const maxErrorBodySize = 64 << 10

// Client communicates with the analysis service. It does not interpret persona
// data beyond decoding it.
type Client struct {
	baseURL    string
	token      string
	userAgent  string
	httpClient *http.Client
}

// New creates a Client targeting baseURL (for example http://localhost:8001/api).
// The HTTP client has no timeout: analyses run until the service answers.
func New(baseURL string) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: 0})
}

// NewWithHTTPClient creates a Client with a caller-supplied http.Client.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  "redpersona",
		httpClient: hc,
	}
}

// WithToken sets a bearer token sent on every request. An empty token sends none.
func (c *Client) WithToken(token string) *Client {
	c.token = token
	return c
}

// BaseURL returns the normalised service address.
func (c *Client) BaseURL() string { return c.baseURL }

// analyzeRequest is the JSON body for POST /analyze-reddit.
type analyzeRequest struct {
	RedditURL string `json:"reddit_url"`
}

// errorBody mirrors the service's error responses. Detail is usually a string but
// request validation failures send a list, so it is decoded lazily.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// rootResponse mirrors the JSON returned by GET /.
type rootResponse struct {
	Message string `json:"message"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// Health returns the service's greeting from GET /.
func (c *Client) Health(ctx context.Context) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return "", &TransportError{Op: "health", Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Op: "health", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &TransportError{Op: "health", StatusCode: resp.StatusCode}
	}

	var root rootResponse
	if err := json.NewDecoder(resp.Body).Decode(&root); err != nil {
		return "", &TransportError{Op: "health", Err: fmt.Errorf("decoding response: %w", err)}
	}
	return root.Message, nil
}

// ListPersonas returns every persona the service holds, in the service's order.
func (c *Client) ListPersonas(ctx context.Context) ([]persona.Persona, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/personas", nil)
	if err != nil {
		return nil, &TransportError{Op: "list personas", Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "list personas", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Op: "list personas", StatusCode: resp.StatusCode}
	}

	var personas []persona.Persona
	if err := json.NewDecoder(resp.Body).Decode(&personas); err != nil {
		return nil, &TransportError{Op: "list personas", Err: fmt.Errorf("decoding response: %w", err)}
	}
	return personas, nil
}

// SubmitAnalysis asks the service to analyse a profile and waits for the result.
// Every failure is an *AnalysisError whose Message is safe to show to the user.
func (c *Client) SubmitAnalysis(ctx context.Context, redditURL string) (persona.Persona, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/analyze-reddit", analyzeRequest{RedditURL: redditURL})
	if err != nil {
		return persona.Persona{}, &AnalysisError{Message: FallbackAnalysisMessage, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return persona.Persona{}, &AnalysisError{Message: FallbackAnalysisMessage, Err: fmt.Errorf("analyze request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return persona.Persona{}, &AnalysisError{
			StatusCode: resp.StatusCode,
			Message:    detailMessage(resp.Body),
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var p persona.Persona
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return persona.Persona{}, &AnalysisError{Message: FallbackAnalysisMessage, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return p, nil
}

// detailMessage extracts a string detail from an error body, or the fallback text.
func detailMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return FallbackAnalysisMessage
	}
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil || len(body.Detail) == 0 {
		return FallbackAnalysisMessage
	}
	var detail string
	if err := json.Unmarshal(body.Detail, &detail); err != nil || detail == "" {
		return FallbackAnalysisMessage
	}
	return detail
}

// FetchReport downloads the exportable text report for a persona. The bytes are
// returned exactly as sent; any filename suggested by the service is ignored.
func (c *Client) FetchReport(ctx context.Context, personaID string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/download-persona/"+url.PathEscape(personaID), nil)
	if err != nil {
		return nil, &TransportError{Op: "fetch report", Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "fetch report", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Op: "fetch report", StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReportSize+1))
	if err != nil {
		return nil, &TransportError{Op: "fetch report", Err: fmt.Errorf("reading body: %w", err)}
	}
	if len(data) > maxReportSize {
		return nil, &TransportError{Op: "fetch report", Err: errors.New("report exceeds size limit")}
	}
	return data, nil
}

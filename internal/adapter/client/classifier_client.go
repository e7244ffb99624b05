package client

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

// ClassifyRequest represents a request to the classifier service
type ClassifyRequest struct {
	Abstract string `json:"abstract"`
}

// Confidence holds the per-head scores of a classification
type Confidence struct {
	PrimaryCategory     float64            `json:"primary_category"`
	ResearchMethodology float64            `json:"research_methodology"`
	Categories          map[string]float64 `json:"categories"`
}

// ClassifyResponse represents the response from the classifier service
type ClassifyResponse struct {
	PrimaryCategory     string     `json:"primary_category"`
	ResearchMethodology string     `json:"research_methodology"`
	Categories          []string   `json:"categories"`
	Confidence          Confidence `json:"confidence"`

	// Raw is the response body as received
	Raw json.RawMessage `json:"-"`
}

// HealthResponse represents the liveness response
type HealthResponse struct {
	Status string `json:"status"`
	TS     int64  `json:"ts"`
}

// APIError is a non-2xx answer from the classifier service
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("classifier service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("classifier service returned status %d: %s", e.StatusCode, e.Message)
}

// ClassifierClient is an HTTP client for the classifier service
type ClassifierClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewClassifierClient creates a new classifier service client
func NewClassifierClient(baseURL string, timeout time.Duration) *ClassifierClient {
	return &ClassifierClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Classify sends one abstract for classification
func (c *ClassifierClient) Classify(ctx context.Context, abstract string) (*ClassifyResponse, error) {
	body, err := json.Marshal(ClassifyRequest{Abstract: abstract})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var result ClassifyResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	result.Raw = raw

	return &result, nil
}

// Health checks the classifier service liveness
func (c *ClassifierClient) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var result HealthResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// Ready checks if the classifier service is ready
func (c *ClassifierClient) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ready", http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	_, err = c.do(req)
	return err
}

func (c *ClassifierClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var plain struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &plain) == nil && plain.Error != "" {
			apiErr.Message = plain.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return nil, apiErr
	}

	return body, nil
}

package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"trust-service/internal/core/domain"
	"trust-service/internal/core/ports"
)

// HTTPConfig configures the vendor document API adapter.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPExtractor calls a vendor document-reading API that accepts blob
// references and returns structured fields, a confidence figure, and
// authenticity checks.
type HTTPExtractor struct {
	cfg    HTTPConfig
	client *http.Client
	log    zerolog.Logger
}

func NewHTTPExtractor(cfg HTTPConfig, baseLogger *zerolog.Logger) *HTTPExtractor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPExtractor{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    baseLogger.With().Str("component", "ocr_http").Logger(),
	}
}

var _ ports.OCRExtractor = (*HTTPExtractor)(nil)

func (e *HTTPExtractor) Name() string { return "http" }

type extractRequest struct {
	FrontRef     string `json:"frontRef"`
	BackRef      string `json:"backRef,omitempty"`
	DocumentType string `json:"documentType"`
}

type extractResponse struct {
	Confidence float64               `json:"confidence"`
	Fields     ports.OCRFields       `json:"fields"`
	Checks     domain.DocumentChecks `json:"checks"`
}

func (e *HTTPExtractor) Extract(ctx context.Context, frontRef, backRef string, docType domain.DocumentType) (*ports.OCRResult, error) {
	body, err := json.Marshal(extractRequest{
		FrontRef:     frontRef,
		BackRef:      backRef,
		DocumentType: string(docType),
	})
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL+"/v1/documents/extract", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocr api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ocr api status %d", resp.StatusCode)
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &ports.OCRResult{
		Fields:     out.Fields,
		Confidence: out.Confidence,
		Checks:     out.Checks,
	}, nil
}

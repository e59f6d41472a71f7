package liveness

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

// HTTPConfig configures the vendor liveness API adapter.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPAnalyzer calls a vendor liveness API that accepts blob references and
// returns a score plus per-signal sub-checks.
type HTTPAnalyzer struct {
	cfg    HTTPConfig
	client *http.Client
	log    zerolog.Logger
}

func NewHTTPAnalyzer(cfg HTTPConfig, baseLogger *zerolog.Logger) *HTTPAnalyzer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPAnalyzer{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    baseLogger.With().Str("component", "liveness_http").Logger(),
	}
}

var _ ports.LivenessAnalyzer = (*HTTPAnalyzer)(nil)

func (a *HTTPAnalyzer) Name() string { return "http" }

type analyzeResponse struct {
	FaceDetected bool                  `json:"faceDetected"`
	FaceQuality  float64               `json:"faceQuality"`
	Score        float64               `json:"livenessScore"`
	Checks       domain.LivenessChecks `json:"checks"`
}

func (a *HTTPAnalyzer) Analyze(ctx context.Context, videoRef string) (*ports.LivenessResult, error) {
	var out analyzeResponse
	if err := a.post(ctx, "/v1/liveness/analyze", map[string]string{"videoRef": videoRef}, &out); err != nil {
		return nil, err
	}
	return &ports.LivenessResult{
		FaceDetected: out.FaceDetected,
		FaceQuality:  out.FaceQuality,
		Score:        out.Score,
		Checks:       out.Checks,
	}, nil
}

type compareResponse struct {
	Confidence float64 `json:"confidence"`
	Matched    bool    `json:"matched"`
}

func (a *HTTPAnalyzer) CompareFaces(ctx context.Context, imageRef, videoRef string) (*ports.FaceCompareResult, error) {
	var out compareResponse
	payload := map[string]string{"imageRef": imageRef, "videoRef": videoRef}
	if err := a.post(ctx, "/v1/faces/compare", payload, &out); err != nil {
		return nil, err
	}
	return &ports.FaceCompareResult{Confidence: out.Confidence, Matched: out.Matched}, nil
}

func (a *HTTPAnalyzer) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("liveness api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("liveness api status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

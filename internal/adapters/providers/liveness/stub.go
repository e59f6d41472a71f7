// Package liveness holds the LivenessAnalyzer implementations.
package liveness

import (
	"context"

	"github.com/rs/zerolog"

	"trust-service/internal/core/domain"
	"trust-service/internal/core/ports"
)

// StubAnalyzer returns a fixed passing verdict. Default in dev so the full
// flow can be exercised without a vendor account.
type StubAnalyzer struct {
	log zerolog.Logger
}

func NewStubAnalyzer(baseLogger *zerolog.Logger) *StubAnalyzer {
	return &StubAnalyzer{log: baseLogger.With().Str("component", "liveness_stub").Logger()}
}

var _ ports.LivenessAnalyzer = (*StubAnalyzer)(nil)

func (a *StubAnalyzer) Name() string { return "stub" }

func (a *StubAnalyzer) Analyze(ctx context.Context, videoRef string) (*ports.LivenessResult, error) {
	a.log.Info().Str("video_ref", videoRef).Msg("Stub liveness analysis")
	return &ports.LivenessResult{
		FaceDetected: true,
		FaceQuality:  92,
		Score:        88,
		Checks: domain.LivenessChecks{
			EyeMovement:   true,
			HeadRotation:  true,
			BlinkDetected: true,
			LipMovement:   true,
			DepthDetected: true,
		},
	}, nil
}

func (a *StubAnalyzer) CompareFaces(ctx context.Context, imageRef, videoRef string) (*ports.FaceCompareResult, error) {
	a.log.Info().Str("image_ref", imageRef).Str("video_ref", videoRef).Msg("Stub face comparison")
	return &ports.FaceCompareResult{Confidence: 91, Matched: true}, nil
}

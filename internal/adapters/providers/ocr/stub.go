// Package ocr holds the OCRExtractor implementations.
package ocr

import (
	"context"

	"github.com/rs/zerolog"

	"trust-service/internal/core/domain"
	"trust-service/internal/core/ports"
)

// StubExtractor returns a fixed, well-formed extraction. Default in dev.
type StubExtractor struct {
	log zerolog.Logger
}

func NewStubExtractor(baseLogger *zerolog.Logger) *StubExtractor {
	return &StubExtractor{log: baseLogger.With().Str("component", "ocr_stub").Logger()}
}

var _ ports.OCRExtractor = (*StubExtractor)(nil)

func (e *StubExtractor) Name() string { return "stub" }

func (e *StubExtractor) Extract(ctx context.Context, frontRef, backRef string, docType domain.DocumentType) (*ports.OCRResult, error) {
	e.log.Info().Str("front_ref", frontRef).Str("type", string(docType)).Msg("Stub OCR extraction")
	return &ports.OCRResult{
		Confidence: 93,
		Fields: ports.OCRFields{
			FullName:       "AIDAROV NURLAN SERIKULY",
			FirstName:      "NURLAN",
			LastName:       "AIDAROV",
			MiddleName:     "SERIKULY",
			NationalID:     "123456789013",
			DateOfBirth:    "1995-04-12",
			Gender:         "M",
			Nationality:    "KAZ",
			DocumentNumber: "045671234",
			IssueDate:      "2021-06-01",
			ExpiryDate:     "2031-06-01",
			IssuedBy:       "MINISTRY OF INTERNAL AFFAIRS",
		},
		Checks: domain.DocumentChecks{
			MRZValid:     true,
			BarcodeValid: true,
		},
	}, nil
}

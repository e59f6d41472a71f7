package ports

import (
	"context"

	"trust-service/internal/core/domain"
)

// Provider adapters normalize one external capability each into a fixed
// result shape. Implementations are selected by name from configuration and
// injected at construction; none of them is reached through global state.
// Every call carries a context and the adapters own their network timeouts,
// so a slow provider surfaces as an error, never a hang.

// SMSSendResult is the provider's acknowledgement of an accepted message.
type SMSSendResult struct {
	MessageID string
}

// SMSSender delivers one-time codes.
type SMSSender interface {
	Name() string
	Send(ctx context.Context, phone, message string) (SMSSendResult, error)
}

// LivenessResult is the analyzer's verdict on a selfie video.
type LivenessResult struct {
	FaceDetected bool
	FaceQuality  float64
	Score        float64
	Checks       domain.LivenessChecks
}

// FaceCompareResult is the document-photo vs video comparison outcome.
type FaceCompareResult struct {
	Confidence float64
	Matched    bool
}

// LivenessAnalyzer judges "real human, present now" from a video reference
// and compares a still face against a video.
type LivenessAnalyzer interface {
	Name() string
	Analyze(ctx context.Context, videoRef string) (*LivenessResult, error)
	CompareFaces(ctx context.Context, imageRef, videoRef string) (*FaceCompareResult, error)
}

// OCRFields are the structured values extracted from a document. The
// national ID arrives raw here; the document flow encrypts and masks it
// before anything is persisted.
type OCRFields struct {
	FullName       string
	FirstName      string
	LastName       string
	MiddleName     string
	NationalID     string
	DateOfBirth    string
	Gender         string
	Nationality    string
	DocumentNumber string
	IssueDate      string
	ExpiryDate     string
	IssuedBy       string
	Address        string
}

// OCRResult is the extraction outcome plus authenticity sub-checks.
type OCRResult struct {
	Fields     OCRFields
	Confidence float64
	Checks     domain.DocumentChecks
}

// OCRExtractor reads structured fields off document images.
type OCRExtractor interface {
	Name() string
	Extract(ctx context.Context, frontRef, backRef string, docType domain.DocumentType) (*OCRResult, error)
}

// BlobUpload is a stored object reference plus its content hash.
type BlobUpload struct {
	Ref    string
	SHA256 string
}

// BlobStore holds uploaded media. Refs are opaque to the flows.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, pathHint, contentType string) (*BlobUpload, error)
	Delete(ctx context.Context, ref string) error
}

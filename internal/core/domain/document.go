package domain

import (
	"strings"
	"time"
)

// DocumentType is a custom type for the supported identity documents.
type DocumentType string

const (
	DocumentIDCard         DocumentType = "id_card"
	DocumentPassport       DocumentType = "passport"
	DocumentDrivingLicense DocumentType = "driving_license"
)

// Valid reports whether the document type is one of the supported kinds.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentIDCard, DocumentPassport, DocumentDrivingLicense:
		return true
	}
	return false
}

// IDStatus is a custom type for the document verification ENUM.
type IDStatus string

const (
	IDPending      IDStatus = "pending"
	IDProcessing   IDStatus = "processing"
	IDApproved     IDStatus = "approved"
	IDRejected     IDStatus = "rejected"
	IDManualReview IDStatus = "manual_review"
)

const (
	// OCRConfidenceThreshold gates automatic decisions. Below it the record
	// goes to manual review rather than an automatic rejection.
	OCRConfidenceThreshold = 70.0

	// FaceMatchThreshold is the minimum comparison confidence to accept.
	FaceMatchThreshold = 75.0

	// DocumentRecordRetention is how long a submission record is kept.
	DocumentRecordRetention = 90 * 24 * time.Hour
)

// OCRData holds the structured fields extracted from a document. The raw
// national ID number is never stored in clear form: only its AES-GCM
// ciphertext and the masked rendering leave the processing step.
type OCRData struct {
	FullName            string
	FirstName           string
	LastName            string
	MiddleName          string
	NationalIDEncrypted []byte
	NationalIDMasked    string
	DateOfBirth         string
	Gender              string
	Nationality         string
	DocumentNumber      string
	IssueDate           string
	ExpiryDate          string
	IssuedBy            string
	Address             string
}

// DocumentChecks are the authenticity sub-signals from the OCR provider.
type DocumentChecks struct {
	MRZValid          bool `json:"mrzValid"`
	BarcodeValid      bool `json:"barcodeValid"`
	HologramDetected  bool `json:"hologramDetected"`
	TamperDetected    bool `json:"tamperDetected"`
	PhotocopyDetected bool `json:"photocopyDetected"`
}

// FaceMatch is the document-photo vs liveness-video comparison result.
type FaceMatch struct {
	Confidence        float64 `json:"confidence"`
	Matched           bool    `json:"matched"`
	LivenessSessionID string  `json:"livenessSessionId,omitempty"`
}

// IDVerification is one document submission.
type IDVerification struct {
	ID              string
	UserID          string
	DocumentType    DocumentType
	FrontImageRef   string
	BackImageRef    string
	FrontImageHash  string
	BackImageHash   string
	OCR             OCRData
	OCRConfidence   float64
	Checks          DocumentChecks
	FaceMatch       *FaceMatch // nil when no passed liveness session existed
	Status          IDStatus
	Passed          bool
	RejectionReason string
	ReviewedBy      string
	ReviewedAt      *time.Time
	ReviewNotes     string
	CreatedAt       time.Time
	ProcessedAt     *time.Time
	ExpiresAt       time.Time
}

// MaskNationalID renders a 12-digit national ID as ********NNNN.
// Values of other lengths are returned unchanged, mirroring the upstream
// OCR contract which only masks well-formed IINs.
func MaskNationalID(id string) string {
	if len(id) != 12 {
		return id
	}
	return strings.Repeat("*", 8) + id[8:]
}

// ValidateNationalID checks the 12-digit IIN checksum.
func ValidateNationalID(iin string) bool {
	if len(iin) != 12 {
		return false
	}
	digits := make([]int, 12)
	for i, r := range iin {
		if r < '0' || r > '9' {
			return false
		}
		digits[i] = int(r - '0')
	}

	weighted := func(weights [11]int) int {
		sum := 0
		for i := 0; i < 11; i++ {
			sum += digits[i] * weights[i]
		}
		return sum % 11
	}

	checksum := weighted([11]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11})
	if checksum == 10 {
		checksum = weighted([11]int{3, 4, 5, 6, 7, 8, 9, 10, 11, 1, 2})
	}
	return checksum == digits[11]
}

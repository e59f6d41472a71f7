package http

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"trust-service/internal/core/domain"
	"trust-service/internal/core/services"
)

const maxImageUpload = 10 << 20

// DocumentHandler exposes the ID document verification flow.
type DocumentHandler struct {
	documents *services.DocumentService
}

func NewDocumentHandler(documents *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// documentOCRView exposes extracted fields with the national ID always
// masked. The ciphertext never leaves the service.
type documentOCRView struct {
	FullName         string `json:"fullName,omitempty"`
	NationalIDMasked string `json:"nationalIdMasked,omitempty"`
	DateOfBirth      string `json:"dateOfBirth,omitempty"`
	DocumentNumber   string `json:"documentNumber,omitempty"`
	IssueDate        string `json:"issueDate,omitempty"`
	ExpiryDate       string `json:"expiryDate,omitempty"`
}

type documentResponse struct {
	VerificationID  string                 `json:"verificationId"`
	DocumentType    domain.DocumentType    `json:"documentType"`
	Status          domain.IDStatus        `json:"status"`
	Passed          bool                   `json:"passed"`
	OCRConfidence   float64                `json:"ocrConfidence,omitempty"`
	OCR             *documentOCRView       `json:"ocr,omitempty"`
	FaceMatch       *domain.FaceMatch      `json:"faceMatch,omitempty"`
	Checks          *domain.DocumentChecks `json:"checks,omitempty"`
	RejectionReason string                 `json:"rejectionReason,omitempty"`
	ProcessedAt     *time.Time             `json:"processedAt,omitempty"`
}

func documentView(rec *domain.IDVerification) documentResponse {
	out := documentResponse{
		VerificationID:  rec.ID,
		DocumentType:    rec.DocumentType,
		Status:          rec.Status,
		Passed:          rec.Passed,
		OCRConfidence:   rec.OCRConfidence,
		RejectionReason: rec.RejectionReason,
		ProcessedAt:     rec.ProcessedAt,
	}
	if rec.ProcessedAt != nil {
		out.OCR = &documentOCRView{
			FullName:         rec.OCR.FullName,
			NationalIDMasked: rec.OCR.NationalIDMasked,
			DateOfBirth:      rec.OCR.DateOfBirth,
			DocumentNumber:   rec.OCR.DocumentNumber,
			IssueDate:        rec.OCR.IssueDate,
			ExpiryDate:       rec.OCR.ExpiryDate,
		}
		checks := rec.Checks
		out.Checks = &checks
		out.FaceMatch = rec.FaceMatch
	}
	return out
}

func readImage(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil
		}
		return nil, err
	}
	defer func(f multipart.File) { _ = f.Close() }(file)
	return io.ReadAll(file)
}

func (h *DocumentHandler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 2*maxImageUpload+1<<20)
	if err := r.ParseMultipartForm(4 << 20); err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "images too large"})
		return
	}

	front, err := readImage(r, "front")
	if err != nil || front == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "front image is required"})
		return
	}
	back, err := readImage(r, "back")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "could not read back image"})
		return
	}

	docType := domain.DocumentType(r.FormValue("documentType"))
	rec, err := h.documents.SubmitDocument(r.Context(), userID(r), docType, front, back)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, documentView(rec))
}

func (h *DocumentHandler) status(w http.ResponseWriter, r *http.Request) {
	rec, err := h.documents.Status(r.Context(), chi.URLParam(r, "verificationID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if rec.UserID != userID(r) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: domain.ErrNotFound.Error()})
		return
	}
	writeJSON(w, http.StatusOK, documentView(rec))
}

type manualReviewRequest struct {
	Approved bool   `json:"approved"`
	Notes    string `json:"notes"`
}

func (h *DocumentHandler) manualReview(w http.ResponseWriter, r *http.Request) {
	var in manualReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	rec, err := h.documents.ManualReview(r.Context(), chi.URLParam(r, "verificationID"), in.Approved, in.Notes, userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentView(rec))
}

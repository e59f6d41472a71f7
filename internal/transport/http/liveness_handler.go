package http

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"trust-service/internal/core/domain"
	"trust-service/internal/core/services"
)

const maxVideoUpload = 50 << 20

// LivenessHandler exposes the selfie-video verification flow.
type LivenessHandler struct {
	liveness *services.LivenessService
}

func NewLivenessHandler(liveness *services.LivenessService) *LivenessHandler {
	return &LivenessHandler{liveness: liveness}
}

type livenessResponse struct {
	SessionID     string                 `json:"sessionId"`
	Status        domain.LivenessStatus  `json:"status"`
	Passed        bool                   `json:"passed"`
	Score         float64                `json:"score,omitempty"`
	Checks        *domain.LivenessChecks `json:"checks,omitempty"`
	FailureReason string                 `json:"failureReason,omitempty"`
	ProcessedAt   *time.Time             `json:"processedAt,omitempty"`
}

func livenessView(rec *domain.LivenessCheck) livenessResponse {
	out := livenessResponse{
		SessionID:     rec.ID,
		Status:        rec.Status,
		Passed:        rec.Passed,
		Score:         rec.Score,
		FailureReason: rec.FailureReason,
		ProcessedAt:   rec.ProcessedAt,
	}
	if rec.Terminal() {
		checks := rec.Checks
		out.Checks = &checks
	}
	return out
}

func (h *LivenessHandler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxVideoUpload+1<<20)
	if err := r.ParseMultipartForm(4 << 20); err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "video too large"})
		return
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "video file is required"})
		return
	}
	defer file.Close()

	video, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "could not read video"})
		return
	}

	rec, err := h.liveness.SubmitVideo(r.Context(), userID(r), video, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, livenessView(rec))
}

func (h *LivenessHandler) status(w http.ResponseWriter, r *http.Request) {
	rec, err := h.liveness.Status(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if rec.UserID != userID(r) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: domain.ErrNotFound.Error()})
		return
	}
	writeJSON(w, http.StatusOK, livenessView(rec))
}

func (h *LivenessHandler) retry(w http.ResponseWriter, r *http.Request) {
	rec, err := h.liveness.Status(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if rec.UserID != userID(r) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: domain.ErrNotFound.Error()})
		return
	}

	rec, err = h.liveness.Retry(r.Context(), rec.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, livenessView(rec))
}

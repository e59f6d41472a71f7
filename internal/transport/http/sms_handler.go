package http

import (
	"encoding/json"
	"net/http"
	"time"

	"trust-service/internal/core/services"
)

// SMSHandler exposes the phone verification flow.
type SMSHandler struct {
	sms *services.SMSService
}

func NewSMSHandler(sms *services.SMSService) *SMSHandler {
	return &SMSHandler{sms: sms}
}

type sendCodeRequest struct {
	Phone string `json:"phone"`
}

type challengeResponse struct {
	VerificationID string    `json:"verificationId"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

func (h *SMSHandler) send(w http.ResponseWriter, r *http.Request) {
	var in sendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Phone == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "phone is required"})
		return
	}

	challenge, err := h.sms.RequestCode(r.Context(), in.Phone, userID(r), clientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, challengeResponse{
		VerificationID: challenge.VerificationID,
		ExpiresAt:      challenge.ExpiresAt,
	})
}

type verifyCodeRequest struct {
	VerificationID string `json:"verificationId"`
	Code           string `json:"code"`
}

func (h *SMSHandler) verify(w http.ResponseWriter, r *http.Request) {
	var in verifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.VerificationID == "" || in.Code == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "verificationId and code are required"})
		return
	}

	rec, err := h.sms.VerifyCode(r.Context(), in.VerificationID, in.Code, userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"verified":   true,
		"verifiedAt": rec.VerifiedAt,
	})
}

type resendRequest struct {
	VerificationID string `json:"verificationId"`
}

func (h *SMSHandler) resend(w http.ResponseWriter, r *http.Request) {
	var in resendRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.VerificationID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "verificationId is required"})
		return
	}

	challenge, err := h.sms.Resend(r.Context(), in.VerificationID, clientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, challengeResponse{
		VerificationID: challenge.VerificationID,
		ExpiresAt:      challenge.ExpiresAt,
	})
}

func (h *SMSHandler) status(w http.ResponseWriter, r *http.Request) {
	verified, at, err := h.sms.PhoneStatus(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"phoneVerified": verified,
		"verifiedAt":    at,
	})
}

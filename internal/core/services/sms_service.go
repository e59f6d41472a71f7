package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trust-service/internal/core/domain"
	"trust-service/internal/core/ports"
)

var phoneRegex = regexp.MustCompile(`^\+7\d{10}$`)

// SMSConfig tunes the SMS flow. Zero values fall back to the defaults the
// original policy prescribes: 5 minute codes, 3 attempts, 3 sends/hour/IP.
type SMSConfig struct {
	CodeTTL     time.Duration
	MaxAttempts int
	SendLimit   int
	SendWindow  time.Duration
}

func (c SMSConfig) withDefaults() SMSConfig {
	if c.CodeTTL <= 0 {
		c.CodeTTL = domain.SMSCodeTTL
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = domain.SMSMaxAttempts
	}
	if c.SendLimit <= 0 {
		c.SendLimit = 3
	}
	if c.SendWindow <= 0 {
		c.SendWindow = time.Hour
	}
	return c
}

// SMSChallenge is the opaque handle returned to the caller after a send.
type SMSChallenge struct {
	VerificationID string
	ExpiresAt      time.Time
}

// SMSService issues, rate-limits, and validates one-time codes to confirm
// phone ownership.
type SMSService struct {
	smsRepo  ports.SMSVerificationRepository
	userRepo ports.UserRepository
	sender   ports.SMSSender
	limiter  ports.RateLimiter
	bus      ports.EventBus
	cfg      SMSConfig
	log      zerolog.Logger
}

func NewSMSService(
	smsRepo ports.SMSVerificationRepository,
	userRepo ports.UserRepository,
	sender ports.SMSSender,
	limiter ports.RateLimiter,
	bus ports.EventBus,
	cfg SMSConfig,
	baseLogger *zerolog.Logger,
) *SMSService {
	return &SMSService{
		smsRepo:  smsRepo,
		userRepo: userRepo,
		sender:   sender,
		limiter:  limiter,
		bus:      bus,
		cfg:      cfg.withDefaults(),
		log:      baseLogger.With().Str("component", "sms_service").Logger(),
	}
}

// RequestCode validates the phone, checks the per-IP send budget, refuses a
// second active code, and dispatches a fresh 6-digit code. Only the code's
// argon2id hash is persisted, and only after the provider accepted the send.
func (s *SMSService) RequestCode(ctx context.Context, phone, userID, ip string) (*SMSChallenge, error) {
	if !phoneRegex.MatchString(phone) {
		return nil, domain.ErrInvalidPhoneFormat
	}

	allowed, err := s.limiter.Allow(ctx, "sms:ip:"+ip, s.cfg.SendLimit, s.cfg.SendWindow)
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		return nil, domain.ErrRateLimited
	}

	now := time.Now()
	existing, err := s.smsRepo.FindActiveByUser(ctx, userID, now)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lookup active code: %w", err)
	}
	if existing != nil {
		return nil, &domain.CodeActiveError{ExpiresAt: existing.ExpiresAt}
	}

	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	codeHash, err := argon2id.CreateHash(code, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("hash code: %w", err)
	}

	message := fmt.Sprintf("Your Rentify verification code: %s. Valid for %d minutes.",
		code, int(s.cfg.CodeTTL.Minutes()))

	sent, err := s.sender.Send(ctx, phone, message)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Str("provider", s.sender.Name()).Msg("SMS send failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrSMSProviderFailure, err)
	}

	rec := &domain.SMSVerification{
		ID:                "sms_" + uuid.NewString(),
		UserID:            userID,
		Phone:             phone,
		CodeHash:          codeHash,
		Status:            domain.SMSPending,
		MaxAttempts:       s.cfg.MaxAttempts,
		Provider:          s.sender.Name(),
		ProviderMessageID: sent.MessageID,
		IPAddress:         ip,
		SentAt:            now,
		ExpiresAt:         now.Add(s.cfg.CodeTTL),
	}
	if err := s.smsRepo.Create(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// A concurrent request won the one-pending-per-user race.
			return nil, domain.ErrCodeAlreadyActive
		}
		return nil, fmt.Errorf("persist verification: %w", err)
	}

	s.log.Info().Str("verification_id", rec.ID).Str("user_id", userID).Msg("SMS code sent")
	return &SMSChallenge{VerificationID: rec.ID, ExpiresAt: rec.ExpiresAt}, nil
}

// VerifyCode compares the submitted code against the pending record. Every
// comparison, successful or not, consumes one attempt.
func (s *SMSService) VerifyCode(ctx context.Context, verificationID, code, userID string) (*domain.SMSVerification, error) {
	rec, err := s.smsRepo.GetPending(ctx, verificationID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("lookup verification: %w", err)
	}

	now := time.Now()
	if rec.Expired(now) {
		rec.Status = domain.SMSExpired
		if err := s.smsRepo.Update(ctx, rec); err != nil {
			return nil, fmt.Errorf("expire verification: %w", err)
		}
		return nil, domain.ErrCodeExpired
	}

	if rec.Attempts >= rec.MaxAttempts {
		rec.Status = domain.SMSFailed
		if err := s.smsRepo.Update(ctx, rec); err != nil {
			return nil, fmt.Errorf("fail verification: %w", err)
		}
		return nil, domain.ErrAttemptsExhausted
	}

	match, err := argon2id.ComparePasswordAndHash(code, rec.CodeHash)
	if err != nil {
		return nil, fmt.Errorf("compare code: %w", err)
	}

	rec.Attempts++
	if !match {
		if err := s.smsRepo.Update(ctx, rec); err != nil {
			return nil, fmt.Errorf("record attempt: %w", err)
		}
		return nil, &domain.InvalidCodeError{AttemptsLeft: rec.MaxAttempts - rec.Attempts}
	}

	rec.Status = domain.SMSVerified
	rec.VerifiedAt = &now
	if err := s.smsRepo.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("mark verified: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	user.MarkPhoneVerified(now)
	user.AwardBadge(domain.BadgePhoneVerified, now)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if err := s.bus.Publish(ctx, ports.TopicVerificationPassed, ports.UserEvent{UserID: userID}); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("Failed to publish verification event")
	}

	s.log.Info().Str("user_id", userID).Msg("Phone verified")
	return rec, nil
}

// Resend invalidates the previous record and issues a new code to the same
// phone for the same user.
func (s *SMSService) Resend(ctx context.Context, verificationID, ip string) (*SMSChallenge, error) {
	rec, err := s.smsRepo.GetByID(ctx, verificationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("lookup verification: %w", err)
	}

	if rec.Status == domain.SMSPending {
		rec.Status = domain.SMSExpired
		if err := s.smsRepo.Update(ctx, rec); err != nil {
			return nil, fmt.Errorf("invalidate previous code: %w", err)
		}
	}

	return s.RequestCode(ctx, rec.Phone, rec.UserID, ip)
}

// PhoneStatus reports whether the user's phone is verified and when.
func (s *SMSService) PhoneStatus(ctx context.Context, userID string) (bool, *time.Time, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, nil, err
	}
	return user.Verification.PhoneVerified, user.Verification.PhoneVerifiedAt, nil
}

// generateCode draws a uniform code in [100000, 999999] from crypto/rand.
// Codes never start with zero, so they survive any integer round-trip on
// the client side intact.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

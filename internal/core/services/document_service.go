package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trust-service/internal/core/domain"
	"trust-service/internal/core/ports"
)

// DocumentConfig tunes document intake and retention.
type DocumentConfig struct {
	MaxImageBytes      int64
	Retention          time.Duration
	OCRConfidenceMin   float64
	FaceMatchThreshold float64
}

func (c DocumentConfig) withDefaults() DocumentConfig {
	if c.MaxImageBytes <= 0 {
		c.MaxImageBytes = 10 << 20
	}
	if c.Retention <= 0 {
		c.Retention = domain.DocumentRecordRetention
	}
	if c.OCRConfidenceMin <= 0 {
		c.OCRConfidenceMin = domain.OCRConfidenceThreshold
	}
	if c.FaceMatchThreshold <= 0 {
		c.FaceMatchThreshold = domain.FaceMatchThreshold
	}
	return c
}

// DocumentService accepts identity document images, runs OCR and the
// cross-check against the user's passed liveness session, and resolves each
// submission to approved, rejected, or manual review.
type DocumentService struct {
	docRepo  ports.IDVerificationRepository
	userRepo ports.UserRepository
	liveRepo ports.LivenessRepository
	ocr      ports.OCRExtractor
	faces    ports.LivenessAnalyzer
	blobs    ports.BlobStore
	queue    ports.TaskQueue
	bus      ports.EventBus
	security ports.SecurityPort
	cfg      DocumentConfig
	log      zerolog.Logger
}

func NewDocumentService(
	docRepo ports.IDVerificationRepository,
	userRepo ports.UserRepository,
	liveRepo ports.LivenessRepository,
	ocr ports.OCRExtractor,
	faces ports.LivenessAnalyzer,
	blobs ports.BlobStore,
	queue ports.TaskQueue,
	bus ports.EventBus,
	security ports.SecurityPort,
	cfg DocumentConfig,
	baseLogger *zerolog.Logger,
) *DocumentService {
	return &DocumentService{
		docRepo:  docRepo,
		userRepo: userRepo,
		liveRepo: liveRepo,
		ocr:      ocr,
		faces:    faces,
		blobs:    blobs,
		queue:    queue,
		bus:      bus,
		security: security,
		cfg:      cfg.withDefaults(),
		log:      baseLogger.With().Str("component", "document_service").Logger(),
	}
}

// SubmitDocument validates and stores the images, creates a pending record,
// and enqueues the asynchronous check. The back image is optional.
func (s *DocumentService) SubmitDocument(ctx context.Context, userID string, docType domain.DocumentType, front, back []byte) (*domain.IDVerification, error) {
	if len(front) == 0 {
		return nil, domain.ErrMissingFields
	}
	if !docType.Valid() {
		return nil, domain.ErrUnsupportedDocumentType
	}
	if int64(len(front)) > s.cfg.MaxImageBytes || int64(len(back)) > s.cfg.MaxImageBytes {
		return nil, domain.ErrPayloadTooLarge
	}

	frontUp, err := s.blobs.Upload(ctx, front, userID+"/id-front", "image/jpeg")
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("Front image upload failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
	}

	var backUp *ports.BlobUpload
	if len(back) > 0 {
		backUp, err = s.blobs.Upload(ctx, back, userID+"/id-back", "image/jpeg")
		if err != nil {
			if derr := s.blobs.Delete(ctx, frontUp.Ref); derr != nil {
				s.log.Warn().Err(derr).Str("ref", frontUp.Ref).Msg("Orphan cleanup failed")
			}
			s.log.Error().Err(err).Str("user_id", userID).Msg("Back image upload failed")
			return nil, fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
		}
	}

	now := time.Now()
	rec := &domain.IDVerification{
		ID:             "doc_" + uuid.NewString(),
		UserID:         userID,
		DocumentType:   docType,
		FrontImageRef:  frontUp.Ref,
		FrontImageHash: frontUp.SHA256,
		Status:         domain.IDPending,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.cfg.Retention),
	}
	if backUp != nil {
		rec.BackImageRef = backUp.Ref
		rec.BackImageHash = backUp.SHA256
	}

	if err := s.docRepo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist submission: %w", err)
	}

	if err := s.queue.Enqueue(ctx, ports.Task{Kind: ports.TaskDocumentCheck, RecordID: rec.ID}); err != nil {
		s.log.Error().Err(err).Str("verification_id", rec.ID).Msg("Failed to enqueue document check")
		return nil, fmt.Errorf("enqueue check: %w", err)
	}

	s.log.Info().Str("verification_id", rec.ID).Str("user_id", userID).Str("type", string(docType)).Msg("Document accepted")
	return rec, nil
}

// ProcessSubmission runs OCR and the face cross-check for one record. Any
// unexpected failure routes the record to manual review instead of leaving
// it stuck in processing.
func (s *DocumentService) ProcessSubmission(ctx context.Context, id string) error {
	rec, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load submission %s: %w", id, err)
	}
	switch rec.Status {
	case domain.IDApproved, domain.IDRejected, domain.IDManualReview:
		return nil
	}

	if err := s.analyze(ctx, rec); err != nil {
		now := time.Now()
		rec.Status = domain.IDManualReview
		rec.RejectionReason = fmt.Sprintf("automatic processing failed, queued for manual review: %v", err)
		rec.ProcessedAt = &now
		if uerr := s.docRepo.Update(ctx, rec); uerr != nil {
			return fmt.Errorf("route to manual review: %w", uerr)
		}
		s.log.Error().Err(err).Str("verification_id", rec.ID).Msg("Document processing failed")
	}
	return nil
}

func (s *DocumentService) analyze(ctx context.Context, rec *domain.IDVerification) error {
	rec.Status = domain.IDProcessing
	if err := s.docRepo.Update(ctx, rec); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	res, err := s.ocr.Extract(ctx, rec.FrontImageRef, rec.BackImageRef, rec.DocumentType)
	if err != nil {
		return fmt.Errorf("ocr extract: %w", err)
	}

	rec.OCRConfidence = res.Confidence
	rec.Checks = res.Checks
	rec.OCR = domain.OCRData{
		FullName:       res.Fields.FullName,
		FirstName:      res.Fields.FirstName,
		LastName:       res.Fields.LastName,
		MiddleName:     res.Fields.MiddleName,
		DateOfBirth:    res.Fields.DateOfBirth,
		Gender:         res.Fields.Gender,
		Nationality:    res.Fields.Nationality,
		DocumentNumber: res.Fields.DocumentNumber,
		IssueDate:      res.Fields.IssueDate,
		ExpiryDate:     res.Fields.ExpiryDate,
		IssuedBy:       res.Fields.IssuedBy,
		Address:        res.Fields.Address,
	}

	// A national ID that fails its checksum is treated as unread: nothing of
	// it is stored and the decision sees the field as missing.
	if id := res.Fields.NationalID; id != "" && domain.ValidateNationalID(id) {
		enc, err := s.security.Encrypt([]byte(id))
		if err != nil {
			return fmt.Errorf("encrypt national id: %w", err)
		}
		rec.OCR.NationalIDEncrypted = enc
		rec.OCR.NationalIDMasked = domain.MaskNationalID(id)
	} else if id != "" {
		s.log.Warn().Str("verification_id", rec.ID).Msg("National ID failed checksum, field discarded")
	}

	s.crossCheckFace(ctx, rec)

	now := time.Now()
	rec.ProcessedAt = &now
	rec.Passed = s.submissionPassed(rec)

	switch {
	case rec.Passed:
		rec.Status = domain.IDApproved
	case rec.OCRConfidence < s.cfg.OCRConfidenceMin:
		rec.Status = domain.IDManualReview
		rec.RejectionReason = s.rejectionReason(rec)
	default:
		rec.Status = domain.IDRejected
		rec.RejectionReason = s.rejectionReason(rec)
	}

	if err := s.docRepo.Update(ctx, rec); err != nil {
		return fmt.Errorf("record verdict: %w", err)
	}

	if rec.Passed {
		if err := s.applyApproval(ctx, rec, now); err != nil {
			return err
		}
	}

	s.log.Info().
		Str("verification_id", rec.ID).
		Str("status", string(rec.Status)).
		Float64("confidence", rec.OCRConfidence).
		Msg("Document submission processed")
	return nil
}

// crossCheckFace compares the document photo against the user's latest
// passed liveness video. No passed session, or a purged video, means no
// cross-check: FaceMatch stays nil and the decision skips it.
func (s *DocumentService) crossCheckFace(ctx context.Context, rec *domain.IDVerification) {
	live, err := s.liveRepo.FindLatestPassed(ctx, rec.UserID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Warn().Err(err).Str("user_id", rec.UserID).Msg("Liveness lookup failed, skipping face cross-check")
		}
		return
	}
	if live.VideoRef == "" {
		return
	}

	cmp, err := s.faces.CompareFaces(ctx, rec.FrontImageRef, live.VideoRef)
	if err != nil {
		s.log.Warn().Err(err).Str("verification_id", rec.ID).Msg("Face comparison failed")
		rec.FaceMatch = &domain.FaceMatch{LivenessSessionID: live.ID}
		return
	}
	rec.FaceMatch = &domain.FaceMatch{
		Confidence:        cmp.Confidence,
		Matched:           cmp.Matched,
		LivenessSessionID: live.ID,
	}
}

func (s *DocumentService) submissionPassed(rec *domain.IDVerification) bool {
	if rec.OCRConfidence < s.cfg.OCRConfidenceMin {
		return false
	}
	if rec.OCR.FullName == "" || rec.OCR.NationalIDMasked == "" {
		return false
	}
	if rec.Checks.TamperDetected || rec.Checks.PhotocopyDetected {
		return false
	}
	if rec.FaceMatch != nil && (!rec.FaceMatch.Matched || rec.FaceMatch.Confidence < s.cfg.FaceMatchThreshold) {
		return false
	}
	return true
}

// rejectionReason picks the dominant explanation in fixed priority order.
func (s *DocumentService) rejectionReason(rec *domain.IDVerification) string {
	switch {
	case rec.OCRConfidence < s.cfg.OCRConfidenceMin:
		return "document image quality too low, please retake the photo"
	case rec.Checks.TamperDetected:
		return "document tampering detected"
	case rec.Checks.PhotocopyDetected:
		return "document appears to be a photocopy, original required"
	case rec.FaceMatch != nil && (!rec.FaceMatch.Matched || rec.FaceMatch.Confidence < s.cfg.FaceMatchThreshold):
		return "document photo does not match the verification video"
	case rec.OCR.FullName == "" || rec.OCR.NationalIDMasked == "":
		return "could not recognize required document fields"
	default:
		return "document failed verification"
	}
}

func (s *DocumentService) applyApproval(ctx context.Context, rec *domain.IDVerification, now time.Time) error {
	user, err := s.userRepo.GetByID(ctx, rec.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	user.MarkIDVerified(rec.DocumentType, now)
	user.AwardBadge(domain.BadgeIDVerified, now)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if err := s.bus.Publish(ctx, ports.TopicVerificationPassed, ports.UserEvent{UserID: rec.UserID}); err != nil {
		s.log.Error().Err(err).Str("user_id", rec.UserID).Msg("Failed to publish verification event")
	}
	return nil
}

// Status returns the submission for polling clients.
func (s *DocumentService) Status(ctx context.Context, id string) (*domain.IDVerification, error) {
	rec, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("lookup submission: %w", err)
	}
	return rec, nil
}

// ManualReview resolves a submission by hand. Approval carries the same
// side effects as an automatic pass.
func (s *DocumentService) ManualReview(ctx context.Context, id string, approved bool, notes, adminID string) (*domain.IDVerification, error) {
	rec, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("lookup submission: %w", err)
	}

	now := time.Now()
	rec.Passed = approved
	rec.ReviewedBy = adminID
	rec.ReviewedAt = &now
	rec.ReviewNotes = notes
	if approved {
		rec.Status = domain.IDApproved
		rec.RejectionReason = ""
	} else {
		rec.Status = domain.IDRejected
		if rec.RejectionReason == "" {
			rec.RejectionReason = notes
		}
	}

	if err := s.docRepo.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("record decision: %w", err)
	}

	if approved {
		if err := s.applyApproval(ctx, rec, now); err != nil {
			return nil, err
		}
	}

	s.log.Info().Str("verification_id", rec.ID).Bool("approved", approved).Str("reviewed_by", adminID).Msg("Manual review recorded")
	return rec, nil
}

package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"trust-service/internal/adapters/memory"
	"trust-service/internal/core/domain"
	"trust-service/internal/core/ports"
)

var nopLogger = zerolog.Nop()

// stubSender records outgoing messages and can be told to fail.
type stubSender struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (s *stubSender) Name() string { return "stub" }

func (s *stubSender) Send(ctx context.Context, phone, message string) (ports.SMSSendResult, error) {
	if s.fail {
		return ports.SMSSendResult{}, errors.New("gateway down")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, message)
	return ports.SMSSendResult{MessageID: "msg-1"}, nil
}

func (s *stubSender) lastMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return ""
	}
	return s.sent[len(s.sent)-1]
}

// syncBus runs handlers inline so tests see side effects immediately.
type syncBus struct {
	mu       sync.Mutex
	handlers map[string][]ports.EventHandler
	topics   []string
}

func newSyncBus() *syncBus {
	return &syncBus{handlers: map[string][]ports.EventHandler{}}
}

func (b *syncBus) Publish(ctx context.Context, topic string, data interface{}) error {
	b.mu.Lock()
	b.topics = append(b.topics, topic)
	handlers := b.handlers[topic]
	b.mu.Unlock()
	for _, h := range handlers {
		if err := h(ctx, ports.Event{Topic: topic, Data: data}); err != nil {
			return err
		}
	}
	return nil
}

func (b *syncBus) Subscribe(topic string, handler ports.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
}

func (b *syncBus) published(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, t := range b.topics {
		if t == topic {
			n++
		}
	}
	return n
}

// recordQueue captures enqueued tasks instead of running them.
type recordQueue struct {
	mu    sync.Mutex
	tasks []ports.Task
	fail  bool
}

func (q *recordQueue) Enqueue(ctx context.Context, task ports.Task) error {
	if q.fail {
		return errors.New("queue full")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *recordQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// stubAnalyzer returns a configurable verdict.
type stubAnalyzer struct {
	result     *ports.LivenessResult
	analyzeErr error
	compare    *ports.FaceCompareResult
	compareErr error
}

func (a *stubAnalyzer) Name() string { return "stub" }

func (a *stubAnalyzer) Analyze(ctx context.Context, videoRef string) (*ports.LivenessResult, error) {
	return a.result, a.analyzeErr
}

func (a *stubAnalyzer) CompareFaces(ctx context.Context, imageRef, videoRef string) (*ports.FaceCompareResult, error) {
	return a.compare, a.compareErr
}

// stubOCR returns a configurable extraction.
type stubOCR struct {
	result *ports.OCRResult
	err    error
}

func (o *stubOCR) Name() string { return "stub" }

func (o *stubOCR) Extract(ctx context.Context, frontRef, backRef string, docType domain.DocumentType) (*ports.OCRResult, error) {
	return o.result, o.err
}

// stubCipher is reversible without real crypto.
type stubCipher struct{}

func (stubCipher) Encrypt(plaintext []byte) ([]byte, error) {
	return append([]byte("enc:"), plaintext...), nil
}

func (stubCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	return bytes.TrimPrefix(ciphertext, []byte("enc:")), nil
}

// validIIN passes the 12-digit checksum.
const validIIN = "123456789013"

func newTestUser(id string) *domain.User {
	return &domain.User{
		ID:        id,
		Name:      "Test User",
		CreatedAt: time.Now(),
	}
}

func seedUser(ctx context.Context, store *memory.UserStore, id string) *domain.User {
	u := newTestUser(id)
	if err := store.Create(ctx, u); err != nil {
		panic(err)
	}
	return u
}

func okLivenessResult() *ports.LivenessResult {
	return &ports.LivenessResult{
		FaceDetected: true,
		FaceQuality:  90,
		Score:        85,
		Checks: domain.LivenessChecks{
			EyeMovement:   true,
			HeadRotation:  true,
			BlinkDetected: true,
		},
	}
}

func okOCRResult() *ports.OCRResult {
	return &ports.OCRResult{
		Confidence: 92,
		Fields: ports.OCRFields{
			FullName:   "AIDAROV NURLAN",
			FirstName:  "NURLAN",
			LastName:   "AIDAROV",
			NationalID: validIIN,
		},
		Checks: domain.DocumentChecks{MRZValid: true},
	}
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trust-service/internal/adapters/eventbus"
	"trust-service/internal/adapters/memory"
	"trust-service/internal/adapters/providers/liveness"
	"trust-service/internal/adapters/providers/ocr"
	"trust-service/internal/adapters/security"
	"trust-service/internal/adapters/storage"
	"trust-service/internal/core/domain"
	"trust-service/internal/core/ports"
	"trust-service/internal/core/services"
)

var testLogger = zerolog.Nop()

var codePattern = regexp.MustCompile(`\d{6}`)

// capturingSender keeps the last SMS so tests can read the code back.
type capturingSender struct {
	mu   sync.Mutex
	last string
}

func (s *capturingSender) Name() string { return "capturing" }

func (s *capturingSender) Send(ctx context.Context, phone, message string) (ports.SMSSendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = message
	return ports.SMSSendResult{MessageID: "cap-1"}, nil
}

func (s *capturingSender) lastCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return codePattern.FindString(s.last)
}

// inlineQueue runs tasks synchronously so responses reflect final states.
type inlineQueue struct {
	handlers map[ports.TaskKind]ports.TaskHandler
}

func (q *inlineQueue) Enqueue(ctx context.Context, task ports.Task) error {
	h, ok := q.handlers[task.Kind]
	if !ok {
		return fmt.Errorf("no handler for %s", task.Kind)
	}
	return h(ctx, task.RecordID)
}

type testStack struct {
	server *httptest.Server
	users  *memory.UserStore
	sender *capturingSender
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	users := memory.NewUserStore()
	bus := eventbus.NewInMemoryEventBus(&testLogger)
	blobs := storage.NewMemoryStore()
	queue := &inlineQueue{handlers: map[ports.TaskKind]ports.TaskHandler{}}
	sender := &capturingSender{}

	cipher, err := security.NewAESService(bytes.Repeat([]byte("k"), 32), &testLogger)
	require.NoError(t, err)

	livenessStore := memory.NewLivenessStore()
	smsSvc := services.NewSMSService(memory.NewSMSStore(), users, sender,
		memory.NewRateLimiter(), bus, services.SMSConfig{}, &testLogger)
	liveSvc := services.NewLivenessService(livenessStore, users,
		liveness.NewStubAnalyzer(&testLogger), blobs, queue, bus, services.LivenessConfig{}, &testLogger)
	docSvc := services.NewDocumentService(memory.NewDocumentStore(), users, livenessStore,
		ocr.NewStubExtractor(&testLogger), liveness.NewStubAnalyzer(&testLogger),
		blobs, queue, bus, cipher, services.DocumentConfig{}, &testLogger)
	reviewSvc := services.NewReviewService(memory.NewReviewStore(), memory.NewTransactionStore(),
		users, bus, &testLogger)

	queue.handlers[ports.TaskLivenessAnalysis] = liveSvc.ProcessSession
	queue.handlers[ports.TaskDocumentCheck] = docSvc.ProcessSubmission

	router := NewRouter(
		NewSMSHandler(smsSvc),
		NewLivenessHandler(liveSvc),
		NewDocumentHandler(docSvc),
		NewReviewHandler(reviewSvc),
		&testLogger,
	)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testStack{server: server, users: users, sender: sender}
}

func (s *testStack) seedUser(t *testing.T, id string) {
	t.Helper()
	err := s.users.Create(context.Background(), &domain.User{ID: id, Name: "Test User", CreatedAt: time.Now()})
	require.NoError(t, err)
}

func (s *testStack) do(t *testing.T, method, path, userID string, body interface{}) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	resp, err := s.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestRouter_RequiresUser(t *testing.T) {
	s := newTestStack(t)
	resp := s.do(t, http.MethodGet, "/api/verification/sms/status", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_SMSFlow(t *testing.T) {
	s := newTestStack(t)
	s.seedUser(t, "u1")

	resp := s.do(t, http.MethodPost, "/api/verification/sms/send", "u1",
		map[string]string{"phone": "+77071234567"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var challenge struct {
		VerificationID string `json:"verificationId"`
	}
	decode(t, resp, &challenge)
	require.NotEmpty(t, challenge.VerificationID)

	// Wrong code carries the remaining attempts.
	resp = s.do(t, http.MethodPost, "/api/verification/sms/verify", "u1",
		map[string]string{"verificationId": challenge.VerificationID, "code": "000000"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var failure struct {
		AttemptsLeft *int `json:"attemptsLeft"`
	}
	decode(t, resp, &failure)
	require.NotNil(t, failure.AttemptsLeft)
	assert.Equal(t, 2, *failure.AttemptsLeft)

	resp = s.do(t, http.MethodPost, "/api/verification/sms/verify", "u1",
		map[string]string{"verificationId": challenge.VerificationID, "code": s.sender.lastCode()})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var verified struct {
		Verified bool `json:"verified"`
	}
	decode(t, resp, &verified)
	assert.True(t, verified.Verified)

	resp = s.do(t, http.MethodGet, "/api/verification/sms/status", "u1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status struct {
		PhoneVerified bool `json:"phoneVerified"`
	}
	decode(t, resp, &status)
	assert.True(t, status.PhoneVerified)
}

func TestRouter_SMSDuplicateSendConflicts(t *testing.T) {
	s := newTestStack(t)
	s.seedUser(t, "u1")

	resp := s.do(t, http.MethodPost, "/api/verification/sms/send", "u1",
		map[string]string{"phone": "+77071234567"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(t, http.MethodPost, "/api/verification/sms/send", "u1",
		map[string]string{"phone": "+77071234567"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func multipartBody(t *testing.T, files map[string][2]string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for field, file := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="upload"`, field))
		h.Set("Content-Type", file[1])
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(file[0]))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func (s *testStack) upload(t *testing.T, path, userID string, body *bytes.Buffer, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, s.server.URL+path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", userID)
	resp, err := s.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func TestRouter_LivenessFlow(t *testing.T) {
	s := newTestStack(t)
	s.seedUser(t, "u1")

	body, contentType := multipartBody(t,
		map[string][2]string{"video": {"fake mp4 bytes", "video/mp4"}}, nil)
	resp := s.upload(t, "/api/verification/liveness/upload", "u1", body, contentType)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var uploaded struct {
		SessionID string `json:"sessionId"`
	}
	decode(t, resp, &uploaded)

	resp = s.do(t, http.MethodGet, "/api/verification/liveness/"+uploaded.SessionID+"/status", "u1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status struct {
		Status string  `json:"status"`
		Passed bool    `json:"passed"`
		Score  float64 `json:"score"`
	}
	decode(t, resp, &status)
	assert.Equal(t, "passed", status.Status)
	assert.True(t, status.Passed)
	assert.Equal(t, 88.0, status.Score)

	// Another user cannot see the session.
	s.seedUser(t, "u2")
	resp = s.do(t, http.MethodGet, "/api/verification/liveness/"+uploaded.SessionID+"/status", "u2", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_DocumentFlowMasksNationalID(t *testing.T) {
	s := newTestStack(t)
	s.seedUser(t, "u1")

	body, contentType := multipartBody(t,
		map[string][2]string{"front": {"front jpg", "image/jpeg"}},
		map[string]string{"documentType": "id_card"})
	resp := s.upload(t, "/api/verification/id/upload", "u1", body, contentType)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var uploaded struct {
		VerificationID string `json:"verificationId"`
	}
	decode(t, resp, &uploaded)

	req, err := http.NewRequest(http.MethodGet,
		s.server.URL+"/api/verification/id/"+uploaded.VerificationID+"/status", nil)
	require.NoError(t, err)
	req.Header.Set("X-User-ID", "u1")
	raw, err := s.server.Client().Do(req)
	require.NoError(t, err)
	defer raw.Body.Close()
	require.Equal(t, http.StatusOK, raw.StatusCode)

	rawBody, err := io.ReadAll(raw.Body)
	require.NoError(t, err)
	payload := string(rawBody)

	assert.Contains(t, payload, `"status":"approved"`)
	assert.Contains(t, payload, "********9013", "only the masked ID is exposed")
	assert.NotContains(t, payload, "123456789013", "the raw national ID never leaves the service")
}

func TestRouter_ManualReviewNeedsAdmin(t *testing.T) {
	s := newTestStack(t)
	s.seedUser(t, "u1")

	resp := s.do(t, http.MethodPost, "/api/verification/id/doc_x/review", "u1",
		map[string]interface{}{"approved": true})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRouter_PublicRatingSurface(t *testing.T) {
	s := newTestStack(t)
	s.seedUser(t, "u1")

	// No X-User-ID: the rating card is public.
	resp := s.do(t, http.MethodGet, "/api/users/u1/rating", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary struct {
		UserID     string `json:"userId"`
		TrustScore int    `json:"trustScore"`
	}
	decode(t, resp, &summary)
	assert.Equal(t, "u1", summary.UserID)

	resp = s.do(t, http.MethodGet, "/api/users/u1/reviews", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Total int `json:"total"`
	}
	decode(t, resp, &list)
	assert.Equal(t, 0, list.Total)

	resp = s.do(t, http.MethodGet, "/api/users/u1/reviews?role=driver", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

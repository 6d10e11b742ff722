package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/fileguard/internal/logging"
	"github.com/dmitrijs2005/fileguard/internal/models"
	"github.com/dmitrijs2005/fileguard/internal/pipeline"
	"github.com/dmitrijs2005/fileguard/internal/scanner"
	"github.com/dmitrijs2005/fileguard/internal/server/auth"
	"github.com/dmitrijs2005/fileguard/internal/upload"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

const secret = "http-secret"

type fakeProcessor struct {
	mu     sync.Mutex
	data   []byte
	result pipeline.Result
}

func (f *fakeProcessor) Process(_ context.Context, path string) pipeline.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data, _ = os.ReadFile(path)
	return f.result
}

type fakeAudit struct {
	limit int
	err   error
}

func (f *fakeAudit) FetchAuditLogs(_ context.Context, limit int) ([]*models.AuditEvent, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []*models.AuditEvent{{ID: 1, Operation: "File Upload", Timestamp: time.Unix(0, 0), Details: "Uploaded a.txt to sandbox.", Status: "success", Severity: models.SeverityInfo}}, nil
}

type fakeNotifier struct {
	err     error
	subject string
	to      string
}

func (f *fakeNotifier) Notify(_ context.Context, subject, _, recipient string) error {
	f.subject, f.to = subject, recipient
	return f.err
}

type fixture struct {
	e     *echo.Echo
	proc  *fakeProcessor
	audit *fakeAudit
	notif *fakeNotifier
	inbox string
}

func newFixture(t *testing.T, rps float64) *fixture {
	t.Helper()
	f := &fixture{
		proc:  &fakeProcessor{result: pipeline.Result{Status: pipeline.StatusSuccess, Message: "File processed successfully", Outcome: pipeline.OutcomeSuccess, FileID: "f1"}},
		audit: &fakeAudit{},
		notif: &fakeNotifier{},
		inbox: filepath.Join(t.TempDir(), "inbox"),
	}
	h := NewHandler(HandlerConfig{InboxDir: f.inbox, MaxSize: 1024, Recipient: "sec@example.com"}, f.proc, f.audit, f.notif, nopLogger{})
	f.e = SetupRouter(h, RouterConfig{SecretKey: secret, UploadRateLimit: rps, MaxSize: 1024}, nopLogger{})
	return f
}

func multipartBody(t *testing.T, field, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func (f *fixture) upload(t *testing.T, path, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, "file", name, data)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set(echo.HeaderContentType, ct)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	f := newFixture(t, 10)

	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "FileGuard API is running")
}

func TestUpload_Success(t *testing.T) {
	f := newFixture(t, 10)

	rec := f.upload(t, "/api/upload", "report.txt", []byte("hello"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "success", got["status"])
	assert.Equal(t, "File processed successfully", got["message"])
	assert.Equal(t, "f1", got["file_id"])

	assert.Equal(t, "hello", string(f.proc.data))

	entries, err := os.ReadDir(f.inbox)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpload_LegacyPath(t *testing.T) {
	f := newFixture(t, 10)

	rec := f.upload(t, "/api/upload/upload", "a.txt", []byte("x"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpload_MissingFile(t *testing.T) {
	f := newFixture(t, 10)

	body, ct := multipartBody(t, "other", "a.txt", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set(echo.HeaderContentType, ct)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_BodyTooLarge(t *testing.T) {
	f := newFixture(t, 10)

	rec := f.upload(t, "/api/upload", "big.txt", bytes.Repeat([]byte("a"), 2<<20))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUpload_RateLimited(t *testing.T) {
	f := newFixture(t, 1)

	assert.Equal(t, http.StatusOK, f.upload(t, "/api/upload", "a.txt", []byte("x")).Code)
	rec := f.upload(t, "/api/upload", "a.txt", []byte("x"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestUpload_FailureStatus(t *testing.T) {
	f := newFixture(t, 10)
	f.proc.result = pipeline.Result{
		Status: pipeline.StatusFailure, Message: pipeline.SuspiciousMessage("Eicar-Signature"), Outcome: pipeline.OutcomeQuarantined,
		Err: &pipeline.ThreatDetected{Label: "Eicar-Signature"},
	}

	rec := f.upload(t, "/api/upload", "a.txt", []byte("x"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t,
		`{"status":"failure","message":"Suspicious file detected: Eicar-Signature","outcome":"quarantined"}`,
		rec.Body.String())
}

func TestMapPipelineError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", &upload.AdmissionError{Reason: upload.NotFound}, http.StatusBadRequest},
		{"type", &upload.AdmissionError{Reason: upload.UnsupportedType}, http.StatusUnsupportedMediaType},
		{"size", &upload.AdmissionError{Reason: upload.TooLarge}, http.StatusRequestEntityTooLarge},
		{"threat", &pipeline.ThreatDetected{Label: "x"}, http.StatusUnprocessableEntity},
		{"scan", &pipeline.ScanError{Reason: pipeline.ReasonOracleUnavailable, Err: scanner.ErrOracleUnavailable}, http.StatusServiceUnavailable},
		{"crypto", &pipeline.CryptoError{Reason: pipeline.ReasonEncryptionFailed, Err: errors.New("x")}, http.StatusInternalServerError},
		{"persist", fmt.Errorf("wrapped: %w", &pipeline.PersistenceError{Reason: pipeline.ReasonBlobWriteFailed}), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapPipelineError(tt.err))
		})
	}
}

func TestNotify(t *testing.T) {
	f := newFixture(t, 10)

	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/notify/send", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Notification sent successfully")
	assert.Equal(t, "Test Notification", f.notif.subject)
	assert.Equal(t, "sec@example.com", f.notif.to)

	f.notif.err = errors.New("smtp down")
	rec = httptest.NewRecorder()
	f.e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/notify/send", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to send notification")
}

func TestAudit(t *testing.T) {
	f := newFixture(t, 10)

	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/audit", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer nope")
	rec = httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, err := auth.GenerateToken("ops", []byte(secret), time.Minute)
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/api/audit?limit=5", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	rec = httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, f.audit.limit)

	var got struct {
		Events []auditEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Events, 1)
	assert.Equal(t, "File Upload", got.Events[0].Operation)
	assert.Equal(t, "info", got.Events[0].Severity)

	req = httptest.NewRequest(http.MethodGet, "/api/audit?limit=zero", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	rec = httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTPServer_RunStops(t *testing.T) {
	f := newFixture(t, 10)
	srv := NewHTTPServer("127.0.0.1:0", f.e, nopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

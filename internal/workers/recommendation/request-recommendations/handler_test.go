// internal/workers/recommendation/request-recommendations/handler_test.go
package requestrecommendations

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-recommender/internal/common/config"
	apperrors "car-recommender/internal/common/errors"
	"car-recommender/internal/models"
	"car-recommender/internal/recommender"
)

// ==========================
// Test Logger Implementation
// ==========================

// TestLogger implements the Logger interface for testing
type TestLogger struct {
	t *testing.T
}

func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{t: t}
}

func (l *TestLogger) Debug(msg string, fields map[string]interface{}) {
	l.t.Logf("DEBUG: %s %v", msg, fields)
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v", msg, fields)
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("WARN: %s %v", msg, fields)
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v", msg, fields)
}

type memoryRecorder struct {
	mu   sync.Mutex
	subs []models.Submission
}

func (m *memoryRecorder) Record(_ context.Context, s models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, s)
	return nil
}

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		Timeout:       5 * time.Second,
		DefaultUserID: "demo-user-1",
	}
}

func newHandler(t *testing.T, serverURL string, recorder recommender.Recorder) *Handler {
	log := NewTestLogger(t)
	client := recommender.NewClient(&recommender.Config{
		Endpoint: serverURL,
		Timeout:  2 * time.Second,
	}, log)
	return NewHandler(HandlerOptions{
		Config:   createTestConfig(),
		Client:   client,
		Recorder: recorder,
		Logger:   log,
	})
}

// ==========================
// Core Functionality Tests
// ==========================

func TestExecute_Success(t *testing.T) {
	var got models.Query
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"recommendations":[{"id":1,"label":"Toyota RAV4","score":0.92,"price":28000,"insuranceEstimate":120}]}`))
	}))
	defer server.Close()

	recorder := &memoryRecorder{}
	h := newHandler(t, server.URL, recorder)

	output, err := h.Execute(context.Background(), &Input{Question: "family SUV under 30k", UserID: "u-42"})

	require.NoError(t, err)
	assert.Equal(t, 1, output.Count)
	assert.Equal(t, "Toyota RAV4", output.Recommendations[0].Label)
	assert.NotEmpty(t, output.RequestID)
	assert.Equal(t, models.Query{Question: "family SUV under 30k", UserID: "u-42"}, got)

	require.Len(t, recorder.subs, 1)
	assert.Equal(t, output.RequestID, recorder.subs[0].RequestID)
	assert.Equal(t, "result", recorder.subs[0].Outcome)
}

func TestExecute_DefaultUserID(t *testing.T) {
	var got models.Query
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"recommendations":[]}`))
	}))
	defer server.Close()

	output, err := newHandler(t, server.URL, nil).Execute(context.Background(), &Input{Question: "sedan"})

	require.NoError(t, err)
	assert.Equal(t, "demo-user-1", got.UserID)
	assert.Equal(t, 0, output.Count)
	assert.NotNil(t, output.Recommendations)
}

func TestExecute_BlankQuestion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for a blank question")
	}))
	defer server.Close()

	recorder := &memoryRecorder{}
	_, err := newHandler(t, server.URL, recorder).Execute(context.Background(), &Input{Question: "   "})

	var validationErr *recommender.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Equal(t, apperrors.ErrCodeValidationFailed, recommender.ToStandardError(err).Code)
	assert.Empty(t, recorder.subs)
}

func TestExecute_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	recorder := &memoryRecorder{}
	_, err := newHandler(t, server.URL, recorder).Execute(context.Background(), &Input{Question: "truck"})

	require.Error(t, err)
	bpmn := apperrors.ConvertToBPMNError(recommender.ToStandardError(err))
	assert.Equal(t, "RECOMMENDATION_SERVICE_ERROR", bpmn.Code)
	assert.Equal(t, 502, bpmn.ToErrorVariables()["statusCode"])

	require.Len(t, recorder.subs, 1)
	assert.Equal(t, "service_error", recorder.subs[0].Outcome)
	assert.Equal(t, 502, recorder.subs[0].StatusCode)
}

func TestExecute_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newHandler(t, server.URL, nil).Execute(ctx, &Input{Question: "coupe"})

	var transportErr *recommender.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.True(t, transportErr.Timeout)
	assert.Equal(t, apperrors.ErrCodeRecommendationTimeout, recommender.ToStandardError(err).Code)
}

func TestLoadConfig(t *testing.T) {
	cfg := LoadConfig(&config.Config{
		Recommender: config.RecommenderConfig{UserID: "u-1"},
		Workers: map[string]config.WorkerConfig{
			TaskType: {Enabled: true, Timeout: 1500},
		},
	})
	assert.Equal(t, 1500*time.Millisecond, cfg.Timeout)
	assert.Equal(t, "u-1", cfg.DefaultUserID)

	cfg = LoadConfig(&config.Config{})
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, config.DefaultUserID, cfg.DefaultUserID)
}

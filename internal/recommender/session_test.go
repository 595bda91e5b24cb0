package recommender

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-recommender/internal/common/logger"
	"car-recommender/internal/common/metrics"
	"car-recommender/internal/models"
)

// stubRecommender answers from a queue of canned results. When gate is set
// every call blocks until it is closed.
type stubRecommender struct {
	mu      sync.Mutex
	calls   []models.Query
	results []stubResult
	gate    chan struct{}
	started chan struct{}
}

type stubResult struct {
	recs []models.Recommendation
	err  error
}

func (s *stubRecommender) Recommend(ctx context.Context, requestID string, q models.Query) ([]models.Recommendation, error) {
	s.mu.Lock()
	s.calls = append(s.calls, q)
	var res stubResult
	if len(s.results) > 0 {
		res = s.results[0]
		s.results = s.results[1:]
	}
	gate, started := s.gate, s.started
	s.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return res.recs, res.err
}

func (s *stubRecommender) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type recordingRecorder struct {
	mu   sync.Mutex
	subs []models.Submission
	err  error
}

func (r *recordingRecorder) Record(ctx context.Context, s models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, s)
	return r.err
}

type countingTelemetry struct {
	outcomes []string
}

func (c *countingTelemetry) RecordSubmit(ctx context.Context, outcome string, d time.Duration) {
	c.outcomes = append(c.outcomes, outcome)
}

var rav4 = models.Recommendation{ID: 1, Label: "Toyota RAV4", Score: 0.92, Price: 28000, InsuranceEstimate: 120}

func TestSession_StartsIdle(t *testing.T) {
	s := NewSession(&stubRecommender{}, "demo-user-1")

	st := s.State()
	assert.Equal(t, PhaseIdle, st.Phase())
	assert.Nil(t, st.Recommendations())
	assert.Nil(t, st.Err())
	assert.Empty(t, st.Message())
	assert.False(t, s.CanSubmit())
}

func TestSession_SubmitSuccess(t *testing.T) {
	stub := &stubRecommender{results: []stubResult{{recs: []models.Recommendation{rav4}}}}
	s := NewSession(stub, "demo-user-1", WithLogger(logger.NewTestLogger(t)))

	st, err := s.SubmitText(context.Background(), "family SUV under 30k")

	require.NoError(t, err)
	assert.Equal(t, PhaseResult, st.Phase())
	assert.Equal(t, []models.Recommendation{rav4}, st.Recommendations())
	assert.Nil(t, st.Err())
	assert.Empty(t, st.Message())
	assert.NotEmpty(t, st.RequestID())
	assert.Equal(t, st, s.State())

	require.Len(t, stub.calls, 1)
	assert.Equal(t, models.Query{Question: "family SUV under 30k", UserID: "demo-user-1"}, stub.calls[0])
	assert.Equal(t, "family SUV under 30k", s.Text(), "text input is kept after submit")
}

func TestSession_SubmitBlankDoesNothing(t *testing.T) {
	stub := &stubRecommender{}
	s := NewSession(stub, "demo-user-1")

	for _, text := range []string{"", "  ", "\n\t"} {
		st, err := s.SubmitText(context.Background(), text)
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr)
		assert.Equal(t, PhaseIdle, st.Phase())
	}
	assert.Equal(t, 0, stub.callCount())
	assert.Equal(t, PhaseIdle, s.State().Phase())
}

func TestSession_ServiceErrorState(t *testing.T) {
	stub := &stubRecommender{results: []stubResult{
		{recs: []models.Recommendation{rav4}},
		{err: &ServiceError{StatusCode: 500, Detail: "boom"}},
	}}
	s := NewSession(stub, "demo-user-1")

	_, err := s.SubmitText(context.Background(), "first")
	require.NoError(t, err)

	st, err := s.SubmitText(context.Background(), "second")
	require.Error(t, err)
	assert.Equal(t, PhaseError, st.Phase())
	assert.Contains(t, st.Message(), "500")
	assert.NotContains(t, st.Message(), "boom")
	assert.Nil(t, st.Recommendations(), "previous results are dropped on failure")
}

func TestSession_SuccessClearsStaleError(t *testing.T) {
	stub := &stubRecommender{results: []stubResult{
		{err: &TransportError{Endpoint: "http://localhost:8000/recommend", Cause: errors.New("refused")}},
		{recs: []models.Recommendation{rav4}},
	}}
	s := NewSession(stub, "demo-user-1")

	st, _ := s.SubmitText(context.Background(), "first")
	require.Equal(t, PhaseError, st.Phase())

	st, err := s.SubmitText(context.Background(), "second")
	require.NoError(t, err)
	assert.Equal(t, PhaseResult, st.Phase())
	assert.Empty(t, st.Message())
	assert.Nil(t, st.Err())
}

func TestSession_SubmitWhilePendingIsRejected(t *testing.T) {
	stub := &stubRecommender{
		results: []stubResult{{recs: []models.Recommendation{rav4}}},
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	s := NewSession(stub, "demo-user-1")
	s.SetText("family SUV")

	done := make(chan State, 1)
	go func() {
		st, _ := s.Submit(context.Background())
		done <- st
	}()

	<-stub.started
	assert.Eventually(t, func() bool { return s.State().Phase() == PhasePending }, time.Second, 5*time.Millisecond)
	assert.True(t, s.State().Busy())
	assert.False(t, s.CanSubmit())

	pendingID := s.State().RequestID()
	rejected := testutil.ToFloat64(metrics.SubmitsRejected.WithLabelValues("in_flight"))
	st, err := s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitInFlight)
	assert.Equal(t, rejected+1, testutil.ToFloat64(metrics.SubmitsRejected.WithLabelValues("in_flight")))
	assert.Equal(t, PhasePending, st.Phase())
	assert.Equal(t, pendingID, st.RequestID())

	close(stub.gate)
	final := <-done

	assert.Equal(t, PhaseResult, final.Phase())
	assert.Equal(t, pendingID, final.RequestID())
	assert.Equal(t, 1, stub.callCount())
}

func TestSession_ClearWhilePendingKeepsRequest(t *testing.T) {
	stub := &stubRecommender{
		results: []stubResult{{recs: []models.Recommendation{rav4}}},
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	s := NewSession(stub, "demo-user-1")
	s.SetText("family SUV")

	done := make(chan struct{})
	go func() {
		_, _ = s.Submit(context.Background())
		close(done)
	}()

	<-stub.started
	s.Clear()
	assert.Empty(t, s.Text())
	assert.Equal(t, PhasePending, s.State().Phase())

	close(stub.gate)
	<-done
	assert.Equal(t, PhaseResult, s.State().Phase())
}

func TestSession_ClearAfterSettle(t *testing.T) {
	stub := &stubRecommender{results: []stubResult{{err: &ParseError{Cause: errors.New("bad")}}}}
	s := NewSession(stub, "demo-user-1")

	st, _ := s.SubmitText(context.Background(), "sedan")
	require.Equal(t, PhaseError, st.Phase())

	s.Clear()
	assert.Equal(t, PhaseIdle, s.State().Phase())
	assert.Empty(t, s.Text())
	assert.Empty(t, s.State().Message())
}

func TestSession_SetTextDoesNotTouchState(t *testing.T) {
	stub := &stubRecommender{results: []stubResult{{recs: []models.Recommendation{rav4}}}}
	s := NewSession(stub, "demo-user-1")

	_, err := s.SubmitText(context.Background(), "first")
	require.NoError(t, err)

	s.SetText("something else")
	assert.Equal(t, PhaseResult, s.State().Phase())
	assert.True(t, s.CanSubmit())
}

func TestSession_RecordsHistoryAndTelemetry(t *testing.T) {
	stub := &stubRecommender{results: []stubResult{
		{recs: []models.Recommendation{rav4, rav4}},
		{err: &ServiceError{StatusCode: 502}},
	}}
	recorder := &recordingRecorder{}
	telemetry := &countingTelemetry{}
	s := NewSession(stub, "demo-user-1", WithRecorder(recorder), WithTelemetry(telemetry))

	first, err := s.SubmitText(context.Background(), "suv")
	require.NoError(t, err)
	_, err = s.SubmitText(context.Background(), "truck")
	require.Error(t, err)

	require.Len(t, recorder.subs, 2)
	assert.Equal(t, first.RequestID(), recorder.subs[0].RequestID)
	assert.Equal(t, "result", recorder.subs[0].Outcome)
	assert.Equal(t, 2, recorder.subs[0].Count)
	assert.Equal(t, "suv", recorder.subs[0].Question)

	assert.Equal(t, "service_error", recorder.subs[1].Outcome)
	assert.Equal(t, "service", recorder.subs[1].ErrorKind)
	assert.Equal(t, 502, recorder.subs[1].StatusCode)

	assert.Equal(t, []string{"result", "service_error"}, telemetry.outcomes)
}

func TestSession_RecorderFailureDoesNotChangeOutcome(t *testing.T) {
	stub := &stubRecommender{results: []stubResult{{recs: []models.Recommendation{rav4}}}}
	recorder := &recordingRecorder{err: errors.New("redis down")}
	s := NewSession(stub, "demo-user-1", WithRecorder(recorder), WithLogger(logger.NewTestLogger(t)))

	st, err := s.SubmitText(context.Background(), "suv")
	require.NoError(t, err)
	assert.Equal(t, PhaseResult, st.Phase())
}

func TestSession_EndToEnd(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(rav4Response))
	}))
	defer server.Close()

	s := NewSession(newTestClient(t, server.URL), "demo-user-1")

	st, err := s.SubmitText(context.Background(), "family SUV")
	require.Error(t, err)
	assert.Equal(t, PhaseError, st.Phase())
	assert.Contains(t, st.Message(), "500")

	st, err = s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseResult, st.Phase())
	assert.Equal(t, []models.Recommendation{rav4}, st.Recommendations())
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "result", Outcome(nil))
	assert.Equal(t, "transport_error", Outcome(&TransportError{Cause: errors.New("x")}))
	assert.Equal(t, "parse_error", Outcome(&ParseError{Cause: errors.New("x")}))
	assert.Equal(t, "unknown_error", Outcome(errors.New("x")))
}

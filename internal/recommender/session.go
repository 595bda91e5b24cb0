package recommender

import (
	"context"
	"errors"
	"sync"
	"time"

	commonhttp "car-recommender/internal/common/http"
	"car-recommender/internal/common/metrics"
	"car-recommender/internal/models"
)

const recordTimeout = 2 * time.Second

// Recorder keeps settled submissions, e.g. the redis history store.
type Recorder interface {
	Record(ctx context.Context, s models.Submission) error
}

// Telemetry receives one event per settled submit.
type Telemetry interface {
	RecordSubmit(ctx context.Context, outcome string, duration time.Duration)
}

type SessionOption func(*Session)

func WithLogger(log Logger) SessionOption {
	return func(s *Session) { s.logger = log }
}

func WithRecorder(r Recorder) SessionOption {
	return func(s *Session) { s.recorder = r }
}

func WithTelemetry(t Telemetry) SessionOption {
	return func(s *Session) { s.telemetry = t }
}

// Session holds the text input and the Idle/Pending/Result/Error state
// for one user. At most one request is in flight; a Submit issued while
// pending is refused with ErrSubmitInFlight.
type Session struct {
	client Recommender
	userID string

	logger    Logger
	recorder  Recorder
	telemetry Telemetry
	now       func() time.Time

	mu    sync.RWMutex
	text  string
	state State
}

func NewSession(client Recommender, userID string, opts ...SessionOption) *Session {
	s := &Session{
		client: client,
		userID: userID,
		logger: nopLogger{},
		now:    time.Now,
		state:  idleState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetText replaces the text input. It never changes the state.
func (s *Session) SetText(text string) {
	s.mu.Lock()
	s.text = text
	s.mu.Unlock()
}

func (s *Session) Text() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// CanSubmit mirrors the enabled state of the submit control.
func (s *Session) CanSubmit() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.state.Busy() && !(models.Query{Question: s.text}).IsBlank()
}

// Clear discards the text input and returns a settled session to Idle.
// A pending request is not cancelled and still settles normally.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = ""
	if !s.state.Busy() {
		s.state = idleState()
	}
}

// SubmitText is SetText followed by Submit.
func (s *Session) SubmitText(ctx context.Context, text string) (State, error) {
	s.SetText(text)
	return s.Submit(ctx)
}

// Submit sends the current text and blocks until the request settles.
// Refused submits (blank text, request in flight) leave the state alone and
// return it with the refusal error. Otherwise the returned State is the new
// Result or Error state and err is the underlying failure, if any.
func (s *Session) Submit(ctx context.Context) (State, error) {
	s.mu.Lock()
	if s.state.Busy() {
		current := s.state
		s.mu.Unlock()
		metrics.SubmitsRejected.WithLabelValues("in_flight").Inc()
		return current, ErrSubmitInFlight
	}
	q := models.Query{Question: s.text, UserID: s.userID}
	if q.IsBlank() {
		current := s.state
		s.mu.Unlock()
		metrics.SubmitsRejected.WithLabelValues("validation").Inc()
		return current, &ValidationError{Field: "question", Reason: "must not be empty"}
	}
	requestID := commonhttp.NewRequestID()
	s.state = pendingState(requestID)
	s.mu.Unlock()

	metrics.SubmitsPending.Inc()
	started := s.now()
	recs, err := s.client.Recommend(ctx, requestID, q)
	elapsed := s.now().Sub(started)
	metrics.SubmitsPending.Dec()

	var next State
	if err != nil {
		next = errorState(requestID, err)
	} else {
		next = resultState(requestID, recs)
	}

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	s.settled(q, next, started, elapsed)
	return next, err
}

func (s *Session) settled(q models.Query, st State, started time.Time, elapsed time.Duration) {
	outcome := Outcome(st.Err())
	fields := map[string]interface{}{
		"requestId":      st.RequestID(),
		"userId":         q.UserID,
		"questionLength": len(q.Question),
		"outcome":        outcome,
		"durationMs":     elapsed.Milliseconds(),
	}

	metrics.SubmitsTotal.WithLabelValues(outcome).Inc()
	metrics.SubmitDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())

	sub := models.Submission{
		RequestID:   st.RequestID(),
		Question:    q.Question,
		UserID:      q.UserID,
		Outcome:     outcome,
		SubmittedAt: started.UTC(),
		DurationMs:  elapsed.Milliseconds(),
	}

	if err := st.Err(); err != nil {
		sub.ErrorKind = Classify(err).String()
		var serviceErr *ServiceError
		if errors.As(err, &serviceErr) {
			sub.StatusCode = serviceErr.StatusCode
			fields["statusCode"] = serviceErr.StatusCode
		}
		fields["error"] = err.Error()
		s.logger.Warn("recommendation request failed", fields)
	} else {
		sub.Count = len(st.recommendations)
		metrics.RecommendationsReturned.Observe(float64(sub.Count))
		fields["count"] = sub.Count
		s.logger.Info("recommendations received", fields)
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if s.telemetry != nil {
		s.telemetry.RecordSubmit(ctx, outcome, elapsed)
	}
	if s.recorder != nil {
		if err := s.recorder.Record(ctx, sub); err != nil {
			s.logger.Warn("failed to record submission", map[string]interface{}{
				"requestId": sub.RequestID,
				"error":     err.Error(),
			})
		}
	}
}

// Outcome is the metric/history label for a settled submit.
func Outcome(err error) string {
	if err == nil {
		return "result"
	}
	return Classify(err).String() + "_error"
}

type nopLogger struct{}

func (nopLogger) Debug(string, map[string]interface{}) {}
func (nopLogger) Info(string, map[string]interface{})  {}
func (nopLogger) Warn(string, map[string]interface{})  {}
func (nopLogger) Error(string, map[string]interface{}) {}

package recommender

import "car-recommender/internal/models"

// Phase is the tag of a session State.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePending
	PhaseResult
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePending:
		return "pending"
	case PhaseResult:
		return "result"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// State is an immutable snapshot of a session. Its payload depends on the
// phase: only Result carries recommendations and only Error carries an
// error, so a list and an error can never be visible together.
type State struct {
	phase           Phase
	requestID       string
	recommendations []models.Recommendation
	err             error
	message         string
}

func idleState() State {
	return State{phase: PhaseIdle}
}

func pendingState(requestID string) State {
	return State{phase: PhasePending, requestID: requestID}
}

func resultState(requestID string, recs []models.Recommendation) State {
	return State{phase: PhaseResult, requestID: requestID, recommendations: recs}
}

func errorState(requestID string, err error) State {
	return State{phase: PhaseError, requestID: requestID, err: err, message: UserMessage(err)}
}

func (s State) Phase() Phase { return s.phase }

// RequestID is empty while idle.
func (s State) RequestID() string { return s.requestID }

// Recommendations returns a copy of the result list, or nil outside PhaseResult.
func (s State) Recommendations() []models.Recommendation {
	if s.phase != PhaseResult {
		return nil
	}
	out := make([]models.Recommendation, len(s.recommendations))
	copy(out, s.recommendations)
	return out
}

// Err is the failure behind PhaseError, nil otherwise.
func (s State) Err() error { return s.err }

// Message is the user-visible error line, empty outside PhaseError.
func (s State) Message() string { return s.message }

// Busy reports whether the submit control should be disabled.
func (s State) Busy() bool { return s.phase == PhasePending }

// internal/workers/recommendation/request-recommendations/handler.go
package requestrecommendations

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "car-recommender/internal/common/errors"
	commonhttp "car-recommender/internal/common/http"
	"car-recommender/internal/common/metrics"
	"car-recommender/internal/models"
	"car-recommender/internal/recommender"
)

const (
	TaskType = "request-recommendations"
)

// Logger interface definition
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

type Handler struct {
	config       *Config
	client       recommender.Recommender
	recorder     recommender.Recorder
	telemetry    recommender.Telemetry
	errorHandler *apperrors.ErrorHandler
	logger       Logger
}

// HandlerOptions carries the handler's collaborators. Recorder and
// Telemetry are optional.
type HandlerOptions struct {
	Config    *Config
	Client    recommender.Recommender
	Recorder  recommender.Recorder
	Telemetry recommender.Telemetry
	Logger    Logger
}

func NewHandler(opts HandlerOptions) *Handler {
	return &Handler{
		config:       opts.Config,
		client:       opts.Client,
		recorder:     opts.Recorder,
		telemetry:    opts.Telemetry,
		errorHandler: apperrors.NewErrorHandler(opts.Logger),
		logger:       opts.Logger,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"taskType":    TaskType,
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(client, job, apperrors.NewValidationError("variables", err.Error()))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.fail(client, job, recommender.ToStandardError(err))
		return
	}

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

// Execute performs one recommendation request for input. The question is
// forwarded untouched; a missing userId falls back to the configured one.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	q := models.Query{Question: input.Question, UserID: input.UserID}
	if q.UserID == "" {
		q.UserID = h.config.DefaultUserID
	}

	requestID := commonhttp.NewRequestID()
	started := time.Now()
	recs, err := h.client.Recommend(ctx, requestID, q)
	elapsed := time.Since(started)

	h.record(q, requestID, recs, err, started, elapsed)

	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []models.Recommendation{}
	}

	h.logger.Info("recommendations received", map[string]interface{}{
		"requestId":  requestID,
		"count":      len(recs),
		"durationMs": elapsed.Milliseconds(),
	})

	return &Output{
		Recommendations: recs,
		Count:           len(recs),
		RequestID:       requestID,
	}, nil
}

func (h *Handler) record(q models.Query, requestID string, recs []models.Recommendation, err error, started time.Time, elapsed time.Duration) {
	if recommender.Classify(err) == recommender.KindValidation {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if h.telemetry != nil {
		h.telemetry.RecordSubmit(ctx, recommender.Outcome(err), elapsed)
	}
	if h.recorder == nil {
		return
	}

	sub := models.Submission{
		RequestID:   requestID,
		Question:    q.Question,
		UserID:      q.UserID,
		Outcome:     recommender.Outcome(err),
		Count:       len(recs),
		SubmittedAt: started.UTC(),
		DurationMs:  elapsed.Milliseconds(),
	}
	if err != nil {
		sub.ErrorKind = recommender.Classify(err).String()
		if std := recommender.ToStandardError(err); std != nil {
			if code, ok := std.Metadata["statusCode"].(int); ok {
				sub.StatusCode = code
			}
		}
	}

	if recErr := h.recorder.Record(ctx, sub); recErr != nil {
		h.logger.Warn("failed to record submission", map[string]interface{}{
			"requestId": requestID,
			"error":     recErr.Error(),
		})
	}
}

// fail uses a fresh context so a job whose deadline already passed is still reported.
func (h *Handler) fail(client worker.JobClient, job entities.Job, stdErr *apperrors.StandardError) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(context.Background(), client, job, stdErr)
}

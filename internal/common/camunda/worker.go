// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

// JobHandler completes, fails or throws for every job it is given.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

type CamundaWorker struct {
	worker   worker.JobWorker
	logger   *zap.Logger
	taskType string
}

// NewWorker opens a job worker for taskType. A non-positive timeout keeps
// the broker default for job activation.
func NewWorker(
	client zbc.Client,
	taskType string,
	maxJobsActive int,
	timeout time.Duration,
	handler JobHandler,
	logger *zap.Logger,
) *CamundaWorker {
	step := client.NewJobWorker().
		JobType(taskType).
		Handler(func(client worker.JobClient, job entities.Job) {
			started := time.Now()
			handler.Handle(client, job)
			logger.Debug("job handled",
				zap.String("taskType", taskType),
				zap.Int64("jobKey", job.Key),
				zap.Duration("took", time.Since(started)))
		}).
		MaxJobsActive(maxJobsActive)
	if timeout > 0 {
		step = step.Timeout(timeout)
	}

	w := &CamundaWorker{
		worker:   step.Open(),
		logger:   logger,
		taskType: taskType,
	}
	logger.Info("worker started", zap.String("taskType", taskType), zap.Int("maxJobsActive", maxJobsActive))
	return w
}

func (w *CamundaWorker) TaskType() string {
	return w.taskType
}

// Stop closes the job stream and waits for in-flight handlers.
func (w *CamundaWorker) Stop() {
	w.logger.Info("stopping worker", zap.String("taskType", w.taskType))
	w.worker.Close()
	w.worker.AwaitClose()
}

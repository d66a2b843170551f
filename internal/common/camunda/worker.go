// internal/common/camunda/worker.go
package camunda

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.opentelemetry.io/otel/attribute"

	"propguard-workers/internal/common/errors"
	"propguard-workers/internal/common/logger"
	"propguard-workers/internal/common/metrics"
	"propguard-workers/internal/common/observability"
	"propguard-workers/internal/common/validation"
)

// JobHandler completes or fails the job itself and returns the error it
// reported, if any, so the worker can count it.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job) error
}

type WorkerOptions struct {
	TaskType      string
	MaxJobsActive int
	Validator     *validation.Validator
	Observability *observability.Observability
}

type CamundaWorker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// NewWorker opens a job worker for opts.TaskType. Variables are checked
// against the task's registry schema before the handler sees them.
func NewWorker(client zbc.Client, opts WorkerOptions, handler JobHandler, log logger.Logger) *CamundaWorker {
	log = log.WithFields(map[string]interface{}{"taskType": opts.TaskType})
	dispatch := Dispatcher(opts, handler, log)

	jobWorker := client.NewJobWorker().
		JobType(opts.TaskType).
		Handler(dispatch).
		MaxJobsActive(opts.MaxJobsActive).
		Open()

	return &CamundaWorker{worker: jobWorker, logger: log, taskType: opts.TaskType}
}

// Dispatcher builds the zeebe handler func used by NewWorker.
func Dispatcher(opts WorkerOptions, handler JobHandler, log logger.Logger) worker.JobHandler {
	errorHandler := errors.NewErrorHandler(log)

	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		done := metrics.TrackJob(opts.TaskType)
		ctx, span := opts.Observability.StartSpan(context.Background(), opts.TaskType,
			attribute.Int64("job.key", job.Key),
			attribute.Int64("process.instance.key", job.ProcessInstanceKey),
		)
		defer span.End()

		err := opts.Validator.ValidateJSON(opts.TaskType, []byte(job.Variables))
		if err != nil {
			err = invalidVariables(err)
			errorHandler.HandleJobError(ctx, client, job, err)
		} else {
			err = handler.Handle(client, job)
		}

		status, code := "completed", ""
		if err != nil {
			status = "failed"
			code = string(errors.Normalize(err).Code)
			span.RecordError(err)
			log.Warn("job not completed", map[string]interface{}{"jobKey": job.Key, "errorCode": code})
			if !opts.Validator.Declares(opts.TaskType, code) {
				log.Warn("error code not declared in activity registry", map[string]interface{}{"errorCode": code})
			}
		}
		done(code)
		opts.Observability.RecordJobProcessed(ctx, opts.TaskType, status)
		opts.Observability.RecordJobDuration(ctx, opts.TaskType, time.Since(start), status)
	}
}

func invalidVariables(err error) error {
	std := errors.NewInvalidInputError(err.Error())
	var verr *validation.Error
	if stderrors.As(err, &verr) && len(verr.Violations) > 0 {
		std.WithMetadata("field", verr.Violations[0].Field)
	}
	return std
}

func (w *CamundaWorker) Start() {
	w.logger.Info("worker started", nil)
}

func (w *CamundaWorker) Stop(ctx context.Context) {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}

// CompleteJob completes job with output as its variables.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		return err
	}
	_, err = cmd.Send(ctx)
	return err
}

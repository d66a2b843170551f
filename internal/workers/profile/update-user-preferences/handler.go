// internal/workers/profile/update-user-preferences/handler.go
package updateuserpreferences

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"propguard-workers/internal/common/camunda"
	"propguard-workers/internal/common/errors"
	"propguard-workers/internal/common/logger"
)

const (
	TaskType = "update-user-preferences"
)

type Handler struct {
	config       *Config
	profiles     ProfileStore
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, profiles ProfileStore, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		profiles:     profiles,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return h.failJob(client, job, errors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		return h.failJob(client, job, err)
	}
	return h.completeJob(ctx, client, job, output)
}

// Execute applies the partial update on top of the stored profile, or on top
// of the default profile for a first-time user.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, errors.NewInvalidInputError("userId is required")
	}

	current, isDefault, err := h.profiles.Load(ctx, userID)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewQueryTimeoutError("user_profile")
		}
		return nil, errors.NewQueryExecutionFailedError("user_profile", err)
	}

	updated, err := input.Preferences.Apply(*current)
	if err != nil {
		return nil, err
	}
	updated.UserID = userID

	if err := h.profiles.Save(ctx, updated); err != nil {
		return nil, errors.NewDatabaseWriteFailedError("user_profiles", err)
	}

	h.logger.Info("preferences updated", map[string]interface{}{
		"userId":  userID,
		"created": isDefault,
	})

	return &Output{Profile: updated, Created: isDefault}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
		return err
	}
	return nil
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) error {
	h.errorHandler.HandleJobError(context.Background(), client, job, err)
	return err
}

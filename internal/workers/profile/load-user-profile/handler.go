// internal/workers/profile/load-user-profile/handler.go
package loaduserprofile

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
	"propguard-workers/internal/models"
)

const (
	TaskType = "load-user-profile"
)

type Handler struct {
	config        *Config
	profiles      ProfileLoader
	savedSearches SavedSearchLister
	logger        logger.Logger
	errorHandler  *errors.ErrorHandler
}

func NewHandler(config *Config, profiles ProfileLoader, savedSearches SavedSearchLister, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:        config,
		profiles:      profiles,
		savedSearches: savedSearches,
		logger:        log,
		errorHandler:  errors.NewErrorHandler(log),
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, errors.NewInvalidInputError("userId is required")
	}

	profile, isDefault, err := h.profiles.Load(ctx, userID)
	if err != nil {
		return nil, h.storeError(ctx, "user_profile", err)
	}

	saved := []models.SavedSearch{}
	if !input.SkipSavedSearches && h.savedSearches != nil {
		list, err := h.savedSearches.ListByUser(ctx, userID)
		if err != nil {
			return nil, h.storeError(ctx, "saved_searches", err)
		}
		saved = append(saved, list...)
	}

	if isDefault {
		h.logger.Info("no stored preferences, using default profile", map[string]interface{}{
			"userId": userID,
		})
	}

	return &Output{
		Profile:       profile,
		IsDefault:     isDefault,
		SavedSearches: saved,
	}, nil
}

func (h *Handler) storeError(ctx context.Context, queryType string, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return errors.NewQueryTimeoutError(queryType)
	}
	return errors.NewQueryExecutionFailedError(queryType, err)
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

// internal/workers/profile/save-search/handler.go
package savesearch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"propguard-workers/internal/common/camunda"
	"propguard-workers/internal/common/errors"
	"propguard-workers/internal/common/logger"
	"propguard-workers/internal/models"
)

const (
	TaskType = "save-search"
)

type Handler struct {
	config       *Config
	store        SavedSearchCreator
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, store SavedSearchCreator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		store:        store,
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	s, err := h.validate(input)
	if err != nil {
		return nil, err
	}

	if err := h.store.Create(ctx, s); err != nil {
		return nil, errors.NewDatabaseWriteFailedError("saved_searches", err)
	}

	h.logger.Info("search saved", map[string]interface{}{
		"userId":        s.UserID,
		"savedSearchId": s.ID,
		"alertsEnabled": s.AlertsEnabled,
	})

	return &Output{SavedSearchID: s.ID, CreatedAt: s.CreatedAt}, nil
}

// validate checks the request and builds the record to insert. At least one
// of criteria and filters must carry a constraint.
func (h *Handler) validate(input *Input) (*models.SavedSearch, error) {
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, errors.NewInvalidInputError("userId is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.NewInvalidInputError("name is required")
	}
	if h.config.MaxNameLength > 0 && utf8.RuneCountInString(name) > h.config.MaxNameLength {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("name exceeds %d characters", h.config.MaxNameLength))
	}

	s := &models.SavedSearch{
		UserID:        userID,
		Name:          name,
		AlertsEnabled: input.AlertsEnabled,
	}
	if input.Criteria != nil {
		if err := input.Criteria.Validate(); err != nil {
			return nil, err
		}
		s.Criteria = *input.Criteria
	}
	if input.Filters != nil {
		if err := input.Filters.Validate(); err != nil {
			return nil, err
		}
		s.Filters = *input.Filters
	}

	criteriaFilters := s.Criteria.AsFilters()
	if criteriaFilters.IsEmpty() && s.Filters.IsEmpty() {
		return nil, errors.NewInvalidInputError("criteria or filters must constrain the search")
	}
	return s, nil
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

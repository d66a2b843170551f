// internal/workers/data-access/query-listings/handler.go
package querylistings

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"propguard-workers/internal/common/camunda"
	"propguard-workers/internal/common/errors"
	"propguard-workers/internal/common/logger"
	"propguard-workers/internal/models"
	"propguard-workers/internal/repository"
	"propguard-workers/internal/workers/data-access/query-listings/queries"
)

const (
	TaskType = "query-listings"
)

type Handler struct {
	config       *Config
	store        queries.ListingQuerier
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, store queries.ListingQuerier, log logger.Logger) *Handler {
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
	if input == nil {
		return nil, errors.NewInvalidInputError("input cannot be nil")
	}

	queryType := models.QueryType(input.QueryType)
	if _, exists := queries.Registry[queryType]; !exists {
		return nil, errors.NewInvalidQueryTypeError(input.QueryType)
	}
	if input.Limit < 0 {
		return nil, models.NewValidationError(models.KindInvalidRange, "limit", "limit must be non-negative")
	}

	params := queries.Params{
		ListingID:  input.ListingID,
		ListingIDs: input.ListingIDs,
		City:       input.City,
		Bounds:     input.Bounds,
		Filters:    input.Filters,
		Limit:      h.limit(input.Limit),
	}

	listings, execTime, err := queries.Execute(ctx, h.store, queryType, params)
	if err != nil {
		return nil, h.mapError(ctx, input, err)
	}

	h.logger.Debug("query executed", map[string]interface{}{
		"queryType":     queryType,
		"rowCount":      len(listings),
		"executionTime": execTime,
	})

	return &Output{
		Listings:           listings,
		RowCount:           len(listings),
		QueryExecutionTime: execTime,
	}, nil
}

func (h *Handler) limit(requested int) int {
	limit := requested
	if limit == 0 {
		limit = h.config.DefaultLimit
	}
	if h.config.MaxLimit > 0 && limit > h.config.MaxLimit {
		limit = h.config.MaxLimit
	}
	return limit
}

func (h *Handler) mapError(ctx context.Context, input *Input, err error) error {
	if _, ok := models.AsValidationError(err); ok {
		return err
	}
	switch {
	case stderrors.Is(err, queries.ErrMissingParam):
		return errors.NewInvalidInputError(err.Error())
	case stderrors.Is(err, repository.ErrNotFound):
		return errors.NewListingNotFoundError(input.ListingID)
	case ctx.Err() == context.DeadlineExceeded:
		return errors.NewQueryTimeoutError(input.QueryType)
	}
	return errors.NewQueryExecutionFailedError(input.QueryType, err)
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

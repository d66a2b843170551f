// internal/workers/search/filter-listings/handler.go
package filterlistings

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"propguard-workers/internal/common/camunda"
	"propguard-workers/internal/common/errors"
	"propguard-workers/internal/common/logger"
	"propguard-workers/internal/common/metrics"
	"propguard-workers/internal/matching"
	"propguard-workers/internal/models"
)

const (
	TaskType = "filter-listings"
)

type Handler struct {
	config       *Config
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
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

// Execute applies the criteria and then the filters. Inputs are validated
// before any listing is matched.
func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	for i := range input.Listings {
		if err := input.Listings[i].Validate(); err != nil {
			return nil, err
		}
	}
	if input.Criteria != nil {
		if err := input.Criteria.Validate(); err != nil {
			return nil, err
		}
	}
	if input.Filters != nil {
		if err := input.Filters.Validate(); err != nil {
			return nil, err
		}
	}

	listings := input.Listings
	var err error
	if input.Criteria != nil {
		if listings, err = matching.MatchCriteria(listings, *input.Criteria); err != nil {
			return nil, err
		}
	}
	if input.Filters != nil {
		if listings, err = matching.FilterListings(listings, *input.Filters); err != nil {
			return nil, err
		}
	}
	if listings == nil {
		listings = []models.Listing{}
	}
	metrics.ObserveStage("filter", len(input.Listings), len(listings))

	h.logger.Debug("listings filtered", map[string]interface{}{
		"totalCount":    len(input.Listings),
		"filteredCount": len(listings),
	})

	return &Output{
		Listings:      listings,
		TotalCount:    len(input.Listings),
		FilteredCount: len(listings),
	}, nil
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

// internal/workers/search/rank-listings/handler.go
package ranklistings

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"propguard-workers/internal/common/camunda"
	"propguard-workers/internal/common/errors"
	"propguard-workers/internal/common/logger"
	"propguard-workers/internal/matching"
	"propguard-workers/internal/models"
)

const (
	TaskType = "rank-listings"
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

// Execute sorts by relevance unless told otherwise. MaxItems is capped by the
// configured maximum; zero means no limit beyond that cap.
func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	if input.MaxItems < 0 {
		return nil, models.NewValidationError(models.KindInvalidRange, "maxItems", "maxItems must be non-negative")
	}

	key := input.SortBy
	if key == "" {
		key = models.SortByRelevance
	}
	ranked, err := matching.SortListings(input.ScoredListings, key, input.SortOrder)
	if err != nil {
		return nil, err
	}

	order := input.SortOrder
	if order == "" {
		order = matching.DefaultOrder(key)
	}

	limit := input.MaxItems
	if h.config.MaxItems > 0 && (limit == 0 || limit > h.config.MaxItems) {
		limit = h.config.MaxItems
	}
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	return &Output{
		RankedListings: ranked,
		TotalCount:     len(input.ScoredListings),
		ReturnedCount:  len(ranked),
		SortBy:         key,
		SortOrder:      order,
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

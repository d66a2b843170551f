// internal/workers/data-access/query-listing-index/handler.go
package querylistingindex

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"propguard-workers/internal/common/camunda"
	"propguard-workers/internal/common/database"
	"propguard-workers/internal/common/errors"
	"propguard-workers/internal/common/logger"
	"propguard-workers/internal/models"
	"propguard-workers/internal/workers/data-access/query-listing-index/queries"
)

const (
	TaskType = "query-listing-index"
)

type Handler struct {
	config       *Config
	client       *database.ElasticsearchClient
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, client *database.ElasticsearchClient, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		client:       client,
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
	if input.Pagination.From < 0 {
		return nil, models.NewValidationError(models.KindInvalidRange, "pagination.from", "from must be non-negative")
	}

	iq := queries.IndexQuery{
		Index:     input.IndexName,
		QueryType: input.QueryType,
		ListingID: input.ListingID,
		From:      input.Pagination.From,
		Size:      h.pageSize(input.Pagination.Size),
	}
	if iq.Index == "" && h.client != nil {
		iq.Index = h.client.Index
	}
	if input.Filters != nil {
		iq.Filters = *input.Filters
	}

	if h.client == nil {
		return nil, errors.NewElasticsearchConnectionFailedError(stderrors.New("no elasticsearch client configured"))
	}

	result, err := queries.Execute(ctx, h.client.Client, iq)
	if err != nil {
		return nil, h.mapError(ctx, iq, err)
	}

	h.logger.Debug("search executed", map[string]interface{}{
		"queryType": iq.QueryType,
		"index":     iq.Index,
		"totalHits": result.TotalHits,
		"took":      result.Took,
	})

	return &Output{
		Listings:  result.Listings,
		TotalHits: result.TotalHits,
		MaxScore:  result.MaxScore,
		Took:      result.Took,
	}, nil
}

// pageSize clamps the requested size the same way for every query type.
func (h *Handler) pageSize(size int) int {
	if size < 1 {
		return h.config.DefaultSize
	}
	if size > h.config.MaxSize {
		return h.config.MaxSize
	}
	return size
}

func (h *Handler) mapError(ctx context.Context, iq queries.IndexQuery, err error) error {
	if _, ok := models.AsValidationError(err); ok {
		return err
	}
	if ctx.Err() == context.DeadlineExceeded {
		return errors.NewSearchTimeoutError(iq.QueryType)
	}

	var connErr *queries.ConnectionError
	switch {
	case stderrors.Is(err, queries.ErrUnknownQueryType):
		return errors.NewInvalidQueryTypeError(iq.QueryType)
	case stderrors.Is(err, queries.ErrMissingParam):
		return errors.NewInvalidInputError(err.Error())
	case stderrors.Is(err, queries.ErrMissingIndex), stderrors.Is(err, queries.ErrIndexNotFound):
		return errors.NewIndexNotFoundError(iq.Index)
	case stderrors.As(err, &connErr):
		return errors.NewElasticsearchConnectionFailedError(err)
	}
	return errors.NewSearchQueryFailedError(iq.QueryType, err)
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

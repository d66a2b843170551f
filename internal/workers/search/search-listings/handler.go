// internal/workers/search/search-listings/handler.go
package searchlistings

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
	TaskType = "search-listings"
)

type Handler struct {
	config       *Config
	pipeline     *matching.Pipeline
	listings     ListingSource
	profiles     ProfileLoader
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, pipeline *matching.Pipeline, listings ListingSource, profiles ProfileLoader, log logger.Logger) *Handler {
	if pipeline == nil {
		pipeline = matching.NewPipeline(nil)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		pipeline:     pipeline,
		listings:     listings,
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Limit < 0 {
		return nil, models.NewValidationError(models.KindInvalidRange, "limit", "limit must be non-negative")
	}

	req := matching.SearchRequest{
		Criteria:  input.Criteria,
		Filters:   input.Filters,
		Profile:   input.Profile,
		SortBy:    input.SortBy,
		SortOrder: input.SortOrder,
		Limit:     h.config.effectiveLimit(input.Limit),
	}

	if req.Profile == nil && input.UserID != "" {
		p, err := h.loadProfile(ctx, input.UserID)
		if err != nil {
			return nil, err
		}
		req.Profile = p
	}

	listings, source, truncated := input.Listings, SourceInput, false
	if listings == nil {
		loaded, capped, err := h.loadCandidates(ctx, input)
		if err != nil {
			return nil, err
		}
		listings, source, truncated = loaded, SourceStore, capped
	}

	res, err := h.pipeline.Run(listings, req)
	if err != nil {
		return nil, err
	}

	metrics.ObserveStage("filter", res.Candidates, res.Matched)
	metrics.ObserveStage("score", res.Matched, res.Matched-res.Excluded)
	for _, s := range res.Listings {
		metrics.ObserveScores(s.MatchScore)
	}

	h.logger.Info("search completed", map[string]interface{}{
		"source":     source,
		"candidates": res.Candidates,
		"matched":    res.Matched,
		"excluded":   res.Excluded,
		"returned":   len(res.Listings),
		"truncated":  truncated,
	})

	return &Output{
		Results:             res.Listings,
		CandidateCount:      res.Candidates,
		MatchedCount:        res.Matched,
		ExcludedCount:       res.Excluded,
		ReturnedCount:       len(res.Listings),
		CandidatesTruncated: truncated,
		SortBy:              res.SortBy,
		SortOrder:           res.SortOrder,
		Source:              source,
	}, nil
}

func (h *Handler) loadProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	if h.profiles == nil {
		return nil, errors.NewProfileNotFoundError(userID)
	}
	p, _, err := h.profiles.Load(ctx, userID)
	if err != nil {
		return nil, h.storeError(ctx, "user_profile", err)
	}
	return p, nil
}

// loadCandidates validates the filters before touching the store so a bad
// request never costs a query. It asks for one row past the cap to tell a
// full result from a truncated one.
func (h *Handler) loadCandidates(ctx context.Context, input *Input) ([]models.Listing, bool, error) {
	var f models.SearchFilters
	if input.Filters != nil {
		f = *input.Filters
	} else if input.Criteria != nil {
		f = input.Criteria.AsFilters()
	}
	if err := f.Validate(); err != nil {
		return nil, false, err
	}
	if h.listings == nil {
		return nil, false, errors.NewInvalidInputError("listings are required when no listing store is configured")
	}

	max := h.config.MaxCandidates
	listings, err := h.listings.Search(ctx, f, max+1)
	if err != nil {
		return nil, false, h.storeError(ctx, string(models.QueryTypeListingSearch), err)
	}
	if len(listings) <= max {
		return listings, false, nil
	}
	h.logger.Warn("candidate cap reached; results rank a truncated candidate set", map[string]interface{}{
		"maxCandidates": max,
	})
	return listings[:max], true, nil
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

// internal/workers/search/find-similar-listings/handler.go
package findsimilarlistings

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"propguard-workers/internal/common/camunda"
	"propguard-workers/internal/common/errors"
	"propguard-workers/internal/common/logger"
	"propguard-workers/internal/matching"
	"propguard-workers/internal/models"
	"propguard-workers/internal/repository"
)

const (
	TaskType = "find-similar-listings"
)

type Handler struct {
	config       *Config
	listings     ListingReader
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, listings ListingReader, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		listings:     listings,
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
	limit := input.Limit
	if limit == 0 {
		limit = h.config.DefaultLimit
	}

	target, err := h.resolveTarget(ctx, input)
	if err != nil {
		return nil, err
	}

	candidates := input.Candidates
	if candidates == nil {
		if candidates, err = h.loadCandidates(ctx, target, limit); err != nil {
			return nil, err
		}
	}
	for i := range candidates {
		if err := candidates[i].Validate(); err != nil {
			return nil, err
		}
	}

	similar := matching.SimilarListings(*target, candidates, limit)

	h.logger.Info("similar listings found", map[string]interface{}{
		"listingId":  target.ID,
		"candidates": len(candidates),
		"returned":   len(similar),
	})

	return &Output{
		ListingID:  target.ID,
		Similar:    similar,
		TotalCount: len(similar),
	}, nil
}

func (h *Handler) resolveTarget(ctx context.Context, input *Input) (*models.Listing, error) {
	if input.Listing != nil {
		if err := input.Listing.Validate(); err != nil {
			return nil, err
		}
		return input.Listing, nil
	}
	if strings.TrimSpace(input.ListingID) == "" {
		return nil, errors.NewInvalidInputError("listingId or listing is required")
	}
	if h.listings == nil {
		return nil, errors.NewListingNotFoundError(input.ListingID)
	}

	l, err := h.listings.ByID(ctx, input.ListingID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.NewListingNotFoundError(input.ListingID)
	}
	if err != nil {
		return nil, h.storeError(ctx, models.QueryTypeListingByID, err)
	}
	return l, nil
}

// loadCandidates takes listings from the same city first and tops up with the
// newest listings elsewhere when the city alone cannot fill the limit.
func (h *Handler) loadCandidates(ctx context.Context, target *models.Listing, limit int) ([]models.Listing, error) {
	if h.listings == nil {
		return []models.Listing{}, nil
	}

	var candidates []models.Listing
	if city := strings.TrimSpace(target.Location.City); city != "" {
		local, err := h.listings.ByCity(ctx, city, h.config.MaxCandidates)
		if err != nil {
			return nil, h.storeError(ctx, models.QueryTypeListingsByCity, err)
		}
		candidates = local
	}

	if countOthers(candidates, target.ID) >= limit {
		return candidates, nil
	}

	recent, err := h.listings.Recent(ctx, h.config.MaxCandidates)
	if err != nil {
		return nil, h.storeError(ctx, models.QueryTypeRecentListings, err)
	}

	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		seen[c.ID] = true
	}
	for _, r := range recent {
		if !seen[r.ID] {
			seen[r.ID] = true
			candidates = append(candidates, r)
		}
	}
	return candidates, nil
}

func countOthers(listings []models.Listing, id string) int {
	n := 0
	for _, l := range listings {
		if l.ID != id {
			n++
		}
	}
	return n
}

func (h *Handler) storeError(ctx context.Context, qt models.QueryType, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return errors.NewQueryTimeoutError(string(qt))
	}
	return errors.NewQueryExecutionFailedError(string(qt), err)
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

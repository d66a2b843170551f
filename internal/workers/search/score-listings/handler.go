// internal/workers/search/score-listings/handler.go
package scorelistings

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

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
	TaskType = "score-listings"
)

type Handler struct {
	config       *Config
	scorer       *matching.Scorer
	profiles     ProfileLoader
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, scorer *matching.Scorer, profiles ProfileLoader, log logger.Logger) *Handler {
	if scorer == nil {
		scorer = matching.NewScorer(matching.DefaultWeights(), nil)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		scorer:       scorer,
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
	profile, source, err := h.resolveProfile(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	for i := range input.Listings {
		if err := input.Listings[i].Validate(); err != nil {
			return nil, err
		}
	}

	all := h.scorer.ScoreAll(input.Listings, *profile)
	scored := make([]models.ScoredListing, 0, len(all))
	excluded, sum := 0, 0
	for _, s := range all {
		if s.Excluded {
			excluded++
			if !h.config.IncludeExcluded {
				continue
			}
		} else {
			sum += s.MatchScore
		}
		scored = append(scored, s)
	}

	avg := 0.0
	if n := len(all) - excluded; n > 0 {
		avg = math.Round(float64(sum)/float64(n)*10) / 10
	}

	metrics.ObserveStage("score", len(all), len(all)-excluded)
	for _, s := range all {
		if !s.Excluded {
			metrics.ObserveScores(s.MatchScore)
		}
	}

	h.logger.Debug("listings scored", map[string]interface{}{
		"count":         len(all),
		"excludedCount": excluded,
		"profileSource": source,
	})

	return &Output{
		ScoredListings: scored,
		ExcludedCount:  excluded,
		AverageScore:   avg,
		ProfileSource:  source,
	}, nil
}

func (h *Handler) resolveProfile(ctx context.Context, input *Input) (*models.UserProfile, string, error) {
	if input.Profile != nil {
		return input.Profile, ProfileSourceInput, nil
	}
	if input.UserID == "" {
		return nil, "", models.NewValidationError(models.KindInvalidProfile, "profile", "either profile or userId is required")
	}
	if h.profiles == nil {
		return nil, "", errors.NewProfileNotFoundError(input.UserID)
	}

	p, isDefault, err := h.profiles.Load(ctx, input.UserID)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, "", errors.NewQueryTimeoutError("user_profile")
		}
		return nil, "", errors.NewQueryExecutionFailedError("user_profile", err)
	}
	if isDefault {
		return p, ProfileSourceDefault, nil
	}
	return p, ProfileSourceStored, nil
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

package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propguard-workers/internal/models"
)

type recordingLogger struct {
	messages []string
}

func (l *recordingLogger) Error(msg string, _ map[string]interface{}) {
	l.messages = append(l.messages, msg)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      ErrorCode
		retryable bool
	}{
		{
			name: "validation range",
			err:  models.NewValidationError(models.KindInvalidRange, "budgetRange", "min > max"),
			code: ErrCodeInvalidRange,
		},
		{
			name: "wrapped validation listing",
			err:  fmt.Errorf("scoring: %w", models.NewValidationError(models.KindInvalidListing, "price", "bad")),
			code: ErrCodeInvalidListing,
		},
		{
			name:      "standard error passes through",
			err:       NewQueryExecutionFailedError("listing_by_id", stderrors.New("conn reset")),
			code:      ErrCodeQueryExecutionFailed,
			retryable: true,
		},
		{
			name:      "wrapped standard error",
			err:       fmt.Errorf("load: %w", NewCacheUnavailableError(stderrors.New("dial tcp"))),
			code:      ErrCodeCacheUnavailable,
			retryable: true,
		},
		{
			name: "unknown error",
			err:  stderrors.New("boom"),
			code: ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.err)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.retryable, got.Retryable)
		})
	}
}

func TestConvertToBPMNError(t *testing.T) {
	v := NewValidationError(models.NewValidationError(models.KindInvalidSort, "sortBy", "unknown"))
	bpmn := ConvertToBPMNError(v)

	assert.Equal(t, "INVALID_SORT", bpmn.Code)
	assert.Equal(t, 0, bpmn.Retries)
	vars := bpmn.ToErrorVariables()
	assert.Equal(t, "sortBy", vars["errorField"])
	assert.Equal(t, "VALIDATION", vars["errorCategory"])
	assert.Equal(t, false, vars["retryable"])

	retryable := ConvertToBPMNError(NewSearchTimeoutError("listing_search"))
	assert.Equal(t, 2, retryable.Retries)

	notRetryable := NewSearchTimeoutError("listing_search")
	notRetryable.Retryable = false
	assert.Equal(t, 0, ConvertToBPMNError(notRetryable).Retries)
}

func TestGetErrorCategory(t *testing.T) {
	tests := map[ErrorCode]string{
		ErrCodeInvalidRange:                  "VALIDATION",
		ErrCodeInvalidQueryType:              "DATABASE",
		ErrCodeProfileNotFound:               "NOT_FOUND",
		ErrCodeSavedSearchNotFound:           "NOT_FOUND",
		ErrCodeIndexNotFound:                 "SEARCH",
		ErrCodeQueryTimeout:                  "DATABASE",
		ErrCodeElasticsearchConnectionFailed: "SEARCH",
		ErrCodeCacheUnavailable:              "CACHE",
		ErrCodeNotificationSendFailed:        "NOTIFICATION",
		ErrCodeInternal:                      "OTHER",
	}
	for code, want := range tests {
		assert.Equal(t, want, GetErrorCategory(code), string(code))
	}
}

func TestIsRetryableErrorCode(t *testing.T) {
	assert.True(t, IsRetryableErrorCode(ErrCodeDatabaseWriteFailed))
	assert.False(t, IsRetryableErrorCode(ErrCodeInvalidProfile))
	assert.False(t, IsRetryableErrorCode(ErrCodeListingNotFound))
}

func TestErrorHandler_Decide(t *testing.T) {
	h := NewErrorHandler(&recordingLogger{})
	job := entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1, Retries: 3}}

	bpmn, retry := h.Decide(job, NewQueryTimeoutError("listing_by_id"))
	require.NotNil(t, bpmn)
	assert.True(t, retry)

	_, retry = h.Decide(job, models.NewValidationError(models.KindInvalidRange, "limit", "negative"))
	assert.False(t, retry)

	lastAttempt := entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1, Retries: 1}}
	_, retry = h.Decide(lastAttempt, NewQueryTimeoutError("listing_by_id"))
	assert.False(t, retry)
}

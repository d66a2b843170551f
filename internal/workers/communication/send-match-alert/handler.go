// internal/workers/communication/send-match-alert/handler.go
package sendmatchalert

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"propguard-workers/internal/common/aws"
	"propguard-workers/internal/common/camunda"
	"propguard-workers/internal/common/errors"
	"propguard-workers/internal/common/logger"
	"propguard-workers/internal/models"
	"propguard-workers/internal/repository"
)

const (
	TaskType = "send-match-alert"
)

type Handler struct {
	config       *Config
	contacts     ContactStore
	ses          aws.SESService
	sns          aws.SNSService
	now          func() time.Time
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

// NewHandler wires the alert sender. ses and sns may be nil when their
// channel is disabled.
func NewHandler(config *Config, contacts ContactStore, ses aws.SESService, sns aws.SNSService, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		contacts:     contacts,
		ses:          ses,
		sns:          sns,
		now:          func() time.Time { return time.Now().UTC() },
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

// Execute delivers the alert on every enabled channel the user can be reached
// on. The job fails only when every attempted channel failed.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, errors.NewInvalidInputError("userId is required")
	}
	if len(input.Matches) == 0 {
		return nil, errors.NewInvalidInputError("matches must not be empty")
	}

	matches := make([]models.ScoredListing, len(input.Matches))
	copy(matches, input.Matches)
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].MatchScore > matches[j].MatchScore })
	input = &Input{UserID: userID, SavedSearchID: input.SavedSearchID, SearchName: input.SearchName, Matches: matches}

	out := &Output{
		NotificationID: uuid.New().String(),
		MatchCount:     len(matches),
		Channels:       []ChannelResult{},
	}

	contact, err := h.contacts.ByUserID(ctx, userID)
	if stderrors.Is(err, repository.ErrNotFound) {
		h.logger.Warn("no contact record, alert disabled", map[string]interface{}{"userId": userID})
		out.Status = StatusDisabled
		h.record(ctx, out, input, ChannelResult{Channel: ChannelNone, Status: StatusDisabled, Error: "contact not found"})
		return out, nil
	}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewQueryTimeoutError("contact")
		}
		return nil, errors.NewQueryExecutionFailedError("contact", err)
	}

	msg, err := composeAlert(contact, input, h.config.MaxListed)
	if err != nil {
		h.logger.Error("alert render failed", map[string]interface{}{"userId": userID, "error": err})
		return nil, errors.NewNotificationSendFailedError(ChannelEmail, err)
	}

	if h.config.EmailEnabled && h.ses != nil && contact.Email != "" {
		out.Channels = append(out.Channels, h.sendEmail(ctx, contact, msg))
	}
	if h.config.SMSEnabled && h.sns != nil && contact.Phone != "" && matches[0].MatchScore >= h.config.SMSMinScore {
		out.Channels = append(out.Channels, h.sendSMS(ctx, contact, msg))
	}

	if len(out.Channels) == 0 {
		out.Status = StatusDisabled
		h.record(ctx, out, input, ChannelResult{Channel: ChannelNone, Status: StatusDisabled})
		return out, nil
	}

	var lastErr string
	out.Status = StatusFailed
	for _, c := range out.Channels {
		h.record(ctx, out, input, c)
		if c.Status == StatusSent {
			out.Status = StatusSent
		} else {
			lastErr = c.Error
		}
	}

	if out.Status == StatusFailed {
		return nil, errors.NewNotificationSendFailedError(out.Channels[len(out.Channels)-1].Channel, stderrors.New(lastErr))
	}

	h.logger.Info("match alert sent", map[string]interface{}{
		"userId":         userID,
		"notificationId": out.NotificationID,
		"channels":       len(out.Channels),
		"matches":        out.MatchCount,
	})
	return out, nil
}

func (h *Handler) sendEmail(ctx context.Context, contact *models.Contact, msg alertMessage) ChannelResult {
	id, err := aws.SendEmail(ctx, h.ses, aws.Email{
		From:    h.config.FromEmail,
		To:      contact.Email,
		Subject: msg.Subject,
		Text:    msg.Text,
		HTML:    msg.HTML,
	})
	if err != nil {
		h.logger.Error("email send failed", map[string]interface{}{"userId": contact.UserID, "error": err})
		return ChannelResult{Channel: ChannelEmail, Status: StatusFailed, Error: err.Error()}
	}
	return ChannelResult{Channel: ChannelEmail, Status: StatusSent, MessageID: id}
}

func (h *Handler) sendSMS(ctx context.Context, contact *models.Contact, msg alertMessage) ChannelResult {
	id, err := aws.PublishSMS(ctx, h.sns, contact.Phone, h.config.SenderID, msg.SMS)
	if err != nil {
		h.logger.Error("sms send failed", map[string]interface{}{"userId": contact.UserID, "error": err})
		return ChannelResult{Channel: ChannelSMS, Status: StatusFailed, Error: err.Error()}
	}
	return ChannelResult{Channel: ChannelSMS, Status: StatusSent, MessageID: id}
}

// record logs one channel outcome. A failed write is only logged: the message
// has already gone out and a retry would send it twice.
func (h *Handler) record(ctx context.Context, out *Output, input *Input, c ChannelResult) {
	ids := make([]string, len(input.Matches))
	for i, m := range input.Matches {
		ids[i] = m.ID
	}
	payload := map[string]interface{}{
		"alertId":    out.NotificationID,
		"listingIds": ids,
		"topScore":   input.Matches[0].MatchScore,
	}
	if c.MessageID != "" {
		payload["messageId"] = c.MessageID
	}
	if c.Error != "" {
		payload["error"] = c.Error
	}

	n := &models.Notification{
		ID:            uuid.New().String(),
		UserID:        input.UserID,
		SavedSearchID: input.SavedSearchID,
		Type:          notificationType,
		Channel:       c.Channel,
		Status:        c.Status,
		Payload:       payload,
		SentAt:        h.now().Format(time.RFC3339),
	}
	if err := h.contacts.RecordNotification(ctx, n); err != nil {
		h.logger.Warn("failed to record notification", map[string]interface{}{
			"notificationId": out.NotificationID,
			"channel":        c.Channel,
			"error":          err,
		})
	}
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

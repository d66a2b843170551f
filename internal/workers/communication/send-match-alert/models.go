package sendmatchalert

import (
	"context"

	"propguard-workers/internal/models"
)

type Input struct {
	UserID        string                 `json:"userId"`
	SavedSearchID string                 `json:"savedSearchId,omitempty"`
	SearchName    string                 `json:"searchName,omitempty"`
	Matches       []models.ScoredListing `json:"matches"`
}

type Output struct {
	NotificationID string          `json:"notificationId"`
	Status         string          `json:"status"`
	Channels       []ChannelResult `json:"channels"`
	MatchCount     int             `json:"matchCount"`
}

type ChannelResult struct {
	Channel   string `json:"channel"`
	Status    string `json:"status"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"

	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelNone  = "none"

	notificationType = "match_alert"
)

type ContactStore interface {
	ByUserID(ctx context.Context, userID string) (*models.Contact, error)
	RecordNotification(ctx context.Context, n *models.Notification) error
}

// internal/models/notification.go
package models

type Notification struct {
	ID            string                 `json:"id"`
	UserID        string                 `json:"userId"`
	SavedSearchID string                 `json:"savedSearchId,omitempty"`
	Type          string                 `json:"type"`    // "match_alert"
	Channel       string                 `json:"channel"` // "email", "sms"
	Status        string                 `json:"status"`  // "sent", "failed", "disabled"
	Payload       map[string]interface{} `json:"payload"`
	SentAt        string                 `json:"sentAt"`
}

// Contact is the delivery address of a user.
type Contact struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
}

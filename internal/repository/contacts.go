// internal/repository/contacts.go
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"propguard-workers/internal/models"
)

// ContactStore reads delivery addresses from users and records sent alerts.
type ContactStore struct {
	db *sql.DB
}

func NewContactStore(db *sql.DB) *ContactStore {
	return &ContactStore{db: db}
}

func (s *ContactStore) ByUserID(ctx context.Context, userID string) (*models.Contact, error) {
	var c models.Contact
	var name, email, phone sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, phone FROM users WHERE id = $1`, userID).
		Scan(&c.UserID, &name, &email, &phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	c.Name, c.Email, c.Phone = name.String, email.String, phone.String
	return &c, nil
}

// RecordNotification appends n to the notifications log.
func (s *ContactStore) RecordNotification(ctx context.Context, n *models.Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return fmt.Errorf("encode notification payload: %w", err)
	}
	var savedSearchID interface{}
	if n.SavedSearchID != "" {
		savedSearchID = n.SavedSearchID
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, saved_search_id, type, channel, status, payload, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.UserID, savedSearchID, n.Type, n.Channel, n.Status, payload, n.SentAt)
	return err
}

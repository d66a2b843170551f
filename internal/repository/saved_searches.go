// internal/repository/saved_searches.go
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"propguard-workers/internal/models"
)

type SavedSearchStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSavedSearchStore(db *sql.DB) *SavedSearchStore {
	return &SavedSearchStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create assigns an id and creation time to s and inserts it.
func (st *SavedSearchStore) Create(ctx context.Context, s *models.SavedSearch) error {
	criteria, err := json.Marshal(s.Criteria)
	if err != nil {
		return fmt.Errorf("encode criteria: %w", err)
	}
	filters, err := json.Marshal(s.Filters)
	if err != nil {
		return fmt.Errorf("encode filters: %w", err)
	}

	s.ID = uuid.New().String()
	s.CreatedAt = st.now()

	_, err = st.db.ExecContext(ctx, `
		INSERT INTO saved_searches (id, user_id, name, criteria, filters, alerts_enabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.UserID, s.Name, criteria, filters, s.AlertsEnabled, s.CreatedAt)
	return err
}

func (st *SavedSearchStore) ByID(ctx context.Context, id string) (*models.SavedSearch, error) {
	row := st.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, criteria, filters, alerts_enabled, created_at
		FROM saved_searches WHERE id = $1`, id)
	s, err := scanSavedSearch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("saved search %s: %w", id, ErrNotFound)
	}
	return s, err
}

// ListByUser returns the user's saved searches, newest first.
func (st *SavedSearchStore) ListByUser(ctx context.Context, userID string) ([]models.SavedSearch, error) {
	rows, err := st.db.QueryContext(ctx, `
		SELECT id, user_id, name, criteria, filters, alerts_enabled, created_at
		FROM saved_searches WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.SavedSearch{}
	for rows.Next() {
		s, err := scanSavedSearch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func scanSavedSearch(row scanner) (*models.SavedSearch, error) {
	var s models.SavedSearch
	var criteria, filters []byte
	if err := row.Scan(&s.ID, &s.UserID, &s.Name, &criteria, &filters, &s.AlertsEnabled, &s.CreatedAt); err != nil {
		return nil, err
	}
	if len(criteria) > 0 {
		if err := json.Unmarshal(criteria, &s.Criteria); err != nil {
			return nil, fmt.Errorf("decode criteria of %s: %w", s.ID, err)
		}
	}
	if len(filters) > 0 {
		if err := json.Unmarshal(filters, &s.Filters); err != nil {
			return nil, fmt.Errorf("decode filters of %s: %w", s.ID, err)
		}
	}
	return &s, nil
}

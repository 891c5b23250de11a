package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fyrsmithlabs/cadence/internal/docstore"
)

// Collection names.
const (
	ProfilesCollection = "profiles"
	LogsCollection     = "daily_logs"
)

const dateLayout = "2006-01-02"

// Repository reads and writes profiles and logs through a document store.
type Repository struct {
	store docstore.Store
	now   func() time.Time
}

// NewRepository creates a repository backed by store.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store, now: time.Now}
}

// SaveProfile upserts the profile for p.UserID.
func (r *Repository) SaveProfile(ctx context.Context, p Profile) error {
	if p.UserID == "" {
		return ErrEmptyUserID
	}
	if p.LastPeriodStart != "" {
		if _, err := time.Parse(dateLayout, p.LastPeriodStart); err != nil {
			return fmt.Errorf("last_period_start: %w", ErrInvalidDate)
		}
	}
	p.UpdatedAt = r.now().UTC()

	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	_, err = r.store.FindOneAndUpdate(ctx, ProfilesCollection, docstore.Filter{"user_id": p.UserID},
		func([]byte) ([]byte, error) { return doc, nil }, docstore.WithUpsert())
	if err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}

// GetProfile loads the profile for userID.
func (r *Repository) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	doc, err := r.store.FindOne(ctx, ProfilesCollection, docstore.Filter{"user_id": userID})
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}
	return &p, nil
}

// RecordLog upserts the log for (UserID, Date). Later writes for the same day
// replace earlier ones.
func (r *Repository) RecordLog(ctx context.Context, l DailyLog) error {
	if l.UserID == "" {
		return ErrEmptyUserID
	}
	if _, err := time.Parse(dateLayout, l.Date); err != nil {
		return ErrInvalidDate
	}
	l.UpdatedAt = r.now().UTC()

	doc, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("encoding log: %w", err)
	}
	_, err = r.store.FindOneAndUpdate(ctx, LogsCollection, docstore.Filter{"user_id": l.UserID, "date": l.Date},
		func([]byte) ([]byte, error) { return doc, nil }, docstore.WithUpsert())
	if err != nil {
		return fmt.Errorf("recording log: %w", err)
	}
	return nil
}

// RecentLogs returns up to limit logs dated on or before asOf, newest first.
func (r *Repository) RecentLogs(ctx context.Context, userID, asOf string, limit int) ([]DailyLog, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	docs, err := r.store.Find(ctx, LogsCollection, docstore.Filter{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("loading logs: %w", err)
	}

	logs := make([]DailyLog, 0, len(docs))
	for _, doc := range docs {
		var l DailyLog
		if err := json.Unmarshal(doc, &l); err != nil {
			continue
		}
		if l.Date <= asOf {
			logs = append(logs, l)
		}
	}

	sort.Slice(logs, func(i, j int) bool { return logs[i].Date > logs[j].Date })
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

// Package progress persists per-user quiz progress over a generic key-value store.
package progress

import (
	"context"
	"encoding/json"
	"fmt"

	"quizwalk/internal/domain"
)

// KeyPrefix namespaces every key the service writes.
const KeyPrefix = "quizwalk_"

// KeyValue is the raw persistence capability progress is stored through.
type KeyValue interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Store loads and saves UserProgress. The whole progress lives under one key
// so completing a quiz commits the active and completed mutations together.
type Store struct {
	kv KeyValue
}

func NewStore(kv KeyValue) *Store {
	return &Store{kv: kv}
}

// Key returns the per-user key progress is stored under.
func Key(userID string) string {
	return KeyPrefix + "progress_" + userID
}

// Load returns the user's progress, or empty progress if none was persisted.
func (s *Store) Load(ctx context.Context, userID string) (domain.UserProgress, error) {
	raw, ok, err := s.kv.Get(ctx, Key(userID))
	if err != nil {
		return domain.UserProgress{}, fmt.Errorf("%w: load progress: %v", domain.ErrPersistenceUnavailable, err)
	}
	if !ok {
		return domain.NewUserProgress(), nil
	}

	var p domain.UserProgress
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return domain.UserProgress{}, fmt.Errorf("%w: decode progress: %v", domain.ErrPersistenceUnavailable, err)
	}
	if p.ActiveQuizzes == nil {
		p.ActiveQuizzes = make(map[int64]domain.QuizAttempt)
	}
	if p.CompletedQuizzes == nil {
		p.CompletedQuizzes = []domain.CompletedQuizRecord{}
	}
	if p.Scores == nil {
		p.Scores = []domain.ScoreEntry{}
	}
	return p, nil
}

// Save writes the user's progress in full.
func (s *Store) Save(ctx context.Context, userID string, p domain.UserProgress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%w: encode progress: %v", domain.ErrPersistenceUnavailable, err)
	}
	if err := s.kv.Set(ctx, Key(userID), string(data)); err != nil {
		return fmt.Errorf("%w: save progress: %v", domain.ErrPersistenceUnavailable, err)
	}
	return nil
}

// Remove wipes everything stored for the user.
func (s *Store) Remove(ctx context.Context, userID string) error {
	if err := s.kv.Remove(ctx, Key(userID)); err != nil {
		return fmt.Errorf("%w: remove progress: %v", domain.ErrPersistenceUnavailable, err)
	}
	return nil
}

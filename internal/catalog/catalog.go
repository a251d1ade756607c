// Package catalog stores quiz content as quiz-global key-value state.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"quizwalk/internal/domain"
	"quizwalk/internal/progress"
)

// Catalog keeps one JSON document per quiz in a key-value store.
type Catalog struct {
	kv progress.KeyValue
}

func New(kv progress.KeyValue) *Catalog {
	return &Catalog{kv: kv}
}

// Key returns the key a quiz is stored under.
func Key(quizID int64) string {
	return progress.KeyPrefix + "quiz_" + strconv.FormatInt(quizID, 10)
}

// LoadQuiz returns the stored quiz or ErrQuizNotFound.
func (c *Catalog) LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	raw, ok, err := c.kv.Get(ctx, Key(quizID))
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: load quiz: %v", domain.ErrPersistenceUnavailable, err)
	}
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	var quiz domain.Quiz
	if err := json.Unmarshal([]byte(raw), &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

// SaveQuiz creates or replaces a quiz.
func (c *Catalog) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	if err := c.kv.Set(ctx, Key(quiz.ID), string(data)); err != nil {
		return fmt.Errorf("%w: save quiz: %v", domain.ErrPersistenceUnavailable, err)
	}
	return nil
}

// DeleteQuiz removes a quiz. Progress records keep their own snapshots.
func (c *Catalog) DeleteQuiz(ctx context.Context, quizID int64) error {
	if err := c.kv.Remove(ctx, Key(quizID)); err != nil {
		return fmt.Errorf("%w: delete quiz: %v", domain.ErrPersistenceUnavailable, err)
	}
	return nil
}

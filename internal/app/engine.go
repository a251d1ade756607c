package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"quizwalk/internal/domain"
	"quizwalk/internal/geo"
	"quizwalk/internal/metrics"
	"quizwalk/internal/progress"
	"quizwalk/internal/trivia"

	"github.com/rs/zerolog"
)

// ProgressStore persists per-user progress (write-through).
type ProgressStore interface {
	Load(ctx context.Context, userID string) (domain.UserProgress, error)
	Save(ctx context.Context, userID string, p domain.UserProgress) error
	Remove(ctx context.Context, userID string) error
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
	// Forget evicts a cached quiz after its content changed.
	Forget(ctx context.Context, quizID int64) error
}

// QuizCatalog is the source of truth for quiz content.
type QuizCatalog interface {
	LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
	DeleteQuiz(ctx context.Context, quizID int64) error
}

// SessionRepository tracks the one live session per user.
type SessionRepository interface {
	// Swap installs s for userID and returns the session it replaced, if any.
	Swap(userID string, s *Session) *Session
	Get(userID string) (*Session, bool)
	// Delete removes s only if it is still the current session for userID.
	Delete(userID string, s *Session)
}

// QuestionProvider supplies raw question batches. It may return fewer than requested.
type QuestionProvider interface {
	FetchQuestions(ctx context.Context, amount int, category string) ([]trivia.RawQuestion, error)
}

// Engine wires persistence and quiz content together and hands out per-user sessions.
type Engine struct {
	progress ProgressStore
	quizzes  QuizRepository
	catalog  QuizCatalog
	sessions SessionRepository
	radius   float64
	now      func() time.Time
	log      zerolog.Logger

	mu         sync.Mutex
	rnd        *rand.Rand
	lastQuizID int64
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRadius overrides the proximity radius in meters.
func WithRadius(meters float64) Option {
	return func(e *Engine) {
		if meters > 0 {
			e.radius = meters
		}
	}
}

// WithClock is used by tests for deterministic timestamps and quiz ids.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log.With().Str("component", "engine").Logger() }
}

// WithRand fixes the source used to shuffle answer options.
func WithRand(rnd *rand.Rand) Option {
	return func(e *Engine) { e.rnd = rnd }
}

func NewEngine(progress ProgressStore, quizzes QuizRepository, catalog QuizCatalog, sessions SessionRepository, opts ...Option) *Engine {
	e := &Engine{
		progress: progress,
		quizzes:  quizzes,
		catalog:  catalog,
		sessions: sessions,
		radius:   geo.DefaultRadius,
		now:      time.Now,
		log:      zerolog.Nop(),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Radius returns the proximity radius in meters.
func (e *Engine) Radius() float64 {
	return e.radius
}

// Login loads the user's progress and returns their session context. A previous
// session of the same user is closed.
func (e *Engine) Login(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		return nil, domain.ErrUserRequired
	}
	p, err := e.progress.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	s := newSession(e, userID, p)
	if prev := e.sessions.Swap(userID, s); prev != nil {
		prev.close()
		e.log.Info().Str("user", userID).Msg("replaced existing session")
	} else {
		metrics.ActiveSessions.Inc()
	}
	e.log.Info().
		Str("user", userID).
		Int("active", len(p.ActiveQuizzes)).
		Int("completed", len(p.CompletedQuizzes)).
		Msg("session opened")
	return s, nil
}

// Quiz returns quiz content by id.
func (e *Engine) Quiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	return e.quizzes.GetQuiz(ctx, quizID)
}

// CreateQuiz normalizes a provider batch into a new quiz and stores it.
func (e *Engine) CreateQuiz(ctx context.Context, name string, raws []trivia.RawQuestion) (domain.Quiz, error) {
	e.mu.Lock()
	questions := trivia.Normalize(raws, e.rnd)
	e.mu.Unlock()
	if len(questions) == 0 {
		return domain.Quiz{}, domain.ErrEmptyQuiz
	}

	quiz := domain.Quiz{
		ID:        e.nextQuizID(),
		Name:      name,
		Questions: questions,
		CreatedAt: e.now(),
	}
	if err := e.catalog.SaveQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("save quiz: %w", err)
	}
	e.log.Info().Int64("quiz", quiz.ID).Int("questions", len(questions)).Msg("quiz created")
	return quiz, nil
}

// GenerateQuiz fetches up to amount questions from the provider and creates a quiz from whatever came back.
func (e *Engine) GenerateQuiz(ctx context.Context, provider QuestionProvider, name string, amount int, category string) (domain.Quiz, error) {
	raws, err := provider.FetchQuestions(ctx, amount, category)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("fetch questions: %w", err)
	}
	if len(raws) < amount {
		e.log.Warn().Int("requested", amount).Int("received", len(raws)).Msg("partial question batch")
	}
	return e.CreateQuiz(ctx, name, raws)
}

// AssignLocation pins a question to a coordinate, making it proximity-gated.
// It is an administrative step meant to run before the quiz is played: attempts
// already started keep the snapshot they took and only new attempts see the pin.
func (e *Engine) AssignLocation(ctx context.Context, quizID int64, questionID int, loc domain.Coordinate) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	quiz, err := e.catalog.LoadQuiz(ctx, quizID)
	if err != nil {
		return err
	}

	found := false
	for i := range quiz.Questions {
		if quiz.Questions[i].ID == questionID {
			pinned := loc
			quiz.Questions[i].Location = &pinned
			found = true
			break
		}
	}
	if !found {
		return domain.ErrQuestionNotFound
	}

	if err := e.catalog.SaveQuiz(ctx, quiz); err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	if err := e.quizzes.Forget(ctx, quizID); err != nil {
		e.log.Warn().Err(err).Int64("quiz", quizID).Msg("evict cached quiz")
	}
	return nil
}

// RemoveQuiz deletes a quiz from the catalog and the cache. Attempts in
// progress finish on their snapshot; completed records keep theirs.
func (e *Engine) RemoveQuiz(ctx context.Context, quizID int64) error {
	if _, err := e.catalog.LoadQuiz(ctx, quizID); err != nil {
		return err
	}
	if err := e.catalog.DeleteQuiz(ctx, quizID); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if err := e.quizzes.Forget(ctx, quizID); err != nil {
		e.log.Warn().Err(err).Int64("quiz", quizID).Msg("evict cached quiz")
	}
	e.log.Info().Int64("quiz", quizID).Msg("quiz removed")
	return nil
}

// Stats summarizes a user's history. A logged-in user is read from their live
// session, anyone else from the progress store.
func (e *Engine) Stats(ctx context.Context, userID string) (progress.Stats, error) {
	if userID == "" {
		return progress.Stats{}, domain.ErrUserRequired
	}
	if s, ok := e.sessions.Get(userID); ok {
		return s.Stats(), nil
	}
	p, err := e.progress.Load(ctx, userID)
	if err != nil {
		return progress.Stats{}, err
	}
	return progress.Summarize(p), nil
}

func (e *Engine) nextQuizID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.now().UnixMilli()
	if id <= e.lastQuizID {
		id = e.lastQuizID + 1
	}
	e.lastQuizID = id
	return id
}

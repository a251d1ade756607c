package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"quizwalk/internal/domain"
	"quizwalk/internal/geo"
	"quizwalk/internal/metrics"
	"quizwalk/internal/progress"
)

// Session is the quiz state of one logged-in user. It runs the
// NotStarted -> InProgress -> Completed lifecycle for each quiz. The current
// question of an attempt is always len(answers); there is no separate cursor.
//
// Every mutation is saved before it is adopted in memory, so the in-memory
// progress never runs ahead of what was persisted.
type Session struct {
	engine *Engine
	userID string

	mu       sync.RWMutex
	progress domain.UserProgress
	closed   bool
}

func newSession(e *Engine, userID string, p domain.UserProgress) *Session {
	return &Session{engine: e, userID: userID, progress: p}
}

// UserID returns the user the session belongs to.
func (s *Session) UserID() string {
	return s.userID
}

// Progress returns a copy of the user's progress.
func (s *Session) Progress() domain.UserProgress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress.Clone()
}

// Stats summarizes the user's history.
func (s *Session) Stats() progress.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return progress.Summarize(s.progress)
}

// Start creates an empty attempt for quizID with a snapshot of the quiz as it is
// now. Starting a quiz that is already in progress is a no-op.
func (s *Session) Start(ctx context.Context, quizID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSessionClosed
	}
	if _, ok := s.progress.ActiveQuizzes[quizID]; ok {
		return nil
	}
	if _, ok := s.progress.Completed(quizID); ok {
		return domain.ErrAlreadyCompleted
	}
	quiz, err := s.engine.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return err
	}

	next := s.progress.Clone()
	next.ActiveQuizzes[quizID] = domain.QuizAttempt{
		QuizID:    quizID,
		Quiz:      quiz.Clone(),
		Answers:   []domain.AnswerRecord{},
		StartedAt: s.engine.now(),
	}
	if err := s.commitLocked(ctx, next); err != nil {
		return err
	}

	metrics.QuizzesStarted.Inc()
	s.engine.log.Info().Str("user", s.userID).Int64("quiz", quizID).Msg("quiz started")
	return nil
}

// Quiz returns the content the user plays: the snapshot taken at Start, or the
// one stored with the completion record.
func (s *Session) Quiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return domain.Quiz{}, domain.ErrSessionClosed
	}
	if rec, ok := s.progress.Completed(quizID); ok {
		return rec.Quiz.Clone(), nil
	}
	attempt, err := s.attemptLocked(quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz, err := s.attemptQuiz(ctx, attempt)
	if err != nil {
		return domain.Quiz{}, err
	}
	return quiz.Clone(), nil
}

// CurrentQuestionIndex returns the index of the next unanswered question.
func (s *Session) CurrentQuestionIndex(quizID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	attempt, err := s.attemptLocked(quizID)
	if err != nil {
		return 0, err
	}
	return len(attempt.Answers), nil
}

// RevealQuestion decides whether the question at index may be shown at pos.
// quiz identifies the attempt; its content is read from the attempt snapshot.
// A nil pos means no position is known: gated questions stay gated. It has no
// side effects and may be called on every position update.
func (s *Session) RevealQuestion(quiz domain.Quiz, index int, pos *domain.Coordinate) (domain.Reveal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	attempt, err := s.attemptLocked(quiz.ID)
	if err != nil {
		return domain.Reveal{}, err
	}
	if len(attempt.Quiz.Questions) > 0 {
		quiz = attempt.Quiz
	}
	return reveal(quiz, index, pos, s.engine.radius)
}

// AnswerContext is what the caller observed while the question was shown.
type AnswerContext struct {
	TimeSpent     time.Duration
	Distance      float64 // to the question location, valid if DistanceKnown
	DistanceKnown bool
	Walked        float64 // meters covered while the question was current
}

func (ac AnswerContext) score(correct bool) int {
	if !correct {
		return 0
	}
	distance := math.Inf(1)
	if ac.DistanceKnown {
		distance = ac.Distance
	}
	return geo.Score(ac.TimeSpent.Seconds(), distance)
}

// SubmitAnswer records the chosen option for questionID and returns whether it was
// correct. A second submission for the same question records nothing and returns
// the original correctness together with ErrAlreadyAnswered.
func (s *Session) SubmitAnswer(ctx context.Context, quizID int64, questionID, optionID int) (bool, error) {
	rec, err := s.Answer(ctx, quizID, questionID, optionID, AnswerContext{})
	return rec.IsCorrect, err
}

// Answer is SubmitAnswer with scoring: the stored record carries the score
// earned under ac. On ErrAlreadyAnswered it returns the first record.
func (s *Session) Answer(ctx context.Context, quizID int64, questionID, optionID int, ac AnswerContext) (domain.AnswerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, err := s.attemptLocked(quizID)
	if err != nil {
		return domain.AnswerRecord{}, err
	}
	if prior, ok := attempt.Answer(questionID); ok {
		return prior, domain.ErrAlreadyAnswered
	}

	quiz, err := s.attemptQuiz(ctx, attempt)
	if err != nil {
		return domain.AnswerRecord{}, err
	}
	question, ok := quiz.Question(questionID)
	if !ok {
		return domain.AnswerRecord{}, domain.ErrQuestionNotFound
	}
	current := len(attempt.Answers)
	if current >= len(quiz.Questions) || quiz.Questions[current].ID != questionID {
		return domain.AnswerRecord{}, domain.ErrQuestionNotCurrent
	}
	option, ok := question.Option(optionID)
	if !ok {
		return domain.AnswerRecord{}, domain.ErrOptionNotFound
	}

	rec := domain.AnswerRecord{
		QuestionID:     questionID,
		ChosenOptionID: optionID,
		IsCorrect:      option.IsCorrect,
		AnsweredAt:     s.engine.now(),
		Score:          ac.score(option.IsCorrect),
		Walked:         ac.Walked,
	}
	next := s.progress.Clone()
	updated := next.ActiveQuizzes[quizID]
	updated.Answers = append(updated.Answers, rec)
	next.ActiveQuizzes[quizID] = updated
	if err := s.commitLocked(ctx, next); err != nil {
		return domain.AnswerRecord{}, err
	}

	metrics.ObserveAnswer(option.IsCorrect)
	s.engine.log.Debug().
		Str("user", s.userID).
		Int64("quiz", quizID).
		Int("question", questionID).
		Bool("correct", option.IsCorrect).
		Int("score", rec.Score).
		Msg("answer recorded")
	return rec, nil
}

// AnswerFor returns the recorded answer for questionID of an active or completed quiz.
func (s *Session) AnswerFor(quizID int64, questionID int) (domain.AnswerRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if attempt, ok := s.progress.ActiveQuizzes[quizID]; ok {
		return attempt.Answer(questionID)
	}
	if rec, ok := s.progress.Completed(quizID); ok {
		for _, a := range rec.Answers {
			if a.QuestionID == questionID {
				return a, true
			}
		}
	}
	return domain.AnswerRecord{}, false
}

// Advance completes the attempt once every question is answered and reports
// whether it did. Otherwise the attempt stays in progress. Completion also
// enters the quiz total into the high score list, in the same save.
func (s *Session) Advance(ctx context.Context, quizID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, err := s.attemptLocked(quizID)
	if err != nil {
		return false, err
	}
	quiz, err := s.attemptQuiz(ctx, attempt)
	if err != nil {
		return false, err
	}
	if len(attempt.Answers) < len(quiz.Questions) {
		return false, nil
	}

	now := s.engine.now()
	record := domain.CompletedQuizRecord{
		QuizID:      quizID,
		Quiz:        quiz.Clone(),
		CompletedAt: now,
		Answers:     append([]domain.AnswerRecord{}, attempt.Answers...),
	}
	next := s.progress.Clone()
	delete(next.ActiveQuizzes, quizID)
	next.CompletedQuizzes = append(next.CompletedQuizzes, record)
	next.Scores = progress.AddScore(next.Scores, domain.ScoreEntry{
		QuizID:    quizID,
		Score:     record.Score(),
		Date:      now,
		Timestamp: now.UnixMilli(),
	})
	if err := s.commitLocked(ctx, next); err != nil {
		return false, err
	}

	metrics.QuizzesCompleted.Inc()
	s.engine.log.Info().Str("user", s.userID).Int64("quiz", quizID).Int("score", record.Score()).Msg("quiz completed")
	return true, nil
}

// Wipe deletes everything persisted for the user.
func (s *Session) Wipe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSessionClosed
	}
	if err := s.engine.progress.Remove(ctx, s.userID); err != nil {
		return persistenceErr(err)
	}
	s.progress = domain.NewUserProgress()
	s.engine.log.Info().Str("user", s.userID).Msg("user data wiped")
	return nil
}

// Logout ends the session. Later calls fail with ErrSessionClosed.
func (s *Session) Logout() {
	if s.close() {
		s.engine.sessions.Delete(s.userID, s)
		metrics.ActiveSessions.Dec()
		s.engine.log.Info().Str("user", s.userID).Msg("session closed")
	}
}

func (s *Session) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	return true
}

func (s *Session) answered(quizID int64, questionID int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.progress.ActiveQuizzes[quizID]
	if !ok {
		return false
	}
	_, ok = attempt.Answer(questionID)
	return ok
}

func (s *Session) attemptLocked(quizID int64) (domain.QuizAttempt, error) {
	if s.closed {
		return domain.QuizAttempt{}, domain.ErrSessionClosed
	}
	if attempt, ok := s.progress.ActiveQuizzes[quizID]; ok {
		return attempt, nil
	}
	if _, ok := s.progress.Completed(quizID); ok {
		return domain.QuizAttempt{}, domain.ErrAlreadyCompleted
	}
	return domain.QuizAttempt{}, domain.ErrNotStarted
}

// attemptQuiz returns the attempt snapshot. Attempts saved without one fall
// back to the current quiz content.
func (s *Session) attemptQuiz(ctx context.Context, attempt domain.QuizAttempt) (domain.Quiz, error) {
	if len(attempt.Quiz.Questions) > 0 {
		return attempt.Quiz, nil
	}
	return s.engine.quizzes.GetQuiz(ctx, attempt.QuizID)
}

func (s *Session) commitLocked(ctx context.Context, next domain.UserProgress) error {
	if err := s.engine.progress.Save(ctx, s.userID, next); err != nil {
		s.engine.log.Error().Err(err).Str("user", s.userID).Msg("save progress")
		return persistenceErr(err)
	}
	s.progress = next
	return nil
}

func persistenceErr(err error) error {
	if errors.Is(err, domain.ErrPersistenceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrPersistenceUnavailable, err)
}

// reveal is the gating rule: ungated questions are always visible, gated ones
// only within radius of a known position.
func reveal(quiz domain.Quiz, index int, pos *domain.Coordinate, radius float64) (domain.Reveal, error) {
	if index < 0 || index >= len(quiz.Questions) {
		return domain.Reveal{}, domain.ErrQuestionNotFound
	}
	question := quiz.Questions[index]
	if !question.Gated() {
		return domain.Reveal{Status: domain.RevealVisible, Index: index, Question: &question}, nil
	}
	if pos == nil {
		return domain.Reveal{Status: domain.RevealGated, Index: index}, nil
	}

	target := *question.Location
	distance := geo.Distance(*pos, target)
	if geo.IsWithinRadius(*pos, target, radius) {
		return domain.Reveal{
			Status:        domain.RevealVisible,
			Index:         index,
			Question:      &question,
			Distance:      distance,
			DistanceKnown: true,
		}, nil
	}
	return domain.Reveal{
		Status:        domain.RevealGated,
		Index:         index,
		Distance:      distance,
		DistanceKnown: true,
		Bearing:       geo.Bearing(*pos, target),
	}, nil
}

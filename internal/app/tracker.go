package app

import (
	"fmt"
	"sync"

	"quizwalk/internal/domain"
)

// PositionProvider delivers position fixes to onFix until the returned cancel func is called.
type PositionProvider interface {
	Subscribe(onFix func(domain.Fix)) (cancel func())
}

// RevealFunc receives the gating outcome for every delivered fix. err wraps
// ErrPositionUnavailable when the provider failed; the reveal is then gated
// with an unknown distance.
type RevealFunc func(r domain.Reveal, err error)

// Track re-checks the question at index against every fix the provider delivers
// until the question is answered or stop is called. stop is idempotent and must be
// called on every exit path to release the subscription.
func (s *Session) Track(quiz domain.Quiz, index int, provider PositionProvider, onReveal RevealFunc) (stop func()) {
	t := &tracker{session: s, quiz: quiz, index: index, onReveal: onReveal}
	if index >= 0 && index < len(quiz.Questions) {
		t.questionID = quiz.Questions[index].ID
	}

	cancel := provider.Subscribe(t.handle)

	t.mu.Lock()
	t.cancel = cancel
	stopped := t.stopped
	t.mu.Unlock()
	if stopped {
		cancel()
	}
	return t.stop
}

type tracker struct {
	session    *Session
	quiz       domain.Quiz
	index      int
	questionID int
	onReveal   RevealFunc

	mu      sync.Mutex
	stopped bool
	cancel  func()
}

func (t *tracker) handle(fix domain.Fix) {
	t.mu.Lock()
	stopped := t.stopped
	t.mu.Unlock()
	if stopped || t.session.answered(t.quiz.ID, t.questionID) {
		return
	}

	if fix.Err != nil {
		r, err := t.session.RevealQuestion(t.quiz, t.index, nil)
		if err != nil {
			t.onReveal(r, err)
			return
		}
		if r.Visible() {
			// Ungated questions do not depend on position.
			t.onReveal(r, nil)
			return
		}
		t.onReveal(r, fmt.Errorf("%w: %v", domain.ErrPositionUnavailable, fix.Err))
		return
	}

	pos := fix.Coordinate
	t.onReveal(t.session.RevealQuestion(t.quiz, t.index, &pos))
}

func (t *tracker) stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	cancel := t.cancel
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

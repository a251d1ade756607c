package memory

import (
	"sync"

	"quizwalk/internal/domain"
)

// PositionFeed fans position fixes out to subscribers. It implements
// app.PositionProvider for positions that arrive over a client connection.
type PositionFeed struct {
	mu          sync.Mutex
	nextID      int
	subscribers map[int]func(domain.Fix)
	latest      *domain.Fix
}

func NewPositionFeed() *PositionFeed {
	return &PositionFeed{subscribers: make(map[int]func(domain.Fix))}
}

// Subscribe registers onFix. If a fix was already published it is delivered
// immediately. The caller must invoke the returned cancel function to avoid leaks.
func (f *PositionFeed) Subscribe(onFix func(domain.Fix)) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subscribers[id] = onFix
	var initial *domain.Fix
	if f.latest != nil {
		fix := *f.latest
		initial = &fix
	}
	f.mu.Unlock()

	if initial != nil {
		onFix(*initial)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subscribers, id)
			f.mu.Unlock()
		})
	}
}

// Publish records fix as the latest and delivers it to every subscriber.
// Callbacks run outside the lock so they may cancel their own subscription.
func (f *PositionFeed) Publish(fix domain.Fix) {
	f.mu.Lock()
	f.latest = &fix
	targets := make([]func(domain.Fix), 0, len(f.subscribers))
	for _, cb := range f.subscribers {
		targets = append(targets, cb)
	}
	f.mu.Unlock()

	for _, cb := range targets {
		cb(fix)
	}
}

// Latest returns the most recent fix, if any.
func (f *PositionFeed) Latest() (domain.Fix, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latest == nil {
		return domain.Fix{}, false
	}
	return *f.latest, true
}

// Subscribers returns how many subscriptions are live.
func (f *PositionFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}

package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizwalk/internal/domain"
)

func TestLoadReturnsEmptyProgressForNewUser(t *testing.T) {
	store := NewStore(newFakeKV())

	p, err := store.Load(context.Background(), "alice")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.ActiveQuizzes == nil || len(p.ActiveQuizzes) != 0 {
		t.Fatalf("expected empty active quizzes, got %+v", p.ActiveQuizzes)
	}
	if p.CompletedQuizzes == nil || len(p.CompletedQuizzes) != 0 {
		t.Fatalf("expected empty completed quizzes, got %+v", p.CompletedQuizzes)
	}
}

func TestSaveThenLoadRestoresAttempt(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store := NewStore(kv)

	p := domain.NewUserProgress()
	p.ActiveQuizzes[1700000000000] = domain.QuizAttempt{
		QuizID: 1700000000000,
		Answers: []domain.AnswerRecord{
			{QuestionID: 0, ChosenOptionID: 2, IsCorrect: true},
			{QuestionID: 1, ChosenOptionID: 0, IsCorrect: false},
		},
		StartedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := store.Save(ctx, "alice", p); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok := kv.data["quizwalk_progress_alice"]; !ok {
		t.Fatalf("expected progress under namespaced key, keys=%v", kv.data)
	}

	loaded, err := NewStore(kv).Load(ctx, "alice")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	attempt, ok := loaded.ActiveQuizzes[1700000000000]
	if !ok {
		t.Fatalf("expected attempt to survive reload")
	}
	if len(attempt.Answers) != 2 || !attempt.Answers[0].IsCorrect || attempt.Answers[1].ChosenOptionID != 0 {
		t.Fatalf("unexpected answers %+v", attempt.Answers)
	}

	// Other users are isolated.
	bob, err := store.Load(ctx, "bob")
	if err != nil || len(bob.ActiveQuizzes) != 0 {
		t.Fatalf("expected bob to have no progress, got %+v err=%v", bob, err)
	}
}

func TestStoreFailuresArePersistenceErrors(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	kv.err = errors.New("disk full")
	store := NewStore(kv)

	if _, err := store.Load(ctx, "alice"); !errors.Is(err, domain.ErrPersistenceUnavailable) {
		t.Fatalf("expected persistence error on load, got %v", err)
	}
	if err := store.Save(ctx, "alice", domain.NewUserProgress()); !errors.Is(err, domain.ErrPersistenceUnavailable) {
		t.Fatalf("expected persistence error on save, got %v", err)
	}
	if err := store.Remove(ctx, "alice"); !errors.Is(err, domain.ErrPersistenceUnavailable) {
		t.Fatalf("expected persistence error on remove, got %v", err)
	}
}

func TestLoadRejectsCorruptProgress(t *testing.T) {
	kv := newFakeKV()
	kv.data[Key("alice")] = "{not json"
	if _, err := NewStore(kv).Load(context.Background(), "alice"); !errors.Is(err, domain.ErrPersistenceUnavailable) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestRemoveWipesUser(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store := NewStore(kv)

	p := domain.NewUserProgress()
	p.ActiveQuizzes[1] = domain.QuizAttempt{QuizID: 1}
	_ = store.Save(ctx, "alice", p)

	if err := store.Remove(ctx, "alice"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	loaded, _ := store.Load(ctx, "alice")
	if len(loaded.ActiveQuizzes) != 0 {
		t.Fatalf("expected wiped progress, got %+v", loaded)
	}
}

func TestSummarize(t *testing.T) {
	quiz := domain.Quiz{ID: 1, Questions: make([]domain.Question, 4)}
	p := domain.NewUserProgress()
	p.CompletedQuizzes = append(p.CompletedQuizzes,
		domain.CompletedQuizRecord{QuizID: 1, Quiz: quiz, Answers: []domain.AnswerRecord{
			{QuestionID: 0, IsCorrect: true, Walked: 120},
			{QuestionID: 1, IsCorrect: true, Walked: 30.5},
			{QuestionID: 2, IsCorrect: false},
			{QuestionID: 3, IsCorrect: true},
		}},
		domain.CompletedQuizRecord{QuizID: 2, Quiz: quiz, Answers: []domain.AnswerRecord{
			{QuestionID: 0, IsCorrect: true},
			{QuestionID: 1, IsCorrect: false},
			{QuestionID: 2, IsCorrect: false},
			{QuestionID: 3, IsCorrect: true},
		}},
	)
	p.ActiveQuizzes[3] = domain.QuizAttempt{QuizID: 3, Answers: []domain.AnswerRecord{{QuestionID: 0, IsCorrect: true, Walked: 10}}}
	p.Scores = AddScore(p.Scores, domain.ScoreEntry{QuizID: 1, Score: 340})

	st := Summarize(p)
	if st.GamesPlayed != 2 || st.GamesInProgress != 1 {
		t.Fatalf("unexpected game counts %+v", st)
	}
	if st.QuestionsAnswered != 9 || st.CorrectAnswers != 6 {
		t.Fatalf("unexpected answer counts %+v", st)
	}
	if st.AverageScore != 62.5 || st.BestScore != 75 {
		t.Fatalf("unexpected scores %+v", st)
	}
	if st.TotalDistance != 160.5 {
		t.Fatalf("expected 160.5m walked, got %v", st.TotalDistance)
	}
	if len(st.TopScores) != 1 || st.TopScores[0].Score != 340 {
		t.Fatalf("unexpected top scores %+v", st.TopScores)
	}
}

func TestAddScoreKeepsTopTenHighestFirst(t *testing.T) {
	var scores []domain.ScoreEntry
	for i, score := range []int{50, 120, 90, 120, 10, 300, 70, 80, 60, 40, 200, 30} {
		scores = AddScore(scores, domain.ScoreEntry{QuizID: int64(i), Score: score})
	}

	if len(scores) != MaxScores {
		t.Fatalf("expected %d scores kept, got %d", MaxScores, len(scores))
	}
	want := []int{300, 200, 120, 120, 90, 80, 70, 60, 50, 40}
	for i, w := range want {
		if scores[i].Score != w {
			t.Fatalf("position %d: expected %d, got %d (%+v)", i, w, scores[i].Score, scores)
		}
	}
	// Ties keep the earlier result first.
	if scores[2].QuizID != 1 || scores[3].QuizID != 3 {
		t.Fatalf("expected stable order for ties, got %+v", scores[2:4])
	}

	// A score below the cut is dropped.
	scores = AddScore(scores, domain.ScoreEntry{QuizID: 99, Score: 5})
	for _, s := range scores {
		if s.QuizID == 99 {
			t.Fatalf("expected low score dropped, got %+v", scores)
		}
	}
}

type fakeKV struct {
	data map[string]string
	err  error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeKV) Set(_ context.Context, key, value string) error {
	if f.err != nil {
		return f.err
	}
	f.data[key] = value
	return nil
}

func (f *fakeKV) Remove(_ context.Context, key string) error {
	if f.err != nil {
		return f.err
	}
	delete(f.data, key)
	return nil
}

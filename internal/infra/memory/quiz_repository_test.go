package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizwalk/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{QuizLoader: NewStaticQuizLoader(sampleQuiz())}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), 1700000000000); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetQuiz(context.Background(), 1700000000000); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryForget(t *testing.T) {
	loader := &countingLoader{QuizLoader: NewStaticQuizLoader(sampleQuiz())}
	repo := NewQuizRepository(loader, time.Minute)
	ctx := context.Background()

	_, _ = repo.GetQuiz(ctx, 1700000000000)
	if err := repo.Forget(ctx, 1700000000000); err != nil {
		t.Fatalf("forget: %v", err)
	}
	_, _ = repo.GetQuiz(ctx, 1700000000000)
	if loader.calls != 2 {
		t.Fatalf("expected reload after forget, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryExpires(t *testing.T) {
	loader := &countingLoader{QuizLoader: NewStaticQuizLoader(sampleQuiz())}
	repo := NewQuizRepository(loader, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }
	ctx := context.Background()

	_, _ = repo.GetQuiz(ctx, 1700000000000)
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetQuiz(ctx, 1700000000000)
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryReturnsCopies(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(sampleQuiz()), time.Minute)
	ctx := context.Background()

	first, _ := repo.GetQuiz(ctx, 1700000000000)
	first.Questions[0].Options[0].Text = "mutated"

	second, _ := repo.GetQuiz(ctx, 1700000000000)
	if second.Questions[0].Options[0].Text == "mutated" {
		t.Fatalf("expected cached quiz to be isolated from callers")
	}
}

func TestStaticQuizLoaderUnknownQuiz(t *testing.T) {
	_, err := NewStaticQuizLoader().LoadQuiz(context.Background(), 42)
	if !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID: 1700000000000,
		Questions: []domain.Question{
			{
				ID:     0,
				Prompt: "What is 2 + 2?",
				Options: []domain.AnswerOption{
					{ID: 0, Text: "3", IsCorrect: false},
					{ID: 1, Text: "4", IsCorrect: true},
				},
			},
		},
	}
}

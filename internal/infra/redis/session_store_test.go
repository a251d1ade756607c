package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"quizwalk/internal/app"
	"quizwalk/internal/infra/memory"
	"quizwalk/internal/progress"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)
	engine := app.NewEngine(
		progress.NewStore(NewKV(client, 0)),
		memory.NewQuizRepository(memory.NewStaticQuizLoader(), time.Minute),
		nil,
		store,
	)

	session, err := engine.Login(context.Background(), "u1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !mr.Exists("quizwalk_session_u1") {
		t.Fatalf("expected redis key to be set")
	}

	session.Logout()
	if mr.Exists("quizwalk_session_u1") {
		t.Fatalf("expected redis key to be removed")
	}
}

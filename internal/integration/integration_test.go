package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"quizwalk/internal/app"
	"quizwalk/internal/domain"
	pgstore "quizwalk/internal/infra/postgres"
	pgmigrations "quizwalk/internal/infra/postgres/migrations"
	infraredis "quizwalk/internal/infra/redis"
	"quizwalk/internal/progress"
	"quizwalk/internal/trivia"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestQuizResumesAcrossEnginesEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	quizzes := pgstore.NewQuizStore(pool)
	newEngine := func() *app.Engine {
		return app.NewEngine(
			progress.NewStore(pgstore.NewKV(pool)),
			infraredis.NewQuizRepository(redisClient, quizzes, 5*time.Minute),
			quizzes,
			infraredis.NewSessionStore(redisClient, 5*time.Minute),
		)
	}

	engine := newEngine()
	quiz, err := engine.CreateQuiz(ctx, "Integration walk", sampleBatch())
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	target := domain.Coordinate{Lat: 51.4779, Lng: -0.0015}
	if err := engine.AssignLocation(ctx, quiz.ID, 1, target); err != nil {
		t.Fatalf("assign location: %v", err)
	}

	session, err := engine.Login(ctx, "u1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := session.Start(ctx, quiz.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	quiz, err = engine.Quiz(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("quiz: %v", err)
	}
	if _, err := session.SubmitAnswer(ctx, quiz.ID, 0, correctOption(quiz.Questions[0])); err != nil {
		t.Fatalf("submit: %v", err)
	}
	session.Logout()

	// A fresh engine over the same stores stands in for a reload.
	engine = newEngine()
	session, err = engine.Login(ctx, "u1")
	if err != nil {
		t.Fatalf("relogin: %v", err)
	}
	defer session.Logout()

	index, err := session.CurrentQuestionIndex(quiz.ID)
	if err != nil || index != 1 {
		t.Fatalf("expected to resume at 1, got %d (%v)", index, err)
	}

	r, err := session.RevealQuestion(quiz, index, nil)
	if err != nil || r.Visible() {
		t.Fatalf("expected pinned question gated without a fix, got %+v (%v)", r, err)
	}
	r, err = session.RevealQuestion(quiz, index, &target)
	if err != nil || !r.Visible() {
		t.Fatalf("expected pinned question visible at target, got %+v (%v)", r, err)
	}

	if _, err := session.SubmitAnswer(ctx, quiz.ID, 1, correctOption(quiz.Questions[1])); err != nil {
		t.Fatalf("submit: %v", err)
	}
	done, err := session.Advance(ctx, quiz.ID)
	if err != nil || !done {
		t.Fatalf("expected completion, got %v (%v)", done, err)
	}

	stored, err := progress.NewStore(pgstore.NewKV(pool)).Load(ctx, "u1")
	if err != nil {
		t.Fatalf("load progress: %v", err)
	}
	if len(stored.ActiveQuizzes) != 0 || len(stored.CompletedQuizzes) != 1 {
		t.Fatalf("expected one completed quiz persisted, got %+v", stored)
	}
	if got := stored.CompletedQuizzes[0].Correct(); got != 2 {
		t.Fatalf("expected 2 correct answers, got %d", got)
	}

	if err := session.Start(ctx, quiz.ID); !errors.Is(err, domain.ErrAlreadyCompleted) {
		t.Fatalf("expected already completed, got %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func sampleBatch() []trivia.RawQuestion {
	return []trivia.RawQuestion{
		{Question: "What is 2 + 2?", CorrectAnswer: "4", IncorrectAnswers: []string{"3", "5"}},
		{Question: "Which meridian runs through Greenwich?", CorrectAnswer: "Prime", IncorrectAnswers: []string{"Paris"}},
	}
}

func correctOption(q domain.Question) int {
	for _, o := range q.Options {
		if o.IsCorrect {
			return o.ID
		}
	}
	return -1
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

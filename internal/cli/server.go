package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizwalk/internal/app"
	"quizwalk/internal/catalog"
	"quizwalk/internal/config"
	"quizwalk/internal/domain"
	"quizwalk/internal/infra/memory"
	pgstore "quizwalk/internal/infra/postgres"
	redisstore "quizwalk/internal/infra/redis"
	"quizwalk/internal/infra/sqlite"
	"quizwalk/internal/logger"
	"quizwalk/internal/metrics"
	"quizwalk/internal/progress"
	transport "quizwalk/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backend is the persistence chosen by storage.driver.
type backend struct {
	kv      progress.KeyValue
	catalog app.QuizCatalog
	close   func()
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	engine, cleanup, err := buildEngine(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	metrics.Init()
	if cfg.Quiz.Seed {
		if err := seedQuiz(ctx, engine, cfg.Quiz.Locations, log); err != nil {
			return err
		}
	}

	wsHandler := transport.NewWSHandler(engine, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/stats", wsHandler.ServeStats)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Str("storage", cfg.Storage.Driver).Msg("starting quizwalk")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildEngine opens the configured storage and caches and wires the engine.
// cleanup releases the connections.
func buildEngine(ctx context.Context, cfg config.Config, log zerolog.Logger) (*app.Engine, func(), error) {
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	closeRedis := func() {
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	store, err := openBackend(ctx, cfg, redisClient, log)
	if err != nil {
		closeRedis()
		return nil, nil, err
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, store.catalog, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(store.catalog, quizTTL)
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisstore.NewSessionStore(redisClient, redisTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	engine := app.NewEngine(
		progress.NewStore(store.kv),
		quizRepo,
		store.catalog,
		sessions,
		app.WithRadius(cfg.Quiz.ProximityRadius),
		app.WithLogger(log),
	)
	return engine, func() {
		store.close()
		closeRedis()
	}, nil
}

func openBackend(ctx context.Context, cfg config.Config, redisClient *redis.Client, log zerolog.Logger) (backend, error) {
	switch cfg.Storage.Driver {
	case "memory":
		kv := memory.NewKV()
		return backend{kv: kv, catalog: catalog.New(kv), close: func() {}}, nil
	case "redis":
		if redisClient == nil {
			return backend{}, fmt.Errorf("storage driver redis needs redis.addr")
		}
		kv := redisstore.NewKV(redisClient, 0)
		return backend{kv: kv, catalog: catalog.New(kv), close: func() {}}, nil
	case "postgres":
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return backend{}, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return backend{}, err
		}
		return backend{kv: pgstore.NewKV(pool), catalog: pgstore.NewQuizStore(pool), close: pool.Close}, nil
	case "sqlite":
		kv, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			return backend{}, err
		}
		return backend{kv: kv, catalog: catalog.New(kv), close: func() { _ = kv.Close() }}, nil
	default:
		return backend{}, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func seedQuiz(ctx context.Context, engine *app.Engine, locations []config.Location, log zerolog.Logger) error {
	quiz, err := engine.GenerateQuiz(ctx, sampleQuestions{}, "Sample walk", len(sampleBatch), "")
	if err != nil {
		return err
	}
	for _, loc := range locations {
		coord := domain.Coordinate{Lat: loc.Lat, Lng: loc.Lng}
		if err := engine.AssignLocation(ctx, quiz.ID, loc.Question, coord); err != nil {
			return fmt.Errorf("pin question %d: %w", loc.Question, err)
		}
	}
	log.Info().Int64("quiz", quiz.ID).Int("pinned", len(locations)).Msg("sample quiz seeded")
	return nil
}

package cli

import (
	"context"
	"fmt"
	"strconv"

	"quizwalk/internal/app"
	"quizwalk/internal/config"
	"quizwalk/internal/domain"
	"quizwalk/internal/logger"

	"github.com/spf13/cobra"
)

// NewQuizCmd groups the quiz administration commands. They act on the
// configured storage, so they are meant for persistent drivers.
func NewQuizCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Administer stored quizzes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "pin <quizId> <questionId> <lat> <lng>",
		Short: "Pin a question to a location",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			quizID, questionID, coord, err := parsePin(args)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), *configPath, func(ctx context.Context, engine *app.Engine) error {
				return engine.AssignLocation(ctx, quizID, questionID, coord)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <quizId>",
		Short: "Delete a quiz; attempts already started keep their copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			quizID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("quiz id: %w", err)
			}
			return withEngine(cmd.Context(), *configPath, func(ctx context.Context, engine *app.Engine) error {
				return engine.RemoveQuiz(ctx, quizID)
			})
		},
	})
	return cmd
}

func parsePin(args []string) (int64, int, domain.Coordinate, error) {
	quizID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, 0, domain.Coordinate{}, fmt.Errorf("quiz id: %w", err)
	}
	questionID, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, domain.Coordinate{}, fmt.Errorf("question id: %w", err)
	}
	lat, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return 0, 0, domain.Coordinate{}, fmt.Errorf("lat: %w", err)
	}
	lng, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return 0, 0, domain.Coordinate{}, fmt.Errorf("lng: %w", err)
	}
	return quizID, questionID, domain.Coordinate{Lat: lat, Lng: lng}, nil
}

func withEngine(ctx context.Context, configPath string, fn func(context.Context, *app.Engine) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)
	if cfg.Storage.Driver == "memory" {
		log.Warn().Msg("memory storage does not outlive this command")
	}

	engine, cleanup, err := buildEngine(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(ctx, engine)
}

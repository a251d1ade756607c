// Package trivia turns raw provider questions into quiz questions.
package trivia

import (
	"html"
	"math/rand"

	"quizwalk/internal/domain"
)

// RawQuestion is one item of a provider batch in the Open Trivia DB result shape.
type RawQuestion struct {
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Category         string   `json:"category"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

// Normalize converts a provider batch into questions. Question ids are positional
// (0..n-1) and are not stable across fetches. Options are shuffled and then
// renumbered so that display order and id order coincide. Partial batches are fine.
func Normalize(raws []RawQuestion, rnd *rand.Rand) []domain.Question {
	questions := make([]domain.Question, 0, len(raws))
	for i, raw := range raws {
		questions = append(questions, domain.Question{
			ID:         i,
			Prompt:     html.UnescapeString(raw.Question),
			Options:    buildOptions(raw, rnd),
			Category:   html.UnescapeString(raw.Category),
			Difficulty: raw.Difficulty,
		})
	}
	return questions
}

func buildOptions(raw RawQuestion, rnd *rand.Rand) []domain.AnswerOption {
	options := make([]domain.AnswerOption, 0, len(raw.IncorrectAnswers)+1)
	options = append(options, domain.AnswerOption{
		ID:        0,
		Text:      html.UnescapeString(raw.CorrectAnswer),
		IsCorrect: true,
	})
	for i, incorrect := range raw.IncorrectAnswers {
		options = append(options, domain.AnswerOption{
			ID:   i + 1,
			Text: html.UnescapeString(incorrect),
		})
	}

	shuffle(options, rnd)
	for i := range options {
		options[i].ID = i
	}
	return options
}

// shuffle is a Fisher–Yates shuffle.
func shuffle(options []domain.AnswerOption, rnd *rand.Rand) {
	for i := len(options) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		options[i], options[j] = options[j], options[i]
	}
}

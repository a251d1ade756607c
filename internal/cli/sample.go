package cli

import (
	"context"

	"quizwalk/internal/trivia"
)

// sampleQuestions is a static question provider in the Open Trivia DB format.
type sampleQuestions struct{}

func (sampleQuestions) FetchQuestions(_ context.Context, amount int, category string) ([]trivia.RawQuestion, error) {
	out := make([]trivia.RawQuestion, 0, amount)
	for _, q := range sampleBatch {
		if len(out) == amount {
			break
		}
		if category != "" && q.Category != category {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

var sampleBatch = []trivia.RawQuestion{
	{
		Type:             "multiple",
		Difficulty:       "easy",
		Category:         "Geography",
		Question:         "Which line of longitude passes through Greenwich?",
		CorrectAnswer:    "The Prime Meridian",
		IncorrectAnswers: []string{"The Equator", "The Tropic of Cancer", "The International Date Line"},
	},
	{
		Type:             "multiple",
		Difficulty:       "medium",
		Category:         "Science &amp; Nature",
		Question:         "What is the approximate radius of the Earth in kilometres?",
		CorrectAnswer:    "6,371",
		IncorrectAnswers: []string{"4,200", "9,800", "12,742"},
	},
	{
		Type:             "boolean",
		Difficulty:       "easy",
		Category:         "Geography",
		Question:         "A compass bearing of 90&deg; points east.",
		CorrectAnswer:    "True",
		IncorrectAnswers: []string{"False"},
	},
	{
		Type:             "multiple",
		Difficulty:       "hard",
		Category:         "History",
		Question:         "In which year was the &quot;Greenwich Mean Time&quot; adopted as the world&#039;s time standard?",
		CorrectAnswer:    "1884",
		IncorrectAnswers: []string{"1851", "1900", "1927"},
	},
}

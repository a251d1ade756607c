package progress

import (
	"sort"

	"quizwalk/internal/domain"
)

// MaxScores caps the high score list kept per user.
const MaxScores = 10

// Stats summarizes a user's history for profile screens.
type Stats struct {
	GamesPlayed       int                 `json:"totalGamesPlayed"`
	GamesInProgress   int                 `json:"gamesInProgress"`
	QuestionsAnswered int                 `json:"totalQuestionsAnswered"`
	CorrectAnswers    int                 `json:"totalCorrectAnswers"`
	TotalDistance     float64             `json:"totalDistance"` // meters walked
	AverageScore      float64             `json:"averageScore"`  // percent correct per completed quiz
	BestScore         float64             `json:"bestScore"`
	TopScores         []domain.ScoreEntry `json:"topScores"`
}

// AddScore inserts entry into scores, keeping them highest first and at most
// MaxScores long. Equal scores keep their insertion order.
func AddScore(scores []domain.ScoreEntry, entry domain.ScoreEntry) []domain.ScoreEntry {
	out := append(append(make([]domain.ScoreEntry, 0, len(scores)+1), scores...), entry)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > MaxScores {
		out = out[:MaxScores]
	}
	return out
}

// Summarize derives Stats from progress. Answers of unfinished attempts count
// towards questions answered and distance but not towards scores.
func Summarize(p domain.UserProgress) Stats {
	var st Stats
	st.GamesPlayed = len(p.CompletedQuizzes)
	st.GamesInProgress = len(p.ActiveQuizzes)
	st.TopScores = append([]domain.ScoreEntry{}, p.Scores...)

	var total float64
	for _, rec := range p.CompletedQuizzes {
		correct := rec.Correct()
		st.QuestionsAnswered += len(rec.Answers)
		st.CorrectAnswers += correct
		for _, a := range rec.Answers {
			st.TotalDistance += a.Walked
		}

		score := 0.0
		if n := len(rec.Quiz.Questions); n > 0 {
			score = float64(correct) * 100 / float64(n)
		}
		total += score
		if score > st.BestScore {
			st.BestScore = score
		}
	}
	for _, attempt := range p.ActiveQuizzes {
		st.QuestionsAnswered += len(attempt.Answers)
		for _, a := range attempt.Answers {
			if a.IsCorrect {
				st.CorrectAnswers++
			}
			st.TotalDistance += a.Walked
		}
	}
	if st.GamesPlayed > 0 {
		st.AverageScore = total / float64(st.GamesPlayed)
	}
	return st
}

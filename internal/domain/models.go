package domain

import (
	"fmt"
	"time"
)

// Coordinate is a WGS 84 point in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate reports whether the coordinate lies inside the valid lat/lng ranges.
func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("%w: lat=%g lng=%g", ErrInvalidCoordinate, c.Lat, c.Lng)
	}
	return nil
}

// AnswerOption is one selectable answer. IDs are unique within their question.
type AnswerOption struct {
	ID        int    `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question is a multiple choice question with exactly one correct option.
// A non-nil Location makes the question proximity-gated.
type Question struct {
	ID         int            `json:"id"`
	Prompt     string         `json:"prompt"`
	Options    []AnswerOption `json:"options"`
	Location   *Coordinate    `json:"location,omitempty"`
	Category   string         `json:"category,omitempty"`
	Difficulty string         `json:"difficulty,omitempty"`
}

// Gated reports whether the question is withheld until the player is nearby.
func (q Question) Gated() bool {
	return q.Location != nil
}

// Option returns the option with the given id.
func (q Question) Option(optionID int) (AnswerOption, bool) {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return opt, true
		}
	}
	return AnswerOption{}, false
}

// Quiz is an ordered set of questions. ID is the creation time in milliseconds.
type Quiz struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name,omitempty"`
	Questions []Question `json:"questions"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Question returns the question with the given id.
func (q Quiz) Question(questionID int) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == questionID {
			return question, true
		}
	}
	return Question{}, false
}

// Clone returns a deep copy so snapshots do not share option slices or locations.
func (q Quiz) Clone() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Options = append([]AnswerOption(nil), question.Options...)
		if question.Location != nil {
			loc := *question.Location
			question.Location = &loc
		}
		out.Questions[i] = question
	}
	return out
}

// AnswerRecord is the single recorded answer for one question of an attempt.
type AnswerRecord struct {
	QuestionID     int       `json:"questionId"`
	ChosenOptionID int       `json:"chosenOptionId"`
	IsCorrect      bool      `json:"isCorrect"`
	AnsweredAt     time.Time `json:"answeredAt"`
	// Score is zero for wrong answers.
	Score int `json:"score"`
	// Walked is the distance covered in meters while the question was current.
	Walked float64 `json:"walked,omitempty"`
}

// QuizAttempt is one user's in-progress pass through a quiz. Quiz is the
// content as it was when the attempt started; later catalog edits do not reach it.
type QuizAttempt struct {
	QuizID    int64          `json:"quizId"`
	Quiz      Quiz           `json:"quiz"`
	Answers   []AnswerRecord `json:"answers"`
	StartedAt time.Time      `json:"startedAt"`
}

// Answer returns the record for questionID if one has been recorded.
func (a QuizAttempt) Answer(questionID int) (AnswerRecord, bool) {
	for _, rec := range a.Answers {
		if rec.QuestionID == questionID {
			return rec, true
		}
	}
	return AnswerRecord{}, false
}

// CompletedQuizRecord is an append-only entry written when an attempt finishes.
type CompletedQuizRecord struct {
	QuizID      int64          `json:"quizId"`
	Quiz        Quiz           `json:"quiz"`
	CompletedAt time.Time      `json:"completedAt"`
	Answers     []AnswerRecord `json:"answers"`
}

// Score sums the answer scores of the record.
func (r CompletedQuizRecord) Score() int {
	total := 0
	for _, a := range r.Answers {
		total += a.Score
	}
	return total
}

// Correct counts the correct answers in the record.
func (r CompletedQuizRecord) Correct() int {
	n := 0
	for _, a := range r.Answers {
		if a.IsCorrect {
			n++
		}
	}
	return n
}

// ScoreEntry is one finished quiz in the user's high score list.
type ScoreEntry struct {
	QuizID    int64     `json:"quizId"`
	Score     int       `json:"score"`
	Date      time.Time `json:"date"`
	Timestamp int64     `json:"timestamp"`
}

// UserProgress is everything persisted for one user.
type UserProgress struct {
	ActiveQuizzes    map[int64]QuizAttempt `json:"activeQuizzes"`
	CompletedQuizzes []CompletedQuizRecord `json:"completedQuizzes"`
	// Scores holds the best results, highest first.
	Scores []ScoreEntry `json:"scores"`
}

// NewUserProgress returns the empty progress of a first login.
func NewUserProgress() UserProgress {
	return UserProgress{
		ActiveQuizzes:    make(map[int64]QuizAttempt),
		CompletedQuizzes: []CompletedQuizRecord{},
		Scores:           []ScoreEntry{},
	}
}

// Completed returns the completion record for quizID, if any.
func (p UserProgress) Completed(quizID int64) (CompletedQuizRecord, bool) {
	for _, rec := range p.CompletedQuizzes {
		if rec.QuizID == quizID {
			return rec, true
		}
	}
	return CompletedQuizRecord{}, false
}

// Clone returns a deep copy of the progress so it can be mutated before being persisted.
func (p UserProgress) Clone() UserProgress {
	out := UserProgress{
		ActiveQuizzes:    make(map[int64]QuizAttempt, len(p.ActiveQuizzes)),
		CompletedQuizzes: make([]CompletedQuizRecord, len(p.CompletedQuizzes)),
		Scores:           append([]ScoreEntry{}, p.Scores...),
	}
	for id, attempt := range p.ActiveQuizzes {
		attempt.Answers = append([]AnswerRecord{}, attempt.Answers...)
		attempt.Quiz = attempt.Quiz.Clone()
		out.ActiveQuizzes[id] = attempt
	}
	copy(out.CompletedQuizzes, p.CompletedQuizzes)
	return out
}

// RevealStatus tells whether a question may be shown.
type RevealStatus string

const (
	RevealVisible RevealStatus = "visible"
	RevealGated   RevealStatus = "gated"
)

// Reveal is the outcome of a proximity check for one question.
type Reveal struct {
	Status        RevealStatus `json:"status"`
	Index         int          `json:"index"`
	Question      *Question    `json:"question,omitempty"`
	Distance      float64      `json:"distance"`
	DistanceKnown bool         `json:"distanceKnown"`
	Bearing       float64      `json:"bearing"`
}

// Visible reports whether the question content may be displayed.
func (r Reveal) Visible() bool {
	return r.Status == RevealVisible
}

// Fix is one delivery from a position provider: either a coordinate or the reason none is available.
type Fix struct {
	Coordinate Coordinate
	Err        error
}

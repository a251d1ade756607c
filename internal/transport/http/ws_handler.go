package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"quizwalk/internal/app"
	"quizwalk/internal/domain"
	"quizwalk/internal/geo"
	"quizwalk/internal/infra/memory"
	"quizwalk/internal/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var errQuestionHidden = errors.New("question has not been revealed")

type WSHandler struct {
	engine   *app.Engine
	upgrader websocket.Upgrader
	log      zerolog.Logger
	now      func() time.Time
}

func NewWSHandler(engine *app.Engine, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.With().Str("component", "ws").Logger(),
		now: time.Now,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	QuizID int64 `json:"quizId"`
}

type positionPayload struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type positionErrorPayload struct {
	Message string `json:"message"`
}

type answerPayload struct {
	QuestionID int `json:"questionId"`
	OptionID   int `json:"optionId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type progressPayload struct {
	QuizID int64  `json:"quizId"`
	Name   string `json:"name"`
	Index  int    `json:"index"`
	Total  int    `json:"total"`
}

type optionView struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// questionPayload never carries which option is correct.
type questionPayload struct {
	QuizID     int64        `json:"quizId"`
	Index      int          `json:"index"`
	QuestionID int          `json:"questionId"`
	Prompt     string       `json:"prompt"`
	Category   string       `json:"category,omitempty"`
	Difficulty string       `json:"difficulty,omitempty"`
	Options    []optionView `json:"options"`
}

type gatedPayload struct {
	Index         int     `json:"index"`
	Distance      float64 `json:"distance"`
	DistanceKnown bool    `json:"distanceKnown"`
	Bearing       float64 `json:"bearing"`
	Reason        string  `json:"reason,omitempty"`
}

type answerResult struct {
	QuestionID int  `json:"questionId"`
	Correct    bool `json:"correct"`
	Score      int  `json:"score"`
}

type completedPayload struct {
	Record  domain.CompletedQuizRecord `json:"record"`
	Correct int                        `json:"correct"`
	Total   int                        `json:"total"`
	Score   int                        `json:"score"`
}

// ServeStats answers GET /stats?userId= with the user's summary.
func (h *WSHandler) ServeStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stats(r.Context(), r.URL.Query().Get("userId"))
	switch {
	case errors.Is(err, domain.ErrUserRequired):
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	case err != nil:
		h.log.Error().Err(err).Msg("load stats")
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}

// ServeWS upgrades the request and runs one user's quiz session over the connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	log := h.log.With().Str("conn", uuid.NewString()).Str("user", userID).Logger()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	session, err := h.engine.Login(ctx, userID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer session.Logout()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Warn().Err(err).Msg("ws write error")
				return
			}
		}
	}()

	p := &player{
		ctx:     ctx,
		session: session,
		feed:    memory.NewPositionFeed(),
		now:     h.now,
		log:     log,
		push: func(typ string, payload any) {
			select {
			case send <- outboundMessage[any]{Type: typ, Payload: payload}:
			case <-writerDone:
			}
		},
	}
	defer p.stopTracking()

	log.Info().Msg("player connected")
	p.push("stats", session.Stats())

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		p.handle(inbound)
	}

	p.stopTracking()
	close(send)
	<-writerDone
	log.Info().Msg("player disconnected")
}

// player is the per-connection orchestration state. It is owned by the read
// loop: the position feed is only published from there, so tracker callbacks
// run on the same goroutine.
type player struct {
	ctx     context.Context
	session *app.Session
	feed    *memory.PositionFeed
	now     func() time.Time
	log     zerolog.Logger
	push    func(typ string, payload any)

	quiz     domain.Quiz
	started  bool
	index    int
	stop     func()
	visible  bool
	revealed bool // shown at least once; the answer clock runs from the first reveal
	shownAt  time.Time
	distance float64
	hasDist  bool
	walked   float64
	lastFix  *domain.Coordinate
}

func (p *player) handle(in inboundMessage) {
	switch in.Type {
	case "start":
		var payload startPayload
		if err := json.Unmarshal(in.Payload, &payload); err != nil {
			p.fail("invalid start payload")
			return
		}
		p.start(payload.QuizID)
	case "position":
		var payload positionPayload
		if err := json.Unmarshal(in.Payload, &payload); err != nil {
			p.fail("invalid position payload")
			return
		}
		coord := domain.Coordinate{Lat: payload.Lat, Lng: payload.Lng}
		if err := coord.Validate(); err != nil {
			p.fail(err.Error())
			return
		}
		p.moveTo(coord)
		p.feed.Publish(domain.Fix{Coordinate: coord})
	case "positionError":
		var payload positionErrorPayload
		if err := json.Unmarshal(in.Payload, &payload); err != nil {
			p.fail("invalid positionError payload")
			return
		}
		if payload.Message == "" {
			payload.Message = "position unavailable"
		}
		p.feed.Publish(domain.Fix{Err: errors.New(payload.Message)})
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(in.Payload, &payload); err != nil {
			p.fail("invalid answer payload")
			return
		}
		p.answer(payload)
	default:
		p.fail("unsupported message type")
	}
}

func (p *player) start(quizID int64) {
	p.stopTracking()
	p.started = false

	if err := p.session.Start(p.ctx, quizID); err != nil {
		p.fail(err.Error())
		return
	}
	quiz, err := p.session.Quiz(p.ctx, quizID)
	if err != nil {
		p.fail(err.Error())
		return
	}
	p.quiz = quiz
	p.started = true
	p.showCurrent()
}

// showCurrent announces the resume point and starts tracking its question.
func (p *player) showCurrent() {
	index, err := p.session.CurrentQuestionIndex(p.quiz.ID)
	if err != nil {
		p.fail(err.Error())
		return
	}
	p.index = index
	p.visible = false
	p.revealed = false
	p.hasDist = false
	p.walked = 0
	p.push("progress", progressPayload{
		QuizID: p.quiz.ID,
		Name:   p.quiz.Name,
		Index:  index,
		Total:  len(p.quiz.Questions),
	})

	p.stop = p.session.Track(p.quiz, index, p.feed, p.onReveal)
	if _, ok := p.feed.Latest(); !ok {
		p.onReveal(p.session.RevealQuestion(p.quiz, index, nil))
	}
}

// onReveal keeps the client in step with the gating of the current question:
// `question` whenever it becomes visible, `gated` while it is hidden.
func (p *player) onReveal(r domain.Reveal, err error) {
	if err != nil && !errors.Is(err, domain.ErrPositionUnavailable) {
		p.fail(err.Error())
		return
	}
	metrics.ObserveReveal(string(r.Status))
	if r.DistanceKnown {
		p.distance = r.Distance
		p.hasDist = true
	}

	if r.Visible() {
		if p.visible {
			return
		}
		p.visible = true
		if !p.revealed {
			p.revealed = true
			p.shownAt = p.now()
		}
		p.push("question", newQuestionPayload(p.quiz.ID, r))
		return
	}

	p.visible = false
	gated := gatedPayload{
		Index:         r.Index,
		Distance:      r.Distance,
		DistanceKnown: r.DistanceKnown,
		Bearing:       r.Bearing,
	}
	if err != nil {
		gated.Reason = err.Error()
	}
	p.push("gated", gated)
}

// moveTo adds the leg from the previous fix to the distance walked.
func (p *player) moveTo(coord domain.Coordinate) {
	if p.lastFix != nil {
		p.walked += geo.Distance(*p.lastFix, coord)
	}
	p.lastFix = &coord
}

func (p *player) answer(payload answerPayload) {
	if p.quiz.ID != 0 {
		if prior, ok := p.session.AnswerFor(p.quiz.ID, payload.QuestionID); ok {
			p.push("answerResult", answerResult{QuestionID: prior.QuestionID, Correct: prior.IsCorrect, Score: prior.Score})
			return
		}
	}
	if !p.started {
		p.fail(domain.ErrNotStarted.Error())
		return
	}
	if !p.visible {
		p.fail(errQuestionHidden.Error())
		return
	}

	rec, err := p.session.Answer(p.ctx, p.quiz.ID, payload.QuestionID, payload.OptionID, app.AnswerContext{
		TimeSpent:     p.now().Sub(p.shownAt),
		Distance:      p.distance,
		DistanceKnown: p.hasDist,
		Walked:        p.walked,
	})
	if err != nil {
		p.fail(err.Error())
		return
	}
	p.stopTracking()
	p.push("answerResult", answerResult{QuestionID: rec.QuestionID, Correct: rec.IsCorrect, Score: rec.Score})

	done, err := p.session.Advance(p.ctx, p.quiz.ID)
	if err != nil {
		p.fail(err.Error())
		return
	}
	if !done {
		p.showCurrent()
		return
	}

	p.started = false
	record, ok := p.session.Progress().Completed(p.quiz.ID)
	if !ok {
		p.fail(domain.ErrNotStarted.Error())
		return
	}
	p.push("completed", completedPayload{
		Record:  record,
		Correct: record.Correct(),
		Total:   len(record.Quiz.Questions),
		Score:   record.Score(),
	})
	p.push("stats", p.session.Stats())
	p.log.Info().Int64("quiz", p.quiz.ID).Int("correct", record.Correct()).Int("score", record.Score()).Msg("quiz finished")
}

func (p *player) stopTracking() {
	if p.stop != nil {
		p.stop()
		p.stop = nil
	}
}

func (p *player) fail(msg string) {
	p.push("error", errorPayload{Message: msg})
}

func newQuestionPayload(quizID int64, r domain.Reveal) questionPayload {
	q := r.Question
	options := make([]optionView, 0, len(q.Options))
	for _, o := range q.Options {
		options = append(options, optionView{ID: o.ID, Text: o.Text})
	}
	return questionPayload{
		QuizID:     quizID,
		Index:      r.Index,
		QuestionID: q.ID,
		Prompt:     q.Prompt,
		Category:   q.Category,
		Difficulty: q.Difficulty,
		Options:    options,
	}
}

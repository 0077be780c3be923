package player

import (
	"context"
	"sync"
	"time"

	"gorm.io/datatypes"

	"course-marketplace-backend/internal/models"
	"course-marketplace-backend/pkg/logger"
)

type State string

const (
	StateLoading     State = "loading"
	StateUnavailable State = "unavailable"
	StateInProgress  State = "in_progress"
	StateScoring     State = "scoring"
	StateResults     State = "results"
)

// Ticker delivers the countdown ticks. Tests drive it by hand.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFactory func(interval time.Duration) Ticker

type timeTicker struct {
	ticker *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.ticker.C }
func (t timeTicker) Stop()               { t.ticker.Stop() }

func NewTimeTicker(interval time.Duration) Ticker {
	return timeTicker{ticker: time.NewTicker(interval)}
}

type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt *models.QuizAttempt) error
}

type Snapshot struct {
	SessionID        string                  `json:"session_id,omitempty"`
	State            State                   `json:"state"`
	CourseID         uint                    `json:"course_id"`
	LessonID         uint                    `json:"lesson_id"`
	QuizID           uint                    `json:"quiz_id,omitempty"`
	Title            string                  `json:"title,omitempty"`
	PassingScore     int                     `json:"passing_score"`
	QuestionIndex    int                     `json:"question_index"`
	QuestionCount    int                     `json:"question_count"`
	AnsweredCount    int                     `json:"answered_count"`
	CurrentQuestion  *models.StudentQuestion `json:"current_question,omitempty"`
	PendingAnswer    string                  `json:"pending_answer,omitempty"`
	RemainingSeconds *int                    `json:"remaining_seconds,omitempty"`
	StartedAt        time.Time               `json:"started_at"`
	Result           *Result                 `json:"result,omitempty"`
}

type commandKind int

const (
	cmdSnapshot commandKind = iota
	cmdSelect
	cmdAdvance
)

type command struct {
	kind   commandKind
	option string
	reply  chan commandReply
}

type commandReply struct {
	snapshot Snapshot
	err      error
}

type sessionConfig struct {
	recorder       AttemptRecorder
	newTicker      TickerFactory
	persistTimeout time.Duration
	onFinish       func(*QuizSession, Result)
}

// QuizSession runs one pass through a quiz. All state transitions happen on a single
// goroutine that consumes user commands and countdown ticks from one select loop,
// so a tick and a manual advance can never both score the run.
type QuizSession struct {
	id        string
	actor     models.Actor
	courseID  uint
	lessonID  uint
	quiz      *models.Quiz
	startedAt time.Time
	deadline  time.Time
	cfg       sessionConfig

	commands chan command
	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}

	// Owned by the loop goroutine.
	state      State
	index      int
	pending    string
	hasPending bool
	answers    models.AttemptAnswers
	timed      bool
	remaining  int
	ticker     Ticker
	result     *Result

	mu           sync.Mutex
	final        *Snapshot
	lastActivity time.Time
}

func newQuizSession(id string, actor models.Actor, courseID, lessonID uint, quiz *models.Quiz, cfg sessionConfig) *QuizSession {
	now := time.Now().UTC()
	s := &QuizSession{
		id:           id,
		actor:        actor,
		courseID:     courseID,
		lessonID:     lessonID,
		quiz:         quiz,
		startedAt:    now,
		cfg:          cfg,
		commands:     make(chan command),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
		state:        StateInProgress,
		answers:      make(models.AttemptAnswers, len(quiz.Questions)),
		lastActivity: now,
	}

	if limit := quiz.TimeLimit(); limit > 0 {
		s.timed = true
		s.remaining = int(limit / time.Second)
		s.deadline = now.Add(limit)
		factory := cfg.newTicker
		if factory == nil {
			factory = NewTimeTicker
		}
		s.ticker = factory(time.Second)
	}
	return s
}

func unavailableSnapshot(courseID, lessonID uint) Snapshot {
	return Snapshot{
		State:     StateUnavailable,
		CourseID:  courseID,
		LessonID:  lessonID,
		StartedAt: time.Now().UTC(),
	}
}

func (s *QuizSession) ID() string           { return s.id }
func (s *QuizSession) Actor() models.Actor  { return s.actor }
func (s *QuizSession) CourseID() uint       { return s.courseID }
func (s *QuizSession) LessonID() uint       { return s.lessonID }
func (s *QuizSession) Done() <-chan struct{} { return s.done }

func (s *QuizSession) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// clockRunning reports a timed run that has not finished and still has time left.
func (s *QuizSession) clockRunning(now time.Time) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	return s.timed && now.Before(s.deadline)
}

func (s *QuizSession) Snapshot(ctx context.Context) (Snapshot, error) {
	return s.do(ctx, command{kind: cmdSnapshot})
}

// SelectAnswer sets the pending selection for the current question.
func (s *QuizSession) SelectAnswer(ctx context.Context, option string) (Snapshot, error) {
	return s.do(ctx, command{kind: cmdSelect, option: option})
}

// Advance confirms the pending selection and moves on, scoring after the last question.
func (s *QuizSession) Advance(ctx context.Context) (Snapshot, error) {
	return s.do(ctx, command{kind: cmdAdvance})
}

// Close stops the loop without scoring. Nothing is persisted for an unfinished run.
func (s *QuizSession) Close() {
	s.quitOnce.Do(func() { close(s.quit) })
	<-s.done
}

func (s *QuizSession) start(ctx context.Context) {
	go s.run(ctx)
}

func (s *QuizSession) do(ctx context.Context, cmd command) (Snapshot, error) {
	s.touch()
	cmd.reply = make(chan commandReply, 1)

	select {
	case s.commands <- cmd:
	case <-s.done:
		final := s.finalSnapshot()
		switch {
		case cmd.kind == cmdSnapshot:
			return final, nil
		case final.State == StateResults:
			return final, ErrNotInProgress
		default:
			return final, ErrSessionClosed
		}
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}

	select {
	case reply := <-cmd.reply:
		return reply.snapshot, reply.err
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (s *QuizSession) run(ctx context.Context) {
	defer close(s.done)

	var ticks <-chan time.Time
	if s.ticker != nil {
		ticks = s.ticker.C()
	}

	for {
		select {
		case <-s.quit:
			s.stopTicker()
			s.publish()
			return
		case <-ctx.Done():
			s.stopTicker()
			s.publish()
			return
		case <-ticks:
			s.onTick(ctx)
		case cmd := <-s.commands:
			cmd.reply <- s.handle(ctx, cmd)
		}

		if s.state != StateInProgress {
			ticks = nil
		}
		if s.state == StateResults {
			s.publish()
			return
		}
	}
}

func (s *QuizSession) handle(ctx context.Context, cmd command) commandReply {
	switch cmd.kind {
	case cmdSnapshot:
		return commandReply{snapshot: s.snapshot()}

	case cmdSelect:
		if s.state != StateInProgress {
			return commandReply{snapshot: s.snapshot(), err: ErrNotInProgress}
		}
		if !s.quiz.Questions[s.index].HasOption(cmd.option) {
			return commandReply{snapshot: s.snapshot(), err: ErrInvalidOption}
		}
		s.pending = cmd.option
		s.hasPending = true
		return commandReply{snapshot: s.snapshot()}

	case cmdAdvance:
		if s.state != StateInProgress {
			return commandReply{snapshot: s.snapshot(), err: ErrNotInProgress}
		}
		if !s.hasPending {
			return commandReply{snapshot: s.snapshot(), err: ErrNoSelection}
		}
		s.answers[s.quiz.Questions[s.index].ID] = s.pending
		s.pending = ""
		s.hasPending = false

		if s.index >= len(s.quiz.Questions)-1 {
			s.finish(ctx, false)
		} else {
			s.index++
		}
		return commandReply{snapshot: s.snapshot()}
	}

	return commandReply{snapshot: s.snapshot()}
}

func (s *QuizSession) onTick(ctx context.Context) {
	if s.state != StateInProgress || !s.timed {
		return
	}
	s.remaining--
	if s.remaining <= 0 {
		s.remaining = 0
		s.finish(ctx, true)
	}
}

// finish is entered at most once per session; the state check in handle and onTick guards it.
func (s *QuizSession) finish(ctx context.Context, timedOut bool) {
	if timedOut && s.hasPending {
		s.answers[s.quiz.Questions[s.index].ID] = s.pending
	}
	s.pending = ""
	s.hasPending = false
	s.stopTicker()

	s.state = StateScoring
	result := Score(s.quiz, s.answers)
	result.TimedOut = timedOut
	s.persist(ctx, &result)

	s.result = &result
	s.state = StateResults

	if s.cfg.onFinish != nil {
		s.cfg.onFinish(s, result)
	}
}

// persist records the attempt. A failure is reported on the result and never blocks Results.
func (s *QuizSession) persist(ctx context.Context, result *Result) {
	if s.cfg.recorder == nil {
		result.SaveError = "attempt recording is not configured"
		return
	}

	answers := make(models.AttemptAnswers, len(result.Answers))
	for questionID, answer := range result.Answers {
		answers[questionID] = answer
	}

	attempt := &models.QuizAttempt{
		QuizID:    s.quiz.ID,
		StudentID: s.actor.UserID,
		Score:     result.Score,
		Answers:   datatypes.NewJSONType(answers),
		Passed:    result.Passed,
	}

	timeout := s.cfg.persistTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := s.cfg.recorder.RecordAttempt(persistCtx, attempt); err != nil {
		result.SaveError = "your answers were scored but the attempt could not be saved"
		logger.Error(err, "Failed to record quiz attempt", map[string]interface{}{
			"session_id": s.id,
			"quiz_id":    s.quiz.ID,
			"student_id": s.actor.UserID,
			"score":      result.Score,
		})
		return
	}

	result.AttemptID = attempt.ID
	result.AttemptSaved = true
}

func (s *QuizSession) stopTicker() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

func (s *QuizSession) snapshot() Snapshot {
	snap := Snapshot{
		SessionID:     s.id,
		State:         s.state,
		CourseID:      s.courseID,
		LessonID:      s.lessonID,
		QuizID:        s.quiz.ID,
		Title:         s.quiz.Title,
		PassingScore:  s.quiz.PassingScore,
		QuestionIndex: s.index,
		QuestionCount: len(s.quiz.Questions),
		AnsweredCount: len(s.answers),
		StartedAt:     s.startedAt,
	}

	if s.state == StateInProgress {
		question := s.quiz.Questions[s.index]
		options := make([]string, len(question.Options))
		copy(options, question.Options)
		snap.CurrentQuestion = &models.StudentQuestion{
			ID:       question.ID,
			Question: question.Question,
			Options:  options,
		}
		if s.hasPending {
			snap.PendingAnswer = s.pending
		}
	}
	if s.timed {
		remaining := s.remaining
		snap.RemainingSeconds = &remaining
	}
	if s.result != nil {
		result := *s.result
		snap.Result = &result
	}
	return snap
}

func (s *QuizSession) publish() {
	snap := s.snapshot()
	s.mu.Lock()
	s.final = &snap
	s.mu.Unlock()
}

func (s *QuizSession) finalSnapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.final == nil {
		return Snapshot{SessionID: s.id, CourseID: s.courseID, LessonID: s.lessonID}
	}
	return *s.final
}

func (s *QuizSession) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now().UTC()
	s.mu.Unlock()
}

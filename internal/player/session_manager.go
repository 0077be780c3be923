package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"

	"course-marketplace-backend/internal/models"
	"course-marketplace-backend/pkg/logger"
)

var (
	sessionMetricsOnce sync.Once
	activeSessions     prometheus.Gauge
	sessionsStarted    prometheus.Counter
	attemptsFinished   *prometheus.CounterVec
)

func initSessionMetrics() {
	sessionMetricsOnce.Do(func() {
		activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "course_marketplace",
			Subsystem: "quiz",
			Name:      "active_sessions",
			Help:      "Quiz sessions currently held in memory",
		})
		sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "course_marketplace",
			Subsystem: "quiz",
			Name:      "sessions_started_total",
			Help:      "Quiz sessions started",
		})
		attemptsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "course_marketplace",
			Subsystem: "quiz",
			Name:      "attempts_finished_total",
			Help:      "Scored quiz runs by outcome and whether the attempt was saved",
		}, []string{"outcome", "saved"})
	})
}

// QuizSource loads a quiz with its ordered questions.
type QuizSource interface {
	LoadForLesson(ctx context.Context, lessonID uint) (*models.Quiz, error)
}

type SessionInfo struct {
	SessionID string
	Actor     models.Actor
	CourseID  uint
	LessonID  uint
}

// ResultHandler is called once per scored run, off the session goroutine.
type ResultHandler func(ctx context.Context, info SessionInfo, result Result)

type ManagerOptions struct {
	NewTicker      TickerFactory
	PersistTimeout time.Duration
	HookTimeout    time.Duration
	IdleTTL        time.Duration
}

type Manager struct {
	quizzes  QuizSource
	recorder AttemptRecorder
	options  ManagerOptions

	mu       sync.Mutex
	sessions map[string]*QuizSession
	onResult ResultHandler
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	hooks  sync.WaitGroup
}

func NewManager(quizzes QuizSource, recorder AttemptRecorder, options ManagerOptions) *Manager {
	initSessionMetrics()

	if options.NewTicker == nil {
		options.NewTicker = NewTimeTicker
	}
	if options.PersistTimeout <= 0 {
		options.PersistTimeout = 10 * time.Second
	}
	if options.HookTimeout <= 0 {
		options.HookTimeout = 15 * time.Second
	}
	if options.IdleTTL <= 0 {
		options.IdleTTL = 2 * time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		quizzes:  quizzes,
		recorder: recorder,
		options:  options,
		sessions: make(map[string]*QuizSession),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (m *Manager) OnResult(handler ResultHandler) {
	m.mu.Lock()
	m.onResult = handler
	m.mu.Unlock()
}

// Start opens a fresh run of the lesson's quiz. A lesson without a usable quiz yields an
// unavailable snapshot that is not registered.
func (m *Manager) Start(ctx context.Context, actor models.Actor, courseID, lessonID uint) (Snapshot, error) {
	if m == nil || m.quizzes == nil {
		return Snapshot{}, errors.New("quiz session manager is not configured")
	}

	quiz, err := m.quizzes.LoadForLesson(ctx, lessonID)
	if err != nil {
		if errors.Is(err, ErrQuizUnavailable) || errors.Is(err, gorm.ErrRecordNotFound) {
			return unavailableSnapshot(courseID, lessonID), nil
		}
		return Snapshot{}, err
	}
	if quiz == nil || len(quiz.Questions) == 0 {
		return unavailableSnapshot(courseID, lessonID), nil
	}

	session := newQuizSession(uuid.NewString(), actor, courseID, lessonID, quiz, sessionConfig{
		recorder:       m.recorder,
		newTicker:      m.options.NewTicker,
		persistTimeout: m.options.PersistTimeout,
		onFinish:       m.finished,
	})

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Snapshot{}, ErrSessionClosed
	}
	m.sessions[session.ID()] = session
	activeSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	session.start(m.ctx)
	sessionsStarted.Inc()

	logger.FromContext(ctx).WithFields(map[string]interface{}{
		"session_id": session.ID(),
		"quiz_id":    quiz.ID,
		"lesson_id":  lessonID,
		"student_id": actor.UserID,
	}).Debug("Quiz session started")

	return session.Snapshot(ctx)
}

// Get returns the caller's session. Sessions owned by someone else read as missing.
func (m *Manager) Get(actor models.Actor, sessionID string) (*QuizSession, error) {
	if m == nil {
		return nil, ErrSessionNotFound
	}
	m.mu.Lock()
	session, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok || session.Actor().UserID != actor.UserID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (m *Manager) Snapshot(ctx context.Context, actor models.Actor, sessionID string) (Snapshot, error) {
	session, err := m.Get(actor, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return session.Snapshot(ctx)
}

func (m *Manager) SelectAnswer(ctx context.Context, actor models.Actor, sessionID, option string) (Snapshot, error) {
	session, err := m.Get(actor, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return session.SelectAnswer(ctx, option)
}

func (m *Manager) Advance(ctx context.Context, actor models.Actor, sessionID string) (Snapshot, error) {
	session, err := m.Get(actor, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return session.Advance(ctx)
}

// Abandon drops the session. An unfinished run is discarded without an attempt.
func (m *Manager) Abandon(actor models.Actor, sessionID string) error {
	session, err := m.Get(actor, sessionID)
	if err != nil {
		return err
	}
	m.remove(sessionID)
	session.Close()
	return nil
}

// Retake replaces the session with a new run of the same lesson. Earlier attempts stay recorded.
func (m *Manager) Retake(ctx context.Context, actor models.Actor, sessionID string) (Snapshot, error) {
	session, err := m.Get(actor, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	m.remove(sessionID)
	session.Close()
	return m.Start(ctx, actor, session.CourseID(), session.LessonID())
}

// Prune closes and forgets sessions idle for longer than ttl. A timed run whose countdown
// is still going is kept so it can score on expiry. It returns how many were dropped.
func (m *Manager) Prune(ttl time.Duration) int {
	if m == nil {
		return 0
	}
	if ttl <= 0 {
		ttl = m.options.IdleTTL
	}
	now := time.Now().UTC()
	cutoff := now.Add(-ttl)

	m.mu.Lock()
	stale := make([]*QuizSession, 0)
	for id, session := range m.sessions {
		if session.LastActivity().Before(cutoff) && !session.clockRunning(now) {
			stale = append(stale, session)
			delete(m.sessions, id)
		}
	}
	activeSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	for _, session := range stale {
		session.Close()
	}
	return len(stale)
}

func (m *Manager) Active() int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown stops every session and waits for pending result handlers.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	m.closed = true
	sessions := make([]*QuizSession, 0, len(m.sessions))
	for id, session := range m.sessions {
		sessions = append(sessions, session)
		delete(m.sessions, id)
	}
	activeSessions.Set(0)
	m.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}

	waitDone := make(chan struct{})
	go func() {
		m.hooks.Wait()
		close(waitDone)
	}()

	defer m.cancel()
	select {
	case <-waitDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) remove(sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	activeSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()
}

// finished runs on the session goroutine right after scoring.
func (m *Manager) finished(session *QuizSession, result Result) {
	outcome := "failed"
	if result.Passed {
		outcome = "passed"
	}
	saved := "false"
	if result.AttemptSaved {
		saved = "true"
	}
	attemptsFinished.WithLabelValues(outcome, saved).Inc()

	m.mu.Lock()
	handler := m.onResult
	if handler != nil {
		m.hooks.Add(1)
	}
	m.mu.Unlock()
	if handler == nil {
		return
	}

	info := SessionInfo{
		SessionID: session.ID(),
		Actor:     session.Actor(),
		CourseID:  session.CourseID(),
		LessonID:  session.LessonID(),
	}

	go func() {
		defer m.hooks.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(m.ctx), m.options.HookTimeout)
		defer cancel()
		handler(ctx, info, result)
	}()
}

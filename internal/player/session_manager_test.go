package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"course-marketplace-backend/internal/models"
)

type quizSourceStub struct {
	quiz *models.Quiz
	err  error
}

func (s *quizSourceStub) LoadForLesson(ctx context.Context, lessonID uint) (*models.Quiz, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.quiz, nil
}

type attemptStoreStub struct {
	mu       sync.Mutex
	attempts []models.QuizAttempt
	err      error
}

func (s *attemptStoreStub) RecordAttempt(ctx context.Context, attempt *models.QuizAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	attempt.ID = uint(len(s.attempts) + 1)
	s.attempts = append(s.attempts, *attempt)
	return nil
}

func (s *attemptStoreStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}

type manualTicker struct {
	ch       chan time.Time
	stopOnce sync.Once
	stopped  chan struct{}
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }

func (m *manualTicker) Stop() {
	m.stopOnce.Do(func() { close(m.stopped) })
}

func (m *manualTicker) tick(t *testing.T) {
	t.Helper()
	select {
	case m.ch <- time.Now():
	case <-time.After(time.Second):
		t.Fatalf("tick was not consumed")
	}
}

func (m *manualTicker) isStopped() bool {
	select {
	case <-m.stopped:
		return true
	default:
		return false
	}
}

var student = models.Actor{UserID: 42, Role: "student"}

func newTestManager(quiz *models.Quiz, store *attemptStoreStub, ticker *manualTicker) *Manager {
	options := ManagerOptions{}
	if ticker != nil {
		options.NewTicker = func(time.Duration) Ticker { return ticker }
	}
	return NewManager(&quizSourceStub{quiz: quiz}, store, options)
}

func answerCurrent(t *testing.T, manager *Manager, sessionID, option string) Snapshot {
	t.Helper()
	ctx := context.Background()
	if _, err := manager.SelectAnswer(ctx, student, sessionID, option); err != nil {
		t.Fatalf("select %q: %v", option, err)
	}
	snap, err := manager.Advance(ctx, student, sessionID)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	return snap
}

func TestStartWithoutQuizIsUnavailable(t *testing.T) {
	manager := NewManager(&quizSourceStub{err: ErrQuizUnavailable}, &attemptStoreStub{}, ManagerOptions{})

	snap, err := manager.Start(context.Background(), student, 1, 3)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.State != StateUnavailable || snap.SessionID != "" {
		t.Fatalf("expected unregistered unavailable snapshot, got %+v", snap)
	}
	if manager.Active() != 0 {
		t.Fatalf("unavailable session should not be registered")
	}

	manager = newTestManager(buildQuiz(0, 0), &attemptStoreStub{}, nil)
	snap, err = manager.Start(context.Background(), student, 1, 3)
	if err != nil || snap.State != StateUnavailable {
		t.Fatalf("expected empty quiz to be unavailable, got %+v err=%v", snap, err)
	}
}

func TestFullRunScoresAndRecordsOneAttempt(t *testing.T) {
	quiz := buildQuiz(10, 0)
	store := &attemptStoreStub{}
	manager := newTestManager(quiz, store, nil)

	results := make(chan SessionInfo, 1)
	manager.OnResult(func(ctx context.Context, info SessionInfo, result Result) {
		if result.Passed {
			results <- info
		}
	})

	ctx := context.Background()
	snap, err := manager.Start(ctx, student, 1, 3)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.State != StateInProgress || snap.CurrentQuestion == nil || snap.QuestionCount != 10 {
		t.Fatalf("unexpected first snapshot %+v", snap)
	}
	if snap.RemainingSeconds != nil {
		t.Fatalf("untimed quiz should not report a countdown")
	}

	for i := 0; i < 10; i++ {
		option := "B"
		if i < 7 {
			option = "A"
		}
		snap = answerCurrent(t, manager, snap.SessionID, option)
	}

	if snap.State != StateResults || snap.Result == nil {
		t.Fatalf("expected results, got %+v", snap)
	}
	if snap.Result.Score != 70 || !snap.Result.Passed || !snap.Result.AttemptSaved {
		t.Fatalf("unexpected result %+v", snap.Result)
	}
	if store.count() != 1 {
		t.Fatalf("expected one attempt, got %d", store.count())
	}
	if got := store.attempts[0].Answers.Data(); len(got) != 10 || got[1] != "A" || got[10] != "B" {
		t.Fatalf("unexpected stored answers %v", got)
	}

	select {
	case info := <-results:
		if info.LessonID != 3 || info.CourseID != 1 || info.Actor.UserID != student.UserID {
			t.Fatalf("unexpected result info %+v", info)
		}
	case <-time.After(time.Second):
		t.Fatalf("result handler was not called")
	}

	if _, err := manager.Advance(ctx, student, snap.SessionID); !errors.Is(err, ErrNotInProgress) {
		t.Fatalf("expected ErrNotInProgress after results, got %v", err)
	}
	if store.count() != 1 {
		t.Fatalf("advancing after results must not record another attempt")
	}

	final, err := manager.Snapshot(ctx, student, snap.SessionID)
	if err != nil || final.State != StateResults {
		t.Fatalf("expected results snapshot to stay readable, got %+v err=%v", final, err)
	}
}

func TestSelectionRules(t *testing.T) {
	manager := newTestManager(buildQuiz(2, 0), &attemptStoreStub{}, nil)
	ctx := context.Background()

	snap, err := manager.Start(ctx, student, 1, 3)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := manager.Advance(ctx, student, snap.SessionID); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
	if _, err := manager.SelectAnswer(ctx, student, snap.SessionID, "a"); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("expected ErrInvalidOption for a case mismatch, got %v", err)
	}

	snap, err = manager.SelectAnswer(ctx, student, snap.SessionID, "C")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	snap, err = manager.SelectAnswer(ctx, student, snap.SessionID, "B")
	if err != nil || snap.PendingAnswer != "B" {
		t.Fatalf("expected selection to be replaceable, got %+v err=%v", snap, err)
	}
	if snap.AnsweredCount != 0 {
		t.Fatalf("pending selection must not count as answered")
	}

	snap, err = manager.Advance(ctx, student, snap.SessionID)
	if err != nil || snap.QuestionIndex != 1 || snap.PendingAnswer != "" {
		t.Fatalf("unexpected snapshot after advance %+v err=%v", snap, err)
	}

	other := models.Actor{UserID: 99, Role: "student"}
	if _, err := manager.Snapshot(ctx, other, snap.SessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected another student's session to be hidden, got %v", err)
	}
}

func TestCountdownScoresConfirmedAndPendingAnswers(t *testing.T) {
	quiz := buildQuiz(5, 1)
	store := &attemptStoreStub{}
	ticker := newManualTicker()
	manager := newTestManager(quiz, store, ticker)
	ctx := context.Background()

	snap, err := manager.Start(ctx, student, 1, 3)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.RemainingSeconds == nil || *snap.RemainingSeconds != 60 {
		t.Fatalf("expected 60 seconds on the clock, got %v", snap.RemainingSeconds)
	}

	answerCurrent(t, manager, snap.SessionID, "A")
	answerCurrent(t, manager, snap.SessionID, "A")
	if _, err := manager.SelectAnswer(ctx, student, snap.SessionID, "A"); err != nil {
		t.Fatalf("select pending: %v", err)
	}

	ticker.tick(t)
	snap, err = manager.Snapshot(ctx, student, snap.SessionID)
	if err != nil || *snap.RemainingSeconds != 59 {
		t.Fatalf("expected 59 seconds after one tick, got %+v err=%v", snap, err)
	}

	for i := 0; i < 59; i++ {
		ticker.tick(t)
	}

	snap, err = manager.Snapshot(ctx, student, snap.SessionID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.State != StateResults || snap.Result == nil || !snap.Result.TimedOut {
		t.Fatalf("expected timed out results, got %+v", snap)
	}
	if snap.Result.CorrectCount != 3 || snap.Result.Score != 60 || snap.Result.Passed {
		t.Fatalf("expected 3/5 = 60 failed, got %+v", snap.Result)
	}
	if *snap.RemainingSeconds != 0 {
		t.Fatalf("expected clock at zero, got %d", *snap.RemainingSeconds)
	}
	if !ticker.isStopped() {
		t.Fatalf("ticker should be stopped once scoring starts")
	}
	if store.count() != 1 {
		t.Fatalf("expected exactly one attempt, got %d", store.count())
	}
	if got := store.attempts[0].Answers.Data(); len(got) != 3 {
		t.Fatalf("expected confirmed and pending answers to be stored, got %v", got)
	}
}

func TestManualFinishStopsCountdown(t *testing.T) {
	quiz := buildQuiz(1, 1)
	store := &attemptStoreStub{}
	ticker := newManualTicker()
	manager := newTestManager(quiz, store, ticker)
	ctx := context.Background()

	snap, err := manager.Start(ctx, student, 1, 3)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 59; i++ {
		ticker.tick(t)
	}

	snap = answerCurrent(t, manager, snap.SessionID, "A")
	if snap.State != StateResults || snap.Result.TimedOut {
		t.Fatalf("expected manual results, got %+v", snap)
	}
	if !ticker.isStopped() {
		t.Fatalf("ticker should be stopped after manual finish")
	}

	select {
	case ticker.ch <- time.Now():
		t.Fatalf("finished session must not consume ticks")
	case <-time.After(50 * time.Millisecond):
	}
	if store.count() != 1 {
		t.Fatalf("expected one attempt, got %d", store.count())
	}
}

func TestSaveFailureStillReachesResults(t *testing.T) {
	store := &attemptStoreStub{err: errors.New("database offline")}
	manager := newTestManager(buildQuiz(1, 0), store, nil)
	ctx := context.Background()

	snap, err := manager.Start(ctx, student, 1, 3)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	snap = answerCurrent(t, manager, snap.SessionID, "A")

	if snap.State != StateResults {
		t.Fatalf("expected results despite save failure, got %s", snap.State)
	}
	if snap.Result.AttemptSaved || snap.Result.SaveError == "" {
		t.Fatalf("expected save failure to be reported, got %+v", snap.Result)
	}
	if snap.Result.Score != 100 || !snap.Result.Passed {
		t.Fatalf("score should be unaffected by the save failure, got %+v", snap.Result)
	}
}

func TestRetakeStartsIndependentAttempt(t *testing.T) {
	store := &attemptStoreStub{}
	manager := newTestManager(buildQuiz(2, 0), store, nil)
	ctx := context.Background()

	first, err := manager.Start(ctx, student, 1, 3)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	answerCurrent(t, manager, first.SessionID, "B")
	answerCurrent(t, manager, first.SessionID, "B")

	second, err := manager.Retake(ctx, student, first.SessionID)
	if err != nil {
		t.Fatalf("retake: %v", err)
	}
	if second.SessionID == first.SessionID || second.State != StateInProgress || second.AnsweredCount != 0 {
		t.Fatalf("expected a fresh session, got %+v", second)
	}
	if _, err := manager.Snapshot(ctx, student, first.SessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected old session to be dropped, got %v", err)
	}

	answerCurrent(t, manager, second.SessionID, "A")
	final := answerCurrent(t, manager, second.SessionID, "A")
	if final.Result.Score != 100 {
		t.Fatalf("expected retake to score 100, got %d", final.Result.Score)
	}

	if store.count() != 2 {
		t.Fatalf("expected two attempts, got %d", store.count())
	}
	if store.attempts[0].Score != 0 || store.attempts[1].Score != 100 {
		t.Fatalf("earlier attempt must be untouched, got %+v", store.attempts)
	}
}

func TestAbandonDiscardsRun(t *testing.T) {
	store := &attemptStoreStub{}
	manager := newTestManager(buildQuiz(3, 0), store, nil)
	ctx := context.Background()

	snap, err := manager.Start(ctx, student, 1, 3)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	answerCurrent(t, manager, snap.SessionID, "A")

	if err := manager.Abandon(student, snap.SessionID); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if store.count() != 0 {
		t.Fatalf("abandoned run must not be recorded")
	}
	if manager.Active() != 0 {
		t.Fatalf("expected no active sessions")
	}
}

func TestPruneAndShutdown(t *testing.T) {
	manager := newTestManager(buildQuiz(2, 0), &attemptStoreStub{}, nil)
	ctx := context.Background()

	if _, err := manager.Start(ctx, student, 1, 3); err != nil {
		t.Fatalf("start: %v", err)
	}
	if removed := manager.Prune(time.Hour); removed != 0 {
		t.Fatalf("fresh session should survive pruning, removed %d", removed)
	}

	time.Sleep(5 * time.Millisecond)
	if removed := manager.Prune(time.Millisecond); removed != 1 {
		t.Fatalf("expected idle session to be pruned, removed %d", removed)
	}

	if _, err := manager.Start(ctx, student, 1, 3); err != nil {
		t.Fatalf("start: %v", err)
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := manager.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if _, err := manager.Start(ctx, student, 1, 3); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected start after shutdown to fail, got %v", err)
	}
}

func TestPruneKeepsRunningCountdown(t *testing.T) {
	ticker := newManualTicker()
	store := &attemptStoreStub{}
	manager := newTestManager(buildQuiz(2, 30), store, ticker)
	ctx := context.Background()

	snap, err := manager.Start(ctx, student, 1, 3)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	if removed := manager.Prune(time.Millisecond); removed != 0 {
		t.Fatalf("timed session with time left must survive pruning, removed %d", removed)
	}

	answerCurrent(t, manager, snap.SessionID, "A")
	final := answerCurrent(t, manager, snap.SessionID, "A")
	if final.State != StateResults || store.count() != 1 {
		t.Fatalf("expected the kept run to score and record, got %+v attempts=%d", final, store.count())
	}

	time.Sleep(5 * time.Millisecond)
	if removed := manager.Prune(time.Millisecond); removed != 1 {
		t.Fatalf("finished timed session should be pruned once idle, removed %d", removed)
	}
}

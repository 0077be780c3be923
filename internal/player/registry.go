package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"course-marketplace-backend/internal/models"
	"course-marketplace-backend/pkg/logger"
)

type LessonSource interface {
	ListByCourse(ctx context.Context, courseID uint) ([]models.Lesson, error)
}

type CompletionSource interface {
	ListCompletions(ctx context.Context, studentID, courseID uint) ([]models.LessonProgress, error)
}

// EnrollmentGate returns the caller's enrollment or an error when there is none.
type EnrollmentGate interface {
	Require(ctx context.Context, actor models.Actor, courseID uint) (*models.Enrollment, error)
}

type sequencerKey struct {
	studentID uint
	courseID  uint
}

type registryEntry struct {
	sequencer *Sequencer
	lastUsed  time.Time
}

// Registry keeps one Sequencer per student and course.
type Registry struct {
	lessons     LessonSource
	completions CompletionSource
	enrollments EnrollmentGate
	tracker     Tracker
	threshold   int

	mu      sync.Mutex
	entries map[sequencerKey]*registryEntry
}

func NewRegistry(lessons LessonSource, completions CompletionSource, enrollments EnrollmentGate, tracker Tracker, threshold int) *Registry {
	return &Registry{
		lessons:     lessons,
		completions: completions,
		enrollments: enrollments,
		tracker:     tracker,
		threshold:   threshold,
		entries:     make(map[sequencerKey]*registryEntry),
	}
}

// Load returns the cached sequencer or builds one from storage.
func (r *Registry) Load(ctx context.Context, actor models.Actor, courseID uint) (*Sequencer, error) {
	if r == nil || r.lessons == nil || r.completions == nil || r.enrollments == nil || r.tracker == nil {
		return nil, errors.New("lesson player is not configured")
	}

	key := sequencerKey{studentID: actor.UserID, courseID: courseID}
	if sequencer := r.cached(key); sequencer != nil {
		return sequencer, nil
	}

	var (
		lessons    []models.Lesson
		rows       []models.LessonProgress
		enrollment *models.Enrollment
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		enrollment, err = r.enrollments.Require(groupCtx, actor, courseID)
		return err
	})
	group.Go(func() error {
		var err error
		lessons, err = r.lessons.ListByCourse(groupCtx, courseID)
		return err
	})
	group.Go(func() error {
		var err error
		rows, err = r.completions.ListCompletions(groupCtx, actor.UserID, courseID)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	sequencer := NewSequencer(actor, courseID, lessons, NewCompletions(rows), r.tracker, r.threshold)
	if enrollment != nil {
		sequencer.percentage = enrollment.ProgressPercentage
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entries[key]; ok {
		existing.lastUsed = time.Now().UTC()
		return existing.sequencer, nil
	}
	r.entries[key] = &registryEntry{sequencer: sequencer, lastUsed: time.Now().UTC()}
	return sequencer, nil
}

// OnQuizResult completes the quiz lesson of a passed run. It matches ResultHandler.
func (r *Registry) OnQuizResult(ctx context.Context, info SessionInfo, result Result) {
	if !result.Passed {
		return
	}

	fields := map[string]interface{}{
		"session_id": info.SessionID,
		"course_id":  info.CourseID,
		"lesson_id":  info.LessonID,
		"student_id": info.Actor.UserID,
	}

	sequencer, err := r.Load(ctx, info.Actor, info.CourseID)
	if err != nil {
		logger.Error(err, "Failed to load lesson player for passed quiz", fields)
		return
	}
	if err := sequencer.QuizPassed(ctx, info.LessonID); err != nil {
		logger.Error(err, "Failed to complete quiz lesson", fields)
	}
}

func (r *Registry) Evict(studentID, courseID uint) {
	if r == nil {
		return
	}
	r.mu.Lock()
	delete(r.entries, sequencerKey{studentID: studentID, courseID: courseID})
	r.mu.Unlock()
}

// EvictCourse drops every sequencer of a course so the next load sees the current lesson list.
func (r *Registry) EvictCourse(courseID uint) int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key := range r.entries {
		if key.courseID == courseID {
			delete(r.entries, key)
			removed++
		}
	}
	return removed
}

func (r *Registry) Prune(ttl time.Duration) int {
	if r == nil || ttl <= 0 {
		return 0
	}
	cutoff := time.Now().UTC().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key, entry := range r.entries {
		if entry.lastUsed.Before(cutoff) {
			delete(r.entries, key)
			removed++
		}
	}
	return removed
}

func (r *Registry) cached(key sequencerKey) *Sequencer {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[key]
	if !ok {
		return nil
	}
	entry.lastUsed = time.Now().UTC()
	return entry.sequencer
}

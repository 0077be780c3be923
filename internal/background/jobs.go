package background

import (
	"context"
	"errors"
	"fmt"
	"time"

	"course-marketplace-backend/pkg/logger"
)

const (
	JobProgressReconcile = "progress-reconcile"
	JobQuizSessionPrune  = "quiz-session-prune"
)

// ProgressReconciler recomputes stored progress percentages. A zero courseID means every course.
type ProgressReconciler interface {
	ReconcileProgress(ctx context.Context, courseID uint) (int, error)
}

// SessionPruner drops idle in-memory state older than ttl and reports how much went.
type SessionPruner interface {
	Prune(ttl time.Duration) int
}

// CourseCache forgets cached per-course player state.
type CourseCache interface {
	EvictCourse(courseID uint) int
}

// Jobs builds the maintenance jobs and hands them to the scheduler.
type Jobs struct {
	scheduler  *Scheduler
	progress   ProgressReconciler
	sessions   SessionPruner
	sequencers SessionPruner
	courses    CourseCache
	ttl        time.Duration
}

func NewJobs(scheduler *Scheduler, progress ProgressReconciler, sessions, sequencers SessionPruner, courses CourseCache, ttl time.Duration) *Jobs {
	return &Jobs{
		scheduler:  scheduler,
		progress:   progress,
		sessions:   sessions,
		sequencers: sequencers,
		courses:    courses,
		ttl:        ttl,
	}
}

func (j *Jobs) ReconcileJob(courseID uint) Job {
	name := JobProgressReconcile
	if courseID != 0 {
		name = fmt.Sprintf("%s:course:%d", JobProgressReconcile, courseID)
	}

	return Job{
		Name:        name,
		Timeout:     10 * time.Minute,
		RetryPolicy: RetryPolicy{MaxRetries: 3, Backoff: 30 * time.Second, MaxBackoff: 5 * time.Minute},
		Run: func(ctx context.Context) error {
			if j.progress == nil {
				return errors.New("progress reconciler is not configured")
			}
			// Cached sequencers hold the old percentage.
			if courseID != 0 && j.courses != nil {
				j.courses.EvictCourse(courseID)
			}
			updated, err := j.progress.ReconcileProgress(ctx, courseID)
			if err != nil {
				return err
			}
			logger.Info("Progress reconciled", map[string]interface{}{"course_id": courseID, "updated": updated})
			return nil
		},
	}
}

func (j *Jobs) PruneJob() Job {
	return Job{
		Name:    JobQuizSessionPrune,
		Timeout: time.Minute,
		Run: func(ctx context.Context) error {
			dropped := 0
			if j.sessions != nil {
				dropped += j.sessions.Prune(j.ttl)
			}
			if j.sequencers != nil {
				dropped += j.sequencers.Prune(j.ttl)
			}
			if dropped > 0 {
				logger.Info("Pruned idle player state", map[string]interface{}{"dropped": dropped})
			}
			return nil
		},
	}
}

// ScheduleCourseReconcile queues a recompute for one course. Repeated requests while one
// is pending collapse into it.
func (j *Jobs) ScheduleCourseReconcile(courseID uint) {
	j.submit(j.ReconcileJob(courseID))
}

func (j *Jobs) submit(job Job) {
	if j == nil || j.scheduler == nil {
		return
	}
	err := j.scheduler.ScheduleUnique(job)
	if err != nil && !errors.Is(err, ErrJobAlreadyScheduled) {
		logger.Error(err, "Failed to schedule background job", map[string]interface{}{"job": job.Name})
	}
}

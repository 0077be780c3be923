package player

import (
	"context"
	"sync"

	"course-marketplace-backend/internal/models"
)

const DefaultVideoThreshold = 90

// Tracker persists lesson completion and returns the refreshed enrollment.
type Tracker interface {
	MarkLessonComplete(ctx context.Context, actor models.Actor, lessonID uint) (*models.Enrollment, error)
	UnmarkLessonComplete(ctx context.Context, actor models.Actor, lessonID uint) (*models.Enrollment, error)
}

type LessonStatus struct {
	ID              uint              `json:"id"`
	Title           string            `json:"title"`
	Type            models.LessonType `json:"type"`
	OrderIndex      int               `json:"order_index"`
	DurationMinutes int               `json:"duration_minutes"`
	Completed       bool              `json:"completed"`
}

type SequencerView struct {
	CourseID           uint           `json:"course_id"`
	Lessons            []LessonStatus `json:"lessons"`
	CurrentLessonID    uint           `json:"current_lesson_id"`
	CurrentLesson      *models.Lesson `json:"current_lesson,omitempty"`
	CompletedCount     int            `json:"completed_count"`
	TotalCount         int            `json:"total_count"`
	ProgressPercentage int            `json:"progress_percentage"`
	VideoThreshold     int            `json:"video_threshold"`
}

// Sequencer walks one student through the ordered lessons of a course and turns
// player events into completion writes. The lock is never held across a Tracker call.
type Sequencer struct {
	actor     models.Actor
	courseID  uint
	tracker   Tracker
	threshold float64

	mu          sync.Mutex
	lessons     []models.Lesson
	completions Completions
	current     uint
	crossed     map[uint]bool
	percentage  int
}

func NewSequencer(actor models.Actor, courseID uint, lessons []models.Lesson, completions Completions, tracker Tracker, threshold int) *Sequencer {
	if threshold <= 0 || threshold >= 100 {
		threshold = DefaultVideoThreshold
	}
	if completions == nil {
		completions = make(Completions)
	}

	ordered := make([]models.Lesson, len(lessons))
	copy(ordered, lessons)

	s := &Sequencer{
		actor:       actor,
		courseID:    courseID,
		tracker:     tracker,
		threshold:   float64(threshold),
		lessons:     ordered,
		completions: completions,
		crossed:     make(map[uint]bool),
	}
	if len(ordered) > 0 {
		s.current = ordered[0].ID
	}
	s.percentage = models.RoundPercent(completions.Count(actor.UserID, ordered), len(ordered))
	return s
}

func (s *Sequencer) CourseID() uint { return s.courseID }

// SelectLesson switches the current lesson. Any id is accepted.
func (s *Sequencer) SelectLesson(lessonID uint) {
	s.mu.Lock()
	s.current = lessonID
	s.mu.Unlock()
}

func (s *Sequencer) HasLesson(lessonID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.lessonLocked(lessonID)
	return ok
}

func (s *Sequencer) IsLessonCompleted(lessonID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completions.IsCompleted(s.actor.UserID, lessonID)
}

// VideoProgress reports playback of the current lesson. The lesson is marked complete the
// first time the percentage rises above the threshold; dropping back to or below it re-arms.
func (s *Sequencer) VideoProgress(ctx context.Context, percent float64) (bool, error) {
	if percent < 0 || percent > 100 {
		return false, ErrInvalidPercentage
	}

	s.mu.Lock()
	lessonID, err := s.currentVideoLocked()
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	if percent <= s.threshold {
		s.crossed[lessonID] = false
		s.mu.Unlock()
		return false, nil
	}
	if s.crossed[lessonID] || s.completions.IsCompleted(s.actor.UserID, lessonID) {
		s.mu.Unlock()
		return false, nil
	}
	s.crossed[lessonID] = true
	s.mu.Unlock()

	if err := s.complete(ctx, lessonID); err != nil {
		s.mu.Lock()
		s.crossed[lessonID] = false
		s.mu.Unlock()
		return false, err
	}
	return true, nil
}

// VideoEnded completes the current video lesson unless it already is.
func (s *Sequencer) VideoEnded(ctx context.Context) (bool, error) {
	s.mu.Lock()
	lessonID, err := s.currentVideoLocked()
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	if s.crossed[lessonID] || s.completions.IsCompleted(s.actor.UserID, lessonID) {
		s.mu.Unlock()
		return false, nil
	}
	s.crossed[lessonID] = true
	s.mu.Unlock()

	if err := s.complete(ctx, lessonID); err != nil {
		s.mu.Lock()
		s.crossed[lessonID] = false
		s.mu.Unlock()
		return false, err
	}
	return true, nil
}

// SetManualCompletion toggles a lesson of this course from the checkbox.
// Quiz lessons only complete by passing.
func (s *Sequencer) SetManualCompletion(ctx context.Context, lessonID uint, completed bool) error {
	s.mu.Lock()
	lesson, ok := s.lessonLocked(lessonID)
	s.mu.Unlock()
	if !ok {
		return ErrLessonNotInCourse
	}
	if lesson.Type == models.LessonTypeQuiz {
		return ErrQuizLesson
	}

	if completed {
		return s.complete(ctx, lessonID)
	}

	enrollment, err := s.tracker.UnmarkLessonComplete(ctx, s.actor, lessonID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.completions.Set(s.actor.UserID, lessonID, models.CompletionNotStarted)
	s.crossed[lessonID] = false
	s.applyEnrollmentLocked(enrollment)
	s.mu.Unlock()
	return nil
}

// QuizPassed completes the quiz lesson and, when it is still current, moves to the next lesson.
func (s *Sequencer) QuizPassed(ctx context.Context, lessonID uint) error {
	if !s.HasLesson(lessonID) {
		return ErrLessonNotInCourse
	}
	if !s.IsLessonCompleted(lessonID) {
		if err := s.complete(ctx, lessonID); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != lessonID {
		return nil
	}
	for i, lesson := range s.lessons {
		if lesson.ID == lessonID && i+1 < len(s.lessons) {
			s.current = s.lessons[i+1].ID
			break
		}
	}
	return nil
}

func (s *Sequencer) View() SequencerView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := SequencerView{
		CourseID:           s.courseID,
		Lessons:            make([]LessonStatus, 0, len(s.lessons)),
		CurrentLessonID:    s.current,
		TotalCount:         len(s.lessons),
		ProgressPercentage: s.percentage,
		VideoThreshold:     int(s.threshold),
	}
	for _, lesson := range s.lessons {
		completed := s.completions.IsCompleted(s.actor.UserID, lesson.ID)
		if completed {
			view.CompletedCount++
		}
		view.Lessons = append(view.Lessons, LessonStatus{
			ID:              lesson.ID,
			Title:           lesson.Title,
			Type:            lesson.Type,
			OrderIndex:      lesson.OrderIndex,
			DurationMinutes: lesson.DurationMinutes,
			Completed:       completed,
		})
	}
	if lesson, ok := s.lessonLocked(s.current); ok {
		current := lesson
		view.CurrentLesson = &current
	}
	return view
}

func (s *Sequencer) complete(ctx context.Context, lessonID uint) error {
	enrollment, err := s.tracker.MarkLessonComplete(ctx, s.actor, lessonID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.completions.Set(s.actor.UserID, lessonID, models.CompletionCompleted)
	s.applyEnrollmentLocked(enrollment)
	s.mu.Unlock()
	return nil
}

// applyEnrollmentLocked takes the stored percentage when the enrollment belongs to this
// course and otherwise recounts from the loaded completions.
func (s *Sequencer) applyEnrollmentLocked(enrollment *models.Enrollment) {
	if enrollment != nil && enrollment.CourseID == s.courseID {
		s.percentage = enrollment.ProgressPercentage
		return
	}
	s.percentage = models.RoundPercent(s.completions.Count(s.actor.UserID, s.lessons), len(s.lessons))
}

func (s *Sequencer) currentVideoLocked() (uint, error) {
	if s.current == 0 {
		return 0, ErrNoCurrentLesson
	}
	lesson, ok := s.lessonLocked(s.current)
	if !ok {
		return 0, ErrLessonNotInCourse
	}
	if lesson.Type != models.LessonTypeVideo {
		return 0, ErrNotVideoLesson
	}
	return s.current, nil
}

func (s *Sequencer) lessonLocked(lessonID uint) (models.Lesson, bool) {
	for _, lesson := range s.lessons {
		if lesson.ID == lessonID {
			return lesson, true
		}
	}
	return models.Lesson{}, false
}

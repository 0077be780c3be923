package player

import "errors"

var (
	ErrQuizUnavailable   = errors.New("no quiz available for this lesson")
	ErrSessionNotFound   = errors.New("quiz session not found")
	ErrSessionClosed     = errors.New("quiz session is closed")
	ErrNotInProgress     = errors.New("quiz session is not in progress")
	ErrNoSelection       = errors.New("select an answer before advancing")
	ErrInvalidOption     = errors.New("option is not one of the current question's options")
	ErrQuizLesson        = errors.New("quiz lessons are completed by passing the quiz")
	ErrNotVideoLesson    = errors.New("current lesson is not a video lesson")
	ErrNoCurrentLesson   = errors.New("course has no lessons")
	ErrLessonNotInCourse = errors.New("lesson is not part of this course")
	ErrInvalidPercentage = errors.New("watch percentage must be between 0 and 100")
)

// IsInputError reports errors caused by a request that can never succeed as sent.
func IsInputError(err error) bool {
	switch {
	case errors.Is(err, ErrNoSelection),
		errors.Is(err, ErrInvalidOption),
		errors.Is(err, ErrQuizLesson),
		errors.Is(err, ErrNotVideoLesson),
		errors.Is(err, ErrInvalidPercentage):
		return true
	}
	return false
}

package player

import "course-marketplace-backend/internal/models"

// Completions is the in-memory view of a student's lesson states.
// A missing key reads as not started.
type Completions map[models.LessonKey]models.CompletionState

func NewCompletions(rows []models.LessonProgress) Completions {
	completions := make(Completions, len(rows))
	for _, row := range rows {
		completions[models.LessonKey{StudentID: row.StudentID, LessonID: row.LessonID}] = row.Status
	}
	return completions
}

func (c Completions) State(studentID, lessonID uint) models.CompletionState {
	if state, ok := c[models.LessonKey{StudentID: studentID, LessonID: lessonID}]; ok {
		return state
	}
	return models.CompletionNotStarted
}

func (c Completions) IsCompleted(studentID, lessonID uint) bool {
	return c.State(studentID, lessonID) == models.CompletionCompleted
}

func (c Completions) Set(studentID, lessonID uint, state models.CompletionState) {
	c[models.LessonKey{StudentID: studentID, LessonID: lessonID}] = state
}

// Count returns how many of the given lessons are completed.
func (c Completions) Count(studentID uint, lessons []models.Lesson) int {
	completed := 0
	for _, lesson := range lessons {
		if c.IsCompleted(studentID, lesson.ID) {
			completed++
		}
	}
	return completed
}

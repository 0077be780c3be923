package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"course-marketplace-backend/internal/models"
	"course-marketplace-backend/internal/repository"
	"course-marketplace-backend/pkg/validator"
)

const defaultPassingScore = 70

type QuizService struct {
	quizRepo       repository.QuizRepository
	lessonRepo     repository.LessonRepository
	courseRepo     repository.CourseRepository
	enrollmentRepo repository.EnrollmentRepository
}

func NewQuizService(quizRepo repository.QuizRepository, lessonRepo repository.LessonRepository, courseRepo repository.CourseRepository, enrollmentRepo repository.EnrollmentRepository) *QuizService {
	return &QuizService{
		quizRepo:       quizRepo,
		lessonRepo:     lessonRepo,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
	}
}

func (s *QuizService) UpsertQuiz(ctx context.Context, actor models.Actor, lessonID uint, req models.UpsertQuizRequest) (*models.Quiz, error) {
	if s == nil || s.quizRepo == nil {
		return nil, errors.New("quiz repository is not configured")
	}
	lesson, err := s.authorizeLesson(ctx, actor, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.Type != models.LessonTypeQuiz {
		return nil, newValidationError("lesson %d is not a quiz lesson", lessonID)
	}

	title := validator.NormalizeSpaces(validator.SanitizeString(req.Title))
	if title == "" {
		return nil, newValidationError("quiz title is required")
	}

	passing := defaultPassingScore
	if req.PassingScore != nil {
		passing = *req.PassingScore
	}
	if passing < 0 || passing > 100 {
		return nil, newValidationError("passing score must be between 0 and 100")
	}

	var limit *int
	if req.TimeLimitMinutes != nil {
		if *req.TimeLimitMinutes <= 0 {
			return nil, newValidationError("time limit must be a positive number of minutes")
		}
		value := *req.TimeLimitMinutes
		limit = &value
	}

	quiz := &models.Quiz{
		LessonID:         lessonID,
		Title:            title,
		Description:      strings.TrimSpace(validator.SanitizeString(req.Description)),
		PassingScore:     passing,
		TimeLimitMinutes: limit,
	}
	if err := s.quizRepo.Upsert(ctx, quiz); err != nil {
		return nil, err
	}
	return s.quizRepo.GetByID(ctx, quiz.ID)
}

// GetForAuthor includes correct answers and explanations.
func (s *QuizService) GetForAuthor(ctx context.Context, actor models.Actor, lessonID uint) (*models.Quiz, error) {
	if s == nil || s.quizRepo == nil {
		return nil, errors.New("quiz repository is not configured")
	}
	if _, err := s.authorizeLesson(ctx, actor, lessonID); err != nil {
		return nil, err
	}
	return s.quizRepo.GetByLessonID(ctx, lessonID)
}

// GetForStudent never exposes correct answers.
func (s *QuizService) GetForStudent(ctx context.Context, actor models.Actor, lessonID uint) (*models.StudentQuiz, error) {
	if s == nil || s.quizRepo == nil || s.lessonRepo == nil || s.enrollmentRepo == nil {
		return nil, errors.New("quiz repository is not configured")
	}
	if !actor.IsAuthenticated() {
		return nil, ErrAuthRequired
	}
	lesson, err := s.lessonRepo.GetByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if err := s.requireEnrollment(ctx, actor, lesson.CourseID); err != nil {
		return nil, err
	}

	quiz, err := s.LoadForLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	view := quiz.ForStudent()
	return &view, nil
}

// LoadForLesson returns ErrQuizUnavailable when the lesson has no quiz or the quiz has no questions.
func (s *QuizService) LoadForLesson(ctx context.Context, lessonID uint) (*models.Quiz, error) {
	if s == nil || s.quizRepo == nil {
		return nil, errors.New("quiz repository is not configured")
	}
	quiz, err := s.quizRepo.GetByLessonID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuizUnavailable
		}
		return nil, err
	}
	if len(quiz.Questions) == 0 {
		return nil, ErrQuizUnavailable
	}
	return quiz, nil
}

func (s *QuizService) AddQuestion(ctx context.Context, actor models.Actor, quizID uint, req models.QuizQuestionRequest) (*models.QuizQuestion, error) {
	if s == nil || s.quizRepo == nil {
		return nil, errors.New("quiz repository is not configured")
	}
	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorizeLesson(ctx, actor, quiz.LessonID); err != nil {
		return nil, err
	}

	question := &models.QuizQuestion{QuizID: quizID}
	if err := applyQuestionRequest(question, req); err != nil {
		return nil, err
	}
	if req.OrderIndex == nil {
		question.OrderIndex = len(quiz.Questions)
	}

	if err := s.quizRepo.CreateQuestion(ctx, question); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *QuizService) UpdateQuestion(ctx context.Context, actor models.Actor, questionID uint, req models.QuizQuestionRequest) (*models.QuizQuestion, error) {
	if s == nil || s.quizRepo == nil {
		return nil, errors.New("quiz repository is not configured")
	}
	question, err := s.authorizeQuestion(ctx, actor, questionID)
	if err != nil {
		return nil, err
	}

	keepOrder := question.OrderIndex
	if err := applyQuestionRequest(question, req); err != nil {
		return nil, err
	}
	if req.OrderIndex == nil {
		question.OrderIndex = keepOrder
	}

	if err := s.quizRepo.UpdateQuestion(ctx, question); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *QuizService) DeleteQuestion(ctx context.Context, actor models.Actor, questionID uint) error {
	if s == nil || s.quizRepo == nil {
		return errors.New("quiz repository is not configured")
	}
	if _, err := s.authorizeQuestion(ctx, actor, questionID); err != nil {
		return err
	}
	return s.quizRepo.DeleteQuestion(ctx, questionID)
}

// RecordAttempt appends one scored attempt.
func (s *QuizService) RecordAttempt(ctx context.Context, attempt *models.QuizAttempt) error {
	if s == nil || s.quizRepo == nil {
		return errors.New("quiz repository is not configured")
	}
	if attempt == nil || attempt.QuizID == 0 || attempt.StudentID == 0 {
		return newValidationError("attempt must reference a quiz and a student")
	}
	if attempt.Score < 0 || attempt.Score > 100 {
		return newValidationError("score must be between 0 and 100")
	}
	return s.quizRepo.CreateAttempt(ctx, attempt)
}

func (s *QuizService) ListAttempts(ctx context.Context, actor models.Actor, quizID uint) ([]models.QuizAttempt, error) {
	if s == nil || s.quizRepo == nil {
		return nil, errors.New("quiz repository is not configured")
	}
	if !actor.IsAuthenticated() {
		return nil, ErrAuthRequired
	}
	return s.quizRepo.ListAttempts(ctx, quizID, actor.UserID)
}

func (s *QuizService) authorizeLesson(ctx context.Context, actor models.Actor, lessonID uint) (*models.Lesson, error) {
	if s.lessonRepo == nil || s.courseRepo == nil {
		return nil, errors.New("lesson repository is not configured")
	}
	if !actor.IsAuthenticated() {
		return nil, ErrAuthRequired
	}
	lesson, err := s.lessonRepo.GetByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	course, err := s.courseRepo.GetByID(ctx, lesson.CourseID)
	if err != nil {
		return nil, err
	}
	if err := authorizeCourseOwner(actor, course); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *QuizService) authorizeQuestion(ctx context.Context, actor models.Actor, questionID uint) (*models.QuizQuestion, error) {
	question, err := s.quizRepo.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	quiz, err := s.quizRepo.GetByID(ctx, question.QuizID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorizeLesson(ctx, actor, quiz.LessonID); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *QuizService) requireEnrollment(ctx context.Context, actor models.Actor, courseID uint) error {
	if actor.IsAdmin() {
		return nil
	}
	enrolled, err := s.enrollmentRepo.IsEnrolled(ctx, actor.UserID, courseID)
	if err != nil {
		return err
	}
	if !enrolled {
		return ErrNotEnrolled
	}
	return nil
}

// applyQuestionRequest trims options, drops blanks and requires the answer to be one of them.
func applyQuestionRequest(question *models.QuizQuestion, req models.QuizQuestionRequest) error {
	prompt := strings.TrimSpace(req.Question)
	if prompt == "" {
		return newValidationError("question text is required")
	}

	options := make([]string, 0, len(req.Options))
	for _, option := range req.Options {
		trimmed := strings.TrimSpace(option)
		if trimmed == "" {
			continue
		}
		options = append(options, trimmed)
	}
	if len(options) < 2 {
		return newValidationError("at least two non-empty options are required")
	}

	correct := strings.TrimSpace(req.CorrectAnswer)
	if correct == "" {
		return newValidationError("a correct answer is required")
	}
	found := false
	for _, option := range options {
		if option == correct {
			found = true
			break
		}
	}
	if !found {
		return newValidationError("correct answer must match one of the options exactly")
	}

	if req.OrderIndex != nil && *req.OrderIndex < 0 {
		return newValidationError("order index cannot be negative")
	}

	question.Question = prompt
	question.Options = options
	question.CorrectAnswer = correct
	question.Explanation = strings.TrimSpace(req.Explanation)
	if req.OrderIndex != nil {
		question.OrderIndex = *req.OrderIndex
	}
	return nil
}

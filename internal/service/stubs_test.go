package service

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"course-marketplace-backend/internal/models"
	"course-marketplace-backend/internal/repository"
)

var (
	adminActor      = models.Actor{UserID: 1, Role: "admin"}
	instructorActor = models.Actor{UserID: 2, Role: "instructor"}
	otherInstructor = models.Actor{UserID: 3, Role: "instructor"}
	studentActor    = models.Actor{UserID: 10, Role: "student"}
	anonymousActor  = models.Actor{}
)

type stubCourseRepository struct {
	courses    map[uint]*models.Course
	lessons    map[uint][]models.Lesson
	history    []models.CourseReviewHistory
	lastFilter models.CourseFilter
	nextID     uint
}

var _ repository.CourseRepository = (*stubCourseRepository)(nil)

func newStubCourseRepository(courses ...models.Course) *stubCourseRepository {
	repo := &stubCourseRepository{courses: make(map[uint]*models.Course), lessons: make(map[uint][]models.Lesson)}
	for i := range courses {
		course := courses[i]
		repo.courses[course.ID] = &course
		if course.ID > repo.nextID {
			repo.nextID = course.ID
		}
	}
	return repo
}

func (s *stubCourseRepository) Create(ctx context.Context, course *models.Course) error {
	s.nextID++
	course.ID = s.nextID
	stored := *course
	s.courses[course.ID] = &stored
	return nil
}

func (s *stubCourseRepository) Update(ctx context.Context, course *models.Course) error {
	if _, ok := s.courses[course.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *course
	s.courses[course.ID] = &stored
	return nil
}

func (s *stubCourseRepository) Delete(ctx context.Context, id uint) error {
	if _, ok := s.courses[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.courses, id)
	return nil
}

func (s *stubCourseRepository) GetByID(ctx context.Context, id uint) (*models.Course, error) {
	course, ok := s.courses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copy := *course
	return &copy, nil
}

func (s *stubCourseRepository) GetWithLessons(ctx context.Context, id uint) (*models.Course, error) {
	course, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	course.Lessons = s.lessons[id]
	return course, nil
}

func (s *stubCourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int64, error) {
	s.lastFilter = filter
	result := make([]models.Course, 0)
	for _, course := range s.courses {
		if filter.Status != "" && course.Status != filter.Status {
			continue
		}
		result = append(result, *course)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, int64(len(result)), nil
}

func (s *stubCourseRepository) ListByInstructor(ctx context.Context, instructorID uint) ([]models.Course, error) {
	result := make([]models.Course, 0)
	for _, course := range s.courses {
		if course.InstructorID == instructorID {
			result = append(result, *course)
		}
	}
	return result, nil
}

func (s *stubCourseRepository) ChangeStatus(ctx context.Context, course *models.Course, entry *models.CourseReviewHistory) error {
	if _, ok := s.courses[course.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *course
	s.courses[course.ID] = &stored
	entry.CourseID = course.ID
	s.history = append(s.history, *entry)
	return nil
}

func (s *stubCourseRepository) ListReviewHistory(ctx context.Context, courseID uint) ([]models.CourseReviewHistory, error) {
	result := make([]models.CourseReviewHistory, 0)
	for _, entry := range s.history {
		if entry.CourseID == courseID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (s *stubCourseRepository) CountByStatus(ctx context.Context) (map[models.CourseStatus]int64, error) {
	counts := make(map[models.CourseStatus]int64)
	for _, course := range s.courses {
		counts[course.Status]++
	}
	return counts, nil
}

func (s *stubCourseRepository) InstructorStats(ctx context.Context, instructorID uint) ([]models.InstructorCourseStats, error) {
	result := make([]models.InstructorCourseStats, 0)
	for _, course := range s.courses {
		if course.InstructorID == instructorID {
			result = append(result, models.InstructorCourseStats{CourseID: course.ID, Title: course.Title, Status: course.Status})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CourseID < result[j].CourseID })
	return result, nil
}

type stubCategoryRepository struct {
	categories map[uint]*models.Category
	nextID     uint
}

var _ repository.CategoryRepository = (*stubCategoryRepository)(nil)

func newStubCategoryRepository() *stubCategoryRepository {
	return &stubCategoryRepository{categories: make(map[uint]*models.Category)}
}

func (s *stubCategoryRepository) Create(ctx context.Context, category *models.Category) error {
	for _, existing := range s.categories {
		if existing.Slug == category.Slug || existing.Name == category.Name {
			return gorm.ErrDuplicatedKey
		}
	}
	s.nextID++
	category.ID = s.nextID
	stored := *category
	s.categories[category.ID] = &stored
	return nil
}

func (s *stubCategoryRepository) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	category, ok := s.categories[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copy := *category
	return &copy, nil
}

func (s *stubCategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	result := make([]models.Category, 0, len(s.categories))
	for _, category := range s.categories {
		result = append(result, *category)
	}
	return result, nil
}

func (s *stubCategoryRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	for _, category := range s.categories {
		if category.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

type stubEnrollmentRepository struct {
	enrollments []models.Enrollment
}

var _ repository.EnrollmentRepository = (*stubEnrollmentRepository)(nil)

func (s *stubEnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	for _, existing := range s.enrollments {
		if existing.StudentID == enrollment.StudentID && existing.CourseID == enrollment.CourseID {
			return gorm.ErrDuplicatedKey
		}
	}
	enrollment.ID = uint(len(s.enrollments) + 1)
	s.enrollments = append(s.enrollments, *enrollment)
	return nil
}

func (s *stubEnrollmentRepository) GetByStudentAndCourse(ctx context.Context, studentID, courseID uint) (*models.Enrollment, error) {
	for _, existing := range s.enrollments {
		if existing.StudentID == studentID && existing.CourseID == courseID {
			copy := existing
			return &copy, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubEnrollmentRepository) IsEnrolled(ctx context.Context, studentID, courseID uint) (bool, error) {
	_, err := s.GetByStudentAndCourse(ctx, studentID, courseID)
	return err == nil, nil
}

func (s *stubEnrollmentRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.Enrollment, error) {
	result := make([]models.Enrollment, 0)
	for _, existing := range s.enrollments {
		if existing.StudentID == studentID {
			result = append(result, existing)
		}
	}
	return result, nil
}

func (s *stubEnrollmentRepository) ListForReconcile(ctx context.Context, courseID uint) ([]models.Enrollment, error) {
	result := make([]models.Enrollment, 0)
	for _, existing := range s.enrollments {
		if courseID == 0 || existing.CourseID == courseID {
			result = append(result, existing)
		}
	}
	return result, nil
}

func (s *stubEnrollmentRepository) Count(ctx context.Context) (int64, error) {
	return int64(len(s.enrollments)), nil
}

type stubLessonRepository struct {
	lessons map[uint]*models.Lesson
	nextID  uint
}

var _ repository.LessonRepository = (*stubLessonRepository)(nil)

func newStubLessonRepository(lessons ...models.Lesson) *stubLessonRepository {
	repo := &stubLessonRepository{lessons: make(map[uint]*models.Lesson)}
	for i := range lessons {
		lesson := lessons[i]
		repo.lessons[lesson.ID] = &lesson
		if lesson.ID > repo.nextID {
			repo.nextID = lesson.ID
		}
	}
	return repo
}

func (s *stubLessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	s.nextID++
	lesson.ID = s.nextID
	stored := *lesson
	s.lessons[lesson.ID] = &stored
	return nil
}

func (s *stubLessonRepository) Update(ctx context.Context, lesson *models.Lesson) error {
	stored := *lesson
	s.lessons[lesson.ID] = &stored
	return nil
}

func (s *stubLessonRepository) Delete(ctx context.Context, id uint) error {
	if _, ok := s.lessons[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.lessons, id)
	return nil
}

func (s *stubLessonRepository) GetByID(ctx context.Context, id uint) (*models.Lesson, error) {
	lesson, ok := s.lessons[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copy := *lesson
	return &copy, nil
}

func (s *stubLessonRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.Lesson, error) {
	result := make([]models.Lesson, 0)
	for _, lesson := range s.lessons {
		if lesson.CourseID == courseID {
			result = append(result, *lesson)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].OrderIndex == result[j].OrderIndex {
			return result[i].ID < result[j].ID
		}
		return result[i].OrderIndex < result[j].OrderIndex
	})
	return result, nil
}

func (s *stubLessonRepository) CountByCourse(ctx context.Context, courseID uint) (int64, error) {
	lessons, _ := s.ListByCourse(ctx, courseID)
	return int64(len(lessons)), nil
}

type stubProgressRepository struct {
	err        error
	recomputed map[uint]int
	calls      int
}

var _ repository.ProgressRepository = (*stubProgressRepository)(nil)

func (s *stubProgressRepository) SetCompletion(ctx context.Context, studentID, lessonID uint, state models.CompletionState, at time.Time) (*models.Enrollment, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	percent := 0
	if state == models.CompletionCompleted {
		percent = 100
	}
	return &models.Enrollment{StudentID: studentID, ProgressPercentage: percent}, nil
}

func (s *stubProgressRepository) Recompute(ctx context.Context, studentID, courseID uint) (*models.Enrollment, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Enrollment{StudentID: studentID, CourseID: courseID, ProgressPercentage: s.recomputed[studentID]}, nil
}

func (s *stubProgressRepository) ListCompletions(ctx context.Context, studentID, courseID uint) ([]models.LessonProgress, error) {
	return nil, s.err
}

type stubQuizRepository struct {
	quizzes   map[uint]*models.Quiz
	questions map[uint]*models.QuizQuestion
	attempts  []models.QuizAttempt
	nextID    uint
}

var _ repository.QuizRepository = (*stubQuizRepository)(nil)

func newStubQuizRepository() *stubQuizRepository {
	return &stubQuizRepository{quizzes: make(map[uint]*models.Quiz), questions: make(map[uint]*models.QuizQuestion)}
}

func (s *stubQuizRepository) Upsert(ctx context.Context, quiz *models.Quiz) error {
	for _, existing := range s.quizzes {
		if existing.LessonID == quiz.LessonID {
			quiz.ID = existing.ID
			stored := *quiz
			s.quizzes[quiz.ID] = &stored
			return nil
		}
	}
	s.nextID++
	quiz.ID = s.nextID
	stored := *quiz
	s.quizzes[quiz.ID] = &stored
	return nil
}

func (s *stubQuizRepository) withQuestions(quiz models.Quiz) *models.Quiz {
	quiz.Questions = nil
	for _, question := range s.questions {
		if question.QuizID == quiz.ID {
			quiz.Questions = append(quiz.Questions, *question)
		}
	}
	sort.Slice(quiz.Questions, func(i, j int) bool { return quiz.Questions[i].OrderIndex < quiz.Questions[j].OrderIndex })
	return &quiz
}

func (s *stubQuizRepository) GetByID(ctx context.Context, id uint) (*models.Quiz, error) {
	quiz, ok := s.quizzes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s.withQuestions(*quiz), nil
}

func (s *stubQuizRepository) GetByLessonID(ctx context.Context, lessonID uint) (*models.Quiz, error) {
	for _, quiz := range s.quizzes {
		if quiz.LessonID == lessonID {
			return s.withQuestions(*quiz), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubQuizRepository) CreateQuestion(ctx context.Context, question *models.QuizQuestion) error {
	s.nextID++
	question.ID = s.nextID
	stored := *question
	s.questions[question.ID] = &stored
	return nil
}

func (s *stubQuizRepository) UpdateQuestion(ctx context.Context, question *models.QuizQuestion) error {
	stored := *question
	s.questions[question.ID] = &stored
	return nil
}

func (s *stubQuizRepository) DeleteQuestion(ctx context.Context, id uint) error {
	delete(s.questions, id)
	return nil
}

func (s *stubQuizRepository) GetQuestion(ctx context.Context, id uint) (*models.QuizQuestion, error) {
	question, ok := s.questions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copy := *question
	return &copy, nil
}

func (s *stubQuizRepository) CountQuestions(ctx context.Context, quizID uint) (int64, error) {
	quiz, err := s.GetByID(ctx, quizID)
	if err != nil {
		return 0, err
	}
	return int64(len(quiz.Questions)), nil
}

func (s *stubQuizRepository) CreateAttempt(ctx context.Context, attempt *models.QuizAttempt) error {
	attempt.ID = uint(len(s.attempts) + 1)
	s.attempts = append(s.attempts, *attempt)
	return nil
}

func (s *stubQuizRepository) ListAttempts(ctx context.Context, quizID, studentID uint) ([]models.QuizAttempt, error) {
	result := make([]models.QuizAttempt, 0)
	for _, attempt := range s.attempts {
		if attempt.QuizID == quizID && attempt.StudentID == studentID {
			result = append(result, attempt)
		}
	}
	return result, nil
}

type stubReviewRepository struct {
	reviews map[uint]*models.Review
	nextID  uint
}

var _ repository.ReviewRepository = (*stubReviewRepository)(nil)

func newStubReviewRepository() *stubReviewRepository {
	return &stubReviewRepository{reviews: make(map[uint]*models.Review)}
}

func (s *stubReviewRepository) Create(ctx context.Context, review *models.Review) error {
	for _, existing := range s.reviews {
		if existing.StudentID == review.StudentID && existing.CourseID == review.CourseID {
			return gorm.ErrDuplicatedKey
		}
	}
	s.nextID++
	review.ID = s.nextID
	stored := *review
	s.reviews[review.ID] = &stored
	return nil
}

func (s *stubReviewRepository) Update(ctx context.Context, review *models.Review) error {
	stored := *review
	s.reviews[review.ID] = &stored
	return nil
}

func (s *stubReviewRepository) Delete(ctx context.Context, id uint) error {
	delete(s.reviews, id)
	return nil
}

func (s *stubReviewRepository) GetByID(ctx context.Context, id uint) (*models.Review, error) {
	review, ok := s.reviews[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copy := *review
	return &copy, nil
}

func (s *stubReviewRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.Review, error) {
	result := make([]models.Review, 0)
	for _, review := range s.reviews {
		if review.CourseID == courseID {
			result = append(result, *review)
		}
	}
	return result, nil
}

func (s *stubReviewRepository) AverageRating(ctx context.Context, courseID uint) (float64, int64, error) {
	reviews, _ := s.ListByCourse(ctx, courseID)
	if len(reviews) == 0 {
		return 0, 0, nil
	}
	total := 0
	for _, review := range reviews {
		total += review.Rating
	}
	return float64(total) / float64(len(reviews)), int64(len(reviews)), nil
}

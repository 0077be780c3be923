package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"course-marketplace-backend/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(
		&models.Category{},
		&models.Course{},
		&models.CourseReviewHistory{},
		&models.Lesson{},
		&models.Quiz{},
		&models.QuizQuestion{},
		&models.QuizAttempt{},
		&models.Enrollment{},
		&models.LessonProgress{},
		&models.Review{},
		&models.WishlistItem{},
		&models.Conversation{},
		&models.ConversationParticipant{},
		&models.Message{},
		&models.LessonComment{},
		&models.Notification{},
		&models.Complaint{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

type courseFixture struct {
	course  models.Course
	lessons []models.Lesson
}

func seedCourse(t *testing.T, db *gorm.DB, lessonCount int) courseFixture {
	t.Helper()

	course := models.Course{
		Title:        "Go in Practice",
		Level:        models.CourseLevelBeginner,
		Status:       models.CourseStatusApproved,
		InstructorID: 7,
	}
	if err := db.Create(&course).Error; err != nil {
		t.Fatalf("failed to create course: %v", err)
	}

	lessons := make([]models.Lesson, 0, lessonCount)
	for i := 0; i < lessonCount; i++ {
		lesson := models.Lesson{
			CourseID:   course.ID,
			Title:      fmt.Sprintf("Lesson %d", i+1),
			Type:       models.LessonTypeText,
			OrderIndex: i,
		}
		if err := db.Create(&lesson).Error; err != nil {
			t.Fatalf("failed to create lesson: %v", err)
		}
		lessons = append(lessons, lesson)
	}
	return courseFixture{course: course, lessons: lessons}
}

func TestSetCompletionUpdatesPercentageAtomically(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	fixture := seedCourse(t, db, 4)

	enrollments := NewEnrollmentRepository(db)
	if err := enrollments.Create(ctx, &models.Enrollment{StudentID: 1, CourseID: fixture.course.ID}); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	repo := NewProgressRepository(db)
	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	enrollment, err := repo.SetCompletion(ctx, 1, fixture.lessons[0].ID, models.CompletionCompleted, first)
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if enrollment.ProgressPercentage != 25 {
		t.Fatalf("expected 25%%, got %d", enrollment.ProgressPercentage)
	}

	enrollment, err = repo.SetCompletion(ctx, 1, fixture.lessons[0].ID, models.CompletionCompleted, first.Add(time.Hour))
	if err != nil {
		t.Fatalf("repeat mark: %v", err)
	}
	if enrollment.ProgressPercentage != 25 {
		t.Fatalf("repeat mark must be idempotent, got %d", enrollment.ProgressPercentage)
	}

	rows, err := repo.ListCompletions(ctx, 1, fixture.course.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].CompletedAt == nil || !rows[0].CompletedAt.Equal(first) {
		t.Fatalf("expected original completion timestamp to be kept, got %+v", rows)
	}

	if _, err := repo.SetCompletion(ctx, 1, fixture.lessons[1].ID, models.CompletionCompleted, first); err != nil {
		t.Fatalf("mark second: %v", err)
	}

	enrollment, err = repo.SetCompletion(ctx, 1, fixture.lessons[0].ID, models.CompletionNotStarted, first)
	if err != nil {
		t.Fatalf("unmark: %v", err)
	}
	if enrollment.ProgressPercentage != 25 {
		t.Fatalf("expected 25%% after unmark, got %d", enrollment.ProgressPercentage)
	}

	enrollment, err = repo.SetCompletion(ctx, 1, fixture.lessons[3].ID, models.CompletionNotStarted, first)
	if err != nil {
		t.Fatalf("unmark absent: %v", err)
	}
	if enrollment.ProgressPercentage != 25 {
		t.Fatalf("unmarking an absent row must be a no-op, got %d", enrollment.ProgressPercentage)
	}

	var stored models.Enrollment
	if err := db.First(&stored, enrollment.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.ProgressPercentage != 25 {
		t.Fatalf("expected stored percentage 25, got %d", stored.ProgressPercentage)
	}
}

func TestSetCompletionRequiresEnrollment(t *testing.T) {
	db := newTestDB(t)
	fixture := seedCourse(t, db, 1)

	_, err := NewProgressRepository(db).SetCompletion(context.Background(), 99, fixture.lessons[0].ID, models.CompletionCompleted, time.Now())
	if !errors.Is(err, ErrEnrollmentMissing) {
		t.Fatalf("expected ErrEnrollmentMissing, got %v", err)
	}

	var count int64
	db.Model(&models.LessonProgress{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no progress rows after rollback, got %d", count)
	}
}

func TestSetCompletionUnknownLesson(t *testing.T) {
	db := newTestDB(t)

	_, err := NewProgressRepository(db).SetCompletion(context.Background(), 1, 404, models.CompletionCompleted, time.Now())
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}

func TestRecomputeTracksLessonCountChanges(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	fixture := seedCourse(t, db, 3)

	if err := NewEnrollmentRepository(db).Create(ctx, &models.Enrollment{StudentID: 2, CourseID: fixture.course.ID}); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	progress := NewProgressRepository(db)
	for _, lesson := range fixture.lessons[:2] {
		if _, err := progress.SetCompletion(ctx, 2, lesson.ID, models.CompletionCompleted, time.Now()); err != nil {
			t.Fatalf("mark: %v", err)
		}
	}

	if err := NewLessonRepository(db).Delete(ctx, fixture.lessons[2].ID); err != nil {
		t.Fatalf("delete lesson: %v", err)
	}

	enrollment, err := progress.Recompute(ctx, 2, fixture.course.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if enrollment.ProgressPercentage != 100 {
		t.Fatalf("expected 100%% once the remaining lesson is gone, got %d", enrollment.ProgressPercentage)
	}
}

func TestRecomputeEmptyCourseIsZero(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	fixture := seedCourse(t, db, 0)

	if err := NewEnrollmentRepository(db).Create(ctx, &models.Enrollment{StudentID: 3, CourseID: fixture.course.ID}); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	enrollment, err := NewProgressRepository(db).Recompute(ctx, 3, fixture.course.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if enrollment.ProgressPercentage != 0 {
		t.Fatalf("expected 0%%, got %d", enrollment.ProgressPercentage)
	}
}

func TestEnrollmentUniqueness(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	fixture := seedCourse(t, db, 1)

	repo := NewEnrollmentRepository(db)
	if err := repo.Create(ctx, &models.Enrollment{StudentID: 5, CourseID: fixture.course.ID}); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	err := repo.Create(ctx, &models.Enrollment{StudentID: 5, CourseID: fixture.course.ID})
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected duplicated key, got %v", err)
	}

	enrolled, err := repo.IsEnrolled(ctx, 5, fixture.course.ID)
	if err != nil || !enrolled {
		t.Fatalf("expected student to be enrolled, got %v (%v)", enrolled, err)
	}

	list, err := repo.ListForReconcile(ctx, 0)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one enrollment to reconcile, got %d (%v)", len(list), err)
	}
}

func TestQuizUpsertAndAttempts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	fixture := seedCourse(t, db, 1)

	repo := NewQuizRepository(db)
	quiz := &models.Quiz{LessonID: fixture.lessons[0].ID, Title: "Basics", PassingScore: 70}
	if err := repo.Upsert(ctx, quiz); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	firstID := quiz.ID

	limit := 5
	again := &models.Quiz{LessonID: fixture.lessons[0].ID, Title: "Basics v2", PassingScore: 80, TimeLimitMinutes: &limit}
	if err := repo.Upsert(ctx, again); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if again.ID != firstID || again.Title != "Basics v2" || again.PassingScore != 80 {
		t.Fatalf("expected upsert to update the existing quiz, got %+v", again)
	}

	questions := []models.QuizQuestion{
		{QuizID: firstID, Question: "B?", Options: []string{"x", "y"}, CorrectAnswer: "y", OrderIndex: 1},
		{QuizID: firstID, Question: "A?", Options: []string{"x", "y"}, CorrectAnswer: "x", OrderIndex: 0},
	}
	for i := range questions {
		if err := repo.CreateQuestion(ctx, &questions[i]); err != nil {
			t.Fatalf("create question: %v", err)
		}
	}

	loaded, err := repo.GetByLessonID(ctx, fixture.lessons[0].ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Questions) != 2 || loaded.Questions[0].Question != "A?" {
		t.Fatalf("expected questions ordered by order_index, got %+v", loaded.Questions)
	}
	if len(loaded.Questions[0].Options) != 2 || loaded.Questions[0].Options[1] != "y" {
		t.Fatalf("expected options to round-trip, got %v", loaded.Questions[0].Options)
	}

	for _, score := range []int{40, 90} {
		attempt := &models.QuizAttempt{
			QuizID:    firstID,
			StudentID: 1,
			Score:     score,
			Passed:    score >= loaded.PassingScore,
			Answers:   datatypes.NewJSONType(models.AttemptAnswers{questions[0].ID: "y"}),
		}
		if err := repo.CreateAttempt(ctx, attempt); err != nil {
			t.Fatalf("attempt: %v", err)
		}
		if err := repo.CreateAttempt(ctx, attempt); err == nil {
			t.Fatalf("re-inserting a stored attempt must fail")
		}
	}

	attempts, err := repo.ListAttempts(ctx, firstID, 1)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected two independent attempts, got %d", len(attempts))
	}
	scores := map[int]bool{attempts[0].Score: true, attempts[1].Score: true}
	if !scores[40] || !scores[90] {
		t.Fatalf("expected both scores to be kept, got %+v", attempts)
	}
	if got := attempts[0].Answers.Data()[questions[0].ID]; got != "y" {
		t.Fatalf("expected stored answer y, got %q", got)
	}
}

func TestCourseListFiltersAndStatusHistory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewCourseRepository(db)

	category := models.Category{Name: "Programming", Slug: "programming"}
	if err := NewCategoryRepository(db).Create(ctx, &category); err != nil {
		t.Fatalf("category: %v", err)
	}

	courses := []models.Course{
		{Title: "Intro to Go", Level: models.CourseLevelBeginner, Status: models.CourseStatusApproved, InstructorID: 1, CategoryID: &category.ID},
		{Title: "Advanced Rust", Level: models.CourseLevelAdvanced, Status: models.CourseStatusApproved, InstructorID: 1},
		{Title: "Go Concurrency", Description: "channels", Level: models.CourseLevelAdvanced, Status: models.CourseStatusPending, InstructorID: 2},
	}
	for i := range courses {
		if err := repo.Create(ctx, &courses[i]); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	list, total, err := repo.List(ctx, models.CourseFilter{Status: models.CourseStatusApproved, Search: "GO"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].Title != "Intro to Go" {
		t.Fatalf("unexpected search result: %d %+v", total, list)
	}
	if list[0].Category == nil || list[0].Category.Slug != "programming" {
		t.Fatalf("expected category to be preloaded")
	}

	list, total, err = repo.List(ctx, models.CourseFilter{Level: models.CourseLevelAdvanced, Limit: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(list) != 1 {
		t.Fatalf("expected total 2 and one page entry, got %d and %d", total, len(list))
	}

	pending := courses[2]
	now := time.Now().UTC()
	reviewer := uint(42)
	pending.Status = models.CourseStatusApproved
	pending.ReviewedAt = &now
	pending.ReviewedBy = &reviewer
	entry := &models.CourseReviewHistory{ReviewerID: reviewer, Action: models.CourseStatusApproved}
	if err := repo.ChangeStatus(ctx, &pending, entry); err != nil {
		t.Fatalf("change status: %v", err)
	}

	history, err := repo.ListReviewHistory(ctx, pending.ID)
	if err != nil || len(history) != 1 || history[0].Action != models.CourseStatusApproved {
		t.Fatalf("expected one approval entry, got %+v (%v)", history, err)
	}

	counts, err := repo.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[models.CourseStatusApproved] != 3 || counts[models.CourseStatusPending] != 0 {
		t.Fatalf("unexpected counts: %v", counts)
	}

	missing := models.Course{ID: 999, Status: models.CourseStatusApproved}
	if err := repo.ChangeStatus(ctx, &missing, &models.CourseReviewHistory{ReviewerID: 1, Action: models.CourseStatusApproved}); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found for missing course, got %v", err)
	}
	history, _ = repo.ListReviewHistory(ctx, 999)
	if len(history) != 0 {
		t.Fatalf("history must roll back with the failed status change")
	}
}

func TestReviewAverageAndWishlist(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	fixture := seedCourse(t, db, 0)

	reviews := NewReviewRepository(db)
	avg, count, err := reviews.AverageRating(ctx, fixture.course.ID)
	if err != nil || avg != 0 || count != 0 {
		t.Fatalf("expected empty average, got %v %d %v", avg, count, err)
	}

	for i, rating := range []int{4, 5} {
		if err := reviews.Create(ctx, &models.Review{CourseID: fixture.course.ID, StudentID: uint(i + 1), Rating: rating}); err != nil {
			t.Fatalf("review: %v", err)
		}
	}
	err = reviews.Create(ctx, &models.Review{CourseID: fixture.course.ID, StudentID: 1, Rating: 1})
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected one review per student, got %v", err)
	}

	avg, count, err = reviews.AverageRating(ctx, fixture.course.ID)
	if err != nil || avg != 4.5 || count != 2 {
		t.Fatalf("expected 4.5 over 2 reviews, got %v %d %v", avg, count, err)
	}

	wishlist := NewWishlistRepository(db)
	for i := 0; i < 2; i++ {
		if err := wishlist.Add(ctx, &models.WishlistItem{StudentID: 1, CourseID: fixture.course.ID}); err != nil {
			t.Fatalf("wishlist add: %v", err)
		}
	}
	items, err := wishlist.ListByStudent(ctx, 1)
	if err != nil || len(items) != 1 || items[0].Course == nil {
		t.Fatalf("expected one wishlist item with course, got %+v (%v)", items, err)
	}
	if err := wishlist.Remove(ctx, 1, fixture.course.ID); err != nil {
		t.Fatalf("wishlist remove: %v", err)
	}
	items, _ = wishlist.ListByStudent(ctx, 1)
	if len(items) != 0 {
		t.Fatalf("expected empty wishlist")
	}
}

func TestNilRepositoriesReportInitialisation(t *testing.T) {
	var repo *progressRepository
	if _, err := repo.Recompute(context.Background(), 1, 1); err == nil {
		t.Fatalf("expected error from nil repository")
	}
}

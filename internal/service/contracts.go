package service

import (
	"context"

	"course-marketplace-backend/internal/models"
)

type CatalogUseCase interface {
	ListCatalog(ctx context.Context, filter models.CourseFilter) (*CatalogPage, error)
	GetPublicCourse(ctx context.Context, id uint) (*models.Course, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, actor models.Actor, req models.CreateCategoryRequest) (*models.Category, error)
}

type CourseAuthoringUseCase interface {
	CreateCourse(ctx context.Context, actor models.Actor, req models.CreateCourseRequest) (*models.Course, error)
	UpdateCourse(ctx context.Context, actor models.Actor, id uint, req models.UpdateCourseRequest) (*models.Course, error)
	DeleteCourse(ctx context.Context, actor models.Actor, id uint) error
	ListInstructorCourses(ctx context.Context, actor models.Actor) ([]models.Course, error)
	GetManagedCourse(ctx context.Context, actor models.Actor, id uint) (*models.Course, error)
	SubmitForReview(ctx context.Context, actor models.Actor, id uint) (*models.Course, error)
}

type CourseReviewUseCase interface {
	ListByStatus(ctx context.Context, actor models.Actor, status models.CourseStatus) ([]models.Course, error)
	Approve(ctx context.Context, actor models.Actor, id uint) (*models.Course, error)
	Reject(ctx context.Context, actor models.Actor, id uint, reason string) (*models.Course, error)
	ReviewHistory(ctx context.Context, actor models.Actor, id uint) ([]models.CourseReviewHistory, error)
	Statistics(ctx context.Context, actor models.Actor) (*models.CourseStatistics, error)
}

type InstructorStatisticsUseCase interface {
	InstructorStatistics(ctx context.Context, actor models.Actor) (*models.InstructorStatistics, error)
}

type LessonUseCase interface {
	ListByCourse(ctx context.Context, courseID uint) ([]models.Lesson, error)
	Create(ctx context.Context, actor models.Actor, courseID uint, req models.CreateLessonRequest) (*models.Lesson, error)
	Update(ctx context.Context, actor models.Actor, lessonID uint, req models.UpdateLessonRequest) (*models.Lesson, error)
	Delete(ctx context.Context, actor models.Actor, lessonID uint) error
}

type QuizUseCase interface {
	UpsertQuiz(ctx context.Context, actor models.Actor, lessonID uint, req models.UpsertQuizRequest) (*models.Quiz, error)
	GetForAuthor(ctx context.Context, actor models.Actor, lessonID uint) (*models.Quiz, error)
	GetForStudent(ctx context.Context, actor models.Actor, lessonID uint) (*models.StudentQuiz, error)
	AddQuestion(ctx context.Context, actor models.Actor, quizID uint, req models.QuizQuestionRequest) (*models.QuizQuestion, error)
	UpdateQuestion(ctx context.Context, actor models.Actor, questionID uint, req models.QuizQuestionRequest) (*models.QuizQuestion, error)
	DeleteQuestion(ctx context.Context, actor models.Actor, questionID uint) error
	ListAttempts(ctx context.Context, actor models.Actor, quizID uint) ([]models.QuizAttempt, error)
}

type EnrollmentUseCase interface {
	Enroll(ctx context.Context, actor models.Actor, courseID uint) (*models.Enrollment, error)
	ListMine(ctx context.Context, actor models.Actor) ([]models.Enrollment, error)
	Require(ctx context.Context, actor models.Actor, courseID uint) (*models.Enrollment, error)
}

type ProgressUseCase interface {
	MarkLessonComplete(ctx context.Context, actor models.Actor, lessonID uint) (*models.Enrollment, error)
	UnmarkLessonComplete(ctx context.Context, actor models.Actor, lessonID uint) (*models.Enrollment, error)
	RecomputeProgress(ctx context.Context, studentID, courseID uint) (*models.Enrollment, error)
	ListCompletions(ctx context.Context, studentID, courseID uint) ([]models.LessonProgress, error)
	ReconcileProgress(ctx context.Context, courseID uint) (int, error)
}

type ReviewUseCase interface {
	Create(ctx context.Context, actor models.Actor, courseID uint, req models.ReviewRequest) (*models.Review, error)
	Update(ctx context.Context, actor models.Actor, reviewID uint, req models.ReviewRequest) (*models.Review, error)
	Delete(ctx context.Context, actor models.Actor, reviewID uint) error
	ListByCourse(ctx context.Context, courseID uint) (*models.ReviewSummary, error)
}

type WishlistUseCase interface {
	Add(ctx context.Context, actor models.Actor, courseID uint) error
	Remove(ctx context.Context, actor models.Actor, courseID uint) error
	List(ctx context.Context, actor models.Actor) ([]models.WishlistItem, error)
}

type MessagingUseCase interface {
	ListConversations(ctx context.Context, actor models.Actor) ([]models.ConversationSummary, error)
	StartConversation(ctx context.Context, actor models.Actor, req models.StartConversationRequest) (*models.Conversation, error)
	Messages(ctx context.Context, actor models.Actor, conversationID uint) ([]models.Message, error)
	SendMessage(ctx context.Context, actor models.Actor, conversationID uint, req models.SendMessageRequest) (*models.Message, error)
	DeleteMessage(ctx context.Context, actor models.Actor, messageID uint) error
	MarkRead(ctx context.Context, actor models.Actor, conversationID uint) error
}

type LessonCommentUseCase interface {
	List(ctx context.Context, actor models.Actor, lessonID uint) ([]models.LessonComment, error)
	Create(ctx context.Context, actor models.Actor, lessonID uint, req models.LessonCommentRequest) (*models.LessonComment, error)
	Update(ctx context.Context, actor models.Actor, commentID uint, req models.LessonCommentRequest) (*models.LessonComment, error)
	Delete(ctx context.Context, actor models.Actor, commentID uint) error
}

type NotificationUseCase interface {
	Notifier
	List(ctx context.Context, actor models.Actor) (*models.NotificationFeed, error)
	MarkRead(ctx context.Context, actor models.Actor, id uint) error
	MarkAllRead(ctx context.Context, actor models.Actor) (int64, error)
	Delete(ctx context.Context, actor models.Actor, id uint) error
}

type ComplaintUseCase interface {
	Create(ctx context.Context, actor models.Actor, req models.CreateComplaintRequest) (*models.Complaint, error)
	ListMine(ctx context.Context, actor models.Actor) ([]models.Complaint, error)
	List(ctx context.Context, actor models.Actor, filter models.ComplaintFilter) ([]models.Complaint, error)
	Respond(ctx context.Context, actor models.Actor, id uint, req models.RespondComplaintRequest) (*models.Complaint, error)
}

var (
	_ CatalogUseCase              = (*CourseService)(nil)
	_ CourseAuthoringUseCase      = (*CourseService)(nil)
	_ CourseReviewUseCase         = (*CourseService)(nil)
	_ InstructorStatisticsUseCase = (*CourseService)(nil)
	_ LessonUseCase               = (*LessonService)(nil)
	_ QuizUseCase                 = (*QuizService)(nil)
	_ EnrollmentUseCase           = (*EnrollmentService)(nil)
	_ ProgressUseCase             = (*ProgressService)(nil)
	_ ReviewUseCase               = (*ReviewService)(nil)
	_ WishlistUseCase             = (*WishlistService)(nil)
	_ MessagingUseCase            = (*MessagingService)(nil)
	_ LessonCommentUseCase        = (*LessonCommentService)(nil)
	_ NotificationUseCase         = (*NotificationService)(nil)
	_ ComplaintUseCase            = (*ComplaintService)(nil)
)

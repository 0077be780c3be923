package models

type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

type CreateCourseRequest struct {
	Title         string      `json:"title" binding:"required,max=200"`
	Description   string      `json:"description"`
	Price         float64     `json:"price" binding:"min=0"`
	Level         CourseLevel `json:"level" binding:"required,course_level"`
	DurationHours int         `json:"duration_hours" binding:"min=0"`
	ThumbnailURL  string      `json:"thumbnail_url"`
	CategoryID    *uint       `json:"category_id"`
}

type UpdateCourseRequest struct {
	Title         *string        `json:"title" binding:"omitempty,max=200"`
	Description   *string        `json:"description"`
	Price         *float64       `json:"price" binding:"omitempty,min=0"`
	Level         *CourseLevel   `json:"level" binding:"omitempty,course_level"`
	DurationHours *int           `json:"duration_hours" binding:"omitempty,min=0"`
	ThumbnailURL  *string        `json:"thumbnail_url"`
	CategoryID    Optional[uint] `json:"category_id"`
}

type RejectCourseRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type CreateLessonRequest struct {
	Title           string     `json:"title" binding:"required,max=200"`
	Description     string     `json:"description"`
	Type            LessonType `json:"type" binding:"required,lesson_type"`
	OrderIndex      *int       `json:"order_index" binding:"omitempty,min=0"`
	DurationMinutes int        `json:"duration_minutes" binding:"min=0"`
	VideoURL        string     `json:"video_url"`
	PDFURL          string     `json:"pdf_url"`
	Content         string     `json:"content"`
}

type UpdateLessonRequest struct {
	Title           *string     `json:"title" binding:"omitempty,max=200"`
	Description     *string     `json:"description"`
	Type            *LessonType `json:"type" binding:"omitempty,lesson_type"`
	OrderIndex      *int        `json:"order_index" binding:"omitempty,min=0"`
	DurationMinutes *int        `json:"duration_minutes" binding:"omitempty,min=0"`
	VideoURL        *string     `json:"video_url"`
	PDFURL          *string     `json:"pdf_url"`
	Content         *string     `json:"content"`
}

type UpsertQuizRequest struct {
	Title            string `json:"title" binding:"required,max=200"`
	Description      string `json:"description"`
	PassingScore     *int   `json:"passing_score"`
	TimeLimitMinutes *int   `json:"time_limit_minutes"`
}

type QuizQuestionRequest struct {
	Question      string   `json:"question" binding:"required"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
	OrderIndex    *int     `json:"order_index"`
}

type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

type StartQuizRequest struct {
	LessonID uint `json:"lesson_id" binding:"required"`
}

type SelectLessonRequest struct {
	LessonID uint `json:"lesson_id" binding:"required"`
}

type VideoProgressRequest struct {
	Percent float64 `json:"percent" binding:"min=0,max=100"`
}

type LessonCompletionRequest struct {
	Completed *bool `json:"completed" binding:"required"`
}

type SelectAnswerRequest struct {
	Option string `json:"option" binding:"required"`
}

type StartConversationRequest struct {
	RecipientID uint   `json:"recipient_id" binding:"required"`
	Subject     string `json:"subject" binding:"max=200"`
	CourseID    *uint  `json:"course_id"`
	Message     string `json:"message"`
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type LessonCommentRequest struct {
	Content  string `json:"content" binding:"required"`
	ParentID *uint  `json:"parent_id"`
}

type CreateComplaintRequest struct {
	Subject     string            `json:"subject" binding:"required,max=200"`
	Description string            `json:"description" binding:"required"`
	Category    ComplaintCategory `json:"category" binding:"required,oneof=complaint inquiry technical feedback"`
}

type RespondComplaintRequest struct {
	Status   ComplaintStatus `json:"status" binding:"required,oneof=open in_progress resolved closed"`
	Response string          `json:"response"`
}

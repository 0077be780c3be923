package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"course-marketplace-backend/internal/models"
	"course-marketplace-backend/internal/service"
)

type QuizHandler struct {
	quizService service.QuizUseCase
}

func NewQuizHandler(quizService service.QuizUseCase) *QuizHandler {
	return &QuizHandler{quizService: quizService}
}

func (h *QuizHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.quizService == nil {
		serviceUnavailable(c, "quiz")
		return false
	}
	return true
}

func (h *QuizHandler) Upsert(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	lessonID, ok := parseUintParam(c, "lessonId")
	if !ok {
		return
	}

	var req models.UpsertQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quiz, err := h.quizService.UpsertQuiz(c.Request.Context(), currentActor(c), lessonID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"quiz": quiz})
}

// GetForAuthor includes correct answers and explanations.
func (h *QuizHandler) GetForAuthor(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	lessonID, ok := parseUintParam(c, "lessonId")
	if !ok {
		return
	}

	quiz, err := h.quizService.GetForAuthor(c.Request.Context(), currentActor(c), lessonID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"quiz": quiz})
}

func (h *QuizHandler) GetForStudent(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	lessonID, ok := parseUintParam(c, "lessonId")
	if !ok {
		return
	}

	quiz, err := h.quizService.GetForStudent(c.Request.Context(), currentActor(c), lessonID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"quiz": quiz})
}

func (h *QuizHandler) AddQuestion(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	quizID, ok := parseUintParam(c, "quizId")
	if !ok {
		return
	}

	var req models.QuizQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question, err := h.quizService.AddQuestion(c.Request.Context(), currentActor(c), quizID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"question": question})
}

func (h *QuizHandler) UpdateQuestion(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	questionID, ok := parseUintParam(c, "questionId")
	if !ok {
		return
	}

	var req models.QuizQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question, err := h.quizService.UpdateQuestion(c.Request.Context(), currentActor(c), questionID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"question": question})
}

func (h *QuizHandler) DeleteQuestion(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	questionID, ok := parseUintParam(c, "questionId")
	if !ok {
		return
	}

	if err := h.quizService.DeleteQuestion(c.Request.Context(), currentActor(c), questionID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "question deleted"})
}

// ListAttempts returns the caller's own attempts at a quiz, oldest first.
func (h *QuizHandler) ListAttempts(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	quizID, ok := parseUintParam(c, "quizId")
	if !ok {
		return
	}

	attempts, err := h.quizService.ListAttempts(c.Request.Context(), currentActor(c), quizID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"attempts": attempts})
}

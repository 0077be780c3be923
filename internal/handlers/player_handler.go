package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"course-marketplace-backend/internal/models"
	"course-marketplace-backend/internal/player"
)

// PlayerHandler exposes the lesson sequencer and quiz sessions of enrolled learners.
type PlayerHandler struct {
	registry *player.Registry
	sessions *player.Manager
}

func NewPlayerHandler(registry *player.Registry, sessions *player.Manager) *PlayerHandler {
	return &PlayerHandler{registry: registry, sessions: sessions}
}

func (h *PlayerHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.registry == nil || h.sessions == nil {
		serviceUnavailable(c, "player")
		return false
	}
	return true
}

func (h *PlayerHandler) sequencer(c *gin.Context) (*player.Sequencer, bool) {
	courseID, ok := parseUintParam(c, "id")
	if !ok {
		return nil, false
	}
	sequencer, err := h.registry.Load(c.Request.Context(), currentActor(c), courseID)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return sequencer, true
}

func (h *PlayerHandler) sessionID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("sessionId"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return "", false
	}
	return id, true
}

func (h *PlayerHandler) View(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	sequencer, ok := h.sequencer(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"player": sequencer.View()})
}

func (h *PlayerHandler) SelectLesson(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	sequencer, ok := h.sequencer(c)
	if !ok {
		return
	}

	var req models.SelectLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sequencer.SelectLesson(req.LessonID)
	c.JSON(http.StatusOK, gin.H{"player": sequencer.View()})
}

func (h *PlayerHandler) VideoProgress(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	sequencer, ok := h.sequencer(c)
	if !ok {
		return
	}

	var req models.VideoProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	completed, err := sequencer.VideoProgress(c.Request.Context(), req.Percent)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"completed": completed, "player": sequencer.View()})
}

func (h *PlayerHandler) VideoEnded(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	sequencer, ok := h.sequencer(c)
	if !ok {
		return
	}

	completed, err := sequencer.VideoEnded(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"completed": completed, "player": sequencer.View()})
}

func (h *PlayerHandler) SetCompletion(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	sequencer, ok := h.sequencer(c)
	if !ok {
		return
	}
	lessonID, ok := parseUintParam(c, "lessonId")
	if !ok {
		return
	}

	var req models.LessonCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := sequencer.SetManualCompletion(c.Request.Context(), lessonID, *req.Completed); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"player": sequencer.View()})
}

// StartQuiz opens a quiz session for a lesson of the course. A lesson without a usable
// quiz answers with an unavailable snapshot rather than an error.
func (h *PlayerHandler) StartQuiz(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	sequencer, ok := h.sequencer(c)
	if !ok {
		return
	}

	var req models.StartQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !sequencer.HasLesson(req.LessonID) {
		writeError(c, gorm.ErrRecordNotFound)
		return
	}

	snapshot, err := h.sessions.Start(c.Request.Context(), currentActor(c), sequencer.CourseID(), req.LessonID)
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusCreated
	if snapshot.State == player.StateUnavailable {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"session": snapshot})
}

func (h *PlayerHandler) GetSession(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	snapshot, err := h.sessions.Snapshot(c.Request.Context(), currentActor(c), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": snapshot})
}

func (h *PlayerHandler) SelectAnswer(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	var req models.SelectAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snapshot, err := h.sessions.SelectAnswer(c.Request.Context(), currentActor(c), id, req.Option)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": snapshot})
}

func (h *PlayerHandler) Advance(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	snapshot, err := h.sessions.Advance(c.Request.Context(), currentActor(c), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": snapshot})
}

func (h *PlayerHandler) Retake(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	snapshot, err := h.sessions.Retake(c.Request.Context(), currentActor(c), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"session": snapshot})
}

func (h *PlayerHandler) Abandon(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	if err := h.sessions.Abandon(currentActor(c), id); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "quiz session abandoned"})
}

package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"course-marketplace-backend/internal/authorization"
	"course-marketplace-backend/internal/models"
	"course-marketplace-backend/internal/service"
)

// CommunityHandler serves lesson discussions, the notification feed and support tickets.
type CommunityHandler struct {
	commentService      service.LessonCommentUseCase
	notificationService service.NotificationUseCase
	complaintService    service.ComplaintUseCase
}

func NewCommunityHandler(commentService service.LessonCommentUseCase, notificationService service.NotificationUseCase, complaintService service.ComplaintUseCase) *CommunityHandler {
	return &CommunityHandler{
		commentService:      commentService,
		notificationService: notificationService,
		complaintService:    complaintService,
	}
}

func (h *CommunityHandler) ensureComments(c *gin.Context) bool {
	if h == nil || h.commentService == nil {
		serviceUnavailable(c, "comment")
		return false
	}
	return true
}

func (h *CommunityHandler) ensureNotifications(c *gin.Context) bool {
	if h == nil || h.notificationService == nil {
		serviceUnavailable(c, "notification")
		return false
	}
	return true
}

func (h *CommunityHandler) ensureComplaints(c *gin.Context) bool {
	if h == nil || h.complaintService == nil {
		serviceUnavailable(c, "complaint")
		return false
	}
	return true
}

func (h *CommunityHandler) ListComments(c *gin.Context) {
	if !h.ensureComments(c) {
		return
	}
	lessonID, ok := parseUintParam(c, "lessonId")
	if !ok {
		return
	}

	comments, err := h.commentService.List(c.Request.Context(), currentActor(c), lessonID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

func (h *CommunityHandler) CreateComment(c *gin.Context) {
	if !h.ensureComments(c) {
		return
	}
	lessonID, ok := parseUintParam(c, "lessonId")
	if !ok {
		return
	}

	var req models.LessonCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, err := h.commentService.Create(c.Request.Context(), currentActor(c), lessonID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

func (h *CommunityHandler) UpdateComment(c *gin.Context) {
	if !h.ensureComments(c) {
		return
	}
	commentID, ok := parseUintParam(c, "commentId")
	if !ok {
		return
	}

	var req models.LessonCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, err := h.commentService.Update(c.Request.Context(), currentActor(c), commentID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"comment": comment})
}

func (h *CommunityHandler) DeleteComment(c *gin.Context) {
	if !h.ensureComments(c) {
		return
	}
	commentID, ok := parseUintParam(c, "commentId")
	if !ok {
		return
	}

	if err := h.commentService.Delete(c.Request.Context(), currentActor(c), commentID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "comment deleted"})
}

func (h *CommunityHandler) Notifications(c *gin.Context) {
	if !h.ensureNotifications(c) {
		return
	}

	feed, err := h.notificationService.List(c.Request.Context(), currentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, feed)
}

func (h *CommunityHandler) MarkNotificationRead(c *gin.Context) {
	if !h.ensureNotifications(c) {
		return
	}
	id, ok := parseUintParam(c, "notificationId")
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), currentActor(c), id); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *CommunityHandler) MarkAllNotificationsRead(c *gin.Context) {
	if !h.ensureNotifications(c) {
		return
	}

	updated, err := h.notificationService.MarkAllRead(c.Request.Context(), currentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (h *CommunityHandler) DeleteNotification(c *gin.Context) {
	if !h.ensureNotifications(c) {
		return
	}
	id, ok := parseUintParam(c, "notificationId")
	if !ok {
		return
	}

	if err := h.notificationService.Delete(c.Request.Context(), currentActor(c), id); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "notification deleted"})
}

func (h *CommunityHandler) CreateComplaint(c *gin.Context) {
	if !h.ensureComplaints(c) {
		return
	}

	var req models.CreateComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	complaint, err := h.complaintService.Create(c.Request.Context(), currentActor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"complaint": complaint})
}

func (h *CommunityHandler) MyComplaints(c *gin.Context) {
	if !h.ensureComplaints(c) {
		return
	}

	complaints, err := h.complaintService.ListMine(c.Request.Context(), currentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"complaints": complaints})
}

// ListComplaints is the admin queue, filtered by ?status=, ?category= and ?role=.
func (h *CommunityHandler) ListComplaints(c *gin.Context) {
	if !h.ensureComplaints(c) {
		return
	}

	filter := models.ComplaintFilter{
		Status:   models.ComplaintStatus(strings.TrimSpace(c.Query("status"))),
		Category: models.ComplaintCategory(strings.TrimSpace(c.Query("category"))),
		Role:     authorization.UserRole(strings.TrimSpace(c.Query("role"))),
	}

	complaints, err := h.complaintService.List(c.Request.Context(), currentActor(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"complaints": complaints})
}

func (h *CommunityHandler) RespondComplaint(c *gin.Context) {
	if !h.ensureComplaints(c) {
		return
	}
	id, ok := parseUintParam(c, "complaintId")
	if !ok {
		return
	}

	var req models.RespondComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	complaint, err := h.complaintService.Respond(c.Request.Context(), currentActor(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"complaint": complaint})
}

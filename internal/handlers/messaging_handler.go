package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"course-marketplace-backend/internal/models"
	"course-marketplace-backend/internal/service"
)

type MessagingHandler struct {
	messagingService service.MessagingUseCase
}

func NewMessagingHandler(messagingService service.MessagingUseCase) *MessagingHandler {
	return &MessagingHandler{messagingService: messagingService}
}

func (h *MessagingHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.messagingService == nil {
		serviceUnavailable(c, "messaging")
		return false
	}
	return true
}

func (h *MessagingHandler) ListConversations(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	conversations, err := h.messagingService.ListConversations(c.Request.Context(), currentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

func (h *MessagingHandler) StartConversation(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	var req models.StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conversation, err := h.messagingService.StartConversation(c.Request.Context(), currentActor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"conversation": conversation})
}

func (h *MessagingHandler) Messages(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	conversationID, ok := parseUintParam(c, "conversationId")
	if !ok {
		return
	}

	messages, err := h.messagingService.Messages(c.Request.Context(), currentActor(c), conversationID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *MessagingHandler) Send(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	conversationID, ok := parseUintParam(c, "conversationId")
	if !ok {
		return
	}

	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.messagingService.SendMessage(c.Request.Context(), currentActor(c), conversationID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": message})
}

func (h *MessagingHandler) MarkRead(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	conversationID, ok := parseUintParam(c, "conversationId")
	if !ok {
		return
	}

	if err := h.messagingService.MarkRead(c.Request.Context(), currentActor(c), conversationID); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *MessagingHandler) DeleteMessage(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	messageID, ok := parseUintParam(c, "messageId")
	if !ok {
		return
	}

	if err := h.messagingService.DeleteMessage(c.Request.Context(), currentActor(c), messageID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "message deleted"})
}

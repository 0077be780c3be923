package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"course-marketplace-backend/internal/models"
	"course-marketplace-backend/internal/service"
)

type ReviewHandler struct {
	reviewService   service.ReviewUseCase
	wishlistService service.WishlistUseCase
}

func NewReviewHandler(reviewService service.ReviewUseCase, wishlistService service.WishlistUseCase) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService, wishlistService: wishlistService}
}

func (h *ReviewHandler) ensureReviews(c *gin.Context) bool {
	if h == nil || h.reviewService == nil {
		serviceUnavailable(c, "review")
		return false
	}
	return true
}

func (h *ReviewHandler) ensureWishlist(c *gin.Context) bool {
	if h == nil || h.wishlistService == nil {
		serviceUnavailable(c, "wishlist")
		return false
	}
	return true
}

func (h *ReviewHandler) List(c *gin.Context) {
	if !h.ensureReviews(c) {
		return
	}
	courseID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	summary, err := h.reviewService.ListByCourse(c.Request.Context(), courseID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *ReviewHandler) Create(c *gin.Context) {
	if !h.ensureReviews(c) {
		return
	}
	courseID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req models.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	review, err := h.reviewService.Create(c.Request.Context(), currentActor(c), courseID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"review": review})
}

func (h *ReviewHandler) Update(c *gin.Context) {
	if !h.ensureReviews(c) {
		return
	}
	reviewID, ok := parseUintParam(c, "reviewId")
	if !ok {
		return
	}

	var req models.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	review, err := h.reviewService.Update(c.Request.Context(), currentActor(c), reviewID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"review": review})
}

func (h *ReviewHandler) Delete(c *gin.Context) {
	if !h.ensureReviews(c) {
		return
	}
	reviewID, ok := parseUintParam(c, "reviewId")
	if !ok {
		return
	}

	if err := h.reviewService.Delete(c.Request.Context(), currentActor(c), reviewID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "review deleted"})
}

func (h *ReviewHandler) Wishlist(c *gin.Context) {
	if !h.ensureWishlist(c) {
		return
	}

	items, err := h.wishlistService.List(c.Request.Context(), currentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"wishlist": items})
}

func (h *ReviewHandler) AddToWishlist(c *gin.Context) {
	if !h.ensureWishlist(c) {
		return
	}
	courseID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	if err := h.wishlistService.Add(c.Request.Context(), currentActor(c), courseID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "course added to wishlist"})
}

func (h *ReviewHandler) RemoveFromWishlist(c *gin.Context) {
	if !h.ensureWishlist(c) {
		return
	}
	courseID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	if err := h.wishlistService.Remove(c.Request.Context(), currentActor(c), courseID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "course removed from wishlist"})
}

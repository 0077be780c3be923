package models

import "time"

type Review struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CourseID  uint   `gorm:"uniqueIndex:idx_review_student_course;index;not null" json:"course_id"`
	StudentID uint   `gorm:"uniqueIndex:idx_review_student_course;not null" json:"student_id"`
	Rating    int    `gorm:"not null" json:"rating"`
	Comment   string `gorm:"type:text" json:"comment"`
}

type ReviewSummary struct {
	Reviews       []Review `json:"reviews"`
	AverageRating float64  `json:"average_rating"`
	Count         int      `json:"count"`
}

type WishlistItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	StudentID uint    `gorm:"uniqueIndex:idx_wishlist_student_course;not null" json:"student_id"`
	CourseID  uint    `gorm:"uniqueIndex:idx_wishlist_student_course;not null" json:"course_id"`
	Course    *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

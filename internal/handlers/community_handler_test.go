package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"course-marketplace-backend/internal/models"
)

var otherStudent = models.Actor{UserID: 11, Role: "student"}

func (s *testServer) notifications(t *testing.T, actor models.Actor) models.NotificationFeed {
	t.Helper()
	rec := s.do(t, http.MethodGet, "/notifications", actor, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("notifications: %d %s", rec.Code, rec.Body.String())
	}
	var feed models.NotificationFeed
	decode(t, rec, &feed)
	return feed
}

func (s *testServer) inbox(t *testing.T, actor models.Actor) []models.ConversationSummary {
	t.Helper()
	rec := s.do(t, http.MethodGet, "/conversations", actor, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("inbox: %d %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Conversations []models.ConversationSummary `json:"conversations"`
	}
	decode(t, rec, &body)
	return body.Conversations
}

func TestConversationReadFlagsFollowMessages(t *testing.T) {
	srv := newTestServer(t)
	courseID, _, _ := srv.seedCourse(t)

	start := gin.H{"recipient_id": instructor.UserID, "subject": "About the course", "course_id": courseID, "message": "Hi <script>alert(1)</script>there"}
	rec := srv.do(t, http.MethodPost, "/conversations", student, start)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Conversation models.Conversation `json:"conversation"`
	}
	decode(t, rec, &created)
	thread := fmt.Sprintf("/conversations/%d", created.Conversation.ID)

	rec = srv.do(t, http.MethodPost, "/conversations", student, gin.H{"recipient_id": instructor.UserID})
	var again struct {
		Conversation models.Conversation `json:"conversation"`
	}
	decode(t, rec, &again)
	if again.Conversation.ID != created.Conversation.ID {
		t.Fatalf("expected the existing thread to be reused, got %d and %d", created.Conversation.ID, again.Conversation.ID)
	}
	if rec := srv.do(t, http.MethodPost, "/conversations", student, gin.H{"recipient_id": student.UserID}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected a self conversation to be rejected, got %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodPost, "/conversations", otherStudent, gin.H{"recipient_id": instructor.UserID, "course_id": 999}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected an unknown course to be rejected, got %d", rec.Code)
	}

	inbox := srv.inbox(t, instructor)
	if len(inbox) != 1 || inbox[0].IsRead {
		t.Fatalf("expected one unread thread for the recipient, got %+v", inbox)
	}
	if inbox[0].LastMessage == nil || strings.Contains(inbox[0].LastMessage.Content, "<script") {
		t.Fatalf("expected a sanitised last message, got %+v", inbox[0].LastMessage)
	}
	if feed := srv.notifications(t, instructor); feed.UnreadCount != 1 || feed.Notifications[0].Type != models.NotificationMessage {
		t.Fatalf("expected a message notification, got %+v", feed)
	}

	if rec := srv.do(t, http.MethodGet, thread+"/messages", otherStudent, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected outsiders to be forbidden, got %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodPost, thread+"/messages", instructor, gin.H{"content": "<script></script>"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected markup-only content to be rejected, got %d", rec.Code)
	}

	rec = srv.do(t, http.MethodPost, thread+"/messages", instructor, gin.H{"content": "Happy to help"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("reply: %d %s", rec.Code, rec.Body.String())
	}
	var reply struct {
		Message models.Message `json:"message"`
	}
	decode(t, rec, &reply)

	if inbox := srv.inbox(t, instructor); !inbox[0].IsRead {
		t.Fatalf("the sender's own reply keeps the thread read")
	}
	if inbox := srv.inbox(t, student); inbox[0].IsRead || inbox[0].LastMessage.Content != "Happy to help" {
		t.Fatalf("expected the student to see an unread reply, got %+v", inbox[0])
	}
	if rec := srv.do(t, http.MethodPost, thread+"/read", student, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("mark read: %d", rec.Code)
	}
	if inbox := srv.inbox(t, student); !inbox[0].IsRead {
		t.Fatalf("expected the thread to be read after marking it")
	}

	rec = srv.do(t, http.MethodGet, thread+"/messages", student, nil)
	var history struct {
		Messages []models.Message `json:"messages"`
	}
	decode(t, rec, &history)
	if len(history.Messages) != 2 || history.Messages[1].ID != reply.Message.ID {
		t.Fatalf("expected both messages oldest first, got %+v", history.Messages)
	}

	deletePath := fmt.Sprintf("/messages/%d", reply.Message.ID)
	if rec := srv.do(t, http.MethodDelete, deletePath, student, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected deleting someone else's message to be forbidden, got %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodDelete, deletePath, instructor, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete own message: %d", rec.Code)
	}
}

func TestLessonDiscussionIsLimitedToCourseMembers(t *testing.T) {
	srv := newTestServer(t)
	courseID, videoID, quizLessonID := srv.seedCourse(t)
	comments := fmt.Sprintf("/lessons/%d/comments", videoID)

	if rec := srv.do(t, http.MethodGet, comments, student, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected unenrolled students to be kept out, got %d", rec.Code)
	}
	if err := srv.db.Create(&models.Enrollment{StudentID: student.UserID, CourseID: courseID}).Error; err != nil {
		t.Fatalf("enroll: %v", err)
	}

	rec := srv.do(t, http.MethodPost, comments, student, gin.H{"content": "Why does this work?"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("comment: %d %s", rec.Code, rec.Body.String())
	}
	var root struct {
		Comment models.LessonComment `json:"comment"`
	}
	decode(t, rec, &root)

	rec = srv.do(t, http.MethodPost, comments, instructor, gin.H{"content": "Good question", "parent_id": root.Comment.ID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("instructor reply: %d %s", rec.Code, rec.Body.String())
	}
	feed := srv.notifications(t, student)
	if feed.UnreadCount != 1 || feed.Notifications[0].Type != models.NotificationCommentReply {
		t.Fatalf("expected a reply notification, got %+v", feed)
	}

	elsewhere := fmt.Sprintf("/lessons/%d/comments", quizLessonID)
	if rec := srv.do(t, http.MethodPost, elsewhere, student, gin.H{"content": "x", "parent_id": root.Comment.ID}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected a parent from another lesson to be rejected, got %d", rec.Code)
	}

	edit := fmt.Sprintf("/comments/%d", root.Comment.ID)
	if rec := srv.do(t, http.MethodPut, edit, admin, gin.H{"content": "edited"}); rec.Code != http.StatusForbidden {
		t.Fatalf("only the author may edit, got %d", rec.Code)
	}
	rec = srv.do(t, http.MethodPut, edit, student, gin.H{"content": "Why does this work exactly?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("edit: %d %s", rec.Code, rec.Body.String())
	}
	if rec := srv.do(t, http.MethodDelete, edit, otherStudent, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected other users to be unable to delete, got %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodDelete, edit, admin, nil); rec.Code != http.StatusOK {
		t.Fatalf("admin delete: %d", rec.Code)
	}

	rec = srv.do(t, http.MethodGet, comments, instructor, nil)
	var thread struct {
		Comments []models.LessonComment `json:"comments"`
	}
	decode(t, rec, &thread)
	if len(thread.Comments) != 0 {
		t.Fatalf("expected the reply to go with its parent, got %+v", thread.Comments)
	}
}

func TestComplaintResponseNotifiesTheReporter(t *testing.T) {
	srv := newTestServer(t)

	if rec := srv.do(t, http.MethodPost, "/complaints", student, gin.H{"subject": "Video", "description": "Stutters", "category": "billing"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected an unknown category to fail binding, got %d", rec.Code)
	}
	rec := srv.do(t, http.MethodPost, "/complaints", student, gin.H{"subject": "Video", "description": "Stutters on lesson 3", "category": "technical"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Complaint models.Complaint `json:"complaint"`
	}
	decode(t, rec, &created)
	if created.Complaint.Status != models.ComplaintStatusOpen || created.Complaint.UserRole != student.Role {
		t.Fatalf("unexpected ticket %+v", created.Complaint)
	}

	if rec := srv.do(t, http.MethodGet, "/admin/complaints", student, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected the admin queue to be admin only, got %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodGet, "/admin/complaints?status=lost", admin, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected an unknown status filter to be rejected, got %d", rec.Code)
	}
	rec = srv.do(t, http.MethodGet, "/admin/complaints?category=technical&role=student", admin, nil)
	var queue struct {
		Complaints []models.Complaint `json:"complaints"`
	}
	decode(t, rec, &queue)
	if len(queue.Complaints) != 1 {
		t.Fatalf("expected the ticket in the filtered queue, got %+v", queue.Complaints)
	}

	path := fmt.Sprintf("/admin/complaints/%d", created.Complaint.ID)
	rec = srv.do(t, http.MethodPut, path, admin, gin.H{"status": "resolved", "response": "Fixed the encoding"})
	if rec.Code != http.StatusOK {
		t.Fatalf("respond: %d %s", rec.Code, rec.Body.String())
	}
	var answered struct {
		Complaint models.Complaint `json:"complaint"`
	}
	decode(t, rec, &answered)
	if answered.Complaint.RespondedBy == nil || *answered.Complaint.RespondedBy != admin.UserID || answered.Complaint.RespondedAt == nil {
		t.Fatalf("expected the response to be stamped, got %+v", answered.Complaint)
	}

	feed := srv.notifications(t, student)
	if feed.UnreadCount != 1 || feed.Notifications[0].Type != models.NotificationComplaintAnswer {
		t.Fatalf("expected a response notification, got %+v", feed)
	}
	notification := fmt.Sprintf("/notifications/%d/read", feed.Notifications[0].ID)
	if rec := srv.do(t, http.MethodPost, notification, otherStudent, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected another user's notification to read as missing, got %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodPost, "/notifications/read", student, nil); rec.Code != http.StatusOK {
		t.Fatalf("mark all read: %d", rec.Code)
	}
	if feed := srv.notifications(t, student); feed.UnreadCount != 0 {
		t.Fatalf("expected nothing unread, got %d", feed.UnreadCount)
	}
}

func TestModerationAndInstructorStatistics(t *testing.T) {
	srv := newTestServer(t)
	courseID, _, _ := srv.seedCourse(t)
	if err := srv.db.Create(&models.Enrollment{StudentID: student.UserID, CourseID: courseID}).Error; err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if err := srv.db.Create(&models.Review{CourseID: courseID, StudentID: student.UserID, Rating: 4}).Error; err != nil {
		t.Fatalf("review: %v", err)
	}

	if rec := srv.do(t, http.MethodGet, "/instructor/stats", student, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected students to be forbidden, got %d", rec.Code)
	}
	rec := srv.do(t, http.MethodGet, "/instructor/stats", instructor, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: %d %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Statistics models.InstructorStatistics `json:"statistics"`
	}
	decode(t, rec, &body)
	if body.Statistics.TotalCourses != 1 || body.Statistics.TotalStudents != 1 || body.Statistics.AverageRating != 4 {
		t.Fatalf("unexpected statistics %+v", body.Statistics)
	}

	rec = srv.do(t, http.MethodPost, "/courses", instructor, gin.H{"title": "Rust", "level": "beginner"})
	var created struct {
		Course models.Course `json:"course"`
	}
	decode(t, rec, &created)
	path := fmt.Sprintf("/courses/%d", created.Course.ID)
	if rec := srv.do(t, http.MethodPost, path+"/submit", instructor, nil); rec.Code != http.StatusOK {
		t.Fatalf("submit: %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodPost, path+"/reject", admin, gin.H{"reason": "Needs captions"}); rec.Code != http.StatusOK {
		t.Fatalf("reject: %d", rec.Code)
	}

	feed := srv.notifications(t, instructor)
	if len(feed.Notifications) != 1 || feed.Notifications[0].Type != models.NotificationCourseRejected || feed.Notifications[0].Message != "Needs captions" {
		t.Fatalf("expected a rejection notice carrying the reason, got %+v", feed.Notifications)
	}
}

package services

import (
	"context"
	"fmt"

	"elim/internal/models"

	"gorm.io/gorm"
)

type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// CommentCreated notifies whoever the new comment answers: the parent's
// author for a reply, the post's author for a top-level comment. Nobody is
// notified about their own activity. parent may be nil.
func (s *NotificationService) CommentCreated(ctx context.Context, post *models.Post, parent, comment *models.Comment) error {
	actorID := comment.AuthorID
	n := models.Notification{
		ActorID:   &actorID,
		PostID:    post.ID,
		CommentID: comment.ID,
	}

	if parent != nil {
		if parent.AuthorID == actorID {
			return nil
		}
		n.ProfileID = parent.AuthorID
		n.Type = models.NotificationTypeReplyComment
		n.Reason = fmt.Sprintf("replied to your comment on %q", post.Title)
	} else {
		if post.AuthorID == actorID {
			return nil
		}
		n.ProfileID = post.AuthorID
		n.Type = models.NotificationTypeCommentPost
		n.Reason = fmt.Sprintf("commented on your post %q", post.Title)
	}

	return s.db.WithContext(ctx).Create(&n).Error
}

// List returns the latest notifications addressed to profileID.
func (s *NotificationService) List(ctx context.Context, profileID string, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.db.WithContext(ctx).Preload("Actor").
		Where("profile_id = ?", profileID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

func (s *NotificationService) UnreadCount(ctx context.Context, profileID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("profile_id = ? AND is_read = ?", profileID, false).
		Count(&count).Error
	return count, err
}

// MarkRead flags one notification as read. It reports false when the
// notification does not exist or belongs to someone else.
func (s *NotificationService) MarkRead(ctx context.Context, profileID string, id uint) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND profile_id = ?", id, profileID).
		Update("is_read", true)
	return res.RowsAffected > 0, res.Error
}

func (s *NotificationService) MarkAllRead(ctx context.Context, profileID string) error {
	return s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("profile_id = ? AND is_read = ?", profileID, false).
		Update("is_read", true).Error
}

package services

import (
	"context"
	"time"

	"elim/internal/models"

	"gorm.io/gorm"
)

// 积分动作常量
const (
	ActionCommentCreate  = "comment.create"
	ActionCommentDeleted = "comment.delete"
)

// 积分值常量
const (
	PointsCommentCreate  = 1
	PointsCommentDeleted = -3
)

// DailyCommentLimit 每天前3条评论有积分
const DailyCommentLimit = 3

// PointsService keeps the community points balance on profiles together
// with an append-only log of every change.
type PointsService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPointsService(db *gorm.DB) *PointsService {
	return &PointsService{db: db, now: time.Now}
}

// AddPoints 使用事务添加积分并记录明细
// amount 正数增加，负数扣除
func (s *PointsService) AddPoints(ctx context.Context, profileID string, amount int, action string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		log := models.PointLog{
			ProfileID: profileID,
			Amount:    amount,
			Action:    action,
		}
		if err := tx.Create(&log).Error; err != nil {
			return err
		}

		return tx.Model(&models.Profile{}).
			Where("id = ?", profileID).
			UpdateColumn("points", gorm.Expr("points + ?", amount)).
			Error
	})
}

// todayRange 获取今日的开始和结束时间
func (s *PointsService) todayRange() (time.Time, time.Time) {
	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return startOfDay, startOfDay.Add(24 * time.Hour)
}

func (s *PointsService) countToday(ctx context.Context, profileID, action string) (int64, error) {
	start, end := s.todayRange()
	var count int64
	err := s.db.WithContext(ctx).Model(&models.PointLog{}).
		Where("profile_id = ? AND action = ? AND created_at >= ? AND created_at < ?", profileID, action, start, end).
		Count(&count).Error
	return count, err
}

// CanEarnCommentPoints 检查用户今日是否还能通过评论获取积分
func (s *PointsService) CanEarnCommentPoints(ctx context.Context, profileID string) (bool, error) {
	count, err := s.countToday(ctx, profileID, ActionCommentCreate)
	if err != nil {
		return false, err
	}
	return count < DailyCommentLimit, nil
}

// CommentCreated awards the daily-capped bonus for a new comment. The
// returned bool reports whether points were granted.
func (s *PointsService) CommentCreated(ctx context.Context, profileID string) (bool, error) {
	ok, err := s.CanEarnCommentPoints(ctx, profileID)
	if err != nil || !ok {
		return false, err
	}
	if err := s.AddPoints(ctx, profileID, PointsCommentCreate, ActionCommentCreate); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PointsService) CommentDeleted(ctx context.Context, profileID string) error {
	return s.AddPoints(ctx, profileID, PointsCommentDeleted, ActionCommentDeleted)
}

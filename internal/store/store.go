// Package store is the persistence side of comments: rows keyed by post, author
// and parent, with insert, delete and ordered select.
package store

import (
	"context"

	"elim/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentStore is what the comment service needs from persistence.
type CommentStore interface {
	// ListByPost returns the post's comments oldest first, author joined.
	ListByPost(ctx context.Context, postID string) ([]models.Comment, error)
	Find(ctx context.Context, id string) (*models.Comment, error)
	FindPost(ctx context.Context, id string) (*models.Post, error)
	// Insert fills id, timestamps and the joined author.
	Insert(ctx context.Context, c *models.Comment) error
	// Delete removes at most one row matching both id and author.
	Delete(ctx context.Context, id, authorID string) (int64, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) ListByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Preload("Profile").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, errors.Wrapf(err, "list comments of post %s", postID)
	}
	return comments, nil
}

func (s *GormStore) Find(ctx context.Context, id string) (*models.Comment, error) {
	var c models.Comment
	if err := s.db.WithContext(ctx).Preload("Profile").Where("id = ?", id).First(&c).Error; err != nil {
		return nil, notFound(err, "find comment %s", id)
	}
	return &c, nil
}

func (s *GormStore) FindPost(ctx context.Context, id string) (*models.Post, error) {
	var p models.Post
	if err := s.db.WithContext(ctx).Preload("Author").Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFound(err, "find post %s", id)
	}
	return &p, nil
}

// Insert writes the row and loads its author in one transaction; nothing is
// kept when the author cannot be loaded.
func (s *GormStore) Insert(ctx context.Context, c *models.Comment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(c).Error; err != nil {
			return errors.Wrap(err, "insert comment")
		}
		if err := tx.Where("id = ?", c.AuthorID).First(&c.Profile).Error; err != nil {
			return notFound(err, "load author %s", c.AuthorID)
		}
		return nil
	})
}

func (s *GormStore) Delete(ctx context.Context, id, authorID string) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("id = ? AND author_id = ?", id, authorID).
		Delete(&models.Comment{})
	if res.Error != nil {
		return 0, errors.Wrapf(res.Error, "delete comment %s", id)
	}
	return res.RowsAffected, nil
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = models.ErrNotFound
	}
	return errors.Wrapf(err, format, args...)
}

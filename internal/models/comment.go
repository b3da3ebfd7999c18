package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is a single row of a post's discussion. Replies are not stored; they are
// rebuilt from ParentID at read time.
type Comment struct {
	ID       string  `gorm:"primaryKey;size:36"`
	PostID   string  `gorm:"size:36;not null;index:idx_comments_post_created,priority:1"`
	AuthorID string  `gorm:"size:36;not null;index"`
	Profile  Profile `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	// No foreign key: deleting a parent leaves its replies in place.
	ParentID  *string   `gorm:"size:36;index"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"index:idx_comments_post_created,priority:2"`
	UpdatedAt time.Time
}

func (c *Comment) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Author returns the joined author fields.
func (c *Comment) Author() Author {
	return Author{
		ID:        c.Profile.ID,
		FullName:  c.Profile.FullName,
		AvatarURL: c.Profile.AvatarURL,
		Username:  c.Profile.Username,
	}
}

// HasParent reports whether the comment was written as a reply.
func (c *Comment) HasParent() bool {
	return c.ParentID != nil && *c.ParentID != ""
}

// CommentView is the wire shape of a comment row.
type CommentView struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	AuthorID  string    `json:"authorId"`
	ParentID  *string   `json:"parentId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Author    Author    `json:"author"`
}

func (c Comment) View() CommentView {
	return CommentView{
		ID:        c.ID,
		PostID:    c.PostID,
		AuthorID:  c.AuthorID,
		ParentID:  c.ParentID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Author:    c.Author(),
	}
}

// Comment converts the wire shape back into a row with its joined author.
func (raw CommentView) Comment() Comment {
	return Comment{
		ID:        raw.ID,
		PostID:    raw.PostID,
		AuthorID:  raw.AuthorID,
		ParentID:  raw.ParentID,
		Content:   raw.Content,
		CreatedAt: raw.CreatedAt,
		UpdatedAt: raw.UpdatedAt,
		Profile: Profile{
			ID:        raw.Author.ID,
			FullName:  raw.Author.FullName,
			AvatarURL: raw.Author.AvatarURL,
			Username:  raw.Author.Username,
		},
	}
}

func (c Comment) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.View())
}

func (c *Comment) UnmarshalJSON(data []byte) error {
	var raw CommentView
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = raw.Comment()
	return nil
}

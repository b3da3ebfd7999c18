package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile is the internal user record. Comments reference it through AuthorID.
type Profile struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Username  string    `gorm:"size:64;not null;uniqueIndex" json:"username"`
	FullName  string    `gorm:"size:128" json:"fullName"`
	AvatarURL string    `gorm:"size:512" json:"avatarUrl"`
	Village   string    `gorm:"size:128" json:"village,omitempty"`
	Points    int       `gorm:"default:0" json:"points"`
	Role      string    `gorm:"size:20;default:'user';not null" json:"role"` // user, admin
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Profile) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Author is the denormalised author view joined onto comments at read time.
type Author struct {
	ID        string `json:"id"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatarUrl"`
	Username  string `json:"username"`
}

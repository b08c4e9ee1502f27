package domain

import (
	"time"

	"gorm.io/gorm"

	"bugboard/pkg/utils"
)

type Comment struct {
	ID          string       `gorm:"primaryKey;size:36" json:"id"`
	Text        string       `gorm:"type:text;not null" json:"text" validate:"required,max=65535"`
	AuthorID    string       `gorm:"size:36;not null;index" json:"authorId" validate:"required"`
	IssueID     string       `gorm:"size:36;not null;index" json:"issueId" validate:"required"`
	Attachments []Attachment `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

func (Comment) TableName() string { return "comments" }

func (c *Comment) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = utils.NewID()
	}
	return nil
}

package domain

import (
	"time"

	"gorm.io/gorm"

	"bugboard/pkg/utils"
)

type Project struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:255;not null" json:"name" validate:"required,max=255"`
	Issues    []Issue   `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Project) TableName() string { return "projects" }

func (p *Project) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = utils.NewID()
	}
	return nil
}

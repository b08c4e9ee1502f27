package domain

import (
	"time"

	"gorm.io/gorm"

	"bugboard/pkg/utils"
)

type Role string

const (
	RoleAdmin    Role = "Administrator"
	RoleStandard Role = "Standard"
)

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleStandard }

type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name" validate:"required,max=255"`
	Surname      string    `gorm:"size:255;not null" json:"surname" validate:"required,max=255"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email" validate:"required,email,max=255"`
	PasswordHash string    `gorm:"size:100" json:"-"`
	Role         Role      `gorm:"size:16;not null;default:Standard" json:"role" validate:"required,oneof=Administrator Standard"`
	ExternalID   *string   `gorm:"uniqueIndex;size:255" json:"externalId,omitempty" validate:"omitempty,max=255"`
	Issues       []Issue   `gorm:"foreignKey:CreatorID;constraint:OnDelete:CASCADE" json:"-"`
	Comments     []Comment `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = utils.NewID()
	}
	return nil
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

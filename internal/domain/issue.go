package domain

import (
	"time"

	"gorm.io/gorm"

	"bugboard/pkg/utils"
)

type IssueType string

const (
	IssueTypeQuestion      IssueType = "Question"
	IssueTypeBug           IssueType = "Bug"
	IssueTypeDocumentation IssueType = "Documentation"
	IssueTypeFeature       IssueType = "Feature"
)

type IssueStatus string

const (
	IssueStatusTodo       IssueStatus = "TODO"
	IssueStatusInProgress IssueStatus = "In-Progress"
	IssueStatusDone       IssueStatus = "Done"
)

type IssuePriority string

const (
	PriorityHigh   IssuePriority = "High"
	PriorityMedium IssuePriority = "Medium"
	PriorityLow    IssuePriority = "Low"
)

type Issue struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	Title       string         `gorm:"size:255;not null" json:"title" validate:"required,max=255"`
	Description string         `gorm:"type:text" json:"description" validate:"max=65535"`
	Type        IssueType      `gorm:"size:16;not null" json:"type" validate:"required,oneof=Question Bug Documentation Feature"`
	Status      IssueStatus    `gorm:"size:16;not null;default:TODO" json:"status" validate:"required,oneof=TODO In-Progress Done"`
	Priority    *IssuePriority `gorm:"size:8" json:"priority" validate:"omitempty,oneof=High Medium Low"`
	CreatorID   string         `gorm:"size:36;not null;index" json:"creatorId" validate:"required"`
	ProjectID   string         `gorm:"size:36;not null;index" json:"projectId" validate:"required"`
	Comments    []Comment      `gorm:"foreignKey:IssueID;constraint:OnDelete:CASCADE" json:"-"`
	Attachments []Attachment   `gorm:"foreignKey:IssueID;constraint:OnDelete:CASCADE" json:"attachments,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func (Issue) TableName() string { return "issues" }

func (i *Issue) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = utils.NewID()
	}
	if i.Status == "" {
		i.Status = IssueStatusTodo
	}
	return nil
}

// IssueFilter 列表筛选，空值表示不过滤
type IssueFilter struct {
	Type     IssueType
	Status   IssueStatus
	Priority IssuePriority
}

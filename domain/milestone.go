package domain

import (
	"github.com/fundwit/go-commons/types"
)

const (
	MilestoneStatePending    = "PENDING"
	MilestoneStateInProgress = "IN_PROGRESS"
	MilestoneStateCompleted  = "COMPLETED"
	MilestoneStatePaid       = "PAID"
)

type Milestone struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	ProjectID types.ID `json:"projectId"`

	Title       string  `json:"title"`
	Description string  `json:"description" sql:"type:TEXT"`
	Amount      float64 `json:"amount"`

	DueDate   types.Timestamp `json:"dueDate" sql:"type:DATETIME(6)"`
	StateName string          `json:"stateName"`
	// OrderIndex keeps the owner defined ordering inside a project.
	OrderIndex int `json:"orderIndex"`

	CreateTime   types.Timestamp `json:"createTime" sql:"type:DATETIME(6)"`
	CompleteTime types.Timestamp `json:"completeTime" sql:"type:DATETIME(6)"`
}

func (m *Milestone) TableName() string {
	return "milestones"
}

type MilestoneCreation struct {
	ProjectID   types.ID        `json:"projectId" validate:"required"`
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	Amount      float64         `json:"amount" validate:"gte=0"`
	DueDate     types.Timestamp `json:"dueDate"`
	OrderIndex  int             `json:"orderIndex"`
}

type MilestoneUpdating struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	Amount      float64         `json:"amount" validate:"gte=0"`
	DueDate     types.Timestamp `json:"dueDate"`
	OrderIndex  int             `json:"orderIndex"`
}

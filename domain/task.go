package domain

import (
	"github.com/fundwit/go-commons/types"
)

const (
	TaskStateTodo       = "TODO"
	TaskStateInProgress = "IN_PROGRESS"
	TaskStateReview     = "REVIEW"
	TaskStateCompleted  = "COMPLETED"

	TaskPriorityLow    = "LOW"
	TaskPriorityMedium = "MEDIUM"
	TaskPriorityHigh   = "HIGH"
)

type Task struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	ProjectID types.ID `json:"projectId"`
	// SprintID is zero for backlog tasks not scheduled into a sprint.
	SprintID types.ID `json:"sprintId"`

	Title       string `json:"title"`
	Description string `json:"description" sql:"type:TEXT"`

	AssigneeID types.ID `json:"assigneeId"`

	StateName string `json:"stateName"`
	Priority  string `json:"priority"`

	EstimatedHours float64 `json:"estimatedHours"`
	ActualHours    float64 `json:"actualHours"`

	DueDate    types.Timestamp `json:"dueDate" sql:"type:DATETIME(6)"`
	OrderIndex int             `json:"orderIndex"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6)"`
}

func (t *Task) TableName() string {
	return "tasks"
}

type TaskCreation struct {
	ProjectID      types.ID        `json:"projectId" validate:"required"`
	SprintID       types.ID        `json:"sprintId"`
	Title          string          `json:"title" validate:"required"`
	Description    string          `json:"description"`
	AssigneeID     types.ID        `json:"assigneeId"`
	Priority       string          `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	EstimatedHours float64         `json:"estimatedHours" validate:"gte=0"`
	DueDate        types.Timestamp `json:"dueDate"`
	OrderIndex     int             `json:"orderIndex"`
}

type TaskUpdating struct {
	Title          string          `json:"title" validate:"required"`
	Description    string          `json:"description"`
	AssigneeID     types.ID        `json:"assigneeId"`
	StateName      string          `json:"stateName" validate:"required,oneof=TODO IN_PROGRESS REVIEW COMPLETED"`
	Priority       string          `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH"`
	EstimatedHours float64         `json:"estimatedHours" validate:"gte=0"`
	ActualHours    float64         `json:"actualHours" validate:"gte=0"`
	DueDate        types.Timestamp `json:"dueDate"`
}

// TaskMove repositions a task on the board, optionally into another column.
type TaskMove struct {
	OrderIndex int    `json:"orderIndex" validate:"gte=0"`
	StateName  string `json:"stateName" validate:"omitempty,oneof=TODO IN_PROGRESS REVIEW COMPLETED"`
}

type TaskQuery struct {
	ProjectID types.ID `form:"projectId"`
	SprintID  types.ID `form:"sprintId"`
	StateName string   `form:"state"`
}

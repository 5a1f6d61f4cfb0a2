package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/fundwit/go-commons/types"
)

const (
	SprintStatePlanning   = "PLANNING"
	SprintStateInProgress = "IN_PROGRESS"
	SprintStateCompleted  = "COMPLETED"
)

type Sprint struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	ProjectID types.ID `json:"projectId"`

	Title       string `json:"title"`
	Description string `json:"description" sql:"type:TEXT"`

	Features SprintFeatures `json:"features" sql:"type:TEXT"`

	StartDate types.Timestamp `json:"startDate" sql:"type:DATETIME(6)"`
	EndDate   types.Timestamp `json:"endDate" sql:"type:DATETIME(6)"`

	StateName string `json:"stateName"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6)"`
}

func (s *Sprint) TableName() string {
	return "sprints"
}

// SprintFeature is an embedded planning item, persisted as a JSON column
// with the sprint instead of a table of its own.
type SprintFeature struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StateName   string `json:"stateName"`
}

type SprintFeatures []SprintFeature

func (f SprintFeatures) Value() (driver.Value, error) {
	jsonBytes, err := json.Marshal(&f)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (f *SprintFeatures) Scan(v interface{}) error {
	jsonString, ok := v.(string)
	if !ok {
		jsonByte, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("type is neither string nor []byte: %T %v", v, v)
		}
		jsonString = string(jsonByte)
	}
	return json.Unmarshal([]byte(jsonString), f)
}

type SprintCreation struct {
	ProjectID   types.ID        `json:"projectId" validate:"required"`
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	Features    SprintFeatures  `json:"features"`
	StartDate   types.Timestamp `json:"startDate" validate:"required"`
	EndDate     types.Timestamp `json:"endDate" validate:"required"`
}

type SprintUpdating struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	Features    SprintFeatures  `json:"features"`
	StartDate   types.Timestamp `json:"startDate" validate:"required"`
	EndDate     types.Timestamp `json:"endDate" validate:"required"`
	StateName   string          `json:"stateName" validate:"required,oneof=PLANNING IN_PROGRESS COMPLETED"`
}

// SprintPlan replaces the whole planning of a project in one shot. Tasks
// reference their sprint by title because sprint ids do not exist yet when
// the plan is submitted.
type SprintPlan struct {
	ProjectID types.ID        `json:"projectId" validate:"required"`
	Sprints   []PlannedSprint `json:"sprints" validate:"required,min=1,dive"`
	Tasks     []PlannedTask   `json:"tasks" validate:"dive"`
}

type PlannedSprint struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	Features    SprintFeatures  `json:"features"`
	StartDate   types.Timestamp `json:"startDate" validate:"required"`
	EndDate     types.Timestamp `json:"endDate" validate:"required"`
}

type PlannedTask struct {
	SprintTitle string          `json:"sprintTitle"`
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	AssigneeID  types.ID        `json:"assigneeId"`
	Priority    string          `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	DueDate     types.Timestamp `json:"dueDate"`
}

type SprintPlanDetail struct {
	Sprints []Sprint `json:"sprints"`
	Tasks   []Task   `json:"tasks"`
}

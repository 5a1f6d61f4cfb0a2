package domain

import (
	"gigmarket/activity"
	"gigmarket/domain/state"

	"github.com/fundwit/go-commons/types"
)

var (
	StatePending    = state.State{Name: "PENDING", Category: state.InReview}
	StateOpen       = state.State{Name: "OPEN", Category: state.Bidding}
	StateInProgress = state.State{Name: "IN_PROGRESS", Category: state.InDelivery}
	StateCompleted  = state.State{Name: "COMPLETED", Category: state.Done}
	StateCancelled  = state.State{Name: "CANCELLED", Category: state.Terminated}
	StateRejected   = state.State{Name: "REJECTED", Category: state.Terminated}

	// ProjectLifecycle is the only state machine of projects. Transitions
	// are one-directional; a repeated transition fails the precondition.
	ProjectLifecycle = state.NewStateMachine(
		[]state.State{StatePending, StateOpen, StateInProgress, StateCompleted, StateCancelled, StateRejected},
		[]state.Transition{
			{Name: "approve", From: StatePending, To: StateOpen},
			{Name: "reject", From: StatePending, To: StateRejected},
			{Name: "accept bid", From: StateOpen, To: StateInProgress},
			{Name: "complete", From: StateInProgress, To: StateCompleted},
			{Name: "cancel", From: StateOpen, To: StateCancelled},
			{Name: "cancel", From: StateInProgress, To: StateCancelled},
		})
)

type Project struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	Title       string `json:"title"`
	Description string `json:"description" sql:"type:TEXT"`

	OwnerID   types.ID `json:"ownerId"`
	OwnerName string   `json:"ownerName"`

	StateName string  `json:"stateName"`
	Budget    float64 `json:"budget"`
	// MinimumBid is the lowest amount a bid on this project may carry.
	MinimumBid float64 `json:"minimumBid"`

	AssignedFreelancerID types.ID `json:"assignedFreelancerId"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6)"`
}

func (p *Project) TableName() string {
	return "projects"
}

type ProjectCreation struct {
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description" validate:"required"`
	Budget      float64 `json:"budget" validate:"required,gt=0"`
	MinimumBid  float64 `json:"minimumBid" validate:"required,gt=0,ltefield=Budget"`
}

type ProjectUpdating struct {
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description" validate:"required"`
	Budget      float64 `json:"budget" validate:"required,gt=0"`
	MinimumBid  float64 `json:"minimumBid" validate:"required,gt=0,ltefield=Budget"`
}

type ProjectQuery struct {
	StateName            string   `form:"state"`
	OwnerID              types.ID `form:"ownerId"`
	AssignedFreelancerID types.ID `form:"assignedFreelancerId"`
	Page                 int      `form:"page"`
	Size                 int      `form:"size"`
}

type ProjectDetail struct {
	Project

	State      state.State       `json:"state"`
	Bids       []Bid             `json:"bids"`
	Milestones []Milestone       `json:"milestones"`
	Activities []activity.Record `json:"activities"`
}

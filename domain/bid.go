package domain

import (
	"github.com/fundwit/go-commons/types"
)

const (
	BidStatePending  = "PENDING"
	BidStateAccepted = "ACCEPTED"
	BidStateRejected = "REJECTED"
)

// Bid sort modes. Project owners compare bids by price, freelancers
// browse their own bids by recency.
const (
	BidOrderByAmount     = "amount"
	BidOrderByCreateTime = "createTime"
)

type Bid struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	ProjectID types.ID `json:"projectId" gorm:"unique_index:uni_bid_project_freelancer"`

	FreelancerID   types.ID `json:"freelancerId" gorm:"unique_index:uni_bid_project_freelancer"`
	FreelancerName string   `json:"freelancerName"`

	Amount   float64 `json:"amount"`
	Proposal string  `json:"proposal" sql:"type:TEXT"`

	StateName string `json:"stateName"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6)"`
}

func (b *Bid) TableName() string {
	return "bids"
}

type BidCreation struct {
	ProjectID types.ID `json:"projectId" validate:"required"`
	Amount    float64  `json:"amount" validate:"required,gt=0"`
	Proposal  string   `json:"proposal" validate:"required"`
}

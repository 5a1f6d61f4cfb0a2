package notification

import (
	"github.com/fundwit/go-commons/types"
)

const (
	TypeBidSubmitted       = "bid_submitted"
	TypeBidAccepted        = "bid_accepted"
	TypeBidRejected        = "bid_rejected"
	TypeProjectApproved    = "project_approved"
	TypeProjectRejected    = "project_rejected"
	TypeProjectCompleted   = "project_completed"
	TypeProjectCancelled   = "project_cancelled"
	TypeMilestoneCreated   = "milestone_created"
	TypeMilestoneCompleted = "milestone_completed"
	TypeMilestonePaid      = "milestone_paid"
)

type Notification struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	UserID   types.ID `json:"userId"`
	SenderID types.ID `json:"senderId"`

	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`

	ProjectID   types.ID `json:"projectId"`
	BidID       types.ID `json:"bidId"`
	MilestoneID types.ID `json:"milestoneId"`

	IsRead   bool            `json:"isRead"`
	ReadTime types.Timestamp `json:"readTime" sql:"type:DATETIME(6)"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6)"`
}

func (n *Notification) TableName() string {
	return "notifications"
}

type NotificationQuery struct {
	UnreadOnly bool `form:"unreadOnly"`
	Page       int  `form:"page"`
	Size       int  `form:"size"`
}

type UnreadCount struct {
	Count uint64 `json:"count"`
}

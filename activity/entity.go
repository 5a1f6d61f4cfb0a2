package activity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/fundwit/go-commons/types"
)

const (
	TypeProjectCreated       = "project_created"
	TypeProjectUpdated       = "project_updated"
	TypeProjectStatusChanged = "project_status_changed"
	TypeProjectDeleted       = "project_deleted"
	TypeBidPlaced            = "bid_placed"
	TypeBidAccepted          = "bid_accepted"
	TypeBidRejected          = "bid_rejected"
	TypeFreelancerAssigned   = "freelancer_assigned"
	TypeMilestoneCreated     = "milestone_created"
	TypeMilestoneCompleted   = "milestone_completed"
	TypeMilestonePaid        = "milestone_paid"
)

type Activity struct {
	ProjectID types.ID `json:"projectId"`

	ActorID   types.ID `json:"actorId"`
	ActorName string   `json:"actorName"`

	Type    string  `json:"type"`
	Payload Payload `json:"payload" sql:"type:TEXT"`
}

// Record is one append-only audit entry of a state changing event on a
// project. Records are never mutated; they are deleted only when the
// project itself is deleted.
type Record struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	Activity

	Timestamp types.Timestamp `json:"timestamp" sql:"type:DATETIME(6)"`
}

func (r *Record) TableName() string {
	return "activities"
}

type Payload map[string]interface{}

func (p Payload) Value() (driver.Value, error) {
	jsonBytes, err := json.Marshal(&p)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (p *Payload) Scan(v interface{}) error {
	jsonString, ok := v.(string)
	if !ok {
		jsonByte, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("type is neither string nor []byte: %T %v", v, v)
		}
		jsonString = string(jsonByte)
	}
	return json.Unmarshal([]byte(jsonString), p)
}

type RecordQuery struct {
	ProjectID types.ID `form:"projectId"`
	Page      int      `form:"page"`
	Size      int      `form:"size"`
}

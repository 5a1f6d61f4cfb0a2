package notification

import (
	"fmt"
	"sync"

	"gigmarket/activity"
	"gigmarket/common"
	"gigmarket/domain"
	"gigmarket/persistence"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
	"github.com/sony/sonyflake"
)

// Notifier turns activity records into notification rows for the affected
// users. Dispatch is asynchronous and best-effort: the activity handler
// only enqueues, the worker goroutine writes, and every failure is logged
// and swallowed so a notification problem can never undo the state change
// that produced it.
type Notifier struct {
	dataSource *persistence.DataSourceManager
	idWorker   *sonyflake.Sonyflake

	queue chan *activity.Record
	done  chan struct{}

	mutex  sync.Mutex
	closed bool
}

func NewNotifier(ds *persistence.DataSourceManager) *Notifier {
	n := &Notifier{
		dataSource: ds,
		idWorker:   sonyflake.NewSonyflake(sonyflake.Settings{}),
		queue:      make(chan *activity.Record, 256),
		done:       make(chan struct{}),
	}
	go n.work()
	return n
}

// OnActivity is registered into activity.Handlers. A handler chain may still
// be running while the notifier shuts down, so the enqueue is guarded against
// the closed queue.
func (n *Notifier) OnActivity(record *activity.Record) *activity.HandleResult {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if n.closed {
		logrus.Warn("notifier is closed, dropping activity ", record.Type, " of project ", record.ProjectID)
		return &activity.HandleResult{Success: false, Message: "notifier closed", HandlerIdentifier: "notification.fanout"}
	}
	select {
	case n.queue <- record:
		return &activity.HandleResult{Success: true, HandlerIdentifier: "notification.fanout"}
	default:
		logrus.Warn("notification queue is full, dropping activity ", record.Type, " of project ", record.ProjectID)
		return &activity.HandleResult{Success: false, Message: "queue full", HandlerIdentifier: "notification.fanout"}
	}
}

// Close drains the queue and stops the worker. Safe to call more than once.
func (n *Notifier) Close() {
	n.mutex.Lock()
	if n.closed {
		n.mutex.Unlock()
		return
	}
	n.closed = true
	close(n.queue)
	n.mutex.Unlock()

	<-n.done
}

func (n *Notifier) work() {
	defer close(n.done)
	for record := range n.queue {
		if record.Type == activity.TypeProjectDeleted {
			if err := n.dataSource.GormDB().Delete(Notification{}, "project_id = ?", record.ProjectID).Error; err != nil {
				logrus.Error("failed to clean notifications of deleted project ", record.ProjectID, ": ", err)
			}
			continue
		}
		for _, notification := range n.buildNotifications(record) {
			notification.ID = common.NextId(n.idWorker)
			notification.CreateTime = types.CurrentTimestamp()
			if err := n.dataSource.GormDB().Create(&notification).Error; err != nil {
				logrus.Error("failed to create notification ", notification.Type,
					" for user ", notification.UserID, ": ", err)
			}
		}
	}
}

func (n *Notifier) buildNotifications(record *activity.Record) []Notification {
	p := record.Payload
	switch record.Type {
	case activity.TypeBidPlaced:
		return []Notification{{
			UserID: payloadID(p, "ownerId"), SenderID: record.ActorID,
			Type:  TypeBidSubmitted,
			Title: "New Bid",
			Message: fmt.Sprintf("%v placed a bid of %v on your project \"%v\".",
				p["freelancerName"], p["amount"], p["projectTitle"]),
			ProjectID: record.ProjectID, BidID: payloadID(p, "bidId"),
		}}
	case activity.TypeBidAccepted:
		notifications := []Notification{{
			UserID: payloadID(p, "freelancerId"), SenderID: record.ActorID,
			Type:      TypeBidAccepted,
			Title:     "Bid Accepted",
			Message:   fmt.Sprintf("Your bid for project \"%v\" has been accepted!", p["projectTitle"]),
			ProjectID: record.ProjectID, BidID: payloadID(p, "bidId"),
		}}
		for _, loser := range payloadList(p, "rejectedBids") {
			notifications = append(notifications, Notification{
				UserID: payloadID(loser, "freelancerId"), SenderID: record.ActorID,
				Type:      TypeBidRejected,
				Title:     "Bid Rejected",
				Message:   fmt.Sprintf("Your bid for project \"%v\" has been rejected.", p["projectTitle"]),
				ProjectID: record.ProjectID, BidID: payloadID(loser, "bidId"),
			})
		}
		return notifications
	case activity.TypeBidRejected:
		return []Notification{{
			UserID: payloadID(p, "freelancerId"), SenderID: record.ActorID,
			Type:      TypeBidRejected,
			Title:     "Bid Rejected",
			Message:   fmt.Sprintf("Your bid for project \"%v\" has been rejected.", p["projectTitle"]),
			ProjectID: record.ProjectID, BidID: payloadID(p, "bidId"),
		}}
	case activity.TypeProjectStatusChanged:
		return n.buildStatusChangeNotifications(record)
	case activity.TypeMilestoneCompleted:
		notifications := []Notification{}
		for _, key := range []string{"ownerId", "assignedFreelancerId"} {
			userId := payloadID(p, key)
			if userId == 0 || userId == record.ActorID {
				continue
			}
			notifications = append(notifications, Notification{
				UserID: userId, SenderID: record.ActorID,
				Type:      TypeMilestoneCompleted,
				Title:     "Milestone Completed",
				Message:   fmt.Sprintf("Milestone \"%v\" has been completed.", p["title"]),
				ProjectID: record.ProjectID, MilestoneID: payloadID(p, "milestoneId"),
			})
		}
		return notifications
	case activity.TypeMilestonePaid:
		freelancerId := payloadID(p, "assignedFreelancerId")
		if freelancerId == 0 {
			return nil
		}
		return []Notification{{
			UserID: freelancerId, SenderID: record.ActorID,
			Type:      TypeMilestonePaid,
			Title:     "Milestone Paid",
			Message:   fmt.Sprintf("Payment for milestone \"%v\" has been released.", p["title"]),
			ProjectID: record.ProjectID, MilestoneID: payloadID(p, "milestoneId"),
		}}
	case activity.TypeMilestoneCreated:
		userId := payloadID(p, "ownerId")
		if userId == 0 || userId == record.ActorID {
			return nil
		}
		return []Notification{{
			UserID: userId, SenderID: record.ActorID,
			Type:      TypeMilestoneCreated,
			Title:     "Milestone Created",
			Message:   fmt.Sprintf("Milestone \"%v\" has been created.", p["title"]),
			ProjectID: record.ProjectID, MilestoneID: payloadID(p, "milestoneId"),
		}}
	}
	return nil
}

func (n *Notifier) buildStatusChangeNotifications(record *activity.Record) []Notification {
	p := record.Payload
	switch p["to"] {
	case domain.StateOpen.Name:
		return []Notification{{
			UserID: payloadID(p, "ownerId"), SenderID: record.ActorID,
			Type:      TypeProjectApproved,
			Title:     "Project Approved",
			Message:   fmt.Sprintf("Your project \"%v\" has been approved and is open for bidding.", p["title"]),
			ProjectID: record.ProjectID,
		}}
	case domain.StateRejected.Name:
		return []Notification{{
			UserID: payloadID(p, "ownerId"), SenderID: record.ActorID,
			Type:      TypeProjectRejected,
			Title:     "Project Rejected",
			Message:   fmt.Sprintf("Your project \"%v\" has been rejected.", p["title"]),
			ProjectID: record.ProjectID,
		}}
	case domain.StateCompleted.Name:
		freelancerId := payloadID(p, "assignedFreelancerId")
		if freelancerId == 0 {
			return nil
		}
		return []Notification{{
			UserID: freelancerId, SenderID: record.ActorID,
			Type:      TypeProjectCompleted,
			Title:     "Project Completed",
			Message:   fmt.Sprintf("Project \"%v\" has been completed.", p["title"]),
			ProjectID: record.ProjectID,
		}}
	case domain.StateCancelled.Name:
		freelancerId := payloadID(p, "assignedFreelancerId")
		if freelancerId == 0 {
			return nil
		}
		return []Notification{{
			UserID: freelancerId, SenderID: record.ActorID,
			Type:      TypeProjectCancelled,
			Title:     "Project Cancelled",
			Message:   fmt.Sprintf("Project \"%v\" has been cancelled.", p["title"]),
			ProjectID: record.ProjectID,
		}}
	}
	return nil
}

func payloadID(p map[string]interface{}, key string) types.ID {
	raw, ok := p[key]
	if !ok {
		return 0
	}
	str, ok := raw.(string)
	if !ok {
		return 0
	}
	id, err := types.ParseID(str)
	if err != nil {
		return 0
	}
	return id
}

func payloadList(p map[string]interface{}, key string) []map[string]interface{} {
	list := []map[string]interface{}{}
	switch raw := p[key].(type) {
	case []map[string]string:
		for _, item := range raw {
			entry := map[string]interface{}{}
			for k, v := range item {
				entry[k] = v
			}
			list = append(list, entry)
		}
	case []interface{}:
		for _, item := range raw {
			if entry, ok := item.(map[string]interface{}); ok {
				list = append(list, entry)
			}
		}
	}
	return list
}

package notification_test

import (
	"log"

	"gigmarket/activity"
	"gigmarket/notification"
	"gigmarket/testinfra"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Notifier", func() {
	var testDatabase *testinfra.TestDatabase

	BeforeEach(func() {
		testDatabase = testinfra.StartMysqlTestDatabase("gigmarket")
		if err := testDatabase.DS.GormDB().AutoMigrate(&notification.Notification{}).Error; err != nil {
			log.Fatalf("database migration failed %v\n", err)
		}
	})
	AfterEach(func() {
		testinfra.StopMysqlTestDatabase(testDatabase)
	})

	// feed records through the queue and wait for the worker to drain
	dispatch := func(records ...*activity.Record) {
		notifier := notification.NewNotifier(testDatabase.DS)
		for _, record := range records {
			result := notifier.OnActivity(record)
			Expect(result.Success).To(BeTrue())
			Expect(result.HandlerIdentifier).To(Equal("notification.fanout"))
		}
		notifier.Close()
	}

	loadAll := func() []notification.Notification {
		var notifications []notification.Notification
		Expect(testDatabase.DS.GormDB().Order("user_id ASC").Find(&notifications).Error).To(BeNil())
		return notifications
	}

	It("should notify the project owner about a new bid", func() {
		dispatch(&activity.Record{
			Activity: activity.Activity{
				ProjectID: 10, ActorID: 200, ActorName: "user200",
				Type: activity.TypeBidPlaced,
				Payload: activity.Payload{
					"bidId": "5", "freelancerId": "200", "freelancerName": "user200",
					"amount": 150.0, "ownerId": "100", "projectTitle": "build a website",
				},
			},
			Timestamp: types.CurrentTimestamp(),
		})

		notifications := loadAll()
		Expect(len(notifications)).To(Equal(1))
		Expect(notifications[0].UserID).To(Equal(types.ID(100)))
		Expect(notifications[0].SenderID).To(Equal(types.ID(200)))
		Expect(notifications[0].Type).To(Equal(notification.TypeBidSubmitted))
		Expect(notifications[0].ProjectID).To(Equal(types.ID(10)))
		Expect(notifications[0].BidID).To(Equal(types.ID(5)))
		Expect(notifications[0].IsRead).To(BeFalse())
		Expect(notifications[0].Message).To(
			Equal("user200 placed a bid of 150 on your project \"build a website\"."))
	})

	It("should notify the winner and every rejected sibling on acceptance", func() {
		dispatch(&activity.Record{
			Activity: activity.Activity{
				ProjectID: 10, ActorID: 100, ActorName: "user100",
				Type: activity.TypeBidAccepted,
				Payload: activity.Payload{
					"bidId": "5", "freelancerId": "200", "freelancerName": "user200",
					"amount": 150.0, "projectTitle": "build a website",
					"rejectedBids": []map[string]string{
						{"bidId": "6", "freelancerId": "300"},
						{"bidId": "7", "freelancerId": "400"},
					},
				},
			},
			Timestamp: types.CurrentTimestamp(),
		})

		notifications := loadAll()
		Expect(len(notifications)).To(Equal(3))
		Expect(notifications[0].UserID).To(Equal(types.ID(200)))
		Expect(notifications[0].Type).To(Equal(notification.TypeBidAccepted))
		Expect(notifications[1].UserID).To(Equal(types.ID(300)))
		Expect(notifications[1].Type).To(Equal(notification.TypeBidRejected))
		Expect(notifications[1].BidID).To(Equal(types.ID(6)))
		Expect(notifications[2].UserID).To(Equal(types.ID(400)))
		Expect(notifications[2].Type).To(Equal(notification.TypeBidRejected))
	})

	It("should map project status changes to the affected side", func() {
		dispatch(
			&activity.Record{
				Activity: activity.Activity{
					ProjectID: 10, ActorID: 1, ActorName: "user1",
					Type: activity.TypeProjectStatusChanged,
					Payload: activity.Payload{
						"from": "PENDING", "to": "OPEN",
						"ownerId": "100", "title": "build a website", "assignedFreelancerId": "0",
					},
				},
				Timestamp: types.CurrentTimestamp(),
			},
			&activity.Record{
				Activity: activity.Activity{
					ProjectID: 10, ActorID: 100, ActorName: "user100",
					Type: activity.TypeProjectStatusChanged,
					Payload: activity.Payload{
						"from": "IN_PROGRESS", "to": "COMPLETED",
						"ownerId": "100", "title": "build a website", "assignedFreelancerId": "200",
					},
				},
				Timestamp: types.CurrentTimestamp(),
			})

		notifications := loadAll()
		Expect(len(notifications)).To(Equal(2))
		Expect(notifications[0].UserID).To(Equal(types.ID(100)))
		Expect(notifications[0].Type).To(Equal(notification.TypeProjectApproved))
		Expect(notifications[1].UserID).To(Equal(types.ID(200)))
		Expect(notifications[1].Type).To(Equal(notification.TypeProjectCompleted))
	})

	It("should skip cancellations of never assigned projects", func() {
		dispatch(&activity.Record{
			Activity: activity.Activity{
				ProjectID: 10, ActorID: 100, ActorName: "user100",
				Type: activity.TypeProjectStatusChanged,
				Payload: activity.Payload{
					"from": "OPEN", "to": "CANCELLED",
					"ownerId": "100", "title": "build a website", "assignedFreelancerId": "0",
				},
			},
			Timestamp: types.CurrentTimestamp(),
		})

		Expect(len(loadAll())).To(BeZero())
	})

	It("should reject activities after shutdown instead of panicking", func() {
		notifier := notification.NewNotifier(testDatabase.DS)
		notifier.Close()
		notifier.Close()

		result := notifier.OnActivity(&activity.Record{
			Activity: activity.Activity{
				ProjectID: 10, ActorID: 200, ActorName: "user200",
				Type:    activity.TypeBidPlaced,
				Payload: activity.Payload{"ownerId": "100"},
			},
			Timestamp: types.CurrentTimestamp(),
		})
		Expect(result.Success).To(BeFalse())
		Expect(result.Message).To(Equal("notifier closed"))
		Expect(len(loadAll())).To(BeZero())
	})

	It("should clean up notifications of a deleted project", func() {
		db := testDatabase.DS.GormDB()
		Expect(db.Create(&notification.Notification{ID: 1, UserID: 200, ProjectID: 10,
			Type: notification.TypeBidSubmitted, CreateTime: types.CurrentTimestamp()}).Error).To(BeNil())
		Expect(db.Create(&notification.Notification{ID: 2, UserID: 300, ProjectID: 11,
			Type: notification.TypeBidSubmitted, CreateTime: types.CurrentTimestamp()}).Error).To(BeNil())

		dispatch(&activity.Record{
			Activity: activity.Activity{
				ProjectID: 10, ActorID: 100, ActorName: "user100",
				Type:    activity.TypeProjectDeleted,
				Payload: activity.Payload{"title": "build a website"},
			},
			Timestamp: types.CurrentTimestamp(),
		})

		notifications := loadAll()
		Expect(len(notifications)).To(Equal(1))
		Expect(notifications[0].ProjectID).To(Equal(types.ID(11)))
	})

	It("should notify the freelancer about a released milestone payment", func() {
		dispatch(&activity.Record{
			Activity: activity.Activity{
				ProjectID: 10, ActorID: 100, ActorName: "user100",
				Type: activity.TypeMilestonePaid,
				Payload: activity.Payload{
					"milestoneId": "20", "title": "first delivery", "amount": 300.0,
					"ownerId": "100", "assignedFreelancerId": "200",
				},
			},
			Timestamp: types.CurrentTimestamp(),
		})

		notifications := loadAll()
		Expect(len(notifications)).To(Equal(1))
		Expect(notifications[0].UserID).To(Equal(types.ID(200)))
		Expect(notifications[0].Type).To(Equal(notification.TypeMilestonePaid))
		Expect(notifications[0].Message).To(
			Equal("Payment for milestone \"first delivery\" has been released."))
	})

	It("should not notify the milestone actor about the own completion", func() {
		dispatch(&activity.Record{
			Activity: activity.Activity{
				ProjectID: 10, ActorID: 100, ActorName: "user100",
				Type: activity.TypeMilestoneCompleted,
				Payload: activity.Payload{
					"milestoneId": "20", "title": "first delivery",
					"ownerId": "100", "assignedFreelancerId": "200",
				},
			},
			Timestamp: types.CurrentTimestamp(),
		})

		notifications := loadAll()
		Expect(len(notifications)).To(Equal(1))
		Expect(notifications[0].UserID).To(Equal(types.ID(200)))
		Expect(notifications[0].Type).To(Equal(notification.TypeMilestoneCompleted))
		Expect(notifications[0].MilestoneID).To(Equal(types.ID(20)))
	})
})

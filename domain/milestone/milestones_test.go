package milestone_test

import (
	"log"

	"gigmarket/activity"
	"gigmarket/bizerror"
	"gigmarket/domain"
	"gigmarket/domain/milestone"
	"gigmarket/testinfra"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("MilestoneManager", func() {
	var (
		milestoneManager *milestone.MilestoneManager
		testDatabase     *testinfra.TestDatabase

		ownerSec = testinfra.BuildSecCtx(100, "client")
		otherSec = testinfra.BuildSecCtx(300, "freelancer")
	)
	BeforeEach(func() {
		testDatabase = testinfra.StartMysqlTestDatabase("gigmarket")
		err := testDatabase.DS.GormDB().AutoMigrate(
			&domain.Project{}, &domain.Milestone{}, &activity.Record{}).Error
		if err != nil {
			log.Fatalf("database migration failed %v\n", err)
		}
		milestoneManager = milestone.NewMilestoneManager(testDatabase.DS)
	})
	AfterEach(func() {
		testinfra.StopMysqlTestDatabase(testDatabase)
	})

	seedProject := func(stateName string) *domain.Project {
		project := &domain.Project{
			ID: 1, Title: "test project", Description: "...",
			OwnerID: ownerSec.Identity.ID, OwnerName: ownerSec.Identity.Nickname,
			StateName: stateName, Budget: 1000, MinimumBid: 100,
			AssignedFreelancerID: otherSec.Identity.ID,
			CreateTime:           types.CurrentTimestamp(),
		}
		Expect(testDatabase.DS.GormDB().Create(project).Error).To(BeNil())
		return project
	}

	Describe("CreateMilestone", func() {
		It("should create a pending milestone with a milestone_created activity", func() {
			seedProject(domain.StateInProgress.Name)

			created, err := milestoneManager.CreateMilestone(&domain.MilestoneCreation{
				ProjectID: 1, Title: "first delivery", Amount: 300, OrderIndex: 1}, ownerSec)
			Expect(err).To(BeNil())
			Expect(created.ID).ToNot(BeZero())
			Expect(created.StateName).To(Equal(domain.MilestoneStatePending))
			Expect(created.CompleteTime.Time().IsZero()).To(BeTrue())

			var records []activity.Record
			Expect(testDatabase.DS.GormDB().Find(&records).Error).To(BeNil())
			Expect(len(records)).To(Equal(1))
			Expect(records[0].Type).To(Equal(activity.TypeMilestoneCreated))
		})

		It("should refuse milestones on finished projects", func() {
			seedProject(domain.StateCompleted.Name)

			created, err := milestoneManager.CreateMilestone(&domain.MilestoneCreation{
				ProjectID: 1, Title: "too late", Amount: 10}, ownerSec)
			Expect(created).To(BeNil())
			Expect(err).To(Equal(bizerror.ErrInvalidState))
		})

		It("should forbid non-owners", func() {
			seedProject(domain.StateInProgress.Name)

			created, err := milestoneManager.CreateMilestone(&domain.MilestoneCreation{
				ProjectID: 1, Title: "x", Amount: 10}, otherSec)
			Expect(created).To(BeNil())
			Expect(err).To(Equal(bizerror.ErrForbidden))
		})
	})

	Describe("QueryMilestones", func() {
		It("should list milestones in order index sequence", func() {
			seedProject(domain.StateInProgress.Name)
			_, err := milestoneManager.CreateMilestone(&domain.MilestoneCreation{
				ProjectID: 1, Title: "second", Amount: 200, OrderIndex: 2}, ownerSec)
			Expect(err).To(BeNil())
			_, err = milestoneManager.CreateMilestone(&domain.MilestoneCreation{
				ProjectID: 1, Title: "first", Amount: 100, OrderIndex: 1}, ownerSec)
			Expect(err).To(BeNil())

			milestones, err := milestoneManager.QueryMilestones(1, ownerSec)
			Expect(err).To(BeNil())
			Expect(len(*milestones)).To(Equal(2))
			Expect((*milestones)[0].Title).To(Equal("first"))
			Expect((*milestones)[1].Title).To(Equal("second"))
		})
	})

	Describe("UpdateMilestone", func() {
		It("should update fields of an unpaid milestone", func() {
			seedProject(domain.StateInProgress.Name)
			created, err := milestoneManager.CreateMilestone(&domain.MilestoneCreation{
				ProjectID: 1, Title: "draft", Amount: 100, OrderIndex: 1}, ownerSec)
			Expect(err).To(BeNil())

			updated, err := milestoneManager.UpdateMilestone(created.ID, &domain.MilestoneUpdating{
				Title: "final", Amount: 150, OrderIndex: 2}, ownerSec)
			Expect(err).To(BeNil())
			Expect(updated.Title).To(Equal("final"))
			Expect(updated.Amount).To(Equal(float64(150)))
			Expect(updated.OrderIndex).To(Equal(2))
		})

		It("should refuse to touch a paid milestone", func() {
			seedProject(domain.StateInProgress.Name)
			created, err := milestoneManager.CreateMilestone(&domain.MilestoneCreation{
				ProjectID: 1, Title: "draft", Amount: 100}, ownerSec)
			Expect(err).To(BeNil())
			Expect(testDatabase.DS.GormDB().Model(&domain.Milestone{}).
				Where("id = ?", created.ID).
				Update("state_name", domain.MilestoneStatePaid).Error).To(BeNil())

			updated, err := milestoneManager.UpdateMilestone(created.ID, &domain.MilestoneUpdating{
				Title: "x", Amount: 1}, ownerSec)
			Expect(updated).To(BeNil())
			Expect(err).To(Equal(bizerror.ErrInvalidState))
		})
	})

	Describe("CompleteMilestone", func() {
		It("should complete a pending milestone and stamp the time", func() {
			seedProject(domain.StateInProgress.Name)
			created, err := milestoneManager.CreateMilestone(&domain.MilestoneCreation{
				ProjectID: 1, Title: "first delivery", Amount: 300}, ownerSec)
			Expect(err).To(BeNil())

			completed, err := milestoneManager.CompleteMilestone(created.ID, ownerSec)
			Expect(err).To(BeNil())
			Expect(completed.StateName).To(Equal(domain.MilestoneStateCompleted))
			Expect(completed.CompleteTime.Time().IsZero()).To(BeFalse())

			var records []activity.Record
			Expect(testDatabase.DS.GormDB().
				Where("type = ?", activity.TypeMilestoneCompleted).Find(&records).Error).To(BeNil())
			Expect(len(records)).To(Equal(1))
		})

		It("should fail on an already completed milestone", func() {
			seedProject(domain.StateInProgress.Name)
			created, err := milestoneManager.CreateMilestone(&domain.MilestoneCreation{
				ProjectID: 1, Title: "first delivery", Amount: 300}, ownerSec)
			Expect(err).To(BeNil())
			_, err = milestoneManager.CompleteMilestone(created.ID, ownerSec)
			Expect(err).To(BeNil())

			completed, err := milestoneManager.CompleteMilestone(created.ID, ownerSec)
			Expect(completed).To(BeNil())
			Expect(err).To(Equal(bizerror.ErrInvalidState))
		})
	})

	Describe("MarkMilestonePaid", func() {
		It("should pay a completed milestone with a milestone_paid activity", func() {
			seedProject(domain.StateInProgress.Name)
			created, err := milestoneManager.CreateMilestone(&domain.MilestoneCreation{
				ProjectID: 1, Title: "first delivery", Amount: 300}, ownerSec)
			Expect(err).To(BeNil())
			_, err = milestoneManager.CompleteMilestone(created.ID, ownerSec)
			Expect(err).To(BeNil())

			paid, err := milestoneManager.MarkMilestonePaid(created.ID, ownerSec)
			Expect(err).To(BeNil())
			Expect(paid.StateName).To(Equal(domain.MilestoneStatePaid))

			var records []activity.Record
			Expect(testDatabase.DS.GormDB().
				Where("type = ?", activity.TypeMilestonePaid).Find(&records).Error).To(BeNil())
			Expect(len(records)).To(Equal(1))
			Expect(records[0].Payload["milestoneId"]).To(Equal(created.ID.String()))
		})

		It("should refuse milestones which are not completed yet", func() {
			seedProject(domain.StateInProgress.Name)
			created, err := milestoneManager.CreateMilestone(&domain.MilestoneCreation{
				ProjectID: 1, Title: "first delivery", Amount: 300}, ownerSec)
			Expect(err).To(BeNil())

			paid, err := milestoneManager.MarkMilestonePaid(created.ID, ownerSec)
			Expect(paid).To(BeNil())
			Expect(err).To(Equal(bizerror.ErrInvalidState))
		})

		It("should fail on a second payment", func() {
			seedProject(domain.StateInProgress.Name)
			created, err := milestoneManager.CreateMilestone(&domain.MilestoneCreation{
				ProjectID: 1, Title: "first delivery", Amount: 300}, ownerSec)
			Expect(err).To(BeNil())
			_, err = milestoneManager.CompleteMilestone(created.ID, ownerSec)
			Expect(err).To(BeNil())
			_, err = milestoneManager.MarkMilestonePaid(created.ID, ownerSec)
			Expect(err).To(BeNil())

			paid, err := milestoneManager.MarkMilestonePaid(created.ID, ownerSec)
			Expect(paid).To(BeNil())
			Expect(err).To(Equal(bizerror.ErrInvalidState))
		})

		It("should forbid everyone but the project owner", func() {
			seedProject(domain.StateInProgress.Name)
			created, err := milestoneManager.CreateMilestone(&domain.MilestoneCreation{
				ProjectID: 1, Title: "first delivery", Amount: 300}, ownerSec)
			Expect(err).To(BeNil())
			_, err = milestoneManager.CompleteMilestone(created.ID, ownerSec)
			Expect(err).To(BeNil())

			paid, err := milestoneManager.MarkMilestonePaid(created.ID, otherSec)
			Expect(paid).To(BeNil())
			Expect(err).To(Equal(bizerror.ErrForbidden))

			paid, err = milestoneManager.MarkMilestonePaid(created.ID, testinfra.BuildSecCtx(1, "admin"))
			Expect(paid).To(BeNil())
			Expect(err).To(Equal(bizerror.ErrForbidden))
		})
	})

	Describe("DeleteMilestone", func() {
		It("should delete by the owner and forbid strangers", func() {
			seedProject(domain.StateInProgress.Name)
			created, err := milestoneManager.CreateMilestone(&domain.MilestoneCreation{
				ProjectID: 1, Title: "first delivery", Amount: 300}, ownerSec)
			Expect(err).To(BeNil())

			Expect(milestoneManager.DeleteMilestone(created.ID, otherSec)).To(Equal(bizerror.ErrForbidden))
			Expect(milestoneManager.DeleteMilestone(created.ID, ownerSec)).To(BeNil())

			var count uint64
			Expect(testDatabase.DS.GormDB().Model(&domain.Milestone{}).Count(&count).Error).To(BeNil())
			Expect(count).To(BeZero())
		})
	})
})

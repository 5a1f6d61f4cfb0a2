package sprint_test

import (
	"log"
	"time"

	"gigmarket/bizerror"
	"gigmarket/domain"
	"gigmarket/domain/sprint"
	"gigmarket/testinfra"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("SprintManager", func() {
	var (
		sprintManager *sprint.SprintManager
		testDatabase  *testinfra.TestDatabase

		ownerSec      = testinfra.BuildSecCtx(100, "client")
		freelancerSec = testinfra.BuildSecCtx(300, "freelancer")
		strangerSec   = testinfra.BuildSecCtx(400, "freelancer")
	)
	BeforeEach(func() {
		testDatabase = testinfra.StartMysqlTestDatabase("gigmarket")
		err := testDatabase.DS.GormDB().AutoMigrate(
			&domain.Project{}, &domain.Sprint{}, &domain.Task{}).Error
		if err != nil {
			log.Fatalf("database migration failed %v\n", err)
		}
		sprintManager = sprint.NewSprintManager(testDatabase.DS)
	})
	AfterEach(func() {
		testinfra.StopMysqlTestDatabase(testDatabase)
	})

	seedProject := func() *domain.Project {
		project := &domain.Project{
			ID: 1, Title: "test project", Description: "...",
			OwnerID: ownerSec.Identity.ID, OwnerName: ownerSec.Identity.Nickname,
			StateName: domain.StateInProgress.Name, Budget: 1000, MinimumBid: 100,
			AssignedFreelancerID: freelancerSec.Identity.ID,
			CreateTime:           types.CurrentTimestamp(),
		}
		Expect(testDatabase.DS.GormDB().Create(project).Error).To(BeNil())
		return project
	}

	Describe("CreateSprint", func() {
		It("should create a planning sprint for the owner", func() {
			seedProject()

			created, err := sprintManager.CreateSprint(&domain.SprintCreation{
				ProjectID: 1, Title: "sprint 1",
				StartDate: types.TimestampOfDate(2026, 1, 5, 0, 0, 0, 0, time.Local),
				EndDate:   types.TimestampOfDate(2026, 1, 19, 0, 0, 0, 0, time.Local),
			}, ownerSec)
			Expect(err).To(BeNil())
			Expect(created.ID).ToNot(BeZero())
			Expect(created.StateName).To(Equal(domain.SprintStatePlanning))
			Expect(created.Features).To(Equal(domain.SprintFeatures{}))
		})

		It("should admit the assigned freelancer and refuse strangers", func() {
			seedProject()

			_, err := sprintManager.CreateSprint(&domain.SprintCreation{
				ProjectID: 1, Title: "by freelancer",
				StartDate: types.CurrentTimestamp(), EndDate: types.CurrentTimestamp(),
			}, freelancerSec)
			Expect(err).To(BeNil())

			created, err := sprintManager.CreateSprint(&domain.SprintCreation{
				ProjectID: 1, Title: "by stranger",
				StartDate: types.CurrentTimestamp(), EndDate: types.CurrentTimestamp(),
			}, strangerSec)
			Expect(created).To(BeNil())
			Expect(err).To(Equal(bizerror.ErrForbidden))
		})
	})

	Describe("QuerySprints", func() {
		It("should list sprints of a project by start date", func() {
			seedProject()
			_, err := sprintManager.CreateSprint(&domain.SprintCreation{
				ProjectID: 1, Title: "second",
				StartDate: types.TimestampOfDate(2026, 2, 2, 0, 0, 0, 0, time.Local),
				EndDate:   types.TimestampOfDate(2026, 2, 16, 0, 0, 0, 0, time.Local),
			}, ownerSec)
			Expect(err).To(BeNil())
			_, err = sprintManager.CreateSprint(&domain.SprintCreation{
				ProjectID: 1, Title: "first",
				StartDate: types.TimestampOfDate(2026, 1, 5, 0, 0, 0, 0, time.Local),
				EndDate:   types.TimestampOfDate(2026, 1, 19, 0, 0, 0, 0, time.Local),
			}, ownerSec)
			Expect(err).To(BeNil())

			sprints, err := sprintManager.QuerySprints(1, ownerSec)
			Expect(err).To(BeNil())
			Expect(len(*sprints)).To(Equal(2))
			Expect((*sprints)[0].Title).To(Equal("first"))
			Expect((*sprints)[1].Title).To(Equal("second"))
		})
	})

	Describe("UpdateSprint", func() {
		It("should update fields and the state", func() {
			seedProject()
			created, err := sprintManager.CreateSprint(&domain.SprintCreation{
				ProjectID: 1, Title: "draft",
				StartDate: types.CurrentTimestamp(), EndDate: types.CurrentTimestamp(),
			}, ownerSec)
			Expect(err).To(BeNil())

			updated, err := sprintManager.UpdateSprint(created.ID, &domain.SprintUpdating{
				Title: "sprint 1", Description: "kickoff",
				Features:  domain.SprintFeatures{{Title: "login", StateName: "PLANNED"}},
				StartDate: created.StartDate, EndDate: created.EndDate,
				StateName: domain.SprintStateInProgress,
			}, ownerSec)
			Expect(err).To(BeNil())
			Expect(updated.Title).To(Equal("sprint 1"))
			Expect(updated.StateName).To(Equal(domain.SprintStateInProgress))
			Expect(len(updated.Features)).To(Equal(1))
			Expect(updated.Features[0].Title).To(Equal("login"))
		})
	})

	Describe("DeleteSprint", func() {
		It("should delete the sprint with its tasks, keeping the backlog", func() {
			seedProject()
			created, err := sprintManager.CreateSprint(&domain.SprintCreation{
				ProjectID: 1, Title: "sprint 1",
				StartDate: types.CurrentTimestamp(), EndDate: types.CurrentTimestamp(),
			}, ownerSec)
			Expect(err).To(BeNil())
			db := testDatabase.DS.GormDB()
			Expect(db.Create(&domain.Task{ID: 10, ProjectID: 1, SprintID: created.ID,
				Title: "scheduled", StateName: domain.TaskStateTodo,
				Priority: domain.TaskPriorityMedium, CreateTime: types.CurrentTimestamp()}).Error).To(BeNil())
			Expect(db.Create(&domain.Task{ID: 11, ProjectID: 1,
				Title: "backlog", StateName: domain.TaskStateTodo,
				Priority: domain.TaskPriorityMedium, CreateTime: types.CurrentTimestamp()}).Error).To(BeNil())

			Expect(sprintManager.DeleteSprint(created.ID, ownerSec)).To(BeNil())

			var tasks []domain.Task
			Expect(db.Find(&tasks).Error).To(BeNil())
			Expect(len(tasks)).To(Equal(1))
			Expect(tasks[0].Title).To(Equal("backlog"))
		})
	})

	Describe("CreateSprintPlan", func() {
		It("should replace the planning and schedule tasks into sprints by title", func() {
			seedProject()
			stale, err := sprintManager.CreateSprint(&domain.SprintCreation{
				ProjectID: 1, Title: "stale",
				StartDate: types.CurrentTimestamp(), EndDate: types.CurrentTimestamp(),
			}, ownerSec)
			Expect(err).To(BeNil())

			detail, err := sprintManager.CreateSprintPlan(&domain.SprintPlan{
				ProjectID: 1,
				Sprints: []domain.PlannedSprint{
					{Title: "sprint 1",
						StartDate: types.TimestampOfDate(2026, 1, 5, 0, 0, 0, 0, time.Local),
						EndDate:   types.TimestampOfDate(2026, 1, 19, 0, 0, 0, 0, time.Local)},
					{Title: "sprint 2",
						StartDate: types.TimestampOfDate(2026, 1, 19, 0, 0, 0, 0, time.Local),
						EndDate:   types.TimestampOfDate(2026, 2, 2, 0, 0, 0, 0, time.Local)},
				},
				Tasks: []domain.PlannedTask{
					{SprintTitle: "sprint 1", Title: "login page", Priority: domain.TaskPriorityHigh},
					{SprintTitle: "sprint 2", Title: "payment flow"},
					{SprintTitle: "unknown", Title: "stretch goal"},
				},
			}, freelancerSec)
			Expect(err).To(BeNil())
			Expect(len(detail.Sprints)).To(Equal(2))
			Expect(len(detail.Tasks)).To(Equal(3))

			Expect(detail.Tasks[0].SprintID).To(Equal(detail.Sprints[0].ID))
			Expect(detail.Tasks[0].Priority).To(Equal(domain.TaskPriorityHigh))
			Expect(detail.Tasks[0].OrderIndex).To(Equal(0))
			Expect(detail.Tasks[1].SprintID).To(Equal(detail.Sprints[1].ID))
			Expect(detail.Tasks[1].Priority).To(Equal(domain.TaskPriorityMedium))
			// unknown sprint titles land in the backlog
			Expect(detail.Tasks[2].SprintID).To(BeZero())

			var count uint64
			Expect(testDatabase.DS.GormDB().Model(&domain.Sprint{}).
				Where("id = ?", stale.ID).Count(&count).Error).To(BeNil())
			Expect(count).To(BeZero())
		})
	})

	Describe("SprintPlanDetail", func() {
		It("should return the sprints and tasks of the project", func() {
			seedProject()
			_, err := sprintManager.CreateSprintPlan(&domain.SprintPlan{
				ProjectID: 1,
				Sprints: []domain.PlannedSprint{{Title: "sprint 1",
					StartDate: types.CurrentTimestamp(), EndDate: types.CurrentTimestamp()}},
				Tasks: []domain.PlannedTask{{SprintTitle: "sprint 1", Title: "t1"}},
			}, ownerSec)
			Expect(err).To(BeNil())

			detail, err := sprintManager.SprintPlanDetail(1, ownerSec)
			Expect(err).To(BeNil())
			Expect(len(detail.Sprints)).To(Equal(1))
			Expect(detail.Sprints[0].Title).To(Equal("sprint 1"))
			Expect(len(detail.Tasks)).To(Equal(1))
			Expect(detail.Tasks[0].SprintID).To(Equal(detail.Sprints[0].ID))
		})
	})
})

package servehttp_test

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"gigmarket/activity"
	"gigmarket/bizerror"
	"gigmarket/domain"
	"gigmarket/servehttp"
	"gigmarket/session"
	"gigmarket/testinfra"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("ProjectHandler", func() {
	var (
		router         *gin.Engine
		projectManager *projectManagerMock

		demoTime        types.Timestamp
		timeString      string
		demoSecCtx      = testinfra.BuildSecCtx(100, "client")
		demoProject     domain.Project
		demoProjectJSON string
	)

	BeforeEach(func() {
		router = gin.Default()
		router.Use(bizerror.ErrorHandling())
		projectManager = &projectManagerMock{}
		servehttp.RegisterProjectHandler(router, projectManager, testinfra.InjectSecCtx(demoSecCtx))

		demoTime = types.TimestampOfDate(2021, 1, 1, 12, 0, 0, 0, time.Local)
		timeBytes, err := demoTime.Time().MarshalJSON()
		Expect(err).To(BeNil())
		timeString = strings.Trim(string(timeBytes), `"`)

		demoProject = domain.Project{ID: 1, Title: "build a website", Description: "five pages",
			OwnerID: 100, OwnerName: "user100", StateName: domain.StatePending.Name,
			Budget: 1000, MinimumBid: 100, CreateTime: demoTime}
		demoProjectJSON = `{"id":"1","title":"build a website","description":"five pages",` +
			`"ownerId":"100","ownerName":"user100","stateName":"PENDING","budget":1000,` +
			`"minimumBid":100,"assignedFreelancerId":"0","createTime":"` + timeString + `"}`
	})

	Describe("handleCreate", func() {
		It("should be able to handle bind error", func() {
			req := httptest.NewRequest(http.MethodPost, "/v1/projects", bytes.NewReader([]byte(`bad json`)))
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(body).To(MatchJSON(`{"code":"common.bad_param","message":"invalid character 'b' looking for beginning of value","data":null}`))
		})
		It("should be able to handle validate error", func() {
			req := httptest.NewRequest(http.MethodPost, "/v1/projects", bytes.NewReader([]byte(
				`{"title":"x","description":"y","budget":100,"minimumBid":500}`)))
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(body).To(MatchJSON(`{"code":"common.bad_param","message":"Key: 'ProjectCreation.MinimumBid' Error:Field validation for 'MinimumBid' failed on the 'ltefield' tag","data":null}`))
		})
		It("should be able to create a project", func() {
			projectManager.CreateProjectFunc = func(c *domain.ProjectCreation, sec *session.Context) (*domain.Project, error) {
				Expect(c.Title).To(Equal("build a website"))
				Expect(sec).To(Equal(demoSecCtx))
				return &demoProject, nil
			}
			req := httptest.NewRequest(http.MethodPost, "/v1/projects", bytes.NewReader([]byte(
				`{"title":"build a website","description":"five pages","budget":1000,"minimumBid":100}`)))
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusCreated))
			Expect(body).To(MatchJSON(demoProjectJSON))
		})
	})

	Describe("handleQuery", func() {
		It("should bind query parameters", func() {
			projectManager.QueryProjectsFunc = func(query *domain.ProjectQuery, sec *session.Context) (*[]domain.Project, error) {
				Expect(query.StateName).To(Equal("OPEN"))
				Expect(query.OwnerID).To(Equal(types.ID(100)))
				Expect(query.Page).To(Equal(2))
				return &[]domain.Project{demoProject}, nil
			}
			req := httptest.NewRequest(http.MethodGet, "/v1/projects?state=OPEN&ownerId=100&page=2", nil)
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(MatchJSON(`{"list":[` + demoProjectJSON + `],"total":1}`))
		})
	})

	Describe("handleDetail", func() {
		It("should respond not found for a missing project", func() {
			projectManager.ProjectDetailFunc = func(id types.ID, sec *session.Context) (*domain.ProjectDetail, error) {
				return nil, bizerror.ErrNotFound
			}
			req := httptest.NewRequest(http.MethodGet, "/v1/projects/404", nil)
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusNotFound))
			Expect(body).To(MatchJSON(`{"code":"common.record_not_found","message":"record not found","data":null}`))
		})
		It("should aggregate bids and milestones", func() {
			projectManager.ProjectDetailFunc = func(id types.ID, sec *session.Context) (*domain.ProjectDetail, error) {
				Expect(id).To(Equal(types.ID(1)))
				return &domain.ProjectDetail{
					Project: demoProject,
					State:   domain.StatePending,
					Bids: []domain.Bid{{ID: 10, ProjectID: 1, FreelancerID: 200, FreelancerName: "user200",
						Amount: 150, Proposal: "p", StateName: domain.BidStatePending, CreateTime: demoTime}},
					Milestones: []domain.Milestone{},
					Activities: []activity.Record{},
				}, nil
			}
			req := httptest.NewRequest(http.MethodGet, "/v1/projects/1", nil)
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(MatchJSON(`{"id":"1","title":"build a website","description":"five pages",` +
				`"ownerId":"100","ownerName":"user100","stateName":"PENDING","budget":1000,` +
				`"minimumBid":100,"assignedFreelancerId":"0","createTime":"` + timeString + `",` +
				`"state":{"name":"PENDING","category":0},` +
				`"bids":[{"id":"10","projectId":"1","freelancerId":"200","freelancerName":"user200",` +
				`"amount":150,"proposal":"p","stateName":"PENDING","createTime":"` + timeString + `"}],` +
				`"milestones":[],"activities":[]}`))
		})
	})

	Describe("handleUpdate", func() {
		It("should be able to update a project", func() {
			projectManager.UpdateProjectFunc = func(id types.ID, u *domain.ProjectUpdating, sec *session.Context) (*domain.Project, error) {
				Expect(id).To(Equal(types.ID(1)))
				Expect(u.Title).To(Equal("revised"))
				updated := demoProject
				updated.Title = "revised"
				return &updated, nil
			}
			req := httptest.NewRequest(http.MethodPut, "/v1/projects/1", bytes.NewReader([]byte(
				`{"title":"revised","description":"five pages","budget":1000,"minimumBid":100}`)))
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(MatchJSON(strings.Replace(demoProjectJSON, "build a website", "revised", 1)))
		})
	})

	Describe("transition actions", func() {
		It("should route each action to its manager call", func() {
			invocations := []string{}
			projectManager.ApproveProjectFunc = func(id types.ID, sec *session.Context) error {
				invocations = append(invocations, "approve")
				return nil
			}
			projectManager.RejectProjectFunc = func(id types.ID, sec *session.Context) error {
				invocations = append(invocations, "reject")
				return nil
			}
			projectManager.CompleteProjectFunc = func(id types.ID, sec *session.Context) error {
				invocations = append(invocations, "complete")
				return nil
			}
			projectManager.CancelProjectFunc = func(id types.ID, sec *session.Context) error {
				invocations = append(invocations, "cancel")
				return nil
			}

			for _, action := range []string{"approve", "reject", "complete", "cancel"} {
				req := httptest.NewRequest(http.MethodPost, "/v1/projects/1/"+action, nil)
				status, _, _ := testinfra.ExecuteRequest(req, router)
				Expect(status).To(Equal(http.StatusOK))
			}
			Expect(invocations).To(Equal([]string{"approve", "reject", "complete", "cancel"}))
		})
		It("should be able to handle service error", func() {
			projectManager.ApproveProjectFunc = func(id types.ID, sec *session.Context) error {
				return errors.New("a mocked error")
			}
			req := httptest.NewRequest(http.MethodPost, "/v1/projects/1/approve", nil)
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusInternalServerError))
			Expect(body).To(MatchJSON(`{"code":"common.internal_server_error","message":"a mocked error","data":null}`))
		})
	})

	Describe("handleDelete", func() {
		It("should be able to delete a project", func() {
			projectManager.DeleteProjectFunc = func(id types.ID, sec *session.Context) error {
				Expect(id).To(Equal(types.ID(1)))
				return nil
			}
			req := httptest.NewRequest(http.MethodDelete, "/v1/projects/1", nil)
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusNoContent))
			Expect(body).To(BeEmpty())
		})
	})
})

type projectManagerMock struct {
	CreateProjectFunc   func(c *domain.ProjectCreation, sec *session.Context) (*domain.Project, error)
	QueryProjectsFunc   func(query *domain.ProjectQuery, sec *session.Context) (*[]domain.Project, error)
	ProjectDetailFunc   func(id types.ID, sec *session.Context) (*domain.ProjectDetail, error)
	UpdateProjectFunc   func(id types.ID, u *domain.ProjectUpdating, sec *session.Context) (*domain.Project, error)
	ApproveProjectFunc  func(id types.ID, sec *session.Context) error
	RejectProjectFunc   func(id types.ID, sec *session.Context) error
	CompleteProjectFunc func(id types.ID, sec *session.Context) error
	CancelProjectFunc   func(id types.ID, sec *session.Context) error
	DeleteProjectFunc   func(id types.ID, sec *session.Context) error
}

func (m *projectManagerMock) CreateProject(c *domain.ProjectCreation, sec *session.Context) (*domain.Project, error) {
	return m.CreateProjectFunc(c, sec)
}
func (m *projectManagerMock) QueryProjects(query *domain.ProjectQuery, sec *session.Context) (*[]domain.Project, error) {
	return m.QueryProjectsFunc(query, sec)
}
func (m *projectManagerMock) ProjectDetail(id types.ID, sec *session.Context) (*domain.ProjectDetail, error) {
	return m.ProjectDetailFunc(id, sec)
}
func (m *projectManagerMock) UpdateProject(id types.ID, u *domain.ProjectUpdating, sec *session.Context) (*domain.Project, error) {
	return m.UpdateProjectFunc(id, u, sec)
}
func (m *projectManagerMock) ApproveProject(id types.ID, sec *session.Context) error {
	return m.ApproveProjectFunc(id, sec)
}
func (m *projectManagerMock) RejectProject(id types.ID, sec *session.Context) error {
	return m.RejectProjectFunc(id, sec)
}
func (m *projectManagerMock) CompleteProject(id types.ID, sec *session.Context) error {
	return m.CompleteProjectFunc(id, sec)
}
func (m *projectManagerMock) CancelProject(id types.ID, sec *session.Context) error {
	return m.CancelProjectFunc(id, sec)
}
func (m *projectManagerMock) DeleteProject(id types.ID, sec *session.Context) error {
	return m.DeleteProjectFunc(id, sec)
}

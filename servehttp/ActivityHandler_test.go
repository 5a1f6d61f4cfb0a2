package servehttp_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"gigmarket/activity"
	"gigmarket/bizerror"
	"gigmarket/servehttp"
	"gigmarket/session"
	"gigmarket/testinfra"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("ActivityHandler", func() {
	var (
		router        *gin.Engine
		recordManager *recordManagerMock
	)

	BeforeEach(func() {
		router = gin.Default()
		router.Use(bizerror.ErrorHandling())
		recordManager = &recordManagerMock{}
		servehttp.RegisterActivityHandler(router, recordManager,
			testinfra.InjectSecCtx(testinfra.BuildSecCtx(100, "client")))
	})

	Describe("handleQuery", func() {
		It("should bind the query and respond the records", func() {
			demoTime := types.TimestampOfDate(2021, 1, 1, 12, 0, 0, 0, time.Local)
			timeBytes, err := demoTime.Time().MarshalJSON()
			Expect(err).To(BeNil())
			timeString := strings.Trim(string(timeBytes), `"`)

			recordManager.QueryRecordsFunc = func(query *activity.RecordQuery, sec *session.Context) (*[]activity.Record, error) {
				Expect(query.ProjectID).To(Equal(types.ID(1)))
				Expect(query.Page).To(Equal(2))
				return &[]activity.Record{{
					ID: 50,
					Activity: activity.Activity{ProjectID: 1, ActorID: 100, ActorName: "user100",
						Type: activity.TypeBidPlaced, Payload: activity.Payload{"bidId": "10"}},
					Timestamp: demoTime,
				}}, nil
			}

			req := httptest.NewRequest(http.MethodGet, "/v1/activities?projectId=1&page=2", nil)
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(MatchJSON(`{"list":[{"id":"50","projectId":"1","actorId":"100",` +
				`"actorName":"user100","type":"bid_placed","payload":{"bidId":"10"},` +
				`"timestamp":"` + timeString + `"}],"total":1}`))
		})
	})
})

type recordManagerMock struct {
	QueryRecordsFunc func(query *activity.RecordQuery, sec *session.Context) (*[]activity.Record, error)
}

func (m *recordManagerMock) QueryRecords(query *activity.RecordQuery, sec *session.Context) (*[]activity.Record, error) {
	return m.QueryRecordsFunc(query, sec)
}

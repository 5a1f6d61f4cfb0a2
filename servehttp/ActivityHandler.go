package servehttp

import (
	"net/http"

	"gigmarket/activity"
	"gigmarket/common"
	"gigmarket/session"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

func RegisterActivityHandler(r *gin.Engine, m activity.RecordManagerTraits, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/activities", middleWares...)

	handler := &activityHandler{recordManager: m}

	g.GET("", handler.handleQuery)
}

type activityHandler struct {
	recordManager activity.RecordManagerTraits
}

func (h *activityHandler) handleQuery(c *gin.Context) {
	query := activity.RecordQuery{}
	_ = c.MustBindWith(&query, binding.Query)

	records, err := h.recordManager.QueryRecords(&query, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &common.PagedBody{List: records, Total: uint64(len(*records))})
}

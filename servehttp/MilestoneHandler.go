package servehttp

import (
	"errors"
	"net/http"

	"gigmarket/common"
	"gigmarket/domain"
	"gigmarket/domain/milestone"
	"gigmarket/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func RegisterMilestoneHandler(r *gin.Engine, m milestone.MilestoneManagerTraits, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/milestones", middleWares...)

	handler := &milestoneHandler{milestoneManager: m, validator: validator.New()}

	g.GET("", handler.handleQuery)
	g.POST("", handler.handleCreate)
	g.PUT(":id", handler.handleUpdate)
	g.POST(":id/complete", handler.handleComplete)
	g.POST(":id/mark-paid", handler.handleMarkPaid)
	g.DELETE(":id", handler.handleDelete)
}

type milestoneHandler struct {
	milestoneManager milestone.MilestoneManagerTraits
	validator        *validator.Validate
}

func (h *milestoneHandler) handleCreate(c *gin.Context) {
	creation := domain.MilestoneCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(creation); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	created, err := h.milestoneManager.CreateMilestone(&creation, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, created)
}

func (h *milestoneHandler) handleQuery(c *gin.Context) {
	projectId, err := types.ParseID(c.Query("projectId"))
	if err != nil {
		panic(&common.ErrBadParam{Cause: errors.New("invalid projectId '" + c.Query("projectId") + "'")})
	}

	milestones, err := h.milestoneManager.QueryMilestones(projectId, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &common.PagedBody{List: milestones, Total: uint64(len(*milestones))})
}

func (h *milestoneHandler) handleUpdate(c *gin.Context) {
	parsedId := parseIdParam(c, "id")

	updating := domain.MilestoneUpdating{}
	err := c.ShouldBindBodyWith(&updating, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(updating); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	updated, err := h.milestoneManager.UpdateMilestone(parsedId, &updating, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, updated)
}

func (h *milestoneHandler) handleComplete(c *gin.Context) {
	completed, err := h.milestoneManager.CompleteMilestone(parseIdParam(c, "id"), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, completed)
}

func (h *milestoneHandler) handleMarkPaid(c *gin.Context) {
	paid, err := h.milestoneManager.MarkMilestonePaid(parseIdParam(c, "id"), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, paid)
}

func (h *milestoneHandler) handleDelete(c *gin.Context) {
	err := h.milestoneManager.DeleteMilestone(parseIdParam(c, "id"), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusNoContent, nil)
}

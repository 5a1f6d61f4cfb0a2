package servehttp

import (
	"errors"
	"net/http"

	"gigmarket/common"
	"gigmarket/domain"
	"gigmarket/domain/sprint"
	"gigmarket/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func RegisterSprintHandler(r *gin.Engine, m sprint.SprintManagerTraits, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/sprints", middleWares...)

	handler := &sprintHandler{sprintManager: m, validator: validator.New()}

	g.GET("", handler.handleQuery)
	g.POST("", handler.handleCreate)
	g.GET(":id", handler.handleDetail)
	g.PUT(":id", handler.handleUpdate)
	g.DELETE(":id", handler.handleDelete)

	p := r.Group("/v1/sprint-plans", middleWares...)
	p.POST("", handler.handleCreatePlan)
	p.GET("", handler.handlePlanDetail)
}

type sprintHandler struct {
	sprintManager sprint.SprintManagerTraits
	validator     *validator.Validate
}

func (h *sprintHandler) handleCreate(c *gin.Context) {
	creation := domain.SprintCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(creation); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	created, err := h.sprintManager.CreateSprint(&creation, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, created)
}

func (h *sprintHandler) handleQuery(c *gin.Context) {
	projectId := parseProjectIdQuery(c)

	sprints, err := h.sprintManager.QuerySprints(projectId, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &common.PagedBody{List: sprints, Total: uint64(len(*sprints))})
}

func (h *sprintHandler) handleDetail(c *gin.Context) {
	detail, err := h.sprintManager.SprintDetail(parseIdParam(c, "id"), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func (h *sprintHandler) handleUpdate(c *gin.Context) {
	parsedId := parseIdParam(c, "id")

	updating := domain.SprintUpdating{}
	err := c.ShouldBindBodyWith(&updating, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(updating); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	updated, err := h.sprintManager.UpdateSprint(parsedId, &updating, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, updated)
}

func (h *sprintHandler) handleDelete(c *gin.Context) {
	err := h.sprintManager.DeleteSprint(parseIdParam(c, "id"), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusNoContent, nil)
}

func (h *sprintHandler) handleCreatePlan(c *gin.Context) {
	plan := domain.SprintPlan{}
	err := c.ShouldBindBodyWith(&plan, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(plan); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	created, err := h.sprintManager.CreateSprintPlan(&plan, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, created)
}

func (h *sprintHandler) handlePlanDetail(c *gin.Context) {
	projectId := parseProjectIdQuery(c)

	detail, err := h.sprintManager.SprintPlanDetail(projectId, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func parseProjectIdQuery(c *gin.Context) types.ID {
	projectId, err := types.ParseID(c.Query("projectId"))
	if err != nil {
		panic(&common.ErrBadParam{Cause: errors.New("invalid projectId '" + c.Query("projectId") + "'")})
	}
	return projectId
}

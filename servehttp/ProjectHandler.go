package servehttp

import (
	"errors"
	"net/http"

	"gigmarket/common"
	"gigmarket/domain"
	"gigmarket/domain/project"
	"gigmarket/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func RegisterProjectHandler(r *gin.Engine, m project.ProjectManagerTraits, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/projects", middleWares...)

	handler := &projectHandler{projectManager: m, validator: validator.New()}

	g.GET("", handler.handleQuery)
	g.POST("", handler.handleCreate)
	g.GET(":id", handler.handleDetail)
	g.PUT(":id", handler.handleUpdate)
	g.DELETE(":id", handler.handleDelete)
	g.POST(":id/approve", handler.transitionAction(m.ApproveProject))
	g.POST(":id/reject", handler.transitionAction(m.RejectProject))
	g.POST(":id/complete", handler.transitionAction(m.CompleteProject))
	g.POST(":id/cancel", handler.transitionAction(m.CancelProject))
}

type projectHandler struct {
	projectManager project.ProjectManagerTraits
	validator      *validator.Validate
}

func parseIdParam(c *gin.Context, name string) types.ID {
	parsedId, err := types.ParseID(c.Param(name))
	if err != nil {
		panic(&common.ErrBadParam{Cause: errors.New("invalid id '" + c.Param(name) + "'")})
	}
	return parsedId
}

func (h *projectHandler) handleCreate(c *gin.Context) {
	creation := domain.ProjectCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(creation); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	created, err := h.projectManager.CreateProject(&creation, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, created)
}

func (h *projectHandler) handleQuery(c *gin.Context) {
	query := domain.ProjectQuery{}
	_ = c.MustBindWith(&query, binding.Query)

	projects, err := h.projectManager.QueryProjects(&query, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &common.PagedBody{List: projects, Total: uint64(len(*projects))})
}

func (h *projectHandler) handleDetail(c *gin.Context) {
	detail, err := h.projectManager.ProjectDetail(parseIdParam(c, "id"), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func (h *projectHandler) handleUpdate(c *gin.Context) {
	parsedId := parseIdParam(c, "id")

	updating := domain.ProjectUpdating{}
	err := c.ShouldBindBodyWith(&updating, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(updating); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	updated, err := h.projectManager.UpdateProject(parsedId, &updating, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, updated)
}

func (h *projectHandler) handleDelete(c *gin.Context) {
	err := h.projectManager.DeleteProject(parseIdParam(c, "id"), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusNoContent, nil)
}

func (h *projectHandler) transitionAction(action func(types.ID, *session.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := action(parseIdParam(c, "id"), session.FindSecurityContext(c)); err != nil {
			panic(err)
		}
		c.JSON(http.StatusOK, nil)
	}
}

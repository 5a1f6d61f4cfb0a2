package servehttp

import (
	"net/http"

	"gigmarket/common"
	"gigmarket/domain"
	"gigmarket/domain/sprint"
	"gigmarket/session"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func RegisterTaskHandler(r *gin.Engine, m sprint.TaskManagerTraits, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/tasks", middleWares...)

	handler := &taskHandler{taskManager: m, validator: validator.New()}

	g.GET("", handler.handleQuery)
	g.POST("", handler.handleCreate)
	g.PUT(":id", handler.handleUpdate)
	g.POST(":id/move", handler.handleMove)
	g.DELETE(":id", handler.handleDelete)
}

type taskHandler struct {
	taskManager sprint.TaskManagerTraits
	validator   *validator.Validate
}

func (h *taskHandler) handleCreate(c *gin.Context) {
	creation := domain.TaskCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(creation); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	created, err := h.taskManager.CreateTask(&creation, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, created)
}

func (h *taskHandler) handleQuery(c *gin.Context) {
	query := domain.TaskQuery{}
	_ = c.MustBindWith(&query, binding.Query)

	tasks, err := h.taskManager.QueryTasks(&query, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &common.PagedBody{List: tasks, Total: uint64(len(*tasks))})
}

func (h *taskHandler) handleUpdate(c *gin.Context) {
	parsedId := parseIdParam(c, "id")

	updating := domain.TaskUpdating{}
	err := c.ShouldBindBodyWith(&updating, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(updating); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	updated, err := h.taskManager.UpdateTask(parsedId, &updating, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, updated)
}

func (h *taskHandler) handleMove(c *gin.Context) {
	parsedId := parseIdParam(c, "id")

	move := domain.TaskMove{}
	err := c.ShouldBindBodyWith(&move, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(move); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	moved, err := h.taskManager.MoveTask(parsedId, &move, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, moved)
}

func (h *taskHandler) handleDelete(c *gin.Context) {
	err := h.taskManager.DeleteTask(parseIdParam(c, "id"), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusNoContent, nil)
}

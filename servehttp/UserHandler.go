package servehttp

import (
	"net/http"

	"gigmarket/account"
	"gigmarket/common"
	"gigmarket/session"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func RegisterUserHandler(r *gin.Engine, m account.UserManagerTraits, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/users", middleWares...)

	handler := &userHandler{userManager: m, validator: validator.New()}

	g.GET("", handler.handleQuery)
	g.POST("", handler.handleCreate)

	r.PUT("/v1/basic-auths", append(middleWares, handler.handleUpdateSecret)...)
}

type userHandler struct {
	userManager account.UserManagerTraits
	validator   *validator.Validate
}

func (h *userHandler) handleCreate(c *gin.Context) {
	creation := account.UserCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(creation); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	created, err := h.userManager.CreateUser(&creation, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, created)
}

func (h *userHandler) handleQuery(c *gin.Context) {
	users, err := h.userManager.QueryUsers(session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &common.PagedBody{List: users, Total: uint64(len(*users))})
}

func (h *userHandler) handleUpdateSecret(c *gin.Context) {
	updating := account.BasicAuthUpdating{}
	err := c.ShouldBindBodyWith(&updating, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(updating); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	if err := h.userManager.UpdateBasicAuthSecret(&updating, session.FindSecurityContext(c)); err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, nil)
}

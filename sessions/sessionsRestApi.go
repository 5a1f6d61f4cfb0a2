package sessions

import (
	"net/http"
	"time"

	"gigmarket/account"
	"gigmarket/bizerror"
	"gigmarket/common"
	"gigmarket/session"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

func RegisterSessionsHandler(r *gin.Engine, userManager account.UserManagerTraits) {
	handler := &sessionsHandler{userManager: userManager}

	g := r.Group("/v1/sessions")
	g.POST("", handler.handleLogin)
	g.DELETE("", handler.handleLogout)
	g.GET("", session.SimpleAuthFilter(), handler.handleIdentity)
}

type sessionsHandler struct {
	userManager account.UserManagerTraits
}

func (h *sessionsHandler) handleLogin(c *gin.Context) {
	login := session.LoginRequest{}
	if err := c.ShouldBindBodyWith(&login, binding.JSON); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	identity, perms, err := h.userManager.AuthenticateUser(login.Name, login.Password)
	if err != nil {
		panic(err)
	}

	token := uuid.New().String()
	securityContext := session.Context{Token: token, Identity: *identity, Perms: perms, SigningTime: time.Now()}
	session.TokenCache.Set(token, &securityContext, cache.DefaultExpiration)

	c.SetCookie(session.KeySecToken, token, int(session.TokenExpiration/time.Second), "/", "", false, false)
	c.JSON(http.StatusOK, &securityContext)
}

func (h *sessionsHandler) handleLogout(c *gin.Context) {
	token, _ := c.Cookie(session.KeySecToken) // ErrNoCookie
	if token != "" {
		session.TokenCache.Delete(token)
	}
	c.SetCookie(session.KeySecToken, "", -1, "/", "", false, false)
	c.AbortWithStatus(http.StatusNoContent)
}

func (h *sessionsHandler) handleIdentity(c *gin.Context) {
	secCtx := session.FindSecurityContext(c)
	if secCtx == nil {
		panic(bizerror.ErrUnauthenticated)
	}
	c.JSON(http.StatusOK, secCtx)
}

package testinfra

import (
	"net/http"
	"net/http/httptest"

	"gigmarket/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
)

// BuildSecCtx build security context
func BuildSecCtx(uid types.ID, perms ...string) *session.Context {
	name := "user" + uid.String()
	return &session.Context{
		Token:    "test-token-" + uid.String(),
		Identity: session.Identity{ID: uid, Name: name, Nickname: name},
		Perms:    perms,
	}
}

// ExecuteRequest serve one request with the given router and return the
// response status, body and headers
func ExecuteRequest(req *http.Request, router *gin.Engine) (int, string, http.Header) {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code, w.Body.String(), w.Header()
}

// InjectSecCtx inject a security context before the registered handlers run
func InjectSecCtx(secCtx *session.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		session.SaveSecurityContext(c, secCtx)
		c.Next()
	}
}

package servehttp

import (
	"errors"
	"net/http"

	"gigmarket/common"
	"gigmarket/indices"

	"github.com/gin-gonic/gin"
)

func RegisterSearchHandler(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	handler := &searchHandler{searchFunc: indices.SearchProjects}
	r.GET("/v1/project-search", append(middleWares, handler.handleSearch)...)
}

type searchHandler struct {
	searchFunc func(q string) ([]indices.ProjectDocument, error)
}

func (h *searchHandler) handleSearch(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		panic(&common.ErrBadParam{Cause: errors.New("query parameter 'q' is required")})
	}

	docs, err := h.searchFunc(q)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &common.PagedBody{List: docs, Total: uint64(len(docs))})
}

package servehttp

import (
	"net/http"

	"gigmarket/common"
	"gigmarket/domain"
	"gigmarket/domain/article"
	"gigmarket/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func RegisterArticleHandler(r *gin.Engine, m article.ArticleManagerTraits, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/articles", middleWares...)

	handler := &articleHandler{articleManager: m, validator: validator.New()}

	g.GET("", handler.handleQuery)
	g.POST("", handler.handleCreate)
	g.GET(":id", handler.handleDetail)
	g.GET("slug/:slug", handler.handleDetailBySlug)
	g.PUT(":id", handler.handleUpdate)
	g.POST(":id/publish", handler.reviewAction(m.PublishArticle))
	g.POST(":id/reject", handler.reviewAction(m.RejectArticle))
	g.DELETE(":id", handler.handleDelete)
}

type articleHandler struct {
	articleManager article.ArticleManagerTraits
	validator      *validator.Validate
}

func (h *articleHandler) handleCreate(c *gin.Context) {
	creation := domain.ArticleCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(creation); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	created, err := h.articleManager.CreateArticle(&creation, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, created)
}

func (h *articleHandler) handleQuery(c *gin.Context) {
	query := domain.ArticleQuery{}
	_ = c.MustBindWith(&query, binding.Query)

	articles, err := h.articleManager.QueryArticles(&query, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &common.PagedBody{List: articles, Total: uint64(len(*articles))})
}

func (h *articleHandler) handleDetail(c *gin.Context) {
	detail, err := h.articleManager.ArticleDetail(parseIdParam(c, "id"), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func (h *articleHandler) handleDetailBySlug(c *gin.Context) {
	detail, err := h.articleManager.ArticleDetailBySlug(c.Param("slug"), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func (h *articleHandler) handleUpdate(c *gin.Context) {
	parsedId := parseIdParam(c, "id")

	updating := domain.ArticleUpdating{}
	err := c.ShouldBindBodyWith(&updating, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(updating); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	updated, err := h.articleManager.UpdateArticle(parsedId, &updating, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, updated)
}

func (h *articleHandler) handleDelete(c *gin.Context) {
	err := h.articleManager.DeleteArticle(parseIdParam(c, "id"), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusNoContent, nil)
}

func (h *articleHandler) reviewAction(action func(types.ID, *session.Context) (*domain.Article, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		reviewed, err := action(parseIdParam(c, "id"), session.FindSecurityContext(c))
		if err != nil {
			panic(err)
		}
		c.JSON(http.StatusOK, reviewed)
	}
}

package servehttp

import (
	"net/http"

	"gigmarket/common"
	"gigmarket/domain"
	"gigmarket/domain/review"
	"gigmarket/session"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func RegisterReviewHandler(r *gin.Engine, m review.ReviewManagerTraits, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/reviews", middleWares...)

	handler := &reviewHandler{reviewManager: m, validator: validator.New()}

	g.GET("", handler.handleQuery)
	g.POST("", handler.handleCreate)
	g.GET(":id", handler.handleDetail)
	g.DELETE(":id", handler.handleDelete)
}

type reviewHandler struct {
	reviewManager review.ReviewManagerTraits
	validator     *validator.Validate
}

func (h *reviewHandler) handleCreate(c *gin.Context) {
	creation := domain.ReviewCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(creation); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	created, err := h.reviewManager.CreateReview(&creation, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, created)
}

func (h *reviewHandler) handleQuery(c *gin.Context) {
	query := domain.ReviewQuery{}
	_ = c.MustBindWith(&query, binding.Query)

	list, err := h.reviewManager.QueryReviews(&query, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, list)
}

func (h *reviewHandler) handleDetail(c *gin.Context) {
	detail, err := h.reviewManager.ReviewDetail(parseIdParam(c, "id"), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func (h *reviewHandler) handleDelete(c *gin.Context) {
	err := h.reviewManager.DeleteReview(parseIdParam(c, "id"), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusNoContent, nil)
}

package servehttp

import (
	"net/http"

	"gigmarket/common"
	"gigmarket/domain"
	"gigmarket/domain/bid"
	"gigmarket/session"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func RegisterBidHandler(r *gin.Engine, m bid.BidManagerTraits, middleWares ...gin.HandlerFunc) {
	handler := &bidHandler{bidManager: m, validator: validator.New()}

	g := r.Group("/v1/bids", middleWares...)
	g.POST("", handler.handlePlace)
	g.POST(":id/reject", handler.handleReject)
	g.DELETE(":id", handler.handleWithdraw)

	p := r.Group("/v1/projects/:id/bids", middleWares...)
	p.GET("", handler.handleQueryProjectBids)
	p.POST(":bidId/accept", handler.handleAccept)

	r.GET("/v1/my-bids", append(middleWares, handler.handleQueryUserBids)...)
}

type bidHandler struct {
	bidManager bid.BidManagerTraits
	validator  *validator.Validate
}

func (h *bidHandler) handlePlace(c *gin.Context) {
	creation := domain.BidCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(creation); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	placed, err := h.bidManager.PlaceBid(&creation, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, placed)
}

func (h *bidHandler) handleAccept(c *gin.Context) {
	projectId := parseIdParam(c, "id")
	bidId := parseIdParam(c, "bidId")

	accepted, err := h.bidManager.AcceptBid(projectId, bidId, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, accepted)
}

func (h *bidHandler) handleReject(c *gin.Context) {
	rejected, err := h.bidManager.RejectBid(parseIdParam(c, "id"), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, rejected)
}

func (h *bidHandler) handleWithdraw(c *gin.Context) {
	err := h.bidManager.WithdrawBid(parseIdParam(c, "id"), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusNoContent, nil)
}

func (h *bidHandler) handleQueryProjectBids(c *gin.Context) {
	bids, err := h.bidManager.QueryProjectBids(parseIdParam(c, "id"),
		c.Query("orderBy"), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &common.PagedBody{List: bids, Total: uint64(len(*bids))})
}

func (h *bidHandler) handleQueryUserBids(c *gin.Context) {
	bids, err := h.bidManager.QueryUserBids(session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &common.PagedBody{List: bids, Total: uint64(len(*bids))})
}

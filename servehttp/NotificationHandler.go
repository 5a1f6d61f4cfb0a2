package servehttp

import (
	"net/http"

	"gigmarket/common"
	"gigmarket/notification"
	"gigmarket/session"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

func RegisterNotificationHandler(r *gin.Engine, m notification.NotificationManagerTraits, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/notifications", middleWares...)

	handler := &notificationHandler{notificationManager: m}

	g.GET("", handler.handleQuery)
	g.GET("unread-count", handler.handleUnreadCount)
	g.POST(":id/read", handler.handleMarkRead)
	g.POST("read-all", handler.handleMarkAllRead)
	g.DELETE(":id", handler.handleDelete)
}

type notificationHandler struct {
	notificationManager notification.NotificationManagerTraits
}

func (h *notificationHandler) handleQuery(c *gin.Context) {
	query := notification.NotificationQuery{}
	_ = c.MustBindWith(&query, binding.Query)

	notifications, err := h.notificationManager.QueryMyNotifications(&query, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &common.PagedBody{List: notifications, Total: uint64(len(*notifications))})
}

func (h *notificationHandler) handleUnreadCount(c *gin.Context) {
	count, err := h.notificationManager.CountUnread(session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, count)
}

func (h *notificationHandler) handleMarkRead(c *gin.Context) {
	err := h.notificationManager.MarkRead(parseIdParam(c, "id"), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, nil)
}

func (h *notificationHandler) handleMarkAllRead(c *gin.Context) {
	err := h.notificationManager.MarkAllRead(session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, nil)
}

func (h *notificationHandler) handleDelete(c *gin.Context) {
	err := h.notificationManager.DeleteNotification(parseIdParam(c, "id"), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusNoContent, nil)
}

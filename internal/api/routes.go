package api

import (
	"github.com/gin-gonic/gin"

	"Underworld/internal/shared/transport/ws"
)

// Mount 挂载 HTTP 接口与 /ws/events 事件流。
func Mount(group *gin.RouterGroup, http *HttpHandler, wsServer *ws.Server) {
	http.RegisterRoutes(group)
	if wsServer != nil {
		group.GET("/ws/events", gin.WrapH(wsServer))
	}
}

package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"Underworld/modules/kit/logx"
)

type Server struct {
	hub      *Hub
	router   *Router
	upgrader websocket.Upgrader
	log      logx.Logger
}

func NewServer(hub *Hub, r *Router, l logx.Logger) *Server {
	return &Server{
		hub:    hub,
		router: r,
		upgrader: websocket.Upgrader{
			// 事件流是公开只读数据，允许跨域
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: logx.OrNop(l),
	}
}

func (s *Server) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	wsConn, err := s.upgrader.Upgrade(resp, req, nil)
	if err != nil {
		s.log.Warn("websocket upgrade error", zap.Error(err))
		return
	}

	client := NewClient(wsConn, s.router, s.log)
	s.hub.Add(client)
	client.Run()
	s.log.Info("websocket subscriber joined", zap.String("addr", client.Addr()), zap.Int("clients", s.hub.Count()))
}

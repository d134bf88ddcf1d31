package ws

import (
	"sync"

	"go.uber.org/zap"

	"Underworld/modules/kit/logx"
)

// Hub 持有所有订阅连接，负责广播。
type Hub struct {
	mu      sync.RWMutex
	clients map[WSConn]struct{}
	log     logx.Logger
}

func NewHub(l logx.Logger) *Hub {
	return &Hub{clients: make(map[WSConn]struct{}), log: logx.OrNop(l)}
}

// Add 登记连接，连接关闭后自动移除。
func (h *Hub) Add(c WSConn) {
	if c == nil {
		return
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	go func() {
		<-c.Done()
		h.remove(c)
	}()
}

func (h *Hub) remove(c WSConn) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *Hub) Broadcast(name string, data any) {
	h.mu.RLock()
	conns := make([]WSConn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.Push(name, data)
	}
	if len(conns) > 0 {
		h.log.Debug("ws broadcast", zap.String("name", name), zap.Int("clients", len(conns)))
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close 断开所有连接，停服时调用。
func (h *Hub) Close() {
	h.mu.RLock()
	conns := make([]WSConn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		c.Close()
	}
}

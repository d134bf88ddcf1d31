package ws

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"Underworld/modules/kit/logx"
)

const (
	outQueueSize   = 256
	writeWait      = 10 * time.Second
	maxMessageSize = 64 << 10
)

type Client struct {
	conn     *websocket.Conn
	router   *Router
	outChan  chan *RespBody
	property map[string]any
	sync.RWMutex
	done      chan struct{}
	closeOnce sync.Once
	log       logx.Logger
}

func NewClient(wsConn *websocket.Conn, router *Router, l logx.Logger) *Client {
	return &Client{
		conn:     wsConn,
		router:   router,
		outChan:  make(chan *RespBody, outQueueSize),
		property: make(map[string]any),
		done:     make(chan struct{}),
		log:      logx.OrNop(l),
	}
}

func (c *Client) SetProperty(key string, value any) {
	c.Lock()
	defer c.Unlock()
	c.property[key] = value
}

func (c *Client) GetProperty(key string) any {
	c.RLock()
	defer c.RUnlock()
	return c.property[key]
}

func (c *Client) Addr() string {
	return c.conn.RemoteAddr().String()
}

// Push 队列满时丢弃，慢连接不能拖住广播。
func (c *Client) Push(name string, data any) {
	c.push(&RespBody{Name: name, Msg: data})
}

func (c *Client) push(body *RespBody) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.outChan <- body:
	default:
		c.log.Warn("ws push dropped: queue full", zap.String("addr", c.Addr()), zap.String("name", body.Name))
	}
}

func (c *Client) Run() {
	go c.readMsgLoop()
	go c.writeMsgLoop()
}

func (c *Client) readMsgLoop() {
	defer func() {
		if err := recover(); err != nil {
			c.log.Error("ws readMsgLoop panic", zap.String("err", fmt.Sprintf("%v", err)))
		}
		c.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("ws read msg", zap.Error(err))
			}
			return
		}

		reqBody := ReqBody{}
		if err := json.Unmarshal(data, &reqBody); err != nil {
			c.log.Warn("ws unmarshal request", zap.Error(err))
			continue
		}

		// req 和 resp 的 Seq 必须一致
		resp := WsMsgResp{Body: &RespBody{Seq: reqBody.Seq, Name: reqBody.Name}}
		if reqBody.Name == HeartbeatMsg {
			h := &Heartbeat{}
			_ = mapstructure.Decode(reqBody.Msg, h)
			h.STime = time.Now().UnixMilli()
			resp.Body.Msg = h
		} else if c.router != nil {
			c.router.Dispatch(&WsMsgReq{Body: &reqBody, Conn: c}, &resp)
		} else {
			continue
		}
		c.push(resp.Body)
	}
}

func (c *Client) writeMsgLoop() {
	for {
		select {
		case body := <-c.outChan:
			c.write(body)
		case <-c.done:
			return
		}
	}
}

func (c *Client) write(body *RespBody) {
	data, err := json.Marshal(body)
	if err != nil {
		c.log.Error("ws marshal push", zap.Error(err), zap.String("name", body.Name))
		return
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.log.Warn("ws write", zap.Error(err))
		c.Close()
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
		close(c.done)
	})
}

func (c *Client) Done() <-chan struct{} {
	return c.done
}

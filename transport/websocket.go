package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 5 * time.Second

// Message is one request or response on the wire. Requests carry the
// payload in Data, responses carry the acknowledgement in Result.
type Message struct {
	Id      uint64 `json:"id,omitempty"`
	Service string `json:"service"`
	Data    string `json:"data,omitempty"`
	Result  bool   `json:"result"`
	Error   string `json:"error,omitempty"`
}

// WebsocketBridge serves the services of a Node over websocket
// connections. Each text frame is one Message.
type WebsocketBridge struct {
	node     *Node
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewWebsocketBridge(node *Node, log *zap.Logger) *WebsocketBridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebsocketBridge{
		node: node,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

func (b *WebsocketBridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	b.mu.Lock()
	b.conns[conn] = struct{}{}
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.conns, conn)
		b.mu.Unlock()
		conn.Close()
	}()

	b.log.Debug("client connected", zap.String("remote", conn.RemoteAddr().String()))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.log.Warn("websocket read", zap.Error(err))
			}
			return
		}
		resp := b.handle(r.Context(), data)
		out, err := json.Marshal(resp)
		if err != nil {
			b.log.Error("encode response", zap.Error(err))
			return
		}
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
			b.log.Warn("websocket write", zap.Error(err))
			return
		}
	}
}

func (b *WebsocketBridge) handle(ctx context.Context, data []byte) Message {
	var req Message
	if err := json.Unmarshal(data, &req); err != nil {
		return Message{Error: fmt.Sprintf("decode request: %v", err)}
	}
	resp := Message{Id: req.Id, Service: req.Service}
	ok, err := b.node.Request(ctx, req.Service, req.Data)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	resp.Result = ok
	return resp
}

// Close drops every open connection.
func (b *WebsocketBridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.conns {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(writeWait))
		conn.Close()
	}
}

// Client sends requests to a WebsocketBridge. It is not safe for
// concurrent use.
type Client struct {
	conn   *websocket.Conn
	nextId uint64
}

// Dial connects to a bridge at url, e.g. ws://localhost:11345/ws.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Client{conn: conn}, nil
}

// Request calls service with data and waits for the acknowledgement.
func (c *Client) Request(service, data string) (bool, error) {
	c.nextId++
	req := Message{Id: c.nextId, Service: service, Data: data}
	if err := c.conn.WriteJSON(req); err != nil {
		return false, fmt.Errorf("send %s: %w", service, err)
	}
	for {
		var resp Message
		if err := c.conn.ReadJSON(&resp); err != nil {
			return false, fmt.Errorf("receive %s: %w", service, err)
		}
		// Frames the server could not decode are answered with id 0.
		if resp.Id != req.Id && !(resp.Id == 0 && resp.Error != "") {
			continue
		}
		if resp.Error != "" {
			return false, errors.New(resp.Error)
		}
		return resp.Result, nil
	}
}

func (c *Client) Close() error {
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

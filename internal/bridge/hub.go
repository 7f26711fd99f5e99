package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/GriffinCanCode/TabSuspender/internal/domain/command"
	"github.com/GriffinCanCode/TabSuspender/internal/infrastructure/logging"
	"github.com/GriffinCanCode/TabSuspender/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/TabSuspender/internal/shared/id"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrDisconnected is returned by every host call while no extension is connected
var ErrDisconnected = errors.New("extension not connected")

// DefaultTimeout bounds one command round trip
const DefaultTimeout = 5 * time.Second

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	// The extension connects from a chrome-extension:// origin
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler executes requests decoded from extension events
type Handler interface {
	Handle(ctx context.Context, req command.Request) (any, error)
}

// Hub holds the connection to the browser extension and correlates
// commands with their replies. Only the most recent connection is used;
// a new extension connection replaces the previous one.
type Hub struct {
	timeout time.Duration
	metrics *monitoring.Metrics
	logger  *zap.Logger

	mu      sync.Mutex
	client  *client
	pending map[string]chan Message
	handler Handler

	events sync.WaitGroup
}

type client struct {
	id   id.ConnID
	conn *websocket.Conn

	writeMu sync.Mutex
	done    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewHub creates a hub. A non-positive timeout uses DefaultTimeout.
func NewHub(timeout time.Duration, metrics *monitoring.Metrics, logger *zap.Logger) *Hub {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Hub{
		timeout: timeout,
		metrics: metrics,
		logger:  logging.OrNop(logger),
		pending: make(map[string]chan Message),
	}
}

// SetHandler installs the handler for extension events. Events received
// before a handler is set are dropped.
func (h *Hub) SetHandler(handler Handler) {
	h.mu.Lock()
	h.handler = handler
	h.mu.Unlock()
}

// Connected reports whether an extension is attached
func (h *Hub) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.client != nil
}

// HandleConnection upgrades a gin request to the extension bridge
func (h *Hub) HandleConnection(c *gin.Context) {
	h.ServeHTTP(c.Writer, c.Request)
}

// ServeHTTP upgrades the request and serves the connection until it closes
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("bridge upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	cl := &client{
		id:     id.NewConnID(),
		conn:   conn,
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	h.attach(cl)
	defer h.detach(cl)

	h.readLoop(cl)
}

func (h *Hub) attach(cl *client) {
	h.mu.Lock()
	old := h.client
	h.client = cl
	h.mu.Unlock()

	if old != nil {
		h.logger.Info("extension connection replaced", zap.String("old", old.id.String()), zap.String("new", cl.id.String()))
		_ = old.conn.Close()
	}
	h.metrics.IncBridgeConnections()
	h.logger.Info("extension connected", zap.String("conn_id", cl.id.String()))
}

func (h *Hub) detach(cl *client) {
	cl.cancel()
	close(cl.done)
	_ = cl.conn.Close()

	h.mu.Lock()
	if h.client == cl {
		h.client = nil
	}
	h.mu.Unlock()

	h.metrics.DecBridgeConnections()
	h.logger.Info("extension disconnected", zap.String("conn_id", cl.id.String()))
}

func (h *Hub) readLoop(cl *client) {
	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("bridge read failed", zap.String("conn_id", cl.id.String()), zap.Error(err))
			}
			return
		}

		var msg Message
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.logger.Warn("malformed bridge message", zap.String("conn_id", cl.id.String()), zap.Error(err))
			continue
		}

		if msg.IsEvent() {
			h.metrics.RecordBridgeMessage("in", msg.Event)
			h.dispatchEvent(cl, msg)
			continue
		}
		h.metrics.RecordBridgeMessage("in", "reply")
		h.resolve(msg)
	}
}

// resolve hands a reply to the call waiting for it
func (h *Hub) resolve(msg Message) {
	h.mu.Lock()
	ch, ok := h.pending[msg.ID]
	delete(h.pending, msg.ID)
	h.mu.Unlock()

	if !ok {
		h.logger.Debug("reply for unknown or expired command", zap.String("id", msg.ID))
		return
	}
	ch <- msg
}

// dispatchEvent runs the event off the read loop: handling may itself
// issue commands whose replies arrive on this connection.
func (h *Hub) dispatchEvent(cl *client, msg Message) {
	req, err := DecodeEvent(msg)
	if err != nil {
		h.logger.Debug("unhandled bridge event", zap.String("event", msg.Event), zap.Error(err))
		if msg.ID != "" {
			h.send(cl, Reply{ID: msg.ID, Error: err.Error()}, "reply")
		}
		return
	}
	if req == nil {
		return
	}

	h.mu.Lock()
	handler := h.handler
	h.mu.Unlock()
	if handler == nil {
		h.logger.Debug("bridge event dropped, no handler", zap.String("event", msg.Event))
		return
	}

	h.events.Add(1)
	go func() {
		defer h.events.Done()

		result, err := handler.Handle(cl.ctx, req)
		if msg.ID == "" {
			return
		}
		reply := Reply{ID: msg.ID, OK: err == nil, Data: result}
		if err != nil {
			reply.Error = err.Error()
			reply.Data = nil
		}
		h.send(cl, reply, "reply")
	}()
}

// call sends cmd and waits for its reply
func (h *Hub) call(ctx context.Context, cmd Command) (Message, error) {
	h.mu.Lock()
	cl := h.client
	if cl == nil {
		h.mu.Unlock()
		return Message{}, ErrDisconnected
	}
	cmd.ID = uuid.NewString()
	ch := make(chan Message, 1)
	h.pending[cmd.ID] = ch
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.pending, cmd.ID)
		h.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := h.send(cl, cmd, cmd.Type); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrDisconnected, err)
	}

	select {
	case msg := <-ch:
		return msg, nil
	case <-cl.done:
		return Message{}, ErrDisconnected
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (h *Hub) send(cl *client, v any, msgType string) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode bridge message: %w", err)
	}

	cl.writeMu.Lock()
	defer cl.writeMu.Unlock()

	_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.logger.Debug("bridge write failed", zap.String("conn_id", cl.id.String()), zap.Error(err))
		return err
	}
	h.metrics.RecordBridgeMessage("out", msgType)
	return nil
}

// Close drops the current connection and waits for in-flight event handlers
func (h *Hub) Close() {
	h.mu.Lock()
	cl := h.client
	h.mu.Unlock()

	if cl != nil {
		cl.cancel()
		_ = cl.conn.Close()
	}
	h.events.Wait()
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mossy-p/flowsync-signaling/internal/models"
	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
)

// Dispatcher receives the lifecycle and inbound events of every connection
type Dispatcher interface {
	Connect(connID string)
	Handle(ctx context.Context, connID string, msg models.InboundMessage)
	Disconnect(connID string)
}

// ConnectionConfig holds WebSocket connection settings
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	SendBuffer      int
	ReadBufferSize  int
	WriteBufferSize int
	AllowedOrigins  []string
}

// DefaultConnectionConfig returns default WebSocket settings
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    25 * time.Second,
		MaxMessageSize:  64 * 1024,
		SendBuffer:      256,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// Hub tracks live WebSocket clients by connection id and delivers outbound
// messages to them
type Hub struct {
	clients  map[string]*Client
	mu       sync.RWMutex
	config   ConnectionConfig
	upgrader websocket.Upgrader

	closing atomic.Bool
	active  atomic.Int64
	total   atomic.Int64
	pumps   sync.WaitGroup
}

// Client represents a WebSocket client connection
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte

	hub  *Hub
	quit chan struct{}
	once sync.Once
}

// NewHub creates a hub
func NewHub(config ConnectionConfig) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		config:  config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(config.AllowedOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

// HandleSignaling upgrades the request and pumps events between the
// connection and d
func (h *Hub) HandleSignaling(d Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.closing.Load() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Server is shutting down"})
			return
		}

		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn().Err(err).Msg("failed to upgrade connection")
			return
		}

		client := &Client{
			ID:   uuid.New().String(),
			Conn: conn,
			Send: make(chan []byte, h.config.SendBuffer),
			hub:  h,
			quit: make(chan struct{}),
		}
		h.register(client)
		d.Connect(client.ID)

		log.Info().
			Str("conn_id", client.ID).
			Str("remote_addr", c.Request.RemoteAddr).
			Msg("connection established")

		h.pumps.Add(1)
		go client.writePump()
		go client.readPump(d)
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
	h.active.Inc()
	h.total.Inc()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[c.ID]; ok && cur == c {
		delete(h.clients, c.ID)
		h.active.Dec()
	}
}

func (h *Hub) client(connID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[connID]
	return c, ok
}

// Send queues msg for connID. Unknown connections and full buffers drop the
// message.
func (h *Hub) Send(connID string, msg models.SignalMessage) {
	client, ok := h.client(connID)
	if !ok {
		log.Debug().Str("conn_id", connID).Str("event", string(msg.Type)).Msg("target connection not found")
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("event", string(msg.Type)).Msg("failed to marshal message")
		return
	}

	select {
	case client.Send <- data:
	default:
		log.Warn().Str("conn_id", connID).Str("event", string(msg.Type)).Msg("send buffer full, dropping message")
	}
}

// Close terminates connID after its queued messages are written
func (h *Hub) Close(connID string) {
	if client, ok := h.client(connID); ok {
		client.shutdown()
	}
}

// Shutdown refuses new connections, closes every live one and waits for
// their disconnect handling to finish or ctx to expire
func (h *Hub) Shutdown(ctx context.Context) error {
	h.closing.Store(true)

	h.mu.RLock()
	for _, c := range h.clients {
		c.shutdown()
	}
	h.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		h.pumps.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ActiveConnections returns the number of open connections
func (h *Hub) ActiveConnections() int64 {
	return h.active.Load()
}

// TotalConnections returns the number of connections accepted since start
func (h *Hub) TotalConnections() int64 {
	return h.total.Load()
}

func (c *Client) shutdown() {
	c.once.Do(func() { close(c.quit) })
}

func (c *Client) readPump(d Dispatcher) {
	defer func() {
		c.hub.unregister(c)
		d.Disconnect(c.ID)
		c.shutdown()
		c.hub.pumps.Done()

		log.Info().Str("conn_id", c.ID).Msg("connection closed")
	}()

	cfg := c.hub.config
	c.Conn.SetReadLimit(cfg.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("conn_id", c.ID).Msg("unexpected WebSocket close")
			}
			return
		}

		var msg models.InboundMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Debug().Err(err).Str("conn_id", c.ID).Msg("failed to parse message")
			c.hub.Send(c.ID, models.NewError(models.ErrCodeInvalidRequest, "Malformed message"))
			continue
		}

		d.Handle(context.Background(), c.ID, msg)
	}
}

func (c *Client) writePump() {
	cfg := c.hub.config
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("conn_id", c.ID).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.quit:
			c.flush()
			c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			c.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes whatever is already queued
func (c *Client) flush() {
	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		default:
			return
		}
	}
}

package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rackline/ladder/internal/domain/model"
	"github.com/rackline/ladder/pkg/logger"
	"github.com/rackline/ladder/pkg/metrics"
)

const (
	clientSendBuffer = 64
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Browser clients connect from arbitrary origins; auth is out of
		// scope for the push channel.
		return true
	},
}

// Broadcaster fans committed events out to connected websocket clients.
// It implements Sink, so the dispatch pool can treat it like any other
// delivery target.
type Broadcaster struct {
	log        logger.Logger
	clients    map[*client]bool
	broadcast  chan model.Event
	register   chan *client
	unregister chan *client
	mu         sync.RWMutex
	stop       chan struct{}
	stopOnce   sync.Once
}

type client struct {
	hub  *Broadcaster
	conn *websocket.Conn
	send chan model.Event
}

// NewBroadcaster creates a broadcaster. Call Start before serving
// connections.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		log:        logger.Get().Named("broadcast"),
		clients:    make(map[*client]bool),
		broadcast:  make(chan model.Event, clientSendBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		stop:       make(chan struct{}),
	}
}

// Name identifies the sink.
func (b *Broadcaster) Name() string { return "websocket" }

// Start begins the hub loop in a goroutine.
func (b *Broadcaster) Start() {
	go b.run()
}

// Stop terminates the hub loop and disconnects all clients.
func (b *Broadcaster) Stop() {
	b.stopOnce.Do(func() { close(b.stop) })
}

// Deliver broadcasts the event to every connected client.
func (b *Broadcaster) Deliver(ctx context.Context, e model.Event) error {
	select {
	case b.broadcast <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.stop:
		return nil
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) run() {
	ctx := context.Background()
	for {
		select {
		case <-b.stop:
			b.mu.Lock()
			for c := range b.clients {
				close(c.send)
				delete(b.clients, c)
			}
			b.mu.Unlock()
			metrics.UpdateBroadcastClients(0)
			return

		case c := <-b.register:
			b.mu.Lock()
			b.clients[c] = true
			total := len(b.clients)
			b.mu.Unlock()
			metrics.UpdateBroadcastClients(total)
			b.log.Debug(ctx, "client connected", logger.Int("total_clients", total))

		case c := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[c]; ok {
				delete(b.clients, c)
				close(c.send)
			}
			total := len(b.clients)
			b.mu.Unlock()
			metrics.UpdateBroadcastClients(total)
			b.log.Debug(ctx, "client disconnected", logger.Int("total_clients", total))

		case e := <-b.broadcast:
			b.mu.RLock()
			for c := range b.clients {
				select {
				case c.send <- e:
				default:
					// The client's buffer is full; drop it rather than
					// stall the broadcast.
					go func(c *client) { b.unregister <- c }(c)
				}
			}
			b.mu.RUnlock()
		}
	}
}

// ServeWS upgrades an HTTP request to a websocket connection and
// subscribes it to the event stream.
func (b *Broadcaster) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Error(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	c := &client{
		hub:  b,
		conn: conn,
		send: make(chan model.Event, clientSendBuffer),
	}
	b.register <- c

	go c.writePump()
	go c.readPump()
}

// readPump discards inbound frames and tears the client down on error.
// The stream is one-way; reads exist only to notice disconnects and
// answer pings.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case e, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := json.Marshal(e)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

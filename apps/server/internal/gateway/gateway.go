// Package gateway serves the observer WebSocket: clients subscribe to runs
// and receive every game event as it happens, as JSON text frames. Observers
// are read-mostly; the only inbound messages are subscribe commands.
package gateway

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"mafia-lite/mafia"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: Restrict in production
	},
}

// Connection represents a WebSocket observer connection.
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Gateway *Gateway

	mu    sync.Mutex
	runID string // subscribed run, empty = firehose of all runs
}

// Gateway manages observer connections and fans run events out to them.
type Gateway struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	nextConnID  uint64
}

func New() *Gateway {
	return &Gateway{
		connections: make(map[string]*Connection),
	}
}

// HandleWebSocket upgrades the connection. An optional ?run=<id> query
// subscribes immediately.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Gateway] Upgrade error: %v", err)
		return
	}

	g.mu.Lock()
	g.nextConnID++
	connID := fmt.Sprintf("conn_%d", g.nextConnID)
	c := &Connection{
		ID:      connID,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		Gateway: g,
		runID:   r.URL.Query().Get("run"),
	}
	g.connections[connID] = c
	g.mu.Unlock()

	log.Printf("[Gateway] Observer connected: %s (run=%q), total: %d", connID, c.subscribedRun(), g.count())

	go c.readPump()
	go c.writePump()
}

// envelope is the wire frame for outbound events.
type envelope struct {
	RunID string      `json:"run_id"`
	Event mafia.Event `json:"event"`
}

// subscribeCommand is the only inbound message observers may send.
type subscribeCommand struct {
	Type  string `json:"type"` // "subscribe"
	RunID string `json:"run_id"`
}

// BroadcastRun delivers one run event to every interested observer. Slow
// observers get dropped frames, never backpressure into the game loop.
func (g *Gateway) BroadcastRun(runID string, ev mafia.Event) {
	data, err := json.Marshal(envelope{RunID: runID, Event: ev})
	if err != nil {
		log.Printf("[Gateway] marshal event failed: run=%s err=%v", runID, err)
		return
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, c := range g.connections {
		sub := c.subscribedRun()
		if sub != "" && sub != runID {
			continue
		}
		select {
		case c.Send <- data:
		default:
			// Drop frame if buffer full
		}
	}
}

func (c *Connection) subscribedRun() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runID
}

func (c *Connection) readPump() {
	defer func() {
		c.Gateway.removeConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(4096)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Gateway] Read error: %v", err)
			}
			break
		}

		var cmd subscribeCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			log.Printf("[Gateway] Bad command from %s: %v", c.ID, err)
			continue
		}
		if cmd.Type == "subscribe" {
			c.mu.Lock()
			c.runID = cmd.RunID
			c.mu.Unlock()
			log.Printf("[Gateway] %s subscribed to run %q", c.ID, cmd.RunID)
		}
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) removeConnection(c *Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.connections, c.ID)
	log.Printf("[Gateway] Observer disconnected: %s, total: %d", c.ID, len(g.connections))
}

func (g *Gateway) count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.connections)
}

package collector

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub pushes every stored record to the connected dashboards.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]bool
}

// NewHub accepts websocket connections from origins ("*" for any).
func NewHub(origins []string) *Hub {
	allowed := map[string]bool{}
	for _, o := range origins {
		allowed[o] = true
	}
	return &Hub{
		clients: map[*client]bool{},
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// Clients is the number of connected dashboards.
func (self *Hub) Clients() int {
	self.mu.Lock()
	defer self.mu.Unlock()
	return len(self.clients)
}

// Broadcast sends v as json to every client. Clients that are not keeping
// up are disconnected.
func (self *Hub) Broadcast(v interface{}) {
	msg, err := json.Marshal(v)
	if err != nil {
		log.Println("collector: encoding broadcast:", err)
		return
	}
	self.mu.Lock()
	defer self.mu.Unlock()
	for c := range self.clients {
		select {
		case c.send <- msg:
		default:
			log.Println("collector: websocket client too slow, dropping", c.conn.RemoteAddr())
			self.remove(c)
		}
	}
}

// remove must be called with mu held.
func (self *Hub) remove(c *client) {
	if self.clients[c] {
		delete(self.clients, c)
		close(c.send)
	}
}

func (self *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := self.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("collector: websocket upgrade:", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	self.mu.Lock()
	self.clients[c] = true
	self.mu.Unlock()
	log.Println("collector: websocket client connected", conn.RemoteAddr())

	go self.writePump(c)
	self.readPump(c)
}

// readPump discards incoming messages, detecting when the client goes away.
func (self *Hub) readPump(c *client) {
	defer func() {
		self.mu.Lock()
		self.remove(c)
		self.mu.Unlock()
		c.conn.Close()
		log.Println("collector: websocket client disconnected", c.conn.RemoteAddr())
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (self *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// Close disconnects every client.
func (self *Hub) Close() {
	self.mu.Lock()
	defer self.mu.Unlock()
	for c := range self.clients {
		self.remove(c)
	}
}

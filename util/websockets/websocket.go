package websockets

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 5 * time.Second
	// sendBuffer is how many messages may queue for one client before it is
	// dropped as too slow.
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewCommentFeed initializes a CommentFeed. Call Run before accepting
// connections.
func NewCommentFeed() *CommentFeed {
	return &CommentFeed{
		clients:    make(map[*websocket.Conn]*Client),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
	}
}

// Run processes registrations until Stop is called.
func (feed *CommentFeed) Run() {
	for {
		select {
		case client := <-feed.register:
			feed.mu.Lock()
			feed.clients[client.Conn] = client
			feed.mu.Unlock()

		case conn := <-feed.unregister:
			feed.mu.Lock()
			if client, exists := feed.clients[conn]; exists {
				feed.drop(client)
				log.Printf("[CommentFeed]: client left query %d", client.QueryID)
			}
			feed.mu.Unlock()

		case <-feed.done:
			feed.mu.Lock()
			for _, client := range feed.clients {
				feed.drop(client)
			}
			feed.mu.Unlock()
			return
		}
	}
}

// Stop ends Run and closes every open connection.
func (feed *CommentFeed) Stop() {
	feed.stopOnce.Do(func() { close(feed.done) })
}

// HandleConnections upgrades the request and subscribes it to queryID until
// the peer disconnects.
func (feed *CommentFeed) HandleConnections(w http.ResponseWriter, r *http.Request, queryID int64) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WebSocket Upgrade Error:", err)
		return
	}

	// Nothing else writes to conn until it is registered, so the hello is
	// always the first message a client sees.
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(Message{Type: MsgTypeSubscribed, QueryID: queryID}); err != nil {
		log.Printf("[CommentFeed]: write %s: %v", MsgTypeSubscribed, err)
		conn.Close()
		return
	}

	client := &Client{Conn: conn, QueryID: queryID, send: make(chan []byte, sendBuffer)}
	select {
	case feed.register <- client:
	case <-feed.done:
		conn.Close()
		return
	}

	defer func() {
		select {
		case feed.unregister <- conn:
		case <-feed.done:
		}
	}()

	go client.writePump()

	// The feed is one-way; reading only detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast queues data for every client watching queryID. It never waits on
// the network; a client whose queue is full is disconnected.
func (feed *CommentFeed) Broadcast(queryID int64, msgType string, data any) {
	payload, err := json.Marshal(Message{Type: msgType, QueryID: queryID, Data: data})
	if err != nil {
		log.Printf("[CommentFeed]: marshal %s: %v", msgType, err)
		return
	}

	feed.mu.Lock()
	defer feed.mu.Unlock()

	for _, client := range feed.clients {
		if client.QueryID != queryID {
			continue
		}
		select {
		case client.send <- payload:
		default:
			log.Printf("[CommentFeed]: dropping slow client on query %d", queryID)
			feed.drop(client)
		}
	}
}

// Subscribers returns how many clients are watching queryID.
func (feed *CommentFeed) Subscribers(queryID int64) int {
	feed.mu.Lock()
	defer feed.mu.Unlock()

	n := 0
	for _, client := range feed.clients {
		if client.QueryID == queryID {
			n++
		}
	}
	return n
}

// drop removes client and closes its queue and connection. feed.mu must be
// held.
func (feed *CommentFeed) drop(client *Client) {
	delete(feed.clients, client.Conn)
	close(client.send)
	client.Conn.Close()
}

// writePump writes queued messages until the queue is closed or a write
// fails.
func (client *Client) writePump() {
	for payload := range client.send {
		_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			client.Conn.Close()
			return
		}
	}
}

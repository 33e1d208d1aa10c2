package websockets

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Message types
const (
	MsgTypeSubscribed     = "subscribed"
	MsgTypeCommentCreated = "comment_created"
)

// Client is a browser watching the comments of one query.
type Client struct {
	Conn    *websocket.Conn
	QueryID int64
	send    chan []byte
}

// CommentFeed fans new comments out to the clients watching a query.
type CommentFeed struct {
	clients    map[*websocket.Conn]*Client
	register   chan *Client
	unregister chan *websocket.Conn
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.Mutex
}

// Message is the envelope written to subscribers.
type Message struct {
	Type    string `json:"type"`
	QueryID int64  `json:"query_id"`
	Data    any    `json:"data,omitempty"`
}

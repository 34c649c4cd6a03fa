package models

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"crawl-backend/constants"
)

const sendBuffer = 256

// Client is one live transport connection. Send is never closed; writers
// stop when Done is closed.
type Client struct {
	ID        string      `json:"id"`
	Send      chan []byte `json:"-"`
	Codec     string      `json:"codec"`
	Transport string      `json:"transport"`
	JoinedAt  time.Time   `json:"joined_at"`

	lastSeen  atomic.Int64
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(codec, transport string) *Client {
	if codec != constants.CODEC_MSGPACK {
		codec = constants.CODEC_JSON
	}
	c := &Client{
		ID:        uuid.New().String(),
		Send:      make(chan []byte, sendBuffer),
		Codec:     codec,
		Transport: transport,
		JoinedAt:  time.Now(),
		done:      make(chan struct{}),
	}
	c.Touch()
	return c
}

// Enqueue hands a frame to the write pump without blocking. A client whose
// buffer is full is closed.
func (c *Client) Enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- data:
		return true
	default:
		c.Close()
		return false
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Touch records inbound activity for liveness checks.
func (c *Client) Touch() { c.lastSeen.Store(time.Now().UnixNano()) }

func (c *Client) LastSeen() time.Time { return time.Unix(0, c.lastSeen.Load()) }

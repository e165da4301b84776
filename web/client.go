package web

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	outgoingBuffer = 64
)

var clientIds atomic.Int64

type Client struct {
	Hub *RaffleHub

	Id int64

	Conn *websocket.Conn

	Outgoing chan []byte
}

func NewClient(hub *RaffleHub, conn *websocket.Conn) *Client {
	return &Client{
		Hub:      hub,
		Id:       clientIds.Add(1),
		Conn:     conn,
		Outgoing: make(chan []byte, outgoingBuffer),
	}
}

// Serve registers the client and pumps messages until either side goes away.
func (c *Client) Serve() {
	select {
	case c.Hub.Register <- c:
	case <-c.Hub.Done():
		c.Conn.Close()
		return
	}

	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.Unregister <- c:
		case <-c.Hub.Done():
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, j, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Hub.log.Debug("websocket read", "client", c.Id, "err", err)
			}
			return
		}

		select {
		case c.Hub.Actions <- &Action{J: j, Client: c}:
		case <-c.Hub.Done():
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case j, ok := <-c.Outgoing:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			err := c.Conn.WriteMessage(websocket.TextMessage, j)
			if err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.Conn.WriteMessage(websocket.PingMessage, nil)
			if err != nil {
				return
			}
		}
	}
}

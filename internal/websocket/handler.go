package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs attaches the connection to the hub and blocks until it closes.
func ServeWs(hub *Hub, c *websocket.Conn, owner string) {
	client := &Client{Hub: hub, Conn: c, Owner: owner, Send: make(chan []byte, 64)}
	select {
	case hub.register <- client:
	case <-hub.done:
		return
	}

	go client.writePump()
	client.readPump()
}

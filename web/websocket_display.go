package web

import (
	"github.com/gorilla/websocket"
	"github.com/guslan/chip8"
)

func (server *Server) setWs(conn *websocket.Conn) {
	server.wsMutex.Lock()
	defer server.wsMutex.Unlock()

	if server.socket != nil {
		server.socket.Close()
	}
	server.socket = conn
}

func (server *Server) unsetWs(conn *websocket.Conn) {
	server.wsMutex.Lock()
	defer server.wsMutex.Unlock()

	if server.socket == conn {
		server.socket = nil
	}
}

// Render implements chip8.Display.
// The screen is sent packed, 8 pixels per byte, most significant bit first.
// Render errors only drop the client, the console keeps running.
func (server *Server) Render(screen *chip8.Screen) error {
	server.wsMutex.Lock()
	defer server.wsMutex.Unlock()

	if server.socket == nil {
		return nil
	}

	if err := server.socket.WriteMessage(websocket.BinaryMessage, screen.Pack()); err != nil {
		server.socket.Close()
		server.socket = nil
	}

	return nil
}

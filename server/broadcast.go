// File: server/broadcast.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import "github.com/momentics/wsreactor/protocol"

// BroadcastMessage sends one text or binary message to every live connection.
// The frame is encoded once. It returns the number of connections written to.
func (s *Server) BroadcastMessage(payload []byte, binary bool) int {
	return s.BroadcastData(protocol.EncodeMessage(payload, binary))
}

// BroadcastText sends a text message to every live connection.
func (s *Server) BroadcastText(text string) int {
	return s.BroadcastMessage([]byte(text), false)
}

// BroadcastData writes pre-encoded frame bytes to every live connection.
func (s *Server) BroadcastData(frame []byte) int {
	sent := 0
	for _, c := range s.Connections() {
		if c.IsClosed() {
			continue
		}
		if _, err := c.SendData(frame); err != nil {
			s.log.Debug("broadcast write failed", "conn_id", uint64(c.ID()), "error", err)
			continue
		}
		sent++
	}
	return sent
}

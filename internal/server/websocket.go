package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tiltring/tiltring/internal/core/observability/log"
	"github.com/tiltring/tiltring/internal/core/protocol"
	wsconn "github.com/tiltring/tiltring/internal/core/protocol/websocket"
	"github.com/tiltring/tiltring/internal/core/sim"
)

// handleWebSocket upgrades a connection, creates the player's entity
// and input record, then serves its read loop until the socket dies.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if int(atomic.LoadInt64(&s.clientCount)) >= s.cfg.Server.MaxClients {
		s.logger.Warn("maximum clients reached, rejecting connection",
			log.String("remote_addr", r.RemoteAddr))
		http.Error(w, ErrMaxClientsReached.Error(), http.StatusServiceUnavailable)
		return
	}

	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", log.Error(err))
		return
	}

	conn := wsconn.New(raw, s.cfg.Server)
	playerID := conn.ID()
	clientLogger := s.logger.With(log.String("client_id", playerID))

	snapshot := s.world.AddPlayer(playerID)

	if err = conn.SendJSON(protocol.Init{
		Type:               protocol.TypeInit,
		ID:                 playerID,
		InitialPlayerState: protocol.PlayerFromSnapshot(snapshot),
	}); err != nil {
		clientLogger.Error("failed to send init", log.Error(err))
		s.world.RemovePlayer(playerID)
		_ = conn.Close()
		return
	}

	s.clients.Store(playerID, &client{conn: conn})
	atomic.AddInt64(&s.clientCount, 1)

	clientLogger.Info("client connected",
		log.String("remote_addr", conn.RemoteAddr().String()),
		log.Int64("total_clients", atomic.LoadInt64(&s.clientCount)))

	s.announceConnect(playerID, snapshot)

	stopPing := make(chan struct{})
	go s.pingLoop(conn, stopPing)

	s.readLoop(conn, playerID, clientLogger)

	close(stopPing)
	s.disconnect(playerID, conn, clientLogger)
}

// announceConnect tells everyone else about the new player.
func (s *Server) announceConnect(playerID string, snapshot sim.Snapshot) {
	data, err := json.Marshal(protocol.Connect{
		Type:   protocol.TypeConnect,
		Player: protocol.PlayerFromSnapshot(snapshot),
	})
	if err != nil {
		s.logger.Error("failed to encode connect event", log.Error(err))
		return
	}
	s.broadcast(data, playerID)
}

// readLoop consumes client messages until the socket errors. Malformed
// payloads are logged and skipped; the connection stays open.
func (s *Server) readLoop(conn *wsconn.Connection, playerID string, clientLogger log.Log) {
	for {
		data, err := conn.Receive()
		if err != nil {
			if !conn.IsClosed() {
				clientLogger.Debug("read failed", log.Error(err))
			}
			return
		}

		input, ok, err := protocol.DecodeClientMessage(data)
		if err != nil {
			clientLogger.Warn("malformed client message", log.Error(err))
			continue
		}
		if !ok {
			continue
		}
		s.world.SetInput(playerID, input.Key, input.Pressed)
	}
}

// disconnect tears the session down: entity and input record first, so
// the next tick never observes a half-removed player, then the
// disconnect broadcast.
func (s *Server) disconnect(playerID string, conn *wsconn.Connection, clientLogger log.Log) {
	s.world.RemovePlayer(playerID)
	s.clients.Delete(playerID)
	atomic.AddInt64(&s.clientCount, -1)
	_ = conn.Close()

	data, err := json.Marshal(protocol.Disconnect{Type: protocol.TypeDisconnect, ID: playerID})
	if err == nil {
		s.broadcast(data, playerID)
	}

	clientLogger.Info("client disconnected",
		log.Int64("total_clients", atomic.LoadInt64(&s.clientCount)))
}

// pingLoop keeps the connection alive until it is closed or the session
// ends.
func (s *Server) pingLoop(conn *wsconn.Connection, stop <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.Server.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.Ping(); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

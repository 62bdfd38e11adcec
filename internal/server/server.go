// Package server runs the authoritative arena: it accepts websocket
// clients, feeds their input into the simulation world, drives the
// fixed-rate tick and broadcasts state to every open connection.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	gws "github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/tiltring/tiltring/internal/config"
	"github.com/tiltring/tiltring/internal/core/events/bus"
	"github.com/tiltring/tiltring/internal/core/observability/log"
	"github.com/tiltring/tiltring/internal/core/protocol"
	wsconn "github.com/tiltring/tiltring/internal/core/protocol/websocket"
	"github.com/tiltring/tiltring/internal/core/sim"
	"github.com/tiltring/tiltring/pkg/generic"
)

// Server owns the world, the tick loop and all client sessions.
type Server struct {
	cfg    config.Config
	logger log.Log

	world *sim.World
	bus   *bus.Bus
	clock *sim.Clock

	// Client management
	clients     sync.Map // map[string]*client
	clientCount int64    // atomic

	// Server state
	running int32 // atomic bool
	closed  int32 // atomic bool

	httpServer *http.Server
	upgrader   gws.Upgrader
	group      *errgroup.Group
	cancel     context.CancelFunc
	deathSub   *bus.Subscription

	statePool *generic.Pool[[]protocol.Player]
}

// client is one connected player session.
type client struct {
	conn *wsconn.Connection
}

// New creates a server with a freshly populated world.
func New(cfg config.Config, logger log.Log) *Server {
	b := bus.New()
	s := &Server{
		cfg:    cfg,
		logger: logger.With(log.String("component", "server")),
		bus:    b,
		world:  sim.NewWorld(cfg.Sim, b, logger),
		clock:  sim.NewClock(cfg.Sim.TickRate),
		upgrader: gws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return cfg.Server.AllowAllOrigin
			},
		},
		statePool: generic.NewPoolWithReset(
			func() []protocol.Player { return make([]protocol.Player, 0, 32) },
			func(players []protocol.Player) []protocol.Player { return players[:0] },
		),
	}
	s.deathSub = b.Subscribe(sim.EventDeath, s.onDeath)

	s.logger.Info("server created",
		log.String("listen_addr", cfg.Server.ListenAddr),
		log.Int("tick_rate", cfg.Sim.TickRate),
		log.Int("ai_count", cfg.Sim.AICount))

	return s
}

// World exposes the simulation world, mainly for tests and tooling.
func (s *Server) World() *sim.World {
	return s.world
}

// Start binds the listener and launches the tick loop. It returns once
// the server is accepting connections.
func (s *Server) Start(ctx context.Context) error {
	if atomic.LoadInt32(&s.closed) == 1 {
		return ErrServerClosed
	}
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return ErrServerAlreadyRunning
	}

	ctx, s.cancel = context.WithCancel(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	s.httpServer = &http.Server{Handler: mux}

	listener, err := net.Listen("tcp", s.cfg.Server.ListenAddr)
	if err != nil {
		atomic.StoreInt32(&s.running, 0)
		s.logger.Error("failed to bind listener", log.Error(err))
		return err
	}

	s.logger.Info("server listening", log.String("addr", listener.Addr().String()))

	group, groupCtx := errgroup.WithContext(ctx)
	s.group = group

	group.Go(func() error {
		if err := s.httpServer.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		s.clock.Run(groupCtx, s.tick)
		return nil
	})

	return nil
}

// Stop shuts the server down: the tick loop exits, the listener closes
// and every client connection is dropped.
func (s *Server) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.running, 1, 0) {
		return ErrServerNotRunning
	}

	s.logger.Info("stopping server")

	s.cancel()
	s.deathSub.Cancel()
	_ = s.httpServer.Shutdown(ctx)

	s.clients.Range(func(_, value any) bool {
		_ = value.(*client).conn.Close()
		return true
	})

	err := s.group.Wait()
	atomic.StoreInt32(&s.closed, 1)
	s.logger.Info("server stopped")
	return err
}

// tick runs one simulation step and broadcasts the resulting snapshot.
func (s *Server) tick() {
	s.world.Step()
	s.broadcastState()
}

func (s *Server) broadcastState() {
	players := s.statePool.Get()
	for _, snap := range s.world.Snapshot() {
		players = append(players, protocol.PlayerFromSnapshot(snap))
	}

	data, err := json.Marshal(protocol.State{Type: protocol.TypeState, Players: players})
	s.statePool.Put(players)
	if err != nil {
		s.logger.Error("failed to encode state", log.Error(err))
		return
	}

	s.broadcast(data, "")
}

// broadcast sends one encoded message to every open connection except
// skipID. Errored sockets are skipped; their read loops tear them down.
func (s *Server) broadcast(data []byte, skipID string) {
	s.clients.Range(func(key, value any) bool {
		id := key.(string)
		if id == skipID {
			return true
		}
		if err := value.(*client).conn.Send(data); err != nil {
			s.logger.Debug("broadcast send failed",
				log.String("client_id", id),
				log.Error(err))
		}
		return true
	})
}

// onDeath relays a simulation death event to every client.
func (s *Server) onDeath(e bus.Event) {
	death, ok := e.Data.(sim.DeathEvent)
	if !ok {
		return
	}
	data, err := json.Marshal(protocol.Death{
		Type:     protocol.TypeDeath,
		ID:       death.ID,
		Position: death.Position,
	})
	if err != nil {
		s.logger.Error("failed to encode death event", log.Error(err))
		return
	}
	s.broadcast(data, "")
}

// Stats contains server statistics.
type Stats struct {
	Clients  int64  `json:"clients"`
	Entities int    `json:"entities"`
	Tick     uint64 `json:"tick"`
	Running  bool   `json:"running"`
}

// GetStats returns server statistics.
func (s *Server) GetStats() Stats {
	return Stats{
		Clients:  atomic.LoadInt64(&s.clientCount),
		Entities: s.world.EntityCount(),
		Tick:     s.world.Tick(),
		Running:  atomic.LoadInt32(&s.running) == 1,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.GetStats())
}

// Package observer streams simulation events to read-only websocket
// clients. Observers cannot issue commands; the stream exists for UIs
// and tooling that want to watch a keep run.
package observer

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"runnerkeep.gg/internal/protocol"
	"runnerkeep.gg/internal/sim/eventbus"
)

// Hub fans simulation events out to connected observers. Broadcast runs
// on the simulation goroutine; attach and detach run on HTTP goroutines.
type Hub struct {
	mu       sync.Mutex
	clients  map[uint64]chan []byte
	nextID   uint64
	lastTick atomic.Uint64
}

func NewHub() *Hub {
	return &Hub{clients: map[uint64]chan []byte{}}
}

// Broadcast encodes one event frame and offers it to every observer.
// A full observer queue drops the frame for that observer rather than
// stalling the tick.
func (h *Hub) Broadcast(kind string, tick uint64, data any) {
	h.lastTick.Store(tick)
	b, err := json.Marshal(protocol.EventFrame{Type: protocol.TypeEvent, Kind: kind, Data: data})
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.clients {
		select {
		case ch <- b:
		default:
		}
	}
}

func (h *Hub) LastTick() uint64 { return h.lastTick.Load() }

func (h *Hub) attach() (uint64, chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	ch := make(chan []byte, 256)
	h.clients[h.nextID] = ch
	return h.nextID, ch
}

func (h *Hub) detach(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
}

// Wire subscribes the hub to every event type the simulation publishes.
// Call before the tick loop starts.
func Wire(bus *eventbus.Bus, h *Hub) {
	relay(bus, h, "RUNNER_CREATED", func(e protocol.RunnerCreated) uint64 { return e.Tick })
	relay(bus, h, "TRAVEL_STARTED", func(e protocol.TravelStarted) uint64 { return e.Tick })
	relay(bus, h, "TRAVEL_REDIRECTED", func(e protocol.TravelRedirected) uint64 { return e.Tick })
	relay(bus, h, "TRAVEL_ARRIVED", func(e protocol.TravelArrived) uint64 { return e.Tick })
	relay(bus, h, "GATHERING_STARTED", func(e protocol.GatheringStarted) uint64 { return e.Tick })
	relay(bus, h, "GATHERING_FAILED", func(e protocol.GatheringFailed) uint64 { return e.Tick })
	relay(bus, h, "ITEM_PRODUCED", func(e protocol.ItemProduced) uint64 { return e.Tick })
	relay(bus, h, "INVENTORY_FULL", func(e protocol.InventoryFull) uint64 { return e.Tick })
	relay(bus, h, "DEPOSIT_STARTED", func(e protocol.DepositStarted) uint64 { return e.Tick })
	relay(bus, h, "DEPOSIT_COMPLETED", func(e protocol.DepositCompleted) uint64 { return e.Tick })
	relay(bus, h, "SKILL_LEVEL_UP", func(e protocol.SkillLevelUp) uint64 { return e.Tick })
	relay(bus, h, "SEQUENCE_ASSIGNED", func(e protocol.SequenceAssigned) uint64 { return e.Tick })
	relay(bus, h, "SEQUENCE_CLEARED", func(e protocol.SequenceCleared) uint64 { return e.Tick })
	relay(bus, h, "SEQUENCE_COMPLETED", func(e protocol.SequenceCompleted) uint64 { return e.Tick })
	relay(bus, h, "RULE_FIRED", func(e protocol.RuleFired) uint64 { return e.Tick })
	relay(bus, h, "NO_RULE_MATCHED", func(e protocol.NoRuleMatched) uint64 { return e.Tick })
	relay(bus, h, "RUNNER_STUCK", func(e protocol.RunnerStuck) uint64 { return e.Tick })
}

func relay[T any](bus *eventbus.Bus, h *Hub, kind string, tick func(T) uint64) {
	eventbus.Subscribe(bus, func(ev T) { h.Broadcast(kind, tick(ev), ev) })
}

type Server struct {
	hub *Hub
	log *slog.Logger

	tickDurationMs int
	catalogDigests map[string]string

	upgrader websocket.Upgrader
}

func NewServer(hub *Hub, tickDurationMs int, catalogDigests map[string]string, logger *slog.Logger) *Server {
	return &Server{
		hub:            hub,
		log:            logger,
		tickDurationMs: tickDurationMs,
		catalogDigests: catalogDigests,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		welcome := protocol.WelcomeFrame{
			Type:            protocol.TypeWelcome,
			ProtocolVersion: protocol.Version,
			TickDurationMs:  s.tickDurationMs,
			Tick:            s.hub.LastTick(),
			CatalogDigests:  s.catalogDigests,
		}
		if err := writeJSON(conn, welcome); err != nil {
			return
		}

		id, out := s.hub.attach()
		defer s.hub.detach(id)
		s.log.Debug("observer connected", "remote", r.RemoteAddr)

		done := make(chan struct{})

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-done:
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						_ = conn.Close()
						return
					}
				}
			}
		}()

		// Reader loop: observers send nothing meaningful, but reading is
		// how we notice the close.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		close(done)
		s.log.Debug("observer disconnected", "remote", r.RemoteAddr)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

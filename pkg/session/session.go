package session

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tindalos-systems/factoriolink/internal/config"
	"github.com/tindalos-systems/factoriolink/pkg/ferrors"
	"github.com/tindalos-systems/factoriolink/pkg/protocol"
	"github.com/tindalos-systems/factoriolink/pkg/savedecode"
	"github.com/tindalos-systems/factoriolink/pkg/wire/packet"
)

// actionQueueSize bounds the outbound input-action queue; Submit
// returns QueueFull once it's saturated rather than blocking the
// caller (spec.md §5, §7).
const actionQueueSize = 256

// Params configures a Session at connect time.
type Params struct {
	ServerAddr  string
	Version     protocol.ApplicationVersion
	Credentials protocol.Credentials
	Config      config.Config
	Logger      *zap.Logger
}

// Session is the public handle to one client connection (spec.md §6):
// submit input actions, drain the event stream, read the latest world
// snapshot, and disconnect. All of its own state is owned by a single
// cooperative goroutine (spec.md §5); every exported method talks to
// that goroutine over a channel rather than touching engine state
// directly.
type Session struct {
	log  *zap.Logger
	conn *net.UDPConn

	bus eventBus

	actions chan protocol.InputAction
	checks  chan checksumReport
	closeCh chan struct{}
	done    chan struct{}

	mu       sync.Mutex
	closed   bool
	snapshot savedecode.WorldSnapshot
}

type checksumReport struct {
	tick     uint32
	expected uint32
}

// Connect opens a UDP socket to the server, starts the handshake, and
// launches the session's I/O goroutines. It returns once the socket is
// open; handshake progress is reported through the Events stream.
func Connect(ctx context.Context, params Params) (*Session, error) {
	log := params.Logger
	if log == nil {
		log = zap.Must(zap.NewDevelopment())
	}
	log = log.With(zap.String("component", "session"))

	addr, err := net.ResolveUDPAddr("udp", params.ServerAddr)
	if err != nil {
		return nil, fmt.Errorf("resolving server address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dialing server: %w", err)
	}

	s := &Session{
		log:     log,
		conn:    conn,
		actions: make(chan protocol.InputAction, actionQueueSize),
		checks:  make(chan checksumReport, actionQueueSize),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}

	cfg := config.Resolve(params.Config)
	eng := newEngine(params.Version, params.Credentials, cfg, log)

	runCtx, cancel := context.WithCancel(ctx)
	go s.run(runCtx, cancel, eng, cfg)

	return s, nil
}

// run is the session's single cooperative I/O task (spec.md §5): it
// selects over inbound datagrams, the heartbeat ticker, queued
// actions, and shutdown, driving the engine and writing whatever it
// produces back to the socket.
func (s *Session) run(ctx context.Context, cancel context.CancelFunc, eng *engine, cfg config.Resolved) {
	defer close(s.done)
	defer cancel()
	defer s.conn.Close()
	defer s.bus.Close()
	defer s.markClosed()

	var wg sync.WaitGroup
	datagrams := make(chan []byte, 64)

	// Closing the socket on cancellation is what unblocks the reader
	// goroutine below, so wg.Wait can return.
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		s.conn.Close()
	}()

	// Blocking socket reads can't participate in select directly, so a
	// small reader goroutine pushes completed datagrams into a channel
	// (grounded on pkg/transport/udp_destination.go's connection
	// message listening goroutine).
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			buf := make([]byte, packet.MaxPacketSize)
			n, err := s.conn.Read(buf)
			if err != nil {
				return
			}
			select {
			case datagrams <- buf[:n]:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(cfg.HeartbeatInterval)
	defer ticker.Stop()

	for _, pkt := range eng.Start(time.Now()) {
		s.send(pkt)
	}
	s.bus.Publish(connectingEvent("AwaitingReply"))

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return

		case <-s.closeCh:
			toSend, events := eng.Disconnect(time.Now())
			for _, pkt := range toSend {
				s.send(pkt)
			}
			for _, e := range events {
				s.bus.Publish(e)
			}
			cancel()
			wg.Wait()
			return

		case raw := <-datagrams:
			toSend, events := eng.HandleDatagram(raw, time.Now())
			for _, pkt := range toSend {
				s.send(pkt)
			}
			for _, e := range events {
				if e.Kind == EventWorldReady {
					s.setSnapshot(e.Snapshot)
				}
				s.bus.Publish(e)
				if e.Kind == EventDisconnected {
					cancel()
					wg.Wait()
					return
				}
			}

		case a := <-s.actions:
			eng.QueueAction(a)

		case c := <-s.checks:
			eng.ReportExpectedChecksum(c.tick, c.expected)

		case now := <-ticker.C:
			toSend, events := eng.Tick(now)
			for _, pkt := range toSend {
				s.send(pkt)
			}
			for _, e := range events {
				s.bus.Publish(e)
				if e.Kind == EventDisconnected {
					cancel()
					wg.Wait()
					return
				}
			}
		}
	}
}

func (s *Session) send(pkt []byte) {
	if _, err := s.conn.Write(pkt); err != nil {
		s.log.Warn("failed to write outbound datagram", zap.Error(err))
	}
}

// Submit queues an input action for delivery on the next outbound
// heartbeat. It returns QueueFull if the queue has no room, or
// SessionClosed if the session has already torn down.
func (s *Session) Submit(a protocol.InputAction) error {
	if s.isClosed() {
		return &ferrors.SessionClosed{}
	}
	select {
	case s.actions <- a:
		return nil
	default:
		return &ferrors.QueueFull{}
	}
}

// ReportExpectedChecksum forwards an externally computed expected
// checksum for tick to the engine, for comparison against whatever
// the server confirms (spec.md §7 DesyncSuspected).
func (s *Session) ReportExpectedChecksum(tick, expected uint32) error {
	if s.isClosed() {
		return &ferrors.SessionClosed{}
	}
	select {
	case s.checks <- checksumReport{tick: tick, expected: expected}:
		return nil
	default:
		return &ferrors.QueueFull{}
	}
}

// Events opens an independent subscription to the session's event
// stream (spec.md §6). The channel closes once the session ends.
func (s *Session) Events() <-chan Event {
	return s.bus.Subscribe()
}

// Disconnect requests a graceful shutdown; it returns once the
// session's I/O goroutine has fully stopped.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.closeCh)
	<-s.done
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Session) setSnapshot(snap savedecode.WorldSnapshot) {
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
}

// Snapshot returns a read-only copy of the current world snapshot
// (spec.md §6), zero value until the map transfer has completed and
// WorldReady has fired. Callers that need to react to the snapshot
// becoming available should watch the event stream instead.
func (s *Session) Snapshot() savedecode.WorldSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

package sim

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/xpdeck/xpdeck/internal/discovery"
	"github.com/xpdeck/xpdeck/internal/logging"
	"github.com/xpdeck/xpdeck/internal/protocol"
)

const (
	// Time allowed to write a packet to the host
	writeWait = 10 * time.Second

	// Largest packet accepted: a full center framebuffer plus header
	maxMessageSize = protocol.HeaderSize + 10 + protocol.CenterWidth*protocol.ScreenHeight*2

	shutdownTimeout = 10 * time.Second
)

// Config holds the simulator configuration
type Config struct {
	Host       string
	Port       int
	Name       string // mDNS instance name
	Advertise  bool   // register on mDNS so discovery finds the panel
	CaptureDir string // directory for packet captures (empty = disabled)
}

// peer is one connected host.
type peer struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (p *peer) write(data []byte) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return p.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Server is a simulated Loupedeck Live reachable over WebSocket.
type Server struct {
	config   *Config
	hw       *Hardware
	capture  *Capture
	upgrader websocket.Upgrader

	listener net.Listener
	http     *http.Server
	mdns     *zeroconf.Server

	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]*peer

	tx      protocol.TxCounter
	updates chan struct{}
}

// New creates a simulator with a blank panel.
func New(config *Config) (*Server, error) {
	capture, err := NewCapture(config.CaptureDir)
	if err != nil {
		return nil, err
	}
	s := &Server{
		config:      config,
		hw:          NewHardware(),
		capture:     capture,
		activeConns: make(map[string]*peer),
		updates:     make(chan struct{}, 1),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWebSocket)
	s.http = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return s, nil
}

// Hardware returns the simulated panel state.
func (s *Server) Hardware() *Hardware { return s.hw }

// Updates signals, coalesced, whenever the panel looks different.
func (s *Server) Updates() <-chan struct{} { return s.updates }

// Listen binds the listening socket. Port 0 picks a free port.
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	logging.Info("Simulated panel listening",
		zap.String("addr", listener.Addr().String()),
		zap.String("serial", Serial),
	)
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start serves until ctx is done, then shuts down.
func (s *Server) Start(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	if s.config.Advertise {
		if err := s.advertise(); err != nil {
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		}
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.http.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Stopping simulated panel...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) advertise() error {
	tcp, ok := s.listener.Addr().(*net.TCPAddr)
	if !ok {
		return fmt.Errorf("unexpected listener address %s", s.listener.Addr())
	}
	name := s.config.Name
	if name == "" {
		name = "xpdeck-sim"
	}
	text := []string{"serial=" + Serial, "version=" + FirmwareVersion}
	mdns, err := zeroconf.Register(name, discovery.ServiceType, discovery.ServiceDomain, tcp.Port, text, nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}
	s.mdns = mdns
	logging.Info("Advertising on mDNS",
		zap.String("instance", name),
		zap.String("service", discovery.ServiceType),
		zap.Int("port", tcp.Port),
	)
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}
	remoteAddr := conn.RemoteAddr().String()
	p := &peer{conn: conn}

	s.wg.Add(1)
	s.mu.Lock()
	s.activeConns[remoteAddr] = p
	s.mu.Unlock()

	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
		logging.LogConnection(remoteAddr, "connection_closed")
		s.wg.Done()
	}()

	logging.LogConnection(remoteAddr, "connection_accepted")
	conn.SetReadLimit(maxMessageSize)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Info("Connection closed or error reading message",
					zap.String("remote_addr", remoteAddr),
					zap.Error(err),
				)
			}
			return
		}
		if messageType != websocket.BinaryMessage {
			logging.Warn("Ignoring non-binary message",
				zap.String("remote_addr", remoteAddr),
				zap.Int("type", messageType),
			)
			continue
		}

		s.capture.Record(remoteAddr, HostToPanel, data)
		res, err := HandleMessage(s.hw, remoteAddr, data)
		if err != nil {
			continue
		}
		if res.Reply != nil {
			s.capture.Record(remoteAddr, PanelToHost, res.Reply)
			if err := p.write(res.Reply); err != nil {
				logging.Error("Failed to send reply",
					zap.String("remote_addr", remoteAddr),
					zap.Error(err),
				)
				return
			}
		}
		if res.Changed {
			s.notify()
		}
	}
}

func (s *Server) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// broadcast sends an input packet to every connected host.
func (s *Server) broadcast(data []byte) error {
	s.mu.Lock()
	peers := make(map[string]*peer, len(s.activeConns))
	for addr, p := range s.activeConns {
		peers[addr] = p
	}
	s.mu.Unlock()

	if len(peers) == 0 {
		return ErrNoHost
	}
	logging.LogPacket("sent", data[1], data[protocol.HeaderSize:])
	var errs []error
	for addr, p := range peers {
		s.capture.Record(addr, PanelToHost, data)
		if err := p.write(data); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", addr, err))
		}
	}
	return errors.Join(errs...)
}

// ErrNoHost is returned when input is generated with no host connected.
var ErrNoHost = errors.New("no host connected")

// Click presses and releases a round button or knob.
func (s *Server) Click(button byte) error {
	if err := s.broadcast(protocol.BuildButton(s.tx.Next(), button, true)); err != nil {
		return err
	}
	return s.broadcast(protocol.BuildButton(s.tx.Next(), button, false))
}

// Rotate turns a knob by delta clicks.
func (s *Server) Rotate(button byte, delta int8) error {
	return s.broadcast(protocol.BuildRotate(s.tx.Next(), button, delta))
}

// Touch puts finger id down at (x, y) on the glass, or lifts it.
func (s *Server) Touch(x, y int, id byte, end bool) error {
	return s.broadcast(protocol.BuildTouch(s.tx.Next(), x, y, id, end))
}

// Shutdown stops the server and closes every host connection.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.mdns != nil {
		s.mdns.Shutdown()
		s.mdns = nil
	}

	err := s.http.Shutdown(ctx)

	// hijacked connections are not closed by http.Server
	s.mu.Lock()
	for addr, p := range s.activeConns {
		logging.Info("Closing active connection", zap.String("remote_addr", addr))
		_ = p.conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	if cerr := s.capture.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// ActiveConnections returns the number of connected hosts.
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

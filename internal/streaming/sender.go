// Package streaming serves undecoded RAW10 frames to a single TCP client.
package streaming

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/smazurov/mxcamera/internal/events"
	"github.com/smazurov/mxcamera/internal/frame"
	"github.com/smazurov/mxcamera/internal/logging"
	"github.com/smazurov/mxcamera/internal/metrics"
	"github.com/smazurov/mxcamera/internal/state"
	"github.com/smazurov/mxcamera/internal/wire"
)

// ErrSendFailure wraps the write error that ended a client session.
var ErrSendFailure = errors.New("send failed")

var errTCPDisabled = errors.New("tcp streaming disabled")

const (
	DefaultAddr          = ":8888"
	DefaultSendBuffer    = 2 << 20
	DefaultAcceptTimeout = time.Second
	DefaultWaitTimeout   = time.Second
	DefaultWriteTimeout  = 2 * time.Second
)

// Config tunes the sender.
type Config struct {
	Addr          string
	ChunkSize     int
	SendBuffer    int
	AcceptTimeout time.Duration
	// WaitTimeout bounds one wait for a fresh frame; flags and shutdown are
	// re-checked after each wait.
	WaitTimeout  time.Duration
	WriteTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = wire.DefaultChunkSize
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = DefaultSendBuffer
	}
	if c.AcceptTimeout <= 0 {
		c.AcceptTimeout = DefaultAcceptTimeout
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = DefaultWaitTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	return c
}

// ClientInfo describes the connected client.
type ClientInfo struct {
	SessionID  string
	RemoteAddr string
	Since      time.Time
	FramesSent uint64
}

type session struct {
	id     string
	remote string
	since  time.Time
	sent   atomic.Uint64
}

// Sender accepts one client at a time and streams every new slot frame to
// it as a wire frame.
type Sender struct {
	slot   *frame.Slot
	flags  *state.Flags
	bus    events.Publisher
	cfg    Config
	logger *slog.Logger

	mu   sync.Mutex
	ln   *net.TCPListener
	addr string

	client atomic.Pointer[session]

	// Owned by the Run goroutine.
	frameID uint32
	payload []byte
	header  wire.Header
	seq     uint64

	acceptLog rate.Sometimes
}

// NewSender creates a sender. bus may be nil.
func NewSender(slot *frame.Slot, flags *state.Flags, cfg Config, bus events.Publisher) *Sender {
	cfg = cfg.withDefaults()
	return &Sender{
		slot:      slot,
		flags:     flags,
		bus:       bus,
		cfg:       cfg,
		addr:      cfg.Addr,
		logger:    logging.GetLogger("streaming"),
		acceptLog: rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
}

// Listen binds the listener. Run calls it lazily; calling it up front
// surfaces bind errors at startup.
func (s *Sender) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return nil
	}
	addr, err := net.ResolveTCPAddr("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", s.addr, err)
	}
	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.ln = ln
	// Rebinding after a disable keeps the port picked for ":0".
	s.addr = ln.Addr().String()
	s.logger.Info("TCP streaming listening", "addr", s.addr)
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Sender) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Connected reports whether a client is attached.
func (s *Sender) Connected() bool { return s.client.Load() != nil }

// Client returns the attached client, if any.
func (s *Sender) Client() (ClientInfo, bool) {
	c := s.client.Load()
	if c == nil {
		return ClientInfo{}, false
	}
	return ClientInfo{SessionID: c.id, RemoteAddr: c.remote, Since: c.since, FramesSent: c.sent.Load()}, true
}

func (s *Sender) closeListener() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		_ = s.ln.Close()
		s.ln = nil
		s.logger.Info("TCP streaming listener closed", "addr", s.addr)
	}
}

func (s *Sender) listener() *net.TCPListener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ln
}

// Run serves clients until ctx is cancelled or the slot is closed. Client
// failures never end the loop.
func (s *Sender) Run(ctx context.Context) error {
	defer s.closeListener()

	for {
		if ctx.Err() != nil {
			return nil
		}

		changed := s.flags.Changed()
		if !s.flags.TCPEnabled() {
			s.closeListener()
			select {
			case <-ctx.Done():
				return nil
			case <-changed:
			}
			continue
		}

		if err := s.Listen(); err != nil {
			s.acceptLog.Do(func() { s.logger.Error("TCP listen failed", "error", err) })
			if !sleepCtx(ctx, s.cfg.AcceptTimeout) {
				return nil
			}
			continue
		}

		conn, err := s.accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() || errors.Is(err, net.ErrClosed) {
				continue
			}
			s.acceptLog.Do(func() { s.logger.Warn("Accept failed", "error", err) })
			continue
		}

		if closed := s.serve(ctx, conn); closed {
			return nil
		}
	}
}

func (s *Sender) accept() (*net.TCPConn, error) {
	ln := s.listener()
	if ln == nil {
		return nil, net.ErrClosed
	}
	if err := ln.SetDeadline(time.Now().Add(s.cfg.AcceptTimeout)); err != nil {
		return nil, err
	}
	return ln.AcceptTCP()
}

// serve streams to one client until it fails. It returns true if the slot
// was closed.
func (s *Sender) serve(ctx context.Context, conn *net.TCPConn) (slotClosed bool) {
	if err := conn.SetNoDelay(true); err != nil {
		s.logger.Debug("TCP_NODELAY not set", "error", err)
	}
	if err := conn.SetWriteBuffer(s.cfg.SendBuffer); err != nil {
		s.logger.Debug("SO_SNDBUF not set", "error", err)
	}

	sess := &session{id: uuid.NewString(), remote: conn.RemoteAddr().String(), since: time.Now()}
	s.client.Store(sess)
	metrics.SetClientConnected(true)
	s.logger.Info("Client connected", "session_id", sess.id, "remote", sess.remote)
	s.publish(events.ClientConnectedEvent{
		SessionID:  sess.id,
		RemoteAddr: sess.remote,
		Timestamp:  sess.since.Format(time.RFC3339),
	})

	// Unblock a write in progress on shutdown.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Unix(1, 0)) })

	reason := s.stream(ctx, conn, sess)

	stop()
	_ = conn.Close()
	s.client.Store(nil)
	metrics.SetClientConnected(false)

	level := slog.LevelInfo
	if errors.Is(reason, ErrSendFailure) {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "Client disconnected",
		"session_id", sess.id, "remote", sess.remote, "frames_sent", sess.sent.Load(), "reason", reason)
	s.publish(events.ClientDisconnectedEvent{
		SessionID:  sess.id,
		RemoteAddr: sess.remote,
		FramesSent: sess.sent.Load(),
		Reason:     reason.Error(),
		Timestamp:  time.Now().Format(time.RFC3339),
	})
	return errors.Is(reason, frame.ErrClosed)
}

// stream sends frames newer than the last one sent until something ends
// the session, and returns what did.
func (s *Sender) stream(ctx context.Context, conn net.Conn, sess *session) error {
	w := wire.NewWriter(&deadlineWriter{ctx: ctx, conn: conn, timeout: s.cfg.WriteTimeout}, s.cfg.ChunkSize)
	var after uint64

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.flags.TCPEnabled() {
			return errTCPDisabled
		}

		err := s.slot.WaitBorrow(ctx, after, s.cfg.WaitTimeout, s.copyOut)
		switch {
		case errors.Is(err, frame.ErrWaitTimeout):
			continue
		case err != nil:
			return err
		}
		after = s.seq

		s.header.FrameID = s.frameID
		if err := w.WriteFrame(ctx, s.header, s.payload); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			metrics.IncSendFailures()
			return fmt.Errorf("%w: %w", ErrSendFailure, err)
		}
		s.frameID++
		sess.sent.Add(1)
		metrics.AddFrameSent(1)
	}
}

// copyOut runs under the slot lock and copies the frame into the sender's
// own buffer so no socket I/O happens while the lock is held.
func (s *Sender) copyOut(f *frame.Frame) {
	if cap(s.payload) < len(f.Data) {
		s.payload = make([]byte, len(f.Data))
	}
	s.payload = s.payload[:len(f.Data)]
	copy(s.payload, f.Data)
	s.seq = f.Sequence
	s.header = wire.Header{
		Width:       uint32(f.Width),
		Height:      uint32(f.Height),
		PixelFormat: f.PixelFormat,
		Timestamp:   f.Timestamp,
	}
}

func (s *Sender) publish(ev events.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}

// deadlineWriter arms a fresh write deadline for every write so a stalled
// client fails instead of blocking the sender forever.
type deadlineWriter struct {
	ctx     context.Context
	conn    net.Conn
	timeout time.Duration
}

func (d *deadlineWriter) Write(b []byte) (int, error) {
	if err := d.ctx.Err(); err != nil {
		return 0, err
	}
	if err := d.conn.SetWriteDeadline(time.Now().Add(d.timeout)); err != nil {
		return 0, err
	}
	n, err := d.conn.Write(b)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return n, fmt.Errorf("client stalled: %w", err)
	}
	return n, err
}

var _ io.Writer = (*deadlineWriter)(nil)

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

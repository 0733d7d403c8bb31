// File: internal/session/client.go
//
// Package session implements the client side of the automation-daemon
// protocol and the daemon's lifecycle supervision. One Client is bound to one
// session identity: one socket endpoint, one daemon process, one profile.
package session

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/krellwind/tether/internal/config"
	"github.com/krellwind/tether/internal/proc"
	"github.com/krellwind/tether/internal/protocol"
	"github.com/krellwind/tether/internal/statestore"
	"go.uber.org/zap"
)

const readChunkSize = 64 << 10

// ActivityRecorder receives a best-effort heartbeat on every outbound
// command. Implementations must never fail the caller.
type ActivityRecorder interface {
	Touch()
}

// Client speaks the newline-delimited JSON protocol with the automation
// daemon for a single session identity. Calls block synchronously on the
// socket; the protocol is strictly half-duplex, so a Client must not be
// shared across goroutines.
type Client struct {
	log     *zap.Logger
	session string
	headed  bool

	socketPath      string
	daemonCmd       []string
	cmdTimeout      time.Duration
	probeTimeout    time.Duration
	startupTimeout  time.Duration
	shutdownTimeout time.Duration

	recorder ActivityRecorder
	states   *statestore.Store

	conn   net.Conn
	buf    protocol.LineBuffer
	nextID int

	// Seams for lifecycle plumbing; tests substitute these the way the
	// supervisor design note prescribes (start / isAlive / stop behind a
	// narrow boundary).
	dial      func(timeout time.Duration) (net.Conn, error)
	probe     func() bool
	spawn     func() error
	awaitGone func(timeout time.Duration) bool

	startupPoll time.Duration
	gonePoll    time.Duration
}

// Option customizes a Client at construction.
type Option func(*Client)

// WithHeaded requests a visible browser window. Headed/headless is fixed at
// daemon start, so connecting headed restarts a running daemon.
func WithHeaded(headed bool) Option {
	return func(c *Client) { c.headed = headed }
}

// WithSession overrides the configured session identity.
func WithSession(id string) Option {
	return func(c *Client) { c.session = id }
}

// WithRecorder wires the activity tracker heartbeat.
func WithRecorder(r ActivityRecorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithStateStore enables best-effort storage-state restore at connect time.
func WithStateStore(s *statestore.Store) Option {
	return func(c *Client) { c.states = s }
}

// New builds a Client bound to the configured session identity.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		log:             logger.Named("session"),
		session:         cfg.Session.ID,
		daemonCmd:       cfg.Daemon.Command,
		cmdTimeout:      cfg.Session.CommandTimeout,
		probeTimeout:    cfg.Session.ProbeTimeout,
		startupTimeout:  cfg.Daemon.StartupTimeout,
		shutdownTimeout: cfg.Daemon.ShutdownTimeout,
		startupPoll:     time.Second,
		gonePoll:        500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.socketPath = cfg.SocketPath(c.session)

	c.dial = func(timeout time.Duration) (net.Conn, error) {
		return net.DialTimeout("unix", c.socketPath, timeout)
	}
	c.probe = c.probeSocket
	c.spawn = c.spawnDaemon
	c.awaitGone = c.pollSocketGone
	return c
}

// Session returns the session identity this client is bound to.
func (c *Client) Session() string { return c.session }

// Connected reports whether a command connection is established.
func (c *Client) Connected() bool { return c.conn != nil }

// DaemonRunning reports whether the socket endpoint accepts connections.
// Liveness is inferred from an open+close probe, never from a registry.
func (c *Client) DaemonRunning() bool { return c.probe() }

// Connect guarantees a reachable daemon and opens the command connection.
// Headed mode forces a restart of any running daemon first, the launch
// command pins the headless flag, and any persisted storage state for the
// current identity is restored best-effort.
func (c *Client) Connect(ctx context.Context) error {
	if c.headed && c.probe() {
		// Headed/headless cannot be toggled on a live process.
		if _, err := c.Shutdown(c.shutdownTimeout); err != nil {
			c.log.Warn("Restart for headed mode failed to stop daemon", zap.Error(err))
		}
	}

	if !c.probe() {
		if err := c.startDaemon(ctx); err != nil {
			return err
		}
	}

	conn, err := c.dial(c.cmdTimeout)
	if err != nil {
		return protocol.NewError(protocol.CodeDaemonUnavailable,
			"cannot connect to automation daemon",
			"check that the daemon binary is installed and the socket directory is writable")
	}
	c.conn = conn
	c.buf.Reset()

	if _, err := c.Launch(!c.headed); err != nil {
		c.Close()
		return err
	}

	if c.states != nil {
		if state, err := c.states.LoadCurrent(); err == nil {
			if err := c.SetStorageState(state); err != nil {
				// Restore is best-effort; a stale state must not fail connect.
				c.log.Warn("Storage state restore failed", zap.Error(err))
			}
		}
	}
	return nil
}

// Close drops the command connection without stopping the daemon.
func (c *Client) Close() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.buf.Reset()
}

// Send issues one command and blocks for its response. Params are flattened
// into the request object. The returned map is the daemon's data payload.
func (c *Client) Send(action string, params map[string]any) (map[string]any, error) {
	if c.conn == nil {
		return nil, protocol.NewError(protocol.CodeNotConnected,
			"not connected to automation daemon", "call Connect first")
	}

	c.nextID++
	line, err := protocol.EncodeCommand(strconv.Itoa(c.nextID), action, params)
	if err != nil {
		return nil, err
	}

	if c.recorder != nil {
		// Heartbeat before the command so even a hung daemon leaves a trace.
		c.recorder.Touch()
	}

	deadline := time.Now().Add(c.cmdTimeout)
	_ = c.conn.SetDeadline(deadline)
	if _, err := c.conn.Write(line); err != nil {
		return nil, c.mapNetError(err)
	}

	resp, err := c.readResponse()
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, protocol.NewError(protocol.CodeCommandFailed, resp.Error,
			"retry the command or restart the daemon")
	}
	return resp.Data, nil
}

// readResponse accumulates socket reads until one full line is buffered and
// decodes exactly that line; surplus bytes stay buffered for the next call.
func (c *Client) readResponse() (*protocol.Response, error) {
	chunk := make([]byte, readChunkSize)
	for {
		if line, ok := c.buf.Line(); ok {
			return protocol.DecodeResponse(line)
		}

		n, err := c.conn.Read(chunk)
		if n > 0 {
			c.buf.Append(chunk[:n])
			continue
		}
		if err == nil {
			continue
		}
		return nil, c.mapNetError(err)
	}
}

func (c *Client) mapNetError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return protocol.NewError(protocol.CodeTimeout,
			"daemon response timeout", "operation took too long, try again")
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
		return protocol.NewError(protocol.CodeConnectionClosed,
			"daemon closed the connection", "reconnect to the daemon")
	}
	return protocol.NewError(protocol.CodeConnectionClosed, err.Error(), "reconnect to the daemon")
}

// Shutdown stops the daemon for this session. Idempotent: with no live
// connection and no reachable daemon it returns false without error.
// Otherwise it sends close (over the live connection, or a short-lived probe
// connection) and reports whether the socket endpoint disappeared within the
// timeout.
func (c *Client) Shutdown(timeout time.Duration) (bool, error) {
	if c.conn == nil && !c.probe() {
		return false, nil
	}

	if c.conn != nil {
		// The daemon may exit before acking; any error here is expected.
		if _, err := c.Send("close", nil); err != nil {
			c.log.Debug("Close command returned error", zap.Error(err))
		}
		c.Close()
	} else {
		c.sendCloseOverProbe()
	}

	return c.awaitGone(timeout), nil
}

// sendCloseOverProbe opens a throwaway connection whose sole purpose is to
// deliver a close command.
func (c *Client) sendCloseOverProbe() {
	conn, err := c.dial(c.probeTimeout)
	if err != nil {
		return
	}
	defer conn.Close()

	c.nextID++
	line, err := protocol.EncodeCommand(strconv.Itoa(c.nextID), "close", nil)
	if err != nil {
		return
	}
	_ = conn.SetDeadline(time.Now().Add(c.probeTimeout))
	if _, err := conn.Write(line); err != nil {
		return
	}
	// Drain the ack if the daemon sends one before dying.
	ack := make([]byte, 4096)
	_, _ = conn.Read(ack)
}

// startDaemon spawns the automation process detached and polls the endpoint
// once per second until it is reachable or the startup timeout elapses.
func (c *Client) startDaemon(ctx context.Context) error {
	c.log.Info("Starting automation daemon",
		zap.String("session", c.session),
		zap.String("socket", c.socketPath))

	if err := c.spawn(); err != nil {
		return protocol.NewError(protocol.CodeDaemonUnavailable,
			"automation daemon failed to start: "+err.Error(),
			"check that the daemon binary is installed and on PATH")
	}

	deadline := time.Now().Add(c.startupTimeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.startupPoll):
		}
		if c.probe() {
			c.log.Info("Automation daemon is ready")
			return nil
		}
	}
	return protocol.NewError(protocol.CodeDaemonUnavailable,
		"automation daemon failed to start within timeout",
		"check the daemon binary and its logs")
}

func (c *Client) spawnDaemon() error {
	_, err := proc.StartDetached(c.daemonCmd, config.EnvSession+"="+c.session)
	return err
}

// probeSocket infers daemon liveness: the endpoint exists and accepts a
// connection that is immediately closed.
func (c *Client) probeSocket() bool {
	if _, err := os.Stat(c.socketPath); err != nil {
		return false
	}
	conn, err := net.DialTimeout("unix", c.socketPath, c.probeTimeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// pollSocketGone waits for the endpoint to stop answering probes.
func (c *Client) pollSocketGone(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if !c.probe() {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		time.Sleep(c.gonePoll)
	}
}

// Supervisor exposes the daemon lifecycle behind the narrow supervision
// contract so call sites never depend on the polling mechanics.
func (c *Client) Supervisor() proc.Supervisor {
	return &daemonSupervisor{c: c}
}

type daemonSupervisor struct {
	c *Client
}

func (s *daemonSupervisor) Start() error {
	return s.c.startDaemon(context.Background())
}

func (s *daemonSupervisor) IsAlive() bool { return s.c.probe() }

func (s *daemonSupervisor) Stop(timeout time.Duration) (bool, error) {
	return s.c.Shutdown(timeout)
}

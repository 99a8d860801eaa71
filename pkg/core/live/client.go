package live

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-go/codedrill/pkg/core/live/protocol"
)

// Transport is the bidirectional message stream a session runs over. It is
// satisfied by Client and by in-process fakes in tests.
type Transport interface {
	// Send marshals and writes one client message. Safe for concurrent use.
	Send(msg *protocol.ClientMessage) error
	// Recv returns the channel of parsed server messages. The channel is
	// closed when the connection ends; Err reports why.
	Recv() <-chan *protocol.ServerMessage
	// Err returns the terminal read error, if any, after Recv is closed.
	Err() error
	// Close tears the connection down. Idempotent.
	Close() error
}

// Client is a WebSocket connection to the realtime generative service. It
// performs the setup handshake on dial and then relays messages both ways.
type Client struct {
	conn    *websocket.Conn
	logger  *slog.Logger
	writeMu sync.Mutex

	recvCh    chan *protocol.ServerMessage
	closeOnce sync.Once
	closed    atomic.Bool

	errMu   sync.Mutex
	readErr error
}

// DialOptions configures Connect.
type DialOptions struct {
	// URL overrides the default service endpoint. Used by tests.
	URL string
	// APIKey is sent as the x-goog-api-key header.
	APIKey string
	// HandshakeTimeout bounds the dial plus setup exchange. Default 15s.
	HandshakeTimeout time.Duration
	// Logger receives transport-level logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// Connect dials the service, sends the setup message, and waits for the
// setupComplete acknowledgement before returning. The returned client is
// ready for realtime input.
func Connect(ctx context.Context, setup *protocol.Setup, opts DialOptions) (*Client, error) {
	url := opts.URL
	if url == "" {
		url = protocol.WebSocketURL
	}
	timeout := opts.HandshakeTimeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	header := http.Header{}
	if opts.APIKey != "" {
		header.Set("x-goog-api-key", opts.APIKey)
	}

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		return nil, Classify(err, "websocket dial failed")
	}

	c := &Client{
		conn:   conn,
		logger: logger,
		recvCh: make(chan *protocol.ServerMessage, 64),
	}

	if err := c.Send(&protocol.ClientMessage{Setup: setup}); err != nil {
		conn.Close()
		return nil, Classify(err, "sending setup")
	}

	// The first server message must be the setup acknowledgement.
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		conn.Close()
		return nil, Classify(err, "arming handshake deadline")
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, Classify(err, "awaiting setup acknowledgement")
	}
	msg, err := protocol.ParseServerMessage(data)
	if err != nil {
		conn.Close()
		return nil, Classify(err, "parsing setup acknowledgement")
	}
	if msg.SetupComplete == nil {
		conn.Close()
		return nil, newError(KindGeneric, "server did not acknowledge setup", nil)
	}
	conn.SetReadDeadline(time.Time{})

	logger.Debug("live session established", "model", setup.Model)
	go c.readLoop()
	return c, nil
}

// Send implements Transport.
func (c *Client) Send(msg *protocol.ClientMessage) error {
	if c.closed.Load() {
		return newError(KindNetwork, "connection closed", nil)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(msg)
}

// Recv implements Transport.
func (c *Client) Recv() <-chan *protocol.ServerMessage {
	return c.recvCh
}

// Err implements Transport.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.readErr
}

// Close implements Transport. The first call sends a normal-closure frame;
// subsequent calls are no-ops.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.writeMu.Lock()
		deadline := time.Now().Add(time.Second)
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *Client) readLoop() {
	defer close(c.recvCh)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !c.closed.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.setReadErr(Classify(err, "connection lost"))
			}
			return
		}
		msg, err := protocol.ParseServerMessage(data)
		if err != nil {
			// Malformed frames are logged and skipped; one bad frame
			// must not end the session.
			c.logger.Warn("dropping malformed server message", "error", err)
			continue
		}
		select {
		case c.recvCh <- msg:
		default:
			c.logger.Warn("server message dropped, receiver too slow")
		}
	}
}

func (c *Client) setReadErr(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.readErr == nil {
		c.readErr = err
	}
}

// Package client maintains the TCP connection to an SBS-1 feed and moves
// framed records into a sink.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/saviobatista/sbs-capture/internal/config"
	"github.com/saviobatista/sbs-capture/internal/frame"
	"github.com/saviobatista/sbs-capture/internal/parser"
	"github.com/saviobatista/sbs-capture/internal/sink"
	"github.com/saviobatista/sbs-capture/internal/stats"
)

// Connection states as reported in logs and status snapshots.
const (
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateConnected    = "connected"
	StateTerminated   = "terminated"
)

const readBufferSize = 4096

// Client owns one upstream connection and its read loop. A lost connection
// is retried after a fixed delay; sink failures terminate the run.
type Client struct {
	cfg   *config.Config
	sink  sink.Sink
	stats *stats.Stats
	log   logrus.FieldLogger

	firstRecordLogged bool
}

// New creates a capture client. The sink and stats are owned by the caller.
func New(cfg *config.Config, snk sink.Sink, st *stats.Stats, log logrus.FieldLogger) *Client {
	return &Client{
		cfg:   cfg,
		sink:  snk,
		stats: st,
		log:   log,
	}
}

// Run connects and captures until the context is cancelled, the configured
// run duration elapses, or a terminal failure occurs. The returned error is
// nil for a clean shutdown.
func (c *Client) Run(ctx context.Context) error {
	if c.cfg.RunDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RunDuration)
		defer cancel()
	}

	defer func() {
		c.setState(StateTerminated)
		c.logSummary()
	}()

	decoder := frame.NewDecoder(c.cfg.MaxLineBytes)

	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.WithError(err).WithField("addr", c.cfg.Addr()).Error("Connection failed")
			c.setState(StateDisconnected)
			if !c.cfg.Reconnect {
				return fmt.Errorf("failed to connect to %s: %w", c.cfg.Addr(), err)
			}
			if !c.waitReconnect(ctx) {
				return nil
			}
			continue
		}

		decoder.Reset()
		fatal, err := c.readLoop(ctx, conn, decoder)
		conn.Close()

		if fatal {
			return err
		}
		if err == nil {
			// Context finished while connected.
			return nil
		}

		c.log.WithError(err).WithField("addr", c.cfg.Addr()).Warn("Connection lost")
		c.setState(StateDisconnected)
		if !c.cfg.Reconnect {
			return fmt.Errorf("connection to %s lost: %w", c.cfg.Addr(), err)
		}
		if !c.waitReconnect(ctx) {
			return nil
		}
	}
}

// connect dials the feed, counting the attempt and configuring the socket.
func (c *Client) connect(ctx context.Context) (net.Conn, error) {
	attempt := c.stats.IncrementConnectionAttempts()
	c.setState(StateConnecting)
	c.log.WithFields(logrus.Fields{
		"addr":    c.cfg.Addr(),
		"attempt": attempt,
	}).Info("Connecting")

	dialer := net.Dialer{Timeout: c.cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Addr())
	if err != nil {
		return nil, err
	}

	c.configureTCPConn(conn)
	c.setState(StateConnected)
	c.firstRecordLogged = false
	c.log.WithField("addr", c.cfg.Addr()).Info("Connected")
	return conn, nil
}

// configureTCPConn enables keepalive so half-dead links surface as read errors
func (c *Client) configureTCPConn(conn net.Conn) {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	if err := tcpConn.SetKeepAlive(true); err != nil {
		c.log.WithError(err).Warn("Failed to set keepalive")
	}
	if err := tcpConn.SetKeepAlivePeriod(30 * time.Second); err != nil {
		c.log.WithError(err).Warn("Failed to set keepalive period")
	}
	if err := tcpConn.SetNoDelay(true); err != nil {
		c.log.WithError(err).Warn("Failed to set no delay")
	}
}

// readLoop receives and processes data until the context is done (nil error)
// or the connection is lost (non-nil error). fatal reports sink failures,
// which must not be retried.
func (c *Client) readLoop(ctx context.Context, conn net.Conn, decoder *frame.Decoder) (fatal bool, err error) {
	// Unblock the pending read when the context finishes.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	buf := make([]byte, readBufferSize)
	lastData := time.Now()

	for {
		if ctx.Err() != nil {
			return false, nil
		}

		if err := conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
			return false, fmt.Errorf("failed to set read deadline: %w", err)
		}

		n, err := conn.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return false, nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				if idle := time.Since(lastData); idle >= c.cfg.IdleTimeout {
					return false, fmt.Errorf("no data received for %s", idle.Round(time.Second))
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				return false, fmt.Errorf("connection closed by remote host")
			}
			return false, fmt.Errorf("read failed: %w", err)
		}
		if n == 0 {
			return false, fmt.Errorf("connection closed by remote host")
		}

		lastData = time.Now()
		ts := time.Now().UTC()
		c.stats.AddBytesRead(n)

		lines, ferr := decoder.Feed(buf[:n])
		for _, line := range lines {
			if perr := c.processLine(line, ts); perr != nil {
				return true, perr
			}
		}
		if ferr != nil {
			return false, fmt.Errorf("framing failed: %w", ferr)
		}
	}
}

// processLine routes one framed line to the sink according to the output mode.
func (c *Client) processLine(line string, ts time.Time) error {
	c.stats.IncrementLinesRead()

	msg, ok := parser.Parse(line)

	if c.cfg.OutputMode == config.OutputModeRaw {
		if err := c.sink.AppendRaw(line, ts); err != nil {
			return fmt.Errorf("failed to append raw line: %w", err)
		}
		if ok && msg.HasPosition() {
			c.stats.IncrementPositionRecords()
		}
		c.logProgress(c.stats.IncrementRecordsWritten())
		return nil
	}

	if !ok {
		c.stats.IncrementLinesSkipped()
		return nil
	}

	if err := c.sink.Append(msg, ts); err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}
	if msg.HasPosition() {
		c.stats.IncrementPositionRecords()
	}
	c.logProgress(c.stats.IncrementRecordsWritten())
	return nil
}

// logProgress reports the first record after each connect and every 100th
// record overall.
func (c *Client) logProgress(total int64) {
	if !c.firstRecordLogged {
		c.firstRecordLogged = true
		c.log.WithField("records", total).Info("Receiving data")
		return
	}
	if total%100 == 0 {
		c.log.WithField("records", total).Info("Capture progress")
	}
}

// waitReconnect sleeps for the fixed reconnect delay. It returns false when
// the context finished first.
func (c *Client) waitReconnect(ctx context.Context) bool {
	c.log.WithField("delay", c.cfg.ReconnectDelay).Info("Waiting before reconnect")

	timer := time.NewTimer(c.cfg.ReconnectDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (c *Client) setState(state string) {
	c.stats.SetState(state)
}

func (c *Client) logSummary() {
	status := c.stats.Snapshot()
	c.log.WithFields(logrus.Fields{
		"records":             status.RecordsWritten,
		"positions":           status.PositionRecords,
		"lines":               status.LinesRead,
		"skipped":             status.LinesSkipped,
		"bytes":               status.BytesRead,
		"connection_attempts": status.ConnectionAttempts,
		"uptime":              time.Since(status.StartedAt).Round(time.Second).String(),
	}).Info("Capture finished")
}

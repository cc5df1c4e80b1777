package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/saviobatista/sbs-capture/internal/parser"
	"github.com/saviobatista/sbs-capture/internal/types"
)

// cliFlags holds the command line options for the mock feed.
type cliFlags struct {
	port     int
	file     string
	interval time.Duration
	loop     bool
	verbose  bool
}

func main() {
	rootCmd, _ := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() (*cobra.Command, *cliFlags) {
	flags := &cliFlags{}

	rootCmd := &cobra.Command{
		Use:   "replay",
		Short: "Mock SBS-1 BaseStation feed server",
		Long: `Serves an SBS-1 BaseStation feed on a local TCP port so capture
and probe can be exercised without a live receiver.

With --file it replays a recorded SBS log line by line; without one it
generates a synthetic aircraft track: an identification record, a
velocity record, then a stream of airborne position updates.

Example usage:
  replay --port 30003 --interval 100ms --file sbs_2023-01-01.log --loop`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runReplay(flags, newLogger(flags.verbose))
		},
	}

	rootCmd.Flags().IntVar(&flags.port, "port", 30003, "Port to listen on")
	rootCmd.Flags().StringVar(&flags.file, "file", "", "SBS log file to replay (empty generates a synthetic track)")
	rootCmd.Flags().DurationVar(&flags.interval, "interval", time.Second, "Delay between lines")
	rootCmd.Flags().BoolVar(&flags.loop, "loop", false, "Restart the file from the beginning when it runs out")
	rootCmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Verbose logging")

	return rootCmd, flags
}

func newLogger(verbose bool) *logrus.Logger {
	logger := logrus.New()
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}

// lineSource produces feed lines. Next reports false when the source is
// exhausted.
type lineSource interface {
	Next() (string, bool)
}

// fileSource replays the non-blank lines of a recorded SBS log.
type fileSource struct {
	lines []string
	pos   int
	loop  bool
}

func newFileSource(path string, loop bool) (*fileSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay file: %w", err)
	}
	defer file.Close()

	lines := []string{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read replay file: %w", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("no lines to replay in %s", path)
	}

	return &fileSource{lines: lines, loop: loop}, nil
}

func (s *fileSource) Len() int {
	return len(s.lines)
}

func (s *fileSource) Next() (string, bool) {
	if s.pos >= len(s.lines) {
		if !s.loop {
			return "", false
		}
		s.pos = 0
	}
	line := s.lines[s.pos]
	s.pos++
	return line, true
}

// syntheticSource generates a single aircraft flying north, in the shape a
// receiver would report it: identification and velocity once, then position
// updates forever.
type syntheticSource struct {
	hexIdent string
	callsign string
	lat      float64
	lon      float64
	step     int
}

func newSyntheticSource() *syntheticSource {
	return &syntheticSource{
		hexIdent: "A81BD0",
		callsign: "ABW123",
		lat:      36.0,
		lon:      -122.0,
	}
}

func (s *syntheticSource) Next() (string, bool) {
	var tx parser.TransmissionType
	switch s.step {
	case 0:
		tx = parser.TxESAirbornePos
	case 1:
		tx = parser.TxESIdentification
	case 2:
		tx = parser.TxESAirborneVel
	default:
		tx = parser.TxESAirbornePos
		s.lat += 0.01
	}
	s.step++
	return s.message(tx).SBSLine(), true
}

func (s *syntheticSource) message(tx parser.TransmissionType) *types.Message {
	now := time.Now().UTC()

	msg := &types.Message{
		MessageType:      "MSG",
		TransmissionType: intPtr(int(tx)),
		SessionID:        intPtr(1),
		AircraftID:       intPtr(1),
		HexIdent:         strPtr(s.hexIdent),
		FlightID:         intPtr(1),
		DateGenerated:    strPtr(now.Format("2006/01/02")),
		TimeGenerated:    strPtr(now.Format("15:04:05.000")),
		DateLogged:       strPtr(now.Format("2006/01/02")),
		TimeLogged:       strPtr(now.Format("15:04:05.000")),
		OnGround:         boolPtr(false),
	}

	switch tx {
	case parser.TxESIdentification:
		msg.Callsign = strPtr(s.callsign)
	case parser.TxESAirborneVel:
		msg.GroundSpeed = intPtr(300)
		msg.Track = intPtr(315)
		msg.VerticalRate = intPtr(64)
	case parser.TxESAirbornePos:
		msg.Altitude = intPtr(12345)
		msg.Latitude = floatPtr(s.lat)
		msg.Longitude = floatPtr(s.lon)
	}

	return msg
}

// feedServer broadcasts lines to every connected client.
type feedServer struct {
	log   logrus.FieldLogger
	mu    sync.Mutex
	conns []net.Conn
}

func (s *feedServer) acceptLoop(listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		s.log.WithField("remote", conn.RemoteAddr().String()).Info("Client connected")
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
	}
}

// broadcast writes the line to every client, dropping the ones that fail.
func (s *feedServer) broadcast(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alive := s.conns[:0]
	for _, conn := range s.conns {
		if _, err := fmt.Fprintf(conn, "%s\n", line); err != nil {
			s.log.WithField("remote", conn.RemoteAddr().String()).Info("Client disconnected")
			conn.Close()
			continue
		}
		alive = append(alive, conn)
	}
	s.conns = alive
}

func (s *feedServer) connCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *feedServer) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.conns {
		conn.Close()
	}
	s.conns = nil
}

// runReplay contains the main application logic and can be tested
func runReplay(flags *cliFlags, logger *logrus.Logger) error {
	var source lineSource
	if flags.file != "" {
		fs, err := newFileSource(flags.file, flags.loop)
		if err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{
			"file":  flags.file,
			"lines": fs.Len(),
			"loop":  flags.loop,
		}).Info("Replaying recorded feed")
		source = fs
	} else {
		logger.Info("Generating synthetic aircraft track")
		source = newSyntheticSource()
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", flags.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", flags.port, err)
	}
	defer listener.Close()

	logger.WithFields(logrus.Fields{
		"addr":     listener.Addr().String(),
		"interval": flags.interval.String(),
	}).Info("Mock feed listening")

	server := &feedServer{log: logger}
	go server.acceptLoop(listener)
	defer server.closeAll()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ticker := time.NewTicker(flags.interval)
	defer ticker.Stop()

	for {
		select {
		case sig := <-sigChan:
			logger.WithField("signal", sig.String()).Info("Received shutdown signal")
			return nil
		case <-ticker.C:
			line, ok := source.Next()
			if !ok {
				logger.Info("Replay finished")
				return nil
			}
			logger.WithField("line", line).Debug("Broadcasting")
			server.broadcast(line)
		}
	}
}

func intPtr(v int) *int {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}

func strPtr(v string) *string {
	return &v
}

func boolPtr(v bool) *bool {
	return &v
}

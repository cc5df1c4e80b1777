// Package sink provides append-only destinations for captured SBS messages.
package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/saviobatista/sbs-capture/internal/db"
	"github.com/saviobatista/sbs-capture/internal/nats"
	"github.com/saviobatista/sbs-capture/internal/types"
)

// Sink receives captured messages. Append stores a decoded record,
// AppendRaw stores the unparsed line. A sink must not return from either
// method until the row has been handed to its backend.
type Sink interface {
	Append(msg *types.Message, ts time.Time) error
	AppendRaw(raw string, ts time.Time) error
	Close() error
}

// CSVSink writes one timestamped CSV file per capture run.
type CSVSink struct {
	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
	raw  bool
	path string
}

// NewCSVSink creates the output directory and the run's CSV file, and writes
// the header row. With raw set, the file stores unparsed lines instead of
// decoded fields.
func NewCSVSink(outputDir string, raw bool) (*CSVSink, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().UTC().Format("20060102_150405")
	name := fmt.Sprintf("adsb_data_%s.csv", timestamp)
	header := types.DecodedCSVHeader
	if raw {
		name = fmt.Sprintf("raw_adsb_data_%s.csv", timestamp)
		header = types.RawCSVHeader
	}

	path := filepath.Join(outputDir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	return &CSVSink{file: file, w: w, raw: raw, path: path}, nil
}

// Path returns the file this sink writes to.
func (s *CSVSink) Path() string {
	return s.path
}

// Append writes a decoded record. Each row is flushed before returning so a
// crash never loses acknowledged records.
func (s *CSVSink) Append(msg *types.Message, ts time.Time) error {
	if s.raw {
		return fmt.Errorf("csv sink is in raw mode")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.w.Write(msg.CSVRecord(ts)); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

// AppendRaw writes an unparsed line with its receive timestamp.
func (s *CSVSink) AppendRaw(raw string, ts time.Time) error {
	if !s.raw {
		return fmt.Errorf("csv sink is in decoded mode")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.w.Write([]string{ts.UTC().Format(time.RFC3339Nano), raw}); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

// Close flushes pending rows and closes the file.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.w.Flush()
	writeErr := s.w.Error()
	if err := s.file.Close(); err != nil {
		return err
	}
	return writeErr
}

// PostgresSink appends rows to the capture tables.
type PostgresSink struct {
	client *db.Client
	source string
}

// NewPostgresSink wraps an existing database client. The source tag is stored
// with every row.
func NewPostgresSink(client *db.Client, source string) *PostgresSink {
	return &PostgresSink{client: client, source: source}
}

func (s *PostgresSink) Append(msg *types.Message, ts time.Time) error {
	return s.client.InsertMessage(msg, ts, s.source)
}

func (s *PostgresSink) AppendRaw(raw string, ts time.Time) error {
	return s.client.InsertRawMessage(raw, ts, s.source)
}

func (s *PostgresSink) Close() error {
	return s.client.Close()
}

// NATSSink publishes captured messages to JetStream for downstream consumers.
type NATSSink struct {
	client *nats.Client
	source string
}

// NewNATSSink wraps an existing NATS client. The source tag is carried in
// every envelope.
func NewNATSSink(client *nats.Client, source string) *NATSSink {
	return &NATSSink{client: client, source: source}
}

func (s *NATSSink) Append(msg *types.Message, ts time.Time) error {
	return s.client.PublishDecoded(&types.DecodedMessage{
		Record:    msg,
		Timestamp: ts,
		Source:    s.source,
	})
}

func (s *NATSSink) AppendRaw(raw string, ts time.Time) error {
	return s.client.PublishSBSMessage(&types.SBSMessage{
		Raw:       raw,
		Timestamp: ts,
		Source:    s.source,
	})
}

func (s *NATSSink) Close() error {
	s.client.Close()
	return nil
}

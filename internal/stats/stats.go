// Package stats tracks capture counters shared between the connection loop
// and the status heartbeat.
package stats

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/saviobatista/sbs-capture/internal/types"
)

// StatusStore persists capture status snapshots for observers.
type StatusStore interface {
	SetCaptureStatus(ctx context.Context, status *types.CaptureStatus) error
}

// Stats tracks capture statistics. Counter methods are safe to call
// concurrently with Snapshot.
type Stats struct {
	// Counters, updated atomically
	BytesRead          int64
	LinesRead          int64
	RecordsWritten     int64
	LinesSkipped       int64
	PositionRecords    int64
	ConnectionAttempts int64

	runID     string
	source    string
	startedAt time.Time

	mu    sync.RWMutex
	state string
	store StatusStore
}

// New creates a new Stats instance with a fresh run ID.
func New(source string) *Stats {
	return &Stats{
		runID:     uuid.New().String(),
		source:    source,
		startedAt: time.Now().UTC(),
		state:     "disconnected",
	}
}

// RunID returns the run's unique identifier.
func (s *Stats) RunID() string {
	return s.runID
}

// SetStore sets the status store used for heartbeat persistence
func (s *Stats) SetStore(store StatusStore) {
	s.mu.Lock()
	s.store = store
	s.mu.Unlock()
}

// SetState records the current connection state for status snapshots.
func (s *Stats) SetState(state string) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// AddBytesRead adds to the bytes read counter
func (s *Stats) AddBytesRead(n int) {
	atomic.AddInt64(&s.BytesRead, int64(n))
}

// IncrementLinesRead increments the lines read counter
func (s *Stats) IncrementLinesRead() {
	atomic.AddInt64(&s.LinesRead, 1)
}

// IncrementRecordsWritten increments the records written counter and returns
// the new total.
func (s *Stats) IncrementRecordsWritten() int64 {
	return atomic.AddInt64(&s.RecordsWritten, 1)
}

// IncrementLinesSkipped increments the skipped lines counter
func (s *Stats) IncrementLinesSkipped() {
	atomic.AddInt64(&s.LinesSkipped, 1)
}

// IncrementPositionRecords increments the position records counter
func (s *Stats) IncrementPositionRecords() {
	atomic.AddInt64(&s.PositionRecords, 1)
}

// IncrementConnectionAttempts increments the connection attempts counter and
// returns the new total.
func (s *Stats) IncrementConnectionAttempts() int64 {
	return atomic.AddInt64(&s.ConnectionAttempts, 1)
}

// Snapshot returns a copy of the current statistics
func (s *Stats) Snapshot() *types.CaptureStatus {
	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()

	return &types.CaptureStatus{
		RunID:              s.runID,
		Source:             s.source,
		State:              state,
		StartedAt:          s.startedAt,
		UpdatedAt:          time.Now().UTC(),
		BytesRead:          atomic.LoadInt64(&s.BytesRead),
		LinesRead:          atomic.LoadInt64(&s.LinesRead),
		RecordsWritten:     atomic.LoadInt64(&s.RecordsWritten),
		LinesSkipped:       atomic.LoadInt64(&s.LinesSkipped),
		PositionRecords:    atomic.LoadInt64(&s.PositionRecords),
		ConnectionAttempts: atomic.LoadInt64(&s.ConnectionAttempts),
	}
}

// Persist stores the current status snapshot
func (s *Stats) Persist(ctx context.Context) error {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()

	if store == nil {
		return fmt.Errorf("status store not set")
	}
	return store.SetCaptureStatus(ctx, s.Snapshot())
}

// String returns a string representation of the statistics
func (s *Stats) String() string {
	status := s.Snapshot()
	return fmt.Sprintf(
		"Run ID: %s\n"+
			"Source: %s\n"+
			"State: %s\n"+
			"Bytes Read: %d\n"+
			"Lines Read: %d\n"+
			"Records Written: %d\n"+
			"Lines Skipped: %d\n"+
			"Position Records: %d\n"+
			"Connection Attempts: %d\n"+
			"Uptime: %s",
		status.RunID,
		status.Source,
		status.State,
		status.BytesRead,
		status.LinesRead,
		status.RecordsWritten,
		status.LinesSkipped,
		status.PositionRecords,
		status.ConnectionAttempts,
		time.Since(status.StartedAt).Round(time.Second),
	)
}

// StartHeartbeat periodically persists status snapshots until the context is
// cancelled. Persistence failures are logged, never fatal.
func (s *Stats) StartHeartbeat(ctx context.Context, interval time.Duration, log logrus.FieldLogger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final snapshot before shutdown
			if err := s.Persist(context.Background()); err != nil {
				log.WithError(err).Warn("Failed to persist final capture status")
			}
			return
		case <-ticker.C:
			if err := s.Persist(ctx); err != nil {
				log.WithError(err).Warn("Failed to persist capture status")
			}
		}
	}
}

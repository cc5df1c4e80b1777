package testutils

import (
	"context"
	"fmt"
	"time"

	"github.com/saviobatista/sbs-capture/internal/types"
)

// SampleMSGLine builds a well-formed 22-field MSG line for testing
func SampleMSGLine(txType int, hexIdent string) string {
	return fmt.Sprintf("MSG,%d,111,11111,%s,111111,2023/01/01,12:00:00,2023/01/01,12:00:00,TEST123,35000,450,180,40.7128,-74.006,0,1234,0,0,0,0", txType, hexIdent)
}

// MockSBSMessage creates a mock SBS message for testing
func MockSBSMessage(txType int, hexIdent string) *types.SBSMessage {
	return &types.SBSMessage{
		Raw:       SampleMSGLine(txType, hexIdent),
		Timestamp: time.Now().UTC(),
		Source:    "test-source",
	}
}

// WaitForCondition waits for a condition to be true with timeout
func WaitForCondition(condition func() bool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for condition")
		case <-ticker.C:
			if condition() {
				return nil
			}
		}
	}
}

package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/saviobatista/sbs-capture/internal/config"
	"github.com/saviobatista/sbs-capture/internal/frame"
	"github.com/saviobatista/sbs-capture/internal/parser"
)

// cliFlags holds the command line options for the probe.
type cliFlags struct {
	host       string
	port       int
	wait       time.Duration
	maxRecords int
}

// probeResult summarizes what the feed sent during the probe window.
type probeResult struct {
	ConnectTime     time.Duration
	DataReceived    bool
	TotalBytes      int
	Lines           int
	Records         int
	PositionRecords int
	Samples         []string
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
		Use:   "probe",
		Short: "One-shot SBS-1 feed connectivity check",
		Long: `Connects to an SBS-1 BaseStation feed once, waits for data and
reports what arrived: byte and line counts, decodable MSG records,
position-bearing records and a few sample lines.

Useful for checking ADSBHub access before starting a capture. The exit
code is zero only when the feed delivered data.

Example usage:
  probe --host data.adsbhub.org --port 5002 --wait 30s`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Host = flags.host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = flags.port
			}

			return runProbe(cfg.Addr(), cfg.ConnectTimeout, flags.wait, flags.maxRecords, os.Stdout)
		},
	}

	rootCmd.Flags().StringVar(&flags.host, "host", "", "Feed host (overrides HOST)")
	rootCmd.Flags().IntVar(&flags.port, "port", 0, "Feed port (overrides PORT)")
	rootCmd.Flags().DurationVar(&flags.wait, "wait", 30*time.Second, "How long to wait for data")
	rootCmd.Flags().IntVar(&flags.maxRecords, "max-records", 10, "Stop after this many decoded records")

	return rootCmd, flags
}

// runProbe connects once and reports on the data received. It returns an
// error when the connection fails or the feed stays silent.
func runProbe(addr string, connectTimeout, wait time.Duration, maxRecords int, out io.Writer) error {
	fmt.Fprintf(out, "Testing connection to %s\n", addr)
	fmt.Fprintln(out, strings.Repeat("=", 50))

	result, err := probe(addr, connectTimeout, wait, maxRecords, out)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "\nTest results:")
	fmt.Fprintf(out, "- Data received: %s\n", yesNo(result.DataReceived))
	fmt.Fprintf(out, "- Total bytes: %d\n", result.TotalBytes)
	fmt.Fprintf(out, "- Lines: %d\n", result.Lines)
	fmt.Fprintf(out, "- MSG records: %d\n", result.Records)
	fmt.Fprintf(out, "- Position records: %d\n", result.PositionRecords)

	if !result.DataReceived {
		fmt.Fprintln(out, "\nPossible issues:")
		fmt.Fprintln(out, "1. Your IP address may not be registered in your ADSBHub profile")
		fmt.Fprintln(out, "2. You may need to actively feed data to ADSBHub first")
		fmt.Fprintln(out, "3. Account registration may be required")
		fmt.Fprintln(out, "4. Your feeder may need to be currently active")
		return fmt.Errorf("no data received from %s", addr)
	}

	return nil
}

func probe(addr string, connectTimeout, wait time.Duration, maxRecords int, out io.Writer) (*probeResult, error) {
	result := &probeResult{}

	start := time.Now()
	conn, err := net.DialTimeout("tcp", addr, connectTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	result.ConnectTime = time.Since(start)
	fmt.Fprintf(out, "Connected in %.2fs\n", result.ConnectTime.Seconds())
	fmt.Fprintf(out, "Waiting for data (up to %s)...\n", wait)

	deadline := time.Now().Add(wait)
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set read deadline: %w", err)
	}

	decoder := frame.NewDecoder(1 << 20)
	buf := make([]byte, 4096)

	for result.Records < maxRecords {
		n, err := conn.Read(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				break // Probe window elapsed
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out, "Connection closed by server")
				break
			}
			return nil, fmt.Errorf("read failed: %w", err)
		}
		if n == 0 {
			fmt.Fprintln(out, "Connection closed by server")
			break
		}

		if !result.DataReceived {
			fmt.Fprintln(out, "First data received")
			result.DataReceived = true
		}
		result.TotalBytes += n

		lines, err := decoder.Feed(buf[:n])
		if err != nil {
			return nil, fmt.Errorf("framing failed: %w", err)
		}
		for _, line := range lines {
			result.Lines++
			if len(result.Samples) < 3 {
				result.Samples = append(result.Samples, line)
				fmt.Fprintf(out, "Sample message %d: %s\n", len(result.Samples), line)
			}
			if msg, ok := parser.Parse(line); ok {
				result.Records++
				if msg.HasPosition() {
					result.PositionRecords++
				}
			}
		}
	}

	return result, nil
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

package types

import (
	"strconv"
	"strings"
	"time"
)

// Message is a decoded SBS-1 MSG record. Optional fields are pointers;
// nil means the field was empty or unparsable on the wire.
type Message struct {
	MessageType      string   `json:"message_type"`
	TransmissionType *int     `json:"transmission_type,omitempty"`
	SessionID        *int     `json:"session_id,omitempty"`
	AircraftID       *int     `json:"aircraft_id,omitempty"`
	HexIdent         *string  `json:"hex_ident,omitempty"`
	FlightID         *int     `json:"flight_id,omitempty"`
	DateGenerated    *string  `json:"date_generated,omitempty"`
	TimeGenerated    *string  `json:"time_generated,omitempty"`
	DateLogged       *string  `json:"date_logged,omitempty"`
	TimeLogged       *string  `json:"time_logged,omitempty"`
	Callsign         *string  `json:"callsign,omitempty"`
	Altitude         *int     `json:"altitude,omitempty"`
	GroundSpeed      *int     `json:"ground_speed,omitempty"`
	Track            *int     `json:"track,omitempty"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
	VerticalRate     *int     `json:"vertical_rate,omitempty"`
	Squawk           *string  `json:"squawk,omitempty"`
	Alert            *bool    `json:"alert,omitempty"`
	Emergency        *bool    `json:"emergency,omitempty"`
	SPI              *bool    `json:"spi,omitempty"`
	OnGround         *bool    `json:"is_on_ground,omitempty"`
}

// SBSMessage represents a raw SBS line with its ingestion envelope
type SBSMessage struct {
	Raw       string    `json:"raw"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// DecodedMessage pairs a parsed record with its ingestion envelope
type DecodedMessage struct {
	Record    *Message  `json:"record"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// CaptureStatus is a point-in-time snapshot of a running capture session
type CaptureStatus struct {
	RunID              string    `json:"run_id"`
	Source             string    `json:"source"`
	State              string    `json:"state"`
	StartedAt          time.Time `json:"started_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	BytesRead          int64     `json:"bytes_read"`
	LinesRead          int64     `json:"lines_read"`
	RecordsWritten     int64     `json:"records_written"`
	LinesSkipped       int64     `json:"lines_skipped"`
	PositionRecords    int64     `json:"position_records"`
	ConnectionAttempts int64     `json:"connection_attempts"`
}

// DecodedCSVHeader is the column order for decoded output rows.
var DecodedCSVHeader = []string{
	"timestamp",
	"message_type", "transmission_type", "session_id", "aircraft_id",
	"hex_ident", "flight_id",
	"date_generated", "time_generated", "date_logged", "time_logged",
	"callsign", "altitude", "ground_speed", "track",
	"latitude", "longitude", "vertical_rate", "squawk",
	"alert", "emergency", "spi", "is_on_ground",
}

// RawCSVHeader is the column order for raw passthrough rows.
var RawCSVHeader = []string{"timestamp", "raw_message"}

// Fields returns the 22 record fields in wire order. Absent fields render
// as "", booleans as "1"/"0", so a parsed line re-serializes to equivalent
// field values.
func (m *Message) Fields() []string {
	return []string{
		m.MessageType,
		formatInt(m.TransmissionType),
		formatInt(m.SessionID),
		formatInt(m.AircraftID),
		formatString(m.HexIdent),
		formatInt(m.FlightID),
		formatString(m.DateGenerated),
		formatString(m.TimeGenerated),
		formatString(m.DateLogged),
		formatString(m.TimeLogged),
		formatString(m.Callsign),
		formatInt(m.Altitude),
		formatInt(m.GroundSpeed),
		formatInt(m.Track),
		formatFloat(m.Latitude),
		formatFloat(m.Longitude),
		formatInt(m.VerticalRate),
		formatString(m.Squawk),
		formatBool(m.Alert),
		formatBool(m.Emergency),
		formatBool(m.SPI),
		formatBool(m.OnGround),
	}
}

// SBSLine returns the record as a single comma-separated SBS line.
func (m *Message) SBSLine() string {
	return strings.Join(m.Fields(), ",")
}

// CSVRecord returns the decoded output row: the ingestion timestamp in
// RFC3339Nano UTC followed by the 22 record fields.
func (m *Message) CSVRecord(ts time.Time) []string {
	row := make([]string, 0, len(DecodedCSVHeader))
	row = append(row, ts.UTC().Format(time.RFC3339Nano))
	row = append(row, m.Fields()...)
	return row
}

// HasPosition reports whether the record carries both latitude and longitude.
func (m *Message) HasPosition() bool {
	return m.Latitude != nil && m.Longitude != nil
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatBool(v *bool) string {
	if v == nil {
		return ""
	}
	if *v {
		return "1"
	}
	return "0"
}

package db

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/saviobatista/sbs-capture/internal/types"
)

type Client struct {
	db *sql.DB
}

// New creates a new database client
func New(connStr string) (*Client, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	return &Client{db: db}, nil
}

// NewWithDB creates a client around an existing connection pool (useful for testing)
func NewWithDB(db *sql.DB) *Client {
	return &Client{db: db}
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// Ping verifies the database is reachable
func (c *Client) Ping() error {
	return c.db.Ping()
}

// InsertMessage appends a decoded record to sbs_messages. Absent fields
// are stored as NULL.
func (c *Client) InsertMessage(msg *types.Message, ts time.Time, source string) error {
	query := `
		INSERT INTO sbs_messages (
			time, message_type, transmission_type, session_id, aircraft_id,
			hex_ident, flight_id, date_generated, time_generated,
			date_logged, time_logged, callsign, altitude, ground_speed,
			track, latitude, longitude, vertical_rate, squawk,
			alert, emergency, spi, is_on_ground, source
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24
		)
	`
	_, err := c.db.Exec(query,
		ts, msg.MessageType, msg.TransmissionType, msg.SessionID, msg.AircraftID,
		msg.HexIdent, msg.FlightID, msg.DateGenerated, msg.TimeGenerated,
		msg.DateLogged, msg.TimeLogged, msg.Callsign, msg.Altitude, msg.GroundSpeed,
		msg.Track, msg.Latitude, msg.Longitude, msg.VerticalRate, msg.Squawk,
		msg.Alert, msg.Emergency, msg.SPI, msg.OnGround, source,
	)
	return err
}

// InsertRawMessage appends an undecoded line to sbs_raw_messages
func (c *Client) InsertRawMessage(raw string, ts time.Time, source string) error {
	query := `
		INSERT INTO sbs_raw_messages (time, raw, source)
		VALUES ($1, $2, $3)
	`
	_, err := c.db.Exec(query, ts, raw, source)
	return err
}

// CountMessages returns the number of stored decoded records
func (c *Client) CountMessages() (int64, error) {
	var count int64
	err := c.db.QueryRow(`SELECT COUNT(*) FROM sbs_messages`).Scan(&count)
	return count, err
}

// CountRawMessages returns the number of stored raw lines
func (c *Client) CountRawMessages() (int64, error) {
	var count int64
	err := c.db.QueryRow(`SELECT COUNT(*) FROM sbs_raw_messages`).Scan(&count)
	return count, err
}

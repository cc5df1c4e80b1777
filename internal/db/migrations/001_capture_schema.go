package migrations

// CaptureSchema creates the append-only capture tables
var CaptureSchema = &Migration{
	ID:   "001_capture_schema",
	Name: "001_capture_schema",
	UpSQL: `
		-- Decoded MSG records, one row per record. Optional fields are NULL
		-- when absent on the wire.
		CREATE TABLE IF NOT EXISTS sbs_messages (
			time TIMESTAMPTZ NOT NULL,
			message_type TEXT NOT NULL,
			transmission_type INTEGER,
			session_id INTEGER,
			aircraft_id INTEGER,
			hex_ident TEXT,
			flight_id INTEGER,
			date_generated TEXT,
			time_generated TEXT,
			date_logged TEXT,
			time_logged TEXT,
			callsign TEXT,
			altitude INTEGER,
			ground_speed INTEGER,
			track INTEGER,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			vertical_rate INTEGER,
			squawk TEXT,
			alert BOOLEAN,
			emergency BOOLEAN,
			spi BOOLEAN,
			is_on_ground BOOLEAN,
			source TEXT
		);

		-- Undecoded passthrough lines for raw capture mode.
		CREATE TABLE IF NOT EXISTS sbs_raw_messages (
			time TIMESTAMPTZ NOT NULL,
			raw TEXT NOT NULL,
			source TEXT
		);
	`,
	DownSQL: `
		DROP TABLE IF EXISTS sbs_raw_messages;
		DROP TABLE IF EXISTS sbs_messages;
	`,
}

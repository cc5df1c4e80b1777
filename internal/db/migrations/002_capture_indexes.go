package migrations

// CaptureIndexes adds lookup indexes over the capture tables. BRIN suits
// the time columns since rows only ever arrive in timestamp order.
var CaptureIndexes = &Migration{
	ID:   "002_capture_indexes",
	Name: "002_capture_indexes",
	UpSQL: `
		CREATE INDEX IF NOT EXISTS idx_sbs_messages_time
			ON sbs_messages USING BRIN (time);
		CREATE INDEX IF NOT EXISTS idx_sbs_messages_hex_ident
			ON sbs_messages (hex_ident);
		CREATE INDEX IF NOT EXISTS idx_sbs_messages_callsign
			ON sbs_messages (callsign)
			WHERE callsign IS NOT NULL;
		CREATE INDEX IF NOT EXISTS idx_sbs_raw_messages_time
			ON sbs_raw_messages USING BRIN (time);
	`,
	DownSQL: `
		DROP INDEX IF EXISTS idx_sbs_raw_messages_time;
		DROP INDEX IF EXISTS idx_sbs_messages_callsign;
		DROP INDEX IF EXISTS idx_sbs_messages_hex_ident;
		DROP INDEX IF EXISTS idx_sbs_messages_time;
	`,
}

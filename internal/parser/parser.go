package parser

import (
	"strconv"
	"strings"

	"github.com/saviobatista/sbs-capture/internal/types"
)

// TransmissionType distinguishes the eight MSG record subtypes
type TransmissionType int

const (
	// SBS transmission types
	TxESIdentification TransmissionType = 1
	TxESSurfacePos     TransmissionType = 2
	TxESAirbornePos    TransmissionType = 3
	TxESAirborneVel    TransmissionType = 4
	TxSurveillanceAlt  TransmissionType = 5
	TxSurveillanceID   TransmissionType = 6
	TxAirToAir         TransmissionType = 7
	TxAllCallReply     TransmissionType = 8
)

// minFields is the field count of a complete MSG record.
const minFields = 22

// Parse decodes one SBS line into a Message. The boolean is false when the
// line carries no decodable record: empty lines, types other than MSG (the
// feed interleaves SEL, ID, AIR, STA and similar), or fewer than 22 fields.
// Field-level problems never reject the record; an empty or unparsable
// field is stored as absent.
func Parse(line string) (*types.Message, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, false
	}

	fields := strings.Split(line, ",")
	if len(fields) < minFields || fields[0] != "MSG" {
		return nil, false
	}

	return &types.Message{
		MessageType:      fields[0],
		TransmissionType: parseInt(fields[1]),
		SessionID:        parseInt(fields[2]),
		AircraftID:       parseInt(fields[3]),
		HexIdent:         parseString(fields[4]),
		FlightID:         parseInt(fields[5]),
		DateGenerated:    parseString(fields[6]),
		TimeGenerated:    parseString(fields[7]),
		DateLogged:       parseString(fields[8]),
		TimeLogged:       parseString(fields[9]),
		Callsign:         parseString(fields[10]),
		Altitude:         parseInt(fields[11]),
		GroundSpeed:      parseInt(fields[12]),
		Track:            parseInt(fields[13]),
		Latitude:         parseFloat(fields[14]),
		Longitude:        parseFloat(fields[15]),
		VerticalRate:     parseInt(fields[16]),
		Squawk:           parseString(fields[17]),
		Alert:            parseBool(fields[18]),
		Emergency:        parseBool(fields[19]),
		SPI:              parseBool(fields[20]),
		OnGround:         parseBool(fields[21]),
	}, true
}

func parseInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		return &v
	}
	return nil
}

func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return &v
	}
	return nil
}

func parseBool(s string) *bool {
	v := false
	switch strings.TrimSpace(s) {
	case "1":
		v = true
	case "0":
	default:
		return nil
	}
	return &v
}

func parseString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Package skud parses the tab-separated export of the SKUD badge-reader
// system into normalized access events.
package skud

import (
	"regexp"
	"strings"
	"time"

	"gatelog.io/gatelog/core/models"
)

// TimestampLayout is the fixed format of the export's second column.
const TimestampLayout = "02.01.2006 15:04:05"

// AccessGrantedEvent is the only event-type label that produces an event.
const AccessGrantedEvent = "Доступ предоставлен"

const minFields = 10

// Keyword tables for direction classification. Exit keywords are checked
// first so that a description naming both movements classifies as exit.
var (
	exitKeywords  = []string{"Выход", "выход", "Exit", "exit"}
	entryKeywords = []string{"Вход", "вход", "Entry", "entry"}
)

var cardPattern = regexp.MustCompile(`\[(\d+)\]`)

// Event is one normalized badge scan.
type Event struct {
	Timestamp    time.Time
	FullName     string
	CardNumber   string
	DoorLocation string
	Direction    models.Direction
}

// Config carries the exclusion lists. It is an explicit value object passed
// in at construction time; the parser does no ambient config lookups.
type Config struct {
	ExcludeEmployees []string // exact full-name matches
	ExcludeDoors     []string // substring matches on door and description
}

type Parser struct {
	cfg Config
}

func NewParser(cfg Config) *Parser {
	return &Parser{cfg: cfg}
}

// Parse normalizes one line of the raw export. The second return value is
// false when the line carries no usable event: header rows, short rows,
// non-access event types, excluded identities/locations and malformed
// timestamps are all silently dropped. Parsing never fails a batch.
//
// Field order: workstation, timestamp, event type, zone, door, description,
// address, access zone, employee full name, comment.
func (p *Parser) Parse(line string) (Event, bool) {
	parts := strings.Split(line, "\t")
	if len(parts) < minFields {
		return Event{}, false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	// Header row.
	if parts[0] == "РМ" || parts[1] == "Время" {
		return Event{}, false
	}

	eventType := parts[2]
	zone := parts[3]
	door := parts[4]
	description := parts[5]
	fullName := parts[8]

	if eventType != AccessGrantedEvent {
		return Event{}, false
	}
	if fullName == "" || fullName == "-" {
		return Event{}, false
	}
	for _, excluded := range p.cfg.ExcludeEmployees {
		if fullName == excluded {
			return Event{}, false
		}
	}

	doorLocation := door
	if doorLocation == "" || doorLocation == "-" {
		doorLocation = description
	}
	for _, excluded := range p.cfg.ExcludeDoors {
		if strings.Contains(doorLocation, excluded) || strings.Contains(description, excluded) {
			return Event{}, false
		}
	}

	timestamp, err := time.Parse(TimestampLayout, parts[1])
	if err != nil {
		return Event{}, false
	}

	cardNumber := ""
	if m := cardPattern.FindStringSubmatch(zone); m != nil {
		cardNumber = m[1]
	}

	return Event{
		Timestamp:    timestamp,
		FullName:     fullName,
		CardNumber:   cardNumber,
		DoorLocation: doorLocation,
		Direction:    ClassifyDirection(description),
	}, true
}

// ClassifyDirection maps a free-text description onto a direction using the
// keyword tables. Descriptions matching neither table yield
// DirectionUnknown; such events are stored but excluded from lateness and
// lunch derivation.
func ClassifyDirection(description string) models.Direction {
	for _, kw := range exitKeywords {
		if strings.Contains(description, kw) {
			return models.DirectionExit
		}
	}
	for _, kw := range entryKeywords {
		if strings.Contains(description, kw) {
			return models.DirectionEntry
		}
	}
	return models.DirectionUnknown
}

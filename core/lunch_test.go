package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectLunchBreakPairing(t *testing.T) {
	// Exits at 12:50 and 15:10, entry at 15:05: the 15:05 entry completes
	// the 12:50 out for a 135-minute break.
	events := []DayEvent{
		exit(at(12, 50, 0), "door"),
		entry(at(15, 5, 0), "door"),
		exit(at(15, 10, 0), "door"),
	}

	lunch := DetectLunchBreak(events, nil)

	assert.Equal(t, at(12, 50, 0), *lunch.Out)
	assert.Equal(t, at(15, 5, 0), *lunch.In)
	assert.Equal(t, 135, *lunch.DurationMinutes)
}

func TestDetectLunchBreakIgnoresDeadWindow(t *testing.T) {
	// An entry at 13:30 sits inside the excluded 13:00–14:30 window and must
	// never be treated as a lunch-in.
	events := []DayEvent{
		exit(at(12, 50, 0), "door"),
		entry(at(13, 30, 0), "door"),
	}

	lunch := DetectLunchBreak(events, nil)

	assert.Equal(t, at(12, 50, 0), *lunch.Out)
	assert.Nil(t, lunch.In)
	assert.Nil(t, lunch.DurationMinutes)
}

func TestDetectLunchBreakCutoffBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		events  []DayEvent
		wantOut bool
		wantIn  bool
	}{
		{
			name:    "exit at exactly 13:00 does not qualify",
			events:  []DayEvent{exit(at(13, 0, 0), "door")},
			wantOut: false,
		},
		{
			name:    "exit at 12:59:59 qualifies",
			events:  []DayEvent{exit(at(12, 59, 59), "door")},
			wantOut: true,
		},
		{
			name: "entry at exactly 14:30 does not qualify",
			events: []DayEvent{
				exit(at(12, 0, 0), "door"),
				entry(at(14, 30, 0), "door"),
			},
			wantOut: true,
			wantIn:  false,
		},
		{
			name: "entry at 14:30:01 qualifies",
			events: []DayEvent{
				exit(at(12, 0, 0), "door"),
				entry(at(14, 30, 1), "door"),
			},
			wantOut: true,
			wantIn:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lunch := DetectLunchBreak(tt.events, nil)
			assert.Equal(t, tt.wantOut, lunch.Out != nil)
			assert.Equal(t, tt.wantIn, lunch.In != nil)
		})
	}
}

func TestDetectLunchBreakFirstOutWins(t *testing.T) {
	events := []DayEvent{
		exit(at(11, 0, 0), "door"),
		exit(at(12, 30, 0), "door"),
		entry(at(15, 0, 0), "door"),
		entry(at(16, 0, 0), "door"),
	}

	lunch := DetectLunchBreak(events, nil)

	assert.Equal(t, at(11, 0, 0), *lunch.Out)
	assert.Equal(t, at(15, 0, 0), *lunch.In)
	assert.Equal(t, 240, *lunch.DurationMinutes)
}

func TestDetectLunchBreakInWithoutOutIgnored(t *testing.T) {
	events := []DayEvent{
		entry(at(15, 0, 0), "door"),
	}

	lunch := DetectLunchBreak(events, nil)

	assert.Nil(t, lunch.Out)
	assert.Nil(t, lunch.In)
	assert.Nil(t, lunch.DurationMinutes)
}

package core

import (
	"fmt"
	"math"
	"time"

	"gatelog.io/gatelog/core/models"
)

// Work-start threshold, a fixed wall-clock cutoff shared by all employees.
// Arriving at exactly 09:00:00 is on time; one second past is late.
const (
	WorkStartHour   = 9
	WorkStartMinute = 0
	WorkStartSecond = 0
)

const workStartSeconds = WorkStartHour*3600 + WorkStartMinute*60 + WorkStartSecond

const (
	StatusOnTime = "On time"
	StatusLate   = "Late"
	StatusAbsent = "Absent"
)

// DayEvent is one day's worth of badge scans for a single employee, the
// engine's only input besides the resolved waiver.
type DayEvent struct {
	Time      time.Time
	Door      string
	Direction models.Direction
}

// AttendanceRecord is the derived per-(employee, date) attendance fact.
type AttendanceRecord struct {
	FirstEntry     *time.Time    `json:"firstEntry"`
	LastExit       *time.Time    `json:"lastExit"`
	FirstEntryDoor string        `json:"firstEntryDoor,omitempty"`
	LastExitDoor   string        `json:"lastExitDoor,omitempty"`
	IsLate         bool          `json:"isLate"`
	LateMinutes    int           `json:"lateMinutes"`
	WorkHours      *float64      `json:"workHours"`
	Exception      *ExceptionRef `json:"exception"`
	Status         string        `json:"status"`
}

// DeriveAttendance turns an unordered day of events plus the applicable
// waiver into a single deterministic attendance record. Pure: re-running it
// over the same inputs always yields the same record.
//
// Unknown-direction events are ignored. Without any entry event the day is
// absent regardless of exits. The waiver is always attached for display when
// present, but suppresses the lateness flag only when the employee is
// physically late and the type is no_lateness_check; a personal waiver has
// already won over a departmental one by the time it reaches here.
func DeriveAttendance(events []DayEvent, exc *ExceptionRef) AttendanceRecord {
	rec := AttendanceRecord{Exception: exc}

	for _, ev := range events {
		switch ev.Direction {
		case models.DirectionEntry:
			if rec.FirstEntry == nil || ev.Time.Before(*rec.FirstEntry) {
				t := ev.Time
				rec.FirstEntry = &t
				rec.FirstEntryDoor = ev.Door
			}
		case models.DirectionExit:
			if rec.LastExit == nil || ev.Time.After(*rec.LastExit) {
				t := ev.Time
				rec.LastExit = &t
				rec.LastExitDoor = ev.Door
			}
		}
	}

	if rec.FirstEntry == nil {
		rec.Status = StatusAbsent
		return rec
	}

	if lateBy := secondsPastWorkStart(*rec.FirstEntry); lateBy > 0 {
		suppressed := exc != nil && exc.Type == ExceptionNoLatenessCheck
		if !suppressed {
			rec.IsLate = true
			rec.LateMinutes = lateBy / 60 // truncated, not rounded
		}
	}

	if rec.LastExit != nil && rec.LastExit.After(*rec.FirstEntry) {
		hours := rec.LastExit.Sub(*rec.FirstEntry).Hours()
		rounded := math.Round(hours*100) / 100
		rec.WorkHours = &rounded
	}

	rec.Status = attendanceStatus(rec.IsLate, exc)
	return rec
}

func secondsPastWorkStart(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second() - workStartSeconds
}

func attendanceStatus(isLate bool, exc *ExceptionRef) string {
	base := StatusOnTime
	if isLate {
		base = StatusLate
	}
	if exc != nil {
		return fmt.Sprintf("%s (exception: %s)", base, exc.Reason)
	}
	return base
}

package core

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"gatelog.io/gatelog/core/models"
)

// Lunch-break window cutoffs. An exit qualifies as "out" strictly before
// 13:00; an entry qualifies as "in" strictly after 14:30. Movement inside
// the 13:00–14:30 window is routine door use, never a lunch signal.
var (
	lunchOutCutoff = dayOffset{13, 0, 0}
	lunchInCutoff  = dayOffset{14, 30, 0}
)

type dayOffset struct {
	hour, minute, second int
}

func (o dayOffset) seconds() int {
	return o.hour*3600 + o.minute*60 + o.second
}

func secondsOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// DetectedLunch is the derived lunch fact for one employee-day. Both legs
// nil means no lunch was observed; an out without an in is a partial fact
// with nil duration.
type DetectedLunch struct {
	Out             *time.Time
	In              *time.Time
	DurationMinutes *int
}

// DetectLunchBreak scans one employee-day of events in chronological order.
// The first qualifying exit wins as "out"; the first qualifying entry after
// it completes the pair. At most one pair per day. A qualifying entry seen
// before any out is ignored (diagnostics only). log may be nil.
func DetectLunchBreak(events []DayEvent, log *zap.Logger) DetectedLunch {
	if log == nil {
		log = zap.NewNop()
	}

	sorted := make([]DayEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	var lunch DetectedLunch
	for _, ev := range sorted {
		switch ev.Direction {
		case models.DirectionExit:
			if lunch.Out == nil && secondsOfDay(ev.Time) < lunchOutCutoff.seconds() {
				t := ev.Time
				lunch.Out = &t
			}
		case models.DirectionEntry:
			if secondsOfDay(ev.Time) <= lunchInCutoff.seconds() {
				continue
			}
			if lunch.Out == nil {
				log.Debug("lunch-in without a prior lunch-out, ignoring",
					zap.Time("time", ev.Time))
				continue
			}
			if lunch.In == nil {
				t := ev.Time
				lunch.In = &t
				minutes := int(t.Sub(*lunch.Out).Minutes())
				lunch.DurationMinutes = &minutes
			}
		}
	}
	return lunch
}

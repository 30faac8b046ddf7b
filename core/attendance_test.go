package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gatelog.io/gatelog/core/models"
)

func at(hour, min, sec int) time.Time {
	return time.Date(2024, 1, 15, hour, min, sec, 0, time.UTC)
}

func entry(t time.Time, door string) DayEvent {
	return DayEvent{Time: t, Door: door, Direction: models.DirectionEntry}
}

func exit(t time.Time, door string) DayEvent {
	return DayEvent{Time: t, Door: door, Direction: models.DirectionExit}
}

func TestDeriveAttendanceLateDay(t *testing.T) {
	events := []DayEvent{
		entry(at(9, 15, 0), "Main Door"),
		exit(at(18, 2, 0), "Main Door - exit"),
	}

	rec := DeriveAttendance(events, nil)

	assert.Equal(t, at(9, 15, 0), *rec.FirstEntry)
	assert.Equal(t, at(18, 2, 0), *rec.LastExit)
	assert.Equal(t, "Main Door", rec.FirstEntryDoor)
	assert.Equal(t, "Main Door - exit", rec.LastExitDoor)
	assert.True(t, rec.IsLate)
	assert.Equal(t, 15, rec.LateMinutes)
	assert.Equal(t, 8.78, *rec.WorkHours)
	assert.Equal(t, "Late", rec.Status)
}

func TestDeriveAttendanceSuppressedByPersonalException(t *testing.T) {
	events := []DayEvent{
		entry(at(9, 15, 0), "Main Door"),
		exit(at(18, 2, 0), "Main Door - exit"),
	}
	exc := &ExceptionRef{
		Reason:  "командировка",
		RawType: NoLatenessCheck,
		Type:    ExceptionNoLatenessCheck,
		Level:   LevelEmployee,
	}

	rec := DeriveAttendance(events, exc)

	assert.False(t, rec.IsLate)
	assert.Equal(t, 0, rec.LateMinutes)
	assert.Equal(t, 8.78, *rec.WorkHours)
	assert.Equal(t, "On time (exception: командировка)", rec.Status)
	assert.Equal(t, LevelEmployee, rec.Exception.Level)
}

func TestDeriveAttendanceLatenessBoundary(t *testing.T) {
	tests := []struct {
		name        string
		firstEntry  time.Time
		wantLate    bool
		wantMinutes int
	}{
		{"exactly nine is on time", at(9, 0, 0), false, 0},
		{"one second past is late with zero minutes", at(9, 0, 1), true, 0},
		{"fifty nine seconds still zero minutes", at(9, 0, 59), true, 0},
		{"one minute past", at(9, 1, 0), true, 1},
		{"well before nine", at(7, 30, 0), false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := DeriveAttendance([]DayEvent{entry(tt.firstEntry, "door")}, nil)
			assert.Equal(t, tt.wantLate, rec.IsLate)
			assert.Equal(t, tt.wantMinutes, rec.LateMinutes)
		})
	}
}

func TestDeriveAttendanceAbsentWhenNoEntries(t *testing.T) {
	// Exit events alone never make a day present.
	rec := DeriveAttendance([]DayEvent{exit(at(17, 0, 0), "door")}, nil)

	assert.Nil(t, rec.FirstEntry)
	assert.Nil(t, rec.WorkHours)
	assert.False(t, rec.IsLate)
	assert.Equal(t, "Absent", rec.Status)
}

func TestDeriveAttendanceWorkHoursNeverNegative(t *testing.T) {
	tests := []struct {
		name   string
		events []DayEvent
	}{
		{
			name: "exit before entry",
			events: []DayEvent{
				entry(at(10, 0, 0), "door"),
				exit(at(8, 0, 0), "door"),
			},
		},
		{
			name: "exit equals entry",
			events: []DayEvent{
				entry(at(10, 0, 0), "door"),
				exit(at(10, 0, 0), "door"),
			},
		},
		{
			name:   "entry only",
			events: []DayEvent{entry(at(8, 0, 0), "door")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := DeriveAttendance(tt.events, nil)
			assert.Nil(t, rec.WorkHours)
		})
	}
}

func TestDeriveAttendanceUsesMinEntryMaxExit(t *testing.T) {
	events := []DayEvent{
		entry(at(12, 0, 0), "side"),
		entry(at(8, 30, 0), "main"),
		exit(at(12, 30, 0), "side"),
		exit(at(19, 0, 0), "main"),
		{Time: at(7, 0, 0), Door: "turnstile", Direction: models.DirectionUnknown},
	}

	rec := DeriveAttendance(events, nil)

	assert.Equal(t, at(8, 30, 0), *rec.FirstEntry)
	assert.Equal(t, "main", rec.FirstEntryDoor)
	assert.Equal(t, at(19, 0, 0), *rec.LastExit)
	assert.Equal(t, "main", rec.LastExitDoor)
	assert.False(t, rec.IsLate)
	assert.Equal(t, 10.5, *rec.WorkHours)
	assert.Equal(t, "On time", rec.Status)
}

func TestDeriveAttendanceInformationalExceptionDoesNotSuppress(t *testing.T) {
	events := []DayEvent{entry(at(9, 30, 0), "door")}
	exc := &ExceptionRef{
		Reason:  "отпуск",
		RawType: "vacation",
		Type:    ParseExceptionType("vacation"),
		Level:   LevelDepartment,
	}

	rec := DeriveAttendance(events, exc)

	assert.True(t, rec.IsLate)
	assert.Equal(t, 30, rec.LateMinutes)
	assert.Equal(t, "Late (exception: отпуск)", rec.Status)
}

func TestDeriveAttendanceAttachesExceptionWhenOnTime(t *testing.T) {
	// Nothing to suppress, but the waiver still shows on the record.
	events := []DayEvent{entry(at(8, 45, 0), "door")}
	exc := &ExceptionRef{
		Reason:  "гибкий график",
		RawType: NoLatenessCheck,
		Type:    ExceptionNoLatenessCheck,
		Level:   LevelDepartment,
	}

	rec := DeriveAttendance(events, exc)

	assert.False(t, rec.IsLate)
	assert.NotNil(t, rec.Exception)
	assert.Equal(t, "On time (exception: гибкий график)", rec.Status)
}

func TestParseExceptionType(t *testing.T) {
	assert.Equal(t, ExceptionNoLatenessCheck, ParseExceptionType("no_lateness_check"))
	assert.Equal(t, ExceptionInformational, ParseExceptionType("vacation"))
	assert.Equal(t, ExceptionInformational, ParseExceptionType(""))
}

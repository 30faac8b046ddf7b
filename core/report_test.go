package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"gatelog.io/gatelog/core/models"
	"gatelog.io/gatelog/utils"
)

var reportDay = utils.MustParseDate("2024-01-15")

func seedEmployee(t *testing.T, db *gorm.DB, name string, deptID *uint) models.Employee {
	t.Helper()
	emp := models.Employee{FullName: name, DepartmentID: deptID, IsActive: true}
	require.NoError(t, db.Create(&emp).Error)
	return emp
}

func seedEvent(t *testing.T, db *gorm.DB, empID uint, ts time.Time, dir models.Direction) {
	t.Helper()
	ev := models.AccessEvent{
		EmployeeID:   empID,
		Timestamp:    ts,
		DoorLocation: "Турникет 1",
		Direction:    dir,
	}
	require.NoError(t, db.Create(&ev).Error)
}

func dayAt(d time.Time, hour, min int) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), hour, min, 0, 0, time.UTC)
}

func TestDailyScheduleEndToEnd(t *testing.T) {
	db := openTestDB(t)
	r := NewReporter(db, nil, nil)

	late := seedEmployee(t, db, "Иванов И.И.", nil)
	seedEvent(t, db, late.ID, dayAt(reportDay, 9, 15), models.DirectionEntry)
	seedEvent(t, db, late.ID, dayAt(reportDay, 18, 2), models.DirectionExit)

	excused := seedEmployee(t, db, "Петров П.П.", nil)
	seedEvent(t, db, excused.ID, dayAt(reportDay, 9, 15), models.DirectionEntry)
	seedEvent(t, db, excused.ID, dayAt(reportDay, 18, 2), models.DirectionExit)
	require.NoError(t, db.Create(&models.PersonalException{
		EmployeeID:    excused.ID,
		Date:          reportDay,
		Reason:        "командировка",
		ExceptionType: NoLatenessCheck,
	}).Error)

	absent := seedEmployee(t, db, "Сидоров С.С.", nil)

	page, err := r.DailySchedule(reportDay, PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalCount)
	assert.Equal(t, 1, page.LateCount)

	byName := map[string]ScheduleEntry{}
	for _, e := range page.Employees {
		byName[e.FullName] = e
	}

	lateEntry := byName[late.FullName]
	assert.True(t, lateEntry.IsLate)
	assert.Equal(t, 15, lateEntry.LateMinutes)
	require.NotNil(t, lateEntry.WorkHours)
	assert.InDelta(t, 8.78, *lateEntry.WorkHours, 0.001)
	assert.Equal(t, "Late", lateEntry.Status)

	excusedEntry := byName[excused.FullName]
	assert.False(t, excusedEntry.IsLate)
	assert.Equal(t, "On time (exception: командировка)", excusedEntry.Status)
	require.NotNil(t, excusedEntry.WorkHours)
	assert.InDelta(t, 8.78, *excusedEntry.WorkHours, 0.001)

	absentEntry := byName[absent.FullName]
	assert.Equal(t, "Absent", absentEntry.Status)
	assert.False(t, absentEntry.IsLate)
	assert.Nil(t, absentEntry.WorkHours)
}

func TestDailySchedulePersonalWinsOverDepartment(t *testing.T) {
	db := openTestDB(t)
	r := NewReporter(db, nil, nil)

	dept := models.Department{Name: "Бухгалтерия"}
	require.NoError(t, db.Create(&dept).Error)
	require.NoError(t, db.Create(&models.DepartmentException{
		DepartmentID:  dept.ID,
		Reason:        "гибкий график",
		ExceptionType: NoLatenessCheck,
		Permanent:     true,
	}).Error)

	emp := seedEmployee(t, db, "Иванов И.И.", &dept.ID)
	seedEvent(t, db, emp.ID, dayAt(reportDay, 10, 0), models.DirectionEntry)
	require.NoError(t, db.Create(&models.PersonalException{
		EmployeeID:    emp.ID,
		Date:          reportDay,
		Reason:        "отпуск",
		ExceptionType: "informational",
	}).Error)

	page, err := r.DailySchedule(reportDay, PageQuery{})
	require.NoError(t, err)
	require.Len(t, page.Employees, 1)

	// The personal informational exception shadows the department waiver,
	// so lateness is not suppressed.
	got := page.Employees[0]
	assert.True(t, got.IsLate)
	assert.Equal(t, "Late (exception: отпуск)", got.Status)
}

func TestDailyScheduleSearchAndPagination(t *testing.T) {
	db := openTestDB(t)
	r := NewReporter(db, nil, nil)

	names := []string{"Алексеев А.А.", "Борисов Б.Б.", "Васильев В.В."}
	for _, name := range names {
		seedEmployee(t, db, name, nil)
	}

	page, err := r.DailySchedule(reportDay, PageQuery{Search: "борисов"})
	require.NoError(t, err)
	require.Len(t, page.Employees, 1)
	assert.Equal(t, "Борисов Б.Б.", page.Employees[0].FullName)

	page, err = r.DailySchedule(reportDay, PageQuery{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalCount)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Employees, 1)
	assert.Equal(t, "Васильев В.В.", page.Employees[0].FullName)
}

func TestScheduleRangeOmitsUnobservedDays(t *testing.T) {
	db := openTestDB(t)
	r := NewReporter(db, nil, nil)

	emp := seedEmployee(t, db, "Иванов И.И.", nil)
	seedEvent(t, db, emp.ID, dayAt(reportDay, 8, 50), models.DirectionEntry)
	seedEvent(t, db, emp.ID, dayAt(reportDay, 18, 0), models.DirectionExit)
	day3 := reportDay.AddDate(0, 0, 2)
	seedEvent(t, db, emp.ID, dayAt(day3, 9, 30), models.DirectionEntry)

	seedEmployee(t, db, "Без событий", nil)

	page, err := r.ScheduleRange(reportDay, reportDay.AddDate(0, 0, 4), PageQuery{})
	require.NoError(t, err)
	require.Len(t, page.Employees, 1, "employees without events are not listed")

	got := page.Employees[0]
	require.Len(t, got.Days, 2, "days without events are omitted")
	assert.Equal(t, "2024-01-15", got.Days[0].Date)
	assert.Equal(t, "2024-01-17", got.Days[1].Date)
	assert.Equal(t, 1, got.LateDays)
}

func TestScheduleRangeAppliesPersonalExceptions(t *testing.T) {
	db := openTestDB(t)
	r := NewReporter(db, nil, nil)

	emp := seedEmployee(t, db, "Иванов И.И.", nil)
	day2 := reportDay.AddDate(0, 0, 1)
	seedEvent(t, db, emp.ID, dayAt(reportDay, 9, 30), models.DirectionEntry)
	seedEvent(t, db, emp.ID, dayAt(day2, 9, 30), models.DirectionEntry)
	require.NoError(t, db.Create(&models.PersonalException{
		EmployeeID:    emp.ID,
		Date:          day2,
		Reason:        "командировка",
		ExceptionType: NoLatenessCheck,
	}).Error)

	page, err := r.ScheduleRange(reportDay, day2, PageQuery{})
	require.NoError(t, err)
	require.Len(t, page.Employees, 1)

	got := page.Employees[0]
	require.Len(t, got.Days, 2)
	assert.Equal(t, 1, got.LateDays)
	assert.True(t, got.Days[0].IsLate)
	assert.False(t, got.Days[1].IsLate)
	assert.Equal(t, "On time (exception: командировка)", got.Days[1].Status)
}

func TestScheduleRangeValidation(t *testing.T) {
	db := openTestDB(t)
	r := NewReporter(db, nil, nil)

	_, err := r.ScheduleRange(reportDay, reportDay.AddDate(0, 0, -1), PageQuery{})
	assert.Error(t, err)

	_, err = r.ScheduleRange(reportDay, reportDay.AddDate(0, 0, 400), PageQuery{})
	assert.Error(t, err)
}

func TestEmployeeHistoryUnknownEmployee(t *testing.T) {
	db := openTestDB(t)
	r := NewReporter(db, nil, nil)

	_, err := r.EmployeeHistory(12345, 30)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatsCounts(t *testing.T) {
	db := openTestDB(t)
	r := NewReporter(db, nil, nil)

	onTime := seedEmployee(t, db, "Иванов И.И.", nil)
	seedEvent(t, db, onTime.ID, dayAt(reportDay, 8, 45), models.DirectionEntry)

	late := seedEmployee(t, db, "Петров П.П.", nil)
	seedEvent(t, db, late.ID, dayAt(reportDay, 9, 40), models.DirectionEntry)

	seedEmployee(t, db, "Сидоров С.С.", nil)

	stats, err := r.Stats(reportDay)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalEmployees)
	assert.Equal(t, 2, stats.PresentCount)
	assert.Equal(t, 1, stats.LateCount)
	assert.Equal(t, 1, stats.AbsentCount)
}

func TestStatsExitOnlyDayCountsAsAbsent(t *testing.T) {
	db := openTestDB(t)
	r := NewReporter(db, nil, nil)

	// Only an evening exit: the engine derives Absent, so the dashboard
	// must not count the employee present.
	emp := seedEmployee(t, db, "Иванов И.И.", nil)
	seedEvent(t, db, emp.ID, dayAt(reportDay, 17, 0), models.DirectionExit)

	unknown := seedEmployee(t, db, "Петров П.П.", nil)
	seedEvent(t, db, unknown.ID, dayAt(reportDay, 10, 0), models.DirectionUnknown)

	stats, err := r.Stats(reportDay)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalEmployees)
	assert.Equal(t, 0, stats.PresentCount)
	assert.Equal(t, 0, stats.LateCount)
	assert.Equal(t, 2, stats.AbsentCount)
}

func TestEmployeeListsSplitsOnTimeAndLate(t *testing.T) {
	db := openTestDB(t)
	r := NewReporter(db, nil, nil)

	onTime := seedEmployee(t, db, "Алексеев А.А.", nil)
	seedEvent(t, db, onTime.ID, dayAt(reportDay, 8, 45), models.DirectionEntry)

	late := seedEmployee(t, db, "Борисов Б.Б.", nil)
	seedEvent(t, db, late.ID, dayAt(reportDay, 9, 40), models.DirectionEntry)

	excused := seedEmployee(t, db, "Васильев В.В.", nil)
	seedEvent(t, db, excused.ID, dayAt(reportDay, 9, 40), models.DirectionEntry)
	require.NoError(t, db.Create(&models.PersonalException{
		EmployeeID:    excused.ID,
		Date:          reportDay,
		Reason:        "командировка",
		ExceptionType: NoLatenessCheck,
	}).Error)

	// Exit-only day: present in neither list.
	exitOnly := seedEmployee(t, db, "Сидоров С.С.", nil)
	seedEvent(t, db, exitOnly.ID, dayAt(reportDay, 17, 0), models.DirectionExit)

	lists, err := r.EmployeeLists(reportDay)
	require.NoError(t, err)
	assert.Equal(t, 3, lists.Total)

	require.Len(t, lists.Late, 1)
	assert.Equal(t, "Борисов Б.Б.", lists.Late[0].FullName)
	assert.Equal(t, "09:40:00", lists.Late[0].FirstEntry)

	require.Len(t, lists.OnTime, 2)
	assert.Equal(t, "Алексеев А.А.", lists.OnTime[0].FullName)
	assert.Equal(t, "Васильев В.В.", lists.OnTime[1].FullName)
}

func TestBirthdays(t *testing.T) {
	db := openTestDB(t)
	r := NewReporter(db, nil, nil)

	emp := models.Employee{
		FullName:  "Иванов И.И.",
		BirthDate: utils.Ptr(utils.MustParseDate("1990-01-15")),
		IsActive:  true,
	}
	require.NoError(t, db.Create(&emp).Error)

	require.NoError(t, db.Create(&models.Employee{
		FullName:  "Петров П.П.",
		BirthDate: utils.Ptr(utils.MustParseDate("1985-06-01")),
		IsActive:  true,
	}).Error)

	out, err := r.Birthdays(reportDay)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Иванов И.И.", out[0].FullName)
	assert.Equal(t, 34, out[0].Age)
}

func TestLatestEventDate(t *testing.T) {
	db := openTestDB(t)
	r := NewReporter(db, nil, nil)

	_, ok := r.LatestEventDate()
	assert.False(t, ok, "empty store has no latest date")

	emp := seedEmployee(t, db, "Иванов И.И.", nil)
	seedEvent(t, db, emp.ID, dayAt(reportDay, 9, 0), models.DirectionEntry)
	seedEvent(t, db, emp.ID, dayAt(reportDay.AddDate(0, 0, 3), 9, 0), models.DirectionEntry)

	latest, ok := r.LatestEventDate()
	require.True(t, ok)
	assert.Equal(t, reportDay.AddDate(0, 0, 3), latest)
}

func TestReporterExcludesConfiguredNames(t *testing.T) {
	db := openTestDB(t)
	r := NewReporter(db, []string{"Охрана"}, nil)

	seedEmployee(t, db, "Охрана", nil)
	seedEmployee(t, db, "Иванов И.И.", nil)

	page, err := r.DailySchedule(reportDay, PageQuery{})
	require.NoError(t, err)
	require.Len(t, page.Employees, 1)
	assert.Equal(t, "Иванов И.И.", page.Employees[0].FullName)
}

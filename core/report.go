package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"gatelog.io/gatelog/core/models"
	"gatelog.io/gatelog/utils"
)

// Range caps for the report endpoints.
const (
	MaxRangeDays       = 365
	MaxExceptionRange  = 31
	DefaultHistoryDays = 365
	DefaultPerPage     = 50
	MaxPerPage         = 100
)

// Reporter fans the derivation engine and lunch detector out over employee
// sets and date ranges. Derivation failures never abort a report; a bad
// record degrades to its null fields.
type Reporter struct {
	db      *gorm.DB
	exclude map[string]struct{}
	log     *zap.Logger
}

func NewReporter(db *gorm.DB, excludeNames []string, log *zap.Logger) *Reporter {
	if log == nil {
		log = zap.NewNop()
	}
	exclude := make(map[string]struct{}, len(excludeNames))
	for _, name := range excludeNames {
		exclude[name] = struct{}{}
	}
	return &Reporter{db: db, exclude: exclude, log: log}
}

// PageQuery is the common pagination/filtering contract: page >= 1,
// per_page 1..100, optional case-insensitive name search and department
// filter, applied after full derivation.
type PageQuery struct {
	Page          int
	PerPage       int
	Search        string
	DepartmentIDs []uint
}

func (q *PageQuery) normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
}

// ScheduleEntry is one employee's derived attendance for the report day.
type ScheduleEntry struct {
	EmployeeID       uint    `json:"employeeId"`
	FullName         string  `json:"fullName"`
	FullNameExpanded *string `json:"fullNameExpanded"`
	DepartmentID     *uint   `json:"departmentId"`
	DepartmentName   *string `json:"departmentName"`
	AttendanceRecord
}

type SchedulePage struct {
	Date       string          `json:"date"`
	Employees  []ScheduleEntry `json:"employees"`
	TotalCount int             `json:"totalCount"`
	LateCount  int             `json:"lateCount"`
	Page       int             `json:"page"`
	PerPage    int             `json:"perPage"`
	TotalPages int             `json:"totalPages"`
}

// DailySchedule derives one record per active employee for the given day.
// Employees without any event that day appear explicitly with status
// Absent, unlike the range report which omits unobserved days.
func (r *Reporter) DailySchedule(date time.Time, q PageQuery) (*SchedulePage, error) {
	q.normalize()
	date = DateOf(date)

	employees, err := r.activeEmployees()
	if err != nil {
		return nil, err
	}
	deptNames, err := r.departmentNames()
	if err != nil {
		return nil, err
	}
	eventsByEmployee, err := r.dayEventsByEmployee(date, date.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	exceptions, err := LoadExceptionSet(r.db, date)
	if err != nil {
		return nil, err
	}

	entries := make([]ScheduleEntry, 0, len(employees))
	for _, emp := range employees {
		rec := DeriveAttendance(eventsByEmployee[emp.ID], exceptions.For(emp.ID, emp.DepartmentID))
		entries = append(entries, r.scheduleEntry(emp, deptNames, rec))
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].FullName < entries[j].FullName })
	entries = filterEntries(entries, q)

	lateCount := 0
	for _, e := range entries {
		if e.IsLate {
			lateCount++
		}
	}

	total := len(entries)
	paged := paginate(entries, q.Page, q.PerPage)

	return &SchedulePage{
		Date:       date.Format("2006-01-02"),
		Employees:  paged,
		TotalCount: total,
		LateCount:  lateCount,
		Page:       q.Page,
		PerPage:    q.PerPage,
		TotalPages: (total + q.PerPage - 1) / q.PerPage,
	}, nil
}

// RangeDay is one observed employee-day inside a range report.
type RangeDay struct {
	Date string `json:"date"`
	AttendanceRecord
}

type RangeEmployee struct {
	EmployeeID       uint       `json:"employeeId"`
	FullName         string     `json:"fullName"`
	FullNameExpanded *string    `json:"fullNameExpanded"`
	DepartmentID     *uint      `json:"departmentId"`
	DepartmentName   *string    `json:"departmentName"`
	Days             []RangeDay `json:"days"`
	LateDays         int        `json:"lateDays"`
}

type RangePage struct {
	StartDate  string          `json:"startDate"`
	EndDate    string          `json:"endDate"`
	Employees  []RangeEmployee `json:"employees"`
	TotalCount int             `json:"totalCount"`
	Page       int             `json:"page"`
	PerPage    int             `json:"perPage"`
	TotalPages int             `json:"totalPages"`
}

// ScheduleRange derives per-day records over [start, end] for employees with
// at least one event in the range. Days with zero events are omitted from
// the output entirely (only observed days are shown).
func (r *Reporter) ScheduleRange(start, end time.Time, q PageQuery) (*RangePage, error) {
	start, end = DateOf(start), DateOf(end)
	if end.Before(start) {
		return nil, fmt.Errorf("start date is after end date")
	}
	if int(end.Sub(start).Hours()/24) > MaxRangeDays {
		return nil, fmt.Errorf("date range exceeds %d days", MaxRangeDays)
	}
	q.normalize()

	employees, err := r.activeEmployees()
	if err != nil {
		return nil, err
	}
	deptNames, err := r.departmentNames()
	if err != nil {
		return nil, err
	}
	deptExceptions, err := LoadDepartmentExceptions(r.db)
	if err != nil {
		return nil, err
	}
	allPersonal, err := LoadAllPersonalExceptions(r.db, start, end)
	if err != nil {
		return nil, err
	}

	var events []models.AccessEvent
	err = r.db.Where("timestamp >= ? AND timestamp < ?", start, end.Add(24*time.Hour)).
		Order("timestamp").Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("load range events: %w", err)
	}
	byEmployee := utils.GroupBy(events, func(ev models.AccessEvent) uint { return ev.EmployeeID })

	var out []RangeEmployee
	for _, emp := range employees {
		empEvents, ok := byEmployee[emp.ID]
		if !ok {
			continue
		}

		personal := allPersonal[emp.ID]
		var deptExc *ExceptionRef
		if emp.DepartmentID != nil {
			if exc, ok := deptExceptions[*emp.DepartmentID]; ok {
				deptExc = &exc
			}
		}

		byDay := utils.GroupBy(empEvents, func(ev models.AccessEvent) string {
			return DateOf(ev.Timestamp).Format("2006-01-02")
		})

		re := RangeEmployee{
			EmployeeID:       emp.ID,
			FullName:         emp.FullName,
			FullNameExpanded: emp.FullNameExpanded,
			DepartmentID:     emp.DepartmentID,
			DepartmentName:   lookupName(deptNames, emp.DepartmentID),
		}

		days := make([]string, 0, len(byDay))
		for day := range byDay {
			days = append(days, day)
		}
		sort.Strings(days)

		for _, day := range days {
			exc := deptExc
			if personalExc, ok := personal[day]; ok {
				exc = &personalExc
			}
			rec := DeriveAttendance(toDayEvents(byDay[day]), exc)
			if rec.IsLate {
				re.LateDays++
			}
			re.Days = append(re.Days, RangeDay{Date: day, AttendanceRecord: rec})
		}
		out = append(out, re)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	out = filterRangeEmployees(out, q)

	total := len(out)
	paged := paginate(out, q.Page, q.PerPage)

	return &RangePage{
		StartDate:  start.Format("2006-01-02"),
		EndDate:    end.Format("2006-01-02"),
		Employees:  paged,
		TotalCount: total,
		Page:       q.Page,
		PerPage:    q.PerPage,
		TotalPages: (total + q.PerPage - 1) / q.PerPage,
	}, nil
}

// HistoryDay is one observed day in an employee's visit history.
type HistoryDay struct {
	Date string `json:"date"`
	AttendanceRecord
	LunchOut             *time.Time `json:"lunchOut,omitempty"`
	LunchIn              *time.Time `json:"lunchIn,omitempty"`
	LunchDurationMinutes *int       `json:"lunchDurationMinutes,omitempty"`
}

type History struct {
	EmployeeID       uint         `json:"employeeId"`
	EmployeeName     string       `json:"employeeName"`
	TotalDays        int          `json:"totalDays"`
	LateDays         int          `json:"lateDays"`
	PunctualityRate  float64      `json:"punctualityRate"`
	AvgArrivalTime   *string      `json:"avgArrivalTime"`
	AvgDepartureTime *string      `json:"avgDepartureTime"`
	AvgWorkHours     *float64     `json:"avgWorkHours"`
	DailyRecords     []HistoryDay `json:"dailyRecords"`
}

// EmployeeHistory derives the attendance and lunch facts for every observed
// day in the trailing window.
func (r *Reporter) EmployeeHistory(employeeID uint, daysBack int) (*History, error) {
	if daysBack <= 0 {
		daysBack = DefaultHistoryDays
	}
	end := DateOf(time.Now())
	start := end.AddDate(0, 0, -daysBack)

	var emp models.Employee
	if err := r.db.First(&emp, employeeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load employee: %w", err)
	}

	var events []models.AccessEvent
	err := r.db.Where("employee_id = ? AND timestamp >= ? AND timestamp < ?",
		employeeID, start, end.Add(24*time.Hour)).
		Order("timestamp").Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("load history events: %w", err)
	}

	personal, err := LoadPersonalExceptions(r.db, employeeID, start, end)
	if err != nil {
		return nil, err
	}
	deptExceptions, err := LoadDepartmentExceptions(r.db)
	if err != nil {
		return nil, err
	}
	var deptExc *ExceptionRef
	if emp.DepartmentID != nil {
		if exc, ok := deptExceptions[*emp.DepartmentID]; ok {
			deptExc = &exc
		}
	}

	byDay := utils.GroupBy(events, func(ev models.AccessEvent) string {
		return DateOf(ev.Timestamp).Format("2006-01-02")
	})
	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	hist := &History{EmployeeID: emp.ID, EmployeeName: emp.FullName}
	var (
		totalWorkHours float64
		workDays       int
		arrivals       []time.Time
		departures     []time.Time
	)

	for _, day := range days {
		exc := deptExc
		if personalExc, ok := personal[day]; ok {
			exc = &personalExc
		}
		dayEvents := toDayEvents(byDay[day])
		rec := DeriveAttendance(dayEvents, exc)
		lunch := DetectLunchBreak(dayEvents, r.log)

		if rec.IsLate {
			hist.LateDays++
		}
		if rec.WorkHours != nil {
			totalWorkHours += *rec.WorkHours
			workDays++
		}
		if rec.FirstEntry != nil {
			arrivals = append(arrivals, *rec.FirstEntry)
		}
		if rec.LastExit != nil {
			departures = append(departures, *rec.LastExit)
		}

		hist.DailyRecords = append(hist.DailyRecords, HistoryDay{
			Date:                 day,
			AttendanceRecord:     rec,
			LunchOut:             lunch.Out,
			LunchIn:              lunch.In,
			LunchDurationMinutes: lunch.DurationMinutes,
		})
	}

	hist.TotalDays = len(hist.DailyRecords)
	if hist.TotalDays > 0 {
		hist.PunctualityRate = float64(hist.TotalDays-hist.LateDays) / float64(hist.TotalDays) * 100
	}
	if workDays > 0 {
		avg := totalWorkHours / float64(workDays)
		hist.AvgWorkHours = &avg
	}
	hist.AvgArrivalTime = averageTimeOfDay(arrivals)
	hist.AvgDepartureTime = averageTimeOfDay(departures)

	return hist, nil
}

// DashboardStats is the day's headline numbers.
type DashboardStats struct {
	Date           string `json:"date"`
	TotalEmployees int    `json:"totalEmployees"`
	PresentCount   int    `json:"presentCount"`
	LateCount      int    `json:"lateCount"`
	AbsentCount    int    `json:"absentCount"`
}

func (r *Reporter) Stats(date time.Time) (*DashboardStats, error) {
	date = DateOf(date)

	employees, err := r.activeEmployees()
	if err != nil {
		return nil, err
	}
	eventsByEmployee, err := r.dayEventsByEmployee(date, date.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	exceptions, err := LoadExceptionSet(r.db, date)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		Date:           date.Format("2006-01-02"),
		TotalEmployees: len(employees),
	}
	for _, emp := range employees {
		rec := DeriveAttendance(eventsByEmployee[emp.ID], exceptions.For(emp.ID, emp.DepartmentID))
		// Exit-only and unknown-direction days derive as absent; presence
		// follows the engine, not raw event existence.
		if rec.FirstEntry == nil {
			continue
		}
		stats.PresentCount++
		if rec.IsLate {
			stats.LateCount++
		}
	}
	stats.AbsentCount = stats.TotalEmployees - stats.PresentCount

	return stats, nil
}

// DayListEntry is one present employee in the on-time/late split.
type DayListEntry struct {
	EmployeeID uint   `json:"id"`
	FullName   string `json:"name"`
	FirstEntry string `json:"firstEntry"`
	IsLate     bool   `json:"isLate"`
}

// DayLists is the dashboard's on-time/late breakdown for one day. Only
// employees whose day derives a first entry appear; absent days belong to
// neither list.
type DayLists struct {
	Date   string         `json:"date"`
	OnTime []DayListEntry `json:"onTime"`
	Late   []DayListEntry `json:"late"`
	Total  int            `json:"total"`
}

// EmployeeLists splits the day's present employees into on-time and late,
// applying the same derivation (and waiver suppression) as the schedule.
func (r *Reporter) EmployeeLists(date time.Time) (*DayLists, error) {
	date = DateOf(date)

	employees, err := r.activeEmployees()
	if err != nil {
		return nil, err
	}
	eventsByEmployee, err := r.dayEventsByEmployee(date, date.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	exceptions, err := LoadExceptionSet(r.db, date)
	if err != nil {
		return nil, err
	}

	sort.Slice(employees, func(i, j int) bool { return employees[i].FullName < employees[j].FullName })

	lists := &DayLists{Date: date.Format("2006-01-02"), OnTime: []DayListEntry{}, Late: []DayListEntry{}}
	for _, emp := range employees {
		rec := DeriveAttendance(eventsByEmployee[emp.ID], exceptions.For(emp.ID, emp.DepartmentID))
		if rec.FirstEntry == nil {
			continue
		}
		entry := DayListEntry{
			EmployeeID: emp.ID,
			FullName:   emp.FullName,
			FirstEntry: rec.FirstEntry.Format("15:04:05"),
			IsLate:     rec.IsLate,
		}
		if rec.IsLate {
			lists.Late = append(lists.Late, entry)
		} else {
			lists.OnTime = append(lists.OnTime, entry)
		}
		lists.Total++
	}
	return lists, nil
}

// Birthday is an employee whose birth day+month falls on the report date.
type Birthday struct {
	EmployeeID   uint    `json:"id"`
	FullName     string  `json:"name"`
	BirthDate    string  `json:"birthDate"`
	Age          int     `json:"age"`
	Department   *string `json:"departmentName"`
	PositionName *string `json:"positionName"`
}

func (r *Reporter) Birthdays(date time.Time) ([]Birthday, error) {
	date = DateOf(date)

	var employees []models.Employee
	err := r.db.Preload("Department").Preload("Position").
		Where("is_active = ? AND birth_date IS NOT NULL", true).
		Order("full_name").Find(&employees).Error
	if err != nil {
		return nil, fmt.Errorf("load employees: %w", err)
	}

	out := []Birthday{}
	for _, emp := range employees {
		if _, excluded := r.exclude[emp.FullName]; excluded {
			continue
		}
		bd := *emp.BirthDate
		if bd.Month() != date.Month() || bd.Day() != date.Day() {
			continue
		}
		b := Birthday{
			EmployeeID: emp.ID,
			FullName:   emp.FullName,
			BirthDate:  bd.Format("2006-01-02"),
			Age:        date.Year() - bd.Year(),
		}
		if emp.Department != nil {
			b.Department = &emp.Department.Name
		}
		if emp.Position != nil {
			b.PositionName = &emp.Position.Name
		}
		out = append(out, b)
	}
	return out, nil
}

// DayException is one active waiver on the report date, for the dashboard.
type DayException struct {
	EmployeeID     *uint   `json:"employeeId,omitempty"`
	FullName       *string `json:"fullName,omitempty"`
	DepartmentID   *uint   `json:"departmentId,omitempty"`
	DepartmentName *string `json:"departmentName,omitempty"`
	Reason         string  `json:"reason"`
	ExceptionType  string  `json:"exceptionType"`
	Level          string  `json:"level"`
}

func (r *Reporter) ExceptionsForDate(date time.Time) ([]DayException, error) {
	date = DateOf(date)

	var personal []models.PersonalException
	err := r.db.Preload("Employee").Where("date = ?", date).Find(&personal).Error
	if err != nil {
		return nil, fmt.Errorf("load personal exceptions: %w", err)
	}

	var departmental []models.DepartmentException
	if err := r.db.Preload("Department").Find(&departmental).Error; err != nil {
		return nil, fmt.Errorf("load department exceptions: %w", err)
	}

	out := []DayException{}
	for _, exc := range personal {
		out = append(out, DayException{
			EmployeeID:    &exc.EmployeeID,
			FullName:      &exc.Employee.FullName,
			Reason:        exc.Reason,
			ExceptionType: exc.ExceptionType,
			Level:         string(LevelEmployee),
		})
	}
	for _, exc := range departmental {
		out = append(out, DayException{
			DepartmentID:   &exc.DepartmentID,
			DepartmentName: &exc.Department.Name,
			Reason:         exc.Reason,
			ExceptionType:  exc.ExceptionType,
			Level:          string(LevelDepartment),
		})
	}
	return out, nil
}

// LatestEventDate returns the most recent observed day, used as the default
// for the daily schedule when no date is given.
func (r *Reporter) LatestEventDate() (time.Time, bool) {
	var ev models.AccessEvent
	err := r.db.Order("timestamp DESC").First(&ev).Error
	if err != nil {
		return time.Time{}, false
	}
	return DateOf(ev.Timestamp), true
}

func (r *Reporter) activeEmployees() ([]models.Employee, error) {
	var employees []models.Employee
	if err := r.db.Where("is_active = ?", true).Find(&employees).Error; err != nil {
		return nil, fmt.Errorf("load employees: %w", err)
	}
	return utils.Filter(employees, func(e models.Employee) bool {
		_, excluded := r.exclude[e.FullName]
		return !excluded
	}), nil
}

func (r *Reporter) departmentNames() (map[uint]string, error) {
	var departments []models.Department
	if err := r.db.Find(&departments).Error; err != nil {
		return nil, fmt.Errorf("load departments: %w", err)
	}
	names := make(map[uint]string, len(departments))
	for _, d := range departments {
		names[d.ID] = d.Name
	}
	return names, nil
}

func (r *Reporter) dayEventsByEmployee(start, end time.Time) (map[uint][]DayEvent, error) {
	var events []models.AccessEvent
	err := r.db.Where("timestamp >= ? AND timestamp < ?", start, end).
		Order("timestamp").Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("load day events: %w", err)
	}

	out := make(map[uint][]DayEvent)
	for _, ev := range events {
		out[ev.EmployeeID] = append(out[ev.EmployeeID], DayEvent{
			Time:      ev.Timestamp,
			Door:      ev.DoorLocation,
			Direction: ev.Direction,
		})
	}
	return out, nil
}

func (r *Reporter) scheduleEntry(emp models.Employee, deptNames map[uint]string, rec AttendanceRecord) ScheduleEntry {
	return ScheduleEntry{
		EmployeeID:       emp.ID,
		FullName:         emp.FullName,
		FullNameExpanded: emp.FullNameExpanded,
		DepartmentID:     emp.DepartmentID,
		DepartmentName:   lookupName(deptNames, emp.DepartmentID),
		AttendanceRecord: rec,
	}
}

func lookupName(names map[uint]string, id *uint) *string {
	if id == nil {
		return nil
	}
	if name, ok := names[*id]; ok {
		return &name
	}
	return nil
}

func toDayEvents(events []models.AccessEvent) []DayEvent {
	return utils.Map(events, func(ev models.AccessEvent) DayEvent {
		return DayEvent{Time: ev.Timestamp, Door: ev.DoorLocation, Direction: ev.Direction}
	})
}

func filterEntries(entries []ScheduleEntry, q PageQuery) []ScheduleEntry {
	if search := strings.TrimSpace(q.Search); search != "" {
		needle := strings.ToLower(search)
		entries = utils.Filter(entries, func(e ScheduleEntry) bool {
			return strings.Contains(strings.ToLower(e.FullName), needle)
		})
	}
	if len(q.DepartmentIDs) > 0 {
		wanted := make(map[uint]struct{}, len(q.DepartmentIDs))
		for _, id := range q.DepartmentIDs {
			wanted[id] = struct{}{}
		}
		entries = utils.Filter(entries, func(e ScheduleEntry) bool {
			if e.DepartmentID == nil {
				return false
			}
			_, ok := wanted[*e.DepartmentID]
			return ok
		})
	}
	return entries
}

func filterRangeEmployees(employees []RangeEmployee, q PageQuery) []RangeEmployee {
	if search := strings.TrimSpace(q.Search); search != "" {
		needle := strings.ToLower(search)
		employees = utils.Filter(employees, func(e RangeEmployee) bool {
			return strings.Contains(strings.ToLower(e.FullName), needle)
		})
	}
	if len(q.DepartmentIDs) > 0 {
		wanted := make(map[uint]struct{}, len(q.DepartmentIDs))
		for _, id := range q.DepartmentIDs {
			wanted[id] = struct{}{}
		}
		employees = utils.Filter(employees, func(e RangeEmployee) bool {
			if e.DepartmentID == nil {
				return false
			}
			_, ok := wanted[*e.DepartmentID]
			return ok
		})
	}
	return employees
}

func paginate[T any](items []T, page, perPage int) []T {
	start := (page - 1) * perPage
	if start >= len(items) {
		return []T{}
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// averageTimeOfDay formats the mean wall-clock time as "HH:MM".
func averageTimeOfDay(times []time.Time) *string {
	if len(times) == 0 {
		return nil
	}
	total := 0
	for _, t := range times {
		total += secondsOfDay(t)
	}
	avg := total / len(times)
	s := fmt.Sprintf("%02d:%02d", avg/3600, (avg%3600)/60)
	return &s
}

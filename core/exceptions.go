package core

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"gatelog.io/gatelog/core/models"
)

// ExceptionType is the closed set of behaviors an exception can have. The
// stored string is parsed once at load; internal logic never compares raw
// strings.
type ExceptionType int

const (
	// ExceptionInformational is stored and displayed but never suppresses
	// lateness.
	ExceptionInformational ExceptionType = iota
	// ExceptionNoLatenessCheck suppresses the lateness flag.
	ExceptionNoLatenessCheck
)

// NoLatenessCheck is the canonical stored value of the only
// behavior-affecting exception type.
const NoLatenessCheck = "no_lateness_check"

func ParseExceptionType(raw string) ExceptionType {
	if raw == NoLatenessCheck {
		return ExceptionNoLatenessCheck
	}
	return ExceptionInformational
}

// ExceptionLevel records which override table a waiver came from.
type ExceptionLevel string

const (
	LevelEmployee   ExceptionLevel = "employee"
	LevelDepartment ExceptionLevel = "department"
)

// ExceptionRef is a resolved waiver attached to an attendance record.
type ExceptionRef struct {
	Reason  string         `json:"reason"`
	RawType string         `json:"type"`
	Level   ExceptionLevel `json:"level"`
	Type    ExceptionType  `json:"-"`
}

// ExceptionSet holds both override tables for one derivation run: personal
// waivers keyed by employee for a single date, and the permanent
// per-department waivers. Loaded once, then O(1) per lookup.
type ExceptionSet struct {
	personal   map[uint]ExceptionRef
	department map[uint]ExceptionRef
}

// LoadExceptionSet batch-fetches both tables for the given date.
func LoadExceptionSet(db *gorm.DB, date time.Time) (*ExceptionSet, error) {
	set := &ExceptionSet{
		personal:   make(map[uint]ExceptionRef),
		department: make(map[uint]ExceptionRef),
	}

	var personal []models.PersonalException
	if err := db.Where("date = ?", DateOf(date)).Find(&personal).Error; err != nil {
		return nil, fmt.Errorf("load personal exceptions: %w", err)
	}
	for _, exc := range personal {
		set.personal[exc.EmployeeID] = ExceptionRef{
			Reason:  exc.Reason,
			RawType: exc.ExceptionType,
			Type:    ParseExceptionType(exc.ExceptionType),
			Level:   LevelEmployee,
		}
	}

	var departmental []models.DepartmentException
	if err := db.Find(&departmental).Error; err != nil {
		return nil, fmt.Errorf("load department exceptions: %w", err)
	}
	for _, exc := range departmental {
		set.department[exc.DepartmentID] = ExceptionRef{
			Reason:  exc.Reason,
			RawType: exc.ExceptionType,
			Type:    ParseExceptionType(exc.ExceptionType),
			Level:   LevelDepartment,
		}
	}

	return set, nil
}

// For resolves the waiver applicable to an employee. A personal exception
// always wins over the department one; nil means no waiver exists.
func (s *ExceptionSet) For(employeeID uint, departmentID *uint) *ExceptionRef {
	if exc, ok := s.personal[employeeID]; ok {
		return &exc
	}
	if departmentID != nil {
		if exc, ok := s.department[*departmentID]; ok {
			return &exc
		}
	}
	return nil
}

// LoadPersonalExceptions fetches one employee's waivers inside a date range,
// keyed by date string. Used by the history report.
func LoadPersonalExceptions(db *gorm.DB, employeeID uint, start, end time.Time) (map[string]ExceptionRef, error) {
	var rows []models.PersonalException
	err := db.Where("employee_id = ? AND date BETWEEN ? AND ?",
		employeeID, DateOf(start), DateOf(end)).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load personal exceptions: %w", err)
	}

	out := make(map[string]ExceptionRef, len(rows))
	for _, exc := range rows {
		out[exc.Date.Format("2006-01-02")] = ExceptionRef{
			Reason:  exc.Reason,
			RawType: exc.ExceptionType,
			Type:    ParseExceptionType(exc.ExceptionType),
			Level:   LevelEmployee,
		}
	}
	return out, nil
}

// LoadAllPersonalExceptions fetches every employee's waivers inside a date
// range in one query, keyed by employee then date. One fetch serves a whole
// range derivation run.
func LoadAllPersonalExceptions(db *gorm.DB, start, end time.Time) (map[uint]map[string]ExceptionRef, error) {
	var rows []models.PersonalException
	err := db.Where("date BETWEEN ? AND ?", DateOf(start), DateOf(end)).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load personal exceptions: %w", err)
	}

	out := make(map[uint]map[string]ExceptionRef)
	for _, exc := range rows {
		byDay, ok := out[exc.EmployeeID]
		if !ok {
			byDay = make(map[string]ExceptionRef)
			out[exc.EmployeeID] = byDay
		}
		byDay[exc.Date.Format("2006-01-02")] = ExceptionRef{
			Reason:  exc.Reason,
			RawType: exc.ExceptionType,
			Type:    ParseExceptionType(exc.ExceptionType),
			Level:   LevelEmployee,
		}
	}
	return out, nil
}

// LoadDepartmentExceptions fetches the permanent per-department waivers.
func LoadDepartmentExceptions(db *gorm.DB) (map[uint]ExceptionRef, error) {
	var rows []models.DepartmentException
	if err := db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load department exceptions: %w", err)
	}
	out := make(map[uint]ExceptionRef, len(rows))
	for _, exc := range rows {
		out[exc.DepartmentID] = ExceptionRef{
			Reason:  exc.Reason,
			RawType: exc.ExceptionType,
			Type:    ParseExceptionType(exc.ExceptionType),
			Level:   LevelDepartment,
		}
	}
	return out, nil
}

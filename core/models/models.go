package models

import "time"

// Direction is the classified movement of an access event. Unknown is a
// first-class value: such events are stored but never feed lateness or
// lunch derivation.
type Direction string

const (
	DirectionEntry   Direction = "entry"
	DirectionExit    Direction = "exit"
	DirectionUnknown Direction = "unknown"
)

// UnspecifiedName is the sentinel department/position attached to employees
// first seen in a raw log import.
const UnspecifiedName = "Не указан"

type Department struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string `gorm:"uniqueIndex;not null" json:"name"`
	Priority int    `gorm:"default:0" json:"priority"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

type Position struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// DepartmentPosition is the allowed-position-per-department link.
type DepartmentPosition struct {
	ID           uint `gorm:"primaryKey;autoIncrement" json:"id"`
	DepartmentID uint `gorm:"uniqueIndex:idx_dept_pos;not null" json:"departmentId"`
	PositionID   uint `gorm:"uniqueIndex:idx_dept_pos;not null" json:"positionId"`

	Department Department `gorm:"foreignKey:DepartmentID" json:"-"`
	Position   Position   `gorm:"foreignKey:PositionID" json:"-"`
}

type Employee struct {
	ID               uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	FullName         string     `gorm:"uniqueIndex;not null" json:"fullName"`
	FullNameExpanded *string    `json:"fullNameExpanded"`
	DepartmentID     *uint      `gorm:"index" json:"departmentId"`
	PositionID       *uint      `json:"positionId"`
	CardNumber       *string    `json:"cardNumber"`
	BirthDate        *time.Time `gorm:"type:date" json:"birthDate"`
	IsActive         bool       `gorm:"default:true" json:"isActive"`

	Department *Department `gorm:"foreignKey:DepartmentID" json:"-"`
	Position   *Position   `gorm:"foreignKey:PositionID" json:"-"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// AccessEvent is one badge-reader scan. (employee, timestamp, door) is
// unique; duplicate imports are silent no-ops.
type AccessEvent struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	EmployeeID   uint      `gorm:"uniqueIndex:idx_event_identity;not null;index:idx_event_employee_ts"`
	Timestamp    time.Time `gorm:"uniqueIndex:idx_event_identity;not null;index:idx_event_employee_ts"`
	DoorLocation string    `gorm:"uniqueIndex:idx_event_identity;not null"`
	Direction    Direction `gorm:"type:varchar(10);not null;default:unknown"`
	CardNumber   string

	Employee Employee `gorm:"foreignKey:EmployeeID"`

	CreatedAt time.Time
}

// PersonalException waives lateness for one employee on one date.
type PersonalException struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	EmployeeID    uint      `gorm:"uniqueIndex:idx_exc_emp_date;not null" json:"employeeId"`
	Date          time.Time `gorm:"uniqueIndex:idx_exc_emp_date;type:date;not null" json:"date"`
	Reason        string    `json:"reason"`
	ExceptionType string    `gorm:"not null" json:"exceptionType"`

	Employee Employee `gorm:"foreignKey:EmployeeID" json:"-"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// DepartmentException is an always-on waiver for a whole department.
// At most one per department; no date range.
type DepartmentException struct {
	ID            uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	DepartmentID  uint   `gorm:"uniqueIndex;not null" json:"departmentId"`
	Reason        string `json:"reason"`
	ExceptionType string `gorm:"not null" json:"exceptionType"`
	Permanent     bool   `gorm:"default:true" json:"permanent"`

	Department Department `gorm:"foreignKey:DepartmentID" json:"-"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// LunchBreak is the detected exit-before-13:00 / entry-after-14:30 pair for
// an employee-day. DurationMinutes stays nil until both legs are observed.
type LunchBreak struct {
	ID              uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	EmployeeID      uint       `gorm:"uniqueIndex:idx_lunch_emp_date;not null" json:"employeeId"`
	Date            time.Time  `gorm:"uniqueIndex:idx_lunch_emp_date;type:date;not null" json:"date"`
	LunchOut        *time.Time `json:"lunchOut"`
	LunchIn         *time.Time `json:"lunchIn"`
	DurationMinutes *int       `json:"durationMinutes"`

	Employee Employee `gorm:"foreignKey:EmployeeID" json:"-"`

	UpdatedAt time.Time `json:"-"`
}

// User roles: smaller number means more privilege, 0 is root.
type User struct {
	ID           uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string  `gorm:"uniqueIndex;not null" json:"username"`
	Email        string  `json:"email"`
	FullName     string  `json:"fullName"`
	PasswordHash string  `gorm:"not null" json:"-"`
	Role         int     `gorm:"default:3" json:"role"`
	IsActive     bool    `gorm:"default:true" json:"isActive"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}

type UserSession struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	UserID    uint      `gorm:"index;not null"`
	TokenHash string    `gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"not null"`

	User User `gorm:"foreignKey:UserID"`

	CreatedAt time.Time
}

// All lists every model for migration.
func All() []any {
	return []any{
		&Department{},
		&Position{},
		&DepartmentPosition{},
		&Employee{},
		&AccessEvent{},
		&PersonalException{},
		&DepartmentException{},
		&LunchBreak{},
		&User{},
		&UserSession{},
	}
}

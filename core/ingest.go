package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gatelog.io/gatelog/core/models"
	"gatelog.io/gatelog/skud"
)

const insertBatchSize = 500

// ImportStats summarizes one file ingestion run.
type ImportStats struct {
	Lines      int `json:"lines"`
	Parsed     int `json:"parsed"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
}

// Importer streams a raw SKUD export into the event store. Duplicate events
// are absorbed by the (employee, timestamp, door) uniqueness constraint, so
// re-importing a file is an idempotent no-op.
type Importer struct {
	db     *gorm.DB
	parser *skud.Parser
	log    *zap.Logger

	employeeCache map[string]*models.Employee
	sentinelDept  uint
	sentinelPos   uint
}

func NewImporter(db *gorm.DB, parser *skud.Parser, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{
		db:            db,
		parser:        parser,
		log:           log,
		employeeCache: make(map[string]*models.Employee),
	}
}

type touchedDay struct {
	employeeID uint
	date       time.Time
}

// ImportFile reads the export line by line, inserting events in batches.
// The file is decoded from windows-1251 unless it already is valid UTF-8.
// Lines that fail the normalizer's contract are counted and skipped, never
// fatal to the batch.
func (im *Importer) ImportFile(ctx context.Context, r io.Reader) (ImportStats, error) {
	var stats ImportStats

	decoded, err := decodeReader(r)
	if err != nil {
		return stats, err
	}

	if err := im.loadSentinels(ctx); err != nil {
		return stats, err
	}

	scanner := bufio.NewScanner(decoded)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var batch []models.AccessEvent
	touched := make(map[touchedDay]struct{})

	for scanner.Scan() {
		stats.Lines++

		ev, ok := im.parser.Parse(scanner.Text())
		if !ok {
			stats.Skipped++
			continue
		}
		stats.Parsed++

		emp, err := im.resolveEmployee(ctx, ev.FullName, ev.CardNumber)
		if err != nil {
			return stats, err
		}

		batch = append(batch, models.AccessEvent{
			EmployeeID:   emp.ID,
			Timestamp:    ev.Timestamp,
			DoorLocation: ev.DoorLocation,
			Direction:    ev.Direction,
			CardNumber:   ev.CardNumber,
		})
		touched[touchedDay{emp.ID, DateOf(ev.Timestamp)}] = struct{}{}

		if len(batch) >= insertBatchSize {
			if err := im.flush(ctx, batch, &stats); err != nil {
				return stats, err
			}
			batch = batch[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read import file: %w", err)
	}
	if len(batch) > 0 {
		if err := im.flush(ctx, batch, &stats); err != nil {
			return stats, err
		}
	}

	if err := im.syncLunchBreaks(ctx, touched); err != nil {
		return stats, err
	}

	im.log.Info("import finished",
		zap.Int("lines", stats.Lines),
		zap.Int("inserted", stats.Inserted),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("skipped", stats.Skipped))

	return stats, nil
}

// flush inserts a batch with conflict-absorption; the difference between the
// batch size and the affected rows is the duplicate count.
func (im *Importer) flush(ctx context.Context, batch []models.AccessEvent, stats *ImportStats) error {
	res := im.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&batch)
	if res.Error != nil {
		return fmt.Errorf("insert events: %w", res.Error)
	}
	inserted := int(res.RowsAffected)
	stats.Inserted += inserted
	stats.Duplicates += len(batch) - inserted
	return nil
}

func (im *Importer) loadSentinels(ctx context.Context) error {
	if im.sentinelDept != 0 {
		return nil
	}
	var dept models.Department
	if err := im.db.WithContext(ctx).Where("name = ?", models.UnspecifiedName).First(&dept).Error; err != nil {
		return fmt.Errorf("sentinel department missing: %w", err)
	}
	var pos models.Position
	if err := im.db.WithContext(ctx).Where("name = ?", models.UnspecifiedName).First(&pos).Error; err != nil {
		return fmt.Errorf("sentinel position missing: %w", err)
	}
	im.sentinelDept = dept.ID
	im.sentinelPos = pos.ID
	return nil
}

// resolveEmployee finds the employee by exact full name, creating one under
// the sentinel department/position when unknown. The card number is
// back-filled only while unset; once populated it is never overwritten.
func (im *Importer) resolveEmployee(ctx context.Context, fullName, cardNumber string) (*models.Employee, error) {
	if emp, ok := im.employeeCache[fullName]; ok {
		return emp, im.backfillCard(ctx, emp, cardNumber)
	}

	var emp models.Employee
	err := im.db.WithContext(ctx).Where("full_name = ?", fullName).First(&emp).Error
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		emp = models.Employee{
			FullName:     fullName,
			DepartmentID: &im.sentinelDept,
			PositionID:   &im.sentinelPos,
			IsActive:     true,
		}
		if cardNumber != "" {
			emp.CardNumber = &cardNumber
		}
		if err := im.db.WithContext(ctx).Create(&emp).Error; err != nil {
			return nil, fmt.Errorf("create employee %q: %w", fullName, err)
		}
		im.log.Info("new employee from import", zap.String("fullName", fullName))
	default:
		return nil, fmt.Errorf("lookup employee %q: %w", fullName, err)
	}

	im.employeeCache[fullName] = &emp
	return &emp, im.backfillCard(ctx, &emp, cardNumber)
}

func (im *Importer) backfillCard(ctx context.Context, emp *models.Employee, cardNumber string) error {
	if cardNumber == "" || (emp.CardNumber != nil && *emp.CardNumber != "") {
		return nil
	}
	if err := im.db.WithContext(ctx).Model(emp).Update("card_number", cardNumber).Error; err != nil {
		return fmt.Errorf("backfill card for %q: %w", emp.FullName, err)
	}
	emp.CardNumber = &cardNumber
	return nil
}

// syncLunchBreaks re-derives and upserts the lunch fact for every
// (employee, day) the import touched.
func (im *Importer) syncLunchBreaks(ctx context.Context, touched map[touchedDay]struct{}) error {
	for day := range touched {
		events, err := LoadDayEvents(im.db.WithContext(ctx), day.employeeID, day.date)
		if err != nil {
			return err
		}

		lunch := DetectLunchBreak(events, im.log)
		if lunch.Out == nil && lunch.In == nil {
			continue
		}

		var row models.LunchBreak
		err = im.db.WithContext(ctx).
			Where("employee_id = ? AND date = ?", day.employeeID, day.date).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = models.LunchBreak{EmployeeID: day.employeeID, Date: day.date}
		} else if err != nil {
			return fmt.Errorf("load lunch break: %w", err)
		}

		row.LunchOut = lunch.Out
		row.LunchIn = lunch.In
		row.DurationMinutes = lunch.DurationMinutes
		if err := im.db.WithContext(ctx).Save(&row).Error; err != nil {
			return fmt.Errorf("save lunch break: %w", err)
		}
	}
	return nil
}

// LoadDayEvents fetches one employee-day of events as engine input.
func LoadDayEvents(db *gorm.DB, employeeID uint, date time.Time) ([]DayEvent, error) {
	start := DateOf(date)
	end := start.Add(24 * time.Hour)

	var rows []models.AccessEvent
	err := db.Where("employee_id = ? AND timestamp >= ? AND timestamp < ?", employeeID, start, end).
		Order("timestamp").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load day events: %w", err)
	}

	events := make([]DayEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, DayEvent{
			Time:      row.Timestamp,
			Door:      row.DoorLocation,
			Direction: row.Direction,
		})
	}
	return events, nil
}

// DateOf truncates a timestamp to its calendar day.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// decodeReader sniffs the stream: valid UTF-8 passes through untouched,
// anything else is decoded from windows-1251 (the encoding the SKUD
// workstation exports use).
func decodeReader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("sniff encoding: %w", err)
	}

	// Tolerate a rune cut off at the peek boundary.
	trimmed := head
	for len(trimmed) > 0 && len(head)-len(trimmed) < utf8.UTFMax && !utf8.Valid(trimmed) {
		trimmed = trimmed[:len(trimmed)-1]
	}

	if utf8.Valid(trimmed) {
		return br, nil
	}
	return transform.NewReader(br, charmap.Windows1251.NewDecoder()), nil
}

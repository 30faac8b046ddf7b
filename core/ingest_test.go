package core

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gatelog.io/gatelog/core/models"
	"gatelog.io/gatelog/skud"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	require.NoError(t, seedSentinels(db))
	return db
}

func newTestImporter(db *gorm.DB) *Importer {
	return NewImporter(db, skud.NewParser(skud.Config{}), nil)
}

// rawLine builds one export row. Field order: workstation, timestamp,
// event type, zone, door, description, address, access zone, full name,
// comment.
func rawLine(ts, name, card, door, description string) string {
	return strings.Join([]string{
		"Проходная-1", ts, skud.AccessGrantedEvent,
		fmt.Sprintf("Зона [%s]", card), door, description,
		"192.168.1.10", "Основная", name, "-",
	}, "\t")
}

func charmapEncode(s string) (string, error) {
	return charmap.Windows1251.NewEncoder().String(s)
}

func TestImportFileIdempotent(t *testing.T) {
	db := openTestDB(t)

	data := strings.Join([]string{
		rawLine("15.01.2024 09:15:00", "Иванов И.И.", "12345", "Турникет 1", "Вход в здание"),
		rawLine("15.01.2024 18:02:00", "Иванов И.И.", "12345", "Турникет 1", "Выход из здания"),
	}, "\n")

	stats, err := newTestImporter(db).ImportFile(context.Background(), strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Parsed)
	assert.Equal(t, 2, stats.Inserted)
	assert.Equal(t, 0, stats.Duplicates)

	// Same file again: every event is absorbed by the identity constraint.
	stats, err = newTestImporter(db).ImportFile(context.Background(), strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Inserted)
	assert.Equal(t, 2, stats.Duplicates)

	var count int64
	require.NoError(t, db.Model(&models.AccessEvent{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestImportFileCreatesEmployeeUnderSentinels(t *testing.T) {
	db := openTestDB(t)

	data := rawLine("15.01.2024 09:00:00", "Петров П.П.", "777", "Турникет 2", "Вход")
	_, err := newTestImporter(db).ImportFile(context.Background(), strings.NewReader(data))
	require.NoError(t, err)

	var emp models.Employee
	require.NoError(t, db.Preload("Department").Preload("Position").
		Where("full_name = ?", "Петров П.П.").First(&emp).Error)
	assert.Equal(t, models.UnspecifiedName, emp.Department.Name)
	assert.Equal(t, models.UnspecifiedName, emp.Position.Name)
	require.NotNil(t, emp.CardNumber)
	assert.Equal(t, "777", *emp.CardNumber)
	assert.True(t, emp.IsActive)
}

func TestImportFileCardBackfillOnlyWhenEmpty(t *testing.T) {
	db := openTestDB(t)

	existing := models.Employee{FullName: "Сидоров С.С.", IsActive: true}
	require.NoError(t, db.Create(&existing).Error)

	data := rawLine("15.01.2024 09:00:00", "Сидоров С.С.", "111", "Турникет 1", "Вход")
	_, err := newTestImporter(db).ImportFile(context.Background(), strings.NewReader(data))
	require.NoError(t, err)

	var emp models.Employee
	require.NoError(t, db.First(&emp, existing.ID).Error)
	require.NotNil(t, emp.CardNumber)
	assert.Equal(t, "111", *emp.CardNumber)

	// A different card later does not overwrite the stored one.
	data = rawLine("16.01.2024 09:00:00", "Сидоров С.С.", "999", "Турникет 1", "Вход")
	_, err = newTestImporter(db).ImportFile(context.Background(), strings.NewReader(data))
	require.NoError(t, err)

	require.NoError(t, db.First(&emp, existing.ID).Error)
	assert.Equal(t, "111", *emp.CardNumber)
}

func TestImportFileSkipsGarbageLines(t *testing.T) {
	db := openTestDB(t)

	data := strings.Join([]string{
		"РМ\tВремя\tСобытие\tЗона\tДверь\tОписание\tАдрес\tЗона доступа\tСотрудник\tКомментарий",
		"short\tline",
		rawLine("15.01.2024 09:00:00", "Иванов И.И.", "1", "Турникет 1", "Вход"),
	}, "\n")

	stats, err := newTestImporter(db).ImportFile(context.Background(), strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Lines)
	assert.Equal(t, 1, stats.Parsed)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 1, stats.Inserted)
}

func TestImportFileDecodesWindows1251(t *testing.T) {
	db := openTestDB(t)

	line := rawLine("15.01.2024 09:10:00", "Иванов И.И.", "5", "Турникет 1", "Вход в здание")
	encoded, err := charmapEncode(line)
	require.NoError(t, err)

	stats, err := newTestImporter(db).ImportFile(context.Background(), strings.NewReader(encoded))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Inserted)

	var emp models.Employee
	require.NoError(t, db.Where("full_name = ?", "Иванов И.И.").First(&emp).Error)
}

func TestImportFileSyncsLunchBreak(t *testing.T) {
	db := openTestDB(t)

	data := strings.Join([]string{
		rawLine("15.01.2024 08:55:00", "Иванов И.И.", "1", "Турникет 1", "Вход"),
		rawLine("15.01.2024 12:50:00", "Иванов И.И.", "1", "Турникет 1", "Выход"),
		rawLine("15.01.2024 15:05:00", "Иванов И.И.", "1", "Турникет 1", "Вход"),
		rawLine("15.01.2024 18:00:00", "Иванов И.И.", "1", "Турникет 1", "Выход"),
	}, "\n")

	_, err := newTestImporter(db).ImportFile(context.Background(), strings.NewReader(data))
	require.NoError(t, err)

	var lunch models.LunchBreak
	require.NoError(t, db.First(&lunch).Error)
	require.NotNil(t, lunch.DurationMinutes)
	assert.Equal(t, 135, *lunch.DurationMinutes)
}

package skud

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gatelog.io/gatelog/core/models"
)

func rawLine(fields ...string) string {
	return strings.Join(fields, "\t")
}

func validLine() string {
	return rawLine(
		"АРМ-1",
		"15.01.2024 08:45:12",
		"Доступ предоставлен",
		"Зона 1 [12345]",
		"Главный вход",
		"Вход в здание",
		"10.0.0.15",
		"Офис",
		"Иванов И.И.",
		"",
	)
}

func TestParseValidLine(t *testing.T) {
	p := NewParser(Config{})

	ev, ok := p.Parse(validLine())
	assert.True(t, ok)
	assert.Equal(t, "Иванов И.И.", ev.FullName)
	assert.Equal(t, "12345", ev.CardNumber)
	assert.Equal(t, "Главный вход", ev.DoorLocation)
	assert.Equal(t, models.DirectionEntry, ev.Direction)
	assert.Equal(t, time.Date(2024, 1, 15, 8, 45, 12, 0, time.UTC), ev.Timestamp)
}

func TestParseRejections(t *testing.T) {
	p := NewParser(Config{
		ExcludeEmployees: []string{"Охрана М."},
		ExcludeDoors:     []string{"Серверная"},
	})

	tests := []struct {
		name string
		line string
	}{
		{
			name: "header row",
			line: rawLine("РМ", "Время", "Событие", "Зона", "Дверь", "Описание", "Адрес", "Зона доступа", "Хозорган", "Комментарий"),
		},
		{
			name: "too few fields",
			line: rawLine("АРМ-1", "15.01.2024 08:45:12", "Доступ предоставлен"),
		},
		{
			name: "wrong event type",
			line: rawLine("АРМ-1", "15.01.2024 08:45:12", "Доступ запрещен", "Зона 1", "Дверь", "Вход", "адрес", "зона", "Иванов И.И.", ""),
		},
		{
			name: "empty employee name",
			line: rawLine("АРМ-1", "15.01.2024 08:45:12", "Доступ предоставлен", "Зона 1", "Дверь", "Вход", "адрес", "зона", "", ""),
		},
		{
			name: "placeholder employee name",
			line: rawLine("АРМ-1", "15.01.2024 08:45:12", "Доступ предоставлен", "Зона 1", "Дверь", "Вход", "адрес", "зона", "-", ""),
		},
		{
			name: "excluded employee",
			line: rawLine("АРМ-1", "15.01.2024 08:45:12", "Доступ предоставлен", "Зона 1", "Дверь", "Вход", "адрес", "зона", "Охрана М.", ""),
		},
		{
			name: "excluded door",
			line: rawLine("АРМ-1", "15.01.2024 08:45:12", "Доступ предоставлен", "Зона 1", "Серверная дверь", "Вход", "адрес", "зона", "Иванов И.И.", ""),
		},
		{
			name: "malformed timestamp",
			line: rawLine("АРМ-1", "2024-01-15 08:45:12", "Доступ предоставлен", "Зона 1", "Дверь", "Вход", "адрес", "зона", "Иванов И.И.", ""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := p.Parse(tt.line)
			assert.False(t, ok)
		})
	}
}

func TestDoorFallsBackToDescription(t *testing.T) {
	p := NewParser(Config{})

	line := rawLine("АРМ-1", "15.01.2024 18:02:00", "Доступ предоставлен", "Зона 1", "-", "Выход через турникет", "адрес", "зона", "Иванов И.И.", "")
	ev, ok := p.Parse(line)
	assert.True(t, ok)
	assert.Equal(t, "Выход через турникет", ev.DoorLocation)
	assert.Equal(t, models.DirectionExit, ev.Direction)
}

func TestClassifyDirection(t *testing.T) {
	tests := []struct {
		name        string
		description string
		expected    models.Direction
	}{
		{"russian entry", "Вход в здание", models.DirectionEntry},
		{"russian exit", "Выход из здания", models.DirectionExit},
		{"lowercase exit", "главный выход", models.DirectionExit},
		{"english entry", "Main entry", models.DirectionEntry},
		{"english exit", "Main exit", models.DirectionExit},
		{"exit wins over entry", "Вход/Выход", models.DirectionExit},
		{"no keyword", "Турникет 2", models.DirectionUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyDirection(tt.description))
		})
	}
}

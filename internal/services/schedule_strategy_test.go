package services

import (
	"testing"

	"expensetracker/internal/core"
)

func TestMonthlySchedule_Next(t *testing.T) {
	tests := []struct {
		name   string
		from   core.Date
		anchor core.Date
		want   core.Date
	}{
		{
			name:   "end of january clamps to leap february",
			from:   core.NewDate(2024, 1, 31),
			anchor: core.NewDate(2024, 1, 31),
			want:   core.NewDate(2024, 2, 29),
		},
		{
			name:   "clamped february returns to anchor day",
			from:   core.NewDate(2024, 2, 29),
			anchor: core.NewDate(2024, 1, 31),
			want:   core.NewDate(2024, 3, 31),
		},
		{
			name:   "thirty day month clamps",
			from:   core.NewDate(2024, 3, 31),
			anchor: core.NewDate(2024, 1, 31),
			want:   core.NewDate(2024, 4, 30),
		},
		{
			name:   "december rolls over the year",
			from:   core.NewDate(2024, 12, 15),
			anchor: core.NewDate(2024, 1, 15),
			want:   core.NewDate(2025, 1, 15),
		},
		{
			name:   "common year february",
			from:   core.NewDate(2023, 1, 30),
			anchor: core.NewDate(2023, 1, 30),
			want:   core.NewDate(2023, 2, 28),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MonthlySchedule{}.Next(tt.from, tt.anchor)
			if got != tt.want {
				t.Errorf("MonthlySchedule.Next() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestYearlySchedule_Next(t *testing.T) {
	tests := []struct {
		name   string
		from   core.Date
		anchor core.Date
		want   core.Date
	}{
		{
			name:   "plain anniversary",
			from:   core.NewDate(2024, 3, 10),
			anchor: core.NewDate(2024, 3, 10),
			want:   core.NewDate(2025, 3, 10),
		},
		{
			name:   "leap day clamps in common year",
			from:   core.NewDate(2024, 2, 29),
			anchor: core.NewDate(2024, 2, 29),
			want:   core.NewDate(2025, 2, 28),
		},
		{
			name:   "leap day restored in next leap year",
			from:   core.NewDate(2027, 2, 28),
			anchor: core.NewDate(2024, 2, 29),
			want:   core.NewDate(2028, 2, 29),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := YearlySchedule{}.Next(tt.from, tt.anchor)
			if got != tt.want {
				t.Errorf("YearlySchedule.Next() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDailyAndWeeklySchedule(t *testing.T) {
	from := core.NewDate(2024, 2, 28)
	if got := (DailySchedule{}).Next(from, from); got != core.NewDate(2024, 2, 29) {
		t.Errorf("DailySchedule.Next() = %v", got)
	}
	if got := (WeeklySchedule{}).Next(from, from); got != core.NewDate(2024, 3, 6) {
		t.Errorf("WeeklySchedule.Next() = %v", got)
	}
}

func TestGetScheduleStrategy(t *testing.T) {
	for _, f := range []core.Frequency{core.Daily, core.Weekly, core.Monthly, core.Yearly} {
		if _, err := GetScheduleStrategy(f); err != nil {
			t.Errorf("GetScheduleStrategy(%s) error = %v", f, err)
		}
	}
	if _, err := GetScheduleStrategy("fortnightly"); err == nil {
		t.Error("expected error for unknown frequency")
	}
}

// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for recurring expense scheduling.
// Each frequency (daily, weekly, monthly, yearly) has its own strategy that
// computes the occurrence following a given one.

package services

import (
	"fmt"
	"time"

	"expensetracker/internal/core"
)

// ScheduleStrategy computes the next occurrence of a recurring expense.
// anchor is the definition's start date, which fixes the day-of-month and
// month-of-year that clamped occurrences return to.
type ScheduleStrategy interface {
	Next(from, anchor core.Date) core.Date
}

// DailySchedule advances by one day.
type DailySchedule struct{}

func (DailySchedule) Next(from, _ core.Date) core.Date {
	return from.AddDays(1)
}

// WeeklySchedule advances by seven days.
type WeeklySchedule struct{}

func (WeeklySchedule) Next(from, _ core.Date) core.Date {
	return from.AddDays(7)
}

// MonthlySchedule advances one calendar month, keeping the anchor's day and
// clamping it to the last day of shorter months.
type MonthlySchedule struct{}

func (MonthlySchedule) Next(from, anchor core.Date) core.Date {
	year, month := from.Year(), from.Time.Month()+1
	if month > time.December {
		year, month = year+1, time.January
	}
	return clampedDate(year, month, anchor.Day())
}

// YearlySchedule advances one year on the anchor's month and day.
// A Feb 29 anchor falls on Feb 28 in common years.
type YearlySchedule struct{}

func (YearlySchedule) Next(from, anchor core.Date) core.Date {
	return clampedDate(from.Year()+1, anchor.Time.Month(), anchor.Day())
}

func clampedDate(year int, month time.Month, day int) core.Date {
	if last := core.DaysIn(year, month); day > last {
		day = last
	}
	return core.NewDate(year, int(month), day)
}

// scheduleStrategies maps frequencies to their strategies.
var scheduleStrategies = map[core.Frequency]ScheduleStrategy{
	core.Daily:   DailySchedule{},
	core.Weekly:  WeeklySchedule{},
	core.Monthly: MonthlySchedule{},
	core.Yearly:  YearlySchedule{},
}

// GetScheduleStrategy returns the strategy for a frequency.
func GetScheduleStrategy(frequency core.Frequency) (ScheduleStrategy, error) {
	s, ok := scheduleStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return s, nil
}

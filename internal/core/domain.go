package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// MaxDescriptionLength caps free-text descriptions.
const MaxDescriptionLength = 500

type (
	Frequency string

	Expense struct {
		ID          int64
		Date        Date
		Amount      Money
		Category    string
		Subcategory string // empty when not set
		Description string
		CreatedAt   time.Time
	}

	// ExpenseDraft is the caller-supplied part of a new Expense.
	ExpenseDraft struct {
		Date        Date
		Amount      Money
		Category    string
		Subcategory string
		Description string
	}

	// ExpensePatch carries the fields of a partial update. Nil means absent.
	ExpensePatch struct {
		Date        *Date
		Amount      *Money
		Category    *string
		Subcategory *string
		Description *string
	}

	RecurringExpense struct {
		ID          int64
		Category    string
		Subcategory string
		Description string
		Amount      Money
		Frequency   Frequency
		StartDate   Date
		EndDate     Date // zero when open-ended
		NextDue     Date
		Active      bool
		CreatedAt   time.Time
	}

	RecurringDraft struct {
		Category    string
		Subcategory string
		Description string
		Amount      Money
		Frequency   Frequency
		StartDate   Date
		EndDate     Date
	}
)

var frequencies = []Frequency{Daily, Weekly, Monthly, Yearly}

func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range frequencies {
		if f == known {
			return f, nil
		}
	}
	return "", Invalid("frequency", s, "must be one of daily, weekly, monthly or yearly")
}

func validateDescription(s string) error {
	if len(s) > MaxDescriptionLength {
		return Invalid("description", strconv.Itoa(len(s))+" chars", fmt.Sprintf("too long (max %d characters)", MaxDescriptionLength))
	}
	return nil
}

func validateCategory(s string) error {
	if strings.TrimSpace(s) == "" {
		return Invalid("category", "", "is required")
	}
	return nil
}

// Validate checks the shape of the draft. Taxonomy membership is checked by the caller.
func (d ExpenseDraft) Validate() error {
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	if err := d.Date.Validate(); err != nil {
		return err
	}
	if err := validateCategory(d.Category); err != nil {
		return err
	}
	return validateDescription(d.Description)
}

func (p ExpensePatch) IsEmpty() bool {
	return p.Date == nil && p.Amount == nil && p.Category == nil && p.Subcategory == nil && p.Description == nil
}

// TouchesBudget reports whether the patch can move spending between or within budgets.
func (p ExpensePatch) TouchesBudget() bool {
	return p.Date != nil || p.Amount != nil || p.Category != nil
}

// Apply returns a copy of e with the supplied fields replaced.
func (p ExpensePatch) Apply(e Expense) Expense {
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Category != nil {
		e.Category = strings.TrimSpace(*p.Category)
	}
	if p.Subcategory != nil {
		e.Subcategory = strings.TrimSpace(*p.Subcategory)
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	return e
}

// Validate checks each supplied field against the same rules as ExpenseDraft.
func (p ExpensePatch) Validate() error {
	if p.IsEmpty() {
		return Invalid("fields", "", "at least one field must be supplied")
	}
	if p.Amount != nil {
		if err := p.Amount.Validate(); err != nil {
			return err
		}
	}
	if p.Date != nil {
		if err := p.Date.Validate(); err != nil {
			return err
		}
	}
	if p.Category != nil {
		if err := validateCategory(*p.Category); err != nil {
			return err
		}
	}
	if p.Description != nil {
		return validateDescription(*p.Description)
	}
	return nil
}

func (d RecurringDraft) Validate() error {
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	if err := validateCategory(d.Category); err != nil {
		return err
	}
	if _, err := ParseFrequency(string(d.Frequency)); err != nil {
		return err
	}
	if d.StartDate.IsZero() {
		return Invalid("start_date", "", "is required")
	}
	if !d.EndDate.IsZero() && d.EndDate.Before(d.StartDate) {
		return Invalid("end_date", d.EndDate.String(), "must not be before start_date "+d.StartDate.String())
	}
	return validateDescription(d.Description)
}

// MaterializedDescription is the description given to expenses generated from the definition.
func (r RecurringExpense) MaterializedDescription() string {
	if strings.TrimSpace(r.Description) == "" {
		return fmt.Sprintf("Recurring %s expense", r.Frequency)
	}
	return fmt.Sprintf("[Recurring %s] %s", r.Frequency, r.Description)
}

// DueOn reports whether an occurrence falls on or before asOf and inside the definition's window.
func (r RecurringExpense) DueOn(asOf Date) bool {
	if !r.Active || r.NextDue.After(asOf) {
		return false
	}
	return r.EndDate.IsZero() || !r.NextDue.After(r.EndDate)
}

package core

import (
	"strconv"
	"strings"
)

type selectorKind int

const (
	selectNone selectorKind = iota
	selectID
	selectIDs
	selectRange
	selectCategory
	selectAll
)

// DeleteSelector names exactly one way of choosing expenses to delete.
// Build it with one of the DeleteBy constructors or DeleteAll.
type DeleteSelector struct {
	kind     selectorKind
	ID       int64
	IDs      []int64
	Range    DateRange
	Category string
}

func DeleteByID(id int64) DeleteSelector {
	return DeleteSelector{kind: selectID, ID: id}
}

func DeleteByIDs(ids []int64) DeleteSelector {
	return DeleteSelector{kind: selectIDs, IDs: ids}
}

func DeleteByDateRange(r DateRange) DeleteSelector {
	return DeleteSelector{kind: selectRange, Range: r}
}

func DeleteByCategory(category string) DeleteSelector {
	return DeleteSelector{kind: selectCategory, Category: strings.TrimSpace(category)}
}

func DeleteAll() DeleteSelector {
	return DeleteSelector{kind: selectAll}
}

func (s DeleteSelector) IsSingle() bool   { return s.kind == selectID }
func (s DeleteSelector) IsIDs() bool      { return s.kind == selectIDs }
func (s DeleteSelector) IsRange() bool    { return s.kind == selectRange }
func (s DeleteSelector) IsCategory() bool { return s.kind == selectCategory }
func (s DeleteSelector) IsAll() bool      { return s.kind == selectAll }

func (s DeleteSelector) Validate() error {
	switch s.kind {
	case selectID:
		if s.ID <= 0 {
			return Invalid("id", strconv.FormatInt(s.ID, 10), "must be positive")
		}
	case selectIDs:
		if len(s.IDs) == 0 {
			return Invalid("ids", "[]", "must not be empty")
		}
		for _, id := range s.IDs {
			if id <= 0 {
				return Invalid("ids", strconv.FormatInt(id, 10), "must all be positive")
			}
		}
	case selectRange:
		if s.Range.From.IsZero() || s.Range.To.IsZero() {
			return Invalid("date_range", "", "start_date and end_date are both required")
		}
		return s.Range.Validate()
	case selectCategory:
		if s.Category == "" {
			return Invalid("category", "", "is required")
		}
	case selectAll:
	default:
		return Invalid("selector", "", "exactly one of id, ids, date range, category or delete_all is required")
	}
	return nil
}

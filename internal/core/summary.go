package core

// UncategorizedBucket collects expenses without a subcategory in breakdowns.
const UncategorizedBucket = "uncategorized"

// CategoryTotal is an amount aggregated by category name.
type CategoryTotal struct {
	Category string
	Total    Money
	Count    int64
}

// MonthTotal is the spending of one month of a year.
type MonthTotal struct {
	Month int // 1-12
	Total Money
	Count int64
}

// CategoryBreakdown splits one category's spending by subcategory.
type CategoryBreakdown struct {
	Total         Money
	Count         int64
	Subcategories map[string]Money
}

// ExpenseFilter narrows a listing. Zero values match everything.
type ExpenseFilter struct {
	Range    DateRange
	Category string
}

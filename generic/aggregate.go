/*
aggregate.go - Monthly aggregation of transactions

PURPOSE:
  Groups transactions into calendar-month buckets (local month boundaries)
  with totals by category and by spending nature. Every forecasting and
  planning computation starts from these buckets.

KEY INSIGHT:
  Aggregates are DERIVED. They are recomputed on every call and never
  persisted, so the same transaction set (in any order) always produces the
  same buckets.

CONTIGUITY:
  AggregateMonths returns one bucket per month from the first to the last
  month that has data, including empty months in between. Empty months are
  real information (nothing was spent), not missing data.

SEE ALSO:
  - brain/features.go: Builds training samples from aggregates
  - scenario/baseline.go: Trailing-window statistics from aggregates
*/
package generic

import (
	"sort"
	"time"
)

// MonthlyAggregate holds the totals of one calendar month.
type MonthlyAggregate struct {
	Month        Month
	IncomeCents  int64
	ExpenseCents int64
	TxCount      int

	// Expenses only.
	ByCategory map[string]int64
	ByNature   map[SpendingNature]int64

	// DailyExpenses[d-1] is the expense total of day d.
	DailyExpenses []int64
}

func newMonthlyAggregate(m Month) MonthlyAggregate {
	return MonthlyAggregate{
		Month:         m,
		ByCategory:    make(map[string]int64),
		ByNature:      make(map[SpendingNature]int64),
		DailyExpenses: make([]int64, m.DaysIn()),
	}
}

// EmptyMonth returns a zeroed aggregate for m.
func EmptyMonth(m Month) MonthlyAggregate { return newMonthlyAggregate(m) }

// Active reports whether the month has at least one transaction.
func (a MonthlyAggregate) Active() bool { return a.TxCount > 0 }

// FreeCashFlow is income minus expenses.
func (a MonthlyAggregate) FreeCashFlow() int64 { return a.IncomeCents - a.ExpenseCents }

// ExpensesThroughDay sums expenses from day 1 to day (inclusive).
func (a MonthlyAggregate) ExpensesThroughDay(day int) int64 {
	if day > len(a.DailyExpenses) {
		day = len(a.DailyExpenses)
	}
	var total int64
	for i := 0; i < day; i++ {
		total += a.DailyExpenses[i]
	}
	return total
}

// NatureShare returns the share of this month's expenses with nature n.
func (a MonthlyAggregate) NatureShare(n SpendingNature) float64 {
	if a.ExpenseCents <= 0 {
		return 0
	}
	return float64(a.ByNature[n]) / float64(a.ExpenseCents)
}

func (a *MonthlyAggregate) add(tx TransactionSample, nature SpendingNature, day int) {
	amount := tx.Magnitude()
	a.TxCount++
	switch tx.Type {
	case TxIncome:
		a.IncomeCents += amount
	case TxExpense:
		a.ExpenseCents += amount
		a.ByCategory[tx.CategoryID] += amount
		if nature.Known() {
			a.ByNature[nature] += amount
		}
		if day >= 1 && day <= len(a.DailyExpenses) {
			a.DailyExpenses[day-1] += amount
		}
	}
}

// AggregateMonths buckets transactions by calendar month in loc.
// Transactions at or after notAfter are ignored when notAfter is non-zero.
func AggregateMonths(txs []TransactionSample, idx CategoryIndex, loc *time.Location, notAfter time.Time) []MonthlyAggregate {
	buckets := make(map[Month]*MonthlyAggregate)
	loc = location(loc)

	for _, tx := range txs {
		if !tx.Valid() {
			continue
		}
		if !notAfter.IsZero() && !tx.Timestamp.Before(notAfter) {
			continue
		}
		local := tx.Timestamp.In(loc)
		m := Month{Year: local.Year(), Month: local.Month()}
		b, ok := buckets[m]
		if !ok {
			agg := newMonthlyAggregate(m)
			b = &agg
			buckets[m] = b
		}
		b.add(tx, idx.NatureOf(tx), local.Day())
	}

	if len(buckets) == 0 {
		return nil
	}

	keys := make([]Month, 0, len(buckets))
	for m := range buckets {
		keys = append(keys, m)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	first, last := keys[0], keys[len(keys)-1]
	result := make([]MonthlyAggregate, 0, MonthsBetween(first, last)+1)
	for m := first; !m.After(last); m = m.AddMonths(1) {
		if b, ok := buckets[m]; ok {
			result = append(result, *b)
		} else {
			result = append(result, newMonthlyAggregate(m))
		}
	}
	return result
}

// AggregateByMonth is AggregateMonths keyed by month.
func AggregateByMonth(txs []TransactionSample, idx CategoryIndex, loc *time.Location, notAfter time.Time) map[Month]MonthlyAggregate {
	aggs := AggregateMonths(txs, idx, loc, notAfter)
	out := make(map[Month]MonthlyAggregate, len(aggs))
	for _, a := range aggs {
		out[a.Month] = a
	}
	return out
}

/*
Package scenario turns spending history into savings plans.

PURPOSE:
  Everything here is a pure function of its inputs. Given a transaction
  history it computes trailing statistics (baseline), proposes savings
  configurations (generator), resolves one configuration into margins,
  a sustainability verdict and a goal projection (calculator), and derives
  the optional short-term correction from the predictor (overlay).

KEY CONCEPTS IN THIS FILE (baseline.go):
  - Window: 3, 6 or 12 completed months before the current month
  - BaselineMetrics: Averages by spending nature plus volatility
  - Category averages: Per-category monthly averages over the same window

The current, partial month never enters the baseline. Months before the
first recorded transaction are not counted; quiet months after it are.

SEE ALSO:
  - generator.go: Calibration and named configurations
  - calculator.go: Scenario resolution
*/
package scenario

import (
	"sort"
	"time"

	"github.com/warp/household-engine/generic"
)

// Supported trailing windows, in months.
var Windows = []int{3, 6, 12}

const DefaultWindow = 6

// NormalizeWindow snaps any window to the nearest supported size at or above it.
func NormalizeWindow(months int) int {
	for _, w := range Windows {
		if months <= w {
			return w
		}
	}
	return Windows[len(Windows)-1]
}

// ValidateWindow rejects unsupported window sizes.
func ValidateWindow(months int) error {
	for _, w := range Windows {
		if months == w {
			return nil
		}
	}
	return generic.ErrInvalidWindow
}

// BaselineMetrics are trailing monthly statistics in integer cents.
type BaselineMetrics struct {
	WindowMonths int `json:"windowMonths"`

	AverageMonthlyIncome       int64 `json:"averageMonthlyIncome"`
	AverageMonthlyExpenses     int64 `json:"averageMonthlyExpenses"`
	AverageEssentialExpenses   int64 `json:"averageEssentialExpenses"`
	AverageComfortExpenses     int64 `json:"averageComfortExpenses"`
	AverageSuperfluousExpenses int64 `json:"averageSuperfluousExpenses"`

	ExpensesStdDev     int64 `json:"expensesStdDev"`
	FreeCashFlowStdDev int64 `json:"freeCashFlowStdDev"`

	MonthsAnalyzed        int     `json:"monthsAnalyzed"`
	ActiveMonths          int     `json:"activeMonths"`
	ActivityCoverageRatio float64 `json:"activityCoverageRatio"`
}

// AverageMonthlyFreeCashFlow is average income minus average expenses.
func (b BaselineMetrics) AverageMonthlyFreeCashFlow() int64 {
	return b.AverageMonthlyIncome - b.AverageMonthlyExpenses
}

// trailingMonths returns the completed months of the window, oldest first.
func trailingMonths(txs []generic.TransactionSample, cats []generic.CategoryMeta, window int, now time.Time, loc *time.Location) []generic.MonthlyAggregate {
	current := generic.MonthOf(now, loc)
	from := current.AddMonths(-NormalizeWindow(window))
	last := current.AddMonths(-1)

	byMonth := generic.AggregateByMonth(txs, generic.IndexCategories(cats), loc, current.Start(loc))
	if len(byMonth) == 0 {
		return nil
	}
	first := last
	for m := range byMonth {
		if m.Before(first) {
			first = m
		}
	}
	if first.After(from) {
		from = first
	}

	var months []generic.MonthlyAggregate
	for m := from; !m.After(last); m = m.AddMonths(1) {
		if agg, ok := byMonth[m]; ok {
			months = append(months, agg)
		} else {
			months = append(months, generic.EmptyMonth(m))
		}
	}
	return months
}

// CalculateBaselineMetrics computes trailing statistics over the window.
// The window is snapped to 3, 6 or 12 months.
func CalculateBaselineMetrics(txs []generic.TransactionSample, cats []generic.CategoryMeta, window int, now time.Time, loc *time.Location) BaselineMetrics {
	b := BaselineMetrics{WindowMonths: NormalizeWindow(window)}
	months := trailingMonths(txs, cats, window, now, loc)
	if len(months) == 0 {
		return b
	}

	var income, expenses, essential, comfort, superfluous int64
	expenseSeries := make([]float64, 0, len(months))
	fcfSeries := make([]float64, 0, len(months))
	for _, m := range months {
		income += m.IncomeCents
		expenses += m.ExpenseCents
		essential += m.ByNature[generic.NatureEssential]
		comfort += m.ByNature[generic.NatureComfort]
		superfluous += m.ByNature[generic.NatureSuperfluous]
		expenseSeries = append(expenseSeries, float64(m.ExpenseCents))
		fcfSeries = append(fcfSeries, float64(m.FreeCashFlow()))
		if m.Active() {
			b.ActiveMonths++
		}
	}

	n := len(months)
	b.MonthsAnalyzed = n
	b.AverageMonthlyIncome = generic.DivRound(income, n)
	b.AverageMonthlyExpenses = generic.DivRound(expenses, n)
	b.AverageEssentialExpenses = generic.DivRound(essential, n)
	b.AverageComfortExpenses = generic.DivRound(comfort, n)
	b.AverageSuperfluousExpenses = generic.DivRound(superfluous, n)
	b.ExpensesStdDev = generic.RoundCents(generic.StdDev(expenseSeries))
	b.FreeCashFlowStdDev = generic.RoundCents(generic.StdDev(fcfSeries))
	b.ActivityCoverageRatio = generic.Clamp01(float64(b.ActiveMonths) / float64(n))
	return b
}

// CategoryAverage is one category's monthly average over the window.
type CategoryAverage struct {
	CategoryID     string                 `json:"categoryId"`
	SpendingNature generic.SpendingNature `json:"spendingNature"`
	AverageCents   int64                  `json:"averageCents"`
}

// CalculateCategoryAverages returns per-category monthly expense averages
// over the same window as the baseline, sorted by category ID.
func CalculateCategoryAverages(txs []generic.TransactionSample, cats []generic.CategoryMeta, window int, now time.Time, loc *time.Location) []CategoryAverage {
	months := trailingMonths(txs, cats, window, now, loc)
	if len(months) == 0 {
		return nil
	}

	totals := make(map[string]int64)
	for _, m := range months {
		for id, cents := range m.ByCategory {
			totals[id] += cents
		}
	}

	idx := generic.IndexCategories(cats)
	out := make([]CategoryAverage, 0, len(totals))
	for id, total := range totals {
		out = append(out, CategoryAverage{
			CategoryID:     id,
			SpendingNature: idx.Nature(id),
			AverageCents:   generic.DivRound(total, len(months)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out
}

/*
Package brain is the household's online expense predictor.

PURPOSE:
  Learns, month after month, how much a household spends. Two small linear
  models share one feature layout:
    - the general head predicts next month's total expenses
    - the current-month head predicts what is left to spend this month

KEY CONCEPTS IN THIS FILE (features.go):
  - Dataset: Monthly aggregates split into completed months and the
    in-progress current month, plus every training sample derived from them
  - Sample: One feature vector and its normalized target
  - Scale: The normalizing base (cents) that keeps features near 1.0

FEATURE LAYOUT (FeatureSchemaVersion 3):
  0  previous month expenses / scale
  1  rolling 3-month average expenses / scale
  2  income / scale
  3  essential share of previous month expenses
  4  comfort share of previous month expenses
  5  superfluous share of previous month expenses
  6  day-of-month progress (0 for the general head)
  7  expenses so far this month / scale (0 for the general head)

SAMPLES:
  General: one per completed month, target = that month's expenses.
           The first month bootstraps from itself.
  Nowcast: five checkpoints (days 5, 10, 15, 20, 25) per active completed
           month, target = expenses after the checkpoint.
  With no completed month but some current data, a single bootstrap sample
  is built from the current month, so any data yields at least one sample.

SEE ALSO:
  - predictor.go: Trains on the dataset
  - fingerprint.go: Detects an unchanged dataset
*/
package brain

import (
	"sort"
	"time"

	"github.com/warp/household-engine/generic"
)

const (
	FeatureSchemaVersion = 3
	FeatureCount         = 8

	featureCeiling = 4.0
	minScaleCents  = 100
	rollingMonths  = 3
)

// NowcastCheckpoints are the days of month the current-month head learns from.
var NowcastCheckpoints = []int{5, 10, 15, 20, 25}

type Vector [FeatureCount]float64

type Sample struct {
	Month    generic.Month
	Day      int
	Features Vector
	Target   float64
}

// Dataset is everything the predictor derives from one transaction set.
type Dataset struct {
	AsOf      time.Time
	Location  *time.Location
	Current   generic.MonthlyAggregate
	Completed []generic.MonthlyAggregate
	Scale     float64

	General []Sample
	Nowcast []Sample

	// MonthsAnalyzed counts active months, the current one included.
	MonthsAnalyzed int
}

// BuildDataset aggregates transactions as of now and derives training samples.
// Transactions dated at or after now are ignored.
func BuildDataset(txs []generic.TransactionSample, cats []generic.CategoryMeta, now time.Time, loc *time.Location) Dataset {
	if loc == nil {
		loc = time.Local
	}
	idx := generic.IndexCategories(cats)
	current := generic.MonthOf(now, loc)

	ds := Dataset{AsOf: now, Location: loc, Current: generic.EmptyMonth(current)}

	for _, agg := range generic.AggregateMonths(txs, idx, loc, now) {
		switch {
		case agg.Month == current:
			ds.Current = agg
		case agg.Month.Before(current):
			ds.Completed = append(ds.Completed, agg)
		}
	}

	// Quiet months between the last data month and now are real zero months.
	if n := len(ds.Completed); n > 0 {
		for m := ds.Completed[n-1].Month.AddMonths(1); m.Before(current); m = m.AddMonths(1) {
			ds.Completed = append(ds.Completed, generic.EmptyMonth(m))
		}
	}

	for _, agg := range ds.Completed {
		if agg.Active() {
			ds.MonthsAnalyzed++
		}
	}
	if ds.Current.Active() {
		ds.MonthsAnalyzed++
	}

	ds.Scale = scaleOf(ds.Completed, ds.Current)
	ds.General = ds.generalSamples()
	ds.Nowcast = ds.nowcastSamples()
	return ds
}

// Empty reports whether there is no data at all.
func (d Dataset) Empty() bool {
	return d.MonthsAnalyzed == 0
}

func scaleOf(completed []generic.MonthlyAggregate, current generic.MonthlyAggregate) float64 {
	var income, expense int64
	var n int
	for _, agg := range completed {
		if !agg.Active() {
			continue
		}
		income += agg.IncomeCents
		expense += agg.ExpenseCents
		n++
	}
	var base int64
	if n > 0 {
		base = max(generic.DivRound(income, n), generic.DivRound(expense, n))
	} else {
		base = max(current.IncomeCents, current.ExpenseCents)
	}
	return float64(max(base, minScaleCents))
}

// history returns the months preceding completed month i. The first month
// has no history and bootstraps from itself.
func (d Dataset) history(i int) []generic.MonthlyAggregate {
	if i == 0 {
		return d.Completed[:1]
	}
	return d.Completed[:i]
}

func (d Dataset) generalSamples() []Sample {
	if len(d.Completed) == 0 {
		if !d.Current.Active() {
			return nil
		}
		hist := []generic.MonthlyAggregate{d.Current}
		return []Sample{{
			Month:    d.Current.Month,
			Features: d.features(hist, d.Current.IncomeCents, 0, 0),
			Target:   float64(d.Current.ExpenseCents) / d.Scale,
		}}
	}

	// Trailing quiet months stay in the history but are not samples.
	last := d.lastActiveCompleted()
	samples := make([]Sample, 0, last+1)
	for i, agg := range d.Completed[:last+1] {
		hist := d.history(i)
		samples = append(samples, Sample{
			Month:    agg.Month,
			Features: d.features(hist, hist[len(hist)-1].IncomeCents, 0, 0),
			Target:   float64(agg.ExpenseCents) / d.Scale,
		})
	}
	return samples
}

func (d Dataset) lastActiveCompleted() int {
	for i := len(d.Completed) - 1; i >= 0; i-- {
		if d.Completed[i].Active() {
			return i
		}
	}
	return len(d.Completed) - 1
}

func (d Dataset) nowcastSamples() []Sample {
	var samples []Sample
	for i, agg := range d.Completed {
		if !agg.Active() {
			continue
		}
		hist := d.history(i)
		days := float64(agg.Month.DaysIn())
		for _, day := range NowcastCheckpoints {
			spent := agg.ExpensesThroughDay(day)
			samples = append(samples, Sample{
				Month:    agg.Month,
				Day:      day,
				Features: d.features(hist, hist[len(hist)-1].IncomeCents, float64(day)/days, spent),
				Target:   float64(agg.ExpenseCents-spent) / d.Scale,
			})
		}
	}
	sortSamples(samples)
	return samples
}

// CurrentFeatures describes the in-progress month for the nowcast head.
func (d Dataset) CurrentFeatures() Vector {
	progress := generic.DayProgress(d.AsOf, d.Location)
	return d.features(d.Completed, d.Current.IncomeCents, progress, d.Current.ExpenseCents)
}

// NextMonthFeatures describes the month after the current one, treating the
// current month as closed at projectedExpenseCents.
func (d Dataset) NextMonthFeatures(projectedExpenseCents int64) Vector {
	projected := d.Current
	projected.ExpenseCents = projectedExpenseCents

	hist := make([]generic.MonthlyAggregate, 0, len(d.Completed)+1)
	hist = append(hist, d.Completed...)
	hist = append(hist, projected)

	income := d.Current.IncomeCents
	if income <= 0 && len(d.Completed) > 0 {
		income = d.Completed[len(d.Completed)-1].IncomeCents
	}
	return d.features(hist, income, 0, 0)
}

func (d Dataset) features(hist []generic.MonthlyAggregate, incomeCents int64, progress float64, spentCents int64) Vector {
	var v Vector
	if len(hist) > 0 {
		prev := hist[len(hist)-1]
		v[0] = float64(prev.ExpenseCents) / d.Scale

		window := hist
		if len(window) > rollingMonths {
			window = window[len(window)-rollingMonths:]
		}
		var sum int64
		for _, agg := range window {
			sum += agg.ExpenseCents
		}
		v[1] = float64(sum) / float64(len(window)) / d.Scale

		v[3] = prev.NatureShare(generic.NatureEssential)
		v[4] = prev.NatureShare(generic.NatureComfort)
		v[5] = prev.NatureShare(generic.NatureSuperfluous)
	}
	v[2] = float64(incomeCents) / d.Scale
	v[6] = progress
	v[7] = float64(spentCents) / d.Scale

	for i := range v {
		v[i] = generic.Clamp(v[i], 0, featureCeiling)
	}
	return v
}

func sortSamples(samples []Sample) {
	sort.SliceStable(samples, func(i, j int) bool {
		if samples[i].Month != samples[j].Month {
			return samples[i].Month.Before(samples[j].Month)
		}
		return samples[i].Day < samples[j].Day
	})
}

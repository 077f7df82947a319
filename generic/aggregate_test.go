package generic_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/household-engine/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func expense(cat string, cents int64, at time.Time) generic.TransactionSample {
	return generic.TransactionSample{Type: generic.TxExpense, AmountCents: cents, CategoryID: cat, Timestamp: at}
}

func income(cents int64, at time.Time) generic.TransactionSample {
	return generic.TransactionSample{Type: generic.TxIncome, AmountCents: cents, CategoryID: "salary", Timestamp: at}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

var testCategories = []generic.CategoryMeta{
	{ID: "rent", SpendingNature: generic.NatureEssential},
	{ID: "dining", SpendingNature: generic.NatureComfort},
	{ID: "games", SpendingNature: generic.NatureSuperfluous},
}

// =============================================================================
// AGGREGATION TESTS
// =============================================================================

func TestAggregateMonths_FillsGapsAndSplitsByNature(t *testing.T) {
	// GIVEN: Data in January and March, nothing in February
	txs := []generic.TransactionSample{
		income(300000, day(2026, time.January, 1)),
		expense("rent", 100000, day(2026, time.January, 2)),
		expense("dining", 5000, day(2026, time.January, 10)),
		expense("games", 2000, day(2026, time.March, 5)),
		expense("unknown", 700, day(2026, time.March, 6)),
	}

	// WHEN: Aggregating
	aggs := generic.AggregateMonths(txs, generic.IndexCategories(testCategories), time.UTC, time.Time{})

	// THEN: Three contiguous months, February empty
	require.Len(t, aggs, 3)
	assert.Equal(t, generic.Month{Year: 2026, Month: time.February}, aggs[1].Month)
	assert.False(t, aggs[1].Active())

	jan := aggs[0]
	assert.Equal(t, int64(300000), jan.IncomeCents)
	assert.Equal(t, int64(105000), jan.ExpenseCents)
	assert.Equal(t, int64(100000), jan.ByNature[generic.NatureEssential])
	assert.Equal(t, int64(5000), jan.ByNature[generic.NatureComfort])
	assert.Equal(t, int64(100000), jan.ExpensesThroughDay(9))
	assert.Equal(t, int64(105000), jan.ExpensesThroughDay(31))

	mar := aggs[2]
	assert.Equal(t, int64(2700), mar.ExpenseCents, "unknown categories still count as expenses")
	assert.Equal(t, int64(2000), mar.ByNature[generic.NatureSuperfluous])
	assert.Zero(t, mar.ByNature[generic.NatureNone])

	// Shares are over all expenses, unclassified ones included
	assert.InDelta(t, 100000.0/105000.0, jan.NatureShare(generic.NatureEssential), 1e-12)
	var total float64
	for _, n := range generic.Natures {
		total += mar.NatureShare(n)
	}
	assert.InDelta(t, 2000.0/2700.0, total, 1e-12)
	assert.Zero(t, aggs[1].NatureShare(generic.NatureComfort))
}

func TestAggregateMonths_OrderIndependent(t *testing.T) {
	txs := []generic.TransactionSample{
		expense("rent", 100000, day(2026, time.January, 2)),
		expense("dining", 5000, day(2026, time.February, 10)),
		income(250000, day(2026, time.February, 1)),
	}
	reversed := []generic.TransactionSample{txs[2], txs[1], txs[0]}
	idx := generic.IndexCategories(testCategories)

	assert.Equal(t,
		generic.AggregateMonths(txs, idx, time.UTC, time.Time{}),
		generic.AggregateMonths(reversed, idx, time.UTC, time.Time{}))
}

func TestAggregateMonths_SkipsMalformedAndFutureSamples(t *testing.T) {
	cutoff := day(2026, time.February, 1)
	txs := []generic.TransactionSample{
		{Type: generic.TxExpense, AmountCents: 100},                                        // no timestamp
		{Type: "transfer", AmountCents: 100, Timestamp: day(2026, time.January, 3)},        // unknown type
		{Type: generic.TxExpense, AmountCents: -900, Timestamp: day(2026, time.January, 3)}, // negative magnitude
		expense("rent", 5000, day(2026, time.March, 1)),                                    // after cutoff
	}

	aggs := generic.AggregateMonths(txs, nil, time.UTC, cutoff)

	require.Len(t, aggs, 1)
	assert.Equal(t, int64(900), aggs[0].ExpenseCents)
	assert.Equal(t, 1, aggs[0].TxCount)
}

func TestAggregateMonths_UsesLocalMonthBoundaries(t *testing.T) {
	// 23:30 UTC on Jan 31 is already February in UTC+2
	loc := time.FixedZone("UTC+2", 2*60*60)
	txs := []generic.TransactionSample{
		expense("rent", 1000, time.Date(2026, time.January, 31, 23, 30, 0, 0, time.UTC)),
	}

	aggs := generic.AggregateMonths(txs, nil, loc, time.Time{})

	require.Len(t, aggs, 1)
	assert.Equal(t, time.February, aggs[0].Month.Month)
	assert.Equal(t, int64(1000), aggs[0].ExpensesThroughDay(1))
}

func TestCategoryIndex_SuperfluousFlagOverridesCategory(t *testing.T) {
	idx := generic.IndexCategories(testCategories)
	tx := expense("rent", 100, day(2026, time.January, 1))

	assert.Equal(t, generic.NatureEssential, idx.NatureOf(tx))
	tx.IsSuperfluous = true
	assert.Equal(t, generic.NatureSuperfluous, idx.NatureOf(tx))
	assert.Equal(t, generic.NatureNone, idx.Nature("missing"))
}

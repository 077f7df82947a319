/*
Package demo provides deterministic demo households.

PURPOSE:
  Seeds realistic transaction histories for demos and tests. Every dataset is
  generated relative to a reference instant so the "current month" is always
  in progress, and no transaction is ever dated after that instant.

AVAILABLE HOUSEHOLDS:
  dense:    Eight months, sixteen transactions a month, steady habits
  sparse:   A handful of transactions in the current month only
  volatile: Six months with swinging discretionary spend and bonus income

USAGE:
  txs := demo.Dense(now, time.UTC, 8)
  cats := demo.Categories()

SEE ALSO:
  - api/demos.go: Loads these households into the store
*/
package demo

import (
	"fmt"
	"time"

	"github.com/warp/household-engine/generic"
)

// Household bundles a demo dataset with its description.
type Household struct {
	ID           string
	Name         string
	Description  string
	Categories   []generic.CategoryMeta
	Transactions []generic.TransactionSample
}

// Categories returns the demo category set.
func Categories() []generic.CategoryMeta {
	return []generic.CategoryMeta{
		{ID: "salary", Name: "Salary"},
		{ID: "rent", Name: "Rent", SpendingNature: generic.NatureEssential},
		{ID: "groceries", Name: "Groceries", SpendingNature: generic.NatureEssential},
		{ID: "utilities", Name: "Utilities", SpendingNature: generic.NatureEssential},
		{ID: "dining", Name: "Dining out", SpendingNature: generic.NatureComfort},
		{ID: "transport", Name: "Transport", SpendingNature: generic.NatureComfort},
		{ID: "streaming", Name: "Streaming", SpendingNature: generic.NatureSuperfluous},
		{ID: "shopping", Name: "Shopping", SpendingNature: generic.NatureSuperfluous},
	}
}

type entry struct {
	day      int
	txType   generic.TxType
	category string
	cents    int64
}

var denseMonth = []entry{
	{1, generic.TxIncome, "salary", 420000},
	{2, generic.TxExpense, "rent", 145000},
	{4, generic.TxExpense, "groceries", 18000},
	{6, generic.TxExpense, "utilities", 9500},
	{7, generic.TxExpense, "dining", 6500},
	{9, generic.TxExpense, "groceries", 16500},
	{11, generic.TxExpense, "streaming", 1599},
	{13, generic.TxExpense, "shopping", 7800},
	{14, generic.TxExpense, "groceries", 17200},
	{15, generic.TxExpense, "transport", 5400},
	{17, generic.TxExpense, "dining", 7200},
	{19, generic.TxExpense, "groceries", 15800},
	{22, generic.TxExpense, "shopping", 4300},
	{24, generic.TxExpense, "groceries", 16900},
	{27, generic.TxExpense, "dining", 5800},
	{28, generic.TxExpense, "transport", 5400},
}

// Dense returns months of steady history ending with the month of now.
func Dense(now time.Time, loc *time.Location, months int) []generic.TransactionSample {
	var txs []generic.TransactionSample
	current := generic.MonthOf(now, loc)
	for k := months - 1; k >= 0; k-- {
		m := current.AddMonths(-k)
		jitter := int64(m.Month%3) * 500
		for i, e := range denseMonth {
			cents := e.cents
			if e.category == "groceries" {
				cents += jitter
			}
			txs = appendBefore(txs, now, sample(fmt.Sprintf("dense-%s-%02d", m, i), m, e, cents, loc))
		}
	}
	return txs
}

// Sparse returns a few transactions in the current month only.
func Sparse(now time.Time, loc *time.Location) []generic.TransactionSample {
	m := generic.MonthOf(now, loc)
	entries := []entry{
		{1, generic.TxIncome, "salary", 380000},
		{3, generic.TxExpense, "groceries", 14200},
		{5, generic.TxExpense, "dining", 4800},
	}
	var txs []generic.TransactionSample
	for i, e := range entries {
		txs = appendBefore(txs, now, sample(fmt.Sprintf("sparse-%02d", i), m, e, e.cents, loc))
	}
	return txs
}

// Volatile returns months with alternating calm and splurge months.
func Volatile(now time.Time, loc *time.Location, months int) []generic.TransactionSample {
	var txs []generic.TransactionSample
	current := generic.MonthOf(now, loc)
	for k := months - 1; k >= 0; k-- {
		m := current.AddMonths(-k)
		splurge := k%2 == 1
		entries := []entry{
			{1, generic.TxIncome, "salary", 360000},
			{2, generic.TxExpense, "rent", 130000},
			{5, generic.TxExpense, "groceries", 21000},
			{12, generic.TxExpense, "groceries", 19500},
			{20, generic.TxExpense, "groceries", 20500},
			{8, generic.TxExpense, "dining", 9000},
			{16, generic.TxExpense, "transport", 7000},
		}
		if splurge {
			entries = append(entries,
				entry{10, generic.TxExpense, "shopping", 68000},
				entry{18, generic.TxExpense, "dining", 24000},
				entry{25, generic.TxIncome, "salary", 90000},
			)
		} else {
			entries = append(entries, entry{10, generic.TxExpense, "streaming", 1599})
		}
		for i, e := range entries {
			txs = appendBefore(txs, now, sample(fmt.Sprintf("volatile-%s-%02d", m, i), m, e, e.cents, loc))
		}
	}
	return txs
}

// Households returns every demo household relative to now.
func Households(now time.Time, loc *time.Location) []Household {
	cats := Categories()
	return []Household{
		{ID: "dense", Name: "Steady household", Description: "Eight months of regular spending, predictor ready", Categories: cats, Transactions: Dense(now, loc, 8)},
		{ID: "sparse", Name: "Fresh start", Description: "First month of tracking, predictor still learning", Categories: cats, Transactions: Sparse(now, loc)},
		{ID: "volatile", Name: "Volatile spender", Description: "Alternating splurge months with bonus income", Categories: cats, Transactions: Volatile(now, loc, 6)},
	}
}

// Lookup returns the household with the given ID.
func Lookup(id string, now time.Time, loc *time.Location) (Household, bool) {
	for _, h := range Households(now, loc) {
		if h.ID == id {
			return h, true
		}
	}
	return Household{}, false
}

func sample(id string, m generic.Month, e entry, cents int64, loc *time.Location) generic.TransactionSample {
	if loc == nil {
		loc = time.Local
	}
	day := e.day
	if day > m.DaysIn() {
		day = m.DaysIn()
	}
	return generic.TransactionSample{
		ID:          id,
		Type:        e.txType,
		AmountCents: cents,
		CategoryID:  e.category,
		Timestamp:   time.Date(m.Year, m.Month, day, 10, 0, 0, 0, loc),
	}
}

func appendBefore(txs []generic.TransactionSample, now time.Time, tx generic.TransactionSample) []generic.TransactionSample {
	if tx.Timestamp.Before(now) {
		txs = append(txs, tx)
	}
	return txs
}

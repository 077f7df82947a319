/*
Package generic provides the core household finance primitives.

PURPOSE:
  This package contains domain-agnostic types and helpers shared by the
  forecasting engine (brain) and the savings planner (scenario). Nothing in
  here knows about predictors, policies or quotas; it only knows about money,
  calendar months and the transactions a household records.

KEY CONCEPTS IN THIS FILE (types.go):
  - TransactionSample: An immutable income/expense entry in integer cents
  - CategoryMeta: A spending category and its SpendingNature
  - CategoryIndex: Fast category -> nature lookup used by every aggregator

DESIGN PRINCIPLES:
  1. Immutability: Transactions are owned by the caller and never mutated
  2. Precision: Monetary totals are int64 cents; ratios go through decimal
  3. Tolerance: Unknown categories have no nature, they are never an error

USAGE:
  idx := generic.IndexCategories(categories)
  nature := idx.NatureOf(tx)

SEE ALSO:
  - money.go: Cent rounding and ratio helpers
  - time.go: Calendar month arithmetic
  - aggregate.go: Monthly aggregation
*/
package generic

import "time"

// =============================================================================
// TRANSACTIONS
// =============================================================================

type TxType string

const (
	TxIncome  TxType = "income"
	TxExpense TxType = "expense"
)

// TransactionSample is a single recorded movement of money.
// AmountCents is a magnitude; the direction comes from Type.
type TransactionSample struct {
	ID            string    `json:"id,omitempty"`
	Type          TxType    `json:"type"`
	AmountCents   int64     `json:"amountCents"`
	CategoryID    string    `json:"categoryId"`
	Timestamp     time.Time `json:"timestamp"`
	IsSuperfluous bool      `json:"isSuperfluous,omitempty"`
}

// Magnitude returns the absolute amount in cents.
func (t TransactionSample) Magnitude() int64 {
	if t.AmountCents < 0 {
		return -t.AmountCents
	}
	return t.AmountCents
}

// Valid reports whether the sample can take part in aggregation.
// Malformed samples are skipped, never rejected with an error.
func (t TransactionSample) Valid() bool {
	if t.Timestamp.IsZero() {
		return false
	}
	return t.Type == TxIncome || t.Type == TxExpense
}

// =============================================================================
// CATEGORIES
// =============================================================================

type SpendingNature string

const (
	NatureNone        SpendingNature = ""
	NatureEssential   SpendingNature = "essential"
	NatureComfort     SpendingNature = "comfort"
	NatureSuperfluous SpendingNature = "superfluous"
)

// Natures lists the known spending natures in a stable order.
var Natures = []SpendingNature{NatureEssential, NatureComfort, NatureSuperfluous}

// Known reports whether n is one of the three recognized natures.
func (n SpendingNature) Known() bool {
	return n == NatureEssential || n == NatureComfort || n == NatureSuperfluous
}

type CategoryMeta struct {
	ID             string         `json:"id"`
	Name           string         `json:"name,omitempty"`
	SpendingNature SpendingNature `json:"spendingNature"`
}

// CategoryIndex maps category IDs to their spending nature.
type CategoryIndex map[string]SpendingNature

func IndexCategories(categories []CategoryMeta) CategoryIndex {
	idx := make(CategoryIndex, len(categories))
	for _, c := range categories {
		if c.ID == "" || !c.SpendingNature.Known() {
			continue
		}
		idx[c.ID] = c.SpendingNature
	}
	return idx
}

// Nature returns the nature of a category, NatureNone when unknown.
func (ci CategoryIndex) Nature(categoryID string) SpendingNature {
	return ci[categoryID]
}

// NatureOf resolves the nature of an expense. A transaction flagged as
// superfluous is superfluous regardless of its category.
func (ci CategoryIndex) NatureOf(tx TransactionSample) SpendingNature {
	if tx.IsSuperfluous {
		return NatureSuperfluous
	}
	return ci[tx.CategoryID]
}

package scenario

import (
	"math"

	"github.com/warp/household-engine/generic"
)

// =============================================================================
// SCENARIO CONFIGURATIONS
// =============================================================================

type Type string

const (
	TypeBaseline   Type = "baseline"
	TypeBalanced   Type = "balanced"
	TypeAggressive Type = "aggressive"
	TypeManual     Type = "manual"
	TypeCustom     Type = "custom"
)

func (t Type) Valid() bool {
	switch t {
	case TypeBaseline, TypeBalanced, TypeAggressive, TypeManual, TypeCustom:
		return true
	}
	return false
}

// SavingsMap holds savings percents per reducible nature. Essential spend
// has no entry: it is never reduced.
type SavingsMap struct {
	Superfluous float64 `json:"superfluous"`
	Comfort     float64 `json:"comfort"`
}

// Calibration is what a generated configuration was derived from.
type Calibration struct {
	StabilityFactor float64 `json:"stabilityFactor"`
	VolatilityCents int64   `json:"volatilityCents"`
	ElasticityIndex float64 `json:"elasticityIndex"`
}

// Config is a named savings configuration. ApplicationMap holds the percent
// applied to each category's average; categories absent from it are not
// reduced.
type Config struct {
	Type           Type               `json:"type"`
	Label          string             `json:"label"`
	Description    string             `json:"description,omitempty"`
	ApplicationMap map[string]float64 `json:"applicationMap"`
	SavingsMap     SavingsMap         `json:"savingsMap"`
	Calibration    *Calibration       `json:"calibration,omitempty"`
}

// Percent returns the savings percent applied to a category.
func (c Config) Percent(categoryID string) float64 {
	return c.ApplicationMap[categoryID]
}

// =============================================================================
// CALIBRATION
// =============================================================================

// Calibrate derives the stability factor (high when spending is steady
// relative to income and history is well covered) and the elasticity index
// (share of spend that can be cut without touching essentials).
func Calibrate(b BaselineMetrics) Calibration {
	c := Calibration{VolatilityCents: b.ExpensesStdDev}

	if base := max(b.AverageMonthlyIncome, b.AverageMonthlyExpenses); base > 0 {
		volatility := float64(b.ExpensesStdDev) + 0.5*float64(b.FreeCashFlowStdDev)
		steadiness := generic.Clamp01(1 - 1.5*volatility/float64(base))
		c.StabilityFactor = generic.Clamp01(steadiness * (0.5 + 0.5*b.ActivityCoverageRatio))
	}

	if b.AverageMonthlyExpenses > 0 {
		reducible := float64(b.AverageSuperfluousExpenses) + 0.5*float64(b.AverageComfortExpenses)
		c.ElasticityIndex = generic.Clamp01(reducible / float64(b.AverageMonthlyExpenses))
	}
	return c
}

// =============================================================================
// GENERATION
// =============================================================================

const (
	maxBalancedSuperfluous   = 70
	maxBalancedComfort       = 35
	maxAggressiveSuperfluous = 90
	maxAggressiveComfort     = 60
)

// BalancedSavings scales cuts with elasticity, damped when spending is unstable.
func BalancedSavings(c Calibration) SavingsMap {
	damping := 0.6 + 0.4*c.StabilityFactor
	return SavingsMap{
		Superfluous: math.Round(generic.Clamp(20+50*c.ElasticityIndex, 0, maxBalancedSuperfluous) * damping),
		Comfort:     math.Round(generic.Clamp(5+25*c.ElasticityIndex, 0, maxBalancedComfort) * damping),
	}
}

// AggressiveSavings pushes past balanced on every nature, within hard caps.
func AggressiveSavings(balanced SavingsMap) SavingsMap {
	return SavingsMap{
		Superfluous: math.Max(balanced.Superfluous, math.Min(maxAggressiveSuperfluous, math.Round(balanced.Superfluous*1.5+10))),
		Comfort:     math.Max(balanced.Comfort, math.Min(maxAggressiveComfort, math.Round(balanced.Comfort*1.5+5))),
	}
}

// BuildApplicationMap spreads nature percents over categories. Essential and
// unclassified categories are left out.
func BuildApplicationMap(cats []generic.CategoryMeta, savings SavingsMap) map[string]float64 {
	out := make(map[string]float64)
	for _, c := range cats {
		switch c.SpendingNature {
		case generic.NatureSuperfluous:
			out[c.ID] = generic.Clamp(savings.Superfluous, 0, 100)
		case generic.NatureComfort:
			out[c.ID] = generic.Clamp(savings.Comfort, 0, 100)
		}
	}
	return out
}

// GenerateScenarios returns the baseline, balanced and aggressive configurations.
func GenerateScenarios(b BaselineMetrics, cats []generic.CategoryMeta) []Config {
	cal := Calibrate(b)
	balanced := BalancedSavings(cal)
	aggressive := AggressiveSavings(balanced)

	return []Config{
		{
			Type:           TypeBaseline,
			Label:          "Status quo",
			Description:    "Keep spending as in the trailing window",
			ApplicationMap: BuildApplicationMap(cats, SavingsMap{}),
			Calibration:    &cal,
		},
		{
			Type:           TypeBalanced,
			Label:          "Balanced",
			Description:    "Trim discretionary spend in proportion to how much of it there is",
			ApplicationMap: BuildApplicationMap(cats, balanced),
			SavingsMap:     balanced,
			Calibration:    &cal,
		},
		{
			Type:           TypeAggressive,
			Label:          "Aggressive",
			Description:    "Cut discretionary spend hard, essentials untouched",
			ApplicationMap: BuildApplicationMap(cats, aggressive),
			SavingsMap:     aggressive,
			Calibration:    &cal,
		},
	}
}

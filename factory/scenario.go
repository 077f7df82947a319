/*
Package factory provides JSON to Go scenario conversion.

PURPOSE:
  Converts manual and custom savings plans, as the UI submits them, into
  scenario.Config values the calculator accepts. The household picks
  percents per category (or per spending nature); the factory enforces the
  guardrails before anything is calculated.

JSON SCHEMA:
  {
    "type": "manual",
    "label": "Cut takeaways",
    "description": "Two months without deliveries",
    "savings": {"superfluous": 40, "comfort": 10},
    "overrides": {"dining": 60, "shopping": 100}
  }

RULES:
  - type is "manual" (default) or "custom"
  - percents are clamped into [0, 100]
  - nature-wide savings apply first, per-category overrides win
  - essential and unclassified categories are dropped, never reduced
  - the resulting savingsMap is the mean percent per nature

USAGE:
  f := factory.NewScenarioFactory(categories)
  cfg, err := f.ParseScenario(jsonString)
  result := scenario.Calculate(scenario.Input{Config: cfg, ...})

SEE ALSO:
  - scenario/generator.go: Generated configurations
  - api/handlers.go: POST /api/scenarios/manual
*/
package factory

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/warp/household-engine/generic"
	"github.com/warp/household-engine/scenario"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ScenarioJSON is the JSON representation of a manual scenario.
type ScenarioJSON struct {
	Type        string             `json:"type,omitempty"`
	Label       string             `json:"label,omitempty"`
	Description string             `json:"description,omitempty"`
	Savings     *SavingsJSON       `json:"savings,omitempty"`
	Overrides   map[string]float64 `json:"overrides,omitempty"`
}

type SavingsJSON struct {
	Superfluous float64 `json:"superfluous"`
	Comfort     float64 `json:"comfort"`
}

// =============================================================================
// SCENARIO FACTORY
// =============================================================================

// ScenarioFactory converts JSON scenarios against a category set.
type ScenarioFactory struct {
	categories []generic.CategoryMeta
	index      generic.CategoryIndex
}

func NewScenarioFactory(categories []generic.CategoryMeta) *ScenarioFactory {
	return &ScenarioFactory{
		categories: categories,
		index:      generic.IndexCategories(categories),
	}
}

// ParseScenario parses a JSON string into a scenario configuration.
func (f *ScenarioFactory) ParseScenario(jsonStr string) (scenario.Config, error) {
	var sj ScenarioJSON
	if err := json.Unmarshal([]byte(jsonStr), &sj); err != nil {
		return scenario.Config{}, fmt.Errorf("%w: failed to parse scenario JSON: %v", generic.ErrInvalidScenario, err)
	}
	return f.FromJSON(sj)
}

// FromJSON converts ScenarioJSON to scenario.Config.
func (f *ScenarioFactory) FromJSON(sj ScenarioJSON) (scenario.Config, error) {
	kind := parseType(sj.Type)
	if kind != scenario.TypeManual && kind != scenario.TypeCustom {
		return scenario.Config{}, fmt.Errorf("%w: type %q cannot be submitted", generic.ErrInvalidScenario, sj.Type)
	}

	var savings scenario.SavingsMap
	if sj.Savings != nil {
		savings = scenario.SavingsMap{
			Superfluous: clampPercent(sj.Savings.Superfluous),
			Comfort:     clampPercent(sj.Savings.Comfort),
		}
	}
	applied := scenario.BuildApplicationMap(f.categories, savings)

	for id, pct := range sj.Overrides {
		switch f.index.Nature(id) {
		case generic.NatureComfort, generic.NatureSuperfluous:
			applied[id] = clampPercent(pct)
		}
	}

	cfg := scenario.Config{
		Type:           kind,
		Label:          sj.Label,
		Description:    sj.Description,
		ApplicationMap: applied,
		SavingsMap:     f.meanByNature(applied),
	}
	if cfg.Label == "" {
		cfg.Label = defaultLabel(kind)
	}
	return cfg, nil
}

// ToJSON converts a configuration back to its JSON form. Every category
// percent is written as an override.
func (f *ScenarioFactory) ToJSON(cfg scenario.Config) ScenarioJSON {
	sj := ScenarioJSON{
		Type:        string(cfg.Type),
		Label:       cfg.Label,
		Description: cfg.Description,
		Overrides:   make(map[string]float64, len(cfg.ApplicationMap)),
	}
	for id, pct := range cfg.ApplicationMap {
		sj.Overrides[id] = pct
	}
	return sj
}

// meanByNature averages applied percents over every category of a nature.
func (f *ScenarioFactory) meanByNature(applied map[string]float64) scenario.SavingsMap {
	sums := map[generic.SpendingNature]float64{}
	counts := map[generic.SpendingNature]int{}

	ids := make([]string, 0, len(f.index))
	for id := range f.index {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		n := f.index[id]
		sums[n] += applied[id]
		counts[n]++
	}

	mean := func(n generic.SpendingNature) float64 {
		if counts[n] == 0 {
			return 0
		}
		return sums[n] / float64(counts[n])
	}
	return scenario.SavingsMap{
		Superfluous: mean(generic.NatureSuperfluous),
		Comfort:     mean(generic.NatureComfort),
	}
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseType(s string) scenario.Type {
	if s == "" {
		return scenario.TypeManual
	}
	return scenario.Type(s)
}

func clampPercent(v float64) float64 {
	return generic.Clamp(v, 0, 100)
}

func defaultLabel(t scenario.Type) string {
	if t == scenario.TypeCustom {
		return "Custom plan"
	}
	return "Manual plan"
}

package factory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/household-engine/demo"
	"github.com/warp/household-engine/factory"
	"github.com/warp/household-engine/generic"
	"github.com/warp/household-engine/scenario"
)

func TestParseScenario_OverridesAndGuardrails(t *testing.T) {
	// GIVEN: A manual plan that also tries to cut rent and an unknown category
	f := factory.NewScenarioFactory(demo.Categories())
	input := `{
		"label": "Cut takeaways",
		"savings": {"superfluous": 40, "comfort": 10},
		"overrides": {"dining": 60, "shopping": 140, "rent": 50, "crypto": 30}
	}`

	// WHEN: Parsing
	cfg, err := f.ParseScenario(input)

	// THEN: Manual type, overrides win, clamped, essentials and unknowns dropped
	require.NoError(t, err)
	assert.Equal(t, scenario.TypeManual, cfg.Type)
	assert.Equal(t, "Cut takeaways", cfg.Label)
	assert.Equal(t, 60.0, cfg.Percent("dining"))
	assert.Equal(t, 10.0, cfg.Percent("transport"))
	assert.Equal(t, 100.0, cfg.Percent("shopping"))
	assert.Equal(t, 40.0, cfg.Percent("streaming"))
	assert.NotContains(t, cfg.ApplicationMap, "rent")
	assert.NotContains(t, cfg.ApplicationMap, "crypto")

	// Mean per nature: comfort (60+10)/2, superfluous (100+40)/2
	assert.Equal(t, 35.0, cfg.SavingsMap.Comfort)
	assert.Equal(t, 70.0, cfg.SavingsMap.Superfluous)
}

func TestParseScenario_Types(t *testing.T) {
	f := factory.NewScenarioFactory(demo.Categories())

	cfg, err := f.ParseScenario(`{"type":"custom"}`)
	require.NoError(t, err)
	assert.Equal(t, scenario.TypeCustom, cfg.Type)
	assert.Equal(t, "Custom plan", cfg.Label)
	for _, pct := range cfg.ApplicationMap {
		assert.Zero(t, pct)
	}

	_, err = f.ParseScenario(`{"type":"aggressive"}`)
	assert.ErrorIs(t, err, generic.ErrInvalidScenario)

	_, err = f.ParseScenario(`{not json`)
	assert.ErrorIs(t, err, generic.ErrInvalidScenario)
	assert.True(t, generic.IsClientError(err))
}

func TestParseScenario_NegativePercent(t *testing.T) {
	f := factory.NewScenarioFactory(demo.Categories())

	cfg, err := f.ParseScenario(`{"overrides":{"dining":-20}}`)

	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Percent("dining"))
}

func TestToJSON_RoundTrip(t *testing.T) {
	f := factory.NewScenarioFactory(demo.Categories())
	cfg, err := f.ParseScenario(`{"overrides":{"dining":25,"streaming":100}}`)
	require.NoError(t, err)

	back, err := f.FromJSON(f.ToJSON(cfg))

	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

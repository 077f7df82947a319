package brain_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/household-engine/brain"
	"github.com/warp/household-engine/demo"
	"github.com/warp/household-engine/generic"
	"github.com/warp/household-engine/generic/store"
)

type failingStore struct{}

func (failingStore) GetBlob(context.Context, string) ([]byte, error) {
	return nil, generic.ErrStoreUnavailable
}
func (failingStore) SetBlob(context.Context, string, []byte) error { return generic.ErrStoreUnavailable }
func (failingStore) RemoveBlob(context.Context, string) error      { return generic.ErrStoreUnavailable }

// =============================================================================
// POLICY REPOSITORY
// =============================================================================

func TestPolicyRepository_RoundTrip(t *testing.T) {
	// GIVEN: A tuned policy
	ctx := context.Background()
	repo := brain.NewPolicyRepository(store.NewMemory())
	policy := brain.AdaptivePolicy{
		Version:               brain.PolicyVersion,
		MinNowcastConfidence:  0.81,
		OutlierMinConfidence:  0.93,
		PrimaryBlendThreshold: 0.7,
		OvershootDeltaCents:   42000,
		RollingQuality:        0.37,
		Steps:                 12,
		UpdatedAt:             time.Date(2026, time.May, 3, 8, 30, 0, 0, time.UTC),
	}

	// WHEN: Saving then loading
	require.NoError(t, repo.Save(ctx, policy))
	loaded, status, err := repo.Load(ctx)

	// THEN: Field-for-field equal
	require.NoError(t, err)
	assert.Equal(t, brain.LoadOK, status)
	assert.Equal(t, policy, loaded)
}

func TestPolicyRepository_MissingYieldsDefaults(t *testing.T) {
	repo := brain.NewPolicyRepository(store.NewMemory())

	loaded, status, err := repo.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, brain.LoadMissing, status)
	assert.Equal(t, brain.DefaultAdaptivePolicy(), loaded)
}

func TestPolicyRepository_CorruptAndOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		blob   string
		status brain.LoadStatus
	}{
		{"not json", `{{{`, brain.LoadCorrupt},
		{"json array", `[1,2,3]`, brain.LoadCorrupt},
		{"null", `null`, brain.LoadCorrupt},
		{"wrong types", `{"minNowcastConfidence":"high","steps":"many","overshootDeltaCents":true}`, brain.LoadOK},
		{"out of range", `{"minNowcastConfidence":4,"outlierMinConfidence":-2,"primaryBlendThreshold":0.01,"overshootDeltaCents":9e12,"rollingQuality":-1,"steps":-3}`, brain.LoadOK},
		{"gap violated", `{"minNowcastConfidence":0.88,"outlierMinConfidence":0.85}`, brain.LoadOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			mem := store.NewMemory()
			require.NoError(t, mem.SetBlob(ctx, brain.PolicyKey, []byte(tt.blob)))

			loaded, status, err := brain.NewPolicyRepository(mem).Load(ctx)

			require.NoError(t, err)
			assert.Equal(t, tt.status, status)
			assertPolicyInvariants(t, loaded)
			assert.GreaterOrEqual(t, loaded.Steps, 0)
		})
	}
}

func TestDecodePolicy_CorruptError(t *testing.T) {
	_, err := brain.DecodePolicy([]byte("garbage"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, generic.ErrCorruptBlob))
	var corrupt *generic.CorruptBlobError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, brain.PolicyKey, corrupt.Key)
}

func TestPolicyRepository_StoreFailure(t *testing.T) {
	repo := brain.NewPolicyRepository(failingStore{})

	loaded, _, err := repo.Load(context.Background())

	assert.ErrorIs(t, err, generic.ErrStoreUnavailable)
	assert.Equal(t, brain.DefaultAdaptivePolicy(), loaded)
	assert.ErrorIs(t, repo.Save(context.Background(), loaded), generic.ErrStoreUnavailable)
}

// =============================================================================
// SNAPSHOT REPOSITORY
// =============================================================================

func TestSnapshotRepository_RoundTrip(t *testing.T) {
	// GIVEN: A trained snapshot
	ctx := context.Background()
	p := newTestPredictor()
	res := p.Evolve(demo.Dense(testNow, time.UTC, 8), demo.Categories())
	repo := brain.NewSnapshotRepository(store.NewMemory())

	// WHEN: Saving then loading
	require.NoError(t, repo.Save(ctx, res.Snapshot))
	loaded, status, err := repo.Load(ctx)

	// THEN: The snapshot survives intact
	require.NoError(t, err)
	assert.Equal(t, brain.LoadOK, status)
	require.NotNil(t, loaded)
	assert.Equal(t, res.Snapshot.DataFingerprint, loaded.DataFingerprint)
	assert.Equal(t, res.Snapshot.CurrentMonthHead.TrainedSamples, loaded.CurrentMonthHead.TrainedSamples)
	assert.InDeltaSlice(t, res.Snapshot.Weights, loaded.Weights, 1e-12)
	assert.True(t, res.Snapshot.UpdatedAt.Equal(loaded.UpdatedAt))
}

func TestSnapshotRepository_JSONShape(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	p := newTestPredictor()
	require.NoError(t, brain.NewSnapshotRepository(mem).Save(ctx, p.Snapshot()))

	raw, err := mem.GetBlob(ctx, brain.SnapshotKey)
	require.NoError(t, err)

	// The general head is flattened into the document
	assert.Contains(t, string(raw), `"weights":[0,0,0,0,0,0,0,0]`)
	assert.Contains(t, string(raw), `"currentMonthHead":{`)
	assert.Contains(t, string(raw), `"featureSchemaVersion":3`)
}

func TestSnapshotRepository_CorruptAndMissing(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	repo := brain.NewSnapshotRepository(mem)

	s, status, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Equal(t, brain.LoadMissing, status)

	require.NoError(t, mem.SetBlob(ctx, brain.SnapshotKey, []byte(`{"featureSchemaVersion":3,"weights":[1,2]}`)))
	s, status, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Equal(t, brain.LoadCorrupt, status)

	require.NoError(t, mem.SetBlob(ctx, brain.SnapshotKey, []byte(`not json`)))
	_, status, _ = repo.Load(ctx)
	assert.Equal(t, brain.LoadCorrupt, status)

	require.NoError(t, repo.Save(ctx, nil))
	assert.Equal(t, 0, mem.Len())
}

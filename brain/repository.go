package brain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/warp/household-engine/generic"
)

// =============================================================================
// REPOSITORIES - Snapshot and policy blobs over a BlobStore
// =============================================================================

const (
	SnapshotKey = "household.brain.snapshot.v1"
	PolicyKey   = "household.brain.policy.v1"
)

// LoadStatus tells a caller where a loaded value came from.
type LoadStatus string

const (
	LoadOK      LoadStatus = "ok"
	LoadMissing LoadStatus = "missing"
	LoadCorrupt LoadStatus = "corrupt"
)

// PolicyRepository persists the adaptive policy. Loads never fail on bad
// data: missing or corrupt blobs yield defaults.
type PolicyRepository struct {
	Store generic.BlobStore
}

func NewPolicyRepository(store generic.BlobStore) *PolicyRepository {
	return &PolicyRepository{Store: store}
}

// Load returns the stored policy, normalized. The error is only set when the
// store itself failed; the returned policy is usable regardless.
func (r *PolicyRepository) Load(ctx context.Context) (AdaptivePolicy, LoadStatus, error) {
	raw, err := r.Store.GetBlob(ctx, PolicyKey)
	if errors.Is(err, generic.ErrBlobNotFound) {
		return DefaultAdaptivePolicy(), LoadMissing, nil
	}
	if err != nil {
		return DefaultAdaptivePolicy(), LoadMissing, fmt.Errorf("load policy: %w", err)
	}
	p, err := DecodePolicy(raw)
	if err != nil {
		return p, LoadCorrupt, nil
	}
	return p, LoadOK, nil
}

func (r *PolicyRepository) Save(ctx context.Context, p AdaptivePolicy) error {
	raw, err := json.Marshal(NormalizeAdaptivePolicy(p))
	if err != nil {
		return fmt.Errorf("encode policy: %w", err)
	}
	if err := r.Store.SetBlob(ctx, PolicyKey, raw); err != nil {
		return fmt.Errorf("save policy: %w", err)
	}
	return nil
}

func (r *PolicyRepository) Remove(ctx context.Context) error {
	return r.Store.RemoveBlob(ctx, PolicyKey)
}

// DecodePolicy reads a persisted policy field by field. Fields that are
// missing or of the wrong type take their default; the result is always
// normalized. A blob that is not a JSON object yields the defaults and a
// *generic.CorruptBlobError.
func DecodePolicy(raw []byte) (AdaptivePolicy, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return DefaultAdaptivePolicy(), &generic.CorruptBlobError{Key: PolicyKey, Err: err}
	}
	if fields == nil {
		return DefaultAdaptivePolicy(), &generic.CorruptBlobError{Key: PolicyKey, Err: errors.New("null document")}
	}

	p := DefaultAdaptivePolicy()
	if v, ok := number(fields["minNowcastConfidence"]); ok {
		p.MinNowcastConfidence = v
	}
	if v, ok := number(fields["outlierMinConfidence"]); ok {
		p.OutlierMinConfidence = v
	}
	if v, ok := number(fields["primaryBlendThreshold"]); ok {
		p.PrimaryBlendThreshold = v
	}
	if v, ok := number(fields["overshootDeltaCents"]); ok {
		p.OvershootDeltaCents = generic.RoundCents(math.Max(math.Min(v, math.MaxInt32), math.MinInt32))
	}
	if v, ok := number(fields["rollingQuality"]); ok {
		p.RollingQuality = v
	}
	if v, ok := number(fields["steps"]); ok && v > 0 {
		p.Steps = int(math.Min(v, math.MaxInt32))
	}
	if s, ok := fields["updatedAt"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			p.UpdatedAt = t
		}
	}
	return NormalizeAdaptivePolicy(p), nil
}

func number(v any) (float64, bool) {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// SnapshotRepository persists the predictor snapshot.
type SnapshotRepository struct {
	Store generic.BlobStore
}

func NewSnapshotRepository(store generic.BlobStore) *SnapshotRepository {
	return &SnapshotRepository{Store: store}
}

// Load returns the stored snapshot, or nil with LoadMissing/LoadCorrupt.
// A snapshot from another feature schema is reported as corrupt.
func (r *SnapshotRepository) Load(ctx context.Context) (*Snapshot, LoadStatus, error) {
	raw, err := r.Store.GetBlob(ctx, SnapshotKey)
	if errors.Is(err, generic.ErrBlobNotFound) {
		return nil, LoadMissing, nil
	}
	if err != nil {
		return nil, LoadMissing, fmt.Errorf("load snapshot: %w", err)
	}
	s, err := DecodeSnapshot(raw)
	if err != nil {
		return nil, LoadCorrupt, nil
	}
	return s, LoadOK, nil
}

// DecodeSnapshot parses a persisted snapshot and rejects incompatible ones.
func DecodeSnapshot(raw []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, &generic.CorruptBlobError{Key: SnapshotKey, Err: err}
	}
	if !s.Compatible() {
		return nil, &generic.CorruptBlobError{Key: SnapshotKey, Err: fmt.Errorf("incompatible snapshot (schema %d)", s.FeatureSchemaVersion)}
	}
	return &s, nil
}

func (r *SnapshotRepository) Save(ctx context.Context, s *Snapshot) error {
	if s == nil {
		return r.Remove(ctx)
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := r.Store.SetBlob(ctx, SnapshotKey, raw); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) Remove(ctx context.Context) error {
	return r.Store.RemoveBlob(ctx, SnapshotKey)
}

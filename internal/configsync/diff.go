package configsync

import (
	"context"

	"github.com/danmuck/storesync/internal/document"
)

// SettingDelta is the comparison result for one desired key.
type SettingDelta struct {
	Key              string
	Current          any
	Desired          any
	CurrentCanonical string
	DesiredCanonical string
	Changed          bool
}

// ValueAccessor returns the live value for key within one scope.
type ValueAccessor func(ctx context.Context, key string) (any, error)

// ComputeDelta compares every desired setting with its live value, in
// document order. Accessor errors abort the scope.
func ComputeDelta(ctx context.Context, desired []document.Setting, currentValueOf ValueAccessor) ([]SettingDelta, error) {
	out := make([]SettingDelta, 0, len(desired))
	for _, setting := range desired {
		current, err := currentValueOf(ctx, setting.Key)
		if err != nil {
			return out, err
		}
		d := SettingDelta{
			Key:              setting.Key,
			Current:          current,
			Desired:          setting.Value,
			CurrentCanonical: Canonical(current),
			DesiredCanonical: Canonical(setting.Value),
		}
		d.Changed = d.CurrentCanonical != d.DesiredCanonical
		out = append(out, d)
	}
	return out, nil
}

// Changed filters deltas down to the keys that need a write.
func Changed(deltas []SettingDelta) []SettingDelta {
	out := make([]SettingDelta, 0, len(deltas))
	for _, d := range deltas {
		if d.Changed {
			out = append(out, d)
		}
	}
	return out
}

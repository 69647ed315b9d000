// Package ranking holds the immutable relevance-ranking configuration snapshot.
package ranking

import (
	"fmt"
	"math"
	"strings"
)

// UnknownPriority is the score given to a status or asset type missing from its table.
const UnknownPriority = 50.0

// Weight sum tolerance; outside it the snapshot is still used, with a warning.
const (
	MinWeightSum = 0.99
	MaxWeightSum = 1.01
)

// Weights is the factor weight vector.
type Weights struct {
	StatusUrgency     float64
	Recency           float64
	TransactionVolume float64
	AssetTypeRisk     float64
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.StatusUrgency + w.Recency + w.TransactionVolume + w.AssetTypeRisk
}

// Recency configures half-life decay.
type Recency struct {
	HalfLifeDays float64
	MaxAgeDays   float64
}

// Volume configures the activity-volume curve.
type Volume struct {
	MinForBonus int
	MaxForScore int
	Baseline    float64
}

// Config is a complete ranking snapshot. It is never mutated after New.
type Config struct {
	weights        Weights
	statusPriority map[string]float64
	assetPriority  map[string]float64
	recency        Recency
	volume         Volume
}

// New validates and creates a snapshot. Priority table keys are upper-cased.
func New(w Weights, statusPriority, assetPriority map[string]float64, r Recency, v Volume) (Config, error) {
	for name, val := range map[string]float64{
		"status_urgency":     w.StatusUrgency,
		"recency":            w.Recency,
		"transaction_volume": w.TransactionVolume,
		"asset_type_risk":    w.AssetTypeRisk,
	} {
		if math.IsNaN(val) || math.IsInf(val, 0) || val < 0 {
			return Config{}, fmt.Errorf("weight %s must be a non-negative number, got %v", name, val)
		}
	}
	if w.Sum() == 0 {
		return Config{}, fmt.Errorf("weights must not all be zero")
	}

	status, err := normalizeTable("status_priority", statusPriority)
	if err != nil {
		return Config{}, err
	}
	asset, err := normalizeTable("asset_type_priority", assetPriority)
	if err != nil {
		return Config{}, err
	}

	if !(r.HalfLifeDays > 0) {
		return Config{}, fmt.Errorf("recency.half_life_days must be positive, got %v", r.HalfLifeDays)
	}
	if !(r.MaxAgeDays > 0) {
		return Config{}, fmt.Errorf("recency.max_age_days must be positive, got %v", r.MaxAgeDays)
	}
	if v.MinForBonus < 1 {
		return Config{}, fmt.Errorf("transaction_volume.min_for_bonus must be at least 1, got %d", v.MinForBonus)
	}
	if v.MaxForScore <= v.MinForBonus {
		return Config{}, fmt.Errorf("transaction_volume.max_for_score (%d) must exceed min_for_bonus (%d)",
			v.MaxForScore, v.MinForBonus)
	}
	if v.Baseline < 0 || v.Baseline > 100 {
		return Config{}, fmt.Errorf("transaction_volume.baseline must be within [0,100], got %v", v.Baseline)
	}

	return Config{
		weights:        w,
		statusPriority: status,
		assetPriority:  asset,
		recency:        r,
		volume:         v,
	}, nil
}

func normalizeTable(name string, in map[string]float64) (map[string]float64, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%s is required", name)
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		if math.IsNaN(v) || v < 0 || v > 100 {
			return nil, fmt.Errorf("%s.%s must be within [0,100], got %v", name, k, v)
		}
		out[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return out, nil
}

// Default returns the built-in snapshot used when no configuration file is available.
func Default() Config {
	c, err := New(
		Weights{StatusUrgency: 0.45, Recency: 0.30, TransactionVolume: 0.15, AssetTypeRisk: 0.10},
		map[string]float64{"REJECTED": 100, "ALLEGED": 75, "CANCELLED": 50, "CLEARED": 25},
		map[string]float64{"CDS": 100, "IRS": 95, "FX": 70, "EQUITY": 50, "BOND": 50, "COMMODITY": 50},
		Recency{HalfLifeDays: 14, MaxAgeDays: 90},
		Volume{MinForBonus: 5, MaxForScore: 20, Baseline: 25},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// Weights returns the factor weights.
func (c Config) Weights() Weights { return c.weights }

// Recency returns the decay settings.
func (c Config) Recency() Recency { return c.recency }

// Volume returns the activity-volume settings.
func (c Config) Volume() Volume { return c.volume }

// StatusPriority looks up a status, falling back to UnknownPriority.
func (c Config) StatusPriority(status string) float64 {
	return lookup(c.statusPriority, status)
}

// AssetPriority looks up an asset type, falling back to UnknownPriority.
func (c Config) AssetPriority(assetType string) float64 {
	return lookup(c.assetPriority, assetType)
}

func lookup(table map[string]float64, key string) float64 {
	if v, ok := table[strings.ToUpper(strings.TrimSpace(key))]; ok {
		return v
	}
	return UnknownPriority
}

// WeightsBalanced reports whether the weights sum to roughly 1.
func (c Config) WeightsBalanced() bool {
	s := c.weights.Sum()
	return s >= MinWeightSum && s <= MaxWeightSum
}

// StatusPriorities returns a copy of the status table.
func (c Config) StatusPriorities() map[string]float64 { return copyTable(c.statusPriority) }

// AssetPriorities returns a copy of the asset-type table.
func (c Config) AssetPriorities() map[string]float64 { return copyTable(c.assetPriority) }

func copyTable(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

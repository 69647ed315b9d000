package ranking

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/tradesearch/internal/domain/ranking"
	"github.com/kailas-cloud/tradesearch/internal/metrics"
)

// recencySection is shared by the recency and recency_config spellings.
type recencySection struct {
	HalfLifeDays *float64 `yaml:"half_life_days"`
	MaxAgeDays   *float64 `yaml:"max_age_days"`
	DecayType    string   `yaml:"decay_type"`
}

// fileConfig is the on-disk ranking configuration. JSON files parse too, including the
// recency_config and transaction_config section names.
type fileConfig struct {
	RankingEnabled *bool `yaml:"ranking_enabled"`
	Weights        struct {
		StatusUrgency     *float64 `yaml:"status_urgency"`
		Recency           *float64 `yaml:"recency"`
		TransactionVolume *float64 `yaml:"transaction_volume"`
		AssetTypeRisk     *float64 `yaml:"asset_type_risk"`
	} `yaml:"weights"`
	StatusPriority    map[string]float64 `yaml:"status_priority"`
	AssetTypePriority map[string]float64 `yaml:"asset_type_priority"`
	Recency           recencySection     `yaml:"recency"`
	RecencyConfig     recencySection     `yaml:"recency_config"`
	TransactionVolume struct {
		MinForBonus *int     `yaml:"min_for_bonus"`
		MaxForScore *int     `yaml:"max_for_score"`
		Baseline    *float64 `yaml:"baseline"`
	} `yaml:"transaction_volume"`
	TransactionConfig struct {
		MinForBonus *int     `yaml:"min_transactions_for_bonus"`
		MaxForScore *int     `yaml:"max_transaction_count"`
		Baseline    *float64 `yaml:"baseline"`
	} `yaml:"transaction_config"`
}

// knownKeys lists the accepted keys per section; "" is the top level.
var knownKeys = map[string][]string{
	"": {"ranking_enabled", "weights", "status_priority", "asset_type_priority",
		"recency", "recency_config", "transaction_volume", "transaction_config"},
	"weights":            {"status_urgency", "recency", "transaction_volume", "asset_type_risk"},
	"recency":            {"half_life_days", "max_age_days", "decay_type"},
	"recency_config":     {"half_life_days", "max_age_days", "decay_type"},
	"transaction_volume": {"min_for_bonus", "max_for_score", "baseline"},
	"transaction_config": {"min_transactions_for_bonus", "max_transaction_count", "baseline"},
}

// toDomain fills absent sections and keys from the built-in defaults. The recency and
// transaction_volume spellings win over recency_config and transaction_config.
func (f fileConfig) toDomain() (ranking.Config, error) {
	def := ranking.Default()

	w := def.Weights()
	w.StatusUrgency = deref(f.Weights.StatusUrgency, w.StatusUrgency)
	w.Recency = deref(f.Weights.Recency, w.Recency)
	w.TransactionVolume = deref(f.Weights.TransactionVolume, w.TransactionVolume)
	w.AssetTypeRisk = deref(f.Weights.AssetTypeRisk, w.AssetTypeRisk)

	status := f.StatusPriority
	if status == nil {
		status = def.StatusPriorities()
	}
	asset := f.AssetTypePriority
	if asset == nil {
		asset = def.AssetPriorities()
	}

	r := def.Recency()
	r.HalfLifeDays = deref(f.Recency.HalfLifeDays, deref(f.RecencyConfig.HalfLifeDays, r.HalfLifeDays))
	r.MaxAgeDays = deref(f.Recency.MaxAgeDays, deref(f.RecencyConfig.MaxAgeDays, r.MaxAgeDays))
	for _, dt := range []string{f.Recency.DecayType, f.RecencyConfig.DecayType} {
		if dt != "" && !strings.EqualFold(dt, "exponential") {
			return ranking.Config{}, fmt.Errorf("unsupported decay_type %q", dt)
		}
	}

	v := def.Volume()
	tv, tc := f.TransactionVolume, f.TransactionConfig
	v.MinForBonus = deref(tv.MinForBonus, deref(tc.MinForBonus, v.MinForBonus))
	v.MaxForScore = deref(tv.MaxForScore, deref(tc.MaxForScore, v.MaxForScore))
	v.Baseline = deref(tv.Baseline, deref(tc.Baseline, v.Baseline))

	return ranking.New(w, status, asset, r, v)
}

func deref[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}

// unknownKeys returns the dotted paths of keys the loader does not understand.
func unknownKeys(data []byte) []string {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil
	}
	var out []string
	collect := func(section string, m map[string]any) {
		for k := range m {
			if slices.Contains(knownKeys[section], k) {
				continue
			}
			if section != "" {
				k = section + "." + k
			}
			out = append(out, k)
		}
	}
	collect("", raw)
	for section := range knownKeys {
		if sub, ok := raw[section].(map[string]any); ok && section != "" {
			collect(section, sub)
		}
	}
	slices.Sort(out)
	return out
}

// File is a parsed ranking configuration file.
type File struct {
	Config ranking.Config
	// Enabled is the file's ranking_enabled flag, true when absent.
	Enabled bool
	// Unknown lists keys that were ignored.
	Unknown []string
}

// LoadFile reads and validates a ranking configuration file.
func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read ranking config: %w", err)
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parse ranking config %s: %w", path, err)
	}
	cfg, err := f.toDomain()
	if err != nil {
		return File{}, fmt.Errorf("invalid ranking config %s: %w", path, err)
	}
	return File{Config: cfg, Enabled: deref(f.RankingEnabled, true), Unknown: unknownKeys(data)}, nil
}

type snapshot struct {
	cfg     ranking.Config
	enabled bool
	modTime time.Time
}

// Source holds the current ranking snapshot and reloads it when the backing file changes.
// Readers never block: the snapshot is swapped atomically.
type Source struct {
	path    string
	current atomic.Pointer[snapshot]
	mu      sync.Mutex // serializes reloads
	logger  *zap.Logger
}

// NewSource loads path, falling back to ranking.Default when the file is missing or invalid.
// An empty path always serves the defaults.
func NewSource(path string, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Source{path: path, logger: logger}
	s.current.Store(&snapshot{cfg: ranking.Default(), enabled: true})
	if path != "" {
		if _, err := s.Reload(); err != nil {
			logger.Warn("Using default ranking config", zap.String("path", path), zap.Error(err))
		}
	}
	return s
}

// NewStaticSource serves a fixed snapshot.
func NewStaticSource(cfg ranking.Config) *Source {
	s := &Source{logger: zap.NewNop()}
	s.current.Store(&snapshot{cfg: cfg, enabled: true})
	return s
}

// Path returns the backing file path.
func (s *Source) Path() string { return s.path }

// Current returns the active snapshot, reloading first if the file's modification time advanced.
func (s *Source) Current() ranking.Config {
	return s.load().cfg
}

// Enabled reports the file's ranking_enabled flag. Static sources are always enabled.
func (s *Source) Enabled() bool {
	return s.load().enabled
}

func (s *Source) load() *snapshot {
	if s.path != "" {
		if info, err := os.Stat(s.path); err == nil && info.ModTime().After(s.current.Load().modTime) {
			if _, err := s.Reload(); err != nil {
				s.logger.Warn("Ranking config reload failed, keeping previous", zap.Error(err))
			}
		}
	}
	return s.current.Load()
}

// Reload reads the file and swaps the snapshot. On failure the previous snapshot stays
// active. It reports whether a new snapshot was installed.
func (s *Source) Reload() (bool, error) {
	if s.path == "" {
		return false, errors.New("ranking config path is not set")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		reloadResult("error")
		return false, fmt.Errorf("stat ranking config: %w", err)
	}
	// A concurrent caller may have installed this version already.
	if prev := s.current.Load(); !prev.modTime.IsZero() && !info.ModTime().After(prev.modTime) {
		return false, nil
	}

	file, err := LoadFile(s.path)
	if err != nil {
		// Remember the broken version so it is not re-parsed on every call.
		prev := s.current.Load()
		s.current.Store(&snapshot{cfg: prev.cfg, enabled: prev.enabled, modTime: info.ModTime()})
		reloadResult("error")
		return false, err
	}
	cfg := file.Config
	if len(file.Unknown) > 0 {
		s.logger.Warn("Ignoring unknown ranking config keys",
			zap.Strings("keys", file.Unknown),
			zap.String("path", s.path),
		)
	}
	if !cfg.WeightsBalanced() {
		s.logger.Warn("Ranking weights do not sum to 1",
			zap.Float64("sum", cfg.Weights().Sum()),
			zap.String("path", s.path),
		)
	}
	s.current.Store(&snapshot{cfg: cfg, enabled: file.Enabled, modTime: info.ModTime()})
	reloadResult("ok")
	s.logger.Info("Ranking config loaded",
		zap.String("path", s.path),
		zap.Bool("ranking_enabled", file.Enabled),
		zap.Time("mod_time", info.ModTime()),
	)
	return true, nil
}

func reloadResult(result string) {
	metrics.RankingConfigReloadsTotal.WithLabelValues(result).Inc()
}

package testsupport

import (
	"path/filepath"
	"testing"

	"histoflow/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options. Simulation runs
// deterministically with no step delay so tests stay fast and repeatable.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Simulation.Seed = 1
	cfgVal.Simulation.StepDelayMS = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithProtocols overrides the protocol sequence on the test config.
func WithProtocols(protocols ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Bench.Protocols = protocols
	}
}

// WithMaxWashLoops overrides the wash loop bound on the test config.
func WithMaxWashLoops(loops int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Bench.MaxWashLoops = loops
	}
}

// WithSeed overrides the simulation seed on the test config.
func WithSeed(seed int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Simulation.Seed = seed
	}
}

// WithPassRate overrides the simulated quality pass rate on the test config.
func WithPassRate(rate float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Simulation.PassRate = rate
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

package config

import "github.com/fluxorio/theron/pkg/workqueue"

// FrameworkConfig is the per-Framework configuration table from spec §6,
// loadable via Load/LoadWithEnv the same way any other config struct in
// this package is: YAML by default, with THERON_-prefixed environment
// overrides applied on top via ApplyEnvOverrides.
type FrameworkConfig struct {
	// ThreadCount is the initial worker count started at construction.
	ThreadCount int `yaml:"thread_count"`
	// MinThreads / MaxThreads are the Scheduler's initial worker-count
	// bounds; SetMinThreads/SetMaxThreads move them later (see DESIGN.md
	// Open Question 3).
	MinThreads int `yaml:"min_threads"`
	MaxThreads int `yaml:"max_threads"`
	// NodeMask and ProcessorMask are advisory CPU affinity hints; Go's
	// scheduler does not expose thread pinning, so these are stored in
	// the config only; no component reads them or applies them to any
	// OS thread.
	NodeMask      uint64 `yaml:"node_mask"`
	ProcessorMask uint64 `yaml:"processor_mask"`
	// YieldStrategyName selects the non-blocking WorkQueue's backoff
	// tier ("polite", "strong", "aggressive"); an empty or unrecognized
	// value selects the blocking (condvar) WorkQueue variant instead.
	YieldStrategyName string `yaml:"yield_strategy"`
	// MaxActors sizes the Directory's fixed slot table. MaxReceivers is
	// not read by any component (see DESIGN.md, pkg/config entry).
	MaxActors     uint32 `yaml:"max_actors"`
	MaxReceivers  uint32 `yaml:"max_receivers"`
	// MaxThreadsPerFramework, spec §6's distinct per-framework worker
	// knob, is passed to the Scheduler as ThreadCeiling and caps
	// MaxThreads; it does not limit the workers started for
	// ThreadCount/MinThreads or by SetMinThreads.
	MaxThreadsPerFramework int `yaml:"max_threads_per_framework"`
}

// DefaultFrameworkConfig returns the configuration a Framework uses when
// none is supplied explicitly.
func DefaultFrameworkConfig() FrameworkConfig {
	return FrameworkConfig{
		ThreadCount:            4,
		MinThreads:             1,
		MaxThreads:             16,
		YieldStrategyName:      "",
		MaxActors:              8192,
		MaxReceivers:           256,
		MaxThreadsPerFramework: 16,
	}
}

// YieldStrategy resolves YieldStrategyName to a workqueue.YieldStrategy,
// reporting ok=false if the configuration selects the blocking variant
// (empty or unrecognized name).
func (c FrameworkConfig) YieldStrategy() (strategy workqueue.YieldStrategy, ok bool) {
	switch c.YieldStrategyName {
	case "polite":
		return workqueue.Polite, true
	case "strong":
		return workqueue.Strong, true
	case "aggressive":
		return workqueue.Aggressive, true
	default:
		return workqueue.Polite, false
	}
}

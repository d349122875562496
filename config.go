package oski

import (
	"os"
	"runtime"
)

// ThreadType selects how the executor (C10) dispatches per-partition kernel
// calls across workers.
type ThreadType int

const (
	// SingleThreaded runs every sub-matrix call on the calling goroutine.
	SingleThreaded ThreadType = iota
	// PerCallThreads spawns one goroutine per sub-matrix for each call and
	// joins them at the end of the call.
	PerCallThreads
	// ThreadPool dispatches onto a persistent pool of workers synchronized
	// by start/end barriers.
	ThreadPool
	// ForkJoin uses a parallel-for primitive (errgroup) per call.
	ForkJoin
)

// PartitionType selects how the partitioner (C8) splits a CSR across workers.
type PartitionType int

const (
	// OneD splits by contiguous row range, balancing non-zero counts.
	OneD PartitionType = iota
	// SemiOneD splits by non-zero count, allowing a row to be shared
	// across two adjacent partitions.
	SemiOneD
)

// Config is the process-wide, immutable configuration every TunableMatrix is
// created against. Build one with NewConfig and functional options; there is
// no global mutable config beyond the read-only module registry (kernel and
// heuristic tables) built at package init.
type Config struct {
	ThreadType     ThreadType
	NumThreads     int
	PartitionType  PartitionType
	NumPartitions  int
	BypassCheck    bool
	ProfileDir     string
	TuningFraction float64
}

// Option configures a Config under construction.
type Option func(*Config)

// WithThreads sets the worker count T. Values <= 0 fall back to
// runtime.GOMAXPROCS(0).
func WithThreads(n int) Option {
	return func(c *Config) { c.NumThreads = n }
}

// WithThreadType selects the dispatch strategy.
func WithThreadType(t ThreadType) Option {
	return func(c *Config) { c.ThreadType = t }
}

// WithPartitionType selects OneD or SemiOneD partitioning.
func WithPartitionType(t PartitionType) Option {
	return func(c *Config) { c.PartitionType = t }
}

// WithPartitions sets the partition count P. A P below NumThreads is raised
// to NumThreads; otherwise P is trimmed down to the nearest multiple of
// NumThreads (see AdjustPartitionCount).
func WithPartitions(p int) Option {
	return func(c *Config) { c.NumPartitions = p }
}

// WithBypassCheck skips the O(nnz) asserted-property validation on matrix
// creation, mirroring the OSKI_BYPASS_CHECK environment variable.
func WithBypassCheck(bypass bool) Option {
	return func(c *Config) { c.BypassCheck = bypass }
}

// WithProfileDir sets the directory register-profile files are loaded from.
func WithProfileDir(dir string) Option {
	return func(c *Config) { c.ProfileDir = dir }
}

// WithTuningFraction sets the budget fraction the tuner (C7) applies to
// whichever of estimated-trace-time or observed-kernel-time dominates.
func WithTuningFraction(f float64) Option {
	return func(c *Config) { c.TuningFraction = f }
}

const envBypassCheck = "OSKI_BYPASS_CHECK"

// NewConfig builds an immutable Config, applying opts over the defaults.
// OSKI_BYPASS_CHECK=yes in the environment sets BypassCheck unless an
// explicit WithBypassCheck option overrides it.
func NewConfig(opts ...Option) *Config {
	c := &Config{
		ThreadType:     SingleThreaded,
		NumThreads:     runtime.GOMAXPROCS(0),
		PartitionType:  OneD,
		NumPartitions:  runtime.GOMAXPROCS(0),
		BypassCheck:    os.Getenv(envBypassCheck) == "yes",
		TuningFraction: 0.25,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.NumThreads <= 0 {
		c.NumThreads = runtime.GOMAXPROCS(0)
	}
	if c.NumPartitions <= 0 {
		c.NumPartitions = c.NumThreads
	}
	return c
}

// DefaultConfig is used by constructors that don't take an explicit Config.
var DefaultConfig = NewConfig()

package upscale

import (
	"runtime"
	"time"
)

// Option configures an Upscaler during creation.
//
// Example:
//
//	u, err := upscale.New(
//		upscale.WithQuality(upscale.QualityHigh),
//		upscale.WithMemoryLimit(512<<20),
//	)
type Option func(*config)

// config holds the resolved construction options.
type config struct {
	defaultQuality  Quality
	memoryLimit     uint64 // device ceiling override, 0 = from profile
	hostLimit       uint64 // host ceiling override, 0 = probe
	workers         int
	ceilingFraction float64
	retention       time.Duration

	accelerator Accelerator
	accelSet    bool
}

// defaultConfig returns the defaults applied before options run.
func defaultConfig() config {
	return config{
		defaultQuality:  QualityBalanced,
		workers:         runtime.NumCPU(),
		ceilingFraction: DefaultCeilingFraction,
		retention:       DefaultRetention,
	}
}

// WithQuality sets the default quality preference, used by Upscale and
// by callers that have no per-request preference.
func WithQuality(q Quality) Option {
	return func(c *config) {
		if q.Valid() {
			c.defaultQuality = q
		}
	}
}

// WithMemoryLimit caps the device memory ceiling in bytes, overriding
// the detected VRAM fraction. Used by tests and by deployments sharing
// a device with other workloads.
func WithMemoryLimit(bytes uint64) Option {
	return func(c *config) { c.memoryLimit = bytes }
}

// WithHostMemoryLimit caps the host memory ceiling in bytes, overriding
// the probed system memory fraction. The host ceiling gates admission
// and fallback re-planning.
func WithHostMemoryLimit(bytes uint64) Option {
	return func(c *config) { c.hostLimit = bytes }
}

// WithWorkers sets the CPU path's worker count. Defaults to
// runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithCeilingFraction sets the fraction of total memory usable as the
// safe ceiling for both device and host budgets. Defaults to
// DefaultCeilingFraction. Values outside (0, 1] are ignored.
func WithCeilingFraction(f float64) Option {
	return func(c *config) {
		if f > 0 && f <= 1 {
			c.ceilingFraction = f
		}
	}
}

// WithRetention sets how long terminal sessions remain queryable before
// eviction. Defaults to DefaultRetention.
func WithRetention(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.retention = d
		}
	}
}

// WithAccelerator injects an accelerator explicitly instead of using
// the registered one. Pass nil to disable acceleration entirely, even
// when an accelerator is registered.
func WithAccelerator(a Accelerator) Option {
	return func(c *config) {
		c.accelerator = a
		c.accelSet = true
	}
}

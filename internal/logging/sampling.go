// internal/logging/sampling.go
package logging

import "go.uber.org/zap/zapcore"

// sampled wraps core so entries below Error pass through a zapcore
// sampler while Error and above always land. A disabled cfg returns
// core unchanged.
func sampled(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled {
		return core
	}
	return &splitCore{
		direct:  core,
		sampled: zapcore.NewSamplerWithOptions(core, cfg.Tick.Duration(), cfg.First, cfg.Thereafter),
	}
}

// splitCore routes entries by severity: Error and above go to the
// direct core, everything else through the sampler. Both wrap the same
// underlying core, so With and Sync stay consistent.
type splitCore struct {
	direct  zapcore.Core
	sampled zapcore.Core
}

func (c *splitCore) Enabled(lvl zapcore.Level) bool {
	return c.direct.Enabled(lvl)
}

func (c *splitCore) With(fields []zapcore.Field) zapcore.Core {
	return &splitCore{
		direct:  c.direct.With(fields),
		sampled: c.sampled.With(fields),
	}
}

func (c *splitCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if e.Level >= zapcore.ErrorLevel {
		return c.direct.Check(e, ce)
	}
	return c.sampled.Check(e, ce)
}

// Write satisfies zapcore.Core; Check hands entries to the inner
// cores, so this is not reached through normal logging.
func (c *splitCore) Write(e zapcore.Entry, fields []zapcore.Field) error {
	return c.direct.Write(e, fields)
}

func (c *splitCore) Sync() error {
	return c.direct.Sync()
}

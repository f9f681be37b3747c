package logging

import (
	"sort"

	"go.uber.org/zap/zapcore"
)

// newSampledCore splits core into one band per configured level below
// Error, each with its own sampler. Levels without a config pass through
// unsampled, as do Error and above.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled || len(cfg.Levels) == 0 {
		return core
	}

	levels := make([]zapcore.Level, 0, len(cfg.Levels))
	for lvl := range cfg.Levels {
		if lvl < zapcore.ErrorLevel {
			levels = append(levels, lvl)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	cores := make([]zapcore.Core, 0, len(levels)+1)
	passLo := zapcore.Level(-128)
	for _, lvl := range levels {
		if lvl > passLo {
			cores = append(cores, &levelRangeCore{Core: core, lo: passLo, hi: lvl - 1})
		}
		s := cfg.Levels[lvl]
		band := &levelRangeCore{Core: core, lo: lvl, hi: lvl}
		cores = append(cores, zapcore.NewSamplerWithOptions(band, cfg.Tick.Duration(), s.Initial, s.Thereafter))
		passLo = lvl + 1
	}
	cores = append(cores, &levelRangeCore{Core: core, lo: passLo, hi: zapcore.FatalLevel})
	return zapcore.NewTee(cores...)
}

// levelRangeCore passes only entries with lo <= level <= hi.
type levelRangeCore struct {
	zapcore.Core
	lo, hi zapcore.Level
}

func (c *levelRangeCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.lo && lvl <= c.hi && c.Core.Enabled(lvl)
}

func (c *levelRangeCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

func (c *levelRangeCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelRangeCore{Core: c.Core.With(fields), lo: c.lo, hi: c.hi}
}

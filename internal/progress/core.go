package progress

import (
	"sync/atomic"

	"go.uber.org/zap/zapcore"
)

// Core is a zapcore.Core that feeds every log message at or above its level
// to a Tracker. Tee it with the real core to derive progress from the log
// output of stages that do not report progress themselves.
type Core struct {
	zapcore.LevelEnabler
	tracker  *Tracker
	detached *atomic.Bool
}

// NewCore returns an interception core for tracker.
func NewCore(tracker *Tracker, level zapcore.LevelEnabler) *Core {
	return &Core{
		LevelEnabler: level,
		tracker:      tracker,
		detached:     new(atomic.Bool),
	}
}

// Detach stops forwarding. Loggers derived from the core (including With
// children) go quiet together.
func (c *Core) Detach() {
	c.detached.Store(true)
}

// With ignores structured fields; only the message drives progress.
func (c *Core) With([]zapcore.Field) zapcore.Core {
	return c
}

func (c *Core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.detached.Load() || !c.Enabled(ent.Level) {
		return ce
	}
	return ce.AddCore(ent, c)
}

func (c *Core) Write(ent zapcore.Entry, _ []zapcore.Field) error {
	if c.detached.Load() {
		return nil
	}
	c.tracker.Observe(ent.Message)
	return nil
}

func (c *Core) Sync() error { return nil }

package engine

import "time"

// Config bounds one manager's runs. Values come from the host's TOML
// config; zero fields fall back to the defaults below.
type Config struct {
	MaxIterations      int           // per phase
	GenerationTimeout  time.Duration // per Generate call
	JudgeTimeout       time.Duration // per Evaluate call
	TranslationTimeout time.Duration // per change-request translation
	RetryBackoff       time.Duration // before the single retry of a failed call
	HeartbeatInterval  time.Duration // idle interval before a heartbeat event
	ChangeQueueBound   int           // queued change requests per run
	EventBuffer        int           // emitter channel capacity
}

// DefaultConfig returns the standard engine limits
func DefaultConfig() Config {
	return Config{
		MaxIterations:      5,
		GenerationTimeout:  120 * time.Second,
		JudgeTimeout:       60 * time.Second,
		TranslationTimeout: 15 * time.Second,
		RetryBackoff:       2 * time.Second,
		HeartbeatInterval:  15 * time.Second,
		ChangeQueueBound:   10,
		EventBuffer:        256,
	}
}

// withDefaults fills zero fields from DefaultConfig
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.GenerationTimeout <= 0 {
		c.GenerationTimeout = d.GenerationTimeout
	}
	if c.JudgeTimeout <= 0 {
		c.JudgeTimeout = d.JudgeTimeout
	}
	if c.TranslationTimeout <= 0 {
		c.TranslationTimeout = d.TranslationTimeout
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = d.RetryBackoff
	}
	if c.HeartbeatInterval < 0 {
		c.HeartbeatInterval = d.HeartbeatInterval
	}
	if c.ChangeQueueBound <= 0 {
		c.ChangeQueueBound = d.ChangeQueueBound
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = d.EventBuffer
	}
	return c
}

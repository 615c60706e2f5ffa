package retention

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner deletes terminal runs past the retention age
type Pruner interface {
	Prune(olderThan time.Time) (int64, error)
}

// Config controls the retention sweep
type Config struct {
	Cron string        `toml:"cron"`
	Age  time.Duration `toml:"age"`
}

// Validate checks the config and fills defaults
func (c *Config) Validate() error {
	if c.Cron == "" {
		c.Cron = "0 3 * * *" // 3 AM daily
	}
	if _, err := ParseCron(c.Cron); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	if c.Age <= 0 {
		c.Age = 30 * 24 * time.Hour
	}
	return nil
}

// ParseCron parses a cron expression
func ParseCron(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(expr)
}

// Sweeper runs the retention sweep on its cron schedule
type Sweeper struct {
	pruner Pruner
	cfg    Config
	sched  cron.Schedule

	mu      sync.Mutex
	lastRun time.Time
}

// NewSweeper creates a sweeper. The config is validated and defaulted.
func NewSweeper(pruner Pruner, cfg Config) (*Sweeper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sched, err := ParseCron(cfg.Cron)
	if err != nil {
		return nil, err
	}
	return &Sweeper{pruner: pruner, cfg: cfg, sched: sched}, nil
}

// NextRun returns the next scheduled sweep time
func (s *Sweeper) NextRun() time.Time {
	return s.sched.Next(time.Now())
}

// Due reports whether a sweep is due
func (s *Sweeper) Due(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	last := s.lastRun
	if last.IsZero() {
		last = now.Add(-24 * time.Hour)
	}
	return now.After(s.sched.Next(last))
}

// Sweep prunes runs older than the retention age
func (s *Sweeper) Sweep() (int64, error) {
	s.mu.Lock()
	s.lastRun = time.Now()
	s.mu.Unlock()

	return s.pruner.Prune(time.Now().Add(-s.cfg.Age))
}

// Run checks the schedule every minute until the context is cancelled
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if !s.Due(now) {
				continue
			}
			pruned, err := s.Sweep()
			if err != nil {
				log.Printf("[retention] sweep failed: %v", err)
				continue
			}
			if pruned > 0 {
				log.Printf("[retention] pruned %d runs older than %s", pruned, s.cfg.Age)
			}
		}
	}
}

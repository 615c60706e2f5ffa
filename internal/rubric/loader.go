package rubric

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/alchemi/discovery-orchestrator/internal/domain"
)

// Source holds the live scoring configuration. It starts from
// DefaultConfig and can overlay per-phase rubric TOML files from a
// directory; Watch keeps the overlay current as files change.
type Source struct {
	dir string

	mu  sync.RWMutex
	cfg Config
}

// NewSource creates a Source rooted at dir. An empty dir means the
// compiled-in defaults only.
func NewSource(dir string) *Source {
	return &Source{dir: dir, cfg: DefaultConfig()}
}

// Current returns the active configuration as a value
func (s *Source) Current() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Load re-reads rubric files from the directory. Files are named
// <phase>.toml; unknown phases and undecodable files are rejected.
// Phases without a file keep the default rubric.
func (s *Source) Load() error {
	if s.dir == "" {
		return nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	cfg := DefaultConfig()
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		phase := domain.Phase(strings.TrimSuffix(entry.Name(), ".toml"))
		if !phase.Valid() {
			return fmt.Errorf("rubric file %s: unknown phase %q", entry.Name(), phase)
		}

		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return err
		}
		var r Rubric
		if err := toml.Unmarshal(data, &r); err != nil {
			return fmt.Errorf("parsing rubric %s: %w", entry.Name(), err)
		}
		r.Phase = phase
		if err := validateRubric(r); err != nil {
			return fmt.Errorf("rubric %s: %w", entry.Name(), err)
		}
		cfg.Rubrics[phase] = r
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}

func validateRubric(r Rubric) error {
	if len(r.Criteria) == 0 {
		return fmt.Errorf("no criteria")
	}
	seen := make(map[string]bool)
	for _, c := range r.Criteria {
		if c.ID == "" {
			return fmt.Errorf("criterion with empty id")
		}
		if seen[c.ID] {
			return fmt.Errorf("duplicate criterion %q", c.ID)
		}
		seen[c.ID] = true
		if c.MaxScore <= 0 {
			return fmt.Errorf("criterion %q: max_score must be positive", c.ID)
		}
	}
	const tolerance = 1e-9
	if total := r.MaxTotal(); total < 10-tolerance || total > 10+tolerance {
		return fmt.Errorf("criterion max scores sum to %.2f, want 10", total)
	}
	return nil
}

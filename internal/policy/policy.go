// Package policy decides what happens when a phase exhausts its
// iterations without passing. Decisions are pure functions of the phase
// and its best score so they can be tested without a run.
package policy

import (
	"github.com/alchemi/discovery-orchestrator/internal/domain"
)

// Decision is the outcome for an exhausted phase
type Decision string

const (
	// ContinueDegraded records the best-of iteration score and moves on
	ContinueDegraded Decision = "continue-degraded"
	// AbortRun stops sequencing and fails the run
	AbortRun Decision = "abort-run"
)

// Policy maps exhausted phases to decisions
type Policy struct {
	overrides map[domain.Phase]Decision
}

// Default returns the standard policy: foundational phases (research,
// hypothesis) abort the run because downstream phases consume their
// artifacts; validation and output continue degraded since their
// partial results remain useful.
func Default() Policy {
	return Policy{}
}

// WithOverride returns a copy of the policy with the phase's decision
// replaced
func (p Policy) WithOverride(phase domain.Phase, d Decision) Policy {
	overrides := make(map[domain.Phase]Decision, len(p.overrides)+1)
	for k, v := range p.overrides {
		overrides[k] = v
	}
	overrides[phase] = d
	return Policy{overrides: overrides}
}

// Decide returns the decision for a phase that ran out of iterations
// with bestScore as its highest judged total
func (p Policy) Decide(phase domain.Phase, bestScore float64) Decision {
	if d, ok := p.overrides[phase]; ok {
		return d
	}
	if phase.Foundational() {
		return AbortRun
	}
	return ContinueDegraded
}

package domain

// Phase identifies one of the four sequential stages of a discovery run
type Phase string

const (
	PhaseResearch   Phase = "research"
	PhaseHypothesis Phase = "hypothesis"
	PhaseValidation Phase = "validation"
	PhaseOutput     Phase = "output"
)

// phaseOrder is the single source of truth for execution order
var phaseOrder = []Phase{PhaseResearch, PhaseHypothesis, PhaseValidation, PhaseOutput}

// Phases returns all phases in execution order
func Phases() []Phase {
	out := make([]Phase, len(phaseOrder))
	copy(out, phaseOrder)
	return out
}

// Valid reports whether p is one of the four known phases
func (p Phase) Valid() bool {
	for _, q := range phaseOrder {
		if p == q {
			return true
		}
	}
	return false
}

// Index returns the phase's position in execution order, or -1 if unknown
func (p Phase) Index() int {
	for i, q := range phaseOrder {
		if p == q {
			return i
		}
	}
	return -1
}

// Foundational reports whether downstream phases depend on this phase's
// artifact. Foundational phases abort the run when exhausted under the
// default degradation policy.
func (p Phase) Foundational() bool {
	return p == PhaseResearch || p == PhaseHypothesis
}

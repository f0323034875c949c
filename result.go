package qcec

import (
	"encoding/json"
	"time"
)

// EquivalenceCriterion is the verdict of a check, graded from a functional
// proof down to evidence gathered by simulation.
type EquivalenceCriterion uint8

const (
	NoInformation EquivalenceCriterion = iota
	NotEquivalent
	Equivalent
	EquivalentUpToPhase
	EquivalentUpToGlobalPhase
	ProbablyEquivalent
	ProbablyNotEquivalent
)

func (e EquivalenceCriterion) String() string {
	switch e {
	case NoInformation:
		return "no_information"
	case NotEquivalent:
		return "not_equivalent"
	case Equivalent:
		return "equivalent"
	case EquivalentUpToPhase:
		return "equivalent_up_to_phase"
	case EquivalentUpToGlobalPhase:
		return "equivalent_up_to_global_phase"
	case ProbablyEquivalent:
		return "probably_equivalent"
	case ProbablyNotEquivalent:
		return "probably_not_equivalent"
	}
	return "unknown"
}

// MarshalJSON renders the criterion as its string form.
func (e EquivalenceCriterion) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

// ConsideredEquivalent reports whether the verdict counts as equivalent
// for a caller that accepts phase differences and probabilistic evidence.
func (e EquivalenceCriterion) ConsideredEquivalent() bool {
	switch e {
	case Equivalent, ProbablyEquivalent, EquivalentUpToGlobalPhase, EquivalentUpToPhase:
		return true
	}
	return false
}

// StrategyState is the lifecycle state of one checker instance.
type StrategyState uint8

const (
	StateIdle StrategyState = iota
	StateRunning
	StateProved
	StateDisproved
	StateInconclusive
	StateTimedOut
	StateFailed
)

func (s StrategyState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateProved:
		return "proved"
	case StateDisproved:
		return "disproved"
	case StateInconclusive:
		return "inconclusive"
	case StateTimedOut:
		return "timed_out"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// MarshalJSON renders the state as its string form.
func (s StrategyState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Counterexample is a stimulus on which the two circuits demonstrably
// differ, together with both output states in dense form (omitted for
// registers too large to expand).
type Counterexample struct {
	Input   []complex128 `json:"input,omitempty"`
	Output1 []complex128 `json:"output1,omitempty"`
	Output2 []complex128 `json:"output2,omitempty"`
}

// CheckerResult captures the outcome of one strategy instance.
type CheckerResult struct {
	Checker     string               `json:"checker"`
	State       StrategyState        `json:"state"`
	Equivalence EquivalenceCriterion `json:"equivalence"`
	Runtime     time.Duration        `json:"runtime_ns"`
	PeakNodes   int                  `json:"peak_nodes,omitempty"`
	Error       string               `json:"error,omitempty"`
}

// Results aggregates the outcome of a checking task.
type Results struct {
	TaskID      string               `json:"task_id"`
	Equivalence EquivalenceCriterion `json:"equivalence"`

	PreprocessingTime time.Duration `json:"preprocessing_time_ns"`
	CheckTime         time.Duration `json:"check_time_ns"`

	StartedSimulations   int `json:"started_simulations,omitempty"`
	PerformedSimulations int `json:"performed_simulations,omitempty"`

	// Explanation names the strategy that decided the verdict.
	Explanation string `json:"explanation,omitempty"`

	// Error carries a run-level failure when results are delivered over a
	// channel instead of a return value.
	Error string `json:"error,omitempty"`

	Counterexample *Counterexample `json:"counterexample,omitempty"`

	CheckerResults []CheckerResult `json:"checkers"`
}

// ConsideredEquivalent reports whether the aggregate verdict counts as
// equivalent.
func (r *Results) ConsideredEquivalent() bool {
	return r.Equivalence.ConsideredEquivalent()
}

// JSON renders the results as an indented JSON document.
func (r *Results) JSON() string {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func (r *Results) String() string { return r.JSON() }

package qcec

import (
	"fmt"
	"runtime"
	"time"
)

// ApplicationSchemeType selects the order in which the two circuits' gates
// are applied during a check. Diagram size is highly sensitive to this
// order; a poor interleaving can blow up intermediate diagrams even for
// equivalent circuits.
type ApplicationSchemeType uint8

const (
	SchemeSequential ApplicationSchemeType = iota
	SchemeOneToOne
	SchemeProportional
	SchemeGateCost
	SchemeLookahead
)

func (s ApplicationSchemeType) String() string {
	switch s {
	case SchemeSequential:
		return "sequential"
	case SchemeOneToOne:
		return "one_to_one"
	case SchemeProportional:
		return "proportional"
	case SchemeGateCost:
		return "gate_cost"
	case SchemeLookahead:
		return "lookahead"
	}
	return "unknown"
}

// StateType selects the stimuli used by the simulation checker.
type StateType uint8

const (
	StateComputationalBasis StateType = iota
	StateRandom1QBasis
	StateStabilizer
)

func (s StateType) String() string {
	switch s {
	case StateComputationalBasis:
		return "computational_basis"
	case StateRandom1QBasis:
		return "random_1q_basis"
	case StateStabilizer:
		return "stabilizer"
	}
	return "unknown"
}

// AncillaMode controls how qubits present in only one of the circuits are
// treated when register sizes differ.
type AncillaMode uint8

const (
	// AncillaModeDiscard treats the extra qubits as zero-initialized
	// ancillas whose outputs are garbage.
	AncillaModeDiscard AncillaMode = iota
	// AncillaModeZeroInit requires the extra qubits to start in |0> and
	// return to |0>, but their outputs still participate in the comparison.
	AncillaModeZeroInit
	// AncillaModeStrict refuses differing register sizes; qubits must match
	// index for index.
	AncillaModeStrict
)

func (m AncillaMode) String() string {
	switch m {
	case AncillaModeDiscard:
		return "discard"
	case AncillaModeZeroInit:
		return "zero_init"
	case AncillaModeStrict:
		return "strict"
	}
	return "unknown"
}

// CostFunction assigns an application cost to a gate, used by the GateCost
// scheme to pace the second circuit against the first.
type CostFunction func(op OpType, nControls int) int

// DefaultCostFunction charges one unit for plain gates and grows with the
// number of controls, reflecting the blow-up of multi-controlled gates
// under decomposition.
func DefaultCostFunction(op OpType, nControls int) int {
	if nControls == 0 {
		return 1
	}
	if op == OpSWAP {
		return 3 * (1 + 2*nControls)
	}
	return 1 + 2*nControls
}

// ExecutionConfig bundles the run-level options of a checking task.
type ExecutionConfig struct {
	RunConstructionChecker bool
	RunAlternatingChecker  bool
	RunSimulationChecker   bool

	Parallel bool
	NThreads int

	// Timeout is the wall-clock budget for the whole task. Zero disables.
	Timeout time.Duration

	// NumericalTolerance governs weight comparison and normalization.
	NumericalTolerance float64

	// NodeLimit bounds the diagram size per strategy; exceeding it turns
	// that strategy's outcome into Inconclusive. Zero disables.
	NodeLimit int

	// GCThreshold is the active-node count that triggers deferred garbage
	// collection between gate applications.
	GCThreshold int

	// Debug enables normalization invariant assertions. Violations are
	// fatal in debug configuration and degrade to best effort otherwise.
	Debug bool
}

// ApplicationConfig selects the application scheme per checker.
type ApplicationConfig struct {
	ConstructionScheme ApplicationSchemeType
	SimulationScheme   ApplicationSchemeType
	AlternatingScheme  ApplicationSchemeType
	CostFunction       CostFunction
}

// SimulationConfig tunes the simulation checker.
type SimulationConfig struct {
	MaxSims           int
	StateType         StateType
	Seed              uint64
	FidelityThreshold float64
}

// FunctionalityConfig tunes the construction and alternating checkers.
type FunctionalityConfig struct {
	// TraceThreshold bounds the distance to the identity accepted as
	// equivalent when top nodes differ due to numerical noise.
	TraceThreshold float64
}

// Configuration is the complete option record of a checking task.
type Configuration struct {
	Execution     ExecutionConfig
	Application   ApplicationConfig
	Simulation    SimulationConfig
	Functionality FunctionalityConfig
	AncillaMode   AncillaMode
}

// DefaultConfiguration mirrors the battle-tested defaults: simulation and
// alternating checkers in parallel, proportional application, a handful of
// computational-basis stimuli.
func DefaultConfiguration() Configuration {
	return Configuration{
		Execution: ExecutionConfig{
			RunAlternatingChecker: true,
			RunSimulationChecker:  true,
			Parallel:              true,
			NThreads:              max(2, runtime.NumCPU()/2),
			NumericalTolerance:    DefaultTolerance,
			GCThreshold:           131072,
		},
		Application: ApplicationConfig{
			ConstructionScheme: SchemeProportional,
			SimulationScheme:   SchemeProportional,
			AlternatingScheme:  SchemeProportional,
			CostFunction:       DefaultCostFunction,
		},
		Simulation: SimulationConfig{
			MaxSims:           16,
			StateType:         StateComputationalBasis,
			FidelityThreshold: 1e-8,
		},
		Functionality: FunctionalityConfig{
			TraceThreshold: 1e-8,
		},
		AncillaMode: AncillaModeDiscard,
	}
}

// AnythingToExecute reports whether at least one checker is enabled.
func (c *Configuration) AnythingToExecute() bool {
	return c.Execution.RunConstructionChecker ||
		c.Execution.RunAlternatingChecker ||
		(c.Execution.RunSimulationChecker && c.Simulation.MaxSims > 0)
}

// OnlySimulationCheckerConfigured reports whether simulation is the only
// enabled checker.
func (c *Configuration) OnlySimulationCheckerConfigured() bool {
	return c.Execution.RunSimulationChecker &&
		!c.Execution.RunConstructionChecker &&
		!c.Execution.RunAlternatingChecker
}

// OnlySingleTask reports whether at most one checker instance would run,
// in which case the parallel flow has nothing to gain.
func (c *Configuration) OnlySingleTask() bool {
	n := 0
	if c.Execution.RunConstructionChecker {
		n++
	}
	if c.Execution.RunAlternatingChecker {
		n++
	}
	if c.Execution.RunSimulationChecker {
		n += c.Simulation.MaxSims
	}
	return n <= 1
}

// Validate rejects incoherent configurations.
func (c *Configuration) Validate() error {
	if !c.AnythingToExecute() {
		return fmt.Errorf("%w: no checker enabled", ErrInvalidCircuit)
	}
	if c.Execution.NumericalTolerance < 0 {
		return fmt.Errorf("%w: negative tolerance", ErrInvalidCircuit)
	}
	if c.Simulation.MaxSims < 0 {
		return fmt.Errorf("%w: negative simulation count", ErrInvalidCircuit)
	}
	return nil
}

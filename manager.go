package qcec

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/theapemachine/errnie"
	"golang.org/x/sync/errgroup"
)

// EquivalenceCheckingManager owns one checking task end to end: it
// preprocesses the two circuits into comparable form, dispatches the
// configured checker strategies and aggregates their outcomes into a
// single verdict.
type EquivalenceCheckingManager struct {
	task   CheckingTask
	qc1    *Circuit
	qc2    *Circuit
	config Configuration

	gen     *StateGenerator
	metrics *Metrics

	results Results
	ran     bool
}

// NewEquivalenceCheckingManager validates and preprocesses the circuits.
// The inputs are never mutated; the manager works on aligned copies.
func NewEquivalenceCheckingManager(qc1, qc2 *Circuit, config Configuration) (*EquivalenceCheckingManager, error) {
	started := time.Now()

	if qc1 == nil || qc2 == nil {
		return nil, fmt.Errorf("%w: nil circuit", ErrInvalidCircuit)
	}
	if err := qc1.Validate(); err != nil {
		return nil, err
	}
	if err := qc2.Validate(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if qc1.IsDynamic() || qc2.IsDynamic() {
		return nil, fmt.Errorf("%w: dynamic circuits with mid-circuit measurements or resets are not supported", ErrInvalidCircuit)
	}

	m := &EquivalenceCheckingManager{
		task:   newCheckingTask(qc1, qc2, config),
		config: config,
		gen:    NewStateGenerator(config.Simulation.Seed),
	}

	m.qc1 = optimizeCircuit(qc1.WithoutFinalMeasurements())
	m.qc2 = optimizeCircuit(qc2.WithoutFinalMeasurements())

	if !qc1.HasMeasurements() && !qc2.HasMeasurements() {
		errnie.Info("task %s - neither circuit measures; comparing full unitaries", m.task.ID)
	}

	if err := m.alignRegisters(); err != nil {
		return nil, err
	}
	m.stripIdleQubits()
	m.selectCheckers()
	m.capSimulations()

	m.results.TaskID = m.task.ID
	m.results.PreprocessingTime = time.Since(started)
	return m, nil
}

// SetMetrics attaches an optional metrics collector.
func (m *EquivalenceCheckingManager) SetMetrics(mx *Metrics) { m.metrics = mx }

// Results returns the outcome of the last Run.
func (m *EquivalenceCheckingManager) Results() Results { return m.results }

// alignRegisters pads the smaller register and marks the added qubits
// according to the ancilla mode.
func (m *EquivalenceCheckingManager) alignRegisters() error {
	n1, n2 := m.qc1.Qubits(), m.qc2.Qubits()
	if n1 == n2 {
		return nil
	}
	if m.config.AncillaMode == AncillaModeStrict {
		return fmt.Errorf("%w: register sizes differ (%d vs %d) in strict ancilla mode", ErrInvalidCircuit, n1, n2)
	}
	errnie.Info("task %s - register sizes differ (%d vs %d); padding with %s ancillas",
		m.task.ID, n1, n2, m.config.AncillaMode)

	n := max(n1, n2)
	m.qc1 = m.qc1.CopyWithQubits(n)
	m.qc2 = m.qc2.CopyWithQubits(n)
	for q := min(n1, n2); q < n; q++ {
		m.qc1.SetAncillary(q)
		m.qc2.SetAncillary(q)
		if m.config.AncillaMode == AncillaModeDiscard {
			m.qc1.SetGarbage(q)
			m.qc2.SetGarbage(q)
		}
	}
	return nil
}

// stripIdleQubits removes qubits no gate of either circuit touches. Both
// circuits shrink through the same index map, so alignment is preserved.
func (m *EquivalenceCheckingManager) stripIdleQubits() {
	n := m.qc1.Qubits()
	keep := make([]int, 0, n)
	for q := 0; q < n; q++ {
		if m.qc1.IsIdleQubit(q) && m.qc2.IsIdleQubit(q) {
			continue
		}
		keep = append(keep, q)
	}
	if len(keep) == n || len(keep) == 0 {
		return
	}

	remap := func(c *Circuit) *Circuit {
		out := NewCircuit(len(keep), c.Name)
		for i, q := range keep {
			if c.IsAncillary(q) {
				out.SetAncillary(i)
			}
			if c.IsGarbage(q) {
				out.SetGarbage(i)
			}
		}
		// no gate touches a dropped qubit, so indices only compact
		shift := make([]int, n)
		for i, q := range keep {
			shift[q] = i
		}
		for _, g := range c.Gates() {
			ng := Gate{Type: g.Type, Params: g.Params}
			for _, t := range g.Targets {
				ng.Targets = append(ng.Targets, shift[t])
			}
			for _, ctl := range g.Controls {
				ng.Controls = append(ng.Controls, Control{Qubit: shift[ctl.Qubit], Negative: ctl.Negative})
			}
			out.Append(ng)
		}
		return out
	}
	m.qc1 = remap(m.qc1)
	m.qc2 = remap(m.qc2)
}

// selectCheckers downgrades the alternating checker to construction when
// the circuits carry ancillas or garbage it cannot express.
func (m *EquivalenceCheckingManager) selectCheckers() {
	if m.config.Execution.RunAlternatingChecker && !canHandleAlternating(m.qc1, m.qc2) {
		errnie.Info("task %s - alternating checker cannot handle ancillas or garbage; falling back to construction", m.task.ID)
		m.config.Execution.RunAlternatingChecker = false
		m.config.Execution.RunConstructionChecker = true
	}
}

// capSimulations bounds the stimulus count by the size of the stimulus
// space, which for basis states is 2^(primary qubits).
func (m *EquivalenceCheckingManager) capSimulations() {
	if m.config.Simulation.StateType != StateComputationalBasis {
		return
	}
	primary := m.qc1.QubitsWithoutAncillae()
	if primary < 20 {
		space := 1 << primary
		if m.config.Simulation.MaxSims > space {
			m.config.Simulation.MaxSims = space
		}
	}
}

// Run executes the configured checkers and aggregates their outcomes. On
// timeout the partial results carry NoInformation and the returned error
// wraps ErrTimeout.
func (m *EquivalenceCheckingManager) Run(ctx context.Context) (Results, error) {
	if m.ran {
		return m.results, nil
	}
	m.ran = true
	started := time.Now()
	defer func() {
		m.results.CheckTime = time.Since(started)
		if m.metrics != nil {
			m.metrics.RecordCheck(m.results.Equivalence, m.results.CheckTime)
		}
	}()

	if m.config.Execution.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.Execution.Timeout)
		defer cancel()
	}

	if m.qc1.Empty() && m.qc2.Empty() {
		m.results.Equivalence = Equivalent
		m.results.Explanation = "both circuits are empty"
		return m.results, nil
	}

	if m.config.Execution.Parallel && !m.config.OnlySingleTask() {
		m.runParallel(ctx, m.checkers())
	} else {
		m.runSequential(ctx, m.checkers())
	}

	if m.results.Equivalence == NoInformation && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return m.results, fmt.Errorf("%w: no verdict within %s", ErrTimeout, m.config.Execution.Timeout)
	}
	return m.results, nil
}

// checkers instantiates the enabled strategy instances, cheapest evidence
// first: simulations, then the alternating product, then full
// construction.
func (m *EquivalenceCheckingManager) checkers() []equivalenceChecker {
	var cs []equivalenceChecker
	if m.config.Execution.RunSimulationChecker {
		for i := 0; i < m.config.Simulation.MaxSims; i++ {
			m.results.StartedSimulations++
			cs = append(cs, &simulationChecker{qc1: m.qc1, qc2: m.qc2, config: &m.config, gen: m.gen})
		}
	}
	if m.config.Execution.RunAlternatingChecker {
		cs = append(cs, &alternatingChecker{qc1: m.qc1, qc2: m.qc2, config: &m.config})
	}
	if m.config.Execution.RunConstructionChecker {
		cs = append(cs, &constructionChecker{qc1: m.qc1, qc2: m.qc2, config: &m.config})
	}
	return cs
}

// runSequential executes the checkers one after another, stopping at the
// first decisive outcome.
func (m *EquivalenceCheckingManager) runSequential(ctx context.Context, cs []equivalenceChecker) {
	agg := newAggregator(&m.results)
	for _, c := range cs {
		if agg.record(c.run(ctx)) {
			return
		}
	}
	agg.finish()
}

// runParallel fans the checkers out over a bounded worker group; the first
// decisive outcome cancels the rest, which stand down at their next gate
// boundary. Spawning happens off the main goroutine: g.Go blocks once the
// limit is reached, and the drain loop must keep running so a decisive
// outcome cancels queued checkers instead of letting them start.
func (m *EquivalenceCheckingManager) runParallel(ctx context.Context, cs []equivalenceChecker) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make(chan checkOutcome, len(cs))
	g := &errgroup.Group{}
	g.SetLimit(max(2, m.config.Execution.NThreads))

	go func() {
		for _, c := range cs {
			g.Go(func() error {
				outcomes <- c.run(runCtx)
				return nil
			})
		}
		_ = g.Wait()
		close(outcomes)
	}()

	agg := newAggregator(&m.results)
	decided := false
	for out := range outcomes {
		if agg.record(out) && !decided {
			decided = true
			cancel()
		}
	}
	if !decided {
		agg.finish()
	}
}

// aggregator folds checker outcomes into the task verdict. Functional
// proofs and any refutation are decisive; agreeing simulations only ever
// amount to probable equivalence.
type aggregator struct {
	results *Results
	simsOK  int
}

func newAggregator(r *Results) *aggregator {
	return &aggregator{results: r}
}

// record folds one outcome in and reports whether it decided the task.
func (a *aggregator) record(out checkOutcome) bool {
	a.results.CheckerResults = append(a.results.CheckerResults, out.CheckerResult)

	if out.Checker == "simulation" && out.State != StateInconclusive && out.State != StateTimedOut && out.State != StateFailed {
		a.results.PerformedSimulations++
	}

	switch out.State {
	case StateDisproved:
		a.results.Equivalence = NotEquivalent
		a.results.Explanation = out.Checker + " checker found a difference"
		if out.counterexample != nil {
			a.results.Counterexample = out.counterexample
		}
		return true
	case StateProved:
		if out.Checker == "simulation" {
			a.simsOK++
			return false
		}
		a.results.Equivalence = out.Equivalence
		a.results.Explanation = out.Checker + " checker proved equivalence"
		return true
	}
	return false
}

// finish settles the verdict when no checker was decisive.
func (a *aggregator) finish() {
	if a.simsOK > 0 {
		a.results.Equivalence = ProbablyEquivalent
		a.results.Explanation = fmt.Sprintf("%d simulations agreed", a.simsOK)
		return
	}
	a.results.Equivalence = NoInformation
}

// RunAsync runs the check in the background and delivers the results on
// the returned channel. A run-level failure surfaces in the Error field.
func (m *EquivalenceCheckingManager) RunAsync(ctx context.Context) <-chan Results {
	ch := make(chan Results, 1)
	go func() {
		res, err := m.Run(ctx)
		if err != nil {
			res.Error = err.Error()
		}
		ch <- res
	}()
	return ch
}

// Verify is the one-call interface: construct a manager, run it, return
// the aggregated results.
func Verify(ctx context.Context, qc1, qc2 *Circuit, config Configuration) (Results, error) {
	m, err := NewEquivalenceCheckingManager(qc1, qc2, config)
	if err != nil {
		return Results{}, err
	}
	return m.Run(ctx)
}

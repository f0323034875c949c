package qcec

import (
	"context"
	"time"

	"github.com/theapemachine/errnie"
)

// counterexampleLimit caps the register size for which a refuting stimulus
// is expanded into dense amplitude vectors.
const counterexampleLimit = 14

// simulationChecker draws one stimulus, propagates it through both
// circuits as vector diagrams and compares the results. A mismatch is a
// proof of non-equivalence; agreement is only evidence.
type simulationChecker struct {
	qc1, qc2 *Circuit
	config   *Configuration
	gen      *StateGenerator
}

func (c *simulationChecker) name() string { return "simulation" }

func (c *simulationChecker) run(ctx context.Context) checkOutcome {
	started := time.Now()
	p := newCheckerPackage(c.qc1.Qubits(), c.config)

	st, err := c.gen.next(c.config.Simulation.StateType, c.qc1.ancillary)
	if err != nil {
		return finishOutcome(c.name(), started, p, NoInformation, err)
	}

	verdict, err := c.check(ctx, p, st)
	out := finishOutcome(c.name(), started, p, verdict, err)
	if err != nil {
		return out
	}

	errnie.Info("simulation checker finished - verdict %s, runtime %s", verdict, time.Since(started))
	if verdict == NotEquivalent {
		out.counterexample = c.expandCounterexample(st)
	}
	return out
}

func (c *simulationChecker) check(ctx context.Context, p *Package, st stimulus) (EquivalenceCriterion, error) {
	v0, err := st.buildDiagram(p)
	if err != nil {
		return NoInformation, err
	}

	tm1 := newTaskManager(p, c.qc1, applyFromLeft)
	tm2 := newTaskManager(p, c.qc2, applyFromLeft)

	// lookahead needs a shared diagram; vector simulation runs two, so it
	// degrades to proportional pacing.
	schemeType := c.config.Application.SimulationScheme
	if schemeType == SchemeLookahead {
		schemeType = SchemeProportional
	}
	scheme, err := newApplicationScheme(schemeType, tm1, tm2, c.config.Application.CostFunction)
	if err != nil {
		return NoInformation, err
	}

	v1, v2 := v0, v0
	for !tm1.finished() || !tm2.finished() {
		n1, n2 := scheme.next()
		if v1, err = tm1.advance(ctx, v1, n1); err != nil {
			return NoInformation, err
		}
		if v2, err = tm2.advance(ctx, v2, n2); err != nil {
			return NoInformation, err
		}
		p.GarbageCollect(false, v1, v2)
	}

	garbage := unionMask(c.qc1.garbage, c.qc2.garbage)
	v1 = p.reduceGarbageVector(v1, garbage)
	v2 = p.reduceGarbageVector(v2, garbage)

	return p.vectorVerdict(v1, v2, c.config.Simulation.FidelityThreshold), nil
}

// expandCounterexample renders the refuting stimulus and both outputs
// densely for diagnostics. Registers beyond the expansion limit report
// the verdict without amplitudes.
func (c *simulationChecker) expandCounterexample(st stimulus) *Counterexample {
	n := c.qc1.Qubits()
	if n > counterexampleLimit {
		return &Counterexample{}
	}

	in, err := st.buildStateVector(n)
	if err != nil {
		return &Counterexample{}
	}
	out1, err := st.buildStateVector(n)
	if err == nil {
		err = out1.Run(c.qc1)
	}
	if err != nil {
		return &Counterexample{}
	}
	out2, err := st.buildStateVector(n)
	if err == nil {
		err = out2.Run(c.qc2)
	}
	if err != nil {
		return &Counterexample{}
	}

	// the dense outputs must disagree like the diagrams did; outputs that
	// coincide up to phase report the verdict without amplitudes
	if phaseAligned(out1, out2, c.config.Simulation.FidelityThreshold) {
		errnie.Info("counterexample expansion contradicts the diagram verdict; withholding amplitudes")
		return &Counterexample{}
	}

	return &Counterexample{
		Input:   in.Amplitudes(),
		Output1: out1.Amplitudes(),
		Output2: out2.Amplitudes(),
	}
}

func unionMask(a, b []bool) []bool {
	out := make([]bool, len(a))
	for i := range a {
		out[i] = a[i] || (i < len(b) && b[i])
	}
	return out
}

package qcec

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerVerdicts(t *testing.T) {
	Convey("Given the equivalence checking manager", t, func() {
		Convey("Every circuit is equivalent to itself", func() {
			c := NewCircuit(3, "mixed").H(0).CX(0, 1).T(1).RY(0.4, 2).CZ(1, 2).SX(0)
			res, err := Verify(context.Background(), c, c, DefaultConfiguration())
			So(err, ShouldBeNil)
			So(res.Equivalence, ShouldEqual, Equivalent)
			So(res.ConsideredEquivalent(), ShouldBeTrue)
			So(res.TaskID, ShouldNotBeEmpty)
		})

		Convey("A GHZ circuit matches its transpiled five-qubit form", func() {
			ghz := NewCircuit(3, "ghz").H(0).CX(0, 1).CX(0, 2)

			compiled := NewCircuit(5, "ghz_compiled").
				U2(0, math.Pi, 0).
				Append(Gate{Type: OpU3, Targets: []int{1}, Params: []float64{math.Pi, 0, math.Pi}, Controls: []Control{{Qubit: 0}}}).
				Append(Gate{Type: OpU3, Targets: []int{2}, Params: []float64{math.Pi, 0, math.Pi}, Controls: []Control{{Qubit: 0}}}).
				Measure(0).Measure(1).Measure(2)

			res, err := Verify(context.Background(), ghz, compiled, DefaultConfiguration())
			So(err, ShouldBeNil)
			So(res.Equivalence, ShouldEqual, Equivalent)
		})

		Convey("A dropped gate is caught", func() {
			c1 := NewCircuit(2, "").H(0).CX(0, 1).S(1)
			c2 := NewCircuit(2, "").H(0).CX(0, 1)
			res, err := Verify(context.Background(), c1, c2, DefaultConfiguration())
			So(err, ShouldBeNil)
			So(res.Equivalence, ShouldEqual, NotEquivalent)
			So(res.ConsideredEquivalent(), ShouldBeFalse)
			So(res.Explanation, ShouldNotBeEmpty)
		})

		Convey("A global phase difference is classified, not rejected", func() {
			cfg := DefaultConfiguration()
			cfg.Execution.Parallel = false
			cfg.Execution.RunSimulationChecker = false

			c1 := NewCircuit(1, "").X(0)
			c2 := NewCircuit(1, "").GPhase(math.Pi / 2).X(0)
			res, err := Verify(context.Background(), c1, c2, cfg)
			So(err, ShouldBeNil)
			So(res.Equivalence, ShouldEqual, EquivalentUpToGlobalPhase)
			So(res.ConsideredEquivalent(), ShouldBeTrue)
		})

		Convey("Both circuits empty short-circuits to equivalent", func() {
			res, err := Verify(context.Background(), NewCircuit(2, ""), NewCircuit(2, ""), DefaultConfiguration())
			So(err, ShouldBeNil)
			So(res.Equivalence, ShouldEqual, Equivalent)
			So(res.Explanation, ShouldContainSubstring, "empty")
		})
	})
}

func TestManagerSimulationOnly(t *testing.T) {
	Convey("Given a simulation-only configuration", t, func() {
		cfg := DefaultConfiguration()
		cfg.Execution.Parallel = false
		cfg.Execution.RunAlternatingChecker = false
		cfg.Execution.RunSimulationChecker = true
		cfg.Simulation.Seed = 11

		Convey("Agreement only ever yields probable equivalence", func() {
			c := NewCircuit(1, "").H(0)
			res, err := Verify(context.Background(), c, c, cfg)
			So(err, ShouldBeNil)
			So(res.Equivalence, ShouldEqual, ProbablyEquivalent)

			Convey("And the stimulus count is capped by the state space", func() {
				So(res.StartedSimulations, ShouldEqual, 2)
				So(res.PerformedSimulations, ShouldEqual, 2)
			})
		})

		Convey("A refuting stimulus is decisive and carries a counterexample", func() {
			c1 := NewCircuit(1, "").X(0)
			c2 := NewCircuit(1, "").Z(0)
			res, err := Verify(context.Background(), c1, c2, cfg)
			So(err, ShouldBeNil)
			So(res.Equivalence, ShouldEqual, NotEquivalent)
			So(res.Counterexample, ShouldNotBeNil)
			So(len(res.Counterexample.Input), ShouldEqual, 2)

			Convey("And replaying it independently separates the distributions", func() {
				replay := func(c *Circuit) *StateVector {
					sv := &StateVector{amps: append([]complex128(nil), res.Counterexample.Input...), nqubits: 1}
					So(sv.Run(c), ShouldBeNil)
					return sv
				}
				So(DistributionsDiffer(replay(c1), replay(c2), 1e-9), ShouldBeTrue)

				o1 := &StateVector{amps: res.Counterexample.Output1, nqubits: 1}
				o2 := &StateVector{amps: res.Counterexample.Output2, nqubits: 1}
				So(DistributionsDiffer(o1, o2, 1e-9), ShouldBeTrue)
			})
		})
	})
}

func TestManagerAncillaModes(t *testing.T) {
	Convey("Given circuits over differently sized registers", t, func() {
		small := NewCircuit(1, "").H(0).H(0)
		large := NewCircuit(2, "").H(0).H(0).X(1)

		Convey("Discard mode ignores what happens on the extra qubit", func() {
			cfg := DefaultConfiguration()
			cfg.Execution.Parallel = false
			cfg.AncillaMode = AncillaModeDiscard
			res, err := Verify(context.Background(), small, large, cfg)
			So(err, ShouldBeNil)
			So(res.ConsideredEquivalent(), ShouldBeTrue)
		})

		Convey("Zero-init mode sees the dirty ancilla", func() {
			cfg := DefaultConfiguration()
			cfg.Execution.Parallel = false
			cfg.AncillaMode = AncillaModeZeroInit
			res, err := Verify(context.Background(), small, large, cfg)
			So(err, ShouldBeNil)
			So(res.Equivalence, ShouldEqual, NotEquivalent)
		})

		Convey("Strict mode refuses the size mismatch outright", func() {
			cfg := DefaultConfiguration()
			cfg.AncillaMode = AncillaModeStrict
			_, err := NewEquivalenceCheckingManager(small, large, cfg)
			So(err, ShouldNotBeNil)
			So(errors.Is(err, ErrInvalidCircuit), ShouldBeTrue)
		})

		Convey("A clean ancilla is fine in zero-init mode", func() {
			clean := NewCircuit(2, "").H(0).H(0).X(1).X(1)
			cfg := DefaultConfiguration()
			cfg.Execution.Parallel = false
			cfg.AncillaMode = AncillaModeZeroInit
			res, err := Verify(context.Background(), small, clean, cfg)
			So(err, ShouldBeNil)
			So(res.ConsideredEquivalent(), ShouldBeTrue)
		})
	})
}

func TestManagerRejectsDynamicCircuits(t *testing.T) {
	Convey("Given a circuit with a mid-circuit measurement", t, func() {
		c1 := NewCircuit(1, "").H(0).Measure(0).X(0)
		c2 := NewCircuit(1, "").H(0)

		Convey("The manager refuses the task", func() {
			_, err := NewEquivalenceCheckingManager(c1, c2, DefaultConfiguration())
			So(err, ShouldNotBeNil)
			So(errors.Is(err, ErrInvalidCircuit), ShouldBeTrue)
		})
	})

	Convey("Given a configuration with nothing to execute", t, func() {
		cfg := DefaultConfiguration()
		cfg.Execution.RunAlternatingChecker = false
		cfg.Execution.RunSimulationChecker = false

		Convey("Validation rejects it", func() {
			_, err := NewEquivalenceCheckingManager(NewCircuit(1, ""), NewCircuit(1, ""), cfg)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestManagerTimeout(t *testing.T) {
	Convey("Given a task far beyond a millisecond budget", t, func() {
		c1 := NewCircuit(40, "deep")
		c2 := NewCircuit(40, "deep")
		for layer := 0; layer < 30; layer++ {
			for q := 0; q < 40; q++ {
				c1.H(q)
				c2.H(q)
			}
			for q := 0; q < 39; q++ {
				c1.CX(q, q+1)
				c2.CX(q, q+1)
			}
			c1.T(layer % 40)
			c2.T(layer % 40)
		}

		cfg := DefaultConfiguration()
		cfg.Execution.RunSimulationChecker = false
		cfg.Execution.RunAlternatingChecker = false
		cfg.Execution.RunConstructionChecker = true
		cfg.Execution.Timeout = time.Millisecond

		Convey("The run returns promptly with a timeout", func() {
			start := time.Now()
			res, err := Verify(context.Background(), c1, c2, cfg)
			So(time.Since(start), ShouldBeLessThan, 30*time.Second)
			So(err, ShouldNotBeNil)
			So(errors.Is(err, ErrTimeout), ShouldBeTrue)
			So(res.Equivalence, ShouldEqual, NoInformation)

			Convey("And the checkers report timed-out states", func() {
				for _, cr := range res.CheckerResults {
					So(cr.State, ShouldEqual, StateTimedOut)
				}
			})
		})
	})
}

func TestManagerResultsAndMetrics(t *testing.T) {
	Convey("Given a metrics collector shared across tasks", t, func() {
		mx := NewMetrics()
		cfg := DefaultConfiguration()
		cfg.Execution.Parallel = false

		run := func(c1, c2 *Circuit) Results {
			m, err := NewEquivalenceCheckingManager(c1, c2, cfg)
			So(err, ShouldBeNil)
			m.SetMetrics(mx)
			res, err := m.Run(context.Background())
			So(err, ShouldBeNil)
			return res
		}

		eq := run(NewCircuit(1, "").H(0), NewCircuit(1, "").H(0))
		neq := run(NewCircuit(1, "").X(0), NewCircuit(1, "").Z(0))

		Convey("The verdicts land in the right buckets", func() {
			snap := mx.Snapshot()
			So(snap.ChecksCompleted, ShouldEqual, 2)
			So(snap.EquivalentCount, ShouldEqual, 1)
			So(snap.NotEquivalentCount, ShouldEqual, 1)
			So(snap.TotalCheckTime, ShouldBeGreaterThan, 0)
		})

		Convey("Results serialize to JSON with string verdicts", func() {
			So(eq.JSON(), ShouldContainSubstring, `"equivalence": "equivalent"`)
			So(neq.JSON(), ShouldContainSubstring, `"not_equivalent"`)
			So(strings.Contains(eq.JSON(), "task_id"), ShouldBeTrue)
		})

		Convey("Checker results carry runtimes and states", func() {
			So(len(eq.CheckerResults), ShouldBeGreaterThan, 0)
			for _, cr := range eq.CheckerResults {
				So(cr.Checker, ShouldNotBeEmpty)
				So(cr.State, ShouldNotEqual, StateIdle)
			}
		})
	})
}

// stallingChecker parks until its context is canceled, standing in for an
// expensive strategy.
type stallingChecker struct{}

func (stallingChecker) name() string { return "stalling" }

func (stallingChecker) run(ctx context.Context) checkOutcome {
	<-ctx.Done()
	return checkOutcome{CheckerResult: CheckerResult{Checker: "stalling", State: StateInconclusive, Equivalence: NoInformation}}
}

type refutingChecker struct{}

func (refutingChecker) name() string { return "refuting" }

func (refutingChecker) run(context.Context) checkOutcome {
	return checkOutcome{CheckerResult: CheckerResult{Checker: "refuting", State: StateDisproved, Equivalence: NotEquivalent}}
}

func TestParallelFirstDecisiveWins(t *testing.T) {
	Convey("Given more checkers than the worker limit", t, func() {
		cfg := DefaultConfiguration()
		cfg.Execution.NThreads = 2
		c := NewCircuit(1, "").H(0)
		m, err := NewEquivalenceCheckingManager(c, c, cfg)
		So(err, ShouldBeNil)

		cs := []equivalenceChecker{
			refutingChecker{},
			stallingChecker{}, stallingChecker{}, stallingChecker{}, stallingChecker{},
		}
		m.runParallel(context.Background(), cs)

		Convey("The refutation cancels queued and running checkers", func() {
			res := m.Results()
			So(res.Equivalence, ShouldEqual, NotEquivalent)
			So(len(res.CheckerResults), ShouldEqual, 5)

			stalled := 0
			for _, cr := range res.CheckerResults {
				if cr.Checker == "stalling" {
					So(cr.State, ShouldEqual, StateInconclusive)
					stalled++
				}
			}
			So(stalled, ShouldEqual, 4)
		})
	})
}

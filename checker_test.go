package qcec

import (
	"context"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func testConfig() Configuration {
	cfg := DefaultConfiguration()
	cfg.Execution.Parallel = false
	return cfg
}

func TestConstructionChecker(t *testing.T) {
	Convey("Given the construction checker", t, func() {
		cfg := testConfig()

		Convey("Identical circuits are proved equivalent", func() {
			c := NewCircuit(2, "").H(0).CX(0, 1).T(1)
			out := (&constructionChecker{qc1: c, qc2: c, config: &cfg}).run(context.Background())
			So(out.State, ShouldEqual, StateProved)
			So(out.Equivalence, ShouldEqual, Equivalent)
		})

		Convey("Different unitaries are disproved", func() {
			c1 := NewCircuit(1, "").X(0)
			c2 := NewCircuit(1, "").Z(0)
			out := (&constructionChecker{qc1: c1, qc2: c2, config: &cfg}).run(context.Background())
			So(out.State, ShouldEqual, StateDisproved)
			So(out.Equivalence, ShouldEqual, NotEquivalent)
		})

		Convey("Every pacing scheme reaches the same verdict", func() {
			c1 := NewCircuit(2, "").H(0).CX(0, 1).CX(0, 1).H(0)
			c2 := NewCircuit(2, "")
			for _, scheme := range []ApplicationSchemeType{
				SchemeSequential, SchemeOneToOne, SchemeProportional, SchemeGateCost, SchemeLookahead,
			} {
				cfg := testConfig()
				cfg.Application.ConstructionScheme = scheme
				out := (&constructionChecker{qc1: c1, qc2: c2, config: &cfg}).run(context.Background())
				So(out.State, ShouldEqual, StateProved)
				So(out.Equivalence, ShouldEqual, Equivalent)
			}
		})

		Convey("An ancilla left dirty shows up unless its output is garbage", func() {
			clean := NewCircuit(2, "").H(0).H(0)
			dirty := NewCircuit(2, "").H(0).H(0).X(1)
			for _, c := range []*Circuit{clean, dirty} {
				c.SetAncillary(1)
			}

			out := (&constructionChecker{qc1: clean, qc2: dirty, config: &cfg}).run(context.Background())
			So(out.Equivalence, ShouldEqual, NotEquivalent)

			Convey("Marking the output garbage makes them agree", func() {
				clean.SetGarbage(1)
				dirty.SetGarbage(1)
				out := (&constructionChecker{qc1: clean, qc2: dirty, config: &cfg}).run(context.Background())
				So(out.Equivalence, ShouldEqual, Equivalent)
			})
		})

		Convey("A node limit turns the run inconclusive", func() {
			cfg := testConfig()
			cfg.Execution.NodeLimit = 2
			c := NewCircuit(4, "").H(0).CX(0, 1).CX(1, 2).CX(2, 3).T(3)
			out := (&constructionChecker{qc1: c, qc2: c, config: &cfg}).run(context.Background())
			So(out.State, ShouldEqual, StateInconclusive)
			So(out.Equivalence, ShouldEqual, NoInformation)
		})
	})
}

func TestAlternatingChecker(t *testing.T) {
	Convey("Given the alternating checker", t, func() {
		cfg := testConfig()

		Convey("A circuit against its recompilation stays near the identity", func() {
			c1 := NewCircuit(2, "").H(0).CX(0, 1)
			c2 := NewCircuit(2, "").
				U2(0, 3.141592653589793, 0).
				Append(Gate{Type: OpU3, Targets: []int{1}, Params: []float64{3.141592653589793, 0, 3.141592653589793}, Controls: []Control{{Qubit: 0}}})
			out := (&alternatingChecker{qc1: c1, qc2: c2, config: &cfg}).run(context.Background())
			So(out.State, ShouldEqual, StateProved)
			So(out.Equivalence, ShouldEqual, Equivalent)
		})

		Convey("A global phase is recognized as such", func() {
			c1 := NewCircuit(1, "").X(0)
			c2 := NewCircuit(1, "").GPhase(0.5).X(0)
			out := (&alternatingChecker{qc1: c1, qc2: c2, config: &cfg}).run(context.Background())
			So(out.State, ShouldEqual, StateProved)
			So(out.Equivalence, ShouldEqual, EquivalentUpToGlobalPhase)
		})

		Convey("A stray gate is disproved", func() {
			c1 := NewCircuit(2, "").H(0).CX(0, 1)
			c2 := NewCircuit(2, "").H(0).CX(0, 1).S(1)
			out := (&alternatingChecker{qc1: c1, qc2: c2, config: &cfg}).run(context.Background())
			So(out.State, ShouldEqual, StateDisproved)
		})

		Convey("The lookahead scheme agrees with the paced schemes", func() {
			cfg := testConfig()
			cfg.Application.AlternatingScheme = SchemeLookahead
			c1 := NewCircuit(3, "").H(0).CX(0, 1).CX(1, 2).T(2)
			out := (&alternatingChecker{qc1: c1, qc2: c1, config: &cfg}).run(context.Background())
			So(out.State, ShouldEqual, StateProved)
			So(out.Equivalence, ShouldEqual, Equivalent)
		})

		Convey("Garbage outputs disqualify the strategy", func() {
			c1 := NewCircuit(2, "").H(0)
			c2 := NewCircuit(2, "").H(0)
			c2.SetGarbage(1)
			So(canHandleAlternating(c1, c2), ShouldBeFalse)
			So(canHandleAlternating(c1, NewCircuit(2, "")), ShouldBeTrue)
		})
	})
}

func TestSimulationChecker(t *testing.T) {
	Convey("Given the simulation checker", t, func() {
		cfg := testConfig()

		Convey("X versus Z is refuted by any basis stimulus", func() {
			c1 := NewCircuit(1, "").X(0)
			c2 := NewCircuit(1, "").Z(0)
			out := (&simulationChecker{qc1: c1, qc2: c2, config: &cfg, gen: NewStateGenerator(1)}).run(context.Background())
			So(out.State, ShouldEqual, StateDisproved)
			So(out.Equivalence, ShouldEqual, NotEquivalent)

			Convey("And the counterexample is expanded densely", func() {
				So(out.counterexample, ShouldNotBeNil)
				So(len(out.counterexample.Input), ShouldEqual, 2)
				So(len(out.counterexample.Output1), ShouldEqual, 2)
				So(len(out.counterexample.Output2), ShouldEqual, 2)
			})
		})

		Convey("Outputs that differ only by a phase withhold the amplitudes", func() {
			c1 := NewCircuit(1, "").X(0)
			c2 := NewCircuit(1, "").Append(Gate{Type: OpGPhase, Params: []float64{math.Pi}}).X(0)
			sc := &simulationChecker{qc1: c1, qc2: c2, config: &cfg, gen: NewStateGenerator(3)}
			ce := sc.expandCounterexample(stimulus{typ: StateComputationalBasis, bits: []bool{false}})
			So(ce.Input, ShouldBeEmpty)
			So(ce.Output1, ShouldBeEmpty)
			So(ce.Output2, ShouldBeEmpty)
		})

		Convey("Identical circuits agree on every stimulus type", func() {
			c := NewCircuit(2, "").H(0).CX(0, 1).RZ(0.3, 1)
			for _, typ := range []StateType{StateComputationalBasis, StateRandom1QBasis, StateStabilizer} {
				cfg := testConfig()
				cfg.Simulation.StateType = typ
				out := (&simulationChecker{qc1: c, qc2: c, config: &cfg, gen: NewStateGenerator(5)}).run(context.Background())
				So(out.State, ShouldEqual, StateProved)
				So(out.Equivalence, ShouldEqual, Equivalent)
			}
		})

		Convey("A canceled context stands the checker down", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			c := NewCircuit(1, "").H(0)
			out := (&simulationChecker{qc1: c, qc2: c, config: &cfg, gen: NewStateGenerator(3)}).run(ctx)
			So(out.State, ShouldEqual, StateInconclusive)
		})
	})
}

package qcec

import (
	"math"
	"math/cmplx"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestStateGeneration(t *testing.T) {
	Convey("Given a seeded state generator", t, func() {
		ancillary := []bool{false, false, false}

		Convey("Basis stimuli never repeat while the space lasts", func() {
			sg := NewStateGenerator(42)
			seen := make(map[int]bool)
			for i := 0; i < 8; i++ {
				st, err := sg.next(StateComputationalBasis, ancillary)
				So(err, ShouldBeNil)
				index := 0
				for q, b := range st.bits {
					if b {
						index |= 1 << q
					}
				}
				So(seen[index], ShouldBeFalse)
				seen[index] = true
			}
		})

		Convey("The same seed reproduces the same stream", func() {
			a := NewStateGenerator(7)
			b := NewStateGenerator(7)
			for i := 0; i < 4; i++ {
				sa, err := a.next(StateRandom1QBasis, ancillary)
				So(err, ShouldBeNil)
				sb, err := b.next(StateRandom1QBasis, ancillary)
				So(err, ShouldBeNil)
				So(sa.oneQ, ShouldResemble, sb.oneQ)
			}
		})

		Convey("Ancillary qubits always start in |0>", func() {
			sg := NewStateGenerator(13)
			anc := []bool{false, true, false}
			for i := 0; i < 6; i++ {
				st, err := sg.next(StateRandom1QBasis, anc)
				So(err, ShouldBeNil)
				So(st.oneQ[1], ShouldEqual, 0)
			}
		})
	})
}

func TestStimulusMaterialization(t *testing.T) {
	Convey("Given stimuli of every type", t, func() {
		sg := NewStateGenerator(99)
		ancillary := []bool{false, false, false}

		for _, typ := range []StateType{StateComputationalBasis, StateRandom1QBasis, StateStabilizer} {
			st, err := sg.next(typ, ancillary)
			So(err, ShouldBeNil)

			Convey("The diagram and dense forms of a "+typ.String()+" stimulus agree", func() {
				p := NewPackage(3, 0)
				e, err := st.buildDiagram(p)
				So(err, ShouldBeNil)
				dd := p.VectorFromDiagram(e)

				dense, err := st.buildStateVector(3)
				So(err, ShouldBeNil)
				amps := dense.Amplitudes()

				norm := 0.0
				for i := range amps {
					So(cmplx.Abs(dd[i]-amps[i]), ShouldBeLessThan, 1e-9)
					norm += real(amps[i])*real(amps[i]) + imag(amps[i])*imag(amps[i])
				}
				So(math.Abs(norm-1), ShouldBeLessThan, 1e-9)
			})
		}

		Convey("Stabilizer preparations only touch primary qubits", func() {
			anc := []bool{false, true, false}
			st, err := sg.next(StateStabilizer, anc)
			So(err, ShouldBeNil)
			So(st.clifford.IsIdleQubit(1), ShouldBeTrue)
		})
	})
}

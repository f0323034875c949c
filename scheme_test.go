package qcec

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func schemeFixture(n1, n2 int) (*taskManager, *taskManager) {
	p := NewPackage(1, 0)
	c1 := NewCircuit(1, "a")
	for i := 0; i < n1; i++ {
		c1.H(0)
	}
	c2 := NewCircuit(1, "b")
	for i := 0; i < n2; i++ {
		c2.H(0)
	}
	return newTaskManager(p, c1, applyFromLeft), newTaskManager(p, c2, applyFromRight)
}

func TestApplicationSchemes(t *testing.T) {
	Convey("Given two circuits of different length", t, func() {
		t1, t2 := schemeFixture(6, 2)

		Convey("Sequential applies everything at once", func() {
			s, err := newApplicationScheme(SchemeSequential, t1, t2, nil)
			So(err, ShouldBeNil)
			n1, n2 := s.next()
			So(n1, ShouldEqual, 6)
			So(n2, ShouldEqual, 2)
		})

		Convey("One-to-one strictly interleaves", func() {
			s, err := newApplicationScheme(SchemeOneToOne, t1, t2, nil)
			So(err, ShouldBeNil)
			n1, n2 := s.next()
			So(n1, ShouldEqual, 1)
			So(n2, ShouldEqual, 1)
		})

		Convey("Proportional paces the longer circuit", func() {
			s, err := newApplicationScheme(SchemeProportional, t1, t2, nil)
			So(err, ShouldBeNil)
			n1, n2 := s.next()
			So(n1, ShouldEqual, 3)
			So(n2, ShouldEqual, 1)
		})

		Convey("Lookahead is not a pacing scheme", func() {
			_, err := newApplicationScheme(SchemeLookahead, t1, t2, nil)
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given a gate-cost scheme over a controlled frontier gate", t, func() {
		p := NewPackage(3, 0)
		c1 := NewCircuit(3, "").CCX(0, 1, 2).H(0)
		c2 := NewCircuit(3, "").H(0)
		t1 := newTaskManager(p, c1, applyFromLeft)
		t2 := newTaskManager(p, c2, applyFromLeft)

		s, err := newApplicationScheme(SchemeGateCost, t1, t2, DefaultCostFunction)
		So(err, ShouldBeNil)

		Convey("The doubly-controlled X charges five gates", func() {
			n1, n2 := s.next()
			So(n1, ShouldEqual, 1)
			So(n2, ShouldEqual, 5)
		})
	})
}

func TestTaskManagerAdvance(t *testing.T) {
	Convey("Given a task manager over a three-gate circuit", t, func() {
		p := NewPackage(1, 0)
		c := NewCircuit(1, "").H(0).X(0).H(0).Measure(0)
		tm := newTaskManager(p, c, applyFromLeft)

		Convey("Measurements are not part of the walk", func() {
			So(tm.remaining(), ShouldEqual, 3)
		})

		Convey("Advancing applies gates in order", func() {
			e, err := tm.advance(context.Background(), p.MakeZeroState(), 3)
			So(err, ShouldBeNil)
			So(tm.finished(), ShouldBeTrue)

			// H X H |0> = Z |0> = |0>
			So(p.Equals(e, p.MakeZeroState()), ShouldBeTrue)
		})
	})
}

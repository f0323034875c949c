package qcec

import "fmt"

// applicationScheme decides, per round, how many gates each task manager
// applies. Schemes are stateless apart from the managers they observe; the
// lookahead scheme is handled directly by the checkers because it needs to
// inspect candidate diagrams, not just gate counts.
type applicationScheme interface {
	next() (int, int)
}

// sequentialScheme exhausts the first circuit before touching the second.
type sequentialScheme struct {
	t1, t2 *taskManager
}

func (s *sequentialScheme) next() (int, int) {
	return s.t1.remaining(), s.t2.remaining()
}

// oneToOneScheme strictly interleaves single gates.
type oneToOneScheme struct{}

func (oneToOneScheme) next() (int, int) { return 1, 1 }

// proportionalScheme paces the larger circuit so both finish together.
type proportionalScheme struct {
	first, second int
}

func newProportionalScheme(t1, t2 *taskManager) *proportionalScheme {
	n1, n2 := t1.remaining(), t2.remaining()
	if n1 == 0 || n2 == 0 {
		return &proportionalScheme{first: max(n1, 1), second: max(n2, 1)}
	}
	if n1 >= n2 {
		return &proportionalScheme{first: (n1 + n2 - 1) / n2, second: 1}
	}
	return &proportionalScheme{first: 1, second: (n2 + n1 - 1) / n1}
}

func (s *proportionalScheme) next() (int, int) { return s.first, s.second }

// gateCostScheme advances one gate of the first circuit and charges the
// second circuit its cost in gates, so a compiled circuit keeps pace with
// the original it was expanded from.
type gateCostScheme struct {
	t1   *taskManager
	cost CostFunction
}

func (s *gateCostScheme) next() (int, int) {
	if s.t1.finished() {
		return 0, 1
	}
	g := s.t1.peek()
	return 1, s.cost(g.Type, len(g.Controls))
}

func newApplicationScheme(typ ApplicationSchemeType, t1, t2 *taskManager, cost CostFunction) (applicationScheme, error) {
	switch typ {
	case SchemeSequential:
		return &sequentialScheme{t1: t1, t2: t2}, nil
	case SchemeOneToOne:
		return oneToOneScheme{}, nil
	case SchemeProportional:
		return newProportionalScheme(t1, t2), nil
	case SchemeGateCost:
		if cost == nil {
			cost = DefaultCostFunction
		}
		return &gateCostScheme{t1: t1, cost: cost}, nil
	}
	return nil, fmt.Errorf("%w: unsupported application scheme %s", ErrInvalidCircuit, typ)
}

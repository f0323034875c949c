package qcec

import (
	"context"
	"time"

	"github.com/theapemachine/errnie"
)

// constructionChecker builds both operator diagrams independently and
// compares them. It is the only strategy that tolerates garbage outputs,
// because both finished diagrams can be reduced before the comparison.
type constructionChecker struct {
	qc1, qc2 *Circuit
	config   *Configuration
}

func (c *constructionChecker) name() string { return "construction" }

func (c *constructionChecker) run(ctx context.Context) checkOutcome {
	started := time.Now()
	p := newCheckerPackage(c.qc1.Qubits(), c.config)

	verdict, err := c.check(ctx, p)
	if err == nil {
		errnie.Info("construction checker finished - verdict %s, runtime %s", verdict, time.Since(started))
	}
	return finishOutcome(c.name(), started, p, verdict, err)
}

func (c *constructionChecker) check(ctx context.Context, p *Package) (EquivalenceCriterion, error) {
	tm1 := newTaskManager(p, c.qc1, applyFromLeft)
	tm2 := newTaskManager(p, c.qc2, applyFromLeft)

	e1 := p.MakeIdentity()
	e2 := p.MakeIdentity()

	var err error
	if c.config.Application.ConstructionScheme == SchemeLookahead {
		e1, e2, err = c.lookahead(ctx, p, tm1, tm2, e1, e2)
	} else {
		e1, e2, err = c.scheduled(ctx, p, tm1, tm2, e1, e2)
	}
	if err != nil {
		return NoInformation, err
	}

	e1 = p.reduceAncillae(e1, c.qc1.ancillary)
	e2 = p.reduceAncillae(e2, c.qc2.ancillary)
	e1 = p.reduceGarbage(e1, c.qc1.garbage)
	e2 = p.reduceGarbage(e2, c.qc2.garbage)

	return p.matrixVerdict(e1, e2, c.config.Functionality.TraceThreshold), nil
}

func (c *constructionChecker) scheduled(ctx context.Context, p *Package, tm1, tm2 *taskManager, e1, e2 Edge) (Edge, Edge, error) {
	scheme, err := newApplicationScheme(c.config.Application.ConstructionScheme, tm1, tm2, c.config.Application.CostFunction)
	if err != nil {
		return e1, e2, err
	}
	for !tm1.finished() || !tm2.finished() {
		n1, n2 := scheme.next()
		if e1, err = tm1.advance(ctx, e1, n1); err != nil {
			return e1, e2, err
		}
		if e2, err = tm2.advance(ctx, e2, n2); err != nil {
			return e1, e2, err
		}
		p.GarbageCollect(false, e1, e2)
	}
	return e1, e2, nil
}

// lookahead tentatively applies the frontier gate of each circuit and
// commits whichever keeps the combined diagrams smaller. Ties go to the
// circuit with more gates left, so neither side starves.
func (c *constructionChecker) lookahead(ctx context.Context, p *Package, tm1, tm2 *taskManager, e1, e2 Edge) (Edge, Edge, error) {
	for !tm1.finished() || !tm2.finished() {
		if err := ctx.Err(); err != nil {
			return e1, e2, err
		}
		if err := p.CheckLimit(); err != nil {
			return e1, e2, err
		}

		var err error
		switch {
		case tm2.finished():
			e1, err = tm1.applyNext(e1)
		case tm1.finished():
			e2, err = tm2.applyNext(e2)
		default:
			var cand1, cand2 Edge
			if cand1, err = p.ApplyGate(e1, tm1.peek()); err != nil {
				return e1, e2, err
			}
			if cand2, err = p.ApplyGate(e2, tm2.peek()); err != nil {
				return e1, e2, err
			}
			size1 := p.Size(cand1) + p.Size(e2)
			size2 := p.Size(e1) + p.Size(cand2)
			if size1 < size2 || (size1 == size2 && tm1.remaining() >= tm2.remaining()) {
				e1 = cand1
				tm1.pos++
			} else {
				e2 = cand2
				tm2.pos++
			}
		}
		if err != nil {
			return e1, e2, err
		}
		p.GarbageCollect(false, e1, e2)
	}
	return e1, e2, nil
}

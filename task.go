package qcec

import (
	"time"

	"github.com/google/uuid"
)

// CheckingTask identifies one submitted equivalence check. The ID tags log
// lines and results so concurrent tasks can be told apart.
type CheckingTask struct {
	ID        string
	Circuit1  *Circuit
	Circuit2  *Circuit
	Config    Configuration
	CreatedAt time.Time
}

func newCheckingTask(qc1, qc2 *Circuit, cfg Configuration) CheckingTask {
	return CheckingTask{
		ID:        uuid.NewString(),
		Circuit1:  qc1,
		Circuit2:  qc2,
		Config:    cfg,
		CreatedAt: time.Now(),
	}
}

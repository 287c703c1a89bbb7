package scheduler

import (
	"context"

	"github.com/corefuzz/engine/pkg/log"
	"github.com/corefuzz/engine/pkg/relation"
	"github.com/corefuzz/engine/prog"
)

// connExecutor adapts the scheduler's VM pool + dialer into the narrow
// relation.Executor interface, leasing one scratch VM per call.
type connExecutor struct {
	cfg Config
}

func (e connExecutor) ExecuteForCoverage(p *prog.Prog) ([][]uint32, error) {
	lease, err := e.cfg.Pool.Acquire(context.Background())
	if err != nil {
		return nil, err
	}
	defer e.cfg.Pool.Release(lease)
	conn, err := e.cfg.Dial(lease)
	if err != nil {
		return nil, err
	}
	res, err := conn.Execute(p, e.cfg.ExecFlags)
	if err != nil {
		return nil, err
	}
	cov := make([][]uint32, len(res.Calls))
	for i, c := range res.Calls {
		cov[i] = c.Cov
	}
	return cov, nil
}

// learnRelations is the §4.5 background task launched on promotion: it
// re-executes the minimized Prog once to capture a fresh per-call
// coverage baseline, then runs the dynamic learner against it.
func learnRelations(cfg Config, p *prog.Prog) {
	if cfg.Relations == nil || len(p.Calls) < 2 {
		return
	}
	exec := connExecutor{cfg: cfg}
	baseline, err := exec.ExecuteForCoverage(p)
	if err != nil {
		log.Logf(1, "relation learner: baseline execution failed: %v", err)
		return
	}
	if err := relation.Learn(cfg.Relations, exec, p, baseline); err != nil {
		log.Logf(1, "relation learner: %v", err)
	}
}

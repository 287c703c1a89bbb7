package relation

import (
	"github.com/corefuzz/engine/prog"
)

// Executor is the minimal capability the dynamic learner needs from
// the scheduler: execute a Prog and get back each call's coverage.
// Kept narrow and defined here (rather than depending on pkg/executor
// directly) so relation never imports the wire-protocol package,
// avoiding an import cycle with pkg/scheduler, which depends on both.
type Executor interface {
	ExecuteForCoverage(p *prog.Prog) ([][]uint32, error)
}

// Learn runs the dynamic discovery pass (§4.5) against a minimized,
// interesting Prog of length >= 2: for each call, re-execute the
// program with that call removed and see whether the coverage of the
// call immediately after it changed. A changed coverage set records
// an edge syscall(removed) -> syscall(next) in t.
//
// Learn is safe to call concurrently on disjoint Progs (each call
// clones p and only ever touches its own clone), but a single
// invocation runs its re-executions sequentially, per §4.5 step 2.
func Learn(t *Table, exec Executor, p *prog.Prog, baseline [][]uint32) error {
	if len(p.Calls) < 2 {
		return nil
	}
	for i := 0; i < len(p.Calls)-1; i++ {
		removed := p.Clone()
		from := removed.Calls[i].Meta.Name
		to := removed.Calls[i+1].Meta.Name
		removed.RemoveCall(i)

		cov, err := exec.ExecuteForCoverage(removed)
		if err != nil {
			continue
		}
		// after dropping call i, the call that was i+1 is now at i.
		if i >= len(cov) || i+1 > len(baseline) {
			continue
		}
		if coverageChanged(baseline[i+1], cov[i]) {
			t.Add(from, to)
		}
	}
	return nil
}

func coverageChanged(before, after []uint32) bool {
	if len(before) != len(after) {
		return true
	}
	set := make(map[uint32]bool, len(before))
	for _, pc := range before {
		set[pc] = true
	}
	for _, pc := range after {
		if !set[pc] {
			return true
		}
	}
	return false
}

package scheduler

import (
	"context"

	"github.com/corefuzz/engine/pkg/signal"
	"github.com/corefuzz/engine/prog"
)

// crashPrio is the priority FromRaw assigns to coverage observed from
// a program that is about to be promoted; every signal element
// contributed by the initial promoting execution shares this value,
// matching teacher's convention of recording a flat priority per
// batch of freshly observed PCs.
const crashPrio = 1

func signalFromCover(cov []uint32) signal.Signal {
	return signal.FromRaw(cov, crashPrio)
}

// minimizeForCoverage minimizes p against the oracle "still lights at
// least one PC the pre-promotion corpus snapshot didn't have" (§4.6).
// It leases one scratch VM for the whole minimization run rather than
// per candidate, since the predicate is evaluated many times in a
// tight loop.
func minimizeForCoverage(cfg Config, p *prog.Prog, callIdx int, newCov []uint32) (*prog.Prog, int) {
	var fresh []uint32
	for _, pc := range newCov {
		if cfg.Corpus.HasNewCover([]uint32{pc}) {
			fresh = append(fresh, pc)
		}
	}
	lease, err := cfg.Pool.Acquire(context.Background())
	if err != nil {
		return p, callIdx
	}
	defer cfg.Pool.Release(lease)
	conn, err := cfg.Dial(lease)
	if err != nil {
		return p, callIdx
	}

	pred := func(cand *prog.Prog, idx int) bool {
		res, err := conn.Execute(cand, cfg.ExecFlags)
		if err != nil || idx >= len(res.Calls) {
			return false
		}
		return stillCovers(res.Calls[idx].Cov, fresh)
	}
	return prog.Minimize(p, callIdx, pred)
}

func stillCovers(have, want []uint32) bool {
	set := make(map[uint32]bool, len(have))
	for _, pc := range have {
		set[pc] = true
	}
	for _, pc := range want {
		if set[pc] {
			return true
		}
	}
	return false
}

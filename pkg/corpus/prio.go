// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package corpus

import (
	"math/rand"

	"github.com/corefuzz/engine/pkg/signal"
	"github.com/corefuzz/engine/prog"
)

// entry is one weighted corpus member. Its selection weight is
// recomputed on every choose call rather than cached, since the
// denominator changes each time the entry itself is picked.
type entry struct {
	prog          *prog.Prog
	uniqueBits    int64
	timesSelected int64
}

// weighted is the corpus-selection list §4.6 requires: a Prog is
// weighted by (1 + its unique coverage bits) / (1 + times it has
// already been picked as a mutation seed), so a Prog that contributes
// a lot of coverage but keeps getting chosen de-weights itself in
// favor of less-picked members (the anti-starvation term).
type weighted struct {
	entries []*entry
}

// weightOf implements §4.6's ratio directly: a freshly-admitted Prog
// with lots of unique coverage starts out heavily favored, but every
// selection raises its own denominator, so it gradually cedes ground
// to entries that haven't been picked as often.
func weightOf(e *entry) float64 {
	return float64(1+e.uniqueBits) / float64(1+e.timesSelected)
}

func (w *weighted) choose(r *rand.Rand) *prog.Prog {
	if len(w.entries) == 0 {
		return nil
	}
	weights := make([]float64, len(w.entries))
	var sum float64
	for i, e := range w.entries {
		weights[i] = weightOf(e)
		sum += weights[i]
	}
	x := r.Float64() * sum
	for i, wt := range weights {
		if x < wt {
			w.entries[i].timesSelected++
			return w.entries[i].prog
		}
		x -= wt
	}
	last := w.entries[len(w.entries)-1]
	last.timesSelected++
	return last.prog
}

func (w *weighted) save(p *prog.Prog, sig signal.Signal) {
	w.entries = append(w.entries, &entry{prog: p, uniqueBits: int64(len(sig))})
}

func (w *weighted) replace(progs []*prog.Prog, sigs []signal.Signal) {
	w.entries = nil
	for i, p := range progs {
		w.save(p, sigs[i])
	}
}

func (w *weighted) programs() []*prog.Prog {
	out := make([]*prog.Prog, len(w.entries))
	for i, e := range w.entries {
		out[i] = e.prog
	}
	return out
}

// ChooseProgram picks a random corpus member weighted by (1 + unique
// coverage bits) / (1 + prior selections), for the mutator to use as
// a seed (§4.6).
func (corpus *Corpus) ChooseProgram(r *rand.Rand) *prog.Prog {
	corpus.mu.Lock()
	defer corpus.mu.Unlock()
	return corpus.weighted.choose(r)
}

func (corpus *Corpus) Programs() []*prog.Prog {
	corpus.mu.RLock()
	defer corpus.mu.RUnlock()
	return corpus.weighted.programs()
}

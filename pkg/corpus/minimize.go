// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package corpus

import (
	"github.com/corefuzz/engine/pkg/signal"
	"github.com/corefuzz/engine/prog"
)

// Minimize drops every corpus Item whose signal is fully covered by the
// union of the Items kept (signal.Minimize), and rebuilds the weighted selection list to match
// what remains (§8.1 Minimizer shrinkage, applied at the corpus-set
// level rather than within a single Prog).
func (corpus *Corpus) Minimize() {
	corpus.mu.Lock()
	defer corpus.mu.Unlock()

	inputs := make([]signal.Context, 0, len(corpus.progs))
	for _, inp := range corpus.progs {
		inputs = append(inputs, signal.Context{Signal: inp.Signal, Context: inp})
	}

	corpus.progs = make(map[string]*Item)
	var progs []*prog.Prog
	var sigs []signal.Signal
	for _, ctx := range signal.Minimize(inputs) {
		inp := ctx.(*Item)
		corpus.progs[inp.Sig] = inp
		progs = append(progs, inp.Prog)
		sigs = append(sigs, inp.Signal)
	}
	corpus.weighted.replace(progs, sigs)
}

// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package corpus holds the set of admitted Progs and the coverage
// signal they collectively explain (§4.6). A Prog is admitted only
// when it lit at least one bitmap bit not already set by the existing
// corpus.
package corpus

import (
	"context"
	"sync"

	"github.com/corefuzz/engine/pkg/cover"
	"github.com/corefuzz/engine/pkg/hash"
	"github.com/corefuzz/engine/pkg/signal"
	"github.com/corefuzz/engine/prog"
)

// Corpus is the in-memory admitted-program set plus its merged signal
// and coverage, guarded by a single RWMutex: read-only lookups (Items,
// Stats, HasNewCover) vastly outnumber writes (Save), so readers never
// block each other. ChooseProgram also takes the write lock: picking
// an entry updates its selection count, per §4.6's anti-starvation
// weighting.
type Corpus struct {
	ctx     context.Context
	mu      sync.RWMutex
	progs   map[string]*Item
	signal  signal.Signal // total signal of all items
	cover   cover.Cover   // total coverage of all items
	updates chan<- NewItemEvent
	weighted
}

func NewCorpus(ctx context.Context) *Corpus {
	return NewMonitoredCorpus(ctx, nil)
}

// NewMonitoredCorpus additionally streams a NewItemEvent for every Save
// onto updates, for a scheduler that wants to react to fresh coverage
// without polling.
func NewMonitoredCorpus(ctx context.Context, updates chan<- NewItemEvent) *Corpus {
	return &Corpus{
		ctx:     ctx,
		progs:   make(map[string]*Item),
		updates: updates,
	}
}

// ItemUpdate records one (Call, coverage) observation folded into an
// Item; a Prog can be relevant for more than one of its calls, so an
// Item accumulates several.
type ItemUpdate struct {
	Call     int
	RawCover []uint32
}

// Item is treated as immutable once stored: Save always replaces the
// map entry with a fresh copy rather than mutating in place, so readers
// holding a *Item from a previous Items() call never see it change
// under them.
type Item struct {
	Sig     string
	Call    int
	Prog    *prog.Prog
	Signal  signal.Signal
	Cover   []uint32
	Updates []ItemUpdate
}

func (item Item) StringCall() string {
	return stringCall(item.Prog, item.Call)
}

func stringCall(p *prog.Prog, call int) string {
	if call < 0 || call >= len(p.Calls) {
		return ".extra"
	}
	return p.Calls[call].Meta.Name
}

// NewInput is one executor-reported observation offered to the corpus.
type NewInput struct {
	Prog     *prog.Prog
	Call     int
	Signal   signal.Signal
	Cover    []uint32
	RawCover []uint32
}

// NewItemEvent is broadcast on a monitored corpus's updates channel.
type NewItemEvent struct {
	Sig      string
	Exists   bool
	NewCover []uint32
}

// Save admits inp unconditionally (callers check HasNewCover first),
// merging it into an existing Item when one with the same serialization
// already exists (§8.1 Corpus admission).
func (corpus *Corpus) Save(inp NewInput) {
	sig := hash.String(inp.Prog.Serialize())

	corpus.mu.Lock()
	defer corpus.mu.Unlock()

	update := ItemUpdate{Call: inp.Call, RawCover: inp.RawCover}
	exists := false
	if old, ok := corpus.progs[sig]; ok {
		exists = true
		newSignal := old.Signal.Copy()
		newSignal.Merge(inp.Signal)
		var newCover cover.Cover
		newCover.Merge(old.Cover)
		newCover.Merge(inp.Cover)
		const maxUpdates = 32
		updates := append([]ItemUpdate{}, old.Updates...)
		if len(updates) < maxUpdates {
			updates = append(updates, update)
		}
		corpus.progs[sig] = &Item{
			Sig:     sig,
			Prog:    old.Prog,
			Call:    old.Call,
			Signal:  newSignal,
			Cover:   newCover.Serialize(),
			Updates: updates,
		}
	} else {
		corpus.progs[sig] = &Item{
			Sig:     sig,
			Call:    inp.Call,
			Prog:    inp.Prog,
			Signal:  inp.Signal,
			Cover:   inp.Cover,
			Updates: []ItemUpdate{update},
		}
		corpus.save(inp.Prog, inp.Signal)
	}
	corpus.signal.Merge(inp.Signal)
	newCover := corpus.cover.MergeDiff(inp.Cover)
	if corpus.updates != nil {
		select {
		case <-corpus.ctx.Done():
		case corpus.updates <- NewItemEvent{Sig: sig, Exists: exists, NewCover: newCover}:
		}
	}
}

// HasNewCover reports whether cov contains any PC not already in the
// corpus's merged coverage, the admission test §4.6 promotion runs
// before a Prog is minimized and saved.
func (corpus *Corpus) HasNewCover(cov []uint32) bool {
	corpus.mu.RLock()
	defer corpus.mu.RUnlock()
	return cover.HasDifference(cover.Cover(cov), corpus.cover)
}

func (corpus *Corpus) Signal() signal.Signal {
	corpus.mu.RLock()
	defer corpus.mu.RUnlock()
	return corpus.signal.Copy()
}

func (corpus *Corpus) Items() []*Item {
	corpus.mu.RLock()
	defer corpus.mu.RUnlock()
	ret := make([]*Item, 0, len(corpus.progs))
	for _, item := range corpus.progs {
		ret = append(ret, item)
	}
	return ret
}

func (corpus *Corpus) Item(sig string) *Item {
	corpus.mu.RLock()
	defer corpus.mu.RUnlock()
	return corpus.progs[sig]
}

// Stats is a snapshot of the relevant current state figures, exported
// to pkg/stat.
type Stats struct {
	Progs  int
	Signal int
	Cover  int
}

func (corpus *Corpus) Stats() Stats {
	corpus.mu.RLock()
	defer corpus.mu.RUnlock()
	return Stats{Progs: len(corpus.progs), Signal: len(corpus.signal), Cover: len(corpus.cover)}
}

type CallCov struct {
	Count int
	Cover cover.Cover
}

func (corpus *Corpus) CallCover() map[string]*CallCov {
	corpus.mu.RLock()
	defer corpus.mu.RUnlock()
	calls := make(map[string]*CallCov)
	for _, inp := range corpus.progs {
		call := inp.StringCall()
		if calls[call] == nil {
			calls[call] = new(CallCov)
		}
		cc := calls[call]
		cc.Count++
		cc.Cover.Merge(inp.Cover)
	}
	return calls
}

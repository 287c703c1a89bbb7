// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package corpus

import (
	"context"
	"math/rand"
	"testing"

	"github.com/corefuzz/engine/pkg/signal"
	"github.com/corefuzz/engine/prog"
	"github.com/corefuzz/engine/synthtarget"
	"github.com/stretchr/testify/assert"
)

func genProg(t *testing.T) *prog.Prog {
	target := synthtarget.New()
	ct := prog.DefaultChoiceTable(target, nil)
	return target.Generate(rand.NewSource(1), 3, ct)
}

func TestCorpusSaveAndStats(t *testing.T) {
	c := NewCorpus(context.Background())
	p := genProg(t)
	c.Save(NewInput{
		Prog:   p,
		Call:   0,
		Signal: signal.FromRaw([]uint32{1, 2, 3}, 1),
		Cover:  []uint32{1, 2, 3},
	})
	stats := c.Stats()
	assert.Equal(t, 1, stats.Progs)
	assert.Equal(t, 3, stats.Signal)
	assert.Equal(t, 3, stats.Cover)
}

func TestCorpusSaveMergesRepeatedProg(t *testing.T) {
	c := NewCorpus(context.Background())
	p := genProg(t)
	c.Save(NewInput{Prog: p, Call: 0, Signal: signal.FromRaw([]uint32{1}, 1), Cover: []uint32{1}})
	c.Save(NewInput{Prog: p, Call: 0, Signal: signal.FromRaw([]uint32{2}, 1), Cover: []uint32{2}})
	assert.Equal(t, 1, c.Stats().Progs)
	assert.Equal(t, 2, c.Stats().Signal)
}

func TestChooseProgramEmptyCorpus(t *testing.T) {
	c := NewCorpus(context.Background())
	assert.Nil(t, c.ChooseProgram(rand.New(rand.NewSource(1))))
}

func TestChooseProgramReturnsSaved(t *testing.T) {
	c := NewCorpus(context.Background())
	p := genProg(t)
	c.Save(NewInput{Prog: p, Call: 0, Signal: signal.FromRaw([]uint32{1}, 1), Cover: []uint32{1}})
	got := c.ChooseProgram(rand.New(rand.NewSource(1)))
	assert.Same(t, p, got)
}

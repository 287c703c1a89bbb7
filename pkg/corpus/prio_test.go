package corpus

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corefuzz/engine/pkg/signal"
	"github.com/corefuzz/engine/prog"
)

func TestEntryWeightDropsAfterSelection(t *testing.T) {
	e := &entry{uniqueBits: 10}
	before := weightOf(e)
	e.timesSelected++
	after := weightOf(e)
	assert.Less(t, after, before)
}

func TestWeightedChooseIncrementsTimesSelected(t *testing.T) {
	var w weighted
	p := &prog.Prog{}
	w.entries = []*entry{{prog: p, uniqueBits: 5}}

	r := rand.New(rand.NewSource(1))
	for i := int64(1); i <= 10; i++ {
		got := w.choose(r)
		assert.Same(t, p, got)
		assert.Equal(t, i, w.entries[0].timesSelected)
	}
}

func TestWeightedChooseNeverStarvesLowWeightEntry(t *testing.T) {
	var w weighted
	hot := &prog.Prog{}
	cold := &prog.Prog{}
	w.entries = []*entry{
		{prog: hot, uniqueBits: 100},
		{prog: cold, uniqueBits: 1},
	}

	r := rand.New(rand.NewSource(1))
	const draws = 2000
	for i := 0; i < draws; i++ {
		w.choose(r)
	}

	// cold starts at roughly 1/50th of hot's weight; with no
	// anti-starvation term it would stay there forever. §4.6's
	// denominator guarantees it still gets picked a nontrivial number
	// of times rather than never at all.
	assert.Greater(t, w.entries[1].timesSelected, int64(0))
}

func TestWeightedChooseBalancesEqualWeightEntries(t *testing.T) {
	var w weighted
	a := &entry{uniqueBits: 10}
	b := &entry{uniqueBits: 10}
	w.entries = []*entry{a, b}

	r := rand.New(rand.NewSource(1))
	const draws = 2000
	for i := 0; i < draws; i++ {
		w.choose(r)
	}

	// with equal starting weight, the denominator keeps nudging
	// selection toward whichever entry is currently behind, so the
	// two counts should never drift far apart.
	diff := a.timesSelected - b.timesSelected
	if diff < 0 {
		diff = -diff
	}
	assert.Less(t, diff, int64(draws/10))
}

func TestWeightedSaveTracksUniqueBits(t *testing.T) {
	var w weighted
	p := &prog.Prog{}
	w.save(p, signal.FromRaw([]uint32{1, 2, 3, 4, 5}, 1))
	assert.Equal(t, int64(5), w.entries[0].uniqueBits)
	assert.Equal(t, int64(0), w.entries[0].timesSelected)
}

package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corefuzz/engine/prog"
	"github.com/corefuzz/engine/synthtarget"
)

// fakeExecutor returns a fixed per-call coverage table keyed by the
// program's current call count, so a test can see exactly how removal
// of one call changes what Learn observes for the next.
type fakeExecutor struct {
	byLen map[int][][]uint32
}

func (f fakeExecutor) ExecuteForCoverage(p *prog.Prog) ([][]uint32, error) {
	return f.byLen[len(p.Calls)], nil
}

func TestLearnRecordsEdgeOnCoverageChange(t *testing.T) {
	target := synthtarget.New()
	p, err := prog.Deserialize(target, []byte("r0=res_open()\nwrite(r0, &AUTO=\"6161\"/4, 0x4)\n"))
	require.NoError(t, err)

	baseline := [][]uint32{{1}, {2}}
	exec := fakeExecutor{byLen: map[int][][]uint32{
		// after removing res_open, write (now call 0) sees different coverage.
		1: {{99}},
	}}

	tbl := New()
	require.NoError(t, Learn(tbl, exec, p, baseline))
	assert.True(t, tbl.Has("res_open", "write"))
}

func TestLearnSkipsEdgeWhenCoverageUnchanged(t *testing.T) {
	target := synthtarget.New()
	p, err := prog.Deserialize(target, []byte("r0=res_open()\nwrite(r0, &AUTO=\"6161\"/4, 0x4)\n"))
	require.NoError(t, err)

	baseline := [][]uint32{{1}, {2}}
	exec := fakeExecutor{byLen: map[int][][]uint32{
		1: {{2}}, // write's coverage is unchanged by removing res_open.
	}}

	tbl := New()
	require.NoError(t, Learn(tbl, exec, p, baseline))
	assert.False(t, tbl.Has("res_open", "write"))
}

func TestLearnSkipsProgramsShorterThanTwoCalls(t *testing.T) {
	target := synthtarget.New()
	p, err := prog.Deserialize(target, []byte("r0=res_open()\n"))
	require.NoError(t, err)

	tbl := New()
	require.NoError(t, Learn(tbl, fakeExecutor{}, p, nil))
	assert.Empty(t, tbl.Targets("res_open"))
}

func TestSeedFromResourcesAddsProducerConsumerEdges(t *testing.T) {
	target := synthtarget.New()
	tbl := New()
	SeedFromResources(tbl, target)
	assert.True(t, tbl.Has("res_open", "write"))
}

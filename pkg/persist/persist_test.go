package persist

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corefuzz/engine/pkg/corpus"
	"github.com/corefuzz/engine/pkg/relation"
	"github.com/corefuzz/engine/pkg/signal"
	"github.com/corefuzz/engine/prog"
	"github.com/corefuzz/engine/synthtarget"
)

func TestSaveLoadCorpusRoundTrip(t *testing.T) {
	dir := t.TempDir()
	target := synthtarget.New()
	c := corpus.NewCorpus(context.Background())
	p, err := prog.Deserialize(target, []byte("mmap_vma()"))
	require.NoError(t, err)
	c.Save(corpus.NewInput{Prog: p, Call: -1, Signal: signal.FromRaw([]uint32{1, 2}, 1), Cover: []uint32{1, 2}})

	require.NoError(t, SaveCorpus(dir, c))
	assert.FileExists(t, filepath.Join(dir, "corpus.json"))

	loaded, err := LoadCorpus(dir, target)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "mmap_vma()\n", string(loaded[0].Serialize()))
}

func TestLoadCorpusMissingFileReturnsNilNoError(t *testing.T) {
	dir := t.TempDir()
	target := synthtarget.New()
	loaded, err := LoadCorpus(dir, target)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSaveLoadRelationsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tbl := relation.New()
	tbl.Add("res_open", "write")
	require.NoError(t, SaveRelations(dir, tbl))

	loaded, err := LoadRelations(dir)
	require.NoError(t, err)
	assert.True(t, loaded.Has("res_open", "write"))
}

func TestCoverageSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cov := []uint32{1, 2, 3, 0xdeadbeef}
	require.NoError(t, SaveCoverageSnapshot(dir, cov))

	loaded, err := LoadCoverageSnapshot(dir)
	require.NoError(t, err)
	assert.Equal(t, cov, loaded)
}

func TestWriteAtomicLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeAtomic(filepath.Join(dir, "x.json"), []byte("{}")))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "x.json", entries[0].Name())
}

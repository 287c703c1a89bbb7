package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStillCoversDetectsSharedPC(t *testing.T) {
	assert.True(t, stillCovers([]uint32{1, 2, 3}, []uint32{9, 3}))
	assert.False(t, stillCovers([]uint32{1, 2, 3}, []uint32{9, 8}))
	assert.False(t, stillCovers(nil, []uint32{1}))
}

func TestSignalFromCoverUsesCrashPrio(t *testing.T) {
	sig := signalFromCover([]uint32{5, 6})
	assert.Equal(t, 2, sig.Len())
	for _, p := range sig {
		assert.EqualValues(t, crashPrio, p)
	}
}

package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTitleTakesFirstNonEmptyLine(t *testing.T) {
	assert.Equal(t, "KASAN: use-after-free in foo", normalizeTitle([]byte("\n\n  KASAN: use-after-free in foo  \nmore output\n")))
}

func TestNormalizeTitleFallsBackWhenLogEmpty(t *testing.T) {
	assert.Equal(t, "UNKNOWN", normalizeTitle(nil))
	assert.Equal(t, "UNKNOWN", normalizeTitle([]byte("\n\n   \n")))
}

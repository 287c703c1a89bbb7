// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeTakesHigherPriority(t *testing.T) {
	base := FromRaw([]uint32{1, 2, 3}, 1)
	base.Merge(FromRaw([]uint32{2, 4}, 5))
	assert.Equal(t, prioType(5), base[2])
	assert.Equal(t, prioType(5), base[4])
	assert.Equal(t, prioType(1), base[1])
}

func TestDiffOnlyReportsHigherOrNew(t *testing.T) {
	base := FromRaw([]uint32{1, 2}, 3)
	diff := base.Diff(FromRaw([]uint32{2, 3}, 1))
	assert.Equal(t, Signal{3: 1}, diff) // elem 2 at prio 1 is not higher than base's 3, elem 3 is new
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	s := FromRaw([]uint32{1, 2, 3}, 7)
	got := s.Serialize().Deserialize()
	assert.Equal(t, s, got)
}

func TestSplitPartitionsWithoutOverlap(t *testing.T) {
	s := FromRaw([]uint32{1, 2, 3, 4, 5}, 1)
	total := s.Len()
	part := s.Split(2)
	assert.Equal(t, 2, part.Len())
	assert.Equal(t, total-2, s.Len())
	for e := range part {
		_, ok := s[e]
		assert.False(t, ok)
	}
}

func TestMinimizeKeepsOnlyContributingInputs(t *testing.T) {
	a := Context{Signal: FromRaw([]uint32{1, 2}, 1), Context: "a"}
	b := Context{Signal: FromRaw([]uint32{2}, 1), Context: "b"} // fully subsumed by a
	c := Context{Signal: FromRaw([]uint32{3}, 1), Context: "c"}
	kept := Minimize([]Context{a, b, c})
	assert.ElementsMatch(t, []interface{}{"a", "c"}, kept)
}

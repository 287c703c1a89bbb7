package executor

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/corefuzz/engine/prog"
	"github.com/corefuzz/engine/synthtarget"
	"github.com/stretchr/testify/assert"
)

func TestEncodeCallTagsResourceAndConstArgs(t *testing.T) {
	target := synthtarget.New()
	p, err := prog.Deserialize(target, []byte(`write(0x1, &AUTO="aabb", 0x2)`))
	assert.NoError(t, err)
	idx := newResultIndex(p)
	blob := EncodeCall(p.Calls[0], idx)
	// fd is a resource argument, so its literal 0x1 is encoded as a result.
	assert.Equal(t, tagResult, blob[0])
	// len is the last argument: a const tag followed by its u64 value.
	assert.Equal(t, tagConst, blob[len(blob)-9])
}

func TestWriteRequestThenReadReplyRoundTrip(t *testing.T) {
	target := synthtarget.New()
	p, err := prog.Deserialize(target, []byte("mmap_vma()"))
	assert.NoError(t, err)

	var req bytes.Buffer
	var reply bytes.Buffer
	c := NewConn(&reply, &req)

	writeFakeReply(&reply, []CallResult{{Status: StatusOK, Errno: 0, Cov: []uint32{10, 20}}}, ProgramOK)

	res, err := c.Execute(p, FlagCollectCover)
	assert.NoError(t, err)
	assert.Equal(t, reqMagic, binary.LittleEndian.Uint32(req.Bytes()[0:4]))
	assert.Equal(t, FlagCollectCover, binary.LittleEndian.Uint32(req.Bytes()[4:8]))
	assert.Len(t, res.Calls, 1)
	assert.Equal(t, StatusOK, res.Calls[0].Status)
	assert.Equal(t, []uint32{10, 20}, res.Calls[0].Cov)
	assert.Equal(t, ProgramOK, res.Status)
}

func writeFakeReply(buf *bytes.Buffer, calls []CallResult, status ProgramStatus) {
	var magic [4]byte
	binary.LittleEndian.PutUint32(magic[:], replyMagic)
	buf.Write(magic[:])
	for _, c := range calls {
		buf.WriteByte(byte(c.Status))
		var rest [8]byte
		binary.LittleEndian.PutUint32(rest[0:4], uint32(c.Errno))
		binary.LittleEndian.PutUint32(rest[4:8], uint32(len(c.Cov)))
		buf.Write(rest[:])
		for _, v := range c.Cov {
			var tmp [4]byte
			binary.LittleEndian.PutUint32(tmp[:], v)
			buf.Write(tmp[:])
		}
	}
	buf.WriteByte(byte(status))
}

func TestCheckFeaturesMasksTo15Bits(t *testing.T) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 0xFFFFFFFFFFFFFFFF)
	bits, err := CheckFeatures(bytes.NewReader(buf[:]))
	assert.NoError(t, err)
	assert.Equal(t, uint64(1<<15-1), bits)
}

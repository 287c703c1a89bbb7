// Package executor implements the host side of the wire protocol
// spoken to the in-guest executor binary (§6.1): a request carrying an
// encoded program goes out over a byte-stream channel (pipe,
// virtio-serial, or a shared-memory ring), and a per-call result
// stream comes back. This mirrors the handshake/magic-number framing
// of the legacy executor protocol rather than the newer flatbuffers
// RPC (see DESIGN.md for why).
package executor

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/corefuzz/engine/prog"
)

const (
	reqMagic   uint32 = 0xC0DE5012
	replyMagic uint32 = 0xC0DE5113
)

// Flag bits for the outgoing request, per §6.1.
const (
	FlagCollectCover uint32 = 1 << 0
	FlagCollectComps uint32 = 1 << 1
	FlagPerCallCover uint32 = 1 << 2
	FlagSandbox      uint32 = 1 << 3
	FlagRepeat       uint32 = 1 << 4
	// bits 5-15 mirror the §4.1 feature bitmap.
)

type CallStatus uint8

const (
	StatusOK CallStatus = iota
	StatusFailed
	StatusSkipped
	StatusBlocked
)

type ProgramStatus uint8

const (
	ProgramOK ProgramStatus = iota
	ProgramCrashed
)

// CallResult is one call's outcome as reported by the executor.
type CallResult struct {
	Status CallStatus
	Errno  int32
	Cov    []uint32
}

// Result is the full per-program outcome.
type Result struct {
	Calls  []CallResult
	Status ProgramStatus
}

// Conn is the byte-stream channel to one in-guest executor instance.
// A real implementation backs it with a pipe, virtio-serial fd, or a
// pair of shared-memory ring buffers; the protocol itself only needs
// io.Reader/io.Writer.
type Conn struct {
	r *bufio.Reader
	w io.Writer
}

func NewConn(r io.Reader, w io.Writer) *Conn {
	return &Conn{r: bufio.NewReader(r), w: w}
}

// Execute sends p as a request and blocks for the full reply. Any
// protocol error (truncated read, bad magic) is returned verbatim so
// the scheduler can mark the VM for recycling per §7.
func (c *Conn) Execute(p *prog.Prog, flags uint32) (*Result, error) {
	if err := c.writeRequest(p, flags); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}
	return c.readReply(len(p.Calls))
}

func (c *Conn) writeRequest(p *prog.Prog, flags uint32) error {
	var hdr [4 + 4 + 4]byte
	binary.LittleEndian.PutUint32(hdr[0:4], reqMagic)
	binary.LittleEndian.PutUint32(hdr[4:8], flags)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(p.Calls)))
	if _, err := c.w.Write(hdr[:]); err != nil {
		return err
	}
	idx := newResultIndex(p)
	for _, call := range p.Calls {
		blob := EncodeCall(call, idx)
		var callHdr [4 + 4]byte
		binary.LittleEndian.PutUint32(callHdr[0:4], uint32(call.Meta.NR))
		binary.LittleEndian.PutUint32(callHdr[4:8], uint32(len(call.Args)))
		if _, err := c.w.Write(callHdr[:]); err != nil {
			return err
		}
		if _, err := c.w.Write(blob); err != nil {
			return err
		}
	}
	return nil
}

func (c *Conn) readReply(nCalls int) (*Result, error) {
	var magic [4]byte
	if _, err := io.ReadFull(c.r, magic[:]); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if binary.LittleEndian.Uint32(magic[:]) != replyMagic {
		return nil, fmt.Errorf("bad reply magic %x", magic)
	}
	res := &Result{Calls: make([]CallResult, 0, nCalls)}
	for i := 0; i < nCalls; i++ {
		var status [1]byte
		if _, err := io.ReadFull(c.r, status[:]); err != nil {
			return nil, fmt.Errorf("call %d status: %w", i, err)
		}
		var rest [4 + 4]byte
		if _, err := io.ReadFull(c.r, rest[:]); err != nil {
			return nil, fmt.Errorf("call %d header: %w", i, err)
		}
		errno := int32(binary.LittleEndian.Uint32(rest[0:4]))
		covSize := binary.LittleEndian.Uint32(rest[4:8])
		cov := make([]uint32, covSize)
		for j := range cov {
			var buf [4]byte
			if _, err := io.ReadFull(c.r, buf[:]); err != nil {
				return nil, fmt.Errorf("call %d cov[%d]: %w", i, j, err)
			}
			cov[j] = binary.LittleEndian.Uint32(buf[:])
		}
		res.Calls = append(res.Calls, CallResult{Status: CallStatus(status[0]), Errno: errno, Cov: cov})
	}
	var progStatus [1]byte
	if _, err := io.ReadFull(c.r, progStatus[:]); err != nil {
		return nil, fmt.Errorf("program status: %w", err)
	}
	res.Status = ProgramStatus(progStatus[0])
	return res, nil
}

// CheckFeatures runs the one-shot feature probe (§6.2): the executor,
// invoked with argv = "check", writes a single little-endian u64 to
// stdout whose low 15 bits are the feature bitmap.
func CheckFeatures(stdout io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(stdout, buf[:]); err != nil {
		return 0, fmt.Errorf("read feature probe: %w", err)
	}
	return binary.LittleEndian.Uint64(buf[:]) & (1<<15 - 1), nil
}

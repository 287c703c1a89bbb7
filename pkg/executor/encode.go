package executor

import (
	"encoding/binary"

	"github.com/corefuzz/engine/prog"
)

// Argument tag bytes for the wire-blob encoding, one per Arg variant.
const (
	tagConst  byte = 1
	tagData   byte = 2
	tagGroup  byte = 3
	tagUnion  byte = 4
	tagPtr    byte = 5
	tagVMA    byte = 6
	tagResult byte = 7
)

// resultIndex maps each Call's producing ResultArg to that call's
// position in the program, so a ResRef consumer can be encoded as "the
// result of call N" rather than by Go pointer identity, which means
// nothing across the wire.
type resultIndex map[*prog.ResultArg]int

func newResultIndex(p *prog.Prog) resultIndex {
	idx := make(resultIndex, len(p.Calls))
	for i, c := range p.Calls {
		if c.Ret != nil {
			idx[c.Ret] = i
		}
	}
	return idx
}

// EncodeCall flattens a Call's arguments into the arg_blob the
// executor expects to find trailing its sid/n_args header: each
// argument is a tag byte followed by a variant-specific payload,
// recursing into pointees and group children in place.
func EncodeCall(c *prog.Call, idx resultIndex) []byte {
	var buf []byte
	for _, arg := range c.Args {
		buf = appendArg(buf, arg, idx)
	}
	return buf
}

func appendArg(buf []byte, arg prog.Arg, idx resultIndex) []byte {
	switch a := arg.(type) {
	case *prog.ConstArg:
		buf = append(buf, tagConst)
		return appendU64(buf, a.Val)
	case *prog.DataArg:
		buf = append(buf, tagData)
		buf = appendU64(buf, uint64(len(a.Data)))
		return append(buf, a.Data...)
	case *prog.GroupArg:
		buf = append(buf, tagGroup)
		buf = appendU64(buf, uint64(len(a.Inner)))
		for _, inner := range a.Inner {
			buf = appendArg(buf, inner, idx)
		}
		return buf
	case *prog.UnionArg:
		buf = append(buf, tagUnion)
		buf = appendU64(buf, uint64(a.Index))
		return appendArg(buf, a.Option, idx)
	case *prog.PointerArg:
		buf = append(buf, tagPtr)
		buf = appendU64(buf, a.Address)
		if a.Res == nil {
			buf = append(buf, 0)
			return buf
		}
		buf = append(buf, 1)
		return appendArg(buf, a.Res, idx)
	case *prog.VMAArg:
		buf = append(buf, tagVMA)
		buf = appendU64(buf, a.Address)
		return appendU64(buf, a.NumPages)
	case *prog.ResultArg:
		buf = append(buf, tagResult)
		if a.Res != nil {
			// ResRef: refer to the producing call by index so the
			// executor can substitute the live return value at
			// execution time.
			if callIdx, ok := idx[a.Res]; ok {
				buf = append(buf, 1)
				return appendU64(buf, uint64(callIdx))
			}
		}
		buf = append(buf, 0)
		return appendU64(buf, a.Val)
	default:
		panic("executor: unknown arg type")
	}
}

func appendU64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

package prog

import "fmt"

// Prog is an ordered, self-contained sequence of Calls with its own
// virtual address space (§3.2). Progs are created by the generator or
// cloned from the corpus, mutated in place by the mutator, minimized in
// place by the minimizer, and serialized to the wire. A Prog holds a
// reference to the Target it was built against but never mutates it.
type Prog struct {
	Target *Target
	Calls  []*Call
	alloc  allocator
}

// Call is a single invocation of one syscall with fully specified
// arguments.
type Call struct {
	Meta *Syscall
	Args []Arg
	Ret  *ResultArg // nil if the syscall's return value is unused
}

// Arg is a tagged-variant Value mirroring Type. A ResultArg reference is
// by-index through the producing Call's Ret field, never by raw pointer
// into another Prog, so there are no cycles in the value graph even
// though a Ptr owns its pointee directly.
type Arg interface {
	Type() Type
}

// ConstArg holds an integer value for an IntType/LenType argument.
type ConstArg struct {
	typ Type
	Val uint64
}

func (a *ConstArg) Type() Type { return a.typ }

// DataArg holds raw bytes for a BufferType argument.
type DataArg struct {
	typ  Type
	Data []byte
}

func (a *DataArg) Type() Type { return a.typ }

// GroupArg holds the ordered children of a StructType or ArrayType.
type GroupArg struct {
	typ   Type
	Inner []Arg
}

func (a *GroupArg) Type() Type { return a.typ }

// UnionArg holds the single chosen variant of a UnionType.
type UnionArg struct {
	typ    Type
	Index  int
	Option Arg
}

func (a *UnionArg) Type() Type { return a.typ }

// PointerArg carries a pre-allocated virtual address and owns its
// pointee. Res may be nil for a Ptr argument deliberately left pointing
// at unmapped memory.
type PointerArg struct {
	typ     Type
	Address uint64
	Res     Arg
}

func (a *PointerArg) Type() Type { return a.typ }

// VMAArg carries an allocated, page-aligned virtual memory region.
type VMAArg struct {
	typ      Type
	Address  uint64
	NumPages uint64
}

func (a *VMAArg) Type() Type { return a.typ }

// ResultArg is the one variant that plays two roles, exactly as the
// resource it represents does: as a Call's Ret, it is the producer
// (Res == nil, Val holds a fallback); as an argument inside another
// Call, it is a ResRef (Res points at the producing ResultArg, by Go
// pointer identity, which stands in for "by-index" since the producing
// Call is reachable and its index can always be recovered from the
// owning Prog). Uses is the reverse edge: the set of ResultArgs whose
// Res currently points here, kept so a removed producer's consumers can
// be found and rewired or removed in turn (§4.3, §4.4).
type ResultArg struct {
	typ  Type
	Res  *ResultArg
	Val  uint64
	Uses map[*ResultArg]bool
}

func (a *ResultArg) Type() Type { return a.typ }

func constArg(typ Type, val uint64) *ConstArg  { return &ConstArg{typ: typ, Val: val} }
func dataArg(typ Type, data []byte) *DataArg   { return &DataArg{typ: typ, Data: append([]byte{}, data...)} }
func groupArg(typ Type, inner []Arg) *GroupArg { return &GroupArg{typ: typ, Inner: inner} }
func unionArg(typ Type, idx int, opt Arg) *UnionArg {
	return &UnionArg{typ: typ, Index: idx, Option: opt}
}
func pointerArg(typ Type, addr uint64, pointee Arg) *PointerArg {
	return &PointerArg{typ: typ, Address: addr, Res: pointee}
}
func vmaArg(typ Type, addr, pages uint64) *VMAArg {
	return &VMAArg{typ: typ, Address: addr, NumPages: pages}
}

// returnArg creates the producer-side ResultArg stored in Call.Ret.
func returnArg(typ Type) *ResultArg {
	return &ResultArg{typ: typ, Val: defaultResourceVal(typ), Uses: map[*ResultArg]bool{}}
}

// resultRefArg creates a consumer-side ResRef. producer may be nil, in
// which case the argument falls back to its type's default/special
// value instead of referencing anything (§4.2.1 resource-synthesis
// fallback).
func resultRefArg(typ Type, producer *ResultArg) *ResultArg {
	r := &ResultArg{typ: typ, Val: defaultResourceVal(typ), Res: producer, Uses: map[*ResultArg]bool{}}
	if producer != nil {
		producer.Uses[r] = true
	}
	return r
}

// setRes rewires r to reference a (possibly nil) new producer, updating
// both sides' Uses sets.
func (r *ResultArg) setRes(producer *ResultArg) {
	if r.Res != nil {
		delete(r.Res.Uses, r)
	}
	r.Res = producer
	if producer != nil {
		producer.Uses[r] = true
	}
}

func defaultResourceVal(typ Type) uint64 {
	if rt, ok := typ.(*ResourceType); ok && len(rt.Desc.SpecialVals) > 0 {
		return rt.Desc.SpecialVals[0]
	}
	return 0
}

// ForeachArg walks the Call's argument tree in declaration order,
// invoking f for each Arg (parents before children).
func (c *Call) ForeachArg(f func(Arg)) {
	var rec func(Arg)
	rec = func(a Arg) {
		f(a)
		switch v := a.(type) {
		case *GroupArg:
			for _, in := range v.Inner {
				rec(in)
			}
		case *UnionArg:
			rec(v.Option)
		case *PointerArg:
			if v.Res != nil {
				rec(v.Res)
			}
		}
	}
	for _, a := range c.Args {
		rec(a)
	}
}

// RemoveCall deletes the call at index i, disconnecting any
// ResultArgs elsewhere in p that referenced its return value (they
// fall back to their type's default/special value, exactly as a
// freshly generated unresolved ResRef would).
func (p *Prog) RemoveCall(i int) {
	c := p.Calls[i]
	if c.Ret != nil {
		for use := range c.Ret.Uses {
			use.setRes(nil)
		}
	}
	c.ForeachArg(func(a Arg) {
		ra, ok := a.(*ResultArg)
		if !ok || ra.Res != nil {
			return
		}
		for use := range ra.Uses {
			use.setRes(nil)
		}
	})
	p.Calls = append(p.Calls[:i], p.Calls[i+1:]...)
}

// CallIndex returns the index of call within p, or -1.
func (p *Prog) CallIndex(call *Call) int {
	for i, c := range p.Calls {
		if c == call {
			return i
		}
	}
	return -1
}

func (p *Prog) String() string {
	return string(p.Serialize())
}

// sanityCheckTypes performs the cheap part of the §3.2 well-formedness
// invariant: structural arity between a Call and its Meta.
func (p *Prog) sanityCheckTypes() error {
	for i, c := range p.Calls {
		if len(c.Args) != len(c.Meta.Args) {
			return fmt.Errorf("call %d (%s): got %d args, want %d", i, c.Meta.Name, len(c.Args), len(c.Meta.Args))
		}
	}
	return nil
}

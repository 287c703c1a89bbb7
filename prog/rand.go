package prog

import (
	"math/rand"
)

// randGen is the single source of randomness threaded through generation
// and mutation. It wraps math/rand.Rand rather than reaching for a
// dedicated PRNG package: nothing here needs a cryptographically strong
// or cross-platform-reproducible generator, only fast, seedable
// pseudo-randomness, which math/rand already is.
type randGen struct {
	*rand.Rand
	target *Target
}

func newRand(target *Target, src rand.Source) *randGen {
	return &randGen{Rand: rand.New(src), target: target}
}

func (r *randGen) bin(p float64) bool {
	return r.Float64() < p
}

// biasedLen returns a value skewed toward small, because most real
// workloads exercise small arrays/buffers far more than huge ones.
func (r *randGen) biasedLen(lo, hi uint64) uint64 {
	if hi <= lo {
		return lo
	}
	if r.bin(0.7) {
		span := hi - lo
		if span > 8 {
			span = 8
		}
		return lo + uint64(r.Intn(int(span)+1))
	}
	return lo + uint64(r.Int63n(int64(hi-lo+1)))
}

func (r *randGen) randInt(bitSize uint64, signed bool) uint64 {
	var v uint64
	switch {
	case r.bin(0.1):
		v = 0
	case r.bin(0.3):
		v = uint64(1) << (bitSize - 1) // boundary-ish value
	default:
		v = r.Uint64()
	}
	return truncate(v, bitSize)
}

func truncate(v, bitSize uint64) uint64 {
	if bitSize >= 64 {
		return v
	}
	return v & ((uint64(1) << bitSize) - 1)
}

func (r *randGen) randBuf(kind BufferKind, values []string) []byte {
	if len(values) > 0 {
		return []byte(values[r.Intn(len(values))])
	}
	n := int(r.biasedLen(0, 32))
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(r.Intn(256))
	}
	if kind == BufferCString || kind == BufferFilename {
		for i, b := range buf {
			if b == 0 {
				buf[i] = 'a'
			}
		}
	}
	return buf
}

// state carries the resource-availability index for one generateCall
// pass: for each resource name, the ResultArgs produced so far in the
// Prog under construction that can satisfy it (§4.2 step 3).
type state struct {
	target    *Target
	ct        *ChoiceTable
	resources map[string][]*ResultArg
}

func newState(target *Target, ct *ChoiceTable) *state {
	return &state{target: target, ct: ct, resources: make(map[string][]*ResultArg)}
}

// analyze records every resource this call's arguments produce, making
// them visible to later generateArg calls in the same Prog.
func (s *state) analyze(c *Call) {
	record := func(a Arg) {
		ra, ok := a.(*ResultArg)
		if !ok || ra.Res != nil {
			return // a ResRef, not a producer
		}
		rt, ok := ra.Type().(*ResourceType)
		if !ok || rt.Dir() == DirIn {
			return
		}
		s.resources[rt.Desc.Name] = append(s.resources[rt.Desc.Name], ra)
	}
	if c.Ret != nil {
		record(c.Ret)
	}
	c.ForeachArg(func(a Arg) {
		if ra, ok := a.(*ResultArg); ok && ra.Res == nil {
			record(ra)
		}
	})
}

// findResource returns a live producer for kind, if one is available in
// the current state.
func (s *state) findResource(r *randGen, kind []string) *ResultArg {
	var candidates []*ResultArg
	for name, vals := range s.resources {
		desc := s.target.Resource(name)
		if desc == nil || !IsCompatibleResource(kind, desc.Kind) {
			continue
		}
		candidates = append(candidates, vals...)
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates[r.Intn(len(candidates))]
}

// ChoiceTable holds syscall-selection weights. A flat table (every
// syscall equally likely) is used until a relation/priority source
// overrides individual weights — see WithWeights.
type ChoiceTable struct {
	target  *Target
	weights []float64
	total   float64
	enabled []*Syscall
}

// DefaultChoiceTable builds a flat-weighted table over enabled (or, if
// nil, every syscall in the target).
func DefaultChoiceTable(target *Target, enabled []*Syscall) *ChoiceTable {
	if enabled == nil {
		enabled = target.Syscalls
	}
	ct := &ChoiceTable{target: target, enabled: enabled, weights: make([]float64, len(enabled))}
	for i := range ct.weights {
		ct.weights[i] = 1
		ct.total++
	}
	return ct
}

// WithWeights returns a copy of ct with per-syscall multipliers applied,
// e.g. from the relation learner's influence scores.
func (ct *ChoiceTable) WithWeights(mult map[string]float64) *ChoiceTable {
	out := &ChoiceTable{target: ct.target, enabled: ct.enabled, weights: make([]float64, len(ct.weights))}
	for i, c := range ct.enabled {
		w := ct.weights[i]
		if m, ok := mult[c.Name]; ok {
			w *= m
		}
		out.weights[i] = w
		out.total += w
	}
	return out
}

func (ct *ChoiceTable) choose(r *randGen) *Syscall {
	if len(ct.enabled) == 0 {
		return nil
	}
	x := r.Float64() * ct.total
	for i, w := range ct.weights {
		if x < w {
			return ct.enabled[i]
		}
		x -= w
	}
	return ct.enabled[len(ct.enabled)-1]
}

// generateCall produces one call for s.ct's choice, plus any producer
// calls greedily inserted beforehand to satisfy its resource inputs
// (§4.2 step 3). The producer calls are returned ahead of the chosen
// call so the caller can append them in order.
func (r *randGen) generateCall(s *state, p *Prog) []*Call {
	meta := s.ct.choose(r)
	if meta == nil {
		return nil
	}
	return r.generateParticularCall(s, p, meta)
}

func (r *randGen) generateParticularCall(s *state, p *Prog, meta *Syscall) []*Call {
	var pre []*Call
	args := make([]Arg, len(meta.Args))
	for i, param := range meta.Args {
		arg, extra := r.generateArg(s, p, param.Type)
		pre = append(pre, extra...)
		args[i] = arg
	}
	var ret *ResultArg
	if meta.Ret != nil {
		ret = returnArg(meta.Ret)
	}
	call := &Call{Meta: meta, Args: args, Ret: ret}
	return append(pre, call)
}

// generateArg produces a value for typ, recursing into compound types
// and, for resources with no available producer, synthesizing the
// minimum chain of producer calls (cost-ordered by ResourceCtors).
func (r *randGen) generateArg(s *state, p *Prog, typ Type) (Arg, []*Call) {
	switch t := typ.(type) {
	case *IntType:
		return r.genInt(t), nil
	case *LenType:
		return constArg(t, 0), nil // resolved later by assignSizes
	case *VMAType:
		pages := r.biasedLen(t.PagesLo, max1(t.PagesHi))
		addr := p.alloc.alloc(pages*p.Target.PageSize, p.Target.PageSize)
		return vmaArg(t, addr, pages), nil
	case *BufferType:
		return dataArg(t, r.randBuf(t.Kind, t.Values)), nil
	case *PtrType:
		if t.Optional() && r.bin(0.15) {
			return pointerArg(t, 0, nil), nil
		}
		inner, pre := r.generateArg(s, p, t.Elem)
		sz := typeByteSize(t.Elem, inner)
		addr := p.alloc.alloc(sz, 8)
		return pointerArg(t, addr, inner), pre
	case *ArrayType:
		n := r.biasedLen(t.Lo, arrayHi(t))
		inner := make([]Arg, n)
		var pre []*Call
		for i := range inner {
			a, p2 := r.generateArg(s, p, t.Elem)
			inner[i] = a
			pre = append(pre, p2...)
		}
		return groupArg(t, inner), pre
	case *StructType:
		inner := make([]Arg, len(t.Fields))
		var pre []*Call
		for i, f := range t.Fields {
			a, p2 := r.generateArg(s, p, f.Type)
			inner[i] = a
			pre = append(pre, p2...)
		}
		return groupArg(t, inner), pre
	case *UnionType:
		idx := r.Intn(len(t.Fields))
		opt, pre := r.generateArg(s, p, t.Fields[idx].Type)
		return unionArg(t, idx, opt), pre
	case *ResourceType:
		if t.Optional() && r.bin(0.1) {
			return resultRefArg(t, nil), nil
		}
		if producer := s.findResource(r, t.Desc.Kind); producer != nil {
			return resultRefArg(t, producer), nil
		}
		if len(t.Desc.SpecialVals) > 0 && (r.bin(0.5) || len(t.Desc.Producers) == 0) {
			return resultRefArg(t, nil), nil
		}
		ctors := p.Target.ResourceCtors(t.Desc.Kind)
		if len(ctors) == 0 {
			return resultRefArg(t, nil), nil
		}
		ctor := ctors[0]
		pre := r.generateParticularCall(s, p, ctor)
		for _, c := range pre {
			s.analyze(c)
		}
		if producer := s.findResource(r, t.Desc.Kind); producer != nil {
			return resultRefArg(t, producer), pre
		}
		return resultRefArg(t, nil), pre
	default:
		panic("generateArg: unknown type")
	}
}

func (r *randGen) genInt(t *IntType) Arg {
	switch t.Kind {
	case IntRange:
		// §4.2.1: uniform in range, with 10% probability pick one of
		// lo/hi/lo+1/hi-1 instead (near-boundary bias).
		if r.bin(0.1) {
			switch r.Intn(4) {
			case 0:
				return constArg(t, t.RangeLo)
			case 1:
				return constArg(t, t.RangeHi)
			case 2:
				return constArg(t, min(t.RangeLo+1, t.RangeHi))
			default:
				return constArg(t, max(t.RangeHi-1, t.RangeLo))
			}
		}
		return constArg(t, t.RangeLo+uint64(r.Int63n(int64(t.RangeHi-t.RangeLo+1))))
	case IntSet:
		if len(t.Values) == 0 {
			return constArg(t, 0)
		}
		if t.IsBitset {
			var v uint64
			for _, val := range t.Values {
				if r.bin(0.5) {
					v |= val
				}
			}
			return constArg(t, v)
		}
		// §4.2.1: uniform 80% of the time; near-boundary (first/last
		// of the set, standing in for 0/1/-1/MAX/MAX-1) 20%.
		if r.bin(0.2) {
			if r.bin(0.5) {
				return constArg(t, t.Values[0])
			}
			return constArg(t, t.Values[len(t.Values)-1])
		}
		return constArg(t, t.Values[r.Intn(len(t.Values))])
	default:
		return constArg(t, r.randInt(t.BitSize, t.Signed))
	}
}

func arrayHi(t *ArrayType) uint64 {
	if t.SizeKind == ArrayUnbounded {
		return 16
	}
	return t.Hi
}

func max1(v uint64) uint64 {
	if v == 0 {
		return 1
	}
	return v
}

// typeByteSize returns the concrete byte size of a value just generated
// for typ, falling back to the static size for fixed-size types.
func typeByteSize(typ Type, val Arg) uint64 {
	if !typ.Varlen() {
		return typ.Size()
	}
	switch a := val.(type) {
	case *DataArg:
		return uint64(len(a.Data))
	case *GroupArg:
		var sum uint64
		for _, in := range a.Inner {
			sum += typeByteSize(in.Type(), in)
		}
		return sum
	default:
		return 8
	}
}

package prog

import "math/rand"

// maxMutateRetries is K in "retry the step with a different op up to
// K times, else return the input unchanged" (§4.3, §7).
const maxMutateRetries = 5

// Mutate returns a mutated clone of p, applying one to three rounds of
// four weighted operations (§4.3): insert a new call, remove a call
// (rewiring its consumers to fallback values), splice a slice of calls from another corpus
// Prog, or mutate a single argument's value in place. corpus supplies
// the pool Splice copies from; it may be nil or empty, in which case
// Splice always declines and another op is retried instead.
func (p *Prog) Mutate(rs rand.Source, ncallsMax int, ct *ChoiceTable, corpus []*Prog) *Prog {
	r := newRand(p.Target, rs)
	np := p.Clone()
	if len(np.Calls) == 0 {
		return p.Target.Generate(rs, 1, ct)
	}
	const (
		opInsert = iota
		opRemove
		opSplice
		opArgValue
	)
	ops := []func(*randGen, *Prog, *ChoiceTable, []*Prog, int) bool{
		opInsert:   func(r *randGen, p *Prog, ct *ChoiceTable, _ []*Prog, _ int) bool { return mutateInsertCall(r, p, ct) },
		opRemove:   func(r *randGen, p *Prog, ct *ChoiceTable, _ []*Prog, _ int) bool { return mutateRemoveCall(r, p, ct) },
		opSplice:   mutateSpliceCall,
		opArgValue: func(r *randGen, p *Prog, ct *ChoiceTable, _ []*Prog, _ int) bool { return mutateArgValue(r, p, ct) },
	}
	weights := []float64{0.2, 0.2, 0.1, 0.5}
	n := 1 + r.Intn(3)
	for i := 0; i < n; i++ {
		idx := weightedPick(r, weights)
		if len(np.Calls) >= ncallsMax && idx == opInsert {
			idx = opArgValue
		}
		for attempt := 0; attempt < maxMutateRetries; attempt++ {
			if ops[idx](r, np, ct, corpus, ncallsMax) {
				break
			}
			next := weightedPick(r, weights)
			for next == idx {
				next = weightedPick(r, weights)
			}
			idx = next
		}
	}
	for _, c := range np.Calls {
		assignSizes(c)
	}
	return np
}

func weightedPick(r *randGen, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	x := r.Float64() * total
	for i, w := range weights {
		if x < w {
			return i
		}
		x -= w
	}
	return len(weights) - 1
}

// mutateInsertCall inserts one freshly generated call (plus any
// producer calls it needs) at a random position.
func mutateInsertCall(r *randGen, p *Prog, ct *ChoiceTable) bool {
	pos := r.Intn(len(p.Calls) + 1)
	s := newState(p.Target, ct)
	for _, c := range p.Calls[:pos] {
		s.analyze(c)
	}
	calls := r.generateCall(s, p)
	if len(calls) == 0 {
		return false
	}
	p.Calls = append(p.Calls[:pos], append(calls, p.Calls[pos:]...)...)
	return true
}

// mutateRemoveCall removes a random call. Any ResultArg it produced
// that is still referenced gets its consumers rewired to a fallback
// value, never left dangling (§4.3 edge case).
func mutateRemoveCall(r *randGen, p *Prog, ct *ChoiceTable) bool {
	if len(p.Calls) == 0 {
		return false
	}
	idx := r.Intn(len(p.Calls))
	p.RemoveCall(idx)
	return true
}

// mutateSpliceCall copies a contiguous slice of calls from a randomly
// chosen corpus Prog and inserts it at a random position in p (§4.3
// Splice). The slice is trimmed with RemoveCall rather than a raw
// subslice, so any ResRef inside it that pointed at a producer outside
// the chosen range gets rewired to its fallback value instead of left
// dangling; the calls that do survive the trim keep their relative
// order, so a producer inside the slice is still before its consumer.
// p is truncated back down to ncallsMax from the end if the splice
// pushed it over.
func mutateSpliceCall(r *randGen, p *Prog, ct *ChoiceTable, corpus []*Prog, ncallsMax int) bool {
	if len(corpus) == 0 {
		return false
	}
	p0 := corpus[r.Intn(len(corpus))]
	if len(p0.Calls) == 0 {
		return false
	}
	p0c := p0.Clone()
	start := r.Intn(len(p0c.Calls))
	end := start + 1 + r.Intn(len(p0c.Calls)-start)
	for i := len(p0c.Calls) - 1; i >= end; i-- {
		p0c.RemoveCall(i)
	}
	for i := start - 1; i >= 0; i-- {
		p0c.RemoveCall(i)
	}
	idx := r.Intn(len(p.Calls) + 1)
	p.Calls = append(p.Calls[:idx], append(p0c.Calls, p.Calls[idx:]...)...)
	for i := len(p.Calls) - 1; i >= ncallsMax && i >= 0; i-- {
		p.RemoveCall(i)
	}
	return true
}

// mutateArgValue regenerates one random scalar/buffer argument in a
// random call in place.
func mutateArgValue(r *randGen, p *Prog, ct *ChoiceTable) bool {
	if len(p.Calls) == 0 {
		return false
	}
	c := p.Calls[r.Intn(len(p.Calls))]
	var targets []Arg
	c.ForeachArg(func(a Arg) {
		switch a.(type) {
		case *ConstArg, *DataArg:
			if _, isLen := a.Type().(*LenType); !isLen {
				targets = append(targets, a)
			}
		}
	})
	if len(targets) == 0 {
		return false
	}
	target := targets[r.Intn(len(targets))]
	switch a := target.(type) {
	case *ConstArg:
		it, ok := a.typ.(*IntType)
		if !ok {
			return false
		}
		a.Val = r.genInt(it).(*ConstArg).Val
	case *DataArg:
		bt, ok := a.typ.(*BufferType)
		if !ok {
			return false
		}
		a.Data = r.randBuf(bt.Kind, bt.Values)
	}
	return true
}

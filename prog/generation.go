package prog

import "math/rand"

// Generate builds a fresh random program, using ct to pick syscalls and
// greedily resolving resource inputs by inserting their cheapest
// producer (§4.2 step 4). It draws a call count in [1, lengthHint] and
// adds calls until that count is reached; a call and the producers
// inserted for it are added together, so the result can be longer than
// lengthHint. A target with no callable syscall yields an empty program.
func (target *Target) Generate(rs rand.Source, lengthHint int, ct *ChoiceTable) *Prog {
	p := &Prog{Target: target, alloc: newAllocator(target.NumPages * target.PageSize)}
	r := newRand(target, rs)
	s := newState(target, ct)
	if lengthHint < 1 {
		lengthHint = 1
	}
	ncalls := 1 + r.Intn(lengthHint)
	for len(p.Calls) < ncalls {
		calls := r.generateCall(s, p)
		if calls == nil {
			break
		}
		for _, c := range calls {
			s.analyze(c)
			p.Calls = append(p.Calls, c)
		}
	}
	for _, c := range p.Calls {
		assignSizes(c)
	}
	return p
}

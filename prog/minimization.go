package prog

// Minimize repeatedly strips calls and shrinks buffers from p while
// pred keeps reporting true, returning the smallest program found
// (§4.4). The call at callIndex is never removed. pred receives a
// candidate program and the index callIndex was remapped to (-1 stays
// -1) and decides whether the candidate still reproduces the behavior
// under investigation.
func Minimize(p *Prog, callIndex int, pred func(*Prog, int) bool) (*Prog, int) {
	cur := p.Clone()
	curIdx := callIndex

	for removed := true; removed; {
		removed = false
		for i := 0; i < len(cur.Calls); i++ {
			if i == curIdx {
				continue
			}
			cand := cur.Clone()
			candIdx := curIdx
			if candIdx >= 0 && i < candIdx {
				candIdx--
			}
			removeCallAt(cand, i)
			if pred(cand, candIdx) {
				cur, curIdx = cand, candIdx
				removed = true
				break
			}
		}
	}

	for _, c := range cur.Calls {
		shrinkCallArgs(c, cur, curIdx, pred)
	}
	return cur, curIdx
}

func removeCallAt(p *Prog, i int) {
	p.RemoveCall(i)
}

// shrinkCallArgs shrinks variable-length buffers and arrays toward
// zero, one step at a time, keeping each shrink only if pred still
// holds.
func shrinkCallArgs(c *Call, p *Prog, idx int, pred func(*Prog, int) bool) {
	c.ForeachArg(func(a Arg) {
		switch v := a.(type) {
		case *DataArg:
			for len(v.Data) > 0 {
				saved := v.Data
				v.Data = v.Data[:len(v.Data)-1]
				assignSizes(c)
				if !pred(p, idx) {
					v.Data = saved
					assignSizes(c)
					break
				}
			}
		case *GroupArg:
			at, ok := v.typ.(*ArrayType)
			if !ok || at.SizeKind == ArrayExact {
				return
			}
			for len(v.Inner) > int(at.Lo) {
				saved := v.Inner
				v.Inner = v.Inner[:len(v.Inner)-1]
				assignSizes(c)
				if !pred(p, idx) {
					v.Inner = saved
					assignSizes(c)
					break
				}
			}
		}
	})
}

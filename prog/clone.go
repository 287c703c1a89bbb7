package prog

// Clone deep-copies p, preserving ResRef identity (two ResultArgs that
// pointed at the same producer in p point at the same cloned producer
// in the result) so the clone's Uses sets stay internally consistent.
func (p *Prog) Clone() *Prog {
	np := &Prog{Target: p.Target, alloc: p.alloc}
	np.alloc.live = append([]addrRange{}, p.alloc.live...)
	resMap := map[*ResultArg]*ResultArg{}
	np.Calls = make([]*Call, len(p.Calls))
	for i, c := range p.Calls {
		nc := &Call{Meta: c.Meta}
		nc.Args = make([]Arg, len(c.Args))
		for j, a := range c.Args {
			nc.Args[j] = cloneArg(a, resMap)
		}
		if c.Ret != nil {
			nc.Ret = cloneResult(c.Ret, resMap)
		}
		np.Calls[i] = nc
	}
	return np
}

func cloneResult(r *ResultArg, resMap map[*ResultArg]*ResultArg) *ResultArg {
	if nr, ok := resMap[r]; ok {
		return nr
	}
	nr := &ResultArg{typ: r.typ, Val: r.Val, Uses: map[*ResultArg]bool{}}
	resMap[r] = nr
	if r.Res != nil {
		producer := cloneResult(r.Res, resMap)
		nr.Res = producer
		producer.Uses[nr] = true
	}
	return nr
}

func cloneArg(a Arg, resMap map[*ResultArg]*ResultArg) Arg {
	switch v := a.(type) {
	case *ConstArg:
		return constArg(v.typ, v.Val)
	case *DataArg:
		return dataArg(v.typ, v.Data)
	case *VMAArg:
		return vmaArg(v.typ, v.Address, v.NumPages)
	case *ResultArg:
		return cloneResult(v, resMap)
	case *PointerArg:
		var inner Arg
		if v.Res != nil {
			inner = cloneArg(v.Res, resMap)
		}
		return pointerArg(v.typ, v.Address, inner)
	case *GroupArg:
		inner := make([]Arg, len(v.Inner))
		for i, in := range v.Inner {
			inner[i] = cloneArg(in, resMap)
		}
		return groupArg(v.typ, inner)
	case *UnionArg:
		return unionArg(v.typ, v.Index, cloneArg(v.Option, resMap))
	default:
		panic("cloneArg: unknown arg type")
	}
}

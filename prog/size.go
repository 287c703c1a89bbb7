package prog

// assignSizes walks every call's argument tree and resolves LenType
// values against the sibling they reference (a VMA sibling counts in
// pages). Generate, Mutate and Minimize's shrink steps run it on every
// call they touch, so a mutation that resizes a buffer never has to keep
// every outstanding LenType in sync by hand.
func assignSizes(c *Call) {
	c.ForeachArg(func(a Arg) {
		ca, ok := a.(*ConstArg)
		if !ok {
			return
		}
		lt, ok := ca.typ.(*LenType)
		if !ok {
			return
		}
		target, ok := resolvePath(c, lt.Path)
		if !ok {
			return
		}
		if lt.ByteSize {
			ca.Val = truncate(byteLen(target), lt.BitSize)
		} else {
			ca.Val = truncate(elemCount(target), lt.BitSize)
		}
	})
}

// resolvePath walks path (field names / "@elem") starting from c.Args,
// mirroring resolvesWithin's structural rules but over values instead
// of types.
func resolvePath(c *Call, path []string) (Arg, bool) {
	if len(path) == 0 {
		return nil, false
	}
	var cur Arg
	for i, param := range c.Meta.Args {
		if param.Name == path[0] {
			cur = c.Args[i]
			break
		}
	}
	if cur == nil {
		return nil, false
	}
	for _, step := range path[1:] {
		if pa, ok := cur.(*PointerArg); ok {
			cur = pa.Res
		}
		switch v := cur.(type) {
		case *GroupArg:
			if st, ok := v.typ.(*StructType); ok {
				idx := -1
				for i, f := range st.Fields {
					if f.Name == step {
						idx = i
						break
					}
				}
				if idx < 0 {
					return nil, false
				}
				cur = v.Inner[idx]
				continue
			}
			if step != "@elem" || len(v.Inner) == 0 {
				return nil, false
			}
			cur = v.Inner[0]
		default:
			return nil, false
		}
	}
	return cur, true
}

func byteLen(a Arg) uint64 {
	switch v := a.(type) {
	case *PointerArg:
		if v.Res == nil {
			return 0
		}
		return byteLen(v.Res)
	case *DataArg:
		return uint64(len(v.Data))
	case *GroupArg:
		var sum uint64
		for _, in := range v.Inner {
			sum += byteLen(in)
		}
		return sum
	case *ConstArg:
		return v.typ.Size()
	case *VMAArg:
		return v.NumPages
	default:
		return a.Type().Size()
	}
}

func elemCount(a Arg) uint64 {
	if pa, ok := a.(*PointerArg); ok {
		if pa.Res == nil {
			return 0
		}
		return elemCount(pa.Res)
	}
	if g, ok := a.(*GroupArg); ok {
		return uint64(len(g.Inner))
	}
	if d, ok := a.(*DataArg); ok {
		return uint64(len(d.Data))
	}
	return 1
}

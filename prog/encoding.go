package prog

import (
	"fmt"
	"strconv"
	"strings"
)

// Serialize renders p in the textual form described by §6.4: one call
// per line, producer results bound to "rN" labels in call order and
// referenced by later ResRefs.
func (p *Prog) Serialize() []byte {
	var buf strings.Builder
	labels := map[*ResultArg]string{}
	next := 0
	label := func(r *ResultArg) string {
		if l, ok := labels[r]; ok {
			return l
		}
		l := fmt.Sprintf("r%d", next)
		next++
		labels[r] = l
		return l
	}
	for _, c := range p.Calls {
		if c.Ret != nil && len(c.Ret.Uses) > 0 {
			buf.WriteString(label(c.Ret))
			buf.WriteString("=")
		}
		buf.WriteString(c.Meta.Name)
		buf.WriteByte('(')
		for i, a := range c.Args {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeValue(&buf, a, labels, label)
		}
		buf.WriteByte(')')
		buf.WriteByte('\n')
	}
	return []byte(buf.String())
}

func writeValue(buf *strings.Builder, a Arg, labels map[*ResultArg]string, label func(*ResultArg) string) {
	switch v := a.(type) {
	case *ConstArg:
		buf.WriteString(formatHex(v.Val))
	case *DataArg:
		buf.WriteByte('"')
		buf.WriteString(fmt.Sprintf("%x", v.Data))
		buf.WriteByte('"')
	case *VMAArg:
		fmt.Fprintf(buf, "&(%s/%s)=nil", formatHex(v.Address), formatHex(v.NumPages))
	case *PointerArg:
		if v.Res == nil {
			if v.Address == 0 {
				buf.WriteString("&AUTO=nil")
				return
			}
			fmt.Fprintf(buf, "&(%s)=nil", formatHex(v.Address))
			return
		}
		buf.WriteString("&AUTO=")
		writeValue(buf, v.Res, labels, label)
	case *GroupArg:
		open, close := byte('['), byte(']')
		if _, isStruct := v.typ.(*StructType); isStruct {
			open, close = '{', '}'
		}
		buf.WriteByte(open)
		for i, in := range v.Inner {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeValue(buf, in, labels, label)
		}
		buf.WriteByte(close)
	case *UnionArg:
		ut := v.typ.(*UnionType)
		fmt.Fprintf(buf, "@%s=", ut.Fields[v.Index].Name)
		writeValue(buf, v.Option, labels, label)
	case *ResultArg:
		if v.Res == nil {
			if v.Val == 0 {
				buf.WriteString("0x0")
				return
			}
			buf.WriteString(formatHex(v.Val))
			return
		}
		buf.WriteString(label(v.Res))
	default:
		panic(fmt.Sprintf("Serialize: unknown arg %T", a))
	}
}

func formatHex(v uint64) string {
	return "0x" + strconv.FormatUint(v, 16)
}

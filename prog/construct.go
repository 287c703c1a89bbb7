package prog

// Constructors for building a Target's type graph from outside the
// package (a DescriptionSource adapter, or a synthetic target for
// tests). typeCommon's fields are unexported by embedding, so these are
// the only way callers outside prog can populate them.

func NewIntType(name string, bitSize uint64, signed bool, kind IntKind, lo, hi uint64, values []uint64, isBitset bool) *IntType {
	return &IntType{
		typeCommon: typeCommon{TypeName: name, TypeSize: bitSize / 8},
		BitSize:    bitSize, Signed: signed, Kind: kind, RangeLo: lo, RangeHi: hi, Values: values, IsBitset: isBitset,
	}
}

func NewPtrType(name string, elem Type, dir Dir, optional bool) *PtrType {
	return &PtrType{
		typeCommon: typeCommon{TypeName: name, ArgDir: dir, IsOptional: optional, TypeSize: 8},
		Elem:       elem,
	}
}

func NewArrayType(name string, elem Type, kind ArraySizeKind, lo, hi uint64) *ArrayType {
	t := &ArrayType{typeCommon: typeCommon{TypeName: name}, Elem: elem, SizeKind: kind, Lo: lo, Hi: hi}
	if kind == ArrayExact && !elem.Varlen() {
		t.TypeSize = elem.Size() * lo
	}
	return t
}

func NewStructType(name string, fields []Field) *StructType {
	t := &StructType{typeCommon: typeCommon{TypeName: name}, Fields: fields}
	size := uint64(0)
	varlen := false
	for _, f := range fields {
		if f.Type.Varlen() {
			varlen = true
			break
		}
		size += f.Type.Size()
	}
	if !varlen {
		t.TypeSize = size
	}
	return t
}

func NewUnionType(name string, fields []Field) *UnionType {
	return &UnionType{typeCommon: typeCommon{TypeName: name}, Fields: fields}
}

func NewBufferType(name string, kind BufferKind, values []string) *BufferType {
	return &BufferType{typeCommon: typeCommon{TypeName: name}, Kind: kind, Values: values}
}

func NewResourceType(desc *ResourceDesc, dir Dir) *ResourceType {
	return &ResourceType{typeCommon: typeCommon{TypeName: desc.Name, ArgDir: dir, TypeSize: 8}, Desc: desc}
}

func NewLenType(name string, path []string, bitSize uint64, byteSize bool) *LenType {
	return &LenType{typeCommon: typeCommon{TypeName: name, TypeSize: bitSize / 8}, Path: path, BitSize: bitSize, ByteSize: byteSize}
}

func NewVMAType(name string, pagesLo, pagesHi uint64) *VMAType {
	return &VMAType{typeCommon: typeCommon{TypeName: name, TypeSize: 8}, PagesLo: pagesLo, PagesHi: pagesHi}
}

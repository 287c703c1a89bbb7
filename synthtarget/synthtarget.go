// Package synthtarget builds a small, hand-written Target exercising
// every prog.Type variant, for use in tests and the runnable example
// where a real syscall-description blob isn't available.
package synthtarget

import "github.com/corefuzz/engine/prog"

// New builds the synthetic target:
//
//	res_open()                                                 resource<fd>
//	res_socket()                                                resource<sock>   (sock ⊂ fd)
//	write(fd resource<fd>, buf ptr[in, array[int8]], len len[buf])
//	ioctl_struct(fd resource<fd>, arg ptr[in, struct{a int32; b flags[FLAG_A,FLAG_B]}])
//	mmap_vma()                                                  vma[1:4]
//	pick_one(u union{a int32; b filename})
func New() *prog.Target {
	fd := &prog.ResourceDesc{Name: "fd", Kind: []string{"fd"}, SpecialVals: []uint64{0xffffffffffffffff}}
	sock := &prog.ResourceDesc{Name: "sock", Kind: []string{"fd", "sock"}}

	fdType := prog.NewResourceType(fd, prog.DirOut)
	sockType := prog.NewResourceType(sock, prog.DirOut)
	fdIn := prog.NewResourceType(fd, prog.DirIn)

	buf := prog.NewArrayType("buf", prog.NewIntType("int8", 8, false, prog.IntAny, 0, 0, nil, false), prog.ArrayUnbounded, 0, 0)
	bufPtr := prog.NewPtrType("buf", buf, prog.DirIn, false)
	lenArg := prog.NewLenType("len", []string{"buf"}, 64, true)

	flagsB := prog.NewIntType("b", 32, false, prog.IntSet, 0, 0, []uint64{flagA, flagB}, true)
	ioctlStruct := prog.NewStructType("ioctl_arg", []prog.Field{
		{Name: "a", Type: prog.NewIntType("a", 32, true, prog.IntAny, 0, 0, nil, false)},
		{Name: "b", Type: flagsB},
	})
	ioctlPtr := prog.NewPtrType("arg", ioctlStruct, prog.DirIn, false)

	vma := prog.NewVMAType("ret", 1, 4)

	filename := prog.NewBufferType("b", prog.BufferFilename, nil)
	union := prog.NewUnionType("u", []prog.Field{
		{Name: "a", Type: prog.NewIntType("a", 32, true, prog.IntAny, 0, 0, nil, false)},
		{Name: "b", Type: filename},
	})

	syscalls := []*prog.Syscall{
		{Name: "res_open", Args: nil, Ret: fdType},
		{Name: "res_socket", Args: nil, Ret: sockType},
		{Name: "write", Args: []prog.Param{
			{Name: "fd", Type: fdIn},
			{Name: "buf", Type: bufPtr},
			{Name: "len", Type: lenArg},
		}},
		{Name: "ioctl_struct", Args: []prog.Param{
			{Name: "fd", Type: fdIn},
			{Name: "arg", Type: ioctlPtr},
		}},
		{Name: "mmap_vma", Ret: vma},
		{Name: "pick_one", Args: []prog.Param{
			{Name: "u", Type: union},
		}},
	}

	target, err := prog.NewTarget("test", "amd64", syscalls, []*prog.ResourceDesc{fd, sock}, map[string]uint64{
		"FLAG_A": flagA,
		"FLAG_B": flagB,
	})
	if err != nil {
		panic(err) // the synthetic target is a fixed, hand-checked literal
	}
	return target
}

const (
	flagA = 1 << 0
	flagB = 1 << 1
)

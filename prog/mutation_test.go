package prog

import (
	"math/rand"
	"testing"

	"github.com/corefuzz/engine/synthtarget"
)

func TestMutateSpliceKeepsResRefsWellFormed(t *testing.T) {
	target := synthtarget.New()
	dst, err := Deserialize(target, []byte("mmap_vma()\n"))
	if err != nil {
		t.Fatalf("Deserialize dst: %v", err)
	}
	src, err := Deserialize(target, []byte("r0=res_open()\nwrite(r0, &AUTO=\"6161\"/4, 0x4)\n"))
	if err != nil {
		t.Fatalf("Deserialize src: %v", err)
	}
	corpus := []*Prog{src}

	for seed := int64(0); seed < 50; seed++ {
		np := dst.Mutate(rand.NewSource(seed+1), 20, DefaultChoiceTable(target, nil), corpus)
		if err := np.sanityCheckTypes(); err != nil {
			t.Fatalf("seed %d: mutated program failed sanity check: %v", seed, err)
		}
		// every ResultArg consumer must refer to a producer that
		// actually appears earlier in the same program (or to no
		// producer at all), never to a call outside np.
		for i, c := range np.Calls {
			c.ForeachArg(func(a Arg) {
				ra, ok := a.(*ResultArg)
				if !ok || ra.Res == nil {
					return
				}
				found := -1
				for j := 0; j < i; j++ {
					if np.Calls[j].Ret == ra.Res {
						found = j
					}
				}
				if found == -1 {
					t.Fatalf("seed %d: call %d's ResRef points outside the program", seed, i)
				}
			})
		}
	}
}

func TestMutateSpliceDeclinesWithEmptyCorpus(t *testing.T) {
	target := synthtarget.New()
	p, err := Deserialize(target, []byte("mmap_vma()\n"))
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	ok := mutateSpliceCall(newRand(target, rand.NewSource(1)), p, nil, nil, 20)
	if ok {
		t.Fatalf("expected splice to decline with an empty corpus")
	}
}

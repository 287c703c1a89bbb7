// Package scheduler runs the fuzzer loop (§4.7): N parallel instances,
// each owning an RNG, a bound VM lease, a local mutator, and read/write
// access to the shared Corpus/Relations through their own arbiter
// locks. Grounded on teacher's syz-fuzzer/syz-manager instance
// orchestration pattern, rebuilt around this module's prog/executor
// packages.
package scheduler

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/corefuzz/engine/pkg/corpus"
	"github.com/corefuzz/engine/pkg/executor"
	"github.com/corefuzz/engine/pkg/log"
	"github.com/corefuzz/engine/pkg/osutil"
	"github.com/corefuzz/engine/pkg/relation"
	"github.com/corefuzz/engine/pkg/stat"
	"github.com/corefuzz/engine/pkg/vmpool"
	"github.com/corefuzz/engine/prog"
)

// learnerSlots bounds the number of background relation-learning
// tasks (each holding its own VM lease) running at once, so a burst of
// promotions doesn't starve the main instances for VMs.
var learnerSlots = osutil.NewSemaphore(4)

// Dialer opens the executor wire channel for a freshly leased VM.
// Concrete implementations copy the executor binary in, start it, and
// wrap its stdio (or a virtio-serial/shmem channel) in an
// *executor.Conn; it is a caller-supplied function since the transport
// is VM-type specific and out of this module's scope.
type Dialer func(lease *vmpool.Lease) (*executor.Conn, error)

// Config bundles everything one scheduler run needs beyond the VM pool
// itself.
type Config struct {
	Target    *prog.Target
	Corpus    *corpus.Corpus
	Relations *relation.Table
	Pool      *vmpool.Pool
	Dial      Dialer
	Instances int
	WorkDir   string

	// Syscalls restricts generation/mutation to this subset of
	// Target.Syscalls (the config layer's enable_syscalls/
	// disable_syscalls filter, already applied by the caller). Nil
	// means every syscall in Target is eligible.
	Syscalls []*prog.Syscall

	CallTimeout    time.Duration
	ProgramTimeout time.Duration

	ExecFlags uint32
}

var (
	progsExecuted = stat.New("progs executed", "Total programs executed across all instances", stat.Rate{})
	progsCrashed  = stat.New("progs crashed", "Programs whose execution crashed the VM", stat.Rate{})
	corpusSize    = stat.New("corpus size", "Number of Progs currently admitted to the corpus", stat.Graph("corpus"))
)

// Run starts Config.Instances fuzzer instances and blocks until ctx is
// cancelled or one instance returns a fatal error (Target mismatch,
// unable to acquire any VM), per §5's error-propagation rule.
func Run(ctx context.Context, cfg Config) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Instances; i++ {
		idx := i
		g.Go(func() error {
			inst := &instance{
				cfg: cfg,
				rnd: rand.New(rand.NewSource(time.Now().UnixNano() + int64(idx))),
				id:  idx,
			}
			return inst.run(gctx)
		})
	}
	return g.Wait()
}

type instance struct {
	cfg Config
	rnd *rand.Rand
	id  int
}

// run leases a VM, dials the executor, and loops iterations (§4.7)
// until ctx is cancelled. A recycled VM causes the instance to
// re-lease and keep going rather than exit, matching "instances never
// share a VM; a bad VM is recycled" without tearing down the fuzzer.
func (inst *instance) run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		lease, err := inst.cfg.Pool.Acquire(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		conn, err := inst.cfg.Dial(lease)
		if err != nil {
			log.Logf(0, "instance %d: dial failed, recycling vm: %v", inst.id, err)
			inst.cfg.Pool.Recycle(lease)
			continue
		}
		bad := inst.runOnLease(ctx, lease, conn)
		if bad {
			if err := inst.cfg.Pool.Recycle(lease); err != nil {
				return err
			}
		} else {
			inst.cfg.Pool.Release(lease)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// runOnLease executes iterations against one VM until ctx is done or
// the VM goes bad (protocol violation / timeout), returning true in
// the latter case so the caller recycles it.
func (inst *instance) runOnLease(ctx context.Context, lease *vmpool.Lease, conn *executor.Conn) (bad bool) {
	for {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if err := inst.iterate(ctx, lease, conn); err != nil {
			log.Logf(0, "instance %d: %v", inst.id, err)
			return true
		}
	}
}

// iterate runs one generate-or-mutate-then-execute step (§4.7 step 2).
func (inst *instance) iterate(ctx context.Context, lease *vmpool.Lease, conn *executor.Conn) error {
	syscalls := inst.cfg.Syscalls
	if syscalls == nil {
		syscalls = inst.cfg.Target.Syscalls
	}
	ct := prog.DefaultChoiceTable(inst.cfg.Target, syscalls)
	if inst.cfg.Relations != nil {
		ct = ct.WithWeights(inst.cfg.Relations.Weights(inst.cfg.Target))
	}

	var p *prog.Prog
	if inst.rnd.Float64() < 0.2 {
		p = inst.cfg.Target.Generate(inst.rnd, 10, ct)
	} else {
		if base := inst.cfg.Corpus.ChooseProgram(inst.rnd); base != nil {
			p = base.Mutate(inst.rnd, 20, ct, inst.cfg.Corpus.Programs())
		} else {
			p = inst.cfg.Target.Generate(inst.rnd, 10, ct)
		}
	}
	if len(p.Calls) == 0 {
		return nil
	}
	if inst.cfg.Relations != nil {
		for _, c := range p.Calls {
			inst.cfg.Relations.RecordSelection(c.Meta.Name)
		}
	}

	execCtx, cancel := context.WithTimeout(ctx, inst.cfg.ProgramTimeout)
	defer cancel()
	done := make(chan struct{})
	var res *executor.Result
	var execErr error
	go func() {
		res, execErr = conn.Execute(p, inst.cfg.ExecFlags)
		close(done)
	}()
	select {
	case <-done:
	case <-execCtx.Done():
		return execCtx.Err()
	}
	progsExecuted.Add(1)
	if execErr != nil {
		return execErr
	}

	if res.Status == executor.ProgramCrashed {
		progsCrashed.Add(1)
		return handleCrash(inst.cfg, p, lease)
	}

	inst.admit(p, res)
	return nil
}

// admit folds per-call coverage into the corpus, promoting p when it
// lights coverage bits the corpus doesn't already have (§4.6).
func (inst *instance) admit(p *prog.Prog, res *executor.Result) {
	for callIdx, cr := range res.Calls {
		if cr.Status != executor.StatusOK || len(cr.Cov) == 0 {
			continue
		}
		if !inst.cfg.Corpus.HasNewCover(cr.Cov) {
			continue
		}
		minimized, minCall := minimizeForCoverage(inst.cfg, p, callIdx, cr.Cov)
		inst.cfg.Corpus.Save(corpus.NewInput{
			Prog:     minimized,
			Call:     minCall,
			Signal:   signalFromCover(cr.Cov),
			Cover:    cr.Cov,
			RawCover: cr.Cov,
		})
		corpusSize.Add(1)
		learnerSlots.Wait()
		go func() {
			defer learnerSlots.Signal()
			learnRelations(inst.cfg, minimized)
		}()
	}
}

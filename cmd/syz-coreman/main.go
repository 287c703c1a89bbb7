// Command syz-coreman drives one fuzzing run: it loads a YAML config,
// boots a VM pool, and runs the scheduler until interrupted. Grounded
// on teacher's syz-fuzzer/main flag-parsing and shutdown-channel
// conventions (syz-fuzzer/fuzzer.go).
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/corefuzz/engine/pkg/config"
	"github.com/corefuzz/engine/pkg/corpus"
	"github.com/corefuzz/engine/pkg/executor"
	"github.com/corefuzz/engine/pkg/log"
	"github.com/corefuzz/engine/pkg/osutil"
	"github.com/corefuzz/engine/pkg/persist"
	"github.com/corefuzz/engine/pkg/relation"
	"github.com/corefuzz/engine/pkg/scheduler"
	"github.com/corefuzz/engine/pkg/vmpool"
	"github.com/corefuzz/engine/synthtarget"
	"github.com/corefuzz/engine/vm/vmimpl"
)

func main() {
	flagConfig := flag.String("config", "", "path to run configuration YAML")
	flag.Parse()
	if *flagConfig == "" {
		log.Fatalf("-config is required")
	}

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		log.Fatalf("%v", err)
	}

	// The syscall-description compiler is out of scope; a production
	// run supplies SysTable through a DescriptionSource adapter, but
	// for now every run loads the synthetic exercise target.
	target := synthtarget.New()
	if cfg.SysTable != "" {
		log.Fatalf("loading a compiled description blob is not implemented; leave sys_table empty")
	}

	ctx, cancel := context.WithCancel(context.Background())
	shutdown := make(chan struct{})
	osutil.HandleInterrupts(shutdown)
	go func() {
		<-shutdown
		log.Logf(0, "syz-coreman: shutting down")
		cancel()
	}()

	relations, err := persist.LoadRelations(cfg.Workdir)
	if err != nil {
		log.Logf(0, "failed to load relations.json, starting fresh: %v", err)
		relations = relation.New()
	}
	relation.SeedFromResources(relations, target)

	corp := corpus.NewCorpus(ctx)
	if saved, err := persist.LoadCorpus(cfg.Workdir, target); err != nil {
		log.Logf(0, "failed to load corpus.json, starting fresh: %v", err)
	} else {
		for _, p := range saved {
			corp.Save(corpus.NewInput{Prog: p, Call: -1})
		}
	}

	pool, err := bootPool(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer pool.Shutdown()

	go periodicCheckpoint(ctx, cfg.Workdir, corp, relations)

	sched := scheduler.Config{
		Target:         target,
		Corpus:         corp,
		Relations:      relations,
		Pool:           pool,
		Dial:           dialExecutor,
		Instances:      cfg.Instances,
		WorkDir:        cfg.Workdir,
		Syscalls:       cfg.FilterSyscalls(target),
		CallTimeout:    cfg.Timeouts.Call,
		ProgramTimeout: cfg.Timeouts.Program,
		ExecFlags:      executor.FlagCollectCover,
	}
	if err := scheduler.Run(ctx, sched); err != nil {
		log.Fatalf("scheduler: %v", err)
	}

	if err := persist.SaveCorpus(cfg.Workdir, corp); err != nil {
		log.Logf(0, "final corpus save failed: %v", err)
	}
	if err := persist.SaveRelations(cfg.Workdir, relations); err != nil {
		log.Logf(0, "final relations save failed: %v", err)
	}
}

// periodicCheckpoint persists the corpus and relation table on a fixed
// cadence, a coarser substitute for checkpointing after every single
// promotion until a manager process exists to consume
// corpus.NewMonitoredCorpus's update channel directly.
func periodicCheckpoint(ctx context.Context, workdir string, corp *corpus.Corpus, relations *relation.Table) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := persist.SaveCorpus(workdir, corp); err != nil {
				log.Logf(0, "checkpoint corpus save failed: %v", err)
			}
			if err := persist.SaveRelations(workdir, relations); err != nil {
				log.Logf(0, "checkpoint relations save failed: %v", err)
			}
		}
	}
}

func bootPool(cfg *config.Config) (*vmpool.Pool, error) {
	typ, ok := vmimpl.Types[cfg.VMType]
	if !ok {
		return nil, fmt.Errorf("unknown vm type %q (no backend registered)", cfg.VMType)
	}
	raw, err := typ.Ctor(&vmimpl.Env{
		Name:    cfg.Name,
		OS:      cfg.TargetOS,
		Arch:    cfg.TargetArch,
		Workdir: cfg.Workdir,
		Image:   cfg.Image,
		SSHKey:  cfg.SSHKey,
		SSHUser: cfg.SSHUser,
	})
	if err != nil {
		return nil, fmt.Errorf("vm pool ctor: %w", err)
	}
	return vmpool.New(raw, cfg.Workdir)
}

// dialExecutor opens the wire-protocol channel to the in-guest
// executor for a freshly leased VM. Bridging vmimpl.Instance's
// Copy/Run/Forward primitives into a byte-stream executor.Conn is
// specific to each VM backend (e.g. a forwarded TCP port for qemu, a
// direct pipe for the isolated backend) and none is wired into this
// module, so this is the one integration seam left for a concrete VM
// backend to fill in.
func dialExecutor(lease *vmpool.Lease) (*executor.Conn, error) {
	return nil, fmt.Errorf("dialExecutor: no VM backend wired for executor transport")
}

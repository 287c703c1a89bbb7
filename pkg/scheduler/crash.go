package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/corefuzz/engine/pkg/executor"
	"github.com/corefuzz/engine/pkg/hash"
	"github.com/corefuzz/engine/pkg/log"
	"github.com/corefuzz/engine/pkg/report/crash"
	"github.com/corefuzz/engine/pkg/vmpool"
	"github.com/corefuzz/engine/prog"
)

const maxReproAttempts = 3

// handleCrash implements the §7 VM-crash policy: extract the guest
// log, derive a signature from the normalized panic title, attempt
// reproduction up to maxReproAttempts times on a fresh VM, and on
// success minimize the reproducer before writing it to crashes/.
func handleCrash(cfg Config, p *prog.Prog, lease *vmpool.Lease) error {
	rawLog, _ := lease.Instance.Diagnose()
	title := normalizeTitle(rawLog)
	sig := hash.String([]byte(title))

	reproduced := false
	for attempt := 0; attempt < maxReproAttempts && !reproduced; attempt++ {
		fresh, err := cfg.Pool.Acquire(context.Background())
		if err != nil {
			break
		}
		conn, err := cfg.Dial(fresh)
		if err == nil {
			res, execErr := conn.Execute(p, cfg.ExecFlags|0x10) // bit 4: repeat
			if execErr == nil && res.Status == executor.ProgramCrashed {
				reproduced = true
			}
		}
		cfg.Pool.Recycle(fresh)
	}

	minimal := p
	if reproduced {
		minimal, _ = prog.Minimize(p, -1, func(cand *prog.Prog, _ int) bool {
			return reproduces(cfg, cand)
		})
	}

	return writeCrash(cfg, sig, title, minimal, rawLog)
}

func reproduces(cfg Config, p *prog.Prog) bool {
	lease, err := cfg.Pool.Acquire(context.Background())
	if err != nil {
		return false
	}
	defer cfg.Pool.Recycle(lease)
	conn, err := cfg.Dial(lease)
	if err != nil {
		return false
	}
	res, err := conn.Execute(p, cfg.ExecFlags|0x10)
	return err == nil && res.Status == executor.ProgramCrashed
}

// normalizeTitle takes the first non-empty line of the guest log as
// the panic title, the input crash.FromTitle expects.
func normalizeTitle(guestLog []byte) string {
	for _, line := range strings.Split(string(guestLog), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return "UNKNOWN"
}

func writeCrash(cfg Config, sig, title string, p *prog.Prog, guestLog []byte) error {
	typ := crash.FromTitle(title)
	dir := filepath.Join(cfg.WorkDir, "crashes", sig)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Logf(0, "crash %s (%s): failed to create dir: %v", sig, typ, err)
		return nil // §7 Persistence I/O: log, continue
	}
	if err := os.WriteFile(filepath.Join(dir, "repro.prog"), p.Serialize(), 0o644); err != nil {
		log.Logf(0, "crash %s: failed to write repro: %v", sig, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "log.txt"), guestLog, 0o644); err != nil {
		log.Logf(0, "crash %s: failed to write guest log: %v", sig, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "title.txt"), []byte(fmt.Sprintf("%s\ntype: %s\nfirst seen: %s\n", title, typ, time.Now().UTC().Format(time.RFC3339))), 0o644); err != nil {
		log.Logf(0, "crash %s: failed to write title: %v", sig, err)
	}
	return nil
}

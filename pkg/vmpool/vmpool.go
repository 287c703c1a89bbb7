// Package vmpool turns the raw vmimpl.Pool/Instance abstraction into
// the MPMC lease queue §5 calls for: a fixed set of VM handles, each
// exclusive to its holder for the duration of a lease, returned to the
// queue (or dropped and replaced, on recycle) when the holder is done.
package vmpool

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/corefuzz/engine/vm/vmimpl"
)

// Lease is one exclusively-held VM, identified by an opaque handle so
// logs and crash reports can refer to "which VM" without exposing the
// underlying vmimpl.Instance.
type Lease struct {
	ID       uuid.UUID
	Instance vmimpl.Instance
	index    int
}

// Pool is the bounded, concurrency-safe lease queue built on top of a
// vmimpl.Pool. Acquire blocks until a VM is free or ctx is done;
// Release returns a healthy lease to the queue, Recycle tears a bad
// one down and boots a fresh replacement in its slot.
type Pool struct {
	raw     vmimpl.Pool
	workdir string

	mu      sync.Mutex
	free    []*Lease
	notify  chan struct{}
	closed  bool
}

func New(raw vmimpl.Pool, workdir string) (*Pool, error) {
	p := &Pool{raw: raw, workdir: workdir, notify: make(chan struct{}, raw.Count())}
	for i := 0; i < raw.Count(); i++ {
		lease, err := p.boot(i)
		if err != nil {
			return nil, fmt.Errorf("boot vm %d: %w", i, err)
		}
		p.free = append(p.free, lease)
	}
	return p, nil
}

func (p *Pool) boot(index int) (*Lease, error) {
	inst, err := p.raw.Create(p.workdir, index)
	if err != nil {
		return nil, err
	}
	return &Lease{ID: uuid.New(), Instance: inst, index: index}, nil
}

// Acquire blocks until a VM lease is available or ctx is cancelled.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	for {
		p.mu.Lock()
		if len(p.free) > 0 {
			lease := p.free[len(p.free)-1]
			p.free = p.free[:len(p.free)-1]
			p.mu.Unlock()
			return lease, nil
		}
		p.mu.Unlock()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.notify:
		}
	}
}

// Release returns a healthy lease to the free queue.
func (p *Pool) Release(lease *Lease) {
	p.mu.Lock()
	p.free = append(p.free, lease)
	p.mu.Unlock()
	p.signal()
}

// Recycle tears the lease's VM down and boots a fresh one in its
// place, per §5's "a VM that times out or returns an unparseable
// response is recycled" and §7's executor-protocol-violation policy.
func (p *Pool) Recycle(lease *Lease) error {
	lease.Instance.Close()
	fresh, err := p.boot(lease.index)
	if err != nil {
		return fmt.Errorf("recycle vm %d: %w", lease.index, err)
	}
	p.mu.Lock()
	p.free = append(p.free, fresh)
	p.mu.Unlock()
	p.signal()
	return nil
}

func (p *Pool) signal() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Shutdown closes every VM currently sitting free. Leases held by
// in-flight instances are closed by their own recycle/release path.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for _, lease := range p.free {
		lease.Instance.Close()
	}
	p.free = nil
}

package vmpool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corefuzz/engine/vm/vmimpl"
)

type fakeInstance struct {
	closed bool
}

func (f *fakeInstance) Copy(hostSrc string) (string, error) { return hostSrc, nil }
func (f *fakeInstance) Forward(port int) (string, error)    { return "", nil }
func (f *fakeInstance) Run(timeout time.Duration, stop <-chan bool, command string) (<-chan []byte, <-chan error, error) {
	return nil, nil, nil
}
func (f *fakeInstance) Diagnose() ([]byte, bool) { return nil, false }
func (f *fakeInstance) Close()                   { f.closed = true }

type fakePool struct {
	count   int
	created []*fakeInstance
}

func (f *fakePool) Count() int { return f.count }
func (f *fakePool) Create(workdir string, index int) (vmimpl.Instance, error) {
	inst := &fakeInstance{}
	f.created = append(f.created, inst)
	return inst, nil
}

func TestAcquireReleaseCycles(t *testing.T) {
	raw := &fakePool{count: 2}
	pool, err := New(raw, "/tmp/work")
	require.NoError(t, err)

	a, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	b, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	pool.Release(a)
	c, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, a.ID, c.ID)
}

func TestAcquireBlocksUntilReleaseOrCancel(t *testing.T) {
	raw := &fakePool{count: 1}
	pool, err := New(raw, "/tmp/work")
	require.NoError(t, err)

	lease, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	pool.Release(lease)
	got, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, lease.ID, got.ID)
}

func TestRecycleClosesAndReplaces(t *testing.T) {
	raw := &fakePool{count: 1}
	pool, err := New(raw, "/tmp/work")
	require.NoError(t, err)

	lease, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	old := lease.Instance.(*fakeInstance)

	require.NoError(t, pool.Recycle(lease))
	assert.True(t, old.closed)

	fresh, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, lease.ID, fresh.ID)
}

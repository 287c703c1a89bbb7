package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
name: test-run
workdir: /tmp/work
vm_type: qemu
count: 4
instances: 4
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)
	assert.Equal(t, "test-run", cfg.Name)
	assert.Equal(t, 50*time.Millisecond, cfg.Timeouts.Call)
	assert.Equal(t, 45*time.Second, cfg.Timeouts.Program)
	assert.True(t, cfg.EnableCover)
}

func TestParseRejectsMissingWorkdir(t *testing.T) {
	_, err := Parse([]byte("vm_type: qemu\ncount: 1\n"))
	assert.Error(t, err)
}

func TestParseRejectsInstancesExceedingCount(t *testing.T) {
	_, err := Parse([]byte("workdir: /tmp/work\ncount: 2\ninstances: 3\n"))
	assert.Error(t, err)
}

func TestParseRejectsConflictingSyscallLists(t *testing.T) {
	_, err := Parse([]byte(`
workdir: /tmp/work
count: 1
enable_syscalls: ["write"]
disable_syscalls: ["write"]
`))
	assert.Error(t, err)
}

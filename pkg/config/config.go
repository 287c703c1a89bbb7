// Package config loads the run configuration for a fuzzing session:
// the VM pool to boot, the target to load, corpus/workdir paths, and
// the timeouts §5 names. Grounded on the shape of teacher's
// pkg/mgrconfig.Config, but expressed as YAML via gopkg.in/yaml.v3
// rather than JSON, matching the rest of the pack's config-loading
// convention (see DESIGN.md).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/corefuzz/engine/prog"
)

// Config is the top-level run configuration, one YAML document per
// fuzzing session.
type Config struct {
	// Name identifies the run, used for workdir subdirectories and
	// crash-report tagging.
	Name string `yaml:"name"`

	// Target description blob path; loaded via the (unimplemented)
	// DescriptionSource adapter, or left empty to use synthtarget.
	TargetOS   string `yaml:"target_os"`
	TargetArch string `yaml:"target_arch"`
	SysTable   string `yaml:"sys_table,omitempty"`

	// Workdir holds corpus.json, relations.json and crashes/.
	Workdir string `yaml:"workdir"`

	// VM pool configuration.
	VMType  string `yaml:"vm_type"`
	Image   string `yaml:"image,omitempty"`
	SSHKey  string `yaml:"sshkey,omitempty"`
	SSHUser string `yaml:"ssh_user,omitempty"`
	Count   int    `yaml:"count"`

	// Instances is the number of parallel fuzzer instances (§4.7); it
	// must not exceed Count since every instance holds one VM lease.
	Instances int `yaml:"instances"`

	EnabledSyscalls  []string `yaml:"enable_syscalls,omitempty"`
	DisabledSyscalls []string `yaml:"disable_syscalls,omitempty"`

	Timeouts Timeouts `yaml:"timeouts"`

	EnableCover bool `yaml:"cover"`
	EnableComps bool `yaml:"comps"`
}

// Timeouts captures the three blocking-point budgets §5 names.
type Timeouts struct {
	Call    time.Duration `yaml:"call"`    // default 50ms
	Program time.Duration `yaml:"program"` // default 45s
	Boot    time.Duration `yaml:"boot"`
}

func defaults() Config {
	return Config{
		Instances:   1,
		EnableCover: true,
		Timeouts: Timeouts{
			Call:    50 * time.Millisecond,
			Program: 45 * time.Second,
			Boot:    2 * time.Minute,
		},
	}
}

// Load reads and validates a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FilterSyscalls applies EnabledSyscalls/DisabledSyscalls against
// target's full catalog, returning the subset the scheduler should
// generate and mutate calls from. An empty EnabledSyscalls list means
// "every syscall is eligible" (minus anything DisabledSyscalls names);
// a non-empty one means "only these," which validate already confirmed
// isn't combined with a disable list.
func (c *Config) FilterSyscalls(target *prog.Target) []*prog.Syscall {
	if len(c.EnabledSyscalls) == 0 && len(c.DisabledSyscalls) == 0 {
		return target.Syscalls
	}
	enabled := make(map[string]bool, len(c.EnabledSyscalls))
	for _, name := range c.EnabledSyscalls {
		enabled[name] = true
	}
	disabled := make(map[string]bool, len(c.DisabledSyscalls))
	for _, name := range c.DisabledSyscalls {
		disabled[name] = true
	}
	out := make([]*prog.Syscall, 0, len(target.Syscalls))
	for _, call := range target.Syscalls {
		if len(enabled) > 0 && !enabled[call.Name] {
			continue
		}
		if disabled[call.Name] {
			continue
		}
		out = append(out, call)
	}
	return out
}

func (c *Config) validate() error {
	if c.Workdir == "" {
		return fmt.Errorf("config: workdir is required")
	}
	if c.Count <= 0 {
		return fmt.Errorf("config: count must be positive")
	}
	if c.Instances > c.Count {
		return fmt.Errorf("config: instances (%d) exceeds vm count (%d)", c.Instances, c.Count)
	}
	if len(c.EnabledSyscalls) > 0 && len(c.DisabledSyscalls) > 0 {
		return fmt.Errorf("config: enable_syscalls and disable_syscalls are mutually exclusive")
	}
	return nil
}

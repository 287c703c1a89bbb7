// Package relation maintains the directed, weighted influence graph
// between syscalls (§3.4, §4.5): an edge A → B means prepending A to a
// minimized program containing B changed B's coverage. The table is
// append-only in steady state, grounded on healer_core's Relation
// table (src/relation.rs), which seeds edges statically from resource
// subtyping before any dynamic learning runs.
package relation

import (
	"encoding/json"
	"sync"

	"github.com/corefuzz/engine/prog"
)

// Table is the shared, concurrency-safe relation graph. Reads (Has,
// Targets, InDegree, Weights) vastly outnumber writes (Add), matching the reader-preferring
// discipline §5 calls for.
type Table struct {
	mu        sync.RWMutex
	edges     map[string]map[string]bool
	selection map[string]int64
}

func New() *Table {
	return &Table{
		edges:     make(map[string]map[string]bool),
		selection: make(map[string]int64),
	}
}

// RecordSelection marks name as having just been generated/mutated
// into a Prog, feeding the §4.2 step 1 "scarcity of recent selection"
// bias: a syscall picked often accumulates a larger denominator in
// Weights, nudging future generation toward syscalls picked less.
func (t *Table) RecordSelection(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selection[name]++
}

// Add records A → B. Adding an edge twice, or an edge that already
// exists, is a no-op: the table only grows (§3.4, §8.1 monotonicity).
func (t *Table) Add(from, to string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.edges[from] == nil {
		t.edges[from] = make(map[string]bool)
	}
	t.edges[from][to] = true
}

func (t *Table) Has(from, to string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.edges[from][to]
}

// Targets returns every syscall from has a recorded edge to.
func (t *Table) Targets(from string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.edges[from]))
	for to := range t.edges[from] {
		out = append(out, to)
	}
	return out
}

// InDegree counts edges pointing at name, the bias signal §4.2 step 1
// uses to prefer syscalls with known influence over them.
func (t *Table) InDegree(name string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, tos := range t.edges {
		if tos[name] {
			n++
		}
	}
	return n
}

// Weights returns a per-syscall multiplier suitable for
// prog.ChoiceTable.WithWeights: syscalls with higher in-degree (more
// known influence from other calls) are sampled more often, and
// syscalls selected often recently are sampled less (§4.2 step 1's
// two biases: known influence, scarcity of recent selection).
func (t *Table) Weights(target *prog.Target) map[string]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]float64, len(target.Syscalls))
	for _, c := range target.Syscalls {
		inDegree := float64(len(inDegreeLocked(t, c.Name)))
		out[c.Name] = (1 + inDegree) / (1 + float64(t.selection[c.Name]))
	}
	return out
}

func inDegreeLocked(t *Table, name string) []string {
	var from []string
	for src, tos := range t.edges {
		if tos[name] {
			from = append(from, src)
		}
	}
	return from
}

// SeedFromResources performs the static seeding pass: for every pair of
// syscalls (P, C) where P produces a resource subtype that C consumes,
// record P → C. This mirrors healer_core's calculate_influence, which
// primes the table before any dynamic learning job runs.
func SeedFromResources(t *Table, target *prog.Target) {
	for _, prodRes := range target.Resources {
		for _, consRes := range target.Resources {
			if !prog.IsCompatibleResource(consRes.Kind, prodRes.Kind) {
				continue
			}
			for _, producer := range prodRes.Producers {
				for _, consumer := range consRes.Consumers {
					if producer.Name == consumer.Name {
						continue
					}
					t.Add(producer.Name, consumer.Name)
				}
			}
		}
	}
}

// adjacency is the on-disk form of relations.json (§6.3): a plain
// adjacency list, since the pack carries no ecosystem graph-serialization
// library and the shape is trivial enough that stdlib JSON is the
// grounded choice (see DESIGN.md).
type adjacency map[string][]string

func (t *Table) MarshalJSON() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(adjacency, len(t.edges))
	for from, tos := range t.edges {
		list := make([]string, 0, len(tos))
		for to := range tos {
			list = append(list, to)
		}
		out[from] = list
	}
	return json.Marshal(out)
}

func (t *Table) UnmarshalJSON(data []byte) error {
	var adj adjacency
	if err := json.Unmarshal(data, &adj); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.edges = make(map[string]map[string]bool, len(adj))
	for from, tos := range adj {
		set := make(map[string]bool, len(tos))
		for _, to := range tos {
			set[to] = true
		}
		t.edges[from] = set
	}
	return nil
}

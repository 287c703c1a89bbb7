// Package persist implements the on-disk state layout §6.3 defines:
// corpus.json and relations.json under a working directory (crashes/<sha1>/
// is written by pkg/scheduler). Large coverage snapshots are xz-compressed, grounded on
// the example pack's pkg/asset use of github.com/ulikunitz/xz for
// compressed blob storage; corpus.json/relations.json themselves stay
// small and human-diffable so they are plain JSON/text.
package persist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"

	"github.com/corefuzz/engine/pkg/corpus"
	"github.com/corefuzz/engine/pkg/relation"
	"github.com/corefuzz/engine/prog"
)

// SaveCorpus atomically rewrites workdir/corpus.json with the
// canonical textual serialization of every admitted Prog, per §4.6's
// "rewritten atomically after each promotion."
func SaveCorpus(workdir string, c *corpus.Corpus) error {
	items := c.Items()
	entries := make([]string, 0, len(items))
	for _, item := range items {
		entries = append(entries, string(item.Prog.Serialize()))
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal corpus: %w", err)
	}
	return writeAtomic(filepath.Join(workdir, "corpus.json"), data)
}

// LoadCorpus parses a previously saved corpus.json back into Progs.
// The file holds Progs only, so no coverage or signal comes back with
// them.
func LoadCorpus(workdir string, target *prog.Target) ([]*prog.Prog, error) {
	data, err := os.ReadFile(filepath.Join(workdir, "corpus.json"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	var entries []string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal corpus: %w", err)
	}
	progs := make([]*prog.Prog, 0, len(entries))
	for _, entry := range entries {
		p, err := prog.Deserialize(target, []byte(entry))
		if err != nil {
			continue // a corrupted entry is skipped, not fatal (§7 Persistence I/O)
		}
		progs = append(progs, p)
	}
	return progs, nil
}

// SaveRelations rewrites workdir/relations.json from the table's
// current adjacency list.
func SaveRelations(workdir string, t *relation.Table) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal relations: %w", err)
	}
	return writeAtomic(filepath.Join(workdir, "relations.json"), data)
}

func LoadRelations(workdir string) (*relation.Table, error) {
	t := relation.New()
	data, err := os.ReadFile(filepath.Join(workdir, "relations.json"))
	if os.IsNotExist(err) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read relations: %w", err)
	}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("unmarshal relations: %w", err)
	}
	return t, nil
}

// SaveCoverageSnapshot xz-compresses the raw coverage bitmap (one u32
// per edge hash) for crash-repro determinism: a reproduction attempt
// against a resumed run can compare against the exact bitmap state
// at promotion time.
func SaveCoverageSnapshot(workdir string, cov []uint32) error {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return fmt.Errorf("xz writer: %w", err)
	}
	raw := make([]byte, len(cov)*4)
	for i, v := range cov {
		raw[i*4+0] = byte(v)
		raw[i*4+1] = byte(v >> 8)
		raw[i*4+2] = byte(v >> 16)
		raw[i*4+3] = byte(v >> 24)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("xz write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("xz close: %w", err)
	}
	return writeAtomic(filepath.Join(workdir, "coverage.xz"), buf.Bytes())
}

func LoadCoverageSnapshot(workdir string) ([]uint32, error) {
	data, err := os.ReadFile(filepath.Join(workdir, "coverage.xz"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read coverage snapshot: %w", err)
	}
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("xz reader: %w", err)
	}
	var raw bytes.Buffer
	if _, err := raw.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("xz read: %w", err)
	}
	b := raw.Bytes()
	cov := make([]uint32, len(b)/4)
	for i := range cov {
		cov[i] = uint32(b[i*4]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
	}
	return cov, nil
}

// writeAtomic writes data to a temp file in the same directory as
// path, then renames it over path, so a crash mid-write never leaves a
// truncated corpus.json/relations.json behind.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

package fs

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dotbot-tools/rxtrace/internal/domain"
)

// maxLineSize bounds one JSONL line; a 255-byte message encodes well below it.
const maxLineSize = 64 * 1024

// ReadRecords calls fn for every record stored in the JSONL file at path.
// Blank lines are skipped. It stops at the first malformed line or the
// first error returned by fn.
func ReadRecords(path string, fn func(domain.Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 4096), maxLineSize)

	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(bytes.TrimSpace(b)) == 0 {
			continue
		}
		var s domain.StoredRecord
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if err := fn(s.ToRecord()); err != nil {
			return err
		}
	}
	return sc.Err()
}

// KeyOf returns the storage key of an output file.
func KeyOf(path string) string {
	return strings.TrimSuffix(filepath.Base(path), OutputExt)
}

// ExpandOutputs resolves files and directories into a sorted list of JSONL
// output files. Directories contribute their *.jsonl entries.
func ExpandOutputs(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(p, "*"+OutputExt))
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			add(m)
		}
	}
	sort.Strings(out)
	return out, nil
}

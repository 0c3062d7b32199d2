package fix

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vellum-notes/vellum/internal/audit"
	"github.com/vellum-notes/vellum/internal/schema"
)

// JournalEntry records one repair attempt, committed or rolled back.
type JournalEntry struct {
	Timestamp time.Time       `json:"ts"`
	File      string          `json:"file"`
	Code      audit.IssueCode `json:"code"`
	Field     string          `json:"field,omitempty"`
	Status    string          `json:"status"`
	Detail    string          `json:"detail,omitempty"`
}

// Journal is an append-only log of repair attempts under the vault metadata
// directory. A disabled journal is a no-op, so dry runs stay side-effect
// free.
type Journal struct {
	path    string
	enabled bool
	mu      sync.Mutex
}

// NewJournal creates a journal at <vault>/.vellum/repairs.log.
func NewJournal(vaultPath string, enabled bool) *Journal {
	if !enabled {
		return &Journal{}
	}
	return &Journal{
		path:    filepath.Join(vaultPath, schema.MetaDirName, "repairs.log"),
		enabled: true,
	}
}

// Record appends one entry. The timestamp is filled in when zero.
func (j *Journal) Record(entry JournalEntry) error {
	if !j.enabled {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return fmt.Errorf("create journal directory: %w", err)
	}
	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write journal entry: %w", err)
	}
	return nil
}

// Read returns every recorded entry, oldest first. A missing journal reads
// as empty.
func (j *Journal) Read() ([]JournalEntry, error) {
	if !j.enabled {
		return nil, nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := os.ReadFile(j.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	var entries []JournalEntry
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var e JournalEntry
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("decode journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

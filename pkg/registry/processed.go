package registry

import (
	"sort"

	"github.com/agentstation/utc"
)

// FileKind is the kind of source a processed file was ingested as.
type FileKind string

// File kinds.
const (
	KindBudget    FileKind = "budget"
	KindWorkforce FileKind = "workforce"
	KindOrgChart  FileKind = "orgchart"
)

// ProcessedFile records a source file that completed ingestion.
type ProcessedFile struct {
	Path        string   `json:"path" yaml:"path"`
	Kind        FileKind `json:"kind" yaml:"kind"`
	SHA256      string   `json:"sha256" yaml:"sha256"`
	ProcessedAt utc.Time `json:"processed_at" yaml:"processed_at"`
}

// ProcessedFiles is the idempotency set of ingested files, keyed by path.
type ProcessedFiles struct {
	store[string, ProcessedFile]
}

// NewProcessedFiles creates an empty set.
func NewProcessedFiles() *ProcessedFiles {
	return &ProcessedFiles{store: newStore[string, ProcessedFile]()}
}

// Get returns the record for path.
func (p *ProcessedFiles) Get(path string) (*ProcessedFile, bool) {
	return p.get(path)
}

// Len returns the number of records.
func (p *ProcessedFiles) Len() int {
	return p.len()
}

// Contains reports whether path was processed with exactly this content.
func (p *ProcessedFiles) Contains(path, sha string) bool {
	rec, ok := p.get(path)
	return ok && rec.SHA256 == sha
}

// List returns copies of all records sorted by path.
func (p *ProcessedFiles) List() []ProcessedFile {
	items := p.snapshot()
	out := make([]ProcessedFile, 0, len(items))
	for _, rec := range items {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Path < out[j].Path
	})
	return out
}

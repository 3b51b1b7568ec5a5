package models

import "time"

// Pipeline stages a file can fail in
const (
	StageLoad   = "load"
	StageReduce = "reduce"
)

// DiscoveryFilter selects candidate files during discovery.
type DiscoveryFilter struct {
	Extension   string // Final extension to match, with or without the leading dot
	Prefix      string // Optional top-level directory name prefix
	PrefixDepth int    // Depth below root searched for prefixed entries (1 = immediate children)
}

// ResultRecord is the summary emitted for one successfully processed table.
type ResultRecord struct {
	Identifier string   // File base name without extension
	RowIndex   int      // 1-based index of the selected row
	Values     []string // Selected row rendered as text
	Path       string   // Source file
}

// Fields returns the record as output fields: identifier, index, then values.
func (r ResultRecord) Fields() []string {
	fields := make([]string, 0, len(r.Values)+2)
	fields = append(fields, r.Identifier, itoa(r.RowIndex))
	fields = append(fields, r.Values...)
	return fields
}

// FileFailure records a file that was dropped from the output.
type FileFailure struct {
	Path  string
	Stage string
	Err   error
}

func (f *FileFailure) Error() string {
	return f.Stage + " failed for " + f.Path + ": " + errString(f.Err)
}

func (f *FileFailure) Unwrap() error {
	return f.Err
}

// RunSummary represents the aggregate result of one pipeline run
type RunSummary struct {
	RunID      string
	Root       string
	StartedAt  time.Time
	Duration   time.Duration
	Discovered int            // Files found by discovery
	Processed  int            // Files scheduled after max-files truncation
	Records    []ResultRecord // Successful records in input order
	Failures   []FileFailure  // Dropped files in input order
}

// Succeeded returns the number of files that produced a record.
func (s *RunSummary) Succeeded() int {
	return len(s.Records)
}

// Failed returns the number of files that were dropped.
func (s *RunSummary) Failed() int {
	return len(s.Failures)
}

// Package auditlog writes the chronological plain-text audit trail:
// one timestamped, sequence-numbered line per state transition,
// flushed per line so the file is safe to tail during a run.
package auditlog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yairfalse/purku/types"
)

// Log is the append-only audit log for one run.
type Log struct {
	mu       sync.Mutex
	file     *os.File
	writer   *bufio.Writer
	sequence int64
	path     string
}

// Open creates the audit log for runID under dir.
func Open(dir, runID string) (*Log, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("purku-%s.log", runID))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640) // #nosec G302,G304
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	return &Log{
		file:   file,
		writer: bufio.NewWriter(file),
		path:   path,
	}, nil
}

// Path returns the log file path.
func (l *Log) Path() string {
	return l.path
}

// Transition appends one state-transition line. Implements
// schedule.Auditor.
func (l *Log) Transition(scope types.Scope, res types.Resource, status types.OutcomeStatus, detail string) {
	l.append(string(status), scope.String(), res.Type, res.ID, detail)
}

// Event appends a run-level line (run start, scope skip, finalize).
func (l *Log) Event(event string, scope, detail string) {
	l.append(event, scope, "-", "-", detail)
}

func (l *Log) append(event, scope, resourceType, resourceID, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sequence++
	line := fmt.Sprintf("%s #%06d %-10s scope=%s type=%s id=%s",
		time.Now().UTC().Format(time.RFC3339), l.sequence, event, scope, resourceType, resourceID)
	if detail != "" {
		line += " detail=" + detail
	}

	// Whole lines only: flush after every write so a killed run
	// leaves a valid, tail-able file.
	fmt.Fprintln(l.writer, line)
	_ = l.writer.Flush()
}

// Close flushes and closes the log.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.writer.Flush(); err != nil {
		return err
	}
	return l.file.Close()
}

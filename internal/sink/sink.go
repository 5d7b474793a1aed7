// Package sink records formatted prediction lines to the configured destination.
//
// Sinks are fire-and-forget: Append never reports an error to its caller. Write
// failures are printed to a diagnostic logger instead, so a broken log destination
// can never change the outcome of a prediction.
package sink

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/tinytelemetry/inferd/internal/journal"
	"github.com/tinytelemetry/inferd/internal/model"
)

// Sink is the append-only recorder for prediction events.
type Sink = model.RecordSink

// LocalFile appends records to a plaintext journal on disk.
type LocalFile struct {
	journal *journal.Journal
	diag    *log.Logger
}

// NewLocalFile creates a LocalFile sink. A nil diag logs through the standard logger.
func NewLocalFile(j *journal.Journal, diag *log.Logger) *LocalFile {
	if diag == nil {
		diag = log.Default()
	}
	return &LocalFile{journal: j, diag: diag}
}

// Append writes one record. Failures are reported to the diagnostic logger only.
func (s *LocalFile) Append(line string) {
	if err := s.journal.Append(line); err != nil {
		s.diag.Printf("sink: append to %s: %v", s.journal.Path(), err)
	}
}

func (s *LocalFile) Name() string { return "local:" + s.journal.Path() }

// Journal exposes the underlying file for readers.
func (s *LocalFile) Journal() *journal.Journal { return s.journal }

// Console prints records to a transient stream. Nothing is persisted.
type Console struct {
	mu   sync.Mutex
	out  io.Writer
	diag *log.Logger
	dest model.Destination
}

// NewConsole creates a Console sink writing to out (stdout when nil).
func NewConsole(dest model.Destination, out io.Writer, diag *log.Logger) *Console {
	if out == nil {
		out = os.Stdout
	}
	if diag == nil {
		diag = log.Default()
	}
	return &Console{out: out, diag: diag, dest: dest}
}

func (s *Console) Append(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.out, "[%s] %s\n", s.dest, line); err != nil {
		s.diag.Printf("sink: console write: %v", err)
	}
}

func (s *Console) Name() string { return "console:" + s.dest.String() }

// New selects the sink variant for dest. It is called once at startup.
// Only DestinationLocal persists records; every other selector falls back to Console.
func New(dest model.Destination, logPath string, out io.Writer, diag *log.Logger) (Sink, error) {
	if diag == nil {
		diag = log.Default()
	}
	if dest.IsLocal() {
		j, err := journal.Open(logPath)
		if err != nil {
			return nil, fmt.Errorf("sink: open local journal: %w", err)
		}
		return NewLocalFile(j, diag), nil
	}
	if dest == model.DestinationRemote {
		diag.Printf("sink: remote destination is not implemented yet, records go to the console")
	}
	return NewConsole(dest, out, diag), nil
}
